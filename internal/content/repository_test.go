package content

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/apperr"
	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/workflow/model"
)

func setupRepository(t *testing.T) (*Repository, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&Item{}))
	return NewRepository(db), db
}

func TestRepository_Upsert(t *testing.T) {
	ctx := context.Background()

	t.Run("validation", func(t *testing.T) {
		repo, _ := setupRepository(t)
		tests := []struct {
			name string
			item *Item
		}{
			{"nil item", nil},
			{"missing id", &Item{ContentType: model.ContentTypeProject, OwnerID: "stu-1"}},
			{"missing owner", &Item{ContentType: model.ContentTypeProject, ContentID: "p1"}},
			{"wildcard type", &Item{ContentType: model.ContentTypeAny, ContentID: "p1", OwnerID: "stu-1"}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				assert.True(t, errors.Is(repo.Upsert(ctx, tt.item), apperr.ErrValidation))
			})
		}
	})

	t.Run("update keeps the approval marker", func(t *testing.T) {
		repo, _ := setupRepository(t)
		require.NoError(t, repo.Upsert(ctx, &Item{
			ContentType: model.ContentTypeResume,
			ContentID:   "r1",
			OwnerID:     "stu-1",
			Title:       "Resume v1",
			Payload:     datatypes.JSON(`{"pages":1}`),
		}))

		got, err := repo.Get(ctx, model.ContentTypeResume, "r1")
		require.NoError(t, err)
		assert.Equal(t, model.ApprovalMarkerNotRequested, got.ApprovalMarker)
		assert.False(t, got.Visible)

		require.NoError(t, repo.SetApprovalStateInTx(ctx, nil, model.ContentTypeResume, "r1",
			model.ContentApprovalState{Marker: model.ApprovalMarkerApproved, Visible: true}))

		require.NoError(t, repo.Upsert(ctx, &Item{
			ContentType: model.ContentTypeResume,
			ContentID:   "r1",
			OwnerID:     "stu-1",
			Title:       "Resume v2",
			Payload:     datatypes.JSON(`{"pages":2}`),
		}))

		got, err = repo.Get(ctx, model.ContentTypeResume, "r1")
		require.NoError(t, err)
		assert.Equal(t, "Resume v2", got.Title)
		assert.JSONEq(t, `{"pages":2}`, string(got.Payload))
		assert.Equal(t, model.ApprovalMarkerApproved, got.ApprovalMarker)
		assert.True(t, got.Visible)
	})
}

func TestRepository_Lookups(t *testing.T) {
	ctx := context.Background()
	repo, db := setupRepository(t)

	score := 91.5
	for _, item := range []*Item{
		{ContentType: model.ContentTypeProject, ContentID: "p1", OwnerID: "stu-1", Title: "Robot"},
		{ContentType: model.ContentTypeMarks, ContentID: "m1", OwnerID: "stu-1", Title: "Semester 1", Score: &score},
		{ContentType: model.ContentTypeProject, ContentID: "p2", OwnerID: "stu-2", Title: "Compiler"},
	} {
		require.NoError(t, repo.Upsert(ctx, item))
	}

	t.Run("get owner", func(t *testing.T) {
		owner, err := repo.GetOwner(ctx, model.ContentTypeProject, "p2")
		require.NoError(t, err)
		assert.Equal(t, "stu-2", owner)

		_, err = repo.GetOwner(ctx, model.ContentTypeProject, "p9")
		assert.True(t, errors.Is(err, apperr.ErrNotFound))

		// The id is scoped by content type
		_, err = repo.GetOwner(ctx, model.ContentTypeAchievement, "p1")
		assert.True(t, errors.Is(err, apperr.ErrNotFound))
	})

	t.Run("set approval state", func(t *testing.T) {
		err := repo.SetApprovalStateInTx(ctx, nil, model.ContentTypeMarks, "m9", model.ContentApprovalState{Marker: model.ApprovalMarkerPending})
		assert.True(t, errors.Is(err, apperr.ErrNotFound))

		require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
			return repo.SetApprovalStateInTx(ctx, tx, model.ContentTypeMarks, "m1",
				model.ContentApprovalState{Marker: model.ApprovalMarkerApproved, Visible: true})
		}))

		got, err := repo.Get(ctx, model.ContentTypeMarks, "m1")
		require.NoError(t, err)
		assert.Equal(t, model.ApprovalMarkerApproved, got.ApprovalMarker)
		require.NotNil(t, got.Score)
		assert.InDelta(t, score, *got.Score, 1e-9)
	})

	t.Run("rolled back transaction leaves marker", func(t *testing.T) {
		rollback := errors.New("rollback")
		err := db.Transaction(func(tx *gorm.DB) error {
			require.NoError(t, repo.SetApprovalStateInTx(ctx, tx, model.ContentTypeProject, "p1",
				model.ContentApprovalState{Marker: model.ApprovalMarkerPending}))
			return rollback
		})
		require.ErrorIs(t, err, rollback)

		got, err := repo.Get(ctx, model.ContentTypeProject, "p1")
		require.NoError(t, err)
		assert.Equal(t, model.ApprovalMarkerNotRequested, got.ApprovalMarker)
	})

	t.Run("list by owner", func(t *testing.T) {
		all, err := repo.ListByOwner(ctx, "stu-1", false)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, model.ContentTypeMarks, all[0].ContentType)

		visible, err := repo.ListByOwner(ctx, "stu-1", true)
		require.NoError(t, err)
		require.Len(t, visible, 1)
		assert.Equal(t, "m1", visible[0].ContentID)
	})
}
