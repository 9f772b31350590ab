package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/apperr"
	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/workflow/model"
)

// twoStageRequest mirrors workflow W1: faculty then hod, both any-one-role.
func twoStageRequest() model.ApprovalRequest {
	return model.ApprovalRequest{
		BaseModel:   model.BaseModel{ID: uuid.New()},
		StudentID:   "student-1",
		ContentType: model.ContentTypeProject,
		ContentID:   "P1",
		Stages: SnapshotStages([]model.StageTemplate{
			{Name: "Faculty Review", Order: 1, RequiredRoles: []string{"faculty"}},
			{Name: "HOD Review", Order: 2, RequiredRoles: []string{"hod"}},
		}),
		OverallStatus: model.RequestStatusPending,
		Version:       1,
	}
}

func TestTransition(t *testing.T) {
	t.Run("Approve Through All Stages", func(t *testing.T) {
		req := twoStageRequest()

		first, err := Transition(req, action("f1", "faculty", model.DecisionApproved))
		require.NoError(t, err)
		assert.True(t, first.StageResolved)
		assert.Nil(t, first.Event)
		assert.Equal(t, 1, first.Request.CurrentStageIndex)
		assert.Equal(t, model.RequestStatusInProgress, first.Request.OverallStatus)
		assert.Equal(t, model.StageStatusApproved, first.Request.Stages[0].Status)
		assert.Equal(t, model.StageStatusPending, first.Request.Stages[1].Status)

		second, err := Transition(first.Request, action("h1", "hod", model.DecisionApproved))
		require.NoError(t, err)
		assert.Equal(t, model.RequestStatusApproved, second.Request.OverallStatus)
		assert.NotNil(t, second.Request.CompletedAt)
		require.NotNil(t, second.Event)
		assert.Equal(t, model.EventRequestApproved, second.Event.Type)
		assert.Equal(t, "P1", second.Event.ContentID)
		assert.Equal(t, "student-1", second.Event.StudentID)
	})

	t.Run("Rejection Freezes Later Stages", func(t *testing.T) {
		req := twoStageRequest()

		result, err := Transition(req, action("f1", "faculty", model.DecisionRejected))
		require.NoError(t, err)
		assert.Equal(t, model.RequestStatusRejected, result.Request.OverallStatus)
		assert.Equal(t, 0, result.Request.CurrentStageIndex)
		assert.Equal(t, model.StageStatusRejected, result.Request.Stages[0].Status)
		assert.Equal(t, model.StageStatusPending, result.Request.Stages[1].Status)
		require.NotNil(t, result.Event)
		assert.Equal(t, model.EventRequestRejected, result.Event.Type)

		_, err = Transition(result.Request, action("h1", "hod", model.DecisionApproved))
		assert.True(t, apperr.IsKind(err, apperr.KindState))
	})

	t.Run("Role Not In Active Stage", func(t *testing.T) {
		req := twoStageRequest()

		_, err := Transition(req, action("h1", "hod", model.DecisionApproved))
		assert.True(t, apperr.IsKind(err, apperr.KindAuthorization))
	})

	t.Run("Partial Require All Keeps Status", func(t *testing.T) {
		req := twoStageRequest()
		req.Stages = SnapshotStages([]model.StageTemplate{
			{Name: "Joint Review", Order: 1, RequiredRoles: []string{"faculty", "hod"}, RequireAll: true},
		})

		result, err := Transition(req, action("f1", "faculty", model.DecisionApproved))
		require.NoError(t, err)
		assert.False(t, result.StageResolved)
		assert.Nil(t, result.Event)
		assert.Equal(t, model.RequestStatusPending, result.Request.OverallStatus)
		assert.Len(t, result.Request.Stages[0].Actions, 1)
	})

	t.Run("Duplicate Approver", func(t *testing.T) {
		req := twoStageRequest()
		req.Stages = SnapshotStages([]model.StageTemplate{
			{Name: "Joint Review", Order: 1, RequiredRoles: []string{"faculty", "hod"}, RequireAll: true},
		})

		first, err := Transition(req, action("f1", "faculty", model.DecisionApproved))
		require.NoError(t, err)

		_, err = Transition(first.Request, action("f1", "faculty", model.DecisionApproved))
		assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	})

	t.Run("Input Request Is Not Mutated", func(t *testing.T) {
		req := twoStageRequest()

		_, err := Transition(req, action("f1", "faculty", model.DecisionApproved))
		require.NoError(t, err)
		assert.Equal(t, 0, req.CurrentStageIndex)
		assert.Equal(t, model.RequestStatusPending, req.OverallStatus)
		assert.Empty(t, req.Stages[0].Actions)
		assert.Equal(t, model.StageStatusPending, req.Stages[0].Status)
	})

	t.Run("Terminal Request", func(t *testing.T) {
		req := twoStageRequest()
		req.OverallStatus = model.RequestStatusApproved

		_, err := Transition(req, action("f1", "faculty", model.DecisionApproved))
		assert.True(t, apperr.IsKind(err, apperr.KindState))
	})
}

func TestSnapshotStages(t *testing.T) {
	templates := []model.StageTemplate{
		{Name: "A", Order: 1, RequiredRoles: []string{"faculty"}},
		{Name: "B", Order: 2, RequiredRoles: []string{"hod"}, RequireAll: true, Description: "final"},
	}

	stages := SnapshotStages(templates)
	require.Len(t, stages, 2)
	for _, s := range stages {
		assert.Equal(t, model.StageStatusPending, s.Status)
		assert.Empty(t, s.Actions)
	}
	assert.True(t, stages[1].RequireAll)
	assert.Equal(t, "final", stages[1].Description)

	// Editing the template afterwards must not leak into the snapshot.
	templates[0].RequiredRoles[0] = "principal"
	assert.Equal(t, []string{"faculty"}, stages[0].RequiredRoles)
}
