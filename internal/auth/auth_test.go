package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/apperr"
)

func strPtr(s string) *string { return &s }

func TestTokenParser(t *testing.T) {
	parser := NewTokenParser("test-secret", "smart-student-hub")

	t.Run("Round Trip", func(t *testing.T) {
		token, err := parser.Issue(Principal{
			ID:           "faculty-1",
			Role:         RoleFaculty,
			DepartmentID: strPtr("cse"),
			CollegeID:    strPtr("college-1"),
		}, time.Hour)
		require.NoError(t, err)

		p, err := parser.ParseAuthorizationHeader("Bearer " + token)
		require.NoError(t, err)
		assert.Equal(t, "faculty-1", p.ID)
		assert.Equal(t, RoleFaculty, p.Role)
		assert.Equal(t, "cse", p.Department())
		assert.Equal(t, "college-1", p.College())
	})

	t.Run("Wrong Secret", func(t *testing.T) {
		other := NewTokenParser("other-secret", "smart-student-hub")
		token, err := other.Issue(Principal{ID: "u1", Role: RoleStudent}, time.Hour)
		require.NoError(t, err)

		_, err = parser.Parse(token)
		assert.Error(t, err)
	})

	t.Run("Expired", func(t *testing.T) {
		token, err := parser.Issue(Principal{ID: "u1", Role: RoleStudent}, -time.Minute)
		require.NoError(t, err)

		_, err = parser.Parse(token)
		assert.Error(t, err)
	})

	t.Run("Missing Bearer Scheme", func(t *testing.T) {
		_, err := parser.ParseAuthorizationHeader("Basic abc")
		assert.Error(t, err)
	})
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	parser := NewTokenParser("test-secret", "")

	r := gin.New()
	r.Use(Middleware(parser))
	r.GET("/public", func(c *gin.Context) {
		if p := GetPrincipal(c.Request.Context()); p != nil {
			c.String(http.StatusOK, p.ID)
			return
		}
		c.String(http.StatusOK, "anonymous")
	})
	r.GET("/private", RequireAuth(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.GET("/admin", RequireAuth(), RequireRole(RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	studentToken, err := parser.Issue(Principal{ID: "student-1", Role: RoleStudent}, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name       string
		path       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{name: "Public Without Token", path: "/public", wantStatus: http.StatusOK, wantBody: "anonymous"},
		{name: "Public With Token", path: "/public", header: "Bearer " + studentToken, wantStatus: http.StatusOK, wantBody: "student-1"},
		{name: "Public With Garbage Token", path: "/public", header: "Bearer garbage", wantStatus: http.StatusOK, wantBody: "anonymous"},
		{name: "Private Without Token", path: "/private", wantStatus: http.StatusUnauthorized},
		{name: "Private With Token", path: "/private", header: "Bearer " + studentToken, wantStatus: http.StatusNoContent},
		{name: "Admin With Student Token", path: "/admin", header: "Bearer " + studentToken, wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestDirectoryService(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Department{}))

	ds := NewDirectoryService(db)
	ctx := context.Background()

	require.NoError(t, ds.UpsertDepartment(ctx, Department{ID: "cse", Name: "Computer Science", CollegeID: "college-1"}))

	t.Run("Resolve College", func(t *testing.T) {
		college, err := ds.CollegeForDepartment(ctx, "cse")
		require.NoError(t, err)
		assert.Equal(t, "college-1", college)
	})

	t.Run("Upsert Moves Department", func(t *testing.T) {
		require.NoError(t, ds.UpsertDepartment(ctx, Department{ID: "cse", Name: "Computer Science", CollegeID: "college-2"}))
		college, err := ds.CollegeForDepartment(ctx, "cse")
		require.NoError(t, err)
		assert.Equal(t, "college-2", college)
	})

	t.Run("Unknown Department", func(t *testing.T) {
		_, err := ds.CollegeForDepartment(ctx, "mech")
		assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	})

	t.Run("Empty Department", func(t *testing.T) {
		_, err := ds.CollegeForDepartment(ctx, "")
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	})
}
