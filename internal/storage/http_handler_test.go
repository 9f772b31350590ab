package storage

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestHTTPHandler_Download(t *testing.T) {
	gin.SetMode(gin.TestMode)

	driver := &MockDriver{SavedKey: "portfolios/stu-1.json", SavedBody: []byte(`{"ok":true}`), SavedType: "application/json"}
	router := gin.New()
	NewHTTPHandler(driver).RegisterRoutes(router.Group("/files"))

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
	}{
		{"existing object", "/files/portfolios/stu-1.json", http.StatusOK, `{"ok":true}`},
		{"missing object", "/files/portfolios/stu-2.json", http.StatusNotFound, `not_found`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}

	t.Run("content type", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/files/portfolios/stu-1.json", nil))
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	})
}
