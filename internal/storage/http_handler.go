package storage

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// HTTPHandler streams stored objects back for drivers without a public endpoint.
type HTTPHandler struct {
	Driver Driver
}

func NewHTTPHandler(driver Driver) *HTTPHandler {
	return &HTTPHandler{Driver: driver}
}

// Download serves GET <prefix>/*key
func (h *HTTPHandler) Download(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "key is required"})
		return
	}

	reader, contentType, err := h.Driver.Get(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "file not found"})
			return
		}
		slog.ErrorContext(c.Request.Context(), "failed to read object", "key", key, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to read file"})
		return
	}
	defer reader.Close()

	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, reader); err != nil {
		slog.WarnContext(c.Request.Context(), "failed to stream object", "key", key, "error", err)
	}
}

// RegisterRoutes mounts the download route on the group.
func (h *HTTPHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/*key", h.Download)
}
