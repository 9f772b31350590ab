// Package httpx holds the gin helpers shared by the HTTP routers.
package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/apperr"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   apperr.Kind `json:"error"`
	Message string      `json:"message"`
}

// StatusFor maps an error kind to its HTTP status code.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindAuthorization:
		return http.StatusForbidden
	case apperr.KindConflict, apperr.KindState:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err as an ErrorResponse. Unclassified errors are logged and
// their details hidden from the client.
func Error(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := StatusFor(kind)

	message := apperr.ReasonOf(err)
	if status == http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err)
		message = "internal server error"
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: kind, Message: message})
}

// BadRequest writes a validation error with the given message.
func BadRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: apperr.KindValidation, Message: message})
}

// UUIDParam parses a path parameter as a UUID, writing a 400 on failure.
func UUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		BadRequest(c, "invalid "+name+": must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// Pagination reads the optional offset and limit query parameters.
func Pagination(c *gin.Context) (offset, limit *int, err error) {
	if raw := c.Query("offset"); raw != "" {
		v, convErr := strconv.Atoi(raw)
		if convErr != nil {
			return nil, nil, errors.New("invalid 'offset' query parameter, must be an integer")
		}
		offset = &v
	}
	if raw := c.Query("limit"); raw != "" {
		v, convErr := strconv.Atoi(raw)
		if convErr != nil {
			return nil, nil, errors.New("invalid 'limit' query parameter, must be an integer")
		}
		limit = &v
	}
	return offset, limit, nil
}
