package auth

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Middleware creates a gin middleware that extracts the acting principal from
// the bearer token and injects it into the request context.
//
// If the header is missing or the token is invalid, the request proceeds
// without a principal. Handlers (or RequireAuth) decide whether that is
// acceptable, which keeps public endpoints such as the portfolio read open.
func Middleware(parser *TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			slog.Debug("no authorization header provided")
			c.Next()
			return
		}

		principal, err := parser.ParseAuthorizationHeader(authHeader)
		if err != nil {
			slog.Warn("failed to extract principal from token",
				"error", err,
				"auth_header_length", len(authHeader),
			)
			c.Next()
			return
		}

		c.Request = c.Request.WithContext(WithPrincipal(c.Request.Context(), principal))

		slog.Debug("principal injected successfully",
			"principal_id", principal.ID,
			"role", principal.Role,
		)

		c.Next()
	}
}

// RequireAuth aborts with 401 Unauthorized when no principal was injected.
// It must run after Middleware.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetPrincipal(c.Request.Context()) == nil {
			slog.Warn("authentication required but not provided",
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "authentication required",
			})
			return
		}
		c.Next()
	}
}

// RequireRole aborts with 403 Forbidden unless the principal holds one of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := GetPrincipal(c.Request.Context())
		if !principal.HasRole(roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "authorization_error",
				"message": "role not permitted for this operation",
			})
			return
		}
		c.Next()
	}
}
