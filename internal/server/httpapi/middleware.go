package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Erikmmkarlsson/graphmaster/internal/logging"
	"github.com/Erikmmkarlsson/graphmaster/internal/server/models"
)

const (
	requestIDHeader = "X-Request-Id"
	requestIDKey    = "requestID"
	currentUserKey  = "currentUser"
	bearerPrefix    = "Bearer "
)

// RequestID assigns each request a correlation id, honoring one supplied by
// the client, and echoes it in the response headers.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// RequestIDFromContext returns the correlation id bound by RequestID, or ""
// outside of it.
func RequestIDFromContext(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// Recovery converts panics into a 500 envelope carrying the correlation id,
// so a client report can be matched against the server log.
func Recovery(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(c.Request.Context(), "handler panic",
					"request_id", RequestIDFromContext(c),
					"path", c.Request.URL.Path,
					"panic", fmt.Sprint(r),
				)
				abortWithError(c, http.StatusInternalServerError, CodeInternalServerError,
					fmt.Sprintf("internal error, request id %s", RequestIDFromContext(c)))
			}
		}()
		c.Next()
	}
}

// RequireAuth validates the bearer access token and binds the resolved user
// into the gin context. The user record is re-read per request, so disabling
// an account locks it out immediately.
func (h *Handler) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			abortWithError(c, http.StatusUnauthorized, CodeUnauthorized, "missing bearer token")
			return
		}

		user, err := h.users.Authenticate(c.Request.Context(), token)
		if err != nil {
			abortServiceError(c, err)
			return
		}

		c.Set(currentUserKey, user)
		c.Next()
	}
}

// RequireRole gates a route on a role claim of the authenticated user. It must
// run after RequireAuth.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil || !user.HasRole(role) {
			abortWithError(c, http.StatusForbidden, CodeForbidden)
			return
		}
		c.Next()
	}
}

// CurrentUser returns the user bound by RequireAuth, or nil on unauthenticated
// routes.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	return token, token != ""
}
