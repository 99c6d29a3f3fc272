package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"kaimaku/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

const (
	principalKey    = "principal"
	sessionErrorKey = "sessionError"
	sessionTokenKey = "sessionToken"
)

// SessionMiddleware resolves the session cookie when one is sent. It never
// rejects a request; RequireSession decides what an unresolved session
// means for a route.
func SessionMiddleware(sessions service.SessionService, cookieName string, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cookieName)
		if err != nil || token == "" {
			c.Next()
			return
		}
		c.Set(sessionTokenKey, token)

		principal, err := sessions.Resolve(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, service.ErrNotAuthenticated) && !errors.Is(err, service.ErrSessionExpired) {
				logger.Warn("session_resolve_failed", slog.Any("error", err))
			}
			c.Set(sessionErrorKey, err)
			c.Next()
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// RequireSession rejects requests without a live session. An expired
// session is reported separately from a missing one.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if Principal(c) != nil {
			c.Next()
			return
		}

		err := SessionError(c)
		switch {
		case errors.Is(err, service.ErrSessionExpired):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session expired", "code": "session_expired"})
		case errors.Is(err, service.ErrStoreUnavailable):
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Service temporarily unavailable, try again", "code": "store_unavailable"})
		default:
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required", "code": "auth_required"})
		}
	}
}

// Principal returns the caller resolved by SessionMiddleware, or nil.
func Principal(c *gin.Context) *service.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*service.Principal)
	return p
}

// SessionError returns why the session cookie did not resolve, or nil.
func SessionError(c *gin.Context) error {
	v, ok := c.Get(sessionErrorKey)
	if !ok {
		return nil
	}
	err, _ := v.(error)
	return err
}

// SessionToken returns the raw session cookie seen on the request.
func SessionToken(c *gin.Context) string {
	return c.GetString(sessionTokenKey)
}
