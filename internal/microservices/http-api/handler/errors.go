package handler

import (
	"context"
	"errors"
	"net/http"

	"kaimaku/internal/catalog"
	"kaimaku/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

// respondError maps a service error to its HTTP status and body. Unknown
// errors become a 500 carrying fallback, never the raw error text.
func respondError(c *gin.Context, err error, fallback string) {
	_ = c.Error(err)

	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message, "code": "validation_error"})
	case errors.Is(err, service.ErrMissingFields):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields", "code": "validation_error"})
	case errors.Is(err, service.ErrNameInUse):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username already exists", "code": "username_taken"})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password", "code": "invalid_credentials"})
	case errors.Is(err, service.ErrSessionExpired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Session expired", "code": "session_expired"})
	case errors.Is(err, service.ErrNotAuthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required", "code": "auth_required"})
	case errors.Is(err, service.ErrRatingCooldown):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rating submitted too quickly, try again shortly", "code": "cooldown"})
	case errors.Is(err, service.ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service temporarily unavailable, try again", "code": "store_unavailable"})
	case errors.Is(err, catalog.ErrNoResults):
		c.JSON(http.StatusNotFound, gin.H{"error": "No results found", "code": "no_results"})
	case errors.Is(err, catalog.ErrAnimeNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Anime not found", "code": "not_found"})
	case errors.Is(err, catalog.ErrThemeNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Opening not found", "code": "not_found"})
	case errors.Is(err, catalog.ErrNoVideo):
		c.JSON(http.StatusNotFound, gin.H{"error": "No video available", "code": "no_video"})
	case errors.Is(err, catalog.ErrUpstreamUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Anime catalog is unavailable, try again shortly", "code": "upstream_unavailable"})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Request timed out, try again", "code": "timeout"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
