package handler

import (
	"net/http"

	"kaimaku/internal/microservices/http-api/dto"
	"kaimaku/internal/microservices/http-api/middleware"
	"kaimaku/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

type DiscoveryHandler struct {
	discoveryService service.DiscoveryService
}

func NewDiscoveryHandler(discoveryService service.DiscoveryService) *DiscoveryHandler {
	return &DiscoveryHandler{discoveryService: discoveryService}
}

// RegisterRoutes registers the discovery routes. Each one runs catalog
// searches, so all of them sit behind the search gate.
func (h *DiscoveryHandler) RegisterRoutes(api *gin.RouterGroup, searchGate gin.HandlerFunc) {
	discover := api.Group("/discover", searchGate)
	{
		discover.GET("/random", h.Random)
		discover.GET("/trending", h.Trending)
		discover.GET("/daily", h.Daily)
	}
}

// Random picks a playable opening from a popular series
// GET /api/discover/random
func (h *DiscoveryHandler) Random(c *gin.Context) {
	playable, err := h.discoveryService.Random(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to load a random opening")
		return
	}
	c.JSON(http.StatusOK, playable)
}

// Trending lists popular series ranked by rating count
// GET /api/discover/trending
func (h *DiscoveryHandler) Trending(c *gin.Context) {
	resp, err := h.discoveryService.Trending(c.Request.Context(), middleware.Principal(c))
	if err != nil {
		respondError(c, err, "Failed to load trending openings")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Daily returns the opening of the day
// GET /api/discover/daily?q=...
func (h *DiscoveryHandler) Daily(c *gin.Context) {
	var req dto.DailyRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid daily parameters", "code": "validation_error"})
		return
	}

	resp, err := h.discoveryService.Daily(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Failed to load the daily opening")
		return
	}
	c.JSON(http.StatusOK, resp)
}
