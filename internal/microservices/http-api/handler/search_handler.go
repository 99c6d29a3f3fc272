package handler

import (
	"net/http"

	"kaimaku/internal/microservices/http-api/dto"
	"kaimaku/internal/microservices/http-api/middleware"
	"kaimaku/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

type SearchHandler struct {
	searchService service.SearchService
}

func NewSearchHandler(searchService service.SearchService) *SearchHandler {
	return &SearchHandler{searchService: searchService}
}

const searchRequestKey = "searchRequest"

// RegisterRoutes registers catalog routes. searchGate runs on search only,
// after the request is validated, so a rejected query does not use up the
// window. Featured and play are not gated.
func (h *SearchHandler) RegisterRoutes(api *gin.RouterGroup, searchGate gin.HandlerFunc) {
	api.GET("/search", bindSearch, searchGate, h.Search)
	api.GET("/featured", h.Featured)
	api.GET("/anime/:slug/play", h.Play)
}

func bindSearch(c *gin.Context) {
	var req dto.SearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid search parameters", "code": "validation_error"})
		return
	}
	if _, err := service.ValidateSearch(req); err != nil {
		respondError(c, err, "Invalid search parameters")
		c.Abort()
		return
	}
	c.Set(searchRequestKey, req)
	c.Next()
}

// Search runs a catalog search
// GET /api/search?q=...&sort=...&page=...
func (h *SearchHandler) Search(c *gin.Context) {
	v, _ := c.Get(searchRequestKey)
	req, ok := v.(dto.SearchRequest)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid search parameters", "code": "validation_error"})
		return
	}

	resp, err := h.searchService.Search(c.Request.Context(), req, middleware.Principal(c))
	if err != nil {
		respondError(c, err, "Search failed")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Featured lists this season's openings
// GET /api/featured
func (h *SearchHandler) Featured(c *gin.Context) {
	resp, err := h.searchService.Featured(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to load featured openings")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Play resolves an opening to its video
// GET /api/anime/:slug/play?sequence=2
func (h *SearchHandler) Play(c *gin.Context) {
	var req dto.PlayRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid play parameters", "code": "validation_error"})
		return
	}

	playable, err := h.searchService.Play(c.Request.Context(), c.Param("slug"), req)
	if err != nil {
		respondError(c, err, "Failed to resolve video")
		return
	}
	c.JSON(http.StatusOK, playable)
}
