package handler

import (
	"net/http"
	"strconv"

	"kaimaku/internal/leaderboard"
	"kaimaku/internal/microservices/http-api/dto"
	"kaimaku/internal/microservices/http-api/middleware"
	"kaimaku/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
)

type RatingHandler struct {
	ratingService service.RatingService
}

func NewRatingHandler(ratingService service.RatingService) *RatingHandler {
	return &RatingHandler{
		ratingService: ratingService,
	}
}

// RegisterRoutes registers rating-related routes
func (h *RatingHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/ratings", h.List)
	api.GET("/leaderboard", h.Leaderboard)

	// Write and per-user routes need a live session
	api.POST("/ratings", middleware.RequireSession(), h.Save)
	api.GET("/my-ratings", middleware.RequireSession(), h.MyRatings)
}

// List returns the aggregate of every rated theme
// GET /api/ratings
func (h *RatingHandler) List(c *gin.Context) {
	ratings, err := h.ratingService.GetRatings(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to read ratings")
		return
	}
	c.JSON(http.StatusOK, ratings)
}

// Save creates or updates the caller's rating for a theme
// POST /api/ratings
func (h *RatingHandler) Save(c *gin.Context) {
	var req dto.SaveRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	themeRating, err := h.ratingService.SaveRating(c.Request.Context(), middleware.Principal(c), req)
	if err != nil {
		respondError(c, err, "Failed to save rating")
		return
	}

	c.JSON(http.StatusOK, dto.SaveRatingResponse{Success: true, ThemeRating: themeRating})
}

// MyRatings returns the caller's rating history
// GET /api/my-ratings
func (h *RatingHandler) MyRatings(c *gin.Context) {
	p := middleware.Principal(c)
	ratings, err := h.ratingService.GetUserRatings(c.Request.Context(), p.UserID)
	if err != nil {
		respondError(c, err, "Failed to read ratings")
		return
	}
	c.JSON(http.StatusOK, dto.UserRatingsResponse{Ratings: ratings})
}

// Leaderboard returns the best-rated openings
// GET /api/leaderboard?limit=10
func (h *RatingHandler) Leaderboard(c *gin.Context) {
	limit := leaderboard.DefaultSize
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
			return
		}
		limit = n
	}

	entries, err := h.ratingService.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err, "Failed to build leaderboard")
		return
	}
	c.JSON(http.StatusOK, dto.LeaderboardResponse{Entries: entries})
}
