package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"kaimaku/internal/leaderboard"
	"kaimaku/internal/microservices/http-api/dto"
	"kaimaku/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

var rei = &service.Principal{SID: "s1", UserID: "u1", Username: "rei"}

func newRatingRouter(ratings *MockRatingService, sessions *MockSessionService) *gin.Engine {
	router := sessionRouter(sessions)
	NewRatingHandler(ratings).RegisterRoutes(router.Group("/api"))
	return router
}

func loggedIn() *MockSessionService {
	sessions := new(MockSessionService)
	sessions.On("Resolve", mock.Anything, "tok").Return(rei, nil)
	return sessions
}

func TestListRatings(t *testing.T) {
	ratings := new(MockRatingService)
	router := newRatingRouter(ratings, new(MockSessionService))
	ratings.On("GetRatings", mock.Anything).Return(map[string]dto.ThemeAggregate{
		"1-OP1": {Count: 2, Average: 8.5, Min: 8, Max: 9},
	}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/ratings", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	entry := decode(t, w)["1-OP1"].(map[string]any)
	assert.Equal(t, 8.5, entry["average"])
	assert.Equal(t, float64(2), entry["count"])
}

func TestListRatings_Failure(t *testing.T) {
	ratings := new(MockRatingService)
	router := newRatingRouter(ratings, new(MockSessionService))
	ratings.On("GetRatings", mock.Anything).Return(nil, assert.AnError)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/ratings", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to read ratings", decode(t, w)["error"])
}

func TestSaveRating_Success(t *testing.T) {
	ratings := new(MockRatingService)
	router := newRatingRouter(ratings, loggedIn())

	score := 8.5
	reqBody := dto.SaveRatingRequest{ThemeID: "1-OP1", Rating: &score}
	ratings.On("SaveRating", mock.Anything, rei, reqBody).Return(&dto.ThemeRating{
		ThemeID:    "1-OP1",
		UserID:     "rei",
		Rating:     8.5,
		Timestamp:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Aggregated: dto.AggregatedRating{Count: 1, Average: 8.5},
	}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, withCookie(postJSON("/api/ratings", reqBody), "tok"))

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	themeRating := body["themeRating"].(map[string]any)
	assert.Equal(t, "rei", themeRating["userId"])
	assert.Equal(t, 8.5, themeRating["aggregated"].(map[string]any)["average"])
	ratings.AssertExpectations(t)
}

func TestSaveRating_RequiresSession(t *testing.T) {
	ratings := new(MockRatingService)
	router := newRatingRouter(ratings, new(MockSessionService))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, postJSON("/api/ratings", map[string]any{"themeId": "1-OP1", "rating": 5}))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Authentication required", decode(t, w)["error"])
	ratings.AssertNotCalled(t, "SaveRating", mock.Anything, mock.Anything, mock.Anything)
}

func TestSaveRating_Errors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"missing", service.ErrMissingFields, http.StatusBadRequest, "Missing required fields"},
		{"range", &service.ValidationError{Field: "rating", Message: "Rating must be between 0 and 10"}, http.StatusBadRequest, "Rating must be between 0 and 10"},
		{"cooldown", service.ErrRatingCooldown, http.StatusTooManyRequests, "Rating submitted too quickly, try again shortly"},
		{"expired mid-request", service.ErrSessionExpired, http.StatusUnauthorized, "Session expired"},
		{"store down", service.ErrStoreUnavailable, http.StatusServiceUnavailable, "Service temporarily unavailable, try again"},
		{"unexpected", assert.AnError, http.StatusInternalServerError, "Failed to save rating"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ratings := new(MockRatingService)
			router := newRatingRouter(ratings, loggedIn())
			ratings.On("SaveRating", mock.Anything, rei, mock.Anything).Return(nil, tt.err)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, withCookie(postJSON("/api/ratings", map[string]any{"themeId": "1-OP1", "rating": 11}), "tok"))

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.message, decode(t, w)["error"])
		})
	}
}

func TestMyRatings(t *testing.T) {
	ratings := new(MockRatingService)
	router := newRatingRouter(ratings, loggedIn())
	ratings.On("GetUserRatings", mock.Anything, "u1").Return(map[string]dto.UserRating{
		"1-OP1": {Rating: 7},
	}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/my-ratings", nil)
	router.ServeHTTP(w, withCookie(req, "tok"))

	assert.Equal(t, http.StatusOK, w.Code)
	mine := decode(t, w)["ratings"].(map[string]any)
	assert.Equal(t, float64(7), mine["1-OP1"].(map[string]any)["rating"])
}

func TestLeaderboard(t *testing.T) {
	ratings := new(MockRatingService)
	router := newRatingRouter(ratings, new(MockSessionService))
	ratings.On("Leaderboard", mock.Anything, 5).Return([]leaderboard.Entry{
		{Rank: 1, ThemeID: "1-OP1", AnimeName: "Neon Genesis Evangelion", ThemeLabel: "OP1", Rating: 9.5, Count: 4},
	}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/leaderboard?limit=5", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	entries := decode(t, w)["entries"].([]any)
	assert.Len(t, entries, 1)
	assert.Equal(t, "Neon Genesis Evangelion", entries[0].(map[string]any)["animeName"])
}

func TestLeaderboard_DefaultAndBadLimit(t *testing.T) {
	ratings := new(MockRatingService)
	router := newRatingRouter(ratings, new(MockSessionService))
	ratings.On("Leaderboard", mock.Anything, leaderboard.DefaultSize).Return([]leaderboard.Entry{}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/leaderboard", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/api/leaderboard?limit=abc", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	ratings.AssertNumberOfCalls(t, "Leaderboard", 1)
}
