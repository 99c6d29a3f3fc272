package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"kaimaku/internal/captcha"
	"kaimaku/internal/catalog"
	"kaimaku/internal/leaderboard"
	"kaimaku/internal/microservices/http-api/dto"
	"kaimaku/internal/microservices/http-api/middleware"
	"kaimaku/internal/microservices/http-api/models"
	"kaimaku/internal/microservices/http-api/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
)

// MockAuthService mocks the AuthService interface
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, req dto.RegisterRequest) (*models.User, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, username, password string) (*models.User, error) {
	args := m.Called(ctx, username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAuthService) NewCaptcha() captcha.Challenge {
	return m.Called().Get(0).(captcha.Challenge)
}

// MockSessionService mocks the SessionService interface
type MockSessionService struct {
	mock.Mock
}

func (m *MockSessionService) Start(ctx context.Context, user *models.User) (string, time.Time, error) {
	args := m.Called(ctx, user)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func (m *MockSessionService) Resolve(ctx context.Context, token string) (*service.Principal, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Principal), args.Error(1)
}

func (m *MockSessionService) End(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *MockSessionService) Purge(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSessionService) TTL() time.Duration {
	return 24 * time.Hour
}

// MockRatingService mocks the RatingService interface
type MockRatingService struct {
	mock.Mock
}

func (m *MockRatingService) SaveRating(ctx context.Context, p *service.Principal, req dto.SaveRatingRequest) (*dto.ThemeRating, error) {
	args := m.Called(ctx, p, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ThemeRating), args.Error(1)
}

func (m *MockRatingService) GetRatings(ctx context.Context) (map[string]dto.ThemeAggregate, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]dto.ThemeAggregate), args.Error(1)
}

func (m *MockRatingService) GetUserRatings(ctx context.Context, userID string) (map[string]dto.UserRating, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]dto.UserRating), args.Error(1)
}

func (m *MockRatingService) Leaderboard(ctx context.Context, n int) ([]leaderboard.Entry, error) {
	args := m.Called(ctx, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]leaderboard.Entry), args.Error(1)
}

// MockSearchService mocks the SearchService interface
type MockSearchService struct {
	mock.Mock
}

func (m *MockSearchService) Search(ctx context.Context, req dto.SearchRequest, p *service.Principal) (*dto.SearchResponse, error) {
	args := m.Called(ctx, req, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.SearchResponse), args.Error(1)
}

func (m *MockSearchService) Featured(ctx context.Context) (*dto.FeaturedResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.FeaturedResponse), args.Error(1)
}

func (m *MockSearchService) Play(ctx context.Context, slug string, req dto.PlayRequest) (catalog.Playable, error) {
	args := m.Called(ctx, slug, req)
	return args.Get(0).(catalog.Playable), args.Error(1)
}

// MockDiscoveryService mocks the DiscoveryService interface
type MockDiscoveryService struct {
	mock.Mock
}

func (m *MockDiscoveryService) Random(ctx context.Context) (catalog.Playable, error) {
	args := m.Called(ctx)
	return args.Get(0).(catalog.Playable), args.Error(1)
}

func (m *MockDiscoveryService) Trending(ctx context.Context, p *service.Principal) (*dto.TrendingResponse, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.TrendingResponse), args.Error(1)
}

func (m *MockDiscoveryService) Daily(ctx context.Context, req dto.DailyRequest) (*dto.DailyResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.DailyResponse), args.Error(1)
}

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

const cookieName = "kaimaku_session"

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// sessionRouter runs the real session middleware over a mocked store.
func sessionRouter(sessions service.SessionService) *gin.Engine {
	r := setupRouter()
	r.Use(middleware.SessionMiddleware(sessions, cookieName, quietLogger))
	return r
}

func withCookie(req *http.Request, token string) *http.Request {
	req.AddCookie(&http.Cookie{Name: cookieName, Value: token})
	return req
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	json.Unmarshal(w.Body.Bytes(), &body)
	return body
}
