package service

import (
	"context"
	"testing"
	"time"

	"kaimaku/internal/cooldown"
	"kaimaku/internal/microservices/http-api/dto"
	"kaimaku/internal/microservices/http-api/models"
	"kaimaku/internal/microservices/http-api/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRatingRepository mocks the RatingRepository interface
type MockRatingRepository struct {
	mock.Mock
}

func (m *MockRatingRepository) Upsert(ctx context.Context, rating *models.Rating) (models.RatingAggregate, error) {
	args := m.Called(ctx, rating)
	return args.Get(0).(models.RatingAggregate), args.Error(1)
}

func (m *MockRatingRepository) Aggregate(ctx context.Context, themeID string) (models.RatingAggregate, error) {
	args := m.Called(ctx, themeID)
	return args.Get(0).(models.RatingAggregate), args.Error(1)
}

func (m *MockRatingRepository) Aggregates(ctx context.Context) ([]models.RatingAggregate, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RatingAggregate), args.Error(1)
}

func (m *MockRatingRepository) LatestMetadata(ctx context.Context, themeIDs []string) (map[string]models.Rating, error) {
	args := m.Called(ctx, themeIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]models.Rating), args.Error(1)
}

func (m *MockRatingRepository) ByUser(ctx context.Context, userID string) ([]models.Rating, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Rating), args.Error(1)
}

var rei = &Principal{SID: "s1", UserID: "u1", Username: "rei"}

func floatPtr(v float64) *float64 { return &v }
func strPtr(s string) *string     { return &s }

func TestSaveRating_Success(t *testing.T) {
	repo := new(MockRatingRepository)
	s := NewRatingService(repo, nil, nil)
	ctx := context.Background()

	repo.On("Upsert", ctx, mock.MatchedBy(func(r *models.Rating) bool {
		return r.ThemeID == "Akira_OP_1_OP1" &&
			r.UserID == "u1" &&
			r.Rating == 8.5 &&
			r.AnimeName != nil && *r.AnimeName == "Akira" &&
			r.AnimeSlug == nil &&
			r.ThemeSequence != nil && *r.ThemeSequence == 1
	})).Return(models.RatingAggregate{ThemeID: "Akira_OP_1_OP1", Count: 3, Average: 7.2}, nil)

	got, err := s.SaveRating(ctx, rei, dto.SaveRatingRequest{
		ThemeID:  "Akira_OP_1_OP1",
		Rating:   floatPtr(8.5),
		Metadata: &dto.RatingMetadata{AnimeName: "Akira", ThemeSequence: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, "rei", got.UserID)
	assert.Equal(t, 8.5, got.Rating)
	assert.Equal(t, int64(3), got.Aggregated.Count)
	assert.InDelta(t, 7.2, got.Aggregated.Average, 1e-9)

	repo.AssertExpectations(t)
}

func TestSaveRating_RequiresPrincipal(t *testing.T) {
	s := NewRatingService(new(MockRatingRepository), nil, nil)

	_, err := s.SaveRating(context.Background(), nil, dto.SaveRatingRequest{ThemeID: "x", Rating: floatPtr(1)})
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestSaveRating_MissingFields(t *testing.T) {
	s := NewRatingService(new(MockRatingRepository), nil, nil)
	ctx := context.Background()

	_, err := s.SaveRating(ctx, rei, dto.SaveRatingRequest{Rating: floatPtr(5)})
	assert.ErrorIs(t, err, ErrMissingFields)

	_, err = s.SaveRating(ctx, rei, dto.SaveRatingRequest{ThemeID: "x"})
	assert.ErrorIs(t, err, ErrMissingFields)
}

func TestSaveRating_Range(t *testing.T) {
	ctx := context.Background()

	for _, v := range []float64{-0.1, 10.1} {
		s := NewRatingService(new(MockRatingRepository), nil, nil)
		_, err := s.SaveRating(ctx, rei, dto.SaveRatingRequest{ThemeID: "x", Rating: floatPtr(v)})
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr, "value %v", v)
	}

	for _, v := range []float64{0, 10} {
		repo := new(MockRatingRepository)
		repo.On("Upsert", ctx, mock.Anything).Return(models.RatingAggregate{Count: 1, Average: v}, nil)
		s := NewRatingService(repo, nil, nil)
		_, err := s.SaveRating(ctx, rei, dto.SaveRatingRequest{ThemeID: "x", Rating: floatPtr(v)})
		assert.NoError(t, err, "value %v", v)
	}
}

func TestSaveRating_Cooldown(t *testing.T) {
	repo := new(MockRatingRepository)
	s := NewRatingService(repo, cooldown.New(500*time.Millisecond), nil).(*ratingService)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	repo.On("Upsert", ctx, mock.Anything).Return(models.RatingAggregate{Count: 1, Average: 5}, nil)

	req := dto.SaveRatingRequest{ThemeID: "x", Rating: floatPtr(5)}
	_, err := s.SaveRating(ctx, rei, req)
	require.NoError(t, err)

	_, err = s.SaveRating(ctx, rei, req)
	assert.ErrorIs(t, err, ErrRatingCooldown)

	// other themes are not gated
	_, err = s.SaveRating(ctx, rei, dto.SaveRatingRequest{ThemeID: "y", Rating: floatPtr(5)})
	assert.NoError(t, err)

	now = now.Add(600 * time.Millisecond)
	_, err = s.SaveRating(ctx, rei, req)
	assert.NoError(t, err)
}

func TestSaveRating_UserVanished(t *testing.T) {
	repo := new(MockRatingRepository)
	s := NewRatingService(repo, nil, nil)
	ctx := context.Background()

	repo.On("Upsert", ctx, mock.Anything).Return(models.RatingAggregate{}, repository.ErrReferenceMissing)

	_, err := s.SaveRating(ctx, rei, dto.SaveRatingRequest{ThemeID: "x", Rating: floatPtr(5)})
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestSaveRating_StoreUnavailable(t *testing.T) {
	repo := new(MockRatingRepository)
	s := NewRatingService(repo, nil, nil)
	ctx := context.Background()

	repo.On("Upsert", ctx, mock.Anything).Return(models.RatingAggregate{}, repository.ErrStoreUnavailable)

	_, err := s.SaveRating(ctx, rei, dto.SaveRatingRequest{ThemeID: "x", Rating: floatPtr(5)})
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestGetRatings(t *testing.T) {
	repo := new(MockRatingRepository)
	s := NewRatingService(repo, nil, nil)
	ctx := context.Background()

	repo.On("Aggregates", ctx).Return([]models.RatingAggregate{
		{ThemeID: "a", Count: 2, Average: 6.5, MinRating: 4, MaxRating: 9},
	}, nil)

	got, err := s.GetRatings(ctx)
	require.NoError(t, err)
	assert.Equal(t, dto.ThemeAggregate{Count: 2, Average: 6.5, Min: 4, Max: 9}, got["a"])
}

func TestGetUserRatings(t *testing.T) {
	repo := new(MockRatingRepository)
	s := NewRatingService(repo, nil, nil)
	ctx := context.Background()
	ts := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)

	repo.On("ByUser", ctx, "u1").Return([]models.Rating{
		{ThemeID: "a", Rating: 7, Timestamp: ts, AnimeName: strPtr("Akira")},
	}, nil)

	got, err := s.GetUserRatings(ctx, "u1")
	require.NoError(t, err)
	require.Contains(t, got, "a")
	assert.Equal(t, 7.0, got["a"].Rating)
	assert.Equal(t, ts, got["a"].Timestamp)
	assert.Equal(t, "Akira", *got["a"].AnimeName)
}

func TestLeaderboard_UsesLatestMetadata(t *testing.T) {
	repo := new(MockRatingRepository)
	s := NewRatingService(repo, nil, nil)
	ctx := context.Background()
	seq := 2

	repo.On("Aggregates", ctx).Return([]models.RatingAggregate{
		{ThemeID: "Akira_OP_2_OP2", Count: 2, Average: 9},
		{ThemeID: "Monster_OP_1_OP1", Count: 1, Average: 7},
		{ThemeID: "Zero_OP_1_OP1", Count: 1, Average: 0},
	}, nil)
	repo.On("LatestMetadata", ctx, []string{"Akira_OP_2_OP2", "Monster_OP_1_OP1"}).Return(map[string]models.Rating{
		"Akira_OP_2_OP2": {AnimeName: strPtr("AKIRA"), AnimeSlug: strPtr("akira"), ThemeSequence: &seq},
	}, nil)

	entries, err := s.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "AKIRA", entries[0].AnimeName)
	assert.Equal(t, "akira", entries[0].AnimeSlug)
	assert.Equal(t, "OP2", entries[0].ThemeLabel)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, "Monster", entries[1].AnimeName)
}

func TestLeaderboard_ReadsMetadataForRankedThemesOnly(t *testing.T) {
	repo := new(MockRatingRepository)
	s := NewRatingService(repo, nil, nil)
	ctx := context.Background()

	repo.On("Aggregates", ctx).Return([]models.RatingAggregate{
		{ThemeID: "A_OP_1_OP1", Count: 1, Average: 9},
		{ThemeID: "B_OP_1_OP1", Count: 1, Average: 8},
		{ThemeID: "C_OP_1_OP1", Count: 1, Average: 7},
	}, nil)
	repo.On("LatestMetadata", ctx, []string{"A_OP_1_OP1", "B_OP_1_OP1"}).Return(map[string]models.Rating{}, nil)

	entries, err := s.Leaderboard(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "A", entries[0].AnimeName)
	repo.AssertExpectations(t)
}

func TestLeaderboard_NothingRatedSkipsMetadata(t *testing.T) {
	repo := new(MockRatingRepository)
	s := NewRatingService(repo, nil, nil)
	ctx := context.Background()

	repo.On("Aggregates", ctx).Return([]models.RatingAggregate{}, nil)

	entries, err := s.Leaderboard(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
	repo.AssertNotCalled(t, "LatestMetadata", mock.Anything, mock.Anything)
}
