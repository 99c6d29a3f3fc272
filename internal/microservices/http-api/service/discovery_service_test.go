package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"kaimaku/internal/catalog"
	"kaimaku/internal/microservices/http-api/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type stubDiscoverer struct {
	random    catalog.Playable
	trending  []catalog.Anime
	daily     catalog.Playable
	err       error
	lastQuery string
	lastNow   time.Time
}

func (d *stubDiscoverer) Random(ctx context.Context) (catalog.Playable, error) {
	return d.random, d.err
}

func (d *stubDiscoverer) Trending(ctx context.Context) ([]catalog.Anime, error) {
	return d.trending, d.err
}

func (d *stubDiscoverer) Daily(ctx context.Context, query string, now time.Time) (catalog.Playable, error) {
	d.lastQuery, d.lastNow = query, now
	return d.daily, d.err
}

func TestDiscoveryTrending_RanksByRatingCount(t *testing.T) {
	ratings := new(MockRatingService)
	ctx := context.Background()
	ratings.On("GetRatings", ctx).Return(map[string]dto.ThemeAggregate{
		"Akira_OP_1_OP1":        {Count: 2, Average: 9},
		"Akira Remake_OP_1_OP1": {Count: 9, Average: 5},
	}, nil)

	s := NewDiscoveryService(&stubDiscoverer{trending: searchFixture()}, ratings, catalog.DefaultMediaBase, nil)

	resp, err := s.Trending(ctx, nil)
	require.NoError(t, err)

	assert.Equal(t, "popularity", resp.Sort)
	assert.Equal(t, catalog.SeedQueries[:catalog.TrendingSeeds], resp.Queries)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "Akira Remake", resp.Results[0].Name)
	assert.Equal(t, int64(9), resp.Results[0].Openings[0].Count)
	assert.Equal(t, "Akira", resp.Results[1].Name)
	ratings.AssertNotCalled(t, "GetUserRatings", mock.Anything, mock.Anything)
}

func TestDiscoveryTrending_AttachesCallerRatings(t *testing.T) {
	ratings := new(MockRatingService)
	ratings.On("GetRatings", mock.Anything).Return(map[string]dto.ThemeAggregate{}, nil)
	ratings.On("GetUserRatings", mock.Anything, "u1").Return(map[string]dto.UserRating{
		"Akira_OP_2_OP2": {Rating: 7},
	}, nil)

	s := NewDiscoveryService(&stubDiscoverer{trending: searchFixture()}, ratings, catalog.DefaultMediaBase, nil)

	resp, err := s.Trending(context.Background(), rei)
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	require.NotNil(t, resp.Results[0].Openings[1].MyRating)
	assert.Equal(t, 7.0, *resp.Results[0].Openings[1].MyRating)
}

func TestDiscoveryDaily_DefaultsQueryAndStampsDay(t *testing.T) {
	disc := &stubDiscoverer{daily: catalog.Playable{ThemeID: "Shingeki_OP_1_OP1"}}
	s := NewDiscoveryService(disc, nil, catalog.DefaultMediaBase, nil).(*discoveryService)
	s.now = func() time.Time { return time.Date(2026, time.February, 1, 9, 0, 0, 0, time.UTC) }

	resp, err := s.Daily(context.Background(), dto.DailyRequest{Query: "  "})
	require.NoError(t, err)

	assert.Equal(t, catalog.DailySeedQuery, disc.lastQuery)
	assert.Equal(t, catalog.DailySeedQuery, resp.Query)
	assert.Equal(t, "2026-02-01", resp.Date)
	assert.Equal(t, 32, resp.Day)
	assert.Equal(t, "Shingeki_OP_1_OP1", resp.Opening.ThemeID)
}

func TestDiscoveryDaily_UsesQuery(t *testing.T) {
	disc := &stubDiscoverer{}
	s := NewDiscoveryService(disc, nil, catalog.DefaultMediaBase, nil)

	resp, err := s.Daily(context.Background(), dto.DailyRequest{Query: "bebop"})
	require.NoError(t, err)
	assert.Equal(t, "bebop", disc.lastQuery)
	assert.Equal(t, "bebop", resp.Query)
}

func TestDiscovery_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no results", catalog.ErrNoResults, catalog.ErrNoResults},
		{"no video", catalog.ErrNoVideo, catalog.ErrNoVideo},
		{"canceled", context.Canceled, context.Canceled},
		{"transport", errors.New("dial tcp: refused"), catalog.ErrUpstreamUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewDiscoveryService(&stubDiscoverer{err: tt.err}, nil, catalog.DefaultMediaBase, nil)
			ctx := context.Background()

			_, err := s.Random(ctx)
			assert.ErrorIs(t, err, tt.want)
			_, err = s.Trending(ctx, nil)
			assert.ErrorIs(t, err, tt.want)
			_, err = s.Daily(ctx, dto.DailyRequest{})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
