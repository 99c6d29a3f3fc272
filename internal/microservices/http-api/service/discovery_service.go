package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"kaimaku/internal/catalog"
	"kaimaku/internal/microservices/http-api/dto"
)

const maxTrendingResults = 50

// Discoverer builds the random, trending and daily listings.
type Discoverer interface {
	Random(ctx context.Context) (catalog.Playable, error)
	Trending(ctx context.Context) ([]catalog.Anime, error)
	Daily(ctx context.Context, query string, now time.Time) (catalog.Playable, error)
}

type DiscoveryService interface {
	Random(ctx context.Context) (catalog.Playable, error)
	Trending(ctx context.Context, principal *Principal) (*dto.TrendingResponse, error)
	Daily(ctx context.Context, req dto.DailyRequest) (*dto.DailyResponse, error)
}

type discoveryService struct {
	discoverer Discoverer
	ratings    RatingService
	mediaBase  string
	now        func() time.Time
	logger     *slog.Logger
}

func NewDiscoveryService(discoverer Discoverer, ratings RatingService, mediaBase string, logger *slog.Logger) DiscoveryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &discoveryService{
		discoverer: discoverer,
		ratings:    ratings,
		mediaBase:  mediaBase,
		now:        time.Now,
		logger:     logger,
	}
}

// Random returns one playable opening from a random seed search.
func (s *discoveryService) Random(ctx context.Context) (catalog.Playable, error) {
	p, err := s.discoverer.Random(ctx)
	if err != nil {
		return catalog.Playable{}, upstream(err)
	}
	s.logger.Info("discover_random", slog.String("theme_id", p.ThemeID))
	return p, nil
}

// Trending merges the seed searches and ranks them by how many ratings
// their openings collected.
func (s *discoveryService) Trending(ctx context.Context, principal *Principal) (*dto.TrendingResponse, error) {
	items, err := s.discoverer.Trending(ctx)
	if err != nil {
		return nil, upstream(err)
	}

	lookup := loadRatingLookup(ctx, s.ratings, principal, s.logger)
	results := catalog.Apply(catalog.Group(items), catalog.Filters{}, catalog.SortPopularity, lookup)
	if len(results) > maxTrendingResults {
		results = results[:maxTrendingResults]
	}

	resp := &dto.TrendingResponse{
		Queries: append([]string(nil), catalog.SeedQueries[:catalog.TrendingSeeds]...),
		Sort:    string(catalog.SortPopularity),
		Results: make([]dto.SearchResult, 0, len(results)),
	}
	for _, r := range results {
		resp.Results = append(resp.Results, resultView(r, lookup, s.mediaBase))
	}
	return resp, nil
}

// Daily returns the opening of the day for the query, or for the default
// seed when the query is blank.
func (s *discoveryService) Daily(ctx context.Context, req dto.DailyRequest) (*dto.DailyResponse, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		query = catalog.DailySeedQuery
	}
	now := s.now()
	p, err := s.discoverer.Daily(ctx, query, now)
	if err != nil {
		return nil, upstream(err)
	}
	return &dto.DailyResponse{
		Date:    now.Format(time.DateOnly),
		Day:     catalog.DayOfYear(now),
		Query:   query,
		Opening: p,
	}, nil
}

// upstream passes known catalog outcomes through and marks anything else as
// an upstream failure.
func upstream(err error) error {
	switch {
	case errors.Is(err, catalog.ErrNoResults),
		errors.Is(err, catalog.ErrNoVideo),
		errors.Is(err, catalog.ErrUpstreamUnavailable),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return fmt.Errorf("%w: %v", catalog.ErrUpstreamUnavailable, err)
}
