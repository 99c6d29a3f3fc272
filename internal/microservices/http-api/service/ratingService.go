package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"

	"kaimaku/internal/cooldown"
	"kaimaku/internal/leaderboard"
	"kaimaku/internal/metrics"
	"kaimaku/internal/microservices/http-api/dto"
	"kaimaku/internal/microservices/http-api/models"
	"kaimaku/internal/microservices/http-api/repository"
)

const (
	minRating = 0.0
	maxRating = 10.0
)

type RatingService interface {
	SaveRating(ctx context.Context, principal *Principal, req dto.SaveRatingRequest) (*dto.ThemeRating, error)
	GetRatings(ctx context.Context) (map[string]dto.ThemeAggregate, error)
	GetUserRatings(ctx context.Context, userID string) (map[string]dto.UserRating, error)
	Leaderboard(ctx context.Context, n int) ([]leaderboard.Entry, error)
}

type ratingService struct {
	ratingRepo repository.RatingRepository
	gate       *cooldown.Gate
	now        func() time.Time
	logger     *slog.Logger
}

// NewRatingService builds the rating service. A nil gate disables the
// per-theme resubmission cooldown.
func NewRatingService(ratingRepo repository.RatingRepository, gate *cooldown.Gate, logger *slog.Logger) RatingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ratingService{
		ratingRepo: ratingRepo,
		gate:       gate,
		now:        time.Now,
		logger:     logger,
	}
}

// SaveRating upserts the caller's rating for a theme and returns the fresh
// aggregate for that theme.
func (s *ratingService) SaveRating(ctx context.Context, principal *Principal, req dto.SaveRatingRequest) (*dto.ThemeRating, error) {
	if principal == nil {
		return nil, ErrNotAuthenticated
	}
	themeID := strings.TrimSpace(req.ThemeID)
	if themeID == "" || req.Rating == nil {
		return nil, ErrMissingFields
	}
	value := *req.Rating
	if math.IsNaN(value) || value < minRating || value > maxRating {
		return nil, invalid("rating", "Rating must be between 0 and 10")
	}

	now := s.now()
	if s.gate != nil {
		if ok, _ := s.gate.Allow(principal.UserID+"|"+themeID, now); !ok {
			metrics.CooldownRejectionsTotal.WithLabelValues("rating").Inc()
			return nil, ErrRatingCooldown
		}
	}

	rating := &models.Rating{
		ThemeID:   themeID,
		UserID:    principal.UserID,
		Rating:    value,
		Timestamp: now.UTC(),
	}
	if md := req.Metadata; md != nil {
		rating.AnimeName = nonEmpty(md.AnimeName)
		rating.AnimeSlug = nonEmpty(md.AnimeSlug)
		if md.ThemeSequence != 0 {
			seq := md.ThemeSequence
			rating.ThemeSequence = &seq
		}
	}

	agg, err := s.ratingRepo.Upsert(ctx, rating)
	if err != nil {
		// the user row vanished between the session check and the write
		if errors.Is(err, repository.ErrReferenceMissing) {
			return nil, ErrSessionExpired
		}
		s.logger.Error("rating_save_failed", slog.String("theme_id", themeID), slog.Any("error", err))
		return nil, err
	}

	metrics.RatingsSavedTotal.Inc()
	s.logger.Info("rating_saved",
		slog.String("theme_id", themeID),
		slog.String("username", principal.Username),
		slog.Float64("rating", value),
		slog.Int64("count", agg.Count),
	)

	return &dto.ThemeRating{
		ThemeID:   themeID,
		UserID:    principal.Username,
		Rating:    value,
		Timestamp: rating.Timestamp,
		Aggregated: dto.AggregatedRating{
			Count:   agg.Count,
			Average: agg.Average,
		},
	}, nil
}

// GetRatings returns the aggregate of every rated theme.
func (s *ratingService) GetRatings(ctx context.Context) (map[string]dto.ThemeAggregate, error) {
	rows, err := s.ratingRepo.Aggregates(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]dto.ThemeAggregate, len(rows))
	for _, row := range rows {
		out[row.ThemeID] = dto.FromAggregate(row)
	}
	return out, nil
}

// GetUserRatings returns the user's rating history keyed by theme.
func (s *ratingService) GetUserRatings(ctx context.Context, userID string) (map[string]dto.UserRating, error) {
	rows, err := s.ratingRepo.ByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]dto.UserRating, len(rows))
	for _, row := range rows {
		out[row.ThemeID] = dto.FromModelToUserRating(row)
	}
	return out, nil
}

// Leaderboard ranks themes by their public average, naming each from the
// most recent rating metadata. Metadata is only read for the ranked themes.
func (s *ratingService) Leaderboard(ctx context.Context, n int) ([]leaderboard.Entry, error) {
	rows, err := s.ratingRepo.Aggregates(ctx)
	if err != nil {
		return nil, err
	}

	in := leaderboard.Input{
		Public: make(map[string]leaderboard.Public, len(rows)),
	}
	for _, row := range rows {
		in.Public[row.ThemeID] = leaderboard.Public{Count: row.Count, Average: row.Average}
	}

	ranked := leaderboard.Build(in, n)
	if len(ranked) == 0 {
		return ranked, nil
	}
	ids := make([]string, 0, len(ranked))
	for _, e := range ranked {
		ids = append(ids, e.ThemeID)
	}

	latest, err := s.ratingRepo.LatestMetadata(ctx, ids)
	if err != nil {
		return nil, err
	}
	in.Metadata = make(map[string]leaderboard.Metadata, len(latest))
	for id, r := range latest {
		md := leaderboard.Metadata{}
		if r.AnimeName != nil {
			md.AnimeName = *r.AnimeName
		}
		if r.AnimeSlug != nil {
			md.AnimeSlug = *r.AnimeSlug
		}
		if r.ThemeSequence != nil {
			md.ThemeSequence = *r.ThemeSequence
		}
		in.Metadata[id] = md
	}
	return leaderboard.Build(in, n), nil
}

func nonEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
