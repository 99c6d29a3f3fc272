package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const (
	defaultFeaturedLimit   = 20
	defaultFeaturedWorkers = 4
)

// FeaturedSource is the part of the catalog API featured listings need.
type FeaturedSource interface {
	AnimeYear(ctx context.Context, year int, season string) ([]Anime, error)
	AnimeBySeason(ctx context.Context, year int, season string, limit int) ([]Anime, error)
	AnimeBySlug(ctx context.Context, slug string) (Anime, error)
}

// FeaturedItem is one anime of the season with its first playable opening.
type FeaturedItem struct {
	Anime    Anime  `json:"anime"`
	Theme    Theme  `json:"theme"`
	ThemeID  string `json:"themeId"`
	VideoURL string `json:"videoUrl"`
	Image    string `json:"image,omitempty"`
}

// Season returns the airing season a date falls in: Winter Dec-Feb,
// Spring Mar-May, Summer Jun-Aug, Fall Sep-Nov.
func Season(t time.Time) string {
	switch t.Month() {
	case time.March, time.April, time.May:
		return "Spring"
	case time.June, time.July, time.August:
		return "Summer"
	case time.September, time.October, time.November:
		return "Fall"
	default:
		return "Winter"
	}
}

type Featured struct {
	source    FeaturedSource
	mediaBase string
	limit     int
	workers   int
	logger    *slog.Logger
}

func NewFeatured(source FeaturedSource, mediaBase string, logger *slog.Logger) *Featured {
	if logger == nil {
		logger = slog.Default()
	}
	return &Featured{
		source:    source,
		mediaBase: mediaBase,
		limit:     defaultFeaturedLimit,
		workers:   defaultFeaturedWorkers,
		logger:    logger,
	}
}

// Load lists up to 20 openings from the season containing now. The
// season-grouped year listing is tried first, the filtered listing second.
// Anime that came back without themes or images are fetched in full.
func (f *Featured) Load(ctx context.Context, now time.Time) ([]FeaturedItem, error) {
	year, season := now.Year(), Season(now)

	candidates, err := f.source.AnimeYear(ctx, year, season)
	if err != nil {
		f.logger.Warn("featured_year_listing_failed", "year", year, "season", season, "error", err)
		candidates, err = f.source.AnimeBySeason(ctx, year, season, 50)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
		}
	}

	// Enrichment is capped so a large season does not fan out into hundreds
	// of detail requests.
	if capped := f.limit * 2; len(candidates) > capped {
		candidates = candidates[:capped]
	}
	f.enrich(ctx, candidates)

	items := make([]FeaturedItem, 0, f.limit)
	for _, a := range candidates {
		if len(items) == f.limit {
			break
		}
		openings := a.Openings()
		if len(openings) == 0 {
			continue
		}
		theme := openings[0]
		videoURL, err := BestVideo(theme, f.mediaBase)
		if err != nil {
			continue
		}
		items = append(items, FeaturedItem{
			Anime:    a,
			Theme:    theme,
			ThemeID:  ThemeID(a.Name, theme),
			VideoURL: videoURL,
			Image:    coverImage(a),
		})
	}
	return items, nil
}

// enrich replaces incomplete entries in place with their full records.
func (f *Featured) enrich(ctx context.Context, candidates []Anime) {
	pool := NewWorkerPool(ctx, f.workers, f.logger)
	pool.Start()
	for i := range candidates {
		a := candidates[i]
		if a.HasIncludes() && len(a.Images) > 0 {
			continue
		}
		if a.Slug == "" {
			continue
		}
		pool.Submit(func(ctx context.Context) error {
			full, err := f.source.AnimeBySlug(ctx, a.Slug)
			if err != nil {
				if errors.Is(err, ErrAnimeNotFound) {
					return nil
				}
				return fmt.Errorf("enrich %s: %w", a.Slug, err)
			}
			candidates[i] = full
			return nil
		})
	}
	pool.Wait()
}

func coverImage(a Anime) string {
	for _, img := range a.Images {
		if img.Facet == "Large Cover" && img.Link != "" {
			return img.Link
		}
	}
	for _, img := range a.Images {
		if img.Link != "" {
			return img.Link
		}
	}
	return ""
}
