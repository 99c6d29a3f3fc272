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

const (
	defaultResultsPerPage = 20
	maxResultsPerPage     = 50
	// the catalog walk never yields more than a few hundred matches
	maxResultPage = 1000
)

// CatalogSearcher resolves a free-text query against the upstream catalog.
type CatalogSearcher interface {
	Search(ctx context.Context, query string) ([]catalog.Anime, error)
}

// FeaturedLoader lists the current season's openings.
type FeaturedLoader interface {
	Load(ctx context.Context, now time.Time) ([]catalog.FeaturedItem, error)
}

type SearchService interface {
	Search(ctx context.Context, req dto.SearchRequest, principal *Principal) (*dto.SearchResponse, error)
	Featured(ctx context.Context) (*dto.FeaturedResponse, error)
	Play(ctx context.Context, slug string, req dto.PlayRequest) (catalog.Playable, error)
}

type searchService struct {
	searcher  CatalogSearcher
	featured  FeaturedLoader
	lookup    catalog.AnimeLookup
	ratings   RatingService
	mediaBase string
	now       func() time.Time
	logger    *slog.Logger
}

func NewSearchService(
	searcher CatalogSearcher,
	featured FeaturedLoader,
	lookup catalog.AnimeLookup,
	ratings RatingService,
	mediaBase string,
	logger *slog.Logger,
) SearchService {
	if logger == nil {
		logger = slog.Default()
	}
	return &searchService{
		searcher:  searcher,
		featured:  featured,
		lookup:    lookup,
		ratings:   ratings,
		mediaBase: mediaBase,
		now:       time.Now,
		logger:    logger,
	}
}

// Search runs the query upstream, then groups, filters, sorts and pages the
// matches with the public and the caller's own ratings attached.
func (s *searchService) Search(ctx context.Context, req dto.SearchRequest, principal *Principal) (*dto.SearchResponse, error) {
	mode, err := ValidateSearch(req)
	if err != nil {
		return nil, err
	}
	query := strings.TrimSpace(req.Query)

	items, err := s.searcher.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	lookup := loadRatingLookup(ctx, s.ratings, principal, s.logger)
	filters := catalog.Filters{
		YearMin:   req.YearMin,
		YearMax:   req.YearMax,
		Seasons:   req.Seasons,
		RatingMin: req.RatingMin,
		RatingMax: req.RatingMax,
	}
	results := catalog.Apply(catalog.Group(items), filters, mode, lookup)

	size := req.PageSize
	if size <= 0 {
		size = defaultResultsPerPage
	}
	size = min(size, maxResultsPerPage)
	page := catalog.Paginate(results, req.Page, size)

	resp := &dto.SearchResponse{
		Query:      query,
		Sort:       string(mode),
		Page:       page.Page,
		PageSize:   page.PageSize,
		Total:      page.Total,
		TotalPages: page.TotalPages,
		Results:    make([]dto.SearchResult, 0, len(page.Items)),
	}
	for _, r := range page.Items {
		resp.Results = append(resp.Results, resultView(r, lookup, s.mediaBase))
	}
	return resp, nil
}

// loadRatingLookup loads rating data for display. Rating data is
// decoration: a store failure is logged and the listing still answers.
func loadRatingLookup(ctx context.Context, ratings RatingService, principal *Principal, logger *slog.Logger) catalog.RatingLookup {
	lookup := catalog.RatingLookup{
		Local:  map[string]float64{},
		Public: map[string]catalog.RatingSummary{},
	}
	if ratings == nil {
		return lookup
	}

	public, err := ratings.GetRatings(ctx)
	if err != nil {
		logger.Warn("search_ratings_unavailable", slog.Any("error", err))
	}
	for id, agg := range public {
		lookup.Public[id] = catalog.RatingSummary{Count: agg.Count, Average: agg.Average}
	}

	if principal != nil {
		mine, err := ratings.GetUserRatings(ctx, principal.UserID)
		if err != nil {
			logger.Warn("search_user_ratings_unavailable", slog.String("username", principal.Username), slog.Any("error", err))
		}
		for id, r := range mine {
			lookup.Local[id] = r.Rating
		}
	}
	return lookup
}

func resultView(r catalog.Result, lookup catalog.RatingLookup, mediaBase string) dto.SearchResult {
	out := dto.SearchResult{
		ID:           r.Anime.ID,
		Name:         r.Anime.Name,
		EnglishTitle: catalog.EnglishTitle(r.Anime),
		Slug:         r.Anime.Slug,
		Year:         r.Anime.Year,
		Season:       r.Anime.Season,
		MediaFormat:  r.Anime.MediaFormat,
		Openings:     make([]dto.OpeningView, 0, len(r.Openings)),
	}
	for _, t := range r.Openings {
		id := catalog.ThemeID(r.Anime.Name, t)
		ov := dto.OpeningView{
			ThemeID:  id,
			Sequence: t.Sequence,
			Slug:     t.Slug,
			Label:    themeLabel(t),
			Count:    lookup.Count(id),
		}
		if t.Song != nil {
			ov.SongTitle = t.Song.Title
			ov.Artists = t.Song.ArtistNames()
		}
		if url, err := catalog.BestVideo(t, mediaBase); err == nil {
			ov.VideoURL = url
		}
		if pub, ok := lookup.Public[id]; ok && pub.Count > 0 {
			avg := pub.Average
			ov.Average = &avg
		}
		if mine, ok := lookup.Local[id]; ok {
			v := mine
			ov.MyRating = &v
		}
		out.Openings = append(out.Openings, ov)
	}
	return out
}

// Featured lists the current season's openings.
func (s *searchService) Featured(ctx context.Context) (*dto.FeaturedResponse, error) {
	now := s.now()
	items, err := s.featured.Load(ctx, now)
	if err != nil {
		return nil, err
	}
	return &dto.FeaturedResponse{
		Season: catalog.Season(now),
		Year:   now.Year(),
		Items:  items,
	}, nil
}

// Play resolves one opening of an anime to a playable video URL.
func (s *searchService) Play(ctx context.Context, slug string, req dto.PlayRequest) (catalog.Playable, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return catalog.Playable{}, invalid("slug", "Anime slug is required")
	}
	p, err := catalog.Locate(ctx, s.lookup, catalog.PlayTarget{
		AnimeSlug: slug,
		Sequence:  req.Sequence,
		ThemeSlug: req.ThemeSlug,
	}, s.mediaBase)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrAnimeNotFound),
			errors.Is(err, catalog.ErrThemeNotFound),
			errors.Is(err, catalog.ErrNoVideo),
			errors.Is(err, context.Canceled):
			return catalog.Playable{}, err
		}
		return catalog.Playable{}, fmt.Errorf("%w: %v", catalog.ErrUpstreamUnavailable, err)
	}
	return p, nil
}

// ValidateSearch checks a search request without touching the catalog and
// returns its sort mode.
func ValidateSearch(req dto.SearchRequest) (catalog.SortMode, error) {
	if strings.TrimSpace(req.Query) == "" {
		return "", &ValidationError{Field: "q", Message: "Search query is required", Err: catalog.ErrEmptyQuery}
	}
	mode, err := catalog.ParseSortMode(req.Sort)
	if err != nil {
		return "", &ValidationError{Field: "sort", Message: err.Error(), Err: err}
	}
	if err := validateBounds(req); err != nil {
		return "", err
	}
	return mode, nil
}

func validateBounds(req dto.SearchRequest) error {
	if req.Page < 0 || req.Page > maxResultPage {
		return invalid("page", fmt.Sprintf("page must be between 1 and %d", maxResultPage))
	}
	if req.PageSize < 0 {
		return invalid("page_size", "page_size must not be negative")
	}
	if req.YearMin != nil && req.YearMax != nil && *req.YearMin > *req.YearMax {
		return invalid("year_min", "year_min must not exceed year_max")
	}
	for _, v := range []*float64{req.RatingMin, req.RatingMax} {
		if v != nil && (*v < minRating || *v > maxRating) {
			return invalid("rating", "Rating bounds must be between 0 and 10")
		}
	}
	if req.RatingMin != nil && req.RatingMax != nil && *req.RatingMin > *req.RatingMax {
		return invalid("rating_min", "rating_min must not exceed rating_max")
	}
	return nil
}

func themeLabel(t catalog.Theme) string {
	if t.Slug != "" {
		return t.Slug
	}
	seq := t.Sequence
	if seq == 0 {
		seq = 1
	}
	return fmt.Sprintf("%s%d", catalog.ThemeOpening, seq)
}
