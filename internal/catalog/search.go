package catalog

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"kaimaku/internal/metrics"
)

var (
	ErrEmptyQuery          = errors.New("search query is empty")
	ErrNoResults           = errors.New("no results found")
	ErrUpstreamUnavailable = errors.New("anime catalog is unavailable, try again shortly")
)

const (
	defaultPageSize  = 100
	defaultMaxPages  = 5
	defaultScanLimit = 200
	defaultTimeout   = 45 * time.Second
	maxDetailIDs     = 50
)

// Source is the part of the catalog API the searcher walks.
type Source interface {
	GlobalSearch(ctx context.Context, query string, withVideos bool) ([]Anime, error)
	SearchAnime(ctx context.Context, query string, pageSize int) ([]Anime, error)
	FilterByName(ctx context.Context, name string, pageSize int) ([]Anime, error)
	AnimeByIDs(ctx context.Context, ids []int64) ([]Anime, error)
	SynonymsByIDs(ctx context.Context, ids []int64) ([]Anime, error)
	CatalogPage(ctx context.Context, page, pageSize int) ([]Anime, error)
}

// ResultCache stores filtered search results by normalized query.
type ResultCache interface {
	Get(ctx context.Context, key string) ([]Anime, bool, error)
	Set(ctx context.Context, key string, items []Anime, ttl time.Duration) error
}

type SearcherConfig struct {
	PageSize  int
	MaxPages  int
	ScanLimit int
	CacheTTL  time.Duration
	// Timeout bounds one shared upstream walk, independent of the callers
	// waiting on it.
	Timeout time.Duration
}

// Searcher resolves a free-text query to matching anime, trying the
// catalog's search endpoints first and scanning catalog pages last.
type Searcher struct {
	source Source
	cache  ResultCache
	cfg    SearcherConfig
	logger *slog.Logger
	group  singleflight.Group
}

// NewSearcher builds a searcher. cache may be nil.
func NewSearcher(source Source, cache ResultCache, cfg SearcherConfig, logger *slog.Logger) *Searcher {
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = defaultMaxPages
	}
	if cfg.ScanLimit <= 0 {
		cfg.ScanLimit = defaultScanLimit
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Searcher{source: source, cache: cache, cfg: cfg, logger: logger}
}

type strategy struct {
	name       string
	fromSearch bool
	fetch      func(ctx context.Context) ([]Anime, error)
}

// Search returns the anime matching query. Concurrent identical queries
// share one upstream walk; the walk outlives any single caller, so one
// caller giving up does not fail the others.
func (s *Searcher) Search(ctx context.Context, query string) ([]Anime, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, ErrEmptyQuery
	}
	key := lower(q)

	if items, ok := s.cached(ctx, key); ok {
		return items, nil
	}

	ch := s.group.DoChan(key, func() (any, error) {
		walkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Timeout)
		defer cancel()

		items, err := s.walk(walkCtx, q)
		if err != nil {
			return nil, err
		}
		s.store(walkCtx, key, items)
		return items, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]Anime), nil
	}
}

func (s *Searcher) cached(ctx context.Context, key string) ([]Anime, bool) {
	if s.cache == nil {
		return nil, false
	}
	items, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("search_cache_get_failed", "error", err)
		return nil, false
	}
	if !ok {
		metrics.CacheMissesTotal.Inc()
		return nil, false
	}
	metrics.CacheHitsTotal.Inc()
	return items, true
}

func (s *Searcher) store(ctx context.Context, key string, items []Anime) {
	if s.cache == nil || len(items) == 0 || s.cfg.CacheTTL <= 0 {
		return
	}
	if err := s.cache.Set(ctx, key, items, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("search_cache_set_failed", "error", err)
	}
}

func (s *Searcher) strategies(q string) []strategy {
	return []strategy{
		{name: "search_with_videos", fromSearch: true, fetch: func(ctx context.Context) ([]Anime, error) {
			return s.source.GlobalSearch(ctx, q, true)
		}},
		{name: "search", fromSearch: true, fetch: func(ctx context.Context) ([]Anime, error) {
			return s.source.GlobalSearch(ctx, q, false)
		}},
		{name: "anime_query", fetch: func(ctx context.Context) ([]Anime, error) {
			return s.source.SearchAnime(ctx, q, s.cfg.PageSize)
		}},
		{name: "anime_name", fetch: func(ctx context.Context) ([]Anime, error) {
			return s.source.FilterByName(ctx, q, s.cfg.PageSize)
		}},
	}
}

func (s *Searcher) walk(ctx context.Context, q string) ([]Anime, error) {
	reached := false

	for _, st := range s.strategies(q) {
		items, err := st.fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn("search_strategy_failed", "strategy", st.name, "error", err)
			metrics.SearchStrategyTotal.WithLabelValues(st.name, "error").Inc()
			continue
		}
		reached = true
		if len(items) == 0 {
			metrics.SearchStrategyTotal.WithLabelValues(st.name, "empty").Inc()
			continue
		}

		if matched := s.match(ctx, st, items, q); len(matched) > 0 {
			s.logger.Debug("search_strategy_matched", "strategy", st.name, "results", len(matched))
			metrics.SearchStrategyTotal.WithLabelValues(st.name, "match").Inc()
			return matched, nil
		}
		metrics.SearchStrategyTotal.WithLabelValues(st.name, "no_match").Inc()
	}

	return s.scanCatalog(ctx, q, reached)
}

// match filters one strategy's items. Search hits without theme data are
// re-fetched by id; /anime hits missing synonyms get them merged in first.
func (s *Searcher) match(ctx context.Context, st strategy, items []Anime, q string) []Anime {
	if st.fromSearch && !items[0].HasIncludes() {
		detailed, err := s.source.AnimeByIDs(ctx, ids(items, maxDetailIDs))
		if err != nil {
			s.logger.Warn("search_detail_fetch_failed", "strategy", st.name, "error", err)
			return nil
		}
		return Filter(detailed, q)
	}

	if !st.fromSearch && missingSynonyms(items) {
		if matched := Filter(s.withSynonyms(ctx, items), q); len(matched) > 0 {
			return matched
		}
	}
	return Filter(items, q)
}

func (s *Searcher) withSynonyms(ctx context.Context, items []Anime) []Anime {
	fetched, err := s.source.SynonymsByIDs(ctx, ids(items, len(items)))
	if err != nil {
		s.logger.Warn("search_synonym_fetch_failed", "error", err)
		return items
	}
	return MergeSynonyms(items, fetched)
}

func (s *Searcher) scanCatalog(ctx context.Context, q string, reached bool) ([]Anime, error) {
	var all []Anime
	for page := 1; page <= s.cfg.MaxPages; page++ {
		items, err := s.source.CatalogPage(ctx, page, s.cfg.PageSize)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warn("search_strategy_failed", "strategy", "catalog_page", "page", page, "error", err)
			metrics.SearchStrategyTotal.WithLabelValues("catalog_page", "error").Inc()
			break
		}
		reached = true
		if len(items) == 0 {
			break
		}

		all = append(all, items...)
		if matched := Filter(all, q); len(matched) > 0 {
			metrics.SearchStrategyTotal.WithLabelValues("catalog_page", "match").Inc()
			return matched, nil
		}
		if len(all) >= s.cfg.ScanLimit {
			break
		}
		if len(items) < s.cfg.PageSize {
			break
		}
	}

	if !reached {
		return nil, ErrUpstreamUnavailable
	}
	metrics.SearchStrategyTotal.WithLabelValues("catalog_page", "no_match").Inc()
	s.logger.Info("search_no_results", "query", q, "scanned", len(all))
	return nil, ErrNoResults
}

// MergeSynonyms copies synonym lists from fetched onto the items that have
// none, matching by id.
func MergeSynonyms(items, fetched []Anime) []Anime {
	byID := make(map[int64][]Synonym, len(fetched))
	for _, f := range fetched {
		if len(f.Synonyms) > 0 {
			byID[f.ID] = f.Synonyms
		}
	}
	out := make([]Anime, len(items))
	for i, item := range items {
		if len(item.Synonyms) == 0 {
			item.Synonyms = byID[item.ID]
		}
		out[i] = item
	}
	return out
}

func missingSynonyms(items []Anime) bool {
	for _, a := range items {
		if len(a.Synonyms) == 0 {
			return true
		}
	}
	return false
}

func ids(items []Anime, limit int) []int64 {
	out := make([]int64, 0, min(len(items), limit))
	for _, a := range items {
		if len(out) == limit {
			break
		}
		out = append(out, a.ID)
	}
	return out
}
