package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"time"
)

// SeedQueries are well-known series used to build discovery pools. Random
// draws from the first ten; trending searches the first TrendingSeeds.
var SeedQueries = []string{
	"naruto", "one piece", "attack on titan", "demon slayer", "jujutsu kaisen",
	"my hero academia", "death note", "fullmetal alchemist", "dragon ball", "bleach",
	"tokyo ghoul", "hunter x hunter", "one punch man", "mob psycho", "spy x family",
}

const (
	randomSeeds   = 10
	TrendingSeeds = 5
	// DailySeedQuery backs the daily pick when the caller brings no query.
	DailySeedQuery = "attack on titan"
)

// QuerySearcher resolves a free-text query to matching anime.
type QuerySearcher interface {
	Search(ctx context.Context, query string) ([]Anime, error)
}

// Discovery builds browse-without-typing listings on top of search.
type Discovery struct {
	searcher  QuerySearcher
	mediaBase string
	intn      func(n int) int
	workers   int
	logger    *slog.Logger
}

type DiscoveryOption func(*Discovery)

// WithPicker replaces the random index source, e.g. for a fixed sequence.
func WithPicker(intn func(n int) int) DiscoveryOption {
	return func(d *Discovery) { d.intn = intn }
}

func NewDiscovery(searcher QuerySearcher, mediaBase string, logger *slog.Logger, opts ...DiscoveryOption) *Discovery {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Discovery{
		searcher:  searcher,
		mediaBase: mediaBase,
		intn:      rand.IntN,
		workers:   TrendingSeeds,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Random searches one random seed and picks one of its playable openings
// uniformly.
func (d *Discovery) Random(ctx context.Context) (Playable, error) {
	query := SeedQueries[d.intn(randomSeeds)]
	items, err := d.searcher.Search(ctx, query)
	if err != nil {
		return Playable{}, err
	}

	type candidate struct {
		anime Anime
		theme Theme
	}
	var pool []candidate
	for _, r := range Group(items) {
		for _, t := range r.Openings {
			pool = append(pool, candidate{anime: r.Anime, theme: t})
		}
	}
	if len(pool) == 0 {
		return Playable{}, ErrNoResults
	}

	pick := pool[d.intn(len(pool))]
	d.logger.Debug("discover_random_picked", "query", query, "pool", len(pool), "anime", pick.anime.Slug)
	return NewPlayable(pick.anime, pick.theme, d.mediaBase)
}

// Trending searches the trending seeds concurrently and merges the hits in
// seed order, dropping repeats by id (by name when the id is missing).
// Failed seeds are skipped; ranking by popularity is left to the caller,
// which owns the rating data.
func (d *Discovery) Trending(ctx context.Context) ([]Anime, error) {
	seeds := SeedQueries[:TrendingSeeds]
	found := make([][]Anime, len(seeds))
	errs := make([]error, len(seeds))

	pool := NewWorkerPool(ctx, d.workers, d.logger)
	pool.Start()
	for i, q := range seeds {
		pool.Submit(func(ctx context.Context) error {
			items, err := d.searcher.Search(ctx, q)
			if err != nil {
				errs[i] = err
				if errors.Is(err, ErrNoResults) {
					return nil
				}
				return fmt.Errorf("trending seed %q: %w", q, err)
			}
			found[i] = items
			return nil
		})
	}
	pool.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var out []Anime
	for _, items := range found {
		for _, a := range items {
			key := a.Name
			if a.ID != 0 {
				key = strconv.FormatInt(a.ID, 10)
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, a)
		}
	}
	if len(out) > 0 {
		return out, nil
	}

	for _, err := range errs {
		if err != nil && !errors.Is(err, ErrNoResults) {
			return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
		}
	}
	return nil, ErrNoResults
}

// Daily picks the same opening all day: the results of query are indexed
// by the day of the year, and the first opening of that result plays. An
// empty query uses DailySeedQuery.
func (d *Discovery) Daily(ctx context.Context, query string, now time.Time) (Playable, error) {
	if query == "" {
		query = DailySeedQuery
	}
	items, err := d.searcher.Search(ctx, query)
	if err != nil {
		return Playable{}, err
	}
	results := Group(items)
	if len(results) == 0 {
		return Playable{}, ErrNoResults
	}

	r := results[DayOfYear(now)%len(results)]
	return NewPlayable(r.Anime, r.Openings[0], d.mediaBase)
}

// DayOfYear counts from 1 on January 1st, in now's location.
func DayOfYear(now time.Time) int {
	return now.YearDay()
}
