package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"kaimaku/internal/metrics"
)

const (
	DefaultBaseURL = "https://api.animethemes.moe"

	// animethemes.moe throttles anonymous clients at roughly 90 requests per
	// minute; stay under it.
	rateLimit = 1.5
	rateBurst = 5

	maxRetries   = 3
	initialDelay = 1 * time.Second
	maxDelay     = 16 * time.Second

	// responses larger than this are truncated and fail to decode
	maxBodyBytes = 32 << 20

	searchLimit = 50
)

const (
	includeFull       = "animethemes.animethemeentries.videos,animethemes.song,animethemes.song.artists,animesynonyms"
	includeNoVideos   = "animethemes.song,animethemes.song.artists,animesynonyms"
	includeWithImages = includeFull + ",images"
)

var ErrAnimeNotFound = errors.New("anime not found")

// StatusError is a non-2xx answer from the catalog.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("catalog: HTTP %d: %s", e.StatusCode, e.Body)
}

// Client talks to the animethemes.moe API with rate limiting and retries.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	rateLimiter  *rate.Limiter
	maxRetries   int
	initialDelay time.Duration
	maxDelay     time.Duration
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *Client) { c.rateLimiter = rate.NewLimiter(limit, burst) }
}

// WithRetryPolicy overrides the retry count and backoff bounds.
func WithRetryPolicy(retries int, initial, max time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = retries
		c.initialDelay = initial
		c.maxDelay = max
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		rateLimiter:  rate.NewLimiter(rate.Limit(rateLimit), rateBurst),
		maxRetries:   maxRetries,
		initialDelay: initialDelay,
		maxDelay:     maxDelay,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GlobalSearch queries /search. withVideos controls whether video entries
// are included; the lighter form answers faster on large result sets.
func (c *Client) GlobalSearch(ctx context.Context, query string, withVideos bool) ([]Anime, error) {
	include := includeFull
	if !withVideos {
		include = includeNoVideos
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("include[anime]", include)
	params.Set("page[limit]", strconv.Itoa(searchLimit))
	return c.list(ctx, "search", "/search", params)
}

func (c *Client) SearchAnime(ctx context.Context, query string, pageSize int) ([]Anime, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("include", includeFull)
	params.Set("page[size]", strconv.Itoa(pageSize))
	return c.list(ctx, "anime_q", "/anime", params)
}

func (c *Client) FilterByName(ctx context.Context, name string, pageSize int) ([]Anime, error) {
	params := url.Values{}
	params.Set("filter[name]", name)
	params.Set("include", includeFull)
	params.Set("page[size]", strconv.Itoa(pageSize))
	return c.list(ctx, "anime_name", "/anime", params)
}

// AnimeByIDs fetches full records, themes and videos included.
func (c *Client) AnimeByIDs(ctx context.Context, ids []int64) ([]Anime, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	params := url.Values{}
	params.Set("filter[id]", joinIDs(ids))
	params.Set("include", includeFull)
	params.Set("page[size]", strconv.Itoa(len(ids)))
	return c.list(ctx, "anime_ids", "/anime", params)
}

// SynonymsByIDs fetches only the synonym lists for ids.
func (c *Client) SynonymsByIDs(ctx context.Context, ids []int64) ([]Anime, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	params := url.Values{}
	params.Set("filter[id]", joinIDs(ids))
	params.Set("include", "animesynonyms")
	params.Set("page[size]", strconv.Itoa(len(ids)))
	return c.list(ctx, "anime_synonyms", "/anime", params)
}

// CatalogPage returns one page of the unfiltered catalog. Pages are 1-based.
func (c *Client) CatalogPage(ctx context.Context, page, pageSize int) ([]Anime, error) {
	params := url.Values{}
	params.Set("include", includeFull)
	params.Set("page[number]", strconv.Itoa(page))
	params.Set("page[size]", strconv.Itoa(pageSize))
	return c.list(ctx, "anime_page", "/anime", params)
}

// AnimeBySlug fetches one anime with everything needed for playback.
func (c *Client) AnimeBySlug(ctx context.Context, slug string) (Anime, error) {
	params := url.Values{}
	params.Set("include", includeWithImages)
	endpoint := "/anime/" + url.PathEscape(slug)

	body, fullURL, err := c.get(ctx, "anime_slug", endpoint, params)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return Anime{}, ErrAnimeNotFound
		}
		return Anime{}, err
	}
	anime, ok := NormalizeOne(body, fullURL)
	if !ok {
		return Anime{}, ErrAnimeNotFound
	}
	return anime, nil
}

// AnimeYear reads the season-grouped /animeyear/{year} payload and returns
// the list for season.
func (c *Client) AnimeYear(ctx context.Context, year int, season string) ([]Anime, error) {
	params := url.Values{}
	params.Set("include", includeWithImages)
	body, fullURL, err := c.get(ctx, "anime_year", "/animeyear/"+strconv.Itoa(year), params)
	if err != nil {
		return nil, err
	}
	var grouped map[string]json.RawMessage
	if err := json.Unmarshal(body, &grouped); err != nil {
		return nil, fmt.Errorf("failed to parse anime year: %w", err)
	}
	list, ok := grouped[strings.ToLower(season)]
	if !ok {
		return nil, nil
	}
	return Normalize(list, fullURL), nil
}

// AnimeBySeason is the filter-based equivalent of AnimeYear.
func (c *Client) AnimeBySeason(ctx context.Context, year int, season string, limit int) ([]Anime, error) {
	params := url.Values{}
	params.Set("filter[year]", strconv.Itoa(year))
	params.Set("filter[season]", season)
	params.Set("include", includeWithImages)
	params.Set("page[size]", strconv.Itoa(limit))
	params.Set("sort", "name")
	return c.list(ctx, "anime_season", "/anime", params)
}

func (c *Client) list(ctx context.Context, name, endpoint string, params url.Values) ([]Anime, error) {
	body, fullURL, err := c.get(ctx, name, endpoint, params)
	if err != nil {
		return nil, err
	}
	return Normalize(body, fullURL), nil
}

// get performs a GET with rate limiting and retry logic and returns the raw
// body together with the URL it came from.
func (c *Client) get(ctx context.Context, name, endpoint string, params url.Values) ([]byte, string, error) {
	fullURL := c.baseURL + endpoint
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	start := time.Now()
	body, err := c.doRequest(ctx, name, fullURL)
	metrics.UpstreamRequestDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	metrics.UpstreamRequestsTotal.WithLabelValues(name, outcome(err)).Inc()
	return body, fullURL, err
}

func (c *Client) doRequest(ctx context.Context, name, fullURL string) ([]byte, error) {
	var lastErr error
	delay := c.initialDelay

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "Kaimaku/1.0")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil || attempt == c.maxRetries {
				break
			}
			slog.Warn("catalog_request_retry", "endpoint", name, "attempt", attempt+1, "error", err, "delay", delay)
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
			delay = minDuration(delay*2, c.maxDelay)
			continue
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			lastErr = &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 200)}
			if !shouldRetry(resp.StatusCode) || attempt == c.maxRetries {
				return nil, lastErr
			}
			if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
				if d, err := time.ParseDuration(retryAfter + "s"); err == nil {
					delay = minDuration(d, c.maxDelay)
				}
			}
			slog.Warn("catalog_request_retry", "endpoint", name, "attempt", attempt+1, "status", resp.StatusCode, "delay", delay)
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
			delay = minDuration(delay*2, c.maxDelay)
			continue
		}

		if readErr != nil {
			return nil, fmt.Errorf("failed to read response: %w", readErr)
		}
		return body, nil
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

// shouldRetry reports whether a status code is worth another attempt.
func shouldRetry(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || statusCode >= 500
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var se *StatusError
	if errors.As(err, &se) {
		return strconv.Itoa(se.StatusCode)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "error"
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
