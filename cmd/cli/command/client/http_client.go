package client

// http_client.go = the CLI's client of the kaimaku HTTP API.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"kaimaku/internal/catalog"
	"kaimaku/internal/leaderboard"
	"kaimaku/internal/microservices/http-api/dto"
)

const DefaultCookieName = "kaimaku_session"

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server answered %d", e.StatusCode)
	}
	return e.Message
}

// IsUnauthorized reports whether err means the session is missing or expired.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// Session is the cookie the server handed out on login or register.
type Session struct {
	Token     string
	Username  string
	ExpiresAt time.Time
}

type HTTPClient struct {
	baseURL    string
	cookieName string
	httpClient *http.Client
	token      string
}

func NewHTTPClient(apiURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    apiURL,
		cookieName: DefaultCookieName,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetToken attaches a stored session cookie to every request.
func (c *HTTPClient) SetToken(token string) {
	c.token = token
}

func (c *HTTPClient) Captcha(ctx context.Context) (*dto.CaptchaResponse, error) {
	var out dto.CaptchaResponse
	if _, err := c.do(ctx, http.MethodGet, "/api/captcha", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Register(ctx context.Context, req dto.RegisterRequest) (*Session, error) {
	return c.authenticate(ctx, "/api/register", req)
}

func (c *HTTPClient) Login(ctx context.Context, req dto.LoginRequest) (*Session, error) {
	return c.authenticate(ctx, "/api/login", req)
}

func (c *HTTPClient) authenticate(ctx context.Context, path string, body any) (*Session, error) {
	var out dto.AuthResponse
	resp, err := c.do(ctx, http.MethodPost, path, body, &out)
	if err != nil {
		return nil, err
	}
	for _, cookie := range resp.Cookies() {
		if cookie.Name != c.cookieName || cookie.Value == "" {
			continue
		}
		c.token = cookie.Value
		expires := cookie.Expires
		if expires.IsZero() && cookie.MaxAge > 0 {
			expires = time.Now().Add(time.Duration(cookie.MaxAge) * time.Second)
		}
		return &Session{Token: cookie.Value, Username: out.Username, ExpiresAt: expires}, nil
	}
	return nil, fmt.Errorf("server did not set the %s cookie", c.cookieName)
}

func (c *HTTPClient) Logout(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/api/logout", nil, nil)
	return err
}

func (c *HTTPClient) Me(ctx context.Context) (*dto.MeResponse, error) {
	var out dto.MeResponse
	if _, err := c.do(ctx, http.MethodGet, "/api/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Search(ctx context.Context, req dto.SearchRequest) (*dto.SearchResponse, error) {
	q := url.Values{}
	q.Set("q", req.Query)
	if req.Sort != "" {
		q.Set("sort", req.Sort)
	}
	if req.Page > 0 {
		q.Set("page", strconv.Itoa(req.Page))
	}
	if req.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(req.PageSize))
	}
	if req.YearMin != nil {
		q.Set("year_min", strconv.Itoa(*req.YearMin))
	}
	if req.YearMax != nil {
		q.Set("year_max", strconv.Itoa(*req.YearMax))
	}
	for _, s := range req.Seasons {
		q.Add("season", s)
	}
	if req.RatingMin != nil {
		q.Set("rating_min", strconv.FormatFloat(*req.RatingMin, 'f', -1, 64))
	}
	if req.RatingMax != nil {
		q.Set("rating_max", strconv.FormatFloat(*req.RatingMax, 'f', -1, 64))
	}

	var out dto.SearchResponse
	if _, err := c.do(ctx, http.MethodGet, "/api/search?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Featured(ctx context.Context) (*dto.FeaturedResponse, error) {
	var out dto.FeaturedResponse
	if _, err := c.do(ctx, http.MethodGet, "/api/featured", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Play(ctx context.Context, slug string, req dto.PlayRequest) (*catalog.Playable, error) {
	q := url.Values{}
	if req.Sequence != nil {
		q.Set("sequence", strconv.Itoa(*req.Sequence))
	}
	if req.ThemeSlug != "" {
		q.Set("theme", req.ThemeSlug)
	}
	path := "/api/anime/" + url.PathEscape(slug) + "/play"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out catalog.Playable
	if _, err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Random(ctx context.Context) (*catalog.Playable, error) {
	var out catalog.Playable
	if _, err := c.do(ctx, http.MethodGet, "/api/discover/random", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Trending(ctx context.Context) (*dto.TrendingResponse, error) {
	var out dto.TrendingResponse
	if _, err := c.do(ctx, http.MethodGet, "/api/discover/trending", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Daily fetches the opening of the day. An empty query uses the server's
// default series.
func (c *HTTPClient) Daily(ctx context.Context, query string) (*dto.DailyResponse, error) {
	path := "/api/discover/daily"
	if query != "" {
		path += "?" + url.Values{"q": {query}}.Encode()
	}

	var out dto.DailyResponse
	if _, err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) SaveRating(ctx context.Context, req dto.SaveRatingRequest) (*dto.ThemeRating, error) {
	var out dto.SaveRatingResponse
	if _, err := c.do(ctx, http.MethodPost, "/api/ratings", req, &out); err != nil {
		return nil, err
	}
	return out.ThemeRating, nil
}

func (c *HTTPClient) Ratings(ctx context.Context) (map[string]dto.ThemeAggregate, error) {
	out := make(map[string]dto.ThemeAggregate)
	if _, err := c.do(ctx, http.MethodGet, "/api/ratings", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) MyRatings(ctx context.Context) (map[string]dto.UserRating, error) {
	var out dto.UserRatingsResponse
	if _, err := c.do(ctx, http.MethodGet, "/api/my-ratings", nil, &out); err != nil {
		return nil, err
	}
	return out.Ratings, nil
}

func (c *HTTPClient) Leaderboard(ctx context.Context, limit int) ([]leaderboard.Entry, error) {
	var out dto.LeaderboardResponse
	path := "/api/leaderboard?limit=" + strconv.Itoa(limit)
	if _, err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Entries, nil
}

// do sends one request. body is encoded as JSON when non-nil; out is
// decoded from a 2xx answer when non-nil.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.AddCookie(&http.Cookie{Name: c.cookieName, Value: c.token})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not reach %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var payload struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		if json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload) == nil {
			apiErr.Message, apiErr.Code = payload.Error, payload.Code
		}
		return resp, apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp, fmt.Errorf("decode %s response: %w", path, err)
		}
	}
	return resp, nil
}
