package dto

import (
	"kaimaku/internal/catalog"
	"kaimaku/internal/leaderboard"
)

// SearchRequest is bound from the /api/search query string.
type SearchRequest struct {
	Query     string   `form:"q"`
	Sort      string   `form:"sort"`
	Page      int      `form:"page"`
	PageSize  int      `form:"page_size"`
	YearMin   *int     `form:"year_min"`
	YearMax   *int     `form:"year_max"`
	Seasons   []string `form:"season"`
	RatingMin *float64 `form:"rating_min"`
	RatingMax *float64 `form:"rating_max"`
}

// OpeningView is one playable opening with its rating data.
type OpeningView struct {
	ThemeID   string   `json:"themeId"`
	Sequence  int      `json:"sequence"`
	Slug      string   `json:"slug"`
	Label     string   `json:"label"`
	SongTitle string   `json:"songTitle,omitempty"`
	Artists   string   `json:"artists,omitempty"`
	VideoURL  string   `json:"videoUrl,omitempty"`
	Average   *float64 `json:"average,omitempty"`
	Count     int64    `json:"count"`
	MyRating  *float64 `json:"myRating,omitempty"`
}

type SearchResult struct {
	ID           int64         `json:"id"`
	Name         string        `json:"name"`
	EnglishTitle string        `json:"englishTitle,omitempty"`
	Slug         string        `json:"slug"`
	Year         int           `json:"year,omitempty"`
	Season       string        `json:"season,omitempty"`
	MediaFormat  string        `json:"mediaFormat,omitempty"`
	Openings     []OpeningView `json:"openings"`
}

type SearchResponse struct {
	Query      string         `json:"query"`
	Sort       string         `json:"sort"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	Total      int            `json:"total"`
	TotalPages int            `json:"totalPages"`
	Results    []SearchResult `json:"results"`
}

type FeaturedResponse struct {
	Season string                 `json:"season"`
	Year   int                    `json:"year"`
	Items  []catalog.FeaturedItem `json:"items"`
}

type LeaderboardResponse struct {
	Entries []leaderboard.Entry `json:"entries"`
}

// PlayRequest is bound from the /api/anime/:slug/play query string.
type PlayRequest struct {
	Sequence  *int   `form:"sequence"`
	ThemeSlug string `form:"theme"`
}

// TrendingResponse lists the seed searches' anime, most rated first.
type TrendingResponse struct {
	Queries []string       `json:"queries"`
	Sort    string         `json:"sort"`
	Results []SearchResult `json:"results"`
}

// DailyRequest is bound from the /api/discover/daily query string.
type DailyRequest struct {
	Query string `form:"q"`
}

type DailyResponse struct {
	Date    string           `json:"date"`
	Day     int              `json:"day"`
	Query   string           `json:"query"`
	Opening catalog.Playable `json:"opening"`
}
