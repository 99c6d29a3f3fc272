package dto

import (
	"time"

	"kaimaku/internal/microservices/http-api/models"
)

// RatingMetadata is the display data a client sends along with a rating.
type RatingMetadata struct {
	AnimeName     string `json:"animeName,omitempty"`
	AnimeSlug     string `json:"animeSlug,omitempty"`
	ThemeSequence int    `json:"themeSequence,omitempty"`
}

// SaveRatingRequest for creating or updating a rating. Rating is a pointer
// so a missing value is told apart from 0.
type SaveRatingRequest struct {
	ThemeID  string          `json:"themeId"`
	Rating   *float64        `json:"rating"`
	Metadata *RatingMetadata `json:"metadata,omitempty"`
}

type AggregatedRating struct {
	Count   int64   `json:"count"`
	Average float64 `json:"average"`
}

// ThemeRating is returned after a rating is saved.
type ThemeRating struct {
	ThemeID    string           `json:"themeId"`
	UserID     string           `json:"userId"`
	Rating     float64          `json:"rating"`
	Timestamp  time.Time        `json:"timestamp"`
	Aggregated AggregatedRating `json:"aggregated"`
}

type SaveRatingResponse struct {
	Success     bool         `json:"success"`
	ThemeRating *ThemeRating `json:"themeRating"`
}

// ThemeAggregate is the public per-theme summary served by GET /api/ratings.
type ThemeAggregate struct {
	Count   int64   `json:"count"`
	Average float64 `json:"average"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// UserRating is one entry of the caller's rating history.
type UserRating struct {
	Rating        float64   `json:"rating"`
	Timestamp     time.Time `json:"timestamp"`
	AnimeName     *string   `json:"animeName"`
	AnimeSlug     *string   `json:"animeSlug"`
	ThemeSequence *int      `json:"themeSequence"`
}

type UserRatingsResponse struct {
	Ratings map[string]UserRating `json:"ratings"`
}

// FromAggregate converts a stored aggregate to its public form
func FromAggregate(agg models.RatingAggregate) ThemeAggregate {
	return ThemeAggregate{
		Count:   agg.Count,
		Average: agg.Average,
		Min:     agg.MinRating,
		Max:     agg.MaxRating,
	}
}

// FromModelToUserRating converts a Rating model to its history entry
func FromModelToUserRating(r models.Rating) UserRating {
	return UserRating{
		Rating:        r.Rating,
		Timestamp:     r.Timestamp,
		AnimeName:     r.AnimeName,
		AnimeSlug:     r.AnimeSlug,
		ThemeSequence: r.ThemeSequence,
	}
}
