package models

import "time"

// Rating is one user's score for one opening. (ThemeID, UserID) is unique;
// the denormalized anime fields hold whatever the latest submission sent.
type Rating struct {
	ID            int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	ThemeID       string    `json:"theme_id" gorm:"size:255;not null;uniqueIndex:idx_ratings_theme_user,priority:1;index:idx_ratings_theme_id"`
	UserID        string    `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_ratings_theme_user,priority:2;index:idx_ratings_user_id"`
	Rating        float64   `json:"rating" gorm:"type:numeric(3,1);not null;check:chk_ratings_range,rating >= 0 AND rating <= 10"`
	Timestamp     time.Time `json:"timestamp" gorm:"column:timestamp;not null"`
	AnimeName     *string   `json:"anime_name,omitempty" gorm:"size:500"`
	AnimeSlug     *string   `json:"anime_slug,omitempty" gorm:"size:500"`
	ThemeSequence *int      `json:"theme_sequence,omitempty"`

	// Associations
	User User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE;"`
}

func (Rating) TableName() string {
	return "ratings"
}

// RatingAggregate is computed on read over every rating of a theme.
type RatingAggregate struct {
	ThemeID   string
	Count     int64
	Average   float64
	MinRating float64
	MaxRating float64
}
