package repository

import (
	"context"
	"time"

	"kaimaku/internal/microservices/http-api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RatingRepository interface {
	Upsert(ctx context.Context, rating *models.Rating) (models.RatingAggregate, error)
	Aggregate(ctx context.Context, themeID string) (models.RatingAggregate, error)
	Aggregates(ctx context.Context) ([]models.RatingAggregate, error)
	LatestMetadata(ctx context.Context, themeIDs []string) (map[string]models.Rating, error)
	ByUser(ctx context.Context, userID string) ([]models.Rating, error)
}

type ratingRepository struct {
	base
}

func NewRatingRepository(db *gorm.DB, timeout time.Duration) RatingRepository {
	return &ratingRepository{base: newBase(db, timeout)}
}

const aggregateColumns = "COUNT(*) AS count, " +
	"COALESCE(CAST(AVG(rating) AS DOUBLE PRECISION), 0) AS average, " +
	"COALESCE(CAST(MIN(rating) AS DOUBLE PRECISION), 0) AS min_rating, " +
	"COALESCE(CAST(MAX(rating) AS DOUBLE PRECISION), 0) AS max_rating"

// Upsert writes the rating in one INSERT ... ON CONFLICT statement, so two
// concurrent submissions for the same (theme, user) never produce two rows.
// The fresh aggregate for the theme is read in the same transaction.
func (r *ratingRepository) Upsert(ctx context.Context, rating *models.Rating) (models.RatingAggregate, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var agg models.RatingAggregate
	err := db.Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "theme_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"rating", "timestamp", "anime_name", "anime_slug", "theme_sequence"}),
		}).Create(rating).Error
		if err != nil {
			return err
		}
		return aggregateFor(tx, rating.ThemeID, &agg)
	})
	if err != nil {
		return models.RatingAggregate{}, classify(err)
	}
	return agg, nil
}

// Aggregate returns count/average/min/max for one theme; zero values when
// nobody rated it.
func (r *ratingRepository) Aggregate(ctx context.Context, themeID string) (models.RatingAggregate, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var agg models.RatingAggregate
	if err := aggregateFor(db, themeID, &agg); err != nil {
		return models.RatingAggregate{}, classify(err)
	}
	return agg, nil
}

func aggregateFor(db *gorm.DB, themeID string, out *models.RatingAggregate) error {
	if err := db.Model(&models.Rating{}).
		Select(aggregateColumns).
		Where("theme_id = ?", themeID).
		Scan(out).Error; err != nil {
		return err
	}
	out.ThemeID = themeID
	return nil
}

// Aggregates returns one row per rated theme.
func (r *ratingRepository) Aggregates(ctx context.Context) ([]models.RatingAggregate, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var rows []models.RatingAggregate
	err := db.Model(&models.Rating{}).
		Select("theme_id, " + aggregateColumns).
		Group("theme_id").
		Scan(&rows).Error
	if err != nil {
		return nil, classify(err)
	}
	return rows, nil
}

// LatestMetadata returns, for each of themeIDs, the most recently written
// rating row; its denormalized anime fields are the freshest display data.
func (r *ratingRepository) LatestMetadata(ctx context.Context, themeIDs []string) (map[string]models.Rating, error) {
	if len(themeIDs) == 0 {
		return map[string]models.Rating{}, nil
	}
	db, cancel := r.conn(ctx)
	defer cancel()

	var rows []models.Rating
	err := db.Select("theme_id", "anime_name", "anime_slug", "theme_sequence", "timestamp").
		Where("theme_id IN ?", themeIDs).
		Where("timestamp = (SELECT MAX(r2.timestamp) FROM ratings r2 WHERE r2.theme_id = ratings.theme_id)").
		Order("theme_id").
		Find(&rows).Error
	if err != nil {
		return nil, classify(err)
	}

	// rows written in the same instant tie on MAX; the first one wins
	latest := make(map[string]models.Rating, len(rows))
	for _, row := range rows {
		if _, seen := latest[row.ThemeID]; !seen {
			latest[row.ThemeID] = row
		}
	}
	return latest, nil
}

// ByUser returns every rating the user submitted.
func (r *ratingRepository) ByUser(ctx context.Context, userID string) ([]models.Rating, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var rows []models.Rating
	if err := db.Where("user_id = ?", userID).Order("timestamp DESC").Find(&rows).Error; err != nil {
		return nil, classify(err)
	}
	return rows, nil
}
