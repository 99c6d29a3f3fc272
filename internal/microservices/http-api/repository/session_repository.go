package repository

import (
	"context"
	"time"

	"kaimaku/internal/microservices/http-api/models"

	"gorm.io/gorm"
)

// SessionRepository handles database operations for login sessions
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	Find(ctx context.Context, sid string) (*models.Session, error)
	Delete(ctx context.Context, sid string) error
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type sessionRepository struct {
	base
}

func NewSessionRepository(db *gorm.DB, timeout time.Duration) SessionRepository {
	return &sessionRepository{base: newBase(db, timeout)}
}

func (r *sessionRepository) Create(ctx context.Context, session *models.Session) error {
	db, cancel := r.conn(ctx)
	defer cancel()
	return classify(db.Create(session).Error)
}

func (r *sessionRepository) Find(ctx context.Context, sid string) (*models.Session, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var session models.Session
	if err := db.Where("sid = ?", sid).First(&session).Error; err != nil {
		return nil, classify(err)
	}
	return &session, nil
}

// Delete is idempotent: removing an unknown sid is not an error.
func (r *sessionRepository) Delete(ctx context.Context, sid string) error {
	db, cancel := r.conn(ctx)
	defer cancel()
	return classify(db.Where("sid = ?", sid).Delete(&models.Session{}).Error)
}

// PurgeExpired removes sessions whose expiry is before now.
func (r *sessionRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	result := db.Where("expire < ?", now).Delete(&models.Session{})
	if result.Error != nil {
		return 0, classify(result.Error)
	}
	return result.RowsAffected, nil
}
