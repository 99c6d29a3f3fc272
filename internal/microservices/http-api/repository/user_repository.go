package repository

import (
	"context"
	"time"

	"kaimaku/internal/microservices/http-api/models"

	"gorm.io/gorm"
)

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// userRepository is the GORM implementation of UserRepository.
type userRepository struct {
	base
}

// NewUserRepository creates a new instance of UserRepository in a GORM implementation
func NewUserRepository(db *gorm.DB, timeout time.Duration) UserRepository {
	return &userRepository{base: newBase(db, timeout)}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	db, cancel := r.conn(ctx)
	defer cancel()
	return classify(db.Create(user).Error)
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var user models.User
	// return nil on error so a zero-value user is never mistaken for a hit
	if err := db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, classify(err)
	}
	return &user, nil
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	db, cancel := r.conn(ctx)
	defer cancel()

	var user models.User
	if err := db.First(&user, "id = ?", id).Error; err != nil {
		return nil, classify(err)
	}
	return &user, nil
}
