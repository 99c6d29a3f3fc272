package service

import (
	"errors"

	"kaimaku/internal/microservices/http-api/repository"
)

var (
	ErrNameInUse          = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrNotAuthenticated   = errors.New("authentication required")
	ErrSessionExpired     = errors.New("session expired")
	ErrMissingFields      = errors.New("missing required fields")
	ErrRatingCooldown     = errors.New("rating submitted too quickly")
	ErrStoreUnavailable   = repository.ErrStoreUnavailable
)

// ValidationError is bad input the caller can fix. Message is safe to show
// to end users.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
