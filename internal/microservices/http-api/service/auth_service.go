package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"kaimaku/internal/captcha"
	"kaimaku/internal/microservices/http-api/dto"
	"kaimaku/internal/microservices/http-api/models"
	"kaimaku/internal/microservices/http-api/repository"
	"kaimaku/internal/middleware/auth"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 20
	minPasswordLen = 6
)

type AuthService interface {
	Register(ctx context.Context, req dto.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, username, password string) (*models.User, error)
	NewCaptcha() captcha.Challenge
}

type authService struct {
	userRepo      repository.UserRepository
	captchaMaxAge time.Duration
	now           func() time.Time
	logger        *slog.Logger
}

func NewAuthService(userRepo repository.UserRepository, captchaMaxAge time.Duration, logger *slog.Logger) AuthService {
	if captchaMaxAge <= 0 {
		captchaMaxAge = captcha.DefaultMaxAge
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &authService{
		userRepo:      userRepo,
		captchaMaxAge: captchaMaxAge,
		now:           time.Now,
		logger:        logger,
	}
}

// Register validates the form and the captcha, then creates the user.
// Checks run in the order the form reports them.
func (s *authService) Register(ctx context.Context, req dto.RegisterRequest) (*models.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, invalid("username", "Username and password required")
	}
	if n := utf8.RuneCountInString(username); n < minUsernameLen || n > maxUsernameLen {
		return nil, invalid("username", "Username must be 3-20 characters")
	}
	if len(req.Password) < minPasswordLen {
		return nil, invalid("password", "Password must be at least 6 characters")
	}
	if err := captcha.Verify(req.CaptchaID, req.Answer(), s.now(), s.captchaMaxAge); err != nil {
		return nil, captchaError(err)
	}

	if _, err := s.userRepo.FindByUsername(ctx, username); err == nil {
		return nil, ErrNameInUse
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{Username: username, Password: hashed}
	if err := s.userRepo.Create(ctx, user); err != nil {
		// lost a race with a concurrent registration of the same name
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrNameInUse
		}
		return nil, err
	}

	s.logger.Info("user_registered", slog.String("username", user.Username))
	return user, nil
}

// Login authenticates a user by username and password.
func (s *authService) Login(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, invalid("username", "Username and password required")
	}

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		// unknown user still pays for a bcrypt compare
		auth.BurnCompare(password)
		return nil, ErrInvalidCredentials
	}

	if err := auth.VerifyPassword(user.Password, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *authService) NewCaptcha() captcha.Challenge {
	return captcha.New(s.now())
}

func captchaError(err error) error {
	switch {
	case errors.Is(err, captcha.ErrMissing):
		return &ValidationError{Field: "captcha", Message: "CAPTCHA verification required", Err: err}
	case errors.Is(err, captcha.ErrExpired):
		return &ValidationError{Field: "captcha", Message: "CAPTCHA expired. Please refresh and try again.", Err: err}
	default:
		return &ValidationError{Field: "captcha", Message: "CAPTCHA verification failed", Err: err}
	}
}
