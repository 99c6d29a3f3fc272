package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"kaimaku/internal/microservices/http-api/models"
	"kaimaku/internal/microservices/http-api/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Principal is the authenticated caller behind a session.
type Principal struct {
	SID      string
	UserID   string
	Username string
}

// SessionService issues and resolves login sessions. The cookie value is
// an HS256 token whose jti is the sid of a server-side session row, so
// logging out or purging the row ends the session even if the token has
// not expired.
type SessionService interface {
	Start(ctx context.Context, user *models.User) (token string, expires time.Time, err error)
	Resolve(ctx context.Context, token string) (*Principal, error)
	End(ctx context.Context, token string) error
	Purge(ctx context.Context) (int64, error)
	TTL() time.Duration
}

type sessionService struct {
	repo   repository.SessionRepository
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

func NewSessionService(repo repository.SessionRepository, secret string, ttl time.Duration, logger *slog.Logger) SessionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &sessionService{
		repo:   repo,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
	}
}

func (s *sessionService) TTL() time.Duration {
	return s.ttl
}

func (s *sessionService) Start(ctx context.Context, user *models.User) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.ttl)
	sid := uuid.NewString()

	data, err := json.Marshal(models.SessionData{UserID: user.ID, Username: user.Username})
	if err != nil {
		return "", time.Time{}, err
	}
	if err := s.repo.Create(ctx, &models.Session{SID: sid, Sess: string(data), Expire: expires}); err != nil {
		return "", time.Time{}, err
	}

	claims := jwt.RegisteredClaims{
		ID:        sid,
		Subject:   user.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expires, nil
}

// Resolve returns the principal behind token. A missing or forged token is
// ErrNotAuthenticated; a token or row past its expiry, or a row that is
// gone, is ErrSessionExpired.
func (s *sessionService) Resolve(ctx context.Context, token string) (*Principal, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}

	row, err := s.repo.Find(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionExpired
		}
		return nil, err
	}
	if !row.Expire.After(s.now()) {
		if err := s.repo.Delete(ctx, row.SID); err != nil {
			s.logger.Warn("session_delete_failed", slog.String("sid", row.SID), slog.Any("error", err))
		}
		return nil, ErrSessionExpired
	}

	var data models.SessionData
	if err := json.Unmarshal([]byte(row.Sess), &data); err != nil || data.UserID == "" {
		return nil, ErrSessionExpired
	}
	if data.UserID != claims.Subject {
		return nil, ErrNotAuthenticated
	}
	return &Principal{SID: row.SID, UserID: data.UserID, Username: data.Username}, nil
}

// End destroys the session behind token. Unknown or expired tokens are
// ignored.
func (s *sessionService) End(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return nil
	}
	return s.repo.Delete(ctx, claims.ID)
}

func (s *sessionService) Purge(ctx context.Context) (int64, error) {
	return s.repo.PurgeExpired(ctx, s.now())
}

func (s *sessionService) parse(token string) (*jwt.RegisteredClaims, error) {
	if token == "" {
		return nil, ErrNotAuthenticated
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrSessionExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
	}
	if claims.ID == "" {
		return nil, ErrNotAuthenticated
	}
	return claims, nil
}

// RunPurgeLoop deletes expired sessions every interval until ctx ends.
func RunPurgeLoop(ctx context.Context, sessions SessionService, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.Purge(ctx)
			if err != nil {
				logger.Warn("session_purge_failed", slog.Any("error", err))
				continue
			}
			if n > 0 {
				logger.Info("session_purged", slog.Int64("count", n))
			}
		}
	}
}
