package authentication

// keystring.go keeps the session cookie in the OS keyring, on the client side.
import (
	"encoding/json"
	"errors"
	"time"

	"github.com/zalando/go-keyring"
)

const (
	serviceName = "kaimaku-cli"
	sessionKey  = "session"
)

type StoredSession struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the cookie has passed its expiry at now.
func (s *StoredSession) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

func StoreSession(s *StoredSession) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return keyring.Set(serviceName, sessionKey, string(data))
}

// GetSession returns the stored session, or nil when none is stored.
func GetSession() (*StoredSession, error) {
	value, err := keyring.Get(serviceName, sessionKey)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var s StoredSession
	if err := json.Unmarshal([]byte(value), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func DeleteSession() error {
	err := keyring.Delete(serviceName, sessionKey)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}
