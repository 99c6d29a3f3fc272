// Package captcha implements the arithmetic challenge shown on sign-up.
//
// A challenge is fully determined by its id, a millisecond timestamp, so the
// server never stores issued challenges: it recomputes the answer from the
// id the client sends back.
package captcha

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultMaxAge = 10 * time.Minute
	fallbackSeed  = 12345678
)

var (
	ErrMissing  = errors.New("captcha verification required")
	ErrExpired  = errors.New("captcha expired")
	ErrMismatch = errors.New("captcha verification failed")
)

type Challenge struct {
	ID       string `json:"captchaId"`
	Question string `json:"question"`
	Answer   int    `json:"-"`
}

// NewID returns a challenge id for now.
func NewID(now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 10)
}

// New issues a fresh challenge.
func New(now time.Time) Challenge {
	return Generate(NewID(now))
}

// Generate derives the question and answer from id. The derivation must
// stay bit-for-bit stable: ids issued before a deploy are verified after it.
func Generate(id string) Challenge {
	seed := fallbackSeed
	tail := id
	if len(tail) > 8 {
		tail = tail[len(tail)-8:]
	}
	if v, ok := leadingInt(tail); ok && v != 0 {
		seed = int(v)
	}

	s := int64(seed)
	r1 := seeded(s)
	s = int64(math.Floor(float64(s)*1.5)) + 1
	r2 := seeded(s)
	s = int64(math.Floor(float64(s)*1.3)) + 1
	r3 := seeded(s)

	n1 := int(math.Floor(r1*10)) + 1
	n2 := int(math.Floor(r2*10)) + 1

	if r3 > 0.5 {
		return Challenge{ID: id, Question: fmt.Sprintf("%d + %d = ?", n1, n2), Answer: n1 + n2}
	}
	hi, lo := max(n1, n2), min(n1, n2)
	return Challenge{ID: id, Question: fmt.Sprintf("%d - %d = ?", hi, lo), Answer: hi - lo}
}

// Verify checks answer against the challenge id. A nil answer or empty id
// is ErrMissing; ids older than maxAge, or not a timestamp, are ErrExpired.
func Verify(id string, answer *int, now time.Time, maxAge time.Duration) error {
	if id == "" || answer == nil {
		return ErrMissing
	}
	issued, ok := leadingInt(id)
	if !ok {
		return ErrExpired
	}
	if now.UnixMilli()-issued > maxAge.Milliseconds() {
		return ErrExpired
	}
	if Generate(id).Answer != *answer {
		return ErrMismatch
	}
	return nil
}

func seeded(s int64) float64 {
	return float64((s*9301+49297)%233280) / 233280
}

// leadingInt parses the leading decimal integer of s, ignoring leading
// whitespace and trailing garbage.
func leadingInt(s string) (int64, bool) {
	s = strings.TrimLeft(s, " \t\n\r")
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0, false
	}
	v, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
