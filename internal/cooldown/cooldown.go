// Package cooldown gates repeated actions per key, e.g. searches per client
// or rating changes per theme.
package cooldown

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// sweepThreshold is the key count above which Allow drops idle keys.
const sweepThreshold = 4096

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Gate admits one action per key per window.
type Gate struct {
	window time.Duration

	mu   sync.Mutex
	keys map[string]*entry
}

func New(window time.Duration) *Gate {
	return &Gate{window: window, keys: make(map[string]*entry)}
}

// Allow reports whether key may act at now. When it may not, remaining is
// how long until it can.
func (g *Gate) Allow(key string, now time.Time) (ok bool, remaining time.Duration) {
	if g.window <= 0 {
		return true, 0
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	e, found := g.keys[key]
	if !found {
		if len(g.keys) >= sweepThreshold {
			g.sweepLocked(now)
		}
		e = &entry{limiter: rate.NewLimiter(rate.Every(g.window), 1)}
		g.keys[key] = e
	}
	e.lastSeen = now

	r := e.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, g.window
	}
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return false, d
	}
	return true, 0
}

// Sweep forgets keys idle for longer than the window.
func (g *Gate) Sweep(now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sweepLocked(now)
}

func (g *Gate) sweepLocked(now time.Time) {
	for k, e := range g.keys {
		if now.Sub(e.lastSeen) > g.window {
			delete(g.keys, k)
		}
	}
}

func (g *Gate) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.keys)
}

// WaitMessage formats the notice shown when a search is rejected.
func WaitMessage(remaining time.Duration) string {
	return fmt.Sprintf("Please wait %.1fs before searching again", remaining.Seconds())
}
