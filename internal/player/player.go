// Package player models the playback lifecycle of one opening as a state
// machine. Whatever resources a load acquires are released by a single
// cleanup hook, run exactly once when the session leaves for Idle or Error
// or is replaced by another load.
package player

import (
	"errors"
	"fmt"
	"sync"
)

type State int

const (
	Idle State = iota
	Loading
	Buffering
	Playing
	Paused
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Buffering:
		return "buffering"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type Event int

const (
	EventLoad Event = iota
	EventBuffered
	EventStall
	EventPlay
	EventPause
	EventFail
	EventClose
)

func (e Event) String() string {
	return [...]string{"load", "buffered", "stall", "play", "pause", "fail", "close"}[e]
}

// Buffer thresholds in seconds of media ahead of the playhead.
const (
	MinBufferAhead    = 3.0
	TargetBufferAhead = 5.0
	CriticalBuffer    = 1.0
)

var ErrInvalidTransition = errors.New("invalid player transition")

// transitions lists, per state, where each accepted event leads. Load and
// Close are accepted everywhere and handled separately.
var transitions = map[State]map[Event]State{
	Loading: {
		EventBuffered: Playing,
		EventStall:    Buffering,
		EventPause:    Paused,
		EventFail:     Error,
	},
	Buffering: {
		EventBuffered: Playing,
		EventStall:    Buffering,
		EventPause:    Paused,
		EventFail:     Error,
	},
	Playing: {
		EventStall: Buffering,
		EventPause: Paused,
		EventFail:  Error,
	},
	Paused: {
		EventPlay:     Buffering,
		EventBuffered: Paused,
		EventStall:    Paused,
		EventFail:     Error,
	},
	Error: {},
	Idle:  {},
}

// Progress is a buffer report from the media backend, in seconds.
type Progress struct {
	Position    float64
	BufferedEnd float64
	Duration    float64
}

func (p Progress) ahead() float64 { return p.BufferedEnd - p.Position }

// nearEnd reports whether the rest of the clip is already buffered.
func (p Progress) nearEnd(fraction float64) bool {
	return p.Duration > 0 && p.BufferedEnd >= p.Duration*fraction
}

type Player struct {
	mu       sync.Mutex
	state    State
	url      string
	err      error
	cleanup  func()
	onChange func(from, to State)
}

type Option func(*Player)

// WithObserver registers a callback run after every state change, outside
// the player's lock.
func WithObserver(fn func(from, to State)) Option {
	return func(p *Player) { p.onChange = fn }
}

func New(opts ...Option) *Player {
	p := &Player{state: Idle}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Player) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

// Err returns the failure that moved the player into Error.
func (p *Player) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Load starts a new session for url. A running session is cleaned up
// first. cleanup may be nil.
func (p *Player) Load(url string, cleanup func()) {
	p.mu.Lock()
	from := p.state
	prev := p.takeCleanup()
	p.state, p.url, p.err, p.cleanup = Loading, url, nil, cleanup
	p.mu.Unlock()

	runCleanup(prev)
	p.notify(from, Loading)
}

// Report feeds a buffer measurement. Playback starts once MinBufferAhead
// seconds are buffered or the clip is buffered to 95%; a playing clip with
// less than CriticalBuffer ahead falls back to Buffering.
func (p *Player) Report(pr Progress) error {
	p.mu.Lock()
	state := p.state
	p.mu.Unlock()

	switch state {
	case Loading, Buffering, Paused:
		if pr.ahead() >= MinBufferAhead || pr.nearEnd(0.95) {
			return p.Fire(EventBuffered)
		}
		if state == Loading {
			return p.Fire(EventStall)
		}
	case Playing:
		if pr.ahead() < CriticalBuffer && !pr.nearEnd(0.99) {
			return p.Fire(EventStall)
		}
	}
	return nil
}

// Healthy reports whether playback holds the target buffer.
func Healthy(pr Progress) bool {
	return pr.ahead() >= TargetBufferAhead || pr.nearEnd(0.99)
}

func (p *Player) Play() error  { return p.Fire(EventPlay) }
func (p *Player) Pause() error { return p.Fire(EventPause) }

// Fail moves the session into Error and releases its resources.
func (p *Player) Fail(err error) error {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
	return p.Fire(EventFail)
}

// Close ends the session. Closing an idle player is a no-op.
func (p *Player) Close() {
	_ = p.Fire(EventClose)
}

// Fire applies ev to the current state.
func (p *Player) Fire(ev Event) error {
	p.mu.Lock()
	from := p.state

	var to State
	switch ev {
	case EventClose:
		to = Idle
	case EventLoad:
		p.mu.Unlock()
		return fmt.Errorf("%w: use Load", ErrInvalidTransition)
	default:
		next, ok := transitions[from][ev]
		if !ok {
			p.mu.Unlock()
			return fmt.Errorf("%w: %s on %s", ErrInvalidTransition, ev, from)
		}
		to = next
	}

	var cleanup func()
	if to == Idle || to == Error {
		cleanup = p.takeCleanup()
		if to == Idle {
			p.url, p.err = "", nil
		}
	}
	p.state = to
	p.mu.Unlock()

	runCleanup(cleanup)
	if from != to {
		p.notify(from, to)
	}
	return nil
}

func (p *Player) takeCleanup() func() {
	c := p.cleanup
	p.cleanup = nil
	return c
}

func (p *Player) notify(from, to State) {
	if p.onChange != nil {
		p.onChange(from, to)
	}
}

func runCleanup(c func()) {
	if c != nil {
		c()
	}
}
