package player

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayer_HappyPath(t *testing.T) {
	var seen []State
	p := New(WithObserver(func(from, to State) { seen = append(seen, to) }))
	cleaned := 0

	p.Load("https://v.animethemes.moe/a.webm", func() { cleaned++ })
	require.NoError(t, p.Report(Progress{Position: 0, BufferedEnd: 1, Duration: 90}))
	assert.Equal(t, Buffering, p.State())

	require.NoError(t, p.Report(Progress{Position: 0, BufferedEnd: 3, Duration: 90}))
	assert.Equal(t, Playing, p.State())

	require.NoError(t, p.Pause())
	require.NoError(t, p.Play())
	require.NoError(t, p.Report(Progress{Position: 10, BufferedEnd: 20, Duration: 90}))
	assert.Equal(t, Playing, p.State())

	p.Close()

	assert.Equal(t, Idle, p.State())
	assert.Equal(t, "", p.URL())
	assert.Equal(t, 1, cleaned)
	assert.Equal(t, []State{Loading, Buffering, Playing, Paused, Buffering, Playing, Idle}, seen)
}

func TestPlayer_StallsWhenBufferCritical(t *testing.T) {
	p := New()
	p.Load("u", nil)
	require.NoError(t, p.Report(Progress{BufferedEnd: 5, Duration: 90}))

	require.NoError(t, p.Report(Progress{Position: 4.5, BufferedEnd: 5, Duration: 90}))

	assert.Equal(t, Buffering, p.State())
}

func TestPlayer_NearEndCountsAsBuffered(t *testing.T) {
	p := New()
	p.Load("u", nil)

	require.NoError(t, p.Report(Progress{Position: 88, BufferedEnd: 89.5, Duration: 90}))
	assert.Equal(t, Playing, p.State())

	// nothing left to buffer, so no stall
	require.NoError(t, p.Report(Progress{Position: 89.5, BufferedEnd: 90, Duration: 90}))
	assert.Equal(t, Playing, p.State())
}

func TestPlayer_FailRunsCleanupOnce(t *testing.T) {
	p := New()
	cleaned := 0
	p.Load("u", func() { cleaned++ })

	require.NoError(t, p.Fail(errors.New("decode error")))
	p.Close()

	assert.Equal(t, Idle, p.State())
	assert.Equal(t, 1, cleaned)
}

func TestPlayer_ErrorKeepsCause(t *testing.T) {
	p := New()
	p.Load("u", nil)
	cause := errors.New("network")

	require.NoError(t, p.Fail(cause))

	assert.Equal(t, Error, p.State())
	assert.ErrorIs(t, p.Err(), cause)
	assert.ErrorIs(t, p.Play(), ErrInvalidTransition)
}

func TestPlayer_ReloadCleansPreviousSession(t *testing.T) {
	p := New()
	var cleaned []string
	p.Load("first", func() { cleaned = append(cleaned, "first") })
	require.NoError(t, p.Report(Progress{BufferedEnd: 10, Duration: 90}))

	p.Load("second", func() { cleaned = append(cleaned, "second") })

	assert.Equal(t, Loading, p.State())
	assert.Equal(t, "second", p.URL())
	assert.Equal(t, []string{"first"}, cleaned)
}

func TestPlayer_InvalidTransitions(t *testing.T) {
	p := New()

	assert.ErrorIs(t, p.Play(), ErrInvalidTransition)
	assert.ErrorIs(t, p.Pause(), ErrInvalidTransition)
	assert.ErrorIs(t, p.Fire(EventLoad), ErrInvalidTransition)

	p.Close()
	assert.Equal(t, Idle, p.State())
}

func TestHealthy(t *testing.T) {
	assert.True(t, Healthy(Progress{Position: 0, BufferedEnd: 5, Duration: 90}))
	assert.False(t, Healthy(Progress{Position: 0, BufferedEnd: 4, Duration: 90}))
	assert.True(t, Healthy(Progress{Position: 80, BufferedEnd: 90, Duration: 90}))
}
