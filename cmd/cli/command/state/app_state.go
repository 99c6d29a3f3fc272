// Package state persists what the CLI remembers between runs.
package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"kaimaku/internal/leaderboard"
)

// AppState is the client-side state: the caller's ratings, what was known
// about each rated theme, and the timestamps the cooldowns read.
type AppState struct {
	Ratings    map[string]float64              `json:"ratings"`
	Metadata   map[string]leaderboard.Metadata `json:"metadata"`
	LastSearch time.Time                       `json:"last_search"`
	LastRating map[string]time.Time            `json:"last_rating"`

	path string
}

func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".kaimaku", "state.json")
}

// Load reads the state file. A missing file yields an empty state bound to
// path.
func Load(path string) (*AppState, error) {
	s := empty(path)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}
	s.fill()
	return s, nil
}

func empty(path string) *AppState {
	s := &AppState{path: path}
	s.fill()
	return s
}

func (s *AppState) fill() {
	if s.Ratings == nil {
		s.Ratings = make(map[string]float64)
	}
	if s.Metadata == nil {
		s.Metadata = make(map[string]leaderboard.Metadata)
	}
	if s.LastRating == nil {
		s.LastRating = make(map[string]time.Time)
	}
}

// Save writes the state through a temp file so a crash never leaves a
// half-written file behind.
func (s *AppState) Save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// AllowSearch reports whether window has passed since the last search, and
// how long is left when it has not.
func (s *AppState) AllowSearch(now time.Time, window time.Duration) (bool, time.Duration) {
	if s.LastSearch.IsZero() {
		return true, 0
	}
	if elapsed := now.Sub(s.LastSearch); elapsed < window {
		return false, window - elapsed
	}
	return true, 0
}

func (s *AppState) MarkSearch(now time.Time) {
	s.LastSearch = now
}

// AllowRating reports whether themeID may be rated again at now.
func (s *AppState) AllowRating(themeID string, now time.Time, window time.Duration) bool {
	last, ok := s.LastRating[themeID]
	return !ok || now.Sub(last) >= window
}

// RecordRating stores a rating and its metadata. Empty metadata fields keep
// what was already known.
func (s *AppState) RecordRating(themeID string, value float64, meta leaderboard.Metadata, now time.Time) {
	s.Ratings[themeID] = value
	s.LastRating[themeID] = now

	s.Metadata[themeID] = merge(s.Metadata[themeID], meta)
}

// merge overlays the non-empty fields of next onto prev.
func merge(prev, next leaderboard.Metadata) leaderboard.Metadata {
	if next.AnimeName == "" {
		next.AnimeName = prev.AnimeName
	}
	if next.AnimeSlug == "" {
		next.AnimeSlug = prev.AnimeSlug
	}
	if next.ThemeSequence == 0 {
		next.ThemeSequence = prev.ThemeSequence
	}
	if next.ThemeSlug == "" {
		next.ThemeSlug = prev.ThemeSlug
	}
	return next
}

// ReplaceRatings swaps the ratings cache for the server's copy. Metadata is
// merged so locally known names survive.
func (s *AppState) ReplaceRatings(ratings map[string]float64, meta map[string]leaderboard.Metadata) {
	s.Ratings = make(map[string]float64, len(ratings))
	for id, v := range ratings {
		s.Ratings[id] = v
	}
	for id, m := range meta {
		s.Metadata[id] = merge(s.Metadata[id], m)
	}
}

// Leaderboard ranks the local ratings.
func (s *AppState) Leaderboard(n int) []leaderboard.Entry {
	return leaderboard.Build(leaderboard.Input{Local: s.Ratings, Metadata: s.Metadata}, n)
}
