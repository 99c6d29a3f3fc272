// Package leaderboard ranks rated openings.
package leaderboard

import (
	"fmt"
	"sort"
	"strings"
)

const DefaultSize = 10

// Public is the server-side aggregate for one theme.
type Public struct {
	Count     int64   `json:"count"`
	Average   float64 `json:"average"`
	AnimeName string  `json:"animeName,omitempty"`
}

// Metadata is what was recorded about a theme when it was rated.
type Metadata struct {
	AnimeName     string `json:"animeName,omitempty"`
	AnimeSlug     string `json:"animeSlug,omitempty"`
	ThemeSequence int    `json:"themeSequence,omitempty"`
	ThemeSlug     string `json:"themeSlug,omitempty"`
}

// Input carries both rating sources. Public wins whenever it is non-empty;
// Local is the caller's own ratings, used when the server has nothing.
type Input struct {
	Public   map[string]Public
	Local    map[string]float64
	Metadata map[string]Metadata
}

type Entry struct {
	Rank          int     `json:"rank"`
	ThemeID       string  `json:"themeId"`
	AnimeName     string  `json:"animeName"`
	AnimeSlug     string  `json:"animeSlug,omitempty"`
	ThemeSequence int     `json:"themeSequence"`
	ThemeLabel    string  `json:"themeLabel"`
	Rating        float64 `json:"rating"`
	Count         int64   `json:"count,omitempty"`
}

// Build returns the n highest-rated themes, best first. Ratings of zero or
// less are left out. Equal ratings keep theme id order.
func Build(in Input, n int) []Entry {
	if n <= 0 {
		n = DefaultSize
	}

	scores := make(map[string]float64)
	if len(in.Public) > 0 {
		for id, p := range in.Public {
			scores[id] = p.Average
		}
	} else {
		for id, v := range in.Local {
			scores[id] = v
		}
	}

	ids := make([]string, 0, len(scores))
	for id, v := range scores {
		if v > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	sort.SliceStable(ids, func(i, j int) bool {
		return scores[ids[i]] > scores[ids[j]]
	})
	if len(ids) > n {
		ids = ids[:n]
	}

	out := make([]Entry, 0, len(ids))
	for i, id := range ids {
		meta := in.Metadata[id]
		pub := in.Public[id]
		seq := meta.ThemeSequence
		if seq == 0 {
			seq = 1
		}
		label := meta.ThemeSlug
		if label == "" {
			label = fmt.Sprintf("OP%d", seq)
		}
		out = append(out, Entry{
			Rank:          i + 1,
			ThemeID:       id,
			AnimeName:     displayName(id, pub, meta),
			AnimeSlug:     meta.AnimeSlug,
			ThemeSequence: seq,
			ThemeLabel:    label,
			Rating:        scores[id],
			Count:         pub.Count,
		})
	}
	return out
}

func displayName(id string, pub Public, meta Metadata) string {
	if pub.AnimeName != "" {
		return pub.AnimeName
	}
	if meta.AnimeName != "" {
		return meta.AnimeName
	}
	if name, _, _ := strings.Cut(id, "_"); name != "" {
		return name
	}
	return "Unknown"
}
