package catalog

import (
	"context"
	"errors"
)

var ErrThemeNotFound = errors.New("opening not found")

// PlayTarget identifies the opening to play. Sequence wins over Slug.
type PlayTarget struct {
	AnimeSlug string
	Sequence  *int
	ThemeSlug string
}

// Playable is a resolved opening ready for the player.
type Playable struct {
	Anime    Anime  `json:"anime"`
	Theme    Theme  `json:"theme"`
	ThemeID  string `json:"themeId"`
	VideoURL string `json:"videoUrl"`
	Title    string `json:"englishTitle,omitempty"`
}

type AnimeLookup interface {
	AnimeBySlug(ctx context.Context, slug string) (Anime, error)
}

// Locate fetches the anime and picks the requested opening: by sequence,
// else by theme slug, else the first opening.
func Locate(ctx context.Context, lookup AnimeLookup, target PlayTarget, mediaBase string) (Playable, error) {
	anime, err := lookup.AnimeBySlug(ctx, target.AnimeSlug)
	if err != nil {
		return Playable{}, err
	}

	var openings []Theme
	for _, t := range anime.Themes {
		if t.Type == ThemeOpening {
			openings = append(openings, t)
		}
	}
	if len(openings) == 0 {
		return Playable{}, ErrThemeNotFound
	}

	theme, found := openings[0], false
	for _, t := range openings {
		if target.Sequence != nil && t.Sequence == *target.Sequence {
			theme, found = t, true
			break
		}
	}
	if !found && target.Sequence == nil && target.ThemeSlug != "" {
		for _, t := range openings {
			if t.Slug == target.ThemeSlug {
				theme = t
				break
			}
		}
	}

	return NewPlayable(anime, theme, mediaBase)
}

// NewPlayable resolves theme's best video into a Playable.
func NewPlayable(anime Anime, theme Theme, mediaBase string) (Playable, error) {
	videoURL, err := BestVideo(theme, mediaBase)
	if err != nil {
		return Playable{}, err
	}
	return Playable{
		Anime:    anime,
		Theme:    theme,
		ThemeID:  ThemeID(anime.Name, theme),
		VideoURL: videoURL,
		Title:    EnglishTitle(anime),
	}, nil
}
