package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticLookup map[string]Anime

func (s staticLookup) AnimeBySlug(ctx context.Context, slug string) (Anime, error) {
	a, ok := s[slug]
	if !ok {
		return Anime{}, ErrAnimeNotFound
	}
	return a, nil
}

func locateFixture() staticLookup {
	op := func(seq int, slug string) Theme {
		t := themeWith(Video{Link: "https://x/" + slug + ".webm"})
		t.Sequence, t.Slug = seq, slug
		return t
	}
	return staticLookup{"naruto": {Name: "Naruto", Slug: "naruto", Themes: []Theme{
		{Type: ThemeEnding, Sequence: 1, Slug: "ED1"},
		op(1, "OP1"),
		op(2, "OP2"),
	}}}
}

func TestLocate_BySequence(t *testing.T) {
	seq := 2
	p, err := Locate(context.Background(), locateFixture(), PlayTarget{AnimeSlug: "naruto", Sequence: &seq}, "")

	require.NoError(t, err)
	assert.Equal(t, "https://x/OP2.webm", p.VideoURL)
	assert.Equal(t, "Naruto_OP_2_OP2", p.ThemeID)
}

func TestLocate_BySlug(t *testing.T) {
	p, err := Locate(context.Background(), locateFixture(), PlayTarget{AnimeSlug: "naruto", ThemeSlug: "OP2"}, "")

	require.NoError(t, err)
	assert.Equal(t, 2, p.Theme.Sequence)
}

func TestLocate_FallsBackToFirstOpening(t *testing.T) {
	seq := 9
	p, err := Locate(context.Background(), locateFixture(), PlayTarget{AnimeSlug: "naruto", Sequence: &seq}, "")

	require.NoError(t, err)
	assert.Equal(t, "OP1", p.Theme.Slug)
}

func TestLocate_UnknownAnime(t *testing.T) {
	_, err := Locate(context.Background(), locateFixture(), PlayTarget{AnimeSlug: "nope"}, "")

	assert.ErrorIs(t, err, ErrAnimeNotFound)
}
