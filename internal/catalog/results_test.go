package catalog

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }

func resultFixture() []Result {
	mk := func(name string, year int, season string) Result {
		return Result{
			Anime:    Anime{Name: name, Year: year, Season: season},
			Openings: []Theme{{Type: ThemeOpening, Sequence: 1, Slug: "OP1"}},
		}
	}
	return []Result{
		mk("bleach", 2004, "Fall"),
		mk("Akira", 1988, "Summer"),
		mk("Cowboy Bebop", 1998, "Spring"),
		mk("Unknown Year", 0, ""),
	}
}

func resultNames(rs []Result) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Anime.Name
	}
	return out
}

func TestGroup_KeepsOnlyPlayableOpeningsInSequenceOrder(t *testing.T) {
	video := []Entry{{Videos: []Video{{Link: "https://x/v.webm"}}}}
	items := []Anime{
		{Name: "A", Themes: []Theme{
			{Type: ThemeOpening, Sequence: 2, Entries: video},
			{Type: ThemeEnding, Sequence: 1, Entries: video},
			{Type: ThemeOpening, Sequence: 1, Entries: video},
			{Type: ThemeOpening, Sequence: 3},
		}},
		{Name: "EndingsOnly", Themes: []Theme{{Type: ThemeEnding, Entries: video}}},
	}

	got := Group(items)

	require.Len(t, got, 1)
	require.Len(t, got[0].Openings, 2)
	assert.Equal(t, 1, got[0].Openings[0].Sequence)
	assert.Equal(t, 2, got[0].Openings[1].Sequence)
}

func TestApply_YearBoundsIgnoreUnknownYear(t *testing.T) {
	got := Apply(resultFixture(), Filters{YearMin: intp(1990), YearMax: intp(2000)}, SortRelevance, RatingLookup{})

	assert.Equal(t, []string{"Cowboy Bebop", "Unknown Year"}, resultNames(got))
}

func TestApply_SeasonFilter(t *testing.T) {
	got := Apply(resultFixture(), Filters{Seasons: []string{"summer", "Fall"}}, SortRelevance, RatingLookup{})

	assert.Equal(t, []string{"bleach", "Akira"}, resultNames(got))
}

func TestApply_RatingFilterPrefersLocalRating(t *testing.T) {
	results := resultFixture()
	bleach := ThemeID("bleach", results[0].Openings[0])
	akira := ThemeID("Akira", results[1].Openings[0])
	ratings := RatingLookup{
		Local:  map[string]float64{bleach: 9},
		Public: map[string]RatingSummary{bleach: {Count: 3, Average: 4}, akira: {Count: 1, Average: 8.5}},
	}

	got := Apply(results, Filters{RatingMin: floatp(8)}, SortRelevance, ratings)

	assert.Equal(t, []string{"bleach", "Akira"}, resultNames(got))
}

func TestApply_Sorts(t *testing.T) {
	results := resultFixture()
	ratings := RatingLookup{Public: map[string]RatingSummary{
		ThemeID("Akira", results[1].Openings[0]):        {Count: 10, Average: 7},
		ThemeID("Cowboy Bebop", results[2].Openings[0]): {Count: 2, Average: 9.5},
	}}

	cases := map[SortMode][]string{
		SortRelevance:    {"bleach", "Akira", "Cowboy Bebop", "Unknown Year"},
		SortYearDesc:     {"bleach", "Cowboy Bebop", "Akira", "Unknown Year"},
		SortYearAsc:      {"Unknown Year", "Akira", "Cowboy Bebop", "bleach"},
		SortAlphabetical: {"Akira", "bleach", "Cowboy Bebop", "Unknown Year"},
		SortRatingDesc:   {"Cowboy Bebop", "Akira", "bleach", "Unknown Year"},
		SortRatingAsc:    {"bleach", "Unknown Year", "Akira", "Cowboy Bebop"},
		SortPopularity:   {"Akira", "Cowboy Bebop", "bleach", "Unknown Year"},
	}
	for mode, want := range cases {
		got := Apply(results, Filters{}, mode, ratings)
		assert.Equal(t, want, resultNames(got), string(mode))
	}
}

func TestParseSortMode(t *testing.T) {
	m, err := ParseSortMode("")
	require.NoError(t, err)
	assert.Equal(t, SortRelevance, m)

	m, err = ParseSortMode("Rating-Desc")
	require.NoError(t, err)
	assert.Equal(t, SortRatingDesc, m)

	_, err = ParseSortMode("random")
	assert.Error(t, err)
}

func TestPaginate(t *testing.T) {
	results := resultFixture()

	p := Paginate(results, 2, 3)
	assert.Equal(t, []string{"Unknown Year"}, resultNames(p.Items))
	assert.Equal(t, 4, p.Total)
	assert.Equal(t, 2, p.TotalPages)

	p = Paginate(results, 5, 3)
	assert.Empty(t, p.Items)
	assert.NotNil(t, p.Items)
}

func TestPaginate_HugeValuesDoNotOverflow(t *testing.T) {
	results := resultFixture()

	var p Page
	require.NotPanics(t, func() { p = Paginate(results, math.MaxInt, 20) })
	assert.Empty(t, p.Items)
	assert.Equal(t, math.MaxInt, p.Page)
	assert.Equal(t, 1, p.TotalPages)

	require.NotPanics(t, func() { p = Paginate(results, 1, math.MaxInt) })
	assert.Len(t, p.Items, len(results))
	assert.Equal(t, 1, p.TotalPages)

	require.NotPanics(t, func() { p = Paginate(results, math.MaxInt/2, 3) })
	assert.Empty(t, p.Items)
}

func TestEnglishTitle(t *testing.T) {
	assert.Equal(t, "AoT", EnglishTitle(Anime{Synonyms: []Synonym{
		{Type: SynonymOther, Text: "Attack on Titan"},
		{Type: SynonymEnglishShort, Text: "AoT"},
	}}))
	assert.Equal(t, "Attack on Titan", EnglishTitle(Anime{Synonyms: []Synonym{
		{Type: SynonymOther, Text: "進撃の巨人"},
		{Type: SynonymOther, Text: "Attack on Titan"},
	}}))
	assert.Equal(t, "進撃の巨人", EnglishTitle(Anime{Synonyms: []Synonym{
		{Type: SynonymOther, Text: "進撃の巨人"},
	}}))
	assert.Equal(t, "", EnglishTitle(Anime{}))
}
