package leaderboard

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ThemeID
	}
	return out
}

func TestBuild_PrefersPublicAggregates(t *testing.T) {
	in := Input{
		Public: map[string]Public{
			"Naruto_OP_1_OP1": {Count: 3, Average: 7.5},
			"Bleach_OP_1_OP1": {Count: 1, Average: 9},
		},
		Local: map[string]float64{"Local_OP_1_OP1": 10},
	}

	got := Build(in, 10)

	assert.Equal(t, []string{"Bleach_OP_1_OP1", "Naruto_OP_1_OP1"}, ids(got))
	assert.Equal(t, 1, got[0].Rank)
	assert.Equal(t, int64(1), got[0].Count)
}

func TestBuild_FallsBackToLocal(t *testing.T) {
	in := Input{Local: map[string]float64{"A_OP_1_": 4, "B_OP_1_": 8}}

	got := Build(in, 10)

	assert.Equal(t, []string{"B_OP_1_", "A_OP_1_"}, ids(got))
}

func TestBuild_SkipsNonPositiveAndCaps(t *testing.T) {
	local := map[string]float64{"zero_OP_1_": 0}
	for i := 0; i < 15; i++ {
		local[fmt.Sprintf("T%02d_OP_1_", i)] = float64(i%10) + 0.5
	}

	got := Build(Input{Local: local}, 10)

	require.Len(t, got, 10)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Rating, got[i].Rating)
	}
	assert.NotContains(t, ids(got), "zero_OP_1_")
}

func TestBuild_TiesKeepThemeIDOrder(t *testing.T) {
	got := Build(Input{Local: map[string]float64{"c": 5, "a": 5, "b": 5}}, 10)

	assert.Equal(t, []string{"a", "b", "c"}, ids(got))
}

func TestBuild_DisplayNameAndLabel(t *testing.T) {
	in := Input{
		Local: map[string]float64{
			"Named_OP_2_OP2":           6,
			"Fate_stay_night_OP_1_OP1": 7,
			"Shingeki no Kyojin_OP_3_": 8,
		},
		Metadata: map[string]Metadata{
			"Named_OP_2_OP2":           {AnimeName: "Display Name", ThemeSequence: 2, ThemeSlug: "OP2"},
			"Fate_stay_night_OP_1_OP1": {AnimeName: "Fate/stay night"},
		},
	}

	got := Build(in, 10)

	require.Len(t, got, 3)
	assert.Equal(t, "Shingeki no Kyojin", got[0].AnimeName)
	assert.Equal(t, "OP1", got[0].ThemeLabel)
	assert.Equal(t, "Fate/stay night", got[1].AnimeName)
	assert.Equal(t, "Display Name", got[2].AnimeName)
	assert.Equal(t, "OP2", got[2].ThemeLabel)
}

func TestBuild_Empty(t *testing.T) {
	assert.Empty(t, Build(Input{}, 10))
}
