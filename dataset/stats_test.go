package dataset

import (
	"testing"

	"github.com/heatlens/heatlens/configs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAvgAttributionStat(t *testing.T) {
	// Two instances of the same single-token text; the label-0 instance's
	// score is sign-flipped before averaging.
	p := newTestPack(t, []Instance{
		{
			Idx:          0,
			InputIDs:     []int{101, 10, 102}, // [CLS] good [SEP]
			Attributions: []float64{0, 0.5, 0},
			Label:        1,
			Predictions:  []float64{0.2, 0.8},
		},
		{
			Idx:          1,
			InputIDs:     []int{101, 10, 102},
			Attributions: []float64{0, 0.3, 0},
			Label:        0,
			Predictions:  []float64{0.9, 0.1},
		},
	})

	means, err := AvgAttributionStat(p)
	require.NoError(t, err)
	require.Len(t, means, 3) // good, [CLS], [SEP]

	// (0.5 - 0.3) / 2; sorted descending, so "good" comes first.
	assert.Equal(t, "good", means[0].Token)
	assert.InDelta(t, 0.1, means[0].Mean, 1e-9)

	// Specials average to zero; ties keep first-seen order.
	assert.Equal(t, "[CLS]", means[1].Token)
	assert.Equal(t, "[SEP]", means[2].Token)
	assert.InDelta(t, 0, means[1].Mean, 1e-9)
}

func TestAvgAttributionStat_MergesSurfaceStrings(t *testing.T) {
	// The same token id in two instances accumulates into one entry.
	p := newTestPack(t, []Instance{
		{
			Idx:          0,
			InputIDs:     []int{11}, // bad
			Attributions: []float64{0.4},
			Label:        1,
			Predictions:  []float64{0.5, 0.5},
		},
		{
			Idx:          1,
			InputIDs:     []int{11},
			Attributions: []float64{0.2},
			Label:        1,
			Predictions:  []float64{0.5, 0.5},
		},
	})

	means, err := AvgAttributionStat(p)
	require.NoError(t, err)
	require.Len(t, means, 1)
	assert.Equal(t, "bad", means[0].Token)
	assert.InDelta(t, 0.3, means[0].Mean, 1e-9)
}

// agreementPack builds a pack for the given explainer name over fixed ids.
func agreementPack(t *testing.T, explainer string, attributions []float64) *Pack {
	cfg, err := configs.Get("imdb-bert-lig")
	require.NoError(t, err)
	desc := "Dataset: imdb\nModel: bert-base-cased\nExplainer: " + explainer + "\n"
	in := Instance{
		InputIDs:     []int{101, 10, 11, 102}, // [CLS] good bad [SEP]
		Attributions: attributions,
		Label:        1,
		Predictions:  []float64{0.2, 0.8},
	}
	p, err := NewPack(cfg, desc, nil, []Instance{in})
	require.NoError(t, err)
	return p.WithTokenizer(newTestTokenizer(t))
}

func TestExplainerAgreementStat(t *testing.T) {
	packs := []*Pack{
		agreementPack(t, "LIG", []float64{0, 0.5, 0.2, 0}),
		agreementPack(t, "LIME", []float64{0, 0.1, 0.4, 0}),
	}

	entries, err := ExplainerAgreementStat(packs)
	require.NoError(t, err)
	// One entry per non-special position: the [CLS] and [SEP] positions are
	// excluded.
	require.Len(t, entries, 2)

	// Sorted descending by spread: "good" spreads 0.4, "bad" 0.2.
	assert.Equal(t, "good", entries[0].Token)
	assert.Equal(t, 1, entries[0].Position)
	assert.InDelta(t, 0.4, entries[0].Dissim, 1e-9)
	assert.Equal(t, "good bad", entries[0].Context)
	assert.InDelta(t, 0.5, entries[0].Attributions["LIG"], 1e-9)
	assert.InDelta(t, 0.1, entries[0].Attributions["LIME"], 1e-9)

	assert.Equal(t, "bad", entries[1].Token)
	assert.Equal(t, 2, entries[1].Position)
	assert.InDelta(t, 0.2, entries[1].Dissim, 1e-9)
}

func TestExplainerAgreementStat_SinglePosition(t *testing.T) {
	// With one non-special position the statistic has exactly one entry and
	// the spread is |a - b|.
	lig := agreementPack(t, "LIG", []float64{0, 0.7, 0, 0})
	lime := agreementPack(t, "LIME", []float64{0, -0.1, 0, 0})
	lig.Instances()[0].InputIDs = []int{101, 10, 102, 0}
	lime.Instances()[0].InputIDs = []int{101, 10, 102, 0}

	entries, err := ExplainerAgreementStat([]*Pack{lig, lime})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "good", entries[0].Token)
	assert.InDelta(t, 0.8, entries[0].Dissim, 1e-9)
}

func TestExplainerAgreementStat_NeedsTwoPacks(t *testing.T) {
	p := agreementPack(t, "LIG", []float64{0, 0.5, 0.2, 0})

	_, err := ExplainerAgreementStat([]*Pack{p})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 2 datasets, got 1")

	_, err = ExplainerAgreementStat(nil)
	require.Error(t, err)
}
