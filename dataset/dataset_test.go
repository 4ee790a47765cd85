package dataset

import (
	"testing"

	"github.com/heatlens/heatlens/configs"
	"github.com/heatlens/heatlens/tokenizers/hftokenizer"
	"github.com/stretchr/testify/require"
)

// Shared fixtures: a miniature WordPiece tokenizer and pack constructors.

const testTokenizerJSON = `{
	"added_tokens": [
		{"id": 0, "content": "[PAD]", "special": true},
		{"id": 100, "content": "[UNK]", "special": true},
		{"id": 101, "content": "[CLS]", "special": true},
		{"id": 102, "content": "[SEP]", "special": true}
	],
	"normalizer": {"type": "BertNormalizer", "lowercase": true},
	"pre_tokenizer": {"type": "BertPreTokenizer"},
	"decoder": {"type": "WordPiece", "prefix": "##"},
	"model": {
		"type": "WordPiece",
		"unk_token": "[UNK]",
		"continuing_subword_prefix": "##",
		"vocab": {
			"the": 5, "movie": 6, "was": 7,
			"un": 8, "##happy": 9,
			"good": 10, "bad": 11,
			"a": 12, "b": 13
		}
	}
}`

const testDescription = "IMDb attribution dataset.\n" +
	"Dataset: imdb\nModel: bert-base-cased\nExplainer: LayerIntegratedGradients\n"

func newTestTokenizer(t *testing.T) *hftokenizer.Tokenizer {
	tok, err := hftokenizer.NewFromContent(nil, []byte(testTokenizerJSON))
	require.NoError(t, err)
	return tok
}

// newTestPack builds an imdb pack around the given instances, with the test
// tokenizer injected so nothing touches the network.
func newTestPack(t *testing.T, instances []Instance) *Pack {
	cfg, err := configs.Get("imdb-bert-lig")
	require.NoError(t, err)
	p, err := NewPack(cfg, testDescription, nil, instances)
	require.NoError(t, err)
	return p.WithTokenizer(newTestTokenizer(t))
}

// testInstance is "[CLS] un ##happy movie [SEP]" with a positive prediction.
func testInstance() Instance {
	return Instance{
		Idx:          0,
		InputIDs:     []int{101, 8, 9, 6, 102},
		Attributions: []float64{0, 0.1, 0.9, -0.45, 0},
		Label:        1,
		Predictions:  []float64{0.2, 0.8},
	}
}
