package tokenization

import (
	"math"
	"strings"

	"github.com/pkg/errors"
)

// FuseStrategy selects how sub-word pieces are merged into words.
type FuseStrategy int

const (
	// FuseNone surfaces sub-word pieces independently, no merging.
	FuseNone FuseStrategy = iota
	// FuseSalient merges the pieces of one word; the fused attribution is
	// the piece value with maximum absolute magnitude, so a strongly
	// attributed sub-piece is not diluted by averaging.
	FuseSalient
)

// ParseStrategy parses a strategy name ("none" or "salient").
func ParseStrategy(name string) (FuseStrategy, error) {
	switch name {
	case "none", "":
		return FuseNone, nil
	case "salient":
		return FuseSalient, nil
	default:
		return FuseNone, errors.Errorf("unknown fuse strategy %q (valid: none, salient)", name)
	}
}

// String implements fmt.Stringer.
func (s FuseStrategy) String() string {
	switch s {
	case FuseNone:
		return "none"
	case FuseSalient:
		return "salient"
	default:
		return "invalid"
	}
}

// SubwordCodec exposes a tokenizer's sub-word boundary convention: whether a
// piece continues the previous word, and the piece's displayable surface with
// word markers stripped. api.Detokenizer satisfies it.
type SubwordCodec interface {
	IsContinuation(piece string) bool
	Surface(piece string) string
}

// Fuse merges sub-word pieces and their aligned attribution scores into
// whole-word units under the given strategy. tokens and attributions must
// have the same length; the output slices always do.
func Fuse(tokens []string, attributions []float64, codec SubwordCodec, strategy FuseStrategy) ([]string, []float64, error) {
	if len(tokens) != len(attributions) {
		return nil, nil, errors.Errorf("got %d tokens but %d attribution scores", len(tokens), len(attributions))
	}
	if strategy == FuseNone {
		outTokens := append([]string(nil), tokens...)
		outAtts := append([]float64(nil), attributions...)
		return outTokens, outAtts, nil
	}

	var fusedTokens []string
	var fusedAtts []float64
	var word strings.Builder
	var att float64

	flush := func() {
		if word.Len() == 0 {
			return
		}
		fusedTokens = append(fusedTokens, word.String())
		fusedAtts = append(fusedAtts, att)
		word.Reset()
	}

	for i, piece := range tokens {
		if i == 0 || !codec.IsContinuation(piece) {
			flush()
			att = attributions[i]
		} else if math.Abs(attributions[i]) > math.Abs(att) {
			// Most salient piece wins.
			att = attributions[i]
		}
		word.WriteString(codec.Surface(piece))
	}
	flush()

	return fusedTokens, fusedAtts, nil
}
