// Package tokenization maps flat token sequences back onto text fields:
// grouping tokens by the separator-token convention and fusing sub-word
// pieces (and their attribution scores) into whole words.
package tokenization

import (
	"github.com/pkg/errors"
)

// TokenEntry is one (position, token) pair of an instance's token sequence.
// Position is the index in the original sequence and stays stable across
// grouping and fusing, so attribution scores can always be looked up by it.
type TokenEntry struct {
	Position int
	Token    string
}

// SpecialSet builds a membership set from special-token surfaces.
func SpecialSet(surfaces []string) map[string]bool {
	set := make(map[string]bool, len(surfaces))
	for _, s := range surfaces {
		set[s] = true
	}
	return set
}

// GroupFields partitions a token sequence into per-text-field groups.
//
// The sequence is split into maximal runs delimited by the separator token
// (or sequence start/end). Runs consisting solely of special tokens are
// discarded: a leading [CLS]-only run or a trailing padding run is structure,
// not content. The surviving runs are assigned, in order, to the declared
// field names; a count mismatch is a configuration error. Within each
// surviving run, special-token entries are filtered out.
func GroupFields(entries []TokenEntry, separator string, specials map[string]bool, fieldNames []string) ([][]TokenEntry, error) {
	var runs [][]TokenEntry
	var current []TokenEntry
	flush := func() {
		if len(current) == 0 {
			return
		}
		allSpecial := true
		for _, e := range current {
			if !specials[e.Token] {
				allSpecial = false
				break
			}
		}
		if !allSpecial {
			runs = append(runs, current)
		}
		current = nil
	}

	for _, e := range entries {
		if e.Token == separator {
			flush()
			continue
		}
		current = append(current, e)
	}
	flush()

	if len(runs) != len(fieldNames) {
		return nil, errors.Errorf("token sequence splits into %d text groups, but %d text fields are declared (%v)",
			len(runs), len(fieldNames), fieldNames)
	}

	groups := make([][]TokenEntry, len(runs))
	for i, run := range runs {
		var kept []TokenEntry
		for _, e := range run {
			if !specials[e.Token] {
				kept = append(kept, e)
			}
		}
		groups[i] = kept
	}
	return groups, nil
}
