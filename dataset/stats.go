package dataset

import (
	"sort"

	"github.com/pkg/errors"
)

// Dataset-level statistics, independent of the per-instance heatmap pipeline.

// TokenMean is one entry of the average-attribution statistic.
type TokenMean struct {
	Token string
	Mean  float64
}

// AvgAttributionStat calculates the average attribution of each token surface
// string across the whole dataset, sorted descending by mean (ties keep
// first-seen order). Scores of label-0 instances are sign-flipped so they are
// comparable with the other class.
//
// Identical surface strings from different original words merge into one
// entry. That coarsening is intentional: the statistic is about surface
// strings, not word occurrences.
func AvgAttributionStat(p *Pack) ([]TokenMean, error) {
	tok, err := p.Tokenizer()
	if err != nil {
		return nil, err
	}

	type acc struct {
		sum   float64
		count int
		order int
	}
	accs := make(map[string]*acc)
	order := 0

	for i := range p.instances {
		in := &p.instances[i]
		for j, id := range in.InputIDs {
			surface := tok.Decode([]int{id})
			score := in.Attributions[j]
			if in.Label == 0 {
				score = -score
			}
			a, ok := accs[surface]
			if !ok {
				a = &acc{order: order}
				order++
				accs[surface] = a
			}
			a.sum += score
			a.count++
		}
	}

	means := make([]TokenMean, 0, len(accs))
	orders := make(map[string]int, len(accs))
	for surface, a := range accs {
		means = append(means, TokenMean{Token: surface, Mean: a.sum / float64(a.count)})
		orders[surface] = a.order
	}
	sort.SliceStable(means, func(i, j int) bool {
		if means[i].Mean != means[j].Mean {
			return means[i].Mean > means[j].Mean
		}
		return orders[means[i].Token] < orders[means[j].Token]
	})
	return means, nil
}

// AgreementEntry is one entry of the explainer-agreement statistic: one
// non-special token position, keyed by (token, full decoded context,
// position) to disambiguate repeated tokens.
type AgreementEntry struct {
	Token    string
	Context  string
	Position int

	// Dissim is the spread (max minus min) of the explainers' attribution
	// scores at this position.
	Dissim float64

	// Attributions maps explainer name to its score at this position.
	Attributions map[string]float64
}

// ExplainerAgreementStat compares attribution scores between multiple packs
// that hold the same data processed by different explainers (same model,
// same instance ordering, same token ids). Entries are sorted descending by
// spread; special-token positions are excluded.
//
// At least 2 packs are required. Token-id agreement across the packs is
// assumed, not verified; feeding packs of different data is undefined.
func ExplainerAgreementStat(packs []*Pack) ([]AgreementEntry, error) {
	if len(packs) < 2 {
		return nil, errors.Errorf("explainer agreement needs at least 2 datasets, got %d", len(packs))
	}

	tok, err := packs[0].Tokenizer()
	if err != nil {
		return nil, err
	}
	specialIDs := make(map[int]bool)
	for _, id := range tok.SpecialTokenIDs() {
		specialIDs[id] = true
	}

	var entries []AgreementEntry
	for i := range packs[0].instances {
		in := &packs[0].instances[i]
		context := tok.DecodeSkipSpecial(in.InputIDs)

		for pos, id := range in.InputIDs {
			if specialIDs[id] {
				continue
			}
			atts := make(map[string]float64, len(packs))
			var max, min float64
			for pi, pk := range packs {
				score := pk.instances[i].Attributions[pos]
				atts[pk.ExplainerName] = score
				if pi == 0 || score > max {
					max = score
				}
				if pi == 0 || score < min {
					min = score
				}
			}
			entries = append(entries, AgreementEntry{
				Token:        tok.Decode([]int{id}),
				Context:      context,
				Position:     pos,
				Dissim:       max - min,
				Attributions: atts,
			})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Dissim > entries[j].Dissim
	})
	return entries, nil
}
