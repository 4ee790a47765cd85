// Package dataset loads attribution datasets and exposes the per-instance
// post-processing pipeline: label alignment at load, token grouping by text
// field, sub-word fusion, normalization and heatmap construction, plus the
// dataset-level statistics.
package dataset

import (
	"github.com/pkg/errors"
)

// Instance is one raw data point: the token ids of the model input, the
// index-aligned attribution scores produced by an explainer, the true label,
// and the model's prediction scores.
//
// Instances are read-only external input; all derived structures live on the
// Unit wrapping the instance.
type Instance struct {
	Idx          int
	InputIDs     []int
	Attributions []float64
	Label        int
	Predictions  []float64
}

// Validate checks the instance invariants: token ids and attribution scores
// must be index-aligned and the prediction vector non-empty. Violating
// instances are rejected at ingestion, before any grouping.
func (in *Instance) Validate() error {
	if len(in.InputIDs) != len(in.Attributions) {
		return errors.Errorf("instance %d: %d token ids but %d attribution scores",
			in.Idx, len(in.InputIDs), len(in.Attributions))
	}
	if len(in.Predictions) == 0 {
		return errors.Errorf("instance %d: empty prediction vector", in.Idx)
	}
	return nil
}

// argmax returns the index of the maximum value; first occurrence wins.
func argmax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}
