// Package visualize turns fused, attribution-scored tokens into renderable
// heatmaps: bounded color-intensity normalization, sign-aware color mapping,
// and HTML/terminal rendering.
package visualize

import "math"

// Normalize rescales attribution scores into [-1, 1]: the maximum absolute
// value maps to the range boundary, signs and relative ratios are preserved,
// and zero stays zero. The scaling is purely for color-intensity mapping.
func Normalize(attributions []float64) []float64 {
	maxAbs := 0.0
	for _, a := range attributions {
		if abs := math.Abs(a); abs > maxAbs {
			maxAbs = abs
		}
	}
	out := make([]float64, len(attributions))
	if maxAbs == 0 {
		return out
	}
	for i, a := range attributions {
		out[i] = a / maxAbs
	}
	return out
}

// Flip returns the scores with every sign inverted. Used when the attribution
// convention is label-relative and the predicted class differs from the
// reference orientation.
func Flip(attributions []float64) []float64 {
	out := make([]float64, len(attributions))
	for i, a := range attributions {
		out[i] = -a
	}
	return out
}
