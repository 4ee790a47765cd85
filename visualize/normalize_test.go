package visualize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	got := Normalize([]float64{-2, 1, 4})
	assert.Equal(t, []float64{-0.5, 0.25, 1}, got)
}

func TestNormalize_PreservesSignsAndRatios(t *testing.T) {
	in := []float64{-3, 1.5, 0, -6}
	got := Normalize(in)
	assert.Equal(t, []float64{-0.5, 0.25, 0, -1}, got)
	// Input untouched.
	assert.Equal(t, []float64{-3, 1.5, 0, -6}, in)
}

func TestNormalize_AllZeros(t *testing.T) {
	got := Normalize([]float64{0, 0, 0})
	assert.Equal(t, []float64{0, 0, 0}, got)
}

func TestNormalize_Empty(t *testing.T) {
	assert.Empty(t, Normalize(nil))
}

func TestFlip(t *testing.T) {
	got := Flip([]float64{-0.5, 0, 1.25})
	assert.Equal(t, []float64{0.5, 0, -1.25}, got)
}
