package visualize

import (
	"math"
	"strconv"

	"github.com/lucasb-eyer/go-colorful"
)

// ColorToken is one fused token with its aggregated attribution score and
// owning text field. It carries no color; that is assigned by NewHeatmap.
type ColorToken struct {
	Token       string
	Attribution float64
	TextField   string
}

// HeatmapEntry is one color-annotated token of a rendered text field.
// Attribution is rounded to the heatmap's precision so that tokens with the
// same displayed value share one legend entry.
type HeatmapEntry struct {
	Token       string
	Color       colorful.Color
	Attribution float64
}

// Heatmap maps every text field to its ordered color-annotated tokens.
type Heatmap struct {
	// Fields preserves the declared text-field order.
	Fields  []string
	ByField map[string][]HeatmapEntry

	Gamma     float64
	Precision int
}

// NewHeatmap assigns colors to the given tokens and groups them by text
// field. gamma controls the perceptual intensity curve
// (intensity = |a|^gamma, 1.0 = linear); precision is the number of decimal
// places the displayed attribution value is rounded to.
func NewHeatmap(ctokens []ColorToken, fields []string, gamma float64, precision int) Heatmap {
	if gamma <= 0 {
		gamma = 1.0
	}
	hm := Heatmap{
		Fields:    fields,
		ByField:   make(map[string][]HeatmapEntry, len(fields)),
		Gamma:     gamma,
		Precision: precision,
	}
	for _, ct := range ctokens {
		entry := HeatmapEntry{
			Token:       ct.Token,
			Color:       attributionColor(ct.Attribution, gamma),
			Attribution: round(ct.Attribution, precision),
		}
		hm.ByField[ct.TextField] = append(hm.ByField[ct.TextField], entry)
	}
	return hm
}

var (
	colorNeutral  = colorful.Color{R: 1, G: 1, B: 1}          // white
	colorPositive = colorful.Color{R: 0.83, G: 0.18, B: 0.18} // red
	colorNegative = colorful.Color{R: 0.10, G: 0.33, B: 0.80} // blue
)

// attributionColor maps a signed attribution to a color: red hue for positive
// scores, blue for negative, white at zero, with intensity |a|^gamma.
func attributionColor(attribution, gamma float64) colorful.Color {
	intensity := math.Pow(math.Abs(attribution), gamma)
	if intensity > 1 {
		intensity = 1
	}
	if attribution > 0 {
		return colorNeutral.BlendLab(colorPositive, intensity).Clamped()
	}
	if attribution < 0 {
		return colorNeutral.BlendLab(colorNegative, intensity).Clamped()
	}
	return colorNeutral
}

// round rounds to the given number of decimal places.
func round(v float64, precision int) float64 {
	if precision < 0 {
		return v
	}
	scale := math.Pow(10, float64(precision))
	return math.Round(v*scale) / scale
}

// FormatAttribution formats a rounded attribution value for use as a span
// label.
func FormatAttribution(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
