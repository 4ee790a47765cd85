package visualize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHeatmap() Heatmap {
	return NewHeatmap([]ColorToken{
		{Token: "good", Attribution: 0.8, TextField: "text"},
		{Token: "movie", Attribution: -0.4, TextField: "text"},
	}, []string{"text"}, 1.0, 2)
}

func TestMarkup_SpanOffsets(t *testing.T) {
	markups := Markup(testHeatmap())
	require.Len(t, markups, 1)
	fm := markups[0]

	assert.Equal(t, "text", fm.Field)
	assert.Equal(t, "goodmovie", fm.Text)
	require.Len(t, fm.Spans, 2)
	assert.Equal(t, Span{Text: "good", Start: 0, End: 4, Label: "0.8"}, fm.Spans[0])
	assert.Equal(t, Span{Text: "movie", Start: 4, End: 9, Label: "-0.4"}, fm.Spans[1])

	// Offsets are byte offsets into the concatenated text.
	for _, s := range fm.Spans {
		assert.Equal(t, s.Text, fm.Text[s.Start:s.End])
	}
}

func TestMarkup_LegendSharedByRoundedValue(t *testing.T) {
	hm := NewHeatmap([]ColorToken{
		{Token: "a", Attribution: 0.801, TextField: "text"},
		{Token: "b", Attribution: 0.799, TextField: "text"},
	}, []string{"text"}, 1.0, 2)
	fm := Markup(hm)[0]
	// Both round to 0.8, so the legend has one entry.
	assert.Len(t, fm.Colors, 1)
	assert.Contains(t, fm.Colors, "0.8")
}

func TestHTML_Plain(t *testing.T) {
	html, err := HTML(testHeatmap(), false)
	require.NoError(t, err)

	assert.Contains(t, html, `data-field="text"`)
	assert.Contains(t, html, `<mark class="entity"`)
	assert.Contains(t, html, ">good</mark>")
	assert.Contains(t, html, ">movie</mark>")
	// Hex color survives the style-attribute sanitizer.
	assert.Contains(t, html, "background: #")
	assert.NotContains(t, html, "ZgotmplZ")
	// No numeric badges in the plain variant.
	assert.NotContains(t, html, "font-weight: bold")
}

func TestHTML_WithAttributionLabels(t *testing.T) {
	html, err := HTML(testHeatmap(), true)
	require.NoError(t, err)

	assert.Contains(t, html, ">0.8</span>")
	assert.Contains(t, html, ">-0.4</span>")
	assert.Contains(t, html, "font-weight: bold")
}

func TestHTML_EscapesTokenText(t *testing.T) {
	hm := NewHeatmap([]ColorToken{
		{Token: "<script>", Attribution: 0.5, TextField: "text"},
	}, []string{"text"}, 1.0, 2)
	html, err := HTML(hm, false)
	require.NoError(t, err)
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;script&gt;")
}

func TestHTML_OneBlockPerField(t *testing.T) {
	hm := NewHeatmap([]ColorToken{
		{Token: "a", Attribution: 0.1, TextField: "premise"},
		{Token: "b", Attribution: 0.2, TextField: "hypothesis"},
	}, []string{"premise", "hypothesis"}, 1.0, 2)
	html, err := HTML(hm, false)
	require.NoError(t, err)

	assert.Equal(t, 2, strings.Count(html, `class="heatlens-field"`))
	// Declared field order is preserved.
	assert.Less(t,
		strings.Index(html, `data-field="premise"`),
		strings.Index(html, `data-field="hypothesis"`))
}
