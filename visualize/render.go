package visualize

import (
	"html/template"
	"strings"

	"github.com/pkg/errors"
)

// Span is one highlighted segment of a rendered text field. Start and End are
// byte offsets into the field's concatenated text, suitable for slicing Go
// strings directly.
type Span struct {
	Text  string
	Start int
	End   int
	Label string
}

// FieldMarkup is the render-boundary view of one text field: the concatenated
// text, the ordered spans, and the color legend mapping span labels to hex
// colors.
type FieldMarkup struct {
	Field  string
	Text   string
	Spans  []Span
	Colors map[string]string
}

// Markup converts a heatmap into per-field span lists plus color legends.
// Tokens with the same rounded attribution value share one legend entry.
func Markup(hm Heatmap) []FieldMarkup {
	out := make([]FieldMarkup, 0, len(hm.Fields))
	for _, field := range hm.Fields {
		entries := hm.ByField[field]
		fm := FieldMarkup{
			Field:  field,
			Colors: make(map[string]string),
		}
		var text strings.Builder
		offset := 0
		for _, e := range entries {
			label := FormatAttribution(e.Attribution)
			end := offset + len(e.Token)
			fm.Spans = append(fm.Spans, Span{
				Text:  e.Token,
				Start: offset,
				End:   end,
				Label: label,
			})
			fm.Colors[label] = e.Color.Hex()
			text.WriteString(e.Token)
			offset = end
		}
		fm.Text = text.String()
		out = append(out, fm)
	}
	return out
}

// The two mark templates: with and without the numeric attribution badge.
var (
	fieldWithLabelsTmpl = template.Must(template.New("fieldWithLabels").Parse(`<div class="heatlens-field" data-field="{{.Field}}">
<div class="entities" style="line-height: 2.5; direction: ltr">
{{- range .Spans}}<mark class="entity" style="background: {{index $.Colors .Label}}; padding: 0.45em 0.6em; margin: 0 0.25em; line-height: 2; border-radius: 0.35em; box-decoration-break: clone; -webkit-box-decoration-break: clone">{{.Text}}<span style="font-size: 0.8em; font-weight: bold; line-height: 1; border-radius: 0.35em; text-transform: uppercase; vertical-align: middle; margin-left: 0.5rem">{{.Label}}</span></mark>{{end -}}
</div>
</div>
`))

	fieldPlainTmpl = template.Must(template.New("fieldPlain").Parse(`<div class="heatlens-field" data-field="{{.Field}}">
<div class="entities" style="line-height: 2.5; direction: ltr">
{{- range .Spans}}<mark class="entity" style="background: {{index $.Colors .Label}}; padding: 0.15em 0.3em; margin: 0 0.2em; line-height: 2.2; border-radius: 0.25em; box-decoration-break: clone; -webkit-box-decoration-break: clone">{{.Text}}</mark>{{end -}}
</div>
</div>
`))
)

// templateData adapts FieldMarkup for the templates; Colors values become
// template.CSS so the hex colors survive the style-attribute sanitizer.
type templateData struct {
	Field  string
	Spans  []Span
	Colors map[string]template.CSS
}

// HTML renders the heatmap as inline-highlighted markup, one block per text
// field. attributionLabels selects the template with the visible numeric
// badge per span.
func HTML(hm Heatmap, attributionLabels bool) (string, error) {
	tmpl := fieldPlainTmpl
	if attributionLabels {
		tmpl = fieldWithLabelsTmpl
	}

	var b strings.Builder
	for _, fm := range Markup(hm) {
		data := templateData{
			Field:  fm.Field,
			Spans:  fm.Spans,
			Colors: make(map[string]template.CSS, len(fm.Colors)),
		}
		for label, hex := range fm.Colors {
			data.Colors[label] = template.CSS(hex)
		}
		if err := tmpl.Execute(&b, data); err != nil {
			return "", errors.Wrapf(err, "rendering text field %q", fm.Field)
		}
	}
	return b.String(), nil
}
