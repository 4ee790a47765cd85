package dataset

import (
	"github.com/heatlens/heatlens/tokenization"
	"github.com/heatlens/heatlens/tokenizers/api"
	"github.com/heatlens/heatlens/visualize"
	"github.com/pkg/errors"
)

// Label is a decoded label: its canonical index and class name.
type Label struct {
	Index int
	Name  string
}

// Unit is the processed view of a single instance: decoded labels, the
// token-level view of the input, and the grouping/fusing/heatmap pipeline.
//
// Derived structures (text fields, heatmaps) are recomputed per request,
// since they depend on the requested normalization parameters; a Unit keeps
// only the most recently filled text fields.
type Unit struct {
	Instance *Instance

	TrueLabel      Label
	PredictedLabel Label

	ModelName     string
	DatasetName   string
	ExplainerName string
	ConfigName    string

	tok        api.Detokenizer
	fieldNames []string
	fields     map[string][]visualize.ColorToken
}

// newUnit decodes the labels of an instance. The true label index refers to
// the canonical ordering (alignment happened at Pack construction); the
// predicted label is the argmax of the prediction scores.
func (p *Pack) newUnit(in *Instance, tok api.Detokenizer) (*Unit, error) {
	if in.Label < 0 || in.Label >= len(p.LabelNames) {
		return nil, errors.Errorf("instance %d: label index %d out of range for label classes %v",
			in.Idx, in.Label, p.LabelNames)
	}
	predicted := argmax(in.Predictions)
	if predicted >= len(p.LabelNames) {
		return nil, errors.Errorf("instance %d: predicted label index %d out of range for label classes %v",
			in.Idx, predicted, p.LabelNames)
	}
	return &Unit{
		Instance:       in,
		TrueLabel:      Label{Index: in.Label, Name: p.LabelNames[in.Label]},
		PredictedLabel: Label{Index: predicted, Name: p.LabelNames[predicted]},
		ModelName:      p.ModelName,
		DatasetName:    p.DatasetName,
		ExplainerName:  p.ExplainerName,
		ConfigName:     p.Config.Name,
		tok:            tok,
		fieldNames:     p.Config.TextFields,
	}, nil
}

// Tokens returns the (position, token) view of the instance's input ids,
// including special tokens. Positions index the original sequence and stay
// stable across grouping and fusing.
func (u *Unit) Tokens() []tokenization.TokenEntry {
	pieces := u.tok.ConvertIDsToTokens(u.Instance.InputIDs)
	entries := make([]tokenization.TokenEntry, len(pieces))
	for i, piece := range pieces {
		entries[i] = tokenization.TokenEntry{Position: i, Token: piece}
	}
	return entries
}

// TextFieldNames returns the declared text fields of the configuration.
func (u *Unit) TextFieldNames() []string {
	return u.fieldNames
}

// FillTextFields reconstructs the text fields from the token sequence and
// attaches the given attribution scores to them: the sequence is grouped by
// the separator-token convention, special tokens are dropped, and sub-word
// pieces are fused under the given strategy.
//
// A nil attributions slice uses the instance's raw scores.
func (u *Unit) FillTextFields(attributions []float64, strategy tokenization.FuseStrategy) error {
	if attributions == nil {
		attributions = u.Instance.Attributions
	}
	if len(attributions) != len(u.Instance.InputIDs) {
		return errors.Errorf("instance %d: %d attribution scores for %d token ids",
			u.Instance.Idx, len(attributions), len(u.Instance.InputIDs))
	}

	specials := tokenization.SpecialSet(u.tok.SpecialTokens())
	groups, err := tokenization.GroupFields(u.Tokens(), u.tok.SeparatorToken(), specials, u.fieldNames)
	if err != nil {
		return errors.WithMessagef(err, "grouping instance %d of %s", u.Instance.Idx, u.ConfigName)
	}

	fields := make(map[string][]visualize.ColorToken, len(u.fieldNames))
	for fi, fieldName := range u.fieldNames {
		group := groups[fi]
		pieces := make([]string, len(group))
		scores := make([]float64, len(group))
		for i, e := range group {
			pieces[i] = e.Token
			scores[i] = attributions[e.Position]
		}

		fused, fusedScores, err := tokenization.Fuse(pieces, scores, u.tok, strategy)
		if err != nil {
			return errors.WithMessagef(err, "fusing field %q of instance %d", fieldName, u.Instance.Idx)
		}

		ctokens := make([]visualize.ColorToken, len(fused))
		for i := range fused {
			ctokens[i] = visualize.ColorToken{
				Token:       fused[i],
				Attribution: fusedScores[i],
				TextField:   fieldName,
			}
		}
		fields[fieldName] = ctokens
	}
	u.fields = fields
	return nil
}

// Texts returns the filled text fields, triggering population with default
// parameters if FillTextFields has not been called yet.
func (u *Unit) Texts() (map[string][]visualize.ColorToken, error) {
	if u.fields == nil {
		if err := u.FillTextFields(nil, tokenization.FuseSalient); err != nil {
			return nil, err
		}
	}
	return u.fields, nil
}

// HeatmapOptions parameterizes heatmap construction.
type HeatmapOptions struct {
	// Gamma is the perceptual intensity exponent; 1.0 is linear.
	Gamma float64

	// Normalize rescales attributions so the maximum magnitude hits the
	// color-range boundary.
	Normalize bool

	// FlipAttributionsIdx flips every score's sign when it equals the
	// instance's predicted label index. -1 disables flipping.
	FlipAttributionsIdx int

	// FuseStrategy selects the sub-word fusion mode.
	FuseStrategy tokenization.FuseStrategy

	// Precision is the number of decimal places displayed attribution
	// values are rounded to.
	Precision int
}

// DefaultHeatmapOptions returns the default heatmap parameters.
func DefaultHeatmapOptions() HeatmapOptions {
	return HeatmapOptions{
		Gamma:               1.0,
		Normalize:           true,
		FlipAttributionsIdx: -1,
		FuseStrategy:        tokenization.FuseSalient,
		Precision:           2,
	}
}

// Heatmap runs the full per-instance pipeline: normalization, optional sign
// flip, text-field population, and color assignment. It is recomputed on
// every call, so differing options never see stale state; identical options
// yield identical output.
func (u *Unit) Heatmap(opts HeatmapOptions) (visualize.Heatmap, error) {
	attrs := u.Instance.Attributions
	if opts.Normalize {
		attrs = visualize.Normalize(attrs)
	}
	if opts.FlipAttributionsIdx >= 0 && opts.FlipAttributionsIdx == u.PredictedLabel.Index {
		attrs = visualize.Flip(attrs)
	}

	if err := u.FillTextFields(attrs, opts.FuseStrategy); err != nil {
		return visualize.Heatmap{}, err
	}

	var ctokens []visualize.ColorToken
	for _, field := range u.fieldNames {
		ctokens = append(ctokens, u.fields[field]...)
	}
	return visualize.NewHeatmap(ctokens, u.fieldNames, opts.Gamma, opts.Precision), nil
}

// RenderOptions parameterizes HTML rendering.
type RenderOptions struct {
	Heatmap HeatmapOptions

	// AttributionLabels selects the template with a visible numeric badge
	// per span.
	AttributionLabels bool
}

// Render produces the inline-highlighted HTML for this instance.
func (u *Unit) Render(opts RenderOptions) (string, error) {
	hm, err := u.Heatmap(opts.Heatmap)
	if err != nil {
		return "", err
	}
	return visualize.HTML(hm, opts.AttributionLabels)
}
