// Package configs is the registry of known heatlens configurations.
//
// A configuration is one published attribution dataset, identified by the
// three coordinates <dataset>-<model>-<explainer>. It declares the text
// fields the token sequence decomposes into and the canonical label-class
// ordering every instance label is normalized to.
package configs

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Config describes one published configuration.
type Config struct {
	// Name is "<dataset>-<model>-<explainer>".
	Name string

	// Dataset, Model and Explainer are the short coordinate names.
	Dataset   string
	Model     string
	Explainer string

	// TextFields names the text columns the token sequence decomposes into,
	// in separator order (e.g. ["text"] or ["premise", "hypothesis"]).
	TextFields []string

	// LabelClasses is the canonical label ordering for this configuration.
	LabelClasses []string

	// HubID is the dataset repository holding the instance file.
	HubID string
}

// ErrUnsupported is returned for declared-but-unimplemented capabilities,
// such as resolving a partial configuration identifier. It is distinct from
// an unknown-configuration error.
var ErrUnsupported = errors.New("resolving partial configuration identifiers is not supported; pass a fully qualified <dataset>-<model>-<explainer> name")

var (
	binaryLabels = []string{"neg", "pos"}
	nliLabels    = []string{"entailment", "neutral", "contradiction"}

	imdbFields = []string{"text"}
	sst2Fields = []string{"sentence"}
	nliFields  = []string{"premise", "hypothesis"}
)

// builderConfigs is the full catalogue. Kept sorted by name.
var builderConfigs = []Config{
	{Name: "imdb-bert-lgxa", Dataset: "imdb", Model: "bert", Explainer: "lgxa", TextFields: imdbFields, LabelClasses: binaryLabels},
	{Name: "imdb-bert-lig", Dataset: "imdb", Model: "bert", Explainer: "lig", TextFields: imdbFields, LabelClasses: binaryLabels},
	{Name: "imdb-bert-lime", Dataset: "imdb", Model: "bert", Explainer: "lime", TextFields: imdbFields, LabelClasses: binaryLabels},
	{Name: "imdb-bert-occ", Dataset: "imdb", Model: "bert", Explainer: "occ", TextFields: imdbFields, LabelClasses: binaryLabels},
	{Name: "imdb-bert-svs", Dataset: "imdb", Model: "bert", Explainer: "svs", TextFields: imdbFields, LabelClasses: binaryLabels},
	{Name: "imdb-roberta-lig", Dataset: "imdb", Model: "roberta", Explainer: "lig", TextFields: imdbFields, LabelClasses: binaryLabels},
	{Name: "imdb-roberta-lime", Dataset: "imdb", Model: "roberta", Explainer: "lime", TextFields: imdbFields, LabelClasses: binaryLabels},
	{Name: "mnli-bert-lig", Dataset: "mnli", Model: "bert", Explainer: "lig", TextFields: nliFields, LabelClasses: nliLabels},
	{Name: "mnli-bert-lime", Dataset: "mnli", Model: "bert", Explainer: "lime", TextFields: nliFields, LabelClasses: nliLabels},
	{Name: "mnli-roberta-lig", Dataset: "mnli", Model: "roberta", Explainer: "lig", TextFields: nliFields, LabelClasses: nliLabels},
	{Name: "sst2-bert-lig", Dataset: "sst2", Model: "bert", Explainer: "lig", TextFields: sst2Fields, LabelClasses: binaryLabels},
	{Name: "sst2-bert-lime", Dataset: "sst2", Model: "bert", Explainer: "lime", TextFields: sst2Fields, LabelClasses: binaryLabels},
	{Name: "sst2-roberta-occ", Dataset: "sst2", Model: "roberta", Explainer: "occ", TextFields: sst2Fields, LabelClasses: binaryLabels},
	{Name: "xnli-bert-lig", Dataset: "xnli", Model: "bert", Explainer: "lig", TextFields: nliFields, LabelClasses: nliLabels},
	{Name: "xnli-bert-lime", Dataset: "xnli", Model: "bert", Explainer: "lime", TextFields: nliFields, LabelClasses: nliLabels},
}

// List returns the names of all known configurations, sorted.
func List() []string {
	names := make([]string, len(builderConfigs))
	for i, c := range builderConfigs {
		names[i] = c.Name
	}
	sort.Strings(names)
	return names
}

// Get returns the configuration with the given name. Unknown names are a
// configuration error; the message lists the valid alternatives.
func Get(name string) (Config, error) {
	for _, c := range builderConfigs {
		if c.Name == name {
			return c, nil
		}
	}
	return Config{}, errors.Errorf("invalid configuration %q; available options: %s", name, strings.Join(List(), ", "))
}

// Resolve maps a configuration identifier to the set of matching
// configurations. A fully qualified name resolves to exactly one entry.
// The partial forms <dataset>-<model> and <dataset>-<explainer> are
// recognized but not implemented: they return ErrUnsupported.
func Resolve(identifier string) ([]Config, error) {
	if c, err := Get(identifier); err == nil {
		return []Config{c}, nil
	}
	for _, c := range builderConfigs {
		if identifier == c.Dataset+"-"+c.Model || identifier == c.Dataset+"-"+c.Explainer {
			return nil, ErrUnsupported
		}
	}
	return nil, errors.Errorf("invalid configuration %q; available options: %s", identifier, strings.Join(List(), ", "))
}

// DatasetHubID returns the hub repository id holding a configuration's
// instance file.
func DatasetHubID(c Config) string {
	if c.HubID != "" {
		return c.HubID
	}
	return "heatlens/" + c.Name
}
