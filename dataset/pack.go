package dataset

import (
	"strings"

	"github.com/heatlens/heatlens/configs"
	"github.com/heatlens/heatlens/tokenizers"
	"github.com/heatlens/heatlens/tokenizers/api"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Coordinates of a configuration, extracted from the dataset description.
const (
	CoordinateModel     = "Model"
	CoordinateDataset   = "Dataset"
	CoordinateExplainer = "Explainer"
)

// Coordinate extracts one coordinate value from a dataset description blob.
// The legacy interchange convention is a line of the form "<Name>: <value>";
// the value runs up to the next newline or the end of the string.
func Coordinate(description, name string) (string, error) {
	prefix := name + ": "
	idx := strings.Index(description, prefix)
	if idx < 0 {
		return "", errors.Errorf("coordinate %q not found in dataset description", name)
	}
	value := description[idx+len(prefix):]
	if nl := strings.IndexByte(value, '\n'); nl >= 0 {
		value = value[:nl]
	}
	return value, nil
}

// Pack is one loaded attribution dataset: a sequence of instances with their
// configuration, coordinates and canonical label names. Indexing a Pack
// yields Units (processed instances).
//
// The tokenizer handle and the unit list are expensive, so both are built
// lazily on first access and cached for the Pack's lifetime.
type Pack struct {
	Config      configs.Config
	Description string

	ModelName     string
	DatasetName   string
	ExplainerName string

	// LabelNames is the canonical label ordering; every instance's label
	// index refers to it.
	LabelNames []string

	instances []Instance
	tok       api.Detokenizer
	units     []*Unit
}

// Load fetches the dataset of the given configuration from the hub and
// constructs a Pack. Unknown configuration names are a configuration error;
// download failures are propagated unmodified.
func Load(configName string) (*Pack, error) {
	cfg, err := configs.Get(configName)
	if err != nil {
		return nil, err
	}
	klog.V(1).Infof("Loading heatlens configuration: %s", configName)
	return loadFromHub(cfg)
}

// NewPack constructs a Pack from in-memory instances. nativeLabels is the
// dataset's own label-name ordering; labels are re-indexed to the
// configuration's canonical ordering here, exactly once.
func NewPack(cfg configs.Config, description string, nativeLabels []string, instances []Instance) (*Pack, error) {
	p := &Pack{
		Config:      cfg,
		Description: description,
		instances:   instances,
	}

	// All three coordinates must be present; validate at load, not per access.
	var err error
	if p.ModelName, err = Coordinate(description, CoordinateModel); err != nil {
		return nil, err
	}
	if p.DatasetName, err = Coordinate(description, CoordinateDataset); err != nil {
		return nil, err
	}
	if p.ExplainerName, err = Coordinate(description, CoordinateExplainer); err != nil {
		return nil, err
	}

	for i := range instances {
		if err := instances[i].Validate(); err != nil {
			return nil, err
		}
	}

	remap, err := alignLabels(nativeLabels, cfg.LabelClasses)
	if err != nil {
		return nil, err
	}
	if remap != nil {
		for i := range p.instances {
			native := p.instances[i].Label
			if native < 0 || native >= len(remap) {
				return nil, errors.Errorf("instance %d: label index %d out of range for label names %v",
					p.instances[i].Idx, native, nativeLabels)
			}
			p.instances[i].Label = remap[native]
		}
	}
	p.LabelNames = cfg.LabelClasses

	return p, nil
}

// alignLabels builds the native-index to canonical-index mapping. It returns
// nil when the orderings already match (identity). A native label name absent
// from the canonical list is a configuration error.
func alignLabels(native, canonical []string) ([]int, error) {
	if len(native) == 0 || equalStrings(native, canonical) {
		return nil, nil
	}
	remap := make([]int, len(native))
	for i, name := range native {
		found := -1
		for j, c := range canonical {
			if c == name {
				found = j
				break
			}
		}
		if found < 0 {
			return nil, errors.Errorf("label %q of the dataset is not among the canonical label classes %v", name, canonical)
		}
		remap[i] = found
	}
	return remap, nil
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// WithTokenizer injects a tokenizer, bypassing the lazy hub fetch. Useful for
// offline use and tests.
func (p *Pack) WithTokenizer(tok api.Detokenizer) *Pack {
	p.tok = tok
	p.units = nil
	return p
}

// Tokenizer returns the tokenizer for this Pack's model, fetching it from the
// hub on first use and caching it afterwards. A fetch failure is fatal to the
// Pack and is propagated unmodified.
func (p *Pack) Tokenizer() (api.Detokenizer, error) {
	if p.tok == nil {
		tok, err := tokenizers.New(p.ModelName)
		if err != nil {
			return nil, err
		}
		p.tok = tok
	}
	return p.tok, nil
}

// Len returns the number of instances.
func (p *Pack) Len() int {
	return len(p.instances)
}

// Instances returns the raw instances.
func (p *Pack) Instances() []Instance {
	return p.instances
}

// Units materializes the processed view of every instance. Built once on
// first access and cached for the Pack's lifetime.
func (p *Pack) Units() ([]*Unit, error) {
	if p.units == nil {
		tok, err := p.Tokenizer()
		if err != nil {
			return nil, err
		}
		klog.V(1).Infof("Tokenizing %s instances (tokenizer: %s)", p.Config.Name, p.ModelName)
		units := make([]*Unit, len(p.instances))
		for i := range p.instances {
			unit, err := p.newUnit(&p.instances[i], tok)
			if err != nil {
				return nil, err
			}
			units[i] = unit
		}
		p.units = units
	}
	return p.units, nil
}

// At returns the processed Unit at index i.
func (p *Pack) At(i int) (*Unit, error) {
	units, err := p.Units()
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= len(units) {
		return nil, errors.Errorf("index %d out of range for dataset of %d instances", i, len(units))
	}
	return units[i], nil
}

// String returns the dataset description.
func (p *Pack) String() string {
	return p.Description
}
