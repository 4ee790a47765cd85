// Package tokenizers constructs a tokenizer for a model by id, downloading
// the tokenizer files through the hub package.
//
// Models with a tokenizer.json get the hftokenizer backend, which implements
// the full api.Detokenizer needed for attribution alignment. Models that only
// ship a SentencePiece tokenizer.model get the sentencepiece backend, which
// implements plain api.Tokenizer.
package tokenizers

import (
	"encoding/json"

	"github.com/heatlens/heatlens/hub"
	"github.com/heatlens/heatlens/tokenizers/api"
	"github.com/heatlens/heatlens/tokenizers/hftokenizer"
	"github.com/heatlens/heatlens/tokenizers/sentencepiece"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// New returns an api.Detokenizer for the given model id. The model must ship
// a tokenizer.json file; fetch failures are propagated as-is.
func New(modelID string) (api.Detokenizer, error) {
	return FromRepo(hub.New(modelID))
}

// FromRepo is New for an already configured hub.Repo.
func FromRepo(repo *hub.Repo) (api.Detokenizer, error) {
	config := loadConfig(repo)
	return hftokenizer.New(config, repo)
}

// NewTokenizer returns an api.Tokenizer for the given model id, preferring
// tokenizer.json and falling back to a SentencePiece tokenizer.model.
func NewTokenizer(modelID string) (api.Tokenizer, error) {
	repo := hub.New(modelID)
	config := loadConfig(repo)
	if repo.HasFile("tokenizer.json") {
		return hftokenizer.New(config, repo)
	}
	if repo.HasFile("tokenizer.model") {
		return sentencepiece.New(config, repo)
	}
	return nil, errors.Errorf("no supported tokenizer file (tokenizer.json or tokenizer.model) found in repo %q", repo.ID)
}

// loadConfig reads the optional tokenizer_config.json of the repo.
// A missing or malformed config is not an error, just less metadata.
func loadConfig(repo *hub.Repo) *api.Config {
	if !repo.HasFile("tokenizer_config.json") {
		return nil
	}
	content, err := repo.ReadFileContent("tokenizer_config.json")
	if err != nil {
		klog.Warningf("Failed to fetch tokenizer_config.json for %q: %v", repo.ID, err)
		return nil
	}
	var config api.Config
	if err := json.Unmarshal(content, &config); err != nil {
		klog.Warningf("Failed to parse tokenizer_config.json for %q: %v", repo.ID, err)
		return nil
	}
	return &config
}
