// Package sentencepiece implements an api.Tokenizer backed by a SentencePiece
// "tokenizer.model" file. It is the fallback text<->ids backend for models
// that ship no tokenizer.json; it does not expose the per-id surface view
// needed for attribution alignment (api.Detokenizer).
package sentencepiece

import (
	esentencepiece "github.com/eliben/go-sentencepiece"
	"github.com/heatlens/heatlens/hub"
	"github.com/heatlens/heatlens/tokenizers/api"
	"github.com/pkg/errors"
)

// New creates a SentencePiece tokenizer from the "tokenizer.model" file of
// the given repo, which must be a SentencePiece Model proto.
func New(config *api.Config, repo *hub.Repo) (*Tokenizer, error) {
	if !repo.HasFile("tokenizer.model") {
		return nil, errors.Errorf("\"tokenizer.model\" file not found in repo %q", repo.ID)
	}
	tokenizerFile, err := repo.DownloadFile("tokenizer.model")
	if err != nil {
		// External fetch failures are propagated as-is.
		return nil, err
	}
	return NewFromFile(config, tokenizerFile)
}

// NewFromFile creates a SentencePiece tokenizer from a local model path.
func NewFromFile(_ *api.Config, path string) (*Tokenizer, error) {
	proc, err := esentencepiece.NewProcessorFromPath(path)
	if err != nil {
		return nil, errors.Wrapf(err, "can't create sentencepiece tokenizer from %q", path)
	}
	return &Tokenizer{
		Processor: proc,
		Info:      proc.ModelInfo(),
	}, nil
}

// Tokenizer implements api.Tokenizer on top of go-sentencepiece.
type Tokenizer struct {
	*esentencepiece.Processor
	Info *esentencepiece.ModelInfo
}

// Compile time assert that Tokenizer implements the api.Tokenizer interface.
var _ api.Tokenizer = &Tokenizer{}

// Encode returns the text encoded into a sequence of ids.
func (p *Tokenizer) Encode(text string) []int {
	tokens := p.Processor.Encode(text)
	ids := make([]int, len(tokens))
	for i, tok := range tokens {
		ids[i] = tok.ID
	}
	return ids
}

// Decode returns the text for a sequence of ids.
func (p *Tokenizer) Decode(ids []int) string {
	return p.Processor.Decode(ids)
}

// SpecialTokenID returns the id for the given special token, or an error if
// the model doesn't define it.
func (p *Tokenizer) SpecialTokenID(token api.SpecialToken) (int, error) {
	switch token {
	case api.TokUnknown:
		return p.Info.UnknownID, nil
	case api.TokPad:
		return p.Info.PadID, nil
	case api.TokBeginningOfSentence:
		return p.Info.BeginningOfSentenceID, nil
	case api.TokEndOfSentence:
		return p.Info.EndOfSentenceID, nil
	default:
		return 0, errors.Errorf("unknown special token: %s (%d)", token, int(token))
	}
}
