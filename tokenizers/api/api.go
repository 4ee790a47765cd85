// Package api defines the Tokenizer interfaces.
// It's a separate package to break the cyclic dependency, so users can import
// `tokenizers` and get the default implementations.
package api

// Tokenizer converts text to token ids and back.
//
// It also maps special tokens: tokens with a common semantic (like padding)
// that map to different ids for different tokenizers.
type Tokenizer interface {
	Encode(text string) []int
	Decode(ids []int) string

	// SpecialTokenID returns the ID for the given special token if registered, or an error if not.
	SpecialTokenID(token SpecialToken) (int, error)
}

// Detokenizer extends Tokenizer with the token-level view needed to align
// per-token attribution scores with the original text fields: surface forms
// of individual ids, the separator convention used to delimit text fields,
// the special-token inventory, and the sub-word continuation convention.
type Detokenizer interface {
	Tokenizer

	// ConvertIDsToTokens returns the vocabulary surface form of each id,
	// including special tokens, without any joining or cleanup.
	ConvertIDsToTokens(ids []int) []string

	// DecodeSkipSpecial decodes ids to text, dropping special tokens.
	DecodeSkipSpecial(ids []int) string

	// SeparatorToken returns the surface form of the token that delimits
	// text fields (e.g. "[SEP]" or "</s>"), or "" if the model has none.
	SeparatorToken() string

	// SpecialTokens returns the surface forms of all special tokens.
	SpecialTokens() []string

	// SpecialTokenIDs returns the ids of all special tokens.
	SpecialTokenIDs() []int

	// IsContinuation reports whether the given piece continues the previous
	// word rather than starting a new one.
	IsContinuation(piece string) bool

	// Surface strips sub-word markers (continuation prefixes or word-start
	// markers) from a piece, leaving the displayable text.
	Surface(piece string) string
}

// Config holds the fields of a model's tokenizer_config.json that matter for
// constructing a tokenizer.
type Config struct {
	TokenizerClass string `json:"tokenizer_class"`
	DoLowerCase    bool   `json:"do_lower_case"`

	BosToken  string `json:"bos_token"`
	EosToken  string `json:"eos_token"`
	UnkToken  string `json:"unk_token"`
	SepToken  string `json:"sep_token"`
	PadToken  string `json:"pad_token"`
	ClsToken  string `json:"cls_token"`
	MaskToken string `json:"mask_token"`
}

// SpecialToken is an enum of commonly used special tokens.
type SpecialToken int

const (
	TokBeginningOfSentence SpecialToken = iota
	TokEndOfSentence
	TokUnknown
	TokPad
	TokMask
	TokClassification
	TokSeparator
	TokSpecialTokensCount
)

// String implements fmt.Stringer.
func (t SpecialToken) String() string {
	switch t {
	case TokBeginningOfSentence:
		return "beginning_of_sentence"
	case TokEndOfSentence:
		return "end_of_sentence"
	case TokUnknown:
		return "unknown"
	case TokPad:
		return "pad"
	case TokMask:
		return "mask"
	case TokClassification:
		return "classification"
	case TokSeparator:
		return "separator"
	default:
		return "invalid_special_token"
	}
}
