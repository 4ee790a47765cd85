// Package hftokenizer implements a tokenizer for HuggingFace's tokenizer.json
// format, as used by the "fast" tokenizers (WordPiece/BERT and byte-level
// BPE/GPT-2, RoBERTa).
//
// Besides encoding and decoding, it exposes the token-level view needed for
// attribution alignment: the surface form of individual ids, the separator
// and special-token inventory, and the sub-word continuation convention.
package hftokenizer

import (
	"encoding/json"
	"os"
	"sort"
	"strings"

	"github.com/heatlens/heatlens/hub"
	"github.com/heatlens/heatlens/tokenizers/api"
	"github.com/pkg/errors"
	"golang.org/x/text/unicode/norm"
)

const (
	// byteLevelSpace marks a word start in byte-level BPE vocabularies (GPT-2, RoBERTa).
	byteLevelSpace = "Ġ" // 'Ġ'
	// metaspace marks a word start in Metaspace vocabularies (SentencePiece-derived).
	metaspace = "▁" // '▁'
)

// TokenizerJSON mirrors the parts of HuggingFace's tokenizer.json file this
// package uses.
type TokenizerJSON struct {
	Version      string        `json:"version"`
	AddedTokens  []AddedToken  `json:"added_tokens"`
	Normalizer   *Normalizer   `json:"normalizer"`
	PreTokenizer *PreTokenizer `json:"pre_tokenizer"`
	Decoder      *Decoder      `json:"decoder"`
	Model        Model         `json:"model"`
}

// AddedToken represents a token added to the vocabulary on top of the model.
type AddedToken struct {
	ID      int    `json:"id"`
	Content string `json:"content"`
	Special bool   `json:"special"`
}

// Normalizer is the text normalization configuration.
type Normalizer struct {
	Type        string       `json:"type"`
	Lowercase   bool         `json:"lowercase"`
	Normalizers []Normalizer `json:"normalizers"`
}

// PreTokenizer is the word-splitting configuration.
type PreTokenizer struct {
	Type           string         `json:"type"`
	AddPrefixSpace bool           `json:"add_prefix_space"`
	PreTokenizers  []PreTokenizer `json:"pretokenizers"`
}

// Decoder is the token-joining configuration.
type Decoder struct {
	Type   string `json:"type"`
	Prefix string `json:"prefix"`
}

// Model is the sub-word model (WordPiece or BPE).
type Model struct {
	Type                    string         `json:"type"`
	Vocab                   map[string]int `json:"vocab"`
	Merges                  []string       `json:"merges"`
	UnkToken                string         `json:"unk_token"`
	ContinuingSubwordPrefix string         `json:"continuing_subword_prefix"`
	MaxInputCharsPerWord    int            `json:"max_input_chars_per_word"`
	EndOfWordSuffix         string         `json:"end_of_word_suffix"`
}

// subwordConvention enumerates the ways a vocabulary marks word boundaries.
type subwordConvention int

const (
	// conventionNone: no marker, every piece is its own word.
	conventionNone subwordConvention = iota
	// conventionWordPiece: continuation pieces carry a prefix (usually "##").
	conventionWordPiece
	// conventionByteLevel: word starts carry the 'Ġ' marker.
	conventionByteLevel
	// conventionMetaspace: word starts carry the '▁' marker.
	conventionMetaspace
)

// Tokenizer implements api.Detokenizer for tokenizer.json models.
type Tokenizer struct {
	config     *api.Config
	tj         *TokenizerJSON
	idToToken  map[int]string
	mergeRanks map[string]int // BPE: "left right" -> merge priority

	convention    subwordConvention
	subwordPrefix string // continuation prefix for conventionWordPiece

	// Special tokens, resolved from added_tokens and config.
	specialByID      map[int]string
	specialBySurface map[string]int
	unkID            int
	padID            int
	bosID            int
	eosID            int
	clsID            int
	sepID            int
	maskID           int

	addedTokens map[string]int
}

// Compile time assert that Tokenizer implements the api interfaces.
var (
	_ api.Tokenizer   = &Tokenizer{}
	_ api.Detokenizer = &Tokenizer{}
)

// New creates a tokenizer from the "tokenizer.json" file of the given repo.
func New(config *api.Config, repo *hub.Repo) (*Tokenizer, error) {
	if !repo.HasFile("tokenizer.json") {
		return nil, errors.Errorf("\"tokenizer.json\" file not found in repo %q", repo.ID)
	}
	tokenizerFile, err := repo.DownloadFile("tokenizer.json")
	if err != nil {
		// External fetch failures are propagated as-is.
		return nil, err
	}
	return NewFromFile(config, tokenizerFile)
}

// NewFromFile creates a tokenizer from a local tokenizer.json path.
func NewFromFile(config *api.Config, filePath string) (*Tokenizer, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read tokenizer.json file %q", filePath)
	}
	return NewFromContent(config, content)
}

// NewFromContent creates a tokenizer from tokenizer.json content.
func NewFromContent(config *api.Config, content []byte) (*Tokenizer, error) {
	var tj TokenizerJSON
	if err := json.Unmarshal(content, &tj); err != nil {
		return nil, errors.Wrapf(err, "failed to parse tokenizer.json")
	}

	t := &Tokenizer{
		config:           config,
		tj:               &tj,
		idToToken:        make(map[int]string, len(tj.Model.Vocab)),
		addedTokens:      make(map[string]int),
		specialByID:      make(map[int]string),
		specialBySurface: make(map[string]int),
		unkID:            -1,
		padID:            -1,
		bosID:            -1,
		eosID:            -1,
		clsID:            -1,
		sepID:            -1,
		maskID:           -1,
	}

	for token, id := range tj.Model.Vocab {
		t.idToToken[id] = token
	}
	for _, at := range tj.AddedTokens {
		t.addedTokens[at.Content] = at.ID
		t.idToToken[at.ID] = at.Content
	}

	if tj.Model.Type == "BPE" {
		t.mergeRanks = make(map[string]int, len(tj.Model.Merges))
		for i, merge := range tj.Model.Merges {
			t.mergeRanks[merge] = i
		}
	}

	t.resolveConvention()
	t.resolveSpecialTokens()
	return t, nil
}

// resolveConvention determines how the vocabulary marks word boundaries.
func (t *Tokenizer) resolveConvention() {
	if t.tj.Model.Type == "WordPiece" || t.tj.Model.ContinuingSubwordPrefix != "" {
		t.convention = conventionWordPiece
		t.subwordPrefix = t.tj.Model.ContinuingSubwordPrefix
		if t.subwordPrefix == "" {
			t.subwordPrefix = "##"
		}
		return
	}
	if t.tj.Decoder != nil && t.tj.Decoder.Type == "Metaspace" {
		t.convention = conventionMetaspace
		return
	}
	if t.tj.PreTokenizer != nil && preTokenizerHasType(t.tj.PreTokenizer, "Metaspace") {
		t.convention = conventionMetaspace
		return
	}
	if t.tj.Model.Type == "BPE" {
		t.convention = conventionByteLevel
		return
	}
	t.convention = conventionNone
}

func preTokenizerHasType(pt *PreTokenizer, typ string) bool {
	if pt.Type == typ {
		return true
	}
	for i := range pt.PreTokenizers {
		if preTokenizerHasType(&pt.PreTokenizers[i], typ) {
			return true
		}
	}
	return false
}

// resolveSpecialTokens maps special tokens from added_tokens and config to ids.
func (t *Tokenizer) resolveSpecialTokens() {
	if t.tj.Model.UnkToken != "" {
		if id, ok := t.tj.Model.Vocab[t.tj.Model.UnkToken]; ok {
			t.unkID = id
			t.registerSpecial(t.tj.Model.UnkToken, id)
		}
	}

	for _, at := range t.tj.AddedTokens {
		if !at.Special {
			continue
		}
		t.registerSpecial(at.Content, at.ID)
		switch at.Content {
		case "[UNK]", "<unk>":
			t.unkID = at.ID
		case "[PAD]", "<pad>":
			t.padID = at.ID
		case "[CLS]", "<s>":
			t.clsID = at.ID
		case "[SEP]", "</s>":
			t.sepID = at.ID
		case "[MASK]", "<mask>":
			t.maskID = at.ID
		}
		if t.config != nil {
			switch at.Content {
			case t.config.BosToken:
				t.bosID = at.ID
			case t.config.EosToken:
				t.eosID = at.ID
			case t.config.SepToken:
				t.sepID = at.ID
			case t.config.ClsToken:
				t.clsID = at.ID
			}
		}
	}

	// Fall back to config-declared surfaces found in the main vocab.
	if t.config != nil {
		lookup := func(current int, surface string) int {
			if current != -1 || surface == "" {
				return current
			}
			if id, ok := t.tj.Model.Vocab[surface]; ok {
				t.registerSpecial(surface, id)
				return id
			}
			return current
		}
		t.unkID = lookup(t.unkID, t.config.UnkToken)
		t.padID = lookup(t.padID, t.config.PadToken)
		t.clsID = lookup(t.clsID, t.config.ClsToken)
		t.sepID = lookup(t.sepID, t.config.SepToken)
		t.maskID = lookup(t.maskID, t.config.MaskToken)
		t.bosID = lookup(t.bosID, t.config.BosToken)
		t.eosID = lookup(t.eosID, t.config.EosToken)
	}
}

func (t *Tokenizer) registerSpecial(surface string, id int) {
	t.specialByID[id] = surface
	t.specialBySurface[surface] = id
}

// Encode converts text to a sequence of token ids (without special tokens).
func (t *Tokenizer) Encode(text string) []int {
	normalized := t.normalize(text)
	var ids []int
	for _, word := range t.preTokenize(normalized) {
		ids = append(ids, t.tokenizeWord(word)...)
	}
	return ids
}

// normalize applies the configured normalizer to the text.
func (t *Tokenizer) normalize(text string) string {
	if t.tj.Normalizer == nil {
		return text
	}
	return applyNormalizer(text, t.tj.Normalizer)
}

func applyNormalizer(text string, n *Normalizer) string {
	switch n.Type {
	case "Lowercase":
		return strings.ToLower(text)
	case "NFD":
		return norm.NFD.String(text)
	case "NFC":
		return norm.NFC.String(text)
	case "NFKC":
		return norm.NFKC.String(text)
	case "NFKD":
		return norm.NFKD.String(text)
	case "StripAccents":
		return removeAccents(norm.NFD.String(text))
	case "BertNormalizer":
		result := cleanText(text)
		if n.Lowercase {
			result = strings.ToLower(result)
		}
		return result
	case "Sequence":
		result := text
		for i := range n.Normalizers {
			result = applyNormalizer(result, &n.Normalizers[i])
		}
		return result
	default:
		return text
	}
}

// preTokenize splits text into word-level units.
func (t *Tokenizer) preTokenize(text string) []string {
	if t.tj.PreTokenizer == nil {
		return strings.Fields(text)
	}
	switch t.tj.PreTokenizer.Type {
	case "BertPreTokenizer", "Punctuation":
		return splitOnPunctuation(text)
	case "ByteLevel":
		if t.tj.PreTokenizer.AddPrefixSpace && len(text) > 0 && text[0] != ' ' {
			text = " " + text
		}
		return byteLevelSplit(text)
	case "Metaspace":
		return metaspaceSplit(text, t.tj.PreTokenizer.AddPrefixSpace)
	default:
		return strings.Fields(text)
	}
}

// tokenizeWord tokenizes a single pre-tokenized word.
func (t *Tokenizer) tokenizeWord(word string) []int {
	if id, ok := t.addedTokens[word]; ok {
		return []int{id}
	}
	switch t.tj.Model.Type {
	case "WordPiece":
		return t.wordPieceTokenize(word)
	case "BPE":
		return t.bpeTokenize(word)
	default:
		if id, ok := t.tj.Model.Vocab[word]; ok {
			return []int{id}
		}
		if t.unkID >= 0 {
			return []int{t.unkID}
		}
		return nil
	}
}

// wordPieceTokenize implements greedy longest-match-first WordPiece.
func (t *Tokenizer) wordPieceTokenize(word string) []int {
	if word == "" {
		return nil
	}
	maxChars := t.tj.Model.MaxInputCharsPerWord
	if maxChars == 0 {
		maxChars = 100
	}
	if len(word) > maxChars {
		if t.unkID >= 0 {
			return []int{t.unkID}
		}
		return nil
	}

	var tokens []int
	start := 0
	for start < len(word) {
		end := len(word)
		found := false
		for start < end {
			substr := word[start:end]
			if start > 0 {
				substr = t.subwordPrefix + substr
			}
			if id, ok := t.tj.Model.Vocab[substr]; ok {
				tokens = append(tokens, id)
				found = true
				break
			}
			end--
		}
		if !found {
			if t.unkID >= 0 {
				return []int{t.unkID}
			}
			return nil
		}
		start = end
	}
	return tokens
}

// bpeTokenize applies BPE merges to a pre-tokenized word.
func (t *Tokenizer) bpeTokenize(word string) []int {
	if word == "" {
		return nil
	}
	symbols := make([]string, 0, len(word))
	for _, r := range word {
		symbols = append(symbols, string(r))
	}
	if t.tj.Model.EndOfWordSuffix != "" && len(symbols) > 0 {
		symbols[len(symbols)-1] += t.tj.Model.EndOfWordSuffix
	}

	for len(symbols) > 1 {
		bestRank, bestIdx := -1, -1
		for i := 0; i < len(symbols)-1; i++ {
			if rank, ok := t.mergeRanks[symbols[i]+" "+symbols[i+1]]; ok {
				if bestRank == -1 || rank < bestRank {
					bestRank, bestIdx = rank, i
				}
			}
		}
		if bestIdx == -1 {
			break
		}
		merged := symbols[bestIdx] + symbols[bestIdx+1]
		symbols = append(symbols[:bestIdx], append([]string{merged}, symbols[bestIdx+2:]...)...)
	}

	var ids []int
	for _, sym := range symbols {
		if id, ok := t.tj.Model.Vocab[sym]; ok {
			ids = append(ids, id)
		} else if t.unkID >= 0 {
			ids = append(ids, t.unkID)
		}
	}
	return ids
}

// Decode converts a sequence of token ids back to text.
func (t *Tokenizer) Decode(ids []int) string {
	return t.joinPieces(t.ConvertIDsToTokens(ids))
}

// DecodeSkipSpecial decodes ids to text, dropping special tokens.
// It implements api.Detokenizer.
func (t *Tokenizer) DecodeSkipSpecial(ids []int) string {
	kept := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, special := t.specialByID[id]; special {
			continue
		}
		kept = append(kept, id)
	}
	return t.Decode(kept)
}

// ConvertIDsToTokens returns the vocabulary surface form of each id.
// Unknown ids map to the unk surface (or are skipped if the model has none).
// It implements api.Detokenizer.
func (t *Tokenizer) ConvertIDsToTokens(ids []int) []string {
	tokens := make([]string, 0, len(ids))
	for _, id := range ids {
		if token, ok := t.idToToken[id]; ok {
			tokens = append(tokens, token)
		} else if unk, ok := t.idToToken[t.unkID]; ok {
			tokens = append(tokens, unk)
		}
	}
	return tokens
}

// joinPieces reassembles text from pieces according to the decoder convention.
func (t *Tokenizer) joinPieces(pieces []string) string {
	switch t.convention {
	case conventionByteLevel:
		return byteLevelJoin(pieces)
	case conventionMetaspace:
		var b strings.Builder
		for _, piece := range pieces {
			b.WriteString(strings.ReplaceAll(piece, metaspace, " "))
		}
		return strings.TrimLeft(b.String(), " ")
	default:
		prefix := t.subwordPrefix
		if t.tj.Decoder != nil && t.tj.Decoder.Prefix != "" {
			prefix = t.tj.Decoder.Prefix
		}
		if prefix == "" {
			prefix = "##"
		}
		var b strings.Builder
		for i, piece := range pieces {
			if strings.HasPrefix(piece, prefix) {
				b.WriteString(strings.TrimPrefix(piece, prefix))
			} else {
				if i > 0 {
					b.WriteString(" ")
				}
				b.WriteString(piece)
			}
		}
		return b.String()
	}
}

// SeparatorToken returns the surface form of the text-field separator token.
// It implements api.Detokenizer.
func (t *Tokenizer) SeparatorToken() string {
	if surface, ok := t.specialByID[t.sepID]; ok {
		return surface
	}
	// EOS doubles as separator for models without a dedicated SEP.
	if surface, ok := t.specialByID[t.eosID]; ok {
		return surface
	}
	return ""
}

// SpecialTokens returns the surface forms of all special tokens, sorted by id.
// It implements api.Detokenizer.
func (t *Tokenizer) SpecialTokens() []string {
	ids := t.SpecialTokenIDs()
	surfaces := make([]string, len(ids))
	for i, id := range ids {
		surfaces[i] = t.specialByID[id]
	}
	return surfaces
}

// SpecialTokenIDs returns the ids of all special tokens, sorted.
// It implements api.Detokenizer.
func (t *Tokenizer) SpecialTokenIDs() []int {
	ids := make([]int, 0, len(t.specialByID))
	for id := range t.specialByID {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// IsContinuation reports whether the piece continues the previous word.
// It implements api.Detokenizer.
func (t *Tokenizer) IsContinuation(piece string) bool {
	switch t.convention {
	case conventionWordPiece:
		return strings.HasPrefix(piece, t.subwordPrefix)
	case conventionByteLevel:
		return !strings.HasPrefix(piece, byteLevelSpace)
	case conventionMetaspace:
		return !strings.HasPrefix(piece, metaspace)
	default:
		return false
	}
}

// Surface strips sub-word markers from a piece.
// It implements api.Detokenizer.
func (t *Tokenizer) Surface(piece string) string {
	switch t.convention {
	case conventionWordPiece:
		return strings.TrimPrefix(piece, t.subwordPrefix)
	case conventionByteLevel:
		return byteLevelJoin([]string{strings.TrimPrefix(piece, byteLevelSpace)})
	case conventionMetaspace:
		return strings.TrimPrefix(piece, metaspace)
	default:
		return piece
	}
}

// SpecialTokenID returns the id for a given special token.
// It implements api.Tokenizer.
func (t *Tokenizer) SpecialTokenID(token api.SpecialToken) (int, error) {
	id := -1
	switch token {
	case api.TokUnknown:
		id = t.unkID
	case api.TokPad:
		id = t.padID
	case api.TokBeginningOfSentence:
		id = t.bosID
		if id < 0 {
			id = t.clsID // BERT-style models
		}
	case api.TokEndOfSentence:
		id = t.eosID
		if id < 0 {
			id = t.sepID // BERT-style models
		}
	case api.TokClassification:
		id = t.clsID
	case api.TokSeparator:
		id = t.sepID
	case api.TokMask:
		id = t.maskID
	}
	if id < 0 {
		return 0, errors.Errorf("special token %s not found", token)
	}
	return id, nil
}

// VocabSize returns the size of the vocabulary including added tokens.
func (t *Tokenizer) VocabSize() int {
	return len(t.idToToken)
}

// TokenToID converts a token surface to its id.
func (t *Tokenizer) TokenToID(token string) (int, bool) {
	if id, ok := t.addedTokens[token]; ok {
		return id, true
	}
	id, ok := t.tj.Model.Vocab[token]
	return id, ok
}

// IDToToken converts a token id to its surface.
func (t *Tokenizer) IDToToken(id int) (string, bool) {
	token, ok := t.idToToken[id]
	return token, ok
}
