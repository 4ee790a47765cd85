package hftokenizer

import (
	"strings"
	"unicode"
)

// Pre-tokenization and byte-level helpers.

func cleanText(text string) string {
	var b strings.Builder
	for _, r := range text {
		if r == 0 || r == 0xFFFD || isControl(r) {
			continue
		}
		if isWhitespace(r) {
			b.WriteRune(' ')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isWhitespace(r rune) bool {
	if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
		return true
	}
	return unicode.Is(unicode.Zs, r)
}

func isControl(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return false
	}
	return unicode.IsControl(r)
}

func isPunctuation(r rune) bool {
	// ASCII punctuation ranges first, then the unicode punctuation classes.
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) ||
		(r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}

func removeAccents(text string) string {
	var b strings.Builder
	for _, r := range text {
		if !unicode.Is(unicode.Mn, r) { // Mn = Mark, Nonspacing
			b.WriteRune(r)
		}
	}
	return b.String()
}

// splitOnPunctuation splits on whitespace and keeps punctuation runes as
// their own words (BERT-style pre-tokenization).
func splitOnPunctuation(text string) []string {
	var words []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
	}
	for _, r := range text {
		switch {
		case isWhitespace(r):
			flush()
		case isPunctuation(r):
			flush()
			words = append(words, string(r))
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return words
}

// GPT-2 byte-to-unicode mapping, used by byte-level BPE vocabularies.
var (
	byteToUnicode map[byte]rune
	unicodeToByte map[rune]byte
)

func init() {
	byteToUnicode = make(map[byte]rune, 256)
	unicodeToByte = make(map[rune]byte, 256)
	n := 0
	for b := 0; b < 256; b++ {
		if (b >= '!' && b <= '~') || (b >= 0xa1 && b <= 0xac) || (b >= 0xae && b <= 0xff) {
			byteToUnicode[byte(b)] = rune(b)
			unicodeToByte[rune(b)] = byte(b)
		} else {
			byteToUnicode[byte(b)] = rune(256 + n)
			unicodeToByte[rune(256+n)] = byte(b)
			n++
		}
	}
}

// byteLevelSplit splits text into byte-level words, with the space marker
// attached to the following word.
func byteLevelSplit(text string) []string {
	var words []string
	var current strings.Builder
	inWord := false
	for _, r := range text {
		if r == ' ' {
			if inWord {
				words = append(words, current.String())
				current.Reset()
			}
			current.WriteRune(byteToUnicode[' '])
			inWord = false
			continue
		}
		inWord = true
		for _, b := range []byte(string(r)) {
			current.WriteRune(byteToUnicode[b])
		}
	}
	if current.Len() > 0 {
		words = append(words, current.String())
	}
	return words
}

// byteLevelJoin maps byte-level pieces back to the original bytes.
func byteLevelJoin(pieces []string) string {
	var out []byte
	for _, piece := range pieces {
		for _, r := range piece {
			if b, ok := unicodeToByte[r]; ok {
				out = append(out, b)
			} else {
				out = append(out, []byte(string(r))...)
			}
		}
	}
	return string(out)
}

// metaspaceSplit replaces spaces with the metaspace marker and splits so that
// each word starts with the marker.
func metaspaceSplit(text string, addPrefixSpace bool) []string {
	if addPrefixSpace && len(text) > 0 && text[0] != ' ' {
		text = " " + text
	}
	text = strings.ReplaceAll(text, " ", metaspace)

	var words []string
	var current strings.Builder
	for _, r := range text {
		if r == '▁' && current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		words = append(words, current.String())
	}
	return words
}
