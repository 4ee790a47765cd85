package tokenization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entriesOf(tokens ...string) []TokenEntry {
	entries := make([]TokenEntry, len(tokens))
	for i, t := range tokens {
		entries[i] = TokenEntry{Position: i, Token: t}
	}
	return entries
}

func tokensOf(entries []TokenEntry) []string {
	tokens := make([]string, len(entries))
	for i, e := range entries {
		tokens[i] = e.Token
	}
	return tokens
}

func TestGroupFields_TwoFields(t *testing.T) {
	specials := SpecialSet([]string{"[CLS]", "[SEP]", "[PAD]"})
	entries := entriesOf("[CLS]", "A", "B", "[SEP]", "C", "D", "[SEP]")

	groups, err := GroupFields(entries, "[SEP]", specials, []string{"premise", "hypothesis"})
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, []string{"A", "B"}, tokensOf(groups[0]))
	assert.Equal(t, []string{"C", "D"}, tokensOf(groups[1]))
}

func TestGroupFields_PositionsSurviveGrouping(t *testing.T) {
	specials := SpecialSet([]string{"[CLS]", "[SEP]"})
	entries := entriesOf("[CLS]", "A", "B", "[SEP]", "C")

	groups, err := GroupFields(entries, "[SEP]", specials, []string{"premise", "hypothesis"})
	require.NoError(t, err)
	// [CLS] is filtered inside its run, but A keeps its original position 1.
	assert.Equal(t, 1, groups[0][0].Position)
	assert.Equal(t, 2, groups[0][1].Position)
	assert.Equal(t, 4, groups[1][0].Position)
}

func TestGroupFields_DropsSpecialOnlyRuns(t *testing.T) {
	specials := SpecialSet([]string{"[CLS]", "[SEP]", "[PAD]"})
	// Trailing padding run must not count as a text field.
	entries := entriesOf("[CLS]", "A", "[SEP]", "[PAD]", "[PAD]")

	groups, err := GroupFields(entries, "[SEP]", specials, []string{"text"})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"A"}, tokensOf(groups[0]))
}

func TestGroupFields_FieldCountMismatch(t *testing.T) {
	specials := SpecialSet([]string{"[CLS]", "[SEP]"})
	entries := entriesOf("[CLS]", "A", "[SEP]", "B", "[SEP]")

	_, err := GroupFields(entries, "[SEP]", specials, []string{"text"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 text groups")
	assert.Contains(t, err.Error(), "1 text fields")
}

func TestGroupFields_Empty(t *testing.T) {
	groups, err := GroupFields(nil, "[SEP]", SpecialSet(nil), nil)
	require.NoError(t, err)
	assert.Empty(t, groups)
}
