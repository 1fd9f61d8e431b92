package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestTokenizer() *Tokenizer {
	return New(DefaultStopwords, 1000)
}

func TestTokenizeCamelCase(t *testing.T) {
	tok := newTestTokenizer()
	// "by" is split out as its own word, then dropped as a default stopword.
	require.Equal(t, []string{"get", "user", "id"}, tok.Tokenize("getUserById"))
}

func TestTokenizeAcronymBoundary(t *testing.T) {
	tok := newTestTokenizer()
	require.Equal(t, []string{"http", "server"}, tok.Tokenize("HTTPServer"))
}

func TestTokenizeSnakeCase(t *testing.T) {
	tok := newTestTokenizer()
	require.Equal(t, []string{"max", "retry", "count"}, tok.Tokenize("MAX_RETRY_COUNT"))
}

func TestTokenizeKebabCase(t *testing.T) {
	tok := newTestTokenizer()
	require.Equal(t, []string{"user", "profile", "view"}, tok.Tokenize("user-profile-view"))
}

func TestTokenizeDropsShortTokensAndStopwords(t *testing.T) {
	tok := newTestTokenizer()
	got := tok.Tokenize("a is the x of payment")
	require.Equal(t, []string{"payment"}, got)
}

func TestTokenizeDeterministic(t *testing.T) {
	tok := newTestTokenizer()
	input := "calculateShippingCost_v2"
	first := tok.Tokenize(input)
	second := tok.Tokenize(input)
	require.Equal(t, first, second)
}

func TestTokenizeAcronymFollowedByDigitSplits(t *testing.T) {
	tok := newTestTokenizer()
	// "API" immediately precedes a digit, so it splits into individual
	// letters; all single-letter tokens are then dropped (length < 2).
	require.Equal(t, []string{"handler"}, tok.Tokenize("API2Handler"))
}

func TestLRUEviction(t *testing.T) {
	tok := New(nil, 2)
	tok.Tokenize("alpha")
	tok.Tokenize("beta")
	tok.Tokenize("gamma") // evicts "alpha"

	_, ok := tok.lookup("alpha")
	require.False(t, ok)
	_, ok = tok.lookup("gamma")
	require.True(t, ok)
}
