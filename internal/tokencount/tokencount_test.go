package tokencount

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountTokensIsWithinExpectedRange(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	tests := []struct {
		text      string
		minTokens int
		maxTokens int
	}{
		{"", 0, 0},
		{"Hello", 1, 2},
		{"Hello world", 2, 3},
		{strings.Repeat("word ", 100), 90, 110},
	}

	for _, tt := range tests {
		tokens := c.Count(tt.text)
		assert.GreaterOrEqual(t, tokens, tt.minTokens, tt.text)
		assert.LessOrEqual(t, tokens, tt.maxTokens, tt.text)
	}
}

func TestWithinLimit(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	assert.True(t, c.WithinLimit("short", 10))
	assert.False(t, c.WithinLimit("a very long sentence that definitely exceeds a small token limit", 5))
}

func TestTruncateToLimitShortensLongText(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	longText := strings.Repeat("This is a sentence. ", 50)
	truncated := c.TruncateToLimit(longText, 10)

	assert.Less(t, len(truncated), len(longText))
	assert.LessOrEqual(t, c.Count(truncated), 15)
}

func TestTruncateToLimitIsNoOpWhenAlreadyWithinLimit(t *testing.T) {
	c, err := New()
	require.NoError(t, err)

	text := "short text"
	assert.Equal(t, text, c.TruncateToLimit(text, 1000))
}

func TestCountSimpleFallsBackGracefully(t *testing.T) {
	tokens := CountSimple("Hello world")
	assert.GreaterOrEqual(t, tokens, 2)
	assert.LessOrEqual(t, tokens, 3)
}

func TestNilCounterFallsBackToCharacterEstimate(t *testing.T) {
	var c *Counter
	assert.Equal(t, len("abcdefgh")/4, c.Count("abcdefgh"))
}
