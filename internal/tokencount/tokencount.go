// Package tokencount estimates prompt and response sizes for the generation
// pipeline using tiktoken-go, grounded on the teacher's pkg/utils/tiktoken.go.
// It backs the Orchestrator's retry-context truncation: each iteration's
// error context is bounded so the accumulating prompt never exceeds a
// model's context window.
package tokencount

import (
	"fmt"

	"github.com/tiktoken-go/tokenizer"
)

// Counter counts tokens against a fixed encoding.
type Counter struct {
	codec tokenizer.Codec
}

// New builds a Counter using the GPT-4 encoding, which every supported
// provider's output is close enough to for budgeting purposes (the pipeline
// estimates prompt size, it does not enforce an exact provider-native count).
func New() (*Counter, error) {
	codec, err := tokenizer.ForModel(tokenizer.GPT4)
	if err != nil {
		return nil, fmt.Errorf("tokencount: creating codec: %w", err)
	}
	return &Counter{codec: codec}, nil
}

// Count returns the number of tokens in text, falling back to a
// character-based estimate (4 chars per token) if the codec is unavailable
// or fails, so callers always get a usable bound.
func (c *Counter) Count(text string) int {
	if c == nil || c.codec == nil {
		return len(text) / 4
	}
	n, err := c.codec.Count(text)
	if err != nil {
		return len(text) / 4
	}
	return n
}

// WithinLimit reports whether text fits within limit tokens.
func (c *Counter) WithinLimit(text string, limit int) bool {
	return c.Count(text) <= limit
}

// TruncateToLimit truncates text to approximately fit within limit tokens,
// proportionally scaling by character count with a 10% safety margin since
// token boundaries rarely align with character offsets.
func (c *Counter) TruncateToLimit(text string, limit int) string {
	current := c.Count(text)
	if current <= limit {
		return text
	}

	ratio := float64(limit) / float64(current)
	charLimit := int(float64(len(text)) * ratio * 0.9)
	if charLimit >= len(text) {
		return text
	}
	if charLimit < 0 {
		charLimit = 0
	}
	return text[:charLimit] + "..."
}

// CountSimple is a package-level convenience for one-off counts where
// constructing a Counter isn't worth it; it still pays the codec
// construction cost internally.
func CountSimple(text string) int {
	c, err := New()
	if err != nil {
		return len(text) / 4
	}
	return c.Count(text)
}
