// Package llm defines the provider-agnostic interface the Code Generator
// Agent and Testing Agent judge call through, plus the request/response
// shapes every concrete adapter (anthropic, openai, ollama, gemini) fills in.
package llm

import (
	"context"
	"fmt"

	"codeforge/internal/config"
)

// Role is the speaker of one message in a completion request.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn in a completion request.
type Message struct {
	Role    Role
	Content string
}

// Request is a single completion call: a message list plus sampling
// parameters. Adapters are responsible for translating this into their
// provider's native wire format (e.g. extracting system messages into a
// top-level parameter, enforcing strict user/assistant alternation).
type Request struct {
	Messages    []Message
	MaxTokens   int
	Temperature float32
}

// NewRequest builds a Request with the pipeline's default sampling
// parameters, matching the teacher's 4096-token/0.7-temperature defaults.
func NewRequest(messages ...Message) Request {
	return Request{Messages: messages, MaxTokens: 4096, Temperature: 0.7}
}

// SystemMessage builds a system-role message.
func SystemMessage(content string) Message { return Message{Role: RoleSystem, Content: content} }

// UserMessage builds a user-role message.
func UserMessage(content string) Message { return Message{Role: RoleUser, Content: content} }

// Response is the provider's reply to a completion Request.
type Response struct {
	Content      string
	InputTokens  int
	OutputTokens int
}

// Client is the interface every provider adapter implements. It mirrors the
// teacher's LLMClient shape (Complete/GetDefaultConfig) but drops Stream and
// tool-calling, which the code-generation and test-judging use cases in this
// pipeline never need: every call here wants one complete text response.
type Client interface {
	// Complete sends a request and returns the full response synchronously.
	Complete(ctx context.Context, req Request) (Response, error)

	// GetDefaultConfig returns this adapter's default model binding.
	GetDefaultConfig() config.Model

	// Name identifies the adapter for logging ("anthropic", "openai", ...).
	Name() string
}

// ensureAlternation extracts system-role messages into a single system
// prompt string and merges consecutive same-role messages, matching the
// normalization every provider in the pack requires before the wire call.
// It returns an error if the resulting sequence is empty or does not end on
// a user message, since every supported provider rejects that shape.
func ensureAlternation(messages []Message) (systemPrompt string, turns []Message, err error) {
	var systemParts []string
	var nonSystem []Message
	for _, m := range messages {
		if m.Role == RoleSystem {
			systemParts = append(systemParts, m.Content)
			continue
		}
		nonSystem = append(nonSystem, m)
	}
	if len(nonSystem) == 0 {
		return "", nil, fmt.Errorf("request has no user/assistant messages")
	}

	var merged []Message
	for _, m := range nonSystem {
		if n := len(merged); n > 0 && merged[n-1].Role == m.Role {
			merged[n-1].Content = merged[n-1].Content + "\n\n" + m.Content
			continue
		}
		merged = append(merged, m)
	}

	if merged[0].Role != RoleUser {
		return "", nil, fmt.Errorf("first message must be user role, got %s", merged[0].Role)
	}
	if merged[len(merged)-1].Role != RoleUser {
		return "", nil, fmt.Errorf("last message must be user role, got %s", merged[len(merged)-1].Role)
	}

	return joinSystem(systemParts), merged, nil
}

func joinSystem(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "\n\n"
		}
		out += p
	}
	return out
}

// PrepareTurns is the exported entry point adapters call before translating
// a Request into their provider's wire format.
func PrepareTurns(req Request) (systemPrompt string, turns []Message, err error) {
	return ensureAlternation(req.Messages)
}
