// Package anthropic adapts the Anthropic Claude API to the llm.Client interface.
package anthropic

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"codeforge/internal/config"
	"codeforge/internal/llm"
)

// Client wraps the Anthropic SDK client.
type Client struct {
	sdk   anthropic.Client
	model anthropic.Model
}

// New creates an adapter bound to the default model.
func New(apiKey string) *Client {
	return NewWithModel(apiKey, "claude-sonnet-4-20250514")
}

// NewWithModel creates an adapter bound to a specific model name.
func NewWithModel(apiKey, model string) *Client {
	sdk := anthropic.NewClient(
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0), // SDK-level retries disabled; each Complete is a single attempt
	)
	return &Client{sdk: sdk, model: anthropic.Model(model)}
}

// Name implements llm.Client.
func (c *Client) Name() string { return "anthropic" }

// GetDefaultConfig implements llm.Client.
func (c *Client) GetDefaultConfig() config.Model {
	return config.Model{Name: string(c.model), Provider: config.ProviderAnthropic, MaxTokens: 8192, Temperature: 0.7}
}

// Complete implements llm.Client.
func (c *Client) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	systemPrompt, turns, err := llm.PrepareTurns(req)
	if err != nil {
		return llm.Response{}, llm.ClassifyError(err)
	}

	messages := make([]anthropic.MessageParam, 0, len(turns))
	for _, t := range turns {
		block := anthropic.NewTextBlock(t.Content)
		if t.Role == llm.RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}

	params := anthropic.MessageNewParams{
		Model:       c.model,
		MaxTokens:   int64(req.MaxTokens),
		Temperature: anthropic.Float(float64(req.Temperature)),
		Messages:    messages,
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}

	resp, err := c.sdk.Messages.New(ctx, params)
	if err != nil {
		return llm.Response{}, llm.ClassifyError(err)
	}
	if resp == nil || len(resp.Content) == 0 {
		return llm.Response{}, llm.ClassifyError(errEmptyResponse)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.AsText().Text
		}
	}

	return llm.Response{
		Content:      text,
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
	}, nil
}

var errEmptyResponse = emptyResponseError{}

type emptyResponseError struct{}

func (emptyResponseError) Error() string { return "received empty response from Claude API" }
