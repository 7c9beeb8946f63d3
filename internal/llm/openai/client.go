// Package openai adapts the OpenAI API to the llm.Client interface.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"codeforge/internal/config"
	"codeforge/internal/llm"
)

// Client wraps the official OpenAI Go client.
type Client struct {
	sdk   openai.Client
	model string
}

// New creates an adapter bound to the default model.
func New(apiKey string) *Client { return NewWithModel(apiKey, "gpt-4o") }

// NewWithModel creates an adapter bound to a specific model name.
func NewWithModel(apiKey, model string) *Client {
	return &Client{sdk: openai.NewClient(option.WithAPIKey(apiKey)), model: model}
}

// Name implements llm.Client.
func (c *Client) Name() string { return "openai" }

// GetDefaultConfig implements llm.Client.
func (c *Client) GetDefaultConfig() config.Model {
	return config.Model{Name: c.model, Provider: config.ProviderOpenAI, MaxTokens: 8192, Temperature: 0.7}
}

// Complete implements llm.Client.
func (c *Client) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case llm.RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		case llm.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   openai.Int(int64(req.MaxTokens)),
		Temperature: openai.Float(float64(req.Temperature)),
	}

	resp, err := c.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		return llm.Response{}, llm.ClassifyError(err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return llm.Response{}, llm.ClassifyError(fmt.Errorf("empty response from OpenAI chat completions"))
	}

	return llm.Response{
		Content:      resp.Choices[0].Message.Content,
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
	}, nil
}
