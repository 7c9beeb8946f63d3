// Package gemini adapts Google's GenAI API to the llm.Client interface.
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"codeforge/internal/config"
	"codeforge/internal/llm"
)

// Client wraps the Google GenAI client. The underlying SDK client requires a
// context to construct, so it is created lazily on first Complete call,
// matching the teacher's deferred-construction pattern.
type Client struct {
	sdk    *genai.Client
	apiKey string
	model  string
}

// New creates an adapter bound to the default model.
func New(apiKey string) *Client { return NewWithModel(apiKey, "gemini-1.5-pro") }

// NewWithModel creates an adapter bound to a specific model name.
func NewWithModel(apiKey, model string) *Client {
	return &Client{apiKey: apiKey, model: model}
}

// Name implements llm.Client.
func (c *Client) Name() string { return "gemini" }

// GetDefaultConfig implements llm.Client.
func (c *Client) GetDefaultConfig() config.Model {
	return config.Model{Name: c.model, Provider: config.ProviderGemini, MaxTokens: 8192, Temperature: 0.7}
}

// Complete implements llm.Client.
func (c *Client) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	if c.sdk == nil {
		sdk, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: c.apiKey, Backend: genai.BackendGeminiAPI})
		if err != nil {
			return llm.Response{}, llm.ClassifyError(fmt.Errorf("create gemini client: %w", err))
		}
		c.sdk = sdk
	}

	systemPrompt, turns, err := llm.PrepareTurns(req)
	if err != nil {
		return llm.Response{}, llm.ClassifyError(err)
	}

	contents := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		role := "user"
		if t.Role == llm.RoleAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{Role: role, Parts: []*genai.Part{{Text: t.Content}}})
	}

	temperature := req.Temperature
	genConfig := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: int32(req.MaxTokens), //nolint:gosec // bounded by our own config layer
	}
	if systemPrompt != "" {
		genConfig.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: systemPrompt}}}
	}

	result, err := c.sdk.Models.GenerateContent(ctx, c.model, contents, genConfig)
	if err != nil {
		return llm.Response{}, llm.ClassifyError(err)
	}
	if result == nil || len(result.Candidates) == 0 {
		return llm.Response{}, llm.ClassifyError(fmt.Errorf("empty response from gemini API"))
	}

	var text string
	for _, cand := range result.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			text += part.Text
		}
	}

	usage := llm.Response{Content: text}
	if result.UsageMetadata != nil {
		usage.InputTokens = int(result.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int(result.UsageMetadata.CandidatesTokenCount)
	}
	return usage, nil
}
