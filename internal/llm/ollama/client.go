// Package ollama adapts a local Ollama runtime to the llm.Client interface.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"

	"codeforge/internal/config"
	"codeforge/internal/llm"
)

// Client wraps the Ollama API client.
type Client struct {
	sdk     *api.Client
	model   string
	hostURL string
}

// New creates an adapter against a local Ollama server, falling back to the
// default localhost address if hostURL does not parse.
func New(hostURL, model string) *Client {
	parsed, err := url.Parse(hostURL)
	if err != nil || hostURL == "" {
		parsed, _ = url.Parse("http://localhost:11434")
	}
	return &Client{sdk: api.NewClient(parsed, http.DefaultClient), model: model, hostURL: hostURL}
}

// Name implements llm.Client.
func (c *Client) Name() string { return "ollama" }

// GetDefaultConfig implements llm.Client.
func (c *Client) GetDefaultConfig() config.Model {
	return config.Model{Name: c.model, Provider: config.ProviderOllama, MaxTokens: 4096, Temperature: 0.7}
}

// Complete implements llm.Client.
func (c *Client) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	messages := make([]api.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, api.Message{Role: string(m.Role), Content: m.Content})
	}

	stream := false
	chatReq := &api.ChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   &stream,
		Options: map[string]any{
			"temperature": req.Temperature,
			"num_predict": req.MaxTokens,
		},
	}

	var response api.ChatResponse
	err := c.sdk.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		response = resp
		return nil
	})
	if err != nil {
		return llm.Response{}, llm.ClassifyError(err)
	}
	if response.Message.Content == "" {
		return llm.Response{}, llm.ClassifyError(fmt.Errorf("empty response from ollama model %s", c.model))
	}

	return llm.Response{
		Content:      response.Message.Content,
		InputTokens:  response.PromptEvalCount,
		OutputTokens: response.EvalCount,
	}, nil
}
