package llm

import (
	"fmt"

	"codeforge/internal/config"
	"codeforge/internal/llm/anthropic"
	"codeforge/internal/llm/gemini"
	"codeforge/internal/llm/ollama"
	"codeforge/internal/llm/openai"
)

// New builds the concrete adapter for a model's configured provider. apiKey
// is ignored for the ollama provider, which runs unauthenticated locally.
func New(m config.Model, apiKey, ollamaHost string) (Client, error) {
	switch m.Provider {
	case config.ProviderAnthropic:
		return anthropic.NewWithModel(apiKey, m.Name), nil
	case config.ProviderOpenAI:
		return openai.NewWithModel(apiKey, m.Name), nil
	case config.ProviderGemini:
		return gemini.NewWithModel(apiKey, m.Name), nil
	case config.ProviderOllama:
		return ollama.New(ollamaHost, m.Name), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", m.Provider)
	}
}
