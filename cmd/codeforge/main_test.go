package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"codeforge/internal/config"
	"codeforge/internal/model"
)

func TestParseLanguageRecognizesJavaCaseInsensitively(t *testing.T) {
	assert.Equal(t, model.LanguageJava, parseLanguage("Java"))
	assert.Equal(t, model.LanguageJava, parseLanguage("JAVA"))
}

func TestParseLanguageDefaultsToPython(t *testing.T) {
	assert.Equal(t, model.LanguagePython, parseLanguage("python"))
	assert.Equal(t, model.LanguagePython, parseLanguage("whatever"))
	assert.Equal(t, model.LanguagePython, parseLanguage(""))
}

func TestDefaultModelFindsMatchingProvider(t *testing.T) {
	cfg := config.Config{
		DefaultProvider: config.ProviderAnthropic,
		Models: map[string]config.Model{
			"gpt-4o":        {Name: "gpt-4o", Provider: config.ProviderOpenAI},
			"claude-sonnet": {Name: "claude-sonnet", Provider: config.ProviderAnthropic},
		},
	}

	m, ok := defaultModel(cfg)
	assert.True(t, ok)
	assert.Equal(t, "claude-sonnet", m.Name)
}

func TestDefaultModelReportsMissingProvider(t *testing.T) {
	cfg := config.Config{
		DefaultProvider: config.ProviderGemini,
		Models: map[string]config.Model{
			"gpt-4o": {Name: "gpt-4o", Provider: config.ProviderOpenAI},
		},
	}

	_, ok := defaultModel(cfg)
	assert.False(t, ok)
}
