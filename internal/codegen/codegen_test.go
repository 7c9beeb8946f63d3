package codegen

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeforge/internal/config"
	"codeforge/internal/llm"
	"codeforge/internal/model"
)

type fakeClient struct {
	response string
	err      error
}

func (f *fakeClient) Complete(_ context.Context, _ llm.Request) (llm.Response, error) {
	if f.err != nil {
		return llm.Response{}, f.err
	}
	return llm.Response{Content: f.response}, nil
}

func (f *fakeClient) GetDefaultConfig() config.Model { return config.Model{} }
func (f *fakeClient) Name() string                   { return "fake" }

func TestGeneratePythonSplitsAndExtractsDependencies(t *testing.T) {
	client := &fakeClient{response: "# FILE: main.py\nimport requests\nprint('hi')\n"}
	agent := New(client)

	bundle, err := agent.Generate(context.Background(), "print hello", model.LanguagePython, "")
	require.NoError(t, err)
	require.Len(t, bundle.Files, 1)
	assert.Equal(t, "main.py", bundle.Files[0].Filename)
	assert.Contains(t, depNames(bundle.Dependencies), "requests")
}

func TestGenerateJavaRewritesNamespaceAndBalancesBraces(t *testing.T) {
	client := &fakeClient{response: "// FILE: Main.java\nimport javax.persistence.Entity;\npublic class Main {\n  public static void main(String[] a) {\n"}
	agent := New(client)

	bundle, err := agent.Generate(context.Background(), "entity service", model.LanguageJava, "")
	require.NoError(t, err)
	require.Len(t, bundle.Files, 1)
	assert.Contains(t, bundle.Files[0].Body, "import jakarta.persistence.Entity;")
	assert.NotContains(t, bundle.Files[0].Body, "import javax.persistence.Entity;")

	opens := countRune(bundle.Files[0].Body, '{')
	closes := countRune(bundle.Files[0].Body, '}')
	assert.Equal(t, opens, closes)
}

func TestGenerateReturnsErrorOnLLMFailure(t *testing.T) {
	client := &fakeClient{err: assertErr{}}
	agent := New(client)

	_, err := agent.Generate(context.Background(), "anything", model.LanguagePython, "")
	assert.Error(t, err)
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }

func depNames(deps []model.Dependency) []string {
	names := make([]string, len(deps))
	for i, d := range deps {
		names[i] = d.String()
	}
	return names
}

func countRune(s string, r rune) int {
	n := 0
	for _, c := range s {
		if c == r {
			n++
		}
	}
	return n
}
