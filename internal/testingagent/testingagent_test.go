package testingagent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"codeforge/internal/config"
	"codeforge/internal/llm"
	"codeforge/internal/model"
	"codeforge/internal/toolrunner"
)

type fakeJudge struct {
	response string
	err      error
}

func (f *fakeJudge) Complete(_ context.Context, _ llm.Request) (llm.Response, error) {
	if f.err != nil {
		return llm.Response{}, f.err
	}
	return llm.Response{Content: f.response}, nil
}
func (f *fakeJudge) GetDefaultConfig() config.Model { return config.Model{} }
func (f *fakeJudge) Name() string                   { return "fake-judge" }

func TestExecuteAndTestJavaRejectsMissingPublicClass(t *testing.T) {
	agent := New(&fakeJudge{})
	result := agent.ExecuteAndTest(context.Background(), "do something", "class NotPublic {}\n", model.LanguageJava, nil)
	assert.Equal(t, model.StageFailed, result.Status)
	assert.Contains(t, result.IssuesFound[0], "public class")
}

func TestExecuteAndTestPythonSucceedsAndJudgePasses(t *testing.T) {
	if toolrunner.LookPath("python3") == "" {
		t.Skip("python3 not on PATH")
	}
	agent := New(&fakeJudge{response: "```json\n{\"status\": \"pass\", \"test_cases\": [{\"name\": \"Output\", \"status\": \"pass\", \"description\": \"ok\"}]}\n```"})
	result := agent.ExecuteAndTest(context.Background(), "print hello", "print('hello')\n", model.LanguagePython, nil)
	assert.True(t, result.Success())
	assert.Len(t, result.Cases, 1)
}

func TestExecuteAndTestFallsBackToHeuristicWhenJudgeFails(t *testing.T) {
	if toolrunner.LookPath("python3") == "" {
		t.Skip("python3 not on PATH")
	}
	agent := New(&fakeJudge{err: assertErr{}})
	result := agent.ExecuteAndTest(context.Background(), "print hello", "print('hello')\n", model.LanguagePython, nil)
	assert.True(t, result.Success())
	assert.Equal(t, "Basic Execution", result.Cases[0].Name)
}

func TestInjectPythonCredentialsPrependsBindings(t *testing.T) {
	out := injectPythonCredentials("print(API_KEY)\n", map[string]string{"API_KEY": "secret"})
	assert.Contains(t, out, `API_KEY = "secret"`)
}

func TestInjectJavaCredentialsInsertsFieldAfterOpeningBrace(t *testing.T) {
	out := injectJavaCredentials("public class Main {\n}\n", "Main", map[string]string{"DB_PASSWORD": "secret"})
	assert.Contains(t, out, `private static final String DB_PASSWORD = "secret";`)
}

func TestExtractJudgeJSONHandlesFencedAndRawForms(t *testing.T) {
	_, ok := extractJudgeJSON("no json here")
	assert.False(t, ok)

	parsed, ok := extractJudgeJSON(`{"status": "fail", "issues_found": ["x"]}`)
	assert.True(t, ok)
	assert.Equal(t, "fail", parsed.Status)
}

func TestHeuristicValidationPassesOnCleanOutput(t *testing.T) {
	result := heuristicValidation(execResult{success: true, stdout: "hi", stderr: ""})
	assert.True(t, result.Success())
}

func TestHeuristicValidationFailsOnErrorInStderr(t *testing.T) {
	result := heuristicValidation(execResult{success: true, stdout: "hi", stderr: "Traceback: error occurred"})
	assert.False(t, result.Success())
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
