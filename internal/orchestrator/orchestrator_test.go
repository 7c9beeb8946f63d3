package orchestrator

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeforge/internal/codegen"
	"codeforge/internal/config"
	"codeforge/internal/llm"
	"codeforge/internal/metrics"
	"codeforge/internal/model"
	"codeforge/internal/sessionstore"
	"codeforge/internal/testingagent"
	"codeforge/internal/toolrunner"
)

// scriptedClient replies with a fixed response regardless of the prompt; it
// is enough to drive the orchestrator loop end to end without a real
// provider, since codegen and the judge both only ever need one text reply
// per call.
type scriptedClient struct {
	response string
}

func (c *scriptedClient) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	return llm.Response{Content: c.response}, nil
}

func (c *scriptedClient) GetDefaultConfig() config.Model { return config.Model{Name: "scripted"} }
func (c *scriptedClient) Name() string                   { return "scripted" }

func TestGenerateCodeSucceedsOnFirstIterationWithCleanPythonAndHeuristicJudge(t *testing.T) {
	if lookPathSkip(t) {
		return
	}

	codeGenClient := &scriptedClient{response: "# FILE: main.py\nprint('hello world')\n"}
	// An unparsable judge response forces the heuristic fallback, which
	// passes because stdout is non-empty and stderr has no "error" text.
	judgeClient := &scriptedClient{response: "not json at all"}

	o := New(codegen.New(codeGenClient), testingagent.New(judgeClient), sessionstore.New(t.TempDir()), nil)

	session, err := o.GenerateCode(context.Background(), model.Requirement{
		Text:     "print a greeting",
		Language: model.LanguagePython,
	}, 3, nil)

	require.NoError(t, err)
	assert.True(t, session.Success)
	assert.Equal(t, model.StageSuccess, session.Status)
	assert.Len(t, session.Iterations, 1)
	assert.Equal(t, 1, session.CurrentIteration)
}

func TestGenerateCodeExhaustsIterationsOnPersistentSyntaxError(t *testing.T) {
	if lookPathSkip(t) {
		return
	}

	// Missing closing paren: a persistent Python syntax error every
	// iteration, so the loop should run to max_iterations and fail.
	codeGenClient := &scriptedClient{response: "# FILE: main.py\nprint('oops'\n"}
	judgeClient := &scriptedClient{response: "not json"}

	o := New(codegen.New(codeGenClient), testingagent.New(judgeClient), sessionstore.New(t.TempDir()), nil)

	session, err := o.GenerateCode(context.Background(), model.Requirement{
		Text:     "broken code",
		Language: model.LanguagePython,
	}, 2, nil)

	require.NoError(t, err)
	assert.False(t, session.Success)
	assert.Equal(t, model.StageFailed, session.Status)
	assert.Len(t, session.Iterations, 2)
	assert.NotNil(t, session.Iterations[0].Error)
	assert.NotNil(t, session.Iterations[1].Error)
}

func TestGenerateCodeSavesAndReloadsSessionWithMigration(t *testing.T) {
	if lookPathSkip(t) {
		return
	}

	store := sessionstore.New(t.TempDir())
	codeGenClient := &scriptedClient{response: "# FILE: main.py\nprint('hi')\n"}
	judgeClient := &scriptedClient{response: "not json"}
	o := New(codegen.New(codeGenClient), testingagent.New(judgeClient), store, nil)

	session, err := o.GenerateCode(context.Background(), model.Requirement{
		Text:     "say hi",
		Language: model.LanguagePython,
	}, 1, nil)
	require.NoError(t, err)

	loaded, err := o.LoadSession(session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, loaded.ID)
	assert.True(t, loaded.Success)

	summaries, err := o.ListSessions()
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, session.ID, summaries[0].ID)
}

func TestGenerateCodeRecordsMetricsWhenRecorderAttached(t *testing.T) {
	if lookPathSkip(t) {
		return
	}

	rec := metrics.New()
	codeGenClient := &scriptedClient{response: "# FILE: main.py\nprint('hi')\n"}
	judgeClient := &scriptedClient{response: "not json"}
	o := New(codegen.New(codeGenClient), testingagent.New(judgeClient), sessionstore.New(t.TempDir()), nil).WithMetrics(rec)

	session, err := o.GenerateCode(context.Background(), model.Requirement{
		Text:     "say hi",
		Language: model.LanguagePython,
	}, 1, nil)

	require.NoError(t, err)
	assert.True(t, session.Success)
	assert.NotNil(t, o.Metrics)
}

func TestBoundErrorContextTruncatesLongContext(t *testing.T) {
	o := New(nil, nil, sessionstore.New(t.TempDir()), nil)
	long := strings.Repeat("error detail line\n", 2000)

	bounded := o.boundErrorContext(long)
	assert.Less(t, len(bounded), len(long))
}

func TestDeriveProjectNameSlugifiesAndTruncates(t *testing.T) {
	name := deriveProjectName("Build A REST API For Todo Items")
	assert.Equal(t, "build-a-rest-api", name)
}

func TestDeriveProjectNameFallsBackWhenEmpty(t *testing.T) {
	name := deriveProjectName("!!! ??? ...")
	assert.Equal(t, "generated-project", name)
}

func TestMergeUniqueDeduplicatesPreservingOrder(t *testing.T) {
	out := mergeUnique([]string{"A", "B"}, []string{"B", "C"})
	assert.Equal(t, []string{"A", "B", "C"}, out)
}

// lookPathSkip skips tests that need a real python3 interpreter on PATH,
// matching the established pattern in the testingagent/buildagent suites.
func lookPathSkip(t *testing.T) bool {
	t.Helper()
	if toolrunner.LookPath("python3") == "" {
		t.Skip("python3 not found on PATH")
		return true
	}
	return false
}
