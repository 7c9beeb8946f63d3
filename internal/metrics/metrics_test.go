package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeforge/internal/config"
	"codeforge/internal/llm"
	"codeforge/internal/model"
)

// testRecorder is the one Recorder shared by every test in this file: New
// registers with the default Prometheus registry, so a second call would
// panic on duplicate registration. Each test observes its own label set.
var testRecorder = New()

func TestObserveStageIncrementsCounterAndHistogram(t *testing.T) {
	r := testRecorder
	r.ObserveStage("build", model.LanguagePython, true, 250*time.Millisecond)

	count := testutil.ToFloat64(r.stageOutcomes.WithLabelValues("build", "python", "success"))
	assert.Equal(t, float64(1), count)
}

func TestObserveSessionRecordsSuccessLabel(t *testing.T) {
	r := testRecorder
	r.ObserveSession(model.LanguageJava, false)

	count := testutil.ToFloat64(r.sessionsTotal.WithLabelValues("java", "false"))
	assert.Equal(t, float64(1), count)
}

func TestObserveErrorKindIncrementsByKind(t *testing.T) {
	r := testRecorder
	r.ObserveErrorKind(model.LanguagePython, model.ErrorKindMissingCredentials)

	count := testutil.ToFloat64(r.errorKindTotal.WithLabelValues("python", "MISSING_CREDENTIALS"))
	assert.Equal(t, float64(1), count)
}

type stubClient struct {
	resp llm.Response
	err  error
}

func (s *stubClient) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	return s.resp, s.err
}
func (s *stubClient) GetDefaultConfig() config.Model { return config.Model{Name: "stub-model"} }
func (s *stubClient) Name() string                   { return "stub" }

func TestInstrumentRecordsTokensOnSuccess(t *testing.T) {
	r := testRecorder
	inner := &stubClient{resp: llm.Response{Content: "ok", InputTokens: 10, OutputTokens: 20}}
	wrapped := Instrument(inner, r)

	resp, err := wrapped.Complete(context.Background(), llm.NewRequest(llm.UserMessage("hi")))
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)

	assert.Equal(t, float64(10), testutil.ToFloat64(r.llmTokensTotal.WithLabelValues("stub", "stub-model", "prompt")))
	assert.Equal(t, float64(20), testutil.ToFloat64(r.llmTokensTotal.WithLabelValues("stub", "stub-model", "completion")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.llmRequestsTotal.WithLabelValues("stub", "stub-model", "success")))
}
