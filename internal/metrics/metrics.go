// Package metrics records Prometheus metrics for the generation pipeline:
// iteration counts, per-stage outcomes and durations, LLM call
// latency/tokens, session outcomes, and error-kind frequency, grounded on
// the teacher's
// pkg/agent/middleware/metrics/prometheus.go.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"codeforge/internal/model"
)

// Recorder records pipeline metrics for one process. Construct exactly one
// with New and share it across every session the process handles.
type Recorder struct {
	iterationsTotal  *prometheus.CounterVec
	stageDuration    *prometheus.HistogramVec
	stageOutcomes    *prometheus.CounterVec
	llmRequestsTotal *prometheus.CounterVec
	llmTokensTotal   *prometheus.CounterVec
	llmDuration      *prometheus.HistogramVec
	sessionsTotal    *prometheus.CounterVec
	errorKindTotal   *prometheus.CounterVec
}

// New builds a Recorder and registers its collectors with the default
// Prometheus registry.
func New() *Recorder {
	return &Recorder{
		iterationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codeforge_iterations_total",
				Help: "Total number of generate/build/test iterations run, by language",
			},
			[]string{"language"},
		),
		stageDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "codeforge_stage_duration_seconds",
				Help:    "Duration of one pipeline stage (codegen, build, test) in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage", "language"},
		),
		stageOutcomes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codeforge_stage_outcomes_total",
				Help: "Outcome of each pipeline stage, by stage, language, and status",
			},
			[]string{"stage", "language", "status"},
		),
		llmRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codeforge_llm_requests_total",
				Help: "Total LLM completion calls, by provider, model, and status",
			},
			[]string{"provider", "model", "status"},
		),
		llmTokensTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codeforge_llm_tokens_total",
				Help: "Total LLM tokens consumed, by provider, model, and token type",
			},
			[]string{"provider", "model", "type"},
		),
		llmDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "codeforge_llm_request_duration_seconds",
				Help:    "Duration of LLM completion calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider", "model"},
		),
		sessionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codeforge_sessions_total",
				Help: "Total generation sessions, by language and final success",
			},
			[]string{"language", "success"},
		),
		errorKindTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codeforge_error_kind_total",
				Help: "Total classified failures, by language and error kind",
			},
			[]string{"language", "kind"},
		),
	}
}

// ObserveStage records one stage's duration and pass/fail outcome.
func (r *Recorder) ObserveStage(stage string, language model.Language, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failed"
	}
	r.stageDuration.WithLabelValues(stage, string(language)).Observe(duration.Seconds())
	r.stageOutcomes.WithLabelValues(stage, string(language), status).Inc()
}

// ObserveIteration increments the per-language iteration counter.
func (r *Recorder) ObserveIteration(language model.Language) {
	r.iterationsTotal.WithLabelValues(string(language)).Inc()
}

// ObserveLLMRequest records one completion call's latency, token usage, and
// outcome.
func (r *Recorder) ObserveLLMRequest(provider, modelName string, promptTokens, completionTokens int, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	r.llmRequestsTotal.WithLabelValues(provider, modelName, status).Inc()
	if success {
		r.llmTokensTotal.WithLabelValues(provider, modelName, "prompt").Add(float64(promptTokens))
		r.llmTokensTotal.WithLabelValues(provider, modelName, "completion").Add(float64(completionTokens))
	}
	r.llmDuration.WithLabelValues(provider, modelName).Observe(duration.Seconds())
}

// ObserveSession records one finalized session's language and success.
func (r *Recorder) ObserveSession(language model.Language, success bool) {
	r.sessionsTotal.WithLabelValues(string(language), boolLabel(success)).Inc()
}

// ObserveErrorKind increments the classified-failure counter.
func (r *Recorder) ObserveErrorKind(language model.Language, kind model.ErrorKind) {
	r.errorKindTotal.WithLabelValues(string(language), string(kind)).Inc()
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
