// Package llmerrors classifies LLM transport failures and carries retry
// metadata for them. This taxonomy is distinct from, and sits below, the
// pipeline-level ErrorKind taxonomy in internal/model: this package answers
// "did the call to the model provider succeed", not "did the generated code
// build and run".
package llmerrors

import (
	"fmt"
	"time"
)

// ErrorType categorizes an LLM call failure for retry purposes.
type ErrorType int8

const (
	// ErrorTypeRateLimit is a 429 or quota-exceeded response. Retryable.
	ErrorTypeRateLimit ErrorType = iota
	// ErrorTypeTransient is a 5xx, timeout, or connection reset. Retryable.
	ErrorTypeTransient
	// ErrorTypeEmptyResponse is a 200 with no usable content. Retryable.
	ErrorTypeEmptyResponse
	// ErrorTypeAuth is a 401/403 or rejected API key. Not retryable.
	ErrorTypeAuth
	// ErrorTypeBadPrompt is a malformed request the provider rejected outright. Not retryable.
	ErrorTypeBadPrompt
	// ErrorTypeUnknown is any unclassified failure.
	ErrorTypeUnknown
)

// String renders the error type's wire-friendly name.
func (t ErrorType) String() string {
	switch t {
	case ErrorTypeRateLimit:
		return "rate_limit"
	case ErrorTypeTransient:
		return "transient"
	case ErrorTypeEmptyResponse:
		return "empty_response"
	case ErrorTypeAuth:
		return "auth"
	case ErrorTypeBadPrompt:
		return "bad_prompt"
	default:
		return "unknown"
	}
}

// Default retry ceilings per error type.
const (
	DefaultEmptyResponseRetries = 3
	DefaultRateLimitRetries     = 5
	DefaultTransientRetries     = 4
	DefaultAuthRetries          = 0
	DefaultBadPromptRetries     = 0
	DefaultUnknownRetries       = 1
)

// RetryConfig is the exponential backoff schedule for one error type.
type RetryConfig struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

//nolint:gochecknoglobals // configuration table, read-only after init
var defaultRetryConfigs = map[ErrorType]RetryConfig{
	ErrorTypeEmptyResponse: {DefaultEmptyResponseRetries, 2 * time.Second, 20 * time.Second, 2.0},
	ErrorTypeRateLimit:     {DefaultRateLimitRetries, 1 * time.Second, 60 * time.Second, 2.0},
	ErrorTypeTransient:     {DefaultTransientRetries, 500 * time.Millisecond, 10 * time.Second, 2.0},
	ErrorTypeAuth:          {DefaultAuthRetries, 0, 0, 1.0},
	ErrorTypeBadPrompt:     {DefaultBadPromptRetries, 0, 0, 1.0},
	ErrorTypeUnknown:       {DefaultUnknownRetries, 1 * time.Second, 5 * time.Second, 2.0},
}

// RetryConfigFor returns the backoff schedule for an error type.
func RetryConfigFor(t ErrorType) RetryConfig {
	if cfg, ok := defaultRetryConfigs[t]; ok {
		return cfg
	}
	return defaultRetryConfigs[ErrorTypeUnknown]
}

// Backoff returns the delay before retry attempt n (0-indexed), capped at MaxDelay.
func (c RetryConfig) Backoff(attempt int) time.Duration {
	d := float64(c.InitialDelay)
	for i := 0; i < attempt; i++ {
		d *= c.BackoffFactor
	}
	if time.Duration(d) > c.MaxDelay && c.MaxDelay > 0 {
		return c.MaxDelay
	}
	return time.Duration(d)
}

// Error is a classified LLM failure.
type Error struct {
	Err        error
	Message    string
	Type       ErrorType
	StatusCode int
}

// NewError builds a classified Error from a message alone (no wrapped error).
func NewError(t ErrorType, message string) *Error {
	return &Error{Type: t, Message: message}
}

// Wrap classifies an existing error under the given type.
func Wrap(t ErrorType, err error) *Error {
	return &Error{Type: t, Err: err}
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("llm error (%s): %s", e.Type, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("llm error (%s): %v", e.Type, e.Err)
	}
	return fmt.Sprintf("llm error (%s): status %d", e.Type, e.StatusCode)
}

// Unwrap exposes the wrapped error for errors.Is/As.
func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether this error's type permits automatic retry.
func (e *Error) Retryable() bool {
	return RetryConfigFor(e.Type).MaxRetries > 0
}
