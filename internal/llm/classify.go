package llm

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"codeforge/internal/llm/llmerrors"
)

// ClassifyError maps a provider SDK error to the shared retry taxonomy.
// Every adapter funnels its transport errors through this single classifier
// so the resulting error type is provider-agnostic.
func ClassifyError(err error) *llmerrors.Error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return llmerrors.Wrap(llmerrors.ErrorTypeTransient, err)
	}

	errStr := err.Error()
	if code := extractStatusCode(errStr); code != 0 {
		switch code {
		case 401, 403:
			return llmerrors.Wrap(llmerrors.ErrorTypeAuth, err)
		case 429:
			return llmerrors.Wrap(llmerrors.ErrorTypeRateLimit, err)
		case 400:
			return llmerrors.Wrap(llmerrors.ErrorTypeBadPrompt, err)
		case 500, 502, 503, 504:
			return llmerrors.Wrap(llmerrors.ErrorTypeTransient, err)
		}
	}

	lower := strings.ToLower(errStr)
	switch {
	case containsAny(lower, "timeout", "connection", "network", "temporary", "eof", "reset"):
		return llmerrors.Wrap(llmerrors.ErrorTypeTransient, err)
	case containsAny(lower, "rate", "quota"):
		return llmerrors.Wrap(llmerrors.ErrorTypeRateLimit, err)
	case containsAny(lower, "auth", "unauthorized", "api key"):
		return llmerrors.Wrap(llmerrors.ErrorTypeAuth, err)
	case containsAny(lower, "invalid", "malformed", "too large", "token limit"):
		return llmerrors.Wrap(llmerrors.ErrorTypeBadPrompt, err)
	default:
		return llmerrors.Wrap(llmerrors.ErrorTypeUnknown, err)
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// extractStatusCode pulls a leading 3-digit HTTP status out of an SDK error
// string, if one of the common "status code: 429"-style patterns is present.
func extractStatusCode(errStr string) int {
	lower := strings.ToLower(errStr)
	for _, pattern := range []string{"status code: ", "status: ", "http ", "code "} {
		idx := strings.Index(lower, pattern)
		if idx == -1 {
			continue
		}
		start := idx + len(pattern)
		end := start + 3
		if end > len(errStr) {
			continue
		}
		if code, err := strconv.Atoi(errStr[start:end]); err == nil && code >= 100 && code < 600 {
			return code
		}
	}
	return 0
}
