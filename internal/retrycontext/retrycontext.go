// Package retrycontext formats a parsed ErrorInfo into the fixed prompt
// fragment fed into the next generation attempt, grounded on the original
// pipeline's ERROR_CONTEXT_TEMPLATE.
package retrycontext

import (
	"fmt"
	"strings"

	"codeforge/internal/model"
)

// Format renders the structured error into the retry prompt fragment for
// the given iteration index (1-based) out of maxIterations.
func Format(info model.ErrorInfo, iteration, maxIterations int) string {
	return fmt.Sprintf(
		"\n**Previous Attempt Failed:**\n\n"+
			"**Error Type:** %s\n"+
			"**Root Cause:** %s\n\n"+
			"**Specific Issues:**\n%s\n\n"+
			"**Required Fixes:**\n%s\n\n"+
			"**Iteration:** %d/%d\n",
		strings.ToUpper(string(info.Kind)),
		info.RootCause,
		bulleted(info.SpecificIssues),
		bulleted(info.SuggestedFixes),
		iteration,
		maxIterations,
	)
}

// FormatMissingCredentials renders the companion fragment for a session that
// detected missing runtime credentials, matching the original's
// MISSING_CREDENTIALS_TEMPLATE.
func FormatMissingCredentials(labels []string) string {
	return fmt.Sprintf(
		"\n**Missing Runtime Credentials Detected:**\n\n"+
			"The generated code requires the following:\n%s\n",
		bulleted(labels),
	)
}

func bulleted(items []string) string {
	if len(items) == 0 {
		return "- (none)"
	}
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "- " + item
	}
	return strings.Join(lines, "\n")
}
