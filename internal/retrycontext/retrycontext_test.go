package retrycontext

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"codeforge/internal/model"
)

func TestFormatIncludesAllFields(t *testing.T) {
	info := model.ErrorInfo{
		Kind:           model.ErrorKindBuild,
		RootCause:      "Missing Python package: requests",
		SpecificIssues: []string{"Missing package: requests"},
		SuggestedFixes: []string{"Add missing packages to requirements.txt"},
	}

	out := Format(info, 2, 5)
	assert.Contains(t, out, "BUILD")
	assert.Contains(t, out, "Missing Python package: requests")
	assert.Contains(t, out, "- Missing package: requests")
	assert.Contains(t, out, "- Add missing packages to requirements.txt")
	assert.Contains(t, out, "Iteration:** 2/5")
}

func TestFormatEmptyListsRenderNone(t *testing.T) {
	out := Format(model.ErrorInfo{Kind: model.ErrorKindLogic, RootCause: "unknown"}, 1, 1)
	assert.Contains(t, out, "- (none)")
}

func TestFormatMissingCredentials(t *testing.T) {
	out := FormatMissingCredentials([]string{"API Key or Authentication Token"})
	assert.Contains(t, out, "Missing Runtime Credentials Detected")
	assert.Contains(t, out, "- API Key or Authentication Token")
}
