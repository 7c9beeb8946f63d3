package errorparser

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"codeforge/internal/model"
)

func TestParsePythonModuleNotFound(t *testing.T) {
	info := Parse(`Traceback (most recent call last):
ModuleNotFoundError: No module named 'requests'`, model.LanguagePython, "")
	assert.Equal(t, model.ErrorKindBuild, info.Kind)
	assert.Equal(t, "Missing Python package: requests", info.RootCause)
	assert.Contains(t, info.SpecificIssues, "Missing package: requests")
}

func TestParsePythonSyntaxError(t *testing.T) {
	info := Parse(`SyntaxError: invalid syntax (line 12)`, model.LanguagePython, "")
	assert.Equal(t, model.ErrorKindSyntax, info.Kind)
	assert.Contains(t, info.RootCause, "line 12")
}

func TestParseJavaCompileError(t *testing.T) {
	info := Parse(`Main.java:10: error: cannot find symbol`, model.LanguageJava, "")
	assert.Equal(t, model.ErrorKindSyntax, info.Kind)
	assert.Contains(t, info.RootCause, "Main.java")
}

func TestParseJavaPackageDoesNotExist(t *testing.T) {
	info := Parse(`package org.springframework.boot does not exist`, model.LanguageJava, "")
	assert.Equal(t, model.ErrorKindBuild, info.Kind)
	assert.Contains(t, info.RootCause, "org.springframework.boot")
}

func TestParseMissingCredentialsFromError(t *testing.T) {
	info := Parse(`401 Unauthorized: invalid API key`, model.LanguagePython, "")
	assert.Equal(t, model.ErrorKindMissingCredentials, info.Kind)
	assert.NotEmpty(t, info.MissingCredentials)
}

func TestParseMissingCredentialsFromPlaceholderCode(t *testing.T) {
	info := Parse(`ConnectionError: could not reach host`, model.LanguagePython, `api_key = 'YOUR_API_KEY_HERE'`)
	assert.Contains(t, info.MissingCredentials, "API Key (found placeholder in code)")
}

func TestParseDefaultsToLogic(t *testing.T) {
	info := Parse(`the output did not match expectations`, model.LanguagePython, "")
	assert.Equal(t, model.ErrorKindLogic, info.Kind)
}

func TestParseNoMatchesFallsBackToRawError(t *testing.T) {
	info := Parse(`some unparseable output without known markers`, model.LanguagePython, "")
	assert.Equal(t, []string{"See raw error for details"}, info.SpecificIssues)
}
