// Package errorparser classifies raw tool/runtime error text into the
// ErrorKind taxonomy and extracts the structured detail the Retry-Context
// Synthesizer needs, grounded on the original pipeline's regex-driven
// classifier (known Python/Java diagnostic shapes) and the teacher's
// wrapped-error idiom for everything else.
package errorparser

import (
	"regexp"
	"strings"

	"codeforge/internal/logx"
	"codeforge/internal/model"
)

var log = logx.NewLogger("errorparser")

// Patterns recognized across both ecosystems.
var (
	pythonSyntaxError = regexp.MustCompile(`SyntaxError: (.+?) \(line (\d+)\)`)
	pythonImportError = regexp.MustCompile(`ModuleNotFoundError: No module named '(.+?)'`)
	pythonNameError   = regexp.MustCompile(`NameError: name '(.+?)' is not defined`)
	pythonTypeError   = regexp.MustCompile(`TypeError: (.+)`)

	javaCompileError      = regexp.MustCompile(`(\w+\.java):(\d+): error: (.+)`)
	javaSymbolError       = regexp.MustCompile(`cannot find symbol\s+symbol:\s+(\w+)\s+(\w+)`)
	javaPackageError      = regexp.MustCompile(`package (.+?) does not exist`)
	javaIncompatibleTypes = regexp.MustCompile(`incompatible types: (.+?) cannot be converted to (.+)`)
	javaMethodError       = regexp.MustCompile(`cannot find symbol\s+symbol:\s+method (.+?)\(`)
	javaClassNotFound     = regexp.MustCompile(`ClassNotFoundException: (.+)`)

	dbConnectionError = regexp.MustCompile(`(?i)could not connect|connection refused|access denied`)
	apiError          = regexp.MustCompile(`(?i)HTTP Error (\d+)|ConnectionError|Timeout`)
	missingAPIKey     = regexp.MustCompile(`(?i)api[_\s]?key|authorization|authentication`)

	credentialPlaceholder = regexp.MustCompile(`(?i)api[_]?key\s*=\s*['"]YOUR_|TODO|REPLACE`)
	knownPublicAPIHosts   = regexp.MustCompile(`(?i)api\.openweathermap\.org|api\.time\.io`)
)

// Parse classifies error text for the given language, optionally using the
// generated source (code) to detect credential placeholders.
func Parse(errorMessage string, language model.Language, code string) model.ErrorInfo {
	kind := classify(errorMessage, language)
	return model.ErrorInfo{
		Kind:               kind,
		RootCause:          rootCause(errorMessage, kind, language),
		SpecificIssues:     specificIssues(errorMessage, language),
		SuggestedFixes:     suggestedFixes(kind, language),
		MissingCredentials: missingCredentials(errorMessage, code),
		RawError:           errorMessage,
	}
}

func classify(msg string, language model.Language) model.ErrorKind {
	if missingAPIKey.MatchString(msg) {
		return model.ErrorKindMissingCredentials
	}

	lower := strings.ToLower(msg)

	switch language {
	case model.LanguagePython:
		switch {
		case strings.Contains(lower, "syntaxerror") || strings.Contains(lower, "indentationerror"):
			return model.ErrorKindSyntax
		case strings.Contains(lower, "modulenotfounderror") || strings.Contains(lower, "importerror"):
			return model.ErrorKindBuild
		case dbConnectionError.MatchString(msg), apiError.MatchString(msg):
			return model.ErrorKindRuntime
		case containsAny(lower, "nameerror", "typeerror", "valueerror"):
			return model.ErrorKindRuntime
		}
	case model.LanguageJava:
		switch {
		case strings.Contains(lower, "error:") && strings.Contains(lower, ".java:"):
			return model.ErrorKindSyntax
		case containsAny(lower, "class not found", "classnotfoundexception"):
			return model.ErrorKindRuntime
		case javaPackageError.MatchString(msg):
			return model.ErrorKindBuild
		case strings.Contains(lower, "cannot find symbol"):
			return model.ErrorKindSyntax
		case containsAny(lower, "nosuchmethoderror", "nosuchfielderror"):
			return model.ErrorKindRuntime
		}
	}

	return model.ErrorKindLogic
}

func rootCause(msg string, kind model.ErrorKind, language model.Language) string {
	if kind == model.ErrorKindMissingCredentials {
		return "Required API keys or credentials are missing"
	}

	switch language {
	case model.LanguagePython:
		if m := pythonImportError.FindStringSubmatch(msg); m != nil {
			return "Missing Python package: " + m[1]
		}
		if m := pythonSyntaxError.FindStringSubmatch(msg); m != nil {
			return "Syntax error on line " + m[2] + ": " + m[1]
		}
		if m := pythonNameError.FindStringSubmatch(msg); m != nil {
			return "Undefined variable or function: " + m[1]
		}
	case model.LanguageJava:
		if m := javaCompileError.FindStringSubmatch(msg); m != nil {
			return "Compilation error in " + m[1] + " line " + m[2] + ": " + m[3]
		}
		if m := javaPackageError.FindStringSubmatch(msg); m != nil {
			return "Missing dependency: package " + m[1] + " not found"
		}
		if m := javaSymbolError.FindStringSubmatch(msg); m != nil {
			return "Undefined " + m[1] + ": " + m[2]
		}
		if m := javaClassNotFound.FindStringSubmatch(msg); m != nil {
			return "Class not found at runtime: " + m[1]
		}
		if strings.Contains(msg, "NoSuchMethodError") {
			return "Method signature mismatch - wrong method called or dependency version conflict"
		}
	}

	lines := strings.Split(strings.TrimSpace(msg), "\n")
	if len(lines) == 0 || lines[0] == "" {
		return "Unknown error"
	}
	first := lines[0]
	if len(first) > 200 {
		first = first[:200]
	}
	return first
}

func specificIssues(msg string, language model.Language) []string {
	var issues []string

	if language == model.LanguagePython {
		for _, m := range pythonImportError.FindAllStringSubmatch(msg, -1) {
			issues = append(issues, "Missing package: "+m[1])
		}
		for _, m := range pythonSyntaxError.FindAllStringSubmatch(msg, -1) {
			issues = append(issues, "Line "+m[2]+": "+m[1])
		}
	}

	if language == model.LanguageJava {
		for _, m := range javaCompileError.FindAllStringSubmatch(msg, -1) {
			issues = append(issues, m[1]+":"+m[2]+" - "+m[3])
		}
		if javaSymbolError.MatchString(msg) {
			issues = append(issues, "Cannot find symbol - missing import or undefined variable/method")
		}
		for _, m := range javaPackageError.FindAllStringSubmatch(msg, -1) {
			issues = append(issues, "Package not found: "+m[1]+" - add Maven dependency")
		}
		for _, m := range javaIncompatibleTypes.FindAllStringSubmatch(msg, -1) {
			issues = append(issues, "Type mismatch: "+m[1]+" cannot convert to "+m[2])
		}
		for _, m := range javaMethodError.FindAllStringSubmatch(msg, -1) {
			issues = append(issues, "Method not found: "+m[1])
		}
		if strings.Contains(msg, "ClassNotFoundException") {
			issues = append(issues, "Class not found at runtime - check classpath or Maven dependencies")
		}
		if strings.Contains(msg, "NoSuchMethodError") {
			issues = append(issues, "Method not found at runtime - dependency version conflict or wrong method signature")
		}
	}

	if dbConnectionError.MatchString(msg) {
		issues = append(issues, "Database connection failed - verify service is running and credentials are correct")
	}
	if apiError.MatchString(msg) {
		issues = append(issues, "External API call failed - check network connectivity and API endpoint")
	}

	if len(issues) == 0 {
		return []string{"See raw error for details"}
	}
	return issues
}

func suggestedFixes(kind model.ErrorKind, language model.Language) []string {
	switch kind {
	case model.ErrorKindSyntax:
		return []string{
			"Review code syntax and fix any typos or structural errors",
			"Ensure proper indentation (Python) or bracket matching (Java)",
		}
	case model.ErrorKindBuild:
		if language == model.LanguagePython {
			return []string{
				"Add missing packages to requirements.txt",
				"Ensure all imports are available and correctly spelled",
			}
		}
		return []string{
			"Add missing Maven dependencies to pom.xml",
			"Verify package names and imports",
			"Check Maven repository connectivity",
			"Use correct groupId:artifactId:version format",
		}
	case model.ErrorKindRuntime:
		return []string{
			"Add proper error handling (try/except or try/catch)",
			"Validate inputs and handle edge cases",
			"Check external service availability (database, APIs)",
		}
	case model.ErrorKindMissingCredentials:
		return []string{
			"Prompt user to provide required credentials",
			"Add credential parameters to function signatures",
		}
	default: // LOGIC
		return []string{
			"Review algorithm logic and data flow",
			"Add debug logging to trace execution",
			"Verify expected vs actual behavior",
		}
	}
}

func missingCredentials(errorMessage, code string) []string {
	var missing []string

	if missingAPIKey.MatchString(errorMessage) {
		missing = append(missing, "API Key or Authentication Token")
	}

	if code != "" {
		if credentialPlaceholder.MatchString(code) {
			missing = append(missing, "API Key (found placeholder in code)")
		}
		if knownPublicAPIHosts.MatchString(code) {
			lower := strings.ToLower(code)
			if !strings.Contains(lower, "api_key") && !strings.Contains(lower, "apikey") {
				missing = append(missing, "API Key for external service")
			}
		}
	}

	if len(missing) > 0 {
		log.Debug("detected %d missing credential label(s)", len(missing))
	}
	return missing
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
