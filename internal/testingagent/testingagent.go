// Package testingagent implements the Testing Agent: single-file execution
// with credential injection, an LLM judge over requirements-vs-output, and
// a heuristic fallback when the judge's response can't be parsed, grounded
// on the original pipeline's testing_agent.py and code_executor.py.
package testingagent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"codeforge/internal/config"
	"codeforge/internal/llm"
	"codeforge/internal/logx"
	"codeforge/internal/model"
	"codeforge/internal/toolrunner"
)

var log = logx.NewLogger("testingagent")

var (
	javaPublicClassDecl = regexp.MustCompile(`public\s+class\s+(\w+)`)
	javaPackageDecl     = regexp.MustCompile(`package\s+([\w.]+);`)
	jsonFence           = regexp.MustCompile(`(?s)` + "```json\\s*\\n(.+?)\\n```")
	rawJSONObject       = regexp.MustCompile(`(?s)\{.+\}`)
)

const judgeSystemPrompt = `You are a meticulous code reviewer validating whether generated code meets the stated requirements, given its execution output. Respond ONLY with a JSON object of the form:
{"status": "pass"|"fail", "test_cases": [{"name": "...", "status": "pass"|"fail", "description": "...", "error": "..."}], "issues_found": ["..."], "recommendations": ["..."]}`

// Agent is the Testing Agent: execution plus judging.
type Agent struct {
	client         llm.Client
	ExecTimeout    time.Duration
	CompileTimeout time.Duration
}

// New builds a Testing Agent bound to a judge LLM client.
func New(client llm.Client) *Agent {
	return &Agent{client: client}
}

// execResult mirrors code_executor.py's tool return shape.
type execResult struct {
	success  bool
	stdout   string
	stderr   string
	errorMsg string
	timedOut bool
}

// ExecuteAndTest runs code for the given language, injecting runtime
// credentials, and judges the result against requirements.
func (a *Agent) ExecuteAndTest(ctx context.Context, requirements, code string, language model.Language, runtimeCredentials map[string]string) model.TestResult {
	start := time.Now()

	var res execResult
	switch language {
	case model.LanguageJava:
		classMatch := javaPublicClassDecl.FindStringSubmatch(code)
		if classMatch == nil {
			return model.TestResult{
				Status: model.StageFailed,
				Cases: []model.TestCase{{
					Name: "Code Structure", Status: model.StageFailed,
					Description: "Java code validation", Error: "No public class found in code",
				}},
				IssuesFound:     []string{"Java code must have a public class"},
				Recommendations: []string{"Add 'public class ClassName' to your code"},
			}
		}
		res = a.executeJava(ctx, code, classMatch[1], runtimeCredentials)
	default:
		res = a.executePython(ctx, code, runtimeCredentials)
	}

	elapsed := time.Since(start)

	if !res.success {
		return failureResult(res, elapsed)
	}

	return a.validate(ctx, requirements, code, language, res)
}

func failureResult(res execResult, elapsed time.Duration) model.TestResult {
	errMsg := res.errorMsg
	if errMsg == "" {
		errMsg = res.stderr
	}
	if errMsg == "" {
		errMsg = "Unknown error"
	}
	return model.TestResult{
		Status: model.StageFailed,
		Cases: []model.TestCase{{
			Name: "Code Execution", Status: model.StageFailed,
			Description: "Code failed to execute", Error: errMsg,
		}},
		ExecutionLogs:   fmt.Sprintf("STDOUT:\n%s\n\nSTDERR:\n%s", res.stdout, errMsg),
		Performance:     &model.PerformanceMetrics{WallTimeMS: elapsed.Milliseconds()},
		IssuesFound:     []string{errMsg},
		Recommendations: []string{"Review error logs and fix runtime issues"},
	}
}

// executePython writes code (with injected credential bindings) to a temp
// file and runs it with the host's python3 interpreter.
func (a *Agent) executePython(ctx context.Context, code string, creds map[string]string) execResult {
	python3 := toolrunner.LookPath("python3")
	if python3 == "" {
		return execResult{errorMsg: "python3 not found on PATH"}
	}

	if len(creds) > 0 {
		log.Info("injecting %d runtime credential(s)", len(creds))
		code = injectPythonCredentials(code, creds)
	} else {
		log.Warn("no runtime credentials provided - code may fail if external access is needed")
	}

	tmp, err := os.CreateTemp("", "codeforge-exec-*.py")
	if err != nil {
		return execResult{errorMsg: fmt.Sprintf("failed to create temp file: %v", err)}
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(code); err != nil {
		tmp.Close()
		return execResult{errorMsg: fmt.Sprintf("failed to write temp file: %v", err)}
	}
	tmp.Close()

	timeout := a.ExecTimeout
	if timeout == 0 {
		timeout = config.DefaultInterpreterTimeout
	}

	res, err := toolrunner.Run(ctx, []string{python3, tmp.Name()}, toolrunner.Opts{Timeout: timeout})
	if err != nil {
		return execResult{errorMsg: err.Error()}
	}
	if res.TimedOut {
		return execResult{errorMsg: fmt.Sprintf("Execution timed out after %s", timeout), timedOut: true}
	}
	return execResult{success: res.Success(), stdout: res.Stdout, stderr: res.Stderr}
}

// injectPythonCredentials prepends literal top-level assignments, matching
// code_executor.py's "KEY = 'value'" injection ahead of the generated body.
func injectPythonCredentials(code string, creds map[string]string) string {
	var b strings.Builder
	for key, value := range creds {
		fmt.Fprintf(&b, "%s = %q\n", key, value)
	}
	b.WriteString("\n")
	b.WriteString(code)
	return b.String()
}

// executeJava materializes a throwaway Maven project, injects credentials
// as private static final fields, compiles, and runs the main class via
// "mvn -q exec:java".
func (a *Agent) executeJava(ctx context.Context, code, className string, creds map[string]string) execResult {
	mvn := toolrunner.LookPath("mvn")
	if mvn == "" {
		return execResult{errorMsg: "Maven (mvn) not found in system PATH"}
	}

	if len(creds) > 0 {
		code = injectJavaCredentials(code, className, creds)
	}

	tmpDir, err := os.MkdirTemp("", "codeforge-exec-")
	if err != nil {
		return execResult{errorMsg: fmt.Sprintf("failed to create temp directory: %v", err)}
	}
	defer os.RemoveAll(tmpDir)

	packageName := ""
	if m := javaPackageDecl.FindStringSubmatch(code); m != nil {
		packageName = m[1]
	}
	srcDir := tmpDir
	if packageName != "" {
		srcDir = filepath.Join(tmpDir, "src", "main", "java", filepath.FromSlash(strings.ReplaceAll(packageName, ".", "/")))
	} else {
		srcDir = filepath.Join(tmpDir, "src", "main", "java")
	}
	if err := os.MkdirAll(srcDir, 0o755); err != nil {
		return execResult{errorMsg: fmt.Sprintf("failed to create source directory: %v", err)}
	}
	if err := os.WriteFile(filepath.Join(srcDir, className+".java"), []byte(code), 0o644); err != nil {
		return execResult{errorMsg: fmt.Sprintf("failed to write source file: %v", err)}
	}

	pomPath := filepath.Join(tmpDir, "pom.xml")
	if err := os.WriteFile(pomPath, []byte(minimalExecPom(className)), 0o644); err != nil {
		return execResult{errorMsg: fmt.Sprintf("failed to write pom.xml: %v", err)}
	}

	timeout := a.CompileTimeout
	if timeout == 0 {
		timeout = config.DefaultJVMCompileTimeout
	}

	res, err := toolrunner.Run(ctx, []string{mvn, "-q", "compile", "exec:java"}, toolrunner.Opts{
		WorkDir: tmpDir,
		Timeout: timeout,
	})
	if err != nil {
		return execResult{errorMsg: err.Error()}
	}
	if res.TimedOut {
		return execResult{errorMsg: fmt.Sprintf("Execution timed out after %s", timeout), timedOut: true}
	}
	return execResult{success: res.Success(), stdout: res.Stdout, stderr: res.Stderr}
}

// injectJavaCredentials inserts private static final field declarations
// right after the class's opening brace, matching code_executor.py's
// string-replace injection.
func injectJavaCredentials(code, className string, creds map[string]string) string {
	var fields strings.Builder
	for key, value := range creds {
		fmt.Fprintf(&fields, "    private static final String %s = %q;\n", key, value)
	}
	marker := "public class " + className + " {"
	return strings.Replace(code, marker, marker+"\n"+fields.String(), 1)
}

func minimalExecPom(mainClass string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<project xmlns="http://maven.apache.org/POM/4.0.0">
    <modelVersion>4.0.0</modelVersion>
    <groupId>com.codeforge</groupId>
    <artifactId>generated-exec</artifactId>
    <version>1.0-SNAPSHOT</version>
    <properties>
        <maven.compiler.source>17</maven.compiler.source>
        <maven.compiler.target>17</maven.compiler.target>
        <project.build.sourceEncoding>UTF-8</project.build.sourceEncoding>
    </properties>
    <build>
        <plugins>
            <plugin>
                <groupId>org.codehaus.mojo</groupId>
                <artifactId>exec-maven-plugin</artifactId>
                <version>3.1.0</version>
                <configuration>
                    <mainClass>%s</mainClass>
                </configuration>
            </plugin>
        </plugins>
    </build>
</project>
`, mainClass)
}

// validate asks the judge LLM whether the execution output satisfies the
// requirements, falling back to heuristicValidation when the judge's
// response can't be parsed as the expected JSON shape.
func (a *Agent) validate(ctx context.Context, requirements, code string, language model.Language, res execResult) model.TestResult {
	prompt := judgePrompt(requirements, code, language, res)

	resp, err := a.client.Complete(ctx, llm.NewRequest(llm.SystemMessage(judgeSystemPrompt), llm.UserMessage(prompt)))
	if err != nil {
		log.Warn("judge llm call failed, falling back to heuristic validation: %v", err)
		return heuristicValidation(res)
	}

	parsed, ok := extractJudgeJSON(resp.Content)
	if !ok {
		log.Warn("could not parse judge response, falling back to heuristic validation")
		return heuristicValidation(res)
	}

	result := model.TestResult{
		Status:          statusFromString(parsed.Status),
		ExecutionLogs:   res.stdout + "\n" + res.stderr,
		IssuesFound:     parsed.IssuesFound,
		Recommendations: parsed.Recommendations,
	}
	for _, tc := range parsed.TestCases {
		result.Cases = append(result.Cases, model.TestCase{
			Name:        tc.Name,
			Status:      statusFromString(tc.Status),
			Description: tc.Description,
			Error:       tc.Error,
		})
	}
	return result
}

func judgePrompt(requirements, code string, language model.Language, res execResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Requirements:**\n%s\n\n**Language:** %s\n\n**Code:**\n%s\n", requirements, strings.ToUpper(string(language)), code)
	fmt.Fprintf(&b, "\n**Execution Output:**\nSTDOUT:\n%s\n\n", orEmpty(res.stdout))
	if res.stderr != "" {
		fmt.Fprintf(&b, "STDERR:\n%s\n\n", res.stderr)
	}
	return b.String()
}

func orEmpty(s string) string {
	if s == "" {
		return "(empty)"
	}
	return s
}

type judgeTestCase struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	Description string `json:"description"`
	Error       string `json:"error"`
}

type judgeResponse struct {
	Status          string          `json:"status"`
	TestCases       []judgeTestCase `json:"test_cases"`
	IssuesFound     []string        `json:"issues_found"`
	Recommendations []string        `json:"recommendations"`
}

// extractJudgeJSON mirrors _extract_json_from_response: first try a
// ```json fenced block, then the first raw {...} span.
func extractJudgeJSON(text string) (judgeResponse, bool) {
	var candidate string
	if m := jsonFence.FindStringSubmatch(text); m != nil {
		candidate = m[1]
	} else if m := rawJSONObject.FindString(text); m != "" {
		candidate = m
	} else {
		return judgeResponse{}, false
	}

	var parsed judgeResponse
	if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
		return judgeResponse{}, false
	}
	return parsed, true
}

func statusFromString(s string) model.StageStatus {
	if strings.EqualFold(s, "pass") {
		return model.StageSuccess
	}
	return model.StageFailed
}

// heuristicValidation is the pass iff stdout non-empty and stderr doesn't
// mention "error" fallback, used whenever the judge call fails or its
// response can't be parsed.
func heuristicValidation(res execResult) model.TestResult {
	hasOutput := res.stdout != ""
	hasErrors := res.stderr != "" && strings.Contains(strings.ToLower(res.stderr), "error")

	status := model.StageFailed
	var issues, recs []string
	if hasOutput && !hasErrors {
		status = model.StageSuccess
		recs = []string{"Code executed successfully"}
	} else {
		if !hasOutput {
			issues = []string{"No output generated"}
		} else {
			issues = []string{"Errors in execution"}
		}
		recs = []string{"Verify code logic and expected output"}
	}

	errField := ""
	if hasErrors {
		errField = res.stderr
	}

	return model.TestResult{
		Status: status,
		Cases: []model.TestCase{{
			Name: "Basic Execution", Status: status,
			Description: "Code execution test", Error: errField,
		}},
		ExecutionLogs:   res.stdout + "\n" + res.stderr,
		IssuesFound:     issues,
		Recommendations: recs,
	}
}
