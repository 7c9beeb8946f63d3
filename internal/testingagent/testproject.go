package testingagent

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeforge/internal/buildagent"
	"codeforge/internal/config"
	"codeforge/internal/model"
	"codeforge/internal/toolrunner"
)

// TestProject runs the generated project's own tests when any exist
// (test_* files for the interpreter ecosystem, *Test files for the JVM
// ecosystem), each yielding one TestCase, otherwise falls back to an
// import/structural smoke test, matching testing_agent.py's test_project
// contract.
func (a *Agent) TestProject(ctx context.Context, requirements string, files []model.FileArtifact, language model.Language, rootDir string, runtimeCredentials map[string]string) model.TestResult {
	start := time.Now()

	if err := materializeFiles(rootDir, files); err != nil {
		return model.TestResult{Status: model.StageFailed, IssuesFound: []string{err.Error()}}
	}

	testFiles := projectTestFiles(files, language)
	if len(testFiles) > 0 {
		return a.runProjectTestSuite(ctx, testFiles, language, rootDir, start)
	}
	return a.smokeTestProject(ctx, files, language, rootDir, start)
}

// materializeFiles writes every generated file to its relative path under
// rootDir, overwriting whatever the Scaffolder seeded there.
func materializeFiles(rootDir string, files []model.FileArtifact) error {
	for _, f := range files {
		path := filepath.Join(rootDir, filepath.FromSlash(f.Filename))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(f.Body), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func isPythonTestFile(filename string) bool {
	base := filepath.Base(filename)
	return strings.HasPrefix(base, "test_") && strings.HasSuffix(base, ".py")
}

func isJavaTestFile(filename string) bool {
	return strings.HasSuffix(filepath.Base(filename), "Test.java")
}

func projectTestFiles(files []model.FileArtifact, language model.Language) []model.FileArtifact {
	var out []model.FileArtifact
	for _, f := range files {
		if language == model.LanguageJava {
			if isJavaTestFile(f.Filename) {
				out = append(out, f)
			}
			continue
		}
		if isPythonTestFile(f.Filename) {
			out = append(out, f)
		}
	}
	return out
}

// runProjectTestSuite runs the ecosystem's standard test runner over
// testFiles, one TestCase per file.
func (a *Agent) runProjectTestSuite(ctx context.Context, testFiles []model.FileArtifact, language model.Language, rootDir string, start time.Time) model.TestResult {
	if language == model.LanguageJava {
		if err := ensureJavaTestDependency(rootDir); err != nil {
			log.Warn("failed to ensure test dependency in pom.xml: %v", err)
		}
	}

	var cases []model.TestCase
	var logs strings.Builder
	allPass := true

	for _, tf := range testFiles {
		var res toolrunner.Result
		if language == model.LanguageJava {
			res = a.runJavaTest(ctx, rootDir, strings.TrimSuffix(filepath.Base(tf.Filename), ".java"))
		} else {
			res = a.runPythonTest(ctx, rootDir, tf.Filename)
		}
		cases = append(cases, testCaseFromResult(tf.Filename, res))
		logs.WriteString(res.CombinedOutput())
		logs.WriteString("\n")
		if !res.Success() {
			allPass = false
		}
	}

	status := model.StageFailed
	recs := []string{"Review failing test cases above"}
	if allPass {
		status = model.StageSuccess
		recs = nil
	}

	return model.TestResult{
		Status:          status,
		Cases:           cases,
		ExecutionLogs:   logs.String(),
		Performance:     &model.PerformanceMetrics{WallTimeMS: time.Since(start).Milliseconds()},
		Recommendations: recs,
	}
}

func testCaseFromResult(name string, res toolrunner.Result) model.TestCase {
	tc := model.TestCase{Name: name, Description: "project test suite"}
	if res.Success() {
		tc.Status = model.StageSuccess
		return tc
	}
	tc.Status = model.StageFailed
	tc.Error = res.CombinedOutput()
	return tc
}

func (a *Agent) runPythonTest(ctx context.Context, rootDir, relPath string) toolrunner.Result {
	python3 := toolrunner.LookPath("python3")
	if python3 == "" {
		return toolrunner.Result{ExitCode: -1, Stderr: "python3 not found on PATH"}
	}
	timeout := a.ExecTimeout
	if timeout == 0 {
		timeout = config.DefaultInterpreterTimeout
	}
	res, err := toolrunner.Run(ctx, []string{python3, "-m", "pytest", relPath, "-q"}, toolrunner.Opts{
		WorkDir: rootDir,
		Timeout: timeout,
	})
	if err != nil {
		return toolrunner.Result{ExitCode: -1, Stderr: err.Error()}
	}
	return res
}

func (a *Agent) runJavaTest(ctx context.Context, rootDir, className string) toolrunner.Result {
	mvn := toolrunner.LookPath("mvn")
	if mvn == "" {
		return toolrunner.Result{ExitCode: -1, Stderr: "Maven (mvn) not found in system PATH"}
	}
	timeout := a.CompileTimeout
	if timeout == 0 {
		timeout = config.DefaultJVMCompileTimeout
	}
	res, err := toolrunner.Run(ctx, []string{mvn, "-q", "test", "-Dtest=" + className}, toolrunner.Opts{
		WorkDir: rootDir,
		Timeout: timeout,
	})
	if err != nil {
		return toolrunner.Result{ExitCode: -1, Stderr: err.Error()}
	}
	return res
}

// ensureJavaTestDependency adds a JUnit Jupiter test dependency to the
// scaffolded pom.xml if nothing test-capable is already declared, since the
// Spring Boot template's base pom only carries web/data-jpa starters.
func ensureJavaTestDependency(rootDir string) error {
	pomPath := filepath.Join(rootDir, "pom.xml")
	data, err := os.ReadFile(pomPath)
	if err != nil {
		return err
	}
	pom := string(data)
	if strings.Contains(pom, "spring-boot-starter-test") || strings.Contains(pom, "junit") {
		return nil
	}
	const dep = "        <dependency>\n" +
		"            <groupId>org.junit.jupiter</groupId>\n" +
		"            <artifactId>junit-jupiter</artifactId>\n" +
		"            <version>5.10.0</version>\n" +
		"            <scope>test</scope>\n" +
		"        </dependency>\n" +
		"    </dependencies>"
	pom = strings.Replace(pom, "</dependencies>", dep, 1)
	return os.WriteFile(pomPath, []byte(pom), 0o644)
}

// smokeTestProject performs an import/structural check when the project has
// no tests of its own, treating dependency-resolution failures as pass
// since a missing third-party package in an isolated build directory is not
// the generated code's fault.
func (a *Agent) smokeTestProject(ctx context.Context, files []model.FileArtifact, language model.Language, rootDir string, start time.Time) model.TestResult {
	if language == model.LanguageJava {
		return a.smokeTestJava(ctx, files, start)
	}
	return a.smokeTestPython(ctx, files, rootDir, start)
}

func (a *Agent) smokeTestPython(ctx context.Context, files []model.FileArtifact, rootDir string, start time.Time) model.TestResult {
	python3 := toolrunner.LookPath("python3")
	if python3 == "" {
		return model.TestResult{Status: model.StageFailed, IssuesFound: []string{"python3 not found on PATH"}}
	}
	timeout := a.ExecTimeout
	if timeout == 0 {
		timeout = config.DefaultInterpreterTimeout
	}

	const script = "import importlib.util, sys\n" +
		"spec = importlib.util.spec_from_file_location('smoketest', sys.argv[1])\n" +
		"module = importlib.util.module_from_spec(spec)\n" +
		"spec.loader.exec_module(module)\n"

	var cases []model.TestCase
	var logs strings.Builder
	hardFailure := false
	depsUnresolved := false

	for _, f := range files {
		if !strings.HasSuffix(f.Filename, ".py") || isPythonTestFile(f.Filename) {
			continue
		}
		res, err := toolrunner.Run(ctx, []string{python3, "-c", script, f.Filename}, toolrunner.Opts{
			WorkDir: rootDir,
			Timeout: timeout,
		})
		if err != nil {
			hardFailure = true
			cases = append(cases, model.TestCase{Name: f.Filename, Status: model.StageFailed, Description: "structural smoke test", Error: err.Error()})
			continue
		}
		logs.WriteString(res.CombinedOutput())
		logs.WriteString("\n")

		switch {
		case res.Success():
			cases = append(cases, model.TestCase{Name: f.Filename, Status: model.StageSuccess, Description: "structural smoke test"})
		case isDependencyResolutionFailure(res.CombinedOutput()):
			depsUnresolved = true
			cases = append(cases, model.TestCase{Name: f.Filename, Status: model.StageSuccess, Description: "structure valid, dependencies not installed"})
		default:
			hardFailure = true
			cases = append(cases, model.TestCase{Name: f.Filename, Status: model.StageFailed, Description: "structural smoke test", Error: res.CombinedOutput()})
		}
	}

	status := model.StageSuccess
	recs := []string{"Project structure is valid"}
	var issues []string
	if hardFailure {
		status = model.StageFailed
		issues = []string{"Structural or import errors were found"}
		recs = []string{"Fix structural/import errors reported above"}
	} else if depsUnresolved {
		recs = []string{"Structure valid, dependencies not installed"}
	}

	return model.TestResult{
		Status:          status,
		Cases:           cases,
		ExecutionLogs:   logs.String(),
		Performance:     &model.PerformanceMetrics{WallTimeMS: time.Since(start).Milliseconds()},
		IssuesFound:     issues,
		Recommendations: recs,
	}
}

func isDependencyResolutionFailure(output string) bool {
	lower := strings.ToLower(output)
	return strings.Contains(lower, "modulenotfounderror") || strings.Contains(lower, "importerror")
}

func (a *Agent) smokeTestJava(ctx context.Context, files []model.FileArtifact, start time.Time) model.TestResult {
	result := buildagent.JavaBackend{}.BuildProject(ctx, files, nil)
	tc := model.TestCase{Name: "project compile", Status: result.Status, Description: "structural smoke test"}

	if result.Status == model.StageSuccess {
		return model.TestResult{
			Status:          model.StageSuccess,
			Cases:           []model.TestCase{tc},
			Performance:     &model.PerformanceMetrics{WallTimeMS: time.Since(start).Milliseconds()},
			Recommendations: []string{"Project structure is valid"},
		}
	}

	if allDependencyResolutionErrors(result.Errors) {
		tc.Status = model.StageSuccess
		return model.TestResult{
			Status:          model.StageSuccess,
			Cases:           []model.TestCase{tc},
			ExecutionLogs:   strings.Join(result.Errors, "\n"),
			Performance:     &model.PerformanceMetrics{WallTimeMS: time.Since(start).Milliseconds()},
			Recommendations: []string{"Structure valid, dependencies not installed"},
		}
	}

	tc.Error = strings.Join(result.Errors, "\n")
	return model.TestResult{
		Status:          model.StageFailed,
		Cases:           []model.TestCase{tc},
		ExecutionLogs:   strings.Join(result.Errors, "\n"),
		Performance:     &model.PerformanceMetrics{WallTimeMS: time.Since(start).Milliseconds()},
		IssuesFound:     result.Errors,
		Recommendations: []string{"Fix structural/import errors reported above"},
	}
}

func allDependencyResolutionErrors(errs []string) bool {
	if len(errs) == 0 {
		return false
	}
	for _, e := range errs {
		lower := strings.ToLower(e)
		if !strings.Contains(lower, "package") || !strings.Contains(lower, "does not exist") {
			return false
		}
	}
	return true
}
