// Package buildagent implements the Build Agent: syntax/compile validation
// and dependency installation for the Python and Java backends, grounded on
// the original pipeline's build_agent.py and run through the Tool Runner
// rather than os/exec directly.
package buildagent

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"codeforge/internal/config"
	"codeforge/internal/errorparser"
	"codeforge/internal/logx"
	"codeforge/internal/model"
	"codeforge/internal/toolrunner"
)

var log = logx.NewLogger("buildagent")

// pythonStdlibSecondPass is build_agent.py's defensive, slightly broader
// stdlib set applied as a second filtering pass on top of depextract's
// output, catching anything that slipped through from an older session's
// narrower list (string, textwrap, difflib, warnings appear here but not in
// depextract's set).
var pythonStdlibSecondPass = map[string]bool{
	"logging": true, "typing": true, "json": true, "math": true,
	"itertools": true, "collections": true, "datetime": true, "re": true,
	"sys": true, "os": true, "unittest": true, "pathlib": true, "io": true,
	"subprocess": true, "tempfile": true, "shutil": true, "copy": true,
	"pickle": true, "threading": true, "multiprocessing": true,
	"argparse": true, "configparser": true, "email": true, "urllib": true,
	"http": true, "socket": true, "ssl": true, "asyncio": true,
	"hashlib": true, "hmac": true, "secrets": true, "uuid": true,
	"enum": true, "dataclasses": true, "abc": true, "time": true, "csv": true,
	"functools": true, "random": true, "string": true, "textwrap": true,
	"difflib": true, "warnings": true, "sqlite3": true, "dbm": true,
	"shelve": true,
}

// pythonProjectInternalSecondPass mirrors build_agent.py's own
// project-internal set, one entry wider than depextract's (it additionally
// treats the singular "test" as internal).
var pythonProjectInternalSecondPass = map[string]bool{
	"src": true, "app": true, "tests": true, "test": true, "config": true,
	"utils": true, "models": true, "schemas": true, "database": true,
	"api": true, "core": true, "services": true, "controllers": true,
	"views": true, "main": true, "lib": true, "common": true,
}

// filterDependenciesSecondPass applies build_agent.py's second defensive
// filtering pass on top of whatever the Code Generator Agent's dependency
// extraction already produced, dropping comment-like strings, project
// internals, and stdlib names that slipped through.
func filterDependenciesSecondPass(deps []model.Dependency) []model.Dependency {
	var filtered []model.Dependency
	for _, d := range deps {
		if d.IsMaven() {
			filtered = append(filtered, d)
			continue
		}
		name := strings.TrimSpace(d.Name)
		if name == "" || strings.HasPrefix(name, "#") {
			continue
		}
		lower := strings.ToLower(name)
		if pythonProjectInternalSecondPass[lower] || pythonStdlibSecondPass[lower] {
			continue
		}
		filtered = append(filtered, d)
	}
	return filtered
}

// PythonBackend builds single-file and multi-file Python submissions:
// ast-equivalent syntax validation, then pip/uv dependency installation.
type PythonBackend struct {
	// InstallerTimeout bounds the pip/uv install step. Defaults to
	// config.DefaultInstallerTimeout when zero.
	InstallerTimeout time.Duration
}

// Build validates syntax and installs dependencies for a single generated
// Python file, matching build_agent.py's _build_python: a syntax error is a
// hard-error shortcut, the dependency filter/install step only runs once
// syntax is clean.
func (b PythonBackend) Build(ctx context.Context, code string, deps []model.Dependency) model.BuildResult {
	if err := checkPythonSyntax(ctx, code); err != nil {
		log.Warn("python syntax check failed: %v", err)
		info := errorparser.Parse(err.Error(), model.LanguagePython, code)
		return model.BuildResult{
			Status:            model.StageFailed,
			Dependencies:      deps,
			Errors:            append([]string{err.Error()}, info.SpecificIssues...),
			SuggestedFixes:    []string{"Fix syntax errors before proceeding"},
			BuildInstructions: "Fix syntax errors before proceeding",
		}
	}

	filtered := filterDependenciesSecondPass(deps)
	if len(filtered) < len(deps) {
		log.Info("filtered out %d project-internal/stdlib dependency name(s)", len(deps)-len(filtered))
	}

	if len(filtered) == 0 {
		return model.BuildResult{
			Status:            model.StageSuccess,
			Dependencies:      deps,
			BuildInstructions: "Code is ready for execution",
		}
	}

	if err := b.install(ctx, filtered); err != nil {
		return model.BuildResult{
			Status:            model.StageFailed,
			Dependencies:      deps,
			Errors:            []string{fmt.Sprintf("Failed to install dependencies: %v", err)},
			SuggestedFixes:    []string{"Check package names and network connectivity"},
			BuildInstructions: "Resolve dependency installation issues",
		}
	}

	return model.BuildResult{
		Status:            model.StageSuccess,
		Dependencies:      deps,
		BuildInstructions: "Code is ready for execution",
	}
}

// BuildProject validates and installs dependencies for a multi-file Python
// project, matching build_agent.py's _build_python_project: all files are
// syntax-checked before any dependency is installed.
func (b PythonBackend) BuildProject(ctx context.Context, files []model.FileArtifact, deps []model.Dependency) model.BuildResult {
	var errs, fixes []string
	for _, f := range files {
		if !strings.HasSuffix(f.Filename, ".py") {
			continue
		}
		if err := checkPythonSyntax(ctx, f.Body); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", f.Filename, err))
			fixes = append(fixes, "Fix syntax in "+f.Filename)
		}
	}
	if len(errs) > 0 {
		return model.BuildResult{
			Status:            model.StageFailed,
			Errors:            errs,
			SuggestedFixes:    fixes,
			BuildInstructions: "Fix syntax errors in all files",
		}
	}

	filtered := filterDependenciesSecondPass(deps)
	if len(filtered) == 0 {
		return model.BuildResult{
			Status:            model.StageSuccess,
			BuildInstructions: "All files validated, no external dependencies needed",
		}
	}

	if err := b.install(ctx, filtered); err != nil {
		return model.BuildResult{
			Status:            model.StageFailed,
			Dependencies:      deps,
			Errors:            []string{fmt.Sprintf("Failed to install dependencies: %v", err)},
			SuggestedFixes:    []string{"Check package names and versions"},
			BuildInstructions: "Resolve dependency issues",
		}
	}

	return model.BuildResult{
		Status:            model.StageSuccess,
		Dependencies:      deps,
		BuildInstructions: "All files validated and dependencies installed",
	}
}

// checkPythonSyntax shells out to python3's own parser, since Go cannot
// evaluate Python grammar directly. A missing python3 on PATH is reported
// as a syntax-check failure rather than silently skipped, matching the
// pipeline's "any failure here is a hard error" rule. The source is passed
// as an argv entry rather than a shell-interpolated string: toolrunner
// invokes the binary directly with no shell in between, so this is safe
// regardless of quote characters in the generated code.
func checkPythonSyntax(ctx context.Context, code string) error {
	python3 := toolrunner.LookPath("python3")
	if python3 == "" {
		return fmt.Errorf("python3 not found on PATH")
	}

	res, err := toolrunner.Run(ctx, []string{python3, "-c", "import ast, sys; ast.parse(sys.argv[1])", code}, toolrunner.Opts{
		Timeout: config.DefaultInterpreterTimeout,
	})
	if err != nil {
		return err
	}
	if !res.Success() {
		return fmt.Errorf("%s", strings.TrimSpace(res.CombinedOutput()))
	}
	return nil
}

// install runs the configured Python package installer (uv preferred, pip
// as fallback) from a neutral temp directory so an installed package's own
// setup.py can't interfere with the generated code under test, matching
// code_executor.py's chdir-to-tempdir-then-restore install step.
func (b PythonBackend) install(ctx context.Context, deps []model.Dependency) error {
	timeout := b.InstallerTimeout
	if timeout == 0 {
		timeout = config.DefaultInstallerTimeout
	}

	args := make([]string, 0, len(deps))
	for _, d := range deps {
		args = append(args, d.Name)
	}

	installer, baseArgs := resolveInstaller()
	if installer == "" {
		return fmt.Errorf("neither uv nor pip3 found on PATH")
	}

	cmd := append(append([]string{installer}, baseArgs...), args...)
	res, err := toolrunner.Run(ctx, cmd, toolrunner.Opts{WorkDir: os.TempDir(), Timeout: timeout})
	if err != nil {
		return err
	}
	if res.Success() {
		return nil
	}

	if !isMissingPipModule(res.CombinedOutput()) {
		return fmt.Errorf("%s", res.CombinedOutput())
	}

	// The installer module itself is missing (common on distro Pythons that
	// ship without pip). Attempt a one-shot self-bootstrap via ensurepip,
	// then retry the install exactly once, matching code_executor.py's
	// ensurepip --upgrade + single retry.
	log.Warn("pip module missing, attempting ensurepip bootstrap")
	if err := bootstrapPip(ctx, timeout); err != nil {
		return fmt.Errorf("pip module missing and bootstrap failed: %w", err)
	}

	res, err = toolrunner.Run(ctx, cmd, toolrunner.Opts{WorkDir: os.TempDir(), Timeout: timeout})
	if err != nil {
		return err
	}
	if !res.Success() {
		return fmt.Errorf("%s", res.CombinedOutput())
	}
	return nil
}

// isMissingPipModule reports whether installer output indicates the pip
// module itself is absent, as opposed to an ordinary package-resolution
// failure that a bootstrap retry would not fix.
func isMissingPipModule(output string) bool {
	lower := strings.ToLower(output)
	return strings.Contains(lower, "no module named pip") ||
		strings.Contains(lower, "no module named 'pip'") ||
		strings.Contains(lower, "pip: command not found")
}

// bootstrapPip runs python3 -m ensurepip --upgrade as a one-shot
// self-bootstrap when the installer module is missing at the module level.
func bootstrapPip(ctx context.Context, timeout time.Duration) error {
	python3 := toolrunner.LookPath("python3")
	if python3 == "" {
		return fmt.Errorf("python3 not found on PATH")
	}
	res, err := toolrunner.Run(ctx, []string{python3, "-m", "ensurepip", "--upgrade"}, toolrunner.Opts{
		WorkDir: os.TempDir(),
		Timeout: timeout,
	})
	if err != nil {
		return err
	}
	if !res.Success() {
		return fmt.Errorf("%s", res.CombinedOutput())
	}
	return nil
}

func resolveInstaller() (string, []string) {
	if uv := toolrunner.LookPath("uv"); uv != "" {
		return uv, []string{"pip", "install"}
	}
	if pip := toolrunner.LookPath("pip3"); pip != "" {
		return pip, []string{"install"}
	}
	if pip := toolrunner.LookPath("pip"); pip != "" {
		return pip, []string{"install"}
	}
	return "", nil
}
