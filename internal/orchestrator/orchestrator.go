// Package orchestrator implements the Orchestrator Agent: the top-level
// generate/build/test iterate loop for both single-file and multi-file
// requests, grounded on the original pipeline's orchestrator.py. It owns
// the session record end to end and is the only component that writes to
// the persistence store, and only once, after the loop ends.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"codeforge/internal/buildagent"
	"codeforge/internal/codegen"
	"codeforge/internal/config"
	"codeforge/internal/errorparser"
	"codeforge/internal/logx"
	"codeforge/internal/metrics"
	"codeforge/internal/model"
	"codeforge/internal/retrycontext"
	"codeforge/internal/scaffold"
	"codeforge/internal/sessionstore"
	"codeforge/internal/testingagent"
	"codeforge/internal/tokencount"
	"codeforge/internal/validator"
)

// retryContextTokenLimit bounds how much of the accumulated error context is
// fed back into the next generation attempt, keeping the prompt within a
// comfortable margin of any supported model's context window.
const retryContextTokenLimit = 2000

var log = logx.NewLogger("orchestrator")

// ProgressFunc is called once per notable step with a human-readable
// message and the 1-based iteration number it belongs to (0 before the
// loop's first iteration starts), matching the original's progress_callback
// surface for a CLI/UI to render.
type ProgressFunc func(message string, iteration int)

// buildBackend is the shape both language backends in package buildagent
// satisfy; the orchestrator selects one by requirement language rather than
// importing language-specific build logic itself.
type buildBackend interface {
	Build(ctx context.Context, code string, deps []model.Dependency) model.BuildResult
	BuildProject(ctx context.Context, files []model.FileArtifact, deps []model.Dependency) model.BuildResult
}

func backendFor(language model.Language) buildBackend {
	if language == model.LanguageJava {
		return buildagent.JavaBackend{}
	}
	return buildagent.PythonBackend{InstallerTimeout: config.DefaultInstallerTimeout}
}

// Orchestrator wires the Code Generator, Build, and Testing agents together
// around the iterate-until-passing loop and owns session persistence.
type Orchestrator struct {
	CodeGen  *codegen.Agent
	Testing  *testingagent.Agent
	Store    *sessionstore.Store
	Progress ProgressFunc
	Metrics  *metrics.Recorder

	tokens *tokencount.Counter
}

// New builds an Orchestrator. progress may be nil, in which case progress
// reporting is a no-op beyond the logger. Attach a *metrics.Recorder with
// WithMetrics to record iteration/stage/session metrics; without one, every
// ObserveX call below is a no-op.
func New(codeGen *codegen.Agent, testing *testingagent.Agent, store *sessionstore.Store, progress ProgressFunc) *Orchestrator {
	if progress == nil {
		progress = func(string, int) {}
	}
	tokens, err := tokencount.New()
	if err != nil {
		log.Warn("token counter unavailable, retry context will use the character-based estimate: %v", err)
	}
	return &Orchestrator{CodeGen: codeGen, Testing: testing, Store: store, Progress: progress, tokens: tokens}
}

// WithMetrics attaches a Prometheus recorder so iterations, stage outcomes,
// classified errors, and session results are all observed.
func (o *Orchestrator) WithMetrics(rec *metrics.Recorder) *Orchestrator {
	o.Metrics = rec
	return o
}

// observeStage records one stage's outcome if a recorder is attached.
func (o *Orchestrator) observeStage(stage string, language model.Language, success bool, duration time.Duration) {
	if o.Metrics == nil {
		return
	}
	o.Metrics.ObserveStage(stage, language, success, duration)
}

func (o *Orchestrator) observeErrorKind(language model.Language, kind model.ErrorKind) {
	if o.Metrics == nil {
		return
	}
	o.Metrics.ObserveErrorKind(language, kind)
}

// boundErrorContext truncates the accumulated retry-context prompt fragment
// to retryContextTokenLimit tokens so it never crowds out the next attempt's
// actual generation instructions.
func (o *Orchestrator) boundErrorContext(errorContext string) string {
	if o.tokens == nil {
		return errorContext
	}
	return o.tokens.TruncateToLimit(errorContext, retryContextTokenLimit)
}

func (o *Orchestrator) report(iteration int, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	o.Progress(msg, iteration)
	log.Info("[iter %d] %s", iteration, msg)
}

// GenerateCode runs the single-file generate/build/test loop to completion,
// returning the finalized session. The session is saved to the store exactly
// once, after the loop ends (on success, on exhausting max_iterations, or on
// a non-retryable error).
func (o *Orchestrator) GenerateCode(ctx context.Context, req model.Requirement, maxIterations int, runtimeCredentials map[string]string) (*model.Session, error) {
	if maxIterations <= 0 {
		maxIterations = config.DefaultMaxIterations
	}
	session := model.NewSession(req, maxIterations, runtimeCredentials)
	session.Status = model.StageRunning
	backend := backendFor(req.Language)

	start := time.Now()
	var errorContext string

	for iterNum := 1; iterNum <= maxIterations; iterNum++ {
		session.CurrentIteration = iterNum
		iterLog := model.IterationLog{Number: iterNum, StartedAt: time.Now().UTC()}
		if o.Metrics != nil {
			o.Metrics.ObserveIteration(req.Language)
		}

		o.report(iterNum, "generating code")
		genStart := time.Now()
		bundle, err := o.CodeGen.Generate(ctx, req.Text, req.Language, errorContext)
		o.observeStage("codegen", req.Language, err == nil, time.Since(genStart))
		if err != nil {
			iterLog.CodeGenStatus = model.StageFailed
			iterLog.EndedAt = time.Now().UTC()
			session.Iterations = append(session.Iterations, iterLog)
			session.Status = model.StageFailed
			session.UpdatedAt = time.Now().UTC()
			session.TotalExecutionTime = time.Since(start)
			if o.Metrics != nil {
				o.Metrics.ObserveSession(req.Language, false)
			}
			if saveErr := o.Store.SaveSession(session); saveErr != nil {
				log.Warn("failed to save session %s: %v", session.ID, saveErr)
			}
			return session, fmt.Errorf("orchestrator: code generation failed: %w", err)
		}
		iterLog.CodeGenStatus = model.StageSuccess
		code := primaryBody(bundle)
		iterLog.GeneratedCode = code

		o.report(iterNum, "building")
		buildStart := time.Now()
		buildResult := backend.Build(ctx, code, bundle.Dependencies)
		o.observeStage("build", req.Language, buildResult.Success(), time.Since(buildStart))
		iterLog.BuildResult = &buildResult
		iterLog.BuildStatus = buildResult.Status

		if !buildResult.Success() {
			info := errorparser.Parse(strings.Join(buildResult.Errors, "\n"), req.Language, code)
			iterLog.Error = &info
			iterLog.EndedAt = time.Now().UTC()
			session.Iterations = append(session.Iterations, iterLog)
			o.observeErrorKind(req.Language, info.Kind)

			if info.Kind == model.ErrorKindMissingCredentials {
				session.MissingCredentials = mergeUnique(session.MissingCredentials, info.MissingCredentials)
			}
			errorContext = retrycontext.Format(info, iterNum, maxIterations)
			if len(info.MissingCredentials) > 0 {
				errorContext += retrycontext.FormatMissingCredentials(info.MissingCredentials)
			}
			errorContext = o.boundErrorContext(errorContext)
			o.report(iterNum, "build failed: %s", info.RootCause)
			continue
		}

		o.report(iterNum, "testing")
		testStart := time.Now()
		testResult := o.Testing.ExecuteAndTest(ctx, req.Text, code, req.Language, session.RuntimeCredentials)
		o.observeStage("test", req.Language, testResult.Success(), time.Since(testStart))
		iterLog.TestResult = &testResult
		iterLog.TestStatus = testResult.Status

		if !testResult.Success() {
			info := errorparser.Parse(testResult.ExecutionLogs+"\n"+strings.Join(testResult.IssuesFound, "\n"), req.Language, code)
			iterLog.Error = &info
			iterLog.EndedAt = time.Now().UTC()
			session.Iterations = append(session.Iterations, iterLog)
			o.observeErrorKind(req.Language, info.Kind)

			if info.Kind == model.ErrorKindMissingCredentials {
				session.MissingCredentials = mergeUnique(session.MissingCredentials, info.MissingCredentials)
			}
			errorContext = retrycontext.Format(info, iterNum, maxIterations)
			if len(info.MissingCredentials) > 0 {
				errorContext += retrycontext.FormatMissingCredentials(info.MissingCredentials)
			}
			errorContext = o.boundErrorContext(errorContext)
			o.report(iterNum, "tests failed")
			continue
		}

		iterLog.EndedAt = time.Now().UTC()
		session.Iterations = append(session.Iterations, iterLog)
		session.FinalBundle = bundle
		session.Success = true
		session.Status = model.StageSuccess
		o.report(iterNum, "succeeded")
		break
	}

	session.UpdatedAt = time.Now().UTC()
	session.TotalExecutionTime = time.Since(start)
	if !session.Success {
		session.Status = model.StageFailed
	}
	if o.Metrics != nil {
		o.Metrics.ObserveSession(req.Language, session.Success)
	}

	if err := o.Store.SaveSession(session); err != nil {
		return session, fmt.Errorf("orchestrator: saving session: %w", err)
	}
	return session, nil
}

// GenerateProject runs the multi-file scaffold-then-iterate loop: the
// project skeleton is materialized once, before the first iteration, and
// every iteration generates into (validates, builds, tests against) that
// fixed structure.
func (o *Orchestrator) GenerateProject(ctx context.Context, req model.Requirement, maxIterations int, rootDir string, runtimeCredentials map[string]string) (*model.ProjectSession, error) {
	if maxIterations <= 0 {
		maxIterations = config.DefaultMaxIterations
	}
	session := &model.ProjectSession{Session: *model.NewSession(req, maxIterations, runtimeCredentials)}
	session.Status = model.StageRunning
	session.ProjectTemplate = req.ProjectTemplate
	backend := backendFor(req.Language)

	start := time.Now()

	projectName := deriveProjectName(req.Text)
	session.ProjectName = projectName
	scaffoldResult, err := scaffold.Scaffold(projectName, req.ProjectTemplate, rootDir)
	if err != nil {
		session.Status = model.StageFailed
		session.UpdatedAt = time.Now().UTC()
		session.TotalExecutionTime = time.Since(start)
		if o.Metrics != nil {
			o.Metrics.ObserveSession(req.Language, false)
		}
		if saveErr := o.Store.SaveProjectSession(session); saveErr != nil {
			log.Warn("failed to save project session %s: %v", session.ID, saveErr)
		}
		return session, fmt.Errorf("orchestrator: scaffolding failed: %w", err)
	}
	session.RootDir = scaffoldResult.ProjectRoot
	session.Files = scaffoldResult.FileTree
	o.report(0, "scaffolded project %s under %s", projectName, scaffoldResult.ProjectRoot)

	var errorContext string

	for iterNum := 1; iterNum <= maxIterations; iterNum++ {
		session.CurrentIteration = iterNum
		iterLog := model.IterationLog{Number: iterNum, StartedAt: time.Now().UTC()}
		if o.Metrics != nil {
			o.Metrics.ObserveIteration(req.Language)
		}

		o.report(iterNum, "generating project files")
		genStart := time.Now()
		bundle, err := o.CodeGen.GenerateProject(ctx, req.Text, req.Language, scaffoldResult.Files, errorContext)
		o.observeStage("codegen", req.Language, err == nil, time.Since(genStart))
		if err != nil {
			iterLog.CodeGenStatus = model.StageFailed
			iterLog.EndedAt = time.Now().UTC()
			session.Iterations = append(session.Iterations, iterLog)
			session.Status = model.StageFailed
			session.UpdatedAt = time.Now().UTC()
			session.TotalExecutionTime = time.Since(start)
			if o.Metrics != nil {
				o.Metrics.ObserveSession(req.Language, false)
			}
			if saveErr := o.Store.SaveProjectSession(session); saveErr != nil {
				log.Warn("failed to save project session %s: %v", session.ID, saveErr)
			}
			return session, fmt.Errorf("orchestrator: project code generation failed: %w", err)
		}
		iterLog.CodeGenStatus = model.StageSuccess

		o.report(iterNum, "validating project")
		validation := validator.Validate(bundle.Files, req.Language)
		o.observeStage("validate", req.Language, validation.Success, 0)
		if !validation.Success {
			info := model.ErrorInfo{
				Kind:           model.ErrorKindBuild,
				RootCause:      "project validation failed",
				SpecificIssues: validation.Errors,
				SuggestedFixes: []string{"Fix cross-file consistency issues reported above"},
			}
			iterLog.Error = &info
			iterLog.EndedAt = time.Now().UTC()
			session.Iterations = append(session.Iterations, iterLog)
			o.observeErrorKind(req.Language, info.Kind)
			errorContext = o.boundErrorContext(retrycontext.Format(info, iterNum, maxIterations))
			o.report(iterNum, "validation failed: %d error(s)", len(validation.Errors))
			continue
		}

		o.report(iterNum, "building project")
		buildStart := time.Now()
		buildResult := backend.BuildProject(ctx, bundle.Files, bundle.Dependencies)
		o.observeStage("build", req.Language, buildResult.Success(), time.Since(buildStart))
		iterLog.BuildResult = &buildResult
		iterLog.BuildStatus = buildResult.Status

		if !buildResult.Success() {
			info := errorparser.Parse(strings.Join(buildResult.Errors, "\n"), req.Language, joinedBody(bundle.Files))
			iterLog.Error = &info
			iterLog.EndedAt = time.Now().UTC()
			session.Iterations = append(session.Iterations, iterLog)
			o.observeErrorKind(req.Language, info.Kind)

			if info.Kind == model.ErrorKindMissingCredentials {
				session.MissingCredentials = mergeUnique(session.MissingCredentials, info.MissingCredentials)
			}
			errorContext = retrycontext.Format(info, iterNum, maxIterations)
			if len(info.MissingCredentials) > 0 {
				errorContext += retrycontext.FormatMissingCredentials(info.MissingCredentials)
			}
			errorContext = o.boundErrorContext(errorContext)
			o.report(iterNum, "build failed: %s", info.RootCause)
			continue
		}

		o.report(iterNum, "testing project")
		testStart := time.Now()
		testResult := o.Testing.TestProject(ctx, req.Text, bundle.Files, req.Language, session.RootDir, session.RuntimeCredentials)
		o.observeStage("test", req.Language, testResult.Success(), time.Since(testStart))
		iterLog.TestResult = &testResult
		iterLog.TestStatus = testResult.Status

		if !testResult.Success() {
			info := errorparser.Parse(testResult.ExecutionLogs+"\n"+strings.Join(testResult.IssuesFound, "\n"), req.Language, joinedBody(bundle.Files))
			iterLog.Error = &info
			iterLog.EndedAt = time.Now().UTC()
			session.Iterations = append(session.Iterations, iterLog)
			o.observeErrorKind(req.Language, info.Kind)

			if info.Kind == model.ErrorKindMissingCredentials {
				session.MissingCredentials = mergeUnique(session.MissingCredentials, info.MissingCredentials)
			}
			errorContext = retrycontext.Format(info, iterNum, maxIterations)
			if len(info.MissingCredentials) > 0 {
				errorContext += retrycontext.FormatMissingCredentials(info.MissingCredentials)
			}
			errorContext = o.boundErrorContext(errorContext)
			o.report(iterNum, "project tests failed")
			continue
		}

		iterLog.EndedAt = time.Now().UTC()
		session.Iterations = append(session.Iterations, iterLog)
		session.FinalBundle = bundle
		session.MergedDependencies = bundle.Dependencies
		session.Success = true
		session.Status = model.StageSuccess
		o.report(iterNum, "project succeeded")
		break
	}

	session.UpdatedAt = time.Now().UTC()
	session.TotalExecutionTime = time.Since(start)
	if !session.Success {
		session.Status = model.StageFailed
	}
	if o.Metrics != nil {
		o.Metrics.ObserveSession(req.Language, session.Success)
	}

	if err := o.Store.SaveProjectSession(session); err != nil {
		return session, fmt.Errorf("orchestrator: saving project session: %w", err)
	}
	return session, nil
}

// LoadSession delegates to the store, applying the error_kind migration
// rule on the way in.
func (o *Orchestrator) LoadSession(sessionID string) (*model.Session, error) {
	return o.Store.LoadSession(sessionID)
}

// ListSessions delegates to the store.
func (o *Orchestrator) ListSessions() ([]sessionstore.SessionSummary, error) {
	return o.Store.ListSessions()
}

// primaryBody returns the single relevant file body for a single-file
// generation: the first file in the bundle, or empty if none was produced.
func primaryBody(bundle model.GeneratedBundle) string {
	if len(bundle.Files) == 0 {
		return ""
	}
	return bundle.Files[0].Body
}

func joinedBody(files []model.FileArtifact) string {
	var b strings.Builder
	for _, f := range files {
		b.WriteString(f.Body)
		b.WriteString("\n")
	}
	return b.String()
}

// deriveProjectName builds a filesystem-safe project directory name from
// free-form requirements text, matching the original's slug fallback when
// no explicit project name is supplied.
func deriveProjectName(requirements string) string {
	words := strings.Fields(strings.ToLower(requirements))
	if len(words) > 4 {
		words = words[:4]
	}
	var b strings.Builder
	for i, w := range words {
		if i > 0 {
			b.WriteString("-")
		}
		for _, r := range w {
			if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
				b.WriteRune(r)
			}
		}
	}
	name := strings.Trim(b.String(), "-")
	if name == "" {
		name = "generated-project"
	}
	return name
}

func mergeUnique(existing, additions []string) []string {
	seen := map[string]bool{}
	for _, e := range existing {
		seen[e] = true
	}
	out := append([]string{}, existing...)
	for _, a := range additions {
		if !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
	}
	return out
}
