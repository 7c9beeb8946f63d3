// Package model defines the data types shared across the generation pipeline:
// requirements, generated artifacts, build/test results, error classification,
// and the session records the orchestrator owns.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Language identifies the target ecosystem for a generation request.
type Language string

const (
	LanguagePython Language = "python"
	LanguageJava   Language = "java"
)

// Requirement is the free-form input to a generation session.
type Requirement struct {
	Text            string
	Language        Language
	ProjectTemplate string // optional; set only for generate_project requests
}

// FileArtifact is a single generated file: a relative POSIX path, its body,
// an inferred language tag (from extension, never inherited from the
// project-level language), and its size in bytes.
type FileArtifact struct {
	Filename string
	Body     string
	Lang     string
	Size     int
}

// NewFileArtifact builds a FileArtifact, inferring Lang from the extension
// and Size from the body length.
func NewFileArtifact(filename, body string) FileArtifact {
	return FileArtifact{
		Filename: filename,
		Body:     body,
		Lang:     languageFromExtension(filename),
		Size:     len(body),
	}
}

func languageFromExtension(filename string) string {
	switch ext(filename) {
	case ".py":
		return "python"
	case ".java":
		return "java"
	case ".xml":
		return "xml"
	case ".yml", ".yaml":
		return "yaml"
	case ".json":
		return "json"
	case ".txt":
		return "text"
	case ".md":
		return "markdown"
	default:
		return "unknown"
	}
}

func ext(filename string) string {
	for i := len(filename) - 1; i >= 0; i-- {
		if filename[i] == '.' {
			return filename[i:]
		}
		if filename[i] == '/' {
			break
		}
	}
	return ""
}

// Dependency is an external dependency descriptor. For the interpreter
// ecosystem it is a simple package Name (optionally versioned). For the
// JVM ecosystem it is a Group:Artifact:Version triple. Equality is
// structural, so two descriptors built from the same fields compare equal.
type Dependency struct {
	Name       string // interpreter ecosystem
	Group      string // JVM ecosystem
	Artifact   string
	Version    string
}

// IsMaven reports whether this descriptor is a JVM group:artifact:version triple.
func (d Dependency) IsMaven() bool {
	return d.Group != "" && d.Artifact != ""
}

// String renders the canonical serialized form of the descriptor.
func (d Dependency) String() string {
	if d.IsMaven() {
		return d.Group + ":" + d.Artifact + ":" + d.Version
	}
	return d.Name
}

// GeneratedBundle is an ordered list of file artifacts plus a de-duplicated,
// first-seen-ordered list of dependency descriptors.
type GeneratedBundle struct {
	Files        []FileArtifact
	Dependencies []Dependency
}

// AddFile appends or overwrites a file by filename, preserving first-seen
// ordering for new names and moving nothing for overwritten ones (the spec's
// "later duplicates overwrite earlier ones" rule is position-stable: the
// body changes, the position in the list does not). Returns true if this
// call overwrote an existing entry.
func (b *GeneratedBundle) AddFile(f FileArtifact) bool {
	for i := range b.Files {
		if b.Files[i].Filename == f.Filename {
			b.Files[i] = f
			return true
		}
	}
	b.Files = append(b.Files, f)
	return false
}

// StageStatus is the status of one pipeline stage within an iteration.
type StageStatus string

const (
	StagePending StageStatus = "pending"
	StageRunning StageStatus = "running"
	StageSuccess StageStatus = "success"
	StageFailed  StageStatus = "failed"
	StageSkipped StageStatus = "skipped"
)

// BuildResult is the outcome of the Build Agent.
type BuildResult struct {
	Status           StageStatus
	Dependencies     []Dependency
	BuildInstructions string
	Errors           []string
	SuggestedFixes   []string
}

// Success reports whether the build succeeded.
func (r BuildResult) Success() bool { return r.Status == StageSuccess }

// TestCase is a single named assertion result produced by the Testing Agent.
type TestCase struct {
	Name        string
	Status      StageStatus // pass is StageSuccess, fail is StageFailed
	Description string
	Error       string
}

// PerformanceMetrics carries optional measurements the testing judge reports.
type PerformanceMetrics struct {
	WallTimeMS int64
	MemoryMB   float64
}

// TestResult is the outcome of the Testing Agent.
type TestResult struct {
	Status          StageStatus
	Cases           []TestCase
	ExecutionLogs   string
	Performance     *PerformanceMetrics
	IssuesFound     []string
	Recommendations []string
}

// Success reports whether all tests passed.
func (r TestResult) Success() bool { return r.Status == StageSuccess }

// ErrorKind classifies a failure for retry-context synthesis.
type ErrorKind string

const (
	ErrorKindSyntax             ErrorKind = "SYNTAX"
	ErrorKindBuild              ErrorKind = "BUILD"
	ErrorKindRuntime            ErrorKind = "RUNTIME"
	ErrorKindLogic              ErrorKind = "LOGIC"
	ErrorKindMissingCredentials ErrorKind = "MISSING_CREDENTIALS"
)

// ErrorInfo is the structured result of parsing a tool/runtime error.
type ErrorInfo struct {
	Kind               ErrorKind
	RootCause          string
	SpecificIssues     []string
	SuggestedFixes     []string
	MissingCredentials []string
	RawError           string
}

// IterationLog is one append-only record of a generate/build/test pass.
type IterationLog struct {
	Number        int
	StartedAt     time.Time
	EndedAt       time.Time
	CodeGenStatus StageStatus
	BuildStatus   StageStatus
	TestStatus    StageStatus
	GeneratedCode string
	BuildResult   *BuildResult
	TestResult    *TestResult
	Error         *ErrorInfo
}

// Session is the complete record of one generate_code invocation.
type Session struct {
	ID                  string
	Requirement         Requirement
	CreatedAt           time.Time
	UpdatedAt           time.Time
	Status              StageStatus
	CurrentIteration    int
	MaxIterations       int
	Iterations          []IterationLog
	FinalBundle         GeneratedBundle
	// RuntimeCredentials never touches metadata.json: it is persisted
	// separately, encrypted, via sessionstore's credentials.json.enc sidecar.
	RuntimeCredentials  map[string]string `json:"-"`
	MissingCredentials  []string
	TotalExecutionTime  time.Duration
	Success             bool
}

// ProjectSession extends Session with multi-file project fields.
type ProjectSession struct {
	Session
	ProjectTemplate    string
	ProjectName        string
	RootDir            string
	Files              []FileTreeEntry
	FileTreeSummary    string
	MergedDependencies []Dependency
}

// FileTreeEntry is one path in the materialized project tree, distinct from
// the in-memory FileArtifact: it describes what's on disk, not file content.
type FileTreeEntry struct {
	Path  string
	IsDir bool
}

// NewSession creates a fresh session with a short random id, matching the
// teacher's convention of trimming a UUID down to eight hex characters for
// human-friendly session identifiers.
func NewSession(req Requirement, maxIterations int, creds map[string]string) *Session {
	now := time.Now().UTC()
	if creds == nil {
		creds = map[string]string{}
	}
	return &Session{
		ID:                 shortID(),
		Requirement:        req,
		CreatedAt:          now,
		UpdatedAt:          now,
		Status:             StagePending,
		MaxIterations:      maxIterations,
		RuntimeCredentials: creds,
	}
}

func shortID() string {
	return uuid.New().String()[:8]
}
