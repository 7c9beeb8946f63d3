// Command codeforge drives the autonomous generate/build/test pipeline from
// the command line, grounded on the teacher's cmd/maestro/main.go
// subcommand-and-flag-set layout, trimmed to this pipeline's single
// generate-and-persist workflow.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/term"

	"codeforge/internal/codegen"
	"codeforge/internal/config"
	"codeforge/internal/llm"
	"codeforge/internal/logx"
	"codeforge/internal/metrics"
	"codeforge/internal/model"
	"codeforge/internal/orchestrator"
	"codeforge/internal/sessionstore"
	"codeforge/internal/testingagent"
)

var log = logx.NewLogger("cli")

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "generate":
		runGenerate(os.Args[2:])
	case "project":
		runProject(os.Args[2:])
	case "sessions":
		runSessions(os.Args[2:])
	case "show":
		runShow(os.Args[2:])
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `codeforge - autonomous generate/build/test pipeline

Usage:
  codeforge generate -lang <python|java> -config <path> "<requirements>"
  codeforge project  -lang <python|java> -template <name> -config <path> "<requirements>"
  codeforge sessions -config <path>
  codeforge show -config <path> <session-id>`)
}

func runGenerate(args []string) {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	lang := fs.String("lang", "python", "target language: python or java")
	configPath := fs.String("config", "", "path to YAML config file")
	maxIter := fs.Int("max-iterations", 0, "override the configured max iterations (0 = use config default)")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "generate requires a requirements string argument")
		os.Exit(1)
	}
	requirements := strings.Join(fs.Args(), " ")

	ctx, cancel := signalContext()
	defer cancel()

	orch, cfg := bootstrap(*configPath)
	req := model.Requirement{Text: requirements, Language: parseLanguage(*lang)}
	maxIterations := *maxIter
	if maxIterations <= 0 {
		maxIterations = cfg.MaxIterations
	}

	session, err := orch.GenerateCode(ctx, req, maxIterations, nil)
	if session != nil && !session.Success && len(session.MissingCredentials) > 0 {
		session, err = retryWithPromptedCredentials(ctx, orch, req, maxIterations, session.MissingCredentials)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "generation failed: %v\n", err)
		os.Exit(1)
	}

	printSessionSummary(session.ID, session.Success, session.CurrentIteration, maxIterations)
	if !session.Success {
		os.Exit(1)
	}
}

func runProject(args []string) {
	fs := flag.NewFlagSet("project", flag.ExitOnError)
	lang := fs.String("lang", "python", "target language: python or java")
	template := fs.String("template", "fastapi", "project template: fastapi, spring_boot, or python_package")
	rootDir := fs.String("root", ".", "directory to materialize the scaffolded project under")
	configPath := fs.String("config", "", "path to YAML config file")
	maxIter := fs.Int("max-iterations", 0, "override the configured max iterations (0 = use config default)")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "project requires a requirements string argument")
		os.Exit(1)
	}
	requirements := strings.Join(fs.Args(), " ")

	ctx, cancel := signalContext()
	defer cancel()

	orch, cfg := bootstrap(*configPath)
	req := model.Requirement{Text: requirements, Language: parseLanguage(*lang), ProjectTemplate: *template}
	maxIterations := *maxIter
	if maxIterations <= 0 {
		maxIterations = cfg.MaxIterations
	}

	session, err := orch.GenerateProject(ctx, req, maxIterations, *rootDir, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "project generation failed: %v\n", err)
		os.Exit(1)
	}

	printSessionSummary(session.ID, session.Success, session.CurrentIteration, maxIterations)
	fmt.Printf("project root: %s\n", session.RootDir)
	if !session.Success {
		os.Exit(1)
	}
}

func runSessions(args []string) {
	fs := flag.NewFlagSet("sessions", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML config file")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	orch, _ := bootstrap(*configPath)
	summaries, err := orch.ListSessions()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to list sessions: %v\n", err)
		os.Exit(1)
	}
	for _, s := range summaries {
		status := "FAILED"
		if s.Success {
			status = "SUCCESS"
		}
		fmt.Printf("%s  %-8s  %-6s  %s\n", s.ID, status, s.Language, s.Requirements)
	}
}

func runShow(args []string) {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML config file")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "show requires a session id argument")
		os.Exit(1)
	}

	orch, _ := bootstrap(*configPath)
	session, err := orch.LoadSession(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load session: %v\n", err)
		os.Exit(1)
	}

	printSessionSummary(session.ID, session.Success, session.CurrentIteration, session.MaxIterations)
	for _, it := range session.Iterations {
		fmt.Printf("  iteration %d: codegen=%s build=%s test=%s\n", it.Number, it.CodeGenStatus, it.BuildStatus, it.TestStatus)
		if it.Error != nil {
			fmt.Printf("    error: [%s] %s\n", it.Error.Kind, it.Error.RootCause)
		}
	}
}

// bootstrap loads configuration, resolves the default model and its
// credentials, and wires every agent package into an Orchestrator with a
// metrics-instrumented LLM client.
func bootstrap(configPath string) (*orchestrator.Orchestrator, config.Config) {
	if err := config.Load(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Get()

	modelCfg, ok := defaultModel(cfg)
	if !ok {
		fmt.Fprintf(os.Stderr, "no model configured for default provider %q\n", cfg.DefaultProvider)
		os.Exit(1)
	}

	apiKey := config.APIKey(modelCfg.Provider)
	client, err := llm.New(modelCfg, apiKey, os.Getenv("OLLAMA_HOST"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create LLM client: %v\n", err)
		os.Exit(1)
	}

	rec := metrics.New()
	instrumented := metrics.Instrument(client, rec)

	persistDir := cfg.PersistencePath
	if err := os.MkdirAll(persistDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create persistence directory: %v\n", err)
		os.Exit(1)
	}
	store := sessionstore.New(persistDir)
	if passphrase := config.CredentialsPassphrase(); passphrase != "" {
		store = store.WithPassphrase(passphrase)
	} else {
		log.Warn("CODEFORGE_CREDENTIALS_PASSPHRASE not set, runtime credentials will be encrypted with the package default key")
	}
	if idx, err := sessionstore.OpenIndex(filepath.Join(persistDir, "index.db")); err == nil {
		store = store.WithIndex(idx)
	} else {
		log.Warn("session index unavailable, continuing with filesystem-only persistence: %v", err)
	}

	progress := func(message string, iteration int) {
		fmt.Printf("[iter %d] %s\n", iteration, message)
	}

	orch := orchestrator.New(codegen.New(instrumented), testingagent.New(instrumented), store, progress).WithMetrics(rec)
	return orch, cfg
}

func defaultModel(cfg config.Config) (config.Model, bool) {
	for _, m := range cfg.Models {
		if m.Provider == cfg.DefaultProvider {
			return m, true
		}
	}
	return config.Model{}, false
}

func parseLanguage(s string) model.Language {
	if strings.EqualFold(s, "java") {
		return model.LanguageJava
	}
	return model.LanguagePython
}

// retryWithPromptedCredentials prompts non-echoing for each missing
// credential label and re-runs generation once with them injected, matching
// the original pipeline's missing_credentials remediation flow.
func retryWithPromptedCredentials(ctx context.Context, orch *orchestrator.Orchestrator, req model.Requirement, maxIterations int, missing []string) (*model.Session, error) {
	fmt.Println("the generated code requires the following runtime credentials:")
	creds := map[string]string{}
	for _, label := range missing {
		fmt.Printf("  %s: ", label)
		value, err := readSecret()
		if err != nil {
			return nil, fmt.Errorf("cli: reading credential %s: %w", label, err)
		}
		creds[label] = value
	}
	return orch.GenerateCode(ctx, req, maxIterations, creds)
}

func readSecret() (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		var value string
		_, err := fmt.Scanln(&value)
		return value, err
	}
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	return string(b), err
}

func printSessionSummary(id string, success bool, iterations, maxIterations int) {
	status := "FAILED"
	if success {
		status = "SUCCESS"
	}
	fmt.Printf("session %s: %s (%d/%d iterations)\n", id, status, iterations, maxIterations)
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("received interrupt, cancelling in-flight generation")
		cancel()
	}()
	return ctx, cancel
}
