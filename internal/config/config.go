// Package config loads and manages configuration for the generation pipeline.
//
// Following the teacher's separation of concerns: algorithm constants are
// hardcoded here (timeouts included), not user-configurable; model settings
// (names, providers, token limits), the persistence path and the iteration
// budget load from a YAML file; API keys come from the environment; and the
// global Config is accessed by value so callers cannot mutate it behind each
// other's backs.
package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Provider names for LLM adapters.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderGemini    = "gemini"
)

// Hardcoded algorithm parameters. Not user-configurable, per the teacher's
// "constants vs config" split.
const (
	DefaultMaxIterations     = 5
	DefaultInterpreterTimeout = 60 * time.Second
	DefaultInstallerTimeout   = 300 * time.Second
	DefaultJVMCompileTimeout  = 120 * time.Second
	MaxErrorLinesFromBuild    = 10
)

// Model describes one LLM model's provider binding and default limits.
type Model struct {
	Name        string  `yaml:"name"`
	Provider    string  `yaml:"provider"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float32 `yaml:"temperature"`
}

// Config is the process-wide configuration, loaded once at startup.
type Config struct {
	PersistencePath string           `yaml:"persistence_path"`
	DefaultProvider string           `yaml:"default_provider"`
	Models          map[string]Model `yaml:"models"`
	MaxIterations   int              `yaml:"max_iterations"`
}

func defaultConfig() Config {
	return Config{
		PersistencePath: "./sessions",
		DefaultProvider: ProviderAnthropic,
		MaxIterations:   DefaultMaxIterations,
		Models: map[string]Model{
			"claude-sonnet-4-20250514": {Name: "claude-sonnet-4-20250514", Provider: ProviderAnthropic, MaxTokens: 8192, Temperature: 0.7},
			"gpt-4o":                   {Name: "gpt-4o", Provider: ProviderOpenAI, MaxTokens: 8192, Temperature: 0.7},
			"llama3":                   {Name: "llama3", Provider: ProviderOllama, MaxTokens: 4096, Temperature: 0.7},
			"gemini-1.5-pro":           {Name: "gemini-1.5-pro", Provider: ProviderGemini, MaxTokens: 8192, Temperature: 0.7},
		},
	}
}

//nolint:gochecknoglobals // intentional singleton, guarded by mu, mirrors the teacher's config package
var (
	current Config
	mu      sync.RWMutex
	loaded  bool
)

// Load reads configuration from path (if it exists) layered over defaults,
// then loads a .env file from the current working directory (if present)
// into the process environment so API keys never need to be passed on the
// command line.
func Load(path string) error {
	mu.Lock()
	defer mu.Unlock()

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if uerr := yaml.Unmarshal(data, &cfg); uerr != nil {
				return fmt.Errorf("parse config %s: %w", path, uerr)
			}
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	}

	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()

	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}

	current = cfg
	loaded = true
	return nil
}

// Get returns a copy of the current configuration. Callers must not rely on
// Load having been called first in tests that only need defaults.
func Get() Config {
	mu.RLock()
	defer mu.RUnlock()
	if !loaded {
		return defaultConfig()
	}
	return current
}

// APIKey resolves the environment variable holding the API key for a
// provider (ANTHROPIC_API_KEY, OPENAI_API_KEY, GEMINI_API_KEY). Ollama is
// assumed to run without auth, matching the teacher's local-model handling.
func APIKey(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return os.Getenv("ANTHROPIC_API_KEY")
	case ProviderOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	case ProviderGemini:
		return os.Getenv("GEMINI_API_KEY")
	default:
		return ""
	}
}

// CredentialsPassphrase resolves the passphrase runtime credentials are
// encrypted under at rest. Empty means the caller should fall back to the
// sessionstore package's built-in default.
func CredentialsPassphrase() string {
	return os.Getenv("CODEFORGE_CREDENTIALS_PASSPHRASE")
}
