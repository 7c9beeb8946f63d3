// Package codegen implements the Code Generator Agent: prompt assembly, LLM
// invocation, response normalization, splitting into file artifacts,
// Java-specific post-processing, and dependency extraction.
package codegen

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"codeforge/internal/depextract"
	"codeforge/internal/llm"
	"codeforge/internal/logx"
	"codeforge/internal/model"
	"codeforge/internal/splitter"
)

var log = logx.NewLogger("codegen")

const systemPromptPython = `You are an expert code generation agent. Your role is to write complete, executable, and well-documented code based on user requirements.

Guidelines:
1. Generate COMPLETE, RUNNABLE code - not pseudocode or snippets.
2. Include all necessary imports and dependencies.
3. Add proper error handling and logging.
4. Write clear comments explaining complex logic.
5. Follow idiomatic Python style.
6. For database operations, include connection handling and table creation.
7. For API calls, include proper error handling and timeouts.

Emit each file prefixed with a line "# FILE: <relative/path>" (or "// FILE: <relative/path>" for Java). A single-file request still uses one FILE marker.`

const systemPromptJava = `You are an expert code generation agent. Your role is to write complete, executable, and well-documented Java code based on user requirements.

Guidelines:
1. Generate COMPLETE, RUNNABLE code - not pseudocode or snippets.
2. Include a package declaration, all necessary imports, and exactly one public type per file with a main() method where applicable.
3. Use modern Jakarta namespaces (jakarta.persistence, jakarta.validation, ...), never the legacy javax.* equivalents, except javax.sql which stays as-is.
4. Add proper error handling and logging.

Emit each file prefixed with a line "// FILE: <relative/path>".`

// Agent is the Code Generator Agent.
type Agent struct {
	client llm.Client
}

// New builds a Code Generator Agent bound to a concrete LLM client.
func New(client llm.Client) *Agent {
	return &Agent{client: client}
}

// Generate produces a bundle from requirements text, the target language,
// and the retry-context fragment (empty on the first iteration).
func (a *Agent) Generate(ctx context.Context, requirements string, language model.Language, errorContext string) (model.GeneratedBundle, error) {
	prompt := buildPrompt(requirements, language, errorContext, nil)

	resp, err := a.client.Complete(ctx, llm.NewRequest(llm.SystemMessage(systemPrompt(language)), llm.UserMessage(prompt)))
	if err != nil {
		return model.GeneratedBundle{}, fmt.Errorf("codegen: llm call failed: %w", err)
	}

	return a.assembleBundle(resp.Content, language)
}

// GenerateProject produces a multi-file bundle against a template's required
// filename manifest.
func (a *Agent) GenerateProject(ctx context.Context, requirements string, language model.Language, requiredFiles []string, errorContext string) (model.GeneratedBundle, error) {
	prompt := buildPrompt(requirements, language, errorContext, requiredFiles)

	resp, err := a.client.Complete(ctx, llm.NewRequest(llm.SystemMessage(systemPrompt(language)), llm.UserMessage(prompt)))
	if err != nil {
		return model.GeneratedBundle{}, fmt.Errorf("codegen: llm call failed: %w", err)
	}

	return a.assembleBundle(resp.Content, language)
}

func systemPrompt(language model.Language) string {
	if language == model.LanguageJava {
		return systemPromptJava
	}
	return systemPromptPython
}

func buildPrompt(requirements string, language model.Language, errorContext string, requiredFiles []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**User Requirements:**\n%s\n\n**Target Language:** %s\n", requirements, strings.ToUpper(string(language)))
	if len(requiredFiles) > 0 {
		b.WriteString("\n**Required files:**\n")
		for _, f := range requiredFiles {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}
	if errorContext != "" {
		b.WriteString(errorContext)
	}
	return b.String()
}

// assembleBundle runs the splitter, applies Java post-processors, de-dups
// files by filename keeping the last occurrence, and extracts dependencies
// over the joined source — steps 3-7 of the Code Generator Agent's
// algorithm.
func (a *Agent) assembleBundle(rawResponse string, language model.Language) (model.GeneratedBundle, error) {
	files := splitter.Split(rawResponse, language)

	if language == model.LanguageJava {
		for i := range files {
			files[i].Body = applyJavaPostProcessors(files[i].Filename, files[i].Body)
		}
	}

	bundle := model.GeneratedBundle{}
	for _, f := range files {
		if overwritten := bundle.AddFile(f); overwritten {
			log.Warn("duplicate file %s in generated output, keeping latest version", f.Filename)
		}
	}

	joined := joinedSource(bundle)
	if language == model.LanguageJava {
		bundle.Dependencies = depextract.ExtractJava(joined, hasTestFile(bundle))
	} else {
		bundle.Dependencies = depextract.ExtractPython(joined)
	}

	return bundle, nil
}

func joinedSource(bundle model.GeneratedBundle) string {
	var b strings.Builder
	for _, f := range bundle.Files {
		b.WriteString(f.Body)
		b.WriteString("\n")
	}
	return b.String()
}

func hasTestFile(bundle model.GeneratedBundle) bool {
	for _, f := range bundle.Files {
		if strings.Contains(f.Filename, "Test") {
			return true
		}
	}
	return false
}

// javaxToJakarta is the fixed, explicit rewrite list from the original
// pipeline's _convert_javax_to_jakarta. javax.sql is deliberately excluded:
// it is a JDK built-in namespace, not part of the Jakarta EE umbrella.
var javaxToJakarta = []struct {
	from *regexp.Regexp
	to   string
}{
	{regexp.MustCompile(`\bimport\s+javax\.persistence\b`), "import jakarta.persistence"},
	{regexp.MustCompile(`\bimport\s+javax\.validation\b`), "import jakarta.validation"},
	{regexp.MustCompile(`\bimport\s+javax\.servlet\b`), "import jakarta.servlet"},
	{regexp.MustCompile(`\bimport\s+javax\.transaction\b`), "import jakarta.transaction"},
	{regexp.MustCompile(`\bimport\s+javax\.ejb\b`), "import jakarta.ejb"},
	{regexp.MustCompile(`\bimport\s+javax\.annotation\b`), "import jakarta.annotation"},
	{regexp.MustCompile(`\bimport\s+javax\.inject\b`), "import jakarta.inject"},
	{regexp.MustCompile(`\bimport\s+javax\.ws\.rs\b`), "import jakarta.ws.rs"},
	{regexp.MustCompile(`\bimport\s+javax\.jms\b`), "import jakarta.jms"},
	{regexp.MustCompile(`\bimport\s+javax\.mail\b`), "import jakarta.mail"},
}

// applyJavaPostProcessors runs the two bounded JVM rewrites permitted by the
// design: namespace rewrite, then missing-close-brace append. Both are
// logged as informational warnings, never silently applied.
func applyJavaPostProcessors(filename, content string) string {
	converted := 0
	for _, rule := range javaxToJakarta {
		if rule.from.MatchString(content) {
			content = rule.from.ReplaceAllString(content, rule.to)
			converted++
		}
	}
	if converted > 0 {
		log.Info("converted %d javax.* import(s) to jakarta.* in %s", converted, filename)
	}

	opens := strings.Count(content, "{")
	closes := strings.Count(content, "}")
	if opens != closes {
		log.Warn("unbalanced braces in %s: %d open, %d close", filename, opens, closes)
		if opens > closes {
			missing := opens - closes
			content += "\n" + strings.Repeat("}\n", missing)
			log.Info("added %d closing brace(s) to %s", missing, filename)
		}
	}

	return content
}
