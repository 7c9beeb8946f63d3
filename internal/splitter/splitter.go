// Package splitter parses raw LLM completion text into an ordered list of
// file artifacts, grounded on the original pipeline's FILE-marker and
// fenced-code-block extraction.
package splitter

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"codeforge/internal/model"
)

var (
	fileMarkerPattern = regexp.MustCompile(`(?mi)^(?:#|//)\s*FILE:\s*(.+)$`)
	fencedBlockPattern = regexp.MustCompile("(?s)```[a-zA-Z0-9_+-]*\\n(.*?)```")
	leadingFenceLang   = regexp.MustCompile("^```[a-zA-Z0-9_+-]*\\n")
	trailingFence      = regexp.MustCompile("\\n```$")
	filenameComment    = regexp.MustCompile(`(?i)^(?:#|//)\s*(?:filename|file|path)[:=]\s*(.+)$`)
	javaPublicType     = regexp.MustCompile(`public\s+(?:class|interface|enum|record)\s+(\w+)`)
)

// Split parses text into an ordered list of file artifacts. Precedence
// follows the original pipeline: explicit FILE markers win over fenced code
// blocks, which win over treating the whole blob as one file.
func Split(text string, language model.Language) []model.FileArtifact {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if markers := fileMarkerPattern.FindAllStringSubmatchIndex(text, -1); len(markers) > 0 {
		return splitByMarkers(text, markers)
	}

	if blocks := fencedBlockPattern.FindAllStringSubmatch(text, -1); len(blocks) > 0 {
		return splitByFences(blocks, language)
	}

	return []model.FileArtifact{model.NewFileArtifact(syntheticFilename(language, text), text)}
}

func splitByMarkers(text string, markers [][]int) []model.FileArtifact {
	// last-occurrence-wins dedup by filename, preserving first-seen position
	order := make([]string, 0, len(markers))
	byName := make(map[string]string, len(markers))

	for i, m := range markers {
		filenameStart, filenameEnd := m[2], m[3]
		filename := strings.TrimSpace(text[filenameStart:filenameEnd])

		bodyStart := m[1]
		bodyEnd := len(text)
		if i+1 < len(markers) {
			bodyEnd = markers[i+1][0]
		}
		content := stripFence(strings.TrimSpace(text[bodyStart:bodyEnd]))

		if _, exists := byName[filename]; !exists {
			order = append(order, filename)
		}
		byName[filename] = content
	}

	files := make([]model.FileArtifact, 0, len(order))
	for _, name := range order {
		files = append(files, model.NewFileArtifact(name, byName[name]))
	}
	return files
}

func splitByFences(blocks [][]string, language model.Language) []model.FileArtifact {
	files := make([]model.FileArtifact, 0, len(blocks))
	for i, block := range blocks {
		body := strings.TrimSpace(block[1])
		filename := inferFilenameFromComment(body)
		if filename == "" && language == model.LanguageJava {
			if m := javaPublicType.FindStringSubmatch(body); m != nil {
				filename = m[1] + ".java"
			}
		}
		if filename == "" {
			filename = fmt.Sprintf("generated_%d.%s", i+1, defaultExt(language))
		}
		files = append(files, model.NewFileArtifact(filename, body))
	}
	return files
}

func inferFilenameFromComment(body string) string {
	lines := strings.Split(body, "\n")
	limit := 5
	if len(lines) < limit {
		limit = len(lines)
	}
	for _, line := range lines[:limit] {
		if m := filenameComment.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

func stripFence(content string) string {
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = leadingFenceLang.ReplaceAllString(content, "")
	content = trailingFence.ReplaceAllString(content, "")
	return content
}

func defaultExt(language model.Language) string {
	if language == model.LanguageJava {
		return "java"
	}
	return "py"
}

func syntheticFilename(language model.Language, body string) string {
	if language == model.LanguageJava {
		if m := javaPublicType.FindStringSubmatch(body); m != nil {
			return m[1] + ".java"
		}
		return fmt.Sprintf("GeneratedClass_%d.java", time.Now().UnixNano()%100000)
	}
	return fmt.Sprintf("generated_script_%d.py", time.Now().UnixNano()%100000)
}
