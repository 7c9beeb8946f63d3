// Package validator implements the Project Validator: cross-file import and
// package-path consistency checks for multi-file projects, grounded on the
// original pipeline's project_validator.py.
package validator

import (
	"fmt"
	"regexp"
	"strings"

	"codeforge/internal/logx"
	"codeforge/internal/model"
)

var log = logx.NewLogger("validator")

var (
	pyImportLine     = regexp.MustCompile(`(?m)^import\s+([\w.,\s]+)`)
	pyFromImportLine = regexp.MustCompile(`(?m)^from\s+([\w.]+)\s+import`)
	javaPackageDecl  = regexp.MustCompile(`package\s+([\w.]+);`)
)

// Result is the outcome of validating a project's file set.
type Result struct {
	Success   bool
	Errors    []string
	Warnings  []string
	FileCount int
}

// Validate checks a project's files for consistency, dispatching by
// language. Only hard inconsistencies (Java package/path mismatch) become
// errors; everything else the original pipeline treats as a warning.
func Validate(files []model.FileArtifact, language model.Language) Result {
	var errs, warnings []string

	switch language {
	case model.LanguageJava:
		errs, warnings = validateJavaProject(files)
	default:
		errs, warnings = validatePythonProject(files)
	}

	success := len(errs) == 0
	if success {
		log.Info("project validation passed (%d files)", len(files))
	} else {
		log.Warn("project validation found %d error(s)", len(errs))
	}

	return Result{Success: success, Errors: errs, Warnings: warnings, FileCount: len(files)}
}

func validatePythonProject(files []model.FileArtifact) ([]string, []string) {
	var warnings []string

	importsByFile := map[string][]string{}
	for _, f := range files {
		if f.Lang == "python" || strings.HasSuffix(f.Filename, ".py") {
			importsByFile[f.Filename] = extractPythonImports(f.Body)
		}
	}

	if pair := detectCircularImport(importsByFile); pair != "" {
		warnings = append(warnings, "potential circular import: "+pair)
	}

	for _, dirPath := range pythonPackageDirs(files) {
		if !hasFile(files, dirPath+"/__init__.py") {
			warnings = append(warnings, fmt.Sprintf("missing __init__.py in %s", dirPath))
		}
	}

	for filename, imports := range importsByFile {
		for _, imp := range imports {
			if !isValidPythonImport(imp, files) {
				warnings = append(warnings, fmt.Sprintf("in %s: import %q not found in project", filename, imp))
			}
		}
	}

	return nil, warnings
}

func validateJavaProject(files []model.FileArtifact) ([]string, []string) {
	var errs, warnings []string

	var javaFiles []model.FileArtifact
	for _, f := range files {
		if f.Lang == "java" || strings.HasSuffix(f.Filename, ".java") {
			javaFiles = append(javaFiles, f)
		}
	}

	var underSrcMainJava bool
	for _, f := range javaFiles {
		if strings.Contains(f.Filename, "/src/main/java/") {
			underSrcMainJava = true
			break
		}
	}
	if len(javaFiles) > 0 && !underSrcMainJava {
		warnings = append(warnings, "Java files should ideally be under src/main/java/ for Maven compatibility")
	}

	for _, f := range javaFiles {
		m := javaPackageDecl.FindStringSubmatch(f.Body)
		if m == nil {
			warnings = append(warnings, fmt.Sprintf("Java file %s has no package declaration", f.Filename))
			continue
		}
		packageName := m[1]
		if strings.Contains(f.Filename, "/src/main/java/") {
			expectedSuffix := strings.ReplaceAll(packageName, ".", "/")
			if !strings.Contains(f.Filename, expectedSuffix) {
				errs = append(errs, fmt.Sprintf("Java file %s package %q doesn't match path", f.Filename, packageName))
			}
		}
	}

	return errs, warnings
}

// extractPythonImports mirrors _extract_python_imports: plain "import X, Y"
// lines split on commas, "from X import Y" captures only the module.
func extractPythonImports(code string) []string {
	var imports []string
	for _, m := range pyImportLine.FindAllStringSubmatch(code, -1) {
		for _, module := range strings.Split(m[1], ",") {
			fields := strings.Fields(strings.TrimSpace(module))
			if len(fields) > 0 {
				imports = append(imports, fields[0])
			}
		}
	}
	for _, m := range pyFromImportLine.FindAllStringSubmatch(code, -1) {
		imports = append(imports, m[1])
	}
	return imports
}

// detectCircularImport is the original's simplified check: true only when
// file A imports a name resolving to file B's module, and B's imports
// include A's own module name.
func detectCircularImport(importsByFile map[string][]string) string {
	for filename, imports := range importsByFile {
		for _, imp := range imports {
			for otherFile, otherImports := range importsByFile {
				if otherFile == filename {
					continue
				}
				moduleName := moduleNameFromFilename(filename)
				if containsString(otherImports, moduleName) && imp == moduleNameFromFilename(otherFile) {
					return filename + " <-> " + otherFile
				}
			}
		}
	}
	return ""
}

func pythonPackageDirs(files []model.FileArtifact) []string {
	seen := map[string]bool{}
	var dirs []string
	for _, f := range files {
		if !strings.HasSuffix(f.Filename, ".py") {
			continue
		}
		parts := strings.Split(f.Filename, "/")
		if len(parts) > 1 {
			dirPath := strings.Join(parts[:len(parts)-1], "/")
			if !seen[dirPath] {
				seen[dirPath] = true
				dirs = append(dirs, dirPath)
			}
		}
	}
	return dirs
}

func hasFile(files []model.FileArtifact, name string) bool {
	for _, f := range files {
		if f.Filename == name {
			return true
		}
	}
	return false
}

// pythonStdlibKnownSubset is the validator's own small stdlib allow-list
// (deliberately narrower than depextract's closed set: the original
// pipeline keeps two independent, slightly different stdlib lists for
// different purposes here).
var pythonStdlibKnownSubset = map[string]bool{
	"os": true, "sys": true, "json": true, "re": true, "math": true,
	"time": true, "datetime": true, "collections": true, "itertools": true,
	"functools": true, "logging": true, "typing": true,
}

func isValidPythonImport(imp string, files []model.FileArtifact) bool {
	if pythonStdlibKnownSubset[imp] {
		return true
	}
	for _, f := range files {
		if strings.HasSuffix(f.Filename, ".py") {
			moduleName := moduleNameFromFilename(f.Filename)
			if strings.HasPrefix(moduleName, imp) {
				return true
			}
		}
	}
	// Third-party packages are assumed available, matching the original's
	// permissive default.
	return true
}

func moduleNameFromFilename(filename string) string {
	if strings.HasSuffix(filename, ".py") {
		filename = strings.TrimSuffix(filename, ".py")
	}
	return strings.ReplaceAll(filename, "/", ".")
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
