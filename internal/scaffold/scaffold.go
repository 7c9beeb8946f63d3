package scaffold

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"codeforge/internal/logx"
	"codeforge/internal/model"
)

var log = logx.NewLogger("scaffold")

// Result is the outcome of materializing a template to disk.
type Result struct {
	ProjectRoot string
	Files       []string // relative paths, directories and config files both
	FileTree    []model.FileTreeEntry
}

// Scaffold materializes templateName under rootDir/projectName, substituting
// the fixed placeholder set (mypackage, my-package, com.example) in every
// config file body, matching project_scaffold.py's scaffold_project.
func Scaffold(projectName, templateName, rootDir string) (Result, error) {
	tpl, ok := GetTemplate(templateName)
	if !ok {
		return Result{}, fmt.Errorf("scaffold: template %q not found", templateName)
	}

	projectRoot := filepath.Join(rootDir, projectName)
	if err := os.MkdirAll(projectRoot, 0o755); err != nil {
		return Result{}, fmt.Errorf("scaffold: creating project root: %w", err)
	}

	var created []string
	structCreated, err := createStructure(projectRoot, tpl.Structure, "")
	if err != nil {
		return Result{}, err
	}
	created = append(created, structCreated...)

	cfgCreated, err := createConfigFiles(projectRoot, tpl.ConfigFiles, projectName)
	if err != nil {
		return Result{}, err
	}
	created = append(created, cfgCreated...)

	tree, err := buildFileTree(projectRoot)
	if err != nil {
		log.Warn("error building file tree: %v", err)
	}

	log.Info("scaffolded project %q from template %q: %d files", projectName, templateName, len(created))

	return Result{
		ProjectRoot: projectRoot,
		Files:       created,
		FileTree:    tree,
	}, nil
}

func createStructure(root string, structure map[string]Node, parentPath string) ([]string, error) {
	var created []string

	names := make([]string, 0, len(structure))
	for name := range structure {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		node := structure[name]
		currentPath := name
		if parentPath != "" {
			currentPath = filepath.Join(parentPath, name)
		}
		fullPath := filepath.Join(root, currentPath)

		if !node.IsFile {
			if err := os.MkdirAll(fullPath, 0o755); err != nil {
				return nil, fmt.Errorf("scaffold: creating directory %s: %w", currentPath, err)
			}
			created = append(created, currentPath)
			sub, err := createStructure(root, node.Children, currentPath)
			if err != nil {
				return nil, err
			}
			created = append(created, sub...)
			continue
		}

		if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
			return nil, fmt.Errorf("scaffold: creating parent of %s: %w", currentPath, err)
		}
		if err := os.WriteFile(fullPath, []byte(node.Content), 0o644); err != nil {
			return nil, fmt.Errorf("scaffold: writing %s: %w", currentPath, err)
		}
		created = append(created, currentPath)
	}

	return created, nil
}

// createConfigFiles writes the template's fixed config files after
// substituting the placeholder tokens with the caller's project name.
func createConfigFiles(root string, configFiles map[string]string, projectName string) ([]string, error) {
	names := make([]string, 0, len(configFiles))
	for name := range configFiles {
		names = append(names, name)
	}
	sort.Strings(names)

	var created []string
	for _, filename := range names {
		content := substitutePlaceholders(configFiles[filename], projectName)
		fullPath := filepath.Join(root, filepath.FromSlash(filename))
		if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
			return nil, fmt.Errorf("scaffold: creating parent of %s: %w", filename, err)
		}
		if err := os.WriteFile(fullPath, []byte(content), 0o644); err != nil {
			return nil, fmt.Errorf("scaffold: writing %s: %w", filename, err)
		}
		created = append(created, filename)
	}
	return created, nil
}

// substitutePlaceholders applies the original pipeline's three fixed
// rewrites: mypackage -> project_name, my-package -> project_name with
// underscores turned to dashes, com.example -> com.<name with dashes and
// underscores removed>.
func substitutePlaceholders(content, projectName string) string {
	content = strings.ReplaceAll(content, "mypackage", projectName)
	content = strings.ReplaceAll(content, "my-package", strings.ReplaceAll(projectName, "_", "-"))
	sanitized := strings.NewReplacer("-", "", "_", "").Replace(projectName)
	content = strings.ReplaceAll(content, "com.example", "com."+sanitized)
	return content
}

// buildFileTree recomputes the materialized tree from disk, skipping
// dotfiles other than .gitignore, matching project_scaffold.py's
// _build_file_tree (flattened here to the FileTreeEntry shape the pipeline
// persists rather than the original's nested dict).
func buildFileTree(root string) ([]model.FileTreeEntry, error) {
	var entries []model.FileTreeEntry
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		base := filepath.Base(path)
		if strings.HasPrefix(base, ".") && base != ".gitignore" {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		entries = append(entries, model.FileTreeEntry{Path: filepath.ToSlash(rel), IsDir: info.IsDir()})
		return nil
	})
	return entries, err
}
