package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"codeforge/internal/model"
)

func TestValidatePythonProjectWarnsOnMissingInit(t *testing.T) {
	files := []model.FileArtifact{
		model.NewFileArtifact("src/main.py", "import os\n"),
		model.NewFileArtifact("src/util.py", "import sys\n"),
	}
	result := Validate(files, model.LanguagePython)
	assert.True(t, result.Success)
	assert.Contains(t, result.Warnings, "missing __init__.py in src")
}

func TestValidateJavaProjectErrorsOnPackagePathMismatch(t *testing.T) {
	files := []model.FileArtifact{
		model.NewFileArtifact("project/src/main/java/com/other/Main.java", "package com.example;\npublic class Main {}\n"),
	}
	result := Validate(files, model.LanguageJava)
	assert.False(t, result.Success)
	assert.Contains(t, result.Errors[0], "doesn't match path")
}

func TestValidateJavaProjectPassesOnMatchingPackage(t *testing.T) {
	files := []model.FileArtifact{
		model.NewFileArtifact("project/src/main/java/com/example/Main.java", "package com.example;\npublic class Main {}\n"),
	}
	result := Validate(files, model.LanguageJava)
	assert.True(t, result.Success)
}

func TestExtractPythonImportsHandlesCommaAndFromForms(t *testing.T) {
	imports := extractPythonImports("import os, sys\nfrom collections import OrderedDict\n")
	assert.Contains(t, imports, "os")
	assert.Contains(t, imports, "sys")
	assert.Contains(t, imports, "collections")
}

func TestValidateJavaProjectWarnsWhenNoFilesUnderSrcMainJava(t *testing.T) {
	files := []model.FileArtifact{
		model.NewFileArtifact("Main.java", "package com.example;\npublic class Main {}\n"),
	}
	result := Validate(files, model.LanguageJava)
	assert.True(t, result.Success)
	assert.NotEmpty(t, result.Warnings)
}
