package scaffold

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTemplateKnownNames(t *testing.T) {
	_, ok := GetTemplate("fastapi")
	assert.True(t, ok)
	_, ok = GetTemplate("nonexistent")
	assert.False(t, ok)
}

func TestTemplatesForLanguageSplitsPythonAndJava(t *testing.T) {
	python := TemplatesForLanguage("python")
	assert.Contains(t, python, "fastapi")
	assert.Contains(t, python, "python_package")
	assert.NotContains(t, python, "spring_boot")
}

func TestSubstitutePlaceholdersAppliesAllThreeRewrites(t *testing.T) {
	out := substitutePlaceholders("name=\"mypackage\"\ndash=my-package\ngroup=com.example", "weather_app")
	assert.Contains(t, out, `name="weather_app"`)
	assert.Contains(t, out, "dash=weather-app")
	assert.Contains(t, out, "group=com.weatherapp")
}

func TestScaffoldPythonPackageCreatesExpectedTree(t *testing.T) {
	tmp := t.TempDir()
	result, err := Scaffold("weather_app", "python_package", tmp)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(tmp, "weather_app"), result.ProjectRoot)
	assert.Contains(t, result.Files, "setup.py")
	assert.Contains(t, result.Files, filepath.Join("src", "main.py"))

	setupContent, err := os.ReadFile(filepath.Join(result.ProjectRoot, "setup.py"))
	require.NoError(t, err)
	assert.Contains(t, string(setupContent), `name="weather_app"`)

	var foundMain bool
	for _, e := range result.FileTree {
		if e.Path == "src/main.py" {
			foundMain = true
		}
	}
	assert.True(t, foundMain)
}

func TestScaffoldUnknownTemplateReturnsError(t *testing.T) {
	_, err := Scaffold("x", "not-a-template", t.TempDir())
	assert.Error(t, err)
}
