package testingagent

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeforge/internal/model"
	"codeforge/internal/toolrunner"
)

func TestProjectTestFilesFindsPythonTestPrefix(t *testing.T) {
	files := []model.FileArtifact{
		model.NewFileArtifact("src/main.py", "print('hi')\n"),
		model.NewFileArtifact("tests/test_main.py", "def test_ok():\n    assert True\n"),
		model.NewFileArtifact("tests/conftest.py", "# fixtures\n"),
	}
	found := projectTestFiles(files, model.LanguagePython)
	require.Len(t, found, 1)
	assert.Equal(t, "tests/test_main.py", found[0].Filename)
}

func TestProjectTestFilesFindsJavaTestSuffix(t *testing.T) {
	files := []model.FileArtifact{
		model.NewFileArtifact("src/main/java/com/example/Widget.java", "public class Widget {}\n"),
		model.NewFileArtifact("src/test/java/com/example/WidgetTest.java", "public class WidgetTest {}\n"),
	}
	found := projectTestFiles(files, model.LanguageJava)
	require.Len(t, found, 1)
	assert.Equal(t, "src/test/java/com/example/WidgetTest.java", found[0].Filename)
}

func TestMaterializeFilesWritesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	files := []model.FileArtifact{
		model.NewFileArtifact("src/main.py", "print('hi')\n"),
	}
	require.NoError(t, materializeFiles(dir, files))

	body, err := os.ReadFile(filepath.Join(dir, "src", "main.py"))
	require.NoError(t, err)
	assert.Equal(t, "print('hi')\n", string(body))
}

func TestIsDependencyResolutionFailureDetectsModuleNotFound(t *testing.T) {
	assert.True(t, isDependencyResolutionFailure("Traceback...\nModuleNotFoundError: No module named 'requests'"))
	assert.True(t, isDependencyResolutionFailure("ImportError: cannot import name 'x'"))
	assert.False(t, isDependencyResolutionFailure("SyntaxError: invalid syntax"))
}

func TestAllDependencyResolutionErrorsRequiresEveryLineToMatch(t *testing.T) {
	assert.True(t, allDependencyResolutionErrors([]string{
		"[ERROR] package org.springframework does not exist",
		"[ERROR] package io.jsonwebtoken does not exist",
	}))
	assert.False(t, allDependencyResolutionErrors([]string{
		"[ERROR] package org.springframework does not exist",
		"[ERROR] cannot find symbol",
	}))
	assert.False(t, allDependencyResolutionErrors(nil))
}

func TestEnsureJavaTestDependencyInsertsJUnitWhenAbsent(t *testing.T) {
	dir := t.TempDir()
	pom := "<project>\n    <dependencies>\n" +
		"        <dependency><groupId>org.springframework.boot</groupId><artifactId>spring-boot-starter-web</artifactId></dependency>\n" +
		"    </dependencies>\n</project>\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pom.xml"), []byte(pom), 0o644))

	require.NoError(t, ensureJavaTestDependency(dir))

	updated, err := os.ReadFile(filepath.Join(dir, "pom.xml"))
	require.NoError(t, err)
	assert.Contains(t, string(updated), "junit-jupiter")
}

func TestEnsureJavaTestDependencyNoOpWhenTestDependencyPresent(t *testing.T) {
	dir := t.TempDir()
	pom := "<project>\n    <dependencies>\n" +
		"        <dependency><artifactId>spring-boot-starter-test</artifactId></dependency>\n" +
		"    </dependencies>\n</project>\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pom.xml"), []byte(pom), 0o644))

	require.NoError(t, ensureJavaTestDependency(dir))

	updated, err := os.ReadFile(filepath.Join(dir, "pom.xml"))
	require.NoError(t, err)
	assert.Equal(t, pom, string(updated))
}

func TestTestProjectRunsSmokeTestWhenNoTestsExist(t *testing.T) {
	if toolrunner.LookPath("python3") == "" {
		t.Skip("python3 not on PATH")
	}
	agent := New(&fakeJudge{})
	dir := t.TempDir()
	files := []model.FileArtifact{
		model.NewFileArtifact("main.py", "x = 1 + 1\n"),
	}
	result := agent.TestProject(context.Background(), "add numbers", files, model.LanguagePython, dir, nil)
	assert.True(t, result.Success())
}

func TestTestProjectTreatsMissingThirdPartyModuleAsPass(t *testing.T) {
	if toolrunner.LookPath("python3") == "" {
		t.Skip("python3 not on PATH")
	}
	agent := New(&fakeJudge{})
	dir := t.TempDir()
	files := []model.FileArtifact{
		model.NewFileArtifact("main.py", "import some_totally_unavailable_package\n"),
	}
	result := agent.TestProject(context.Background(), "use a dependency", files, model.LanguagePython, dir, nil)
	assert.True(t, result.Success())
	assert.Contains(t, result.Recommendations[0], "dependencies not installed")
}

func TestTestProjectRunsPytestSuiteWhenTestFilesExist(t *testing.T) {
	if toolrunner.LookPath("python3") == "" || toolrunner.LookPath("pytest") == "" {
		t.Skip("pytest not on PATH")
	}
	agent := New(&fakeJudge{})
	dir := t.TempDir()
	files := []model.FileArtifact{
		model.NewFileArtifact("main.py", "def add(a, b):\n    return a + b\n"),
		model.NewFileArtifact("test_main.py", "from main import add\n\ndef test_add():\n    assert add(1, 2) == 3\n"),
	}
	result := agent.TestProject(context.Background(), "add numbers", files, model.LanguagePython, dir, nil)
	assert.True(t, result.Success())
	assert.Len(t, result.Cases, 1)
}
