package buildagent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"codeforge/internal/model"
	"codeforge/internal/toolrunner"
)

func TestFilterDependenciesSecondPassDropsStdlibAndInternal(t *testing.T) {
	deps := []model.Dependency{
		{Name: "requests"}, {Name: "textwrap"}, {Name: "test"}, {Name: "# comment"},
		{Group: "com.google.code.gson", Artifact: "gson", Version: "2.10.1"},
	}
	filtered := filterDependenciesSecondPass(deps)

	names := make([]string, 0, len(filtered))
	for _, d := range filtered {
		names = append(names, d.String())
	}
	assert.Contains(t, names, "requests")
	assert.Contains(t, names, "com.google.code.gson:gson:2.10.1")
	assert.NotContains(t, names, "textwrap")
	assert.NotContains(t, names, "test")
}

func TestPythonBuildRejectsSyntaxError(t *testing.T) {
	if toolrunner.LookPath("python3") == "" {
		t.Skip("python3 not on PATH")
	}
	b := PythonBackend{}
	result := b.Build(context.Background(), "def broken(:\n    pass\n", nil)
	assert.Equal(t, model.StageFailed, result.Status)
	assert.Equal(t, "Fix syntax errors before proceeding", result.BuildInstructions)
}

func TestPythonBuildSucceedsWithNoDependencies(t *testing.T) {
	if toolrunner.LookPath("python3") == "" {
		t.Skip("python3 not on PATH")
	}
	b := PythonBackend{}
	result := b.Build(context.Background(), "print('hello world')\n", nil)
	assert.True(t, result.Success())
}

func TestJavaBuildRejectsMissingPublicClass(t *testing.T) {
	b := JavaBackend{}
	result := b.Build(context.Background(), "class NotPublic {}\n", nil)
	assert.Equal(t, model.StageFailed, result.Status)
	assert.Contains(t, result.Errors[0], "public class")
}

func TestEnrichSpringBootAddsSecurityAndJWT(t *testing.T) {
	deps := []model.Dependency{{Group: "org.springframework.boot", Artifact: "spring-boot-starter", Version: "3.1.5"}}
	enriched := enrichSpringBoot(deps, "Jwts.builder().setSubject(\"x\"); // Security check", false)

	names := make([]string, 0, len(enriched))
	for _, d := range enriched {
		names = append(names, d.String())
	}
	assert.Contains(t, names, "org.springframework.boot:spring-boot-starter-security:3.1.5")
	assert.Contains(t, names, "io.jsonwebtoken:jjwt-api:0.11.5")
}

func TestGeneratePomXMLIncludesSpringParentWhenPresent(t *testing.T) {
	deps := []model.Dependency{{Group: "org.springframework.boot", Artifact: "spring-boot-starter-web", Version: "3.1.5"}}
	pom := generatePomXML("Main", deps)
	assert.Contains(t, pom, "spring-boot-starter-parent")
	assert.Contains(t, pom, "<mainClass>Main</mainClass>")
}
