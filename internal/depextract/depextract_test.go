package depextract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"codeforge/internal/model"
)

func TestExtractPythonFiltersStdlibAndProjectInternal(t *testing.T) {
	code := "import os\nimport requests\nfrom src import helper\nfrom sklearn import svm\n"
	deps := ExtractPython(code)
	names := depNames(deps)
	assert.Contains(t, names, "requests")
	assert.Contains(t, names, "scikit-learn")
	assert.NotContains(t, names, "os")
	assert.NotContains(t, names, "src")
}

func TestExtractPythonHonorsRequiresDirective(t *testing.T) {
	code := "# REQUIRES: flask, gunicorn\nimport flask\n"
	deps := ExtractPython(code)
	assert.Contains(t, depNames(deps), "flask")
	assert.Contains(t, depNames(deps), "gunicorn")
}

func TestExtractPythonDeduplicatesPreservingOrder(t *testing.T) {
	code := "import numpy\nimport numpy\nimport pandas\n"
	deps := ExtractPython(code)
	assert.Equal(t, []string{"numpy", "pandas"}, depNames(deps))
}

func TestExtractJavaSkipsJDKNamespaces(t *testing.T) {
	code := "import java.util.List;\nimport javax.sql.DataSource;\nimport com.google.gson.Gson;\n"
	deps := ExtractJava(code, false)
	assert.Len(t, deps, 1)
	assert.Equal(t, "com.google.code.gson:gson:2.10.1", deps[0].String())
}

func TestExtractJavaEnrichesSpringStarters(t *testing.T) {
	code := "import org.springframework.web.bind.annotation.RestController;\n"
	deps := ExtractJava(code, false)
	names := depNames(deps)
	assert.Contains(t, names, "org.springframework.boot:spring-boot-starter-web:3.1.5")
	assert.Contains(t, names, "org.springframework.boot:spring-boot-starter-data-jpa:3.1.5")
	assert.NotContains(t, names, "org.springframework.boot:spring-boot-starter-security:3.1.5")
}

func TestExtractJavaAddsSecurityAndJWTWhenMarkersPresent(t *testing.T) {
	code := "import org.springframework.security.core.Authentication;\nJwts.builder().setSubject(\"x\");\n"
	deps := ExtractJava(code, false)
	names := depNames(deps)
	assert.Contains(t, names, "org.springframework.boot:spring-boot-starter-security:3.1.5")
	assert.Contains(t, names, "io.jsonwebtoken:jjwt-api:0.11.5")
}

func TestExtractJavaAddsTestStarterOnlyWhenTestFilesExist(t *testing.T) {
	code := "import org.springframework.stereotype.Service;\n"
	withTests := depNames(ExtractJava(code, true))
	withoutTests := depNames(ExtractJava(code, false))
	assert.Contains(t, withTests, "org.springframework.boot:spring-boot-starter-test:3.1.5")
	assert.NotContains(t, withoutTests, "org.springframework.boot:spring-boot-starter-test:3.1.5")
}

func depNames(deps []model.Dependency) []string {
	names := make([]string, len(deps))
	for i, d := range deps {
		names[i] = d.String()
	}
	return names
}
