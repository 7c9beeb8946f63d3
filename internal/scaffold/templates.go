// Package scaffold implements the Scaffolder: template-driven multi-file
// project structures, substitution of project-name placeholders, and
// materialized file-tree recomputation, grounded on the original
// pipeline's project_scaffold.py and project_templates.py.
package scaffold

import "codeforge/internal/model"

// Node is one entry in a template's directory structure: either a
// directory (Children non-nil) or a file (Content holds its seed body).
type Node struct {
	Children map[string]Node
	Content  string
	IsFile   bool
}

func dir(children map[string]Node) Node { return Node{Children: children} }
func file(content string) Node          { return Node{IsFile: true, Content: content} }

// Template describes one scaffoldable project shape.
type Template struct {
	Key         string
	Name        string
	Description string
	Language    model.Language
	Structure   map[string]Node
	ConfigFiles map[string]string
}

var fastapiTemplate = Template{
	Key: "fastapi", Name: "FastAPI REST API",
	Description: "FastAPI REST API with SQLAlchemy models, Pydantic schemas, and pytest",
	Language:    model.LanguagePython,
	Structure: map[string]Node{
		"src": dir(map[string]Node{
			"main.py":     file("# Main FastAPI app\n"),
			"models.py":   file("# SQLAlchemy models\n"),
			"schemas.py":  file("# Pydantic schemas\n"),
			"database.py": file("# Database config\n"),
			"crud.py":     file("# CRUD operations\n"),
			"config.py":   file("# Configuration\n"),
		}),
		"tests": dir(map[string]Node{
			"test_main.py": file("# Main API tests\n"),
			"conftest.py":  file("# Pytest fixtures\n"),
		}),
	},
	ConfigFiles: map[string]string{
		".gitignore": "__pycache__/\n*.py[cod]\n*$py.class\n*.so\n.venv/\nvenv/\nenv/\n.env\n.env.local\n.DS_Store\n",
		"requirements.txt": "fastapi==0.104.1\nuvicorn==0.24.0\nsqlalchemy==2.0.23\n" +
			"pydantic==2.5.0\npython-dotenv==1.0.0\npytest==7.4.3\npytest-asyncio==0.21.1\nhttpx==0.25.1\n",
		"Dockerfile": "FROM python:3.11-slim\nWORKDIR /app\nCOPY requirements.txt .\n" +
			"RUN pip install --no-cache-dir -r requirements.txt\nCOPY . .\n" +
			"CMD [\"uvicorn\", \"src.main:app\", \"--host\", \"0.0.0.0\", \"--port\", \"8000\"]\n",
		".github/workflows/ci.yml": "name: CI\non: [push, pull_request]\njobs:\n  test:\n" +
			"    runs-on: ubuntu-latest\n    steps:\n      - uses: actions/checkout@v3\n" +
			"      - uses: actions/setup-python@v4\n        with:\n          python-version: \"3.11\"\n" +
			"      - run: pip install -r requirements.txt\n      - run: pytest\n",
		"README.md": "# mypackage\n\n## Setup\n```bash\npython -m venv venv\nsource venv/bin/activate\n" +
			"pip install -r requirements.txt\n```\n\n## Run\n```bash\nuvicorn src.main:app --reload\n```\n\n" +
			"## Test\n```bash\npytest\n```\n",
	},
}

var springBootTemplate = Template{
	Key: "spring_boot", Name: "Spring Boot REST API",
	Description: "Spring Boot REST API with JPA and basic CRUD operations",
	Language:    model.LanguageJava,
	Structure: map[string]Node{
		"src/main/java/com/example": dir(map[string]Node{
			"controller": dir(map[string]Node{}),
			"service":    dir(map[string]Node{}),
			"model":      dir(map[string]Node{}),
			"repository": dir(map[string]Node{}),
			"config":     dir(map[string]Node{}),
		}),
		"src/main/resources": dir(map[string]Node{
			"application.yml": file("# Spring config\n"),
		}),
		"src/test/java/com/example": dir(map[string]Node{
			"controller": dir(map[string]Node{}),
			"service":    dir(map[string]Node{}),
		}),
	},
	ConfigFiles: map[string]string{
		"pom.xml": springBootPomTemplate,
		".gitignore": "target/\n*.class\n*.jar\n.idea/\n*.iml\n",
		"README.md": "# mypackage\n\nSpring Boot REST API generated by the pipeline.\n\n" +
			"## Build\n```bash\nmvn clean package\n```\n\n## Run\n```bash\nmvn spring-boot:run\n```\n",
	},
}

const springBootPomTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<project xmlns="http://maven.apache.org/POM/4.0.0"
         xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"
         xsi:schemaLocation="http://maven.apache.org/POM/4.0.0
         http://maven.apache.org/xsd/maven-4.0.0.xsd">
    <modelVersion>4.0.0</modelVersion>
    <parent>
        <groupId>org.springframework.boot</groupId>
        <artifactId>spring-boot-starter-parent</artifactId>
        <version>3.1.5</version>
        <relativePath/>
    </parent>
    <groupId>com.example</groupId>
    <artifactId>mypackage</artifactId>
    <version>0.0.1-SNAPSHOT</version>
    <properties>
        <java.version>17</java.version>
    </properties>
    <dependencies>
        <dependency>
            <groupId>org.springframework.boot</groupId>
            <artifactId>spring-boot-starter-web</artifactId>
        </dependency>
        <dependency>
            <groupId>org.springframework.boot</groupId>
            <artifactId>spring-boot-starter-data-jpa</artifactId>
        </dependency>
    </dependencies>
    <build>
        <plugins>
            <plugin>
                <groupId>org.springframework.boot</groupId>
                <artifactId>spring-boot-maven-plugin</artifactId>
            </plugin>
        </plugins>
    </build>
</project>
`

var pythonPackageTemplate = Template{
	Key: "python_package", Name: "Python Package",
	Description: "Generic Python package with setup.py, pytest, and documentation",
	Language:    model.LanguagePython,
	Structure: map[string]Node{
		"src": dir(map[string]Node{
			"main.py":     file("# Main module\n"),
			"utils.py":    file("# Utility functions\n"),
			"__init__.py": file("# Package init\n"),
		}),
		"tests": dir(map[string]Node{
			"test_main.py": file("# Main tests\n"),
			"conftest.py":  file("# Test config\n"),
			"__init__.py":  file(""),
		}),
		"docs": dir(map[string]Node{
			"index.md": file("# Documentation\n"),
		}),
	},
	ConfigFiles: map[string]string{
		"setup.py": "from setuptools import setup, find_packages\n\nsetup(\n" +
			"    name=\"mypackage\",\n    version=\"0.1.0\",\n    description=\"A Python package\",\n" +
			"    packages=find_packages(where=\"src\"),\n    package_dir={\"\": \"src\"},\n" +
			"    python_requires=\">=3.9\",\n    install_requires=[],\n" +
			"    extras_require={\"dev\": [\"pytest>=7.0\", \"black\", \"flake8\"]},\n)\n",
		"pyproject.toml": "[build-system]\nrequires = [\"setuptools>=65\", \"wheel\"]\n" +
			"build-backend = \"setuptools.build_meta\"\n\n[project]\nname = \"mypackage\"\n" +
			"version = \"0.1.0\"\ndescription = \"A Python package\"\nrequires-python = \">=3.9\"\n" +
			"dependencies = []\n\n[project.optional-dependencies]\ndev = [\"pytest>=7.0\", \"black\", \"flake8\"]\n",
		"requirements.txt": "pytest>=7.0\nblack>=23.0\nflake8>=6.0\n",
		".gitignore":        "__pycache__/\n*.py[cod]\n*.egg-info/\ndist/\nbuild/\n.venv/\nvenv/\n.DS_Store\n",
		"README.md": "# mypackage\n\n## Installation\n```bash\npip install -e .\n```\n\n" +
			"## Development\n```bash\npip install -e \".[dev]\"\npytest\n```\n",
	},
}

// templates is the closed registry of scaffoldable templates.
var templates = map[string]Template{
	fastapiTemplate.Key:      fastapiTemplate,
	springBootTemplate.Key:   springBootTemplate,
	pythonPackageTemplate.Key: pythonPackageTemplate,
}

// GetTemplate looks up a template by key.
func GetTemplate(name string) (Template, bool) {
	t, ok := templates[name]
	return t, ok
}

// ListTemplates returns every registered template in a fixed order:
// fastapi, spring_boot, python_package.
func ListTemplates() []Template {
	keys := []string{"fastapi", "spring_boot", "python_package"}
	out := make([]Template, 0, len(keys))
	for _, k := range keys {
		out = append(out, templates[k])
	}
	return out
}

// TemplatesForLanguage returns the keys of templates targeting language.
func TemplatesForLanguage(language model.Language) []string {
	var out []string
	for _, k := range []string{"fastapi", "spring_boot", "python_package"} {
		if templates[k].Language == language {
			out = append(out, k)
		}
	}
	return out
}
