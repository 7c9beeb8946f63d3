// Package depextract derives external dependency descriptors from generated
// source text, grounded on the original pipeline's per-ecosystem import
// parsing, stdlib/project-internal filtering, and Spring Boot enrichment.
package depextract

import (
	"regexp"
	"strings"

	"codeforge/internal/model"
)

var (
	pyImport     = regexp.MustCompile(`(?m)^import\s+(\w+)`)
	pyFromImport = regexp.MustCompile(`(?m)^from\s+(\w+)`)
	pyRequires   = regexp.MustCompile(`#\s*REQUIRES:\s*(.+)`)

	javaImport    = regexp.MustCompile(`(?m)^import\s+([\w.]+);`)
	javaRequires  = regexp.MustCompile(`//\s*REQUIRES:\s*(.+)`)
	securityToken = regexp.MustCompile(`(?i)security`)
	jwtMarker     = regexp.MustCompile(`(?i)\bjwt\b|jsonwebtoken|Jwts\.`)
)

// pythonStdlib is the closed set of standard-library top-level module names
// the extractor never treats as an external dependency.
var pythonStdlib = map[string]bool{
	"os": true, "sys": true, "time": true, "datetime": true, "json": true,
	"csv": true, "re": true, "collections": true, "itertools": true,
	"functools": true, "math": true, "random": true, "logging": true,
	"typing": true, "unittest": true, "pathlib": true, "io": true,
	"subprocess": true, "tempfile": true, "shutil": true, "copy": true,
	"pickle": true, "threading": true, "multiprocessing": true,
	"argparse": true, "configparser": true, "email": true, "urllib": true,
	"http": true, "socket": true, "ssl": true, "asyncio": true,
	"hashlib": true, "hmac": true, "secrets": true, "uuid": true,
	"enum": true, "dataclasses": true, "abc": true, "sqlite3": true,
	"dbm": true, "shelve": true,
}

// pythonProjectInternal is the closed set of conventional in-project package
// names that are never external dependencies regardless of import shape.
var pythonProjectInternal = map[string]bool{
	"src": true, "app": true, "tests": true, "config": true,
	"utils": true, "models": true, "schemas": true, "database": true,
	"api": true, "core": true, "services": true, "controllers": true,
	"views": true, "main": true, "lib": true, "common": true,
}

// pythonModuleToPackage maps an import's top-level symbol to its installable
// package name where the two differ.
var pythonModuleToPackage = map[string]string{
	"bs4": "beautifulsoup4", "PIL": "Pillow", "Pillow": "Pillow",
	"sklearn": "scikit-learn", "cv2": "opencv-python", "yaml": "PyYAML",
	"lxml": "lxml", "np": "numpy", "pd": "pandas", "pandas": "pandas",
	"numpy": "numpy", "requests": "requests", "matplotlib": "matplotlib",
	"bs": "beautifulsoup4", "scipy": "scipy", "sympy": "sympy",
	"seaborn": "seaborn", "scikit": "scikit-learn",
}

// ExtractPython derives the ordered, de-duplicated dependency list for
// Python source text.
func ExtractPython(code string) []model.Dependency {
	var names []string

	for _, m := range pyImport.FindAllStringSubmatch(code, -1) {
		names = append(names, m[1])
	}
	for _, m := range pyFromImport.FindAllStringSubmatch(code, -1) {
		names = append(names, m[1])
	}
	if m := pyRequires.FindStringSubmatch(code); m != nil {
		for _, d := range strings.Split(m[1], ",") {
			d = strings.TrimSpace(d)
			if d != "" && !strings.HasPrefix(d, "#") {
				names = append(names, d)
			}
		}
	}

	seen := map[string]bool{}
	var deps []model.Dependency
	for _, name := range names {
		name = strings.TrimSpace(name)
		lower := strings.ToLower(name)
		if name == "" || lower == "none" || strings.HasPrefix(name, "#") {
			continue
		}
		if pythonStdlib[lower] || pythonProjectInternal[lower] {
			continue
		}

		if strings.ContainsAny(name, "=<>~") {
			if !seen[name] {
				seen[name] = true
				deps = append(deps, model.Dependency{Name: name})
			}
			continue
		}

		top := strings.SplitN(name, ".", 2)[0]
		pkg := top
		if mapped, ok := pythonModuleToPackage[top]; ok {
			pkg = mapped
		}
		if !seen[pkg] {
			seen[pkg] = true
			deps = append(deps, model.Dependency{Name: pkg})
		}
	}
	return deps
}

// javaImportToMaven maps a known import prefix to its Maven coordinate.
var javaImportToMaven = []struct {
	prefix string
	dep    model.Dependency
}{
	{"com.google.gson", model.Dependency{Group: "com.google.code.gson", Artifact: "gson", Version: "2.10.1"}},
	{"org.apache.http", model.Dependency{Group: "org.apache.httpcomponents.client5", Artifact: "httpclient5", Version: "5.3"}},
	{"org.json", model.Dependency{Group: "org.json", Artifact: "json", Version: "20231013"}},
	{"com.fasterxml.jackson", model.Dependency{Group: "com.fasterxml.jackson.core", Artifact: "jackson-databind", Version: "2.16.0"}},
}

// springBootStarters are added unconditionally once any org.springframework
// dependency is detected (see SPEC_FULL.md §C.2).
var springBootStarters = []model.Dependency{
	{Group: "org.springframework.boot", Artifact: "spring-boot-starter-web", Version: "3.1.5"},
	{Group: "org.springframework.boot", Artifact: "spring-boot-starter-data-jpa", Version: "3.1.5"},
	{Group: "org.springframework.boot", Artifact: "spring-boot-starter-validation", Version: "3.1.5"},
}

var springSecurityStarter = model.Dependency{Group: "org.springframework.boot", Artifact: "spring-boot-starter-security", Version: "3.1.5"}

var jwtDeps = []model.Dependency{
	{Group: "io.jsonwebtoken", Artifact: "jjwt-api", Version: "0.11.5"},
	{Group: "io.jsonwebtoken", Artifact: "jjwt-impl", Version: "0.11.5"},
	{Group: "io.jsonwebtoken", Artifact: "jjwt-jackson", Version: "0.11.5"},
}

var springTestStarter = model.Dependency{Group: "org.springframework.boot", Artifact: "spring-boot-starter-test", Version: "3.1.5"}

// ExtractJava derives the de-duplicated Maven dependency list across all
// source bodies, enriching with Spring Boot starters when Spring is present.
// hasTestFiles and allSourceConcat let the caller fold in file-set-level
// signals (security/JWT markers, presence of *Test files) that the original
// pipeline checks across the whole project, not per file.
func ExtractJava(allSourceConcat string, hasTestFiles bool) []model.Dependency {
	var deps []model.Dependency
	seen := map[string]bool{}

	add := func(d model.Dependency) {
		key := d.String()
		if !seen[key] {
			seen[key] = true
			deps = append(deps, d)
		}
	}

	if m := javaRequires.FindStringSubmatch(allSourceConcat); m != nil {
		for _, part := range strings.Split(m[1], ",") {
			triple := strings.Split(strings.TrimSpace(part), ":")
			if len(triple) == 3 {
				add(model.Dependency{Group: triple[0], Artifact: triple[1], Version: triple[2]})
			}
		}
	}

	hasSpring := false
	for _, m := range javaImport.FindAllStringSubmatch(allSourceConcat, -1) {
		imp := m[1]
		if strings.HasPrefix(imp, "java.") || imp == "javax.sql" || strings.HasPrefix(imp, "javax.naming") {
			continue
		}
		if strings.HasPrefix(imp, "org.springframework") {
			hasSpring = true
			continue
		}
		for _, mapping := range javaImportToMaven {
			if strings.HasPrefix(imp, mapping.prefix) {
				add(mapping.dep)
				break
			}
		}
	}

	if hasSpring {
		for _, starter := range springBootStarters {
			add(starter)
		}
		if securityToken.MatchString(allSourceConcat) {
			add(springSecurityStarter)
		}
		if jwtMarker.MatchString(allSourceConcat) {
			for _, d := range jwtDeps {
				add(d)
			}
		}
		if hasTestFiles {
			add(springTestStarter)
		}
	}

	return deps
}
