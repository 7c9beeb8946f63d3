package buildagent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"codeforge/internal/config"
	"codeforge/internal/errorparser"
	"codeforge/internal/model"
	"codeforge/internal/toolrunner"
)

var (
	javaPackageDecl = regexp.MustCompile(`package\s+([\w.]+);`)
	javaPublicClass = regexp.MustCompile(`(?m)public\s+class\s+(\w+)`)
	javaMainMethod  = regexp.MustCompile(`public\s+static\s+void\s+main`)
)

// JavaBackend builds single-file and multi-file Java submissions by
// materializing a throwaway Maven project and running "mvn clean compile",
// matching build_agent.py's _build_java / _build_java_project.
type JavaBackend struct{}

// Build compiles a single Java source body under a generated Maven project.
func (b JavaBackend) Build(ctx context.Context, code string, deps []model.Dependency) model.BuildResult {
	classMatch := javaPublicClass.FindStringSubmatch(code)
	if classMatch == nil {
		return model.BuildResult{
			Status: model.StageFailed,
			Errors: []string{
				"Could not find public class declaration",
				"The generated code may be incomplete or invalid Java",
			},
			SuggestedFixes: []string{
				"Ensure code has 'public class ClassName'",
				"Check that code is valid Java (not pseudocode or incomplete)",
			},
		}
	}
	className := classMatch[1]
	packageName := ""
	if m := javaPackageDecl.FindStringSubmatch(code); m != nil {
		packageName = m[1]
	}

	allDeps := enrichSpringBoot(deps, code, false)

	tmpDir, err := os.MkdirTemp("", "codeforge-mvn-")
	if err != nil {
		return buildErrf("failed to create temp build directory: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	srcDir := tmpDir
	if packageName != "" {
		srcDir = filepath.Join(tmpDir, "src", "main", "java", filepath.FromSlash(strings.ReplaceAll(packageName, ".", "/")))
	} else {
		srcDir = filepath.Join(tmpDir, "src", "main", "java")
	}
	if err := os.MkdirAll(srcDir, 0o755); err != nil {
		return buildErrf("failed to create source directory: %v", err)
	}
	if err := os.WriteFile(filepath.Join(srcDir, className+".java"), []byte(code), 0o644); err != nil {
		return buildErrf("failed to write source file: %v", err)
	}

	pom := generatePomXML(className, allDeps)
	if err := os.WriteFile(filepath.Join(tmpDir, "pom.xml"), []byte(pom), 0o644); err != nil {
		return buildErrf("failed to write pom.xml: %v", err)
	}

	return runMavenCompile(ctx, tmpDir, allDeps)
}

// BuildProject compiles a multi-file Java project, locating the class that
// declares a main() method as the executable entry point.
func (b JavaBackend) BuildProject(ctx context.Context, files []model.FileArtifact, deps []model.Dependency) model.BuildResult {
	var mainClass string
	var hasTests bool
	joined := strings.Builder{}

	tmpDir, err := os.MkdirTemp("", "codeforge-mvn-")
	if err != nil {
		return buildErrf("failed to create temp build directory: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	for _, f := range files {
		if !strings.HasSuffix(f.Filename, ".java") {
			continue
		}
		joined.WriteString(f.Body)
		joined.WriteString("\n")
		if strings.Contains(f.Filename, "Test") {
			hasTests = true
		}
		if mainClass == "" && javaMainMethod.MatchString(f.Body) {
			if m := javaPublicClass.FindStringSubmatch(f.Body); m != nil {
				mainClass = m[1]
			}
		}

		packageName := ""
		if m := javaPackageDecl.FindStringSubmatch(f.Body); m != nil {
			packageName = m[1]
		}
		srcDir := tmpDir
		if packageName != "" {
			srcDir = filepath.Join(tmpDir, "src", "main", "java", filepath.FromSlash(strings.ReplaceAll(packageName, ".", "/")))
		} else {
			srcDir = filepath.Join(tmpDir, "src", "main", "java")
		}
		if err := os.MkdirAll(srcDir, 0o755); err != nil {
			return buildErrf("failed to create source directory: %v", err)
		}
		name := filepath.Base(f.Filename)
		if err := os.WriteFile(filepath.Join(srcDir, name), []byte(f.Body), 0o644); err != nil {
			return buildErrf("failed to write source file: %v", err)
		}
	}

	if mainClass == "" {
		mainClass = "Main"
	}

	allDeps := enrichSpringBoot(deps, joined.String(), hasTests)
	pom := generatePomXML(mainClass, allDeps)
	if err := os.WriteFile(filepath.Join(tmpDir, "pom.xml"), []byte(pom), 0o644); err != nil {
		return buildErrf("failed to write pom.xml: %v", err)
	}

	return runMavenCompile(ctx, tmpDir, allDeps)
}

// enrichSpringBoot folds in the Spring Boot starter set the way
// depextract.ExtractJava already does, re-applied here because this
// backend builds straight from caller-supplied dependencies rather than
// re-deriving them from source — mirroring build_agent.py's own
// independent "has_spring" detection inside _build_java.
func enrichSpringBoot(deps []model.Dependency, code string, hasTests bool) []model.Dependency {
	seen := map[string]bool{}
	var out []model.Dependency
	add := func(d model.Dependency) {
		key := d.String()
		if !seen[key] {
			seen[key] = true
			out = append(out, d)
		}
	}
	for _, d := range deps {
		add(d)
	}

	hasSpring := false
	for _, d := range out {
		if strings.HasPrefix(d.Group, "org.springframework") {
			hasSpring = true
			break
		}
	}
	if !hasSpring {
		return out
	}

	for _, starter := range []model.Dependency{
		{Group: "org.springframework.boot", Artifact: "spring-boot-starter-web", Version: "3.1.5"},
		{Group: "org.springframework.boot", Artifact: "spring-boot-starter-data-jpa", Version: "3.1.5"},
		{Group: "org.springframework.boot", Artifact: "spring-boot-starter-validation", Version: "3.1.5"},
	} {
		add(starter)
	}
	lower := strings.ToLower(code)
	if strings.Contains(code, "Security") || strings.Contains(lower, "security") {
		add(model.Dependency{Group: "org.springframework.boot", Artifact: "spring-boot-starter-security", Version: "3.1.5"})
	}
	if strings.Contains(lower, "jwt") || strings.Contains(code, "Jwt") || strings.Contains(lower, "jsonwebtoken") {
		for _, d := range []model.Dependency{
			{Group: "io.jsonwebtoken", Artifact: "jjwt-api", Version: "0.11.5"},
			{Group: "io.jsonwebtoken", Artifact: "jjwt-impl", Version: "0.11.5"},
			{Group: "io.jsonwebtoken", Artifact: "jjwt-jackson", Version: "0.11.5"},
		} {
			add(d)
		}
	}
	if hasTests {
		add(model.Dependency{Group: "org.springframework.boot", Artifact: "spring-boot-starter-test", Version: "3.1.5"})
	}
	return out
}

// generatePomXML renders a minimal Maven POM for the generated project,
// adding the Spring Boot parent and plugin only when a Spring dependency
// is present.
func generatePomXML(mainClass string, deps []model.Dependency) string {
	springPresent := false
	for _, d := range deps {
		if strings.HasPrefix(d.Group, "org.springframework") {
			springPresent = true
			break
		}
	}

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<project xmlns="http://maven.apache.org/POM/4.0.0"
         xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"
         xsi:schemaLocation="http://maven.apache.org/POM/4.0.0
         http://maven.apache.org/xsd/maven-4.0.0.xsd">
    <modelVersion>4.0.0</modelVersion>

    <groupId>com.codeforge</groupId>
    <artifactId>generated-project</artifactId>
    <version>1.0-SNAPSHOT</version>
`)
	if springPresent {
		b.WriteString(`
    <parent>
        <groupId>org.springframework.boot</groupId>
        <artifactId>spring-boot-starter-parent</artifactId>
        <version>3.1.5</version>
        <relativePath/>
    </parent>
`)
	}
	b.WriteString(`
    <properties>
        <maven.compiler.source>17</maven.compiler.source>
        <maven.compiler.target>17</maven.compiler.target>
        <project.build.sourceEncoding>UTF-8</project.build.sourceEncoding>
    </properties>

    <dependencies>
`)
	for _, d := range deps {
		fmt.Fprintf(&b, "        <dependency>\n            <groupId>%s</groupId>\n            <artifactId>%s</artifactId>\n            <version>%s</version>\n        </dependency>\n", d.Group, d.Artifact, d.Version)
	}
	b.WriteString("    </dependencies>\n\n    <build>\n        <plugins>\n")
	if springPresent {
		b.WriteString("            <plugin>\n                <groupId>org.springframework.boot</groupId>\n                <artifactId>spring-boot-maven-plugin</artifactId>\n            </plugin>\n")
	}
	fmt.Fprintf(&b, `            <plugin>
                <groupId>org.apache.maven.plugins</groupId>
                <artifactId>maven-compiler-plugin</artifactId>
                <version>3.11.0</version>
            </plugin>
            <plugin>
                <groupId>org.codehaus.mojo</groupId>
                <artifactId>exec-maven-plugin</artifactId>
                <version>3.1.0</version>
                <configuration>
                    <mainClass>%s</mainClass>
                </configuration>
            </plugin>
        </plugins>
    </build>
</project>
`, mainClass)
	return b.String()
}

// findMvnwWrapper stats for a literal mvnw/mvnw.cmd file under dir, matching
// build_agent.py's explicit filesystem probing for a Maven wrapper script
// rather than a PATH lookup (wrapper scripts are checked out alongside a
// project, never installed onto PATH).
func findMvnwWrapper(dir string) string {
	for _, name := range []string{"mvnw", "mvnw.cmd"} {
		candidate := filepath.Join(dir, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

// runMavenCompile locates mvn (PATH, then an mvnw wrapper checked out at the
// invoking repo's root, then one in the throwaway build directory itself)
// and runs "clean compile", matching build_agent.py's three-tier discovery
// order: a wrapper script is checked into a project's source tree, not
// installed onto PATH, on any platform.
func runMavenCompile(ctx context.Context, projectDir string, deps []model.Dependency) model.BuildResult {
	mvn := toolrunner.LookPath("mvn")
	if mvn == "" {
		if repoRoot, err := os.Getwd(); err == nil {
			mvn = findMvnwWrapper(repoRoot)
		}
	}
	if mvn == "" {
		mvn = findMvnwWrapper(projectDir)
	}
	if mvn == "" {
		return model.BuildResult{
			Status: model.StageFailed,
			Errors: []string{"Maven (mvn) not found in system PATH"},
			SuggestedFixes: []string{
				"Install Maven: sudo apt install maven (Linux) or brew install maven (macOS)",
				"Or add a Maven wrapper (mvnw) to the project",
			},
		}
	}

	res, err := toolrunner.Run(ctx, []string{mvn, "clean", "compile"}, toolrunner.Opts{
		WorkDir: projectDir,
		Timeout: config.DefaultJVMCompileTimeout,
	})
	if err != nil {
		return buildErrf("failed to run maven: %v", err)
	}
	if res.TimedOut {
		return model.BuildResult{
			Status:         model.StageFailed,
			Errors:         []string{"Maven build timed out"},
			SuggestedFixes: []string{"Simplify dependencies or increase timeout"},
		}
	}
	if !res.Success() {
		info := errorparser.Parse(res.CombinedOutput(), model.LanguageJava, "")
		errs := append([]string{}, info.SpecificIssues...)
		for _, line := range strings.Split(res.Stdout, "\n") {
			if strings.Contains(line, "[ERROR]") {
				errs = append(errs, line)
				if len(errs) >= config.MaxErrorLinesFromBuild+len(info.SpecificIssues) {
					break
				}
			}
		}
		return model.BuildResult{
			Status:            model.StageFailed,
			Dependencies:      deps,
			Errors:            errs,
			SuggestedFixes:    info.SuggestedFixes,
			BuildInstructions: "Fix compilation errors",
		}
	}

	return model.BuildResult{
		Status:            model.StageSuccess,
		Dependencies:      deps,
		BuildInstructions: "Java project compiled successfully",
	}
}

func buildErrf(format string, args ...any) model.BuildResult {
	return model.BuildResult{
		Status: model.StageFailed,
		Errors: []string{fmt.Sprintf(format, args...)},
	}
}
