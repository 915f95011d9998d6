package impact

import (
	"path"
	"strings"
)

// testPathSubstrings are the fixed, language-agnostic markers of a test file
// (spec: "a path is a test file iff it matches any of the fixed substrings").
var testPathSubstrings = []string{
	"/test/", "/tests/", "/__tests__/", "/spec/", "test_", "_test.", ".test.", ".spec.",
}

// testPathSuffixes supplements the substring list with per-language file
// endings that don't fit the generic pattern (Java's Test.java/Tests.java,
// C#'s .Test.cs/.Tests.cs).
var testPathSuffixes = []string{
	"test.java", "tests.java", ".test.cs", ".tests.cs",
}

// isTestFile reports whether path looks like a test file by the fixed,
// cross-language substring/suffix rules, not by parsing the file's contents.
func isTestFile(filePath string) bool {
	lower := strings.ToLower(filePath)
	for _, sub := range testPathSubstrings {
		if strings.Contains(lower, sub) {
			return true
		}
	}
	for _, suffix := range testPathSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// isTestSymbol applies the per-language classification rules from spec
// §4.7.2 on top of the generic isTestFile check: Go requires both a
// "_test.go" file and a "Test" name prefix; JS/TS also recognizes the
// framework hook names even outside a *.test.*/*.spec.* file; everything
// else falls back to the path-based rule.
func isTestSymbol(language, name, filePath string) bool {
	lower := strings.ToLower(filePath)
	switch language {
	case "go":
		return strings.HasSuffix(lower, "_test.go") && strings.HasPrefix(name, "Test")
	case "python":
		return strings.HasPrefix(name, "test_") || isTestFile(filePath)
	case "javascript", "typescript":
		switch name {
		case "it", "describe", "beforeEach", "beforeAll", "afterEach", "afterAll":
			return true
		}
		return isTestFile(filePath)
	case "java":
		return strings.HasPrefix(strings.ToLower(name), "test") || isTestFile(filePath)
	case "csharp":
		return strings.Contains(filePath, ".Tests.") || strings.Contains(filePath, ".Test.") || isTestFile(filePath)
	case "rust":
		return isTestFile(filePath)
	default:
		return isTestFile(filePath)
	}
}

// classifyTestType buckets a test symbol into e2e, integration, or unit by
// its path and name.
func classifyTestType(filePath, name string) string {
	lower := strings.ToLower(filePath)
	if strings.Contains(lower, "/e2e/") {
		return "e2e"
	}
	if strings.Contains(lower, "/integration/") || strings.Contains(strings.ToLower(name), "integration") {
		return "integration"
	}
	return "unit"
}

// namingCandidates builds the fixed set of candidate test names the naming
// strategy looks up for a seed symbol named name.
func namingCandidates(name string) []string {
	return []string{
		"test_" + name,
		"Test" + name,
		name + "Test",
		name + "_test",
		name + "Spec",
	}
}

// extractTestTargetName strips the fixed test-name affixes off a test
// symbol's name to recover the name of the symbol it most likely targets,
// for the naming strategy's reverse scan.
func extractTestTargetName(testName string) string {
	name := testName
	switch {
	case strings.HasPrefix(name, "test_"):
		name = strings.TrimPrefix(name, "test_")
	case strings.HasPrefix(name, "Test"):
		name = strings.TrimPrefix(name, "Test")
	case strings.HasSuffix(name, "_test"):
		name = strings.TrimSuffix(name, "_test")
	case strings.HasSuffix(name, "Test"):
		name = strings.TrimSuffix(name, "Test")
	case strings.HasSuffix(name, "Spec"):
		name = strings.TrimSuffix(name, "Spec")
	}
	return name
}

// inferLanguage maps a file extension to the language tag used across the
// graph, for the naming strategy's cross-language rejection and the
// proximity strategy's same-language requirement.
func inferLanguage(filePath string) string {
	switch strings.ToLower(path.Ext(filePath)) {
	case ".py":
		return "python"
	case ".cs":
		return "csharp"
	case ".ts", ".tsx":
		return "typescript"
	case ".js", ".jsx":
		return "javascript"
	case ".rs":
		return "rust"
	case ".go":
		return "go"
	case ".java":
		return "java"
	case ".proto":
		return "proto"
	case ".sql":
		return "sql"
	case ".md":
		return "markdown"
	default:
		return ""
	}
}

// pathComponentStopwords are segments the proximity strategy ignores when
// comparing directory structure, since they're present in almost every file
// regardless of what it tests.
var pathComponentStopwords = map[string]bool{
	"src": true, "lib": true, "tests": true, "test": true, "": true,
}

// extractPathComponents reduces a file path to the directory/name
// components that carry real information for the proximity strategy: it
// strips the stopword segments, drops the extension, and trims a
// "test_"/"_test" affix off the final component.
func extractPathComponents(filePath string) map[string]bool {
	components := map[string]bool{}
	for _, part := range strings.Split(filePath, "/") {
		if pathComponentStopwords[part] {
			continue
		}
		components[part] = true
	}

	ext := path.Ext(filePath)
	base := strings.TrimSuffix(path.Base(filePath), ext)
	base = strings.TrimPrefix(base, "test_")
	base = strings.TrimSuffix(base, "_test")
	delete(components, path.Base(filePath))
	if base != "" {
		components[base] = true
	}

	return components
}

// sharedComponentCount counts how many components two sets have in common.
func sharedComponentCount(a, b map[string]bool) int {
	count := 0
	for k := range a {
		if b[k] {
			count++
		}
	}
	return count
}
