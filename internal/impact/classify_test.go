package impact

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTestFile(t *testing.T) {
	assert.True(t, isTestFile("internal/greeter/greeter_test.go"))
	assert.True(t, isTestFile("tests/test_greeter.py"))
	assert.True(t, isTestFile("src/__tests__/greeter.js"))
	assert.True(t, isTestFile("src/greeter.spec.ts"))
	assert.False(t, isTestFile("internal/greeter/greeter.go"))
}

func TestIsTestSymbol_Go(t *testing.T) {
	assert.True(t, isTestSymbol("go", "TestGreet", "greeter/greeter_test.go"))
	assert.False(t, isTestSymbol("go", "Greet", "greeter/greeter_test.go"))
	assert.False(t, isTestSymbol("go", "TestGreet", "greeter/greeter.go"))
}

func TestIsTestSymbol_Python(t *testing.T) {
	assert.True(t, isTestSymbol("python", "test_greet", "greeter/greeter.py"))
	assert.True(t, isTestSymbol("python", "anything", "tests/greeter.py"))
}

func TestClassifyTestType(t *testing.T) {
	assert.Equal(t, "e2e", classifyTestType("tests/e2e/greeter_test.go", "TestGreet"))
	assert.Equal(t, "integration", classifyTestType("tests/integration/greeter_test.go", "TestGreet"))
	assert.Equal(t, "unit", classifyTestType("tests/greeter_test.go", "TestGreet"))
}

func TestNamingCandidates(t *testing.T) {
	candidates := namingCandidates("Greet")
	assert.Contains(t, candidates, "TestGreet")
	assert.Contains(t, candidates, "test_Greet")
	assert.Contains(t, candidates, "GreetTest")
}

func TestExtractTestTargetName(t *testing.T) {
	assert.Equal(t, "greet", extractTestTargetName("test_greet"))
	assert.Equal(t, "Greet", extractTestTargetName("TestGreet"))
	assert.Equal(t, "Greet", extractTestTargetName("GreetTest"))
}

func TestInferLanguage(t *testing.T) {
	assert.Equal(t, "python", inferLanguage("a/b/c.py"))
	assert.Equal(t, "go", inferLanguage("a/b/c.go"))
	assert.Equal(t, "", inferLanguage("a/b/c.unknown"))
}

func TestExtractPathComponents_DropsStopwordsAndAffixes(t *testing.T) {
	components := extractPathComponents("src/greeter/greeter_test.go")
	assert.True(t, components["greeter"])
	assert.False(t, components["src"])
	assert.False(t, components["test"])
}

func TestSharedComponentCount(t *testing.T) {
	a := map[string]bool{"greeter": true, "core": true}
	b := map[string]bool{"greeter": true, "core": true, "extra": true}
	assert.Equal(t, 2, sharedComponentCount(a, b))
}
