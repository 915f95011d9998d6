package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const sampleGo = `package sample

// comment line
func Add(a, b int) int {

	if a > b {
		return a
	}
	return a + b
}
`

func TestFileCounts_SplitsBlankCommentCode(t *testing.T) {
	m := FileCounts([]byte(sampleGo), "go")
	assert.Equal(t, 3, m.BlankLines)
	assert.Equal(t, 1, m.CommentLines)
	assert.True(t, m.CodeLines > 0)
	assert.Equal(t, m.LOC, m.BlankLines+m.CommentLines+m.CodeLines)
}

func TestFileCounts_UnknownLanguageCountsNoComments(t *testing.T) {
	m := FileCounts([]byte("a\nb"), "rust")
	assert.Equal(t, 0, m.CommentLines)
	assert.Equal(t, 2, m.CodeLines)
	assert.Equal(t, 0, m.BlankLines)
}

func TestSymbolComplexity_BaseCaseIsOne(t *testing.T) {
	src := []byte("func f() {\n\treturn 1\n}\n")
	assert.Equal(t, 1, SymbolComplexity(src, 1, 3))
}

func TestSymbolComplexity_CountsBranches(t *testing.T) {
	src := []byte(sampleGo)
	got := SymbolComplexity(src, 4, 9)
	assert.Equal(t, 2, got)
}

func TestSymbolLOC_InclusiveSpan(t *testing.T) {
	assert.Equal(t, 5, SymbolLOC(10, 14))
	assert.Equal(t, 1, SymbolLOC(10, 9))
}
