// Package metrics computes the file- and symbol-level size/complexity
// signals the store persists alongside the graph (spec SPEC_FULL.md's
// supplemented file/symbol complexity metrics).
package metrics

import (
	"strings"

	"github.com/lidxdev/lidx/internal/models"
)

// lineCommentPrefixes is the single-line comment marker recognized per
// language; block comments are intentionally not tracked since a correct
// nested/multi-line block scanner needs the language's grammar, not a line
// scan, and the indexer already has the full AST available in extract for
// anything that needs that precision.
var lineCommentPrefixes = map[string]string{
	"go":         "//",
	"javascript": "//",
	"typescript": "//",
	"python":     "#",
}

// branchKeywords approximates McCabe cyclomatic complexity by counting
// decision points in a symbol's source span: one branch keyword or
// short-circuit operator adds one path through the function, starting from
// a base complexity of 1 for the function body itself. This is a textual
// approximation, not a control-flow graph, and deliberately so: it doesn't
// need per-language AST walking to stay useful as a relative signal across
// functions in the same file.
var branchKeywords = []string{
	"if ", "if(", "for ", "for(", "while ", "while(", "case ", "case:",
	"catch ", "catch(", "except ", "except:", "elif ", "&&", "||", "?:",
}

// FileCounts computes blank/comment/code line counts for source in language.
func FileCounts(source []byte, language string) models.FileMetrics {
	prefix := lineCommentPrefixes[language]
	lines := strings.Split(string(source), "\n")

	var blank, comment, code int
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			blank++
		case prefix != "" && strings.HasPrefix(trimmed, prefix):
			comment++
		default:
			code++
		}
	}

	return models.FileMetrics{
		LOC:          len(lines),
		BlankLines:   blank,
		CommentLines: comment,
		CodeLines:    code,
	}
}

// SymbolComplexity estimates cyclomatic complexity for the source lines
// [startLine, endLine] (1-indexed, inclusive) of source.
func SymbolComplexity(source []byte, startLine, endLine int) int {
	lines := strings.Split(string(source), "\n")
	if startLine < 1 {
		startLine = 1
	}
	if endLine > len(lines) {
		endLine = len(lines)
	}
	if startLine > endLine {
		return 1
	}

	complexity := 1
	for i := startLine - 1; i < endLine && i < len(lines); i++ {
		line := lines[i]
		for _, kw := range branchKeywords {
			complexity += strings.Count(line, kw)
		}
	}
	return complexity
}

// SymbolLOC returns the inclusive line count of a symbol's span.
func SymbolLOC(startLine, endLine int) int {
	if endLine < startLine {
		return 1
	}
	return endLine - startLine + 1
}
