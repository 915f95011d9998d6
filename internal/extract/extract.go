// Package extract implements the per-language extractor contract: given a
// file's source bytes and its module qualname, produce the ordered symbols
// and edges a language understands, plus optional size/complexity metrics.
// Each extractor must be deterministic for identical input bytes, since the
// indexer re-runs it on every content change and diffs the result by
// stable-id.
package extract

import (
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	ts "github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/lidxdev/lidx/internal/models"
)

// Extractor is the per-language contract a registry entry implements.
type Extractor interface {
	// Language is the canonical language name stored on files.language.
	Language() string
	// ModuleNameFromRelPath derives the module qualname a file contributes,
	// e.g. "pkg/core/greeter.go" -> "pkg.core.greeter".
	ModuleNameFromRelPath(relPath string) string
	// Extract parses source and returns its symbols, edges and metrics.
	Extract(relPath string, source []byte, moduleName string) (models.ExtractedFile, error)
}

// ImportResolver is implemented by extractors whose import edges need a
// second, path-based resolution pass against the repository tree (e.g. a
// Rust "mod x;" declaration resolving to a sibling file).
type ImportResolver interface {
	ResolveImports(repoRoot, relPath, moduleName string, edges *[]models.EdgeInput) error
}

var extToLanguage = map[string]string{
	".go":  "go",
	".py":  "python",
	".pyi": "python",
	".js":  "javascript",
	".jsx": "javascript",
	".mjs": "javascript",
	".cjs": "javascript",
	".ts":  "typescript",
	".tsx": "typescript",
}

// LanguageForPath returns the canonical language name for a file extension,
// or ("", false) if no extractor is registered for it.
func LanguageForPath(path string) (string, bool) {
	lang, ok := extToLanguage[strings.ToLower(filepath.Ext(path))]
	return lang, ok
}

var (
	grammarsOnce sync.Once
	grammars     map[string]*sitter.Language
)

func initGrammars() {
	grammarsOnce.Do(func() {
		grammars = map[string]*sitter.Language{
			"go":         golang.GetLanguage(),
			"python":     python.GetLanguage(),
			"javascript": javascript.GetLanguage(),
			"typescript": ts.GetLanguage(),
		}
	})
}

// Registry resolves a language name to its Extractor.
type Registry struct {
	extractors map[string]Extractor
}

// NewRegistry builds the default registry covering every extractor this
// package ships.
func NewRegistry() *Registry {
	initGrammars()
	r := &Registry{extractors: map[string]Extractor{}}
	r.register(newGoExtractor(grammars["go"]))
	r.register(newPythonExtractor(grammars["python"]))
	r.register(newJavaScriptExtractor(grammars["javascript"]))
	r.register(newTypeScriptExtractor(grammars["typescript"]))
	return r
}

func (r *Registry) register(e Extractor) {
	r.extractors[e.Language()] = e
}

// For returns the extractor for a canonical language name.
func (r *Registry) For(language string) (Extractor, bool) {
	e, ok := r.extractors[language]
	return e, ok
}

// ForPath resolves a file path's extension to language, then to its extractor.
func (r *Registry) ForPath(path string) (Extractor, bool) {
	lang, ok := LanguageForPath(path)
	if !ok {
		return nil, false
	}
	return r.For(lang)
}
