package extract

import (
	sitter "github.com/smacker/go-tree-sitter"
)

func newTypeScriptExtractor(lang *sitter.Language) *jsFamilyExtractor {
	return &jsFamilyExtractor{lang: lang, languageName: "typescript", interfaces: true}
}
