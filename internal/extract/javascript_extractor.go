package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/lidxdev/lidx/internal/models"
)

// jsFamilyExtractor implements the shared JavaScript/TypeScript AST shape;
// go-tree-sitter's typescript grammar is a superset of the javascript one
// (adds interface_declaration, type annotations) so both extractors share
// this walker and differ only in language name and interface support.
type jsFamilyExtractor struct {
	lang         *sitter.Language
	languageName string
	interfaces   bool
}

func newJavaScriptExtractor(lang *sitter.Language) *jsFamilyExtractor {
	return &jsFamilyExtractor{lang: lang, languageName: "javascript"}
}

func (j *jsFamilyExtractor) Language() string { return j.languageName }

func (j *jsFamilyExtractor) ModuleNameFromRelPath(relPath string) string {
	clean := strings.TrimSuffix(relPath, filepath.Ext(relPath))
	clean = strings.TrimSuffix(clean, "/index")
	return pathToQualname(clean)
}

func (j *jsFamilyExtractor) Extract(relPath string, source []byte, moduleName string) (models.ExtractedFile, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(j.lang)
	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return models.ExtractedFile{}, fmt.Errorf("parse %s: %w", relPath, err)
	}
	root := tree.RootNode()

	out := models.ExtractedFile{}
	out.Symbols = append(out.Symbols, models.SymbolInput{
		Kind:     models.SymbolKindModule,
		Name:     filepath.Base(relPath),
		Qualname: moduleName,
	})

	walk(root, func(n *sitter.Node) {
		switch n.Type() {
		case "class_declaration":
			nameNode := n.ChildByFieldName("name")
			if nameNode == nil {
				return
			}
			name := nodeText(nameNode, source)
			startLine, endLine, startCol, endCol := lines(n)
			sig := "class " + name
			if h := n.ChildByFieldName("heritage"); h != nil {
				sig += " " + nodeText(h, source)
			}
			out.Symbols = append(out.Symbols, models.SymbolInput{
				Kind:      models.SymbolKindClass,
				Name:      name,
				Qualname:  moduleName + "." + name,
				StartLine: startLine, EndLine: endLine, StartCol: startCol, EndCol: endCol,
				Signature: strPtr(sig),
			})

		case "interface_declaration":
			if !j.interfaces {
				return
			}
			nameNode := n.ChildByFieldName("name")
			if nameNode == nil {
				return
			}
			name := nodeText(nameNode, source)
			startLine, endLine, startCol, endCol := lines(n)
			out.Symbols = append(out.Symbols, models.SymbolInput{
				Kind:      models.SymbolKindClass,
				Name:      name,
				Qualname:  moduleName + "." + name,
				StartLine: startLine, EndLine: endLine, StartCol: startCol, EndCol: endCol,
				Signature: strPtr("interface " + name),
			})

		case "function_declaration":
			nameNode := n.ChildByFieldName("name")
			if nameNode == nil {
				return
			}
			name := nodeText(nameNode, source)
			startLine, endLine, startCol, endCol := lines(n)
			out.Symbols = append(out.Symbols, models.SymbolInput{
				Kind:      models.SymbolKindFunction,
				Name:      name,
				Qualname:  moduleName + "." + name,
				StartLine: startLine, EndLine: endLine, StartCol: startCol, EndCol: endCol,
				Signature: strPtr("function " + name + nodeText(n.ChildByFieldName("parameters"), source)),
			})

		case "method_definition":
			nameNode := n.ChildByFieldName("name")
			if nameNode == nil {
				return
			}
			name := nodeText(nameNode, source)
			className := jsParentClass(n, source)
			qualname := moduleName + "." + name
			if className != "" {
				qualname = moduleName + "." + className + "." + name
			}
			startLine, endLine, startCol, endCol := lines(n)
			out.Symbols = append(out.Symbols, models.SymbolInput{
				Kind:      models.SymbolKindMethod,
				Name:      name,
				Qualname:  qualname,
				StartLine: startLine, EndLine: endLine, StartCol: startCol, EndCol: endCol,
				Signature: strPtr(name + nodeText(n.ChildByFieldName("parameters"), source)),
			})

		case "import_statement":
			if src := n.ChildByFieldName("source"); src != nil {
				target := strings.Trim(nodeText(src, source), `"'`)
				out.Edges = append(out.Edges, models.EdgeInput{
					Kind:           models.EdgeImports,
					SourceQualname: moduleName,
					TargetQualname: target,
				})
			}

		case "call_expression":
			fnNode := n.ChildByFieldName("function")
			if fnNode == nil {
				return
			}
			target := jsCallTarget(fnNode, source)
			if target == "" {
				return
			}
			className := jsParentClass(n, source)
			sourceQualname := moduleName
			if className != "" {
				sourceQualname = moduleName + "." + className
			}
			startLine, endLine, _, _ := lines(n)
			out.Edges = append(out.Edges, models.EdgeInput{
				Kind:              models.EdgeCalls,
				SourceQualname:    sourceQualname,
				TargetQualname:    target,
				EvidenceStartLine: startLine,
				EvidenceEndLine:   endLine,
			})
		}
	})

	return out, nil
}

func jsParentClass(n *sitter.Node, source []byte) string {
	for cur := n.Parent(); cur != nil; cur = cur.Parent() {
		if cur.Type() == "class_declaration" {
			if name := cur.ChildByFieldName("name"); name != nil {
				return nodeText(name, source)
			}
		}
	}
	return ""
}

func jsCallTarget(fn *sitter.Node, source []byte) string {
	switch fn.Type() {
	case "identifier":
		return nodeText(fn, source)
	case "member_expression":
		obj := fn.ChildByFieldName("object")
		prop := fn.ChildByFieldName("property")
		if prop == nil {
			return ""
		}
		if obj != nil {
			return nodeText(obj, source) + "." + nodeText(prop, source)
		}
		return nodeText(prop, source)
	default:
		return ""
	}
}
