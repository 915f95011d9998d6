package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/lidxdev/lidx/internal/models"
)

type pythonExtractor struct {
	lang *sitter.Language
}

func newPythonExtractor(lang *sitter.Language) *pythonExtractor {
	return &pythonExtractor{lang: lang}
}

func (p *pythonExtractor) Language() string { return "python" }

func (p *pythonExtractor) ModuleNameFromRelPath(relPath string) string {
	clean := strings.TrimSuffix(relPath, filepath.Ext(relPath))
	clean = strings.TrimSuffix(clean, "/__init__")
	return pathToQualname(clean)
}

func (p *pythonExtractor) Extract(relPath string, source []byte, moduleName string) (models.ExtractedFile, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(p.lang)
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
		case "class_definition":
			nameNode := n.ChildByFieldName("name")
			if nameNode == nil {
				return
			}
			name := nodeText(nameNode, source)
			startLine, endLine, startCol, endCol := lines(n)
			sig := "class " + name
			if sup := n.ChildByFieldName("superclasses"); sup != nil {
				sig += nodeText(sup, source)
			}
			out.Symbols = append(out.Symbols, models.SymbolInput{
				Kind:      models.SymbolKindClass,
				Name:      name,
				Qualname:  moduleName + "." + name,
				StartLine: startLine, EndLine: endLine, StartCol: startCol, EndCol: endCol,
				Signature: strPtr(sig),
				Docstring: pythonDocstring(n, source),
			})

		case "function_definition":
			nameNode := n.ChildByFieldName("name")
			if nameNode == nil {
				return
			}
			name := nodeText(nameNode, source)
			className := pythonParentClass(n, source)
			qualname := moduleName + "." + name
			kind := models.SymbolKindFunction
			if className != "" {
				qualname = moduleName + "." + className + "." + name
				kind = models.SymbolKindMethod
			}
			params := n.ChildByFieldName("parameters")
			sig := "def " + name
			if params != nil {
				sig += nodeText(params, source)
			}
			if ret := n.ChildByFieldName("return_type"); ret != nil {
				sig += " -> " + nodeText(ret, source)
			}
			startLine, endLine, startCol, endCol := lines(n)
			out.Symbols = append(out.Symbols, models.SymbolInput{
				Kind:      kind,
				Name:      name,
				Qualname:  qualname,
				StartLine: startLine, EndLine: endLine, StartCol: startCol, EndCol: endCol,
				Signature: strPtr(sig),
				Docstring: pythonDocstring(n, source),
			})

		case "import_statement":
			if name := n.ChildByFieldName("name"); name != nil {
				out.Edges = append(out.Edges, models.EdgeInput{
					Kind:           models.EdgeImports,
					SourceQualname: moduleName,
					TargetQualname: nodeText(name, source),
				})
			}

		case "import_from_statement":
			if mod := n.ChildByFieldName("module_name"); mod != nil {
				out.Edges = append(out.Edges, models.EdgeInput{
					Kind:           models.EdgeImports,
					SourceQualname: moduleName,
					TargetQualname: nodeText(mod, source),
				})
			}

		case "call":
			fnNode := n.ChildByFieldName("function")
			if fnNode == nil {
				return
			}
			target := pythonCallTarget(fnNode, source)
			if target == "" {
				return
			}
			className := pythonParentClass(n, source)
			sourceQualname := moduleName
			if className != "" {
				sourceQualname = moduleName + "." + className
			}
			if fn := pythonEnclosingFunction(n, source); fn != "" {
				sourceQualname = sourceQualname + "." + fn
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

func pythonParentClass(n *sitter.Node, source []byte) string {
	for cur := n.Parent(); cur != nil; cur = cur.Parent() {
		if cur.Type() == "class_definition" {
			if name := cur.ChildByFieldName("name"); name != nil {
				return nodeText(name, source)
			}
		}
	}
	return ""
}

func pythonEnclosingFunction(n *sitter.Node, source []byte) string {
	for cur := n.Parent(); cur != nil; cur = cur.Parent() {
		if cur.Type() == "function_definition" {
			if name := cur.ChildByFieldName("name"); name != nil {
				return nodeText(name, source)
			}
		}
	}
	return ""
}

func pythonCallTarget(fn *sitter.Node, source []byte) string {
	switch fn.Type() {
	case "identifier":
		return nodeText(fn, source)
	case "attribute":
		obj := fn.ChildByFieldName("object")
		attr := fn.ChildByFieldName("attribute")
		if attr == nil {
			return ""
		}
		if obj != nil {
			return nodeText(obj, source) + "." + nodeText(attr, source)
		}
		return nodeText(attr, source)
	default:
		return ""
	}
}

func pythonDocstring(n *sitter.Node, source []byte) *string {
	body := n.ChildByFieldName("body")
	if body == nil || body.NamedChildCount() == 0 {
		return nil
	}
	first := body.NamedChild(0)
	if first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
		return nil
	}
	str := first.NamedChild(0)
	if str.Type() != "string" {
		return nil
	}
	return strPtr(strings.Trim(nodeText(str, source), "\"' \t\n"))
}
