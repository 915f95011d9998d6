package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/lidxdev/lidx/internal/models"
)

type goExtractor struct {
	lang *sitter.Language
}

func newGoExtractor(lang *sitter.Language) *goExtractor {
	return &goExtractor{lang: lang}
}

func (g *goExtractor) Language() string { return "go" }

// ModuleNameFromRelPath maps a/b/c.go to a.b.c, matching the dotted
// qualname convention every extractor shares regardless of the source
// language's own path syntax.
func (g *goExtractor) ModuleNameFromRelPath(relPath string) string {
	return pathToQualname(relPath)
}

func (g *goExtractor) Extract(relPath string, source []byte, moduleName string) (models.ExtractedFile, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(g.lang)
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

	var currentReceiver string

	walk(root, func(n *sitter.Node) {
		switch n.Type() {
		case "type_declaration":
			for i := 0; i < int(n.NamedChildCount()); i++ {
				spec := n.NamedChild(i)
				if spec.Type() != "type_spec" {
					continue
				}
				nameNode := spec.ChildByFieldName("name")
				if nameNode == nil {
					continue
				}
				name := nodeText(nameNode, source)
				startLine, endLine, startCol, endCol := lines(spec)
				out.Symbols = append(out.Symbols, models.SymbolInput{
					Kind:      models.SymbolKindClass,
					Name:      name,
					Qualname:  moduleName + "." + name,
					StartLine: startLine, EndLine: endLine, StartCol: startCol, EndCol: endCol,
					Signature: strPtr("type " + name),
				})
			}

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
				Signature: strPtr(goSignature(n, source)),
			})

		case "method_declaration":
			nameNode := n.ChildByFieldName("name")
			recvNode := n.ChildByFieldName("receiver")
			if nameNode == nil {
				return
			}
			name := nodeText(nameNode, source)
			receiver := goReceiverType(recvNode, source)
			qualname := moduleName + "." + name
			if receiver != "" {
				qualname = moduleName + "." + receiver + "." + name
			}
			currentReceiver = receiver
			startLine, endLine, startCol, endCol := lines(n)
			out.Symbols = append(out.Symbols, models.SymbolInput{
				Kind:      models.SymbolKindMethod,
				Name:      name,
				Qualname:  qualname,
				StartLine: startLine, EndLine: endLine, StartCol: startCol, EndCol: endCol,
				Signature: strPtr(goSignature(n, source)),
			})

		case "import_spec":
			pathNode := n.ChildByFieldName("path")
			if pathNode == nil {
				return
			}
			importPath := strings.Trim(nodeText(pathNode, source), `"`)
			out.Edges = append(out.Edges, models.EdgeInput{
				Kind:           models.EdgeImports,
				SourceQualname: moduleName,
				TargetQualname: importPath,
			})

		case "call_expression":
			fnNode := n.ChildByFieldName("function")
			if fnNode == nil {
				return
			}
			target := goCallTarget(fnNode, source)
			if target == "" {
				return
			}
			startLine, endLine, _, _ := lines(n)
			sourceQualname := moduleName
			if currentReceiver != "" {
				sourceQualname = moduleName + "." + currentReceiver
			}
			for cur := n.Parent(); cur != nil; cur = cur.Parent() {
				if cur.Type() != "function_declaration" && cur.Type() != "method_declaration" {
					continue
				}
				if fnName := cur.ChildByFieldName("name"); fnName != nil {
					sourceQualname = moduleName + "." + nodeText(fnName, source)
					if recv := goReceiverType(cur.ChildByFieldName("receiver"), source); recv != "" {
						sourceQualname = moduleName + "." + recv + "." + nodeText(fnName, source)
					}
				}
				break
			}
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

func goSignature(n *sitter.Node, source []byte) string {
	nameNode := n.ChildByFieldName("name")
	paramsNode := n.ChildByFieldName("parameters")
	resultNode := n.ChildByFieldName("result")
	sig := "func " + nodeText(nameNode, source) + nodeText(paramsNode, source)
	if resultNode != nil {
		sig += " " + nodeText(resultNode, source)
	}
	return sig
}

func goReceiverType(recv *sitter.Node, source []byte) string {
	if recv == nil {
		return ""
	}
	for i := 0; i < int(recv.NamedChildCount()); i++ {
		param := recv.NamedChild(i)
		typeNode := param.ChildByFieldName("type")
		if typeNode == nil {
			continue
		}
		t := nodeText(typeNode, source)
		return strings.TrimPrefix(t, "*")
	}
	return ""
}

func goCallTarget(fn *sitter.Node, source []byte) string {
	switch fn.Type() {
	case "identifier":
		return nodeText(fn, source)
	case "selector_expression":
		field := fn.ChildByFieldName("field")
		operand := fn.ChildByFieldName("operand")
		if field == nil {
			return ""
		}
		if operand != nil {
			return nodeText(operand, source) + "." + nodeText(field, source)
		}
		return nodeText(field, source)
	default:
		return ""
	}
}

// pathToQualname normalizes a repo-relative path into a dotted module name
// shared across every language's extractor, dropping the extension and
// replacing path separators with '.'.
func pathToQualname(relPath string) string {
	clean := strings.TrimSuffix(relPath, filepath.Ext(relPath))
	clean = strings.ReplaceAll(clean, "\\", "/")
	return strings.ReplaceAll(clean, "/", ".")
}
