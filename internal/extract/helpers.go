package extract

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// nodeText returns the source slice a node spans.
func nodeText(n *sitter.Node, source []byte) string {
	if n == nil {
		return ""
	}
	return n.Content(source)
}

// lines converts a node's tree-sitter points (0-indexed rows) to the
// 1-indexed start/end lines and 0-indexed columns the rest of the repo uses.
func lines(n *sitter.Node) (startLine, endLine, startCol, endCol int) {
	start := n.StartPoint()
	end := n.EndPoint()
	return int(start.Row) + 1, int(end.Row) + 1, int(start.Column), int(end.Column)
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// walk invokes visit for every node in the tree rooted at n, depth-first.
func walk(n *sitter.Node, visit func(*sitter.Node)) {
	if n == nil {
		return
	}
	visit(n)
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		walk(n.Child(i), visit)
	}
}
