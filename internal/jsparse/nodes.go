package jsparse

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phyten/monostyle/internal/source"
)

// collectNodes は検査対象の構文ノードを深さ優先・文書順に集めます。
func (b *builder) collectNodes(n *sitter.Node) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "array":
		b.nodes = append(b.nodes, b.node(source.KindArrayExpression, n, b.elements(n)))
	case "array_pattern":
		b.nodes = append(b.nodes, b.node(source.KindArrayPattern, n, b.elements(n)))
	case "object_pattern":
		b.nodes = append(b.nodes, b.node(source.KindObjectPattern, n, b.members(n)))
	case "import_statement":
		if node := b.importDeclaration(n); node != nil {
			b.nodes = append(b.nodes, node)
		}
	case "export_statement":
		if node := b.exportDeclaration(n); node != nil {
			b.nodes = append(b.nodes, node)
		}
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		b.collectNodes(n.Child(i))
	}
}

func (b *builder) node(kind source.NodeKind, n *sitter.Node, children []*source.Node) *source.Node {
	r := source.Range{Start: int(n.StartByte()), End: int(n.EndByte())}
	return &source.Node{
		Kind:     kind,
		Loc:      b.code.Locate(r),
		Range:    r,
		Children: children,
	}
}

func (b *builder) elements(n *sitter.Node) []*source.Node {
	var out []*source.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child == nil || child.Type() == "comment" {
			continue
		}
		out = append(out, b.node(source.KindElement, child, nil))
	}
	return out
}

func (b *builder) members(n *sitter.Node) []*source.Node {
	var out []*source.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "comment":
			continue
		case "rest_pattern":
			out = append(out, b.node(source.KindRestElement, child, nil))
		default:
			out = append(out, b.node(source.KindProperty, child, nil))
		}
	}
	return out
}

// importDeclaration は名前付き import（波括弧リスト）を持つ宣言だけを返します。
// Children には default / namespace の束縛も含めます。
func (b *builder) importDeclaration(n *sitter.Node) *source.Node {
	clause := childOfType(n, "import_clause")
	if clause == nil {
		return nil
	}
	var children []*source.Node
	var named *sitter.Node
	for i := 0; i < int(clause.NamedChildCount()); i++ {
		child := clause.NamedChild(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "identifier":
			children = append(children, b.node(source.KindImportDefaultSpecifier, child, nil))
		case "namespace_import":
			children = append(children, b.node(source.KindImportNamespaceSpecifier, child, nil))
		case "named_imports":
			named = child
			for j := 0; j < int(child.NamedChildCount()); j++ {
				spec := child.NamedChild(j)
				if spec != nil && spec.Type() == "import_specifier" {
					children = append(children, b.node(source.KindImportSpecifier, spec, nil))
				}
			}
		}
	}
	if named == nil {
		return nil
	}
	node := b.node(source.KindImportDeclaration, n, children)
	node.Scope = source.Range{Start: int(named.StartByte()), End: int(named.EndByte())}
	return node
}

// exportDeclaration は export { ... } 形式（from 付きを含む）だけを返します。
func (b *builder) exportDeclaration(n *sitter.Node) *source.Node {
	clause := childOfType(n, "export_clause")
	if clause == nil {
		return nil
	}
	var children []*source.Node
	for i := 0; i < int(clause.NamedChildCount()); i++ {
		spec := clause.NamedChild(i)
		if spec != nil && spec.Type() == "export_specifier" {
			children = append(children, b.node(source.KindExportSpecifier, spec, nil))
		}
	}
	node := b.node(source.KindExportNamedDeclaration, n, children)
	node.Scope = source.Range{Start: int(clause.StartByte()), End: int(clause.EndByte())}
	return node
}

func childOfType(n *sitter.Node, typ string) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child != nil && child.Type() == typ {
			return child
		}
	}
	return nil
}
