package source

// TokenKind はトークンの種別を表します。
type TokenKind string

const (
	TokenPunctuator TokenKind = "Punctuator"
	TokenKeyword    TokenKind = "Keyword"
	TokenIdentifier TokenKind = "Identifier"
	TokenString     TokenKind = "String"
	TokenTemplate   TokenKind = "Template"
	TokenNumeric    TokenKind = "Numeric"
	TokenRegExp     TokenKind = "RegularExpression"
	TokenJSXText    TokenKind = "JSXText"
	TokenLine       TokenKind = "Line"
	TokenBlock      TokenKind = "Block"
)

// IsComment は行コメントまたはブロックコメントなら true を返します。
func (k TokenKind) IsComment() bool {
	return k == TokenLine || k == TokenBlock
}

// Position は 1 始まりの行と 1 始まりの桁（rune 単位）です。
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Location はソース上の開始位置と終了位置です。
type Location struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Range は [Start, End) のバイトオフセットです。
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// IsZero reports whether r is the zero range.
func (r Range) IsZero() bool { return r.Start == 0 && r.End == 0 }

// Contains reports whether inner lies completely inside r.
func (r Range) Contains(inner Range) bool {
	return inner.Start >= r.Start && inner.End <= r.End
}

// Token は字句解析器が生成する 1 トークンです。コアは読み取りのみ行います。
type Token struct {
	Kind  TokenKind
	Value string
	Loc   Location
	Range Range
}

// Comment はソース中のコメントです。Value は区切り記号（// や /* */）を除いた本文です。
type Comment struct {
	Kind  TokenKind
	Value string
	Loc   Location
	Range Range
}

// NodeKind は構文ノードの種別です。名前は ESTree に合わせています。
type NodeKind string

const (
	KindArrayExpression          NodeKind = "ArrayExpression"
	KindArrayPattern             NodeKind = "ArrayPattern"
	KindObjectPattern            NodeKind = "ObjectPattern"
	KindImportDeclaration        NodeKind = "ImportDeclaration"
	KindExportNamedDeclaration   NodeKind = "ExportNamedDeclaration"
	KindImportSpecifier          NodeKind = "ImportSpecifier"
	KindImportDefaultSpecifier   NodeKind = "ImportDefaultSpecifier"
	KindImportNamespaceSpecifier NodeKind = "ImportNamespaceSpecifier"
	KindExportSpecifier          NodeKind = "ExportSpecifier"
	KindProperty                 NodeKind = "Property"
	KindRestElement              NodeKind = "RestElement"
	KindElement                  NodeKind = "Element"
)

// Node は構文ノードです。
//
// Scope は区切りトークンを探索する範囲です。ゼロ値のときはノード全体（Range）を探索します。
// import/export 宣言では波括弧リストの範囲が入り、import 属性の波括弧を拾わないようにしています。
type Node struct {
	Kind     NodeKind
	Loc      Location
	Range    Range
	Scope    Range
	Children []*Node
}

// TokenScope は区切りトークンの探索範囲を返します。
func (n *Node) TokenScope() Range {
	if n.Scope.IsZero() {
		return n.Range
	}
	return n.Scope
}

// SameLine reports whether the node starts and ends on one line.
func (n *Node) SameLine() bool {
	return n.Loc.Start.Line == n.Loc.End.Line
}
