package jsparse

import (
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phyten/monostyle/internal/source"
)

// 中身を 1 トークンとして扱う葉に近いノード。
var atomicTypes = map[string]source.TokenKind{
	"string":   source.TokenString,
	"regex":    source.TokenRegExp,
	"number":   source.TokenNumeric,
	"jsx_text": source.TokenJSXText,
}

// 名前付きの葉のうちキーワードとして扱うもの。
var namedKeywords = map[string]bool{
	"true":      true,
	"false":     true,
	"null":      true,
	"undefined": true,
	"this":      true,
	"super":     true,
}

type builder struct {
	content []byte
	code    *source.Code
	tokens  []source.Token
	nodes   []*source.Node
}

func (b *builder) collectTokens(n *sitter.Node) {
	if n == nil {
		return
	}
	typ := n.Type()
	if typ == "comment" || typ == "html_comment" || typ == "hash_bang_line" {
		b.addToken(commentKind(b.text(n)), n.StartByte(), n.EndByte())
		return
	}
	if kind, ok := atomicTypes[typ]; ok {
		b.addToken(kind, n.StartByte(), n.EndByte())
		return
	}
	if typ == "template_string" {
		b.collectTemplate(n)
		return
	}
	count := int(n.ChildCount())
	if count == 0 {
		b.addToken(leafKind(n, b.text(n)), n.StartByte(), n.EndByte())
		return
	}
	for i := 0; i < count; i++ {
		b.collectTokens(n.Child(i))
	}
}

// collectTemplate はテンプレート文字列を `...${ / }...${ / }...` の断片に分け、
// 置換式の中身は通常どおりトークン化します。
func (b *builder) collectTemplate(n *sitter.Node) {
	cursor := n.StartByte()
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "template_substitution":
			open := child.StartByte() + 2
			b.addToken(source.TokenTemplate, cursor, open)
			inner := int(child.ChildCount())
			for j := 0; j < inner; j++ {
				part := child.Child(j)
				if part == nil {
					continue
				}
				if t := part.Type(); !part.IsNamed() && (t == "${" || t == "}") {
					continue
				}
				b.collectTokens(part)
			}
			cursor = child.EndByte() - 1
		case "comment":
			b.collectTokens(child)
		}
	}
	b.addToken(source.TokenTemplate, cursor, n.EndByte())
}

func (b *builder) addToken(kind source.TokenKind, start, end uint32) {
	if end <= start {
		return
	}
	b.tokens = append(b.tokens, source.Token{
		Kind:  kind,
		Value: string(b.content[start:end]),
		Range: source.Range{Start: int(start), End: int(end)},
	})
}

func (b *builder) text(n *sitter.Node) string {
	return string(b.content[n.StartByte():n.EndByte()])
}

// column は n の開始桁を rune 単位（1 始まり）で返します。
func (b *builder) column(n *sitter.Node) int {
	start := int(n.StartByte())
	lineStart := start
	for lineStart > 0 && b.content[lineStart-1] != '\n' {
		lineStart--
	}
	return utf8.RuneCount(b.content[lineStart:start]) + 1
}

func commentKind(text string) source.TokenKind {
	if strings.HasPrefix(text, "/*") {
		return source.TokenBlock
	}
	return source.TokenLine
}

func leafKind(n *sitter.Node, text string) source.TokenKind {
	if n.IsNamed() {
		if namedKeywords[n.Type()] {
			return source.TokenKeyword
		}
		return source.TokenIdentifier
	}
	if isWord(text) {
		return source.TokenKeyword
	}
	return source.TokenPunctuator
}

func isWord(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r == '_' || r == '$' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return true
}
