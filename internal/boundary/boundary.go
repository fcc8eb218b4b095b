// Package boundary は波括弧や角括弧で区切られた構文の改行判定とインデント計算を行います。
//
// どの関数も入力を書き換えず、解析できない形のノードには「該当なし」を返します。
package boundary

import (
	"strings"
	"unicode"

	"github.com/phyten/monostyle/internal/source"
)

// Pair はノード自身を囲む左右の区切りトークンです。
type Pair struct {
	Left  source.Token
	Right source.Token
}

// Needs は左区切りの直後・右区切りの直前に改行が必要かどうかを表します。
type Needs struct {
	After  bool
	Before bool
}

// Any reports whether either side lacks its newline.
func (n Needs) Any() bool { return n.After || n.Before }

// Indent は修正で使うインデント文字列です。
type Indent struct {
	Base  string
	Inner string
}

// Find は scope 内（コメントを除く）で最初の left と最後の right を探します。
//
// 入れ子の同じ区切り文字は内側のトークンになるため、先頭の left と末尾の right は
// scope の持ち主自身の区切りになります。どちらかが無ければ ok は false です。
func Find(code *source.Code, scope source.Range, left, right string) (Pair, bool) {
	tokens := code.Tokens(scope, false)
	li := -1
	for i, tok := range tokens {
		if isDelimiter(tok, left) {
			li = i
			break
		}
	}
	ri := -1
	for i := len(tokens) - 1; i >= 0; i-- {
		if isDelimiter(tokens[i], right) {
			ri = i
			break
		}
	}
	if li < 0 || ri < 0 {
		return Pair{}, false
	}
	return Pair{Left: tokens[li], Right: tokens[ri]}, true
}

// NewlineNeeds は区切りの内側に隣接するトークン（コメントを除く）の行番号だけを見て判定します。
// 隣接トークンが無い場合 ok は false です。
func NewlineNeeds(code *source.Code, pair Pair) (Needs, bool) {
	next, ok := code.TokenAfter(pair.Left, false)
	if !ok {
		return Needs{}, false
	}
	prev, ok := code.TokenBefore(pair.Right, false)
	if !ok {
		return Needs{}, false
	}
	return Needs{
		After:  pair.Left.Loc.End.Line == next.Loc.Start.Line,
		Before: prev.Loc.End.Line == pair.Right.Loc.Start.Line,
	}, true
}

// HasComments は区切りの間にコメントがあれば true を返します。
// コメントを動かす修正は利用者のコメントを壊しうるため、この場合は修正を出しません。
func HasComments(code *source.Code, pair Pair) bool {
	for _, tok := range code.TokensBetween(pair.Left, pair.Right, true) {
		if tok.Kind.IsComment() {
			return true
		}
	}
	return false
}

// LeadingWhitespace returns the run of whitespace at the start of line.
func LeadingWhitespace(line string) string {
	trimmed := strings.TrimLeftFunc(line, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\ufeff'
	})
	return line[:len(line)-len(trimmed)]
}

// Indentation は startLine（1 始まり）の行頭空白を Base とし、size 個の空白を足したものを Inner とします。
// 行が存在しない場合 Base は空文字列です。size が負なら 0 として扱います。
func Indentation(lines []string, startLine, size int) Indent {
	var base string
	if idx := startLine - 1; idx >= 0 && idx < len(lines) {
		base = LeadingWhitespace(lines[idx])
	}
	if size < 0 {
		size = 0
	}
	return Indent{Base: base, Inner: base + strings.Repeat(" ", size)}
}

// AdjacentOnSameLine は連続する 2 要素が同じ行から始まっていれば true を返します。
// 位置情報の無い要素が 1 つでもあれば false です。
func AdjacentOnSameLine(items []*source.Node) bool {
	for _, item := range items {
		if item == nil || item.Loc.Start.Line == 0 {
			return false
		}
	}
	for i := 1; i < len(items); i++ {
		if items[i-1].Loc.Start.Line == items[i].Loc.Start.Line {
			return true
		}
	}
	return false
}

func isDelimiter(tok source.Token, value string) bool {
	return tok.Kind == source.TokenPunctuator && tok.Value == value
}
