package source

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// Code はファイル 1 つ分のテキスト、行、トークン列（コメントを含む）を保持します。
//
// Code は生成後に変更されません。複数のルールから同時に読み出して構いません。
type Code struct {
	text        string
	lines       []string
	lineOffsets []int
	tokens      []Token
	comments    []Comment
}

// New は text と文書順のトークン列から Code を組み立てます。
// コメントトークンからは Comment も合わせて作られます。
// Loc が未設定（行 0）のトークンは Range から位置を補います。
func New(text string, tokens []Token) *Code {
	sorted := make([]Token, len(tokens))
	copy(sorted, tokens)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Range.Start < sorted[j].Range.Start })

	c := &Code{
		text:        text,
		lines:       splitLines(text),
		lineOffsets: computeLineOffsets(text),
		tokens:      sorted,
	}
	for i := range sorted {
		if sorted[i].Loc.Start.Line == 0 {
			sorted[i].Loc = c.Locate(sorted[i].Range)
		}
	}
	for _, tok := range sorted {
		if !tok.Kind.IsComment() {
			continue
		}
		c.comments = append(c.comments, Comment{
			Kind:  tok.Kind,
			Value: commentValue(tok),
			Loc:   tok.Loc,
			Range: tok.Range,
		})
	}
	return c
}

// Text returns the whole source text.
func (c *Code) Text() string { return c.text }

// Lines returns the source split into lines without line terminators.
func (c *Code) Lines() []string { return c.lines }

// Comments returns every comment in document order.
func (c *Code) Comments() []Comment { return c.comments }

// AllTokens returns every token including comments.
func (c *Code) AllTokens() []Token { return c.tokens }

// Slice は r の範囲のテキストを返します。範囲外はクランプされます。
func (c *Code) Slice(r Range) string {
	start, end := clamp(r.Start, len(c.text)), clamp(r.End, len(c.text))
	if end < start {
		return ""
	}
	return c.text[start:end]
}

// Tokens は scope に完全に含まれるトークンを文書順に返します。
func (c *Code) Tokens(scope Range, includeComments bool) []Token {
	first := sort.Search(len(c.tokens), func(i int) bool { return c.tokens[i].Range.Start >= scope.Start })
	var out []Token
	for i := first; i < len(c.tokens); i++ {
		tok := c.tokens[i]
		if tok.Range.Start >= scope.End {
			break
		}
		if !scope.Contains(tok.Range) {
			continue
		}
		if !includeComments && tok.Kind.IsComment() {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// TokenAfter は tok の直後にあるトークンを返します。
func (c *Code) TokenAfter(tok Token, includeComments bool) (Token, bool) {
	idx := c.indexOf(tok)
	if idx < 0 {
		return Token{}, false
	}
	for i := idx + 1; i < len(c.tokens); i++ {
		if includeComments || !c.tokens[i].Kind.IsComment() {
			return c.tokens[i], true
		}
	}
	return Token{}, false
}

// TokenBefore は tok の直前にあるトークンを返します。
func (c *Code) TokenBefore(tok Token, includeComments bool) (Token, bool) {
	idx := c.indexOf(tok)
	if idx < 0 {
		return Token{}, false
	}
	for i := idx - 1; i >= 0; i-- {
		if includeComments || !c.tokens[i].Kind.IsComment() {
			return c.tokens[i], true
		}
	}
	return Token{}, false
}

// TokensBetween は left と right の間（両端を含まない）のトークンを返します。
func (c *Code) TokensBetween(left, right Token, includeComments bool) []Token {
	return c.Tokens(Range{Start: left.Range.End, End: right.Range.Start}, includeComments)
}

// Position は offset を 1 始まりの行・桁に変換します。
func (c *Code) Position(offset int) Position {
	offset = clamp(offset, len(c.text))
	idx := sort.Search(len(c.lineOffsets), func(i int) bool { return c.lineOffsets[i] > offset })
	if idx == 0 {
		return Position{Line: 1, Column: 1}
	}
	lineStart := c.lineOffsets[idx-1]
	return Position{Line: idx, Column: utf8.RuneCountInString(c.text[lineStart:offset]) + 1}
}

// Locate converts a byte range into a line/column location.
func (c *Code) Locate(r Range) Location {
	return Location{Start: c.Position(r.Start), End: c.Position(r.End)}
}

func (c *Code) indexOf(tok Token) int {
	idx := sort.Search(len(c.tokens), func(i int) bool { return c.tokens[i].Range.Start >= tok.Range.Start })
	for i := idx; i < len(c.tokens) && c.tokens[i].Range.Start == tok.Range.Start; i++ {
		if c.tokens[i].Range == tok.Range {
			return i
		}
	}
	return -1
}

func commentValue(tok Token) string {
	v := tok.Value
	switch {
	case strings.HasPrefix(v, "//"):
		return v[2:]
	case strings.HasPrefix(v, "/*"):
		v = v[2:]
		return strings.TrimSuffix(v, "*/")
	case strings.HasPrefix(v, "<!--"):
		return strings.TrimPrefix(v, "<!--")
	case strings.HasPrefix(v, "#!"):
		return v[2:]
	}
	return v
}

func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

func computeLineOffsets(text string) []int {
	offsets := make([]int, 0, strings.Count(text, "\n")+1)
	offsets = append(offsets, 0)
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			offsets = append(offsets, i+1)
		}
	}
	return offsets
}

func clamp(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
