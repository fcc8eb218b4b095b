// Package layout は区切り記号の内側を「1 行 1 要素」にそろえる 3 つのルールを提供します。
//
// 3 つのルールは同じ判定ロジック（Checker）を共有し、Strategy で区切り文字・要素の選び方・
// しきい値・修正方法だけを切り替えます。
package layout

import (
	"strings"

	"github.com/phyten/monostyle/internal/boundary"
	"github.com/phyten/monostyle/internal/lint"
	"github.com/phyten/monostyle/internal/model"
	"github.com/phyten/monostyle/internal/source"
)

// FixMode は違反時の修正方法です。
type FixMode int

const (
	// Insert は足りない側にだけ改行を挿入します（部分修正あり）。
	Insert FixMode = iota
	// Replace は区切りの内側全体を 1 行 1 要素に置き換えます。
	Replace
)

// Strategy はルールごとの差分です。
type Strategy struct {
	Left, Right string
	Kinds       []source.NodeKind
	// Children は対象ノードから要素を選びます。
	Children func(n *source.Node) []*source.Node
	// Threshold が true なら要素数のしきい値と「同じ行に並んだ要素」の判定を行います。
	Threshold bool
	// SkipSingleLine が true なら 1 行に収まるノードは検査しません。
	SkipSingleLine bool
	Fix            FixMode
	// Trailing は Replace 時に最後の要素の後ろへ付ける文字列を返します。
	Trailing func(children []*source.Node) string
	// Data は報告に埋め込む値を返します。
	Data func(n *source.Node, min int) map[string]string
}

// Config はルールインスタンスのオプションです。
type Config struct {
	MinCount int
	Indent   int
}

// Checker は Strategy と Config を束ねた lint.Checker です。
type Checker struct {
	Strategy Strategy
	Config   Config
}

func (c *Checker) handles(kind source.NodeKind) bool {
	for _, k := range c.Strategy.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Check は f の対象ノードを 1 つずつ独立に検査します。
func (c *Checker) Check(f *lint.File, report func(lint.Report)) {
	for _, node := range f.Nodes {
		if node == nil || !c.handles(node.Kind) {
			continue
		}
		if r, ok := c.checkNode(f.Code, node); ok {
			report(r)
		}
	}
}

func (c *Checker) checkNode(code *source.Code, node *source.Node) (lint.Report, bool) {
	s := c.Strategy
	if s.SkipSingleLine && node.SameLine() {
		return lint.Report{}, false
	}
	var children []*source.Node
	if s.Children != nil {
		children = s.Children(node)
	}
	if s.Threshold && len(children) < c.Config.MinCount {
		return lint.Report{}, false
	}
	pair, ok := boundary.Find(code, node.TokenScope(), s.Left, s.Right)
	if !ok {
		return lint.Report{}, false
	}
	needs, ok := boundary.NewlineNeeds(code, pair)
	if !ok {
		return lint.Report{}, false
	}
	adjacent := s.Threshold && boundary.AdjacentOnSameLine(children)
	if !needs.Any() && !adjacent {
		return lint.Report{}, false
	}

	r := lint.Report{
		MessageID: s.messageID(),
		Loc:       node.Loc,
		Range:     node.Range,
	}
	if s.Data != nil {
		r.Data = s.Data(node, c.Config.MinCount)
	}
	if boundary.HasComments(code, pair) {
		return r, true
	}
	indent := boundary.Indentation(code.Lines(), node.Loc.Start.Line, c.Config.Indent)
	switch s.Fix {
	case Insert:
		r.Fix = insertFix(pair, needs, indent)
	case Replace:
		r.Fix = replaceFix(code, pair, children, indent, s.Trailing)
	}
	return r, true
}

func (s Strategy) messageID() string {
	if s.Fix == Insert {
		return "brackets"
	}
	return "multiline"
}

func insertFix(pair boundary.Pair, needs boundary.Needs, indent boundary.Indent) *model.Fix {
	var edits []model.Edit
	if needs.After {
		at := pair.Left.Range.End
		edits = append(edits, model.Edit{Start: at, End: at, Text: "\n" + indent.Inner})
	}
	if needs.Before {
		at := pair.Right.Range.Start
		edits = append(edits, model.Edit{Start: at, End: at, Text: "\n" + indent.Base})
	}
	if len(edits) == 0 {
		return nil
	}
	return &model.Fix{Edits: edits}
}

// replaceFix は要素が 0 個でも区切りの内側を置き換えます（{} は {\n<indent>\n} になる）。
func replaceFix(code *source.Code, pair boundary.Pair, children []*source.Node, indent boundary.Indent, trailing func([]*source.Node) string) *model.Fix {
	texts := make([]string, 0, len(children))
	for _, child := range children {
		texts = append(texts, code.Slice(child.Range))
	}
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(indent.Inner)
	b.WriteString(strings.Join(texts, ",\n"+indent.Inner))
	if trailing != nil {
		b.WriteString(trailing(children))
	}
	b.WriteString("\n")
	b.WriteString(indent.Base)
	return &model.Fix{Edits: []model.Edit{{
		Start: pair.Left.Range.End,
		End:   pair.Right.Range.Start,
		Text:  b.String(),
	}}}
}
