// Package fix は診断に付いた修正をテキストへ適用します。
//
// 1 つの修正に含まれる複数の編集は、最初の編集の開始から最後の編集の終了までを覆う 1 つの編集にまとめます。
// 修正は開始位置順に適用し、直前に適用した修正と重なる（または接する）ものは次のパスに回します。
package fix

import (
	"sort"
	"strings"

	"github.com/phyten/monostyle/internal/model"
)

// Result は 1 パス分の適用結果です。
type Result struct {
	Output   string
	Applied  int // 適用した修正の数
	Deferred int // 重なりのため見送った修正の数
}

// Changed reports whether any fix was applied.
func (r Result) Changed() bool { return r.Applied > 0 }

type pending struct {
	edit  model.Edit
	order int
}

// Apply は diags の修正を text に 1 パスだけ適用します。
func Apply(text string, diags []model.Diagnostic) Result {
	var fixes []pending
	for i, d := range diags {
		if !d.Fixable() {
			continue
		}
		edit, ok := Merge(text, *d.Fix)
		if !ok {
			continue
		}
		fixes = append(fixes, pending{edit: edit, order: i})
	}
	if len(fixes) == 0 {
		return Result{Output: text}
	}
	sort.SliceStable(fixes, func(i, j int) bool {
		a, b := fixes[i].edit, fixes[j].edit
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End < b.End
		}
		return fixes[i].order < fixes[j].order
	})

	var out strings.Builder
	out.Grow(len(text))
	res := Result{}
	last := -1 // 直前に適用した修正の終了位置
	cursor := 0
	for _, f := range fixes {
		e := f.edit
		// 直前の修正の終了位置に接するものも重なりとみなす
		if e.Start <= last {
			res.Deferred++
			continue
		}
		out.WriteString(text[cursor:e.Start])
		out.WriteString(e.Text)
		cursor = e.End
		last = e.End
		res.Applied++
	}
	out.WriteString(text[cursor:])
	res.Output = out.String()
	return res
}

// Merge は fix の編集を 1 つにまとめます。編集が範囲外か互いに重なる場合 ok は false です。
func Merge(text string, f model.Fix) (model.Edit, bool) {
	if len(f.Edits) == 0 {
		return model.Edit{}, false
	}
	edits := append([]model.Edit(nil), f.Edits...)
	sort.SliceStable(edits, func(i, j int) bool { return edits[i].Start < edits[j].Start })
	for i, e := range edits {
		if e.Start < 0 || e.End < e.Start || e.End > len(text) {
			return model.Edit{}, false
		}
		if i > 0 && e.Start < edits[i-1].End {
			return model.Edit{}, false
		}
	}
	if len(edits) == 1 {
		return edits[0], true
	}
	start, end := edits[0].Start, edits[len(edits)-1].End
	var b strings.Builder
	cursor := start
	for _, e := range edits {
		b.WriteString(text[cursor:e.Start])
		b.WriteString(e.Text)
		cursor = e.End
	}
	return model.Edit{Start: start, End: end, Text: b.String()}, true
}

// MaxPasses は Loop の既定の最大パス数です。
const MaxPasses = 10

// LintFunc は text を検査して診断を返します。
type LintFunc func(text string) ([]model.Diagnostic, error)

// Loop は修正が適用されなくなるまで（最大 maxPasses 回）検査と適用を繰り返し、
// 最終テキストとその時点の診断を返します。maxPasses が 0 以下なら MaxPasses を使います。
func Loop(text string, lint LintFunc, maxPasses int) (string, []model.Diagnostic, error) {
	if maxPasses <= 0 {
		maxPasses = MaxPasses
	}
	diags, err := lint(text)
	if err != nil {
		return text, nil, err
	}
	for pass := 0; pass < maxPasses; pass++ {
		res := Apply(text, diags)
		if !res.Changed() {
			break
		}
		next, err := lint(res.Output)
		if err != nil {
			// 修正後に解析できなくなった場合は直前の状態で止める
			return text, diags, err
		}
		text, diags = res.Output, next
	}
	return text, diags, nil
}
