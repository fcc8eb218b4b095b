// Package lint はルールとホストの間の契約（Rule / Checker / Report）と、1 ファイル分の実行を定義します。
package lint

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/phyten/monostyle/internal/model"
	"github.com/phyten/monostyle/internal/source"
)

// Severity はルールの有効・無効と重大度です。
type Severity int

const (
	SeverityOff Severity = iota
	SeverityWarn
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarn:
		return "warn"
	case SeverityError:
		return "error"
	default:
		return "off"
	}
}

// MarshalText encodes s as "off", "warn" or "error".
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts the same forms as ParseSeverity.
func (s *Severity) UnmarshalText(text []byte) error {
	v, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Model converts s into the diagnostic severity. Off has no diagnostic form.
func (s Severity) Model() model.Severity {
	if s == SeverityWarn {
		return model.SeverityWarning
	}
	return model.SeverityError
}

// ParseSeverity は "off" / "warn" / "warning" / "error" および 0 / 1 / 2 を受け付けます。
func ParseSeverity(v any) (Severity, error) {
	switch t := v.(type) {
	case Severity:
		return t, nil
	case int:
		return severityFromInt(t)
	case int64:
		return severityFromInt(int(t))
	case float64:
		if t != float64(int(t)) {
			return SeverityOff, fmt.Errorf("invalid severity: %v", v)
		}
		return severityFromInt(int(t))
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "off", "0":
			return SeverityOff, nil
		case "warn", "warning", "1":
			return SeverityWarn, nil
		case "error", "2":
			return SeverityError, nil
		}
	}
	return SeverityOff, fmt.Errorf("invalid severity: %v", v)
}

func severityFromInt(n int) (Severity, error) {
	if n < 0 || n > 2 {
		return SeverityOff, fmt.Errorf("invalid severity: %d", n)
	}
	return Severity(n), nil
}

// Meta はルールの説明情報です。
type Meta struct {
	Type        string            // layout | problem
	Fixable     bool              // 自動修正を出しうるか
	Description string            // 一行説明
	Messages    map[string]string // メッセージ ID → テンプレート（{{name}} で埋め込み）
	Defaults    map[string]any    // オプションの既定値（表示用）
}

// Report はルールが報告する 1 件の違反です。Fix が nil なら修正は出しません。
type Report struct {
	MessageID string
	Data      map[string]string
	Loc       source.Location
	Range     source.Range
	Fix       *model.Fix
}

// File はルールに渡される 1 ファイル分の読み取り専用ビューです。
type File struct {
	Path  string
	Code  *source.Code
	Nodes []*source.Node
}

// Checker は設定済みのルール 1 インスタンスです。
type Checker interface {
	Check(f *File, report func(Report))
}

// Rule はルールの定義です。New はオプションを検証して Checker を作ります。
type Rule interface {
	Name() string
	Meta() Meta
	New(options map[string]any) (Checker, error)
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(f *File, report func(Report))

func (fn CheckerFunc) Check(f *File, report func(Report)) { fn(f, report) }

// Noop は何も検査しない Checker です。
var Noop Checker = CheckerFunc(func(*File, func(Report)) {})

// Enabled は重大度付きで有効化されたルールです。
type Enabled struct {
	Rule     Rule
	Severity Severity
	Checker  Checker
}

// RuleSet は 1 回の実行で使うルールの集合です。登録順に実行されます。
type RuleSet struct {
	Rules []Enabled
}

// Len returns the number of enabled rules.
func (rs RuleSet) Len() int { return len(rs.Rules) }

// Run は f に対して全ルールを実行し、位置順に並べた診断を返します。
func (rs RuleSet) Run(f *File) []model.Diagnostic {
	var out []model.Diagnostic
	for _, en := range rs.Rules {
		if en.Severity == SeverityOff || en.Checker == nil {
			continue
		}
		meta := en.Rule.Meta()
		name := en.Rule.Name()
		sev := en.Severity.Model()
		en.Checker.Check(f, func(r Report) {
			out = append(out, model.Diagnostic{
				File:      f.Path,
				Rule:      name,
				MessageID: r.MessageID,
				Message:   Interpolate(meta.Messages[r.MessageID], r.Data),
				Data:      r.Data,
				Severity:  sev,
				Span: model.Span{
					StartLine: r.Loc.Start.Line,
					StartCol:  r.Loc.Start.Column,
					EndLine:   r.Loc.End.Line,
					EndCol:    r.Loc.End.Column,
					ByteStart: r.Range.Start,
					ByteEnd:   r.Range.End,
				},
				Fix: r.Fix,
			})
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Span, out[j].Span
		if a.StartLine != b.StartLine {
			return a.StartLine < b.StartLine
		}
		return a.StartCol < b.StartCol
	})
	return out
}

var placeholderRe = regexp.MustCompile(`\{\{\s*([^{}\s]+)\s*\}\}`)

// Interpolate は {{name}} を data の値で置き換えます。未知の名前はそのまま残します。
func Interpolate(template string, data map[string]string) string {
	if len(data) == 0 {
		return template
	}
	return placeholderRe.ReplaceAllStringFunc(template, func(m string) string {
		name := placeholderRe.FindStringSubmatch(m)[1]
		if v, ok := data[name]; ok {
			return v
		}
		return m
	})
}

// Itoa is a small helper for report data.
func Itoa(n int) string { return strconv.Itoa(n) }
