package engine

import (
	"regexp"

	"github.com/phyten/monostyle/internal/execx"
	"github.com/phyten/monostyle/internal/lint"
	"github.com/phyten/monostyle/internal/model"
	"github.com/phyten/monostyle/internal/progress"
)

// Item は 1 件の指摘を表す
type Item struct {
	File      string         `json:"file"`
	Line      int            `json:"line"`
	Column    int            `json:"column"`
	EndLine   int            `json:"end_line"`
	EndColumn int            `json:"end_column"`
	Rule      string         `json:"rule"`
	MessageID string         `json:"message_id"`
	Message   string         `json:"message"`
	Severity  model.Severity `json:"severity"`
	Fixable   bool           `json:"fixable"`
	// URL は Links が有効でリモートを解決できたときだけ設定される
	URL string `json:"url,omitempty"`
}

// FixedFile は修正を書き込んだ（dry-run では書き込むはずだった）ファイルを表す
type FixedFile struct {
	File    string `json:"file"`
	Written bool   `json:"written"`
	// Output は dry-run のときだけ修正後の内容を保持する
	Output string `json:"output,omitempty"`
}

// ItemError は 1 ファイルの処理に失敗した際の情報を表す
type ItemError struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// Options は実行オプション
type Options struct {
	RepoDir           string
	Paths             []string
	Excludes          []string
	PathRegex         []string
	PathRegexCompiled []*regexp.Regexp
	ExcludeTypical    bool
	DetectLangs       []string
	Jobs              int
	MaxFileBytes      int
	Fix               bool
	DryRun            bool
	Links             bool
	LinkRemote        string
	Observer          progress.Observer `json:"-"`
	Rules             lint.RuleSet      `json:"-"`
	Runner            execx.Runner      `json:"-"`

	// only が空でなければ、一覧のうちこのパス（リポジトリ相対）だけを処理する
	only map[string]struct{}
}

// Result は出力
type Result struct {
	Items        []Item      `json:"items"`
	Fixed        []FixedFile `json:"fixed,omitempty"`
	Files        int         `json:"files"`
	Total        int         `json:"total"`
	ErrorCount   int         `json:"error_count"`
	WarningCount int         `json:"warning_count"`
	FixableCount int         `json:"fixable_count"`
	ElapsedMS    int64       `json:"elapsed_ms"`
	Errors       []ItemError `json:"errors,omitempty"`
}

// Failed reports whether the result should fail a CI run.
// maxWarnings < 0 disables the warning limit.
func (r *Result) Failed(maxWarnings int) bool {
	if r == nil {
		return false
	}
	if r.ErrorCount > 0 {
		return true
	}
	return maxWarnings >= 0 && r.WarningCount > maxWarnings
}

// ErrorsOnly は warning を除いた結果を返します（--quiet）。r は変更しません。
func (r *Result) ErrorsOnly() *Result {
	if r == nil {
		return nil
	}
	out := *r
	out.Items = make([]Item, 0, len(r.Items))
	for _, it := range r.Items {
		if it.Severity == model.SeverityError {
			out.Items = append(out.Items, it)
		}
	}
	out.tally()
	return &out
}

// ItemsFromDiagnostics は LintSource の診断を出力用の Item に変換します。
func ItemsFromDiagnostics(diags []model.Diagnostic) []Item {
	out := make([]Item, 0, len(diags))
	for _, d := range diags {
		out = append(out, itemFromDiagnostic(d))
	}
	return out
}

func itemFromDiagnostic(d model.Diagnostic) Item {
	return Item{
		File:      d.File,
		Line:      d.Span.StartLine,
		Column:    d.Span.StartCol,
		EndLine:   d.Span.EndLine,
		EndColumn: d.Span.EndCol,
		Rule:      d.Rule,
		MessageID: d.MessageID,
		Message:   d.Message,
		Severity:  d.Severity,
		Fixable:   d.Fixable(),
	}
}
