// Package taskref は TODO / FIXME などのコメントに、設定に合うタスク参照付きの URL があるかを検査します。
package taskref

import (
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/phyten/monostyle/internal/lint"
	"github.com/phyten/monostyle/internal/source"
)

// Keywords は検出対象のキーワードです。複数含まれる場合は先に並んでいるものを報告します。
var Keywords = []string{"TODO", "FIXME", "WARNING", "WARN", "BUG", "HACK", "XXX"}

// MatchTimeout は利用者指定の正規表現 1 回分の照合時間の上限です。超えた場合は不一致として扱います。
const MatchTimeout = 100 * time.Millisecond

// jsSpace は JavaScript の \s と同じ空白文字集合です。RE2 の \s は ASCII だけなので全角空白などを明示します。
const jsSpace = `\t\n\v\f\r \x{00a0}\x{1680}\x{2000}-\x{200a}\x{2028}\x{2029}\x{202f}\x{205f}\x{3000}\x{feff}`

var (
	protocolURLRe = regexp.MustCompile(`(?i)\b[a-z][a-z\d+.-]*://[^` + jsSpace + `]+`)
	keywordRes    = compileKeywords(Keywords)
)

func compileKeywords(words []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(words))
	for _, w := range words {
		out = append(out, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(w)+`\b`))
	}
	return out
}

// Options はルールのオプションです。空文字列は未指定として扱います。
type Options struct {
	ProjectSlug string
	URLPattern  string
	Regexp      string
}

// Matcher は URL 1 つに対する判定です。
type Matcher interface {
	MatchString(url string) bool
}

type stdMatcher struct{ re *regexp.Regexp }

func (m stdMatcher) MatchString(url string) bool { return m.re.MatchString(url) }

// ecmaMatcher は JavaScript の RegExp と同じ構文で書かれた利用者のパターンです。
type ecmaMatcher struct{ re *regexp2.Regexp }

func (m ecmaMatcher) MatchString(url string) bool {
	ok, err := m.re.MatchString(url)
	if err != nil {
		slog.Debug("taskref: regexp match aborted", "pattern", m.re.String(), "err", err)
		return false
	}
	return ok
}

// Matchers はオプションから照合器を作ります。
//
// regexp がコンパイルできない場合は他の指定があっても空の集合を返し、ルールは何も検査しません。
func Matchers(opts Options) []Matcher {
	var out []Matcher
	if opts.ProjectSlug != "" {
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(opts.ProjectSlug) + `-\d+\b`)
		out = append(out, stdMatcher{re: re})
	}
	if opts.URLPattern != "" {
		out = append(out, stdMatcher{re: regexp.MustCompile(`(?i)` + regexp.QuoteMeta(opts.URLPattern))})
	}
	if opts.Regexp != "" {
		re, err := regexp2.Compile(opts.Regexp, regexp2.ECMAScript)
		if err != nil {
			slog.Debug("taskref: invalid regexp, rule disabled", "pattern", opts.Regexp, "err", err)
			return nil
		}
		re.MatchTimeout = MatchTimeout
		out = append(out, ecmaMatcher{re: re})
	}
	return out
}

// Keyword は comment に含まれる最初の（優先順位が最も高い）キーワードを返します。
func Keyword(comment string) (string, bool) {
	for i, re := range keywordRes {
		if re.MatchString(comment) {
			return Keywords[i], true
		}
	}
	return "", false
}

// URLs は comment 中の scheme://... 形式の部分文字列を返します。
func URLs(comment string) []string {
	return protocolURLRe.FindAllString(comment, -1)
}

// HasTaskReference は comment 中のいずれかの URL がいずれかの照合器に一致すれば true を返します。
func HasTaskReference(comment string, matchers []Matcher) bool {
	for _, url := range URLs(comment) {
		for _, m := range matchers {
			if m.MatchString(url) {
				return true
			}
		}
	}
	return false
}

// Scanner は設定済みの照合器でコメントを検査します。
type Scanner struct {
	matchers []Matcher
}

// NewScanner returns a scanner for opts. A scanner without matchers is inert.
func NewScanner(opts Options) *Scanner {
	return &Scanner{matchers: Matchers(opts)}
}

// Inert reports whether the scanner performs no checks.
func (s *Scanner) Inert() bool { return len(s.matchers) == 0 }

// Finding は違反したコメント 1 件です。
type Finding struct {
	Keyword string
	Comment source.Comment
}

// Scan は comments を文書順に調べ、違反を返します。
func (s *Scanner) Scan(comments []source.Comment) []Finding {
	if s.Inert() {
		return nil
	}
	var out []Finding
	for _, c := range comments {
		keyword, ok := Keyword(c.Value)
		if !ok {
			continue
		}
		if HasTaskReference(c.Value, s.matchers) {
			continue
		}
		out = append(out, Finding{Keyword: keyword, Comment: c})
	}
	return out
}

// Rule は todo-task-reference ルールです。
type Rule struct{}

// New returns the todo-task-reference rule.
func New() *Rule { return &Rule{} }

func (*Rule) Name() string { return "todo-task-reference" }

func (*Rule) Meta() lint.Meta {
	return lint.Meta{
		Type:        "problem",
		Description: "Require tracked comments (TODO, FIXME, ...) to link a task through a protocol URL",
		Messages: map[string]string{
			"missingTaskReference": "Comment with {{keyword}} must include a protocol URL with task reference that matches configured rule option.",
		},
		Defaults: map[string]any{"projectSlug": "", "urlPattern": "", "regexp": ""},
	}
}

func (r *Rule) New(options map[string]any) (lint.Checker, error) {
	raw := lint.NewOptions(options)
	opts := Options{
		ProjectSlug: raw.String("projectSlug"),
		URLPattern:  raw.String("urlPattern"),
		Regexp:      raw.String("regexp"),
	}
	if err := raw.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", r.Name(), err)
	}
	scanner := NewScanner(opts)
	if scanner.Inert() {
		return lint.Noop, nil
	}
	return scanner, nil
}

// Check implements lint.Checker.
func (s *Scanner) Check(f *lint.File, report func(lint.Report)) {
	for _, finding := range s.Scan(f.Code.Comments()) {
		report(lint.Report{
			MessageID: "missingTaskReference",
			Data:      map[string]string{"keyword": finding.Keyword},
			Loc:       finding.Comment.Loc,
			Range:     finding.Comment.Range,
		})
	}
}
