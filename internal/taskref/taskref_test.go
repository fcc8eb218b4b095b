package taskref

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phyten/monostyle/internal/jsparse"
	"github.com/phyten/monostyle/internal/lint"
	"github.com/phyten/monostyle/internal/model"
)

func runRule(t *testing.T, options map[string]any, code string) []model.Diagnostic {
	t.Helper()
	rule := New()
	checker, err := rule.New(options)
	require.NoError(t, err)
	parsed, err := jsparse.Parse(context.Background(), "fixture.ts", []byte(code), "ts", jsparse.Options{})
	require.NoError(t, err)
	rs := lint.RuleSet{Rules: []lint.Enabled{{Rule: rule, Severity: lint.SeverityWarn, Checker: checker}}}
	return rs.Run(&lint.File{Path: parsed.Path, Code: parsed.Code, Nodes: parsed.Nodes})
}

func TestScannerMatcherSemantics(t *testing.T) {
	cases := []struct {
		name    string
		options map[string]any
		code    string
		want    int
	}{
		{
			name:    "slug inside url",
			options: map[string]any{"projectSlug": "XXX"},
			code:    "// TODO: sync with backend in https://tracker.local/browse/XXX-1444\n",
			want:    0,
		},
		{
			name:    "slug without url",
			options: map[string]any{"projectSlug": "XXX"},
			code:    "// TODO: sync with backend in XXX-1444\n",
			want:    1,
		},
		{
			name:    "regexp needs a scheme",
			options: map[string]any{"regexp": `task/\d+`},
			code:    "/* FIXME: task in tracker.local/task/999 */\n",
			want:    1,
		},
		{
			name:    "regexp inside url",
			options: map[string]any{"regexp": `task/\d+`},
			code:    "/* FIXME: task in https://tracker.local/task/999 */\n",
			want:    0,
		},
		{
			name:    "url pattern is case-insensitive",
			options: map[string]any{"urlPattern": "tracker.local/browse"},
			code:    "// HACK see HTTPS://Tracker.Local/Browse/1\n",
			want:    0,
		},
		{
			name:    "url without reference",
			options: map[string]any{"projectSlug": "APP"},
			code:    "// TODO see https://example.com/docs\n",
			want:    1,
		},
		{
			name:    "slug is word bounded",
			options: map[string]any{"projectSlug": "APP"},
			code:    "// TODO see https://tracker.local/MYAPP-12\n",
			want:    1,
		},
		{
			name:    "any matcher on any url",
			options: map[string]any{"projectSlug": "APP", "urlPattern": "/issues/"},
			code:    "// BUG https://example.com/x https://git.local/org/repo/issues/7\n",
			want:    0,
		},
		{
			name:    "untracked comment",
			options: map[string]any{"projectSlug": "APP"},
			code:    "// just a note\n/* todolist is not a keyword */\n",
			want:    0,
		},
		{
			name:    "regexp is case-sensitive",
			options: map[string]any{"regexp": "TASK-[0-9]+"},
			code:    "// TODO https://tracker.local/task-1\n",
			want:    1,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Len(t, runRule(t, tc.options, tc.code), tc.want)
		})
	}
}

func TestScannerReportsFirstKeywordAndLocation(t *testing.T) {
	code := "const a = 1;\n  /* XXX and FIXME and todo */\n"
	diags := runRule(t, map[string]any{"projectSlug": "APP"}, code)
	require.Len(t, diags, 1)
	d := diags[0]
	assert.Equal(t, "missingTaskReference", d.MessageID)
	assert.Equal(t, map[string]string{"keyword": "TODO"}, d.Data)
	assert.Equal(t, "Comment with TODO must include a protocol URL with task reference that matches configured rule option.", d.Message)
	assert.Equal(t, model.SeverityWarning, d.Severity)
	assert.Equal(t, model.Span{StartLine: 2, StartCol: 3, EndLine: 2, EndCol: 31, ByteStart: 15, ByteEnd: 43}, d.Span)
	assert.False(t, d.Fixable())
}

func TestInvalidRegexpMakesRuleInert(t *testing.T) {
	code := "// TODO nothing\n/* FIXME */\n// HACK https://x.local/y\n"
	assert.Empty(t, runRule(t, map[string]any{"regexp": "(unclosed"}, code))
	// 他の指定があっても全体が無効になる
	assert.Empty(t, runRule(t, map[string]any{"regexp": "[", "projectSlug": "APP"}, code))
}

func TestNoOptionsIsInert(t *testing.T) {
	code := "// TODO nothing\n"
	assert.Empty(t, runRule(t, nil, code))
	assert.Empty(t, runRule(t, map[string]any{"projectSlug": "", "regexp": ""}, code))

	checker, err := New().New(nil)
	require.NoError(t, err)
	_, isScanner := checker.(*Scanner)
	assert.False(t, isScanner, "inert configuration must not install a scanner")
}

func TestRuleRejectsBadOptions(t *testing.T) {
	_, err := New().New(map[string]any{"project": "APP"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown option: project")

	_, err = New().New(map[string]any{"projectSlug": 12})
	require.Error(t, err)
}

func TestKeyword(t *testing.T) {
	kw, ok := Keyword(" warning: fragile")
	require.True(t, ok)
	assert.Equal(t, "WARNING", kw)

	kw, ok = Keyword(" WARN only")
	require.True(t, ok)
	assert.Equal(t, "WARN", kw)

	_, ok = Keyword(" TODOS are fine")
	assert.False(t, ok)
}

func TestURLs(t *testing.T) {
	assert.Equal(t,
		[]string{"https://a.local/x?y=1", "git+ssh://host/repo.git"},
		URLs(" see https://a.local/x?y=1 and git+ssh://host/repo.git\tnext"))
	assert.Empty(t, URLs(" tracker.local/task/1 "))

	// 全角空白やノーブレークスペースでも URL は終わる
	assert.Equal(t,
		[]string{"https://example.com/docs", "https://b.local/y"},
		URLs(" https://example.com/docs\u3000APP-12の対応 https://b.local/y\u00a0z"))
}

func TestSlugAfterIdeographicSpaceIsOutsideURL(t *testing.T) {
	code := "// TODO https://example.com/docs\u3000APP-12の対応\nconst a = 1;\n"
	diags := runRule(t, map[string]any{"projectSlug": "APP"}, code)
	require.Len(t, diags, 1)
	assert.Equal(t, "missingTaskReference", diags[0].MessageID)

	assert.Empty(t, runRule(t, map[string]any{"projectSlug": "APP"},
		"// TODO https://example.com/APP-12\u3000対応\nconst a = 1;\n"))
}

func TestECMAScriptSyntax(t *testing.T) {
	// JavaScript 形式の正規表現がそのまま使える
	ms := Matchers(Options{Regexp: `[A-Z]+-\d+$`})
	require.Len(t, ms, 1)
	assert.True(t, ms[0].MatchString("https://t.local/browse/ABC-12"))
	assert.False(t, ms[0].MatchString("https://t.local/browse/abc-12"))
}
