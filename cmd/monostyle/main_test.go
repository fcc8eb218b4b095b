package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/phyten/monostyle/internal/engine"
)

const badImport = "import { a, b, c, d } from 'mod';\n"
const fixedImport = "import {\n  a,\n  b,\n  c,\n  d\n} from 'mod';\n"

// isolateEnv は利用者の設定ファイルや環境変数を読まないようにします。
func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "MONOSTYLE_") {
			key, _, _ := strings.Cut(kv, "=")
			t.Setenv(key, "")
		}
	}
}

func writeRepo(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatalf("ファイルの作成に失敗しました: %v", err)
		}
	}
	return root
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestLintReportsProblems(t *testing.T) {
	isolateEnv(t)
	repo := writeRepo(t, map[string]string{"src/a.ts": badImport, "src/ok.js": "export const a = 1;\n"})

	code, out, errOut := runCLI(t, "--repo", repo, "--no-progress")
	if code != exitProblem {
		t.Fatalf("終了コードが一致しません: got=%d\nstdout:\n%s\nstderr:\n%s", code, out, errOut)
	}
	for _, want := range []string{"named-specifiers-newline", "src/a.ts:1:", "✖ 1 problem (1 error, 0 warnings)", "1 problem potentially fixable with --fix"} {
		if !strings.Contains(out, want) {
			t.Fatalf("出力に %q がありません:\n%s", want, out)
		}
	}
}

func TestLintCleanRepositoryExitsZero(t *testing.T) {
	isolateEnv(t)
	repo := writeRepo(t, map[string]string{"a.ts": fixedImport})

	code, out, _ := runCLI(t, "lint", "--repo", repo)
	if code != exitOK {
		t.Fatalf("終了コードが一致しません: got=%d\n%s", code, out)
	}
	if strings.TrimSpace(out) != "No problems found (1 file checked)" {
		t.Fatalf("予期しない出力: %q", out)
	}
}

func TestLintFixWritesFiles(t *testing.T) {
	isolateEnv(t)
	repo := writeRepo(t, map[string]string{"a.ts": badImport})

	code, out, _ := runCLI(t, "--repo", repo, "--fix")
	if code != exitOK {
		t.Fatalf("修正後は成功するはずです: got=%d\n%s", code, out)
	}
	if !strings.Contains(out, "Fixed 1 file") {
		t.Fatalf("修正件数がありません:\n%s", out)
	}
	data, err := os.ReadFile(filepath.Join(repo, "a.ts"))
	if err != nil || string(data) != fixedImport {
		t.Fatalf("ファイルが修正されていません: %q %v", data, err)
	}
}

func TestLintDryRunJSON(t *testing.T) {
	isolateEnv(t)
	repo := writeRepo(t, map[string]string{"a.ts": badImport})

	code, out, _ := runCLI(t, "--repo", repo, "--dry-run", "--format", "json")
	if code != exitOK {
		t.Fatalf("終了コードが一致しません: got=%d\n%s", code, out)
	}
	var res engine.Result
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("JSONのデコードに失敗しました: %v\n%s", err, out)
	}
	if len(res.Fixed) != 1 || res.Fixed[0].Written || res.Fixed[0].Output != fixedImport {
		t.Fatalf("dry-run の結果が一致しません: %+v", res.Fixed)
	}
	data, _ := os.ReadFile(filepath.Join(repo, "a.ts"))
	if string(data) != badImport {
		t.Fatalf("dry-run でファイルが変わりました:\n%s", data)
	}
}

func TestLintRuleOverrideAndMaxWarnings(t *testing.T) {
	isolateEnv(t)
	repo := writeRepo(t, map[string]string{"a.ts": badImport})

	code, out, _ := runCLI(t, "--repo", repo, "--rule", "named-specifiers-newline=warn")
	if code != exitOK {
		t.Fatalf("warning だけなら成功するはずです: got=%d\n%s", code, out)
	}
	if !strings.Contains(out, "(0 errors, 1 warning)") {
		t.Fatalf("warning として報告されていません:\n%s", out)
	}

	code, _, _ = runCLI(t, "--repo", repo, "--rule", "named-specifiers-newline=warn", "--max-warnings", "0")
	if code != exitProblem {
		t.Fatalf("--max-warnings 0 を超えたら失敗するはずです: got=%d", code)
	}

	code, out, _ = runCLI(t, "--repo", repo, "--rule", "named-specifiers-newline=warn", "--max-warnings", "0", "--quiet")
	if code != exitOK {
		t.Fatalf("--quiet では warning を数えないはずです: got=%d\n%s", code, out)
	}
	if strings.Contains(out, "named-specifiers-newline") {
		t.Fatalf("--quiet で warning が表示されました:\n%s", out)
	}

	code, out, _ = runCLI(t, "--repo", repo, "--rule", `named-specifiers-newline=["error",{"minSpecifiers":5}]`)
	if code != exitOK {
		t.Fatalf("minSpecifiers=5 なら報告されないはずです: got=%d\n%s", code, out)
	}
}

func TestLintReadsConfigFile(t *testing.T) {
	isolateEnv(t)
	repo := writeRepo(t, map[string]string{
		"a.ts":            badImport,
		".monostyle.yaml": "output: tsv\nrules:\n  named-specifiers-newline: warn\n",
	})

	code, out, errOut := runCLI(t, "--repo", repo)
	if code != exitOK {
		t.Fatalf("終了コードが一致しません: got=%d\n%s\n%s", code, out, errOut)
	}
	if !strings.HasPrefix(out, "SEVERITY\tLOCATION\tRULE\tMESSAGE\n") || !strings.Contains(out, "warning\ta.ts:1:") {
		t.Fatalf("設定ファイルの output/rules が反映されていません:\n%s", out)
	}

	// フラグは設定ファイルより優先される
	code, out, _ = runCLI(t, "--repo", repo, "--format", "csv", "--rule", "named-specifiers-newline=off")
	if code != exitOK {
		t.Fatalf("終了コードが一致しません: got=%d\n%s", code, out)
	}
	if out != "SEVERITY,LOCATION,RULE,MESSAGE\r\n" {
		t.Fatalf("フラグが優先されていません: %q", out)
	}
}

func TestLintReadsEnvironment(t *testing.T) {
	isolateEnv(t)
	repo := writeRepo(t, map[string]string{"a.ts": badImport, "b.ts": badImport})
	envFile := filepath.Join(t.TempDir(), "monostyle.env")
	if err := os.WriteFile(envFile, []byte("MONOSTYLE_OUTPUT=ndjson\nMONOSTYLE_PATH_REGEX=^a[.]ts$\n"), 0o644); err != nil {
		t.Fatalf("env ファイルの作成に失敗しました: %v", err)
	}

	code, out, _ := runCLI(t, "--repo", repo, "--env-file", envFile)
	if code != exitProblem {
		t.Fatalf("終了コードが一致しません: got=%d\n%s", code, out)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 1 || !strings.Contains(lines[0], `"file":"a.ts"`) {
		t.Fatalf("env ファイルの設定が反映されていません:\n%s", out)
	}

	// プロセスの環境変数は env ファイルより優先される
	t.Setenv("MONOSTYLE_OUTPUT", "tsv")
	_, out, _ = runCLI(t, "--repo", repo, "--env-file", envFile)
	if !strings.HasPrefix(out, "SEVERITY\t") {
		t.Fatalf("環境変数が優先されていません:\n%s", out)
	}
}

func TestLintSyntaxErrorIsReported(t *testing.T) {
	isolateEnv(t)
	repo := writeRepo(t, map[string]string{"broken.js": "import { a, from\n", "ok.ts": fixedImport})

	code, out, errOut := runCLI(t, "--repo", repo)
	if code != exitProblem {
		t.Fatalf("構文エラーは失敗として扱うはずです: got=%d", code)
	}
	if !strings.HasPrefix(errOut, "broken.js:") || !strings.Contains(errOut, ": parse: ") {
		t.Fatalf("stderr に構文エラーがありません:\n%s", errOut)
	}
	if !strings.Contains(out, "1 file could not be linted") {
		t.Fatalf("まとめに失敗件数がありません:\n%s", out)
	}
}

func TestUsageErrorsExitTwo(t *testing.T) {
	isolateEnv(t)
	repo := writeRepo(t, map[string]string{"a.ts": fixedImport})

	cases := [][]string{
		{"--repo", repo, "--no-such-flag"},
		{"--repo", repo, "--format", "xml"},
		{"--repo", repo, "--rule", "no-such-rule=error"},
		{"--repo", repo, "--fields", "author"},
		{"--repo", repo, "--lang", "python"},
		{"--repo", repo, "--color", "rainbow"},
		{"--repo", repo, "--config", filepath.Join(repo, "missing.yaml")},
	}
	for _, args := range cases {
		code, _, errOut := runCLI(t, args...)
		if code != exitUsage {
			t.Fatalf("%v: 終了コードが一致しません: got=%d\n%s", args, code, errOut)
		}
		if !strings.HasPrefix(errOut, "monostyle: ") {
			t.Fatalf("%v: エラーメッセージがありません: %q", args, errOut)
		}
	}
}

func TestRulesCommand(t *testing.T) {
	isolateEnv(t)
	t.Setenv("MONOSTYLE_RULES", `{"todo-task-reference": ["warn", {"projectSlug": "ABC"}]}`)

	code, out, _ := runCLI(t, "rules", "--format", "json")
	if code != exitOK {
		t.Fatalf("終了コードが一致しません: got=%d", code)
	}
	var rows []ruleRow
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("JSONのデコードに失敗しました: %v\n%s", err, out)
	}
	if len(rows) != 4 {
		t.Fatalf("ルール数が一致しません: %+v", rows)
	}
	for _, r := range rows {
		if r.Name == "todo-task-reference" && (r.Severity != "warn" || r.DefaultSeverity != "off" || r.Options["projectSlug"] != "ABC") {
			t.Fatalf("環境変数のルール設定が反映されていません: %+v", r)
		}
	}

	code, out, _ = runCLI(t, "rules")
	if code != exitOK || !strings.HasPrefix(out, "RULE") || !strings.Contains(out, "multiline-array-brackets") {
		t.Fatalf("表形式の出力が一致しません: %d\n%s", code, out)
	}
}

func TestReportErrors(t *testing.T) {
	var buf bytes.Buffer
	reportErrors(&buf, []engine.ItemError{
		{File: "a.ts", Line: 3, Stage: "parse", Message: "3:5: syntax error"},
		{File: "b.ts", Stage: "write", Message: "permission denied"},
	})
	want := "a.ts:3: parse: 3:5: syntax error\nb.ts: write: permission denied\n"
	if buf.String() != want {
		t.Fatalf("出力が一致しません:\n got: %q\nwant: %q", buf.String(), want)
	}
}

func TestExitError(t *testing.T) {
	err := usageError(errors.New("bad"))
	var ee *exitError
	if !errors.As(err, &ee) || ee.code != exitUsage || err.Error() != "bad" {
		t.Fatalf("予期しない exitError: %#v", err)
	}
	if (&exitError{code: exitProblem}).Error() != "exit status 1" {
		t.Fatal("err が nil の場合の表示が一致しません")
	}
}
