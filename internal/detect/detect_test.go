package detect

import "testing"

func TestNormalizeLangNameAliases(t *testing.T) {
	cases := map[string]string{
		"JS":  "javascript",
		"Ts":  "typescript",
		"tsx": "typescriptreact",
		"JSX": "javascriptreact",
		"mts": "typescript",
	}
	for input, want := range cases {
		if got := NormalizeLangName(input); got != want {
			t.Fatalf("NormalizeLangName(%q)=%q want %q", input, got, want)
		}
	}
}

func TestCanonicalDetectLangsDedupes(t *testing.T) {
	in := []string{" js ", "TS", "js", "tsx"}
	got := CanonicalDetectLangs(in)
	want := []string{"javascript", "typescript", "typescriptreact"}
	if len(got) != len(want) {
		t.Fatalf("unexpected length: got=%v want=%v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("value mismatch at %d: got=%q want=%q", i, got[i], want[i])
		}
	}
}

func TestFromPathAndContentByExtension(t *testing.T) {
	cases := map[string]string{
		"src/index.js":       "javascript",
		"src/App.JSX":        "javascriptreact",
		"lib/types.d.ts":     "typescript",
		"lib/view.tsx":       "typescriptreact",
		"esm/loader.mjs":     "javascript",
		"README.md":          "",
		"scripts/build.json": "",
	}
	for path, want := range cases {
		if got := FromPathAndContent(path, nil).Name; got != want {
			t.Fatalf("FromPathAndContent(%q)=%q want %q", path, got, want)
		}
	}
}

func TestFromPathAndContentShebang(t *testing.T) {
	info := FromPathAndContent("bin/cli", []byte("#!/usr/bin/env node\nconsole.log(1)\n"))
	if info.Name != "javascript" {
		t.Fatalf("expected javascript from shebang, got %q", info.Name)
	}
	// 拡張子付きのファイルはシバンより拡張子を優先する
	info = FromPathAndContent("bin/cli.txt", []byte("#!/usr/bin/env node\n"))
	if info.Supported() {
		t.Fatalf("expected unsupported for .txt, got %q", info.Name)
	}
}

func TestMatchesLang(t *testing.T) {
	info := Info{Name: "typescript"}
	if !MatchesLang(info, nil) {
		t.Fatalf("empty allow list should match everything")
	}
	if !MatchesLang(info, []string{"js", "ts"}) {
		t.Fatalf("expected ts alias to match typescript")
	}
	if MatchesLang(info, []string{"js"}) {
		t.Fatalf("typescript must not match js")
	}
	if MatchesLang(Info{}, []string{"js"}) {
		t.Fatalf("undetected language must not match")
	}
}
