package engine

import (
	"path/filepath"
	"regexp"
	"testing"
)

func TestBuildListPathspecs_DefaultsToDot(t *testing.T) {
	t.Parallel()

	got := buildListPathspecs(nil, nil, false)
	want := []string{"."}
	if len(got) != len(want) || got[0] != want[0] {
		t.Fatalf("unexpected result: %#v", got)
	}
}

func TestBuildListPathspecsIncludesAndExcludes(t *testing.T) {
	t.Parallel()

	includes := []string{"src", " pkg ", "windows\\path"}
	excludes := []string{"fixtures/**", ":(exclude)third_party/**", ":!generated/**"}

	got := buildListPathspecs(includes, excludes, true)

	expectedHead := []string{"src", "pkg", filepath.ToSlash("windows\\path")}
	for i, want := range expectedHead {
		if i >= len(got) || got[i] != filepath.ToSlash(want) {
			t.Fatalf("include %d mismatch: got=%v want=%v", i, got, expectedHead)
		}
	}

	// typical excludes should follow includes
	typical := typicalExcludePatterns
	start := len(expectedHead)
	if len(got) < start+len(typical) {
		t.Fatalf("expected typical excludes to be appended: %v", got)
	}
	for i, want := range typical {
		if got[start+i] != want {
			t.Fatalf("typical exclude mismatch at %d: got=%q want=%q", start+i, got[start+i], want)
		}
	}

	tail := got[start+len(typical):]
	expectedTail := []string{":(glob,exclude)fixtures/**", ":(exclude)third_party/**", ":!generated/**"}
	if len(tail) != len(expectedTail) {
		t.Fatalf("exclude length mismatch: got=%v want=%v", tail, expectedTail)
	}
	for i, want := range expectedTail {
		if tail[i] != want {
			t.Fatalf("exclude %d mismatch: got=%q want=%q", i, tail[i], want)
		}
	}
}

func TestTypicalExcludePatternsUseGlobMagic(t *testing.T) {
	t.Parallel()

	want := map[string]bool{
		":(glob,exclude)**/node_modules/**": true,
		":(glob,exclude)**/*.min.js":        true,
		":(glob,exclude)**/coverage/**":     true,
	}
	for _, p := range typicalExcludePatterns {
		delete(want, p)
	}
	if len(want) != 0 {
		t.Fatalf("missing typical patterns: %v", want)
	}
}

func TestPathFilterは典型的な除外をどの深さでも適用する(t *testing.T) {
	t.Parallel()

	f := newPathFilter(nil, nil, true)
	cases := map[string]bool{
		"src/index.ts":                   true,
		"node_modules/left-pad/index.js": false,
		"packages/a/node_modules/x.js":   false,
		"packages/a/dist/bundle.js":      false,
		"vendor.js":                      true,
		"public/app.min.js":              false,
		"app.min.js":                     false,
		"coverage/lcov-report/sorter.js": false,
	}
	for rel, want := range cases {
		if got := f.Allows(rel); got != want {
			t.Errorf("Allows(%q)=%v want %v", rel, got, want)
		}
	}

	if !f.SkipDir("node_modules") || !f.SkipDir("packages/web/build") {
		t.Fatal("typical directories should be skipped")
	}
	if f.SkipDir("src") {
		t.Fatal("src should not be skipped")
	}
	if !newPathFilter(nil, nil, false).SkipDir(".git") {
		t.Fatal(".git is always skipped")
	}
}

func TestPathFilterIncludesAndExcludes(t *testing.T) {
	t.Parallel()

	f := newPathFilter([]string{"src/", "lib/*.js"}, []string{":(glob,exclude)src/gen/**", ":!src/legacy"}, false)
	cases := map[string]bool{
		"src/a.ts":          true,
		"src/deep/b.tsx":    true,
		"src/gen/api.ts":    false,
		"src/legacy/old.js": false,
		"lib/util.js":       true,
		"lib/sub/util.js":   false,
		"test/a.test.ts":    false,
	}
	for rel, want := range cases {
		if got := f.Allows(rel); got != want {
			t.Errorf("Allows(%q)=%v want %v", rel, got, want)
		}
	}
}

func TestCompilePathRegexTrimsAndValidates(t *testing.T) {
	t.Parallel()

	rx, err := CompilePathRegex([]string{"  ", "^src/", "(cmd|pkg)"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rx) != 2 {
		t.Fatalf("expected 2 regexps, got %d", len(rx))
	}

	if _, err := CompilePathRegex([]string{"["}); err == nil {
		t.Fatal("expected compile error for invalid regexp")
	}
}

func TestFilterPathsByRegex(t *testing.T) {
	t.Parallel()

	paths := []string{"src/main.ts", "pkg/util.js", "docs/readme.md"}
	rx := []*regexp.Regexp{regexp.MustCompile(`^src/`), regexp.MustCompile(`\.js$`)}

	got := filterPathsByRegex(append([]string(nil), paths...), rx)
	want := []string{"src/main.ts", "pkg/util.js"}
	if len(got) != len(want) {
		t.Fatalf("expected %d paths, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("path %d mismatch: got=%q want=%q", i, got[i], want[i])
		}
	}

	all := filterPathsByRegex(paths, nil)
	if len(all) != len(paths) {
		t.Fatalf("expected original slice when no regex: %d vs %d", len(all), len(paths))
	}
}
