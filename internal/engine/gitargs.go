package engine

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar"
)

// 生成物や依存ディレクトリ。どの深さにあっても除外する
var typicalExcludeGlobs = []string{
	"**/node_modules/**",
	"**/dist/**",
	"**/build/**",
	"**/coverage/**",
	"**/vendor/**",
	"**/.git/**",
	"**/*.min.js",
}

var typicalExcludePatterns = func() []string {
	out := make([]string, 0, len(typicalExcludeGlobs))
	for _, g := range typicalExcludeGlobs {
		out = append(out, ":(glob,exclude)"+g)
	}
	return out
}()

// buildListPathspecs builds the list to append after "--" for `git ls-files`.
func buildListPathspecs(includes, excludes []string, typical bool) []string {
	normalizedIncludes := make([]string, 0, len(includes))
	for _, raw := range includes {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		normalizedIncludes = append(normalizedIncludes, filepath.ToSlash(trimmed))
	}

	out := make([]string, 0, len(normalizedIncludes)+len(excludes)+len(typicalExcludePatterns)+1)
	if len(normalizedIncludes) == 0 {
		out = append(out, ".")
	} else {
		out = append(out, normalizedIncludes...)
	}

	if typical {
		out = append(out, typicalExcludePatterns...)
	}

	for _, raw := range excludes {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		trimmed = filepath.ToSlash(trimmed)
		if strings.HasPrefix(trimmed, ":!") || strings.HasPrefix(trimmed, ":(exclude)") || strings.HasPrefix(trimmed, ":(glob,exclude)") {
			out = append(out, trimmed)
			continue
		}
		out = append(out, ":(glob,exclude)"+trimmed)
	}
	return out
}

// pathFilter は git を使えないときに pathspec と同じ絞り込みを行います。
type pathFilter struct {
	includes []string
	excludes []string
}

func newPathFilter(includes, excludes []string, typical bool) pathFilter {
	var f pathFilter
	for _, raw := range includes {
		trimmed := strings.Trim(filepath.ToSlash(strings.TrimSpace(raw)), "/")
		if trimmed == "" || trimmed == "." {
			continue
		}
		f.includes = append(f.includes, trimmed)
	}
	if typical {
		f.excludes = append(f.excludes, typicalExcludeGlobs...)
	}
	for _, raw := range excludes {
		trimmed := filepath.ToSlash(strings.TrimSpace(raw))
		for _, prefix := range []string{":(glob,exclude)", ":(exclude)", ":!"} {
			trimmed = strings.TrimPrefix(trimmed, prefix)
		}
		if trimmed == "" {
			continue
		}
		f.excludes = append(f.excludes, trimmed)
	}
	return f
}

// Allows reports whether rel (slash separated, relative to the repo) passes the filter.
func (f pathFilter) Allows(rel string) bool {
	if len(f.includes) > 0 {
		ok := false
		for _, inc := range f.includes {
			if rel == inc || strings.HasPrefix(rel, inc+"/") || globMatch(inc, rel) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	for _, ex := range f.excludes {
		if globMatch(ex, rel) || strings.HasPrefix(rel, strings.TrimSuffix(ex, "/**")+"/") {
			return false
		}
	}
	return true
}

// SkipDir reports whether a whole directory is excluded.
func (f pathFilter) SkipDir(rel string) bool {
	if rel == ".git" {
		return true
	}
	probe := rel + "/_"
	for _, ex := range f.excludes {
		if globMatch(ex, probe) {
			return true
		}
	}
	return false
}

func globMatch(pattern, name string) bool {
	ok, err := doublestar.Match(pattern, name)
	return err == nil && ok
}

func CompilePathRegex(patterns []string) ([]*regexp.Regexp, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, raw := range patterns {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		rx, err := regexp.Compile(trimmed)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, rx)
	}
	return compiled, nil
}

func filterPathsByRegex(paths []string, rx []*regexp.Regexp) []string {
	if len(rx) == 0 {
		return paths
	}
	out := paths[:0]
	for _, p := range paths {
		for _, r := range rx {
			if r.MatchString(p) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}
