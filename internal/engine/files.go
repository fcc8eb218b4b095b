package engine

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"path/filepath"
	"sort"

	"github.com/phyten/monostyle/internal/detect"
	"github.com/phyten/monostyle/internal/execx"
)

// listFiles は検査候補のファイル（リポジトリ相対、スラッシュ区切り）を返します。
// git の作業ツリーでなければディレクトリを走査します。
func listFiles(ctx context.Context, opts Options) ([]string, error) {
	files, err := gitListFiles(ctx, opts.Runner, opts.RepoDir, opts.Paths, opts.Excludes, opts.ExcludeTypical)
	if err != nil {
		if !execx.IsNotFound(err) && !execx.IsNotRepository(err) {
			return nil, err
		}
		slog.Debug("git unavailable, walking the directory", "repo", opts.RepoDir, "err", err)
		files, err = walkFiles(ctx, opts.RepoDir, newPathFilter(opts.Paths, opts.Excludes, opts.ExcludeTypical))
		if err != nil {
			return nil, err
		}
	}
	files = filterPathsByRegex(files, opts.PathRegexCompiled)

	out := files[:0]
	for _, f := range files {
		if len(opts.only) > 0 {
			if _, ok := opts.only[f]; !ok {
				continue
			}
		}
		if !candidatePath(f) {
			continue
		}
		out = append(out, f)
	}
	sort.Strings(out)
	return out, nil
}

// candidatePath は拡張子で候補を絞ります。拡張子の無いファイルは shebang を見るため残します。
func candidatePath(rel string) bool {
	ext := path.Ext(rel)
	if ext == "" {
		return true
	}
	return detect.FromPathAndContent(rel, nil).Supported()
}

func gitListFiles(ctx context.Context, runner execx.Runner, repo string, includes, excludes []string, typical bool) ([]string, error) {
	args := []string{"-c", "core.quotePath=false", "ls-files", "--cached", "--others", "--exclude-standard", "-z", "--"}
	args = append(args, buildListPathspecs(includes, excludes, typical)...)
	out, err := execx.Output(ctx, runner, repo, "git", args...)
	if err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}
	if len(out) == 0 {
		return nil, nil
	}
	parts := bytes.Split(out, []byte{0})
	paths := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		if len(p) == 0 {
			continue
		}
		rel := filepath.ToSlash(string(p))
		// --cached と --others の両方に出るファイルがある
		if _, dup := seen[rel]; dup {
			continue
		}
		seen[rel] = struct{}{}
		paths = append(paths, rel)
	}
	return paths, nil
}

func walkFiles(ctx context.Context, repo string, filter pathFilter) ([]string, error) {
	root := repo
	if root == "" {
		root = "."
	}
	var paths []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if rel != "." && filter.SkipDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if filter.Allows(rel) {
			paths = append(paths, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return paths, nil
}
