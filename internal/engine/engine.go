package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/phyten/monostyle/internal/detect"
	"github.com/phyten/monostyle/internal/execx"
	"github.com/phyten/monostyle/internal/fix"
	"github.com/phyten/monostyle/internal/gitremote"
	"github.com/phyten/monostyle/internal/jsparse"
	"github.com/phyten/monostyle/internal/lint"
	"github.com/phyten/monostyle/internal/model"
	"github.com/phyten/monostyle/internal/progress"
)

const maxWorkers = 64

// Run は指定されたオプションに従ってリポジトリのファイルを検査し、指摘の一覧と集計を返します。
//
// ファイル単位の失敗（読み込み、構文エラー、書き込み）は Result.Errors に集約され、
// 他のファイルの検査は続行されます。ファイル一覧の取得に失敗した場合だけ error を返します。
func Run(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()
	if opts.Jobs <= 0 {
		opts.Jobs = runtime.NumCPU()
	}
	if opts.Jobs > maxWorkers {
		opts.Jobs = maxWorkers
	}
	if opts.Runner == nil {
		opts.Runner = execx.DefaultRunner()
	}
	if opts.RepoDir == "" {
		opts.RepoDir = "."
	}
	if len(opts.PathRegexCompiled) == 0 && len(opts.PathRegex) > 0 {
		rx, err := CompilePathRegex(opts.PathRegex)
		if err != nil {
			return nil, fmt.Errorf("invalid path regex: %w", err)
		}
		opts.PathRegexCompiled = rx
	}

	obs := opts.Observer
	if obs == nil {
		obs = progress.NoopObserver{}
	}

	files, err := listFiles(ctx, opts)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return &Result{ElapsedMS: msSince(start)}, nil
	}

	est := progress.NewEstimator(len(files), progress.Config{})

	jobs := make(chan string)
	results := make(chan fileResult)

	workers := opts.Jobs
	if workers > len(files) {
		workers = len(files)
	}
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for rel := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				res := lintFile(ctx, opts, rel)
				if snap, notify := est.Record(progress.Outcome{Problems: len(res.items), Failed: len(res.errs) > 0}); notify {
					obs.Publish(snap)
				}
				results <- res
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, rel := range files {
			select {
			case <-ctx.Done():
				return
			case jobs <- rel:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	out := &Result{}
	for res := range results {
		if res.skipped {
			continue
		}
		out.Files++
		out.Items = append(out.Items, res.items...)
		out.Errors = append(out.Errors, res.errs...)
		if res.fixed != nil {
			out.Fixed = append(out.Fixed, *res.fixed)
		}
	}
	obs.Done(est.Complete())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sortItems(out.Items)
	sort.SliceStable(out.Fixed, func(i, j int) bool { return out.Fixed[i].File < out.Fixed[j].File })
	sort.SliceStable(out.Errors, func(i, j int) bool {
		if out.Errors[i].File == out.Errors[j].File {
			if out.Errors[i].Line == out.Errors[j].Line {
				return out.Errors[i].Stage < out.Errors[j].Stage
			}
			return out.Errors[i].Line < out.Errors[j].Line
		}
		return out.Errors[i].File < out.Errors[j].File
	})
	if opts.Links && len(out.Items) > 0 {
		attachLinks(ctx, opts, out.Items)
	}
	out.tally()
	out.ElapsedMS = msSince(start)
	return out, nil
}

// attachLinks は HEAD 上の該当行への URL を各指摘に付けます。解決できなければ何もしません。
func attachLinks(ctx context.Context, opts Options, items []Item) {
	linker, err := gitremote.NewLinker(ctx, opts.Runner, opts.RepoDir, opts.LinkRemote)
	if err != nil {
		slog.Warn("links disabled", "repo", opts.RepoDir, "err", err)
		return
	}
	for i := range items {
		items[i].URL = linker.Blob(items[i].File, items[i].Line)
	}
}

type fileResult struct {
	items   []Item
	fixed   *FixedFile
	errs    []ItemError
	skipped bool
}

func lintFile(ctx context.Context, opts Options, rel string) fileResult {
	abs := filepath.Join(opts.RepoDir, filepath.FromSlash(rel))
	info, err := os.Stat(abs)
	if err != nil {
		if len(opts.only) > 0 && errors.Is(err, fs.ErrNotExist) {
			// 監視中に削除・改名されたファイル
			return fileResult{skipped: true}
		}
		return fileResult{errs: []ItemError{newItemError(rel, 0, "stat", err)}}
	}
	if opts.MaxFileBytes > 0 && info.Size() > int64(opts.MaxFileBytes) {
		// 拡張子で対象外と分かるものは読まずに飛ばす
		if lang := detect.FromPathAndContent(rel, nil); !lang.Supported() || !detect.MatchesLang(lang, opts.DetectLangs) {
			return fileResult{skipped: true}
		}
		err := fmt.Errorf("%d bytes > %d: %w", info.Size(), opts.MaxFileBytes, jsparse.ErrFileTooLarge)
		return fileResult{errs: []ItemError{newItemError(rel, 0, "size", err)}}
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return fileResult{errs: []ItemError{newItemError(rel, 0, "read", err)}}
	}
	lang := detect.FromPathAndContent(rel, data)
	if !lang.Supported() || !detect.MatchesLang(lang, opts.DetectLangs) {
		return fileResult{skipped: true}
	}

	src, err := LintSource(ctx, rel, data, lang.Name, opts.Rules, SourceOptions{Fix: opts.Fix, MaxBytes: opts.MaxFileBytes})
	if err != nil {
		return fileResult{errs: []ItemError{newItemError(rel, errorLine(err), "parse", err)}}
	}
	res := fileResult{items: make([]Item, 0, len(src.Diagnostics))}
	for _, d := range src.Diagnostics {
		res.items = append(res.items, itemFromDiagnostic(d))
	}
	if !src.Changed {
		return res
	}
	fixed := &FixedFile{File: rel}
	if opts.DryRun {
		fixed.Output = src.Output
	} else {
		if err := os.WriteFile(abs, []byte(src.Output), info.Mode().Perm()); err != nil {
			res.errs = append(res.errs, newItemError(rel, 0, "write", err))
			return res
		}
		fixed.Written = true
	}
	res.fixed = fixed
	return res
}

// SourceOptions は LintSource の挙動を調整します。
type SourceOptions struct {
	Fix       bool
	MaxBytes  int
	MaxPasses int
}

// SourceResult は 1 バッファ分の検査結果です。
type SourceResult struct {
	Language    string
	Diagnostics []model.Diagnostic
	// Output は修正後のテキストです。修正しない場合は入力と同じです。
	Output  string
	Changed bool
}

// LintSource は content を rs で検査します。opts.Fix が true なら修正を収束するまで適用し、
// 修正後のテキストに残った指摘を返します。
func LintSource(ctx context.Context, path string, content []byte, lang string, rs lint.RuleSet, opts SourceOptions) (*SourceResult, error) {
	var language string
	lintText := func(text string) ([]model.Diagnostic, error) {
		parsed, err := jsparse.Parse(ctx, path, []byte(text), lang, jsparse.Options{MaxBytes: opts.MaxBytes})
		if err != nil {
			return nil, err
		}
		language = parsed.Language
		return rs.Run(&lint.File{Path: path, Code: parsed.Code, Nodes: parsed.Nodes}), nil
	}

	input := string(content)
	if !opts.Fix {
		diags, err := lintText(input)
		if err != nil {
			return nil, err
		}
		return &SourceResult{Language: language, Diagnostics: diags, Output: input}, nil
	}
	output, diags, err := fix.Loop(input, lintText, opts.MaxPasses)
	if err != nil && output == input && diags == nil {
		return nil, err
	}
	if err != nil {
		// 修正の途中で解析できなくなった。直前の状態を採用する
		slog.Debug("fix pass produced unparsable text", "file", path, "err", err)
	}
	return &SourceResult{Language: language, Diagnostics: diags, Output: output, Changed: output != input}, nil
}

func sortItems(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Column != b.Column {
			return a.Column < b.Column
		}
		return a.Rule < b.Rule
	})
}

func (r *Result) tally() {
	r.Total = len(r.Items)
	r.ErrorCount, r.WarningCount, r.FixableCount = 0, 0, 0
	for _, it := range r.Items {
		switch it.Severity {
		case model.SeverityError:
			r.ErrorCount++
		case model.SeverityWarning:
			r.WarningCount++
		}
		if it.Fixable {
			r.FixableCount++
		}
	}
}

func newItemError(file string, line int, stage string, err error) ItemError {
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		msg = "unknown error"
	}
	return ItemError{File: file, Line: line, Stage: stage, Message: msg}
}

// errorLine は "行:桁: syntax error" 形式のエラーから行番号を取り出します。
func errorLine(err error) int {
	if !errors.Is(err, jsparse.ErrSyntax) {
		return 0
	}
	var line, col int
	if _, scanErr := fmt.Sscanf(err.Error(), "%d:%d:", &line, &col); scanErr != nil {
		return 0
	}
	return line
}

func msSince(t time.Time) int64 {
	return time.Since(t).Milliseconds()
}
