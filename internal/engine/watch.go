package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchDebounce は変更イベントをまとめる待ち時間です。
var WatchDebounce = 200 * time.Millisecond

// Watch は最初に全体を検査し、その後は変更されたファイルだけを検査し直して onResult に渡します。
// ctx が終了するまで戻りません（終了時は nil）。
func Watch(ctx context.Context, opts Options, onResult func(*Result, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	root := opts.RepoDir
	if root == "" {
		root = "."
	}
	filter := newPathFilter(nil, opts.Excludes, opts.ExcludeTypical)
	if err := addWatchDirs(watcher, root, root, filter); err != nil {
		return err
	}

	onResult(Run(ctx, opts))

	pending := make(map[string]struct{})
	timer := time.NewTimer(WatchDebounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			rel, relErr := filepath.Rel(root, ev.Name)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)
			if ev.Has(fsnotify.Create) {
				if err := addWatchDirs(watcher, root, ev.Name, filter); err == nil {
					slog.Debug("watching new path", "path", rel)
				}
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if !candidatePath(rel) || !filter.Allows(rel) {
				continue
			}
			slog.Debug("watch event", "op", ev.Op.String(), "file", rel)
			pending[rel] = struct{}{}
			timer.Reset(WatchDebounce)
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Debug("watch error", "err", werr)
		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			next := opts
			next.only = pending
			pending = make(map[string]struct{})
			onResult(Run(ctx, next))
		}
	}
}

// addWatchDirs は start 以下のディレクトリを監視対象に加えます。start がファイルなら何もしません。
func addWatchDirs(w *fsnotify.Watcher, root, start string, filter pathFilter) error {
	return filepath.WalkDir(start, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr == nil && rel != "." && filter.SkipDir(filepath.ToSlash(rel)) {
			return filepath.SkipDir
		}
		if err := w.Add(p); err != nil {
			return fmt.Errorf("watch %s: %w", p, err)
		}
		return nil
	})
}
