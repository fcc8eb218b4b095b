// Package gitremote は Git リモートから指摘位置のブラウズ用 URL を組み立てます。
package gitremote

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/phyten/monostyle/internal/execx"
)

// DefaultRemote はリモート名が空のときに使う名前です。
const DefaultRemote = "origin"

// Info は Git リモートから抽出したホスト・オーナー・リポジトリ情報です。
type Info struct {
	Host   string
	Owner  string
	Repo   string
	Scheme string
}

// Detect は repoDir のリモート URL を読み取り Info を返します。
func Detect(ctx context.Context, runner execx.Runner, repoDir, remote string) (Info, error) {
	if runner == nil {
		runner = execx.DefaultRunner()
	}
	remote = strings.TrimSpace(remote)
	if remote == "" {
		remote = DefaultRemote
	}
	key := fmt.Sprintf("remote.%s.url", remote)
	stdout, stderr, err := runner.Run(ctx, repoDir, "git", "config", "--get", key)
	if err != nil {
		return Info{}, &execx.CommandError{Name: "git", Args: []string{"config", "--get", key}, Stderr: string(stderr), Err: err}
	}
	raw := strings.TrimSpace(string(stdout))
	if raw == "" {
		return Info{}, fmt.Errorf("%s is empty", key)
	}
	return Parse(raw)
}

// HeadRevision は HEAD のコミット SHA を返します。
func HeadRevision(ctx context.Context, runner execx.Runner, repoDir string) (string, error) {
	if runner == nil {
		runner = execx.DefaultRunner()
	}
	stdout, stderr, err := runner.Run(ctx, repoDir, "git", "rev-parse", "HEAD")
	if err != nil {
		return "", &execx.CommandError{Name: "git", Args: []string{"rev-parse", "HEAD"}, Stderr: string(stderr), Err: err}
	}
	sha := strings.TrimSpace(string(stdout))
	if sha == "" {
		return "", errors.New("git rev-parse HEAD: empty output")
	}
	return sha, nil
}

// Parse はリモート URL (scp 形式, ssh://, git://, http(s)://) を解析します。
func Parse(raw string) (Info, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Info{}, errors.New("empty remote url")
	}
	switch {
	case strings.HasPrefix(raw, "ssh://"), strings.HasPrefix(raw, "git://"),
		strings.HasPrefix(raw, "http://"), strings.HasPrefix(raw, "https://"):
		u, err := url.Parse(raw)
		if err != nil {
			return Info{}, fmt.Errorf("invalid remote url: %w", err)
		}
		cleaned, err := url.PathUnescape(strings.TrimPrefix(u.Path, "/"))
		if err != nil {
			return Info{}, fmt.Errorf("invalid remote path: %w", err)
		}
		owner, repo, err := splitPath(cleaned)
		if err != nil {
			return Info{}, err
		}
		info := Info{Host: strings.ToLower(u.Host), Owner: owner, Repo: repo}
		if u.Scheme == "http" || u.Scheme == "https" {
			info.Scheme = strings.ToLower(u.Scheme)
		}
		return info, nil
	case strings.Contains(raw, "@") && strings.Contains(raw, ":"):
		// git@github.com:owner/repo.git
		withoutUser := raw[strings.Index(raw, "@")+1:]
		host, rest, ok := strings.Cut(withoutUser, ":")
		if !ok || host == "" {
			return Info{}, fmt.Errorf("invalid ssh remote: %s", raw)
		}
		owner, repo, err := splitPath(rest)
		if err != nil {
			return Info{}, err
		}
		return Info{Host: strings.ToLower(strings.TrimSpace(host)), Owner: owner, Repo: repo}, nil
	}
	return Info{}, fmt.Errorf("unsupported remote url: %s", raw)
}

func splitPath(p string) (string, string, error) {
	cleaned := strings.TrimSpace(p)
	cleaned = strings.TrimSuffix(cleaned, ".git")
	cleaned = strings.ReplaceAll(cleaned, "\\", "/")
	cleaned = strings.Trim(cleaned, "/")
	if cleaned == "" {
		return "", "", errors.New("missing owner/repo in remote url")
	}
	segments := strings.Split(cleaned, "/")
	if len(segments) < 2 {
		return "", "", errors.New("remote url must include owner and repo")
	}
	owner := segments[len(segments)-2]
	repo := segments[len(segments)-1]
	if owner == "" || repo == "" {
		return "", "", errors.New("invalid owner or repo in remote url")
	}
	return owner, repo, nil
}

// NormalizedScheme は http のときだけ http を返し、それ以外は https です。
func (i Info) NormalizedScheme() string {
	if strings.EqualFold(i.Scheme, "http") {
		return "http"
	}
	return "https"
}

// WebURL はリポジトリのトップページです。
func (i Info) WebURL() string {
	host := strings.TrimSuffix(i.Host, "/")
	return fmt.Sprintf("%s://%s/%s/%s", i.NormalizedScheme(), host, url.PathEscape(i.Owner), url.PathEscape(i.Repo))
}

// Linker は固定のリビジョンに対する blob URL を作ります。
type Linker struct {
	Info Info
	Rev  string
}

// NewLinker はリモートと HEAD を解決して Linker を返します。
func NewLinker(ctx context.Context, runner execx.Runner, repoDir, remote string) (*Linker, error) {
	info, err := Detect(ctx, runner, repoDir, remote)
	if err != nil {
		return nil, err
	}
	rev, err := HeadRevision(ctx, runner, repoDir)
	if err != nil {
		return nil, err
	}
	return &Linker{Info: info, Rev: rev}, nil
}

// Blob は file の line 行を指す URL を返します。入力が足りなければ空文字です。
func (l *Linker) Blob(file string, line int) string {
	if l == nil || l.Rev == "" || file == "" || line <= 0 {
		return ""
	}
	return fmt.Sprintf("%s/blob/%s/%s#L%d", l.Info.WebURL(), url.PathEscape(l.Rev), blobPath(file), line)
}

func blobPath(file string) string {
	parts := strings.Split(filepath.ToSlash(file), "/")
	for idx, part := range parts {
		parts[idx] = url.PathEscape(part)
	}
	return path.Join(parts...)
}
