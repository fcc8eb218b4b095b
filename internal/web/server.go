// Package web は serve サブコマンドの HTTP ハンドラーです。
// 貼り付けたコードの検査（/api/lint）、リポジトリ全体の検査（/api/run と SSE 版）、
// ルール一覧、ヘルスチェック、Prometheus のメトリクスを提供します。
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/phyten/monostyle/internal/detect"
	"github.com/phyten/monostyle/internal/engine"
	engineopts "github.com/phyten/monostyle/internal/engine/opts"
	"github.com/phyten/monostyle/internal/jsparse"
	"github.com/phyten/monostyle/internal/lint"
	"github.com/phyten/monostyle/internal/progress"
	"github.com/phyten/monostyle/internal/rules"
)

// maxLintBody は /api/lint が受け付ける本文の上限です。
const maxLintBody = 1 << 20

type Config struct {
	// Defaults は /api/run の基準になるオプションです。クエリはこれを上書きします。
	Defaults engine.Options
	// Rules は設定ファイルと環境変数から決まったルール設定です。
	Rules     map[string]rules.Setting
	CacheSize int
	Logger    *slog.Logger
}

type Server struct {
	defaults engine.Options
	rules    map[string]rules.Setting
	cache    *lru.Cache[string, lint.RuleSet]
	metrics  *metrics
	logger   *slog.Logger
}

func New(cfg Config) (*Server, error) {
	size := cfg.CacheSize
	if size <= 0 {
		size = 64
	}
	cache, err := lru.New[string, lint.RuleSet](size)
	if err != nil {
		return nil, fmt.Errorf("create rule set cache: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		defaults: cfg.Defaults,
		rules:    rules.Merge(nil, cfg.Rules),
		cache:    cache,
		metrics:  newMetrics(),
		logger:   logger,
	}
	// 起動時に設定の誤りを検出する
	if _, err := s.ruleSet(s.rules); err != nil {
		return nil, err
	}
	return s, nil
}

// Handler は全ルートを登録した http.Handler を返します。
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return mux
}

func (s *Server) Register(mux *http.ServeMux) {
	registerAssets(mux)
	mux.HandleFunc("/api/lint", s.metrics.instrument("lint", s.lintHandler))
	mux.HandleFunc("/api/run", s.metrics.instrument("run", s.runHandler))
	mux.HandleFunc("/api/run/stream", s.metrics.instrument("run_stream", s.runStreamHandler))
	mux.HandleFunc("/api/rules", s.metrics.instrument("rules", s.rulesHandler))
	mux.HandleFunc("/healthz", healthHandler)
	mux.Handle("/metrics", s.metrics.handler())
}

type lintRequest struct {
	Code  string         `json:"code"`
	Lang  string         `json:"lang"`
	Path  string         `json:"path"`
	Rules map[string]any `json:"rules"`
	Fix   bool           `json:"fix"`
}

type lintResponse struct {
	Language string        `json:"language"`
	Items    []engine.Item `json:"items"`
	Output   string        `json:"output"`
	Changed  bool          `json:"changed"`
}

func (s *Server) lintHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	var req lintRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLintBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	path := strings.TrimSpace(req.Path)
	lang := strings.TrimSpace(req.Lang)
	if lang == "" && path != "" {
		lang = detect.FromPathAndContent(path, []byte(req.Code)).Name
	}
	if lang == "" {
		lang = detect.TypeScript
	}
	if !detect.KnownLanguage(lang) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("unsupported language: %s (supported: %s)", lang, strings.Join(detect.Languages(), ", ")))
		return
	}
	if path == "" {
		path = "<input>"
	}

	overrides, err := decodeRuleOverrides(req.Rules)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rs, err := s.ruleSet(rules.Merge(s.rules, overrides))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	start := time.Now()
	res, err := engine.LintSource(r.Context(), path, []byte(req.Code), lang, rs, engine.SourceOptions{Fix: req.Fix, MaxBytes: maxLintBody})
	s.metrics.observeDuration("lint", start)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, jsparse.ErrSyntax) || errors.Is(err, jsparse.ErrUnsupportedLanguage) {
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, err)
		return
	}
	items := engine.ItemsFromDiagnostics(res.Diagnostics)
	s.metrics.observeItems(items)
	writeJSON(w, http.StatusOK, lintResponse{
		Language: res.Language,
		Items:    items,
		Output:   res.Output,
		Changed:  res.Changed,
	})
}

func (s *Server) runHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	opts, err := s.runOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	start := time.Now()
	res, err := engine.Run(r.Context(), opts)
	s.metrics.observeDuration("run", start)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.observeResult(res)
	writeJSON(w, http.StatusOK, normalizeResult(res))
}

func (s *Server) runStreamHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}
	opts, err := s.runOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	// Publish はワーカーから並行に呼ばれる
	var mu sync.Mutex
	send := func(event string, payload any) {
		data, err := marshalJSON(payload)
		if err != nil {
			s.logger.Warn("encode event", "event", event, "err", err)
			return
		}
		mu.Lock()
		defer mu.Unlock()
		_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
		flusher.Flush()
	}

	send("progress", progress.Snapshot{Stage: progress.StageList, UpdatedAt: time.Now()})
	opts.Observer = progress.ObserverFunc(func(snap progress.Snapshot) {
		send("progress", snap)
	})

	start := time.Now()
	res, err := engine.Run(r.Context(), opts)
	s.metrics.observeDuration("run_stream", start)
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		send("error", map[string]string{"error": err.Error()})
		return
	}
	s.observeResult(res)
	send("result", normalizeResult(res))
}

type ruleInfo struct {
	Name            string            `json:"name"`
	Type            string            `json:"type"`
	Description     string            `json:"description"`
	Fixable         bool              `json:"fixable"`
	DefaultSeverity string            `json:"default_severity"`
	Severity        string            `json:"severity"`
	Options         map[string]any    `json:"options,omitempty"`
	Defaults        map[string]any    `json:"defaults,omitempty"`
	Messages        map[string]string `json:"messages"`
}

func (s *Server) rulesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	all := rules.All()
	out := make([]ruleInfo, 0, len(all))
	for _, rule := range all {
		meta := rule.Meta()
		info := ruleInfo{
			Name:            rule.Name(),
			Type:            meta.Type,
			Description:     meta.Description,
			Fixable:         meta.Fixable,
			DefaultSeverity: rules.DefaultSeverity(rule.Name()).String(),
			Severity:        rules.DefaultSeverity(rule.Name()).String(),
			Defaults:        meta.Defaults,
			Messages:        meta.Messages,
		}
		if setting, ok := s.rules[rule.Name()]; ok {
			info.Severity = setting.Severity.String()
			info.Options = setting.Options
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": out})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

// runOptions はクエリから検査オプションを作ります。修正はクエリから有効にできません。
func (s *Server) runOptions(r *http.Request) (engine.Options, error) {
	q := r.URL.Query()
	opts, err := engineopts.ApplyWebQueryToOptions(s.defaults, q)
	if err != nil {
		return opts, err
	}
	opts.Fix = false
	opts.DryRun = false
	opts.PathRegexCompiled = nil
	if err := engineopts.NormalizeAndValidate(&opts); err != nil {
		return opts, err
	}
	overrides, err := engineopts.RuleSettings(q["rule"])
	if err != nil {
		return opts, err
	}
	rs, err := s.ruleSet(rules.Merge(s.rules, overrides))
	if err != nil {
		return opts, err
	}
	opts.Rules = rs
	return opts, nil
}

// ruleSet は設定ごとに組み立て済みの RuleSet を使い回します。
func (s *Server) ruleSet(settings map[string]rules.Setting) (lint.RuleSet, error) {
	key := rules.Key(settings)
	if rs, ok := s.cache.Get(key); ok {
		s.metrics.cache.WithLabelValues("hit").Inc()
		return rs, nil
	}
	s.metrics.cache.WithLabelValues("miss").Inc()
	rs, err := rules.Build(settings)
	if err != nil {
		return lint.RuleSet{}, err
	}
	s.cache.Add(key, rs)
	return rs, nil
}

func (s *Server) observeResult(res *engine.Result) {
	s.metrics.files.Add(float64(res.Files))
	s.metrics.observeItems(res.Items)
	s.logger.Debug("run finished", "files", res.Files, "problems", res.Total, "errors", len(res.Errors), "elapsed_ms", res.ElapsedMS)
}

func decodeRuleOverrides(raw map[string]any) (map[string]rules.Setting, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make(map[string]rules.Setting, len(raw))
	var errs []error
	for _, name := range names {
		if _, ok := rules.Lookup(name); !ok {
			errs = append(errs, fmt.Errorf("unknown rule: %s", name))
			continue
		}
		setting, err := rules.ParseSetting(raw[name])
		if err != nil {
			errs = append(errs, fmt.Errorf("rule %s: %w", name, err))
			continue
		}
		out[name] = setting
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}

// normalizeResult は items を空配列で返すために nil を埋めます。
func normalizeResult(res *engine.Result) *engine.Result {
	if res.Items == nil {
		res.Items = []engine.Item{}
	}
	return res
}

func marshalJSON(v any) ([]byte, error) {
	var sb strings.Builder
	enc := json.NewEncoder(&sb)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return []byte(strings.TrimRight(sb.String(), "\n")), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := marshalJSON(v)
	if err != nil {
		http.Error(w, "encode response failed", http.StatusInternalServerError)
		return
	}
	setSecurityHeaders(w)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
	_, _ = w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
