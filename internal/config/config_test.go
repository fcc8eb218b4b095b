package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/phyten/monostyle/internal/lint"
	"github.com/phyten/monostyle/internal/rules"
)

func strPtr(s string) *string { return &s }

func intPtr(n int) *int { return &n }

func boolPtr(b bool) *bool { return &b }

func stringsPtr(values ...string) *[]string {
	copied := append([]string(nil), values...)
	return &copied
}

func TestMergeEnginePrecedence(t *testing.T) {
	base := EngineSettings{Jobs: 2, Paths: []string{"base"}, ExcludeTypical: true, MaxWarnings: -1}

	fileCfg := EngineConfig{Paths: stringsPtr("file"), ExcludeTypical: boolPtr(false), Output: strPtr("json")}
	envCfg := EngineConfig{Paths: stringsPtr("env"), Fix: boolPtr(true)}
	flagCfg := EngineConfig{Paths: stringsPtr("flag"), Jobs: intPtr(8), Output: strPtr(" tsv ")}

	merged := MergeEngine(base, fileCfg, envCfg, flagCfg)

	if !reflect.DeepEqual(merged.Paths, []string{"flag"}) {
		t.Fatalf("unexpected paths: %v", merged.Paths)
	}
	if merged.ExcludeTypical {
		t.Fatal("expected ExcludeTypical false from file layer")
	}
	if merged.Jobs != 8 {
		t.Fatalf("expected Jobs 8, got %d", merged.Jobs)
	}
	if !merged.Fix {
		t.Fatal("expected Fix true from env layer")
	}
	if merged.Output != "tsv" {
		t.Fatalf("expected Output tsv, got %q", merged.Output)
	}
	if merged.Color != "auto" {
		t.Fatalf("expected Color default auto, got %q", merged.Color)
	}
	if merged.MaxWarnings != -1 {
		t.Fatalf("expected MaxWarnings -1, got %d", merged.MaxWarnings)
	}
}

func TestMergeEngineExplicitEmptyList(t *testing.T) {
	base := EngineSettings{Excludes: []string{"dist"}}
	merged := MergeEngine(base, EngineConfig{Excludes: stringsPtr()})
	if merged.Excludes == nil || len(merged.Excludes) != 0 {
		t.Fatalf("explicit empty list should clear excludes: %#v", merged.Excludes)
	}
}

func TestMergeServeAndRules(t *testing.T) {
	serve := MergeServe(DefaultServeSettings(), ServeConfig{Addr: strPtr(" :9000 ")}, ServeConfig{CacheSize: intPtr(8)})
	if serve.Addr != ":9000" || serve.CacheSize != 8 || serve.Open {
		t.Fatalf("unexpected serve settings: %+v", serve)
	}

	fileRules := map[string]rules.Setting{
		"multiline-array-brackets": {Severity: lint.SeverityWarn},
		"todo-task-reference":      {Severity: lint.SeverityError, Options: map[string]any{"projectSlug": "APP"}},
	}
	flagRules := map[string]rules.Setting{
		"multiline-array-brackets": {Severity: lint.SeverityOff},
	}
	merged := MergeRules(fileRules, nil, flagRules)
	if merged["multiline-array-brackets"].Severity != lint.SeverityOff {
		t.Fatalf("flag layer should win: %+v", merged)
	}
	if merged["todo-task-reference"].Options["projectSlug"] != "APP" {
		t.Fatalf("file layer rule lost: %+v", merged)
	}
	if got := MergeRules(); got != nil {
		t.Fatalf("no layers should give nil, got %+v", got)
	}
}

func TestFromEnv(t *testing.T) {
	env := map[string]string{
		"MONOSTYLE_PATH":             "src,lib",
		"MONOSTYLE_PATH_REGEX":       `.*\.tsx?$`,
		"MONOSTYLE_EXCLUDE":          "vendor,dist",
		"MONOSTYLE_EXCLUDE_TYPICAL":  "no",
		"MONOSTYLE_DETECT_LANGS":     "ts,jsx",
		"MONOSTYLE_OUTPUT":           "json",
		"MONOSTYLE_COLOR":            "never",
		"MONOSTYLE_MAX_FILE_BYTES":   "8192",
		"MONOSTYLE_JOBS":             "128",
		"MONOSTYLE_REPO":             "/work",
		"MONOSTYLE_FIX":              "1",
		"MONOSTYLE_DRY_RUN":          "true",
		"MONOSTYLE_QUIET":            "yes",
		"MONOSTYLE_MAX_WARNINGS":     "0",
		"MONOSTYLE_SERVE_ADDR":       ":9090",
		"MONOSTYLE_SERVE_OPEN":       "on",
		"MONOSTYLE_SERVE_CACHE_SIZE": "16",
		"MONOSTYLE_RULES":            `{"object-pattern-newline":"warn","todo-task-reference":["error",{"projectSlug":"APP"}]}`,
	}
	cfg, err := FromEnv(func(key string) string { return env[key] })
	if err != nil {
		t.Fatalf("FromEnv returned error: %v", err)
	}
	if cfg.Engine.Paths == nil || !reflect.DeepEqual(*cfg.Engine.Paths, []string{"src", "lib"}) {
		t.Fatalf("unexpected paths: %v", cfg.Engine.Paths)
	}
	if cfg.Engine.PathRegex == nil || !reflect.DeepEqual(*cfg.Engine.PathRegex, []string{`.*\.tsx?$`}) {
		t.Fatalf("unexpected path_regex: %v", cfg.Engine.PathRegex)
	}
	if cfg.Engine.Excludes == nil || !reflect.DeepEqual(*cfg.Engine.Excludes, []string{"vendor", "dist"}) {
		t.Fatalf("unexpected excludes: %v", cfg.Engine.Excludes)
	}
	if cfg.Engine.ExcludeTypical == nil || *cfg.Engine.ExcludeTypical {
		t.Fatal("expected ExcludeTypical false")
	}
	if cfg.Engine.DetectLangs == nil || !reflect.DeepEqual(*cfg.Engine.DetectLangs, []string{"ts", "jsx"}) {
		t.Fatalf("unexpected detect_langs: %v", cfg.Engine.DetectLangs)
	}
	if ptrString(cfg.Engine.Output) != "json" || ptrString(cfg.Engine.Color) != "never" {
		t.Fatalf("unexpected output/color: %q %q", ptrString(cfg.Engine.Output), ptrString(cfg.Engine.Color))
	}
	if ptrInt(cfg.Engine.MaxFileBytes) != 8192 {
		t.Fatalf("unexpected max_file_bytes: %d", ptrInt(cfg.Engine.MaxFileBytes))
	}
	if ptrInt(cfg.Engine.Jobs) != 128 {
		t.Fatalf("expected Jobs 128, got %d", ptrInt(cfg.Engine.Jobs))
	}
	if ptrString(cfg.Engine.Repo) != "/work" {
		t.Fatalf("unexpected repo: %q", ptrString(cfg.Engine.Repo))
	}
	if cfg.Engine.Fix == nil || !*cfg.Engine.Fix || cfg.Engine.DryRun == nil || !*cfg.Engine.DryRun {
		t.Fatal("expected fix and dry_run true")
	}
	if cfg.Engine.Quiet == nil || !*cfg.Engine.Quiet {
		t.Fatal("expected quiet true")
	}
	if cfg.Engine.MaxWarnings == nil || *cfg.Engine.MaxWarnings != 0 {
		t.Fatalf("expected max_warnings 0, got %+v", cfg.Engine.MaxWarnings)
	}
	if ptrString(cfg.Serve.Addr) != ":9090" || cfg.Serve.Open == nil || !*cfg.Serve.Open || ptrInt(cfg.Serve.CacheSize) != 16 {
		t.Fatalf("unexpected serve config: %+v", cfg.Serve)
	}
	if cfg.Rules["object-pattern-newline"].Severity != lint.SeverityWarn {
		t.Fatalf("unexpected rules: %+v", cfg.Rules)
	}
	if cfg.Rules["todo-task-reference"].Options["projectSlug"] != "APP" {
		t.Fatalf("rule options lost: %+v", cfg.Rules)
	}
}

func TestFromEnvErrorsAreJoined(t *testing.T) {
	env := map[string]string{
		"MONOSTYLE_FIX":              "maybe",
		"MONOSTYLE_JOBS":             "many",
		"MONOSTYLE_SERVE_CACHE_SIZE": "0",
		"MONOSTYLE_RULES":            `{"no-such-rule":"warn"}`,
	}
	_, err := FromEnv(func(key string) string { return env[key] })
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	for _, want := range []string{"MONOSTYLE_FIX", "MONOSTYLE_JOBS", "MONOSTYLE_SERVE_CACHE_SIZE", "no-such-rule"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("error should mention %s: %v", want, err)
		}
	}
}

func TestEnvFileGetenv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "MONOSTYLE_OUTPUT=csv\nMONOSTYLE_TEST_ONLY_IN_FILE=from-file\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("MONOSTYLE_OUTPUT", "json")

	getenv, err := EnvFileGetenv(path)
	if err != nil {
		t.Fatalf("EnvFileGetenv error: %v", err)
	}
	if got := getenv("MONOSTYLE_OUTPUT"); got != "json" {
		t.Fatalf("process env should win, got %q", got)
	}
	if got := getenv("MONOSTYLE_TEST_ONLY_IN_FILE"); got != "from-file" {
		t.Fatalf("file value missing, got %q", got)
	}

	if _, err := EnvFileGetenv(filepath.Join(dir, "missing.env")); err == nil {
		t.Fatal("expected error for missing env file")
	}
}

func TestAssignEngineBoolFromString(t *testing.T) {
	section := map[string]any{
		"fix":             "yes",
		"max_warnings":    float64(3),
		"exclude_typical": false,
	}
	var cfg EngineConfig
	if err := assignEngine(section, &cfg); err != nil {
		t.Fatalf("assignEngine returned error: %v", err)
	}
	if cfg.Fix == nil || !*cfg.Fix {
		t.Fatal("expected fix true")
	}
	if ptrInt(cfg.MaxWarnings) != 3 {
		t.Fatalf("expected max_warnings 3, got %d", ptrInt(cfg.MaxWarnings))
	}
	if cfg.ExcludeTypical == nil || *cfg.ExcludeTypical {
		t.Fatal("expected exclude_typical false")
	}

	if err := assignEngine(map[string]any{"jobs": 1.5}, &cfg); err == nil {
		t.Fatal("fractional jobs should be rejected")
	}
}

func TestLoadConfigFormats(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		".yaml": "path:\n  - src\nmax_file_bytes: 2048\nfix: true\nrules:\n  multiline-array-brackets: warn\n  named-specifiers-newline:\n    - error\n    - minSpecifiers: 2\nserve:\n  addr: \":9000\"\n",
		".toml": "detect_langs = [\"ts\"]\npath = [\"lib\"]\n[engine]\noutput = \"json\"\n[rules]\nobject-pattern-newline = [\"warn\", { minProperties = 2 }]\n[serve]\ncache_size = 12\n",
		".json": "{\n  \"engine\": {\"exclude\": [\"vendor\"], \"max-warnings\": 0},\n  \"format\": \"csv\",\n  \"rules\": {\"todo-task-reference\": [\"error\", {\"urlPattern\": \"tracker.example.com\"}]}\n}\n",
		".js":   "const slug = 'APP';\nmodule.exports = {\n  path: ['web'],\n  jobs: 4,\n  rules: {\n    'todo-task-reference': ['warn', { projectSlug: slug }],\n  },\n};\n",
	}

	for ext, content := range cases {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(dir, "config"+ext)
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			cfg, err := Load(path)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			switch ext {
			case ".yaml":
				if cfg.Engine.Paths == nil || !reflect.DeepEqual(*cfg.Engine.Paths, []string{"src"}) {
					t.Fatalf("yaml path mismatch: %v", cfg.Engine.Paths)
				}
				if ptrInt(cfg.Engine.MaxFileBytes) != 2048 {
					t.Fatalf("yaml max_file_bytes mismatch: %d", ptrInt(cfg.Engine.MaxFileBytes))
				}
				if cfg.Engine.Fix == nil || !*cfg.Engine.Fix {
					t.Fatal("yaml fix should be true")
				}
				if cfg.Rules["multiline-array-brackets"].Severity != lint.SeverityWarn {
					t.Fatalf("yaml rules mismatch: %+v", cfg.Rules)
				}
				opts := lint.NewOptions(cfg.Rules["named-specifiers-newline"].Options)
				if opts.Int("minSpecifiers", 0, "") != 2 {
					t.Fatalf("yaml rule option mismatch: %+v", cfg.Rules)
				}
				if ptrString(cfg.Serve.Addr) != ":9000" {
					t.Fatalf("yaml serve addr mismatch: %q", ptrString(cfg.Serve.Addr))
				}
			case ".toml":
				if cfg.Engine.DetectLangs == nil || !reflect.DeepEqual(*cfg.Engine.DetectLangs, []string{"ts"}) {
					t.Fatalf("toml detect_langs mismatch: %v", cfg.Engine.DetectLangs)
				}
				if ptrString(cfg.Engine.Output) != "json" {
					t.Fatalf("toml output mismatch: %q", ptrString(cfg.Engine.Output))
				}
				setting := cfg.Rules["object-pattern-newline"]
				if setting.Severity != lint.SeverityWarn {
					t.Fatalf("toml rules mismatch: %+v", cfg.Rules)
				}
				if lint.NewOptions(setting.Options).Int("minProperties", 0, "") != 2 {
					t.Fatalf("toml rule option mismatch: %+v", setting.Options)
				}
				if ptrInt(cfg.Serve.CacheSize) != 12 {
					t.Fatalf("toml cache_size mismatch: %d", ptrInt(cfg.Serve.CacheSize))
				}
			case ".json":
				if cfg.Engine.Excludes == nil || !reflect.DeepEqual(*cfg.Engine.Excludes, []string{"vendor"}) {
					t.Fatalf("json exclude mismatch: %v", cfg.Engine.Excludes)
				}
				if cfg.Engine.MaxWarnings == nil || *cfg.Engine.MaxWarnings != 0 {
					t.Fatalf("json max_warnings mismatch: %+v", cfg.Engine.MaxWarnings)
				}
				if ptrString(cfg.Engine.Output) != "csv" {
					t.Fatalf("json format alias mismatch: %q", ptrString(cfg.Engine.Output))
				}
				if cfg.Rules["todo-task-reference"].Options["urlPattern"] != "tracker.example.com" {
					t.Fatalf("json rules mismatch: %+v", cfg.Rules)
				}
			case ".js":
				if cfg.Engine.Paths == nil || !reflect.DeepEqual(*cfg.Engine.Paths, []string{"web"}) {
					t.Fatalf("js path mismatch: %v", cfg.Engine.Paths)
				}
				if ptrInt(cfg.Engine.Jobs) != 4 {
					t.Fatalf("js jobs mismatch: %d", ptrInt(cfg.Engine.Jobs))
				}
				setting := cfg.Rules["todo-task-reference"]
				if setting.Severity != lint.SeverityWarn || setting.Options["projectSlug"] != "APP" {
					t.Fatalf("js rules mismatch: %+v", cfg.Rules)
				}
			}
		})
	}
}

func TestLoadUnknownKey(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"top.yaml":    "unknown: value\n",
		"engine.yaml": "engine:\n  colour: never\n",
		"rule.yaml":   "rules:\n  no-such-rule: warn\n",
		"sev.yaml":    "rules:\n  multiline-array-brackets: loud\n",
	}
	for name, content := range cases {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write config: %v", err)
		}
		if _, err := Load(path); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadJSConfigErrors(t *testing.T) {
	dir := t.TempDir()

	notObject := filepath.Join(dir, "array.js")
	if err := os.WriteFile(notObject, []byte("module.exports = [1, 2];\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(notObject); err == nil {
		t.Fatal("non-object exports should fail")
	}

	syntax := filepath.Join(dir, "broken.cjs")
	if err := os.WriteFile(syntax, []byte("module.exports = {\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(syntax); err == nil {
		t.Fatal("syntax error should fail")
	}

	prev := JSEvalTimeout
	JSEvalTimeout = 50 * time.Millisecond
	t.Cleanup(func() { JSEvalTimeout = prev })
	loop := filepath.Join(dir, "loop.js")
	if err := os.WriteFile(loop, []byte("for (;;) {}\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(loop); err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("endless script should be interrupted, got %v", err)
	}
}

func TestLoadUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.ini")
	if err := os.WriteFile(path, []byte("x=1\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}

func TestFindOrder(t *testing.T) {
	repoRoot := filepath.Join(t.TempDir(), "repo")
	if mkErr := os.MkdirAll(filepath.Join(repoRoot, "sub", "dir"), 0o755); mkErr != nil {
		t.Fatalf("mkdir: %v", mkErr)
	}
	repoConfig := filepath.Join(repoRoot, ".monostyle.yaml")
	if writeErr := os.WriteFile(repoConfig, []byte("fix: true\n"), 0o644); writeErr != nil {
		t.Fatalf("write repo config: %v", writeErr)
	}
	path, where, err := Find(filepath.Join(repoRoot, "sub", "dir"), "", "", "")
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if path != repoConfig || where != "cwd-up" {
		t.Fatalf("unexpected result: path=%s where=%s", path, where)
	}

	explicitDir := t.TempDir()
	explicit := filepath.Join(explicitDir, "custom.toml")
	if writeErr := os.WriteFile(explicit, []byte("fix = true\n"), 0o644); writeErr != nil {
		t.Fatalf("write explicit: %v", writeErr)
	}
	path, where, err = Find(repoRoot, explicit, "", "")
	if err != nil {
		t.Fatalf("Find explicit failed: %v", err)
	}
	if path != explicit || where != "explicit" {
		t.Fatalf("expected explicit config, got path=%s where=%s", path, where)
	}
	if _, _, err := Find(repoRoot, explicitDir, "", ""); err == nil {
		t.Fatal("explicit directory should be rejected")
	}

	xdgHome := t.TempDir()
	if mkErr := os.MkdirAll(filepath.Join(xdgHome, "monostyle"), 0o755); mkErr != nil {
		t.Fatalf("mkdir xdg: %v", mkErr)
	}
	xdgPath := filepath.Join(xdgHome, "monostyle", "config.js")
	if writeErr := os.WriteFile(xdgPath, []byte("module.exports = {};\n"), 0o644); writeErr != nil {
		t.Fatalf("write xdg: %v", writeErr)
	}
	path, where, err = Find(t.TempDir(), "", xdgHome, "")
	if err != nil {
		t.Fatalf("Find xdg failed: %v", err)
	}
	if path != xdgPath || where != "xdg" {
		t.Fatalf("expected xdg config, got path=%s where=%s", path, where)
	}

	homeDir := t.TempDir()
	homePath := filepath.Join(homeDir, ".monostyle.toml")
	if writeErr := os.WriteFile(homePath, []byte("fix = false\n"), 0o644); writeErr != nil {
		t.Fatalf("write home: %v", writeErr)
	}
	path, where, err = Find(t.TempDir(), "", "", homeDir)
	if err != nil {
		t.Fatalf("Find home failed: %v", err)
	}
	if path != homePath || where != "home" {
		t.Fatalf("expected home config, got path=%s where=%s", path, where)
	}
}

func TestNormalizeEngine(t *testing.T) {
	values := EngineSettings{Output: "MD", Color: " Always ", MaxWarnings: -1}
	normalized, err := NormalizeEngine(values)
	if err != nil {
		t.Fatalf("NormalizeEngine error: %v", err)
	}
	if normalized.Output != "markdown" || normalized.Color != "always" {
		t.Fatalf("unexpected normalization: %+v", normalized)
	}

	if _, err := NormalizeEngine(EngineSettings{Output: "table", Color: "sometimes"}); err == nil {
		t.Fatal("expected error for invalid color")
	}
	if _, err := NormalizeEngine(EngineSettings{Output: "table", MaxWarnings: -2}); err == nil {
		t.Fatal("expected error for max_warnings below -1")
	}
}

func TestNormalizeServe(t *testing.T) {
	got, err := NormalizeServe(ServeSettings{Addr: " 127.0.0.1:0 ", CacheSize: 1})
	if err != nil {
		t.Fatalf("NormalizeServe error: %v", err)
	}
	if got.Addr != "127.0.0.1:0" {
		t.Fatalf("addr should be trimmed: %q", got.Addr)
	}
	for _, bad := range []ServeSettings{
		{Addr: "", CacheSize: 1},
		{Addr: "localhost", CacheSize: 1},
		{Addr: ":8080", CacheSize: 0},
		{Addr: ":8080", CacheSize: 5000},
	} {
		if _, err := NormalizeServe(bad); err == nil {
			t.Fatalf("expected error for %+v", bad)
		}
	}
}

func ptrString(v *string) string {
	if v == nil {
		return "<nil>"
	}
	return *v
}

func ptrInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func TestPackageJSONSection(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "packages", "app")
	if mkErr := os.MkdirAll(nested, 0o755); mkErr != nil {
		t.Fatalf("mkdir: %v", mkErr)
	}
	// キーの無い package.json は飛ばして上へ進む
	plain := filepath.Join(nested, "package.json")
	if writeErr := os.WriteFile(plain, []byte(`{"name":"app"}`), 0o644); writeErr != nil {
		t.Fatalf("write plain package.json: %v", writeErr)
	}
	pkg := filepath.Join(root, "package.json")
	body := `{"name":"root","monostyle":{"output":"json","rules":{"todo-task-reference":"warn"}}}`
	if writeErr := os.WriteFile(pkg, []byte(body), 0o644); writeErr != nil {
		t.Fatalf("write package.json: %v", writeErr)
	}

	path, where, err := Find(nested, "", "", "")
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if path != pkg || where != "package.json" {
		t.Fatalf("unexpected result: path=%s where=%s", path, where)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Engine.Output == nil || *cfg.Engine.Output != "json" {
		t.Fatalf("output not loaded: %+v", cfg.Engine)
	}
	if s, ok := cfg.Rules["todo-task-reference"]; !ok || s.Severity != lint.SeverityWarn {
		t.Fatalf("rule not loaded: %+v", cfg.Rules)
	}

	// 同じディレクトリでは .monostyle.* が優先
	dotfile := filepath.Join(root, ".monostyle.yml")
	if writeErr := os.WriteFile(dotfile, []byte("quiet: true\n"), 0o644); writeErr != nil {
		t.Fatalf("write dotfile: %v", writeErr)
	}
	if path, _, _ := Find(nested, "", "", ""); path != dotfile {
		t.Fatalf("dotfile should win over package.json: %s", path)
	}

	empty, err := Load(plain)
	if err != nil || empty.Engine.Output != nil || empty.Rules != nil {
		t.Fatalf("package.json without the key should load as empty: %+v, %v", empty, err)
	}
}
