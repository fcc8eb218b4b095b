package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dop251/goja"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	engineopts "github.com/phyten/monostyle/internal/engine/opts"
	"github.com/phyten/monostyle/internal/lint"
	"github.com/phyten/monostyle/internal/rules"
)

// JSEvalTimeout は JavaScript 設定ファイルの評価に許す時間です。
var JSEvalTimeout = 2 * time.Second

var engineKeyMap = map[string]string{
	"path":             "path",
	"paths":            "path",
	"exclude":          "exclude",
	"excludes":         "exclude",
	"path_regex":       "path_regex",
	"path_regexes":     "path_regex",
	"detect_langs":     "detect_langs",
	"detect_languages": "detect_langs",
	"lang":             "detect_langs",
	"exclude_typical":  "exclude_typical",
	"max_file_bytes":   "max_file_bytes",
	"max_bytes":        "max_file_bytes",
	"jobs":             "jobs",
	"repo":             "repo",
	"output":           "output",
	"format":           "output",
	"color":            "color",
	"fix":              "fix",
	"dry_run":          "dry_run",
	"quiet":            "quiet",
	"max_warnings":     "max_warnings",
}

var serveKeyMap = map[string]string{
	"addr":       "addr",
	"listen":     "addr",
	"open":       "open",
	"cache_size": "cache_size",
}

// PackageJSONKey は package.json の中で設定を置くキーです。
const PackageJSONKey = "monostyle"

type decodeFunc func(path string, data []byte) (map[string]any, error)

var decoders = map[string]decodeFunc{
	".yaml": unmarshalWith(yaml.Unmarshal),
	".yml":  unmarshalWith(yaml.Unmarshal),
	".toml": unmarshalWith(toml.Unmarshal),
	".json": unmarshalWith(json.Unmarshal),
	".js":   evalJSConfig,
	".cjs":  evalJSConfig,
}

func unmarshalWith(unmarshal func([]byte, any) error) decodeFunc {
	return func(_ string, data []byte) (map[string]any, error) {
		var raw map[string]any
		if err := unmarshal(data, &raw); err != nil {
			return nil, err
		}
		return raw, nil
	}
}

// Load は拡張子に応じて設定ファイルを読みます。package.json は PackageJSONKey の値だけを読みます。
func Load(path string) (Config, error) {
	var cfg Config
	path = strings.TrimSpace(path)
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	var raw map[string]any
	if filepath.Base(path) == "package.json" {
		raw, err = packageJSONSection(data)
	} else {
		ext := strings.ToLower(filepath.Ext(path))
		decode, ok := decoders[ext]
		if !ok {
			return cfg, fmt.Errorf("unsupported config extension: %s", ext)
		}
		raw, err = decode(path, data)
	}
	if err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if raw == nil {
		return cfg, nil
	}
	decoded, err := decodeConfigMap(raw)
	if err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return decoded, nil
}

// packageJSONSection は package.json の PackageJSONKey を取り出します。キーが無ければ nil です。
func packageJSONSection(data []byte) (map[string]any, error) {
	var pkg map[string]json.RawMessage
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, err
	}
	section, ok := pkg[PackageJSONKey]
	if !ok {
		return nil, nil
	}
	var raw map[string]any
	if err := json.Unmarshal(section, &raw); err != nil {
		return nil, fmt.Errorf("%s: %w", PackageJSONKey, err)
	}
	return raw, nil
}

// evalJSConfig は CommonJS 形式（module.exports = {...}）の設定を評価します。
// require やファイルアクセスは提供しません。
func evalJSConfig(path string, data []byte) (map[string]any, error) {
	vm := goja.New()
	module := vm.NewObject()
	exports := vm.NewObject()
	if err := module.Set("exports", exports); err != nil {
		return nil, err
	}
	if err := vm.Set("module", module); err != nil {
		return nil, err
	}
	if err := vm.Set("exports", exports); err != nil {
		return nil, err
	}

	timer := time.AfterFunc(JSEvalTimeout, func() {
		vm.Interrupt("config evaluation timed out")
	})
	defer timer.Stop()

	if _, err := vm.RunScript(path, string(data)); err != nil {
		return nil, err
	}
	value := module.Get("exports")
	if value == nil || goja.IsUndefined(value) || goja.IsNull(value) {
		return nil, nil
	}
	exported, ok := value.Export().(map[string]any)
	if !ok {
		return nil, fmt.Errorf("module.exports must be an object, got %T", value.Export())
	}
	return exported, nil
}

func decodeConfigMap(raw map[string]any) (Config, error) {
	var cfg Config
	engineSection := make(map[string]any)
	serveSection := make(map[string]any)

	if block, ok := raw["engine"]; ok {
		sub, err := toStringKeyMap(block)
		if err != nil {
			return cfg, fmt.Errorf("engine: %w", err)
		}
		if err := fillSection(engineSection, sub, engineKeyMap, "engine"); err != nil {
			return cfg, err
		}
	}
	if block, ok := raw["serve"]; ok {
		sub, err := toStringKeyMap(block)
		if err != nil {
			return cfg, fmt.Errorf("serve: %w", err)
		}
		if err := fillSection(serveSection, sub, serveKeyMap, "serve"); err != nil {
			return cfg, err
		}
	}

	for key, value := range raw {
		norm := normalizeKey(key)
		switch norm {
		case "engine", "serve":
			continue
		case "rules":
			decoded, err := decodeRules(value)
			if err != nil {
				return cfg, fmt.Errorf("rules: %w", err)
			}
			cfg.Rules = decoded
		default:
			if canonical, ok := engineKeyMap[norm]; ok {
				engineSection[canonical] = value
				continue
			}
			return cfg, fmt.Errorf("unknown config key: %s", key)
		}
	}

	if err := assignEngine(engineSection, &cfg.Engine); err != nil {
		return cfg, fmt.Errorf("engine: %w", err)
	}
	if err := assignServe(serveSection, &cfg.Serve); err != nil {
		return cfg, fmt.Errorf("serve: %w", err)
	}
	return cfg, nil
}

// decodeRules はルール名ごとの設定を読みます。ルール名はそのまま（ハイフン区切り）照合します。
func decodeRules(value any) (map[string]rules.Setting, error) {
	section, err := toStringKeyMap(value)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(section))
	for name := range section {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]rules.Setting, len(section))
	var errs []error
	for _, name := range names {
		if _, ok := rules.Lookup(name); !ok {
			errs = append(errs, fmt.Errorf("unknown rule: %s", name))
			continue
		}
		s, err := rules.ParseSetting(section[name])
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		out[name] = s
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}

func fillSection(dst, src map[string]any, allowed map[string]string, section string) error {
	for key, value := range src {
		canonical, ok := allowed[normalizeKey(key)]
		if !ok {
			return fmt.Errorf("unknown %s key: %s", section, key)
		}
		dst[canonical] = value
	}
	return nil
}

func assignEngine(section map[string]any, dst *EngineConfig) error {
	for key, value := range section {
		switch key {
		case "path":
			list, err := expectStringList(value, key)
			if err != nil {
				return err
			}
			dst.Paths = &list
		case "exclude":
			list, err := expectStringList(value, key)
			if err != nil {
				return err
			}
			dst.Excludes = &list
		case "path_regex":
			list, err := expectStringList(value, key)
			if err != nil {
				return err
			}
			dst.PathRegex = &list
		case "detect_langs":
			list, err := expectStringList(value, key)
			if err != nil {
				return err
			}
			dst.DetectLangs = &list
		case "exclude_typical":
			b, err := expectBool(value, key)
			if err != nil {
				return err
			}
			dst.ExcludeTypical = &b
		case "fix":
			b, err := expectBool(value, key)
			if err != nil {
				return err
			}
			dst.Fix = &b
		case "dry_run":
			b, err := expectBool(value, key)
			if err != nil {
				return err
			}
			dst.DryRun = &b
		case "quiet":
			b, err := expectBool(value, key)
			if err != nil {
				return err
			}
			dst.Quiet = &b
		case "max_file_bytes":
			n, err := lint.ExpectInt(value, key)
			if err != nil {
				return err
			}
			dst.MaxFileBytes = &n
		case "jobs":
			n, err := lint.ExpectInt(value, key)
			if err != nil {
				return err
			}
			dst.Jobs = &n
		case "max_warnings":
			n, err := lint.ExpectInt(value, key)
			if err != nil {
				return err
			}
			dst.MaxWarnings = &n
		case "repo":
			str, err := expectString(value, key)
			if err != nil {
				return err
			}
			dst.Repo = &str
		case "output":
			str, err := expectString(value, key)
			if err != nil {
				return err
			}
			trimmed := strings.TrimSpace(str)
			dst.Output = &trimmed
		case "color":
			str, err := expectString(value, key)
			if err != nil {
				return err
			}
			trimmed := strings.TrimSpace(str)
			dst.Color = &trimmed
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
	}
	return nil
}

func assignServe(section map[string]any, dst *ServeConfig) error {
	for key, value := range section {
		switch key {
		case "addr":
			str, err := expectString(value, key)
			if err != nil {
				return err
			}
			dst.Addr = &str
		case "open":
			b, err := expectBool(value, key)
			if err != nil {
				return err
			}
			dst.Open = &b
		case "cache_size":
			n, err := lint.ExpectInt(value, key)
			if err != nil {
				return err
			}
			dst.CacheSize = &n
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
	}
	return nil
}

func expectString(value any, field string) (string, error) {
	if value == nil {
		return "", fmt.Errorf("%s cannot be null", field)
	}
	return lint.ExpectString(value, field)
}

func expectBool(value any, field string) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		return engineopts.ParseBool(v, field)
	default:
		return false, fmt.Errorf("expected bool for %s, got %T", field, value)
	}
}

func expectStringList(value any, field string) ([]string, error) {
	switch v := value.(type) {
	case string:
		parts := engineopts.SplitMulti([]string{v})
		return normalizeList(parts), nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			str, err := expectString(item, field)
			if err != nil {
				return nil, err
			}
			out = append(out, str)
		}
		return normalizeList(out), nil
	case []string:
		return normalizeList(v), nil
	default:
		return nil, fmt.Errorf("expected string or list for %s, got %T", field, value)
	}
}

func normalizeList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

func toStringKeyMap(v any) (map[string]any, error) {
	switch typed := v.(type) {
	case map[string]any:
		return typed, nil
	case map[any]any:
		out := make(map[string]any, len(typed))
		for k, value := range typed {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("non-string key: %v", k)
			}
			out[key] = value
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected map, got %T", v)
	}
}

func normalizeKey(key string) string {
	norm := strings.ToLower(strings.TrimSpace(key))
	norm = strings.ReplaceAll(norm, "-", "_")
	return norm
}
