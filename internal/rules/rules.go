// Package rules はルールの登録簿と、設定からの RuleSet の組み立てを扱います。
package rules

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/phyten/monostyle/internal/layout"
	"github.com/phyten/monostyle/internal/lint"
	"github.com/phyten/monostyle/internal/taskref"
)

var registry = []lint.Rule{
	layout.NamedSpecifiersNewline(),
	layout.MultilineArrayBrackets(),
	layout.ObjectPatternNewline(),
	taskref.New(),
}

// 設定が無い場合の重大度
var defaultSeverity = map[string]lint.Severity{
	"named-specifiers-newline": lint.SeverityError,
	"multiline-array-brackets": lint.SeverityError,
	"object-pattern-newline":   lint.SeverityError,
	"todo-task-reference":      lint.SeverityOff,
}

// All returns every rule in registration order.
func All() []lint.Rule {
	return append([]lint.Rule(nil), registry...)
}

// Names returns the rule names in registration order.
func Names() []string {
	out := make([]string, 0, len(registry))
	for _, r := range registry {
		out = append(out, r.Name())
	}
	return out
}

// Lookup はルール名からルールを探します。
func Lookup(name string) (lint.Rule, bool) {
	for _, r := range registry {
		if r.Name() == name {
			return r, true
		}
	}
	return nil, false
}

// DefaultSeverity はルールが設定されていない場合の重大度です。
func DefaultSeverity(name string) lint.Severity {
	return defaultSeverity[name]
}

// Setting は 1 ルール分の設定です。
type Setting struct {
	Severity lint.Severity  `json:"severity"`
	Options  map[string]any `json:"options,omitempty"`
}

// ParseSetting は設定ファイルやフラグの値を Setting に変換します。
//
// 受け付ける形:
//   - 重大度のみ: "error" / "warn" / "off" / 0 / 1 / 2
//   - 配列: [重大度, {オプション}]
//   - マップ: {severity: 重大度, <オプション>: 値, ...}（severity 省略時は error）
func ParseSetting(v any) (Setting, error) {
	switch t := v.(type) {
	case nil:
		return Setting{}, errors.New("empty rule setting")
	case []any:
		if len(t) == 0 || len(t) > 2 {
			return Setting{}, fmt.Errorf("rule setting must be [severity] or [severity, options], got %d elements", len(t))
		}
		sev, err := lint.ParseSeverity(t[0])
		if err != nil {
			return Setting{}, err
		}
		s := Setting{Severity: sev}
		if len(t) == 2 {
			opts, ok := toStringMap(t[1])
			if !ok {
				return Setting{}, fmt.Errorf("rule options must be a map, got %T", t[1])
			}
			s.Options = opts
		}
		return s, nil
	case map[string]any, map[any]any:
		m, _ := toStringMap(t)
		s := Setting{Severity: lint.SeverityError}
		if raw, ok := m["severity"]; ok {
			sev, err := lint.ParseSeverity(raw)
			if err != nil {
				return Setting{}, err
			}
			s.Severity = sev
			delete(m, "severity")
		}
		if nested, ok := m["options"]; ok {
			opts, ok := toStringMap(nested)
			if !ok {
				return Setting{}, fmt.Errorf("rule options must be a map, got %T", nested)
			}
			delete(m, "options")
			for k, v := range opts {
				m[k] = v
			}
		}
		if len(m) > 0 {
			s.Options = m
		}
		return s, nil
	default:
		sev, err := lint.ParseSeverity(v)
		if err != nil {
			return Setting{}, err
		}
		return Setting{Severity: sev}, nil
	}
}

// ParseFlag は "name=JSON" 形式（例: todo-task-reference=["warn",{"projectSlug":"APP"}]）を解釈します。
// JSON として読めない値は重大度の文字列として扱います。
func ParseFlag(raw string) (string, Setting, error) {
	name, value, ok := strings.Cut(raw, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", Setting{}, fmt.Errorf("rule flag must be name=value: %q", raw)
	}
	value = strings.TrimSpace(value)
	var decoded any
	if err := json.Unmarshal([]byte(value), &decoded); err != nil {
		decoded = value
	}
	s, err := ParseSetting(decoded)
	if err != nil {
		return "", Setting{}, fmt.Errorf("rule %s: %w", name, err)
	}
	return name, s, nil
}

// Build は settings から RuleSet を作ります。設定の無いルールは既定の重大度・既定のオプションになります。
// 未知のルール名やオプションの誤りはまとめてエラーにします。
func Build(settings map[string]Setting) (lint.RuleSet, error) {
	var errs []error
	var unknown []string
	for name := range settings {
		if _, ok := Lookup(name); !ok {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		errs = append(errs, fmt.Errorf("unknown rule: %s", name))
	}

	var rs lint.RuleSet
	for _, rule := range registry {
		s, ok := settings[rule.Name()]
		if !ok {
			s = Setting{Severity: DefaultSeverity(rule.Name())}
		}
		if s.Severity == lint.SeverityOff {
			continue
		}
		checker, err := rule.New(s.Options)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		rs.Rules = append(rs.Rules, lint.Enabled{Rule: rule, Severity: s.Severity, Checker: checker})
	}
	if err := errors.Join(errs...); err != nil {
		return lint.RuleSet{}, err
	}
	return rs, nil
}

// Merge は base に override を重ねた新しいマップを返します（ルール単位で置き換え）。
func Merge(base, override map[string]Setting) map[string]Setting {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	out := make(map[string]Setting, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

// Key は settings の正規化した文字列表現です。キャッシュのキーに使います。
func Key(settings map[string]Setting) string {
	if len(settings) == 0 {
		return "{}"
	}
	// encoding/json はマップのキーを整列して出力する
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Sprintf("%v", settings)
	}
	return string(data)
}

func toStringMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = val
		}
		return out, true
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	default:
		return nil, false
	}
}
