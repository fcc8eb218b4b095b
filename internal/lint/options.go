package lint

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Options はルールオプションの型変換を行うためのラッパーです。
// 読み出したキーを記録し、Err で未知のキーを検出します。
type Options struct {
	raw  map[string]any
	seen map[string]bool
	errs []error
}

// NewOptions wraps raw. A nil map behaves as empty.
func NewOptions(raw map[string]any) *Options {
	return &Options{raw: raw, seen: make(map[string]bool)}
}

// Int は key を整数として読み出します。無ければ def を返します。
// rules は validator のタグ（例: "min=0"）で、空なら検証しません。
func (o *Options) Int(key string, def int, rules string) int {
	v, ok := o.lookup(key)
	if !ok || v == nil {
		return def
	}
	n, err := ExpectInt(v, key)
	if err != nil {
		o.errs = append(o.errs, err)
		return def
	}
	if rules != "" {
		if err := validateVar(key, n, rules); err != nil {
			o.errs = append(o.errs, err)
			return def
		}
	}
	return n
}

// String は key を文字列として読み出します。無ければ空文字列です。
func (o *Options) String(key string) string {
	v, ok := o.lookup(key)
	if !ok || v == nil {
		return ""
	}
	s, err := ExpectString(v, key)
	if err != nil {
		o.errs = append(o.errs, err)
		return ""
	}
	return s
}

// Err は型変換エラーと未知のキーをまとめて返します。
func (o *Options) Err() error {
	errs := append([]error(nil), o.errs...)
	var unknown []string
	for key := range o.raw {
		if !o.seen[key] {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		errs = append(errs, fmt.Errorf("unknown option: %s", key))
	}
	return errors.Join(errs...)
}

func (o *Options) lookup(key string) (any, bool) {
	o.seen[key] = true
	v, ok := o.raw[key]
	return v, ok
}

func validateVar(key string, value any, rules string) error {
	err := validate.Var(value, rules)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%s: %w", key, err)
	}
	msgs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "min":
			msgs = append(msgs, fmt.Errorf("%s must be >= %s, got %v", key, fe.Param(), value))
		case "max":
			msgs = append(msgs, fmt.Errorf("%s must be <= %s, got %v", key, fe.Param(), value))
		default:
			msgs = append(msgs, fmt.Errorf("%s: failed %s validation", key, fe.Tag()))
		}
	}
	return errors.Join(msgs...)
}

// ExpectInt は設定ファイル由来の値（int / int64 / float64 / json.Number / 数字文字列）を int にします。
func ExpectInt(value any, field string) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("expected integer for %s, got %v", field, value)
		}
		return int(v), nil
	case json.Number:
		n, err := strconv.Atoi(v.String())
		if err != nil {
			return 0, fmt.Errorf("invalid integer value for %s: %v", field, value)
		}
		return n, nil
	case string:
		trimmed := strings.TrimSpace(v)
		n, err := strconv.Atoi(trimmed)
		if trimmed == "" || err != nil {
			return 0, fmt.Errorf("invalid integer value for %s: %q", field, v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("expected integer for %s, got %T", field, value)
	}
}

// ExpectString は文字列のみを受け付けます。
func ExpectString(value any, field string) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	default:
		return "", fmt.Errorf("expected string for %s, got %T", field, value)
	}
}
