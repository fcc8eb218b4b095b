package config

import (
	"fmt"
	"net"
	"strings"

	engineopts "github.com/phyten/monostyle/internal/engine/opts"
)

func CanonicalizeColor(raw string) (string, error) {
	color := strings.ToLower(strings.TrimSpace(raw))
	if color == "" {
		return "auto", nil
	}
	switch color {
	case "auto", "always", "never":
		return color, nil
	default:
		return "", fmt.Errorf("invalid color: %s", raw)
	}
}

// NormalizeEngine は出力まわりの値を正規化します。走査オプションは engine/opts.NormalizeAndValidate が扱います。
func NormalizeEngine(values EngineSettings) (EngineSettings, error) {
	var err error
	values.Output, err = engineopts.NormalizeOutput(values.Output)
	if err != nil {
		return values, err
	}
	values.Color, err = CanonicalizeColor(values.Color)
	if err != nil {
		return values, err
	}
	if values.MaxWarnings < -1 {
		return values, fmt.Errorf("max_warnings must be >= -1")
	}
	return values, nil
}

func ValidateCacheSize(size int) error {
	if size < 1 || size > 4096 {
		return fmt.Errorf("cache_size must be between 1 and 4096")
	}
	return nil
}

func NormalizeServe(values ServeSettings) (ServeSettings, error) {
	values.Addr = strings.TrimSpace(values.Addr)
	if values.Addr == "" {
		return values, fmt.Errorf("addr must not be empty")
	}
	if _, _, err := net.SplitHostPort(values.Addr); err != nil {
		return values, fmt.Errorf("invalid addr %q: %w", values.Addr, err)
	}
	if err := ValidateCacheSize(values.CacheSize); err != nil {
		return values, err
	}
	return values, nil
}
