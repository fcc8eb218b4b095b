package config

import (
	"strings"

	"github.com/phyten/monostyle/internal/rules"
)

func MergeEngine(base EngineSettings, layers ...EngineConfig) EngineSettings {
	out := base
	for _, layer := range layers {
		out.Paths = resolveList(out.Paths, layer.Paths)
		out.Excludes = resolveList(out.Excludes, layer.Excludes)
		out.PathRegex = resolveList(out.PathRegex, layer.PathRegex)
		out.ExcludeTypical = resolve(out.ExcludeTypical, layer.ExcludeTypical)
		out.DetectLangs = resolveList(out.DetectLangs, layer.DetectLangs)
		out.Jobs = resolve(out.Jobs, layer.Jobs)
		out.Repo = resolveTrimmed(out.Repo, layer.Repo)
		out.Output = resolveTrimmed(out.Output, layer.Output)
		out.Color = resolveTrimmed(out.Color, layer.Color)
		out.MaxFileBytes = resolve(out.MaxFileBytes, layer.MaxFileBytes)
		out.Fix = resolve(out.Fix, layer.Fix)
		out.DryRun = resolve(out.DryRun, layer.DryRun)
		out.Quiet = resolve(out.Quiet, layer.Quiet)
		out.MaxWarnings = resolve(out.MaxWarnings, layer.MaxWarnings)
	}
	if strings.TrimSpace(out.Output) == "" {
		out.Output = "table"
	}
	if strings.TrimSpace(out.Color) == "" {
		out.Color = "auto"
	}
	return out
}

func MergeServe(base ServeSettings, layers ...ServeConfig) ServeSettings {
	out := base
	for _, layer := range layers {
		out.Addr = resolveTrimmed(out.Addr, layer.Addr)
		out.Open = resolve(out.Open, layer.Open)
		out.CacheSize = resolve(out.CacheSize, layer.CacheSize)
	}
	return out
}

// MergeRules はルール単位で後のレイヤーを優先して重ねます。
func MergeRules(layers ...map[string]rules.Setting) map[string]rules.Setting {
	var out map[string]rules.Setting
	for _, layer := range layers {
		out = rules.Merge(out, layer)
	}
	return out
}

// resolve は nil でない最後の値を返します。すべて nil なら def です。
func resolve[T any](def T, values ...*T) T {
	result := def
	for _, v := range values {
		if v != nil {
			result = *v
		}
	}
	return result
}

func resolveTrimmed(def string, values ...*string) string {
	return strings.TrimSpace(resolve(def, values...))
}

// resolveList は空のリストも「明示的に空」として扱います。
func resolveList(def []string, values ...*[]string) []string {
	result := cloneStrings(def)
	for _, v := range values {
		if v == nil {
			continue
		}
		if len(*v) == 0 {
			result = []string{}
			continue
		}
		result = cloneStrings(*v)
	}
	return result
}
