package config

import (
	"strings"

	"github.com/phyten/monostyle/internal/engine"
	"github.com/phyten/monostyle/internal/rules"
)

type EngineConfig struct {
	Paths          *[]string `yaml:"path" toml:"path" json:"path"`
	Excludes       *[]string `yaml:"exclude" toml:"exclude" json:"exclude"`
	PathRegex      *[]string `yaml:"path_regex" toml:"path_regex" json:"path_regex"`
	ExcludeTypical *bool     `yaml:"exclude_typical" toml:"exclude_typical" json:"exclude_typical"`
	DetectLangs    *[]string `yaml:"detect_langs" toml:"detect_langs" json:"detect_langs"`
	Jobs           *int      `yaml:"jobs" toml:"jobs" json:"jobs"`
	Repo           *string   `yaml:"repo" toml:"repo" json:"repo"`
	Output         *string   `yaml:"output" toml:"output" json:"output"`
	Color          *string   `yaml:"color" toml:"color" json:"color"`
	MaxFileBytes   *int      `yaml:"max_file_bytes" toml:"max_file_bytes" json:"max_file_bytes"`
	Fix            *bool     `yaml:"fix" toml:"fix" json:"fix"`
	DryRun         *bool     `yaml:"dry_run" toml:"dry_run" json:"dry_run"`
	Quiet          *bool     `yaml:"quiet" toml:"quiet" json:"quiet"`
	MaxWarnings    *int      `yaml:"max_warnings" toml:"max_warnings" json:"max_warnings"`
}

type ServeConfig struct {
	Addr      *string `yaml:"addr" toml:"addr" json:"addr"`
	Open      *bool   `yaml:"open" toml:"open" json:"open"`
	CacheSize *int    `yaml:"cache_size" toml:"cache_size" json:"cache_size"`
}

type Config struct {
	Engine EngineConfig `yaml:"engine" toml:"engine" json:"engine"`
	Serve  ServeConfig  `yaml:"serve" toml:"serve" json:"serve"`
	// Rules は設定されたルールだけを持ちます。nil なら未設定です。
	Rules map[string]rules.Setting `yaml:"rules" toml:"rules" json:"rules"`
}

type EngineSettings struct {
	Paths          []string
	Excludes       []string
	PathRegex      []string
	ExcludeTypical bool
	DetectLangs    []string
	Jobs           int
	Repo           string
	Output         string
	Color          string
	MaxFileBytes   int
	Fix            bool
	DryRun         bool
	Quiet          bool
	// MaxWarnings が負なら警告数で失敗しません
	MaxWarnings int
}

type ServeSettings struct {
	Addr      string
	Open      bool
	CacheSize int
}

func EngineSettingsFromOptions(opts engine.Options) EngineSettings {
	return EngineSettings{
		Paths:          cloneStrings(opts.Paths),
		Excludes:       cloneStrings(opts.Excludes),
		PathRegex:      cloneStrings(opts.PathRegex),
		ExcludeTypical: opts.ExcludeTypical,
		DetectLangs:    cloneStrings(opts.DetectLangs),
		Jobs:           opts.Jobs,
		Repo:           opts.RepoDir,
		Output:         "table",
		Color:          "auto",
		MaxFileBytes:   opts.MaxFileBytes,
		Fix:            opts.Fix,
		DryRun:         opts.DryRun,
		Quiet:          false,
		MaxWarnings:    -1,
	}
}

func (s EngineSettings) ApplyToOptions(opts *engine.Options) {
	if opts == nil {
		return
	}
	opts.Paths = cloneStrings(s.Paths)
	opts.Excludes = cloneStrings(s.Excludes)
	opts.PathRegex = cloneStrings(s.PathRegex)
	opts.ExcludeTypical = s.ExcludeTypical
	opts.DetectLangs = cloneStrings(s.DetectLangs)
	opts.Jobs = s.Jobs
	if trimmed := strings.TrimSpace(s.Repo); trimmed != "" {
		opts.RepoDir = trimmed
	}
	opts.MaxFileBytes = s.MaxFileBytes
	opts.Fix = s.Fix
	opts.DryRun = s.DryRun
}

func DefaultServeSettings() ServeSettings {
	return ServeSettings{
		Addr:      "127.0.0.1:8080",
		Open:      false,
		CacheSize: 64,
	}
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
