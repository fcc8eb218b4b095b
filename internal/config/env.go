package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/joho/godotenv"

	engineopts "github.com/phyten/monostyle/internal/engine/opts"
	"github.com/phyten/monostyle/internal/rules"
)

func FromEnv(getenv func(string) string) (Config, error) {
	if getenv == nil {
		getenv = func(string) string { return "" }
	}
	var cfg Config
	var errs []error

	setString := func(target **string, key string) {
		raw := strings.TrimSpace(getenv(key))
		if raw == "" {
			return
		}
		value := raw
		*target = &value
	}
	setList := func(target **[]string, key string) {
		raw := strings.TrimSpace(getenv(key))
		if raw == "" {
			return
		}
		list := engineopts.SplitMulti([]string{raw})
		if len(list) == 0 {
			empty := make([]string, 0)
			*target = &empty
			return
		}
		copyVals := make([]string, len(list))
		copy(copyVals, list)
		*target = &copyVals
	}
	setBool := func(target **bool, key string) {
		raw := strings.TrimSpace(getenv(key))
		if raw == "" {
			return
		}
		v, err := engineopts.ParseBool(raw, key)
		if err != nil {
			errs = append(errs, err)
			return
		}
		value := v
		*target = &value
	}
	setInt := func(target **int, key string, min, max int) {
		raw := strings.TrimSpace(getenv(key))
		if raw == "" {
			return
		}
		v, err := engineopts.ParseIntInRange(raw, key, min, max)
		if err != nil {
			errs = append(errs, err)
			return
		}
		value := v
		*target = &value
	}

	setList(&cfg.Engine.Paths, "MONOSTYLE_PATH")
	setList(&cfg.Engine.Excludes, "MONOSTYLE_EXCLUDE")
	setList(&cfg.Engine.PathRegex, "MONOSTYLE_PATH_REGEX")
	setList(&cfg.Engine.DetectLangs, "MONOSTYLE_DETECT_LANGS")
	setBool(&cfg.Engine.ExcludeTypical, "MONOSTYLE_EXCLUDE_TYPICAL")
	setString(&cfg.Engine.Output, "MONOSTYLE_OUTPUT")
	setString(&cfg.Engine.Color, "MONOSTYLE_COLOR")
	setInt(&cfg.Engine.MaxFileBytes, "MONOSTYLE_MAX_FILE_BYTES", 0, math.MaxInt)
	// 上限は NormalizeAndValidate に任せ、入力経路ごとにエラー文言を変えない
	setInt(&cfg.Engine.Jobs, "MONOSTYLE_JOBS", 0, math.MaxInt)
	setString(&cfg.Engine.Repo, "MONOSTYLE_REPO")
	setBool(&cfg.Engine.Fix, "MONOSTYLE_FIX")
	setBool(&cfg.Engine.DryRun, "MONOSTYLE_DRY_RUN")
	setBool(&cfg.Engine.Quiet, "MONOSTYLE_QUIET")
	setInt(&cfg.Engine.MaxWarnings, "MONOSTYLE_MAX_WARNINGS", -1, math.MaxInt)

	setString(&cfg.Serve.Addr, "MONOSTYLE_SERVE_ADDR")
	setBool(&cfg.Serve.Open, "MONOSTYLE_SERVE_OPEN")
	setInt(&cfg.Serve.CacheSize, "MONOSTYLE_SERVE_CACHE_SIZE", 1, 4096)

	if raw := strings.TrimSpace(getenv("MONOSTYLE_RULES")); raw != "" {
		decoded, err := rulesFromJSON(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("MONOSTYLE_RULES: %w", err))
		} else {
			cfg.Rules = decoded
		}
	}

	if len(errs) > 0 {
		return cfg, errors.Join(errs...)
	}
	return cfg, nil
}

// rulesFromJSON は {"rule-name": "warn", "other": ["error", {...}]} 形式を読みます。
func rulesFromJSON(raw string) (map[string]rules.Setting, error) {
	var section map[string]any
	if err := json.Unmarshal([]byte(raw), &section); err != nil {
		return nil, err
	}
	return decodeRules(section)
}

// EnvFileGetenv は .env 形式のファイルを読み、プロセス環境を優先する getenv を返します。
// path が空なら os.Getenv をそのまま返します。
func EnvFileGetenv(path string) (func(string) string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return os.Getenv, nil
	}
	values, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}
	return func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return values[key]
	}, nil
}
