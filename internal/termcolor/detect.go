package termcolor

import (
	"fmt"
	"os"
	"strings"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// ColorMode は --color の値です。
type ColorMode string

const (
	ModeAuto   ColorMode = "auto"
	ModeAlways ColorMode = "always"
	ModeNever  ColorMode = "never"
)

func ParseMode(v string) (ColorMode, error) {
	switch m := ColorMode(strings.ToLower(strings.TrimSpace(v))); m {
	case "":
		return ModeAuto, nil
	case ModeAuto, ModeAlways, ModeNever:
		return m, nil
	default:
		return ModeAuto, fmt.Errorf("unknown color mode: %s (auto|always|never)", v)
	}
}

// EnvMap は os.Environ 形式の一覧を map にします。
func EnvMap(values []string) map[string]string {
	env := make(map[string]string, len(values))
	for _, entry := range values {
		if entry == "" {
			continue
		}
		key, val, _ := strings.Cut(entry, "=")
		env[key] = val
	}
	return env
}

// envRule は auto のときに参照する環境変数の 1 規則です。
type envRule struct {
	key   string
	match func(string) bool
	mode  ColorMode
}

// 先頭から評価し、最初に一致した規則が勝つ。無効化の規則を強制より前に置く。
var envRules = []envRule{
	{key: "TERM", match: func(v string) bool { return strings.EqualFold(v, "dumb") }, mode: ModeNever},
	{key: "NO_COLOR", match: nonEmpty, mode: ModeNever},
	{key: "CLICOLOR", match: func(v string) bool { return v == "0" }, mode: ModeNever},
	{key: "CLICOLOR_FORCE", match: enabledFlag, mode: ModeAlways},
	{key: "FORCE_COLOR", match: enabledFlag, mode: ModeAlways},
}

// resolveAuto は auto を環境変数と stdout の TTY 判定から always/never に確定します。
func resolveAuto(stdout *os.File, env map[string]string) ColorMode {
	if stdout == nil {
		return ModeNever
	}
	for _, r := range envRules {
		if r.match(strings.TrimSpace(env[r.key])) {
			return r.mode
		}
	}
	if isTerminal(stdout) {
		return ModeAlways
	}
	return ModeNever
}

// colorDepth は COLORTERM/TERM から色数を決めます。
func colorDepth(env map[string]string) termenv.Profile {
	colorterm := strings.ToLower(env["COLORTERM"])
	for _, s := range []string{"truecolor", "24bit", "24-bit"} {
		if strings.Contains(colorterm, s) {
			return termenv.TrueColor
		}
	}
	if strings.Contains(strings.ToLower(env["TERM"]), "256color") {
		return termenv.ANSI256
	}
	return termenv.ANSI
}

// ProfileFor は色を出さない場合に Ascii を返します。
func ProfileFor(mode ColorMode, stdout *os.File, env map[string]string) termenv.Profile {
	if mode == ModeAuto || mode == "" {
		mode = resolveAuto(stdout, env)
	}
	if mode == ModeNever {
		return termenv.Ascii
	}
	return colorDepth(env)
}

func isTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

func nonEmpty(v string) bool { return v != "" }

func enabledFlag(v string) bool { return v != "" && v != "0" }
