package detect

import (
	"bytes"
	"path/filepath"
	"strings"
)

// 対応言語の正規名。
const (
	JavaScript      = "javascript"
	JavaScriptReact = "javascriptreact"
	TypeScript      = "typescript"
	TypeScriptReact = "typescriptreact"
)

type Info struct {
	Name string
}

// Supported reports whether the detected language can be linted.
func (i Info) Supported() bool {
	return KnownLanguage(i.Name)
}

func FromPathAndContent(p string, data []byte) Info {
	if name := detectByPath(p); name != "" {
		return Info{Name: name}
	}
	// 拡張子の無いスクリプトだけシバンを見る
	if filepath.Ext(p) == "" {
		if shebang := detectByShebang(data); shebang != "" {
			return Info{Name: shebang}
		}
	}
	return Info{Name: ""}
}

func detectByPath(p string) string {
	base := strings.ToLower(filepath.Base(p))
	ext := filepath.Ext(base)
	if ext == "" {
		return ""
	}
	// foo.d.ts のような二重拡張子も最後の拡張子で決める
	return extensionLanguages[ext]
}

func detectByShebang(data []byte) string {
	if len(data) == 0 || !bytes.HasPrefix(data, []byte("#!")) {
		return ""
	}
	end := bytes.IndexByte(data, '\n')
	if end == -1 {
		end = len(data)
	}
	line := strings.ToLower(string(data[:end]))
	for _, entry := range shebangLanguages {
		if strings.Contains(line, entry.key) {
			return entry.lang
		}
	}
	return ""
}

func NormalizeLangName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return ""
	}
	if canon, ok := langAliases[n]; ok {
		return canon
	}
	return n
}

func MatchesLang(info Info, allow []string) bool {
	if len(allow) == 0 {
		return true
	}
	detected := NormalizeLangName(info.Name)
	if detected == "" {
		return false
	}
	for _, raw := range allow {
		if NormalizeLangName(raw) == detected {
			return true
		}
	}
	return false
}

func KnownLanguage(name string) bool {
	if name == "" {
		return false
	}
	_, ok := languages[NormalizeLangName(name)]
	return ok
}

// Languages returns the canonical names of every supported language.
func Languages() []string {
	return []string{JavaScript, JavaScriptReact, TypeScript, TypeScriptReact}
}

// Extensions は対応する拡張子（ドット付き、小文字）を返します。
func Extensions() []string {
	return []string{".js", ".mjs", ".cjs", ".jsx", ".ts", ".mts", ".cts", ".tsx"}
}

var extensionLanguages = map[string]string{
	".js":  JavaScript,
	".mjs": JavaScript,
	".cjs": JavaScript,
	".jsx": JavaScriptReact,
	".ts":  TypeScript,
	".mts": TypeScript,
	".cts": TypeScript,
	".tsx": TypeScriptReact,
}

var langAliases = map[string]string{
	"js":         JavaScript,
	"mjs":        JavaScript,
	"cjs":        JavaScript,
	"node":       JavaScript,
	"ecmascript": JavaScript,
	"jsx":        JavaScriptReact,
	"ts":         TypeScript,
	"mts":        TypeScript,
	"cts":        TypeScript,
	"tsx":        TypeScriptReact,
}

func CanonicalDetectLangs(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		n := NormalizeLangName(v)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// 上から順に照合する
var shebangLanguages = []struct {
	key  string
	lang string
}{
	{key: "ts-node", lang: TypeScript},
	{key: "tsx", lang: TypeScript},
	{key: "node", lang: JavaScript},
	{key: "deno", lang: TypeScript},
	{key: "bun", lang: JavaScript},
}

var languages = map[string]struct{}{
	JavaScript:      {},
	JavaScriptReact: {},
	TypeScript:      {},
	TypeScriptReact: {},
}
