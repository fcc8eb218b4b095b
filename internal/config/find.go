package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
)

var (
	configFilenames = []string{
		".monostyle.yaml",
		".monostyle.yml",
		".monostyle.toml",
		".monostyle.json",
		".monostyle.js",
	}
	xdgFilenames = []string{
		"config.yaml",
		"config.yml",
		"config.toml",
		"config.json",
		"config.js",
	}
)

// Find は設定ファイルを探します。2 番目の戻り値は見つかった場所の種類
// (explicit / cwd-up / package.json / xdg / home) です。見つからなければ空文字を返します。
//
// 上方向の探索では、同じディレクトリの .monostyle.* が package.json より優先されます。
func Find(repoDir, explicitPath, xdgHome, home string) (string, string, error) {
	if explicit := strings.TrimSpace(explicitPath); explicit != "" {
		candidate := explicit
		if !filepath.IsAbs(candidate) {
			cwd, err := os.Getwd()
			if err != nil {
				return "", "", err
			}
			candidate = filepath.Join(cwd, candidate)
		}
		info, err := os.Stat(candidate)
		if err != nil {
			return "", "", err
		}
		if info.IsDir() {
			return "", "", fmt.Errorf("MONOSTYLE_CONFIG %q points to a directory", candidate)
		}
		return candidate, "explicit", nil
	}

	start := strings.TrimSpace(repoDir)
	if start == "" {
		start = "."
	}
	absStart, err := filepath.Abs(start)
	if err != nil {
		return "", "", err
	}
	dir := absStart
	for {
		if candidate := firstExisting(dir, configFilenames); candidate != "" {
			return candidate, "cwd-up", nil
		}
		if candidate := filepath.Join(dir, "package.json"); hasPackageSection(candidate) {
			return candidate, "package.json", nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	homeDir := strings.TrimSpace(home)
	xdgRoot := strings.TrimSpace(xdgHome)
	if xdgRoot == "" {
		if homeDir != "" {
			xdgRoot = filepath.Join(homeDir, ".config")
		} else {
			xdgRoot = xdg.ConfigHome
		}
	}
	if xdgRoot != "" {
		if candidate := firstExisting(filepath.Join(xdgRoot, "monostyle"), xdgFilenames); candidate != "" {
			return candidate, "xdg", nil
		}
	}

	if homeDir == "" {
		homeDir = xdg.Home
	}
	if homeDir != "" {
		if candidate := firstExisting(homeDir, configFilenames); candidate != "" {
			return candidate, "home", nil
		}
	}

	return "", "", nil
}

func firstExisting(dir string, names []string) string {
	for _, name := range names {
		candidate := filepath.Join(dir, name)
		if fileExists(candidate) {
			return candidate
		}
	}
	return ""
}

// hasPackageSection は path が PackageJSONKey を持つ package.json なら true を返します。
func hasPackageSection(path string) bool {
	if !fileExists(path) {
		return false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	section, err := packageJSONSection(data)
	return err == nil && section != nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}
