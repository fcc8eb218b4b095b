package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phyten/monostyle/internal/config"
)

// 終了コード
const (
	exitOK      = 0
	exitProblem = 1
	exitUsage   = 2
)

// exitError は終了コードを運ぶエラーです。err が nil なら何も表示しません。
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func usageError(err error) error {
	return &exitError{code: exitUsage, err: err}
}

type app struct {
	stdout io.Writer
	stderr io.Writer
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr}
	root := a.newRootCmd()
	root.SetArgs(args)
	err := root.Execute()
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintf(stderr, "monostyle: %v\n", ee.err)
		}
		return ee.code
	}
	// cobra 自身の引数エラー（未知のフラグなど）
	fmt.Fprintf(stderr, "monostyle: %v\n", err)
	return exitUsage
}

func (a *app) newRootCmd() *cobra.Command {
	lf := &lintFlags{}
	root := &cobra.Command{
		Use:   "monostyle [paths...]",
		Short: "Layout lint and safe fixes for JavaScript and TypeScript",
		Long: `monostyle checks JavaScript and TypeScript sources for layout problems
(named specifiers, multiline array brackets, object patterns) and for
TODO-style comments without a task reference. With --fix it rewrites
files using only whitespace-safe edits.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runLint(cmd, args, lf)
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})
	bindLintFlags(root, lf)

	root.AddCommand(a.newLintCmd(), a.newRulesCmd(), a.newServeCmd())
	return root
}

func (a *app) newLintCmd() *cobra.Command {
	lf := &lintFlags{}
	cmd := &cobra.Command{
		Use:   "lint [paths...]",
		Short: "Lint files in the repository (default command)",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runLint(cmd, args, lf)
		},
	}
	bindLintFlags(cmd, lf)
	return cmd
}

// setupLogger は stderr にテキスト形式で出す slog を既定にします。
func setupLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	if raw := strings.TrimSpace(os.Getenv("MONOSTYLE_LOG_LEVEL")); raw != "" {
		var l slog.Level
		if err := l.UnmarshalText([]byte(raw)); err == nil {
			level = l
		}
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// configLayers は設定ファイルと環境変数の 2 層です。フラグは呼び出し側で重ねます。
type configLayers struct {
	file  config.Config
	env   config.Config
	path  string
	where string
}

func loadLayers(repo, configPath, envFile string) (configLayers, error) {
	var out configLayers
	getenv, err := config.EnvFileGetenv(envFile)
	if err != nil {
		return out, err
	}
	if strings.TrimSpace(repo) == "" {
		repo = getenv("MONOSTYLE_REPO")
	}
	explicit := strings.TrimSpace(configPath)
	if explicit == "" {
		explicit = getenv("MONOSTYLE_CONFIG")
	}
	path, where, err := config.Find(repo, explicit, getenv("XDG_CONFIG_HOME"), getenv("HOME"))
	if err != nil {
		return out, fmt.Errorf("find config: %w", err)
	}
	if path != "" {
		slog.Debug("loading config", "path", path, "where", where)
		out.file, err = config.Load(path)
		if err != nil {
			return out, err
		}
	}
	out.path, out.where = path, where
	out.env, err = config.FromEnv(getenv)
	if err != nil {
		return out, err
	}
	return out, nil
}
