package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/phyten/monostyle/internal/config"
	"github.com/phyten/monostyle/internal/engine"
	engineopts "github.com/phyten/monostyle/internal/engine/opts"
	"github.com/phyten/monostyle/internal/output"
	"github.com/phyten/monostyle/internal/progress"
	"github.com/phyten/monostyle/internal/rules"
	"github.com/phyten/monostyle/internal/termcolor"
)

type lintFlags struct {
	config         string
	envFile        string
	repo           string
	fix            bool
	dryRun         bool
	format         string
	fields         string
	links          bool
	linkRemote     string
	color          string
	jobs           int
	excludes       []string
	pathRegex      []string
	excludeTypical bool
	langs          []string
	maxFileBytes   int
	maxWarnings    int
	quiet          bool
	rules          []string
	progress       bool
	noProgress     bool
	watch          bool
	verbose        bool
}

func bindLintFlags(cmd *cobra.Command, f *lintFlags) {
	fs := cmd.Flags()
	fs.StringVarP(&f.config, "config", "c", "", "config file (default: search .monostyle.* upward, then XDG, then home)")
	fs.StringVar(&f.envFile, "env-file", "", "read MONOSTYLE_* variables from a .env file")
	fs.StringVar(&f.repo, "repo", "", "repository root (default: current dir)")
	fs.BoolVar(&f.fix, "fix", false, "apply safe fixes and write files")
	fs.BoolVar(&f.dryRun, "dry-run", false, "compute fixes without writing files")
	fs.StringVarP(&f.format, "format", "f", "table", "table|tsv|json|ndjson|csv|markdown")
	fs.StringVar(&f.fields, "fields", "", "comma separated columns: "+strings.Join(output.FieldNames(), ","))
	fs.BoolVar(&f.links, "links", false, "attach blob URLs for HEAD to each problem (implied by --fields url)")
	fs.StringVar(&f.linkRemote, "link-remote", "origin", "git remote used for --links")
	fs.StringVar(&f.color, "color", "auto", "auto|always|never")
	fs.IntVarP(&f.jobs, "jobs", "j", 0, "max parallel workers (default: CPU count)")
	fs.StringSliceVar(&f.excludes, "exclude", nil, "exclude glob (repeatable)")
	fs.StringSliceVar(&f.pathRegex, "path-regex", nil, "only lint paths matching the regexp (repeatable)")
	fs.BoolVar(&f.excludeTypical, "exclude-typical", true, "skip node_modules, dist, build, coverage, vendor and *.min.js")
	fs.StringSliceVar(&f.langs, "lang", nil, "only lint these languages (javascript, typescript, jsx, tsx)")
	fs.IntVar(&f.maxFileBytes, "max-file-bytes", 0, "skip files larger than N bytes (0 = unlimited)")
	fs.IntVar(&f.maxWarnings, "max-warnings", -1, "fail when warnings exceed N (-1 = no limit)")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "report errors only")
	fs.StringArrayVar(&f.rules, "rule", nil, `rule override "name=severity" or "name=[severity,{options}]" (repeatable)`)
	fs.BoolVar(&f.progress, "progress", false, "force progress even when stderr is not a terminal")
	fs.BoolVar(&f.noProgress, "no-progress", false, "disable progress")
	fs.BoolVarP(&f.watch, "watch", "w", false, "lint again whenever files change")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "debug logging on stderr")
}

// engineConfig は明示的に指定されたフラグだけをレイヤーにします。
func (f *lintFlags) engineConfig(cmd *cobra.Command, args []string) config.EngineConfig {
	var cfg config.EngineConfig
	fs := cmd.Flags()
	if len(args) > 0 {
		paths := append([]string(nil), args...)
		cfg.Paths = &paths
	}
	if fs.Changed("repo") {
		cfg.Repo = &f.repo
	}
	if fs.Changed("fix") {
		cfg.Fix = &f.fix
	}
	if fs.Changed("dry-run") {
		cfg.DryRun = &f.dryRun
	}
	if fs.Changed("format") {
		cfg.Output = &f.format
	}
	if fs.Changed("color") {
		cfg.Color = &f.color
	}
	if fs.Changed("jobs") {
		cfg.Jobs = &f.jobs
	}
	if fs.Changed("exclude") {
		cfg.Excludes = &f.excludes
	}
	if fs.Changed("path-regex") {
		cfg.PathRegex = &f.pathRegex
	}
	if fs.Changed("exclude-typical") {
		cfg.ExcludeTypical = &f.excludeTypical
	}
	if fs.Changed("lang") {
		cfg.DetectLangs = &f.langs
	}
	if fs.Changed("max-file-bytes") {
		cfg.MaxFileBytes = &f.maxFileBytes
	}
	if fs.Changed("max-warnings") {
		cfg.MaxWarnings = &f.maxWarnings
	}
	if fs.Changed("quiet") {
		cfg.Quiet = &f.quiet
	}
	return cfg
}

// lintPlan は全レイヤーを重ねた後の実行内容です。
type lintPlan struct {
	settings config.EngineSettings
	opts     engine.Options
	fields   output.FieldSelection
}

func (a *app) buildLintPlan(cmd *cobra.Command, args []string, f *lintFlags) (lintPlan, error) {
	var plan lintPlan
	layers, err := loadLayers(f.repo, f.config, f.envFile)
	if err != nil {
		return plan, err
	}

	base := config.EngineSettingsFromOptions(engineopts.Defaults("."))
	settings := config.MergeEngine(base, layers.file.Engine, layers.env.Engine, f.engineConfig(cmd, args))
	settings, err = config.NormalizeEngine(settings)
	if err != nil {
		return plan, err
	}

	flagRules, err := engineopts.RuleSettings(f.rules)
	if err != nil {
		return plan, err
	}
	rs, err := rules.Build(config.MergeRules(layers.file.Rules, layers.env.Rules, flagRules))
	if err != nil {
		return plan, err
	}

	opts := engineopts.Defaults(".")
	settings.ApplyToOptions(&opts)
	if opts.Jobs == 0 {
		opts.Jobs = engineopts.Defaults(".").Jobs
	}
	if err := engineopts.NormalizeAndValidate(&opts); err != nil {
		return plan, err
	}
	opts.Rules = rs

	fields, err := output.ResolveFields(f.fields)
	if err != nil {
		return plan, err
	}

	opts.Links = f.links || fields.Has("url")
	opts.LinkRemote = f.linkRemote

	plan.settings = settings
	plan.opts = opts
	plan.fields = fields
	return plan, nil
}

func (a *app) runLint(cmd *cobra.Command, args []string, f *lintFlags) error {
	setupLogger(a.stderr, f.verbose)
	plan, err := a.buildLintPlan(cmd, args, f)
	if err != nil {
		return usageError(err)
	}

	env := termcolor.EnvMap(os.Environ())
	mode, err := termcolor.ParseMode(plan.settings.Color)
	if err != nil {
		return usageError(err)
	}
	stdoutFile, _ := a.stdout.(*os.File)
	styler := termcolor.NewStyler(a.stdout, termcolor.ProfileFor(mode, stdoutFile, env), termcolor.DetectScheme(env))
	outOpts := output.Options{
		Format: plan.settings.Output,
		Fields: plan.fields,
		Styler: styler,
		DryRun: plan.opts.DryRun,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if f.watch {
		return a.watch(ctx, plan, outOpts)
	}

	if progress.ShouldShowProgress(f.progress, f.noProgress) {
		plan.opts.Observer = progress.NewAutoObserver(a.stderr)
	}
	res, err := engine.Run(ctx, plan.opts)
	if err != nil {
		return &exitError{code: exitUsage, err: err}
	}
	return a.report(res, plan, outOpts)
}

func (a *app) report(res *engine.Result, plan lintPlan, outOpts output.Options) error {
	if plan.settings.Quiet {
		res = res.ErrorsOnly()
	}
	if err := output.Write(a.stdout, res, outOpts); err != nil {
		return &exitError{code: exitUsage, err: err}
	}
	if outOpts.Format != "json" && outOpts.Format != "ndjson" {
		reportErrors(a.stderr, res.Errors)
	}
	if res.Failed(plan.settings.MaxWarnings) || len(res.Errors) > 0 {
		return &exitError{code: exitProblem}
	}
	return nil
}

func (a *app) watch(ctx context.Context, plan lintPlan, outOpts output.Options) error {
	fmt.Fprintln(a.stderr, "watching for changes (Ctrl-C to stop)")
	err := engine.Watch(ctx, plan.opts, func(res *engine.Result, err error) {
		fmt.Fprintf(a.stderr, "\n[%s]\n", time.Now().Format("15:04:05"))
		if err != nil {
			fmt.Fprintf(a.stderr, "monostyle: %v\n", err)
			return
		}
		_ = a.report(res, plan, outOpts)
	})
	if err != nil {
		return &exitError{code: exitUsage, err: err}
	}
	return nil
}

// reportErrors はファイル単位の失敗を stderr にまとめて出します。
func reportErrors(w io.Writer, errs []engine.ItemError) {
	for _, e := range errs {
		loc := e.File
		if e.Line > 0 {
			loc = fmt.Sprintf("%s:%d", e.File, e.Line)
		}
		fmt.Fprintf(w, "%s: %s: %s\n", loc, e.Stage, e.Message)
	}
}
