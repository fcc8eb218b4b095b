package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/phyten/monostyle/internal/config"
	engineopts "github.com/phyten/monostyle/internal/engine/opts"
	"github.com/phyten/monostyle/internal/web"
)

type serveFlags struct {
	config    string
	envFile   string
	repo      string
	addr      string
	open      bool
	cacheSize int
	verbose   bool
}

func (f *serveFlags) serveConfig(cmd *cobra.Command) config.ServeConfig {
	var cfg config.ServeConfig
	fs := cmd.Flags()
	if fs.Changed("addr") {
		cfg.Addr = &f.addr
	}
	if fs.Changed("open") {
		cfg.Open = &f.open
	}
	if fs.Changed("cache-size") {
		cfg.CacheSize = &f.cacheSize
	}
	return cfg
}

func (a *app) newServeCmd() *cobra.Command {
	sf := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web UI and JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runServe(cmd, sf)
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&sf.config, "config", "c", "", "config file")
	fs.StringVar(&sf.envFile, "env-file", "", "read MONOSTYLE_* variables from a .env file")
	fs.StringVar(&sf.repo, "repo", "", "repository root (default: current dir)")
	fs.StringVar(&sf.addr, "addr", "127.0.0.1:8080", "listen address")
	fs.BoolVar(&sf.open, "open", false, "open the UI in a browser")
	fs.IntVar(&sf.cacheSize, "cache-size", 64, "number of rule sets to keep")
	fs.BoolVarP(&sf.verbose, "verbose", "v", false, "debug logging on stderr")
	return cmd
}

func (a *app) runServe(cmd *cobra.Command, sf *serveFlags) error {
	logger := setupLogger(a.stderr, sf.verbose)
	layers, err := loadLayers(sf.repo, sf.config, sf.envFile)
	if err != nil {
		return usageError(err)
	}

	var repoLayer config.EngineConfig
	if cmd.Flags().Changed("repo") {
		repoLayer.Repo = &sf.repo
	}
	engineSettings := config.MergeEngine(config.EngineSettingsFromOptions(engineopts.Defaults(".")), layers.file.Engine, layers.env.Engine, repoLayer)
	defaults := engineopts.Defaults(".")
	engineSettings.ApplyToOptions(&defaults)
	// 修正は HTTP からは行わない
	defaults.Fix, defaults.DryRun = false, false
	if defaults.Jobs == 0 {
		defaults.Jobs = engineopts.Defaults(".").Jobs
	}
	if err := engineopts.NormalizeAndValidate(&defaults); err != nil {
		return usageError(err)
	}

	serveSettings := config.MergeServe(config.DefaultServeSettings(), layers.file.Serve, layers.env.Serve, sf.serveConfig(cmd))
	serveSettings, err = config.NormalizeServe(serveSettings)
	if err != nil {
		return usageError(err)
	}

	srv, err := web.New(web.Config{
		Defaults:  defaults,
		Rules:     config.MergeRules(layers.file.Rules, layers.env.Rules),
		CacheSize: serveSettings.CacheSize,
		Logger:    logger,
	})
	if err != nil {
		return usageError(err)
	}

	ln, err := net.Listen("tcp", serveSettings.Addr)
	if err != nil {
		return usageError(fmt.Errorf("listen %s: %w", serveSettings.Addr, err))
	}
	url := "http://" + ln.Addr().String() + "/"
	fmt.Fprintf(a.stderr, "monostyle serve listening on %s (repo=%s)\n", url, defaults.RepoDir)

	httpSrv := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.Serve(ln)
	}()

	if serveSettings.Open {
		if err := browser.OpenURL(url); err != nil {
			logger.Warn("open browser", "url", url, "err", err)
		}
	}

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return &exitError{code: exitUsage, err: err}
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return &exitError{code: exitUsage, err: err}
	}
	return nil
}
