package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spboyer/tuneval/internal/cache"
	"github.com/spboyer/tuneval/internal/metrics"
	"github.com/spboyer/tuneval/internal/projectconfig"
	"github.com/spboyer/tuneval/internal/utils"
	"github.com/spf13/cobra"
)

var version = "dev"

// globalOptions holds the persistent flags and what PersistentPreRunE
// builds from them.
type globalOptions struct {
	debug       bool
	configPath  string
	logFormat   string
	metricsFile string

	logger  *slog.Logger
	metrics *metrics.Recorder
}

func newRootCommand() *cobra.Command {
	g := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "tuneval",
		Short: "tuneval - fine-tune a model on Q&A data and score it",
		Long: `tuneval prepares question/answer datasets, submits supervised tuning jobs
and evaluates tuned models with BLEU and ROUGE overlap scores.

A typical cycle is "tuneval prepare", "tuneval tune" and, once the job has
finished, "tuneval evaluate".`,
		Version:      version,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.BoolVar(&g.debug, "debug", false, "Enable debug logging")
	flags.StringVar(&g.configPath, "config", "", "Path to a config file (default: nearest "+projectconfig.FileName+")")
	flags.StringVar(&g.logFormat, "log-format", utils.LogFormatText, "Log format: text or json")
	flags.StringVar(&g.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file when the command ends")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if g.debug {
			level = slog.LevelDebug
		}
		logger, err := utils.NewLogger(cmd.ErrOrStderr(), g.logFormat, level)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		g.logger = logger

		if g.metricsFile != "" {
			g.metrics = metrics.NewRecorder()
		}
		return nil
	}

	// Add subcommands
	cmd.AddCommand(newInitCommand(g))
	cmd.AddCommand(newPrepareCommand(g))
	cmd.AddCommand(newTuneCommand(g))
	cmd.AddCommand(newResolveCommand(g))
	cmd.AddCommand(newEvaluateCommand(g))
	cmd.AddCommand(newScoreCommand(g))
	cmd.AddCommand(newRunCommand(g))
	cmd.AddCommand(newCacheCommand(g))

	return cmd
}

func execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	return rootCmd.ExecuteContext(ctx)
}

// loadConfig reads --config or the nearest config file above the working
// directory. Relative paths in an explicit config file are taken relative
// to that file.
func (g *globalOptions) loadConfig() (*projectconfig.ProjectConfig, error) {
	if g.configPath == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		return projectconfig.Load(wd)
	}

	cfg, err := projectconfig.LoadFile(g.configPath)
	if err != nil {
		return nil, err
	}
	utils.ResolveRelative(filepath.Dir(g.configPath), &cfg.Paths.Data, &cfg.Paths.Results, &cfg.Cache.Dir, &cfg.DataSource.Path)
	return cfg, nil
}

// openCache returns the prediction cache when it is enabled.
func (g *globalOptions) openCache(cfg *projectconfig.ProjectConfig, disabled bool) *cache.Cache {
	if disabled || !cfg.CacheEnabled() {
		return nil
	}
	return cache.New(cfg.Cache.Dir)
}

// flushMetrics writes collected metrics to --metrics-file. It runs after
// failed commands too, so the error is only logged.
func (g *globalOptions) flushMetrics() {
	if g.metrics == nil || g.metricsFile == "" {
		return
	}
	if err := g.metrics.WriteFile(g.metricsFile); err != nil {
		g.log().Warn("writing metrics", "path", g.metricsFile, "error", err)
	}
}

func (g *globalOptions) log() *slog.Logger {
	if g.logger == nil {
		return slog.Default()
	}
	return g.logger
}
