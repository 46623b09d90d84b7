package main

import (
	"fmt"
	"path/filepath"

	"github.com/spboyer/tuneval/internal/cache"
	"github.com/spf13/cobra"
)

func newCacheCommand(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the prediction cache",
		Long: `Manage the prediction cache.

When cache.enabled is set, model answers are stored on disk so repeated
evaluations skip predictions they have already made. Entries are keyed by
model, generation settings and prompt.`,
	}

	cmd.AddCommand(newCacheClearCommand(g))

	return cmd
}

func newCacheClearCommand(g *globalOptions) *cobra.Command {
	var cacheDir string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the prediction cache",
		Long: `Clear all cached predictions.

The next evaluation will request every answer from the model again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := cacheDir
			if !cmd.Flags().Changed("cache-dir") {
				cfg, err := g.loadConfig()
				if err != nil {
					return err
				}
				dir = cfg.Cache.Dir
			}

			// Resolve to absolute path
			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving cache directory: %w", err)
			}

			c := cache.New(absDir)
			if err := c.Clear(); err != nil {
				return fmt.Errorf("clearing cache: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Cache cleared: %s\n", absDir) //nolint:errcheck
			return nil
		},
	}

	cmd.Flags().StringVar(&cacheDir, "cache-dir", ".tuneval-cache", "Cache directory to clear (default: cache.dir from the config)")

	return cmd
}
