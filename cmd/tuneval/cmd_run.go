package main

import (
	"fmt"

	"github.com/spboyer/tuneval/internal/orchestration"
	"github.com/spf13/cobra"
)

func newRunCommand(g *globalOptions) *cobra.Command {
	var flags evaluateFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Prepare data and submit a tuning job, optionally evaluating a model",
		Long: `Run prepare and tune in one step.

Tuning jobs take a long time, so the new model is not evaluated here. Pass
--model to evaluate an already tuned model on this run's evaluation set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer g.flushMetrics()

			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			flags.applyLimits(cmd, cfg)

			progress := newProgressDisplay(cmd.ErrOrStderr())
			defer progress.stop()

			p, closeAll, err := g.newPipeline(cmd.Context(), cfg, needs{source: true, store: true, service: true},
				orchestration.WithCache(g.openCache(cfg, flags.noCache)),
				orchestration.WithProgress(progress.listener),
			)
			if err != nil {
				return err
			}
			defer closeAll()

			res, err := p.Run(cmd.Context(), flags.modelHandle())
			progress.stop()
			if res != nil && res.Prepare != nil {
				printPrepareResult(cmd, res.Prepare)
			}
			if res != nil && res.Submission != nil {
				fmt.Fprintln(cmd.OutOrStdout()) //nolint:errcheck
				printSubmission(cmd, res.Submission)
			}
			if err != nil && !thresholdFailure(err) {
				return err
			}
			if res.Outcome != nil {
				fmt.Fprintln(cmd.OutOrStdout()) //nolint:errcheck
				if rerr := reportOutcome(cmd, cfg.Paths.Results, &flags, res.Outcome); rerr != nil {
					return rerr
				}
			}
			return err
		},
	}

	flags.register(cmd)

	return cmd
}
