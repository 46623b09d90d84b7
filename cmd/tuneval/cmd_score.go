package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spboyer/tuneval/internal/dataset"
	"github.com/spboyer/tuneval/internal/evaluator"
	"github.com/spboyer/tuneval/internal/models"
	"github.com/spboyer/tuneval/internal/reporting"
	"github.com/spboyer/tuneval/internal/scoring"
	"github.com/spf13/cobra"
)

func newScoreCommand(g *globalOptions) *cobra.Command {
	var (
		bleuOrder int
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "score <file>",
		Short: "Score candidate/reference pairs without calling a model",
		Long: `Score candidate/reference pairs offline.

The file is either JSON Lines with one {"candidate": ..., "reference": ...}
object per line, or an outcome.json (optionally .gz) from a previous
evaluation, whose samples are re-scored. Thresholds from the config apply.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer g.flushMetrics()

			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("bleu-order") {
				cfg.Evaluation.BLEUMaxOrder = bleuOrder
			}

			samples, err := loadSamples(args[0])
			if err != nil {
				return err
			}

			report, err := scoring.ScoreSamples(samples, scoring.Options{
				BLEUMaxOrder:    cfg.Evaluation.BLEUMaxOrder,
				ConfidenceLevel: cfg.Evaluation.ConfidenceLevel,
			})
			if err != nil {
				return err
			}
			g.metrics.Scores(report)

			outcome := &models.EvaluationOutcome{
				Timestamp:  time.Now().UTC(),
				Model:      models.ModelHandle{Name: args[0]},
				Counts:     models.GenerationCounts{Inputs: len(samples), Retained: len(samples), Generated: len(samples)},
				Scores:     report,
				Thresholds: cfg.Evaluation.Thresholds,
				Status:     models.StatusPassed,
				Samples:    samples,
			}
			thresholdErr := evaluator.CheckThresholds(report, cfg.Evaluation.Thresholds)
			var te *evaluator.ThresholdError
			if errors.As(thresholdErr, &te) {
				outcome.Status = models.StatusFailed
				outcome.Failures = te.Failures
			}

			if asJSON {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
				return thresholdErr
			}
			reporting.WriteTable(cmd.OutOrStdout(), outcome)
			fmt.Fprintln(cmd.OutOrStdout())                                       //nolint:errcheck
			fmt.Fprint(cmd.OutOrStdout(), reporting.FormatSummaryReport(outcome)) //nolint:errcheck
			return thresholdErr
		},
	}

	cmd.Flags().IntVar(&bleuOrder, "bleu-order", 0, "Highest n-gram order for BLEU (default: evaluation.bleu_max_order)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the score report as JSON")

	return cmd
}

func loadSamples(path string) ([]models.EvaluationSample, error) {
	if strings.HasSuffix(path, ".json") || strings.HasSuffix(path, ".json.gz") {
		outcome, err := reporting.ReadOutcome(path)
		if err != nil {
			return nil, err
		}
		return outcome.Samples, nil
	}
	return dataset.ReadSamplesFile(path)
}
