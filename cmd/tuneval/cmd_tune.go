package main

import (
	"fmt"

	"github.com/spboyer/tuneval/internal/tuning"
	"github.com/spf13/cobra"
)

func newTuneCommand(g *globalOptions) *cobra.Command {
	var (
		trainURI    string
		trainFile   string
		examples    int
		trainSteps  int
		displayName string
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "tune",
		Short: "Submit a supervised tuning job",
		Long: `Submit a supervised tuning job for the configured base model.

Use --train-uri for a training set that "tuneval prepare" already uploaded,
or --train-file to upload a local JSON Lines file first. The job is not
waited on; use "tuneval resolve" later to find the tuned model.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer g.flushMetrics()

			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("train-steps") {
				cfg.TrainSteps = trainSteps
			}
			if displayName != "" {
				cfg.ModelDisplayName = displayName
			}

			p, closeAll, err := g.newPipeline(cmd.Context(), cfg, needs{store: trainFile != "", service: true})
			if err != nil {
				return err
			}
			defer closeAll()

			var sub *tuning.Submission
			if trainFile != "" {
				sub, err = p.TuneFile(cmd.Context(), trainFile)
			} else {
				sub, err = p.Tune(cmd.Context(), trainURI, examples)
			}
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd, sub)
			}
			printSubmission(cmd, sub)
			return nil
		},
	}

	cmd.Flags().StringVar(&trainURI, "train-uri", "", "URI of an uploaded training file")
	cmd.Flags().StringVar(&trainFile, "train-file", "", "Local training file to upload and tune on")
	cmd.Flags().IntVar(&examples, "examples", 0, "Number of examples in the training file, used to convert steps to epochs")
	cmd.Flags().IntVar(&trainSteps, "train-steps", 0, "Number of tuning steps")
	cmd.Flags().StringVar(&displayName, "display-name", "", "Display name for the tuned model")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the submission as JSON")
	cmd.MarkFlagsMutuallyExclusive("train-uri", "train-file")
	cmd.MarkFlagsOneRequired("train-uri", "train-file")

	return cmd
}

func printSubmission(cmd *cobra.Command, sub *tuning.Submission) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Tuning job: %s\n", sub.Job.Name)        //nolint:errcheck
	fmt.Fprintf(out, "State:      %s\n", sub.Job.State)       //nolint:errcheck
	fmt.Fprintf(out, "Training:   %s\n", sub.TrainingDataURI) //nolint:errcheck
}
