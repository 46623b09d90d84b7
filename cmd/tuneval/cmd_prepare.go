package main

import (
	"encoding/json"
	"fmt"

	"github.com/spboyer/tuneval/internal/orchestration"
	"github.com/spf13/cobra"
)

func newPrepareCommand(g *globalOptions) *cobra.Command {
	var (
		splitFraction float64
		seed          uint64
		rowLimit      int
		tag           string
		bucket        string
		asJSON        bool
	)

	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Fetch Q&A records, split them and upload the datasets",
		Long: `Fetch question/answer records from the configured data source, split
them into training and evaluation sets, write both as JSON Lines under
<paths.data>/<run id>/ and upload them to <bucket>/<prefix>/<run id>/.

The two uploads run concurrently; if one fails the other is cancelled.
Objects are never overwritten.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer g.flushMetrics()

			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("split-fraction") {
				cfg.SplitFraction = splitFraction
			}
			if flags.Changed("seed") {
				cfg.SplitSeed = seed
			}
			if flags.Changed("row-limit") {
				cfg.DataSource.RowLimit = rowLimit
			}
			if flags.Changed("tag") {
				cfg.DataSource.Tag = tag
			}
			if flags.Changed("bucket") {
				cfg.Bucket = bucket
			}

			p, closeAll, err := g.newPipeline(cmd.Context(), cfg, needs{source: true, store: true})
			if err != nil {
				return err
			}
			defer closeAll()

			res, err := p.Prepare(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, res)
			}
			printPrepareResult(cmd, res)
			return nil
		},
	}

	cmd.Flags().Float64Var(&splitFraction, "split-fraction", 0, "Fraction of records held out for evaluation")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Shuffle seed for a reproducible split")
	cmd.Flags().IntVar(&rowLimit, "row-limit", 0, "Maximum number of records to fetch")
	cmd.Flags().StringVar(&tag, "tag", "", "Only fetch questions with this tag")
	cmd.Flags().StringVar(&bucket, "bucket", "", "Bucket to upload to")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")

	return cmd
}

func printPrepareResult(cmd *cobra.Command, res *orchestration.PrepareResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run:        %s\n", res.RunID)                                 //nolint:errcheck
	fmt.Fprintf(out, "Fetched:    %d records\n", res.Fetched)                       //nolint:errcheck
	fmt.Fprintf(out, "Training:   %d records  %s\n", res.TrainCount, res.TrainFile) //nolint:errcheck
	fmt.Fprintf(out, "Evaluation: %d records  %s\n", res.EvalCount, res.EvalFile)   //nolint:errcheck
	if res.TrainURI != "" {
		fmt.Fprintf(out, "Uploaded:   %s\n            %s\n", res.TrainURI, res.EvalURI) //nolint:errcheck
	}
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
