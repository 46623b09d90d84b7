package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spboyer/tuneval/internal/models"
	"github.com/spboyer/tuneval/internal/orchestration"
	"github.com/spboyer/tuneval/internal/projectconfig"
	"github.com/spboyer/tuneval/internal/reporting"
	"github.com/spf13/cobra"
)

// evaluateFlags are shared by evaluate and run.
type evaluateFlags struct {
	model     string
	rowLimit  int
	charLimit int
	outputDir string
	compress  bool
	noCache   bool
	format    string
}

func (f *evaluateFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.model, "model", "", "Tuned model or endpoint resource name (default: most recent tuned model)")
	cmd.Flags().IntVar(&f.rowLimit, "row-limit", 0, "Maximum number of evaluation inputs")
	cmd.Flags().IntVar(&f.charLimit, "char-limit", 0, "Skip inputs longer than this many characters")
	cmd.Flags().StringVar(&f.outputDir, "output-dir", "", "Directory for reports (default: paths.results)")
	cmd.Flags().BoolVar(&f.compress, "compress", false, "Gzip the JSON outcome")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "Ignore the prediction cache")
	cmd.Flags().StringVar(&f.format, "format", "table", "Console output: table, json or markdown")
}

// applyLimits copies explicitly set limit flags into cfg.
func (f *evaluateFlags) applyLimits(cmd *cobra.Command, cfg *projectconfig.ProjectConfig) {
	if cmd.Flags().Changed("row-limit") {
		cfg.EvalRowLimit = f.rowLimit
	}
	if cmd.Flags().Changed("char-limit") {
		cfg.InputCharLimit = f.charLimit
	}
}

func (f *evaluateFlags) modelHandle() *models.ModelHandle {
	if f.model == "" {
		return nil
	}
	return &models.ModelHandle{Name: f.model}
}

func newEvaluateCommand(g *globalOptions) *cobra.Command {
	var (
		flags    evaluateFlags
		evalFile string
		runID    string
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score a tuned model on an evaluation set",
		Long: `Generate one answer per evaluation question with the tuned model and score
the answers against the references with BLEU (precision overlap) and
ROUGE-1 recall (recall overlap).

Questions longer than the character limit are skipped and at most
eval_row_limit questions are used. Empty answers are dropped together
with their reference.

Reports (outcome.json, junit.xml, summary.md, summary.html) are written
to <output-dir>/<run id>/. The command exits with status 1 when a score
is below its configured threshold.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer g.flushMetrics()

			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			flags.applyLimits(cmd, cfg)
			if runID == "" {
				runID = runIDFromPath(evalFile)
			}

			progress := newProgressDisplay(cmd.ErrOrStderr())
			defer progress.stop()

			p, closeAll, err := g.newPipeline(cmd.Context(), cfg, needs{service: true},
				orchestration.WithCache(g.openCache(cfg, flags.noCache)),
				orchestration.WithProgress(progress.listener),
			)
			if err != nil {
				return err
			}
			defer closeAll()

			outcome, err := p.Evaluate(cmd.Context(), orchestration.EvaluateInput{
				RunID:    runID,
				EvalFile: evalFile,
				Model:    flags.modelHandle(),
			})
			progress.stop()
			if err != nil && !thresholdFailure(err) {
				return err
			}
			if rerr := reportOutcome(cmd, cfg.Paths.Results, &flags, outcome); rerr != nil {
				return rerr
			}
			return err
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&evalFile, "eval-file", "", "Evaluation set written by prepare (JSON Lines)")
	cmd.Flags().StringVar(&runID, "run-id", "", "Run id for the reports (default: the eval file's directory name)")
	_ = cmd.MarkFlagRequired("eval-file")

	return cmd
}

// runIDFromPath returns the run directory of a prepared eval file, or ""
// when the file doesn't sit in a run directory.
func runIDFromPath(evalFile string) string {
	if filepath.Base(evalFile) != orchestration.EvalFileName {
		return ""
	}
	dir := filepath.Base(filepath.Dir(evalFile))
	if dir == "." || dir == string(filepath.Separator) {
		return ""
	}
	return dir
}

// reportOutcome writes the report files and prints the outcome in the
// requested console format.
func reportOutcome(cmd *cobra.Command, resultsDir string, flags *evaluateFlags, outcome *models.EvaluationOutcome) error {
	dir := flags.outputDir
	if dir == "" {
		dir = resultsDir
	}
	paths, err := orchestration.WriteReports(outcome, dir, flags.compress)
	if err != nil {
		return fmt.Errorf("writing reports: %w", err)
	}

	out := cmd.OutOrStdout()
	switch strings.ToLower(flags.format) {
	case "json":
		return writeJSON(cmd, outcome)
	case "markdown", "md":
		fmt.Fprint(out, reporting.Markdown(outcome)) //nolint:errcheck
	default:
		reporting.WriteTable(out, outcome)
		fmt.Fprintln(out)                                       //nolint:errcheck
		fmt.Fprint(out, reporting.FormatSummaryReport(outcome)) //nolint:errcheck
	}

	fmt.Fprintln(out, "\nReports:") //nolint:errcheck
	for _, p := range paths {
		fmt.Fprintf(out, "  %s\n", p) //nolint:errcheck
	}
	return nil
}
