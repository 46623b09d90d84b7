package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spboyer/tuneval/internal/datasource"
	"github.com/spboyer/tuneval/internal/evaluator"
	"github.com/spboyer/tuneval/internal/metrics"
	"github.com/spboyer/tuneval/internal/orchestration"
	"github.com/spboyer/tuneval/internal/projectconfig"
	"github.com/spboyer/tuneval/internal/spinner"
	"github.com/spboyer/tuneval/internal/storage"
	"golang.org/x/term"
)

// needs lists the pipeline components a command uses.
type needs struct {
	source  bool
	store   bool
	service bool
}

// newPipeline opens the components in n and returns a pipeline using them.
// Call the returned function to close them.
func (g *globalOptions) newPipeline(ctx context.Context, cfg *projectconfig.ProjectConfig, n needs, extra ...orchestration.Option) (*orchestration.Pipeline, func(), error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := g.log()
	opts := []orchestration.Option{
		orchestration.WithLogger(logger),
		orchestration.WithMetrics(g.metrics),
	}
	var closers []io.Closer
	closeAll := func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				logger.Warn("closing", "error", err)
			}
		}
	}

	if n.source {
		src, err := datasource.Open(orchestration.SourceConfig(cfg, logger))
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, src)
		opts = append(opts, orchestration.WithSource(src))
	}
	if n.store {
		store, err := storage.Open(ctx, orchestration.StorageConfig(cfg))
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, store)
		opts = append(opts, orchestration.WithStore(store))
	}
	if n.service {
		svc, err := orchestration.NewService(cfg, logger)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		opts = append(opts, orchestration.WithService(svc))
	}

	return orchestration.New(cfg, append(opts, extra...)...), closeAll, nil
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// progressDisplay shows evaluation progress: a spinner on a terminal,
// one line per prediction otherwise.
type progressDisplay struct {
	w       io.Writer
	spinner *spinner.Spinner
}

func newProgressDisplay(w io.Writer) *progressDisplay {
	p := &progressDisplay{w: w}
	if isTerminal(w) {
		p.spinner = spinner.Start(w, "Generating predictions...")
	}
	return p
}

func (p *progressDisplay) listener(event evaluator.ProgressEvent) {
	switch event.EventType {
	case evaluator.EventGenerationStart:
		if p.spinner == nil {
			fmt.Fprintf(p.w, "Generating predictions for %d input(s)\n", event.Total) //nolint:errcheck
		}
	case evaluator.EventPrediction:
		if p.spinner != nil {
			p.spinner.Update(fmt.Sprintf("[%d/%d] Generating predictions...", event.Index+1, event.Total))
			return
		}
		status := "✓"
		if event.Result == metrics.ResultError || event.Result == metrics.ResultEmpty {
			status = "✗"
		}
		fmt.Fprintf(p.w, "%s [%d/%d] %s (%dms)\n", status, event.Index+1, event.Total, event.Result, event.DurationMs) //nolint:errcheck
	case evaluator.EventGenerationComplete:
		p.stop()
	}
}

func (p *progressDisplay) stop() {
	if p.spinner != nil {
		p.spinner.Stop()
	}
}

// thresholdFailure reports whether err only says the scores missed their
// thresholds, in which case the outcome is still worth reporting.
func thresholdFailure(err error) bool {
	var te *evaluator.ThresholdError
	return errors.As(err, &te)
}
