// Package evaluator turns a tuned model's answers on held-out questions into
// overlap scores. Predictions are issued one at a time, in input order.
package evaluator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/spboyer/tuneval/internal/cache"
	"github.com/spboyer/tuneval/internal/metrics"
	"github.com/spboyer/tuneval/internal/models"
	"github.com/spboyer/tuneval/internal/scoring"
	"github.com/spboyer/tuneval/internal/tuning"
	"github.com/spboyer/tuneval/internal/utils"
)

// What to do with a prediction that still fails after retries.
const (
	PolicyFail = "fail"
	PolicySkip = "skip"
)

// Options controls generation.
type Options struct {
	CharLimit int
	RowLimit  int

	// OnError is PolicyFail (default) or PolicySkip.
	OnError string

	// MaxAttempts includes the first try. Values below 1 mean 1.
	MaxAttempts int

	// RetryBaseDelay is doubled after each failed attempt. Zero retries
	// immediately.
	RetryBaseDelay time.Duration

	// Settings are the generation parameters the predictor was configured
	// with. They only feed the cache key.
	Settings cache.Settings

	Scoring scoring.Options
}

// ProgressListener receives progress updates
type ProgressListener func(event ProgressEvent)

// EventType represents the type of progress event
type EventType string

// EventType constants
const (
	EventGenerationStart    EventType = "generation_start"
	EventPrediction         EventType = "prediction"
	EventGenerationComplete EventType = "generation_complete"
)

// ProgressEvent represents a progress update
type ProgressEvent struct {
	EventType EventType
	Index     int
	Total     int
	// Result is one of the metrics.Result* values for EventPrediction.
	Result     string
	DurationMs int64
}

// Evaluator generates candidates with a Predictor and scores them.
type Evaluator struct {
	predictor tuning.Predictor
	opts      Options
	cache     *cache.Cache
	metrics   *metrics.Recorder
	logger    *slog.Logger
	listeners []ProgressListener
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithCache reuses predictions stored in c.
func WithCache(c *cache.Cache) Option {
	return func(e *Evaluator) {
		e.cache = c
	}
}

// WithMetrics records prediction outcomes on m.
func WithMetrics(m *metrics.Recorder) Option {
	return func(e *Evaluator) {
		e.metrics = m
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Evaluator) {
		e.logger = l
	}
}

// WithProgress registers a progress listener.
func WithProgress(l ProgressListener) Option {
	return func(e *Evaluator) {
		e.listeners = append(e.listeners, l)
	}
}

// New creates an Evaluator.
func New(predictor tuning.Predictor, opts Options, options ...Option) *Evaluator {
	if opts.OnError == "" {
		opts.OnError = PolicyFail
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}

	e := &Evaluator{
		predictor: predictor,
		opts:      opts,
		logger:    slog.Default(),
	}
	for _, o := range options {
		o(e)
	}
	return e
}

// Generation holds the samples produced for one model.
type Generation struct {
	Samples []models.EvaluationSample
	Counts  models.GenerationCounts
}

// Generate filters inputs and requests one completion per retained input,
// sequentially. Empty responses drop the input and its reference together,
// so samples keep the relative order of the filtered inputs.
func (e *Evaluator) Generate(ctx context.Context, model models.ModelHandle, inputs []models.Record) (*Generation, error) {
	filtered := Filter(inputs, e.opts.CharLimit, e.opts.RowLimit)

	gen := &Generation{
		Counts: models.GenerationCounts{
			Inputs:   len(inputs),
			TooLong:  filtered.TooLong,
			Retained: len(filtered.Records),
		},
	}
	total := len(filtered.Records)
	e.emit(ProgressEvent{EventType: EventGenerationStart, Total: total})

	for i, rec := range filtered.Records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		text, result, err := e.predict(ctx, i, model, rec.InputText)
		elapsed := time.Since(start)

		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			gen.Counts.Failed++
			e.metrics.Prediction(metrics.ResultError, elapsed)
			e.emit(ProgressEvent{EventType: EventPrediction, Index: i, Total: total, Result: metrics.ResultError, DurationMs: elapsed.Milliseconds()})
			if e.opts.OnError != PolicySkip {
				return nil, err
			}
			e.logger.Warn("skipping input after prediction failure", "index", i, "error", err)
			continue
		}

		if strings.TrimSpace(text) == "" {
			result = metrics.ResultEmpty
			gen.Counts.EmptyResponse++
			e.logger.Debug("dropping empty response", "index", i, "prompt", utils.TruncateAttr(rec.InputText, 80))
		} else {
			e.logger.Debug("prediction", "index", i, "result", result, "answer", utils.TruncateAttr(text, 120))
			gen.Counts.Generated++
			gen.Samples = append(gen.Samples, models.EvaluationSample{
				Input:     rec.InputText,
				Candidate: text,
				Reference: rec.OutputText,
			})
		}
		if result == metrics.ResultCached {
			gen.Counts.Cached++
		}

		e.metrics.Prediction(result, elapsed)
		e.emit(ProgressEvent{EventType: EventPrediction, Index: i, Total: total, Result: result, DurationMs: elapsed.Milliseconds()})
	}

	e.emit(ProgressEvent{EventType: EventGenerationComplete, Total: total})
	return gen, nil
}

// predict returns the model's text for prompt, from the cache when
// possible, retrying failures with exponential backoff.
func (e *Evaluator) predict(ctx context.Context, index int, model models.ModelHandle, prompt string) (string, string, error) {
	key := ""
	if e.cache != nil {
		var err error
		key, err = cache.Key(model.Target(), e.opts.Settings, prompt)
		if err != nil {
			return "", "", err
		}
		if entry, ok := e.cache.Get(key); ok {
			return entry.Text, metrics.ResultCached, nil
		}
	}

	attempts := 0
	text, err := retry.DoValue(ctx, e.backoff(), func(ctx context.Context) (string, error) {
		attempts++
		text, err := e.predictor.Predict(ctx, model, prompt)
		if err != nil {
			if ctx.Err() != nil {
				return "", err
			}
			if attempts < e.opts.MaxAttempts {
				e.metrics.Prediction(metrics.ResultRetry, 0)
				e.logger.Debug("prediction failed, retrying", "index", index, "attempt", attempts, "error", err)
			}
			return "", retry.RetryableError(err)
		}
		return text, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", "", ctx.Err()
		}
		return "", "", &PredictionError{Index: index, Attempts: attempts, Err: err}
	}

	// Empty responses aren't cached so a later run can try again.
	if key != "" && strings.TrimSpace(text) != "" {
		entry := &cache.Entry{Model: model.Target(), Text: text, CreatedAt: time.Now().UTC()}
		if err := e.cache.Put(key, entry); err != nil {
			e.logger.Warn("failed to cache prediction", "index", index, "error", err)
		}
	}
	return text, metrics.ResultOK, nil
}

func (e *Evaluator) backoff() retry.Backoff {
	var b retry.Backoff
	if e.opts.RetryBaseDelay > 0 {
		b = retry.WithJitterPercent(10, retry.NewExponential(e.opts.RetryBaseDelay))
	} else {
		b = retry.BackoffFunc(func() (time.Duration, bool) { return 0, false })
	}
	return retry.WithMaxRetries(uint64(e.opts.MaxAttempts-1), b)
}

// Evaluate generates samples and scores them. Thresholds are not checked;
// see CheckThresholds.
func (e *Evaluator) Evaluate(ctx context.Context, model models.ModelHandle, inputs []models.Record) (*Generation, *models.ScoreReport, error) {
	gen, err := e.Generate(ctx, model, inputs)
	if err != nil {
		return nil, nil, err
	}

	report, err := scoring.ScoreSamples(gen.Samples, e.opts.Scoring)
	if err != nil {
		return gen, nil, fmt.Errorf("evaluator: scoring %d samples: %w", len(gen.Samples), err)
	}
	e.metrics.Scores(report)
	return gen, report, nil
}

// CheckThresholds returns a *ThresholdError if report misses any of t.
func CheckThresholds(report *models.ScoreReport, t models.Thresholds) error {
	if report == nil {
		return errors.New("evaluator: no score report")
	}
	if failures := t.Check(report); len(failures) > 0 {
		return &ThresholdError{Failures: failures}
	}
	return nil
}

func (e *Evaluator) emit(event ProgressEvent) {
	for _, l := range e.listeners {
		l(event)
	}
}
