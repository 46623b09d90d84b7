// Package orchestration wires the data source, dataset preparer, storage,
// tuning service and evaluator into the tuneval pipeline.
package orchestration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spboyer/tuneval/internal/cache"
	"github.com/spboyer/tuneval/internal/dataset"
	"github.com/spboyer/tuneval/internal/datasource"
	"github.com/spboyer/tuneval/internal/evaluator"
	"github.com/spboyer/tuneval/internal/metrics"
	"github.com/spboyer/tuneval/internal/models"
	"github.com/spboyer/tuneval/internal/projectconfig"
	"github.com/spboyer/tuneval/internal/scoring"
	"github.com/spboyer/tuneval/internal/storage"
	"github.com/spboyer/tuneval/internal/tuning"
	"golang.org/x/sync/errgroup"
)

// EvalFileName is the object name of an uploaded evaluation set.
const EvalFileName = "eval.jsonl"

// Pipeline runs the stages of one tuning and evaluation cycle. Components a
// stage doesn't use may be nil: Evaluate needs no source or store, Prepare
// needs no service.
type Pipeline struct {
	cfg     *projectconfig.ProjectConfig
	source  datasource.Source
	store   storage.Store
	service tuning.Service

	cache     *cache.Cache
	metrics   *metrics.Recorder
	logger    *slog.Logger
	listeners []evaluator.ProgressListener

	newRunID func() string
	now      func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithSource sets where Prepare reads records from.
func WithSource(s datasource.Source) Option {
	return func(p *Pipeline) {
		p.source = s
	}
}

// WithStore sets where Prepare uploads datasets.
func WithStore(s storage.Store) Option {
	return func(p *Pipeline) {
		p.store = s
	}
}

// WithService sets the tuning and prediction backend.
func WithService(s tuning.Service) Option {
	return func(p *Pipeline) {
		p.service = s
	}
}

// WithCache enables prediction caching
func WithCache(c *cache.Cache) Option {
	return func(p *Pipeline) {
		p.cache = c
	}
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// WithProgress registers a listener for evaluation progress.
func WithProgress(l evaluator.ProgressListener) Option {
	return func(p *Pipeline) {
		p.listeners = append(p.listeners, l)
	}
}

// WithRunID overrides run id generation (tests).
func WithRunID(f func() string) Option {
	return func(p *Pipeline) {
		p.newRunID = f
	}
}

// New creates a Pipeline for cfg.
func New(cfg *projectconfig.ProjectConfig, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:      cfg,
		logger:   slog.Default(),
		newRunID: uuid.NewString,
		now:      time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// PrepareResult describes the datasets written by Prepare.
type PrepareResult struct {
	RunID      string `json:"run_id"`
	Fetched    int    `json:"fetched"`
	TrainCount int    `json:"train_count"`
	EvalCount  int    `json:"eval_count"`
	TrainFile  string `json:"train_file"`
	EvalFile   string `json:"eval_file"`
	TrainURI   string `json:"train_uri,omitempty"`
	EvalURI    string `json:"eval_uri,omitempty"`
}

// Prepare fetches records, splits them, writes train.jsonl and eval.jsonl
// under <paths.data>/<run id> and uploads both. Without a store the files
// stay local.
func (p *Pipeline) Prepare(ctx context.Context) (*PrepareResult, error) {
	if p.source == nil {
		return nil, errors.New("orchestration: no data source configured")
	}

	minDate, err := p.cfg.MinCreationDate()
	if err != nil {
		return nil, err
	}
	records, err := p.source.Fetch(ctx, datasource.Query{
		Tag:             p.cfg.DataSource.Tag,
		MinCreationDate: minDate,
		Limit:           p.cfg.DataSource.RowLimit,
	})
	if err != nil {
		return nil, err
	}
	p.metrics.RecordsFetched(len(records))
	p.logger.Info("fetched records", "count", len(records), "tag", p.cfg.DataSource.Tag)

	train, eval, err := dataset.Split(records, p.cfg.SplitFraction, dataset.NewRand(p.cfg.SplitSeed))
	if err != nil {
		return nil, err
	}
	p.metrics.Split(len(train), len(eval))

	res := &PrepareResult{
		RunID:      p.newRunID(),
		Fetched:    len(records),
		TrainCount: len(train),
		EvalCount:  len(eval),
	}
	dir := filepath.Join(p.cfg.Paths.Data, res.RunID)
	res.TrainFile = filepath.Join(dir, tuning.TrainingFileName)
	res.EvalFile = filepath.Join(dir, EvalFileName)

	if err := dataset.WriteJSONLFile(res.TrainFile, train); err != nil {
		return nil, err
	}
	if err := dataset.WriteJSONLFile(res.EvalFile, eval); err != nil {
		return nil, err
	}
	p.logger.Info("split dataset", "run_id", res.RunID, "train", len(train), "eval", len(eval), "dir", dir)

	if p.store == nil {
		p.logger.Warn("no storage configured, datasets were not uploaded")
		return res, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		uri, err := p.upload(gctx, res.RunID, res.TrainFile)
		res.TrainURI = uri
		return err
	})
	g.Go(func() error {
		uri, err := p.upload(gctx, res.RunID, res.EvalFile)
		res.EvalURI = uri
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

func (p *Pipeline) upload(ctx context.Context, runID, file string) (string, error) {
	f, err := os.Open(file)
	if err != nil {
		return "", fmt.Errorf("orchestration: opening %s: %w", file, err)
	}
	defer f.Close() //nolint:errcheck

	key := storage.JoinKey(p.cfg.Storage.Prefix, runID, filepath.Base(file))
	uri, err := p.store.Upload(ctx, key, f)
	p.metrics.Upload(err)
	if err != nil {
		return "", err
	}
	p.logger.Info("uploaded", "uri", uri)
	return uri, nil
}

// TuningRequest builds a request from the project config.
func (p *Pipeline) TuningRequest(exampleCount int) models.TuningRequest {
	return models.TuningRequest{
		BaseModel:        p.cfg.BaseModel,
		ModelDisplayName: p.cfg.ModelDisplayName,
		TrainSteps:       p.cfg.TrainSteps,
		TuningRegion:     p.cfg.TuningRegion,
		ServingRegion:    p.cfg.Region,
		ExampleCount:     exampleCount,
	}
}

// Tune submits a tuning job on a training file that Prepare already
// uploaded.
func (p *Pipeline) Tune(ctx context.Context, trainURI string, exampleCount int) (*tuning.Submission, error) {
	if p.service == nil {
		return nil, errors.New("orchestration: no tuning service configured")
	}
	return tuning.NewSubmitter(p.store, p.service, p.cfg.Storage.Prefix, p.logger).
		SubmitURI(ctx, trainURI, p.TuningRequest(exampleCount))
}

// TuneFile uploads a local training file under a new run id and submits a
// tuning job on it.
func (p *Pipeline) TuneFile(ctx context.Context, trainFile string) (*tuning.Submission, error) {
	if p.service == nil {
		return nil, errors.New("orchestration: no tuning service configured")
	}
	if p.store == nil {
		return nil, errors.New("orchestration: no storage configured")
	}
	return tuning.NewSubmitter(p.store, p.service, p.cfg.Storage.Prefix, p.logger).
		Submit(ctx, p.newRunID(), trainFile, p.TuningRequest(0))
}

// Resolve returns the most recent tuned model for the configured base
// model.
func (p *Pipeline) Resolve(ctx context.Context) (models.ModelHandle, error) {
	if p.service == nil {
		return models.ModelHandle{}, errors.New("orchestration: no tuning service configured")
	}
	return tuning.Resolve(ctx, p.service, p.cfg.BaseModel)
}

// EvaluateInput selects the data and model for Evaluate.
type EvaluateInput struct {
	RunID    string
	EvalFile string
	// Model skips resolution when set.
	Model *models.ModelHandle
}

// Evaluate scores a tuned model on an evaluation file. The outcome is
// returned with a *evaluator.ThresholdError when scores miss the
// configured thresholds; any other error leaves the outcome nil.
func (p *Pipeline) Evaluate(ctx context.Context, in EvaluateInput) (*models.EvaluationOutcome, error) {
	if p.service == nil {
		return nil, errors.New("orchestration: no prediction service configured")
	}
	start := p.now()

	records, err := dataset.ReadJSONLFile(in.EvalFile)
	if err != nil {
		return nil, err
	}

	var model models.ModelHandle
	if in.Model != nil {
		model = *in.Model
	} else {
		model, err = p.Resolve(ctx)
		if err != nil {
			return nil, err
		}
	}
	p.logger.Info("evaluating", "model", model.Target(), "inputs", len(records))

	opts, err := p.evaluatorOptions()
	if err != nil {
		return nil, err
	}
	evalOpts := []evaluator.Option{
		evaluator.WithMetrics(p.metrics),
		evaluator.WithLogger(p.logger),
	}
	if p.cache != nil {
		evalOpts = append(evalOpts, evaluator.WithCache(p.cache))
	}
	for _, l := range p.listeners {
		evalOpts = append(evalOpts, evaluator.WithProgress(l))
	}

	gen, report, err := evaluator.New(p.service, opts, evalOpts...).Evaluate(ctx, model, records)
	if err != nil {
		return nil, err
	}

	runID := in.RunID
	if runID == "" {
		runID = p.newRunID()
	}
	outcome := &models.EvaluationOutcome{
		RunID:      runID,
		Timestamp:  start.UTC(),
		DurationMs: p.now().Sub(start).Milliseconds(),
		Model:      model,
		Setup: models.OutcomeSetup{
			BaseModel:      p.cfg.BaseModel,
			ServingRegion:  p.cfg.Region,
			EvalRowLimit:   opts.RowLimit,
			InputCharLimit: opts.CharLimit,
			BLEUMaxOrder:   opts.Scoring.BLEUMaxOrder,
			OnError:        opts.OnError,
		},
		Counts:     gen.Counts,
		Scores:     report,
		Thresholds: p.cfg.Evaluation.Thresholds,
		Status:     models.StatusPassed,
		Samples:    gen.Samples,
	}

	if err := evaluator.CheckThresholds(report, p.cfg.Evaluation.Thresholds); err != nil {
		var te *evaluator.ThresholdError
		if errors.As(err, &te) {
			outcome.Status = models.StatusFailed
			outcome.Failures = te.Failures
		}
		return outcome, err
	}
	return outcome, nil
}

func (p *Pipeline) evaluatorOptions() (evaluator.Options, error) {
	delay, err := p.cfg.RetryDelay()
	if err != nil {
		return evaluator.Options{}, err
	}
	ev := p.cfg.Evaluation
	return evaluator.Options{
		CharLimit:      p.cfg.InputCharLimit,
		RowLimit:       p.cfg.EvalRowLimit,
		OnError:        ev.OnPredictionError,
		MaxAttempts:    ev.MaxAttempts,
		RetryBaseDelay: delay,
		Settings: cache.Settings{
			Temperature:     ev.Temperature,
			MaxOutputTokens: ev.MaxOutputTokens,
		},
		Scoring: scoring.Options{
			BLEUMaxOrder:    ev.BLEUMaxOrder,
			ConfidenceLevel: ev.ConfidenceLevel,
		},
	}, nil
}

// RunResult collects the output of every stage Run executed.
type RunResult struct {
	Prepare    *PrepareResult
	Submission *tuning.Submission
	Outcome    *models.EvaluationOutcome
}

// Run prepares data and submits a tuning job. Tuning jobs finish long after
// submission, so evaluation only happens when model names an existing tuned
// model; it then runs on this run's evaluation set.
func (p *Pipeline) Run(ctx context.Context, model *models.ModelHandle) (*RunResult, error) {
	prep, err := p.Prepare(ctx)
	if err != nil {
		return nil, err
	}
	res := &RunResult{Prepare: prep}

	if prep.TrainURI == "" {
		return res, errors.New("orchestration: training data was not uploaded, cannot tune")
	}
	res.Submission, err = p.Tune(ctx, prep.TrainURI, prep.TrainCount)
	if err != nil {
		return res, err
	}

	if model == nil {
		return res, nil
	}
	res.Outcome, err = p.Evaluate(ctx, EvaluateInput{
		RunID:    prep.RunID,
		EvalFile: prep.EvalFile,
		Model:    model,
	})
	return res, err
}
