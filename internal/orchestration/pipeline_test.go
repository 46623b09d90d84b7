package orchestration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spboyer/tuneval/internal/dataset"
	"github.com/spboyer/tuneval/internal/datasource"
	"github.com/spboyer/tuneval/internal/evaluator"
	"github.com/spboyer/tuneval/internal/models"
	"github.com/spboyer/tuneval/internal/projectconfig"
	"github.com/spboyer/tuneval/internal/storage"
	"github.com/spboyer/tuneval/internal/tuning"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource struct {
	records []models.Record
	err     error
	got     datasource.Query
}

func (s *staticSource) Fetch(_ context.Context, q datasource.Query) ([]models.Record, error) {
	s.got = q
	return s.records, s.err
}

func (s *staticSource) Close() error { return nil }

func testRecords(n int) []models.Record {
	records := make([]models.Record, n)
	for i := range records {
		records[i] = models.Record{
			InputText:  fmt.Sprintf("how do I reverse list number %d in python", i),
			OutputText: fmt.Sprintf("call reversed on list %d or use slicing", i),
		}
	}
	return records
}

func testConfig(t *testing.T) *projectconfig.ProjectConfig {
	t.Helper()
	cfg := projectconfig.New()
	cfg.Backend = BackendMock
	cfg.SplitSeed = 42
	cfg.Paths.Data = filepath.Join(t.TempDir(), "data")
	cfg.Paths.Results = filepath.Join(t.TempDir(), "results")
	cfg.Evaluation.RetryBaseDelay = "1ms"
	return cfg
}

func fixedRunID(id string) Option {
	return WithRunID(func() string { return id })
}

func TestPipelinePrepare(t *testing.T) {
	cfg := testConfig(t)
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	src := &staticSource{records: testRecords(10)}

	p := New(cfg, WithSource(src), WithStore(store), fixedRunID("run-1"))
	res, err := p.Prepare(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, 10, res.Fetched)
	assert.Equal(t, 8, res.TrainCount)
	assert.Equal(t, 2, res.EvalCount)
	assert.Equal(t, "python", src.got.Tag)
	assert.Equal(t, projectconfig.DefaultRowLimit, src.got.Limit)

	train, err := dataset.ReadJSONLFile(res.TrainFile)
	require.NoError(t, err)
	eval, err := dataset.ReadJSONLFile(res.EvalFile)
	require.NoError(t, err)
	assert.Len(t, train, 8)
	assert.Len(t, eval, 2)
	assert.ElementsMatch(t, src.records, append(train, eval...))

	assert.Equal(t, store.URI("tuneval/run-1/train.jsonl"), res.TrainURI)
	assert.Equal(t, store.URI("tuneval/run-1/eval.jsonl"), res.EvalURI)
	keys, err := store.List(context.Background(), "tuneval/run-1/")
	require.NoError(t, err)
	assert.Equal(t, []string{"tuneval/run-1/eval.jsonl", "tuneval/run-1/train.jsonl"}, keys)
}

func TestPipelinePrepare_SameSeedSameSplit(t *testing.T) {
	cfg := testConfig(t)
	src := &staticSource{records: testRecords(20)}

	first, err := New(cfg, WithSource(src), fixedRunID("a")).Prepare(context.Background())
	require.NoError(t, err)
	second, err := New(cfg, WithSource(src), fixedRunID("b")).Prepare(context.Background())
	require.NoError(t, err)

	a, err := os.ReadFile(first.EvalFile)
	require.NoError(t, err)
	b, err := os.ReadFile(second.EvalFile)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestPipelinePrepare_NoStore(t *testing.T) {
	cfg := testConfig(t)
	p := New(cfg, WithSource(&staticSource{records: testRecords(5)}), fixedRunID("local"))

	res, err := p.Prepare(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.TrainURI)
	assert.Empty(t, res.EvalURI)
	assert.FileExists(t, res.TrainFile)
	assert.FileExists(t, res.EvalFile)
}

func TestPipelinePrepare_Errors(t *testing.T) {
	t.Run("no source", func(t *testing.T) {
		_, err := New(testConfig(t)).Prepare(context.Background())
		require.Error(t, err)
	})

	t.Run("source unavailable", func(t *testing.T) {
		src := &staticSource{err: fmt.Errorf("%w: connection refused", datasource.ErrDataSourceUnavailable)}
		_, err := New(testConfig(t), WithSource(src)).Prepare(context.Background())
		require.ErrorIs(t, err, datasource.ErrDataSourceUnavailable)
	})

	t.Run("empty dataset", func(t *testing.T) {
		_, err := New(testConfig(t), WithSource(&staticSource{})).Prepare(context.Background())
		require.ErrorIs(t, err, dataset.ErrEmptyDataset)
	})
}

func TestPipelinePrepare_AlreadyUploaded(t *testing.T) {
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	_, err = store.Upload(context.Background(), "tuneval/dup/eval.jsonl", strings.NewReader(""))
	require.NoError(t, err)

	p := New(testConfig(t), WithSource(&staticSource{records: testRecords(5)}), WithStore(store), fixedRunID("dup"))
	_, err = p.Prepare(context.Background())
	require.ErrorIs(t, err, storage.ErrAlreadyExists)
}

func TestPipelineRun(t *testing.T) {
	cfg := testConfig(t)
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	records := testRecords(10)
	svc := tuning.NewMockService().WithAnswers(records)

	p := New(cfg, WithSource(&staticSource{records: records}), WithStore(store), WithService(svc), fixedRunID("run-2"))
	res, err := p.Run(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, res.Submission)
	assert.Equal(t, res.Prepare.TrainURI, res.Submission.TrainingDataURI)
	assert.Equal(t, models.JobStateSucceeded, res.Submission.Job.State)
	assert.Nil(t, res.Outcome)

	model, err := p.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cfg.ModelDisplayName, model.DisplayName)

	var events []evaluator.EventType
	p = New(cfg, WithService(svc), WithProgress(func(e evaluator.ProgressEvent) {
		events = append(events, e.EventType)
	}))
	outcome, err := p.Evaluate(context.Background(), EvaluateInput{RunID: "run-2", EvalFile: res.Prepare.EvalFile})
	require.NoError(t, err)

	assert.Equal(t, "run-2", outcome.RunID)
	assert.Equal(t, models.StatusPassed, outcome.Status)
	assert.Equal(t, model.Name, outcome.Model.Name)
	assert.Equal(t, 2, outcome.Counts.Generated)
	assert.Len(t, outcome.Samples, 2)
	for _, s := range outcome.Samples {
		assert.Equal(t, s.Reference, s.Candidate)
	}
	require.NotNil(t, outcome.Scores)
	assert.Greater(t, outcome.Scores.RecallOverlap, 0.0)
	assert.Equal(t, cfg.BaseModel, outcome.Setup.BaseModel)

	require.NotEmpty(t, events)
	assert.Equal(t, evaluator.EventGenerationStart, events[0])
	assert.Equal(t, evaluator.EventGenerationComplete, events[len(events)-1])
}

func TestPipelineRun_WithModel(t *testing.T) {
	cfg := testConfig(t)
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	records := testRecords(10)
	svc := tuning.NewMockService().WithAnswers(records)
	model := &models.ModelHandle{Name: "mock/models/existing", BaseModel: cfg.BaseModel}

	p := New(cfg, WithSource(&staticSource{records: records}), WithStore(store), WithService(svc), fixedRunID("run-3"))
	res, err := p.Run(context.Background(), model)
	require.NoError(t, err)
	require.NotNil(t, res.Outcome)
	assert.Equal(t, "run-3", res.Outcome.RunID)
	assert.Equal(t, "mock/models/existing", res.Outcome.Model.Name)
}

func TestPipelineRun_WithoutStoreCannotTune(t *testing.T) {
	cfg := testConfig(t)
	p := New(cfg, WithSource(&staticSource{records: testRecords(5)}), WithService(tuning.NewMockService()))

	res, err := p.Run(context.Background(), nil)
	require.Error(t, err)
	require.NotNil(t, res.Prepare)
	assert.Nil(t, res.Submission)
}

func TestPipelineEvaluate_ThresholdFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.Evaluation.Thresholds = models.Thresholds{RecallOverlap: 0.99}
	evalFile := filepath.Join(t.TempDir(), "eval.jsonl")
	require.NoError(t, dataset.WriteJSONLFile(evalFile, testRecords(3)))

	p := New(cfg, WithService(tuning.NewMockService()))
	outcome, err := p.Evaluate(context.Background(), EvaluateInput{
		EvalFile: evalFile,
		Model:    &models.ModelHandle{Name: "mock/models/m"},
	})

	var te *evaluator.ThresholdError
	require.ErrorAs(t, err, &te)
	require.NotNil(t, outcome)
	assert.Equal(t, models.StatusFailed, outcome.Status)
	assert.Equal(t, te.Failures, outcome.Failures)
	assert.NotEmpty(t, outcome.RunID)
}

func TestPipelineEvaluate_NoTunedModel(t *testing.T) {
	cfg := testConfig(t)
	evalFile := filepath.Join(t.TempDir(), "eval.jsonl")
	require.NoError(t, dataset.WriteJSONLFile(evalFile, testRecords(3)))

	outcome, err := New(cfg, WithService(tuning.NewMockService())).Evaluate(context.Background(), EvaluateInput{EvalFile: evalFile})
	require.ErrorIs(t, err, tuning.ErrNoTunedModel)
	assert.Nil(t, outcome)
}

func TestPipelineEvaluate_MissingFile(t *testing.T) {
	_, err := New(testConfig(t), WithService(tuning.NewMockService())).Evaluate(context.Background(), EvaluateInput{
		EvalFile: filepath.Join(t.TempDir(), "missing.jsonl"),
	})
	require.Error(t, err)
}

func TestPipelineTuneFile(t *testing.T) {
	cfg := testConfig(t)
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	trainFile := filepath.Join(t.TempDir(), "train.jsonl")
	require.NoError(t, dataset.WriteJSONLFile(trainFile, testRecords(4)))

	p := New(cfg, WithStore(store), WithService(tuning.NewMockService()), fixedRunID("tf"))
	sub, err := p.TuneFile(context.Background(), trainFile)
	require.NoError(t, err)
	assert.Equal(t, store.URI("tuneval/tf/train.jsonl"), sub.TrainingDataURI)
}

func TestPipelineStagesNeedComponents(t *testing.T) {
	p := New(testConfig(t))
	_, err := p.Tune(context.Background(), "gs://b/train.jsonl", 1)
	assert.Error(t, err)
	_, err = p.TuneFile(context.Background(), "train.jsonl")
	assert.Error(t, err)
	_, err = p.Resolve(context.Background())
	assert.Error(t, err)
	_, err = p.Evaluate(context.Background(), EvaluateInput{})
	assert.Error(t, err)
}
