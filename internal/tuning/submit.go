package tuning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spboyer/tuneval/internal/dataset"
	"github.com/spboyer/tuneval/internal/models"
	"github.com/spboyer/tuneval/internal/storage"
)

// TrainingFileName is the object name of an uploaded training set.
const TrainingFileName = "train.jsonl"

// Submission is the result of Submitter.Submit.
type Submission struct {
	TrainingDataURI string            `json:"training_data_uri"`
	Job             *models.TuningJob `json:"job"`
}

// Submitter uploads a training file and starts a tuning job on it.
type Submitter struct {
	store  storage.Store
	tuner  Tuner
	prefix string
	logger *slog.Logger
}

// NewSubmitter creates a Submitter. Objects are written under prefix.
func NewSubmitter(store storage.Store, tuner Tuner, prefix string, logger *slog.Logger) *Submitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Submitter{store: store, tuner: tuner, prefix: prefix, logger: logger}
}

// Submit uploads localFile to <prefix>/<runID>/train.jsonl and submits req
// against the uploaded URI. The job is not polled. If req.ExampleCount is
// zero it is taken from the file.
func (s *Submitter) Submit(ctx context.Context, runID, localFile string, req models.TuningRequest) (*Submission, error) {
	if runID == "" {
		return nil, errors.New("tuning: run id is required")
	}

	if req.ExampleCount == 0 {
		records, err := dataset.ReadJSONLFile(localFile)
		if err != nil {
			return nil, fmt.Errorf("tuning: reading training file: %w", err)
		}
		if len(records) == 0 {
			return nil, fmt.Errorf("%w: training file %s is empty", ErrTuningSubmission, localFile)
		}
		req.ExampleCount = len(records)
	}

	f, err := os.Open(localFile)
	if err != nil {
		return nil, fmt.Errorf("tuning: opening training file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	key := storage.JoinKey(s.prefix, runID, TrainingFileName)
	uri, err := s.store.Upload(ctx, key, f)
	if err != nil {
		return nil, err
	}
	s.logger.Info("uploaded training data", "uri", uri, "examples", req.ExampleCount)

	return s.SubmitURI(ctx, uri, req)
}

// SubmitURI submits req against a training file that is already in
// storage.
func (s *Submitter) SubmitURI(ctx context.Context, uri string, req models.TuningRequest) (*Submission, error) {
	if uri == "" {
		return nil, fmt.Errorf("%w: training data uri is required", ErrTuningSubmission)
	}
	req.TrainingDataURI = uri
	job, err := s.tuner.SubmitTuning(ctx, req)
	if err != nil {
		if !errors.Is(err, ErrTuningSubmission) {
			err = fmt.Errorf("%w: %w", ErrTuningSubmission, err)
		}
		return nil, err
	}
	s.logger.Info("tuning job submitted", "job", job.Name, "state", job.State, "display_name", job.DisplayName)

	return &Submission{TrainingDataURI: uri, Job: job}, nil
}
