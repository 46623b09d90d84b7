// Package tuning submits supervised tuning jobs and talks to the tuned
// models they produce. The managed service is reached through the narrow
// Tuner and Predictor interfaces so callers can swap in MockService.
package tuning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spboyer/tuneval/internal/models"
)

var (
	// ErrTuningSubmission wraps any failure to start a tuning job.
	ErrTuningSubmission = errors.New("tuning: submission failed")

	// ErrNoTunedModel is returned by Resolve when the base model has no
	// tuned descendants.
	ErrNoTunedModel = errors.New("tuning: no tuned model found")
)

// Train step bounds. Jobs outside the recommended window are accepted with
// a warning.
const (
	MinTrainSteps            = 1
	MaxTrainSteps            = 10000
	RecommendedMinTrainSteps = 100
	RecommendedMaxTrainSteps = 500
)

// Tuner starts tuning jobs and lists their results.
type Tuner interface {
	// SubmitTuning starts a job and returns once the service has accepted
	// it. It does not wait for the job to finish.
	SubmitTuning(ctx context.Context, req models.TuningRequest) (*models.TuningJob, error)

	// ListTunedModels returns the tuned models derived from baseModel.
	// Order is whatever the service returns.
	ListTunedModels(ctx context.Context, baseModel string) ([]models.ModelHandle, error)
}

// Predictor generates a single completion for a prompt.
type Predictor interface {
	Predict(ctx context.Context, model models.ModelHandle, prompt string) (string, error)
}

// Service is a complete tuning and serving backend.
type Service interface {
	Tuner
	Predictor
}

// ValidateRequest checks the fields every backend needs. Step counts
// outside the recommended window are logged, not rejected.
func ValidateRequest(req models.TuningRequest, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	var errs []error
	if strings.TrimSpace(req.TrainingDataURI) == "" {
		errs = append(errs, errors.New("training data URI is required"))
	}
	if strings.TrimSpace(req.BaseModel) == "" {
		errs = append(errs, errors.New("base model is required"))
	}
	if strings.TrimSpace(req.ModelDisplayName) == "" {
		errs = append(errs, errors.New("model display name is required"))
	}
	if req.TrainSteps < MinTrainSteps || req.TrainSteps > MaxTrainSteps {
		errs = append(errs, fmt.Errorf("train_steps must be between %d and %d, got %d", MinTrainSteps, MaxTrainSteps, req.TrainSteps))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrTuningSubmission, err)
	}

	if req.TrainSteps < RecommendedMinTrainSteps || req.TrainSteps > RecommendedMaxTrainSteps {
		logger.Warn("train_steps outside the recommended range",
			"train_steps", req.TrainSteps,
			"min", RecommendedMinTrainSteps,
			"max", RecommendedMaxTrainSteps)
	}
	return nil
}
