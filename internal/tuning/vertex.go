package tuning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"path"
	"strings"
	"sync"

	"github.com/spboyer/tuneval/internal/models"
	"google.golang.org/genai"
)

// DefaultBatchSize is the number of examples one tuning step consumes.
const DefaultBatchSize = 8

// VertexOptions configures VertexService.
type VertexOptions struct {
	Project string

	// TuningRegion hosts tuning jobs when a request doesn't name one.
	TuningRegion string

	// ServingRegion hosts tuned models and their endpoints.
	ServingRegion string

	// BatchSize converts train steps into the epoch count the service
	// expects. Zero means DefaultBatchSize.
	BatchSize int

	Temperature     *float32
	MaxOutputTokens int32

	Logger *slog.Logger

	// NewClient overrides client construction (tests).
	NewClient func(ctx context.Context, config *genai.ClientConfig) (genaiClient, error)
}

// VertexService runs tuning and prediction on Vertex AI through the genai
// SDK. Tuning and serving can live in different regions, so one client is
// kept per region.
type VertexService struct {
	opts   VertexOptions
	logger *slog.Logger

	mu      sync.Mutex
	clients map[string]genaiClient
}

// NewVertexService validates opts. Clients are created on first use.
func NewVertexService(opts VertexOptions) (*VertexService, error) {
	if strings.TrimSpace(opts.Project) == "" {
		return nil, errors.New("tuning: vertex project is required")
	}
	if opts.ServingRegion == "" {
		return nil, errors.New("tuning: vertex serving region is required")
	}
	if opts.TuningRegion == "" {
		opts.TuningRegion = opts.ServingRegion
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.NewClient == nil {
		opts.NewClient = newGenaiClient
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &VertexService{
		opts:    opts,
		logger:  logger,
		clients: map[string]genaiClient{},
	}, nil
}

func (s *VertexService) client(ctx context.Context, region string) (genaiClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.clients[region]; ok {
		return c, nil
	}

	c, err := s.opts.NewClient(ctx, &genai.ClientConfig{
		Backend:  genai.BackendVertexAI,
		Project:  s.opts.Project,
		Location: region,
	})
	if err != nil {
		return nil, fmt.Errorf("tuning: creating genai client for %s: %w", region, err)
	}
	s.clients[region] = c
	return c, nil
}

// SubmitTuning starts a supervised tuning job. Vertex only reads training
// data from Cloud Storage, so the URI must be gs://.
func (s *VertexService) SubmitTuning(ctx context.Context, req models.TuningRequest) (*models.TuningJob, error) {
	if err := ValidateRequest(req, s.logger); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(req.TrainingDataURI, "gs://") {
		return nil, fmt.Errorf("%w: vertex reads training data from gs:// URIs, got %s", ErrTuningSubmission, req.TrainingDataURI)
	}

	region := req.TuningRegion
	if region == "" {
		region = s.opts.TuningRegion
	}
	client, err := s.client(ctx, region)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTuningSubmission, err)
	}

	config := &genai.CreateTuningJobConfig{
		TunedModelDisplayName: req.ModelDisplayName,
	}
	if epochs, ok := stepsToEpochs(req.TrainSteps, s.opts.BatchSize, req.ExampleCount); ok {
		config.EpochCount = genai.Ptr(epochs)
	} else {
		s.logger.Warn("example count unknown, using the service's default epoch count", "train_steps", req.TrainSteps)
	}

	if isGeminiModel(req.BaseModel) {
		s.logger.Warn("gemini tuning expects chat-style contents records, input_text/output_text files may be rejected by the job",
			"base_model", req.BaseModel,
			"training_data", req.TrainingDataURI)
	}

	s.logger.Debug("submitting tuning job",
		"base_model", req.BaseModel,
		"region", region,
		"training_data", req.TrainingDataURI,
		"epochs", config.EpochCount)

	job, err := client.Tune(ctx, req.BaseModel, &genai.TuningDataset{GCSURI: req.TrainingDataURI}, config)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTuningSubmission, err)
	}
	if job == nil {
		return nil, fmt.Errorf("%w: service returned no job", ErrTuningSubmission)
	}
	if job.Error != nil && job.Error.Code != 0 {
		return nil, fmt.Errorf("%w: %s (code %d)", ErrTuningSubmission, job.Error.Message, job.Error.Code)
	}

	out := &models.TuningJob{
		Name:        job.Name,
		State:       jobState(job.State),
		BaseModel:   job.BaseModel,
		DisplayName: req.ModelDisplayName,
		CreateTime:  job.CreateTime,
	}
	if out.BaseModel == "" {
		out.BaseModel = req.BaseModel
	}
	return out, nil
}

// ListTunedModels lists non-base models in the serving region and keeps
// those tuned from baseModel.
func (s *VertexService) ListTunedModels(ctx context.Context, baseModel string) ([]models.ModelHandle, error) {
	client, err := s.client(ctx, s.opts.ServingRegion)
	if err != nil {
		return nil, err
	}

	all, err := client.ListModels(ctx, &genai.ListModelsConfig{
		PageSize:  100,
		QueryBase: genai.Ptr(false),
	})
	if err != nil {
		return nil, fmt.Errorf("tuning: listing models: %w", err)
	}

	var handles []models.ModelHandle
	for _, m := range all {
		if m == nil || m.TunedModelInfo == nil || !sameModel(m.TunedModelInfo.BaseModel, baseModel) {
			continue
		}
		h := models.ModelHandle{
			Name:        m.Name,
			DisplayName: m.DisplayName,
			BaseModel:   m.TunedModelInfo.BaseModel,
			CreateTime:  m.TunedModelInfo.CreateTime,
		}
		for _, ep := range m.Endpoints {
			if ep != nil && ep.Name != "" {
				h.Endpoint = ep.Name
				break
			}
		}
		handles = append(handles, h)
	}
	return handles, nil
}

// Predict requests a single candidate from the model's endpoint.
func (s *VertexService) Predict(ctx context.Context, model models.ModelHandle, prompt string) (string, error) {
	client, err := s.client(ctx, s.opts.ServingRegion)
	if err != nil {
		return "", err
	}

	config := &genai.GenerateContentConfig{
		CandidateCount:  1,
		Temperature:     s.opts.Temperature,
		MaxOutputTokens: s.opts.MaxOutputTokens,
	}
	resp, err := client.GenerateContent(ctx, model.Target(), genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("tuning: generate content: %w", err)
	}
	if resp == nil {
		return "", nil
	}
	return resp.Text(), nil
}

// stepsToEpochs converts a step count into whole epochs over examples,
// rounding up so at least steps*batch examples are seen.
func stepsToEpochs(steps, batch, examples int) (int32, bool) {
	if examples <= 0 || steps <= 0 || batch <= 0 {
		return 0, false
	}
	epochs := math.Ceil(float64(steps) * float64(batch) / float64(examples))
	return int32(max(epochs, 1)), true
}

func isGeminiModel(name string) bool {
	return strings.HasPrefix(path.Base(name), "gemini-")
}

// sameModel compares model names ignoring any resource path prefix, so
// "gemini-2.0-flash-001" matches
// "projects/p/locations/l/publishers/google/models/gemini-2.0-flash-001".
func sameModel(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return path.Base(a) == path.Base(b)
}

func jobState(s genai.JobState) models.JobState {
	switch s {
	case genai.JobStateQueued, genai.JobStatePending:
		return models.JobStateQueued
	case genai.JobStateRunning, genai.JobStateUpdating:
		return models.JobStateRunning
	case genai.JobStateSucceeded, genai.JobStatePartiallySucceeded:
		return models.JobStateSucceeded
	case genai.JobStateFailed, genai.JobStateExpired:
		return models.JobStateFailed
	case genai.JobStateCancelling, genai.JobStateCancelled:
		return models.JobStateCancelled
	default:
		return models.JobStateUnknown
	}
}
