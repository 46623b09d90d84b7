package tuning

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/spboyer/tuneval/internal/models"
)

// MockService is an in-process Service for offline runs and tests.
// Submitted jobs immediately produce a tuned model, and predictions echo
// known answers.
type MockService struct {
	mu      sync.Mutex
	answers map[string]string
	tuned   []models.ModelHandle
	jobs    int
	now     func() time.Time
}

// NewMockService creates an empty mock service
func NewMockService() *MockService {
	return &MockService{
		answers: map[string]string{},
		now:     time.Now,
	}
}

// WithAnswers makes Predict return OutputText for each record's InputText.
func (m *MockService) WithAnswers(records []models.Record) *MockService {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		m.answers[r.InputText] = r.OutputText
	}
	return m
}

// AddModel registers an existing tuned model.
func (m *MockService) AddModel(h models.ModelHandle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tuned = append(m.tuned, h)
}

func (m *MockService) SubmitTuning(ctx context.Context, req models.TuningRequest) (*models.TuningJob, error) {
	if err := ValidateRequest(req, nil); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTuningSubmission, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.jobs++
	created := m.now()
	job := &models.TuningJob{
		Name:        fmt.Sprintf("mock/tuningJobs/%d", m.jobs),
		State:       models.JobStateSucceeded,
		BaseModel:   req.BaseModel,
		DisplayName: req.ModelDisplayName,
		CreateTime:  created,
	}
	m.tuned = append(m.tuned, models.ModelHandle{
		Name:        fmt.Sprintf("mock/models/%s-%d", req.ModelDisplayName, m.jobs),
		DisplayName: req.ModelDisplayName,
		BaseModel:   req.BaseModel,
		CreateTime:  created,
	})
	return job, nil
}

func (m *MockService) ListTunedModels(ctx context.Context, baseModel string) ([]models.ModelHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.ModelHandle
	for _, h := range m.tuned {
		if sameModel(h.BaseModel, baseModel) {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *MockService) Predict(ctx context.Context, model models.ModelHandle, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if answer, ok := m.answers[prompt]; ok {
		return answer, nil
	}
	return fmt.Sprintf("Mock response for: %s", prompt), nil
}
