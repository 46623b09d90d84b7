package tuning

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/spboyer/tuneval/internal/models"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"google.golang.org/genai"
)

func newTestVertexService(t *testing.T, clients map[string]genaiClient) *VertexService {
	t.Helper()

	svc, err := NewVertexService(VertexOptions{
		Project:         "my-project",
		TuningRegion:    "europe-west4",
		ServingRegion:   "us-central1",
		BatchSize:       8,
		MaxOutputTokens: 256,
		NewClient: func(ctx context.Context, config *genai.ClientConfig) (genaiClient, error) {
			require.Equal(t, genai.BackendVertexAI, config.Backend)
			require.Equal(t, "my-project", config.Project)
			c, ok := clients[config.Location]
			if !ok {
				return nil, errors.New("no client for " + config.Location)
			}
			return c, nil
		},
	})
	require.NoError(t, err)
	return svc
}

func validRequest() models.TuningRequest {
	return models.TuningRequest{
		TrainingDataURI:  "gs://bucket/tuneval/run-1/train.jsonl",
		BaseModel:        "gemini-2.0-flash-001",
		ModelDisplayName: "tuneval-qa",
		TrainSteps:       100,
		ExampleCount:     400,
	}
}

func TestVertexSubmitTuning(t *testing.T) {
	ctrl := gomock.NewController(t)
	tuningMock := NewMockgenaiClient(ctrl)

	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tuningMock.EXPECT().
		Tune(gomock.Any(), "gemini-2.0-flash-001", &genai.TuningDataset{GCSURI: "gs://bucket/tuneval/run-1/train.jsonl"}, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, _ *genai.TuningDataset, config *genai.CreateTuningJobConfig) (*genai.TuningJob, error) {
			require.Equal(t, "tuneval-qa", config.TunedModelDisplayName)
			require.NotNil(t, config.EpochCount)
			// 100 steps * 8 per batch / 400 examples
			require.Equal(t, int32(2), *config.EpochCount)
			return &genai.TuningJob{
				Name:       "projects/my-project/locations/europe-west4/tuningJobs/42",
				State:      genai.JobStatePending,
				BaseModel:  "gemini-2.0-flash-001",
				CreateTime: created,
			}, nil
		})

	svc := newTestVertexService(t, map[string]genaiClient{"europe-west4": tuningMock})

	job, err := svc.SubmitTuning(context.Background(), validRequest())
	require.NoError(t, err)
	require.Equal(t, "projects/my-project/locations/europe-west4/tuningJobs/42", job.Name)
	require.Equal(t, models.JobStateQueued, job.State)
	require.Equal(t, "tuneval-qa", job.DisplayName)
	require.Equal(t, created, job.CreateTime)
}

func TestVertexSubmitTuningUsesRequestRegion(t *testing.T) {
	ctrl := gomock.NewController(t)
	otherRegion := NewMockgenaiClient(ctrl)

	otherRegion.EXPECT().Tune(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&genai.TuningJob{Name: "job", State: genai.JobStateRunning}, nil)

	svc := newTestVertexService(t, map[string]genaiClient{"asia-southeast1": otherRegion})

	req := validRequest()
	req.TuningRegion = "asia-southeast1"
	job, err := svc.SubmitTuning(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, models.JobStateRunning, job.State)
	require.Equal(t, "gemini-2.0-flash-001", job.BaseModel)
}

func TestVertexSubmitTuningFailures(t *testing.T) {
	t.Run("service error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		tuningMock := NewMockgenaiClient(ctrl)
		tuningMock.EXPECT().Tune(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, errors.New("quota exceeded"))

		svc := newTestVertexService(t, map[string]genaiClient{"europe-west4": tuningMock})
		_, err := svc.SubmitTuning(context.Background(), validRequest())
		require.ErrorIs(t, err, ErrTuningSubmission)
		require.ErrorContains(t, err, "quota exceeded")
	})

	t.Run("job error status", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		tuningMock := NewMockgenaiClient(ctrl)
		tuningMock.EXPECT().Tune(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&genai.TuningJob{Error: &genai.GoogleRpcStatus{Code: 3, Message: "bad dataset"}}, nil)

		svc := newTestVertexService(t, map[string]genaiClient{"europe-west4": tuningMock})
		_, err := svc.SubmitTuning(context.Background(), validRequest())
		require.ErrorIs(t, err, ErrTuningSubmission)
		require.ErrorContains(t, err, "bad dataset")
	})

	t.Run("non gcs uri", func(t *testing.T) {
		svc := newTestVertexService(t, nil)
		req := validRequest()
		req.TrainingDataURI = "s3://bucket/train.jsonl"
		_, err := svc.SubmitTuning(context.Background(), req)
		require.ErrorIs(t, err, ErrTuningSubmission)
	})

	t.Run("client construction", func(t *testing.T) {
		svc := newTestVertexService(t, nil)
		_, err := svc.SubmitTuning(context.Background(), validRequest())
		require.ErrorIs(t, err, ErrTuningSubmission)
		require.ErrorContains(t, err, "europe-west4")
	})

	t.Run("invalid steps", func(t *testing.T) {
		svc := newTestVertexService(t, nil)
		req := validRequest()
		req.TrainSteps = 0
		_, err := svc.SubmitTuning(context.Background(), req)
		require.ErrorIs(t, err, ErrTuningSubmission)
	})
}

func TestVertexSubmitTuningWithoutExampleCount(t *testing.T) {
	ctrl := gomock.NewController(t)
	tuningMock := NewMockgenaiClient(ctrl)
	tuningMock.EXPECT().Tune(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, _ *genai.TuningDataset, config *genai.CreateTuningJobConfig) (*genai.TuningJob, error) {
			require.Nil(t, config.EpochCount)
			return &genai.TuningJob{Name: "job"}, nil
		})

	svc := newTestVertexService(t, map[string]genaiClient{"europe-west4": tuningMock})
	req := validRequest()
	req.ExampleCount = 0
	job, err := svc.SubmitTuning(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, models.JobStateUnknown, job.State)
}

func TestVertexSubmitTuningWarnsOnGeminiRecordFormat(t *testing.T) {
	tests := []struct {
		baseModel string
		wantWarn  bool
	}{
		{baseModel: "gemini-2.0-flash-001", wantWarn: true},
		{baseModel: "projects/p/locations/l/publishers/google/models/gemini-1.5-pro-002", wantWarn: true},
		{baseModel: "text-bison@002", wantWarn: false},
	}
	for _, tt := range tests {
		t.Run(tt.baseModel, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			tuningMock := NewMockgenaiClient(ctrl)
			tuningMock.EXPECT().Tune(gomock.Any(), tt.baseModel, gomock.Any(), gomock.Any()).
				Return(&genai.TuningJob{Name: "job"}, nil)

			var logs bytes.Buffer
			svc := newTestVertexService(t, map[string]genaiClient{"europe-west4": tuningMock})
			svc.logger = slog.New(slog.NewTextHandler(&logs, nil))

			req := validRequest()
			req.BaseModel = tt.baseModel
			_, err := svc.SubmitTuning(context.Background(), req)
			require.NoError(t, err)

			if tt.wantWarn {
				require.Contains(t, logs.String(), "level=WARN")
				require.Contains(t, logs.String(), "chat-style contents")
			} else {
				require.NotContains(t, logs.String(), "chat-style contents")
			}
		})
	}
}

func TestVertexListTunedModels(t *testing.T) {
	ctrl := gomock.NewController(t)
	servingMock := NewMockgenaiClient(ctrl)

	older := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(24 * time.Hour)

	servingMock.EXPECT().ListModels(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, config *genai.ListModelsConfig) ([]*genai.Model, error) {
			require.NotNil(t, config.QueryBase)
			require.False(t, *config.QueryBase)
			return []*genai.Model{
				{
					Name:        "projects/p/locations/us-central1/models/1",
					DisplayName: "tuneval-qa",
					Endpoints:   []*genai.Endpoint{{Name: "projects/p/locations/us-central1/endpoints/11"}},
					TunedModelInfo: &genai.TunedModelInfo{
						BaseModel:  "projects/p/locations/us-central1/publishers/google/models/gemini-2.0-flash-001",
						CreateTime: older,
					},
				},
				{
					Name:           "projects/p/locations/us-central1/models/2",
					TunedModelInfo: &genai.TunedModelInfo{BaseModel: "gemini-2.0-flash-001", CreateTime: newer},
				},
				{
					Name:           "projects/p/locations/us-central1/models/3",
					TunedModelInfo: &genai.TunedModelInfo{BaseModel: "gemini-1.5-pro-002", CreateTime: newer},
				},
				{Name: "publishers/google/models/gemini-2.0-flash-001"},
				nil,
			}, nil
		})

	svc := newTestVertexService(t, map[string]genaiClient{"us-central1": servingMock})

	handles, err := svc.ListTunedModels(context.Background(), "gemini-2.0-flash-001")
	require.NoError(t, err)
	require.Len(t, handles, 2)
	require.Equal(t, "projects/p/locations/us-central1/models/1", handles[0].Name)
	require.Equal(t, "projects/p/locations/us-central1/endpoints/11", handles[0].Endpoint)
	require.Equal(t, older, handles[0].CreateTime)
	require.Equal(t, "projects/p/locations/us-central1/models/2", handles[1].Name)
	require.Empty(t, handles[1].Endpoint)
}

func TestVertexListTunedModelsError(t *testing.T) {
	ctrl := gomock.NewController(t)
	servingMock := NewMockgenaiClient(ctrl)
	servingMock.EXPECT().ListModels(gomock.Any(), gomock.Any()).Return(nil, errors.New("permission denied"))

	svc := newTestVertexService(t, map[string]genaiClient{"us-central1": servingMock})
	_, err := svc.ListTunedModels(context.Background(), "gemini-2.0-flash-001")
	require.ErrorContains(t, err, "permission denied")
}

func TestVertexPredict(t *testing.T) {
	ctrl := gomock.NewController(t)
	servingMock := NewMockgenaiClient(ctrl)

	servingMock.EXPECT().
		GenerateContent(gomock.Any(), "projects/p/locations/us-central1/endpoints/11", genai.Text("what is a list?"), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, _ []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			require.Equal(t, int32(1), config.CandidateCount)
			require.Equal(t, int32(256), config.MaxOutputTokens)
			return &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{Content: genai.NewContentFromText("an ordered sequence", genai.RoleModel)}},
			}, nil
		})

	// the client is created once and reused
	servingMock.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&genai.GenerateContentResponse{}, nil)

	svc := newTestVertexService(t, map[string]genaiClient{"us-central1": servingMock})
	handle := models.ModelHandle{
		Name:     "projects/p/locations/us-central1/models/1",
		Endpoint: "projects/p/locations/us-central1/endpoints/11",
	}

	text, err := svc.Predict(context.Background(), handle, "what is a list?")
	require.NoError(t, err)
	require.Equal(t, "an ordered sequence", text)

	text, err = svc.Predict(context.Background(), handle, "again")
	require.NoError(t, err)
	require.Empty(t, text)
}

func TestVertexPredictError(t *testing.T) {
	ctrl := gomock.NewController(t)
	servingMock := NewMockgenaiClient(ctrl)
	servingMock.EXPECT().GenerateContent(gomock.Any(), "models/1", gomock.Any(), gomock.Any()).
		Return(nil, errors.New("unavailable"))

	svc := newTestVertexService(t, map[string]genaiClient{"us-central1": servingMock})
	_, err := svc.Predict(context.Background(), models.ModelHandle{Name: "models/1"}, "q")
	require.ErrorContains(t, err, "unavailable")
}

func TestNewVertexServiceValidation(t *testing.T) {
	_, err := NewVertexService(VertexOptions{ServingRegion: "us-central1"})
	require.Error(t, err)

	_, err = NewVertexService(VertexOptions{Project: "p"})
	require.Error(t, err)

	svc, err := NewVertexService(VertexOptions{Project: "p", ServingRegion: "us-central1"})
	require.NoError(t, err)
	require.Equal(t, "us-central1", svc.opts.TuningRegion)
	require.Equal(t, DefaultBatchSize, svc.opts.BatchSize)
}

func TestStepsToEpochs(t *testing.T) {
	tests := []struct {
		name                   string
		steps, batch, examples int
		want                   int32
		ok                     bool
	}{
		{"exact", 100, 8, 400, 2, true},
		{"rounds up", 100, 8, 300, 3, true},
		{"at least one", 1, 1, 1000, 1, true},
		{"unknown examples", 100, 8, 0, 0, false},
		{"no batch", 100, 0, 10, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := stepsToEpochs(tt.steps, tt.batch, tt.examples)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestJobState(t *testing.T) {
	require.Equal(t, models.JobStateQueued, jobState(genai.JobStateQueued))
	require.Equal(t, models.JobStateRunning, jobState(genai.JobStateRunning))
	require.Equal(t, models.JobStateSucceeded, jobState(genai.JobStateSucceeded))
	require.Equal(t, models.JobStateFailed, jobState(genai.JobStateExpired))
	require.Equal(t, models.JobStateCancelled, jobState(genai.JobStateCancelling))
	require.Equal(t, models.JobStateUnknown, jobState(genai.JobStateUnspecified))
}
