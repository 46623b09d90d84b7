package tuning

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/spboyer/tuneval/internal/models"
	"github.com/stretchr/testify/require"
)

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*models.TuningRequest)
		wantErr string
		wantLog bool
	}{
		{name: "valid", mutate: func(*models.TuningRequest) {}},
		{name: "missing uri", mutate: func(r *models.TuningRequest) { r.TrainingDataURI = " " }, wantErr: "training data URI"},
		{name: "missing base model", mutate: func(r *models.TuningRequest) { r.BaseModel = "" }, wantErr: "base model"},
		{name: "missing display name", mutate: func(r *models.TuningRequest) { r.ModelDisplayName = "" }, wantErr: "display name"},
		{name: "zero steps", mutate: func(r *models.TuningRequest) { r.TrainSteps = 0 }, wantErr: "train_steps"},
		{name: "too many steps", mutate: func(r *models.TuningRequest) { r.TrainSteps = MaxTrainSteps + 1 }, wantErr: "train_steps"},
		{name: "few steps warns", mutate: func(r *models.TuningRequest) { r.TrainSteps = 50 }, wantLog: true},
		{name: "many steps warns", mutate: func(r *models.TuningRequest) { r.TrainSteps = 1000 }, wantLog: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))

			req := validRequest()
			tt.mutate(&req)

			err := ValidateRequest(req, logger)
			if tt.wantErr != "" {
				require.ErrorIs(t, err, ErrTuningSubmission)
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantLog, bytes.Contains(buf.Bytes(), []byte("recommended range")))
		})
	}
}

func TestSameModel(t *testing.T) {
	require.True(t, sameModel("gemini-2.0-flash-001", "publishers/google/models/gemini-2.0-flash-001"))
	require.True(t, sameModel("models/x", "x"))
	require.False(t, sameModel("gemini-2.0-flash-001", "gemini-1.5-pro-002"))
	require.False(t, sameModel("", ""))
}
