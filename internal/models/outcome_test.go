package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThresholdsIsZero(t *testing.T) {
	assert.True(t, Thresholds{}.IsZero())
	assert.True(t, Thresholds{PrecisionOverlap: -1}.IsZero())
	assert.False(t, Thresholds{RecallOverlap: 0.2}.IsZero())
}

func TestThresholdsCheck(t *testing.T) {
	report := &ScoreReport{PrecisionOverlap: 0.3, RecallOverlap: 0.6}

	tests := []struct {
		name       string
		thresholds Thresholds
		want       []string
	}{
		{name: "none configured", thresholds: Thresholds{}},
		{name: "both met", thresholds: Thresholds{PrecisionOverlap: 0.3, RecallOverlap: 0.5}},
		{
			name:       "precision missed",
			thresholds: Thresholds{PrecisionOverlap: 0.4},
			want:       []string{"precision_overlap below threshold"},
		},
		{
			name:       "both missed",
			thresholds: Thresholds{PrecisionOverlap: 0.9, RecallOverlap: 0.9},
			want:       []string{"precision_overlap below threshold", "recall_overlap below threshold"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.thresholds.Check(report))
		})
	}
}

func TestModelHandleTarget(t *testing.T) {
	assert.Equal(t, "models/123", ModelHandle{Name: "models/123"}.Target())
	assert.Equal(t, "endpoints/9", ModelHandle{Name: "models/123", Endpoint: "endpoints/9"}.Target())
}

func TestCandidatesAndReferences(t *testing.T) {
	samples := []EvaluationSample{
		{Input: "q1", Candidate: "c1", Reference: "r1"},
		{Input: "q2", Candidate: "c2", Reference: "r2"},
	}
	assert.Equal(t, []string{"c1", "c2"}, Candidates(samples))
	assert.Equal(t, []string{"r1", "r2"}, References(samples))
	assert.Empty(t, Candidates(nil))
}
