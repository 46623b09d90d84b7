package dataset

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSamples(t *testing.T) {
	in := `{"candidate": "the cat sat", "reference": "the cat sat on the mat"}

{"input": "q", "candidate": "", "reference": "an answer"}
`
	samples, err := ReadSamples(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, "the cat sat", samples[0].Candidate)
	assert.Equal(t, "the cat sat on the mat", samples[0].Reference)
	assert.Equal(t, "q", samples[1].Input)
	assert.Empty(t, samples[1].Candidate)
}

func TestReadSamples_Errors(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr string
	}{
		{"missing reference", `{"candidate": "x"}`, "line 1: candidate and reference are required"},
		{"bad json", "{\"candidate\": \"x\", \"reference\": \"y\"}\n{oops}", "line 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadSamples(strings.NewReader(tt.in))
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
