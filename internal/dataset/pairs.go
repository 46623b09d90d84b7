package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spboyer/tuneval/internal/models"
)

// ReadSamples decodes one {"candidate", "reference"} object per non-blank
// line. An "input" field is kept when present.
func ReadSamples(r io.Reader) ([]models.EvaluationSample, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var samples []models.EvaluationSample
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var raw struct {
			Input     string  `json:"input"`
			Candidate *string `json:"candidate"`
			Reference *string `json:"reference"`
		}
		if err := json.Unmarshal(line, &raw); err != nil {
			return nil, fmt.Errorf("dataset: line %d: %w", lineNo, err)
		}
		if raw.Candidate == nil || raw.Reference == nil {
			return nil, fmt.Errorf("dataset: line %d: candidate and reference are required", lineNo)
		}
		samples = append(samples, models.EvaluationSample{
			Input:     raw.Input,
			Candidate: *raw.Candidate,
			Reference: *raw.Reference,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("dataset: reading: %w", err)
	}
	return samples, nil
}

// ReadSamplesFile reads the samples stored at path.
func ReadSamplesFile(path string) ([]models.EvaluationSample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: opening %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	samples, err := ReadSamples(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return samples, nil
}
