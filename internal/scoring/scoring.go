// Package scoring computes corpus-level n-gram overlap scores between
// model-generated candidates and reference answers.
package scoring

import (
	"errors"
	"fmt"

	"github.com/spboyer/tuneval/internal/models"
	"github.com/spboyer/tuneval/internal/statistics"
)

var (
	// ErrEmptyScoreInput is returned when there are no pairs to score. An
	// empty corpus has no defined score, so callers never get a silent zero.
	ErrEmptyScoreInput = errors.New("scoring: no candidate/reference pairs to score")

	// ErrMismatchedPairs is returned when candidates and references differ
	// in length.
	ErrMismatchedPairs = errors.New("scoring: candidates and references must have equal length")
)

// Options controls score computation.
type Options struct {
	// BLEUMaxOrder is the highest n-gram order BLEU considers. Zero means
	// DefaultBLEUMaxOrder.
	BLEUMaxOrder int

	// ConfidenceLevel for the bootstrap interval on ROUGE-1 recall. Zero
	// disables the interval.
	ConfidenceLevel float64

	// Seed for the bootstrap resampling.
	Seed uint64
}

// Score computes the precision-oriented (BLEU) and recall-oriented
// (ROUGE-1 recall) overlap between parallel candidates and references.
// It is a pure function of its inputs.
func Score(candidates, references []string, opts Options) (*models.ScoreReport, error) {
	if err := checkPairs(candidates, references); err != nil {
		return nil, err
	}

	maxOrder := opts.BLEUMaxOrder
	if maxOrder == 0 {
		maxOrder = DefaultBLEUMaxOrder
	}

	bleu, err := BLEU(candidates, references, maxOrder)
	if err != nil {
		return nil, err
	}

	rouge, err := ROUGE(candidates, references)
	if err != nil {
		return nil, err
	}

	report := &models.ScoreReport{
		PrecisionOverlap: bleu.Score,
		RecallOverlap:    rouge.Rouge1Recall,
		SampleCount:      len(candidates),
		BLEU:             bleu,
		ROUGE:            rouge,
	}

	if opts.ConfidenceLevel > 0 {
		ci := statistics.BootstrapCI(rouge.PerSampleRecall, opts.ConfidenceLevel, opts.Seed)
		report.RecallCI = &ci
	}

	return report, nil
}

// ScoreSamples is Score over the candidate/reference fields of samples.
func ScoreSamples(samples []models.EvaluationSample, opts Options) (*models.ScoreReport, error) {
	return Score(models.Candidates(samples), models.References(samples), opts)
}

func checkPairs(candidates, references []string) error {
	if len(candidates) != len(references) {
		return fmt.Errorf("%w: %d candidates, %d references", ErrMismatchedPairs, len(candidates), len(references))
	}
	if len(candidates) == 0 {
		return ErrEmptyScoreInput
	}
	return nil
}
