package evaluator

import (
	"errors"
	"fmt"
	"strings"
)

// ErrPrediction is matched by every PredictionError.
var ErrPrediction = errors.New("evaluator: prediction failed")

// PredictionError reports a prediction that still failed after retries.
// Index is the input's position in the filtered evaluation set.
type PredictionError struct {
	Index    int
	Attempts int
	Err      error
}

func (e *PredictionError) Error() string {
	return fmt.Sprintf("evaluator: prediction for input %d failed after %d attempt(s): %v", e.Index, e.Attempts, e.Err)
}

func (e *PredictionError) Unwrap() []error {
	return []error{ErrPrediction, e.Err}
}

// ThresholdError is returned when scores fall below configured minimums.
type ThresholdError struct {
	Failures []string
}

func (e *ThresholdError) Error() string {
	return "evaluation below threshold: " + strings.Join(e.Failures, "; ")
}
