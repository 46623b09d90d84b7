package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spboyer/tuneval/internal/evaluator"
)

// Exit codes for different failure modes
const (
	ExitSuccess         = 0 // Pipeline stage completed
	ExitThresholdFailed = 1 // Scores below a configured threshold
	ExitError           = 2 // Configuration or runtime error
)

func main() {
	os.Exit(exitCode(execute()))
}

func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	fmt.Fprintln(os.Stderr, err) //nolint:errcheck

	// The evaluation ran, but the model missed its targets.
	var thresholdErr *evaluator.ThresholdError
	if errors.As(err, &thresholdErr) {
		return ExitThresholdFailed
	}

	// All other errors are configuration/runtime errors
	return ExitError
}
