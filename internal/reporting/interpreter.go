package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/spboyer/tuneval/internal/models"
)

// InterpretScore returns a plain-language label for an overlap score (0–1).
// Overlap scores for free-form answers run much lower than accuracy, so the
// bands are narrower than a pass rate's.
func InterpretScore(score float64) string {
	pct := score * 100
	switch {
	case pct >= 60:
		return "High overlap (>=60%)"
	case pct >= 40:
		return "Moderate overlap (40-60%)"
	case pct >= 20:
		return "Low overlap (20-40%)"
	default:
		return "Very low overlap (<20%)"
	}
}

// FormatSummaryReport produces a plain-language report from an EvaluationOutcome.
func FormatSummaryReport(outcome *models.EvaluationOutcome) string {
	var b strings.Builder

	duration := time.Duration(outcome.DurationMs) * time.Millisecond
	c := outcome.Counts

	b.WriteString("=== Interpretation ===\n\n")

	if s := outcome.Scores; s != nil {
		fmt.Fprintf(&b, "Precision overlap (BLEU):  %.4f — %s\n", s.PrecisionOverlap, InterpretScore(s.PrecisionOverlap))
		fmt.Fprintf(&b, "Recall overlap (ROUGE-1):  %.4f — %s\n", s.RecallOverlap, InterpretScore(s.RecallOverlap))
		if s.BLEU.BrevityPenalty < 1 {
			fmt.Fprintf(&b, "Answers are shorter than the references (brevity penalty %.3f).\n", s.BLEU.BrevityPenalty)
		}
		if ci := s.RecallCI; ci != nil {
			fmt.Fprintf(&b, "Recall %.0f%% CI:            [%.4f, %.4f]\n", ci.ConfidenceLevel*100, ci.Lower, ci.Upper)
		}
	}
	fmt.Fprintf(&b, "Duration:                  %v\n", duration)
	fmt.Fprintf(&b, "Samples:                   %d scored from %d inputs (%d too long, %d retained, %d empty, %d failed)\n",
		c.Generated, c.Inputs, c.TooLong, c.Retained, c.EmptyResponse, c.Failed)

	switch outcome.Status {
	case models.StatusPassed:
		b.WriteString("\nAll configured thresholds met.\n")
	case models.StatusFailed:
		b.WriteString("\nThresholds missed:\n")
		for _, f := range outcome.Failures {
			fmt.Fprintf(&b, "  ✗ %s\n", f)
		}
	}

	return b.String()
}
