package models

import (
	"time"

	"github.com/spboyer/tuneval/internal/statistics"
)

// Status represents the outcome status of an evaluation or sample.
type Status string

const (
	StatusPassed Status = "passed"
	StatusFailed Status = "failed"
	StatusError  Status = "error"
)

// ScoreReport aggregates n-gram overlap scores over a set of samples. It is
// recomputed for every run and never merged with another report.
type ScoreReport struct {
	// PrecisionOverlap is corpus BLEU (clipped n-gram precision with a
	// brevity penalty).
	PrecisionOverlap float64 `json:"precision_overlap"`
	// RecallOverlap is the mean ROUGE-1 recall over samples.
	RecallOverlap float64 `json:"recall_overlap"`

	SampleCount int         `json:"sample_count"`
	BLEU        BLEUDetail  `json:"bleu"`
	ROUGE       ROUGEDetail `json:"rouge"`

	// RecallCI is a bootstrap confidence interval over per-sample ROUGE-1
	// recall.
	RecallCI *statistics.ConfidenceInterval `json:"recall_ci,omitempty"`
}

// BLEUDetail mirrors the fields commonly reported by BLEU implementations.
type BLEUDetail struct {
	Score           float64   `json:"bleu"`
	MaxOrder        int       `json:"max_order"`
	Precisions      []float64 `json:"precisions"`
	BrevityPenalty  float64   `json:"brevity_penalty"`
	LengthRatio     float64   `json:"length_ratio"`
	CandidateLength int       `json:"translation_length"`
	ReferenceLength int       `json:"reference_length"`
}

// ROUGEDetail holds corpus-averaged ROUGE values.
type ROUGEDetail struct {
	Rouge1Precision float64 `json:"rouge1_precision"`
	Rouge1Recall    float64 `json:"rouge1_recall"`
	Rouge1          float64 `json:"rouge1"`
	Rouge2          float64 `json:"rouge2"`
	RougeL          float64 `json:"rougeL"`

	// PerSampleRecall is ROUGE-1 recall for each sample, in sample order.
	PerSampleRecall []float64 `json:"per_sample_rouge1_recall,omitempty"`
}

// Thresholds are optional minimum scores an evaluation must reach.
type Thresholds struct {
	PrecisionOverlap float64 `json:"precision_overlap,omitempty" yaml:"precision_overlap,omitempty"`
	RecallOverlap    float64 `json:"recall_overlap,omitempty" yaml:"recall_overlap,omitempty"`
}

// IsZero reports whether no threshold is configured.
func (t Thresholds) IsZero() bool {
	return t.PrecisionOverlap <= 0 && t.RecallOverlap <= 0
}

// Check returns the failure messages for report against t.
func (t Thresholds) Check(report *ScoreReport) []string {
	var failures []string
	if t.PrecisionOverlap > 0 && report.PrecisionOverlap < t.PrecisionOverlap {
		failures = append(failures, "precision_overlap below threshold")
	}
	if t.RecallOverlap > 0 && report.RecallOverlap < t.RecallOverlap {
		failures = append(failures, "recall_overlap below threshold")
	}
	return failures
}

// GenerationCounts tracks what happened to evaluation inputs.
type GenerationCounts struct {
	Inputs        int `json:"inputs"`
	TooLong       int `json:"too_long"`
	Retained      int `json:"retained"`
	Generated     int `json:"generated"`
	EmptyResponse int `json:"empty_response"`
	Failed        int `json:"failed"`
	Cached        int `json:"cached"`
}

// OutcomeSetup captures the settings an evaluation ran with.
type OutcomeSetup struct {
	BaseModel      string `json:"base_model"`
	ServingRegion  string `json:"serving_region,omitempty"`
	EvalRowLimit   int    `json:"eval_row_limit"`
	InputCharLimit int    `json:"input_char_limit"`
	BLEUMaxOrder   int    `json:"bleu_max_order"`
	OnError        string `json:"on_prediction_error"`
}

// EvaluationOutcome represents the complete result of an evaluation run.
type EvaluationOutcome struct {
	RunID      string             `json:"run_id"`
	Timestamp  time.Time          `json:"timestamp"`
	DurationMs int64              `json:"duration_ms"`
	Model      ModelHandle        `json:"model"`
	Setup      OutcomeSetup       `json:"config"`
	Counts     GenerationCounts   `json:"counts"`
	Scores     *ScoreReport       `json:"scores"`
	Thresholds Thresholds         `json:"thresholds,omitempty"`
	Status     Status             `json:"status"`
	Failures   []string           `json:"failures,omitempty"`
	Samples    []EvaluationSample `json:"samples"`
}
