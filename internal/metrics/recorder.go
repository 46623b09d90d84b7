// Package metrics exposes pipeline counters through a private Prometheus
// registry. A nil *Recorder is valid and records nothing.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spboyer/tuneval/internal/models"
)

const namespace = "tuneval"

// Prediction results.
const (
	ResultOK     = "ok"
	ResultEmpty  = "empty"
	ResultError  = "error"
	ResultCached = "cached"
	ResultRetry  = "retry"
)

// Recorder holds the pipeline's collectors.
type Recorder struct {
	registry *prometheus.Registry

	predictions       *prometheus.CounterVec
	predictionLatency prometheus.Histogram
	recordsFetched    prometheus.Counter
	splitSize         *prometheus.GaugeVec
	uploads           *prometheus.CounterVec
	scores            *prometheus.GaugeVec
}

// NewRecorder registers every collector on a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),

		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Prediction requests by result",
		}, []string{"result"}),

		predictionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_duration_seconds",
			Help:      "Prediction request latency, including retries",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),

		recordsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_fetched_total",
			Help:      "Records read from the data source",
		}),

		splitSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "split_records",
			Help:      "Records in each dataset subset",
		}, []string{"subset"}),

		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Artifact uploads by result",
		}, []string{"result"}),

		scores: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "score",
			Help:      "Latest evaluation scores",
		}, []string{"metric"}),
	}

	r.registry.MustRegister(
		r.predictions,
		r.predictionLatency,
		r.recordsFetched,
		r.splitSize,
		r.uploads,
		r.scores,
	)
	return r
}

// Registry returns the registry holding the collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Prediction counts one prediction outcome. Cached results don't observe
// latency.
func (r *Recorder) Prediction(result string, d time.Duration) {
	if r == nil {
		return
	}
	r.predictions.WithLabelValues(result).Inc()
	if result != ResultCached && result != ResultRetry {
		r.predictionLatency.Observe(d.Seconds())
	}
}

// RecordsFetched adds n fetched records.
func (r *Recorder) RecordsFetched(n int) {
	if r == nil {
		return
	}
	r.recordsFetched.Add(float64(n))
}

// Split records the sizes of both subsets.
func (r *Recorder) Split(train, eval int) {
	if r == nil {
		return
	}
	r.splitSize.WithLabelValues("train").Set(float64(train))
	r.splitSize.WithLabelValues("eval").Set(float64(eval))
}

// Upload counts one upload attempt.
func (r *Recorder) Upload(err error) {
	if r == nil {
		return
	}
	if err != nil {
		r.uploads.WithLabelValues(ResultError).Inc()
		return
	}
	r.uploads.WithLabelValues(ResultOK).Inc()
}

// Scores publishes the headline values of report.
func (r *Recorder) Scores(report *models.ScoreReport) {
	if r == nil || report == nil {
		return
	}
	r.scores.WithLabelValues("precision_overlap").Set(report.PrecisionOverlap)
	r.scores.WithLabelValues("recall_overlap").Set(report.RecallOverlap)
	r.scores.WithLabelValues("rouge1").Set(report.ROUGE.Rouge1)
	r.scores.WithLabelValues("rouge2").Set(report.ROUGE.Rouge2)
	r.scores.WithLabelValues("rougeL").Set(report.ROUGE.RougeL)
	r.scores.WithLabelValues("samples").Set(float64(report.SampleCount))
}

// WriteFile writes every metric to path in the text exposition format,
// for the node_exporter textfile collector.
func (r *Recorder) WriteFile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("metrics: writing %s: %w", path, err)
	}
	return nil
}
