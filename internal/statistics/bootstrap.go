// Package statistics provides resampling helpers for per-sample scores.
package statistics

import (
	"math"
	"math/rand/v2"
	"slices"
)

// ConfidenceInterval is a percentile bootstrap interval around a mean.
type ConfidenceInterval struct {
	Lower           float64 `json:"lower"`
	Upper           float64 `json:"upper"`
	Mean            float64 `json:"mean"`
	ConfidenceLevel float64 `json:"confidence_level"`
	NumBootstraps   int     `json:"num_bootstraps"`
}

const (
	// DefaultBootstrapIterations is the number of resamples drawn.
	DefaultBootstrapIterations = 1000
	// DefaultConfidenceLevel replaces levels outside (0, 1).
	DefaultConfidenceLevel = 0.95
)

// BootstrapCI estimates a confidence interval for the mean of values.
// Equal inputs and seeds give equal intervals. With fewer than two values
// the interval collapses onto the mean.
func BootstrapCI(values []float64, confidenceLevel float64, seed uint64) ConfidenceInterval {
	if confidenceLevel <= 0 || confidenceLevel >= 1 {
		confidenceLevel = DefaultConfidenceLevel
	}
	ci := ConfidenceInterval{Mean: Mean(values), ConfidenceLevel: confidenceLevel}
	if len(values) < 2 {
		ci.Lower, ci.Upper = ci.Mean, ci.Mean
		return ci
	}

	means := resampleMeans(values, DefaultBootstrapIterations, seed)
	slices.Sort(means)

	tail := (1 - confidenceLevel) / 2
	ci.Lower = percentile(means, tail)
	ci.Upper = percentile(means, 1-tail)
	ci.NumBootstraps = len(means)
	return ci
}

// resampleMeans draws iters samples with replacement and returns the mean
// of each.
func resampleMeans(values []float64, iters int, seed uint64) []float64 {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	n := len(values)
	buf := make([]float64, n)
	means := make([]float64, iters)
	for i := range means {
		for j := range buf {
			buf[j] = values[rng.IntN(n)]
		}
		means[i] = Mean(buf)
	}
	return means
}

// percentile returns the value at fraction q of sorted using the floor
// index.
func percentile(sorted []float64, q float64) float64 {
	idx := int(math.Floor(q * float64(len(sorted))))
	return sorted[min(max(idx, 0), len(sorted)-1)]
}

// Mean returns the arithmetic mean of values, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
