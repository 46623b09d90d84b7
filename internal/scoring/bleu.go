package scoring

import (
	"fmt"
	"math"

	"github.com/spboyer/tuneval/internal/models"
)

// DefaultBLEUMaxOrder scores unigram BLEU.
const DefaultBLEUMaxOrder = 1

// BLEU computes corpus-level BLEU over parallel candidate and reference
// slices, one reference per candidate. Matches are clipped n-gram counts
// summed over the corpus; the score is the geometric mean of the per-order
// precisions times the brevity penalty exp(1 - r/c) applied when the
// candidates are shorter than the references. No smoothing is applied, so a
// zero precision at any order gives a zero score.
func BLEU(candidates, references []string, maxOrder int) (models.BLEUDetail, error) {
	if err := checkPairs(candidates, references); err != nil {
		return models.BLEUDetail{}, err
	}
	if maxOrder < 1 {
		return models.BLEUDetail{}, fmt.Errorf("bleu: max order must be >= 1, got %d", maxOrder)
	}

	matches := make([]int, maxOrder)
	possible := make([]int, maxOrder)
	candLen, refLen := 0, 0

	for i := range candidates {
		cand := TokenizeBLEU(candidates[i])
		ref := TokenizeBLEU(references[i])
		candLen += len(cand)
		refLen += len(ref)

		for n := 1; n <= maxOrder; n++ {
			cc := ngramCounts(cand, n)
			matches[n-1] += overlap(cc, ngramCounts(ref, n))
			if p := len(cand) - n + 1; p > 0 {
				possible[n-1] += p
			}
		}
	}

	precisions := make([]float64, maxOrder)
	for i := range precisions {
		if possible[i] > 0 {
			precisions[i] = float64(matches[i]) / float64(possible[i])
		}
	}

	geoMean := 0.0
	if minFloat(precisions) > 0 {
		logSum := 0.0
		for _, p := range precisions {
			logSum += math.Log(p)
		}
		geoMean = math.Exp(logSum / float64(maxOrder))
	}

	ratio, bp := brevity(candLen, refLen)

	return models.BLEUDetail{
		Score:           geoMean * bp,
		MaxOrder:        maxOrder,
		Precisions:      precisions,
		BrevityPenalty:  bp,
		LengthRatio:     ratio,
		CandidateLength: candLen,
		ReferenceLength: refLen,
	}, nil
}

// brevity returns the candidate/reference length ratio and the brevity
// penalty for it. Empty references report a zero ratio and no penalty.
func brevity(candLen, refLen int) (ratio, penalty float64) {
	if refLen == 0 {
		return 0, 1.0
	}
	ratio = float64(candLen) / float64(refLen)
	switch {
	case ratio > 1.0:
		return ratio, 1.0
	case candLen == 0:
		return ratio, 0.0
	default:
		return ratio, math.Exp(1.0 - 1.0/ratio)
	}
}

func minFloat(values []float64) float64 {
	m := math.Inf(1)
	for _, v := range values {
		m = math.Min(m, v)
	}
	return m
}
