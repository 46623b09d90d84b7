package scoring

import (
	"github.com/spboyer/tuneval/internal/models"
	"github.com/spboyer/tuneval/internal/statistics"
)

// PairScore is precision, recall and F-measure for a single
// candidate/reference pair.
type PairScore struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	FMeasure  float64 `json:"fmeasure"`
}

func newPairScore(hits, candTotal, refTotal int) PairScore {
	var s PairScore
	if candTotal > 0 {
		s.Precision = float64(hits) / float64(candTotal)
	}
	if refTotal > 0 {
		s.Recall = float64(hits) / float64(refTotal)
	}
	if s.Precision+s.Recall > 0 {
		s.FMeasure = 2 * s.Precision * s.Recall / (s.Precision + s.Recall)
	}
	return s
}

// RougeN scores the n-gram overlap between one candidate and one reference.
func RougeN(candidate, reference string, n int) PairScore {
	return rougeN(TokenizeROUGE(candidate), TokenizeROUGE(reference), n)
}

func rougeN(cand, ref []string, n int) PairScore {
	cc := ngramCounts(cand, n)
	rc := ngramCounts(ref, n)
	return newPairScore(overlap(cc, rc), countTotal(cc), countTotal(rc))
}

// RougeL scores the longest common subsequence between one candidate and
// one reference.
func RougeL(candidate, reference string) PairScore {
	return rougeL(TokenizeROUGE(candidate), TokenizeROUGE(reference))
}

func rougeL(cand, ref []string) PairScore {
	return newPairScore(lcsLength(cand, ref), len(cand), len(ref))
}

// lcsLength is the classic dynamic program, kept to two rows.
func lcsLength(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
			} else {
				curr[j] = max(prev[j], curr[j-1])
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// ROUGE scores every candidate against its reference and averages the
// per-pair values over the corpus.
func ROUGE(candidates, references []string) (models.ROUGEDetail, error) {
	if err := checkPairs(candidates, references); err != nil {
		return models.ROUGEDetail{}, err
	}

	n := len(candidates)
	r1p := make([]float64, n)
	r1r := make([]float64, n)
	r1f := make([]float64, n)
	r2f := make([]float64, n)
	rlf := make([]float64, n)

	for i := range candidates {
		cand := TokenizeROUGE(candidates[i])
		ref := TokenizeROUGE(references[i])

		r1 := rougeN(cand, ref, 1)
		r1p[i], r1r[i], r1f[i] = r1.Precision, r1.Recall, r1.FMeasure
		r2f[i] = rougeN(cand, ref, 2).FMeasure
		rlf[i] = rougeL(cand, ref).FMeasure
	}

	return models.ROUGEDetail{
		Rouge1Precision: statistics.Mean(r1p),
		Rouge1Recall:    statistics.Mean(r1r),
		Rouge1:          statistics.Mean(r1f),
		Rouge2:          statistics.Mean(r2f),
		RougeL:          statistics.Mean(rlf),
		PerSampleRecall: r1r,
	}, nil
}
