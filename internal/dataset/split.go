// Package dataset partitions records into training and evaluation subsets
// and reads and writes them as JSON Lines.
package dataset

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/spboyer/tuneval/internal/models"
)

// ErrEmptyDataset is returned when there is nothing to split.
var ErrEmptyDataset = errors.New("dataset: no records to split")

// Split shuffles a copy of records with rng and cuts it into a training and
// an evaluation subset. The evaluation subset holds ceil(p*len(records))
// records. Every input record lands in exactly one subset; records is not
// modified.
func Split(records []models.Record, p float64, rng *rand.Rand) (train, eval []models.Record, err error) {
	if math.IsNaN(p) || p <= 0 || p >= 1 {
		return nil, nil, fmt.Errorf("dataset: split fraction must be in (0, 1), got %g", p)
	}
	if len(records) == 0 {
		return nil, nil, ErrEmptyDataset
	}

	n := len(records)
	evalSize := int(math.Ceil(p * float64(n)))
	if evalSize >= n {
		return nil, nil, fmt.Errorf("dataset: split fraction %g of %d records leaves no training data", p, n)
	}

	shuffled := slices.Clone(records)
	rng.Shuffle(n, func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	return shuffled[evalSize:], shuffled[:evalSize], nil
}

// NewRand returns a generator for Split. A zero seed draws one from the
// clock, so the split is only reproducible when a seed is given.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
