// Package split partitions a table into train and test sets.
package split

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"dataingest/internal/dataset"
)

// DefaultSeed is the fixed seed of the ingestion split.
const DefaultSeed int64 = 2

// ErrSplit is returned when the fraction or the row count cannot produce two non-empty partitions.
var ErrSplit = errors.New("invalid split")

// Result holds the two partitions. Both share the header of the input.
type Result struct {
	Train *dataset.Table
	Test  *dataset.Table
}

// Sizes returns the partition sizes for n rows: the test partition gets
// ceil(testSize*n) rows and the train partition the rest.
func Sizes(n int, testSize float64) (train, test int, err error) {
	if !(testSize > 0 && testSize < 1) {
		return 0, 0, fmt.Errorf("%w: test_size must be in (0, 1), got %v", ErrSplit, testSize)
	}
	test = int(math.Ceil(testSize * float64(n)))
	train = n - test
	if train <= 0 || test <= 0 {
		return 0, 0, fmt.Errorf("%w: with n_samples=%d and test_size=%v one partition would be empty", ErrSplit, n, testSize)
	}
	return train, test, nil
}

// Split shuffles row indices with a source seeded by seed and cuts the permutation:
// the first rows go to test, the remainder to train. The same table, fraction and
// seed always give the same partitions.
func Split(t *dataset.Table, testSize float64, seed int64) (*Result, error) {
	nTrain, nTest, err := Sizes(t.Len(), testSize)
	if err != nil {
		return nil, err
	}

	perm := rand.New(rand.NewSource(seed)).Perm(t.Len())
	return &Result{
		Train: t.Take(perm[nTest : nTest+nTrain]),
		Test:  t.Take(perm[:nTest]),
	}, nil
}
