package reduce

import (
	"github.com/pkg/errors"
)

// Batch is the half-open element range [Start, End) handled by one task.
type Batch struct {
	Index int
	Start int
	End   int
}

func (b Batch) Len() int {
	return b.End - b.Start
}

// BatchCount returns ceil(n / batchSize), or 0 for an empty or invalid input.
func BatchCount(n, batchSize int) int {
	if n <= 0 || batchSize <= 0 {
		return 0
	}
	count := n / batchSize
	if n%batchSize != 0 {
		count++
	}
	return count
}

// Partition splits n elements into contiguous batches of batchSize elements.
// The last batch may be shorter. n == 0 gives no batches.
func Partition(n, batchSize int) ([]Batch, error) {
	if batchSize <= 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "batch size must be positive, got %d", batchSize)
	}
	if n < 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "element count must not be negative, got %d", n)
	}

	count := BatchCount(n, batchSize)
	batches := make([]Batch, count)
	for i := range batches {
		start := i * batchSize
		batches[i] = Batch{
			Index: i,
			Start: start,
			End:   start + min(batchSize, n-start),
		}
	}
	return batches, nil
}
