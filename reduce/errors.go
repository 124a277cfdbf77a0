package reduce

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

var (
	// ErrInvalidArgument is returned for a bad configuration, before any task is dispatched.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrReductionFailed is returned when one or more batch tasks failed. No total accompanies it.
	ErrReductionFailed = errors.New("reduction failed")
)

// BatchFailure describes a reduction where at least one batch task failed.
// It matches ErrReductionFailed with errors.Is and unwraps to the task errors.
type BatchFailure struct {
	Batches    []int
	BatchCount int
	Err        error
}

func newBatchFailure(errs []error) *BatchFailure {
	bf := &BatchFailure{BatchCount: len(errs)}
	for idx, err := range errs {
		if err == nil {
			continue
		}
		bf.Batches = append(bf.Batches, idx)
		bf.Err = multierr.Append(bf.Err, errors.Wrapf(err, "batch %d", idx))
	}
	return bf
}

func (bf *BatchFailure) Error() string {
	ids := make([]string, 0, len(bf.Batches))
	for _, b := range bf.Batches {
		ids = append(ids, fmt.Sprint(b))
	}
	return fmt.Sprintf("%v: %d of %d batches failed [%s]: %v",
		ErrReductionFailed, len(bf.Batches), bf.BatchCount, strings.Join(ids, ","), bf.Err)
}

func (bf *BatchFailure) Is(target error) bool {
	return target == ErrReductionFailed
}

func (bf *BatchFailure) Unwrap() error {
	return bf.Err
}
