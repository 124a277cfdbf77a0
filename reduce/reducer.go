// Package reduce sums one color channel over a pixel buffer by splitting the
// buffer into fixed-size batches, summing each batch on a worker pool and
// folding the per-batch partial sums in batch order.
package reduce

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"

	"github.com/erh/pixelreduce/workerpool"
)

// Reducer owns a worker pool and can be reused for many reductions.
// Reduce may be called concurrently, also with Close. A reduction that is
// queueing batches when Close is called still runs all of them; one started
// after Close runs its batches on the calling goroutine.
type Reducer struct {
	cfg    Config
	pool   *workerpool.Pool
	logger logging.Logger
}

func NewReducer(cfg Config, logger logging.Logger) (*Reducer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = logging.NewLogger("reduce")
	}

	return &Reducer{
		cfg:    cfg,
		pool:   workerpool.New(cfg.Parallelism),
		logger: logger,
	}, nil
}

func (r *Reducer) Config() Config {
	return r.cfg
}

// Dispatched is the number of batch tasks this reducer has scheduled so far.
func (r *Reducer) Dispatched() int64 {
	return r.pool.Dispatched()
}

func (r *Reducer) Close() {
	r.pool.Close()
}

// Reduce sums the configured channel over buf.
//
// Every batch task is joined before the partial sums are combined. If any task
// fails, or ctx is cancelled before a task starts, the returned error matches
// ErrReductionFailed and no total is returned.
func (r *Reducer) Reduce(ctx context.Context, buf PixelBuffer) (Result, error) {
	n := len(buf)
	if n == 0 {
		return Result{Workers: r.pool.NumWorkers()}, nil
	}

	batches, err := Partition(n, r.cfg.BatchSize)
	if err != nil {
		return Result{}, err
	}

	start := time.Now()

	partials := make([]int64, len(batches))
	errs := r.pool.ForEach(len(batches), func(i int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		sum, err := sumBatch(buf, batches[i], r.cfg.Channel)
		if err != nil {
			return err
		}
		partials[i] = sum
		return nil
	})
	if errs != nil {
		bf := newBatchFailure(errs)
		r.logger.Debugf("reduction of %d elements failed in %d of %d batches", n, len(bf.Batches), len(batches))
		return Result{}, bf
	}

	var total int64
	for _, p := range partials {
		total += p
	}

	res := Result{
		Total:        total,
		Elapsed:      time.Since(start),
		ElementCount: n,
		BatchCount:   len(batches),
		Workers:      r.pool.NumWorkers(),
	}
	r.logger.Debugf("reduced %d elements in %d batches on %d workers: %v", n, res.BatchCount, res.Workers, res.Elapsed)
	return res, nil
}

func sumBatch(buf PixelBuffer, b Batch, channel ChannelSelector) (int64, error) {
	if b.Start < 0 || b.Start > b.End || b.End > len(buf) {
		return 0, errors.Errorf("batch %d range [%d, %d) outside buffer of %d", b.Index, b.Start, b.End, len(buf))
	}

	var sum int64
	for _, p := range buf[b.Start:b.End] {
		sum += channel(p)
	}
	return sum, nil
}

// Reduce runs a single reduction on a temporary Reducer.
func Reduce(ctx context.Context, buf PixelBuffer, cfg Config, logger logging.Logger) (Result, error) {
	r, err := NewReducer(cfg, logger)
	if err != nil {
		return Result{}, err
	}
	defer r.Close()
	return r.Reduce(ctx, buf)
}
