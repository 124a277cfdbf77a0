package reduce

import (
	"fmt"
	"time"

	"go.viam.com/rdk/logging"
)

// Result is the outcome of one successful reduction.
//
// Elapsed covers batch dispatch and combination only; decoding the image is
// never part of it.
type Result struct {
	Total        int64
	Elapsed      time.Duration
	ElementCount int

	BatchCount int
	Workers    int
}

// Throughput returns elements per second, or 0 when nothing was timed.
func (r Result) Throughput() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.ElementCount) / r.Elapsed.Seconds()
}

func (r Result) String() string {
	return fmt.Sprintf("total: %d elements: %d batches: %d workers: %d elapsed: %v",
		r.Total, r.ElementCount, r.BatchCount, r.Workers, r.Elapsed)
}

// LogResult writes the human readable report for a reduction of source.
func LogResult(logger logging.Logger, source string, res Result) {
	logger.Infof("%s: channel sum: %d", source, res.Total)
	logger.Infof("%s: execution time: %v (%0.1f Mpixel/s)", source, res.Elapsed, res.Throughput()/1e6)
	logger.Infof("%s: pixels processed: %d in %d batches on %d workers", source, res.ElementCount, res.BatchCount, res.Workers)
}
