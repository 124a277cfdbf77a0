package reduce

import (
	"image/color"
	"runtime"
	"strings"

	"github.com/pkg/errors"
)

// DefaultBatchSize is the number of pixels summed by one task unless configured otherwise.
const DefaultBatchSize = 1024

// PixelBuffer is a row-major sequence of straight (non-premultiplied) 8-bit samples.
type PixelBuffer []color.NRGBA

// ChannelSelector extracts the value that gets summed from one sample.
// Values are accumulated in int64, so a selector returning very large values
// can overflow on huge buffers.
type ChannelSelector func(p color.NRGBA) int64

func Red(p color.NRGBA) int64   { return int64(p.R) }
func Green(p color.NRGBA) int64 { return int64(p.G) }
func Blue(p color.NRGBA) int64  { return int64(p.B) }
func Alpha(p color.NRGBA) int64 { return int64(p.A) }

// Gray is the luma color.GrayModel would produce for the sample.
func Gray(p color.NRGBA) int64 {
	return int64(color.GrayModel.Convert(p).(color.Gray).Y)
}

// ChannelByName maps "red", "green", "blue", "alpha" or "gray" to a selector.
// The empty string selects red.
func ChannelByName(name string) (ChannelSelector, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "red", "r":
		return Red, nil
	case "green", "g":
		return Green, nil
	case "blue", "b":
		return Blue, nil
	case "alpha", "a":
		return Alpha, nil
	case "gray", "grey", "luma":
		return Gray, nil
	}
	return nil, errors.Wrapf(ErrInvalidArgument, "unknown channel %q", name)
}

// Config controls how a reduction is split and scheduled.
type Config struct {
	// BatchSize is the number of elements per task. Must be > 0.
	BatchSize int
	// Channel defaults to Red.
	Channel ChannelSelector
	// Parallelism is the worker count. 0 means runtime.GOMAXPROCS(0).
	Parallelism int
}

func DefaultConfig() Config {
	return Config{
		BatchSize:   DefaultBatchSize,
		Channel:     Red,
		Parallelism: runtime.GOMAXPROCS(0),
	}
}

func (c Config) Validate() error {
	if c.BatchSize <= 0 {
		return errors.Wrapf(ErrInvalidArgument, "batch size must be positive, got %d", c.BatchSize)
	}
	if c.Parallelism < 0 {
		return errors.Wrapf(ErrInvalidArgument, "parallelism must not be negative, got %d", c.Parallelism)
	}
	return nil
}

// withDefaults fills the channel and parallelism. BatchSize is never defaulted
// here so that an explicit 0 is still rejected by Validate.
func (c Config) withDefaults() Config {
	if c.Channel == nil {
		c.Channel = Red
	}
	if c.Parallelism == 0 {
		c.Parallelism = runtime.GOMAXPROCS(0)
	}
	return c
}
