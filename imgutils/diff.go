package imgutils

import (
	"context"
	"image"
	"image/color"
	"math"

	"go.viam.com/rdk/logging"

	"github.com/erh/pixelreduce/reduce"
)

// ComputeChannelAverage returns the mean of cfg's channel over every pixel of img.
func ComputeChannelAverage(ctx context.Context, img image.Image, cfg reduce.Config, logger logging.Logger) (float64, error) {
	res, err := reduce.Reduce(ctx, PixelBufferFromImage(img), cfg, logger)
	if err != nil {
		return 0, err
	}
	if res.ElementCount == 0 {
		return 0, nil
	}
	return float64(res.Total) / float64(res.ElementCount), nil
}

// ComputeGrayscaleAverage returns the mean color.GrayModel luma of img. Each
// pixel is converted from img's own color, so premultiplied images give the
// same value as converting img.At directly. An empty image gives NaN.
func ComputeGrayscaleAverage(img image.Image) float64 {
	res, err := reduce.Reduce(context.Background(), grayBuffer(img), reduce.DefaultConfig(), logging.NewLogger("imgutils"))
	if err != nil || res.ElementCount == 0 {
		return math.NaN()
	}
	return float64(res.Total) / float64(res.ElementCount)
}

// grayBuffer stores each pixel's luma in the red channel.
func grayBuffer(img image.Image) reduce.PixelBuffer {
	bounds := img.Bounds()
	buf := make(reduce.PixelBuffer, 0, bounds.Dx()*bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			g := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			buf = append(buf, color.NRGBA{R: g.Y, A: 255})
		}
	}
	return buf
}
