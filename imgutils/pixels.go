package imgutils

import (
	"image"
	"image/color"

	"github.com/erh/pixelreduce/reduce"
)

// PixelBufferFromImage flattens img row by row into straight 8-bit samples.
func PixelBufferFromImage(img image.Image) reduce.PixelBuffer {
	bounds := img.Bounds()
	buf := make(reduce.PixelBuffer, 0, bounds.Dx()*bounds.Dy())

	if nrgba, ok := img.(*image.NRGBA); ok {
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			row := nrgba.Pix[nrgba.PixOffset(bounds.Min.X, y):nrgba.PixOffset(bounds.Max.X, y)]
			for i := 0; i < len(row); i += 4 {
				buf = append(buf, color.NRGBA{row[i], row[i+1], row[i+2], row[i+3]})
			}
		}
		return buf
	}

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			buf = append(buf, color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA))
		}
	}
	return buf
}
