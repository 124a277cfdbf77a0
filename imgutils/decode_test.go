package imgutils

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/rimage"
	"go.viam.com/test"
	"golang.org/x/image/bmp"

	"github.com/erh/pixelreduce/reduce"
)

func twoPixelImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{255, 0, 0, 255})
	img.SetNRGBA(1, 0, color.NRGBA{0, 255, 0, 255})
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	var buf bytes.Buffer
	test.That(t, png.Encode(&buf, img), test.ShouldBeNil)
	return buf.Bytes()
}

func TestPixelBufferFromImage(t *testing.T) {
	img := gradient(20, 10)
	sub := img.SubImage(image.Rect(3, 2, 7, 5)).(*image.NRGBA)

	buf := PixelBufferFromImage(sub)
	test.That(t, len(buf), test.ShouldEqual, 12)
	test.That(t, buf[0], test.ShouldResemble, color.NRGBA{3, 2, 5, 255})
	test.That(t, buf[11], test.ShouldResemble, color.NRGBA{6, 4, 10, 255})

	rgba := image.NewRGBA(image.Rect(0, 0, 3, 3))
	rgba.Set(1, 1, color.RGBA{10, 20, 30, 255})
	buf = PixelBufferFromImage(rgba)
	test.That(t, len(buf), test.ShouldEqual, 9)
	test.That(t, buf[4], test.ShouldResemble, color.NRGBA{10, 20, 30, 255})
}

func TestDecodePNG(t *testing.T) {
	logger := logging.NewTestLogger(t)

	buf, err := Decode(encodePNG(t, twoPixelImage()))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, buf, test.ShouldResemble, reduce.PixelBuffer{{255, 0, 0, 255}, {0, 255, 0, 255}})

	res, err := reduce.Reduce(context.Background(), buf, reduce.DefaultConfig(), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Total, test.ShouldEqual, int64(255))
}

func TestDecodeRimageEncoded(t *testing.T) {
	data, err := rimage.EncodeImage(context.Background(), gradient(64, 32), "image/png")
	test.That(t, err, test.ShouldBeNil)

	buf, err := Decode(data)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, buf, test.ShouldResemble, PixelBufferFromImage(gradient(64, 32)))
}

func TestDecodeBMP(t *testing.T) {
	var b bytes.Buffer
	test.That(t, bmp.Encode(&b, twoPixelImage()), test.ShouldBeNil)

	buf, err := Decode(b.Bytes())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(buf), test.ShouldEqual, 2)
	test.That(t, buf[0].R, test.ShouldEqual, uint8(255))
	test.That(t, buf[1].G, test.ShouldEqual, uint8(255))
}

func TestDecodeZstd(t *testing.T) {
	plain := encodePNG(t, gradient(40, 40))

	enc, err := zstd.NewWriter(nil)
	test.That(t, err, test.ShouldBeNil)
	packed := enc.EncodeAll(plain, nil)
	test.That(t, enc.Close(), test.ShouldBeNil)

	a, err := Decode(plain)
	test.That(t, err, test.ShouldBeNil)
	b, err := Decode(packed)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, b, test.ShouldResemble, a)
}

func TestDecodeGarbage(t *testing.T) {
	_, err := Decode([]byte("definitely not an image"))
	test.That(t, errors.Is(err, ErrDecode), test.ShouldBeTrue)

	_, err = Decode(append([]byte{0x28, 0xb5, 0x2f, 0xfd}, 1, 2, 3))
	test.That(t, errors.Is(err, ErrDecode), test.ShouldBeTrue)
}

func TestReadAllBytesNotFound(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadAllBytes(filepath.Join(dir, "missing.png"))
	test.That(t, errors.Is(err, ErrNotFound), test.ShouldBeTrue)

	_, err = ReadAllBytes(dir)
	test.That(t, errors.Is(err, ErrNotFound), test.ShouldBeTrue)

	_, err = ReadPixelBuffer(context.Background(), filepath.Join(dir, "missing.png"))
	test.That(t, errors.Is(err, ErrNotFound), test.ShouldBeTrue)
}

func TestReadPixelBuffer(t *testing.T) {
	dir := t.TempDir()

	fn := filepath.Join(dir, "two.png")
	test.That(t, os.WriteFile(fn, encodePNG(t, twoPixelImage()), 0o644), test.ShouldBeNil)

	buf, err := ReadPixelBuffer(context.Background(), fn)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(buf), test.ShouldEqual, 2)
	test.That(t, buf[0].R, test.ShouldEqual, uint8(255))

	enc, err := zstd.NewWriter(nil)
	test.That(t, err, test.ShouldBeNil)
	zfn := filepath.Join(dir, "two.png.zst")
	test.That(t, os.WriteFile(zfn, enc.EncodeAll(encodePNG(t, twoPixelImage()), nil), 0o644), test.ShouldBeNil)
	test.That(t, enc.Close(), test.ShouldBeNil)

	zbuf, err := ReadPixelBuffer(context.Background(), zfn)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, zbuf, test.ShouldResemble, buf)
}

func TestReadPixelBufferZstdWithImageExtension(t *testing.T) {
	dir := t.TempDir()

	enc, err := zstd.NewWriter(nil)
	test.That(t, err, test.ShouldBeNil)
	fn := filepath.Join(dir, "frame.png")
	test.That(t, os.WriteFile(fn, enc.EncodeAll(encodePNG(t, twoPixelImage()), nil), 0o644), test.ShouldBeNil)
	test.That(t, enc.Close(), test.ShouldBeNil)

	data, err := ReadAllBytes(fn)
	test.That(t, err, test.ShouldBeNil)
	want, err := Decode(data)
	test.That(t, err, test.ShouldBeNil)

	buf, err := ReadPixelBuffer(context.Background(), fn)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, buf, test.ShouldResemble, want)
	test.That(t, len(buf), test.ShouldEqual, 2)

	bad := filepath.Join(dir, "bad.png")
	test.That(t, os.WriteFile(bad, []byte("definitely not an image"), 0o644), test.ShouldBeNil)
	_, err = ReadPixelBuffer(context.Background(), bad)
	test.That(t, errors.Is(err, ErrDecode), test.ShouldBeTrue)
}
