package imgutils

import (
	"bytes"
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"go.viam.com/rdk/rimage"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/erh/pixelreduce/reduce"
)

var (
	ErrNotFound = errors.New("image not found")
	ErrDecode   = errors.New("cannot decode image")
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// ReadAllBytes returns the contents of path. A missing path, or a directory,
// yields ErrNotFound.
func ReadAllBytes(path string) ([]byte, error) {
	if err := checkFile(path); err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

func checkFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return errors.Wrapf(ErrNotFound, "%s", path)
		}
		return err
	}
	if info.IsDir() {
		return errors.Wrapf(ErrNotFound, "%s is a directory", path)
	}
	return nil
}

// DecodeImage decodes png, jpeg, gif, bmp, tiff or webp data, optionally
// wrapped in a zstd frame.
func DecodeImage(data []byte) (image.Image, error) {
	if bytes.HasPrefix(data, zstdMagic) {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()

		data, err = dec.DecodeAll(data, nil)
		if err != nil {
			return nil, errors.Wrapf(ErrDecode, "bad zstd frame: %v", err)
		}
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(ErrDecode, "%v", err)
	}
	return img, nil
}

// Decode turns encoded image bytes into a pixel buffer.
func Decode(data []byte) (reduce.PixelBuffer, error) {
	img, err := DecodeImage(data)
	if err != nil {
		return nil, err
	}
	return PixelBufferFromImage(img), nil
}

// ReadImage loads an image from disk. The bytes are decoded the same way
// DecodeImage does, so zstd frames are recognized whatever the file is named.
// Data no registered decoder accepts is handed to rimage, which also knows
// rdk's own formats.
func ReadImage(ctx context.Context, path string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := ReadAllBytes(path)
	if err != nil {
		return nil, err
	}

	img, err := DecodeImage(data)
	if err == nil || bytes.HasPrefix(data, zstdMagic) {
		return img, err
	}

	img, rerr := rimage.ReadImageFromFile(path)
	if rerr != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return img, nil
}

// ReadPixelBuffer loads and decodes the image at path.
func ReadPixelBuffer(ctx context.Context, path string) (reduce.PixelBuffer, error) {
	img, err := ReadImage(ctx, path)
	if err != nil {
		return nil, err
	}
	return PixelBufferFromImage(img), nil
}
