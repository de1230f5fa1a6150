// Package imaging is a thin codec adapter over the standard image packages:
// decode, resize, grayscale conversion and bounded JPEG re-encoding for the
// analysis pipeline.
package imaging

import (
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
	"strings"

	// Register the supported codecs with image.Decode.
	_ "image/gif"
	_ "image/png"

	"github.com/plantpal/plantpal-go/internal/errors"
)

// Decode reads and decodes the image at the given path. Unsupported or
// corrupt input yields a CategoryImageDecode error the caller degrades on.
func Decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Component("imaging").
			Category(errors.CategoryFileIO).
			Context("operation", "open-image").
			Build()
	}
	defer func() {
		_ = f.Close()
	}()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.New(err).
			Component("imaging").
			Category(errors.CategoryImageDecode).
			Context("extension", strings.ToLower(filepath.Ext(path))).
			Build()
	}
	return img, nil
}

// Resize scales img to exactly width x height using nearest-neighbour
// sampling. Quality is secondary here, the consumers are coarse heuristics
// that only need stable downsampling.
func Resize(img image.Image, width, height int) *image.RGBA {
	if width <= 0 {
		width = 1
	}
	if height <= 0 {
		height = 1
	}
	src := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		sy := src.Min.Y + y*src.Dy()/height
		for x := 0; x < width; x++ {
			sx := src.Min.X + x*src.Dx()/width
			dst.Set(x, y, img.At(sx, sy))
		}
	}
	return dst
}

// ResizeToWidth scales img to the given width, preserving aspect ratio.
func ResizeToWidth(img image.Image, width int) *image.RGBA {
	b := img.Bounds()
	if b.Dx() == 0 {
		return image.NewRGBA(image.Rect(0, 0, 1, 1))
	}
	height := b.Dy() * width / b.Dx()
	return Resize(img, width, height)
}

// Grayscale converts img to 8-bit luma.
func Grayscale(img image.Image) *image.Gray {
	b := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dst.Set(x-b.Min.X, y-b.Min.Y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return dst
}

// EncodeJPEG writes img as JPEG with the given quality.
func EncodeJPEG(w io.Writer, img image.Image, quality int) error {
	if quality < 1 || quality > 100 {
		quality = jpeg.DefaultQuality
	}
	if err := jpeg.Encode(w, img, &jpeg.Options{Quality: quality}); err != nil {
		return errors.New(err).
			Component("imaging").
			Category(errors.CategoryProcessing).
			Context("operation", "encode-jpeg").
			Build()
	}
	return nil
}

// Compress re-encodes the image at path in place, bounding its longest side
// to maxDim pixels. Images already within bounds are still re-encoded so
// that later stages read a known format. The original file is kept on any
// failure.
func Compress(path string, maxDim, quality int) error {
	img, err := Decode(path)
	if err != nil {
		return err
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxDim > 0 && (w > maxDim || h > maxDim) {
		if w >= h {
			h = h * maxDim / w
			w = maxDim
		} else {
			w = w * maxDim / h
			h = maxDim
		}
		img = Resize(img, w, h)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return errors.New(err).
			Component("imaging").
			Category(errors.CategoryFileIO).
			Context("operation", "create-temp").
			Build()
	}
	if err := EncodeJPEG(f, img, quality); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return errors.New(err).
			Component("imaging").
			Category(errors.CategoryFileIO).
			Context("operation", "close-temp").
			Build()
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return errors.New(err).
			Component("imaging").
			Category(errors.CategoryFileIO).
			Context("operation", "replace-original").
			Build()
	}
	return nil
}
