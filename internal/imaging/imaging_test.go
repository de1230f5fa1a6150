package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantpal/plantpal-go/internal/errors"
)

func solidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func writeJPEG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, jpeg.Encode(f, img, &jpeg.Options{Quality: 95}))
	require.NoError(t, f.Close())
}

func TestDecodeFormats(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := solidImage(40, 30, color.RGBA{0, 200, 0, 255})

	jpegPath := filepath.Join(dir, "img.jpg")
	writeJPEG(t, jpegPath, src)

	pngPath := filepath.Join(dir, "img.png")
	f, err := os.Create(pngPath)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, src))
	require.NoError(t, f.Close())

	for _, path := range []string{jpegPath, pngPath} {
		img, err := Decode(path)
		require.NoError(t, err, path)
		assert.Equal(t, 40, img.Bounds().Dx())
		assert.Equal(t, 30, img.Bounds().Dy())
	}
}

func TestDecodeMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Decode(filepath.Join(t.TempDir(), "nope.jpg"))
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryFileIO))
}

func TestDecodeCorruptInput(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "junk.jpg")
	require.NoError(t, os.WriteFile(path, []byte("this is not an image"), 0o644))

	_, err := Decode(path)
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryImageDecode))
}

func TestResize(t *testing.T) {
	t.Parallel()

	src := solidImage(100, 50, color.RGBA{10, 180, 20, 255})

	out := Resize(src, 32, 32)
	assert.Equal(t, 32, out.Bounds().Dx())
	assert.Equal(t, 32, out.Bounds().Dy())

	r, g, b, _ := out.At(16, 16).RGBA()
	assert.Equal(t, uint32(10), r>>8)
	assert.Equal(t, uint32(180), g>>8)
	assert.Equal(t, uint32(20), b>>8)

	// Degenerate target dimensions clamp to 1x1 instead of panicking.
	tiny := Resize(src, 0, -5)
	assert.Equal(t, 1, tiny.Bounds().Dx())
	assert.Equal(t, 1, tiny.Bounds().Dy())
}

func TestResizeToWidthKeepsAspect(t *testing.T) {
	t.Parallel()

	src := solidImage(200, 100, color.White)
	out := ResizeToWidth(src, 50)
	assert.Equal(t, 50, out.Bounds().Dx())
	assert.Equal(t, 25, out.Bounds().Dy())
}

func TestGrayscale(t *testing.T) {
	t.Parallel()

	src := solidImage(4, 4, color.RGBA{255, 255, 255, 255})
	gray := Grayscale(src)
	assert.Equal(t, uint8(255), gray.GrayAt(2, 2).Y)

	dark := Grayscale(solidImage(4, 4, color.RGBA{0, 0, 0, 255}))
	assert.Equal(t, uint8(0), dark.GrayAt(0, 0).Y)
}

func TestEncodeJPEGClampsQuality(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, EncodeJPEG(&buf, solidImage(8, 8, color.White), 500))

	img, format, err := image.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 8, img.Bounds().Dx())
}

func TestCompressBoundsLongestSide(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "big.jpg")
	writeJPEG(t, path, solidImage(800, 400, color.RGBA{30, 160, 40, 255}))

	require.NoError(t, Compress(path, 200, 85))

	img, err := Decode(path)
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 100, img.Bounds().Dy())

	// No stray temp file left behind.
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestCompressKeepsSmallImages(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "small.jpg")
	writeJPEG(t, path, solidImage(120, 90, color.RGBA{30, 160, 40, 255}))

	require.NoError(t, Compress(path, 1200, 85))

	img, err := Decode(path)
	require.NoError(t, err)
	assert.Equal(t, 120, img.Bounds().Dx())
	assert.Equal(t, 90, img.Bounds().Dy())
}

func TestCompressKeepsOriginalOnFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "junk.jpg")
	original := []byte("not an image at all")
	require.NoError(t, os.WriteFile(path, original, 0o644))

	err := Compress(path, 1200, 85)
	require.Error(t, err)

	kept, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, original, kept)
}
