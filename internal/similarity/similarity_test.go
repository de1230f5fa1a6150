package similarity

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantpal/plantpal-go/internal/imaging"
)

// gradientImage produces a structured test image so the perceptual hash has
// real frequency content to work with.
func gradientImage(size int, shift uint8) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			v := uint8((x*7+y*3)%251) + shift
			img.Set(x, y, color.RGBA{R: v, G: uint8(255 - int(v)), B: v / 2, A: 255})
		}
	}
	return img
}

func greenImage(size, greenRows int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if y < greenRows {
				img.Set(x, y, color.RGBA{G: 200, A: 255})
			} else {
				img.Set(x, y, color.RGBA{R: 120, G: 60, B: 40, A: 255})
			}
		}
	}
	return img
}

func writeJPEG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, imaging.EncodeJPEG(f, img, 95))
	require.NoError(t, f.Close())
}

func TestGreenAreaRatio(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.25, GreenAreaRatio(greenImage(200, 50)), 0.02)
	assert.InDelta(t, 1.0, GreenAreaRatio(greenImage(200, 200)), 0.01)
	assert.InDelta(t, 0.0, GreenAreaRatio(greenImage(200, 0)), 0.01)
}

func TestAnalyzeGreenAreaNeutralOnUnreadable(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.jpg")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a jpeg"), 0o644))
	assert.InDelta(t, NeutralArea, AnalyzeGreenArea(path), 1e-9)

	assert.InDelta(t, NeutralArea, AnalyzeGreenArea(filepath.Join(t.TempDir(), "missing.jpg")), 1e-9)
}

func TestPerceptualHashProperties(t *testing.T) {
	t.Parallel()

	a := PerceptualHash(gradientImage(128, 0))
	b := PerceptualHash(gradientImage(128, 0))
	c := PerceptualHash(greenImage(128, 64))

	assert.Len(t, a, HashBits)
	assert.Equal(t, a, b)
	assert.Equal(t, 0, HammingDistance(a, b))
	assert.InDelta(t, 1.0, Score(a, b), 1e-9)

	// Structurally different images must land some distance apart.
	assert.Greater(t, HammingDistance(a, c), 0)
}

func TestHammingDistance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b string
		want int
	}{
		{"identical", "10110", "10110", 0},
		{"one bit", "10110", "10111", 1},
		{"all differ", "1111", "0000", 4},
		{"length difference counts", "10110", "101", 2},
		{"empty hash is maximally distant", "", "101", HashBits},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, HammingDistance(tt.a, tt.b))
			assert.Equal(t, tt.want, HammingDistance(tt.b, tt.a), "must be symmetric")
		})
	}
}

func TestScoreClamped(t *testing.T) {
	t.Parallel()

	a := "0000000000000000000000000000000000000000000000000000000000000000"
	b := "1111111111111111111111111111111111111111111111111111111111111111"
	assert.InDelta(t, 0.0, Score(a, b), 1e-9)
	assert.InDelta(t, 1.0, Score(a, a), 1e-9)
}

func TestCompare(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	same1 := filepath.Join(dir, "same1.jpg")
	same2 := filepath.Join(dir, "same2.jpg")
	other := filepath.Join(dir, "other.jpg")
	writeJPEG(t, same1, gradientImage(128, 0))
	writeJPEG(t, same2, gradientImage(128, 0))
	writeJPEG(t, other, greenImage(128, 64))

	t.Run("identical files score 1", func(t *testing.T) {
		t.Parallel()
		score := Compare(same1, same2)
		require.NotNil(t, score)
		assert.InDelta(t, 1.0, *score, 0.05)
	})

	t.Run("different content scores lower", func(t *testing.T) {
		t.Parallel()
		identical := Compare(same1, same2)
		different := Compare(same1, other)
		require.NotNil(t, identical)
		require.NotNil(t, different)
		assert.Less(t, *different, *identical)
	})

	t.Run("unreadable input yields nil, not zero", func(t *testing.T) {
		t.Parallel()
		bad := filepath.Join(dir, "bad.jpg")
		require.NoError(t, os.WriteFile(bad, []byte("nope"), 0o644))
		assert.Nil(t, Compare(same1, bad))
		assert.Nil(t, Compare(bad, bad))
	})
}

func TestGrowthDelta(t *testing.T) {
	t.Parallel()

	v := func(f float64) *float64 { return &f }

	t.Run("nil propagation", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, GrowthDelta(nil, v(0.1)))
		assert.Nil(t, GrowthDelta(v(0.1), nil))
		assert.Nil(t, GrowthDelta(nil, nil))
	})

	t.Run("relative change", func(t *testing.T) {
		t.Parallel()
		got := GrowthDelta(v(0.12), v(0.10))
		require.NotNil(t, got)
		assert.InDelta(t, 0.20, *got, 1e-9)
	})

	t.Run("near zero previous is clamped by epsilon", func(t *testing.T) {
		t.Parallel()
		got := GrowthDelta(v(0.1), v(0.0))
		require.NotNil(t, got)
		assert.InDelta(t, 0.1/1e-4, *got, 1e-6)
	})
}

func TestLikelyDifferentSubject(t *testing.T) {
	t.Parallel()

	low := 0.30
	high := 0.80
	boundary := DifferentSubjectThreshold

	assert.True(t, LikelyDifferentSubject(&low))
	assert.False(t, LikelyDifferentSubject(&high))
	assert.False(t, LikelyDifferentSubject(&boundary))
	assert.False(t, LikelyDifferentSubject(nil), "unknown similarity is not evidence of a different subject")
}
