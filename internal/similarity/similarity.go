// Package similarity implements the perceptual comparison primitives used by
// the enrichment pipeline: the green-area heuristic, a DCT perceptual hash,
// Hamming distance scoring and the growth-delta arithmetic.
package similarity

import (
	"image"
	"log/slog"
	"math"

	"github.com/plantpal/plantpal-go/internal/imaging"
	"github.com/plantpal/plantpal-go/internal/logging"
)

const (
	// HashBits is the fixed length of a perceptual hash.
	HashBits = 64

	// NeutralArea is reported when an image cannot be read. It keeps the
	// growth arithmetic defined without skewing it towards either extreme.
	NeutralArea = 0.25

	// DifferentSubjectThreshold is the advisory score below which two
	// photos likely show different subjects.
	DifferentSubjectThreshold = 0.45

	// growthEpsilon guards the growth-delta division.
	growthEpsilon = 1e-4

	analysisWidth = 400 // green-area resize width
	hashSize      = 32  // pHash working square
	hashBlock     = 8   // low-frequency DCT block kept
	fallbackSize  = 64  // MAD fallback thumbnail edge
)

func logger() *slog.Logger {
	if l := logging.ForService("similarity"); l != nil {
		return l
	}
	return slog.Default()
}

// GreenAreaRatio estimates the fraction of "plant-green" pixels in img.
// A pixel counts when its green channel exceeds both red and blue by a fixed
// margin and clears a minimum brightness. This is a coarse health proxy, not
// segmentation.
func GreenAreaRatio(img image.Image) float64 {
	small := imaging.ResizeToWidth(img, analysisWidth)
	b := small.Bounds()
	total := b.Dx() * b.Dy()
	if total == 0 {
		return 0
	}

	plant := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := small.At(x, y).RGBA()
			r8, g8, b8 := int(r>>8), int(g>>8), int(bl>>8)
			if g8 > r8+10 && g8 > b8+10 && g8 > 60 {
				plant++
			}
		}
	}
	return float64(plant) / float64(total)
}

// AnalyzeGreenArea decodes the image at path and returns its green-area
// ratio. Unreadable input yields the neutral estimate instead of an error;
// analysis must never abort the pipeline.
func AnalyzeGreenArea(path string) float64 {
	img, err := imaging.Decode(path)
	if err != nil {
		logger().Warn("could not read image for green area analysis, using neutral estimate",
			"path", path, "error", err)
		return NeutralArea
	}
	return GreenAreaRatio(img)
}

// PerceptualHash computes a 64-bit perceptual hash of img as a binary
// string. The image is reduced to a 32x32 luma square, a naive 2D DCT is
// taken, the low-frequency 8x8 block is kept with the DC coefficient
// discarded, and each remaining coefficient is thresholded against the mean
// of the retained coefficients. The 63 resulting bits are padded to exactly
// 64.
func PerceptualHash(img image.Image) string {
	gray := imaging.Grayscale(imaging.Resize(img, hashSize, hashSize))

	var vals [hashSize][hashSize]float64
	for y := 0; y < hashSize; y++ {
		for x := 0; x < hashSize; x++ {
			vals[y][x] = float64(gray.GrayAt(x, y).Y)
		}
	}

	// Naive 2D DCT restricted to the low-frequency block. hashSize is
	// small enough that the O(n^4) cost stays well under a millisecond.
	alpha := func(u int) float64 {
		if u == 0 {
			return 1 / math.Sqrt2
		}
		return 1
	}
	coeffs := make([]float64, 0, hashBlock*hashBlock-1)
	for u := 0; u < hashBlock; u++ {
		for v := 0; v < hashBlock; v++ {
			if u == 0 && v == 0 {
				continue // skip DC
			}
			sum := 0.0
			for x := 0; x < hashSize; x++ {
				for y := 0; y < hashSize; y++ {
					sum += vals[y][x] *
						math.Cos(float64(2*x+1)*float64(u)*math.Pi/float64(2*hashSize)) *
						math.Cos(float64(2*y+1)*float64(v)*math.Pi/float64(2*hashSize))
				}
			}
			coeffs = append(coeffs, sum*alpha(u)*alpha(v)/4)
		}
	}

	mean := 0.0
	for _, c := range coeffs {
		mean += c
	}
	mean /= float64(len(coeffs))

	bits := make([]byte, 0, HashBits)
	for _, c := range coeffs {
		if c > mean {
			bits = append(bits, '1')
		} else {
			bits = append(bits, '0')
		}
	}
	for len(bits) < HashBits {
		bits = append(bits, '0')
	}
	return string(bits[:HashBits])
}

// HammingDistance counts differing bits over the overlapping length of the
// two hashes plus the absolute length difference, which keeps malformed
// hashes comparable instead of panicking. Symmetric, and zero only for
// identical hashes.
func HammingDistance(a, b string) int {
	if a == "" || b == "" {
		return HashBits
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	dist := 0
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			dist++
		}
	}
	if len(a) > len(b) {
		dist += len(a) - len(b)
	} else {
		dist += len(b) - len(a)
	}
	return dist
}

// Score converts a pair of hashes into a similarity score in [0,1] where 1.0
// means identical.
func Score(a, b string) float64 {
	s := 1 - float64(HammingDistance(a, b))/float64(HashBits)
	return clamp01(s)
}

// FallbackScore compares two images by mean absolute difference over small
// grayscale thumbnails. Used when perceptual hashing is unavailable.
func FallbackScore(a, b image.Image) float64 {
	ga := imaging.Grayscale(imaging.Resize(a, fallbackSize, fallbackSize))
	gb := imaging.Grayscale(imaging.Resize(b, fallbackSize, fallbackSize))

	totalDiff := 0
	for y := 0; y < fallbackSize; y++ {
		for x := 0; x < fallbackSize; x++ {
			d := int(ga.GrayAt(x, y).Y) - int(gb.GrayAt(x, y).Y)
			if d < 0 {
				d = -d
			}
			totalDiff += d
		}
	}
	avgDiff := float64(totalDiff) / float64(fallbackSize*fallbackSize*255)
	return clamp01(1 - avgDiff)
}

// HashFile decodes the image at path and returns its perceptual hash.
func HashFile(path string) (string, error) {
	img, err := imaging.Decode(path)
	if err != nil {
		return "", err
	}
	return PerceptualHash(img), nil
}

// Compare computes the similarity between the images at the two paths.
// Perceptual hashing is preferred; on failure the MAD fallback is tried;
// when neither works the similarity is unknown and nil is returned, not
// zero.
func Compare(pathA, pathB string) *float64 {
	hashA, errA := HashFile(pathA)
	hashB, errB := HashFile(pathB)
	if errA == nil && errB == nil {
		score := Score(hashA, hashB)
		return &score
	}

	imgA, errA := imaging.Decode(pathA)
	imgB, errB := imaging.Decode(pathB)
	if errA != nil || errB != nil {
		logger().Warn("similarity unavailable, image unreadable",
			"path_a", pathA, "path_b", pathB)
		return nil
	}
	score := FallbackScore(imgA, imgB)
	return &score
}

// GrowthDelta returns the relative change between two area estimates, or nil
// when either is unknown.
func GrowthDelta(current, previous *float64) *float64 {
	if current == nil || previous == nil {
		return nil
	}
	delta := (*current - *previous) / math.Max(*previous, growthEpsilon)
	return &delta
}

// LikelyDifferentSubject reports whether a known similarity score falls
// below the advisory threshold. An unknown score is never flagged. The
// verdict is surfaced to the conversational layer only, no automatic subject
// splitting happens.
func LikelyDifferentSubject(score *float64) bool {
	return score != nil && *score < DifferentSubjectThreshold
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
