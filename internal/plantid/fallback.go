package plantid

import (
	"bytes"
	"image"

	"github.com/plantpal/plantpal-go/internal/imaging"
)

// localIdentify buckets the image's pixels by dominant hue and maps the
// ratios onto a small set of descriptive guesses with fixed low confidence.
// It never fails; undecodable input gets the generic houseplant guess.
func localIdentify(data []byte) *Result {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return formatFallbackResult()
	}
	return guessFromColors(img)
}

// formatFallbackResult is the guess of last resort for unreadable images.
func formatFallbackResult() *Result {
	p := 0.3
	return &Result{
		Species:     "Indoor Houseplant",
		Probability: &p,
		Method:      MethodFormatFallback,
	}
}

// guessFromColors derives a species guess from color ratios. The thresholds
// are tuning parameters calibrated against typical houseplant photos.
func guessFromColors(img image.Image) *Result {
	small := imaging.ResizeToWidth(img, 200)
	b := small.Bounds()
	total := b.Dx() * b.Dy()
	if total == 0 {
		return formatFallbackResult()
	}

	var green, red, yellow, purple int
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			rr, gg, bb, _ := small.At(x, y).RGBA()
			r, g, bl := int(rr>>8), int(gg>>8), int(bb>>8)
			if g > r && g > bl && g > 50 {
				green++
			}
			if r > g && r > bl && r > 80 {
				red++
			}
			if r > 100 && g > 80 && bl < 50 {
				yellow++
			}
			if r > 80 && bl > 80 && g < 80 {
				purple++
			}
		}
	}

	greenRatio := float64(green) / float64(total)
	redRatio := float64(red) / float64(total)
	yellowRatio := float64(yellow) / float64(total)
	purpleRatio := float64(purple) / float64(total)

	var species string
	var confidence float64
	switch {
	case redRatio > 0.15 && greenRatio > 0.1:
		species = "Rose or Red Flowering Plant"
		confidence = 0.4
	case yellowRatio > 0.12 && greenRatio > 0.1:
		species = "Yellow Flowering Plant (Sunflower, Daffodil, or similar)"
		confidence = 0.38
	case purpleRatio > 0.12 && greenRatio > 0.1:
		species = "Purple Flowering Plant (Orchid, Lavender, or similar)"
		confidence = 0.35
	case greenRatio > 0.4:
		species = "Lush Green Plant (possibly Monstera, Pothos, or Philodendron)"
		confidence = 0.42
	case greenRatio > 0.25:
		species = "Foliage Plant"
		confidence = 0.32
	case greenRatio > 0.15:
		species = "Houseplant"
		confidence = 0.25
	default:
		species = "Indoor Plant"
		confidence = 0.2
	}

	logger.Debug("local color analysis",
		"species", species,
		"confidence", confidence,
		"green_ratio", greenRatio,
		"red_ratio", redRatio,
		"yellow_ratio", yellowRatio,
		"purple_ratio", purpleRatio)

	return &Result{
		Species:     species,
		Probability: &confidence,
		Method:      MethodLocalAnalysis,
	}
}
