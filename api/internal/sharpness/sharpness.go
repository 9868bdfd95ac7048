package sharpness

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// AssessWidth matches the width the capture client resizes photos to before
// asking for a blur check, so scores are comparable across devices.
const AssessWidth = 500

const DefaultThreshold = 100.0

type Report struct {
	Score     float64 `json:"score"`
	Threshold float64 `json:"threshold"`
	IsBlurry  bool    `json:"isBlurry"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
}

// Assess scores img by the variance of its Laplacian on a grayscale copy.
// Sharp text has strong edges and a high variance; motion or focus blur
// flattens it.
func Assess(img image.Image, threshold float64) Report {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	b := img.Bounds()
	if b.Dx() > AssessWidth {
		img = imaging.Resize(img, AssessWidth, 0, imaging.Lanczos)
	}
	gray := imaging.Grayscale(img)
	score := laplacianVariance(gray)
	return Report{
		Score:     score,
		Threshold: threshold,
		IsBlurry:  score < threshold,
		Width:     gray.Bounds().Dx(),
		Height:    gray.Bounds().Dy(),
	}
}

// AssessBytes decodes an encoded image (JPEG, PNG, GIF, BMP, TIFF) first.
func AssessBytes(data []byte, threshold float64) (Report, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return Report{}, fmt.Errorf("decode image: %w", err)
	}
	return Assess(img, threshold), nil
}

// laplacianVariance applies the 4-neighbour kernel
//
//	0  1  0
//	1 -4  1
//	0  1  0
//
// over the interior of the red channel (gray images have R=G=B).
func laplacianVariance(img *image.NRGBA) float64 {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if w < 3 || h < 3 {
		return 0
	}
	at := func(x, y int) float64 {
		return float64(img.Pix[y*img.Stride+x*4])
	}

	var sum, sumSq float64
	n := 0
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			v := at(x, y-1) + at(x, y+1) + at(x-1, y) + at(x+1, y) - 4*at(x, y)
			sum += v
			sumSq += v * v
			n++
		}
	}
	mean := sum / float64(n)
	return sumSq/float64(n) - mean*mean
}
