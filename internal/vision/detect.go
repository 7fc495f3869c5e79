package vision

import (
	"context"
	"image"
	"math"

	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
)

// detectBoard locates the densest edge cluster in the screenshot. Board
// grids are busy with high-contrast cell art against a comparatively flat
// backdrop, so edge energy concentrates inside the board.
//
// The returned confidence is the share of total edge energy that falls
// inside the chosen bounds, discounted when the bounds degenerate to the
// whole frame.
func detectBoard(ctx context.Context, img image.Image, downscale float64) (Bounds, float64, error) {
	src := img
	scale := 1.0
	if downscale > 1 {
		b := img.Bounds()
		w := int(float64(b.Dx()) / downscale)
		if w < 16 {
			w = 16
		}
		src = imaging.Resize(img, w, 0, imaging.Lanczos)
		scale = float64(b.Dx()) / float64(src.Bounds().Dx())
	}

	edges := effect.Sobel(effect.Grayscale(src))
	eb := edges.Bounds()
	width, height := eb.Dx(), eb.Dy()

	rowEnergy := make([]float64, height)
	colEnergy := make([]float64, width)
	var total float64
	for y := 0; y < height; y++ {
		if y%64 == 0 && ctx.Err() != nil {
			return Bounds{}, 0, ctx.Err()
		}
		for x := 0; x < width; x++ {
			r, _, _, _ := edges.At(eb.Min.X+x, eb.Min.Y+y).RGBA()
			v := float64(r >> 8)
			rowEnergy[y] += v
			colEnergy[x] += v
			total += v
		}
	}
	if total == 0 {
		return Bounds{X: 0, Y: 0, Width: img.Bounds().Dx(), Height: img.Bounds().Dy()}, 0, nil
	}

	y0, y1 := profileSpan(rowEnergy)
	x0, x1 := profileSpan(colEnergy)

	var inside float64
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			r, _, _, _ := edges.At(eb.Min.X+x, eb.Min.Y+y).RGBA()
			inside += float64(r >> 8)
		}
	}

	confidence := inside / total
	areaShare := float64((x1-x0+1)*(y1-y0+1)) / float64(width*height)
	if areaShare > 0.95 {
		// Edges everywhere: the "board" is the whole frame, which is no
		// detection at all.
		confidence *= 0.25
	}
	confidence = clamp01(confidence)

	bounds := Bounds{
		X:      int(float64(x0) * scale),
		Y:      int(float64(y0) * scale),
		Width:  int(float64(x1-x0+1) * scale),
		Height: int(float64(y1-y0+1) * scale),
	}
	if bounds.Width < 1 {
		bounds.Width = 1
	}
	if bounds.Height < 1 {
		bounds.Height = 1
	}
	return bounds, confidence, nil
}

// profileSpan trims a 1-D energy profile from both ends until it climbs
// above a quarter of the peak, yielding the extent of the dense region.
func profileSpan(profile []float64) (int, int) {
	peak := 0.0
	for _, v := range profile {
		if v > peak {
			peak = v
		}
	}
	threshold := peak * 0.25
	lo, hi := 0, len(profile)-1
	for lo < hi && profile[lo] < threshold {
		lo++
	}
	for hi > lo && profile[hi] < threshold {
		hi--
	}
	return lo, hi
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
