package vision

import (
	"context"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// extractRegions crops a square patch around each cell center and reduces
// it to the statistics recognition needs. Cells whose patch falls mostly
// outside the frame are dropped; integrity reports the surviving fraction.
func extractRegions(ctx context.Context, img image.Image, grid GridMap) (RegionMap, error) {
	frame := img.Bounds()
	regions := make([]Region, 0, len(grid.Cells))
	for i, cell := range grid.Cells {
		if i%8 == 0 && ctx.Err() != nil {
			return RegionMap{}, ctx.Err()
		}
		r := int(cell.Radius)
		if r < 1 {
			r = 1
		}
		rect := image.Rect(cell.CX-r, cell.CY-r, cell.CX+r, cell.CY+r)
		clipped := rect.Intersect(frame)
		if clipped.Empty() {
			continue
		}
		coverage := float64(clipped.Dx()*clipped.Dy()) / float64(rect.Dx()*rect.Dy())
		if coverage < 0.25 {
			continue
		}
		patch := imaging.Crop(img, clipped)
		mean, sharpness := patchStats(patch)
		regions = append(regions, Region{
			Slot:      cell.Slot,
			MeanRGB:   mean,
			Sharpness: sharpness,
			Coverage:  clamp01(coverage),
		})
	}

	integrity := 0.0
	if len(grid.Cells) > 0 {
		integrity = float64(len(regions)) / float64(len(grid.Cells))
	}
	return RegionMap{
		Version:   1,
		Regions:   regions,
		Integrity: clamp01(integrity),
	}, nil
}

// patchStats reduces a patch to its mean color and a luminance-variance
// sharpness score. Flat patches (empty cells, background) score near zero.
func patchStats(patch image.Image) ([3]float64, float64) {
	b := patch.Bounds()
	n := float64(b.Dx() * b.Dy())
	if n == 0 {
		return [3]float64{}, 0
	}

	var sumR, sumG, sumB, sumLum, sumLumSq float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := patch.At(x, y).RGBA()
			rf := float64(r >> 8)
			gf := float64(g >> 8)
			bf := float64(bl >> 8)
			sumR += rf
			sumG += gf
			sumB += bf
			lum := 0.299*rf + 0.587*gf + 0.114*bf
			sumLum += lum
			sumLumSq += lum * lum
		}
	}

	mean := [3]float64{
		clampChannel(sumR / n),
		clampChannel(sumG / n),
		clampChannel(sumB / n),
	}
	variance := sumLumSq/n - (sumLum/n)*(sumLum/n)
	if variance < 0 {
		variance = 0
	}
	return mean, math.Sqrt(variance)
}

func clampChannel(v float64) float64 {
	return math.Max(0, math.Min(255, v))
}
