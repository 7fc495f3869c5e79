package vision

import "context"

// Thresholds below which a region reads as an empty cell rather than a
// piece. Empty cells are flat and dark relative to cell art.
const (
	emptySharpness = 6.0
	emptyCoverage  = 0.4
)

// recognizeRegions labels every extracted region against the reference
// palette. The aggregate confidence is the coverage-weighted mean of the
// per-slot scores, so a board of confident matches with one murky corner
// still scores high.
func recognizeRegions(ctx context.Context, rm RegionMap) (RecognitionResult, error) {
	items := make([]RecognizedItem, 0, len(rm.Regions))
	var weighted, weight float64
	for i, region := range rm.Regions {
		if i%16 == 0 && ctx.Err() != nil {
			return RecognitionResult{}, ctx.Err()
		}
		label, confidence := classifyCell(region)
		items = append(items, RecognizedItem{
			Slot:       region.Slot,
			Label:      label,
			Confidence: confidence,
		})
		w := region.Coverage
		if w <= 0 {
			w = 0.01
		}
		weighted += confidence * w
		weight += w
	}

	aggregate := 0.0
	if weight > 0 {
		aggregate = weighted / weight
	}
	return RecognitionResult{
		Version:    1,
		Items:      items,
		Confidence: clamp01(aggregate),
	}, nil
}

func classifyCell(region Region) (string, float64) {
	if region.Sharpness < emptySharpness || region.Coverage < emptyCoverage {
		// Flat or badly clipped patches are empty cells, scored by how
		// flat they actually are.
		confidence := clamp01(1 - region.Sharpness/emptySharpness)
		if confidence < 0.5 {
			confidence = 0.5
		}
		return LabelEmpty, confidence
	}
	return classifyColor(region.MeanRGB)
}
