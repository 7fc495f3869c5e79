package vision

import "github.com/lucasb-eyer/go-colorful"

// LabelEmpty marks a slot with nothing recognizable in it.
const LabelEmpty = "empty"

// paletteEntry ties a game-piece label to its reference color.
type paletteEntry struct {
	Label string
	Color colorful.Color
}

// referencePalette holds the mean cell colors of the known piece types,
// sampled from reference boards. Channels are in [0,1].
var referencePalette = []paletteEntry{
	{Label: "pyro-core", Color: colorful.Color{R: 0.855, G: 0.251, B: 0.145}},
	{Label: "frost-shard", Color: colorful.Color{R: 0.388, G: 0.745, B: 0.914}},
	{Label: "verdant-bloom", Color: colorful.Color{R: 0.278, G: 0.686, B: 0.322}},
	{Label: "sun-sigil", Color: colorful.Color{R: 0.949, G: 0.800, B: 0.259}},
	{Label: "void-ember", Color: colorful.Color{R: 0.416, G: 0.227, B: 0.608}},
	{Label: "tide-glass", Color: colorful.Color{R: 0.129, G: 0.357, B: 0.690}},
	{Label: "iron-thorn", Color: colorful.Color{R: 0.471, G: 0.486, B: 0.514}},
}

// classifyColor matches a mean cell color against the reference palette in
// Lab space and reports the winning label with a distance-based score.
func classifyColor(mean [3]float64) (string, float64) {
	c := colorful.Color{R: mean[0] / 255, G: mean[1] / 255, B: mean[2] / 255}

	best := ""
	bestDist := 0.0
	for i, entry := range referencePalette {
		d := c.DistanceLab(entry.Color)
		if i == 0 || d < bestDist {
			best = entry.Label
			bestDist = d
		}
	}

	// DistanceLab tops out near 1 for opposing corners of the gamut; a
	// close palette hit sits well under 0.2.
	confidence := clamp01(1 - bestDist/0.5)
	return best, confidence
}
