package vision

// Bounds is a pixel-space rectangle in source image coordinates.
type Bounds struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// RawInput describes the screenshot an import starts from.
type RawInput struct {
	Version   int    `json:"version"`
	ImagePath string `json:"image_path"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Format    string `json:"format"`
}

// ROIResult is the detected board region with the grid dimensions the
// later stages should assume.
type ROIResult struct {
	Version    int     `json:"version"`
	Bounds     Bounds  `json:"bounds"`
	Rows       int     `json:"rows"`
	Cols       int     `json:"cols"`
	CellRadius float64 `json:"cell_radius"`
	Confidence float64 `json:"confidence"`
}

// ManualCrop is an operator-supplied board region.
type ManualCrop struct {
	Version int    `json:"version"`
	Bounds  Bounds `json:"bounds"`
	Rows    int    `json:"rows"`
	Cols    int    `json:"cols"`
}

// GridCell is one projected cell center.
type GridCell struct {
	Slot   string  `json:"slot"`
	CX     int     `json:"cx"`
	CY     int     `json:"cy"`
	Radius float64 `json:"radius"`
}

// GridMap projects the board region onto addressable cell centers.
type GridMap struct {
	Version int        `json:"version"`
	Bounds  Bounds     `json:"bounds"`
	Rows    int        `json:"rows"`
	Cols    int        `json:"cols"`
	Cells   []GridCell `json:"cells"`
}

// Region carries the per-cell statistics recognition works from.
type Region struct {
	Slot      string     `json:"slot"`
	MeanRGB   [3]float64 `json:"mean_rgb"`
	Sharpness float64    `json:"sharpness"`
	Coverage  float64    `json:"coverage"`
}

// RegionMap is the extraction output. Integrity is the fraction of grid
// cells that produced a usable region.
type RegionMap struct {
	Version   int      `json:"version"`
	Regions   []Region `json:"regions"`
	Integrity float64  `json:"integrity"`
}

// RecognizedItem labels one slot.
type RecognizedItem struct {
	Slot       string  `json:"slot"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// RecognitionResult is the final labeled board.
type RecognitionResult struct {
	Version    int              `json:"version"`
	Items      []RecognizedItem `json:"items"`
	Confidence float64          `json:"confidence"`
}
