package vision

import "fmt"

// projectGrid lays cell centers over the board bounds. Rows are staggered:
// odd rows shift half a cell to the right, matching the hex-packed boards
// the import targets. radius <= 0 derives one from the cell pitch.
func projectGrid(bounds Bounds, rows, cols int, radius float64) GridMap {
	cellW := float64(bounds.Width) / float64(cols)
	cellH := float64(bounds.Height) / float64(rows)
	if radius <= 0 {
		radius = 0.45 * minFloat(cellW, cellH)
	}
	if radius <= 0 {
		radius = 1
	}

	cells := make([]GridCell, 0, rows*cols)
	for r := 0; r < rows; r++ {
		offset := 0.0
		if r%2 == 1 {
			offset = cellW / 2
		}
		for c := 0; c < cols; c++ {
			cx := float64(bounds.X) + float64(c)*cellW + cellW/2 + offset
			cy := float64(bounds.Y) + float64(r)*cellH + cellH/2
			cells = append(cells, GridCell{
				Slot:   fmt.Sprintf("r%dc%d", r, c),
				CX:     clampInt(int(cx), 0, bounds.X+bounds.Width-1),
				CY:     clampInt(int(cy), 0, bounds.Y+bounds.Height-1),
				Radius: radius,
			})
		}
	}
	return GridMap{
		Version: 1,
		Bounds:  bounds,
		Rows:    rows,
		Cols:    cols,
		Cells:   cells,
	}
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
