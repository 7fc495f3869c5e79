package vision

import (
	"fmt"
	"testing"
)

func TestProjectGridCellCount(t *testing.T) {
	bounds := Bounds{X: 100, Y: 50, Width: 700, Height: 500}
	grid := projectGrid(bounds, 5, 7, 0)

	if len(grid.Cells) != 35 {
		t.Fatalf("expected 35 cells, got %d", len(grid.Cells))
	}
	if grid.Rows != 5 || grid.Cols != 7 {
		t.Fatalf("grid dimensions lost: %dx%d", grid.Rows, grid.Cols)
	}

	seen := make(map[string]bool)
	for r := 0; r < 5; r++ {
		for c := 0; c < 7; c++ {
			seen[fmt.Sprintf("r%dc%d", r, c)] = false
		}
	}
	for _, cell := range grid.Cells {
		if _, ok := seen[cell.Slot]; !ok {
			t.Fatalf("unexpected slot %q", cell.Slot)
		}
		seen[cell.Slot] = true
	}
	for slot, found := range seen {
		if !found {
			t.Fatalf("missing slot %q", slot)
		}
	}
}

func TestProjectGridStaggersOddRows(t *testing.T) {
	bounds := Bounds{X: 0, Y: 0, Width: 700, Height: 500}
	grid := projectGrid(bounds, 4, 7, 0)

	bySlot := make(map[string]GridCell, len(grid.Cells))
	for _, cell := range grid.Cells {
		bySlot[cell.Slot] = cell
	}

	even := bySlot["r0c0"]
	odd := bySlot["r1c0"]
	if odd.CX <= even.CX {
		t.Fatalf("expected odd row shifted right: r0c0.cx=%d r1c0.cx=%d", even.CX, odd.CX)
	}
	if odd.CY <= even.CY {
		t.Fatalf("expected rows to descend: r0c0.cy=%d r1c0.cy=%d", even.CY, odd.CY)
	}
}

func TestProjectGridStaysInBounds(t *testing.T) {
	bounds := Bounds{X: 40, Y: 30, Width: 350, Height: 250}
	grid := projectGrid(bounds, 5, 7, 0)

	for _, cell := range grid.Cells {
		if cell.CX < bounds.X || cell.CX >= bounds.X+bounds.Width {
			t.Fatalf("cell %s cx=%d escapes bounds", cell.Slot, cell.CX)
		}
		if cell.CY < bounds.Y || cell.CY >= bounds.Y+bounds.Height {
			t.Fatalf("cell %s cy=%d escapes bounds", cell.Slot, cell.CY)
		}
		if cell.Radius <= 0 {
			t.Fatalf("cell %s has non-positive radius", cell.Slot)
		}
	}
}

func TestProjectGridDerivesRadius(t *testing.T) {
	bounds := Bounds{X: 0, Y: 0, Width: 700, Height: 500}

	derived := projectGrid(bounds, 5, 7, 0)
	if derived.Cells[0].Radius <= 0 {
		t.Fatal("expected derived radius")
	}

	explicit := projectGrid(bounds, 5, 7, 33)
	if explicit.Cells[0].Radius != 33 {
		t.Fatalf("expected explicit radius 33, got %v", explicit.Cells[0].Radius)
	}
}
