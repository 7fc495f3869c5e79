package testsupport

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// Board describes a synthetic build-screen screenshot for vision tests: a
// grid of colored discs over a flat dark backdrop.
type Board struct {
	Width, Height int
	// Bounds of the board region inside the frame.
	X, Y, W, H int
	Rows, Cols int
	// Colors fills the grid row-major; a nil entry leaves the cell empty.
	Colors []color.RGBA
}

// WriteBoardPNG renders a synthetic board screenshot to path.
func WriteBoardPNG(t testing.TB, path string, board Board) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, board.Width, board.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{R: 18, G: 18, B: 22, A: 255}), image.Point{}, draw.Src)

	cellW := board.W / board.Cols
	cellH := board.H / board.Rows
	radius := cellW / 2
	if cellH/2 < radius {
		radius = cellH / 2
	}
	radius = radius * 8 / 10

	for r := 0; r < board.Rows; r++ {
		for c := 0; c < board.Cols; c++ {
			idx := r*board.Cols + c
			if idx >= len(board.Colors) {
				continue
			}
			fill := board.Colors[idx]
			if fill.A == 0 {
				continue
			}
			cx := board.X + c*cellW + cellW/2
			cy := board.Y + r*cellH + cellH/2
			drawDisc(img, cx, cy, radius, fill)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

// drawDisc paints a filled circle with a contrasting rim so edge detection
// has gradients to find.
func drawDisc(img *image.RGBA, cx, cy, radius int, fill color.RGBA) {
	rim := color.RGBA{R: 240, G: 240, B: 245, A: 255}
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			d2 := dx*dx + dy*dy
			if d2 > radius*radius {
				continue
			}
			c := fill
			if d2 > (radius-2)*(radius-2) {
				c = rim
			}
			img.SetRGBA(cx+dx, cy+dy, c)
		}
	}
}

// WriteFile fills the target path with the requested number of bytes using
// a repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	data := make([]byte, size)
	for i := range data {
		data[i] = 0x42
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
