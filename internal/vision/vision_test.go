package vision

import (
	"context"
	"fmt"
	"image/color"
	"path/filepath"
	"testing"

	"gridsight/internal/contract"
	"gridsight/internal/testsupport"
)

var (
	pyroFill    = color.RGBA{R: 218, G: 64, B: 37, A: 255}
	frostFill   = color.RGBA{R: 99, G: 190, B: 233, A: 255}
	verdantFill = color.RGBA{R: 71, G: 175, B: 82, A: 255}
)

// testBoard is a 2x2 board with one empty slot, drawn inside a larger
// dark frame.
func testBoard() testsupport.Board {
	return testsupport.Board{
		Width: 400, Height: 300,
		X: 60, Y: 40, W: 240, H: 200,
		Rows: 2, Cols: 2,
		Colors: []color.RGBA{pyroFill, frostFill, verdantFill, {}},
	}
}

// testGrid places cells exactly on the drawn disc centers.
func testGrid(board testsupport.Board) GridMap {
	cellW := board.W / board.Cols
	cellH := board.H / board.Rows
	cells := make([]GridCell, 0, board.Rows*board.Cols)
	for r := 0; r < board.Rows; r++ {
		for c := 0; c < board.Cols; c++ {
			cells = append(cells, GridCell{
				Slot:   gridSlot(r, c),
				CX:     board.X + c*cellW + cellW/2,
				CY:     board.Y + r*cellH + cellH/2,
				Radius: 40,
			})
		}
	}
	return GridMap{
		Version: 1,
		Bounds:  Bounds{X: board.X, Y: board.Y, Width: board.W, Height: board.H},
		Rows:    board.Rows,
		Cols:    board.Cols,
		Cells:   cells,
	}
}

func gridSlot(r, c int) string {
	return fmt.Sprintf("r%dc%d", r, c)
}

func TestDetectBoardFindsDiscCluster(t *testing.T) {
	board := testBoard()
	path := filepath.Join(t.TempDir(), "board.png")
	testsupport.WriteBoardPNG(t, path, board)
	img, err := LoadImage(path)
	if err != nil {
		t.Fatalf("load board: %v", err)
	}

	bounds, confidence, err := detectBoard(context.Background(), img, 1)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if confidence <= 0.5 {
		t.Fatalf("expected confident detection, got %.2f", confidence)
	}
	if bounds.X+bounds.Width <= board.X || bounds.X >= board.X+board.W {
		t.Fatalf("detected bounds %+v miss the board horizontally", bounds)
	}
	if bounds.Y+bounds.Height <= board.Y || bounds.Y >= board.Y+board.H {
		t.Fatalf("detected bounds %+v miss the board vertically", bounds)
	}
	if bounds.Width >= board.Width || bounds.Height >= board.Height {
		t.Fatalf("detected bounds %+v degenerate to the whole frame", bounds)
	}
}

func TestDetectBoardFlatFrameScoresZero(t *testing.T) {
	board := testBoard()
	board.Colors = nil
	path := filepath.Join(t.TempDir(), "flat.png")
	testsupport.WriteBoardPNG(t, path, board)
	img, err := LoadImage(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	bounds, confidence, err := detectBoard(context.Background(), img, 1)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if confidence >= 0.5 {
		t.Fatalf("flat frame scored %.2f, expected low confidence", confidence)
	}
	if bounds.Width < 1 || bounds.Height < 1 {
		t.Fatalf("degenerate fallback bounds: %+v", bounds)
	}
}

func TestExtractRegionsKeepsAllOnFrameCells(t *testing.T) {
	board := testBoard()
	path := filepath.Join(t.TempDir(), "board.png")
	testsupport.WriteBoardPNG(t, path, board)
	img, err := LoadImage(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	rm, err := extractRegions(context.Background(), img, testGrid(board))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(rm.Regions) != 4 {
		t.Fatalf("expected 4 regions, got %d", len(rm.Regions))
	}
	if rm.Integrity != 1 {
		t.Fatalf("expected integrity 1, got %.2f", rm.Integrity)
	}
	for _, region := range rm.Regions {
		if region.Coverage != 1 {
			t.Fatalf("region %s coverage %.2f, expected full", region.Slot, region.Coverage)
		}
	}
}

func TestExtractRegionsDropsOffFrameCells(t *testing.T) {
	board := testBoard()
	path := filepath.Join(t.TempDir(), "board.png")
	testsupport.WriteBoardPNG(t, path, board)
	img, err := LoadImage(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	grid := testGrid(board)
	grid.Cells = append(grid.Cells, GridCell{Slot: "r9c9", CX: -200, CY: -200, Radius: 40})

	rm, err := extractRegions(context.Background(), img, grid)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(rm.Regions) != 4 {
		t.Fatalf("expected off-frame cell dropped, got %d regions", len(rm.Regions))
	}
	if rm.Integrity >= 1 {
		t.Fatalf("expected degraded integrity, got %.2f", rm.Integrity)
	}
	for _, region := range rm.Regions {
		if region.Slot == "r9c9" {
			t.Fatal("off-frame cell survived extraction")
		}
	}
}

func TestRecognizeRegionsLabelsPalette(t *testing.T) {
	board := testBoard()
	path := filepath.Join(t.TempDir(), "board.png")
	testsupport.WriteBoardPNG(t, path, board)
	img, err := LoadImage(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	rm, err := extractRegions(context.Background(), img, testGrid(board))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	result, err := recognizeRegions(context.Background(), rm)
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}
	if len(result.Items) != 4 {
		t.Fatalf("expected 4 items, got %d", len(result.Items))
	}

	labels := make(map[string]string, len(result.Items))
	for _, item := range result.Items {
		labels[item.Slot] = item.Label
		if item.Confidence <= 0 || item.Confidence > 1 {
			t.Fatalf("item %s confidence out of range: %.2f", item.Slot, item.Confidence)
		}
	}
	want := map[string]string{
		"r0c0": "pyro-core",
		"r0c1": "frost-shard",
		"r1c0": "verdant-bloom",
		"r1c1": LabelEmpty,
	}
	for slot, label := range want {
		if labels[slot] != label {
			t.Fatalf("slot %s labeled %q, want %q", slot, labels[slot], label)
		}
	}
	if result.Confidence <= 0 {
		t.Fatalf("expected positive aggregate confidence, got %.2f", result.Confidence)
	}
}

func TestFormatFromPath(t *testing.T) {
	cases := map[string]string{
		"shot.png":     "png",
		"shot.PNG":     "png",
		"shot.jpg":     "jpeg",
		"shot.jpeg":    "jpeg",
		"shot.webp":    "webp",
		"shot.bmp":     "bmp",
		"shot.tiff":    "",
		"shot":         "",
		"dir/shot.png": "png",
	}
	for path, want := range cases {
		if got := FormatFromPath(path); got != want {
			t.Fatalf("FormatFromPath(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestNewRawInputProbesDimensions(t *testing.T) {
	board := testBoard()
	path := filepath.Join(t.TempDir(), "board.png")
	testsupport.WriteBoardPNG(t, path, board)

	raw, err := NewRawInput(path)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if raw.Width != board.Width || raw.Height != board.Height {
		t.Fatalf("probed %dx%d, want %dx%d", raw.Width, raw.Height, board.Width, board.Height)
	}
	if raw.Format != "png" || raw.Version != 1 || raw.ImagePath != path {
		t.Fatalf("unexpected raw input: %+v", raw)
	}
}

func TestNewRawInputRejectsUnknownFormat(t *testing.T) {
	if _, err := NewRawInput("shot.tiff"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestLoadImageRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.png")
	testsupport.WriteFile(t, path, 512)

	if _, err := LoadImage(path); err == nil {
		t.Fatal("expected decode error for corrupt screenshot")
	}
}

// TestStagesEndToEnd threads one synthetic screenshot through every stage
// and validates each hop against the stage contracts.
func TestStagesEndToEnd(t *testing.T) {
	board := testBoard()
	path := filepath.Join(t.TempDir(), "board.png")
	testsupport.WriteBoardPNG(t, path, board)

	cfg := testsupport.NewConfig(t, testsupport.WithGrid(board.Rows, board.Cols))
	registry, err := contract.NewRegistry()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	stages := NewStages(cfg)
	ctx := context.Background()

	raw, err := NewRawInput(path)
	if err != nil {
		t.Fatalf("raw input: %v", err)
	}
	rawPayload, err := contract.Normalize(raw)
	if err != nil {
		t.Fatalf("normalize raw: %v", err)
	}
	if err := registry.Validate(contract.RawInputV1, rawPayload); err != nil {
		t.Fatalf("raw payload invalid: %v", err)
	}
	if err := stages.Prepare(ctx, rawPayload); err != nil {
		t.Fatalf("prepare: %v", err)
	}

	roi, err := stages.DetectROI(ctx, rawPayload, nil)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if err := registry.Validate(contract.ROIResultV1, roi.Payload); err != nil {
		t.Fatalf("roi payload invalid: %v", err)
	}

	grid, err := stages.MapGrid(ctx, roi.Payload, nil)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if err := registry.Validate(contract.GridMapV1, grid.Payload); err != nil {
		t.Fatalf("grid payload invalid: %v", err)
	}

	regions, err := stages.ExtractRegions(ctx, grid.Payload, nil)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if err := registry.Validate(contract.RegionMapV1, regions.Payload); err != nil {
		t.Fatalf("region payload invalid: %v", err)
	}

	result, err := stages.Recognize(ctx, regions.Payload, nil)
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}
	if err := registry.Validate(contract.RecognitionResultV1, result.Payload); err != nil {
		t.Fatalf("recognition payload invalid: %v", err)
	}
	if result.Confidence <= 0 {
		t.Fatalf("expected positive recognition confidence, got %.2f", result.Confidence)
	}
}
