package vision

import (
	"context"
	"errors"
	"image"
	"sync"

	"gridsight/internal/config"
	"gridsight/internal/contract"
	"gridsight/internal/faults"
	"gridsight/internal/pipeline"
)

// importStages binds the heuristics to one import's source image. The
// pipeline runs stages from pool workers, so access to the cached image is
// guarded even though stages never overlap within a session.
type importStages struct {
	cfg *config.Config

	mu   sync.Mutex
	path string
	img  image.Image
}

// NewStages builds a fresh stage set for one import session.
func NewStages(cfg *config.Config) pipeline.Stages {
	s := &importStages{cfg: cfg}
	return pipeline.Stages{
		Prepare:        s.prepare,
		DetectROI:      s.detectROI,
		MapGrid:        s.mapGrid,
		ExtractRegions: s.extractRegions,
		Recognize:      s.recognize,
	}
}

// prepare records the screenshot path. The image itself loads lazily on
// first use so a session that goes straight to manual crop still works
// from the same source.
func (s *importStages) prepare(ctx context.Context, raw map[string]any) error {
	var input RawInput
	if err := contract.Decode(raw, &input); err != nil {
		return faults.Wrap(faults.ErrExecution, "raw_input", "prepare", "bad raw input payload", err)
	}
	s.mu.Lock()
	s.path = input.ImagePath
	s.img = nil
	s.mu.Unlock()
	return nil
}

func (s *importStages) source() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.img != nil {
		return s.img, nil
	}
	if s.path == "" {
		return nil, errors.New("no source image bound to session")
	}
	img, err := LoadImage(s.path)
	if err != nil {
		return nil, err
	}
	s.img = img
	return img, nil
}

func (s *importStages) detectROI(ctx context.Context, input map[string]any, params pipeline.Params) (pipeline.StageResult, error) {
	img, err := s.source()
	if err != nil {
		return pipeline.StageResult{}, faults.Wrap(faults.ErrExecution, "roi_detection", "load", "source image unavailable", err)
	}

	downscale := 1.0
	if v, ok := params["downscale"].(float64); ok && v > 1 {
		downscale = v
	}
	bounds, confidence, err := detectBoard(ctx, img, downscale)
	if err != nil {
		return pipeline.StageResult{}, err
	}

	cellW := float64(bounds.Width) / float64(s.cfg.Grid.Cols)
	cellH := float64(bounds.Height) / float64(s.cfg.Grid.Rows)
	radius := 0.45 * minFloat(cellW, cellH)
	if radius <= 0 {
		radius = 1
	}

	payload, err := contract.Normalize(ROIResult{
		Version:    1,
		Bounds:     bounds,
		Rows:       s.cfg.Grid.Rows,
		Cols:       s.cfg.Grid.Cols,
		CellRadius: radius,
		Confidence: confidence,
	})
	if err != nil {
		return pipeline.StageResult{}, err
	}
	return pipeline.StageResult{Payload: payload, Confidence: confidence}, nil
}

// mapGrid accepts either an ROI result or a manual crop; both carry bounds
// and grid dimensions, only the ROI path knows a cell radius up front.
func (s *importStages) mapGrid(ctx context.Context, input map[string]any, params pipeline.Params) (pipeline.StageResult, error) {
	var region struct {
		Bounds     Bounds  `json:"bounds"`
		Rows       int     `json:"rows"`
		Cols       int     `json:"cols"`
		CellRadius float64 `json:"cell_radius"`
	}
	if err := contract.Decode(input, &region); err != nil {
		return pipeline.StageResult{}, faults.Wrap(faults.ErrExecution, "grid_mapping", "decode", "bad crop payload", err)
	}
	if region.Rows < 1 || region.Cols < 1 {
		return pipeline.StageResult{}, faults.Wrap(faults.ErrExecution, "grid_mapping", "project", "crop payload missing grid dimensions", nil)
	}

	grid := projectGrid(region.Bounds, region.Rows, region.Cols, region.CellRadius)
	payload, err := contract.Normalize(grid)
	if err != nil {
		return pipeline.StageResult{}, err
	}
	return pipeline.StageResult{Payload: payload, Confidence: 1}, nil
}

func (s *importStages) extractRegions(ctx context.Context, input map[string]any, params pipeline.Params) (pipeline.StageResult, error) {
	img, err := s.source()
	if err != nil {
		return pipeline.StageResult{}, faults.Wrap(faults.ErrExecution, "region_extraction", "load", "source image unavailable", err)
	}
	var grid GridMap
	if err := contract.Decode(input, &grid); err != nil {
		return pipeline.StageResult{}, faults.Wrap(faults.ErrExecution, "region_extraction", "decode", "bad grid payload", err)
	}

	rm, err := extractRegions(ctx, img, grid)
	if err != nil {
		return pipeline.StageResult{}, err
	}
	if len(rm.Regions) == 0 {
		return pipeline.StageResult{}, faults.Wrap(faults.ErrExecution, "region_extraction", "extract", "no cell produced a usable region", nil)
	}
	payload, err := contract.Normalize(rm)
	if err != nil {
		return pipeline.StageResult{}, err
	}
	return pipeline.StageResult{Payload: payload, Confidence: rm.Integrity}, nil
}

func (s *importStages) recognize(ctx context.Context, input map[string]any, params pipeline.Params) (pipeline.StageResult, error) {
	var rm RegionMap
	if err := contract.Decode(input, &rm); err != nil {
		return pipeline.StageResult{}, faults.Wrap(faults.ErrExecution, "recognition", "decode", "bad region payload", err)
	}

	result, err := recognizeRegions(ctx, rm)
	if err != nil {
		return pipeline.StageResult{}, err
	}
	payload, err := contract.Normalize(result)
	if err != nil {
		return pipeline.StageResult{}, err
	}
	return pipeline.StageResult{Payload: payload, Confidence: result.Confidence}, nil
}
