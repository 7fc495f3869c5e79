package pipeline

import (
	"context"
	"errors"

	"gridsight/internal/contract"
	"gridsight/internal/session"
)

// Stage names used as stage-data keys and journal labels.
const (
	StageRawInput         = "raw_input"
	StageROIDetection     = "roi_detection"
	StageGridMapping      = "grid_mapping"
	StageRegionExtraction = "region_extraction"
	StageRecognition      = "recognition"
	StageManualCrop       = "manual_crop"
	StageReview           = "review"
)

// Params carries tunable stage parameters. Degrade-and-retry outcomes merge
// adjustments (e.g. a downscale factor) into the next attempt.
type Params map[string]any

// StageResult is what an automatic stage hands back: a contract-shaped
// payload plus the stage's estimated correctness.
type StageResult struct {
	Payload    map[string]any
	Confidence float64
}

// StageFunc is the collaborator contract for heuristics. Implementations
// live outside this package; the orchestrator never inspects their
// internals, only their contract-shaped output.
type StageFunc func(ctx context.Context, input map[string]any, params Params) (StageResult, error)

// Stages bundles the concrete heuristics the orchestrator drives. Prepare
// is optional; when set it runs once per session, right after raw-input
// validation, so stateful implementations can bind their source material.
type Stages struct {
	Prepare        func(ctx context.Context, raw map[string]any) error
	DetectROI      StageFunc
	MapGrid        StageFunc
	ExtractRegions StageFunc
	Recognize      StageFunc
}

func (s Stages) validate() error {
	if s.DetectROI == nil || s.MapGrid == nil || s.ExtractRegions == nil || s.Recognize == nil {
		return errors.New("pipeline stages not fully configured")
	}
	return nil
}

// stageSpec describes one heavy stage's place in the pipeline: which state
// runs it, which contract gates its output, which threshold its confidence
// must clear, and where a success leads.
type stageSpec struct {
	name      string
	state     session.State
	contract  string
	inputFrom string
	next      session.State
}

var heavySpecs = map[session.State]stageSpec{
	session.StateAnalyzingROI: {
		name:      StageROIDetection,
		state:     session.StateAnalyzingROI,
		contract:  contract.ROIResultV1,
		inputFrom: StageRawInput,
		next:      session.StateMappingGrid,
	},
	session.StateExtractingRegions: {
		name:      StageRegionExtraction,
		state:     session.StateExtractingRegions,
		contract:  contract.RegionMapV1,
		inputFrom: StageGridMapping,
		next:      session.StateRecognizing,
	},
	session.StateRecognizing: {
		name:      StageRecognition,
		state:     session.StateRecognizing,
		contract:  contract.RecognitionResultV1,
		inputFrom: StageRegionExtraction,
		next:      session.StateReviewing,
	},
}
