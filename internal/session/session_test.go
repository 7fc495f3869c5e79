package session

import (
	"errors"
	"testing"
	"time"

	"gridsight/internal/faults"
)

func newSession() *Session {
	return New("sess-1", "/tmp/board.png", time.Now().UTC(), time.Minute)
}

func TestHappyPathTransitions(t *testing.T) {
	s := newSession()

	steps := []struct {
		to    State
		stage string
	}{
		{StateAnalyzingROI, "raw_input"},
		{StateMappingGrid, "roi_detection"},
		{StateExtractingRegions, "grid_mapping"},
		{StateRecognizing, "region_extraction"},
		{StateReviewing, "recognition"},
		{StateComplete, ""},
	}
	for _, step := range steps {
		if err := s.Apply(step.to, step.stage, map[string]any{"version": 1}); err != nil {
			t.Fatalf("Apply(%s): %v", step.to, err)
		}
	}
	if !s.State.Terminal() {
		t.Fatalf("expected terminal state, got %s", s.State)
	}
}

func TestInvalidTransitionLeavesSessionUntouched(t *testing.T) {
	s := newSession()
	if err := s.Apply(StateAnalyzingROI, "raw_input", map[string]any{"version": 1}); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	err := s.Apply(StateRecognizing, "recognition", map[string]any{"version": 1})
	if err == nil {
		t.Fatal("expected invalid transition to be rejected")
	}
	var transitionErr *InvalidTransitionError
	if !errors.As(err, &transitionErr) {
		t.Fatalf("expected InvalidTransitionError, got %T", err)
	}
	if transitionErr.From != StateAnalyzingROI || transitionErr.To != StateRecognizing {
		t.Fatalf("unexpected error detail: %+v", transitionErr)
	}
	if !errors.Is(err, faults.ErrTransition) {
		t.Fatal("expected the transition sentinel")
	}

	if s.State != StateAnalyzingROI {
		t.Fatalf("state mutated on rejected transition: %s", s.State)
	}
	if _, ok := s.StagePayload("recognition"); ok {
		t.Fatal("stage data mutated on rejected transition")
	}
}

func TestTerminalStatesHaveNoSuccessors(t *testing.T) {
	for _, state := range []State{StateComplete, StateError} {
		if succ := Successors(state); len(succ) != 0 {
			t.Fatalf("%s must be terminal, has successors %v", state, succ)
		}
	}
}

func TestEveryNonTerminalStateCanFail(t *testing.T) {
	for _, state := range AllStates() {
		if state.Terminal() {
			continue
		}
		if !CanTransition(state, StateError) {
			t.Fatalf("%s cannot reach the error state", state)
		}
	}
}

func TestStageDataMergesOnlyWithStage(t *testing.T) {
	s := newSession()
	if err := s.Apply(StateAwaitingManualCrop, "", map[string]any{"hint": true}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if entries := s.Stages(); len(entries) != 0 {
		t.Fatalf("payload without stage must not merge, got %v", entries)
	}

	if err := s.Apply(StateMappingGrid, "manual_crop", map[string]any{"version": 1}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if _, ok := s.StagePayload("manual_crop"); !ok {
		t.Fatal("expected manual_crop payload to merge")
	}
}

func TestStagePayloadOverwriteKeepsOrder(t *testing.T) {
	s := newSession()
	if err := s.Apply(StateAnalyzingROI, "raw_input", map[string]any{"rev": 1}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := s.Apply(StateAwaitingManualCrop, "", nil); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := s.Apply(StateMappingGrid, "manual_crop", map[string]any{"rev": 1}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	// Re-entry overwrites in place rather than appending a duplicate.
	if err := s.Apply(StateExtractingRegions, "grid_mapping", map[string]any{"rev": 1}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := s.Apply(StateAwaitingManualCrop, "", nil); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := s.Apply(StateMappingGrid, "manual_crop", map[string]any{"rev": 2}); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	entries := s.Stages()
	var seen int
	for _, entry := range entries {
		if entry.Stage == "manual_crop" {
			seen++
			if entry.Payload["rev"] != 2 {
				t.Fatalf("expected overwritten payload, got %v", entry.Payload)
			}
		}
	}
	if seen != 1 {
		t.Fatalf("expected exactly one manual_crop entry, got %d", seen)
	}
	if entries[0].Stage != "raw_input" {
		t.Fatalf("expected raw_input first, got %s", entries[0].Stage)
	}
}

func TestForceError(t *testing.T) {
	s := newSession()
	if !s.ForceError("stage blew up") {
		t.Fatal("expected ForceError to apply")
	}
	if s.State != StateError || s.ErrorMsg != "stage blew up" {
		t.Fatalf("unexpected session state: %s %q", s.State, s.ErrorMsg)
	}
	if s.ForceError("second failure") {
		t.Fatal("ForceError must be a no-op on a terminal session")
	}
	if s.ErrorMsg != "stage blew up" {
		t.Fatalf("terminal error message clobbered: %q", s.ErrorMsg)
	}
}

func TestSnapshotIsIsolated(t *testing.T) {
	s := newSession()
	if err := s.Apply(StateAnalyzingROI, "raw_input", map[string]any{"width": 64}); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	snap := s.Snapshot()
	snap.Stages[0].Payload["width"] = 9999

	payload, _ := s.StagePayload("raw_input")
	if payload["width"] != 64 {
		t.Fatal("snapshot mutation leaked into the session")
	}
}

func TestParseState(t *testing.T) {
	if state, ok := ParseState("mapping_grid"); !ok || state != StateMappingGrid {
		t.Fatalf("ParseState(mapping_grid) = %v %v", state, ok)
	}
	if _, ok := ParseState("warp-speed"); ok {
		t.Fatal("expected unknown state to be rejected")
	}
}
