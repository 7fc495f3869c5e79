package contract

import (
	"errors"
	"strings"
	"testing"

	"gridsight/internal/faults"
)

func validROIPayload() map[string]any {
	return map[string]any{
		"version": 1,
		"bounds": map[string]any{
			"x":      10,
			"y":      20,
			"width":  300,
			"height": 200,
		},
		"rows":        5,
		"cols":        7,
		"cell_radius": 18.5,
		"confidence":  0.92,
	}
}

func mustRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return reg
}

func TestValidPayloadPasses(t *testing.T) {
	reg := mustRegistry(t)
	if err := reg.Validate(ROIResultV1, validROIPayload()); err != nil {
		t.Fatalf("expected valid payload to pass: %v", err)
	}
}

func TestMissingFieldIsViolation(t *testing.T) {
	reg := mustRegistry(t)
	payload := validROIPayload()
	delete(payload, "confidence")

	err := reg.Validate(ROIResultV1, payload)
	if err == nil {
		t.Fatal("expected missing field to fail")
	}
	var violation *ViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected ViolationError, got %T", err)
	}
	if violation.Contract != ROIResultV1 {
		t.Fatalf("unexpected contract name %q", violation.Contract)
	}
	if !errors.Is(err, faults.ErrContract) {
		t.Fatal("expected the contract sentinel")
	}
	if !IsViolation(err) {
		t.Fatal("IsViolation must report true")
	}
}

func TestNestedFieldPathIsReported(t *testing.T) {
	reg := mustRegistry(t)
	payload := validROIPayload()
	payload["bounds"].(map[string]any)["width"] = 0

	err := reg.Validate(ROIResultV1, payload)
	var violation *ViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected ViolationError, got %v", err)
	}
	if !strings.Contains(violation.Field, "bounds") || !strings.Contains(violation.Field, "width") {
		t.Fatalf("expected nested field path, got %q", violation.Field)
	}
}

func TestVersionMismatchIsViolation(t *testing.T) {
	reg := mustRegistry(t)
	payload := validROIPayload()
	payload["version"] = 2

	if err := reg.Validate(ROIResultV1, payload); !IsViolation(err) {
		t.Fatalf("expected version mismatch to violate, got %v", err)
	}
}

func TestUnknownKeysAreRejected(t *testing.T) {
	reg := mustRegistry(t)
	payload := validROIPayload()
	payload["extra"] = true

	if err := reg.Validate(ROIResultV1, payload); !IsViolation(err) {
		t.Fatalf("expected unknown key to violate, got %v", err)
	}
}

func TestUnknownContract(t *testing.T) {
	reg := mustRegistry(t)
	if err := reg.Validate("mystery@v9", map[string]any{}); !IsViolation(err) {
		t.Fatalf("expected unknown contract to violate, got %v", err)
	}
}

func TestValidationDoesNotMutatePayload(t *testing.T) {
	reg := mustRegistry(t)
	payload := validROIPayload()
	_ = reg.Validate(ROIResultV1, payload)
	_ = reg.Validate(ROIResultV1, payload)

	if payload["rows"] != 5 || len(payload) != 6 {
		t.Fatalf("validation mutated the payload: %v", payload)
	}
}

func TestSlotPatternEnforced(t *testing.T) {
	reg := mustRegistry(t)
	payload := map[string]any{
		"version": 1,
		"regions": []any{
			map[string]any{
				"slot":      "north-west",
				"mean_rgb":  []any{10.0, 20.0, 30.0},
				"sharpness": 4.2,
				"coverage":  1.0,
			},
		},
		"integrity": 1.0,
	}
	if err := reg.Validate(RegionMapV1, payload); !IsViolation(err) {
		t.Fatalf("expected slot pattern violation, got %v", err)
	}
}

func TestNormalizeDecodeRoundTrip(t *testing.T) {
	type bounds struct {
		X      int `json:"x"`
		Y      int `json:"y"`
		Width  int `json:"width"`
		Height int `json:"height"`
	}
	type roi struct {
		Version    int     `json:"version"`
		Bounds     bounds  `json:"bounds"`
		Rows       int     `json:"rows"`
		Cols       int     `json:"cols"`
		CellRadius float64 `json:"cell_radius"`
		Confidence float64 `json:"confidence"`
	}

	payload, err := Normalize(roi{
		Version:    1,
		Bounds:     bounds{X: 1, Y: 2, Width: 30, Height: 40},
		Rows:       5,
		Cols:       7,
		CellRadius: 12,
		Confidence: 0.8,
	})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	reg := mustRegistry(t)
	if err := reg.Validate(ROIResultV1, payload); err != nil {
		t.Fatalf("normalized struct failed validation: %v", err)
	}

	var back roi
	if err := Decode(payload, &back); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if back.Bounds.Width != 30 || back.Confidence != 0.8 {
		t.Fatalf("round trip lost data: %+v", back)
	}
}

func TestNamesListsEveryContract(t *testing.T) {
	reg := mustRegistry(t)
	names := reg.Names()
	expected := []string{RawInputV1, ROIResultV1, GridMapV1, RegionMapV1, RecognitionResultV1, ManualCropV1}
	if len(names) != len(expected) {
		t.Fatalf("expected %d contracts, got %d: %v", len(expected), len(names), names)
	}
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		seen[name] = true
	}
	for _, name := range expected {
		if !seen[name] {
			t.Fatalf("missing contract %s", name)
		}
	}
}
