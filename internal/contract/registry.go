package contract

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Contract names. The version suffix is part of the name so a future v2
// payload can never silently pass as v1.
const (
	RawInputV1          = "raw-input@v1"
	ROIResultV1         = "roi-result@v1"
	GridMapV1           = "grid-map@v1"
	RegionMapV1         = "region-map@v1"
	RecognitionResultV1 = "recognition-result@v1"
	ManualCropV1        = "manual-crop@v1"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var schemaFiles = map[string]string{
	RawInputV1:          "schemas/raw_input_v1.json",
	ROIResultV1:         "schemas/roi_result_v1.json",
	GridMapV1:           "schemas/grid_map_v1.json",
	RegionMapV1:         "schemas/region_map_v1.json",
	RecognitionResultV1: "schemas/recognition_result_v1.json",
	ManualCropV1:        "schemas/manual_crop_v1.json",
}

// Registry holds the compiled stage contracts. It is built once at process
// start and read-only afterwards.
type Registry struct {
	schemas map[string]*jsonschema.Schema
	names   []string
}

// NewRegistry compiles every embedded contract schema.
func NewRegistry() (*Registry, error) {
	compiler := jsonschema.NewCompiler()
	for name, file := range schemaFiles {
		raw, err := schemaFS.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read contract schema %s: %w", name, err)
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("decode contract schema %s: %w", name, err)
		}
		if err := compiler.AddResource(file, doc); err != nil {
			return nil, fmt.Errorf("add contract schema %s: %w", name, err)
		}
	}

	schemas := make(map[string]*jsonschema.Schema, len(schemaFiles))
	names := make([]string, 0, len(schemaFiles))
	for name, file := range schemaFiles {
		schema, err := compiler.Compile(file)
		if err != nil {
			return nil, fmt.Errorf("compile contract schema %s: %w", name, err)
		}
		schemas[name] = schema
		names = append(names, name)
	}
	sort.Strings(names)

	return &Registry{schemas: schemas, names: names}, nil
}

// Names returns the registered contract names in sorted order.
func (r *Registry) Names() []string {
	cp := make([]string, len(r.names))
	copy(cp, r.names)
	return cp
}

// Validate checks payload against the named contract. The payload is
// round-tripped through JSON first so Go-native numbers validate the same
// as decoded ones. A nil error means the payload may cross the stage
// boundary; validation never mutates the input.
func (r *Registry) Validate(name string, payload any) error {
	schema, ok := r.schemas[name]
	if !ok {
		return &ViolationError{Contract: name, Reason: "unknown contract"}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return &ViolationError{Contract: name, Reason: fmt.Sprintf("payload is not a JSON value: %v", err)}
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return &ViolationError{Contract: name, Reason: fmt.Sprintf("payload is not a JSON value: %v", err)}
	}
	if err := schema.Validate(doc); err != nil {
		return violationFrom(name, err)
	}
	return nil
}

// Normalize converts an arbitrary value into the plain JSON form the
// validator operates on. Stage implementations produce typed structs; this
// is the single conversion point before the gate.
func Normalize(value any) (map[string]any, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode stage payload: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode stage payload: %w", err)
	}
	return out, nil
}

// Decode unmarshals a normalized payload back into a typed struct.
func Decode(payload map[string]any, target any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
