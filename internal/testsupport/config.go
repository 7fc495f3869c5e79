package testsupport

import (
	"path/filepath"
	"testing"

	"gridsight/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test
// and timeouts short enough for test runs. It applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Pipeline.SessionTimeout = 30
	cfg.Pipeline.StageTimeout = 5

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithWorkers sets the scheduler pool size on the test config.
func WithWorkers(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Pipeline.Workers = n
	}
}

// WithAutoAccept toggles review skipping on the test config.
func WithAutoAccept(enabled bool) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Pipeline.AutoAccept = enabled
	}
}

// WithSessionTimeout overrides the whole-session budget in seconds.
func WithSessionTimeout(seconds int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Pipeline.SessionTimeout = seconds
	}
}

// WithStageTimeout overrides the per-task timeout in seconds.
func WithStageTimeout(seconds int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Pipeline.StageTimeout = seconds
	}
}

// WithGrid overrides the expected board geometry.
func WithGrid(rows, cols int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Grid.Rows = rows
		cfg.Grid.Cols = cols
	}
}

// WithThresholds sets all three confidence gates at once.
func WithThresholds(roi, extraction, recognition float64) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Pipeline.ROIConfidenceThreshold = roi
		cfg.Pipeline.ExtractionIntegrityThreshold = extraction
		cfg.Pipeline.RecognitionConfidenceThreshold = recognition
	}
}
