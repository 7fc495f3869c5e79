package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateGrid(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.Workers < 0 {
		return errors.New("pipeline.workers must not be negative")
	}
	if c.Pipeline.QueueAdmissionLimit < 0 {
		return errors.New("pipeline.queue_admission_limit must not be negative")
	}
	if c.Pipeline.SessionTimeout <= 0 {
		return errors.New("pipeline.session_timeout must be positive")
	}
	if c.Pipeline.StageTimeout <= 0 {
		return errors.New("pipeline.stage_timeout must be positive")
	}
	if c.Pipeline.StageTimeout >= c.Pipeline.SessionTimeout {
		return errors.New("pipeline.stage_timeout must be less than pipeline.session_timeout")
	}
	if c.Pipeline.MaxStageRetries < 0 {
		return errors.New("pipeline.max_stage_retries must not be negative")
	}
	for name, value := range map[string]float64{
		"pipeline.roi_confidence_threshold":         c.Pipeline.ROIConfidenceThreshold,
		"pipeline.extraction_integrity_threshold":   c.Pipeline.ExtractionIntegrityThreshold,
		"pipeline.recognition_confidence_threshold": c.Pipeline.RecognitionConfidenceThreshold,
	} {
		if value < 0 || value > 1 {
			return fmt.Errorf("%s must be between 0 and 1", name)
		}
	}
	return nil
}

func (c *Config) validateGrid() error {
	if c.Grid.Rows <= 0 || c.Grid.Rows > 32 {
		return errors.New("grid.rows must be between 1 and 32")
	}
	if c.Grid.Cols <= 0 || c.Grid.Cols > 32 {
		return errors.New("grid.cols must be between 1 and 32")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
