package config

const (
	defaultDataDir              = "~/.local/share/gridsight"
	defaultLogDir               = "~/.local/share/gridsight/logs"
	defaultAPIBind              = "127.0.0.1:7319"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultWorkers              = 2
	defaultQueueAdmissionLimit  = 16
	defaultSessionTimeout       = 120
	defaultStageTimeout         = 20
	defaultMaxStageRetries      = 2
	defaultGridRows             = 5
	defaultGridCols             = 7
	defaultROIThreshold         = 0.70
	defaultExtractionThreshold  = 0.75
	defaultRecognitionThreshold = 0.85
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Pipeline: Pipeline{
			Workers:                        defaultWorkers,
			QueueAdmissionLimit:            defaultQueueAdmissionLimit,
			SessionTimeout:                 defaultSessionTimeout,
			StageTimeout:                   defaultStageTimeout,
			MaxStageRetries:                defaultMaxStageRetries,
			AutoAccept:                     false,
			ROIConfidenceThreshold:         defaultROIThreshold,
			ExtractionIntegrityThreshold:   defaultExtractionThreshold,
			RecognitionConfidenceThreshold: defaultRecognitionThreshold,
		},
		Grid: Grid{
			Rows: defaultGridRows,
			Cols: defaultGridCols,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
