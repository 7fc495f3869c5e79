package fallback

import (
	"fmt"

	"gridsight/internal/faults"
)

// DefaultStrategies builds the standard recovery table. Order matters:
// fatal classifications first, then the low-confidence and contract paths
// that always end in manual intervention, then the bounded retry/degrade
// ladder for transient worker failures.
func DefaultStrategies(maxRetries int) []Strategy {
	return []Strategy{
		{
			ID: "fatal-abort",
			Matches: func(fc Context) bool {
				return fc.Err != nil && faults.Fatal(fc.Err)
			},
			Recover: func(fc Context) Outcome {
				return Outcome{Kind: OutcomeAbort, Reason: fc.Err.Error()}
			},
		},
		{
			ID: "low-confidence-manual",
			Matches: func(fc Context) bool {
				return fc.LowConfidence
			},
			Recover: func(fc Context) Outcome {
				return Outcome{
					Kind: OutcomeManual,
					Hint: fc.Result,
					Reason: fmt.Sprintf("%s confidence %.2f below threshold %.2f",
						fc.Stage, fc.Confidence, fc.Threshold),
				}
			},
		},
		{
			ID: "contract-manual",
			Matches: func(fc Context) bool {
				return faults.Classify(fc.Err) == faults.KindContract
			},
			Recover: func(fc Context) Outcome {
				return Outcome{Kind: OutcomeManual, Reason: fc.Err.Error()}
			},
		},
		{
			ID: "timeout-degrade",
			Matches: func(fc Context) bool {
				return faults.Classify(fc.Err) == faults.KindTimeout && fc.Attempts <= maxRetries
			},
			Recover: func(fc Context) Outcome {
				// Halve the working resolution for every extra attempt so a
				// slow detection pass gets progressively cheaper.
				return Outcome{
					Kind:   OutcomeDegrade,
					Params: map[string]any{"downscale": float64(uint(1) << uint(fc.Attempts))},
					Reason: fmt.Sprintf("%s timed out, retrying at reduced quality", fc.Stage),
				}
			},
		},
		{
			ID: "timeout-manual",
			Matches: func(fc Context) bool {
				return faults.Classify(fc.Err) == faults.KindTimeout
			},
			Recover: func(fc Context) Outcome {
				return Outcome{Kind: OutcomeManual, Reason: fc.Err.Error()}
			},
		},
		{
			ID: "execution-retry",
			Matches: func(fc Context) bool {
				return faults.Classify(fc.Err) == faults.KindExecution && fc.Attempts <= maxRetries
			},
			Recover: func(fc Context) Outcome {
				return Outcome{Kind: OutcomeRetry, Reason: fmt.Sprintf("%s failed, retrying", fc.Stage)}
			},
		},
		{
			ID: "execution-manual",
			Matches: func(fc Context) bool {
				return faults.Classify(fc.Err) == faults.KindExecution
			},
			Recover: func(fc Context) Outcome {
				return Outcome{Kind: OutcomeManual, Reason: fc.Err.Error()}
			},
		},
	}
}
