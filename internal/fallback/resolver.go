package fallback

// OutcomeKind enumerates the recovery intents a strategy can return.
type OutcomeKind string

const (
	// OutcomeRetry re-runs the failed stage with unchanged parameters.
	OutcomeRetry OutcomeKind = "retry"
	// OutcomeDegrade re-runs the failed stage with adjusted parameters.
	OutcomeDegrade OutcomeKind = "degrade"
	// OutcomeManual hands the session to the manual-intervention path.
	OutcomeManual OutcomeKind = "manual"
	// OutcomeAbort ends the session in the error state.
	OutcomeAbort OutcomeKind = "abort"
)

// Outcome is the recovery intent selected for a failure. Only the
// orchestrator applies it to session state.
type Outcome struct {
	Kind OutcomeKind
	// Params carries adjusted stage parameters for degrade-and-retry.
	Params map[string]any
	// Hint optionally pre-populates the manual UI, e.g. the low-confidence
	// bounds an automatic stage produced before being rejected.
	Hint map[string]any
	// Reason is a human-readable explanation recorded with the decision.
	Reason string
}

// Context describes one stage failure for strategy matching.
type Context struct {
	Stage string
	// Err is the stage failure, nil when the trigger was low confidence.
	Err error
	// LowConfidence marks a stage that succeeded below its threshold.
	LowConfidence bool
	// Confidence is the score the stage reported, when LowConfidence.
	Confidence float64
	// Threshold is the stage's configured minimum, when LowConfidence.
	Threshold float64
	// Result is the under-threshold payload, usable as a manual hint.
	Result map[string]any
	// Attempts counts how many times this stage has run so far.
	Attempts int
}

// Strategy pairs a trigger predicate with a recovery action.
type Strategy struct {
	ID      string
	Matches func(Context) bool
	Recover func(Context) Outcome
}

// Resolver evaluates strategies in registration order.
type Resolver struct {
	strategies []Strategy
}

// NewResolver copies the strategy table so it cannot change after
// construction.
func NewResolver(strategies ...Strategy) *Resolver {
	cp := make([]Strategy, len(strategies))
	copy(cp, strategies)
	return &Resolver{strategies: cp}
}

// Resolve returns the first matching strategy's outcome. When nothing
// matches, the implicit outcome is abort.
func (r *Resolver) Resolve(fc Context) Outcome {
	for _, strategy := range r.strategies {
		if strategy.Matches == nil || strategy.Recover == nil {
			continue
		}
		if strategy.Matches(fc) {
			return strategy.Recover(fc)
		}
	}
	reason := "no fallback strategy matched"
	if fc.Err != nil {
		reason = fc.Err.Error()
	}
	return Outcome{Kind: OutcomeAbort, Reason: reason}
}
