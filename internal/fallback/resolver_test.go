package fallback

import (
	"errors"
	"strings"
	"testing"

	"gridsight/internal/faults"
)

func TestResolveFirstMatchWins(t *testing.T) {
	resolver := NewResolver(
		Strategy{
			ID:      "first",
			Matches: func(Context) bool { return true },
			Recover: func(Context) Outcome { return Outcome{Kind: OutcomeRetry, Reason: "first"} },
		},
		Strategy{
			ID:      "second",
			Matches: func(Context) bool { return true },
			Recover: func(Context) Outcome { return Outcome{Kind: OutcomeAbort, Reason: "second"} },
		},
	)

	outcome := resolver.Resolve(Context{Stage: "roi_detection"})
	if outcome.Kind != OutcomeRetry || outcome.Reason != "first" {
		t.Fatalf("expected first strategy to win, got %+v", outcome)
	}
}

func TestResolveSkipsNonMatching(t *testing.T) {
	resolver := NewResolver(
		Strategy{
			ID:      "never",
			Matches: func(Context) bool { return false },
			Recover: func(Context) Outcome { return Outcome{Kind: OutcomeAbort} },
		},
		Strategy{
			ID:      "timeout",
			Matches: func(fc Context) bool { return errors.Is(fc.Err, faults.ErrTimeout) },
			Recover: func(Context) Outcome { return Outcome{Kind: OutcomeDegrade} },
		},
	)

	err := faults.Wrap(faults.ErrTimeout, "roi_detection", "execute", "slow", nil)
	if outcome := resolver.Resolve(Context{Err: err}); outcome.Kind != OutcomeDegrade {
		t.Fatalf("expected degrade, got %+v", outcome)
	}
}

func TestResolveNoMatchAborts(t *testing.T) {
	resolver := NewResolver()

	boom := errors.New("unclassified failure")
	outcome := resolver.Resolve(Context{Err: boom})
	if outcome.Kind != OutcomeAbort {
		t.Fatalf("expected abort, got %s", outcome.Kind)
	}
	if outcome.Reason != boom.Error() {
		t.Fatalf("expected the failure text as reason, got %q", outcome.Reason)
	}

	if outcome := resolver.Resolve(Context{}); outcome.Reason != "no fallback strategy matched" {
		t.Fatalf("unexpected reason for empty context: %q", outcome.Reason)
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	resolver := NewResolver(DefaultStrategies(2)...)
	fc := Context{
		Stage:         "recognition",
		LowConfidence: true,
		Confidence:    0.4,
		Threshold:     0.85,
		Attempts:      1,
	}

	first := resolver.Resolve(fc)
	second := resolver.Resolve(fc)
	if first.Kind != second.Kind || first.Reason != second.Reason {
		t.Fatalf("same context resolved differently: %+v vs %+v", first, second)
	}
}

func TestDefaultStrategiesFatalAborts(t *testing.T) {
	resolver := NewResolver(DefaultStrategies(2)...)

	err := faults.Wrap(faults.ErrDeadline, "", "session", "budget exhausted", nil)
	outcome := resolver.Resolve(Context{Err: err})
	if outcome.Kind != OutcomeAbort {
		t.Fatalf("expected abort for fatal error, got %s", outcome.Kind)
	}
}

func TestDefaultStrategiesLowConfidenceGoesManualWithHint(t *testing.T) {
	resolver := NewResolver(DefaultStrategies(2)...)

	hint := map[string]any{"bounds": map[string]any{"x": 10}}
	outcome := resolver.Resolve(Context{
		Stage:         "roi_detection",
		LowConfidence: true,
		Confidence:    0.40,
		Threshold:     0.70,
		Result:        hint,
		Attempts:      1,
	})
	if outcome.Kind != OutcomeManual {
		t.Fatalf("expected manual, got %s", outcome.Kind)
	}
	if outcome.Hint == nil {
		t.Fatal("expected the under-threshold result as hint")
	}
	if !strings.Contains(outcome.Reason, "0.40") || !strings.Contains(outcome.Reason, "0.70") {
		t.Fatalf("expected score and threshold in reason, got %q", outcome.Reason)
	}
}

func TestDefaultStrategiesContractGoesManual(t *testing.T) {
	resolver := NewResolver(DefaultStrategies(2)...)

	err := faults.Wrap(faults.ErrContract, "roi_detection", "validate", "missing field", nil)
	if outcome := resolver.Resolve(Context{Err: err, Attempts: 1}); outcome.Kind != OutcomeManual {
		t.Fatalf("expected manual for contract violation, got %s", outcome.Kind)
	}
}

func TestDefaultStrategiesTimeoutLadder(t *testing.T) {
	resolver := NewResolver(DefaultStrategies(2)...)
	err := faults.Wrap(faults.ErrTimeout, "roi_detection", "execute", "hung", nil)

	first := resolver.Resolve(Context{Err: err, Attempts: 1})
	if first.Kind != OutcomeDegrade {
		t.Fatalf("expected degrade on first timeout, got %s", first.Kind)
	}
	if downscale, ok := first.Params["downscale"].(float64); !ok || downscale != 2 {
		t.Fatalf("expected downscale 2, got %v", first.Params["downscale"])
	}

	second := resolver.Resolve(Context{Err: err, Attempts: 2})
	if downscale := second.Params["downscale"].(float64); downscale != 4 {
		t.Fatalf("expected downscale 4 on second attempt, got %v", downscale)
	}

	exhausted := resolver.Resolve(Context{Err: err, Attempts: 3})
	if exhausted.Kind != OutcomeManual {
		t.Fatalf("expected manual after retries exhausted, got %s", exhausted.Kind)
	}
}

func TestDefaultStrategiesExecutionLadder(t *testing.T) {
	resolver := NewResolver(DefaultStrategies(1)...)
	err := faults.Wrap(faults.ErrExecution, "recognition", "execute", "transient", nil)

	if outcome := resolver.Resolve(Context{Err: err, Attempts: 1}); outcome.Kind != OutcomeRetry {
		t.Fatalf("expected retry, got %s", outcome.Kind)
	}
	if outcome := resolver.Resolve(Context{Err: err, Attempts: 2}); outcome.Kind != OutcomeManual {
		t.Fatalf("expected manual after retries exhausted, got %s", outcome.Kind)
	}
}
