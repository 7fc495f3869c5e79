// Package pipeline drives one import session through its processing stages.
//
// The Orchestrator owns the session state machine: it validates every stage
// handoff against the contract registry, delegates CPU-heavy stages to the
// scheduler pool, compares confidence scores against per-stage thresholds,
// and consults the fallback resolver when a stage fails or under-performs.
// It is the single writer of session state; external collaborators receive
// read-only snapshots through synchronous state-change notifications.
//
// A Manager multiplexes independent orchestrators over the shared scheduler
// for daemon use and applies queue-depth admission control. Within one
// session stage execution is strictly sequential; across sessions there is
// no ordering guarantee and none is needed.
package pipeline
