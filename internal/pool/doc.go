// Package pool runs CPU-heavy, stateless stage work on a fixed-size set of
// background workers.
//
// Submit never blocks: excess tasks wait in an unbounded FIFO queue and are
// dispatched as workers free up. Each task carries its own timeout. A worker
// that fails to respond within the task's budget is discarded and replaced
// with a fresh one rather than returned to the pool, so effective capacity
// never stays below the configured size for more than one task cycle.
//
// The scheduler is mechanism only. It classifies failures (execution error,
// timeout) and surfaces them; recovery policy belongs to the fallback
// resolver and the orchestrator. QueueDepth exists so the orchestrator can
// apply admission control.
package pool
