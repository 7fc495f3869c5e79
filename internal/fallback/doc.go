// Package fallback selects a recovery action for a failed or
// under-performing pipeline stage.
//
// Strategies are an ordered, immutable table built at startup and injected
// into the resolver; the first strategy whose predicate matches the failure
// wins, and no match means abort. Strategies are pure with respect to the
// session: they return an intent, and only the orchestrator applies it.
package fallback
