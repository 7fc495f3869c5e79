package pipeline

import (
	"time"

	"gridsight/internal/session"
)

// Change describes one state transition. Observers receive it synchronously
// with the transition and must treat every field as read-only.
type Change struct {
	SessionID string
	From      session.State
	To        session.State
	// Stage names the pipeline stage whose payload accompanied the
	// transition, empty for transitions that carry none.
	Stage string
	// Payload is the data merged into the session by this transition, or a
	// manual-path hint. Never the live session map.
	Payload   map[string]any
	Timestamp time.Time
	// Snapshot is the full post-transition session view.
	Snapshot session.Snapshot
}

// Observer subscribes to session state changes. Implementations must not
// block for long and must never try to mutate the session.
type Observer interface {
	StateChanged(Change)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Change)

func (f ObserverFunc) StateChanged(change Change) { f(change) }
