package journal

import "time"

// Transition is the unit the pipeline hands the journal on every state
// change.
type Transition struct {
	SessionID  string
	SourcePath string
	From       string
	To         string
	Stage      string
	Payload    map[string]any
	ErrorMsg   string
	StartedAt  time.Time
	DeadlineAt time.Time
	At         time.Time
}

// SessionRecord is a journaled session row.
type SessionRecord struct {
	ID         string
	SourcePath string
	State      string
	ErrorMsg   string
	StartedAt  time.Time
	DeadlineAt time.Time
	UpdatedAt  time.Time
}

// TransitionRecord is one journaled state change.
type TransitionRecord struct {
	From    string
	To      string
	Stage   string
	Payload map[string]any
	At      time.Time
}
