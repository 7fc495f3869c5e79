package session

import (
	"fmt"
	"sync/atomic"
	"time"

	"gridsight/internal/faults"
)

// InvalidTransitionError reports a transition outside the adjacency table.
// It is a logic error, never retried, and leaves the session state
// unchanged.
type InvalidTransitionError struct {
	From State
	To   State
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition %s -> %s", e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error { return faults.ErrTransition }

// StageEntry is one validated stage payload. Entry order is pipeline order.
type StageEntry struct {
	Stage   string
	Payload map[string]any
}

// Session is the root entity for one import attempt. It is not safe for
// concurrent use; the owning orchestrator serializes all access.
type Session struct {
	ID         string
	State      State
	SourcePath string
	StartedAt  time.Time
	DeadlineAt time.Time
	ErrorMsg   string

	entries []StageEntry
	index   map[string]int

	canceled atomic.Bool
}

// New creates an idle session with the given deadline budget.
func New(id, sourcePath string, now time.Time, budget time.Duration) *Session {
	return &Session{
		ID:         id,
		State:      StateIdle,
		SourcePath: sourcePath,
		StartedAt:  now,
		DeadlineAt: now.Add(budget),
		index:      make(map[string]int),
	}
}

// Cancel flips the cooperative cancellation flag. In-flight work observes it
// at the next checkpoint; nothing is forcibly killed.
func (s *Session) Cancel() {
	s.canceled.Store(true)
}

// Canceled reports whether cancellation has been requested.
func (s *Session) Canceled() bool {
	return s.canceled.Load()
}

// Apply atomically advances the state and merges a validated payload into
// the stage data. The transition is rejected, with state and stage data
// untouched, when to is not in the current state's allowed-successor set.
func (s *Session) Apply(to State, stage string, payload map[string]any) error {
	if !CanTransition(s.State, to) {
		return &InvalidTransitionError{From: s.State, To: to}
	}
	s.State = to
	if stage != "" && payload != nil {
		s.setStage(stage, payload)
	}
	return nil
}

// ForceError moves a non-terminal session to the error state regardless of
// adjacency. Used for deadline exhaustion and cancellation, which must end
// the session from any point.
func (s *Session) ForceError(reason string) bool {
	if s.State.Terminal() {
		return false
	}
	s.State = StateError
	s.ErrorMsg = reason
	return true
}

func (s *Session) setStage(stage string, payload map[string]any) {
	if i, ok := s.index[stage]; ok {
		s.entries[i].Payload = payload
		return
	}
	s.index[stage] = len(s.entries)
	s.entries = append(s.entries, StageEntry{Stage: stage, Payload: payload})
}

// StagePayload returns the validated payload recorded for a stage.
func (s *Session) StagePayload(stage string) (map[string]any, bool) {
	i, ok := s.index[stage]
	if !ok {
		return nil, false
	}
	return s.entries[i].Payload, true
}

// Stages returns the recorded stage entries in pipeline order.
func (s *Session) Stages() []StageEntry {
	cp := make([]StageEntry, len(s.entries))
	copy(cp, s.entries)
	return cp
}

// Snapshot is the read-only view handed to observers and external
// collaborators. It never aliases the live session's mutable state.
type Snapshot struct {
	ID         string
	State      State
	SourcePath string
	StartedAt  time.Time
	DeadlineAt time.Time
	ErrorMsg   string
	Stages     []StageEntry
	Canceled   bool
}

// Snapshot copies the session's observable state.
func (s *Session) Snapshot() Snapshot {
	stages := make([]StageEntry, len(s.entries))
	for i, entry := range s.entries {
		stages[i] = StageEntry{Stage: entry.Stage, Payload: copyPayload(entry.Payload)}
	}
	return Snapshot{
		ID:         s.ID,
		State:      s.State,
		SourcePath: s.SourcePath,
		StartedAt:  s.StartedAt,
		DeadlineAt: s.DeadlineAt,
		ErrorMsg:   s.ErrorMsg,
		Stages:     stages,
		Canceled:   s.Canceled(),
	}
}

func copyPayload(payload map[string]any) map[string]any {
	if payload == nil {
		return nil
	}
	cp := make(map[string]any, len(payload))
	for k, v := range payload {
		cp[k] = v
	}
	return cp
}
