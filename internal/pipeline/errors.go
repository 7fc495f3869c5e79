package pipeline

import (
	"errors"
	"fmt"

	"gridsight/internal/faults"
)

// ErrUnknownSession reports an operation aimed at a session the manager is
// not tracking.
var ErrUnknownSession = errors.New("unknown session")

// ErrManagerClosed reports an import attempted after shutdown began.
var ErrManagerClosed = errors.New("pipeline manager closed")

// SessionBusyError reports a StartImport while a session is already in
// flight on this orchestrator.
type SessionBusyError struct {
	SessionID string
}

func (e *SessionBusyError) Error() string {
	return fmt.Sprintf("import session %s already in progress", e.SessionID)
}

func (e *SessionBusyError) Unwrap() error { return faults.ErrBusy }

// AdmissionError reports a StartImport declined because the scheduler queue
// is too deep. Policy lives here, not in the scheduler.
type AdmissionError struct {
	QueueDepth int
	Limit      int
}

func (e *AdmissionError) Error() string {
	return fmt.Sprintf("import declined: scheduler queue depth %d exceeds limit %d", e.QueueDepth, e.Limit)
}

func (e *AdmissionError) Unwrap() error { return faults.ErrBusy }
