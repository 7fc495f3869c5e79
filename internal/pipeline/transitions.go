package pipeline

import (
	"time"

	"gridsight/internal/logging"
	"gridsight/internal/session"
)

// transitionTo applies a state transition through the session's adjacency
// rules and notifies observers synchronously, outside the lock, in the
// order they were registered. When stage is non-empty the payload is also
// merged into the session's stage data; hints riding along with a manual
// handoff pass stage == "" so they never contaminate stage data.
func (o *Orchestrator) transitionTo(to session.State, stage string, payload map[string]any) error {
	o.mu.Lock()
	sess := o.sess
	from := sess.State
	if err := sess.Apply(to, stage, payload); err != nil {
		o.mu.Unlock()
		return err
	}
	change := Change{
		SessionID: sess.ID,
		From:      from,
		To:        to,
		Stage:     stage,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
		Snapshot:  sess.Snapshot(),
	}
	o.mu.Unlock()

	o.logger.Info("session state changed",
		logging.String(logging.FieldSessionID, change.SessionID),
		logging.String("from", string(from)),
		logging.String(logging.FieldState, string(to)),
		logging.String(logging.FieldStage, stage),
	)
	o.notify(change)
	return nil
}

// switchToManual hands the session to the manual crop path. The hint is
// surfaced to observers only; stage data stays untouched.
func (o *Orchestrator) switchToManual(hint map[string]any) error {
	o.mu.Lock()
	sess := o.sess
	from := sess.State
	if err := sess.Apply(session.StateAwaitingManualCrop, "", nil); err != nil {
		o.mu.Unlock()
		return err
	}
	change := Change{
		SessionID: sess.ID,
		From:      from,
		To:        session.StateAwaitingManualCrop,
		Payload:   hint,
		Timestamp: time.Now().UTC(),
		Snapshot:  sess.Snapshot(),
	}
	o.mu.Unlock()

	o.logger.Info("session handed to manual crop",
		logging.String(logging.FieldSessionID, change.SessionID),
		logging.String("from", string(from)),
		logging.String(logging.FieldState, string(session.StateAwaitingManualCrop)),
	)
	o.notify(change)
	return nil
}

// failSession moves the session to the error state with a reason. It is a
// no-op when the session is already terminal, so a late failure never
// clobbers a completed session.
func (o *Orchestrator) failSession(reason string) {
	o.mu.Lock()
	sess := o.sess
	if sess == nil {
		o.mu.Unlock()
		return
	}
	from := sess.State
	if !sess.ForceError(reason) {
		o.mu.Unlock()
		return
	}
	change := Change{
		SessionID: sess.ID,
		From:      from,
		To:        session.StateError,
		Timestamp: time.Now().UTC(),
		Snapshot:  sess.Snapshot(),
	}
	o.mu.Unlock()

	o.logger.Error("session failed",
		logging.String(logging.FieldSessionID, change.SessionID),
		logging.String("from", string(from)),
		logging.String("reason", reason),
	)
	o.notify(change)
}

func (o *Orchestrator) notify(change Change) {
	for _, obs := range o.observers {
		obs.StateChanged(change)
	}
}
