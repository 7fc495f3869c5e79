package pipeline

import (
	"context"

	"gridsight/internal/contract"
	"gridsight/internal/session"
)

// SubmitManualCrop accepts operator-provided crop bounds for a session
// waiting on manual input. The payload is validated against the manual
// crop contract before it is handed to the pipeline loop; a session in any
// other state rejects the submission.
func (o *Orchestrator) SubmitManualCrop(ctx context.Context, payload map[string]any) error {
	o.mu.Lock()
	sess := o.sess
	if sess == nil {
		o.mu.Unlock()
		return &session.InvalidTransitionError{From: session.StateIdle, To: session.StateMappingGrid}
	}
	state := sess.State
	ch := o.manualCh
	o.mu.Unlock()

	if state != session.StateAwaitingManualCrop {
		return &session.InvalidTransitionError{From: state, To: session.StateMappingGrid}
	}
	if err := o.contracts.Validate(contract.ManualCropV1, payload); err != nil {
		return err
	}
	select {
	case ch <- payload:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return &SessionBusyError{SessionID: sess.ID}
	}
}

// ApproveReview confirms a session sitting in review. A nil payload
// accepts the recognition result as-is; a non-nil payload replaces it
// after contract validation, which is how operator label corrections come
// back in.
func (o *Orchestrator) ApproveReview(ctx context.Context, payload map[string]any) error {
	o.mu.Lock()
	sess := o.sess
	if sess == nil {
		o.mu.Unlock()
		return &session.InvalidTransitionError{From: session.StateIdle, To: session.StateComplete}
	}
	state := sess.State
	ch := o.reviewCh
	o.mu.Unlock()

	if state != session.StateReviewing {
		return &session.InvalidTransitionError{From: state, To: session.StateComplete}
	}
	if payload != nil {
		if err := o.contracts.Validate(contract.RecognitionResultV1, payload); err != nil {
			return err
		}
	}
	select {
	case ch <- payload:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return &SessionBusyError{SessionID: sess.ID}
	}
}

// Cancel requests cooperative cancellation of the in-flight session. The
// pipeline loop observes it at the next checkpoint and in-flight tasks see
// their context canceled.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	sess := o.sess
	cancel := o.cancel
	o.mu.Unlock()
	if sess != nil {
		sess.Cancel()
	}
	if cancel != nil {
		cancel()
	}
}

// Wait blocks until the session reaches a terminal state or ctx ends.
func (o *Orchestrator) Wait(ctx context.Context) error {
	o.mu.Lock()
	done := o.done
	o.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot reports the current session, if any.
func (o *Orchestrator) Snapshot() (session.Snapshot, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sess == nil {
		return session.Snapshot{}, false
	}
	return o.sess.Snapshot(), true
}

// SessionID reports the in-flight session's identifier, if any.
func (o *Orchestrator) SessionID() (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sess == nil {
		return "", false
	}
	return o.sess.ID, true
}
