package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"gridsight/internal/config"
	"gridsight/internal/contract"
	"gridsight/internal/fallback"
	"gridsight/internal/logging"
	"gridsight/internal/pool"
	"gridsight/internal/session"
)

// StagesFactory builds a fresh stage set for one import. Stage
// implementations may carry per-import state (a decoded source image, a
// cached crop), so they are never shared across sessions.
type StagesFactory func(cfg *config.Config) Stages

// Manager fronts the orchestrator for the daemon and CLI. It owns the
// one-import-at-a-time policy and routes operator input to the session it
// belongs to.
type Manager struct {
	cfg       *config.Config
	sched     *pool.Scheduler
	contracts *contract.Registry
	resolver  *fallback.Resolver
	factory   StagesFactory
	logger    *slog.Logger
	observers []Observer

	mu      sync.Mutex
	current *Orchestrator
	closed  bool
}

// NewManager wires the pipeline together. Observers are passed through to
// every orchestrator the manager creates.
func NewManager(cfg *config.Config, sched *pool.Scheduler, contracts *contract.Registry, resolver *fallback.Resolver, factory StagesFactory, logger *slog.Logger, observers ...Observer) *Manager {
	return &Manager{
		cfg:       cfg,
		sched:     sched,
		contracts: contracts,
		resolver:  resolver,
		factory:   factory,
		logger:    logging.NewComponentLogger(logger, "manager"),
		observers: append([]Observer(nil), observers...),
	}
}

// StartImport begins a new import session. A session already in flight
// rejects the request with a SessionBusyError.
func (m *Manager) StartImport(ctx context.Context, raw map[string]any) (session.Snapshot, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return session.Snapshot{}, ErrManagerClosed
	}
	if m.current != nil {
		if snap, ok := m.current.Snapshot(); ok && !snap.State.Terminal() {
			m.mu.Unlock()
			return session.Snapshot{}, &SessionBusyError{SessionID: snap.ID}
		}
	}
	orch, err := New(m.cfg, m.sched, m.contracts, m.resolver, m.factory(m.cfg), m.logger, m.observers...)
	if err != nil {
		m.mu.Unlock()
		return session.Snapshot{}, err
	}
	m.current = orch
	m.mu.Unlock()

	return orch.StartImport(ctx, raw)
}

// SubmitManualCrop forwards crop bounds to the named session.
func (m *Manager) SubmitManualCrop(ctx context.Context, sessionID string, payload map[string]any) error {
	orch, err := m.lookup(sessionID)
	if err != nil {
		return err
	}
	return orch.SubmitManualCrop(ctx, payload)
}

// ApproveReview confirms the named session's review.
func (m *Manager) ApproveReview(ctx context.Context, sessionID string, payload map[string]any) error {
	orch, err := m.lookup(sessionID)
	if err != nil {
		return err
	}
	return orch.ApproveReview(ctx, payload)
}

// CancelSession requests cancellation of the named session.
func (m *Manager) CancelSession(sessionID string) error {
	orch, err := m.lookup(sessionID)
	if err != nil {
		return err
	}
	orch.Cancel()
	return nil
}

// Current reports the most recent session, if any.
func (m *Manager) Current() (session.Snapshot, bool) {
	m.mu.Lock()
	orch := m.current
	m.mu.Unlock()
	if orch == nil {
		return session.Snapshot{}, false
	}
	return orch.Snapshot()
}

// Get reports the named session's snapshot when it is the one the manager
// is tracking. History beyond that lives in the journal.
func (m *Manager) Get(sessionID string) (session.Snapshot, bool) {
	m.mu.Lock()
	orch := m.current
	m.mu.Unlock()
	if orch == nil {
		return session.Snapshot{}, false
	}
	snap, ok := orch.Snapshot()
	if !ok || snap.ID != sessionID {
		return session.Snapshot{}, false
	}
	return snap, true
}

// Wait blocks until the current session finishes or ctx ends. It returns
// immediately when nothing is running.
func (m *Manager) Wait(ctx context.Context) error {
	m.mu.Lock()
	orch := m.current
	m.mu.Unlock()
	if orch == nil {
		return nil
	}
	return orch.Wait(ctx)
}

// QueueDepth reports the scheduler backlog for status endpoints.
func (m *Manager) QueueDepth() int {
	return m.sched.QueueDepth()
}

// Close cancels the in-flight session, if any, and waits for it to settle.
// The manager accepts no new imports afterwards.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	orch := m.current
	m.mu.Unlock()

	if orch == nil {
		return nil
	}
	orch.Cancel()
	return orch.Wait(ctx)
}

func (m *Manager) lookup(sessionID string) (*Orchestrator, error) {
	m.mu.Lock()
	orch := m.current
	m.mu.Unlock()
	if orch == nil {
		return nil, ErrUnknownSession
	}
	if id, ok := orch.SessionID(); !ok || id != sessionID {
		return nil, ErrUnknownSession
	}
	return orch, nil
}
