package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"gridsight/internal/config"
	"gridsight/internal/journal"
	"gridsight/internal/logging"
	"gridsight/internal/pipeline"
	"gridsight/internal/pool"
)

// Daemon coordinates the import pipeline and enforces single-instance
// execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *journal.Store
	manager *pipeline.Manager
	sched   *pool.Scheduler

	lockPath string
	lock     *flock.Flock

	api *apiServer

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Workers      int
	QueueDepth   int
	JournalPath  string
	LockFilePath string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *journal.Store, sched *pool.Scheduler, manager *pipeline.Manager, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || sched == nil || manager == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, scheduler, manager, and logger")
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "gridsightd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		manager:  manager,
		sched:    sched,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	api, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

// Start acquires the daemon lock and brings the API up.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another gridsight daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	if d.api != nil {
		if err := d.api.start(runCtx); err != nil {
			_ = d.lock.Unlock()
			cancel()
			d.cancel = nil
			return err
		}
	}

	d.running.Store(true)
	d.logger.Info("gridsight daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop shuts the API down, cancels any in-flight session, and releases the
// daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.api != nil {
		d.api.stop()
	}
	closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	if err := d.manager.Close(closeCtx); err != nil {
		d.logger.Warn("pipeline shutdown incomplete", logging.Error(err))
	}
	cancel()
	d.sched.Close()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("gridsight daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// Status reports the daemon's runtime state.
func (d *Daemon) Status() Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Workers:      d.sched.Capacity(),
		QueueDepth:   d.sched.QueueDepth(),
		JournalPath:  d.store.Path(),
		LockFilePath: d.lockPath,
	}
	return status
}

// Manager exposes the pipeline manager for the API handlers.
func (d *Daemon) Manager() *pipeline.Manager { return d.manager }

// Journal exposes the session journal for the API handlers.
func (d *Daemon) Journal() *journal.Store { return d.store }
