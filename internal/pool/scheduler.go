package pool

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"gridsight/internal/faults"
	"gridsight/internal/logging"
)

// Scheduler owns the worker pool and the overflow queue.
type Scheduler struct {
	size           int
	defaultTimeout time.Duration
	logger         *slog.Logger

	mu         sync.Mutex
	queue      []*submission
	free       []*worker
	closed     bool
	nextWorker int64
}

type submission struct {
	pending *Pending
	ctx     context.Context
}

type worker struct {
	id    int64
	inbox chan assignment
}

type assignment struct {
	ctx     context.Context
	task    Task
	pending *Pending
	reply   chan outcome
}

type outcome struct {
	value any
	err   error
}

// New constructs a scheduler with size workers. defaultTimeout applies to
// tasks submitted without their own timeout.
func New(size int, defaultTimeout time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Scheduler{
		size:           size,
		defaultTimeout: defaultTimeout,
		logger:         logging.NewComponentLogger(logger, "scheduler"),
	}
	for i := 0; i < size; i++ {
		w := s.newWorker()
		s.free = append(s.free, w)
	}
	return s
}

func (s *Scheduler) newWorker() *worker {
	s.nextWorker++
	w := &worker{id: s.nextWorker, inbox: make(chan assignment)}
	go runWorker(w)
	return w
}

func runWorker(w *worker) {
	for a := range w.inbox {
		a.reply <- invoke(a.ctx, a.task)
	}
}

func invoke(ctx context.Context, task Task) (out outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = outcome{err: fmt.Errorf("panic: %v", r)}
		}
	}()
	value, err := task.Fn(ctx, task.Payload)
	return outcome{value: value, err: err}
}

// Submit enqueues a task. It never blocks; the returned Pending resolves or
// rejects asynchronously. ctx is the session context: cancelling it tells an
// in-flight task to abort cooperatively and rejects a still-queued one.
func (s *Scheduler) Submit(ctx context.Context, task Task) (*Pending, error) {
	if task.Fn == nil {
		return nil, faults.Wrap(faults.ErrExecution, "", "submit", "task func is required", nil)
	}
	if strings.TrimSpace(task.ID) == "" {
		task.ID = uuid.NewString()
	}
	if task.Timeout <= 0 {
		task.Timeout = s.defaultTimeout
	}
	if ctx == nil {
		ctx = context.Background()
	}

	pending := newPending(task)
	sub := &submission{pending: pending, ctx: ctx}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, faults.Wrap(faults.ErrUnavailable, "", "submit", "scheduler is closed", nil)
	}
	if n := len(s.free); n > 0 {
		w := s.free[n-1]
		s.free = s.free[:n-1]
		s.mu.Unlock()
		go s.supervise(w, sub)
		return pending, nil
	}
	s.queue = append(s.queue, sub)
	s.mu.Unlock()
	return pending, nil
}

// supervise dispatches one submission to one worker and enforces the task
// timeout. Exactly one of resolve/reject fires per pending.
func (s *Scheduler) supervise(w *worker, sub *submission) {
	task := sub.pending.task

	if err := sub.ctx.Err(); err != nil {
		sub.pending.reject(StatusFailed, faults.Wrap(faults.ErrCanceled, "", task.Kind, "canceled before dispatch", err))
		s.release(w)
		return
	}
	if !sub.pending.assign(w.id) {
		s.release(w)
		return
	}

	taskCtx, cancel := context.WithCancel(sub.ctx)
	defer cancel()

	reply := make(chan outcome, 1)
	w.inbox <- assignment{ctx: taskCtx, task: task, pending: sub.pending, reply: reply}

	timer := time.NewTimer(task.Timeout)
	defer timer.Stop()

	ctxDone := sub.ctx.Done()
	for {
		select {
		case out := <-reply:
			if out.err != nil {
				sub.pending.reject(StatusFailed, &ExecutionError{TaskID: task.ID, Kind: task.Kind, Err: out.err})
			} else {
				sub.pending.resolve(out.value)
			}
			s.release(w)
			return
		case <-timer.C:
			sub.pending.reject(StatusTimedOut, &TimeoutError{TaskID: task.ID, Kind: task.Kind, Timeout: task.Timeout})
			cancel()
			s.discardAndReplace(w, task)
			return
		case <-ctxDone:
			// Cooperative abort: tell the func to stop, then keep waiting
			// for its reply or the timeout. The worker is not killed here.
			cancel()
			ctxDone = nil
		}
	}
}

// release returns a worker to the pool, immediately dispatching the next
// queued submission if one is waiting.
func (s *Scheduler) release(w *worker) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(w.inbox)
		return
	}
	if len(s.queue) > 0 {
		sub := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()
		go s.supervise(w, sub)
		return
	}
	s.free = append(s.free, w)
	s.mu.Unlock()
}

// discardAndReplace drops a hung worker and spawns a fresh one so the pool
// returns to full capacity. The hung worker's goroutine exits on its own
// once the abandoned func returns; its late reply is discarded.
func (s *Scheduler) discardAndReplace(w *worker, task Task) {
	close(w.inbox)
	s.logger.Warn("worker discarded after task timeout",
		logging.Int64("worker_id", w.id),
		logging.String(logging.FieldTaskID, task.ID),
		logging.String("task_kind", task.Kind),
		logging.Duration("timeout", task.Timeout),
		logging.String(logging.FieldEventType, "worker_replaced"),
	)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	replacement := s.newWorker()
	s.mu.Unlock()
	s.release(replacement)
}

// QueueDepth reports how many submissions are waiting for a worker. The
// orchestrator uses this for admission control; the scheduler itself never
// refuses work.
func (s *Scheduler) QueueDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Capacity returns the configured pool size.
func (s *Scheduler) Capacity() int {
	return s.size
}

// Probe reports whether heavy-stage execution is available. The
// orchestrator routes imports straight to the manual path when it is not.
func (s *Scheduler) Probe() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return faults.Wrap(faults.ErrUnavailable, "", "probe", "scheduler is closed", nil)
	}
	if s.size <= 0 {
		return faults.Wrap(faults.ErrUnavailable, "", "probe", "no workers configured", nil)
	}
	return nil
}

// Close stops accepting work and rejects everything still queued. Busy
// workers finish or time out on their own.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	frees := s.free
	s.free = nil
	queued := s.queue
	s.queue = nil
	s.mu.Unlock()

	for _, w := range frees {
		close(w.inbox)
	}
	for _, sub := range queued {
		sub.pending.reject(StatusFailed, faults.Wrap(faults.ErrUnavailable, "", sub.pending.task.Kind, "scheduler closed", nil))
	}
}
