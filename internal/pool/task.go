package pool

import (
	"context"
	"sync"
	"time"
)

// Status is the lifecycle of a scheduled task. Transitions only move
// forward: queued -> running -> {done | failed | timed_out}.
type Status string

const (
	StatusQueued   Status = "queued"
	StatusRunning  Status = "running"
	StatusDone     Status = "done"
	StatusFailed   Status = "failed"
	StatusTimedOut Status = "timed_out"
)

var statusRank = map[Status]int{
	StatusQueued:   0,
	StatusRunning:  1,
	StatusDone:     2,
	StatusFailed:   2,
	StatusTimedOut: 2,
}

func (s Status) Terminal() bool {
	return statusRank[s] >= 2
}

// TaskFunc is the unit of work a worker executes. It must honor ctx
// cancellation; a hung func is abandoned together with its worker.
type TaskFunc func(ctx context.Context, payload any) (any, error)

// Task describes one unit of work submitted to the scheduler.
type Task struct {
	ID      string
	Kind    string
	Payload any
	Timeout time.Duration
	Fn      TaskFunc
}

// Pending is the caller's handle on a submitted task.
type Pending struct {
	task Task

	mu       sync.Mutex
	status   Status
	value    any
	err      error
	workerID int64

	done chan struct{}
}

func newPending(task Task) *Pending {
	return &Pending{task: task, status: StatusQueued, done: make(chan struct{}), workerID: -1}
}

// Wait blocks until the task reaches a terminal status or ctx is done.
func (p *Pending) Wait(ctx context.Context) (any, error) {
	select {
	case <-p.done:
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.value, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Status returns the task's current lifecycle status.
func (p *Pending) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// WorkerID identifies the worker that executed (or was executing) the task.
// It is -1 while the task is still queued.
func (p *Pending) WorkerID() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.workerID
}

// advance moves the status forward. Backward or duplicate-terminal moves are
// ignored, which is what makes a late result from an abandoned worker
// harmless.
func (p *Pending) advance(to Status) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if statusRank[to] <= statusRank[p.status] {
		return false
	}
	p.status = to
	return true
}

func (p *Pending) assign(workerID int64) bool {
	p.mu.Lock()
	if statusRank[StatusRunning] <= statusRank[p.status] {
		p.mu.Unlock()
		return false
	}
	p.status = StatusRunning
	p.workerID = workerID
	p.mu.Unlock()
	return true
}

func (p *Pending) resolve(value any) bool {
	p.mu.Lock()
	if p.status.Terminal() {
		p.mu.Unlock()
		return false
	}
	p.status = StatusDone
	p.value = value
	p.mu.Unlock()
	close(p.done)
	return true
}

func (p *Pending) reject(status Status, err error) bool {
	p.mu.Lock()
	if p.status.Terminal() {
		p.mu.Unlock()
		return false
	}
	p.status = status
	p.err = err
	p.mu.Unlock()
	close(p.done)
	return true
}
