package pool

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gridsight/internal/faults"
)

func TestSubmitResolvesValue(t *testing.T) {
	s := New(2, time.Second, nil)
	defer s.Close()

	pending, err := s.Submit(context.Background(), Task{
		Kind: "echo",
		Fn: func(ctx context.Context, payload any) (any, error) {
			return "ok", nil
		},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	value, err := pending.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if value != "ok" {
		t.Fatalf("expected ok, got %v", value)
	}
	if status := pending.Status(); status != StatusDone {
		t.Fatalf("expected done, got %s", status)
	}
	if pending.WorkerID() < 0 {
		t.Fatal("expected an assigned worker id")
	}
}

func TestSubmitWrapsExecutionError(t *testing.T) {
	s := New(1, time.Second, nil)
	defer s.Close()

	boom := errors.New("boom")
	pending, err := s.Submit(context.Background(), Task{
		Kind: "fail",
		Fn: func(ctx context.Context, payload any) (any, error) {
			return nil, boom
		},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	_, waitErr := pending.Wait(context.Background())
	if waitErr == nil {
		t.Fatal("expected error")
	}
	var execErr *ExecutionError
	if !errors.As(waitErr, &execErr) {
		t.Fatalf("expected ExecutionError, got %T", waitErr)
	}
	if !errors.Is(waitErr, faults.ErrExecution) {
		t.Fatal("expected the execution sentinel")
	}
	if !errors.Is(waitErr, boom) {
		t.Fatal("expected the cause to survive wrapping")
	}
	if status := pending.Status(); status != StatusFailed {
		t.Fatalf("expected failed, got %s", status)
	}
}

func TestSubmitRecoversPanic(t *testing.T) {
	s := New(1, time.Second, nil)
	defer s.Close()

	pending, err := s.Submit(context.Background(), Task{
		Kind: "panic",
		Fn: func(ctx context.Context, payload any) (any, error) {
			panic("kaboom")
		},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if _, waitErr := pending.Wait(context.Background()); waitErr == nil {
		t.Fatal("expected panic to surface as an error")
	}
}

func TestTimeoutDiscardsWorkerAndReplacesIt(t *testing.T) {
	s := New(1, time.Second, nil)
	defer s.Close()

	release := make(chan struct{})
	hung, err := s.Submit(context.Background(), Task{
		Kind:    "hang",
		Timeout: 50 * time.Millisecond,
		Fn: func(ctx context.Context, payload any) (any, error) {
			<-release
			return "late", nil
		},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	_, waitErr := hung.Wait(context.Background())
	var timeoutErr *TimeoutError
	if !errors.As(waitErr, &timeoutErr) {
		t.Fatalf("expected TimeoutError, got %v", waitErr)
	}
	if !errors.Is(waitErr, faults.ErrTimeout) {
		t.Fatal("expected the timeout sentinel")
	}
	if status := hung.Status(); status != StatusTimedOut {
		t.Fatalf("expected timed_out, got %s", status)
	}
	hungWorker := hung.WorkerID()

	// Capacity must be back: a fresh task runs on a replacement worker even
	// though the hung func still holds the old one.
	next, err := s.Submit(context.Background(), Task{
		Kind: "after",
		Fn: func(ctx context.Context, payload any) (any, error) {
			return "fresh", nil
		},
	})
	if err != nil {
		t.Fatalf("Submit after timeout: %v", err)
	}
	waitCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	value, err := next.Wait(waitCtx)
	if err != nil {
		t.Fatalf("Wait after timeout: %v", err)
	}
	if value != "fresh" {
		t.Fatalf("expected fresh, got %v", value)
	}
	if next.WorkerID() == hungWorker {
		t.Fatal("expected a replacement worker, got the discarded one")
	}

	// Unblock the abandoned func; its late result must not flip the
	// already-terminal status.
	close(release)
	time.Sleep(20 * time.Millisecond)
	if status := hung.Status(); status != StatusTimedOut {
		t.Fatalf("late result mutated status to %s", status)
	}
}

func TestQueueIsFIFO(t *testing.T) {
	s := New(1, time.Second, nil)
	defer s.Close()

	gate := make(chan struct{})
	var mu sync.Mutex
	var order []int

	blocker, err := s.Submit(context.Background(), Task{
		Kind: "gate",
		Fn: func(ctx context.Context, payload any) (any, error) {
			<-gate
			return nil, nil
		},
	})
	if err != nil {
		t.Fatalf("Submit blocker: %v", err)
	}

	var pendings []*Pending
	for i := 0; i < 3; i++ {
		i := i
		p, err := s.Submit(context.Background(), Task{
			Kind: "queued",
			Fn: func(ctx context.Context, payload any) (any, error) {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return nil, nil
			},
		})
		if err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
		pendings = append(pendings, p)
	}

	if depth := s.QueueDepth(); depth != 3 {
		t.Fatalf("expected queue depth 3, got %d", depth)
	}

	close(gate)
	if _, err := blocker.Wait(context.Background()); err != nil {
		t.Fatalf("blocker: %v", err)
	}
	for i, p := range pendings {
		if _, err := p.Wait(context.Background()); err != nil {
			t.Fatalf("queued %d: %v", i, err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	for i, got := range order {
		if got != i {
			t.Fatalf("expected FIFO dispatch, got order %v", order)
		}
	}
	if depth := s.QueueDepth(); depth != 0 {
		t.Fatalf("expected drained queue, got %d", depth)
	}
}

func TestSessionContextCancelAbortsCooperatively(t *testing.T) {
	s := New(1, time.Second, nil)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	pending, err := s.Submit(ctx, Task{
		Kind:    "cooperative",
		Timeout: 5 * time.Second,
		Fn: func(ctx context.Context, payload any) (any, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	cancel()
	_, waitErr := pending.Wait(context.Background())
	if waitErr == nil {
		t.Fatal("expected cancellation error")
	}
	if !errors.Is(waitErr, context.Canceled) {
		t.Fatalf("expected context.Canceled cause, got %v", waitErr)
	}
	if status := pending.Status(); status != StatusFailed {
		t.Fatalf("expected failed, got %s", status)
	}
}

func TestCloseRejectsQueuedAndNewWork(t *testing.T) {
	s := New(1, time.Second, nil)

	gate := make(chan struct{})
	defer close(gate)
	if _, err := s.Submit(context.Background(), Task{
		Kind: "gate",
		Fn: func(ctx context.Context, payload any) (any, error) {
			<-gate
			return nil, nil
		},
	}); err != nil {
		t.Fatalf("Submit blocker: %v", err)
	}
	queued, err := s.Submit(context.Background(), Task{
		Kind: "queued",
		Fn: func(ctx context.Context, payload any) (any, error) {
			return nil, nil
		},
	})
	if err != nil {
		t.Fatalf("Submit queued: %v", err)
	}

	s.Close()

	if _, qErr := queued.Wait(context.Background()); !errors.Is(qErr, faults.ErrUnavailable) {
		t.Fatalf("expected unavailable for queued task, got %v", qErr)
	}
	if _, err := s.Submit(context.Background(), Task{
		Kind: "late",
		Fn: func(ctx context.Context, payload any) (any, error) {
			return nil, nil
		},
	}); !errors.Is(err, faults.ErrUnavailable) {
		t.Fatalf("expected unavailable after close, got %v", err)
	}
	if err := s.Probe(); !errors.Is(err, faults.ErrUnavailable) {
		t.Fatalf("expected probe failure after close, got %v", err)
	}
}

func TestProbeWithoutWorkers(t *testing.T) {
	s := New(0, time.Second, nil)
	defer s.Close()

	if err := s.Probe(); !errors.Is(err, faults.ErrUnavailable) {
		t.Fatalf("expected unavailable without workers, got %v", err)
	}
}
