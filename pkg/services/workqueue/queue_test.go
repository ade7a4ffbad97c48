package workqueue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

// testTask is a simple task for testing.
type testTask struct {
	BaseTask
	executeFunc func(ctx context.Context, enqueuer TaskEnqueuer) error
}

func newTestTask(name string, fn func(ctx context.Context, enqueuer TaskEnqueuer) error) *testTask {
	return &testTask{
		BaseTask:    NewBaseTask(name),
		executeFunc: fn,
	}
}

func (t *testTask) Execute(ctx context.Context, enqueuer TaskEnqueuer) error {
	if t.executeFunc != nil {
		return t.executeFunc(ctx, enqueuer)
	}
	return nil
}

// transientError is retryable.
type transientError struct{ msg string }

func (e *transientError) Error() string     { return e.msg }
func (e *transientError) IsRetryable() bool { return true }

func TestQueue_EnqueueAndComplete(t *testing.T) {
	q := New(zap.NewNop())

	executed := false
	task := newTestTask("test-task", func(ctx context.Context, enqueuer TaskEnqueuer) error {
		executed = true
		return nil
	})

	q.Enqueue(task)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := q.Wait(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !executed {
		t.Error("task was not executed")
	}
	if p := q.Progress(); p.Completed != 1 {
		t.Errorf("expected 1 completed, got %d", p.Completed)
	}
}

func TestQueue_TaskFailure(t *testing.T) {
	q := New(zap.NewNop(), WithRetryConfig(RetryConfig{MaxRetries: 0}))

	expectedErr := errors.New("task failed")
	q.Enqueue(newTestTask("failing-task", func(ctx context.Context, enqueuer TaskEnqueuer) error {
		return expectedErr
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := q.Wait(ctx)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, expectedErr) {
		t.Errorf("expected %v, got %v", expectedErr, err)
	}
	if !q.HasFailures() {
		t.Error("expected HasFailures to be true")
	}
}

func TestQueue_BoundedConcurrency(t *testing.T) {
	const limit = 2
	q := New(zap.NewNop(), WithStrategy(NewBoundedStrategy(limit)))

	var current, peak int32
	var mu sync.Mutex

	for i := 0; i < 6; i++ {
		q.Enqueue(newTestTask("bounded-task", func(ctx context.Context, enqueuer TaskEnqueuer) error {
			n := atomic.AddInt32(&current, 1)
			mu.Lock()
			if n > peak {
				peak = n
			}
			mu.Unlock()
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt32(&current, -1)
			return nil
		}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := q.Wait(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if peak > limit {
		t.Errorf("observed %d concurrent tasks, limit is %d", peak, limit)
	}
	if p := q.Progress(); p.Completed != 6 {
		t.Errorf("expected 6 completed, got %d", p.Completed)
	}
}

func TestQueue_FIFOOrder(t *testing.T) {
	// Serial execution must preserve submission order.
	q := New(zap.NewNop(), WithStrategy(NewSerialStrategy()))

	var mu sync.Mutex
	var order []string

	names := []string{"first", "second", "third", "fourth"}
	for _, name := range names {
		n := name
		q.Enqueue(newTestTask(n, func(ctx context.Context, enqueuer TaskEnqueuer) error {
			mu.Lock()
			order = append(order, n)
			mu.Unlock()
			return nil
		}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := q.Wait(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	for i, name := range names {
		if order[i] != name {
			t.Fatalf("execution order %v, want %v", order, names)
		}
	}
}

func TestQueue_RetriesTransientErrors(t *testing.T) {
	q := New(zap.NewNop(), WithRetryConfig(RetryConfig{
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		BackoffFactor:  2.0,
	}))

	var attempts int32
	q.Enqueue(newTestTask("flaky-task", func(ctx context.Context, enqueuer TaskEnqueuer) error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return &transientError{msg: "temporarily unavailable"}
		}
		return nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := q.Wait(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestQueue_NonRetryableFailsImmediately(t *testing.T) {
	q := New(zap.NewNop(), WithRetryConfig(RetryConfig{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		BackoffFactor:  2.0,
	}))

	var attempts int32
	q.Enqueue(newTestTask("permanent-failure", func(ctx context.Context, enqueuer TaskEnqueuer) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("bad input")
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := q.Wait(ctx); err == nil {
		t.Fatal("expected error")
	}
	if got := atomic.LoadInt32(&attempts); got != 1 {
		t.Errorf("expected 1 attempt, got %d", got)
	}
}

func TestQueue_Cancel(t *testing.T) {
	q := New(zap.NewNop(), WithStrategy(NewSerialStrategy()))

	started := make(chan struct{})
	q.Enqueue(newTestTask("long-task", func(ctx context.Context, enqueuer TaskEnqueuer) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}))
	q.Enqueue(newTestTask("queued-task", nil))

	<-started
	q.Cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = q.Wait(ctx)

	p := q.Progress()
	if p.Cancelled != 2 {
		t.Errorf("expected 2 cancelled tasks, got %+v", p)
	}

	// Enqueue after cancel is ignored.
	q.Enqueue(newTestTask("late-task", nil))
	if q.TaskCount() != 2 {
		t.Errorf("expected enqueue after cancel to be ignored, count=%d", q.TaskCount())
	}
}

func TestQueue_ProgressPercentage(t *testing.T) {
	p := Progress{}
	if p.Percentage() != 100 {
		t.Errorf("empty queue is 100%% done, got %d", p.Percentage())
	}
	p = Progress{Total: 4, Completed: 1, Failed: 1}
	if p.Percentage() != 50 {
		t.Errorf("expected 50%%, got %d", p.Percentage())
	}
}

func TestQueue_OnUpdateCallback(t *testing.T) {
	q := New(zap.NewNop())

	var mu sync.Mutex
	var updates int
	q.SetOnUpdate(func(snapshots []TaskSnapshot) {
		mu.Lock()
		updates++
		mu.Unlock()
	})

	q.Enqueue(newTestTask("observed-task", nil))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := q.Wait(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if updates == 0 {
		t.Error("expected at least one update notification")
	}
}
