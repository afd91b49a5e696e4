package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestPool(t *testing.T, handler Handler, maxAttempts int) (*Pool, *Store) {
	t.Helper()
	store, _ := newTestStore(t)
	pool := NewPool(store, handler, Options{
		Workers:      1,
		PollInterval: 5 * time.Millisecond,
		Lease:        time.Minute,
		MaxAttempts:  maxAttempts,
	})
	return pool, store
}

func TestRunOnceAcksSuccess(t *testing.T) {
	var seen uuid.UUID
	pool, store := newTestPool(t, HandlerFunc(func(_ context.Context, id uuid.UUID) error {
		seen = id
		return nil
	}), 3)
	ctx := context.Background()
	recordID := uuid.New()

	if err := pool.Enqueue(ctx, recordID); err != nil {
		t.Fatal(err)
	}
	processed, err := pool.RunOnce(ctx)
	if err != nil || !processed {
		t.Fatalf("RunOnce: %v, %v", processed, err)
	}
	if seen != recordID {
		t.Fatalf("handler got %s, want %s", seen, recordID)
	}
	if tasks, _ := store.List(ctx, "", 10); len(tasks) != 0 {
		t.Fatalf("expected task to be acked, %d remain", len(tasks))
	}
}

func TestRunOnceNothingToDo(t *testing.T) {
	pool, _ := newTestPool(t, HandlerFunc(func(context.Context, uuid.UUID) error {
		t.Fatal("handler must not run")
		return nil
	}), 3)
	processed, err := pool.RunOnce(context.Background())
	if err != nil || processed {
		t.Fatalf("RunOnce: %v, %v", processed, err)
	}
}

func TestRunOnceRetriesThenDeadLetters(t *testing.T) {
	var calls int32
	failure := errors.New("object store unavailable")
	pool, store := newTestPool(t, HandlerFunc(func(context.Context, uuid.UUID) error {
		atomic.AddInt32(&calls, 1)
		return failure
	}), 3)
	ctx := context.Background()

	if err := pool.Enqueue(ctx, uuid.New()); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if processed, err := pool.RunOnce(ctx); err != nil || !processed {
			t.Fatalf("RunOnce #%d: %v, %v", i+1, processed, err)
		}
	}
	if processed, _ := pool.RunOnce(ctx); processed {
		t.Fatal("dead task must not be delivered again")
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}

	dead, err := store.List(ctx, TaskDead, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(dead) != 1 || dead[0].LastError != failure.Error() || dead[0].Attempts != 3 {
		t.Fatalf("unexpected dead tasks: %+v", dead)
	}
}

func TestRunOnceRecoversPanics(t *testing.T) {
	pool, store := newTestPool(t, HandlerFunc(func(context.Context, uuid.UUID) error {
		panic("decoder exploded")
	}), 2)
	ctx := context.Background()

	if err := pool.Enqueue(ctx, uuid.New()); err != nil {
		t.Fatal(err)
	}
	if _, err := pool.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	queued, _ := store.List(ctx, TaskQueued, 10)
	if len(queued) != 1 || queued[0].LastError != "worker panic: decoder exploded" {
		t.Fatalf("expected panic to be retried, got %+v", queued)
	}
}

func TestRunOnceBuriesTaskPastBudget(t *testing.T) {
	pool, store := newTestPool(t, HandlerFunc(func(context.Context, uuid.UUID) error {
		t.Fatal("handler must not run for an exhausted task")
		return nil
	}), 1)
	ctx := context.Background()

	if err := store.Enqueue(ctx, uuid.New()); err != nil {
		t.Fatal(err)
	}
	// Simulate a worker that crashed mid-attempt: the lease expires and the
	// task comes back with its only attempt already spent.
	task, _ := store.Claim(ctx, -time.Second)
	if n, err := store.ReclaimExpired(ctx, store.now()); err != nil || n != 1 {
		t.Fatalf("ReclaimExpired: %d, %v", n, err)
	}

	if processed, err := pool.RunOnce(ctx); err != nil || !processed {
		t.Fatalf("RunOnce: %v, %v", processed, err)
	}
	dead, _ := store.List(ctx, TaskDead, 10)
	if len(dead) != 1 || dead[0].ID != task.ID {
		t.Fatalf("expected task to be dead-lettered, got %+v", dead)
	}
}

func TestRunOnceReleasesOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool, store := newTestPool(t, HandlerFunc(func(ctx context.Context, _ uuid.UUID) error {
		cancel()
		return ctx.Err()
	}), 1)

	if err := store.Enqueue(context.Background(), uuid.New()); err != nil {
		t.Fatal(err)
	}
	if _, err := pool.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	queued, _ := store.List(context.Background(), TaskQueued, 10)
	if len(queued) != 1 || queued[0].Attempts != 0 {
		t.Fatalf("expected task released with attempt uncounted, got %+v", queued)
	}
}

func TestPoolDeliversEnqueuedTasks(t *testing.T) {
	done := make(chan uuid.UUID, 4)
	pool, _ := newTestPool(t, HandlerFunc(func(_ context.Context, id uuid.UUID) error {
		done <- id
		return nil
	}), 3)

	store := pool.store
	store.now = func() time.Time { return time.Now().UTC() }

	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		pool.Wait()
	}()
	pool.Start(ctx)

	want := map[uuid.UUID]bool{uuid.New(): true, uuid.New(): true}
	for id := range want {
		if err := pool.Enqueue(ctx, id); err != nil {
			t.Fatal(err)
		}
	}

	timeout := time.After(5 * time.Second)
	for len(want) > 0 {
		select {
		case id := <-done:
			delete(want, id)
		case <-timeout:
			t.Fatalf("timed out waiting for delivery, %d outstanding", len(want))
		}
	}
}
