package queue

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/codebuildervaibhav/audio-spectrogram/internal/storage"
	"github.com/codebuildervaibhav/audio-spectrogram/internal/testsupport"
)

type clock struct {
	t time.Time
}

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *clock {
	return &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func newTestStore(t *testing.T) (*Store, *clock) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store, err := NewStore(context.Background(), testsupport.MustOpenDB(t, cfg))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	c := newClock()
	store.now = c.now
	return store, c
}

func TestEnqueueClaimAck(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	recordID := uuid.New()

	if err := store.Enqueue(ctx, recordID); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	task, err := store.Claim(ctx, time.Minute)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if task == nil {
		t.Fatal("expected a task")
	}
	if task.RecordID != recordID || task.Attempts != 1 || task.Status != TaskLeased {
		t.Fatalf("unexpected task: %+v", task)
	}
	if task.LeasedUntil == nil {
		t.Fatal("expected lease deadline")
	}

	if again, err := store.Claim(ctx, time.Minute); err != nil || again != nil {
		t.Fatalf("leased task must not be claimed twice: %+v, %v", again, err)
	}

	if err := store.Ack(ctx, task.ID); err != nil {
		t.Fatalf("Ack: %v", err)
	}
	tasks, err := store.List(ctx, "", 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("expected no tasks after ack, got %d", len(tasks))
	}
}

func TestClaimEmpty(t *testing.T) {
	store, _ := newTestStore(t)
	task, err := store.Claim(context.Background(), time.Minute)
	if err != nil || task != nil {
		t.Fatalf("expected nothing, got %+v, %v", task, err)
	}
}

func TestRetryHonoursDelay(t *testing.T) {
	store, clk := newTestStore(t)
	ctx := context.Background()

	if err := store.Enqueue(ctx, uuid.New()); err != nil {
		t.Fatal(err)
	}
	task, err := store.Claim(ctx, time.Minute)
	if err != nil || task == nil {
		t.Fatalf("Claim: %+v, %v", task, err)
	}
	if err := store.Retry(ctx, task.ID, errors.New("store unavailable"), 10*time.Second); err != nil {
		t.Fatalf("Retry: %v", err)
	}

	clk.advance(5 * time.Second)
	if early, _ := store.Claim(ctx, time.Minute); early != nil {
		t.Fatal("task claimed before its backoff elapsed")
	}

	clk.advance(6 * time.Second)
	retried, err := store.Claim(ctx, time.Minute)
	if err != nil || retried == nil {
		t.Fatalf("Claim after backoff: %+v, %v", retried, err)
	}
	if retried.Attempts != 2 {
		t.Fatalf("expected attempt 2, got %d", retried.Attempts)
	}
	if retried.LastError != "store unavailable" {
		t.Fatalf("last error %q", retried.LastError)
	}
}

func TestReclaimExpiredLease(t *testing.T) {
	store, clk := newTestStore(t)
	ctx := context.Background()

	if err := store.Enqueue(ctx, uuid.New()); err != nil {
		t.Fatal(err)
	}
	if task, err := store.Claim(ctx, time.Minute); err != nil || task == nil {
		t.Fatalf("Claim: %+v, %v", task, err)
	}

	n, err := store.ReclaimExpired(ctx, clk.now().Add(30*time.Second))
	if err != nil || n != 0 {
		t.Fatalf("live lease reclaimed: %d, %v", n, err)
	}

	clk.advance(2 * time.Minute)
	n, err = store.ReclaimExpired(ctx, clk.now())
	if err != nil || n != 1 {
		t.Fatalf("expected one reclaimed lease, got %d, %v", n, err)
	}

	task, err := store.Claim(ctx, time.Minute)
	if err != nil || task == nil {
		t.Fatalf("Claim after reclaim: %+v, %v", task, err)
	}
	if task.Attempts != 2 {
		t.Fatalf("expected the abandoned attempt to count, got %d", task.Attempts)
	}
}

func TestBuryListRequeue(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := store.Enqueue(ctx, uuid.New()); err != nil {
			t.Fatal(err)
		}
	}
	first, _ := store.Claim(ctx, time.Minute)
	if err := store.Bury(ctx, first.ID, errors.New("decode failed")); err != nil {
		t.Fatalf("Bury: %v", err)
	}

	dead, err := store.List(ctx, TaskDead, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(dead) != 1 || dead[0].ID != first.ID || dead[0].LastError != "decode failed" {
		t.Fatalf("unexpected dead tasks: %+v", dead)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[TaskDead] != 1 || stats[TaskQueued] != 1 {
		t.Fatalf("unexpected stats: %v", stats)
	}

	n, err := store.Requeue(ctx, first.ID)
	if err != nil || n != 1 {
		t.Fatalf("Requeue: %d, %v", n, err)
	}
	dead, _ = store.List(ctx, TaskDead, 10)
	if len(dead) != 0 {
		t.Fatalf("expected no dead tasks, got %d", len(dead))
	}
	queued, _ := store.List(ctx, TaskQueued, 10)
	for _, task := range queued {
		if task.ID == first.ID && task.Attempts != 0 {
			t.Fatalf("requeue must reset attempts, got %d", task.Attempts)
		}
	}
}

func TestRequeueWithoutIDsTakesAllDead(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := store.Enqueue(ctx, uuid.New()); err != nil {
			t.Fatal(err)
		}
		task, _ := store.Claim(ctx, time.Minute)
		if err := store.Bury(ctx, task.ID, errors.New("boom")); err != nil {
			t.Fatal(err)
		}
	}
	n, err := store.Requeue(ctx)
	if err != nil || n != 3 {
		t.Fatalf("Requeue: %d, %v", n, err)
	}
}

func TestTasksSurviveReopen(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()
	recordID := uuid.New()

	db, err := storage.OpenDB(cfg.Storage.Database)
	if err != nil {
		t.Fatal(err)
	}
	store, err := NewStore(ctx, db)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Enqueue(ctx, recordID); err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewStore(ctx, testsupport.MustOpenDB(t, cfg))
	if err != nil {
		t.Fatal(err)
	}
	task, err := reopened.Claim(ctx, time.Minute)
	if err != nil || task == nil {
		t.Fatalf("Claim after reopen: %+v, %v", task, err)
	}
	if task.RecordID != recordID {
		t.Fatalf("record id %s, want %s", task.RecordID, recordID)
	}
}

func TestBackoffDelay(t *testing.T) {
	b := Backoff{Base: time.Second, Max: 10 * time.Second}
	cases := map[int]time.Duration{
		0: time.Second,
		1: time.Second,
		2: 2 * time.Second,
		3: 4 * time.Second,
		4: 8 * time.Second,
		5: 10 * time.Second,
		9: 10 * time.Second,
	}
	for attempt, want := range cases {
		if got := b.Delay(attempt); got != want {
			t.Errorf("Delay(%d) = %s, want %s", attempt, got, want)
		}
	}
}

func TestErrorTextCutsOnRuneBoundary(t *testing.T) {
	// "é" is two bytes, so an odd prefix pushes a rune across the limit.
	msg := "x" + strings.Repeat("é", maxErrorBytes)
	got := errorText(errors.New(msg))
	if !utf8.ValidString(got) {
		t.Fatal("truncated error is not valid UTF-8")
	}
	if len(got) != maxErrorBytes-1 {
		t.Fatalf("len = %d, want %d", len(got), maxErrorBytes-1)
	}
	if !strings.HasPrefix(msg, got) {
		t.Fatal("truncated error is not a prefix of the original")
	}

	if got := errorText(errors.New("short")); got != "short" {
		t.Fatalf("short message changed: %q", got)
	}
	if errorText(nil) != "" {
		t.Fatal("nil error should be empty")
	}
}

func TestRetryStoresValidUTF8(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	if err := store.Enqueue(ctx, uuid.New()); err != nil {
		t.Fatal(err)
	}
	task, err := store.Claim(ctx, time.Minute)
	if err != nil || task == nil {
		t.Fatalf("Claim: %v, %v", task, err)
	}
	cause := errors.New("x" + strings.Repeat("日", maxErrorBytes))
	if err := store.Retry(ctx, task.ID, cause, 0); err != nil {
		t.Fatal(err)
	}
	queued, err := store.List(ctx, TaskQueued, 1)
	if err != nil || len(queued) != 1 {
		t.Fatalf("List: %v, %v", queued, err)
	}
	if !utf8.ValidString(queued[0].LastError) || len(queued[0].LastError) > maxErrorBytes {
		t.Fatalf("stored last_error is %d bytes, valid=%v", len(queued[0].LastError), utf8.ValidString(queued[0].LastError))
	}
}
