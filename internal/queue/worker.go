package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codebuildervaibhav/audio-spectrogram/internal/logging"
)

// Handler processes one delivery. A nil error acknowledges it; any error
// schedules a retry.
type Handler interface {
	Process(ctx context.Context, recordID uuid.UUID) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, recordID uuid.UUID) error

// Process calls f(ctx, recordID).
func (f HandlerFunc) Process(ctx context.Context, recordID uuid.UUID) error {
	return f(ctx, recordID)
}

// Options configures a Pool.
type Options struct {
	Workers      int
	PollInterval time.Duration
	Lease        time.Duration
	MaxAttempts  int
	Backoff      Backoff
	Logger       *slog.Logger
}

// Pool manages a pool of workers draining the task store.
type Pool struct {
	store   *Store
	handler Handler
	opts    Options
	logger  *slog.Logger
	wake    chan struct{}
	wg      sync.WaitGroup
}

// NewPool creates a new worker pool
func NewPool(store *Store, handler Handler, opts Options) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.Lease <= 0 {
		opts.Lease = 5 * time.Minute
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	return &Pool{
		store:   store,
		handler: handler,
		opts:    opts,
		logger:  logging.OrDiscard(opts.Logger).With("component", "worker"),
		wake:    make(chan struct{}, 1),
	}
}

// Start launches the workers; they stop when ctx is cancelled.
func (p *Pool) Start(ctx context.Context) {
	p.logger.Info("starting worker pool", "workers", p.opts.Workers, "max_attempts", p.opts.MaxAttempts)
	for i := 0; i < p.opts.Workers; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			p.worker(ctx, id)
		}(i)
	}
}

// Wait blocks until every worker has returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Enqueue durably records a delivery for recordID and wakes an idle worker.
func (p *Pool) Enqueue(ctx context.Context, recordID uuid.UUID) error {
	if err := p.store.Enqueue(ctx, recordID); err != nil {
		return err
	}
	select {
	case p.wake <- struct{}{}:
	default:
	}
	p.logger.Debug("task enqueued", "audio_id", recordID)
	return nil
}

func (p *Pool) worker(ctx context.Context, id int) {
	logger := p.logger.With("worker", id)
	logger.Debug("worker started")

	for {
		processed, err := p.RunOnce(ctx)
		if ctx.Err() != nil {
			logger.Debug("worker stopped")
			return
		}
		if err != nil {
			logger.Error("queue unavailable", "error", err)
		}
		if processed {
			continue
		}
		select {
		case <-ctx.Done():
			logger.Debug("worker stopped")
			return
		case <-p.wake:
		case <-time.After(p.opts.PollInterval):
		}
	}
}

// RunOnce claims and processes at most one task. It reports whether a task
// was claimed; handler failures are recorded on the task, not returned.
func (p *Pool) RunOnce(ctx context.Context) (bool, error) {
	task, err := p.store.Claim(ctx, p.opts.Lease)
	if err != nil {
		return false, err
	}
	if task == nil {
		return false, nil
	}

	logger := p.logger.With("task_id", task.ID, "audio_id", task.RecordID, "attempt", task.Attempts)

	// A task reclaimed after repeated crashes can arrive past its budget.
	if task.Attempts > p.opts.MaxAttempts {
		return true, p.bury(ctx, logger, task, errors.New(task.LastError))
	}

	procErr := p.process(ctx, task)
	switch {
	case procErr == nil:
		return true, p.store.Ack(ctx, task.ID)
	case ctx.Err() != nil:
		// Shutdown interrupted the attempt; the record is still pending and
		// the next delivery supersedes this one.
		logger.Warn("attempt interrupted by shutdown", "error", procErr)
		return true, p.store.Release(context.WithoutCancel(ctx), task.ID)
	case task.Attempts >= p.opts.MaxAttempts:
		return true, p.bury(ctx, logger, task, procErr)
	default:
		delay := p.opts.Backoff.Delay(task.Attempts)
		logger.Warn("attempt failed, retrying", "error", procErr, "retry_in", delay.String())
		return true, p.store.Retry(ctx, task.ID, procErr, delay)
	}
}

func (p *Pool) bury(ctx context.Context, logger *slog.Logger, task *Task, cause error) error {
	logger.Error("retries exhausted, task dead-lettered",
		"error", cause, "max_attempts", p.opts.MaxAttempts)
	return p.store.Bury(ctx, task.ID, cause)
}

func (p *Pool) process(ctx context.Context, task *Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("panic processing task",
				"task_id", task.ID, "audio_id", task.RecordID, "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("worker panic: %v", r)
		}
	}()
	return p.handler.Process(ctx, task.RecordID)
}
