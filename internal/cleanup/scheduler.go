// Package cleanup runs periodic housekeeping against the task queue.
package cleanup

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/codebuildervaibhav/audio-spectrogram/internal/logging"
)

// Reclaimer returns tasks whose lease ended before now to the queue.
type Reclaimer interface {
	ReclaimExpired(ctx context.Context, now time.Time) (int64, error)
}

// Scheduler reclaims tasks abandoned by crashed or stalled workers.
type Scheduler struct {
	reclaimer Reclaimer
	interval  time.Duration
	logger    *slog.Logger
	now       func() time.Time

	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
}

// NewScheduler creates a new cleanup scheduler
func NewScheduler(reclaimer Reclaimer, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		reclaimer: reclaimer,
		interval:  interval,
		logger:    logging.OrDiscard(logger).With("component", "reaper"),
		now:       time.Now,
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start runs one sweep immediately, then one per interval until Stop is
// called or ctx ends.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Debug("running initial lease sweep")
	s.Sweep(ctx)

	ticker := time.NewTicker(s.interval)
	go func() {
		defer close(s.done)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep(ctx)
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			}
		}
	}()

	s.logger.Info("lease reaper started", "interval", s.interval.String())
}

// Stop stops the scheduler and waits for an in-flight sweep to finish.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	<-s.done
	s.logger.Info("lease reaper stopped")
}

// Sweep reclaims expired leases once and reports how many tasks it requeued.
func (s *Scheduler) Sweep(ctx context.Context) int64 {
	n, err := s.reclaimer.ReclaimExpired(ctx, s.now())
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("lease sweep failed", "error", err)
		}
		return 0
	}
	if n > 0 {
		s.logger.Warn("reclaimed expired task leases", "count", n)
	}
	return n
}
