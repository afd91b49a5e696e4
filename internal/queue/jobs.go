package queue

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the delivery state of a task.
type TaskStatus string

const (
	TaskQueued TaskStatus = "queued"
	TaskLeased TaskStatus = "leased"
	TaskDead   TaskStatus = "dead"
)

// Task is one pending delivery of a record id.
type Task struct {
	ID          uuid.UUID
	RecordID    uuid.UUID
	Status      TaskStatus
	Attempts    int
	AvailableAt time.Time
	LeasedUntil *time.Time
	LastError   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Backoff computes retry delays: Base doubled per previous attempt, capped at Max.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

// Delay returns the wait before the attempt after the given one (1-based).
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := b.Base
	for i := 1; i < attempt; i++ {
		d *= 2
		if b.Max > 0 && d >= b.Max {
			return b.Max
		}
	}
	if b.Max > 0 && d > b.Max {
		return b.Max
	}
	return d
}
