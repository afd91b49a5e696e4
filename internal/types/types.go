package types

import (
	"time"

	"github.com/google/uuid"
)

// Status is the processing state of an Audio record.
type Status string

// Audio status constants. pending -> done is the only transition.
const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusDone
}

// Audio is one uploaded item. Its ID keys the raw and derived blobs and is
// the task queue payload.
type Audio struct {
	ID          uuid.UUID `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Content type of the derived artifact.
const SpectrogramContentType = "image/png"
