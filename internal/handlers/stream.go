package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/codebuildervaibhav/audio-spectrogram/internal/logging"
	"github.com/codebuildervaibhav/audio-spectrogram/internal/types"
)

// StatusMessage is pushed to websocket subscribers.
type StatusMessage struct {
	AudioID uuid.UUID    `json:"audio_id"`
	Status  types.Status `json:"status,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// StreamHandler pushes record status changes over a websocket until the
// record is done.
type StreamHandler struct {
	records  RecordReader
	interval time.Duration
	logger   *slog.Logger
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(records RecordReader, interval time.Duration, logger *slog.Logger) *StreamHandler {
	if interval <= 0 {
		interval = time.Second
	}
	return &StreamHandler{
		records:  records,
		interval: interval,
		logger:   logging.OrDiscard(logger).With("component", "ws"),
	}
}

// Upgrade rejects plain HTTP requests to websocket routes.
func (h *StreamHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	if _, err := uuid.Parse(c.Params("id")); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "invalid audio id",
			"code":  "ERR_INVALID_INPUT",
		})
	}
	return c.Next()
}

// Handle processes WebSocket connections
func (h *StreamHandler) Handle(c *websocket.Conn) {
	defer c.Close()

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return
	}
	logger := h.logger.With("audio_id", id)
	logger.Debug("websocket subscriber connected")

	// The client never sends anything useful; reading detects disconnects.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	h.watch(ctx, id, func(msg StatusMessage) error {
		return c.WriteJSON(msg)
	})
	logger.Debug("websocket subscriber finished")
}

// watch polls the record and emits a message each time its status changes.
// It returns after emitting done, an error, or when ctx ends.
func (h *StreamHandler) watch(ctx context.Context, id uuid.UUID, emit func(StatusMessage) error) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var last types.Status
	for {
		record, err := h.records.GetByID(ctx, id)
		switch {
		case err != nil:
			if ctx.Err() == nil {
				h.logger.Error("status lookup failed", "audio_id", id, "error", err)
				_ = emit(StatusMessage{AudioID: id, Error: "status unavailable"})
			}
			return
		case record == nil:
			_ = emit(StatusMessage{AudioID: id, Error: "not found"})
			return
		case record.Status != last:
			last = record.Status
			if err := emit(StatusMessage{AudioID: id, Status: last}); err != nil {
				return
			}
			if last == types.StatusDone {
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
