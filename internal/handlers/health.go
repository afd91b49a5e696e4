package handlers

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/audio-spectrogram/internal/logging"
	"github.com/codebuildervaibhav/audio-spectrogram/internal/queue"
)

// Version is reported by the health endpoint.
var Version = "dev"

// QueueStats reports task counts per status.
type QueueStats interface {
	Stats(ctx context.Context) (map[queue.TaskStatus]int, error)
}

// HealthHandler reports liveness and queue depth.
type HealthHandler struct {
	queue  QueueStats
	logger *slog.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(stats QueueStats, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{queue: stats, logger: logging.OrDiscard(logger)}
}

// Handle reports healthy with per-status task counts, or 503 when the queue
// cannot be read.
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	stats, err := h.queue.Stats(c.UserContext())
	if err != nil {
		h.logger.Error("health check failed", "error", err)
		return c.Status(503).JSON(fiber.Map{
			"status":  "unhealthy",
			"version": Version,
		})
	}
	return c.JSON(fiber.Map{
		"status":  "healthy",
		"version": Version,
		"tasks":   stats,
	})
}
