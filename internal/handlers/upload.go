package handlers

import (
	"context"
	"io"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/audio-spectrogram/internal/logging"
	"github.com/codebuildervaibhav/audio-spectrogram/internal/types"
)

// Submitter is the ingestion entry point.
type Submitter interface {
	Submit(ctx context.Context, filename string, body io.Reader) (*types.Audio, error)
}

// UploadHandler handles file uploads
type UploadHandler struct {
	ingest Submitter
	logger *slog.Logger
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(ingest Submitter, logger *slog.Logger) *UploadHandler {
	return &UploadHandler{
		ingest: ingest,
		logger: logging.OrDiscard(logger),
	}
}

// Handle processes the upload request
func (h *UploadHandler) Handle(c *fiber.Ctx) error {
	file, err := c.FormFile("audio_file")
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "No file uploaded",
			"code":  "ERR_NO_FILE",
		})
	}

	src, err := file.Open()
	if err != nil {
		h.logger.Error("failed to open uploaded file", "error", err)
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to read upload",
			"code":  "ERR_READ_FAILED",
		})
	}
	defer src.Close()

	record, err := h.ingest.Submit(c.UserContext(), file.Filename, src)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	// Return the id immediately; processing happens on the worker pool.
	return c.Status(202).JSON(fiber.Map{
		"audio_id": record.ID,
		"status":   record.Status,
	})
}
