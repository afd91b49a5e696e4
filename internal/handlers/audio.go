package handlers

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/codebuildervaibhav/audio-spectrogram/internal/logging"
	"github.com/codebuildervaibhav/audio-spectrogram/internal/storage"
	"github.com/codebuildervaibhav/audio-spectrogram/internal/types"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// RecordReader reads audio records.
type RecordReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*types.Audio, error)
	List(ctx context.Context, limit int) ([]types.Audio, error)
}

// AudioHandler serves record metadata and finished spectrograms.
type AudioHandler struct {
	records      RecordReader
	spectrograms storage.BlobStore
	logger       *slog.Logger
}

// NewAudioHandler creates a new audio handler
func NewAudioHandler(records RecordReader, spectrograms storage.BlobStore, logger *slog.Logger) *AudioHandler {
	return &AudioHandler{
		records:      records,
		spectrograms: spectrograms,
		logger:       logging.OrDiscard(logger),
	}
}

// List returns the newest records.
func (h *AudioHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultListLimit)
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	records, err := h.records.List(c.UserContext(), limit)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	if records == nil {
		records = []types.Audio{}
	}
	return c.JSON(records)
}

// Get returns one record.
func (h *AudioHandler) Get(c *fiber.Ctx) error {
	record, err := h.lookup(c)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	return c.JSON(record)
}

// Spectrogram returns the rendered image once the record is done.
func (h *AudioHandler) Spectrogram(c *fiber.Ctx) error {
	record, err := h.lookup(c)
	if err != nil {
		return writeError(c, h.logger, err)
	}
	if record.Status != types.StatusDone {
		return c.Status(404).JSON(fiber.Map{
			"error":  "Spectrogram not ready",
			"code":   "ERR_NOT_READY",
			"status": record.Status,
		})
	}

	img, err := h.spectrograms.Get(c.UserContext(), record.ID.String())
	if err != nil {
		return writeError(c, h.logger, err)
	}
	c.Set(fiber.HeaderContentType, types.SpectrogramContentType)
	return c.Send(img)
}

func (h *AudioHandler) lookup(c *fiber.Ctx) (*types.Audio, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, types.InvalidInput("invalid audio id", nil)
	}
	record, err := h.records.GetByID(c.UserContext(), id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, types.ErrNotFound
	}
	return record, nil
}
