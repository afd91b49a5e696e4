package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/audio-spectrogram/internal/types"
)

// writeError maps core error kinds onto HTTP responses. Only failures that
// are not the caller's fault are logged.
func writeError(c *fiber.Ctx, logger *slog.Logger, err error) error {
	switch {
	case errors.Is(err, types.ErrUnsupportedFormat):
		return c.Status(400).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "ERR_INVALID_FORMAT",
		})
	case errors.Is(err, types.ErrInvalidInput):
		return c.Status(400).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "ERR_INVALID_INPUT",
		})
	case errors.Is(err, types.ErrNotFound):
		return c.Status(404).JSON(fiber.Map{
			"error": "Not found",
			"code":  "ERR_NOT_FOUND",
		})
	default:
		logger.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
		return c.Status(500).JSON(fiber.Map{
			"error": "Internal server error",
			"code":  "ERR_INTERNAL",
		})
	}
}
