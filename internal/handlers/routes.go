// Package handlers exposes the ingestion and status APIs over fiber.
package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// Routes groups the handlers mounted by Register.
type Routes struct {
	Upload *UploadHandler
	Audio  *AudioHandler
	Stream *StreamHandler
	Health *HealthHandler
}

// Register mounts every endpoint on app.
func Register(app *fiber.App, r Routes) {
	app.Get("/health", r.Health.Handle)

	app.Post("/upload", r.Upload.Handle)

	app.Get("/audio", r.Audio.List)
	app.Get("/audio/:id", r.Audio.Get)
	app.Get("/audio/:id/spectrogram", r.Audio.Spectrogram)

	app.Get("/ws/audio/:id", r.Stream.Upgrade, websocket.New(r.Stream.Handle))
}
