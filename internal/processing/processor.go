// Package processing turns a delivered record id into a stored spectrogram.
package processing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/codebuildervaibhav/audio-spectrogram/internal/logging"
	"github.com/codebuildervaibhav/audio-spectrogram/internal/storage"
	"github.com/codebuildervaibhav/audio-spectrogram/internal/types"
)

// Records is the subset of the record repository the processor needs.
type Records interface {
	GetByID(ctx context.Context, id uuid.UUID) (*types.Audio, error)
	MarkDone(ctx context.Context, id uuid.UUID) error
}

// Generator renders raw audio into image bytes.
type Generator interface {
	Generate(audioBytes []byte, label string) ([]byte, error)
}

// Processor implements queue.Handler.
type Processor struct {
	records      Records
	audio        storage.BlobStore
	spectrograms storage.BlobStore
	generator    Generator
	logger       *slog.Logger
}

// NewProcessor wires a processor to its stores and generator.
func NewProcessor(records Records, audio, spectrograms storage.BlobStore, generator Generator, logger *slog.Logger) *Processor {
	return &Processor{
		records:      records,
		audio:        audio,
		spectrograms: spectrograms,
		generator:    generator,
		logger:       logging.OrDiscard(logger).With("component", "processor"),
	}
}

// Process runs one delivery for recordID. Any returned error leaves the
// record pending and hands the delivery back to the queue for retry.
func (p *Processor) Process(ctx context.Context, recordID uuid.UUID) error {
	logger := p.logger.With("audio_id", recordID)

	record, err := p.records.GetByID(ctx, recordID)
	if err != nil {
		return fmt.Errorf("load record %s: %w", recordID, err)
	}
	if record == nil {
		logger.Warn("audio record not found, skipping")
		return nil
	}

	start := time.Now()
	logger.Info("generating spectrogram", "filename", record.Filename)

	raw, err := p.audio.Get(ctx, recordID.String())
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			logger.Error("raw audio missing from object store", "error", err)
		}
		return fmt.Errorf("fetch audio %s: %w", recordID, err)
	}

	img, err := p.generator.Generate(raw, record.Filename)
	if err != nil {
		return err
	}

	if err := p.spectrograms.Put(ctx, recordID.String(), img, types.SpectrogramContentType); err != nil {
		return fmt.Errorf("store spectrogram %s: %w", recordID, err)
	}

	if err := p.records.MarkDone(ctx, recordID); err != nil {
		return fmt.Errorf("mark %s done: %w", recordID, err)
	}

	logger.Info("spectrogram ready", "bytes", len(img), "duration", time.Since(start).String())
	return nil
}
