// Package ingest accepts uploaded audio, validates it and stores it ahead of
// background processing.
package ingest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/codebuildervaibhav/audio-spectrogram/internal/audio"
	"github.com/codebuildervaibhav/audio-spectrogram/internal/logging"
	"github.com/codebuildervaibhav/audio-spectrogram/internal/storage"
	"github.com/codebuildervaibhav/audio-spectrogram/internal/types"
)

// Records creates audio records.
type Records interface {
	Create(ctx context.Context, audio *types.Audio) error
}

// Dispatcher hands a stored record to background processing.
type Dispatcher interface {
	Enqueue(ctx context.Context, recordID uuid.UUID) error
}

// Service implements the upload path.
type Service struct {
	records    Records
	blobs      storage.BlobStore
	dispatcher Dispatcher
	maxBytes   int64
	logger     *slog.Logger
}

// Options configures a Service. MaxBytes <= 0 disables the size limit.
type Options struct {
	MaxBytes int64
	Logger   *slog.Logger
}

// NewService wires the ingestion path to its collaborators.
func NewService(records Records, blobs storage.BlobStore, dispatcher Dispatcher, opts Options) *Service {
	return &Service{
		records:    records,
		blobs:      blobs,
		dispatcher: dispatcher,
		maxBytes:   opts.MaxBytes,
		logger:     logging.OrDiscard(opts.Logger).With("component", "ingest"),
	}
}

// HandleUpload validates the stream's signature, creates a pending record
// and stores the full body under its id. When it returns successfully both
// the row and the blob are durable.
func (s *Service) HandleUpload(ctx context.Context, filename string, body io.Reader) (*types.Audio, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, types.InvalidInput("no filename provided", nil)
	}

	br := bufio.NewReaderSize(body, audio.HeaderSize)
	header, err := br.Peek(audio.HeaderSize)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read upload header: %w", err)
	}
	contentType, err := audio.Detect(header)
	if err != nil {
		return nil, types.InvalidInput("unsupported audio file type", err)
	}

	record := &types.Audio{
		Filename:    SanitizeFilename(filename),
		ContentType: contentType,
		Status:      types.StatusPending,
	}
	if record.Filename == "" {
		return nil, types.InvalidInput("invalid filename", nil)
	}

	data, err := s.readBody(br)
	if err != nil {
		return nil, err
	}

	if err := s.records.Create(ctx, record); err != nil {
		return nil, err
	}
	logger := s.logger.With("audio_id", record.ID, "filename", record.Filename)

	if err := s.blobs.Put(ctx, record.ID.String(), data, contentType); err != nil {
		logger.Error("failed to store raw audio, record left pending", "error", err)
		return nil, fmt.Errorf("store audio %s: %w", record.ID, err)
	}

	logger.Info("audio stored", "content_type", contentType, "bytes", len(data))
	return record, nil
}

// Submit runs HandleUpload and dispatches the new record for processing.
func (s *Service) Submit(ctx context.Context, filename string, body io.Reader) (*types.Audio, error) {
	record, err := s.HandleUpload(ctx, filename, body)
	if err != nil {
		return nil, err
	}
	if err := s.dispatcher.Enqueue(ctx, record.ID); err != nil {
		s.logger.Error("failed to dispatch audio", "audio_id", record.ID, "error", err)
		return nil, fmt.Errorf("dispatch audio %s: %w", record.ID, err)
	}
	return record, nil
}

func (s *Service) readBody(r io.Reader) ([]byte, error) {
	if s.maxBytes <= 0 {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read upload: %w", err)
		}
		return data, nil
	}
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, types.InvalidInput(fmt.Sprintf("file exceeds %d bytes", s.maxBytes), nil)
	}
	return data, nil
}

// SanitizeFilename reduces name to its final path element with either
// separator style, in NFC form.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	base := filepath.Base(strings.TrimRight(name, "/"))
	if base == "." || base == ".." || base == "/" {
		return ""
	}
	return norm.NFC.String(strings.TrimSpace(base))
}
