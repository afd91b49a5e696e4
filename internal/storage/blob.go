package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/codebuildervaibhav/audio-spectrogram/internal/config"
	"github.com/codebuildervaibhav/audio-spectrogram/internal/types"
)

// BlobStore is one logical bucket of immutable blobs keyed by record id.
// Get on a missing key fails with types.ErrNotFound.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Check(ctx context.Context) error
}

// Buckets holds the two logical stores.
type Buckets struct {
	Audio       BlobStore
	Spectrogram BlobStore
}

// OpenBuckets builds the configured backend for both buckets and verifies
// each is reachable.
func OpenBuckets(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Buckets, error) {
	var b Buckets

	switch cfg.Storage.Backend {
	case config.BackendDrive:
		client, err := NewDriveClient(ctx, cfg.GoogleDrive.CredentialsFile, cfg.GoogleDrive.TokenFile, cfg.GoogleDrive.FolderName)
		if err != nil {
			return nil, err
		}
		if b.Audio, err = client.Bucket(ctx, cfg.Storage.AudioBucket); err != nil {
			return nil, err
		}
		if b.Spectrogram, err = client.Bucket(ctx, cfg.Storage.SpectrogramBucket); err != nil {
			return nil, err
		}
	default:
		audio, err := NewLocalStore(cfg.Storage.LocalDir, cfg.Storage.AudioBucket)
		if err != nil {
			return nil, err
		}
		spec, err := NewLocalStore(cfg.Storage.LocalDir, cfg.Storage.SpectrogramBucket)
		if err != nil {
			return nil, err
		}
		b.Audio, b.Spectrogram = audio, spec
	}

	for name, store := range map[string]BlobStore{
		cfg.Storage.AudioBucket:       b.Audio,
		cfg.Storage.SpectrogramBucket: b.Spectrogram,
	} {
		if err := store.Check(ctx); err != nil {
			return nil, fmt.Errorf("bucket %s unavailable: %w", name, err)
		}
	}

	if logger != nil {
		logger.Info("object store ready",
			"backend", cfg.Storage.Backend,
			"audio_bucket", cfg.Storage.AudioBucket,
			"spectrogram_bucket", cfg.Storage.SpectrogramBucket)
	}
	return &b, nil
}

func validateKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("%w: invalid blob key %q", types.ErrInvalidInput, key)
	}
	return nil
}
