package testsupport

import (
	"database/sql"
	"testing"

	"github.com/codebuildervaibhav/audio-spectrogram/internal/config"
	"github.com/codebuildervaibhav/audio-spectrogram/internal/storage"
)

// MustOpenDB opens the configured database and registers cleanup.
func MustOpenDB(t testing.TB, cfg *config.Config) *sql.DB {
	t.Helper()
	db, err := storage.OpenDB(cfg.Storage.Database)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

// MustOpenBuckets opens local audio and spectrogram stores under the config's local dir.
func MustOpenBuckets(t testing.TB, cfg *config.Config) (*storage.LocalStore, *storage.LocalStore) {
	t.Helper()
	audio, err := storage.NewLocalStore(cfg.Storage.LocalDir, cfg.Storage.AudioBucket)
	if err != nil {
		t.Fatalf("open audio bucket: %v", err)
	}
	spec, err := storage.NewLocalStore(cfg.Storage.LocalDir, cfg.Storage.SpectrogramBucket)
	if err != nil {
		t.Fatalf("open spectrogram bucket: %v", err)
	}
	return audio, spec
}
