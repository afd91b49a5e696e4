package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/codebuildervaibhav/audio-spectrogram/internal/types"
)

// LocalStore keeps one bucket as a directory on the local filesystem.
// Each blob has a JSON sidecar recording its content type.
type LocalStore struct {
	dir string
}

type blobMeta struct {
	Key         string    `json:"key"`
	ContentType string    `json:"content_type"`
	Size        int       `json:"size"`
	StoredAt    time.Time `json:"stored_at"`
}

// NewLocalStore creates the bucket directory root/bucket if needed.
func NewLocalStore(root, bucket string) (*LocalStore, error) {
	if err := validateKey(bucket); err != nil {
		return nil, err
	}
	dir := filepath.Join(root, bucket)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create bucket directory: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

// Put writes data atomically; readers never observe a partial blob.
func (ls *LocalStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := writeAtomic(ls.dir, key, data); err != nil {
		return fmt.Errorf("failed to save blob %s: %w", key, err)
	}

	meta := blobMeta{Key: key, ContentType: contentType, Size: len(data), StoredAt: time.Now().UTC()}
	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := writeAtomic(ls.dir, key+"_meta.json", metaJSON); err != nil {
		return fmt.Errorf("failed to save metadata for %s: %w", key, err)
	}
	return nil
}

// Get reads a blob. Missing keys return types.ErrNotFound.
func (ls *LocalStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(ls.dir, key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("blob %s: %w", key, types.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", key, err)
	}
	return data, nil
}

// ContentType returns the type recorded when key was stored. BlobStore has
// no equivalent; it exists for inspecting a local bucket.
func (ls *LocalStore) ContentType(key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	raw, err := os.ReadFile(filepath.Join(ls.dir, key+"_meta.json"))
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("blob %s: %w", key, types.ErrNotFound)
	}
	if err != nil {
		return "", err
	}
	var meta blobMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return "", fmt.Errorf("failed to parse metadata for %s: %w", key, err)
	}
	return meta.ContentType, nil
}

// Check verifies the bucket directory exists and is a directory.
func (ls *LocalStore) Check(ctx context.Context) error {
	info, err := os.Stat(ls.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", ls.dir)
	}
	return nil
}

func writeAtomic(dir, name string, data []byte) error {
	tmp, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, filepath.Join(dir, name))
}
