package testsupport

import (
	"path/filepath"
	"testing"

	"github.com/codebuildervaibhav/audio-spectrogram/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config rooted in a per-test temp directory.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Storage.Database = filepath.Join(base, "audio.db")
	cfg.Storage.LocalDir = filepath.Join(base, "blobs")
	cfg.Workers.Count = 1
	cfg.Workers.PollIntervalMS = 10
	cfg.Retry.BaseDelayMS = 1
	cfg.Retry.MaxDelayMS = 5

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithMaxAttempts overrides the delivery attempt limit.
func WithMaxAttempts(n int) ConfigOption {
	return func(c *config.Config) {
		c.Retry.MaxAttempts = n
	}
}
