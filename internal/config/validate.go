package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Validate reports configuration values the server cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port: must be in 1..65535, got %d", c.Server.Port))
	}
	if strings.TrimSpace(c.Storage.Database) == "" {
		errs = append(errs, errors.New("storage.database: required"))
	}

	switch c.Storage.Backend {
	case BackendLocal:
		if strings.TrimSpace(c.Storage.LocalDir) == "" {
			errs = append(errs, errors.New("storage.local_dir: required for local backend"))
		}
	case BackendDrive:
		if strings.TrimSpace(c.GoogleDrive.CredentialsFile) == "" {
			errs = append(errs, errors.New("google_drive.credentials_file: required for gdrive backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend: unsupported value %q", c.Storage.Backend))
	}

	if c.Storage.AudioBucket == "" || c.Storage.SpectrogramBucket == "" {
		errs = append(errs, errors.New("storage: both bucket names are required"))
	} else if c.Storage.AudioBucket == c.Storage.SpectrogramBucket {
		errs = append(errs, errors.New("storage: audio and spectrogram buckets must differ"))
	}

	positive := map[string]int{
		"workers.count":            c.Workers.Count,
		"workers.poll_interval_ms": c.Workers.PollIntervalMS,
		"workers.lease_seconds":    c.Workers.LeaseSeconds,
		"retry.max_attempts":       c.Retry.MaxAttempts,
		"retry.base_delay_ms":      c.Retry.BaseDelayMS,
		"retry.max_delay_ms":       c.Retry.MaxDelayMS,
		"cleanup.interval_minutes": c.Cleanup.IntervalMinutes,
		"limits.max_file_size_mb":  c.Limits.MaxFileSizeMB,
	}
	for _, key := range sortedKeys(positive) {
		if positive[key] <= 0 {
			errs = append(errs, fmt.Errorf("%s: must be positive, got %d", key, positive[key]))
		}
	}
	if c.Retry.MaxDelayMS < c.Retry.BaseDelayMS {
		errs = append(errs, errors.New("retry.max_delay_ms: must not be below retry.base_delay_ms"))
	}

	switch strings.ToLower(c.Logging.Format) {
	case "", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
