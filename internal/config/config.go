package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the server looks for its configuration file.
const DefaultPath = "config/config.yaml"

// Config represents the application configuration
type Config struct {
	Server struct {
		Port int    `yaml:"port"`
		Host string `yaml:"host"`
	} `yaml:"server"`

	Storage struct {
		Database          string `yaml:"database"`
		Backend           string `yaml:"backend"`
		LocalDir          string `yaml:"local_dir"`
		AudioBucket       string `yaml:"audio_bucket"`
		SpectrogramBucket string `yaml:"spectrogram_bucket"`
	} `yaml:"storage"`

	GoogleDrive struct {
		CredentialsFile string `yaml:"credentials_file"`
		TokenFile       string `yaml:"token_file"`
		FolderName      string `yaml:"folder_name"`
	} `yaml:"google_drive"`

	Workers struct {
		Count          int `yaml:"count"`
		PollIntervalMS int `yaml:"poll_interval_ms"`
		LeaseSeconds   int `yaml:"lease_seconds"`
	} `yaml:"workers"`

	Retry struct {
		MaxAttempts int `yaml:"max_attempts"`
		BaseDelayMS int `yaml:"base_delay_ms"`
		MaxDelayMS  int `yaml:"max_delay_ms"`
	} `yaml:"retry"`

	Cleanup struct {
		IntervalMinutes int `yaml:"interval_minutes"`
	} `yaml:"cleanup"`

	Limits struct {
		MaxFileSizeMB int `yaml:"max_file_size_mb"`
	} `yaml:"limits"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// Load reads the YAML file at path over the defaults. A missing file yields
// the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()

	file, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &cfg, cfg.Validate()
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(file, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Workers.PollIntervalMS) * time.Millisecond
}

func (c *Config) Lease() time.Duration {
	return time.Duration(c.Workers.LeaseSeconds) * time.Second
}

func (c *Config) BaseDelay() time.Duration {
	return time.Duration(c.Retry.BaseDelayMS) * time.Millisecond
}

func (c *Config) MaxDelay() time.Duration {
	return time.Duration(c.Retry.MaxDelayMS) * time.Millisecond
}

func (c *Config) CleanupInterval() time.Duration {
	return time.Duration(c.Cleanup.IntervalMinutes) * time.Minute
}

// MaxUploadBytes is the body limit for a single upload.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Limits.MaxFileSizeMB) * 1024 * 1024
}
