package config

// Storage backends.
const (
	BackendLocal = "local"
	BackendDrive = "gdrive"
)

// Default returns a configuration with every field populated.
func Default() Config {
	var cfg Config

	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 8000

	cfg.Storage.Database = "data/audio.db"
	cfg.Storage.Backend = BackendLocal
	cfg.Storage.LocalDir = "data/blobs"
	cfg.Storage.AudioBucket = "audio"
	cfg.Storage.SpectrogramBucket = "spectrogram"

	cfg.GoogleDrive.CredentialsFile = "config/credentials.json"
	cfg.GoogleDrive.TokenFile = "config/token.json"
	cfg.GoogleDrive.FolderName = "AudioSpectrograms"

	cfg.Workers.Count = 2
	cfg.Workers.PollIntervalMS = 500
	cfg.Workers.LeaseSeconds = 300

	// Mirrors a max_retries=5 policy: one delivery plus five retries.
	cfg.Retry.MaxAttempts = 6
	cfg.Retry.BaseDelayMS = 1000
	cfg.Retry.MaxDelayMS = 600000

	cfg.Cleanup.IntervalMinutes = 1

	cfg.Limits.MaxFileSizeMB = 100

	cfg.Logging.Level = "info"

	return cfg
}
