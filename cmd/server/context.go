package main

import (
	"database/sql"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/codebuildervaibhav/audio-spectrogram/internal/config"
	"github.com/codebuildervaibhav/audio-spectrogram/internal/logging"
	"github.com/codebuildervaibhav/audio-spectrogram/internal/queue"
	"github.com/codebuildervaibhav/audio-spectrogram/internal/storage"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	logger     *slog.Logger
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

// ensureConfig loads the configuration and builds the logger once per process.
// Logs go to the command's stderr so table output on stdout stays clean.
func (c *commandContext) ensureConfig(cmd *cobra.Command) (*config.Config, error) {
	c.configOnce.Do(func() {
		path := config.DefaultPath
		if c.configFlag != nil && strings.TrimSpace(*c.configFlag) != "" {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		logger, err := logging.New(logging.Options{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			Output: cmd.ErrOrStderr(),
		})
		if err != nil {
			c.configErr = err
			return
		}
		c.config, c.logger = cfg, logger
	})
	return c.config, c.configErr
}

// withTaskStore opens the database for commands that only touch the queue.
func (c *commandContext) withTaskStore(cmd *cobra.Command, fn func(*queue.Store) error) error {
	cfg, err := c.ensureConfig(cmd)
	if err != nil {
		return err
	}
	db, err := storage.OpenDB(cfg.Storage.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	store, err := queue.NewStore(cmd.Context(), db)
	if err != nil {
		return err
	}
	return fn(store)
}

func closeDB(db *sql.DB, logger *slog.Logger) {
	if err := db.Close(); err != nil {
		logger.Warn("failed to close database", "error", err)
	}
}
