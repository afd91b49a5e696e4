package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"

	"github.com/codebuildervaibhav/audio-spectrogram/internal/handlers"
	"github.com/codebuildervaibhav/audio-spectrogram/internal/ingest"
)

// multipart framing on top of the raw file limit
const uploadOverheadBytes = 1 << 20

func newServeCommand(ctx *commandContext) *cobra.Command {
	var workers bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (and by default the worker pool)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig(cmd)
			if err != nil {
				return err
			}
			log := ctx.logger

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc, err := openServices(runCtx, cfg, log)
			if err != nil {
				return err
			}
			if workers {
				svc.startBackground(runCtx)
			}

			uploads := ingest.NewService(svc.records, svc.buckets.Audio, svc.pool, ingest.Options{
				MaxBytes: cfg.MaxUploadBytes(),
				Logger:   log,
			})

			app := fiber.New(fiber.Config{
				BodyLimit:             int(cfg.MaxUploadBytes()) + uploadOverheadBytes,
				DisableStartupMessage: true,
			})
			app.Use(recover.New())
			app.Use(logger.New())
			app.Use(cors.New(cors.Config{
				AllowOrigins: "*",
				AllowHeaders: "Origin, Content-Type, Accept",
			}))

			handlers.Register(app, handlers.Routes{
				Upload: handlers.NewUploadHandler(uploads, log),
				Audio:  handlers.NewAudioHandler(svc.records, svc.buckets.Spectrogram, log),
				Stream: handlers.NewStreamHandler(svc.records, time.Second, log),
				Health: handlers.NewHealthHandler(svc.tasks, log),
			})

			go func() {
				<-runCtx.Done()
				log.Info("shutting down gracefully")
				if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
					log.Warn("http shutdown incomplete", "error", err)
				}
			}()

			addr := cfg.Addr()
			log.Info("server starting", "addr", addr, "workers", workers)
			listenErr := app.Listen(addr)

			stop()
			svc.stop()
			if listenErr != nil && !errors.Is(listenErr, context.Canceled) {
				return listenErr
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&workers, "workers", true, "Run the worker pool and lease reaper in this process")
	return cmd
}

func newWorkerCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run only the worker pool and lease reaper",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig(cmd)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc, err := openServices(runCtx, cfg, ctx.logger)
			if err != nil {
				return err
			}
			svc.startBackground(runCtx)

			<-runCtx.Done()
			ctx.logger.Info("shutting down workers")
			svc.stop()
			return nil
		},
	}
}
