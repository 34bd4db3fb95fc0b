// Package main implements the entry point for the Flashlet API server, which
// serves flashcard sets and the accounts that own them.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/phrazzld/flashlet-api/internal/config"
	"github.com/phrazzld/flashlet-api/internal/platform/logger"
)

// sentryFlushTimeout bounds how long shutdown waits for queued error reports.
const sentryFlushTimeout = 2 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}

// run loads configuration, wires the application and serves until ctx is
// canceled.
func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	appLogger.Info("Server configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.Bool("cache_enabled", cfg.Cache.Enabled),
		slog.Bool("uploads_enabled", cfg.Storage.Endpoint != ""),
		slog.Bool("smtp_enabled", cfg.Mail.SMTPHost != ""))

	if err := setupSentry(cfg.Sentry); err != nil {
		appLogger.Error("Sentry initialization failed", slog.String("error", err.Error()))
	} else if cfg.Sentry.DSN != "" {
		defer sentry.Flush(sentryFlushTimeout)
	}

	db, err := setupAppDatabase(ctx, cfg, appLogger)
	if err != nil {
		return err
	}

	app, err := newApplication(ctx, cfg, appLogger, db)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return app.Run(ctx)
}

// setupSentry initializes error reporting. An empty DSN leaves it disabled.
func setupSentry(cfg config.SentryConfig) error {
	if cfg.DSN == "" {
		return nil
	}
	return sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		AttachStacktrace: true,
		SendDefaultPII:   false,
	})
}
