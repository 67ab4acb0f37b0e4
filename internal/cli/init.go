// Package cli is the shared bootstrap for the haushalt binaries
// (cmd/haushalt, cmd/recurring-worker, cmd/audit-worker).
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"haushalt/internal/config"
	"haushalt/internal/storage"
)

// Bootstrap loads the optional .env file, installs a text slog logger
// tagged with the binary name, and loads and validates the configuration.
// Exits the process when the configuration is invalid; a binary cannot
// run with a broken config.
func Bootstrap(binary string) (*slog.Logger, *config.Config) {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})).With("binary", binary)
	slog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	return logger, cfg
}

// OpenRepository opens the SQLite profile store, running the embedded
// schema migrations. Exits the process on failure.
func OpenRepository(logger *slog.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to open SQLite store", "error", err, "path", dbPath)
		os.Exit(1)
	}
	return repo
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM. The
// stop function releases the signal registration.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
