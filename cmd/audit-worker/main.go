package main

import (
	"context"
	"errors"
	"os"

	"haushalt/internal/amqp"
	"haushalt/internal/cli"
	"haushalt/internal/export/google"
	"haushalt/internal/worker"
)

// The audit worker consumes ledger events from AMQP and persists them as
// an append-only audit trail, optionally mirroring rows to Google Sheets.
func main() {
	logger, cfg := cli.Bootstrap("audit-worker")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the audit worker")
		os.Exit(1)
	}

	repo := cli.OpenRepository(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	var exporter worker.ChargeExporter
	if cfg.GoogleSpreadsheetID != "" {
		sheets, err := google.NewFromEnv(context.Background())
		if err != nil {
			logger.Warn("Failed to initialize Google Sheets export, continuing without it", "error", err)
		} else {
			exporter = sheets
			logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
		}
	}

	auditWorker := worker.NewAuditWorker(repo, exporter)

	ctx, stop := cli.SignalContext()
	defer stop()

	logger.Info("Audit worker consuming ledger events", "queue", cfg.AMQPQueue)

	// Blocks until the context is cancelled or the channel breaks.
	err = amqpClient.ConsumeLedgerEvents(ctx, func(event *amqp.LedgerEvent) error {
		return auditWorker.HandleLedgerEvent(ctx, event)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Ledger event consumption stopped", "error", err)
		os.Exit(1)
	}

	logger.Info("Audit worker shutdown complete")
}
