package worker

import (
	"context"
	"fmt"
	"log/slog"

	"haushalt/internal/amqp"
	"haushalt/internal/storage"
)

// ChargeExporter mirrors audit entries to an external destination, such as
// a Google Sheets spreadsheet.
type ChargeExporter interface {
	Append(ctx context.Context, e storage.AuditEntry) error
}

// AuditWorker consumes ledger events and persists them as an audit trail.
// The exporter is optional; when nil, entries are only written to SQLite.
type AuditWorker struct {
	storage  *storage.SQLiteRepository
	exporter ChargeExporter
}

func NewAuditWorker(storage *storage.SQLiteRepository, exporter ChargeExporter) *AuditWorker {
	return &AuditWorker{
		storage:  storage,
		exporter: exporter,
	}
}

// HandleLedgerEvent processes a single ledger event from AMQP.
func (w *AuditWorker) HandleLedgerEvent(ctx context.Context, event *amqp.LedgerEvent) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"kind", event.Kind,
		"user_id", event.UserID,
		"name", event.Name)

	entry := storage.AuditEntry{
		UserID:     event.UserID,
		Kind:       auditKind(event.Kind),
		Name:       event.Name,
		Amount:     event.Amount,
		Category:   event.Category,
		OccurredAt: event.OccurredAt,
	}

	if _, err := w.storage.AppendAuditEntry(ctx, entry); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}

	if w.exporter != nil {
		if err := w.exporter.Append(ctx, entry); err != nil {
			// The entry is already persisted locally, so a failed export is
			// logged rather than requeued.
			slog.ErrorContext(ctx, "Failed to export audit entry",
				"user_id", event.UserID,
				"name", event.Name,
				"error", err)
		}
	}

	return nil
}

func auditKind(eventKind string) string {
	switch eventKind {
	case amqp.KindChargeApplied:
		return "recurring_charge"
	default:
		return "expense"
	}
}
