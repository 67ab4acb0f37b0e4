package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"haushalt/internal/amqp"
	"haushalt/internal/budget"
	"haushalt/internal/cli"
)

// The sweep worker walks every known profile and applies monthly resets
// and due recurring charges without waiting for the user's next visit.
// Each per-user pass is idempotent and every mutating save is
// revision-guarded, so a pass overlapping a live server session converges
// without double-applying a charge.
func main() {
	logger, cfg := cli.Bootstrap("recurring-worker")

	if cfg.DataBackend != "sqlite" {
		logger.Error("Sweep worker requires the sqlite backend", "backend", cfg.DataBackend)
		os.Exit(1)
	}

	repo := cli.OpenRepository(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	var events budget.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without ledger events", "error", err)
		} else {
			defer client.Close()
			events = client
		}
	}

	engine := budget.NewEngine(repo, events)

	ctx, stop := cli.SignalContext()
	defer stop()

	logger.Info("Recurring sweep worker configured",
		"interval", cfg.SweepInterval,
		"concurrency", cfg.SweepConcurrency,
		"sqlite_db", cfg.SQLiteDBPath)

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	// Run an initial sweep on startup
	runSweep(ctx, engine, cfg.SweepConcurrency)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Recurring sweep worker shutdown complete")
			return
		case <-ticker.C:
			runSweep(ctx, engine, cfg.SweepConcurrency)
		}
	}
}

func runSweep(ctx context.Context, engine *budget.Engine, concurrency int) {
	start := time.Now()

	userIDs, err := engine.ListUserIDs(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to list users for sweep", "error", err)
		return
	}

	var resets, charges int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	results := make(chan [2]int64, len(userIDs))
	for _, userID := range userIDs {
		g.Go(func() error {
			resetFired, applied, err := engine.Evaluate(gctx, userID, time.Now())
			if err != nil {
				// One broken profile should not stop the sweep.
				slog.ErrorContext(gctx, "Sweep failed for user", "user_id", userID, "error", err)
				return nil
			}
			var r int64
			if resetFired {
				r = 1
			}
			results <- [2]int64{r, int64(len(applied))}
			return nil
		})
	}
	_ = g.Wait()
	close(results)

	for res := range results {
		resets += res[0]
		charges += res[1]
	}

	slog.InfoContext(ctx, "Sweep complete",
		"users", len(userIDs),
		"resets", resets,
		"charges_applied", charges,
		"duration_ms", time.Since(start).Milliseconds())
}
