// Recurring charge scheduling. Each frequency has its own dueness checker
// behind a small strategy registry; only the monthly checker is registered,
// so daily and weekly rules are carried as data but never auto-charged.
package budget

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"haushalt/internal/core"
)

// FrequencyChecker decides whether a recurring template is due on a given
// evaluation.
type FrequencyChecker interface {
	IsDue(rule core.RecurrenceRule, now time.Time) bool
}

// MonthlyChecker fires exactly on the rule's due day, at most once per
// month thanks to the charged flag the reset policy clears.
type MonthlyChecker struct{}

func (MonthlyChecker) IsDue(rule core.RecurrenceRule, now time.Time) bool {
	return rule.DueDay == now.Day() && !rule.AlreadyCharged
}

var frequencyCheckers = map[core.Frequency]FrequencyChecker{
	core.Monthly: MonthlyChecker{},
}

// RegisterFrequencyChecker adds or replaces the checker for a frequency.
// Frequencies without a checker are skipped by the scheduler entirely.
func RegisterFrequencyChecker(f core.Frequency, c FrequencyChecker) {
	frequencyCheckers[f] = c
}

// Scheduler materializes due recurring charges into the ledger, at most
// once per calendar month per template. If the evaluation never runs on
// the due day, that period's charge is silently missed; there is no
// catch-up.
type Scheduler struct {
	store  ProfileStore
	events EventPublisher
}

func NewScheduler(store ProfileStore, events EventPublisher) *Scheduler {
	return &Scheduler{store: store, events: events}
}

// Evaluate runs one scheduler pass. Idempotent: a second call on the same
// day finds every due template already flagged and does nothing. All
// mutations of one pass (remaining budget, flags, materialized charges)
// are persisted in a single revision-guarded save, so two passes racing
// over one store cannot both land the same month's charge; a failed save
// leaves the in-memory profile untouched and nothing is published.
func (s *Scheduler) Evaluate(ctx context.Context, userID string, prof *core.Profile, now time.Time) ([]core.Expense, error) {
	if !prof.Configured {
		return nil, nil
	}

	var dueIdx []int
	for i, e := range prof.Ledger {
		if e.Recurrence == nil {
			continue
		}
		checker, ok := frequencyCheckers[e.Recurrence.Frequency]
		if !ok {
			continue
		}
		if checker.IsDue(*e.Recurrence, now) {
			dueIdx = append(dueIdx, i)
		}
	}
	if len(dueIdx) == 0 {
		return nil, nil
	}

	remaining := prof.AvailableBudget()
	if prof.RemainingBudget != nil {
		remaining = *prof.RemainingBudget
	}

	ledger := append([]core.Expense(nil), prof.Ledger...)
	charges := make([]core.Expense, 0, len(dueIdx))
	for _, i := range dueIdx {
		template := ledger[i]

		// The materialized charge is the audit trail of the actual
		// debit, distinct from the template that produced it.
		charge := core.Expense{
			Amount:   template.Amount,
			Name:     template.Name,
			Note:     template.Note,
			Category: template.Category,
			Date:     now,
		}
		charges = append(charges, charge)
		remaining -= charge.Amount

		rule := *template.Recurrence
		rule.AlreadyCharged = true
		ledger[i].Recurrence = &rule
	}
	ledger = append(ledger, charges...)

	update := core.ProfileUpdate{
		RemainingBudget:  &remaining,
		Ledger:           ledger,
		ReplaceLedger:    true,
		ExpectedRevision: &prof.Revision,
	}
	if err := s.store.SaveProfile(ctx, userID, update); err != nil {
		return nil, fmt.Errorf("save scheduled charges: %w", err)
	}

	prof.RemainingBudget = &remaining
	prof.Ledger = ledger
	prof.Revision++

	slog.InfoContext(ctx, "Recurring charges applied",
		"user_id", userID,
		"count", len(charges),
		"remaining_budget", remaining)

	if s.events != nil {
		for _, charge := range charges {
			if err := s.events.PublishChargeApplied(ctx, userID, charge); err != nil {
				slog.ErrorContext(ctx, "Failed to publish charge event",
					"user_id", userID, "name", charge.Name, "error", err)
			}
		}
	}

	return charges, nil
}
