package budget

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"haushalt/internal/core"
)

// ResetPolicy decides on each evaluation whether the profile has entered a
// new calendar month and must be rebased. Evaluation happens on the read
// path, on profile load; there is no background timer, so a month the user
// never opens the app in simply defers the reset to the next load.
type ResetPolicy struct {
	store ProfileStore
}

func NewResetPolicy(store ProfileStore) *ResetPolicy {
	return &ResetPolicy{store: store}
}

// Evaluate fires the Stale -> Current transition when lastResetMonth
// differs from the calendar month of now: the remaining budget is rebased
// to the available budget, every recurring template's charged flag is
// cleared, and lastResetMonth advances. The ledger itself is never cleared
// or archived; prior-month expenses stay and are excluded from the current
// period by date filtering.
//
// The store write happens before the in-memory profile is touched, so a
// failed save leaves no half-applied state behind. Returns whether the
// reset fired; calling it again in the same month is a no-op.
func (rp *ResetPolicy) Evaluate(ctx context.Context, userID string, prof *core.Profile, now time.Time) (bool, error) {
	if !prof.Configured {
		return false, nil
	}

	month := monthIndex(now)
	if prof.LastResetMonth != nil && *prof.LastResetMonth == month {
		return false, nil
	}

	remaining := prof.AvailableBudget()
	ledger := append([]core.Expense(nil), prof.Ledger...)
	for i := range ledger {
		if ledger[i].Recurrence != nil {
			rule := *ledger[i].Recurrence
			rule.AlreadyCharged = false
			ledger[i].Recurrence = &rule
		}
	}

	update := core.ProfileUpdate{
		RemainingBudget:  &remaining,
		LastResetMonth:   &month,
		Ledger:           ledger,
		ReplaceLedger:    true,
		ExpectedRevision: &prof.Revision,
	}
	if err := rp.store.SaveProfile(ctx, userID, update); err != nil {
		return false, fmt.Errorf("save reset profile: %w", err)
	}

	prof.RemainingBudget = &remaining
	prof.LastResetMonth = &month
	prof.Ledger = ledger
	prof.Revision++

	slog.InfoContext(ctx, "Monthly budget reset",
		"user_id", userID,
		"month", month,
		"remaining_budget", remaining)

	return true, nil
}
