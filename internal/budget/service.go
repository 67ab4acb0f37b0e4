package budget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"haushalt/internal/core"
)

// Service owns the write path of a budget profile: configuration and
// ledger appends. Reads go through the session pipeline instead.
type Service struct {
	store  ProfileStore
	events EventPublisher
}

func NewService(store ProfileStore, events EventPublisher) *Service {
	return &Service{store: store, events: events}
}

// ExpenseInput carries the caller-provided fields of a new expense.
// A zero Date means "now".
type ExpenseInput struct {
	Amount     float64
	Name       string
	Note       string
	Category   string
	Date       time.Time
	Recurrence *core.RecurrenceRule
}

// monthIndex maps a time to the 0-11 calendar month index stored in
// lastResetMonth.
func monthIndex(t time.Time) int {
	return int(t.Month()) - 1
}

// loadOrCreate reads the user's profile, creating an unconfigured one on
// first sight. Profile creation is a side effect of the first read.
func (s *Service) loadOrCreate(ctx context.Context, userID string) (*core.Profile, error) {
	prof, err := s.store.LoadProfile(ctx, userID)
	if errors.Is(err, ErrProfileNotFound) {
		prof, err = s.store.CreateProfile(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("create profile: %w", err)
		}
		slog.InfoContext(ctx, "Created empty budget profile", "user_id", userID)
		return prof, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return prof, nil
}

// Configure is the initial-setup variant: it sets both budget parameters,
// rebases the remaining budget to the new available budget and starts the
// current period. Re-invoking it discards the running total for the month.
func (s *Service) Configure(ctx context.Context, userID string, monthlyBudget, savingsGoal float64, now time.Time) (*core.Profile, error) {
	prof, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	remaining := monthlyBudget - savingsGoal
	month := monthIndex(now)
	configured := true
	update := core.ProfileUpdate{
		MonthlyBudget:   &monthlyBudget,
		SavingsGoal:     &savingsGoal,
		RemainingBudget: &remaining,
		LastResetMonth:  &month,
		Configured:      &configured,
	}
	if err := s.store.SaveProfile(ctx, userID, update); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}

	prof.MonthlyBudget = &monthlyBudget
	prof.SavingsGoal = &savingsGoal
	prof.RemainingBudget = &remaining
	prof.LastResetMonth = &month
	prof.Configured = true

	slog.InfoContext(ctx, "Budget configured",
		"user_id", userID,
		"monthly_budget", monthlyBudget,
		"savings_goal", savingsGoal,
		"remaining_budget", remaining)

	return prof, nil
}

// UpdateSettings is the settings-update variant: it overwrites the budget
// parameters but leaves the remaining budget and the ledger untouched.
// The new parameters take full effect at the next monthly reset.
func (s *Service) UpdateSettings(ctx context.Context, userID string, monthlyBudget, savingsGoal float64) (*core.Profile, error) {
	prof, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !prof.Configured {
		return nil, ErrNotConfigured
	}

	update := core.ProfileUpdate{
		MonthlyBudget: &monthlyBudget,
		SavingsGoal:   &savingsGoal,
	}
	if err := s.store.SaveProfile(ctx, userID, update); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}

	prof.MonthlyBudget = &monthlyBudget
	prof.SavingsGoal = &savingsGoal

	slog.InfoContext(ctx, "Budget settings updated",
		"user_id", userID,
		"monthly_budget", monthlyBudget,
		"savings_goal", savingsGoal)

	return prof, nil
}

// maxSaveAttempts bounds how often a ledger append retries after a
// revision-guarded save loses to a concurrent writer, such as a sweep
// worker charging the same profile from another process.
const maxSaveAttempts = 3

// AddExpense appends a new expense to the ledger. One-off charges
// decrement the remaining budget atomically with the append; recurring
// templates only register the rule and leave the running total alone.
// The save is revision-guarded and recomputed from a fresh profile on
// conflict, so a concurrent write in another process is never lost to
// the ledger replacement.
func (s *Service) AddExpense(ctx context.Context, userID string, in ExpenseInput, now time.Time) (core.Expense, error) {
	date := in.Date
	if date.IsZero() {
		date = now
	}
	expense := core.Expense{
		Amount:     in.Amount,
		Name:       in.Name,
		Note:       in.Note,
		Category:   in.Category,
		Date:       date,
		Recurrence: in.Recurrence,
	}
	if err := expense.Validate(); err != nil {
		return core.Expense{}, fmt.Errorf("validate expense: %w", err)
	}

	saved := false
	for attempt := 0; attempt < maxSaveAttempts && !saved; attempt++ {
		prof, err := s.loadOrCreate(ctx, userID)
		if err != nil {
			return core.Expense{}, err
		}
		if !prof.Configured {
			return core.Expense{}, ErrNotConfigured
		}

		ledger := append(append([]core.Expense(nil), prof.Ledger...), expense)
		update := core.ProfileUpdate{
			Ledger:           ledger,
			ReplaceLedger:    true,
			ExpectedRevision: &prof.Revision,
		}

		remaining := prof.AvailableBudget()
		if prof.RemainingBudget != nil {
			remaining = *prof.RemainingBudget
		}
		if !expense.IsTemplate() {
			remaining -= expense.Amount
			update.RemainingBudget = &remaining
		}

		err = s.store.SaveProfile(ctx, userID, update)
		if errors.Is(err, ErrStaleProfile) {
			continue
		}
		if err != nil {
			return core.Expense{}, fmt.Errorf("save profile: %w", err)
		}
		saved = true
	}
	if !saved {
		return core.Expense{}, fmt.Errorf("save profile: %w", ErrStaleProfile)
	}

	slog.InfoContext(ctx, "Expense recorded",
		"user_id", userID,
		"name", expense.Name,
		"amount", expense.Amount,
		"category", expense.Category,
		"recurring", expense.IsTemplate())

	if s.events != nil {
		if err := s.events.PublishExpenseRecorded(ctx, userID, expense); err != nil {
			// The ledger write already succeeded; audit sync catches up later.
			slog.ErrorContext(ctx, "Failed to publish expense event",
				"user_id", userID, "error", err)
		}
	}

	return expense, nil
}

// ExpensesInPeriod returns the ledger entries dated in the given month.
func (s *Service) ExpensesInPeriod(prof *core.Profile, year int, month time.Month) []core.Expense {
	return core.ExpensesInPeriod(prof.Ledger, year, month)
}
