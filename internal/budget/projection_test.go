package budget

import (
	"errors"
	"testing"
	"time"

	"haushalt/internal/core"
)

func configuredProfile(monthlyBudget, savingsGoal float64, ledger []core.Expense) *core.Profile {
	month := 5
	remaining := monthlyBudget - savingsGoal - core.SumCharges(ledger, 2025, time.June)
	return &core.Profile{
		MonthlyBudget:   &monthlyBudget,
		SavingsGoal:     &savingsGoal,
		RemainingBudget: &remaining,
		LastResetMonth:  &month,
		Configured:      true,
		Ledger:          ledger,
	}
}

func TestProjectMidMonth(t *testing.T) {
	// Budget 1000 with a 200 savings goal, one 150 charge on day 5 of a
	// 30-day month.
	ledger := []core.Expense{{Amount: 150, Name: "shoes",
		Date: time.Date(2025, 6, 5, 10, 0, 0, 0, time.UTC)}}
	prof := configuredProfile(1000, 200, ledger)

	f, err := Project(prof, june5)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}

	if f.TotalSpent != 150 {
		t.Fatalf("TotalSpent = %v, want 150", f.TotalSpent)
	}
	if f.DailySpendRate != 30 {
		t.Fatalf("DailySpendRate = %v, want 30", f.DailySpendRate)
	}
	if f.ProjectedTotalExpenses != 900 {
		t.Fatalf("ProjectedTotalExpenses = %v, want 900", f.ProjectedTotalExpenses)
	}
	if f.ProjectedSavings != 100 {
		t.Fatalf("ProjectedSavings = %v, want 100", f.ProjectedSavings)
	}
	if f.SpentPercentage != 15 {
		t.Fatalf("SpentPercentage = %v, want 15", f.SpentPercentage)
	}
	if f.DayOfMonth != 5 || f.DaysInMonth != 30 || f.DaysLeft != 25 {
		t.Fatalf("calendar fields: %+v", f)
	}
}

func TestProjectOverspendIsNegativeSavings(t *testing.T) {
	ledger := []core.Expense{{Amount: 600, Name: "repair",
		Date: time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)}}
	prof := configuredProfile(1000, 200, ledger)

	f, err := Project(prof, june5)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	// 600/5*30 = 3600 projected against a 1000 budget.
	if f.ProjectedSavings != -2600 {
		t.Fatalf("ProjectedSavings = %v, want -2600", f.ProjectedSavings)
	}
}

func TestProjectZeroBudget(t *testing.T) {
	ledger := []core.Expense{{Amount: 10, Name: "x",
		Date: time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)}}
	prof := configuredProfile(0, 0, ledger)

	f, err := Project(prof, june5)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if f.SpentPercentage != 0 {
		t.Fatalf("zero budget must yield zero percentage, got %v", f.SpentPercentage)
	}
}

func TestProjectIgnoresTemplatesAndOtherMonths(t *testing.T) {
	ledger := []core.Expense{
		{Amount: 150, Name: "shoes", Date: time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)},
		{Amount: 50, Name: "rent", Date: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			Recurrence: &core.RecurrenceRule{Frequency: core.Monthly, DueDay: 1}},
		{Amount: 999, Name: "may charge", Date: time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)},
	}
	prof := configuredProfile(1000, 200, ledger)

	f, err := Project(prof, june5)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if f.TotalSpent != 150 {
		t.Fatalf("TotalSpent = %v, want 150", f.TotalSpent)
	}
}

func TestProjectUnconfigured(t *testing.T) {
	if _, err := Project(&core.Profile{}, june5); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("got %v, want ErrNotConfigured", err)
	}
}

func TestTrajectory(t *testing.T) {
	ledger := []core.Expense{
		{Amount: 150, Name: "shoes", Date: time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)},
		{Amount: 50, Name: "rent template", Date: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			Recurrence: &core.RecurrenceRule{Frequency: core.Monthly, DueDay: 1}},
	}
	prof := configuredProfile(1000, 200, ledger)

	traj := Trajectory(prof, 2025, time.June)
	if len(traj) != 30 {
		t.Fatalf("len = %d, want 30", len(traj))
	}
	if traj[3] != 800 {
		t.Fatalf("day 4 = %v, want 800 (available budget before the charge)", traj[3])
	}
	if traj[4] != 650 {
		t.Fatalf("day 5 = %v, want 650", traj[4])
	}
	if traj[29] != 650 {
		t.Fatalf("day 30 = %v, want 650", traj[29])
	}

	// Non-negative amounts make the curve non-increasing.
	for d := 1; d < len(traj); d++ {
		if traj[d] > traj[d-1] {
			t.Fatalf("trajectory increased at day %d: %v -> %v", d+1, traj[d-1], traj[d])
		}
	}
}
