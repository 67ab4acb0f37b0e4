package budget

import (
	"time"

	"haushalt/internal/core"
)

// Forecast is the end-of-month outcome extrapolated linearly from the
// spend rate observed so far. A negative ProjectedSavings is a meaningful
// overspending warning, not an error.
type Forecast struct {
	TotalSpent             float64 `json:"totalSpent"`
	DailySpendRate         float64 `json:"dailySpendRate"`
	ProjectedTotalExpenses float64 `json:"projectedTotalExpenses"`
	ProjectedSavings       float64 `json:"projectedSavings"`
	SpentPercentage        float64 `json:"spentPercentage"`
	DayOfMonth             int     `json:"dayOfMonth"`
	DaysInMonth            int     `json:"daysInMonth"`
	DaysLeft               int     `json:"daysLeft"`
}

// Trajectory produces one entry per day of the month: the available budget
// minus all charges dated on or before that day. With non-negative amounts
// the sequence is non-increasing; it backs the depletion chart.
func Trajectory(prof *core.Profile, year int, month time.Month) []float64 {
	days := core.DaysInMonth(year, month)
	available := prof.AvailableBudget()

	perDay := make([]float64, days)
	for _, e := range prof.Ledger {
		if e.IsTemplate() {
			continue
		}
		if core.InPeriod(e.Date, year, month) {
			d := e.Date.Day()
			if d >= 1 && d <= days {
				perDay[d-1] += e.Amount
			}
		}
	}

	out := make([]float64, days)
	running := available
	for d := 0; d < days; d++ {
		running -= perDay[d]
		out[d] = running
	}
	return out
}

// Project computes the savings forecast for the month containing now.
// A zero monthly budget yields a zero spent percentage rather than a
// division blow-up; dayOfMonth is always at least 1, so the spend rate is
// always defined.
func Project(prof *core.Profile, now time.Time) (Forecast, error) {
	if !prof.Configured || prof.MonthlyBudget == nil {
		return Forecast{}, ErrNotConfigured
	}

	monthlyBudget := *prof.MonthlyBudget
	year, month := now.Year(), now.Month()
	day := now.Day()
	days := core.DaysInMonth(year, month)

	totalSpent := core.SumChargesThroughDay(prof.Ledger, year, month, day)
	rate := totalSpent / float64(day)
	projectedTotal := rate * float64(days)

	f := Forecast{
		TotalSpent:             totalSpent,
		DailySpendRate:         rate,
		ProjectedTotalExpenses: projectedTotal,
		ProjectedSavings:       monthlyBudget - projectedTotal,
		DayOfMonth:             day,
		DaysInMonth:            days,
		DaysLeft:               days - day,
	}
	if monthlyBudget != 0 {
		f.SpentPercentage = totalSpent / monthlyBudget * 100
	}
	return f, nil
}
