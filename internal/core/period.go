// Period helpers. A period is one calendar month of budget tracking,
// bounded by reset events; expenses from prior months stay in the ledger
// and are excluded from the current period by date filtering, never by
// removal.
package core

import "time"

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// SameMonth reports whether two instants fall in the same calendar month.
func SameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// InPeriod reports whether t falls inside the given calendar month.
func InPeriod(t time.Time, year int, month time.Month) bool {
	return t.Year() == year && t.Month() == month
}

// ExpensesInPeriod is a pure date filter over the ledger, preserving
// insertion order. Templates and charges alike are returned; callers that
// aggregate amounts should use SumCharges instead.
func ExpensesInPeriod(ledger []Expense, year int, month time.Month) []Expense {
	var out []Expense
	for _, e := range ledger {
		if InPeriod(e.Date, year, month) {
			out = append(out, e)
		}
	}
	return out
}

// SumCharges totals the actual charges of a period: every ledger expense
// dated in the month that does not carry a recurrence rule. Recurring
// templates are bookkeeping records, not spending, and are skipped.
func SumCharges(ledger []Expense, year int, month time.Month) float64 {
	var sum float64
	for _, e := range ledger {
		if e.IsTemplate() {
			continue
		}
		if InPeriod(e.Date, year, month) {
			sum += e.Amount
		}
	}
	return sum
}

// SumChargesThroughDay totals the charges of a period dated on or before
// the given day of the month.
func SumChargesThroughDay(ledger []Expense, year int, month time.Month, day int) float64 {
	var sum float64
	for _, e := range ledger {
		if e.IsTemplate() {
			continue
		}
		if InPeriod(e.Date, year, month) && e.Date.Day() <= day {
			sum += e.Amount
		}
	}
	return sum
}
