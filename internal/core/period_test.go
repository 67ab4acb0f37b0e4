package core

import (
	"testing"
	"time"
)

func TestDaysInMonth(t *testing.T) {
	cases := []struct {
		year  int
		month time.Month
		want  int
	}{
		{2025, time.January, 31},
		{2025, time.February, 28},
		{2024, time.February, 29},
		{2025, time.April, 30},
		{2025, time.December, 31},
	}
	for i, tc := range cases {
		if got := DaysInMonth(tc.year, tc.month); got != tc.want {
			t.Fatalf("case %d: DaysInMonth(%d, %v) = %d, want %d", i, tc.year, tc.month, got, tc.want)
		}
	}
}

func TestSameMonth(t *testing.T) {
	a := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	b := time.Date(2025, 6, 30, 23, 59, 0, 0, time.UTC)
	c := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	if !SameMonth(a, b) {
		t.Fatalf("expected same month for %v and %v", a, b)
	}
	if SameMonth(a, c) {
		t.Fatalf("different years must not be the same month")
	}
}

func testLedger() []Expense {
	day := func(d int) time.Time { return time.Date(2025, 6, d, 0, 0, 0, 0, time.UTC) }
	return []Expense{
		{Amount: 100, Name: "groceries", Date: day(2)},
		{Amount: 50, Name: "rent", Date: day(1),
			Recurrence: &RecurrenceRule{Frequency: Monthly, DueDay: 1}},
		{Amount: 30, Name: "fuel", Date: day(10)},
		{Amount: 80, Name: "old charge", Date: time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)},
	}
}

func TestExpensesInPeriod(t *testing.T) {
	got := ExpensesInPeriod(testLedger(), 2025, time.June)
	if len(got) != 3 {
		t.Fatalf("got %d entries, want 3", len(got))
	}
	// Insertion order is preserved and templates are included.
	if got[0].Name != "groceries" || got[1].Name != "rent" || got[2].Name != "fuel" {
		t.Fatalf("unexpected order: %v, %v, %v", got[0].Name, got[1].Name, got[2].Name)
	}
}

func TestSumChargesSkipsTemplates(t *testing.T) {
	if got := SumCharges(testLedger(), 2025, time.June); got != 130 {
		t.Fatalf("got %v, want 130", got)
	}
	if got := SumCharges(testLedger(), 2025, time.May); got != 80 {
		t.Fatalf("prior month: got %v, want 80", got)
	}
}

func TestSumChargesThroughDay(t *testing.T) {
	cases := []struct {
		day  int
		want float64
	}{
		{1, 0},
		{2, 100},
		{9, 100},
		{10, 130},
		{30, 130},
	}
	for i, tc := range cases {
		if got := SumChargesThroughDay(testLedger(), 2025, time.June, tc.day); got != tc.want {
			t.Fatalf("case %d: day %d got %v, want %v", i, tc.day, got, tc.want)
		}
	}
}
