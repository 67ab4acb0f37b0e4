package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"haushalt/internal/budget"
	"haushalt/internal/core"
)

func TestLoadProfileNotFound(t *testing.T) {
	s := New()
	if _, err := s.LoadProfile(context.Background(), "nobody"); !errors.Is(err, budget.ErrProfileNotFound) {
		t.Fatalf("got %v, want ErrProfileNotFound", err)
	}
}

func TestCreateThenLoad(t *testing.T) {
	s := New()
	ctx := context.Background()

	prof, err := s.CreateProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}
	if prof.Configured || prof.MonthlyBudget != nil {
		t.Fatalf("new profile must be empty: %+v", prof)
	}

	// Creating again is a no-op returning the existing document.
	mb := 500.0
	if err := s.SaveProfile(ctx, "u1", core.ProfileUpdate{MonthlyBudget: &mb}); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}
	again, err := s.CreateProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("CreateProfile again: %v", err)
	}
	if again.MonthlyBudget == nil || *again.MonthlyBudget != 500 {
		t.Fatalf("existing profile must survive repeated creates: %+v", again)
	}
}

func TestSaveProfilePartialMerge(t *testing.T) {
	s := New()
	ctx := context.Background()
	if _, err := s.CreateProfile(ctx, "u1"); err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}

	mb, sg := 1000.0, 200.0
	configured := true
	if err := s.SaveProfile(ctx, "u1", core.ProfileUpdate{
		MonthlyBudget: &mb, SavingsGoal: &sg, Configured: &configured,
	}); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}

	// A later partial update leaves the other fields in place.
	remaining := 650.0
	if err := s.SaveProfile(ctx, "u1", core.ProfileUpdate{RemainingBudget: &remaining}); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}

	prof, err := s.LoadProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	if *prof.MonthlyBudget != 1000 || *prof.SavingsGoal != 200 || !prof.Configured {
		t.Fatalf("earlier fields lost: %+v", prof)
	}
	if *prof.RemainingBudget != 650 {
		t.Fatalf("remaining = %v, want 650", *prof.RemainingBudget)
	}
}

func TestSaveProfileLedgerReplacement(t *testing.T) {
	s := New()
	ctx := context.Background()
	if _, err := s.CreateProfile(ctx, "u1"); err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}

	ledger := []core.Expense{{Amount: 10, Name: "coffee",
		Date: time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)}}
	if err := s.SaveProfile(ctx, "u1", core.ProfileUpdate{Ledger: ledger, ReplaceLedger: true}); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}

	// Without ReplaceLedger the ledger field is ignored entirely.
	if err := s.SaveProfile(ctx, "u1", core.ProfileUpdate{Ledger: nil}); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}
	prof, _ := s.LoadProfile(ctx, "u1")
	if len(prof.Ledger) != 1 {
		t.Fatalf("ledger must be kept unless ReplaceLedger is set")
	}

	// An explicit empty replacement clears it.
	if err := s.SaveProfile(ctx, "u1", core.ProfileUpdate{Ledger: []core.Expense{}, ReplaceLedger: true}); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}
	prof, _ = s.LoadProfile(ctx, "u1")
	if len(prof.Ledger) != 0 {
		t.Fatalf("explicit empty replacement must clear the ledger")
	}
}

func TestSaveProfileUnknownUser(t *testing.T) {
	s := New()
	if err := s.SaveProfile(context.Background(), "nobody", core.ProfileUpdate{}); !errors.Is(err, budget.ErrProfileNotFound) {
		t.Fatalf("got %v, want ErrProfileNotFound", err)
	}
}

func TestLoadProfileReturnsClone(t *testing.T) {
	s := New()
	ctx := context.Background()
	if _, err := s.CreateProfile(ctx, "u1"); err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}
	ledger := []core.Expense{{Amount: 10, Name: "coffee",
		Date:       time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC),
		Recurrence: &core.RecurrenceRule{Frequency: core.Monthly, DueDay: 5}}}
	if err := s.SaveProfile(ctx, "u1", core.ProfileUpdate{Ledger: ledger, ReplaceLedger: true}); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}

	prof, _ := s.LoadProfile(ctx, "u1")
	prof.Ledger[0].Amount = 999
	prof.Ledger[0].Recurrence.AlreadyCharged = true

	fresh, _ := s.LoadProfile(ctx, "u1")
	if fresh.Ledger[0].Amount != 10 || fresh.Ledger[0].Recurrence.AlreadyCharged {
		t.Fatalf("mutating a loaded profile must not affect the store")
	}
}

func TestListUserIDsSorted(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, id := range []string{"charlie", "alice", "bob"} {
		if _, err := s.CreateProfile(ctx, id); err != nil {
			t.Fatalf("CreateProfile(%s): %v", id, err)
		}
	}
	ids, err := s.ListUserIDs(ctx)
	if err != nil {
		t.Fatalf("ListUserIDs: %v", err)
	}
	want := []string{"alice", "bob", "charlie"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids = %v, want %v", ids, want)
		}
	}
}

func TestSaveProfileRevisionGuard(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.CreateProfile(ctx, "u1"); err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}

	budget1 := 1000.0
	if err := s.SaveProfile(ctx, "u1", core.ProfileUpdate{MonthlyBudget: &budget1}); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}

	prof, _ := s.LoadProfile(ctx, "u1")
	if prof.Revision != 1 {
		t.Fatalf("revision = %d, want 1 after one save", prof.Revision)
	}

	stale := int64(0)
	budget2 := 2000.0
	err := s.SaveProfile(ctx, "u1", core.ProfileUpdate{MonthlyBudget: &budget2, ExpectedRevision: &stale})
	if !errors.Is(err, budget.ErrStaleProfile) {
		t.Fatalf("got %v, want ErrStaleProfile", err)
	}

	after, _ := s.LoadProfile(ctx, "u1")
	if *after.MonthlyBudget != 1000 || after.Revision != 1 {
		t.Fatalf("stale save must not change the document: %+v", after)
	}

	if err := s.SaveProfile(ctx, "u1", core.ProfileUpdate{MonthlyBudget: &budget2, ExpectedRevision: &after.Revision}); err != nil {
		t.Fatalf("guarded SaveProfile: %v", err)
	}
	final, _ := s.LoadProfile(ctx, "u1")
	if *final.MonthlyBudget != 2000 || final.Revision != 2 {
		t.Fatalf("guarded save not applied: %+v", final)
	}
}
