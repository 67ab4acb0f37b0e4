package budget

import (
	"context"
	"errors"
	"sort"

	"haushalt/internal/core"
)

// fakeStore mirrors the merge and revision semantics of the real stores.
// It can be told to fail saves outright, and beforeSave runs just before
// a save is applied, which the concurrent-writer tests use to interleave
// a second engine.
type fakeStore struct {
	profiles   map[string]*core.Profile
	failSave   bool
	saves      int
	beforeSave func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{profiles: make(map[string]*core.Profile)}
}

func (s *fakeStore) LoadProfile(_ context.Context, userID string) (*core.Profile, error) {
	prof, ok := s.profiles[userID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return cloneProfile(prof), nil
}

func (s *fakeStore) CreateProfile(_ context.Context, userID string) (*core.Profile, error) {
	if prof, ok := s.profiles[userID]; ok {
		return cloneProfile(prof), nil
	}
	s.profiles[userID] = &core.Profile{}
	return &core.Profile{}, nil
}

func (s *fakeStore) SaveProfile(_ context.Context, userID string, update core.ProfileUpdate) error {
	if s.beforeSave != nil {
		s.beforeSave()
	}
	if s.failSave {
		return errors.New("save failed")
	}
	prof, ok := s.profiles[userID]
	if !ok {
		return ErrProfileNotFound
	}
	if update.ExpectedRevision != nil && prof.Revision != *update.ExpectedRevision {
		return ErrStaleProfile
	}
	s.saves++
	if update.MonthlyBudget != nil {
		v := *update.MonthlyBudget
		prof.MonthlyBudget = &v
	}
	if update.SavingsGoal != nil {
		v := *update.SavingsGoal
		prof.SavingsGoal = &v
	}
	if update.RemainingBudget != nil {
		v := *update.RemainingBudget
		prof.RemainingBudget = &v
	}
	if update.LastResetMonth != nil {
		v := *update.LastResetMonth
		prof.LastResetMonth = &v
	}
	if update.Configured != nil {
		prof.Configured = *update.Configured
	}
	if update.ReplaceLedger {
		prof.Ledger = append([]core.Expense(nil), update.Ledger...)
	}
	prof.Revision++
	return nil
}

func (s *fakeStore) ListUserIDs(_ context.Context) ([]string, error) {
	ids := make([]string, 0, len(s.profiles))
	for id := range s.profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func cloneProfile(p *core.Profile) *core.Profile {
	out := &core.Profile{Configured: p.Configured, Revision: p.Revision}
	if p.MonthlyBudget != nil {
		v := *p.MonthlyBudget
		out.MonthlyBudget = &v
	}
	if p.SavingsGoal != nil {
		v := *p.SavingsGoal
		out.SavingsGoal = &v
	}
	if p.RemainingBudget != nil {
		v := *p.RemainingBudget
		out.RemainingBudget = &v
	}
	if p.LastResetMonth != nil {
		v := *p.LastResetMonth
		out.LastResetMonth = &v
	}
	if p.Ledger != nil {
		out.Ledger = make([]core.Expense, len(p.Ledger))
		copy(out.Ledger, p.Ledger)
		for i := range out.Ledger {
			if out.Ledger[i].Recurrence != nil {
				rule := *out.Ledger[i].Recurrence
				out.Ledger[i].Recurrence = &rule
			}
		}
	}
	return out
}

type publishedEvent struct {
	kind    string
	userID  string
	expense core.Expense
}

type fakePublisher struct {
	events []publishedEvent
}

func (p *fakePublisher) PublishExpenseRecorded(_ context.Context, userID string, e core.Expense) error {
	p.events = append(p.events, publishedEvent{kind: "expense_recorded", userID: userID, expense: e})
	return nil
}

func (p *fakePublisher) PublishChargeApplied(_ context.Context, userID string, e core.Expense) error {
	p.events = append(p.events, publishedEvent{kind: "charge_applied", userID: userID, expense: e})
	return nil
}

// seedProfile installs a configured profile directly into the store.
func seedProfile(s *fakeStore, userID string, monthlyBudget, savingsGoal, remaining float64, lastResetMonth int, ledger []core.Expense) {
	s.profiles[userID] = &core.Profile{
		MonthlyBudget:   &monthlyBudget,
		SavingsGoal:     &savingsGoal,
		RemainingBudget: &remaining,
		LastResetMonth:  &lastResetMonth,
		Configured:      true,
		Ledger:          ledger,
	}
}
