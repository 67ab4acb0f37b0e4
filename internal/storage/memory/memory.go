package memory

import (
	"context"
	"sort"
	"sync"

	"haushalt/internal/budget"
	"haushalt/internal/core"
)

// Store is a mutex-guarded in-memory profile store, the default backend
// for development and tests. Profiles are deep-copied on every boundary so
// callers never alias the stored document.
type Store struct {
	mu       sync.Mutex
	profiles map[string]*core.Profile
}

func New() *Store {
	return &Store{profiles: make(map[string]*core.Profile)}
}

var _ budget.ProfileStore = (*Store)(nil)

func (s *Store) LoadProfile(_ context.Context, userID string) (*core.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prof, ok := s.profiles[userID]
	if !ok {
		return nil, budget.ErrProfileNotFound
	}
	return cloneProfile(prof), nil
}

func (s *Store) CreateProfile(_ context.Context, userID string) (*core.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prof, ok := s.profiles[userID]; ok {
		return cloneProfile(prof), nil
	}
	s.profiles[userID] = &core.Profile{}
	return &core.Profile{}, nil
}

func (s *Store) SaveProfile(_ context.Context, userID string, update core.ProfileUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prof, ok := s.profiles[userID]
	if !ok {
		return budget.ErrProfileNotFound
	}
	if update.ExpectedRevision != nil && prof.Revision != *update.ExpectedRevision {
		return budget.ErrStaleProfile
	}
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
		prof.Ledger = cloneLedger(update.Ledger)
	}
	prof.Revision++
	return nil
}

func (s *Store) ListUserIDs(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
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
	out.Ledger = cloneLedger(p.Ledger)
	return out
}

func cloneLedger(in []core.Expense) []core.Expense {
	if in == nil {
		return nil
	}
	out := make([]core.Expense, len(in))
	copy(out, in)
	for i := range out {
		if out[i].Recurrence != nil {
			rule := *out[i].Recurrence
			out[i].Recurrence = &rule
		}
	}
	return out
}
