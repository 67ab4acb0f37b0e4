package budget

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"haushalt/internal/core"
)

// maxEvalAttempts bounds how often one evaluation retries after losing a
// revision-guarded save to a concurrent process.
const maxEvalAttempts = 3

// Engine is the facade the host talks to. Every session load runs the
// strict reset -> schedule -> project pipeline. Writes and scheduler
// passes for one user are serialized behind a per-user lock within this
// process; across processes sharing one store, the revision-guarded
// saves keep the at-most-once charge guarantee.
type Engine struct {
	store     ProfileStore
	service   *Service
	reset     *ResetPolicy
	scheduler *Scheduler

	locks sync.Map // userID -> *sync.Mutex
}

func NewEngine(store ProfileStore, events EventPublisher) *Engine {
	return &Engine{
		store:     store,
		service:   NewService(store, events),
		reset:     NewResetPolicy(store),
		scheduler: NewScheduler(store, events),
	}
}

// Session is the read-only view produced for one profile load.
type Session struct {
	UserID     string         `json:"userId"`
	Profile    *core.Profile  `json:"profile"`
	NeedsSetup bool           `json:"needsSetup"`
	ResetFired bool           `json:"resetFired"`
	Charges    []core.Expense `json:"appliedCharges,omitempty"`
	Forecast   *Forecast      `json:"forecast,omitempty"`
	Trajectory []float64      `json:"trajectory,omitempty"`
}

func (e *Engine) userLock(userID string) *sync.Mutex {
	mu, _ := e.locks.LoadOrStore(userID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// evaluateProfile runs the mutating half of the pipeline (reset, then
// scheduler) against prof. When a guarded save loses to another process,
// the profile is reloaded and the pass re-evaluated against the fresh
// document; the loser then sees the charged flags already set and applies
// nothing. prof is updated in place.
func (e *Engine) evaluateProfile(ctx context.Context, userID string, prof *core.Profile, now time.Time) (bool, []core.Expense, error) {
	var resetFired bool
	for attempt := 0; attempt < maxEvalAttempts; attempt++ {
		fired, err := e.reset.Evaluate(ctx, userID, prof, now)
		if err == nil {
			resetFired = resetFired || fired
			charges, err := e.scheduler.Evaluate(ctx, userID, prof, now)
			if err == nil {
				return resetFired, charges, nil
			}
			if !errors.Is(err, ErrStaleProfile) {
				return resetFired, nil, fmt.Errorf("recurring scheduler: %w", err)
			}
		} else if !errors.Is(err, ErrStaleProfile) {
			return resetFired, nil, fmt.Errorf("monthly reset: %w", err)
		}

		fresh, err := e.store.LoadProfile(ctx, userID)
		if err != nil {
			return resetFired, nil, fmt.Errorf("reload profile: %w", err)
		}
		*prof = *fresh
	}
	return resetFired, nil, fmt.Errorf("evaluate profile: %w", ErrStaleProfile)
}

// LoadSession loads (or first creates) the user's profile and runs the
// pipeline: the reset policy first, since it may rebase the profile, then
// the recurring scheduler, then the pure projections. An unconfigured
// profile short-circuits into a NeedsSetup session; that is a signal for
// the host, not an error.
func (e *Engine) LoadSession(ctx context.Context, userID string, now time.Time) (*Session, error) {
	mu := e.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	prof, err := e.service.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	session := &Session{UserID: userID, Profile: prof}
	if !prof.Configured {
		session.NeedsSetup = true
		return session, nil
	}

	resetFired, charges, err := e.evaluateProfile(ctx, userID, prof, now)
	if err != nil {
		return nil, err
	}
	session.ResetFired = resetFired
	session.Charges = charges

	forecast, err := Project(prof, now)
	if err != nil {
		return nil, fmt.Errorf("projection: %w", err)
	}
	session.Forecast = &forecast
	session.Trajectory = Trajectory(prof, now.Year(), now.Month())

	return session, nil
}

// Evaluate runs only the mutating half of the pipeline (reset and
// scheduler). The sweep worker uses it to keep due charges from waiting on
// the user's next visit.
func (e *Engine) Evaluate(ctx context.Context, userID string, now time.Time) (bool, []core.Expense, error) {
	mu := e.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	prof, err := e.store.LoadProfile(ctx, userID)
	if err != nil {
		return false, nil, fmt.Errorf("load profile: %w", err)
	}
	if !prof.Configured {
		return false, nil, nil
	}

	return e.evaluateProfile(ctx, userID, prof, now)
}

// Configure runs the initial-setup variant under the user's lock.
func (e *Engine) Configure(ctx context.Context, userID string, monthlyBudget, savingsGoal float64, now time.Time) (*core.Profile, error) {
	mu := e.userLock(userID)
	mu.Lock()
	defer mu.Unlock()
	return e.service.Configure(ctx, userID, monthlyBudget, savingsGoal, now)
}

// UpdateSettings runs the settings-update variant under the user's lock.
func (e *Engine) UpdateSettings(ctx context.Context, userID string, monthlyBudget, savingsGoal float64) (*core.Profile, error) {
	mu := e.userLock(userID)
	mu.Lock()
	defer mu.Unlock()
	return e.service.UpdateSettings(ctx, userID, monthlyBudget, savingsGoal)
}

// AddExpense appends an expense under the user's lock.
func (e *Engine) AddExpense(ctx context.Context, userID string, in ExpenseInput, now time.Time) (core.Expense, error) {
	mu := e.userLock(userID)
	mu.Lock()
	defer mu.Unlock()
	return e.service.AddExpense(ctx, userID, in, now)
}

// ExpensesInPeriod filters a profile's ledger down to one calendar month.
func (e *Engine) ExpensesInPeriod(prof *core.Profile, year int, month time.Month) []core.Expense {
	return e.service.ExpensesInPeriod(prof, year, month)
}

// ListUserIDs exposes the store's user listing for the sweep worker.
func (e *Engine) ListUserIDs(ctx context.Context) ([]string, error) {
	return e.store.ListUserIDs(ctx)
}
