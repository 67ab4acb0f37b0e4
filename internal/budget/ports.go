package budget

import (
	"context"
	"errors"

	"haushalt/internal/core"
)

var (
	// ErrProfileNotFound is returned by ProfileStore.LoadProfile when no
	// document exists for the user yet.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrNotConfigured signals that the profile has no budget yet. The host
	// surfaces it as a prompt to configure, not as a failure.
	ErrNotConfigured = errors.New("budget not configured")

	// ErrStaleProfile is returned by a revision-guarded SaveProfile when
	// another writer saved the document first. The caller reloads and
	// re-evaluates against the fresh profile.
	ErrStaleProfile = errors.New("profile changed concurrently")
)

// Ports for outbound adapters.
type (
	// ProfileStore is the document store holding one budget profile per
	// user. SaveProfile merges the given fields into the stored document;
	// it must not replace fields the update leaves nil. Every successful
	// save increments the document's revision, and an update carrying
	// ExpectedRevision must fail with ErrStaleProfile when the stored
	// revision has moved on.
	ProfileStore interface {
		LoadProfile(ctx context.Context, userID string) (*core.Profile, error)
		CreateProfile(ctx context.Context, userID string) (*core.Profile, error)
		SaveProfile(ctx context.Context, userID string, update core.ProfileUpdate) error
		ListUserIDs(ctx context.Context) ([]string, error)
	}

	// EventPublisher emits ledger events for the audit worker. Publishing
	// is best effort: a failed publish never fails the ledger operation.
	EventPublisher interface {
		PublishExpenseRecorded(ctx context.Context, userID string, e core.Expense) error
		PublishChargeApplied(ctx context.Context, userID string, e core.Expense) error
	}
)
