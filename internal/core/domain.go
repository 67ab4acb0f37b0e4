package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

// DueDay bounds for recurrence rules. Days 28-31 are excluded on purpose:
// every month has a day 27, so a due day can never fall in a calendar gap.
const (
	MinDueDay = 1
	MaxDueDay = 27
)

type (
	Frequency string

	// RecurrenceRule marks an expense as a repeating charge template.
	// Only monthly rules are actively scheduled; daily and weekly are
	// accepted as data but never auto-charged.
	RecurrenceRule struct {
		Frequency      Frequency `json:"frequency"`
		DueDay         int       `json:"dueDay"`
		AlreadyCharged bool      `json:"alreadyChargedThisMonth"`
	}

	// Expense is one recorded charge. An expense carrying a RecurrenceRule
	// is a recurring template; the scheduler materializes plain copies of
	// it, which form the audit trail of the actual charges.
	Expense struct {
		Amount     float64         `json:"amount"`
		Name       string          `json:"name"`
		Note       string          `json:"note,omitempty"`
		Category   string          `json:"category,omitempty"`
		Date       time.Time       `json:"date"`
		Recurrence *RecurrenceRule `json:"recurrence,omitempty"`
	}

	// Profile is the per-user budget document. All budget fields are nil
	// until the user configures a budget; Configured gates every other
	// operation.
	Profile struct {
		MonthlyBudget   *float64  `json:"monthlyBudget"`
		SavingsGoal     *float64  `json:"savingsGoal"`
		RemainingBudget *float64  `json:"remainingBudget"`
		LastResetMonth  *int      `json:"lastResetMonth"` // 0-11
		Configured      bool      `json:"budgetConfigured"`
		Ledger          []Expense `json:"expenses"`

		// Revision counts successful saves of this document. Store
		// bookkeeping for conditional writes, not part of the document
		// itself.
		Revision int64 `json:"-"`
	}

	// ProfileUpdate is a partial-field merge applied by ProfileStore.SaveProfile.
	// Nil fields are left untouched in the stored document. The ledger is
	// replaced only when ReplaceLedger is set, so an empty slice can still
	// be written explicitly.
	ProfileUpdate struct {
		MonthlyBudget   *float64
		SavingsGoal     *float64
		RemainingBudget *float64
		LastResetMonth  *int
		Configured      *bool
		Ledger          []Expense
		ReplaceLedger   bool

		// ExpectedRevision, when set, makes the save conditional: the
		// store applies the update only if the document's revision still
		// matches, so two processes cannot apply the same month's charges
		// twice against one shared store.
		ExpectedRevision *int64
	}
)

var (
	ErrEmptyName        = errors.New("empty expense name")
	ErrZeroDate         = errors.New("expense date cannot be zero")
	ErrInvalidDueDay    = errors.New("due day must be between 1 and 27")
	ErrInvalidFrequency = errors.New("invalid recurrence frequency")
)

func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Monthly:
		return true
	}
	return false
}

func (r RecurrenceRule) Validate() error {
	if !r.Frequency.Valid() {
		return ErrInvalidFrequency
	}
	if r.DueDay < MinDueDay || r.DueDay > MaxDueDay {
		return ErrInvalidDueDay
	}
	return nil
}

// Validate checks the descriptive fields and the recurrence rule if present.
// Amounts are not validated here: positive amounts are a caller convention,
// not an engine rule.
func (e Expense) Validate() error {
	if e.Date.IsZero() {
		return ErrZeroDate
	}
	if len(strings.TrimSpace(e.Name)) == 0 {
		return ErrEmptyName
	}
	if len(e.Name) > 200 {
		return errors.New("expense name too long (max 200 characters)")
	}
	if e.Recurrence != nil {
		return e.Recurrence.Validate()
	}
	return nil
}

// IsTemplate reports whether the expense is a recurring template rather
// than an actual charge.
func (e Expense) IsTemplate() bool {
	return e.Recurrence != nil
}

// AvailableBudget is the spendable ceiling for one period:
// monthly budget minus savings goal. Zero while unconfigured.
func (p *Profile) AvailableBudget() float64 {
	if p.MonthlyBudget == nil || p.SavingsGoal == nil {
		return 0
	}
	return *p.MonthlyBudget - *p.SavingsGoal
}
