package amqp

import (
	"encoding/json"
	"time"

	"haushalt/internal/core"
)

const (
	KindExpenseRecorded = "expense_recorded"
	KindChargeApplied   = "charge_applied"
)

// LedgerEvent is the message published for every ledger append: a user
// recording an expense, or the scheduler applying a recurring charge.
// The audit worker consumes these to build the audit trail.
type LedgerEvent struct {
	Kind       string    `json:"kind"`
	UserID     string    `json:"userId"`
	Name       string    `json:"name"`
	Amount     float64   `json:"amount"`
	Category   string    `json:"category,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewLedgerEvent(kind, userID string, e core.Expense) *LedgerEvent {
	return &LedgerEvent{
		Kind:       kind,
		UserID:     userID,
		Name:       e.Name,
		Amount:     e.Amount,
		Category:   e.Category,
		OccurredAt: e.Date,
		Timestamp:  time.Now(),
	}
}

func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
