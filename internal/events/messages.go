package events

import (
	"encoding/json"
	"fmt"
	"time"

	"piggy/internal/core"
)

// Event types carried in LedgerEvent.Type.
const (
	TransactionCreated = "transaction.created"
	TransactionDeleted = "transaction.deleted"
	GoalDeposited      = "goal.deposited"
)

// LedgerEvent is the message published after every successful ledger
// mutation. Created events carry the full transaction so consumers never
// need read access to the store.
type LedgerEvent struct {
	Type        string            `json:"type"`
	OccurredAt  time.Time         `json:"occurred_at"`
	Transaction *core.Transaction `json:"transaction,omitempty"`

	// Delete events
	TransactionID string `json:"transaction_id,omitempty"`

	// Deposit events
	GoalID       string `json:"goal_id,omitempty"`
	GoalName     string `json:"goal_name,omitempty"`
	AmountCents  int64  `json:"amount_cents,omitempty"`
	CurrentCents int64  `json:"current_cents,omitempty"`
}

func NewTransactionCreated(t core.Transaction) *LedgerEvent {
	return &LedgerEvent{
		Type:        TransactionCreated,
		OccurredAt:  time.Now().UTC(),
		Transaction: &t,
	}
}

func NewTransactionDeleted(id string) *LedgerEvent {
	return &LedgerEvent{
		Type:          TransactionDeleted,
		OccurredAt:    time.Now().UTC(),
		TransactionID: id,
	}
}

func NewGoalDeposited(g core.Goal, amount core.Money) *LedgerEvent {
	return &LedgerEvent{
		Type:         GoalDeposited,
		OccurredAt:   time.Now().UTC(),
		GoalID:       g.ID,
		GoalName:     g.Name,
		AmountCents:  amount.Cents,
		CurrentCents: g.Current.Cents,
	}
}

func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("unmarshal ledger event: %w", err)
	}
	if e.Type == "" {
		return nil, fmt.Errorf("ledger event missing type")
	}
	return &e, nil
}
