package amqp

import (
	"encoding/json"
	"time"

	"fintrack/internal/core"
)

// EventType names a change to a transaction.
type EventType string

const (
	TransactionCreated EventType = "transaction.created"
	TransactionUpdated EventType = "transaction.updated"
	TransactionDeleted EventType = "transaction.deleted"
)

// TransactionEvent is published after a transaction row changed.
// Deleted events carry only the id.
type TransactionEvent struct {
	Type          EventType `json:"type"`
	TransactionID int64     `json:"transaction_id"`
	Kind          string    `json:"kind,omitempty"`
	Category      string    `json:"category,omitempty"`
	AmountCents   int64     `json:"amount_cents,omitempty"`
	Date          string    `json:"date,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewTransactionEvent builds an event from the stored row.
func NewTransactionEvent(typ EventType, t core.Transaction) *TransactionEvent {
	ev := &TransactionEvent{
		Type:          typ,
		TransactionID: t.ID,
		Timestamp:     time.Now(),
	}
	if typ != TransactionDeleted {
		ev.Kind = string(t.Type)
		ev.Category = t.Category
		ev.AmountCents = t.Amount.Cents
		ev.Date = t.Date
	}
	return ev
}

func (m *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}
