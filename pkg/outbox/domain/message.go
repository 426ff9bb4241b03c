package domain

import (
	"encoding/json"
	"time"
)

// Message is one pending announcement. A row exists iff the event it carries
// has not yet been confirmed-published; rows are deleted after a confirmed
// publish and never updated in place.
type Message struct {
	ID            int64           `db:"id"`
	AggregateType string          `db:"aggregate_type"`
	AggregateID   string          `db:"aggregate_id"`
	EventType     string          `db:"event_type"`
	Payload       json.RawMessage `db:"payload"`
	CreatedAt     time.Time       `db:"created_at"`
}

// NewMessage builds an unsaved outbox message; the id and creation timestamp
// are assigned by the database on insert.
func NewMessage(aggregateType, aggregateID, eventType string, payload []byte) *Message {
	return &Message{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       payload,
	}
}
