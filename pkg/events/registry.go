package events

import (
	"encoding/json"
	"fmt"
)

type entry struct {
	topic  string
	decode func(payload []byte) (any, error)
}

// Registry resolves a stored event type name to its topic and decoder. The
// outbox relayer uses it to turn a persisted row back into a publishable
// event value.
type Registry struct {
	entries map[string]entry
}

// NewRegistry returns a registry preloaded with every saga event.
func NewRegistry() *Registry {
	r := &Registry{entries: make(map[string]entry)}
	register[OrderCreatedEvent](r, TypeOrderCreated, TopicOrderCreated)
	register[StockReservedEvent](r, TypeStockReserved, TopicStockReserved)
	register[StockReservationFailedEvent](r, TypeStockReservationFailed, TopicStockReservationFailed)
	return r
}

func register[E any](r *Registry, eventType, topic string) {
	r.entries[eventType] = entry{
		topic: topic,
		decode: func(payload []byte) (any, error) {
			var event E
			if err := json.Unmarshal(payload, &event); err != nil {
				return nil, err
			}
			return &event, nil
		},
	}
}

func (r *Registry) Decode(eventType string, payload []byte) (any, error) {
	e, ok := r.entries[eventType]
	if !ok {
		return nil, fmt.Errorf("unknown event type %q", eventType)
	}
	event, err := e.decode(payload)
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", eventType, err)
	}
	return event, nil
}

func (r *Registry) TopicFor(eventType string) (string, error) {
	e, ok := r.entries[eventType]
	if !ok {
		return "", fmt.Errorf("unknown event type %q", eventType)
	}
	return e.topic, nil
}
