// Package bus is the broker port used by the outbox dispatcher's broker
// strategy. Implementations carry opaque event envelopes; they never
// interpret payloads.
package bus

import (
	"context"
	"encoding/json"
)

// Header keys carried alongside every envelope. They let the consumer
// rebuild the event's transport context without touching the payload.
const (
	HeaderOutboxID      = "outbox_id"
	HeaderAttempts      = "attempts"
	HeaderDedupKey      = "dedup_key"
	HeaderAggregateType = "aggregate_type"
	HeaderAggregateID   = "aggregate_id"
)

// Message is the wire envelope. It is serialized as-is to JSON; the routing
// key on the broker side is always EventType.
type Message struct {
	EventType string            `json:"event_type"`
	Payload   json.RawMessage   `json:"payload"`
	Headers   map[string]string `json:"headers,omitempty"`
	MessageID string            `json:"message_id"`
}

// Encode serializes the envelope for the wire.
func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Decode parses a wire envelope.
func Decode(body []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(body, &m); err != nil {
		return Message{}, err
	}
	return m, nil
}

// HandlerFunc processes one consumed envelope. Returning an error asks the
// bus to redeliver the message; returning nil acknowledges it.
type HandlerFunc func(ctx context.Context, msg Message) error

// EventBus publishes and consumes event envelopes.
type EventBus interface {
	// IsEnabled reports whether the bus is configured for real delivery.
	// The broker dispatch strategy refuses to start on a disabled bus.
	IsEnabled() bool

	// Publish sends one envelope. Delivery is durable where the backend
	// supports it.
	Publish(ctx context.Context, msg Message) error

	// Consume blocks, delivering envelopes to handler until ctx is
	// cancelled or the connection fails.
	Consume(ctx context.Context, handler HandlerFunc) error

	Close() error
}
