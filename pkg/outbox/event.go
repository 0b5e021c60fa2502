// Package outbox implements the transactional outbox: durable domain events
// written alongside business state and delivered by a retrying dispatcher,
// either in-process or through a broker.
package outbox

import (
	"strconv"

	"github.com/blastkit/blast/pkg/bus"
)

// Meta is the transport context of an event: which outbox row it came from
// and the hints the consumer side may use for idempotency and stream
// correlation. Embed it in every event struct; the fields never serialize
// into the payload.
type Meta struct {
	OutboxID      int64  `json:"-"`
	Attempts      int    `json:"-"`
	DedupKey      string `json:"-"`
	AggregateType string `json:"-"`
	AggregateID   string `json:"-"`
}

// EventMeta returns the embedded transport context.
func (m *Meta) EventMeta() *Meta {
	return m
}

// Event is a typed domain event. Concrete events embed Meta and return a
// stable, versioned type tag from EventType.
type Event interface {
	EventType() string
	EventMeta() *Meta
}

// headers flattens the meta onto broker envelope headers.
func (m *Meta) headers() map[string]string {
	h := map[string]string{
		bus.HeaderOutboxID: strconv.FormatInt(m.OutboxID, 10),
		bus.HeaderAttempts: strconv.Itoa(m.Attempts),
	}
	if m.DedupKey != "" {
		h[bus.HeaderDedupKey] = m.DedupKey
	}
	if m.AggregateType != "" {
		h[bus.HeaderAggregateType] = m.AggregateType
	}
	if m.AggregateID != "" {
		h[bus.HeaderAggregateID] = m.AggregateID
	}
	return h
}

// metaFromHeaders rebuilds the transport context from envelope headers.
func metaFromHeaders(headers map[string]string) Meta {
	var m Meta
	if v, ok := headers[bus.HeaderOutboxID]; ok {
		m.OutboxID, _ = strconv.ParseInt(v, 10, 64)
	}
	if v, ok := headers[bus.HeaderAttempts]; ok {
		m.Attempts, _ = strconv.Atoi(v)
	}
	m.DedupKey = headers[bus.HeaderDedupKey]
	m.AggregateType = headers[bus.HeaderAggregateType]
	m.AggregateID = headers[bus.HeaderAggregateID]
	return m
}
