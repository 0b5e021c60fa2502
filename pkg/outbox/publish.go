package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/blastkit/blast/pkg/models"
	"github.com/blastkit/blast/pkg/store"
)

// PublishOption customizes an outbox row before insertion.
type PublishOption func(*models.OutboxEvent)

// WithAvailableAt delays the event until the given time.
func WithAvailableAt(at time.Time) PublishOption {
	return func(e *models.OutboxEvent) {
		e.AvailableAt = at
	}
}

// WithDedupKey sets the consumer-side idempotency hint.
func WithDedupKey(key string) PublishOption {
	return func(e *models.OutboxEvent) {
		e.DedupKey = key
	}
}

// WithAggregate tags the event with its source aggregate for stream
// correlation.
func WithAggregate(aggregateType, aggregateID string) PublishOption {
	return func(e *models.OutboxEvent) {
		e.AggregateType = aggregateType
		e.AggregateID = aggregateID
	}
}

// Publish serializes the event and inserts its outbox row through tx.
// Call it inside the same transaction as the business write that produced
// the event; that is the whole point of the outbox.
func Publish(ctx context.Context, tx *store.Store, event Event, opts ...PublishOption) error {
	eventType := event.EventType()
	if eventType == "" {
		return fmt.Errorf("cannot publish event without a type")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", eventType, err)
	}

	row := &models.OutboxEvent{
		EventType:   eventType,
		Payload:     payload,
		AvailableAt: time.Now(),
	}

	meta := event.EventMeta()
	row.DedupKey = meta.DedupKey
	row.AggregateType = meta.AggregateType
	row.AggregateID = meta.AggregateID

	for _, opt := range opts {
		opt(row)
	}

	if err := tx.AddOutboxEvent(ctx, row); err != nil {
		return fmt.Errorf("failed to store %s event: %w", eventType, err)
	}

	meta.OutboxID = row.ID
	return nil
}
