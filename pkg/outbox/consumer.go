package outbox

import (
	"context"

	"github.com/blastkit/blast/internal/logger"
	"github.com/blastkit/blast/pkg/bus"
	"github.com/blastkit/blast/pkg/store"
)

// Consumer executes handlers for envelopes delivered by the event bus. It is
// the in-process end of the broker dispatch strategy: the dispatcher
// publishes, the broker redelivers on failure, the consumer runs handlers
// inside their own transaction.
type Consumer struct {
	store    *store.Store
	registry *Registry
	bus      bus.EventBus
}

// NewConsumer builds a consumer over the given bus and registry.
func NewConsumer(s *store.Store, registry *Registry, eventBus bus.EventBus) *Consumer {
	return &Consumer{store: s, registry: registry, bus: eventBus}
}

// Run blocks consuming envelopes until ctx is cancelled or the bus fails.
func (c *Consumer) Run(ctx context.Context) error {
	return c.bus.Consume(ctx, c.Handle)
}

// Handle processes one envelope. Envelopes with no registered handler are
// dropped (acknowledged); handler failures are returned so the bus
// redelivers.
func (c *Consumer) Handle(ctx context.Context, msg bus.Message) error {
	if !c.registry.Has(msg.EventType) {
		logger.WarnCtx(ctx, "dropping envelope with no registered handler",
			logger.KeyEventType, msg.EventType,
			logger.KeyMessageID, msg.MessageID)
		return nil
	}

	meta := metaFromHeaders(msg.Headers)

	err := c.store.WithTx(ctx, func(tx *store.Store) error {
		return c.registry.dispatch(ctx, tx, msg.EventType, msg.Payload, meta)
	})
	if err != nil {
		logger.ErrorCtx(ctx, "consumed event handling failed",
			logger.KeyEventType, msg.EventType,
			logger.KeyOutboxID, meta.OutboxID,
			logger.KeyAttempts, meta.Attempts,
			logger.KeyError, err)
		return err
	}

	logger.DebugCtx(ctx, "consumed event handled",
		logger.KeyEventType, msg.EventType,
		logger.KeyOutboxID, meta.OutboxID)
	return nil
}
