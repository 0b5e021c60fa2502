package outbox

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/blastkit/blast/internal/logger"
	"github.com/blastkit/blast/pkg/bus"
	"github.com/blastkit/blast/pkg/models"
	"github.com/blastkit/blast/pkg/store"
)

// Strategy selects how claimed events are executed.
type Strategy string

const (
	// StrategyDirect runs handlers in-process, inside the claiming
	// transaction.
	StrategyDirect Strategy = "direct"

	// StrategyBroker publishes envelopes to the event bus; a consumer
	// executes the handlers.
	StrategyBroker Strategy = "broker"
)

// MaxAttempts is the delivery attempt cap. The attempt that reaches it and
// still fails dead-letters the event.
const MaxAttempts = 10

// DefaultBatchSize is the number of events a tick claims unless configured
// otherwise.
const DefaultBatchSize = 50

// Backoff returns the retry delay after the given attempt count:
// exponential from 1s, capped at 60s.
func Backoff(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	if attempts > 7 {
		return 60 * time.Second
	}
	d := time.Duration(1<<(attempts-1)) * time.Second
	if d > 60*time.Second {
		return 60 * time.Second
	}
	return d
}

// DispatcherConfig configures a dispatcher.
type DispatcherConfig struct {
	Strategy  Strategy
	BatchSize int
}

// Dispatcher claims due outbox events and executes them according to its
// strategy. Ticks are safe to run concurrently across processes when the
// store is PostgreSQL; claimed rows are skip-locked.
type Dispatcher struct {
	store    *store.Store
	registry *Registry
	bus      bus.EventBus
	strategy Strategy
	batch    int
	now      func() time.Time
}

// Summary reports what one tick did.
type Summary struct {
	Claimed      int
	Processed    int
	Rescheduled  int
	DeadLettered int
}

// NewDispatcher validates the strategy against the bus and builds a
// dispatcher. Broker strategy on a disabled bus is a configuration error.
func NewDispatcher(s *store.Store, registry *Registry, eventBus bus.EventBus, config DispatcherConfig) (*Dispatcher, error) {
	switch config.Strategy {
	case StrategyDirect:
	case StrategyBroker:
		if eventBus == nil || !eventBus.IsEnabled() {
			return nil, fmt.Errorf("broker dispatch strategy requires an enabled event bus")
		}
	case "":
		config.Strategy = StrategyDirect
	default:
		return nil, fmt.Errorf("unknown dispatch strategy: %s", config.Strategy)
	}

	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}

	return &Dispatcher{
		store:    s,
		registry: registry,
		bus:      eventBus,
		strategy: config.Strategy,
		batch:    config.BatchSize,
		now:      time.Now,
	}, nil
}

// Strategy returns the active dispatch strategy.
func (d *Dispatcher) Strategy() Strategy {
	return d.strategy
}

// Tick claims one batch of due events and disposes of every claimed event:
// processed, rescheduled with backoff, or dead-lettered. The claim and all
// bookkeeping commit atomically.
func (d *Dispatcher) Tick(ctx context.Context) (Summary, error) {
	var summary Summary
	start := time.Now()

	err := d.store.WithTx(ctx, func(tx *store.Store) error {
		events, err := tx.GetReadyOutboxEvents(ctx, d.batch)
		if err != nil {
			return fmt.Errorf("failed to claim outbox events: %w", err)
		}
		summary.Claimed = len(events)

		for _, event := range events {
			d.dispose(ctx, tx, event, &summary)
			if err := tx.UpdateOutboxEvent(ctx, event); err != nil {
				return fmt.Errorf("failed to update outbox event %d: %w", event.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return Summary{}, err
	}

	if summary.Claimed > 0 {
		logger.InfoCtx(ctx, "outbox tick complete",
			logger.KeyStrategy, string(d.strategy),
			logger.KeyCount, summary.Claimed,
			"processed", summary.Processed,
			"rescheduled", summary.Rescheduled,
			"dead_lettered", summary.DeadLettered,
			logger.KeyDurationMS, logger.Duration(start))
	}
	return summary, nil
}

// dispose runs one delivery attempt and mutates the event row accordingly.
func (d *Dispatcher) dispose(ctx context.Context, tx *store.Store, event *models.OutboxEvent, summary *Summary) {
	now := d.now()

	// Retrying an event nobody handles cannot succeed; dead-letter it on
	// the spot. Broker mode defers this check to the consumer.
	if d.strategy == StrategyDirect && !d.registry.Has(event.EventType) {
		event.Attempts++
		event.MarkDeadLettered(now, fmt.Sprintf("No handler registered for event_type=%s", event.EventType))
		summary.DeadLettered++
		logger.ErrorCtx(ctx, "outbox event dead-lettered",
			logger.KeyOutboxID, event.ID,
			logger.KeyEventType, event.EventType,
			logger.KeyError, event.LastError)
		return
	}

	event.Attempts++

	err := d.attempt(ctx, tx, event)
	if err == nil {
		event.MarkProcessed(now)
		summary.Processed++
		return
	}

	if event.Attempts >= MaxAttempts {
		event.MarkDeadLettered(now, err.Error())
		summary.DeadLettered++
		logger.ErrorCtx(ctx, "outbox event dead-lettered",
			logger.KeyOutboxID, event.ID,
			logger.KeyEventType, event.EventType,
			logger.KeyAttempts, event.Attempts,
			logger.KeyError, err)
		return
	}

	event.Reschedule(now.Add(Backoff(event.Attempts)), err.Error())
	summary.Rescheduled++
	logger.WarnCtx(ctx, "outbox event rescheduled",
		logger.KeyOutboxID, event.ID,
		logger.KeyEventType, event.EventType,
		logger.KeyAttempts, event.Attempts,
		logger.KeyError, err)
}

func (d *Dispatcher) attempt(ctx context.Context, tx *store.Store, event *models.OutboxEvent) error {
	switch d.strategy {
	case StrategyBroker:
		meta := metaFromRow(event)
		return d.bus.Publish(ctx, bus.Message{
			EventType: event.EventType,
			Payload:   event.Payload,
			Headers:   meta.headers(),
			MessageID: strconv.FormatInt(event.ID, 10),
		})

	default:
		meta := metaFromRow(event)
		// Savepoint-scoped so a failed handler's partial writes roll
		// back while the batch's bookkeeping continues.
		return tx.WithTx(ctx, func(htx *store.Store) error {
			return d.registry.dispatch(ctx, htx, event.EventType, event.Payload, meta)
		})
	}
}

func metaFromRow(event *models.OutboxEvent) Meta {
	return Meta{
		OutboxID:      event.ID,
		Attempts:      event.Attempts,
		DedupKey:      event.DedupKey,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
	}
}
