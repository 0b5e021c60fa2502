package worker

import (
	"context"
	"time"

	"github.com/blastkit/blast/internal/logger"
	"github.com/blastkit/blast/pkg/metrics"
	"github.com/blastkit/blast/pkg/outbox"
	"github.com/blastkit/blast/pkg/store"
)

// Well-known job names for CLI selection.
const (
	JobDispatchOutbox = "dispatch_outbox_events"
	JobConsumeBus     = "consume_event_bus_messages"
)

// DefaultDispatchInterval is how often the outbox is polled when the
// configuration does not say otherwise.
const DefaultDispatchInterval = 2 * time.Second

// DispatchOutboxJob ticks the outbox dispatcher and reports the processed,
// rescheduled and dead-lettered counters plus the pending backlog gauge.
func DispatchOutboxJob(dispatcher *outbox.Dispatcher, db *store.Store, m *metrics.Metrics, interval time.Duration) Job {
	if interval <= 0 {
		interval = DefaultDispatchInterval
	}
	return Job{
		Name:     JobDispatchOutbox,
		Interval: interval,
		Run: func(ctx context.Context) error {
			summary, err := dispatcher.Tick(ctx)
			if err != nil {
				return err
			}
			m.RecordDispatched(metrics.OutcomeProcessed, summary.Processed)
			m.RecordDispatched(metrics.OutcomeRescheduled, summary.Rescheduled)
			m.RecordDispatched(metrics.OutcomeDeadLettered, summary.DeadLettered)

			pending, err := db.CountPendingOutboxEvents(ctx)
			if err != nil {
				logger.WarnCtx(ctx, "counting pending outbox events failed", logger.Err(err))
				return nil
			}
			m.SetPendingOutbox(pending)
			return nil
		},
	}
}

// ConsumeBusJob runs the broker consumer. Run blocks until the context is
// canceled, so the job is long-running.
func ConsumeBusJob(consumer *outbox.Consumer) Job {
	return Job{
		Name: JobConsumeBus,
		Run: func(ctx context.Context) error {
			return consumer.Run(ctx)
		},
	}
}
