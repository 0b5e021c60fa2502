package importing

import (
	"context"
	"errors"
	"fmt"

	"github.com/blastkit/blast/internal/logger"
	"github.com/blastkit/blast/pkg/metrics"
	"github.com/blastkit/blast/pkg/models"
	"github.com/blastkit/blast/pkg/staging"
	"github.com/blastkit/blast/pkg/store"
)

// ProcessHandler is the generic half of the process phase: registry lookup
// and job lifecycle. Draining the queue into domain entities is the type
// handler's job.
type ProcessHandler struct {
	registry *Registry
	staging  staging.Store
	metrics  *metrics.Metrics
}

// NewProcessHandler wires the process handler's collaborators. m may be nil.
func NewProcessHandler(registry *Registry, stagingStore staging.Store, m *metrics.Metrics) *ProcessHandler {
	return &ProcessHandler{registry: registry, staging: stagingStore, metrics: m}
}

// Handle drains one staged job. The type handler commits entity batches in
// its own transactions; on success the job completes and its staging keys
// are cleaned up.
func (h *ProcessHandler) Handle(ctx context.Context, _ *store.Store, ev *ProcessV1) error {
	meta, err := h.staging.GetJob(ctx, ev.JobKey)
	if errors.Is(err, staging.ErrJobNotFound) {
		// A completed job's keys are deleted; a redelivered event has
		// nothing left to do.
		logger.InfoCtx(ctx, "import job already cleaned up, skipping",
			logger.KeyJobKey, ev.JobKey)
		return nil
	}
	if err != nil {
		return err
	}

	handler, ok := h.registry.Get(ev.ImportType)
	if !ok {
		if err := meta.Fail(fmt.Sprintf("Unknown import_type: %s", ev.ImportType)); err != nil {
			return err
		}
		return h.staging.UpdateJob(ctx, meta)
	}

	if err := meta.Transition(staging.StatusProcessing); err != nil {
		return err
	}
	if err := h.staging.UpdateJob(ctx, meta); err != nil {
		return err
	}

	batchSize := ev.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultProcessBatch
	}

	stats, err := handler.Process(ctx, ev.JobKey, ev.Context, batchSize)
	if err != nil {
		if models.IsValidation(err) {
			meta, getErr := h.staging.GetJob(ctx, ev.JobKey)
			if getErr != nil {
				return getErr
			}
			if failErr := meta.Fail(err.Error()); failErr != nil {
				return failErr
			}
			return h.staging.UpdateJob(ctx, meta)
		}
		return err
	}

	meta, err = h.staging.GetJob(ctx, ev.JobKey)
	if err != nil {
		return err
	}
	if err := meta.Transition(staging.StatusCompleted); err != nil {
		return err
	}
	meta.CreatedRows = stats.Created
	meta.SkippedRows = stats.Skipped
	meta.BadRows += stats.Bad
	if err := h.staging.UpdateJob(ctx, meta); err != nil {
		return err
	}

	h.metrics.RecordImportRows(metrics.PhaseProcess, metrics.OutcomeCreated, stats.Created)
	h.metrics.RecordImportRows(metrics.PhaseProcess, metrics.OutcomeSkipped, stats.Skipped)
	h.metrics.RecordImportRows(metrics.PhaseProcess, metrics.OutcomeBad, stats.Bad)

	logger.InfoCtx(ctx, "import processed",
		logger.KeyJobKey, ev.JobKey,
		logger.KeyImportType, ev.ImportType,
		logger.KeyCount, stats.Created,
		"skipped", stats.Skipped,
		"bad_rows", stats.Bad)

	return h.staging.DeleteJob(ctx, ev.JobKey)
}
