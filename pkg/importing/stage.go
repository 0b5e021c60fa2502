package importing

import (
	"context"
	"errors"
	"fmt"

	"github.com/blastkit/blast/internal/logger"
	"github.com/blastkit/blast/pkg/files"
	"github.com/blastkit/blast/pkg/metrics"
	"github.com/blastkit/blast/pkg/models"
	"github.com/blastkit/blast/pkg/outbox"
	"github.com/blastkit/blast/pkg/staging"
	"github.com/blastkit/blast/pkg/store"
	"github.com/blastkit/blast/pkg/tabular"
)

// StageChunkSize bounds memory while pushing rows into staging.
const StageChunkSize = 500

// DefaultProcessBatch is the pop size of the chained process event.
const DefaultProcessBatch = 200

// StageHandler is the generic half of the stage phase: registry lookup,
// config validation, file parsing and header validation. Row normalization
// is the type handler's job.
type StageHandler struct {
	registry *Registry
	staging  staging.Store
	files    files.Service
	metrics  *metrics.Metrics
}

// NewStageHandler wires the stage handler's collaborators. m may be nil.
func NewStageHandler(registry *Registry, stagingStore staging.Store, fileService files.Service, m *metrics.Metrics) *StageHandler {
	return &StageHandler{registry: registry, staging: stagingStore, files: fileService, metrics: m}
}

// failJob marks the job failed with a deterministic reason. The event is not
// retried for these.
func (h *StageHandler) failJob(ctx context.Context, jobKey, reason string, patch func(*staging.JobMeta)) error {
	meta, err := h.staging.GetJob(ctx, jobKey)
	if err != nil {
		return err
	}
	if err := meta.Fail(reason); err != nil {
		return err
	}
	if patch != nil {
		patch(meta)
	}
	logger.WarnCtx(ctx, "import stage failed",
		logger.KeyJobKey, jobKey,
		logger.KeyError, reason)
	return h.staging.UpdateJob(ctx, meta)
}

// Handle runs the stage phase for one job. Deterministic problems fail the
// job and do not retry; infrastructure errors propagate so the dispatcher
// retries the event.
func (h *StageHandler) Handle(ctx context.Context, tx *store.Store, ev *StageV1) error {
	handler, ok := h.registry.Get(ev.ImportType)
	if !ok {
		return h.failJob(ctx, ev.JobKey, fmt.Sprintf("Unknown import_type: %s", ev.ImportType), nil)
	}

	config, err := ParseConfig(ev.Config, handler.ConfigDefaults())
	if err == nil {
		err = config.Validate(handler.Constraints())
	}
	if err == nil {
		err = handler.ValidateConfig(config)
	}
	if err != nil {
		return h.failJob(ctx, ev.JobKey, fmt.Sprintf("Invalid config: %v", err), nil)
	}

	meta, err := h.staging.GetJob(ctx, ev.JobKey)
	if err != nil {
		return err
	}
	if meta.Status == staging.StatusStaged {
		// Redelivered after the staging work landed but before the chained
		// event committed. The rows are in place; just repair the chain.
		logger.InfoCtx(ctx, "import already staged, chaining process event",
			logger.KeyJobKey, ev.JobKey,
			logger.KeyImportType, ev.ImportType)
		return h.publishProcess(ctx, tx, ev)
	}
	if err := meta.Transition(staging.StatusStaging); err != nil {
		return err
	}
	meta.ImportType = ev.ImportType
	meta.MaxErrors = config.MaxErrors
	if ev.TTLSeconds > 0 {
		meta.TTLSeconds = ev.TTLSeconds
	}
	if err := h.staging.UpdateJob(ctx, meta); err != nil {
		return err
	}

	file, err := tx.GetFile(ctx, ev.FileID)
	if errors.Is(err, models.ErrFileNotFound) {
		return h.failJob(ctx, ev.JobKey, fmt.Sprintf("File not found: %d", ev.FileID), nil)
	}
	if err != nil {
		return err
	}

	doc, err := h.readDocument(ctx, file)
	if err != nil {
		if models.IsValidation(err) {
			return h.failJob(ctx, ev.JobKey, err.Error(), nil)
		}
		return err
	}

	if len(doc.Headers) == 0 {
		return h.failJob(ctx, ev.JobKey, "No headers found in file", nil)
	}

	if failed, err := h.validateHeaders(ctx, ev.JobKey, doc.Headers, config); failed || err != nil {
		return err
	}

	stats, err := handler.Stage(ctx, ev.JobKey, doc, config, ev.Context)
	if err != nil {
		if models.IsValidation(err) {
			return h.failJob(ctx, ev.JobKey, err.Error(), nil)
		}
		return err
	}

	meta, err = h.staging.GetJob(ctx, ev.JobKey)
	if err != nil {
		return err
	}
	if err := meta.Transition(staging.StatusStaged); err != nil {
		return err
	}
	if err := h.staging.UpdateJob(ctx, meta); err != nil {
		return err
	}

	h.metrics.RecordImportRows(metrics.PhaseStage, metrics.OutcomeStaged, stats.Staged)
	h.metrics.RecordImportRows(metrics.PhaseStage, metrics.OutcomeFailed, stats.Failed)

	logger.InfoCtx(ctx, "import staged",
		logger.KeyJobKey, ev.JobKey,
		logger.KeyImportType, ev.ImportType,
		logger.KeyCount, stats.Staged,
		"failed_rows", stats.Failed)

	return h.publishProcess(ctx, tx, ev)
}

// publishProcess chains the process phase for a staged job.
func (h *StageHandler) publishProcess(ctx context.Context, tx *store.Store, ev *StageV1) error {
	next := &ProcessV1{
		JobKey:     ev.JobKey,
		ImportType: ev.ImportType,
		BatchSize:  DefaultProcessBatch,
		TTLSeconds: ev.TTLSeconds,
		Context:    ev.Context,
	}
	return outbox.Publish(ctx, tx, next,
		outbox.WithDedupKey(ProcessDedupKey(ev.JobKey)),
		outbox.WithAggregate("bulk_import", ev.JobKey))
}

// readDocument streams the file through the tabular reader. Unsupported
// formats and parse failures are deterministic.
func (h *StageHandler) readDocument(ctx context.Context, file *models.File) (*tabular.Document, error) {
	reader, err := tabular.ForFile(file.Name, file.ContentType)
	if err != nil {
		return nil, models.Validationf("%v", err)
	}

	rc, err := h.files.Read(ctx, file.URI)
	if err != nil {
		if errors.Is(err, files.ErrNotFound) {
			return nil, models.Validationf("File content not found: %s", file.URI)
		}
		return nil, err
	}
	defer rc.Close()

	doc, err := reader.Read(rc)
	if err != nil {
		return nil, models.Validationf("%v", err)
	}
	return doc, nil
}

// validateHeaders fails the job on missing required or (under the error
// policy) unknown columns. Returns failed=true when the job was terminated.
func (h *StageHandler) validateHeaders(ctx context.Context, jobKey string, headers []string, config *Config) (bool, error) {
	present := make(map[string]struct{}, len(headers))
	for _, header := range headers {
		present[Canon(header)] = struct{}{}
	}

	var missing []string
	for _, header := range config.Required {
		if _, ok := present[Canon(header)]; !ok {
			missing = append(missing, header)
		}
	}
	if len(missing) > 0 {
		return true, h.failJob(ctx, jobKey, "Missing required columns", func(m *staging.JobMeta) {
			m.MissingColumns = missing
		})
	}

	declared := make(map[string]struct{})
	for _, header := range config.DeclaredHeaders() {
		declared[Canon(header)] = struct{}{}
	}
	var unknown []string
	for _, header := range headers {
		if _, ok := declared[Canon(header)]; !ok {
			unknown = append(unknown, header)
		}
	}
	if len(unknown) > 0 && config.UnknownColumnsPolicy == PolicyError {
		return true, h.failJob(ctx, jobKey, "Unknown columns present", func(m *staging.JobMeta) {
			m.UnknownColumns = unknown
		})
	}

	return false, nil
}
