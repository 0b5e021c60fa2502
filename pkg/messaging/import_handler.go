package messaging

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/blastkit/blast/pkg/importing"
	"github.com/blastkit/blast/pkg/models"
	"github.com/blastkit/blast/pkg/outbox"
	"github.com/blastkit/blast/pkg/staging"
	"github.com/blastkit/blast/pkg/store"
	"github.com/blastkit/blast/pkg/tabular"
)

// ImportType is the bulk import type tag for message request campaigns.
const ImportType = "message_request"

// importColumns are the internal keys an import config may map.
var importColumns = []string{"phone_number", "username", "user_id", "text", "sending_time"}

// ImportHandler turns a contact spreadsheet into the pending messages of a
// campaign. Stage normalizes rows into the staging queue; Process drains
// them into Message rows and chains the ready-to-send event.
type ImportHandler struct {
	store   *store.Store
	staging staging.Store
}

// NewImportHandler wires the handler's collaborators.
func NewImportHandler(db *store.Store, stagingStore staging.Store) *ImportHandler {
	return &ImportHandler{store: db, staging: stagingStore}
}

// ConfigDefaults maps every column to a header of the same name.
func (h *ImportHandler) ConfigDefaults() importing.Config {
	return importing.Config{
		Required: map[string]string{"phone_number": "phone_number"},
		Optional: map[string]string{
			"username":     "username",
			"user_id":      "user_id",
			"text":         "text",
			"sending_time": "sending_time",
		},
	}
}

// Constraints pins the config to the known columns; phone_number stays
// required so every row has at least one routable identifier.
func (h *ImportHandler) Constraints() importing.Constraints {
	return importing.Constraints{
		AllowedRequiredKeys: importColumns,
		AllowedOptionalKeys: importColumns,
		RequiredMustInclude: []string{"phone_number"},
	}
}

// ValidateConfig has no rules beyond the structural constraints.
func (h *ImportHandler) ValidateConfig(*importing.Config) error { return nil }

// Stage implements importing.Handler. Rows that fail normalization are
// staged with their errors so Process can count them; under
// stop_on_row_error the first bad row aborts the job.
func (h *ImportHandler) Stage(ctx context.Context, jobKey string, doc *tabular.Document, config *importing.Config, _ map[string]any) (importing.StageStats, error) {
	headerIdx := make(map[string]int, len(doc.Headers))
	for i, header := range doc.Headers {
		headerIdx[importing.Canon(header)] = i
	}

	// cell resolves an internal key's mapped header against a row.
	cell := func(values []string, header string) (string, bool) {
		if header == "" {
			return "", false
		}
		idx, ok := headerIdx[importing.Canon(header)]
		if !ok || idx >= len(values) {
			return "", false
		}
		return values[idx], true
	}

	declared := make(map[string]struct{})
	for _, header := range config.DeclaredHeaders() {
		declared[importing.Canon(header)] = struct{}{}
	}

	var (
		stats    importing.StageStats
		chunk    []staging.StagedRow
		captured []staging.RowError
	)

	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		if err := h.staging.PushRows(ctx, jobKey, chunk); err != nil {
			return err
		}
		chunk = chunk[:0]
		return nil
	}

	for _, row := range doc.Rows {
		stats.Total++

		raw := make(map[string]any, len(doc.Headers))
		for i, header := range doc.Headers {
			if i < len(row.Values) {
				raw[header] = row.Values[i]
			}
		}

		normalized := make(map[string]any)
		var rowErrors []string

		phone, _ := cell(row.Values, config.Required["phone_number"])
		phone = strings.TrimSpace(phone)
		if phone == "" {
			rowErrors = append(rowErrors, "phone_number is required")
		} else {
			normalized["phone_number"] = phone
		}

		for _, key := range []string{"username", "user_id", "text"} {
			if value, ok := cell(row.Values, config.Optional[key]); ok {
				if trimmed := strings.TrimSpace(value); trimmed != "" {
					normalized[key] = trimmed
				}
			}
		}

		if value, ok := cell(row.Values, config.Optional["sending_time"]); ok {
			when, present, err := parseSendingTime(value)
			if err != nil {
				rowErrors = append(rowErrors, "sending_time is invalid (expected ISO8601)")
			} else if present {
				normalized["sending_time"] = when.UTC().Format(time.RFC3339)
			}
		}

		extras := make(map[string]any)
		for name, header := range config.Extras {
			if value, ok := cell(row.Values, header); ok {
				extras[name] = value
			}
		}
		if config.UnknownColumnsPolicy == importing.PolicyCapture {
			for i, header := range doc.Headers {
				if _, ok := declared[importing.Canon(header)]; ok {
					continue
				}
				if i < len(row.Values) {
					extras[header] = row.Values[i]
				}
			}
		}

		if len(rowErrors) > 0 {
			stats.Failed++
			if len(captured) < config.MaxErrors {
				captured = append(captured, staging.RowError{
					RowNumber: row.Number,
					Message:   strings.Join(rowErrors, "; "),
				})
			}
			if config.StopOnRowError {
				if err := h.recordStageResults(ctx, jobKey, stats, captured); err != nil {
					return stats, err
				}
				return stats, models.Validationf("Row error at row %d: %s", row.Number, strings.Join(rowErrors, "; "))
			}
		} else {
			stats.Staged++
		}

		chunk = append(chunk, staging.StagedRow{
			RowNumber:  row.Number,
			Raw:        raw,
			Normalized: normalized,
			Extras:     extras,
			Errors:     rowErrors,
		})
		if len(chunk) >= importing.StageChunkSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}

	if err := flush(); err != nil {
		return stats, err
	}
	if err := h.recordStageResults(ctx, jobKey, stats, captured); err != nil {
		return stats, err
	}
	return stats, nil
}

// recordStageResults writes the stage counters and captured row errors onto
// the job's metadata.
func (h *ImportHandler) recordStageResults(ctx context.Context, jobKey string, stats importing.StageStats, captured []staging.RowError) error {
	meta, err := h.staging.GetJob(ctx, jobKey)
	if err != nil {
		return err
	}
	meta.TotalRows = stats.Total
	meta.StagedRows = stats.Staged
	for _, rowErr := range captured {
		meta.CaptureError(rowErr.RowNumber, rowErr.Message)
	}
	return h.staging.UpdateJob(ctx, meta)
}

// Process implements importing.Handler. Each popped batch commits in its
// own transaction; once the queue is drained the ready-to-send event is
// enqueued at the earliest sending time seen.
func (h *ImportHandler) Process(ctx context.Context, jobKey string, evContext map[string]any, batchSize int) (importing.ProcessStats, error) {
	var stats importing.ProcessStats

	requestID, ok := contextInt64(evContext, "message_request_id")
	if !ok || requestID == 0 {
		return stats, models.Validationf("message_request_id missing in context")
	}

	defaultText := strings.TrimSpace(contextString(evContext, "default_text"))
	var attachmentFileID *int64
	if id, ok := contextInt64(evContext, "attachment_file_id"); ok && id != 0 {
		attachmentFileID = &id
	}

	var defaultSendingTime time.Time
	if raw := contextString(evContext, "default_sending_time"); raw != "" {
		when, present, err := parseSendingTime(raw)
		if err != nil {
			return stats, models.Validationf("default_sending_time is invalid (expected ISO8601)")
		}
		if present {
			defaultSendingTime = when
		}
	}

	var earliest time.Time
	for {
		batch, err := h.staging.PopRows(ctx, jobKey, batchSize)
		if err != nil {
			return stats, err
		}
		if len(batch) == 0 {
			break
		}

		err = h.store.WithTx(ctx, func(tx *store.Store) error {
			messages := make([]*models.Message, 0, len(batch))
			for _, row := range batch {
				if len(row.Errors) > 0 {
					stats.Bad++
					continue
				}

				text := strings.TrimSpace(stringValue(row.Normalized["text"]))
				if text == "" {
					text = defaultText
				}
				if text == "" {
					stats.Skipped++
					continue
				}

				sendingTime := time.Now().UTC()
				scheduled := false
				if raw := stringValue(row.Normalized["sending_time"]); raw != "" {
					if when, present, err := parseSendingTime(raw); err == nil && present {
						sendingTime = when
						scheduled = true
					}
				} else if !defaultSendingTime.IsZero() {
					sendingTime = defaultSendingTime
					scheduled = true
				}

				// Only explicitly scheduled rows move the ready-to-send
				// time; the now fallback would always win and fire the
				// delivery event before the scheduled rows are due.
				if scheduled && (earliest.IsZero() || sendingTime.Before(earliest)) {
					earliest = sendingTime
				}

				messages = append(messages, &models.Message{
					MessageRequestID: requestID,
					PhoneNumber:      stringValue(row.Normalized["phone_number"]),
					Username:         stringValue(row.Normalized["username"]),
					UserID:           stringValue(row.Normalized["user_id"]),
					Text:             text,
					AttachmentFileID: attachmentFileID,
					SendingTime:      sendingTime,
					Status:           models.MessageStatusPending,
				})
			}

			if len(messages) == 0 {
				return nil
			}
			if err := tx.CreateMessages(ctx, messages); err != nil {
				return err
			}
			stats.Created += len(messages)
			return nil
		})
		if err != nil {
			return stats, err
		}
	}

	availableAt := earliest
	if availableAt.IsZero() {
		availableAt = time.Now().UTC()
	}

	event := &ReadyToSendV1{MessageRequestID: requestID}
	err := h.store.WithTx(ctx, func(tx *store.Store) error {
		return outbox.Publish(ctx, tx, event,
			outbox.WithAvailableAt(availableAt),
			outbox.WithDedupKey(SendDedupKey(requestID)),
			outbox.WithAggregate("messaging_request", strconv.FormatInt(requestID, 10)))
	})
	if err != nil {
		return stats, err
	}
	return stats, nil
}

// parseSendingTime accepts the ISO8601 shapes spreadsheets produce. Naive
// timestamps are taken as UTC. present is false for blank cells.
func parseSendingTime(value string) (when time.Time, present bool, err error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false, nil
	}

	// Layouts without a zone parse as UTC, which is the naive-means-UTC
	// rule callers rely on.
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, parseErr := time.Parse(layout, value); parseErr == nil {
			return t.UTC(), true, nil
		}
	}
	return time.Time{}, false, models.Validationf("cannot parse timestamp %q", value)
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

func contextString(evContext map[string]any, key string) string {
	if evContext == nil {
		return ""
	}
	return stringValue(evContext[key])
}

// contextInt64 reads a numeric context value. JSON round-trips numbers as
// float64, so every plausible shape is accepted.
func contextInt64(evContext map[string]any, key string) (int64, bool) {
	if evContext == nil {
		return 0, false
	}
	switch v := evContext[key].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
