// Package importing runs the two-phase bulk import pipeline: a stage phase
// that validates and normalizes a tabular file into the staging store, and a
// process phase that drains staged rows into domain entities. Import types
// plug in through the Registry.
package importing

import (
	"encoding/json"

	"github.com/blastkit/blast/pkg/outbox"
)

// StageV1 asks for a file to be validated and staged.
type StageV1 struct {
	outbox.Meta

	JobKey     string          `json:"job_key"`
	ImportType string          `json:"import_type"`
	FileID     int64           `json:"file_id"`
	TTLSeconds int             `json:"ttl_seconds"`
	Config     json.RawMessage `json:"config"`
	Context    map[string]any  `json:"context"`
}

// EventType returns the stage event tag.
func (StageV1) EventType() string { return "bulk_import.stage.v1" }

// ProcessV1 asks for a staged job to be drained into domain entities.
type ProcessV1 struct {
	outbox.Meta

	JobKey     string         `json:"job_key"`
	ImportType string         `json:"import_type"`
	BatchSize  int            `json:"batch_size"`
	TTLSeconds int            `json:"ttl_seconds"`
	Context    map[string]any `json:"context"`
}

// EventType returns the process event tag.
func (ProcessV1) EventType() string { return "bulk_import.process.v1" }

// StageDedupKey returns the idempotency hint for a job's stage event.
func StageDedupKey(jobKey string) string {
	return "bulk_import:" + jobKey + ":stage"
}

// ProcessDedupKey returns the idempotency hint for a job's process event.
func ProcessDedupKey(jobKey string) string {
	return "bulk_import:" + jobKey + ":process"
}
