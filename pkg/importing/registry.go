package importing

import (
	"context"
	"fmt"

	"github.com/blastkit/blast/pkg/tabular"
)

// StageStats summarizes one stage run.
type StageStats struct {
	Total  int `json:"total"`
	Staged int `json:"staged"`
	Failed int `json:"failed"`
}

// ProcessStats summarizes one process run.
type ProcessStats struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	Bad     int `json:"bad_rows"`
}

// Handler is one import type's behavior: config rules, row normalization
// into staging, and draining staged rows into domain entities. Collaborators
// (stores, outbox) are injected at construction.
type Handler interface {
	// ConfigDefaults returns the type's default configuration.
	ConfigDefaults() Config

	// Constraints returns the type's static config restrictions.
	Constraints() Constraints

	// ValidateConfig applies business rules beyond structural validation.
	ValidateConfig(config *Config) error

	// Stage normalizes the document's rows into the staging queue and
	// returns counters. Deterministic failures (bad rows under
	// stop_on_row_error) come back as validation errors.
	Stage(ctx context.Context, jobKey string, doc *tabular.Document, config *Config, evContext map[string]any) (StageStats, error)

	// Process drains the staging queue into domain entities and emits the
	// type's downstream event.
	Process(ctx context.Context, jobKey string, evContext map[string]any, batchSize int) (ProcessStats, error)
}

// Registry maps import type tags to handlers. Built at startup, read-only
// afterwards.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry returns an empty import registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds a handler to an import type. Duplicate registration panics;
// that is a wiring bug.
func (r *Registry) Register(importType string, handler Handler) {
	if importType == "" {
		panic("importing: import type must not be empty")
	}
	if _, exists := r.handlers[importType]; exists {
		panic(fmt.Sprintf("importing: duplicate handler for import type %q", importType))
	}
	r.handlers[importType] = handler
}

// Get looks up the handler for an import type.
func (r *Registry) Get(importType string) (Handler, bool) {
	handler, ok := r.handlers[importType]
	return handler, ok
}
