package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/blastkit/blast/pkg/store"
)

// Handler processes one decoded event. The store is transaction-scoped:
// whatever the handler writes commits atomically with the dispatcher's
// bookkeeping on the event row.
type Handler func(ctx context.Context, tx *store.Store, event Event) error

type registration struct {
	decode func(payload []byte, meta Meta) (Event, error)
	handle Handler
}

// Registry maps event type tags to decoders and handlers. Build it once at
// startup; it is read-only afterwards.
type Registry struct {
	handlers map[string]registration
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]registration)}
}

// Register binds a typed handler to E's event type. The payload is decoded
// into a fresh *E and the transport meta injected before the handler runs.
// Registering the same event type twice panics; that is a wiring bug.
func Register[E any, PE interface {
	*E
	Event
}](r *Registry, handler func(ctx context.Context, tx *store.Store, event PE) error) {
	var zero E
	eventType := PE(&zero).EventType()
	if eventType == "" {
		panic("outbox: event type must not be empty")
	}
	if _, exists := r.handlers[eventType]; exists {
		panic(fmt.Sprintf("outbox: duplicate handler for event type %q", eventType))
	}

	r.handlers[eventType] = registration{
		decode: func(payload []byte, meta Meta) (Event, error) {
			event := PE(new(E))
			if err := json.Unmarshal(payload, event); err != nil {
				return nil, fmt.Errorf("failed to decode %s payload: %w", eventType, err)
			}
			*event.EventMeta() = meta
			return event, nil
		},
		handle: func(ctx context.Context, tx *store.Store, event Event) error {
			return handler(ctx, tx, event.(PE))
		},
	}
}

// Has reports whether a handler is registered for the event type.
func (r *Registry) Has(eventType string) bool {
	_, ok := r.handlers[eventType]
	return ok
}

// Types returns the registered event type tags.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	return types
}

// dispatch decodes and runs the handler for one event payload.
func (r *Registry) dispatch(ctx context.Context, tx *store.Store, eventType string, payload []byte, meta Meta) error {
	reg, ok := r.handlers[eventType]
	if !ok {
		return fmt.Errorf("No handler registered for event_type=%s", eventType)
	}
	event, err := reg.decode(payload, meta)
	if err != nil {
		return err
	}
	return reg.handle(ctx, tx, event)
}
