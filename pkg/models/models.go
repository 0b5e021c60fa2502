// Package models defines the persistent entities shared across the store,
// the outbox and the delivery pipeline.
package models

// AllModels returns every model registered for auto-migration, in
// dependency order.
func AllModels() []any {
	return []any{
		&File{},
		&Session{},
		&MessagingRequest{},
		&Message{},
		&OutboxEvent{},
	}
}
