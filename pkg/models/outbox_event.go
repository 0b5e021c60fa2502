package models

import (
	"encoding/json"
	"time"
)

// MaxLastErrorLen bounds the stored error text on an outbox event.
const MaxLastErrorLen = 1000

// OutboxEvent is a durable domain event row written in the same transaction
// as the business state that produced it.
//
// Lifecycle: created by business code, mutated only by the dispatcher, never
// hard-deleted. Once ProcessedAt is set the row is terminal: either the event
// was handled (LastError empty) or it was dead-lettered (LastError set).
type OutboxEvent struct {
	ID        int64           `gorm:"primaryKey" json:"id"`
	EventType string          `gorm:"size:200;not null;index" json:"event_type"`
	Payload   json.RawMessage `gorm:"type:json;not null" json:"payload"`

	// AvailableAt is when the dispatcher is allowed to process the event.
	AvailableAt time.Time  `gorm:"not null;index" json:"available_at"`
	ProcessedAt *time.Time `gorm:"index" json:"processed_at,omitempty"`

	// Retry bookkeeping, owned by the dispatcher.
	Attempts  int    `gorm:"not null;default:0" json:"attempts"`
	LastError string `gorm:"type:text" json:"last_error,omitempty"`

	// Dedup / streaming hints, copied onto broker headers.
	DedupKey      string `gorm:"size:255;index" json:"dedup_key,omitempty"`
	AggregateType string `gorm:"size:50;index" json:"aggregate_type,omitempty"`
	AggregateID   string `gorm:"size:128;index" json:"aggregate_id,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName returns the table name for OutboxEvent.
func (OutboxEvent) TableName() string {
	return "outbox_events"
}

// IsTerminal reports whether the dispatcher is done with this event.
func (e *OutboxEvent) IsTerminal() bool {
	return e.ProcessedAt != nil
}

// MarkProcessed records a successful dispatch at now.
func (e *OutboxEvent) MarkProcessed(now time.Time) {
	e.ProcessedAt = &now
	e.LastError = ""
}

// MarkDeadLettered terminates the event with the given error text.
func (e *OutboxEvent) MarkDeadLettered(now time.Time, msg string) {
	e.ProcessedAt = &now
	e.LastError = TruncateError(msg, MaxLastErrorLen)
}

// Reschedule records a failed attempt and pushes AvailableAt forward.
func (e *OutboxEvent) Reschedule(next time.Time, msg string) {
	e.AvailableAt = next
	e.LastError = TruncateError(msg, MaxLastErrorLen)
}

// TruncateError bounds an error message to max bytes.
func TruncateError(msg string, max int) string {
	if len(msg) <= max {
		return msg
	}
	return msg[:max]
}
