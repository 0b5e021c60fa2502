package models

import (
	"time"
)

// MaxMessageErrorLen bounds the stored error text on a failed message.
const MaxMessageErrorLen = 500

// MessageStatus is the delivery state of a single message.
type MessageStatus string

const (
	MessageStatusPending    MessageStatus = "pending"
	MessageStatusSuccessful MessageStatus = "successful"
	MessageStatusFailed     MessageStatus = "failed"
)

// IsTerminal reports whether the status is final.
func (s MessageStatus) IsTerminal() bool {
	return s == MessageStatusSuccessful || s == MessageStatusFailed
}

// Message is a single recipient's delivery attempt within a
// MessagingRequest. Which contact identifier subset is required depends on
// the session's network; see ValidateContact.
//
// Invariant: successful messages carry SentTime, failed messages carry
// ErrorMessage, pending messages carry neither.
type Message struct {
	ID               int64 `gorm:"primaryKey" json:"id"`
	MessageRequestID int64 `gorm:"not null;index" json:"message_request_id"`

	PhoneNumber string `gorm:"size:32" json:"phone_number,omitempty"`
	Username    string `gorm:"size:255" json:"username,omitempty"`
	UserID      string `gorm:"size:64" json:"user_id,omitempty"`

	Text             string `gorm:"type:text;not null" json:"text"`
	AttachmentFileID *int64 `json:"attachment_file_id,omitempty"`

	SendingTime time.Time  `gorm:"not null;index" json:"sending_time"`
	SentTime    *time.Time `json:"sent_time,omitempty"`

	Status       MessageStatus `gorm:"size:16;not null;default:pending;index" json:"status"`
	ErrorMessage string        `gorm:"type:text" json:"error_message,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for Message.
func (Message) TableName() string {
	return "messages"
}

// MarkSuccessful transitions pending -> successful.
func (m *Message) MarkSuccessful(now time.Time) error {
	if m.Status != MessageStatusPending {
		return Validationf("message %d is %s, cannot mark successful", m.ID, m.Status)
	}
	m.Status = MessageStatusSuccessful
	m.SentTime = &now
	return nil
}

// MarkFailed transitions pending -> failed, preserving a bounded error text.
func (m *Message) MarkFailed(msg string) error {
	if m.Status != MessageStatusPending {
		return Validationf("message %d is %s, cannot mark failed", m.ID, m.Status)
	}
	m.Status = MessageStatusFailed
	m.ErrorMessage = TruncateError(msg, MaxMessageErrorLen)
	return nil
}
