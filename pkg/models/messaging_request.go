package models

import (
	"time"
)

// MessagingRequest is the batch container for one send: either a single
// ad-hoc message or a spreadsheet-driven bulk campaign. Messages reference
// their request via MessageRequestID.
type MessagingRequest struct {
	ID        int64 `gorm:"primaryKey" json:"id"`
	UserID    int64 `gorm:"not null;index" json:"user_id"`
	SessionID int64 `gorm:"not null;index" json:"session_id"`

	Title string `gorm:"size:255" json:"title,omitempty"`

	// RequestFileID references the uploaded CSV/XLSX for bulk campaigns.
	RequestFileID *int64 `json:"request_file_id,omitempty"`
	// AttachmentFileID is the default media attachment for every message.
	AttachmentFileID *int64 `json:"attachment_file_id,omitempty"`

	DefaultText string    `gorm:"type:text" json:"default_text,omitempty"`
	SendingTime time.Time `gorm:"not null" json:"sending_time"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for MessagingRequest.
func (MessagingRequest) TableName() string {
	return "messaging_requests"
}
