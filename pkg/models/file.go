package models

import (
	"time"
)

// File is a stored object reference. URI carries the backend locator
// (s3://bucket/key or a filesystem path) and is resolved by the file
// service, never interpreted by callers.
type File struct {
	ID     int64 `gorm:"primaryKey" json:"id"`
	UserID int64 `gorm:"index" json:"user_id"`

	URI         string `gorm:"size:1024;not null" json:"uri"`
	Name        string `gorm:"size:512" json:"name"`
	ContentType string `gorm:"size:255" json:"content_type,omitempty"`
	Size        int64  `json:"size"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for File.
func (File) TableName() string {
	return "files"
}
