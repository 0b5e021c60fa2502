package models

import (
	"time"

	"github.com/google/uuid"
)

// NetworkType tags the external messaging network a session belongs to.
type NetworkType string

const (
	// NetworkTelegram is the account-session network (opaque session string,
	// OTP + optional 2FA auth).
	NetworkTelegram NetworkType = "telegram"
	// NetworkWhatsapp is the QR-based network (instance keyed by uuid).
	NetworkWhatsapp NetworkType = "whatsapp"
)

// IsValid checks if the network tag is known.
func (n NetworkType) IsValid() bool {
	return n == NetworkTelegram || n == NetworkWhatsapp
}

// SessionAuth is the tagged auth-state variant of a session. Exactly one
// concrete variant exists per network kind.
type SessionAuth interface {
	isSessionAuth()
}

// AccountAuth is the auth state of an account-session network: an opaque
// session string issued by the network after login.
type AccountAuth struct {
	SessionStr string
}

// QRAuth is the auth state of a QR-based network: a stable uuid used to key
// the remote instance.
type QRAuth struct {
	UUID uuid.UUID
}

func (AccountAuth) isSessionAuth() {}
func (QRAuth) isSessionAuth()      {}

// Session identifies a user's authenticated presence on one messaging
// network. The two auth-state columns are mutually exclusive and which one
// is set is determined by SessionType; NewSession and Validate enforce the
// disjoint schema.
type Session struct {
	ID          int64       `gorm:"primaryKey" json:"id"`
	UserID      int64       `gorm:"not null;index" json:"user_id"`
	Title       string      `gorm:"size:255;not null" json:"title"`
	PhoneNumber string      `gorm:"size:32;not null" json:"phone_number"`
	SessionType NetworkType `gorm:"size:32;not null;index" json:"session_type"`

	// Exactly one of SessionStr / UUID is set, per SessionType.
	SessionStr *string    `gorm:"type:text" json:"-"`
	UUID       *uuid.UUID `gorm:"type:uuid" json:"uuid,omitempty"`

	IsActive  bool      `gorm:"default:false" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for Session.
func (Session) TableName() string {
	return "sessions"
}

// NewSession constructs a validated session for the given network.
// Telegram sessions require a non-empty session string and must not carry a
// uuid; WhatsApp sessions get a generated uuid when absent and must not
// carry a session string.
func NewSession(userID int64, title, phoneNumber string, network NetworkType, auth SessionAuth) (*Session, error) {
	s := &Session{
		UserID:      userID,
		Title:       title,
		PhoneNumber: phoneNumber,
		SessionType: network,
	}

	switch a := auth.(type) {
	case AccountAuth:
		str := a.SessionStr
		s.SessionStr = &str
	case QRAuth:
		u := a.UUID
		if u == uuid.Nil {
			u = uuid.New()
		}
		s.UUID = &u
	case nil:
		if network == NetworkWhatsapp {
			u := uuid.New()
			s.UUID = &u
		}
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate enforces the disjoint auth-state schema.
func (s *Session) Validate() error {
	if !s.SessionType.IsValid() {
		return Validationf("unknown session_type: %s", s.SessionType)
	}

	switch s.SessionType {
	case NetworkWhatsapp:
		if s.SessionStr != nil {
			return Validationf("whatsapp session must not have a session_str (it uses uuid instead)")
		}
		if s.UUID == nil || *s.UUID == uuid.Nil {
			return Validationf("whatsapp session requires a uuid")
		}
	case NetworkTelegram:
		if s.UUID != nil {
			return Validationf("telegram session must not have a uuid")
		}
		if s.SessionStr == nil || *s.SessionStr == "" {
			return Validationf("telegram session requires a session_str (login session)")
		}
	}
	return nil
}

// Auth returns the tagged auth-state variant for this session.
func (s *Session) Auth() SessionAuth {
	switch s.SessionType {
	case NetworkTelegram:
		if s.SessionStr != nil {
			return AccountAuth{SessionStr: *s.SessionStr}
		}
	case NetworkWhatsapp:
		if s.UUID != nil {
			return QRAuth{UUID: *s.UUID}
		}
	}
	return nil
}

// SetSessionStr replaces the account-session auth blob (after a login step).
func (s *Session) SetSessionStr(str string) {
	s.SessionStr = &str
}
