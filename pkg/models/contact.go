package models

import (
	"strings"
)

// Contact is the recipient address for a single message. Which fields are
// allowed depends on the network: WhatsApp requires exactly a phone number,
// Telegram accepts any non-empty combination of id, username and phone.
type Contact struct {
	ID          string `json:"id,omitempty"`
	Username    string `json:"username,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

// NewContact builds a contact and validates it against the network schema.
func NewContact(network NetworkType, id, username, phone string) (Contact, error) {
	c := Contact{
		ID:          strings.TrimSpace(id),
		Username:    strings.TrimSpace(username),
		PhoneNumber: strings.TrimSpace(phone),
	}
	if err := c.Validate(network); err != nil {
		return Contact{}, err
	}
	return c, nil
}

// IsEmpty reports whether no identifier is present at all.
func (c Contact) IsEmpty() bool {
	return c.ID == "" && c.Username == "" && c.PhoneNumber == ""
}

// Validate enforces the per-network contact schema.
func (c Contact) Validate(network NetworkType) error {
	switch network {
	case NetworkWhatsapp:
		if c.PhoneNumber == "" {
			return Validationf("whatsapp contact requires a phone number")
		}
		if c.ID != "" || c.Username != "" {
			return Validationf("whatsapp contact accepts only a phone number")
		}
	case NetworkTelegram:
		if c.IsEmpty() {
			return Validationf("telegram contact requires at least one of id, username or phone number")
		}
	default:
		return Validationf("unknown network type %q", network)
	}
	return nil
}
