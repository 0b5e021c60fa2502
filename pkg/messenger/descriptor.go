package messenger

import "github.com/blastkit/blast/pkg/models"

// Feature names a messaging operation an adapter supports.
type Feature string

const (
	FeatureSendText  Feature = "send_text"
	FeatureSendMedia Feature = "send_media"
	FeaturePolls     Feature = "polls"
)

// AuthMethod names a login flow an adapter supports.
type AuthMethod string

const (
	AuthOTP         AuthMethod = "otp"
	Auth2FAPassword AuthMethod = "2fa_password"
	AuthQR          AuthMethod = "qr"
)

// ContactIdentifier names a recipient identifier an adapter can target.
type ContactIdentifier string

const (
	ContactPhoneNumber ContactIdentifier = "phone_number"
	ContactUsername    ContactIdentifier = "username"
	ContactUserID      ContactIdentifier = "user_id"
)

// Descriptor is the advertised capability set of one network adapter.
type Descriptor struct {
	Network            models.NetworkType  `json:"network"`
	DisplayName        string              `json:"display_name"`
	Features           []Feature           `json:"features"`
	AuthMethods        []AuthMethod        `json:"auth_methods"`
	ContactIdentifiers []ContactIdentifier `json:"contact_identifiers"`
}

// Describe derives the descriptor from the adapter's static type. Every
// adapter sends text and media; everything else is discovered through the
// capability interfaces.
func Describe(m Messenger) Descriptor {
	d := Descriptor{
		Network:     m.Network(),
		DisplayName: displayName(m.Network()),
		Features:    []Feature{FeatureSendText, FeatureSendMedia},
	}

	if _, ok := m.(PollSender); ok {
		d.Features = append(d.Features, FeaturePolls)
	}

	if _, ok := m.(OTPAuthenticator); ok {
		d.AuthMethods = append(d.AuthMethods, AuthOTP)
	}
	if _, ok := m.(PasswordAuthenticator); ok {
		d.AuthMethods = append(d.AuthMethods, Auth2FAPassword)
	}
	if _, ok := m.(QRAuthenticator); ok {
		d.AuthMethods = append(d.AuthMethods, AuthQR)
	}

	if _, ok := m.(PhoneNumberTarget); ok {
		d.ContactIdentifiers = append(d.ContactIdentifiers, ContactPhoneNumber)
	}
	if _, ok := m.(UsernameTarget); ok {
		d.ContactIdentifiers = append(d.ContactIdentifiers, ContactUsername)
	}
	if _, ok := m.(UserIDTarget); ok {
		d.ContactIdentifiers = append(d.ContactIdentifiers, ContactUserID)
	}

	return d
}

func displayName(n models.NetworkType) string {
	switch n {
	case models.NetworkTelegram:
		return "Telegram"
	case models.NetworkWhatsapp:
		return "WhatsApp"
	}
	return string(n)
}
