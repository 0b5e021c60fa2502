package messenger

import (
	"context"

	"github.com/blastkit/blast/pkg/models"
)

// DefaultQRIntegration is the integration passed to LoginQR when the
// caller has no preference.
const DefaultQRIntegration = "WHATSAPP-BAILEYS"

// OTPAuthenticator is implemented by adapters whose networks log in with a
// one-time code sent to the account's phone.
type OTPAuthenticator interface {
	// LoginOTP requests a code for the phone number and returns the
	// in-progress session string plus an opaque continuation token that
	// must be passed back to ValidateOTP.
	LoginOTP(ctx context.Context, phone string) (sessionStr, otpContext string, err error)

	// ValidateOTP completes the login with the received code. When the
	// account additionally requires a 2FA password, valid is false and
	// sessionStr still carries the partial session; the caller continues
	// with TwoFactorAuthenticate on that session.
	ValidateOTP(ctx context.Context, code, phone, otpContext string) (sessionStr string, valid bool, err error)
}

// PasswordAuthenticator is implemented by adapters supporting a second
// factor password after the OTP step.
type PasswordAuthenticator interface {
	// TwoFactorAuthenticate finishes a login that stopped at the password
	// prompt and returns the authorized session string.
	TwoFactorAuthenticate(ctx context.Context, password string) (string, error)
}

// QRAuthenticator is implemented by adapters whose networks log in by
// scanning a QR payload.
type QRAuthenticator interface {
	// LoginQR provisions the remote instance for the bound session and
	// returns the QR code payload to present to the user.
	LoginQR(ctx context.Context, integration string) (string, error)
}

// PollSender is implemented by adapters that can post polls.
type PollSender interface {
	SendPoll(ctx context.Context, contact models.Contact, question string, options []string, allowsMultiple, anonymous bool) error
}

// Contact-kind markers. An adapter implements the marker for every
// identifier it can resolve a recipient by; Describe reports them.

// PhoneNumberTarget marks adapters that resolve contacts by phone number.
type PhoneNumberTarget interface{ TargetsPhoneNumber() }

// UsernameTarget marks adapters that resolve contacts by username.
type UsernameTarget interface{ TargetsUsername() }

// UserIDTarget marks adapters that resolve contacts by network user id.
type UserIDTarget interface{ TargetsUserID() }
