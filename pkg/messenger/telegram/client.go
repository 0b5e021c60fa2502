package telegram

import (
	"context"
	"errors"
)

// Sentinel errors a Client implementation maps the network's auth failures
// onto. The adapter switches flows on them.
var (
	// ErrInvalidCode means the submitted one-time code was wrong.
	ErrInvalidCode = errors.New("telegram: invalid login code")
	// ErrExpiredCode means the one-time code is no longer redeemable.
	ErrExpiredCode = errors.New("telegram: expired login code")
	// ErrSessionPasswordNeeded means the OTP step succeeded but the account
	// has a 2FA password that must be supplied next.
	ErrSessionPasswordNeeded = errors.New("telegram: session password needed")
	// ErrInvalidPassword means the 2FA password was wrong.
	ErrInvalidPassword = errors.New("telegram: invalid 2fa password")
)

// Client is the transport port to the Telegram network. Session state
// travels as an opaque string: SetSessionString before Connect resumes a
// session, SessionString after an auth step captures the new one.
type Client interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	IsConnected() bool
	IsAuthorized(ctx context.Context) (bool, error)

	// SendCodeRequest asks the network to deliver a one-time code to the
	// phone and returns the code hash needed to redeem it.
	SendCodeRequest(ctx context.Context, phone string) (phoneCodeHash string, err error)

	// SignIn redeems the one-time code. Returns ErrSessionPasswordNeeded,
	// ErrInvalidCode or ErrExpiredCode on the corresponding failures.
	SignIn(ctx context.Context, phone, code, phoneCodeHash string) error

	// SignInWithPassword completes a login stopped at the 2FA prompt.
	// Returns ErrInvalidPassword when the password is wrong.
	SignInWithPassword(ctx context.Context, password string) error

	SessionString() string
	SetSessionString(session string)

	// SendMessage delivers text to the target (user id, @username or phone).
	SendMessage(ctx context.Context, target, text string) error

	// SendFile delivers a named file with an optional caption.
	SendFile(ctx context.Context, target string, data []byte, filename, caption string) error
}
