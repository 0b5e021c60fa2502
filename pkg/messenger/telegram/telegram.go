// Package telegram adapts the Telegram network to the messenger port:
// OTP login with an optional 2FA password step, and message delivery to
// contacts addressed by user id, username or phone number.
package telegram

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/blastkit/blast/internal/logger"
	"github.com/blastkit/blast/pkg/files"
	"github.com/blastkit/blast/pkg/messenger"
	"github.com/blastkit/blast/pkg/models"
)

// Messenger is the Telegram adapter. Safe for a single worker goroutine;
// the bound session is adapter state, not per-call.
type Messenger struct {
	client  Client
	files   files.Service
	session *models.Session
}

// New builds the adapter around a transport client and the file service
// used to materialize attachments.
func New(client Client, fileService files.Service) *Messenger {
	return &Messenger{client: client, files: fileService}
}

// Network implements messenger.Messenger.
func (m *Messenger) Network() models.NetworkType { return models.NetworkTelegram }

// SetSession binds the session, rejecting sessions of other networks. The
// session string, when present, is loaded into the client so the next
// connect resumes it.
func (m *Messenger) SetSession(session *models.Session) error {
	if session != nil && session.SessionType != models.NetworkTelegram {
		return models.Validationf("session network %q is not telegram", session.SessionType)
	}
	m.session = session
	if session != nil && session.SessionStr != nil {
		m.client.SetSessionString(*session.SessionStr)
	}
	return nil
}

// Capability markers: contacts may be addressed by any identifier.
func (m *Messenger) TargetsPhoneNumber() {}
func (m *Messenger) TargetsUsername()    {}
func (m *Messenger) TargetsUserID()      {}

// connect dials the network if the client is not already connected.
func (m *Messenger) connect(ctx context.Context) error {
	if m.client.IsConnected() {
		return nil
	}
	return m.client.Connect(ctx)
}

// persistSession writes the client's current session string back onto the
// bound session. Telegram rotates session state server-side, so every
// operation may leave a fresher string behind.
func (m *Messenger) persistSession() string {
	str := m.client.SessionString()
	if m.session != nil {
		m.session.SetSessionStr(str)
	}
	return str
}

// LoginOTP implements messenger.OTPAuthenticator. It starts a fresh
// session, requests a code for the phone and hands back the in-progress
// session string plus the code hash ValidateOTP needs.
func (m *Messenger) LoginOTP(ctx context.Context, phone string) (string, string, error) {
	m.client.SetSessionString("")
	if err := m.client.Connect(ctx); err != nil {
		return "", "", fmt.Errorf("failed to connect: %w", err)
	}
	defer m.disconnect(ctx)

	hash, err := m.client.SendCodeRequest(ctx, phone)
	if err != nil {
		return "", "", fmt.Errorf("failed to request login code: %w", err)
	}

	return m.persistSession(), hash, nil
}

// ValidateOTP implements messenger.OTPAuthenticator. A wrong or expired
// code surfaces as ErrInvalidCode / ErrExpiredCode. When the account has a
// 2FA password, valid is false and the returned session string carries the
// partial login for TwoFactorAuthenticate to finish.
func (m *Messenger) ValidateOTP(ctx context.Context, code, phone, otpContext string) (string, bool, error) {
	if err := m.connect(ctx); err != nil {
		return "", false, fmt.Errorf("failed to connect: %w", err)
	}
	defer m.disconnect(ctx)

	err := m.client.SignIn(ctx, phone, code, otpContext)
	switch {
	case err == nil:
		return m.persistSession(), true, nil
	case errors.Is(err, ErrSessionPasswordNeeded):
		return m.persistSession(), false, nil
	default:
		return "", false, err
	}
}

// TwoFactorAuthenticate implements messenger.PasswordAuthenticator.
func (m *Messenger) TwoFactorAuthenticate(ctx context.Context, password string) (string, error) {
	if err := m.connect(ctx); err != nil {
		return "", fmt.Errorf("failed to connect: %w", err)
	}
	defer m.disconnect(ctx)

	if err := m.client.SignInWithPassword(ctx, password); err != nil {
		return "", err
	}
	return m.persistSession(), nil
}

// SendText implements messenger.Messenger.
func (m *Messenger) SendText(ctx context.Context, contact models.Contact, text string) error {
	target, err := m.prepareSend(ctx, contact)
	if err != nil {
		return err
	}
	if err := m.client.SendMessage(ctx, target, text); err != nil {
		return err
	}
	m.persistSession()
	return nil
}

// SendMedia implements messenger.Messenger.
func (m *Messenger) SendMedia(ctx context.Context, contact models.Contact, text string, file *models.File) error {
	target, err := m.prepareSend(ctx, contact)
	if err != nil {
		return err
	}

	data, err := m.fileBytes(ctx, file)
	if err != nil {
		return err
	}

	if err := m.client.SendFile(ctx, target, data, telegramFilename(file), text); err != nil {
		return err
	}
	m.persistSession()
	return nil
}

func (m *Messenger) prepareSend(ctx context.Context, contact models.Contact) (string, error) {
	if m.session == nil {
		return "", messenger.ErrNoSession
	}
	if err := m.connect(ctx); err != nil {
		return "", fmt.Errorf("failed to connect: %w", err)
	}
	return resolveTarget(contact)
}

// resolveTarget picks the strongest identifier: user id, then username,
// then phone number.
func resolveTarget(contact models.Contact) (string, error) {
	switch {
	case contact.ID != "":
		return contact.ID, nil
	case contact.Username != "":
		return contact.Username, nil
	case contact.PhoneNumber != "":
		return contact.PhoneNumber, nil
	}
	return "", models.Validationf("telegram contact has no id, username or phone number")
}

// telegramFilename picks the name Telegram will attach to the upload: the
// stored name when present, otherwise one derived from the content type.
func telegramFilename(file *models.File) string {
	if file.Name != "" {
		return file.Name
	}
	if exts, err := mime.ExtensionsByType(file.ContentType); err == nil && len(exts) > 0 {
		return "file" + exts[0]
	}
	return "file.bin"
}

// fileBytes materializes the attachment. Data URIs are decoded inline,
// anything else goes through the file service.
func (m *Messenger) fileBytes(ctx context.Context, file *models.File) ([]byte, error) {
	if strings.HasPrefix(file.URI, "data:") {
		payload := file.URI
		if idx := strings.Index(payload, ","); idx >= 0 {
			payload = payload[idx+1:]
		}
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, models.Validationf("invalid inline file payload for file %d", file.ID)
		}
		return data, nil
	}

	rc, err := m.files.Read(ctx, file.URI)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %d: %w", file.ID, err)
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}

func (m *Messenger) disconnect(ctx context.Context) {
	if err := m.client.Disconnect(ctx); err != nil {
		logger.WarnCtx(ctx, "telegram disconnect failed", logger.Err(err))
	}
}
