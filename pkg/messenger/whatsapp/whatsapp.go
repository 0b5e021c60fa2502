// Package whatsapp adapts WhatsApp, reached through an Evolution API
// server, to the messenger port. Sessions key a per-account Evolution
// instance by uuid; login is a QR pairing flow and contacts are addressed
// by phone number only.
package whatsapp

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/blastkit/blast/pkg/files"
	"github.com/blastkit/blast/pkg/messenger"
	"github.com/blastkit/blast/pkg/models"
)

// Messenger is the WhatsApp adapter.
type Messenger struct {
	service Service
	files   files.Service
	session *models.Session
}

// New builds the adapter around the Evolution service port and the file
// service used to materialize attachments.
func New(service Service, fileService files.Service) *Messenger {
	return &Messenger{service: service, files: fileService}
}

// Network implements messenger.Messenger.
func (m *Messenger) Network() models.NetworkType { return models.NetworkWhatsapp }

// SetSession binds the session, rejecting sessions of other networks.
func (m *Messenger) SetSession(session *models.Session) error {
	if session != nil && session.SessionType != models.NetworkWhatsapp {
		return models.Validationf("session network %q is not whatsapp", session.SessionType)
	}
	m.session = session
	return nil
}

// TargetsPhoneNumber marks the only contact identifier WhatsApp supports.
func (m *Messenger) TargetsPhoneNumber() {}

// instanceName derives the Evolution instance name. Keep this stable:
// changing it orphans the instances already provisioned in Evolution.
func instanceName(title string, sessionUUID uuid.UUID) string {
	return title + "-" + sessionUUID.String()
}

// LoginQR implements messenger.QRAuthenticator. It provisions the
// Evolution instance for the bound session, assigning the session a uuid
// when it has none yet, and returns the QR payload to scan.
func (m *Messenger) LoginQR(ctx context.Context, integration string) (string, error) {
	if m.session == nil {
		return "", messenger.ErrNoSession
	}
	if integration == "" {
		integration = messenger.DefaultQRIntegration
	}

	sessionUUID := uuid.New()
	if m.session.UUID != nil && *m.session.UUID != uuid.Nil {
		sessionUUID = *m.session.UUID
	}
	name := instanceName(m.session.Title, sessionUUID)

	if err := m.service.CreateInstance(ctx, name, integration); err != nil {
		return "", fmt.Errorf("failed to create instance: %w", err)
	}
	code, err := m.service.ConnectInstance(ctx, name)
	if err != nil {
		return "", fmt.Errorf("failed to connect instance: %w", err)
	}

	m.session.UUID = &sessionUUID
	return code, nil
}

// SendText implements messenger.Messenger.
func (m *Messenger) SendText(ctx context.Context, contact models.Contact, text string) error {
	name, err := m.boundInstance()
	if err != nil {
		return err
	}
	return m.service.SendText(ctx, name, contact.PhoneNumber, text)
}

// SendMedia implements messenger.Messenger.
func (m *Messenger) SendMedia(ctx context.Context, contact models.Contact, text string, file *models.File) error {
	name, err := m.boundInstance()
	if err != nil {
		return err
	}

	mimeType := fileMimeType(file)
	media, err := m.fileBase64(ctx, file)
	if err != nil {
		return err
	}

	return m.service.SendMedia(ctx, name, MediaMessage{
		Number:    contact.PhoneNumber,
		MediaType: evolutionMediaType(mimeType),
		MimeType:  mimeType,
		Caption:   text,
		Media:     media,
		FileName:  file.Name,
	})
}

// boundInstance resolves the instance name of the bound session. A session
// without a uuid has never completed the QR flow.
func (m *Messenger) boundInstance() (string, error) {
	if m.session == nil {
		return "", messenger.ErrNoSession
	}
	if m.session.UUID == nil || *m.session.UUID == uuid.Nil {
		return "", models.Validationf("whatsapp session %d has no uuid, log in first", m.session.ID)
	}
	return instanceName(m.session.Title, *m.session.UUID), nil
}

// fileMimeType resolves the content type, falling back to the name's
// extension, then to octet-stream.
func fileMimeType(file *models.File) string {
	if file.ContentType != "" {
		return file.ContentType
	}
	if guessed := mime.TypeByExtension(filepath.Ext(file.Name)); guessed != "" {
		return guessed
	}
	return "application/octet-stream"
}

// evolutionMediaType maps a mime type onto the three categories Evolution's
// sendMedia accepts.
func evolutionMediaType(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return "image"
	case strings.HasPrefix(mimeType, "video/"):
		return "video"
	}
	return "document"
}

// fileBase64 returns the attachment content base64 encoded, the form
// Evolution's sendMedia takes. Data URIs already carry base64 and pass
// through as-is.
func (m *Messenger) fileBase64(ctx context.Context, file *models.File) (string, error) {
	if strings.HasPrefix(file.URI, "data:") {
		payload := file.URI
		if idx := strings.Index(payload, ","); idx >= 0 {
			payload = payload[idx+1:]
		}
		return payload, nil
	}

	rc, err := m.files.Read(ctx, file.URI)
	if err != nil {
		return "", fmt.Errorf("failed to read file %d: %w", file.ID, err)
	}
	defer func() { _ = rc.Close() }()

	content, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("failed to read file %d: %w", file.ID, err)
	}
	return base64.StdEncoding.EncodeToString(content), nil
}
