package telegram

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blastkit/blast/pkg/files"
	"github.com/blastkit/blast/pkg/messenger"
	"github.com/blastkit/blast/pkg/models"
)

type fakeClient struct {
	sessionString string
	connected     bool

	signInErr   error
	passwordErr error

	sentTargets []string
	sentTexts   []string
	sentFiles   []string
	fileData    []byte
}

func (c *fakeClient) Connect(context.Context) error    { c.connected = true; return nil }
func (c *fakeClient) Disconnect(context.Context) error { c.connected = false; return nil }
func (c *fakeClient) IsConnected() bool                { return c.connected }

func (c *fakeClient) IsAuthorized(context.Context) (bool, error) {
	return c.sessionString != "", nil
}

func (c *fakeClient) SendCodeRequest(_ context.Context, phone string) (string, error) {
	c.sessionString = "pending:" + phone
	return "hash-" + phone, nil
}

func (c *fakeClient) SignIn(_ context.Context, phone, code, phoneCodeHash string) error {
	if c.signInErr != nil {
		return c.signInErr
	}
	c.sessionString = "authorized:" + phone
	return nil
}

func (c *fakeClient) SignInWithPassword(_ context.Context, password string) error {
	if c.passwordErr != nil {
		return c.passwordErr
	}
	c.sessionString = "authorized:2fa"
	return nil
}

func (c *fakeClient) SessionString() string     { return c.sessionString }
func (c *fakeClient) SetSessionString(s string) { c.sessionString = s }

func (c *fakeClient) SendMessage(_ context.Context, target, text string) error {
	c.sentTargets = append(c.sentTargets, target)
	c.sentTexts = append(c.sentTexts, text)
	return nil
}

func (c *fakeClient) SendFile(_ context.Context, target string, data []byte, filename, caption string) error {
	c.sentTargets = append(c.sentTargets, target)
	c.sentFiles = append(c.sentFiles, filename)
	c.fileData = data
	return nil
}

type fakeFiles struct {
	files.Service
	content map[string][]byte
}

func (f *fakeFiles) Read(_ context.Context, uri string) (io.ReadCloser, error) {
	data, ok := f.content[uri]
	if !ok {
		return nil, files.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func telegramSession(str string) *models.Session {
	return &models.Session{
		ID:          7,
		SessionType: models.NetworkTelegram,
		SessionStr:  &str,
	}
}

func newTestMessenger() (*Messenger, *fakeClient, *fakeFiles) {
	client := &fakeClient{}
	fs := &fakeFiles{content: map[string][]byte{}}
	return New(client, fs), client, fs
}

func TestSetSession(t *testing.T) {
	m, client, _ := newTestMessenger()

	err := m.SetSession(&models.Session{SessionType: models.NetworkWhatsapp})
	assert.Error(t, err)
	assert.True(t, models.IsValidation(err))

	require.NoError(t, m.SetSession(telegramSession("blob")))
	assert.Equal(t, "blob", client.sessionString)
}

func TestLoginOTP(t *testing.T) {
	m, client, _ := newTestMessenger()
	client.sessionString = "stale"

	sessionStr, otpContext, err := m.LoginOTP(context.Background(), "+15550001111")
	require.NoError(t, err)

	assert.Equal(t, "pending:+15550001111", sessionStr)
	assert.Equal(t, "hash-+15550001111", otpContext)
	assert.False(t, client.connected, "client should disconnect after the code request")
}

func TestValidateOTP(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		m, _, _ := newTestMessenger()
		session := telegramSession("pending:+1555")
		require.NoError(t, m.SetSession(session))

		sessionStr, valid, err := m.ValidateOTP(context.Background(), "12345", "+1555", "hash")
		require.NoError(t, err)
		assert.True(t, valid)
		assert.Equal(t, "authorized:+1555", sessionStr)
		assert.Equal(t, "authorized:+1555", *session.SessionStr)
	})

	t.Run("password needed", func(t *testing.T) {
		m, client, _ := newTestMessenger()
		client.signInErr = ErrSessionPasswordNeeded
		session := telegramSession("pending:+1555")
		require.NoError(t, m.SetSession(session))

		sessionStr, valid, err := m.ValidateOTP(context.Background(), "12345", "+1555", "hash")
		require.NoError(t, err)
		assert.False(t, valid)
		assert.Equal(t, "pending:+1555", sessionStr)
	})

	t.Run("invalid code", func(t *testing.T) {
		m, client, _ := newTestMessenger()
		client.signInErr = ErrInvalidCode
		require.NoError(t, m.SetSession(telegramSession("pending:+1555")))

		_, _, err := m.ValidateOTP(context.Background(), "00000", "+1555", "hash")
		assert.ErrorIs(t, err, ErrInvalidCode)
	})
}

func TestTwoFactorAuthenticate(t *testing.T) {
	m, client, _ := newTestMessenger()
	session := telegramSession("pending:+1555")
	require.NoError(t, m.SetSession(session))

	sessionStr, err := m.TwoFactorAuthenticate(context.Background(), "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "authorized:2fa", sessionStr)
	assert.Equal(t, "authorized:2fa", *session.SessionStr)

	client.passwordErr = ErrInvalidPassword
	_, err = m.TwoFactorAuthenticate(context.Background(), "wrong")
	assert.ErrorIs(t, err, ErrInvalidPassword)
}

func TestSendTextTargetResolution(t *testing.T) {
	m, client, _ := newTestMessenger()
	require.NoError(t, m.SetSession(telegramSession("blob")))

	cases := []struct {
		contact models.Contact
		target  string
	}{
		{models.Contact{ID: "42", Username: "alice", PhoneNumber: "+1555"}, "42"},
		{models.Contact{Username: "alice", PhoneNumber: "+1555"}, "alice"},
		{models.Contact{PhoneNumber: "+1555"}, "+1555"},
	}
	for _, tc := range cases {
		require.NoError(t, m.SendText(context.Background(), tc.contact, "hi"))
	}
	assert.Equal(t, []string{"42", "alice", "+1555"}, client.sentTargets)

	err := m.SendText(context.Background(), models.Contact{}, "hi")
	assert.True(t, models.IsValidation(err))
}

func TestSendTextRequiresSession(t *testing.T) {
	m, _, _ := newTestMessenger()

	err := m.SendText(context.Background(), models.Contact{ID: "42"}, "hi")
	assert.ErrorIs(t, err, messenger.ErrNoSession)
}

func TestSendMedia(t *testing.T) {
	m, client, fs := newTestMessenger()
	require.NoError(t, m.SetSession(telegramSession("blob")))

	fs.content["file:///tmp/report.pdf"] = []byte("pdf-bytes")
	file := &models.File{ID: 1, URI: "file:///tmp/report.pdf", Name: "report.pdf", ContentType: "application/pdf"}

	require.NoError(t, m.SendMedia(context.Background(), models.Contact{ID: "42"}, "caption", file))
	assert.Equal(t, []string{"report.pdf"}, client.sentFiles)
	assert.Equal(t, []byte("pdf-bytes"), client.fileData)
}

func TestSendMediaInlinePayload(t *testing.T) {
	m, client, _ := newTestMessenger()
	require.NoError(t, m.SetSession(telegramSession("blob")))

	encoded := base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	file := &models.File{ID: 2, URI: "data:image/png;base64," + encoded, ContentType: "image/png"}

	require.NoError(t, m.SendMedia(context.Background(), models.Contact{ID: "42"}, "", file))
	assert.Equal(t, []byte("png-bytes"), client.fileData)
}

func TestTelegramFilename(t *testing.T) {
	assert.Equal(t, "photo.jpg", telegramFilename(&models.File{Name: "photo.jpg"}))
	assert.Equal(t, "file.bin", telegramFilename(&models.File{}))
	assert.Equal(t, "file.bin", telegramFilename(&models.File{ContentType: "application/x-nonexistent-type"}))
}

func TestDescriptor(t *testing.T) {
	m, _, _ := newTestMessenger()

	d := messenger.Describe(m)
	assert.Equal(t, []messenger.AuthMethod{messenger.AuthOTP, messenger.Auth2FAPassword}, d.AuthMethods)
	assert.Equal(t,
		[]messenger.ContactIdentifier{
			messenger.ContactPhoneNumber,
			messenger.ContactUsername,
			messenger.ContactUserID,
		},
		d.ContactIdentifiers)
}
