package models

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionTelegram(t *testing.T) {
	s, err := NewSession(1, "work", "+15551234567", NetworkTelegram, AccountAuth{SessionStr: "blob"})
	require.NoError(t, err)

	require.NotNil(t, s.SessionStr)
	assert.Equal(t, "blob", *s.SessionStr)
	assert.Nil(t, s.UUID)

	auth, ok := s.Auth().(AccountAuth)
	require.True(t, ok)
	assert.Equal(t, "blob", auth.SessionStr)
}

func TestNewSessionTelegramRequiresSessionStr(t *testing.T) {
	_, err := NewSession(1, "work", "+15551234567", NetworkTelegram, nil)
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	_, err = NewSession(1, "work", "+15551234567", NetworkTelegram, AccountAuth{})
	require.Error(t, err)
}

func TestNewSessionWhatsappGeneratesUUID(t *testing.T) {
	s, err := NewSession(1, "shop", "+15551234567", NetworkWhatsapp, nil)
	require.NoError(t, err)

	require.NotNil(t, s.UUID)
	assert.NotEqual(t, uuid.Nil, *s.UUID)
	assert.Nil(t, s.SessionStr)
}

func TestNewSessionWhatsappKeepsProvidedUUID(t *testing.T) {
	u := uuid.New()
	s, err := NewSession(1, "shop", "+15551234567", NetworkWhatsapp, QRAuth{UUID: u})
	require.NoError(t, err)
	assert.Equal(t, u, *s.UUID)
}

func TestSessionSchemaExclusive(t *testing.T) {
	str := "blob"
	u := uuid.New()

	tg := &Session{SessionType: NetworkTelegram, SessionStr: &str, UUID: &u}
	require.Error(t, tg.Validate())

	wa := &Session{SessionType: NetworkWhatsapp, SessionStr: &str, UUID: &u}
	require.Error(t, wa.Validate())

	bad := &Session{SessionType: NetworkType("signal")}
	require.Error(t, bad.Validate())
}

func TestContactWhatsapp(t *testing.T) {
	c, err := NewContact(NetworkWhatsapp, "", "", " +15551234567 ")
	require.NoError(t, err)
	assert.Equal(t, "+15551234567", c.PhoneNumber)

	_, err = NewContact(NetworkWhatsapp, "", "", "")
	require.Error(t, err)

	// WhatsApp rejects any identifier other than the phone number.
	_, err = NewContact(NetworkWhatsapp, "", "alice", "+15551234567")
	require.Error(t, err)
	_, err = NewContact(NetworkWhatsapp, "42", "", "+15551234567")
	require.Error(t, err)
}

func TestContactTelegram(t *testing.T) {
	for _, c := range []Contact{
		{ID: "42"},
		{Username: "alice"},
		{PhoneNumber: "+15551234567"},
		{ID: "42", Username: "alice", PhoneNumber: "+15551234567"},
	} {
		assert.NoError(t, c.Validate(NetworkTelegram), "contact %+v", c)
	}

	empty := Contact{}
	require.Error(t, empty.Validate(NetworkTelegram))
}

func TestMessageStatusTransitions(t *testing.T) {
	now := time.Now()

	m := &Message{Status: MessageStatusPending}
	require.NoError(t, m.MarkSuccessful(now))
	assert.Equal(t, MessageStatusSuccessful, m.Status)
	require.NotNil(t, m.SentTime)

	// Terminal statuses never move again.
	require.Error(t, m.MarkFailed("nope"))
	require.Error(t, m.MarkSuccessful(now))

	f := &Message{Status: MessageStatusPending}
	require.NoError(t, f.MarkFailed("boom"))
	assert.Equal(t, MessageStatusFailed, f.Status)
	assert.Equal(t, "boom", f.ErrorMessage)
	require.Error(t, f.MarkSuccessful(now))
}

func TestMessageErrorTruncated(t *testing.T) {
	m := &Message{Status: MessageStatusPending}
	long := strings.Repeat("x", MaxMessageErrorLen+100)
	require.NoError(t, m.MarkFailed(long))
	assert.Len(t, m.ErrorMessage, MaxMessageErrorLen)
}

func TestOutboxEventLifecycle(t *testing.T) {
	now := time.Now()

	e := &OutboxEvent{EventType: "import.stage.v1"}
	assert.False(t, e.IsTerminal())

	next := now.Add(2 * time.Second)
	e.Reschedule(next, "transient")
	assert.False(t, e.IsTerminal())
	assert.Equal(t, next, e.AvailableAt)
	assert.Equal(t, "transient", e.LastError)

	e.MarkProcessed(now)
	assert.True(t, e.IsTerminal())
	assert.Empty(t, e.LastError)

	d := &OutboxEvent{EventType: "import.stage.v1"}
	d.MarkDeadLettered(now, strings.Repeat("e", MaxLastErrorLen*2))
	assert.True(t, d.IsTerminal())
	assert.Len(t, d.LastError, MaxLastErrorLen)
}
