package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/blastkit/blast/pkg/messenger"
	"github.com/blastkit/blast/pkg/models"
	"github.com/blastkit/blast/pkg/staging"
	"github.com/blastkit/blast/pkg/store"
)

// fakeMessenger is a telegram-shaped adapter: every auth method, every
// contact identifier. failFor targets make SendText/SendMedia error.
type fakeMessenger struct {
	network models.NetworkType
	session *models.Session

	sent    []sentMessage
	failFor map[string]error
}

type sentMessage struct {
	contact models.Contact
	text    string
	fileID  int64
}

func newFakeMessenger(network models.NetworkType) *fakeMessenger {
	return &fakeMessenger{network: network, failFor: map[string]error{}}
}

func (f *fakeMessenger) Network() models.NetworkType { return f.network }

func (f *fakeMessenger) SetSession(session *models.Session) error {
	if session != nil && session.SessionType != f.network {
		return models.Validationf("session network %q does not match adapter %q", session.SessionType, f.network)
	}
	f.session = session
	return nil
}

func (f *fakeMessenger) SendText(_ context.Context, contact models.Contact, text string) error {
	if f.session == nil {
		return messenger.ErrNoSession
	}
	if err := f.failFor[contact.PhoneNumber]; err != nil {
		return err
	}
	f.sent = append(f.sent, sentMessage{contact: contact, text: text})
	return nil
}

func (f *fakeMessenger) SendMedia(_ context.Context, contact models.Contact, text string, file *models.File) error {
	if f.session == nil {
		return messenger.ErrNoSession
	}
	if err := f.failFor[contact.PhoneNumber]; err != nil {
		return err
	}
	f.sent = append(f.sent, sentMessage{contact: contact, text: text, fileID: file.ID})
	return nil
}

func (f *fakeMessenger) TargetsPhoneNumber() {}
func (f *fakeMessenger) TargetsUsername()    {}
func (f *fakeMessenger) TargetsUserID()      {}

type fixture struct {
	store    *store.Store
	staging  *staging.RedisStore
	adapter  *fakeMessenger
	registry *messenger.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	s, err := store.New(&store.Config{
		Type:   store.DatabaseTypeSQLite,
		SQLite: store.SQLiteConfig{Path: ":memory:"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	adapter := newFakeMessenger(models.NetworkTelegram)
	registry := messenger.NewRegistry()
	registry.Register(adapter)

	return &fixture{
		store:    s,
		staging:  staging.NewRedisWithClient(client, time.Hour),
		adapter:  adapter,
		registry: registry,
	}
}

func (f *fixture) createTelegramSession(t *testing.T) *models.Session {
	t.Helper()
	session, err := models.NewSession(1, "campaign", "+15550000000",
		models.NetworkTelegram, models.AccountAuth{SessionStr: "blob"})
	require.NoError(t, err)
	require.NoError(t, f.store.CreateSession(context.Background(), session))
	return session
}

func (f *fixture) createRequest(t *testing.T, sessionID int64) *models.MessagingRequest {
	t.Helper()
	req := &models.MessagingRequest{
		UserID:      1,
		SessionID:   sessionID,
		DefaultText: "hello",
		SendingTime: time.Now().UTC(),
	}
	require.NoError(t, f.store.CreateMessagingRequest(context.Background(), req))
	return req
}

func (f *fixture) createPendingMessage(t *testing.T, requestID int64, phone string, due time.Time) *models.Message {
	t.Helper()
	msg := &models.Message{
		MessageRequestID: requestID,
		PhoneNumber:      phone,
		Text:             "hi",
		SendingTime:      due,
		Status:           models.MessageStatusPending,
	}
	require.NoError(t, f.store.CreateMessages(context.Background(), []*models.Message{msg}))
	return msg
}

// readyEvents returns the publishable outbox rows carrying the
// ready-to-send tag.
func (f *fixture) readyEvents(t *testing.T) []*models.OutboxEvent {
	t.Helper()
	rows, err := f.store.GetReadyOutboxEvents(context.Background(), 100)
	require.NoError(t, err)
	var out []*models.OutboxEvent
	for _, row := range rows {
		if row.EventType == (ReadyToSendV1{}).EventType() {
			out = append(out, row)
		}
	}
	return out
}
