package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blastkit/blast/pkg/models"
)

// createTestStore creates an in-memory SQLite store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(&Config{
		Type: DatabaseTypeSQLite,
		SQLite: SQLiteConfig{
			Path: ":memory:",
		},
	})
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func createTestSession(t *testing.T, s *Store) *models.Session {
	t.Helper()
	session, err := models.NewSession(1, "test", "+15551234567", models.NetworkTelegram, models.AccountAuth{SessionStr: "blob"})
	require.NoError(t, err)
	require.NoError(t, s.CreateSession(context.Background(), session))
	return session
}

func createTestRequest(t *testing.T, s *Store, sessionID int64, sendingTime time.Time) *models.MessagingRequest {
	t.Helper()
	req := &models.MessagingRequest{
		UserID:      1,
		SessionID:   sessionID,
		Title:       "campaign",
		DefaultText: "hello",
		SendingTime: sendingTime,
	}
	require.NoError(t, s.CreateMessagingRequest(context.Background(), req))
	return req
}

func TestNew(t *testing.T) {
	t.Run("default config uses sqlite", func(t *testing.T) {
		config := &Config{}
		config.ApplyDefaults()
		assert.Equal(t, DatabaseTypeSQLite, config.Type)
	})

	t.Run("invalid config returns error", func(t *testing.T) {
		_, err := New(&Config{Type: "invalid"})
		require.Error(t, err)
	})

	t.Run("creates in-memory store", func(t *testing.T) {
		s := createTestStore(t)
		require.NotNil(t, s.DB())
	})
}

func TestOutboxClaim(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	now := time.Now()

	due := &models.OutboxEvent{
		EventType:   "import.stage.v1",
		Payload:     []byte(`{}`),
		AvailableAt: now.Add(-time.Second),
	}
	future := &models.OutboxEvent{
		EventType:   "import.stage.v1",
		Payload:     []byte(`{}`),
		AvailableAt: now.Add(time.Hour),
	}
	processedAt := now.Add(-time.Minute)
	done := &models.OutboxEvent{
		EventType:   "import.stage.v1",
		Payload:     []byte(`{}`),
		AvailableAt: now.Add(-time.Hour),
		ProcessedAt: &processedAt,
	}
	for _, ev := range []*models.OutboxEvent{due, future, done} {
		require.NoError(t, s.AddOutboxEvent(ctx, ev))
	}

	events, err := s.GetReadyOutboxEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, due.ID, events[0].ID)

	t.Run("zero limit claims nothing", func(t *testing.T) {
		events, err := s.GetReadyOutboxEvents(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, events)
	})
}

func TestOutboxClaimOrdering(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	now := time.Now()

	late := &models.OutboxEvent{EventType: "a", Payload: []byte(`{}`), AvailableAt: now.Add(-time.Second)}
	early := &models.OutboxEvent{EventType: "b", Payload: []byte(`{}`), AvailableAt: now.Add(-time.Hour)}
	require.NoError(t, s.AddOutboxEvent(ctx, late))
	require.NoError(t, s.AddOutboxEvent(ctx, early))

	events, err := s.GetReadyOutboxEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, early.ID, events[0].ID)
	assert.Equal(t, late.ID, events[1].ID)
}

func TestOutboxUpdate(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	now := time.Now()

	ev := &models.OutboxEvent{EventType: "a", Payload: []byte(`{}`), AvailableAt: now.Add(-time.Second)}
	require.NoError(t, s.AddOutboxEvent(ctx, ev))

	ev.Attempts = 1
	ev.Reschedule(now.Add(2*time.Second), "transient failure")
	require.NoError(t, s.UpdateOutboxEvent(ctx, ev))

	got, err := s.GetOutboxEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Attempts)
	assert.Equal(t, "transient failure", got.LastError)
	assert.Nil(t, got.ProcessedAt)

	// Events pushed to the future are no longer claimable.
	events, err := s.GetReadyOutboxEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestOutboxNotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.GetOutboxEvent(context.Background(), 424242)
	require.ErrorIs(t, err, models.ErrEventNotFound)
}

func TestMessageClaim(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	now := time.Now()

	session := createTestSession(t, s)
	req := createTestRequest(t, s, session.ID, now)
	other := createTestRequest(t, s, session.ID, now)

	msgs := []*models.Message{
		{MessageRequestID: req.ID, PhoneNumber: "+1111", Text: "a", SendingTime: now.Add(-time.Minute)},
		{MessageRequestID: req.ID, PhoneNumber: "+2222", Text: "b", SendingTime: now.Add(time.Hour)},
		{MessageRequestID: other.ID, PhoneNumber: "+3333", Text: "c", SendingTime: now.Add(-time.Minute)},
	}
	require.NoError(t, s.CreateMessages(ctx, msgs))

	claimed, err := s.GetPendingMessagesDue(ctx, now, 50)
	require.NoError(t, err)
	require.Len(t, claimed, 2) // due messages across all requests
	assert.Equal(t, "+1111", claimed[0].PhoneNumber)
	assert.Equal(t, "+3333", claimed[1].PhoneNumber)

	// Terminal messages drop out of the claim set.
	require.NoError(t, claimed[0].MarkSuccessful(now))
	require.NoError(t, s.UpdateMessage(ctx, claimed[0]))

	remaining, err := s.HasPendingMessagesDue(ctx, req.ID, now)
	require.NoError(t, err)
	assert.False(t, remaining)

	remaining, err = s.HasPendingMessagesDue(ctx, other.ID, now)
	require.NoError(t, err)
	assert.True(t, remaining)
}

func TestSessionRoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	session := createTestSession(t, s)

	got, err := s.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.NetworkTelegram, got.SessionType)
	require.NotNil(t, got.SessionStr)
	assert.Equal(t, "blob", *got.SessionStr)

	t.Run("invalid session is rejected", func(t *testing.T) {
		bad := &models.Session{SessionType: models.NetworkTelegram}
		err := s.CreateSession(ctx, bad)
		require.Error(t, err)
		assert.True(t, models.IsValidation(err))
	})

	t.Run("missing session", func(t *testing.T) {
		_, err := s.GetSession(ctx, 424242)
		require.ErrorIs(t, err, models.ErrSessionNotFound)
	})
}

func TestFileRoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	f := &models.File{UserID: 1, URI: "s3://bucket/imports/a.csv", Name: "a.csv", ContentType: "text/csv", Size: 42}
	require.NoError(t, s.CreateFile(ctx, f))

	got, err := s.GetFile(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, "s3://bucket/imports/a.csv", got.URI)

	require.NoError(t, s.DeleteFile(ctx, f.ID))
	require.ErrorIs(t, s.DeleteFile(ctx, f.ID), models.ErrFileNotFound)
}

func TestWithTxRollback(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	sentinel := errors.New("boom")
	err := s.WithTx(ctx, func(tx *Store) error {
		ev := &models.OutboxEvent{EventType: "a", Payload: []byte(`{}`), AvailableAt: time.Now()}
		if err := tx.AddOutboxEvent(ctx, ev); err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	count, err := s.CountPendingOutboxEvents(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}
