package messaging

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blastkit/blast/pkg/importing"
	"github.com/blastkit/blast/pkg/models"
	"github.com/blastkit/blast/pkg/staging"
)

func TestServiceSendMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("creates request, message and event atomically", func(t *testing.T) {
		f := newFixture(t)
		svc := NewService(f.store, f.staging)
		session := f.createTelegramSession(t)

		requestID, messageID, err := svc.SendMessage(ctx, SendMessageParams{
			UserID:    1,
			SessionID: session.ID,
			Username:  "alice",
			Text:      "hi alice",
		})
		require.NoError(t, err)

		req, err := f.store.GetMessagingRequest(ctx, requestID)
		require.NoError(t, err)
		assert.Equal(t, "hi alice", req.DefaultText)

		msg, err := f.store.GetMessage(ctx, messageID)
		require.NoError(t, err)
		assert.Equal(t, models.MessageStatusPending, msg.Status)
		assert.Equal(t, "alice", msg.Username)
		assert.WithinDuration(t, time.Now().UTC(), msg.SendingTime, 5*time.Second)

		events := f.readyEvents(t)
		require.Len(t, events, 1)
		assert.Equal(t, SendDedupKey(requestID), events[0].DedupKey)
	})

	t.Run("contact must match the session network", func(t *testing.T) {
		f := newFixture(t)
		svc := NewService(f.store, f.staging)

		// WhatsApp sessions take a bare phone number only.
		session, err := models.NewSession(1, "wa", "+1555", models.NetworkWhatsapp, nil)
		require.NoError(t, err)
		require.NoError(t, f.store.CreateSession(ctx, session))

		_, _, err = svc.SendMessage(ctx, SendMessageParams{
			UserID:    1,
			SessionID: session.ID,
			Username:  "alice",
			Text:      "hi",
		})
		assert.True(t, models.IsValidation(err))

		// Nothing must survive the rollback.
		requests, err := f.store.ListMessagingRequestsByUser(ctx, 1)
		require.NoError(t, err)
		assert.Empty(t, requests)
	})

	t.Run("unknown session", func(t *testing.T) {
		f := newFixture(t)
		svc := NewService(f.store, f.staging)

		_, _, err := svc.SendMessage(ctx, SendMessageParams{UserID: 1, SessionID: 404, Text: "hi"})
		assert.ErrorIs(t, err, models.ErrSessionNotFound)
	})
}

func TestServiceCreateImport(t *testing.T) {
	ctx := context.Background()

	t.Run("seeds staging job and stage event", func(t *testing.T) {
		f := newFixture(t)
		svc := NewService(f.store, f.staging)
		session := f.createTelegramSession(t)

		file := &models.File{UserID: 1, URI: "file:///tmp/contacts.csv", Name: "contacts.csv", ContentType: "text/csv"}
		require.NoError(t, f.store.CreateFile(ctx, file))

		when := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
		attachment := int64(99)
		requestID, jobKey, err := svc.CreateImport(ctx, CreateImportParams{
			UserID:             1,
			SessionID:          session.ID,
			FileID:             file.ID,
			Title:              "fall campaign",
			DefaultText:        "hello",
			DefaultSendingTime: &when,
			AttachmentFileID:   &attachment,
			Config:             json.RawMessage(`{"unknown_columns_policy":"ignore"}`),
			TTLSeconds:         3600,
		})
		require.NoError(t, err)
		assert.Contains(t, jobKey, "message_request:")

		meta, err := f.staging.GetJob(ctx, jobKey)
		require.NoError(t, err)
		assert.Equal(t, staging.StatusPending, meta.Status)
		assert.Equal(t, ImportType, meta.ImportType)
		assert.Equal(t, requestID, meta.MessageRequestID)
		assert.Equal(t, file.ID, meta.FileID)
		assert.Equal(t, 3600, meta.TTLSeconds)

		rows, err := f.store.GetReadyOutboxEvents(ctx, 10)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, (importing.StageV1{}).EventType(), rows[0].EventType)
		assert.Equal(t, importing.StageDedupKey(jobKey), rows[0].DedupKey)
		assert.Equal(t, "bulk_import", rows[0].AggregateType)
		assert.Equal(t, jobKey, rows[0].AggregateID)

		var payload importing.StageV1
		require.NoError(t, json.Unmarshal(rows[0].Payload, &payload))
		assert.Equal(t, jobKey, payload.JobKey)
		assert.Equal(t, float64(requestID), payload.Context["message_request_id"])
		assert.Equal(t, "hello", payload.Context["default_text"])
		assert.Equal(t, "2026-09-01T10:00:00Z", payload.Context["default_sending_time"])
		assert.Equal(t, float64(attachment), payload.Context["attachment_file_id"])
	})

	t.Run("unknown file", func(t *testing.T) {
		f := newFixture(t)
		svc := NewService(f.store, f.staging)
		session := f.createTelegramSession(t)

		_, _, err := svc.CreateImport(ctx, CreateImportParams{
			UserID:    1,
			SessionID: session.ID,
			FileID:    404,
		})
		assert.ErrorIs(t, err, models.ErrFileNotFound)
	})
}
