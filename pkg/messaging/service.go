package messaging

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/blastkit/blast/pkg/importing"
	"github.com/blastkit/blast/pkg/models"
	"github.com/blastkit/blast/pkg/outbox"
	"github.com/blastkit/blast/pkg/staging"
	"github.com/blastkit/blast/pkg/store"
)

// Service is the write-side entry point of the messaging domain: ad-hoc
// sends and bulk campaign imports. Both enqueue outbox events in the same
// transaction as their business writes.
type Service struct {
	store   *store.Store
	staging staging.Store
}

// NewService wires the service's collaborators.
func NewService(db *store.Store, stagingStore staging.Store) *Service {
	return &Service{store: db, staging: stagingStore}
}

// SendMessageParams describes one ad-hoc send.
type SendMessageParams struct {
	UserID    int64
	SessionID int64

	PhoneNumber string
	Username    string
	ContactID   string

	Text   string
	FileID *int64
}

// SendMessage creates a single-recipient request with one pending message
// due now and enqueues its send event. The worker performs the actual
// delivery; a network send can never outrun the commit that records it.
func (s *Service) SendMessage(ctx context.Context, p SendMessageParams) (requestID, messageID int64, err error) {
	now := time.Now().UTC()

	err = s.store.WithTx(ctx, func(tx *store.Store) error {
		session, err := tx.GetSession(ctx, p.SessionID)
		if err != nil {
			return err
		}

		contact, err := models.NewContact(session.SessionType, p.ContactID, p.Username, p.PhoneNumber)
		if err != nil {
			return err
		}

		req := &models.MessagingRequest{
			UserID:           p.UserID,
			SessionID:        session.ID,
			AttachmentFileID: p.FileID,
			DefaultText:      p.Text,
			SendingTime:      now,
		}
		if err := tx.CreateMessagingRequest(ctx, req); err != nil {
			return err
		}

		msg := &models.Message{
			MessageRequestID: req.ID,
			PhoneNumber:      contact.PhoneNumber,
			Username:         contact.Username,
			UserID:           contact.ID,
			Text:             p.Text,
			AttachmentFileID: p.FileID,
			SendingTime:      now,
			Status:           models.MessageStatusPending,
		}
		if err := tx.CreateMessages(ctx, []*models.Message{msg}); err != nil {
			return err
		}

		event := &ReadyToSendV1{MessageRequestID: req.ID}
		if err := outbox.Publish(ctx, tx, event,
			outbox.WithAvailableAt(now),
			outbox.WithDedupKey(SendDedupKey(req.ID)),
			outbox.WithAggregate("messaging_request", strconv.FormatInt(req.ID, 10))); err != nil {
			return err
		}

		requestID, messageID = req.ID, msg.ID
		return nil
	})
	return requestID, messageID, err
}

// CreateImportParams describes one bulk campaign import.
type CreateImportParams struct {
	UserID    int64
	SessionID int64
	FileID    int64

	Title              string
	DefaultText        string
	DefaultSendingTime *time.Time
	AttachmentFileID   *int64

	Config     json.RawMessage
	TTLSeconds int
}

// CreateImport creates the campaign's request, seeds a staging job and
// enqueues the stage event that starts the import pipeline.
func (s *Service) CreateImport(ctx context.Context, p CreateImportParams) (requestID int64, jobKey string, err error) {
	now := time.Now().UTC()

	err = s.store.WithTx(ctx, func(tx *store.Store) error {
		if _, err := tx.GetSession(ctx, p.SessionID); err != nil {
			return err
		}
		if _, err := tx.GetFile(ctx, p.FileID); err != nil {
			return err
		}

		sendingTime := now
		if p.DefaultSendingTime != nil {
			sendingTime = p.DefaultSendingTime.UTC()
		}

		req := &models.MessagingRequest{
			UserID:           p.UserID,
			SessionID:        p.SessionID,
			Title:            p.Title,
			RequestFileID:    &p.FileID,
			AttachmentFileID: p.AttachmentFileID,
			DefaultText:      p.DefaultText,
			SendingTime:      sendingTime,
		}
		if err := tx.CreateMessagingRequest(ctx, req); err != nil {
			return err
		}

		jobKey = importJobKey(req.ID)
		meta := &staging.JobMeta{
			JobKey:           jobKey,
			ImportType:       ImportType,
			Status:           staging.StatusPending,
			MessageRequestID: req.ID,
			FileID:           p.FileID,
			TTLSeconds:       p.TTLSeconds,
			CreatedAt:        now,
		}
		if err := s.staging.CreateJob(ctx, meta); err != nil {
			return err
		}

		evContext := map[string]any{
			"user_id":            p.UserID,
			"session_id":         p.SessionID,
			"message_request_id": req.ID,
			"default_text":       p.DefaultText,
		}
		if p.DefaultSendingTime != nil {
			evContext["default_sending_time"] = p.DefaultSendingTime.UTC().Format(time.RFC3339)
		}
		if p.AttachmentFileID != nil {
			evContext["attachment_file_id"] = *p.AttachmentFileID
		}

		event := &importing.StageV1{
			JobKey:     jobKey,
			ImportType: ImportType,
			FileID:     p.FileID,
			TTLSeconds: p.TTLSeconds,
			Config:     p.Config,
			Context:    evContext,
		}
		if err := outbox.Publish(ctx, tx, event,
			outbox.WithAvailableAt(now),
			outbox.WithDedupKey(importing.StageDedupKey(jobKey)),
			outbox.WithAggregate("bulk_import", jobKey)); err != nil {
			return err
		}

		requestID = req.ID
		return nil
	})
	return requestID, jobKey, err
}

// importJobKey builds the staging job key for a campaign import. The random
// suffix keeps re-imports of the same request distinct.
func importJobKey(requestID int64) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "message_request:" + strconv.FormatInt(requestID, 10) + ":" + suffix
}
