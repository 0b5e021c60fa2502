package messaging

import (
	"context"
	"strconv"
	"time"

	"github.com/blastkit/blast/internal/logger"
	"github.com/blastkit/blast/pkg/messenger"
	"github.com/blastkit/blast/pkg/metrics"
	"github.com/blastkit/blast/pkg/models"
	"github.com/blastkit/blast/pkg/outbox"
	"github.com/blastkit/blast/pkg/store"
)

// SendBatch is how many due messages one ready-to-send event drains.
const SendBatch = 50

// SendHandler delivers a request's due pending messages through the
// network adapter bound to its session. Per-message failures never abort
// the batch; each message reaches a terminal status on its own.
type SendHandler struct {
	registry *messenger.Registry
	metrics  *metrics.Metrics
}

// NewSendHandler wires the send handler's collaborators. metrics may be nil.
func NewSendHandler(registry *messenger.Registry, m *metrics.Metrics) *SendHandler {
	return &SendHandler{registry: registry, metrics: m}
}

// Handle drains one batch. Missing request or session is an infrastructure
// error so the event retries; when messages were sent and more remain due,
// the same event re-enqueues itself for an immediate next batch.
func (h *SendHandler) Handle(ctx context.Context, tx *store.Store, ev *ReadyToSendV1) error {
	now := time.Now().UTC()

	req, err := tx.GetMessagingRequest(ctx, ev.MessageRequestID)
	if err != nil {
		return err
	}
	session, err := tx.GetSession(ctx, req.SessionID)
	if err != nil {
		return err
	}

	// Claim system-wide, then keep only this request's messages. The claim
	// locks rows against concurrent workers; the filter is cheap.
	claimed, err := tx.GetPendingMessagesDue(ctx, now, SendBatch)
	if err != nil {
		return err
	}
	var messages []*models.Message
	for _, msg := range claimed {
		if msg.MessageRequestID == req.ID {
			messages = append(messages, msg)
		}
	}
	if len(messages) == 0 {
		return nil
	}

	adapter, err := h.registry.ForSession(session)
	if err != nil {
		return err
	}

	sent := 0
	for _, msg := range messages {
		if err := h.deliver(ctx, tx, session, adapter, msg); err != nil {
			logger.WarnCtx(ctx, "message delivery failed",
				logger.KeyMessageID, msg.ID,
				logger.KeyRequestID, req.ID,
				logger.Err(err))
			if err := msg.MarkFailed(err.Error()); err != nil {
				return err
			}
		} else {
			if err := msg.MarkSuccessful(now); err != nil {
				return err
			}
			sent++
		}
		if err := tx.UpdateMessage(ctx, msg); err != nil {
			return err
		}
		h.metrics.RecordDelivery(string(session.SessionType), string(msg.Status))
	}

	logger.InfoCtx(ctx, "send batch drained",
		logger.KeyRequestID, req.ID,
		logger.KeySessionID, session.ID,
		logger.KeyNetwork, string(session.SessionType),
		logger.KeyCount, sent,
		"failed", len(messages)-sent)

	if sent == 0 {
		return nil
	}

	more, err := tx.HasPendingMessagesDue(ctx, req.ID, now)
	if err != nil {
		return err
	}
	if !more {
		return nil
	}

	next := &ReadyToSendV1{MessageRequestID: req.ID}
	return outbox.Publish(ctx, tx, next,
		outbox.WithAvailableAt(now),
		outbox.WithDedupKey(SendDedupKey(req.ID)),
		outbox.WithAggregate("messaging_request", strconv.FormatInt(req.ID, 10)))
}

// deliver sends one message. Any returned error is a per-message failure
// recorded on the row, not a batch abort.
func (h *SendHandler) deliver(ctx context.Context, tx *store.Store, session *models.Session, adapter messenger.Messenger, msg *models.Message) error {
	contact := models.Contact{
		ID:          msg.UserID,
		Username:    msg.Username,
		PhoneNumber: msg.PhoneNumber,
	}
	if err := contact.Validate(session.SessionType); err != nil {
		return err
	}

	var file *models.File
	if msg.AttachmentFileID != nil {
		var err error
		file, err = tx.GetFile(ctx, *msg.AttachmentFileID)
		if err != nil {
			return err
		}
	}

	return messenger.Send(ctx, adapter, contact, msg.Text, file)
}
