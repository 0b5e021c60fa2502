package store

import (
	"context"
	"time"

	"gorm.io/gorm/clause"

	"github.com/blastkit/blast/pkg/models"
)

// CreateMessages inserts a batch of messages in one statement.
func (s *Store) CreateMessages(ctx context.Context, messages []*models.Message) error {
	if len(messages) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(&messages).Error
}

// GetMessage retrieves a single message by id.
func (s *Store) GetMessage(ctx context.Context, id int64) (*models.Message, error) {
	return getByID[models.Message](s.db, ctx, id, models.ErrMessageNotFound)
}

// UpdateMessage persists a delivery status change.
func (s *Store) UpdateMessage(ctx context.Context, message *models.Message) error {
	return s.db.WithContext(ctx).Save(message).Error
}

// ListMessagesByRequest returns every message belonging to a request.
func (s *Store) ListMessagesByRequest(ctx context.Context, requestID int64) ([]*models.Message, error) {
	return listByField[models.Message](s.db, ctx, "message_request_id", requestID)
}

// GetPendingMessagesDue claims up to limit pending messages, system-wide,
// whose sending time has passed, oldest first. Callers filter to their own
// request. On PostgreSQL the rows are locked with FOR UPDATE SKIP LOCKED;
// run it inside WithTx to hold the locks until the batch's status updates
// commit. A non-positive limit claims nothing.
func (s *Store) GetPendingMessagesDue(ctx context.Context, before time.Time, limit int) ([]*models.Message, error) {
	if limit <= 0 {
		return []*models.Message{}, nil
	}

	q := s.db.WithContext(ctx).
		Where("status = ?", models.MessageStatusPending).
		Where("sent_time IS NULL").
		Where("sending_time <= ?", before).
		Order("sending_time ASC, id ASC").
		Limit(limit)

	if s.isPostgres() {
		q = q.Clauses(clause.Locking{
			Strength: clause.LockingStrengthUpdate,
			Options:  clause.LockingOptionsSkipLocked,
		})
	}

	messages := []*models.Message{}
	if err := q.Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

// HasPendingMessagesDue reports whether any pending due message remains for
// the request after a batch was handled. Uses limit 1 without locking.
func (s *Store) HasPendingMessagesDue(ctx context.Context, requestID int64, before time.Time) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("message_request_id = ?", requestID).
		Where("status = ?", models.MessageStatusPending).
		Where("sending_time <= ?", before).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
