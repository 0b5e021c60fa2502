package store

import (
	"context"

	"gorm.io/gorm/clause"

	"github.com/blastkit/blast/pkg/models"
)

// AddOutboxEvent inserts a new outbox row. Call it inside the same WithTx
// as the business write that produced the event.
func (s *Store) AddOutboxEvent(ctx context.Context, event *models.OutboxEvent) error {
	return s.db.WithContext(ctx).Create(event).Error
}

// GetOutboxEvent retrieves a single outbox row by id.
func (s *Store) GetOutboxEvent(ctx context.Context, id int64) (*models.OutboxEvent, error) {
	return getByID[models.OutboxEvent](s.db, ctx, id, models.ErrEventNotFound)
}

// UpdateOutboxEvent persists dispatcher bookkeeping on an event row.
func (s *Store) UpdateOutboxEvent(ctx context.Context, event *models.OutboxEvent) error {
	return s.db.WithContext(ctx).Save(event).Error
}

// GetReadyOutboxEvents claims up to limit unprocessed events that are due at
// now, oldest first with id as tiebreaker. On PostgreSQL rows are locked with
// FOR UPDATE SKIP LOCKED so concurrent dispatchers never claim the same
// event; run it inside WithTx to hold the locks. A non-positive limit claims
// nothing.
func (s *Store) GetReadyOutboxEvents(ctx context.Context, limit int) ([]*models.OutboxEvent, error) {
	if limit <= 0 {
		return []*models.OutboxEvent{}, nil
	}

	q := s.db.WithContext(ctx).
		Where("processed_at IS NULL").
		Where("available_at <= ?", s.db.NowFunc()).
		Order("available_at ASC, id ASC").
		Limit(limit)

	if s.isPostgres() {
		q = q.Clauses(clause.Locking{
			Strength: clause.LockingStrengthUpdate,
			Options:  clause.LockingOptionsSkipLocked,
		})
	}

	events := []*models.OutboxEvent{}
	if err := q.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// CountPendingOutboxEvents returns the number of unprocessed events,
// regardless of availability. Used for health reporting.
func (s *Store) CountPendingOutboxEvents(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.OutboxEvent{}).
		Where("processed_at IS NULL").
		Count(&count).Error
	return count, err
}
