package store

import (
	"context"

	"github.com/blastkit/blast/pkg/models"
)

// CreateMessagingRequest inserts a new request row.
func (s *Store) CreateMessagingRequest(ctx context.Context, request *models.MessagingRequest) error {
	return s.db.WithContext(ctx).Create(request).Error
}

// GetMessagingRequest retrieves a request by id.
func (s *Store) GetMessagingRequest(ctx context.Context, id int64) (*models.MessagingRequest, error) {
	return getByID[models.MessagingRequest](s.db, ctx, id, models.ErrRequestNotFound)
}

// ListMessagingRequestsByUser returns every request owned by a user.
func (s *Store) ListMessagingRequestsByUser(ctx context.Context, userID int64) ([]*models.MessagingRequest, error) {
	return listByField[models.MessagingRequest](s.db, ctx, "user_id", userID)
}
