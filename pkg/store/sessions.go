package store

import (
	"context"

	"github.com/blastkit/blast/pkg/models"
)

// CreateSession inserts a validated session row.
func (s *Store) CreateSession(ctx context.Context, session *models.Session) error {
	if err := session.Validate(); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(session).Error
}

// GetSession retrieves a session by id.
func (s *Store) GetSession(ctx context.Context, id int64) (*models.Session, error) {
	return getByID[models.Session](s.db, ctx, id, models.ErrSessionNotFound)
}

// UpdateSession persists session changes after re-validating the auth schema.
func (s *Store) UpdateSession(ctx context.Context, session *models.Session) error {
	if err := session.Validate(); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Save(session).Error
}

// ListSessionsByUser returns every session owned by a user.
func (s *Store) ListSessionsByUser(ctx context.Context, userID int64) ([]*models.Session, error) {
	return listByField[models.Session](s.db, ctx, "user_id", userID)
}
