package store

import (
	"context"

	"github.com/blastkit/blast/pkg/models"
)

// CreateFile inserts a stored-object reference.
func (s *Store) CreateFile(ctx context.Context, file *models.File) error {
	return s.db.WithContext(ctx).Create(file).Error
}

// GetFile retrieves a file reference by id.
func (s *Store) GetFile(ctx context.Context, id int64) (*models.File, error) {
	return getByID[models.File](s.db, ctx, id, models.ErrFileNotFound)
}

// DeleteFile removes a file reference row. The object itself is the file
// service's concern.
func (s *Store) DeleteFile(ctx context.Context, id int64) error {
	result := s.db.WithContext(ctx).Delete(&models.File{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrFileNotFound
	}
	return nil
}
