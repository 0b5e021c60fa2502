package store

import (
	"context"

	"gorm.io/gorm"
)

// Generic helpers shared by the per-entity store files. They operate on the
// raw *gorm.DB so they work equally inside and outside a transaction, and
// convert gorm.ErrRecordNotFound to the caller's domain error.

// getByID retrieves a single record of type T by primary key.
func getByID[T any](db *gorm.DB, ctx context.Context, id int64, notFoundErr error) (*T, error) {
	var result T
	if err := db.WithContext(ctx).First(&result, id).Error; err != nil {
		return nil, convertNotFoundError(err, notFoundErr)
	}
	return &result, nil
}

// listByField retrieves all records of type T matching field=value.
// Returns an empty slice (not nil) on success with no records.
func listByField[T any](db *gorm.DB, ctx context.Context, field string, value any) ([]*T, error) {
	results := []*T{}
	if err := db.WithContext(ctx).Where(field+" = ?", value).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
