// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Thread
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a thread is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// Upsert semantics follow the store contract: re-saving a thread with the
// same identifier overwrites title and metadata only; created_at is written
// once at insert and never touched by a conflict update.
package repo

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/elslabs/go-chatkit-backend/internal/domain"
	"github.com/elslabs/go-chatkit-backend/internal/utils"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// SaveThread upserts a thread keyed by its identifier. On conflict only the
// title and metadata columns are overwritten. Missing CreatedAt defaults to
// the current UTC time; nil metadata is stored as an empty object.
func SaveThread(ctx context.Context, db *gorm.DB, t *domain.Thread) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if t.Metadata == nil {
		t.Metadata = datatypes.JSONMap{}
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"title", "metadata"}),
		}).
		Create(t).Error
}

// EnsureThread inserts a bare thread row with the given identifier if none
// exists yet, leaving an existing row completely untouched. Used by the chat
// path so the item insert that follows always has a parent row.
func EnsureThread(ctx context.Context, db *gorm.DB, id string) error {
	t := &domain.Thread{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		Metadata:  datatypes.JSONMap{},
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).
		Create(t).Error
}

// GetThread fetches a single thread by its identifier. If the record does
// not exist, it returns ErrNotFound. On other DB errors, the raw error is
// returned.
func GetThread(ctx context.Context, db *gorm.DB, id string) (*domain.Thread, error) {
	var t domain.Thread
	if err := db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// ListThreadsPage returns up to limit threads ordered by (created_at, id),
// resuming strictly after the cursor when one is supplied. desc flips both
// the ordering and the cursor comparison.
func ListThreadsPage(ctx context.Context, db *gorm.DB, after *utils.Cursor, limit int, desc bool) ([]domain.Thread, error) {
	q := db.WithContext(ctx).Model(&domain.Thread{})
	if after != nil {
		if desc {
			q = q.Where("created_at < ? OR (created_at = ? AND id < ?)", after.CreatedAt, after.CreatedAt, after.ID)
		} else {
			q = q.Where("created_at > ? OR (created_at = ? AND id > ?)", after.CreatedAt, after.CreatedAt, after.ID)
		}
	}
	if desc {
		q = q.Order("created_at DESC, id DESC")
	} else {
		q = q.Order("created_at ASC, id ASC")
	}
	var out []domain.Thread
	err := q.Limit(limit).Find(&out).Error
	return out, err
}

// UpdateThreadTitle sets the title of an existing thread. Missing rows
// return ErrNotFound.
func UpdateThreadTitle(ctx context.Context, db *gorm.DB, id, title string) error {
	res := db.WithContext(ctx).
		Model(&domain.Thread{}).
		Where("id = ?", id).
		Update("title", title)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteThread removes a thread row unconditionally. Deleting a missing
// thread is not an error. Item cleanup is handled by the service layer
// (explicit bulk delete inside the same transaction) in addition to the FK
// cascade, so the behavior holds on drivers without FK enforcement.
func DeleteThread(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Thread{}).Error
}

// CountThreads returns the total number of thread rows.
func CountThreads(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Thread{}).Count(&total).Error
	return total, err
}
