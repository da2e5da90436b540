// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the ThreadItem
// model.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/elslabs/go-chatkit-backend/internal/domain"
	"github.com/elslabs/go-chatkit-backend/internal/utils"
)

// SaveItem upserts a thread item keyed by its identifier. On conflict the
// role, content, and raw columns are overwritten (last write wins); the
// owning thread and created_at are fixed at insert.
func SaveItem(ctx context.Context, db *gorm.DB, item *domain.ThreadItem) error {
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"role", "content", "raw"}),
		}).
		Create(item).Error
}

// GetItem fetches an item by ID, returning ErrNotFound when missing.
func GetItem(ctx context.Context, db *gorm.DB, id string) (*domain.ThreadItem, error) {
	var it domain.ThreadItem
	if err := db.WithContext(ctx).Where("id = ?", id).First(&it).Error; err != nil {
		return nil, err
	}
	return &it, nil
}

// ListThreadItemsPage returns up to limit items of a thread ordered by
// (created_at, id), resuming strictly after the cursor when one is supplied.
func ListThreadItemsPage(ctx context.Context, db *gorm.DB, threadID string, after *utils.Cursor, limit int, desc bool) ([]domain.ThreadItem, error) {
	q := db.WithContext(ctx).Model(&domain.ThreadItem{}).Where("thread_id = ?", threadID)
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
	var out []domain.ThreadItem
	err := q.Limit(limit).Find(&out).Error
	return out, err
}

// CountThreadItems uses a raw COUNT so a missing table surfaces as an error.
func CountThreadItems(ctx context.Context, db *gorm.DB, threadID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Raw("SELECT COUNT(*) FROM chat_thread_items WHERE thread_id = ?", threadID).
		Scan(&total).Error
	return total, err
}

// DeleteThreadItem removes one item scoped to its thread. Deleting a missing
// item is not an error.
func DeleteThreadItem(ctx context.Context, db *gorm.DB, threadID, itemID string) error {
	return db.WithContext(ctx).
		Where("thread_id = ? AND id = ?", threadID, itemID).
		Delete(&domain.ThreadItem{}).Error
}

// DeleteThreadItems removes every item belonging to a thread. Called by the
// service layer before the thread row itself is deleted.
func DeleteThreadItems(ctx context.Context, db *gorm.DB, threadID string) error {
	return db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Delete(&domain.ThreadItem{}).Error
}
