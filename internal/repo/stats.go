// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/elslabs/go-chatkit-backend/internal/domain"
)

// ItemsStats returns aggregate metadata for items within a thread: the total
// row count and the greatest created_at among them. When the thread has no
// items, count is 0 and maxCreatedAt is nil.
func ItemsStats(ctx context.Context, db *gorm.DB, threadID string) (count int64, maxCreatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.ThreadItem{}).Where("thread_id = ?", threadID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Latest created_at via ORDER BY (avoid MAX() -> TEXT in SQLite)
	var row struct {
		CreatedAt time.Time
	}
	if err = q.Select("created_at").Order("created_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.CreatedAt, nil
}
