// Package domain defines the persistence models for the relay backend.
// These types are used by GORM for database schema mapping and are shared
// across the repository and service layers.
package domain

import "time"

// Idempotency records the result of a previously processed chat turn, keyed
// by (thread_id, key). A replayed request with the same Idempotency-Key
// returns the recorded assistant item instead of issuing a second completion
// call.
type Idempotency struct {
	ID        string    `gorm:"type:text;primaryKey"`
	ThreadID  string    `gorm:"type:text;not null;uniqueIndex:ux_thread_key,priority:1"`
	Key       string    `gorm:"type:text;not null;uniqueIndex:ux_thread_key,priority:2"`
	ItemID    string    `gorm:"type:text;not null"`
	Status    int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	ExpiresAt time.Time `gorm:"index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
