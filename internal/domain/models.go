// Package domain defines the persistence models for conversation threads and
// their items. These types are mapped with GORM and form the core data layer
// of the relay backend.
package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Role values for thread items.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Thread is the metadata row for one conversation. Threads are created
// implicitly on the first chat turn that references them, or explicitly via
// the store API. Their identifier is client-supplied or generated, and is
// treated as opaque.
//
// Fields:
//   - ID: opaque string primary key (UUID when generated server-side).
//   - CreatedAt: set once at insert; upserts never overwrite it.
//   - Title: optional human-readable title (auto-generated from the first
//     user prompt when empty).
//   - Metadata: free-form key/value mapping stored as jsonb.
type Thread struct {
	ID        string            `json:"id"         gorm:"type:text;primaryKey"`
	CreatedAt time.Time         `json:"created_at" gorm:"index"`
	Title     string            `json:"title"`
	Metadata  datatypes.JSONMap `json:"metadata"   gorm:"type:jsonb"`
}

// TableName returns the database table name for Thread.
func (Thread) TableName() string { return "chat_threads" }

// ThreadItem is a single ordered message within a thread. Two items are
// written per successful chat turn: one with role "user" holding the prompt,
// and one with role "assistant" holding the extracted reply plus the verbatim
// upstream response envelope for audit/replay.
//
// Items within a thread are totally ordered by (CreatedAt, ID); the ID
// tiebreak keeps the order stable when the clock resolution collides.
type ThreadItem struct {
	ID        string         `json:"id"         gorm:"type:text;primaryKey"`
	ThreadID  string         `json:"thread_id"  gorm:"type:text;not null;index:idx_thread_items,priority:1"`
	CreatedAt time.Time      `json:"created_at" gorm:"index:idx_thread_items,priority:2"`
	Role      string         `json:"role"       gorm:"type:text;not null;check:role IN ('user','assistant')"`
	Content   datatypes.JSON `json:"content"    gorm:"type:jsonb"`
	Raw       datatypes.JSON `json:"raw"        gorm:"type:jsonb"`

	// Thread is the parent conversation. Items are cascade-deleted when
	// their thread is removed.
	Thread Thread `json:"-" gorm:"foreignKey:ThreadID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ThreadItem.
func (ThreadItem) TableName() string { return "chat_thread_items" }
