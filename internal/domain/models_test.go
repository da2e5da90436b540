package domain

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// Enforce FKs so cascades actually execute.
	db.Exec("PRAGMA foreign_keys=ON;")
	return db
}

func TestTableNames(t *testing.T) {
	if (Thread{}).TableName() != "chat_threads" {
		t.Fatalf("Thread.TableName() = %q; want %q", (Thread{}).TableName(), "chat_threads")
	}
	if (ThreadItem{}).TableName() != "chat_thread_items" {
		t.Fatalf("ThreadItem.TableName() = %q; want %q", (ThreadItem{}).TableName(), "chat_thread_items")
	}
	if (Idempotency{}).TableName() != "idempotency" {
		t.Fatalf("Idempotency.TableName() = %q; want %q", (Idempotency{}).TableName(), "idempotency")
	}
}

func TestMigrations_Indexes_AndCascades(t *testing.T) {
	db := newDomainDB(t)

	if err := db.AutoMigrate(&Thread{}, &ThreadItem{}, &Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	th := Thread{ID: "t1", CreatedAt: time.Now().UTC(), Title: "greetings",
		Metadata: datatypes.JSONMap{"source": "test"}}
	if err := db.Create(&th).Error; err != nil {
		t.Fatalf("insert thread: %v", err)
	}

	items := []ThreadItem{
		{ID: "i1", ThreadID: "t1", CreatedAt: time.Now().UTC(), Role: RoleUser,
			Content: datatypes.JSON([]byte(`{"text":"hi"}`))},
		{ID: "i2", ThreadID: "t1", CreatedAt: time.Now().UTC(), Role: RoleAssistant,
			Content: datatypes.JSON([]byte(`{"text":"hello"}`)),
			Raw:     datatypes.JSON([]byte(`{"output":[]}`))},
	}
	for i := range items {
		if err := db.Create(&items[i]).Error; err != nil {
			t.Fatalf("insert item %s: %v", items[i].ID, err)
		}
	}

	// Deleting the thread must cascade to its items.
	if err := db.Delete(&Thread{ID: "t1"}).Error; err != nil {
		t.Fatalf("delete thread: %v", err)
	}
	var n int64
	if err := db.Model(&ThreadItem{}).Where("thread_id = ?", "t1").Count(&n).Error; err != nil {
		t.Fatalf("count items: %v", err)
	}
	if n != 0 {
		t.Fatalf("items after cascade delete = %d; want 0", n)
	}
}

func TestThreadItem_RoleCheckConstraint(t *testing.T) {
	db := newDomainDB(t)
	if err := db.AutoMigrate(&Thread{}, &ThreadItem{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	if err := db.Create(&Thread{ID: "t1", CreatedAt: time.Now().UTC()}).Error; err != nil {
		t.Fatalf("insert thread: %v", err)
	}

	bad := ThreadItem{ID: "i1", ThreadID: "t1", CreatedAt: time.Now().UTC(), Role: "system"}
	if err := db.Create(&bad).Error; err == nil {
		t.Fatal("insert with role=system succeeded; want CHECK violation")
	}
}

func TestIdempotency_UniquePerThreadAndKey(t *testing.T) {
	db := newDomainDB(t)
	if err := db.AutoMigrate(&Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	now := time.Now().UTC()
	rec := Idempotency{ID: "r1", ThreadID: "t1", Key: "k1", ItemID: "i1",
		Status: 200, ExpiresAt: now.Add(time.Hour)}
	if err := db.Create(&rec).Error; err != nil {
		t.Fatalf("insert: %v", err)
	}

	// Same key in the same thread must violate ux_thread_key.
	dup := Idempotency{ID: "r2", ThreadID: "t1", Key: "k1", ItemID: "i2",
		Status: 200, ExpiresAt: now.Add(time.Hour)}
	if err := db.Create(&dup).Error; err == nil {
		t.Fatal("duplicate (thread_id, key) insert succeeded; want unique violation")
	}

	// Same key in a different thread is fine.
	other := Idempotency{ID: "r3", ThreadID: "t2", Key: "k1", ItemID: "i3",
		Status: 200, ExpiresAt: now.Add(time.Hour)}
	if err := db.Create(&other).Error; err != nil {
		t.Fatalf("insert same key in other thread: %v", err)
	}
}
