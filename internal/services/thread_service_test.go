package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/elslabs/go-chatkit-backend/internal/domain"
)

func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("svc_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := db.AutoMigrate(&domain.Thread{}, &domain.ThreadItem{}, &domain.Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestThreadService_SaveAndLoadThread(t *testing.T) {
	svc := NewThreadService(newServiceDB(t))
	ctx := context.Background()

	th := &domain.Thread{ID: "t1", Title: "notes", Metadata: datatypes.JSONMap{"lang": "en"}}
	if err := svc.SaveThread(ctx, th); err != nil {
		t.Fatalf("SaveThread: %v", err)
	}

	got, err := svc.LoadThread(ctx, "t1")
	if err != nil {
		t.Fatalf("LoadThread: %v", err)
	}
	if got.Title != "notes" || got.Metadata["lang"] != "en" {
		t.Fatalf("unexpected thread: %+v", got)
	}

	if _, err := svc.LoadThread(ctx, "missing"); !errors.Is(err, ErrThreadNotFound) {
		t.Fatalf("err = %v; want ErrThreadNotFound", err)
	}
}

func TestThreadService_SaveItem_CreatesParentThread(t *testing.T) {
	svc := NewThreadService(newServiceDB(t))
	ctx := context.Background()

	item := &domain.ThreadItem{
		ID:      "i1",
		Role:    domain.RoleUser,
		Content: datatypes.JSON([]byte(`{"text":"hi"}`)),
	}
	if err := svc.SaveItem(ctx, "fresh-thread", item); err != nil {
		t.Fatalf("SaveItem: %v", err)
	}

	// The parent row must exist even though it was never saved explicitly.
	if _, err := svc.LoadThread(ctx, "fresh-thread"); err != nil {
		t.Fatalf("parent thread missing: %v", err)
	}

	page, err := svc.LoadThreadItems(ctx, "fresh-thread", 10, "", "")
	if err != nil {
		t.Fatalf("LoadThreadItems: %v", err)
	}
	if len(page.Data) != 1 || page.Data[0].ID != "i1" {
		t.Fatalf("items = %+v", page.Data)
	}
}

func TestThreadService_LoadThreads_Pagination(t *testing.T) {
	svc := NewThreadService(newServiceDB(t))
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		th := &domain.Thread{
			ID:        fmt.Sprintf("t%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := svc.SaveThread(ctx, th); err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}

	page1, err := svc.LoadThreads(ctx, 2, "", "")
	if err != nil {
		t.Fatalf("LoadThreads: %v", err)
	}
	if len(page1.Data) != 2 || !page1.HasMore || page1.After == "" {
		t.Fatalf("page1 = %+v", page1)
	}
	if page1.Data[0].ID != "t0" || page1.Data[1].ID != "t1" {
		t.Fatalf("page1 ids = %s,%s", page1.Data[0].ID, page1.Data[1].ID)
	}

	page2, err := svc.LoadThreads(ctx, 2, page1.After, "")
	if err != nil {
		t.Fatalf("LoadThreads page2: %v", err)
	}
	if len(page2.Data) != 2 || page2.Data[0].ID != "t2" || !page2.HasMore {
		t.Fatalf("page2 = %+v", page2)
	}

	page3, err := svc.LoadThreads(ctx, 2, page2.After, "")
	if err != nil {
		t.Fatalf("LoadThreads page3: %v", err)
	}
	if len(page3.Data) != 1 || page3.HasMore || page3.After != "" {
		t.Fatalf("page3 = %+v", page3)
	}

	// Descending starts from the newest row.
	descPage, err := svc.LoadThreads(ctx, 2, "", OrderDesc)
	if err != nil {
		t.Fatalf("LoadThreads desc: %v", err)
	}
	if descPage.Data[0].ID != "t4" {
		t.Fatalf("desc first = %s; want t4", descPage.Data[0].ID)
	}
}

func TestThreadService_LoadThreads_EmptyPageNeverNil(t *testing.T) {
	svc := NewThreadService(newServiceDB(t))

	page, err := svc.LoadThreads(context.Background(), 10, "", "")
	if err != nil {
		t.Fatalf("LoadThreads: %v", err)
	}
	if page.Data == nil {
		t.Fatal("Data is nil; want empty slice")
	}
	if page.HasMore || page.After != "" {
		t.Fatalf("page = %+v; want empty terminal page", page)
	}
}

func TestThreadService_LoadThreads_BadCursor(t *testing.T) {
	svc := NewThreadService(newServiceDB(t))
	if _, err := svc.LoadThreads(context.Background(), 10, "!!not-a-cursor!!", ""); err == nil {
		t.Fatal("expected error for malformed cursor")
	}
}

func TestThreadService_LoadThreadItems_MissingThread(t *testing.T) {
	svc := NewThreadService(newServiceDB(t))
	_, err := svc.LoadThreadItems(context.Background(), "missing", 10, "", "")
	if !errors.Is(err, ErrThreadNotFound) {
		t.Fatalf("err = %v; want ErrThreadNotFound", err)
	}
}

func TestThreadService_DeleteThread_RemovesItems(t *testing.T) {
	db := newServiceDB(t)
	svc := NewThreadService(db)
	ctx := context.Background()

	if err := svc.SaveItem(ctx, "t1", &domain.ThreadItem{
		ID: "i1", Role: domain.RoleUser, Content: datatypes.JSON([]byte(`{"text":"hi"}`)),
	}); err != nil {
		t.Fatalf("SaveItem: %v", err)
	}

	if err := svc.DeleteThread(ctx, "t1"); err != nil {
		t.Fatalf("DeleteThread: %v", err)
	}
	if _, err := svc.LoadThread(ctx, "t1"); !errors.Is(err, ErrThreadNotFound) {
		t.Fatalf("thread survived delete: err = %v", err)
	}
	var n int64
	db.Model(&domain.ThreadItem{}).Where("thread_id = ?", "t1").Count(&n)
	if n != 0 {
		t.Fatalf("items left = %d; want 0", n)
	}

	// Deleting again is a no-op.
	if err := svc.DeleteThread(ctx, "t1"); err != nil {
		t.Fatalf("DeleteThread missing: %v", err)
	}
}

func TestThreadService_DeleteThreadItem(t *testing.T) {
	svc := NewThreadService(newServiceDB(t))
	ctx := context.Background()

	if err := svc.SaveItem(ctx, "t1", &domain.ThreadItem{
		ID: "i1", Role: domain.RoleUser, Content: datatypes.JSON([]byte(`{"text":"hi"}`)),
	}); err != nil {
		t.Fatalf("SaveItem: %v", err)
	}
	if err := svc.DeleteThreadItem(ctx, "t1", "i1"); err != nil {
		t.Fatalf("DeleteThreadItem: %v", err)
	}
	page, err := svc.LoadThreadItems(ctx, "t1", 10, "", "")
	if err != nil {
		t.Fatalf("LoadThreadItems: %v", err)
	}
	if len(page.Data) != 0 {
		t.Fatalf("items = %+v; want empty", page.Data)
	}
}

func TestThreadService_Attachments_NotImplemented(t *testing.T) {
	svc := NewThreadService(newServiceDB(t))
	ctx := context.Background()

	if err := svc.SaveAttachment(ctx, "t1", "a1"); !errors.Is(err, ErrNotImplemented) {
		t.Fatalf("SaveAttachment err = %v; want ErrNotImplemented", err)
	}
	if err := svc.LoadAttachment(ctx, "a1"); !errors.Is(err, ErrNotImplemented) {
		t.Fatalf("LoadAttachment err = %v; want ErrNotImplemented", err)
	}
	if err := svc.DeleteAttachment(ctx, "a1"); !errors.Is(err, ErrNotImplemented) {
		t.Fatalf("DeleteAttachment err = %v; want ErrNotImplemented", err)
	}
}
