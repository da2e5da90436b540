package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/elslabs/go-chatkit-backend/internal/domain"
	"github.com/elslabs/go-chatkit-backend/internal/utils"
)

func seedItem(t *testing.T, db *gorm.DB, id, threadID, role string, createdAt time.Time) {
	t.Helper()
	it := domain.ThreadItem{
		ID:        id,
		ThreadID:  threadID,
		CreatedAt: createdAt,
		Role:      role,
		Content:   datatypes.JSON([]byte(`{"text":"x"}`)),
	}
	if err := db.Create(&it).Error; err != nil {
		t.Fatalf("seed item %s: %v", id, err)
	}
}

func TestSaveItem_InsertThenUpsert(t *testing.T) {
	db := newRepoDB(t, &domain.Thread{}, &domain.ThreadItem{})
	ctx := context.Background()
	seedThread(t, db, "t1", time.Now().UTC())

	it := &domain.ThreadItem{
		ID:       "i1",
		ThreadID: "t1",
		Role:     domain.RoleUser,
		Content:  datatypes.JSON([]byte(`{"text":"hi"}`)),
	}
	if err := SaveItem(ctx, db, it); err != nil {
		t.Fatalf("SaveItem insert: %v", err)
	}
	if it.CreatedAt.IsZero() {
		t.Fatal("CreatedAt not defaulted on insert")
	}
	created := it.CreatedAt

	// Re-save with the same id: content overwritten, created_at kept.
	again := &domain.ThreadItem{
		ID:        "i1",
		ThreadID:  "t1",
		CreatedAt: created.Add(time.Hour),
		Role:      domain.RoleUser,
		Content:   datatypes.JSON([]byte(`{"text":"edited"}`)),
	}
	if err := SaveItem(ctx, db, again); err != nil {
		t.Fatalf("SaveItem upsert: %v", err)
	}

	got, err := GetItem(ctx, db, "i1")
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if string(got.Content) != `{"text":"edited"}` {
		t.Fatalf("Content = %s; want edited payload", got.Content)
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("CreatedAt changed on upsert: %v -> %v", created, got.CreatedAt)
	}
}

func TestGetItem_NotFound(t *testing.T) {
	db := newRepoDB(t, &domain.Thread{}, &domain.ThreadItem{})
	_, err := GetItem(context.Background(), db, "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v; want ErrNotFound", err)
	}
}

func TestListThreadItemsPage_ScopedKeyset(t *testing.T) {
	db := newRepoDB(t, &domain.Thread{}, &domain.ThreadItem{})
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	seedThread(t, db, "t1", base)
	seedThread(t, db, "t2", base)
	seedItem(t, db, "i1", "t1", domain.RoleUser, base)
	seedItem(t, db, "i2", "t1", domain.RoleAssistant, base.Add(time.Second))
	seedItem(t, db, "i3", "t1", domain.RoleUser, base.Add(2*time.Second))
	// Noise in another thread must never leak into the page.
	seedItem(t, db, "x1", "t2", domain.RoleUser, base.Add(time.Second))

	page1, err := ListThreadItemsPage(ctx, db, "t1", nil, 2, false)
	if err != nil {
		t.Fatalf("ListThreadItemsPage: %v", err)
	}
	if len(page1) != 2 || page1[0].ID != "i1" || page1[1].ID != "i2" {
		t.Fatalf("page1 ids = %v", itemIDs(page1))
	}

	cur := &utils.Cursor{CreatedAt: page1[1].CreatedAt, ID: page1[1].ID}
	page2, err := ListThreadItemsPage(ctx, db, "t1", cur, 2, false)
	if err != nil {
		t.Fatalf("ListThreadItemsPage cursor: %v", err)
	}
	if len(page2) != 1 || page2[0].ID != "i3" {
		t.Fatalf("page2 ids = %v", itemIDs(page2))
	}

	desc, err := ListThreadItemsPage(ctx, db, "t1", nil, 10, true)
	if err != nil {
		t.Fatalf("ListThreadItemsPage desc: %v", err)
	}
	if len(desc) != 3 || desc[0].ID != "i3" {
		t.Fatalf("desc ids = %v", itemIDs(desc))
	}
}

func TestCountThreadItems(t *testing.T) {
	db := newRepoDB(t, &domain.Thread{}, &domain.ThreadItem{})
	ctx := context.Background()
	now := time.Now().UTC()
	seedThread(t, db, "t1", now)
	seedItem(t, db, "i1", "t1", domain.RoleUser, now)
	seedItem(t, db, "i2", "t1", domain.RoleAssistant, now)

	n, err := CountThreadItems(ctx, db, "t1")
	if err != nil {
		t.Fatalf("CountThreadItems: %v", err)
	}
	if n != 2 {
		t.Fatalf("count = %d; want 2", n)
	}
}

func TestDeleteThreadItem_ScopedToThread(t *testing.T) {
	db := newRepoDB(t, &domain.Thread{}, &domain.ThreadItem{})
	ctx := context.Background()
	now := time.Now().UTC()
	seedThread(t, db, "t1", now)
	seedThread(t, db, "t2", now)
	seedItem(t, db, "i1", "t1", domain.RoleUser, now)

	// Wrong thread: the item must survive.
	if err := DeleteThreadItem(ctx, db, "t2", "i1"); err != nil {
		t.Fatalf("DeleteThreadItem wrong thread: %v", err)
	}
	if _, err := GetItem(ctx, db, "i1"); err != nil {
		t.Fatalf("item deleted across thread scope: %v", err)
	}

	if err := DeleteThreadItem(ctx, db, "t1", "i1"); err != nil {
		t.Fatalf("DeleteThreadItem: %v", err)
	}
	if _, err := GetItem(ctx, db, "i1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err after delete = %v; want ErrNotFound", err)
	}

	// Deleting an absent item is not an error.
	if err := DeleteThreadItem(ctx, db, "t1", "i1"); err != nil {
		t.Fatalf("DeleteThreadItem missing: %v", err)
	}
}

func TestDeleteThreadItems_Bulk(t *testing.T) {
	db := newRepoDB(t, &domain.Thread{}, &domain.ThreadItem{})
	ctx := context.Background()
	now := time.Now().UTC()
	seedThread(t, db, "t1", now)
	seedThread(t, db, "t2", now)
	seedItem(t, db, "i1", "t1", domain.RoleUser, now)
	seedItem(t, db, "i2", "t1", domain.RoleAssistant, now)
	seedItem(t, db, "x1", "t2", domain.RoleUser, now)

	if err := DeleteThreadItems(ctx, db, "t1"); err != nil {
		t.Fatalf("DeleteThreadItems: %v", err)
	}
	n, _ := CountThreadItems(ctx, db, "t1")
	if n != 0 {
		t.Fatalf("t1 items left = %d; want 0", n)
	}
	other, _ := CountThreadItems(ctx, db, "t2")
	if other != 1 {
		t.Fatalf("t2 items = %d; want 1", other)
	}
}

func itemIDs(items []domain.ThreadItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}
