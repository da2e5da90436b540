// Package services – ThreadService
//
// This file implements the thread/item store contract on top of the repo
// layer: idempotent thread and item upserts, cursor-paginated listings,
// lookups with NotFound semantics, and unconditional deletes. Attachment
// operations are declared by the contract but remain unimplemented in this
// revision.
//
// Observability: public methods are OpenTelemetry-instrumented; spans carry
// thread identifiers and pagination parameters where applicable.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/elslabs/go-chatkit-backend/internal/domain"
	"github.com/elslabs/go-chatkit-backend/internal/repo"
	"github.com/elslabs/go-chatkit-backend/internal/utils"
)

// Listing bounds shared by thread and item pagination.
const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// OrderDesc is the order token selecting newest-first listings; anything
// else means ascending.
const OrderDesc = "desc"

// ThreadService exposes the persistence contract for threads and their
// items. All methods are safe for concurrent use; the *gorm.DB handle owns
// the connection pool.
type ThreadService struct {
	DB *gorm.DB
}

// NewThreadService constructs a ThreadService over the given handle.
func NewThreadService(db *gorm.DB) *ThreadService {
	return &ThreadService{DB: db}
}

// SaveThread upserts a thread. On conflict with an existing identifier only
// title and metadata are overwritten; the creation timestamp survives.
func (s *ThreadService) SaveThread(ctx context.Context, t *domain.Thread) error {
	tr := otel.Tracer("services/ThreadService")
	ctx, span := tr.Start(ctx, "SaveThread",
		trace.WithAttributes(attribute.String("thread.id", t.ID)),
	)
	defer span.End()

	return repo.SaveThread(ctx, s.DB, t)
}

// LoadThread returns the thread or ErrThreadNotFound.
func (s *ThreadService) LoadThread(ctx context.Context, id string) (*domain.Thread, error) {
	tr := otel.Tracer("services/ThreadService")
	ctx, span := tr.Start(ctx, "LoadThread",
		trace.WithAttributes(attribute.String("thread.id", id)),
	)
	defer span.End()

	t, err := repo.GetThread(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrThreadNotFound
		}
		return nil, err
	}
	return t, nil
}

// LoadThreads returns one cursor window of threads ordered by creation time.
// order "desc" lists newest first; any other value lists oldest first.
func (s *ThreadService) LoadThreads(ctx context.Context, limit int, after, order string) (Page[domain.Thread], error) {
	tr := otel.Tracer("services/ThreadService")
	ctx, span := tr.Start(ctx, "LoadThreads",
		trace.WithAttributes(attribute.Int("limit", limit), attribute.String("order", order)),
	)
	defer span.End()

	limit = utils.ClampLimit(limit, defaultPageLimit, maxPageLimit)
	cur, err := utils.DecodeCursor(after)
	if err != nil {
		return Page[domain.Thread]{}, err
	}
	desc := order == OrderDesc

	// Fetch one extra row to learn whether another page exists.
	rows, err := repo.ListThreadsPage(ctx, s.DB, cur, limit+1, desc)
	if err != nil {
		return Page[domain.Thread]{}, err
	}
	return paginate(rows, limit, func(t domain.Thread) string {
		return utils.EncodeCursor(t.CreatedAt, t.ID)
	}), nil
}

// SaveItem upserts an item into the given thread. The parent thread row is
// created first when absent, preserving the row-before-item invariant.
func (s *ThreadService) SaveItem(ctx context.Context, threadID string, item *domain.ThreadItem) error {
	tr := otel.Tracer("services/ThreadService")
	ctx, span := tr.Start(ctx, "SaveItem",
		trace.WithAttributes(
			attribute.String("thread.id", threadID),
			attribute.String("item.id", item.ID),
		),
	)
	defer span.End()

	item.ThreadID = threadID
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.EnsureThread(ctx, tx, threadID); err != nil {
			return err
		}
		return repo.SaveItem(ctx, tx, item)
	})
}

// LoadThreadItems returns one cursor window of a thread's items ordered by
// creation time. A missing thread yields ErrThreadNotFound.
func (s *ThreadService) LoadThreadItems(ctx context.Context, threadID string, limit int, after, order string) (Page[domain.ThreadItem], error) {
	tr := otel.Tracer("services/ThreadService")
	ctx, span := tr.Start(ctx, "LoadThreadItems",
		trace.WithAttributes(
			attribute.String("thread.id", threadID),
			attribute.Int("limit", limit),
			attribute.String("order", order),
		),
	)
	defer span.End()

	if _, err := repo.GetThread(ctx, s.DB, threadID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Page[domain.ThreadItem]{}, ErrThreadNotFound
		}
		return Page[domain.ThreadItem]{}, err
	}

	limit = utils.ClampLimit(limit, defaultPageLimit, maxPageLimit)
	cur, err := utils.DecodeCursor(after)
	if err != nil {
		return Page[domain.ThreadItem]{}, err
	}
	desc := order == OrderDesc

	rows, err := repo.ListThreadItemsPage(ctx, s.DB, threadID, cur, limit+1, desc)
	if err != nil {
		return Page[domain.ThreadItem]{}, err
	}
	return paginate(rows, limit, func(it domain.ThreadItem) string {
		return utils.EncodeCursor(it.CreatedAt, it.ID)
	}), nil
}

// DeleteThread removes a thread and all of its items in one transaction.
// Deleting a missing thread is a no-op.
func (s *ThreadService) DeleteThread(ctx context.Context, id string) error {
	tr := otel.Tracer("services/ThreadService")
	ctx, span := tr.Start(ctx, "DeleteThread",
		trace.WithAttributes(attribute.String("thread.id", id)),
	)
	defer span.End()

	// The FK cascade covers Postgres; the explicit item delete keeps the
	// same behavior on drivers without FK enforcement.
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.DeleteThreadItems(ctx, tx, id); err != nil {
			return err
		}
		return repo.DeleteThread(ctx, tx, id)
	})
}

// DeleteThreadItem removes one item scoped to its thread. Deleting a missing
// item is a no-op.
func (s *ThreadService) DeleteThreadItem(ctx context.Context, threadID, itemID string) error {
	tr := otel.Tracer("services/ThreadService")
	ctx, span := tr.Start(ctx, "DeleteThreadItem",
		trace.WithAttributes(
			attribute.String("thread.id", threadID),
			attribute.String("item.id", itemID),
		),
	)
	defer span.End()

	return repo.DeleteThreadItem(ctx, s.DB, threadID, itemID)
}

// Attachment operations are part of the store contract but out of scope for
// this revision.

// SaveAttachment always fails with ErrNotImplemented.
func (s *ThreadService) SaveAttachment(ctx context.Context, threadID, attachmentID string) error {
	return ErrNotImplemented
}

// LoadAttachment always fails with ErrNotImplemented.
func (s *ThreadService) LoadAttachment(ctx context.Context, attachmentID string) error {
	return ErrNotImplemented
}

// DeleteAttachment always fails with ErrNotImplemented.
func (s *ThreadService) DeleteAttachment(ctx context.Context, attachmentID string) error {
	return ErrNotImplemented
}

// paginate trims an over-fetched row slice to the page limit and computes
// the has-more flag plus the next cursor.
func paginate[T any](rows []T, limit int, cursorOf func(T) string) Page[T] {
	p := Page[T]{Data: rows}
	if len(rows) > limit {
		p.Data = rows[:limit]
		p.HasMore = true
	}
	if p.HasMore && len(p.Data) > 0 {
		p.After = cursorOf(p.Data[len(p.Data)-1])
	}
	if p.Data == nil {
		p.Data = []T{}
	}
	return p
}
