// Thread HTTP handlers.
//
// This file exposes REST endpoints for thread resources:
//   - GET    /threads                      (list, cursor-paginated)
//   - GET    /threads/{id}                 (fetch one)
//   - GET    /threads/{id}/items           (list items, cursor-paginated, ETag support)
//   - DELETE /threads/{id}                 (delete thread and items)
//   - DELETE /threads/{id}/items/{itemID}  (delete one item)
//
// Pagination is keyset-based: responses carry an opaque `after` cursor that
// clients pass back verbatim to fetch the next page.
package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/elslabs/go-chatkit-backend/internal/repo"
	"github.com/elslabs/go-chatkit-backend/internal/services"
	"github.com/elslabs/go-chatkit-backend/internal/utils"
)

// pageParams parses the shared cursor pagination query parameters.
func pageParams(c *gin.Context) (limit int, after, order string) {
	limit = utils.AtoiDefault(c.Query("limit"), 0)
	return limit, c.Query("after"), c.Query("order")
}

// ListThreads godoc
// @ID          listThreads
// @Summary     List threads (cursor-paginated)
// @Description Returns a page of threads ordered by creation time. Pass the returned `after` cursor to fetch the next page.
// @Tags        Threads
// @Produce     json
//
// @Param       limit  query  int     false "Items per page"             minimum(1) maximum(100) default(20)
// @Param       after  query  string  false "Opaque cursor from a previous page"
// @Param       order  query  string  false "asc (default) or desc"      Enums(asc, desc)
//
// @Success     200  {object}  services.Page[domain.Thread]
// @Failure     400  {object}  handlers.ErrorResponse  "Malformed cursor"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /threads [get]
func (h *Handlers) ListThreads(c *gin.Context) {
	limit, after, order := pageParams(c)
	page, err := h.threadSvc.LoadThreads(c.Request.Context(), limit, after, order)
	if err != nil {
		if errors.Is(err, utils.ErrBadCursor) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "malformed pagination cursor")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, page)
}

// GetThread godoc
// @ID          getThread
// @Summary     Fetch a thread
// @Description Returns a single thread by id.
// @Tags        Threads
// @Produce     json
//
// @Param       id  path  string  true  "Thread ID"
//
// @Success     200  {object}  domain.Thread
// @Failure     404  {object}  handlers.ErrorResponse  "Thread not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /threads/{id} [get]
func (h *Handlers) GetThread(c *gin.Context) {
	t, err := h.threadSvc.LoadThread(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrThreadNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "thread not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, t)
}

// ListThreadItems godoc
// @ID          listThreadItems
// @Summary     List thread items (cursor-paginated)
// @Description Returns a page of items within a thread. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Threads
// @Produce     json
//
// @Param       id             path    string  true  "Thread ID"
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"items:abc:3:1700000000\")
// @Param       limit          query   int     false "Items per page"              minimum(1) maximum(100) default(20)
// @Param       after          query   string  false "Opaque cursor from a previous page"
// @Param       order          query   string  false "asc (default) or desc"       Enums(asc, desc)
//
// @Success     200  {object}  services.Page[domain.ThreadItem]
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string "Not Modified"
// @Failure     400  {object}  handlers.ErrorResponse  "Malformed cursor"
// @Failure     404  {object}  handlers.ErrorResponse  "Thread not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /threads/{id}/items [get]
func (h *Handlers) ListThreadItems(c *gin.Context) {
	ctx := c.Request.Context()
	threadID := c.Param("id")
	limit, after, order := pageParams(c)

	// ETag pre-check (best effort): only for unfiltered first pages, since
	// the stats cover the whole thread.
	if after == "" {
		if db := h.threadDB(); db != nil {
			count, maxTS, err := repo.ItemsStats(ctx, db, threadID)
			if err == nil && count > 0 {
				var ts int64
				if maxTS != nil {
					ts = maxTS.Unix()
				}
				etag := fmt.Sprintf(`W/"items:%s:%d:%d"`, threadID, count, ts)
				c.Header("ETag", etag)
				if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
					c.Status(http.StatusNotModified)
					return
				}
			}
		}
	}

	page, err := h.threadSvc.LoadThreadItems(ctx, threadID, limit, after, order)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrThreadNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "thread not found")
		case errors.Is(err, utils.ErrBadCursor):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "malformed pagination cursor")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, page)
}

// DeleteThread godoc
// @ID          deleteThread
// @Summary     Delete a thread
// @Description Removes a thread and all of its items. Deleting an absent thread still returns 204.
// @Tags        Threads
//
// @Param       id  path  string  true  "Thread ID"
//
// @Success     204  {string}  string "No Content"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /threads/{id} [delete]
func (h *Handlers) DeleteThread(c *gin.Context) {
	if err := h.threadSvc.DeleteThread(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeDeleteFailed, err.Error())
		return
	}
	noContent(c)
}

// DeleteThreadItem godoc
// @ID          deleteThreadItem
// @Summary     Delete a thread item
// @Description Removes a single item from a thread. Deleting an absent item still returns 204.
// @Tags        Threads
//
// @Param       id      path  string  true  "Thread ID"
// @Param       itemID  path  string  true  "Item ID"
//
// @Success     204  {string}  string "No Content"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /threads/{id}/items/{itemID} [delete]
func (h *Handlers) DeleteThreadItem(c *gin.Context) {
	if err := h.threadSvc.DeleteThreadItem(c.Request.Context(), c.Param("id"), c.Param("itemID")); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeDeleteFailed, err.Error())
		return
	}
	noContent(c)
}

// threadDB exposes the underlying GORM handle when the service is the
// concrete implementation; the ETag fast path is skipped for stubs.
func (h *Handlers) threadDB() *gorm.DB {
	if svc, ok := h.threadSvc.(*services.ThreadService); ok {
		return svc.DB
	}
	return nil
}
