// Chat HTTP handlers.
//
// This file exposes the chat relay endpoint:
//   - POST /chat  (append user message, relay to completion provider, persist reply)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses. Retried POSTs carrying an
// Idempotency-Key header are replayed from the stored assistant item instead
// of triggering a second completion call.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/elslabs/go-chatkit-backend/internal/domain"
	"github.com/elslabs/go-chatkit-backend/internal/gateway"
	"github.com/elslabs/go-chatkit-backend/internal/http/middleware"
	"github.com/elslabs/go-chatkit-backend/internal/repo"
	"github.com/elslabs/go-chatkit-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// ChatService defines the chat turn operation consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ChatService interface {
	// Exchange appends the user message, relays it to the completion
	// provider, and persists the assistant reply. An empty threadID starts a
	// new thread.
	Exchange(ctx context.Context, threadID, message string) (*services.Turn, error)
}

// ThreadService defines thread and item retrieval operations.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ThreadService interface {
	// LoadThread returns a thread by id.
	LoadThread(ctx context.Context, id string) (*domain.Thread, error)
	// LoadThreads returns a cursor page of threads ordered by creation time.
	LoadThreads(ctx context.Context, limit int, after, order string) (services.Page[domain.Thread], error)
	// LoadThreadItems returns a cursor page of items within a thread.
	LoadThreadItems(ctx context.Context, threadID string, limit int, after, order string) (services.Page[domain.ThreadItem], error)
	// DeleteThread removes a thread and all of its items.
	DeleteThread(ctx context.Context, id string) error
	// DeleteThreadItem removes a single item from a thread.
	DeleteThreadItem(ctx context.Context, threadID, itemID string) error
}

// SessionService defines ChatKit session issuance consumed by HTTP handlers.
type SessionService interface {
	// Create exchanges a workflow id for a short-lived client secret.
	Create(ctx context.Context, workflowID, user string) (string, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for chat, threads, and sessions.
// It depends on abstract service interfaces to keep transport concerns
// separate from business logic.
type Handlers struct {
	chatSvc    ChatService
	threadSvc  ThreadService
	sessionSvc SessionService

	// IdempotencyTTL bounds how long a replayed chat response stays valid.
	IdempotencyTTL time.Duration
}

// New constructs and returns a Handlers instance bound to the given services.
func New(chatSvc ChatService, threadSvc ThreadService, sessionSvc SessionService) *Handlers {
	return &Handlers{
		chatSvc:        chatSvc,
		threadSvc:      threadSvc,
		sessionSvc:     sessionSvc,
		IdempotencyTTL: 24 * time.Hour,
	}
}

//
// DTOs
//

// ChatRequest is the JSON payload for a chat turn.
type ChatRequest struct {
	// ThreadID continues an existing thread; empty starts a new one.
	ThreadID string `json:"thread_id" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
	// Message is the user's prompt text.
	Message string `json:"message" example:"What is keyset pagination?"`
}

// ChatResponse is the JSON body returned by a successful chat turn.
type ChatResponse struct {
	// ThreadID identifies the (possibly newly created) thread.
	ThreadID string `json:"thread_id" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
	// Reply is the assistant text.
	Reply string `json:"reply" example:"Keyset pagination orders rows by a stable key..."`
}

//
// Handlers
//

// Chat godoc
// @ID          chat
// @Summary     Send a chat message
// @Description Appends the user message to a thread (creating one when thread_id is empty), relays it to the completion provider, persists the assistant reply, and returns it.
// @Tags        Chat
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false "Dedup key for safe retries"  example(4f7f54a0-18a5-4b57-a1e2-6a4c1f62a1f0)
// @Param       body             body    handlers.ChatRequest  true  "Chat payload"
//
// @Success     200  {object}  handlers.ChatResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Missing message"
// @Failure     502  {object}  handlers.ErrorResponse  "Upstream failure or contract violation"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /chat [post]
func (h *Handlers) Chat(c *gin.Context) {
	ctx := c.Request.Context()

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Missing message")
		return
	}

	// Replay check: a retried turn with the same key within the same thread
	// returns the stored assistant reply without a second provider call.
	key := middleware.GetIdempotencyKey(c)
	if key != "" && req.ThreadID != "" {
		if db := h.db(); db != nil {
			if rec, err := repo.GetIdempotency(ctx, db, req.ThreadID, key, time.Now().UTC()); err == nil && rec != nil {
				if resp, ok := h.replayTurn(ctx, db, req.ThreadID, rec.ItemID); ok {
					c.Header("Idempotency-Replayed", "true")
					c.JSON(rec.Status, resp)
					return
				}
			}
		}
	}

	turn, err := h.chatSvc.Exchange(ctx, req.ThreadID, req.Message)
	if err != nil {
		h.failChat(c, err)
		return
	}

	// Record the turn for replay (best effort; a lost record only costs one
	// duplicated provider call on retry).
	if key != "" && h.IdempotencyTTL > 0 {
		if db := h.db(); db != nil {
			_, _ = repo.CreateIdempotency(ctx, db, turn.ThreadID, key, turn.ItemID, http.StatusOK, h.IdempotencyTTL)
		}
	}

	ok(c, http.StatusOK, ChatResponse{ThreadID: turn.ThreadID, Reply: turn.Reply})
}

// failChat maps chat service errors onto HTTP statuses and stable codes.
func (h *Handlers) failChat(c *gin.Context, err error) {
	var upstream *gateway.UpstreamError
	switch {
	case errors.Is(err, services.ErrEmptyMessage):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "Missing message")
	case errors.Is(err, services.ErrTooLong):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message exceeds maximum length")
	case errors.Is(err, gateway.ErrBadEnvelope):
		fail(c, http.StatusBadGateway, ErrCodeUpstreamViolation, "completion provider returned an unusable response")
	case errors.As(err, &upstream):
		fail(c, http.StatusBadGateway, ErrCodeUpstreamFailed, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		fail(c, http.StatusBadGateway, ErrCodeUpstreamFailed, "completion provider timed out")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeChatFailed, err.Error())
	}
}

// db exposes the underlying GORM handle when the service is the concrete
// implementation; replay is skipped for stubbed services in tests.
func (h *Handlers) db() *gorm.DB {
	if svc, ok := h.chatSvc.(*services.ChatService); ok {
		return svc.DB
	}
	return nil
}

// replayTurn rebuilds a ChatResponse from the stored assistant item.
func (h *Handlers) replayTurn(ctx context.Context, db *gorm.DB, threadID, itemID string) (ChatResponse, bool) {
	item, err := repo.GetItem(ctx, db, itemID)
	if err != nil || item.ThreadID != threadID {
		return ChatResponse{}, false
	}
	var payload struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(item.Content, &payload); err != nil {
		return ChatResponse{}, false
	}
	return ChatResponse{ThreadID: threadID, Reply: payload.Text}, true
}
