// Package services – ChatService
//
// This file implements the chat exchange flow: validate the prompt, make
// sure the thread row exists, persist the user item, relay the prompt to the
// completion gateway, and persist the assistant item. The user item is
// written before the outbound call on purpose: if the completion fails the
// message is not lost, the thread simply shows an unanswered turn.
package services

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/elslabs/go-chatkit-backend/internal/domain"
	"github.com/elslabs/go-chatkit-backend/internal/gateway"
	"github.com/elslabs/go-chatkit-backend/internal/repo"
)

// Completer is the outbound text-completion dependency of ChatService.
// The production implementation is gateway.CompletionClient.
type Completer interface {
	// Complete relays one prompt and returns the reply text plus the raw
	// response envelope.
	Complete(ctx context.Context, prompt string) (gateway.Reply, error)
}

// Turn is the outcome of one successful chat exchange.
type Turn struct {
	// ThreadID identifies the (possibly newly created) thread.
	ThreadID string `json:"thread_id"`
	// Reply is the assistant text extracted from the completion envelope.
	Reply string `json:"reply"`
	// ItemID is the identifier of the persisted assistant item.
	ItemID string `json:"-"`
}

// ChatService owns the chat turn lifecycle.
type ChatService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Completer performs the single outbound completion call per turn.
	Completer Completer

	// MaxPromptRunes caps accepted prompts by rune length (0 disables).
	MaxPromptRunes int
	// TitleMaxLen caps auto-generated thread titles by rune length.
	TitleMaxLen int
	// TitleLocale selects the casing locale for auto-generated titles.
	TitleLocale language.Tag
}

// NewChatService constructs a ChatService with sane defaults.
func NewChatService(db *gorm.DB, completer Completer) *ChatService {
	return &ChatService{
		DB:             db,
		Completer:      completer,
		MaxPromptRunes: 4000,
		TitleMaxLen:    60,
		TitleLocale:    language.English,
	}
}

// Exchange runs one chat turn. An empty threadID allocates a fresh thread
// identifier. The user item is durable before the completion call starts;
// the assistant item is written only on success.
func (s *ChatService) Exchange(ctx context.Context, threadID, message string) (*Turn, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "Exchange",
		trace.WithAttributes(attribute.String("thread.id", threadID)),
	)
	defer span.End()

	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	if s.MaxPromptRunes > 0 && utf8.RuneCountInString(message) > s.MaxPromptRunes {
		return nil, ErrTooLong
	}

	if threadID == "" {
		threadID = uuid.NewString()
	}

	userContent, err := json.Marshal(map[string]string{"text": message})
	if err != nil {
		return nil, err
	}

	// Thread row first, then the user item, in one transaction. Auto-title
	// piggybacks on the same write when the thread has no title yet.
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repo.EnsureThread(ctx, tx, threadID); err != nil {
			return err
		}
		item := &domain.ThreadItem{
			ID:       uuid.NewString(),
			ThreadID: threadID,
			Role:     domain.RoleUser,
			Content:  datatypes.JSON(userContent),
			Raw:      datatypes.JSON(userContent),
		}
		if err := repo.SaveItem(ctx, tx, item); err != nil {
			return err
		}

		t, err := repo.GetThread(ctx, tx, threadID)
		if err != nil {
			return err
		}
		if strings.TrimSpace(t.Title) == "" {
			if gen := s.generateTitle(message); gen != "" {
				// Best effort; a failed title update never fails the turn.
				_ = repo.UpdateThreadTitle(ctx, tx, threadID, gen)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	reply, err := s.Completer.Complete(ctx, message)
	if err != nil {
		// The user item stays behind: the turn is recorded as unanswered.
		return nil, err
	}

	assistantContent, err := json.Marshal(map[string]string{"text": reply.Text})
	if err != nil {
		return nil, err
	}
	raw := reply.Raw
	if len(raw) == 0 {
		raw = assistantContent
	}
	assistant := &domain.ThreadItem{
		ID:       uuid.NewString(),
		ThreadID: threadID,
		Role:     domain.RoleAssistant,
		Content:  datatypes.JSON(assistantContent),
		Raw:      datatypes.JSON(raw),
	}
	if err := repo.SaveItem(ctx, s.DB, assistant); err != nil {
		return nil, err
	}

	return &Turn{ThreadID: threadID, Reply: reply.Text, ItemID: assistant.ID}, nil
}

// generateTitle derives a compact thread title from the first prompt.
func (s *ChatService) generateTitle(prompt string) string {
	toks := titleWordRE.FindAllString(strings.ToLower(prompt), -1)
	if len(toks) == 0 {
		return ""
	}

	locale := s.TitleLocale
	if locale == language.Und {
		locale = language.English
	}
	caser := cases.Title(locale)

	out := make([]string, 0, 8)
	for _, w := range toks {
		if _, skip := titleStopWords[w]; skip {
			continue
		}
		out = append(out, caser.String(w))
		if len(out) >= 8 {
			break
		}
	}
	if len(out) == 0 {
		return ""
	}
	title := strings.Join(out, " ")

	max := s.TitleMaxLen
	if max <= 0 {
		max = 60
	}
	if utf8.RuneCountInString(title) > max {
		title = string([]rune(title)[:max])
	}
	return title
}

// titleWordRE extracts Unicode letters with optional trailing digits.
var titleWordRE = regexp.MustCompile(`[\p{L}]+[\p{N}]*`)

// titleStopWords is a minimal English stop-word set for compact titles.
var titleStopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "of": {}, "to": {}, "in": {},
	"is": {}, "are": {}, "for": {}, "on": {}, "with": {}, "by": {}, "from": {},
	"at": {}, "as": {}, "that": {}, "this": {}, "it": {}, "be": {}, "was": {}, "were": {},
}
