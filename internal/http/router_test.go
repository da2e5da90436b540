package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/elslabs/go-chatkit-backend/internal/config"
	"github.com/elslabs/go-chatkit-backend/internal/domain"
	"github.com/elslabs/go-chatkit-backend/internal/gateway"
)

type fakeCompleter struct {
	reply gateway.Reply
	err   error
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (gateway.Reply, error) {
	return f.reply, f.err
}

type fakeIssuer struct {
	secret string
	err    error
}

func (f *fakeIssuer) Create(ctx context.Context, workflowID, user string) (string, error) {
	return f.secret, f.err
}

func testConfig() config.Config {
	return config.Config{
		Port:           "0",
		GinMode:        "test",
		APIBasePath:    "/api",
		RateRPS:        1000,
		RateBurst:      1000,
		IdempotencyTTL: time.Hour,
		OpenAI: config.OpenAIConfig{
			APIKey:            "sk-test",
			Model:             "gpt-4.1-mini",
			CompletionTimeout: 5 * time.Second,
			WorkflowID:        "wf_default",
		},
		OTEL: config.OTELConfig{ServiceName: "router-test"},
	}
}

func newTestRouter(t *testing.T, deps Deps) *gin.Engine {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("router_test_%d.db", time.Now().UnixNano()))
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

	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, db, testConfig(), deps)
	return r
}

func defaultDeps() Deps {
	return Deps{
		Completer: &fakeCompleter{reply: gateway.Reply{Text: "stub reply"}},
		Sessions:  &fakeIssuer{secret: "ek_stub"},
	}
}

func TestRouter_Health(t *testing.T) {
	r := newTestRouter(t, defaultDeps())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok"`) {
		t.Fatalf("body = %s", w.Body.String())
	}
	if acao := w.Header().Get("Access-Control-Allow-Origin"); acao != "*" {
		t.Fatalf("ACAO = %q; want *", acao)
	}
	if rid := w.Header().Get("X-Request-ID"); rid == "" {
		t.Fatal("no request id")
	}
}

func TestRouter_Metrics(t *testing.T) {
	r := newTestRouter(t, defaultDeps())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestRouter_UnknownRouteEnvelope(t *testing.T) {
	r := newTestRouter(t, defaultDeps())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d; want 404", w.Code)
	}
	if !strings.Contains(w.Body.String(), "not_found") {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	r := newTestRouter(t, defaultDeps())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/chat", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d; want 405", w.Code)
	}
	if !strings.Contains(w.Body.String(), "method_not_allowed") {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestRouter_ChatEndToEnd(t *testing.T) {
	r := newTestRouter(t, defaultDeps())

	body := bytes.NewBufferString(`{"message":"hello from the router test"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/chat", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		ThreadID string `json:"thread_id"`
		Reply    string `json:"reply"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.ThreadID == "" || resp.Reply != "stub reply" {
		t.Fatalf("resp = %+v", resp)
	}

	// Both turn items must be listable through the admin surface.
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/api/threads/"+resp.ThreadID+"/items", nil))
	if w2.Code != http.StatusOK {
		t.Fatalf("items status = %d; body = %s", w2.Code, w2.Body.String())
	}
	var page struct {
		Data []domain.ThreadItem `json:"data"`
	}
	if err := json.Unmarshal(w2.Body.Bytes(), &page); err != nil {
		t.Fatalf("unmarshal items: %v", err)
	}
	if len(page.Data) != 2 {
		t.Fatalf("items = %d; want 2", len(page.Data))
	}
}

func TestRouter_CreateSessionEndToEnd(t *testing.T) {
	r := newTestRouter(t, defaultDeps())

	req := httptest.NewRequest(http.MethodPost, "/api/create-session",
		bytes.NewBufferString(`{"workflow":{"id":"wf_explicit"}}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "ek_stub") {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestRouter_DeleteThreadEndToEnd(t *testing.T) {
	r := newTestRouter(t, defaultDeps())

	// Create a thread through the chat endpoint.
	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		bytes.NewBufferString(`{"message":"to be deleted shortly"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var resp struct {
		ThreadID string `json:"thread_id"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.ThreadID == "" {
		t.Fatalf("no thread id; body = %s", w.Body.String())
	}

	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, httptest.NewRequest(http.MethodDelete, "/api/threads/"+resp.ThreadID, nil))
	if w2.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w2.Code)
	}

	w3 := httptest.NewRecorder()
	r.ServeHTTP(w3, httptest.NewRequest(http.MethodGet, "/api/threads/"+resp.ThreadID, nil))
	if w3.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d; want 404", w3.Code)
	}
}

func TestRouter_MalformedIdempotencyKeyRejected(t *testing.T) {
	r := newTestRouter(t, defaultDeps())

	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		bytes.NewBufferString(`{"message":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", "has spaces which are invalid")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d; want 400", w.Code)
	}
}
