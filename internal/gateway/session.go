package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultAPIBase is the OpenAI API host used when no override is configured.
const DefaultAPIBase = "https://api.openai.com"

// chatkitBetaHeader opts the request into the ChatKit sessions beta surface.
const chatkitBetaHeader = "chatkit_beta=v1"

// SessionClient exchanges a workflow identifier for a short-lived ChatKit
// session credential. The pinned openai-go release has no ChatKit surface,
// so this gateway speaks to /v1/chatkit/sessions directly.
//
// The returned client secret is the only credential ever handed to the
// browser; the long-lived API key stays server-side.
type SessionClient struct {
	apiKey  string
	baseURL string
	httpc   *http.Client
}

// NewSessionClient builds a session gateway. baseURL overrides the API host
// (tests point it at a local server); timeout <= 0 falls back to
// DefaultCompletionTimeout.
func NewSessionClient(apiKey, baseURL string, timeout time.Duration) *SessionClient {
	if timeout <= 0 {
		timeout = DefaultCompletionTimeout
	}
	if baseURL == "" {
		baseURL = DefaultAPIBase
	}
	return &SessionClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
	}
}

// sessionRequest is the ChatKit session creation payload.
type sessionRequest struct {
	Workflow sessionWorkflow `json:"workflow"`
	User     string          `json:"user,omitempty"`
}

type sessionWorkflow struct {
	ID string `json:"id"`
}

// sessionResponse carries the only field the relay exposes to callers.
type sessionResponse struct {
	ClientSecret string `json:"client_secret"`
}

// Create issues one session-creation call for the given workflow and
// optional end-user identifier, returning the client secret.
//
// Failure modes mirror the completion gateway: non-2xx → *UpstreamError with
// status and body; a 2xx without a client_secret → ErrBadEnvelope.
func (s *SessionClient) Create(ctx context.Context, workflowID, user string) (string, error) {
	body, err := json.Marshal(sessionRequest{
		Workflow: sessionWorkflow{ID: workflowID},
		User:     user,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/v1/chatkit/sessions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("OpenAI-Beta", chatkitBetaHeader)

	resp, err := s.httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	// Cap the echoed body so a misbehaving upstream cannot balloon memory.
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &UpstreamError{Status: resp.StatusCode, Body: string(data)}
	}

	var out sessionResponse
	if err := json.Unmarshal(data, &out); err != nil || out.ClientSecret == "" {
		return "", ErrBadEnvelope
	}
	return out.ClientSecret, nil
}
