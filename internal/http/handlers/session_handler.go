// ChatKit session HTTP handler.
//
// This file exposes the session bootstrap endpoint:
//   - POST /create-session  (exchange a workflow id for a ChatKit client secret)
//
// The provider API key never leaves the server; clients receive only the
// short-lived client secret issued upstream.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/elslabs/go-chatkit-backend/internal/gateway"
	"github.com/elslabs/go-chatkit-backend/internal/services"
)

// CreateSessionRequest is the JSON payload for session creation. The nested
// workflow object mirrors the upstream ChatKit sessions API.
type CreateSessionRequest struct {
	Workflow struct {
		// ID selects the ChatKit workflow; falls back to the configured
		// default when empty.
		ID string `json:"id" example:"wf_68d9f..."`
	} `json:"workflow"`
	// User optionally scopes the session to an end-user identifier.
	User string `json:"user" example:"user_123"`
}

// CreateSessionResponse carries the client secret returned upstream.
type CreateSessionResponse struct {
	ClientSecret string `json:"client_secret" example:"ek_68da0..."`
}

// CreateSession godoc
// @ID          createSession
// @Summary     Create a ChatKit session
// @Description Exchanges a workflow id for a short-lived ChatKit client secret. The server-side API key is never exposed.
// @Tags        Sessions
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.CreateSessionRequest  true  "Session payload"
//
// @Success     200  {object}  handlers.CreateSessionResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Missing workflow id"
// @Failure     502  {object}  handlers.ErrorResponse  "Upstream failure"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /create-session [post]
func (h *Handlers) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	secret, err := h.sessionSvc.Create(c.Request.Context(), req.Workflow.ID, req.User)
	if err != nil {
		var upstream *gateway.UpstreamError
		switch {
		case errors.Is(err, services.ErrMissingWorkflow):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "workflow id required")
		case errors.Is(err, gateway.ErrBadEnvelope):
			fail(c, http.StatusBadGateway, ErrCodeUpstreamViolation, "session provider returned an unusable response")
		case errors.As(err, &upstream):
			fail(c, http.StatusBadGateway, ErrCodeUpstreamFailed, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		}
		return
	}

	ok(c, http.StatusOK, CreateSessionResponse{ClientSecret: secret})
}
