// Package services – SessionService
//
// This file implements session issuance for the browser ChatKit widget: one
// outbound call exchanging a workflow identifier for a short-lived client
// secret. The long-lived API credential is never returned to callers; if the
// issuance call is unavailable the request fails rather than falling back to
// exposing the root secret.
package services

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// SessionIssuer is the outbound session-creation dependency. The production
// implementation is gateway.SessionClient.
type SessionIssuer interface {
	Create(ctx context.Context, workflowID, user string) (string, error)
}

// SessionService exchanges workflow identifiers for client secrets.
type SessionService struct {
	// Issuer performs the outbound session-creation call.
	Issuer SessionIssuer
	// DefaultWorkflowID is used when the request does not name a workflow.
	DefaultWorkflowID string
}

// Create issues one session for workflowID (falling back to the configured
// default) and the optional end-user identifier. An absent workflow id in
// both places is a client input error.
func (s *SessionService) Create(ctx context.Context, workflowID, user string) (string, error) {
	tr := otel.Tracer("services/SessionService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(attribute.String("workflow.id", workflowID)),
	)
	defer span.End()

	workflowID = strings.TrimSpace(workflowID)
	if workflowID == "" {
		workflowID = strings.TrimSpace(s.DefaultWorkflowID)
	}
	if workflowID == "" {
		return "", ErrMissingWorkflow
	}
	return s.Issuer.Create(ctx, workflowID, user)
}
