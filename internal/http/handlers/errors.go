// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes symbolic error code constants that are mapped to HTTP
// responses (via the `fail()` helper in this package). These codes give clients
// a stable, machine-readable error taxonomy alongside human-readable messages.
//
// Conventions:
//   - Codes are lowercase, snake_case, and domain-agnostic unless explicitly noted.
//   - Generic codes (e.g., bad_request, not_found) mirror common HTTP status
//     semantics to aid interoperability.
//   - Upstream codes distinguish a provider that failed (upstream_failed) from a
//     provider that answered 2xx with an envelope we could not interpret
//     (upstream_contract_violation). Both map to 502.
//   - All error responses must include both an HTTP status and one of these codes.

package handlers

const (
	ErrCodeBadRequest  = "bad_request"
	ErrCodeNotFound    = "not_found"
	ErrCodeRateLimited = "too_many_requests"
	ErrCodeInternal    = "internal_error"

	// Domain-specific:
	ErrCodeChatFailed        = "chat_failed"
	ErrCodeCreateFailed      = "create_failed"
	ErrCodeListFailed        = "list_failed"
	ErrCodeDeleteFailed      = "delete_failed"
	ErrCodeNotImplemented    = "not_implemented"
	ErrCodeMethodNotAllowed  = "method_not_allowed"
	ErrCodeUpstreamFailed    = "upstream_failed"
	ErrCodeUpstreamViolation = "upstream_contract_violation"
)
