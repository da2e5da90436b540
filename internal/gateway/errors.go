// Package gateway holds the two outbound API clients of the relay: the
// completion gateway (OpenAI Responses API) and the session gateway (ChatKit
// session issuance). Both perform exactly one call per invocation — no
// retries — and surface upstream failures verbatim so handlers can map them
// to a 502.
package gateway

import (
	"errors"
	"fmt"
)

// ErrBadEnvelope reports that a 2xx completion response did not carry the
// expected output[0].content[0].text shape. This is treated as an upstream
// contract violation and surfaced as a hard failure, never papered over with
// fallback text.
var ErrBadEnvelope = errors.New("unexpected completion response envelope")

// UpstreamError carries the status and body of a non-success upstream
// response.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.Status, e.Body)
}
