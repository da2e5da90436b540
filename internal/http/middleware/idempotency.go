package middleware

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey is the request header used to deduplicate retried
// mutations. Replay lookup happens in the handler, since the dedup scope
// (the thread) is carried in the request body rather than the path.
const HeaderIdempotencyKey = "Idempotency-Key"

const idempotencyKeyCtx = "idempotency_key"

// defaultIdemPattern accepts UUIDs and similar opaque tokens.
var defaultIdemPattern = regexp.MustCompile(`^[A-Za-z0-9_\-]{1,128}$`)

// IdempotencyOptions tunes header validation.
type IdempotencyOptions struct {
	// MaxLen caps the accepted key length. Defaults to 128.
	MaxLen int
	// Pattern overrides the accepted key syntax. Defaults to
	// [A-Za-z0-9_-]{1,128}.
	Pattern *regexp.Regexp
}

// IdempotencyValidator validates the Idempotency-Key header when present and
// stashes it in the request context for handlers. Requests without the
// header pass through untouched; a malformed key is rejected with 400 before
// any handler work happens.
func IdempotencyValidator(opt IdempotencyOptions) gin.HandlerFunc {
	maxLen := opt.MaxLen
	if maxLen <= 0 {
		maxLen = 128
	}
	pattern := opt.Pattern
	if pattern == nil {
		pattern = defaultIdemPattern
	}
	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pattern.MatchString(key) {
			requestID, _ := c.Get(requestIDKey)
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": asString(requestID),
				"code":       "invalid_idempotency_key",
				"message":    "Idempotency-Key header is malformed",
			})
			return
		}
		c.Set(idempotencyKeyCtx, key)
		c.Next()
	}
}

// GetIdempotencyKey returns the validated idempotency key for the request,
// or "" when the client did not send one.
func GetIdempotencyKey(c *gin.Context) string {
	if v, ok := c.Get(idempotencyKeyCtx); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
