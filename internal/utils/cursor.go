package utils

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

// Cursor is the opaque pagination position handed to clients. It pins the
// (created_at, id) ordering key of the last row on the previous page, so a
// page fetch resumes strictly after that row regardless of concurrent
// inserts.
type Cursor struct {
	CreatedAt time.Time `json:"t"`
	ID        string    `json:"id"`
}

// ErrBadCursor is returned when a cursor string cannot be decoded.
var ErrBadCursor = errors.New("malformed pagination cursor")

// EncodeCursor serializes a cursor as URL-safe base64 JSON.
func EncodeCursor(createdAt time.Time, id string) string {
	b, _ := json.Marshal(Cursor{CreatedAt: createdAt.UTC(), ID: id})
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeCursor parses a cursor previously produced by EncodeCursor. An empty
// string decodes to a nil cursor (start of the result set).
func DecodeCursor(s string) (*Cursor, error) {
	if s == "" {
		return nil, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, ErrBadCursor
	}
	var c Cursor
	if err := json.Unmarshal(b, &c); err != nil || c.ID == "" {
		return nil, ErrBadCursor
	}
	return &c, nil
}
