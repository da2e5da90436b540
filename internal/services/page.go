package services

// Page is one window of a cursor-paginated listing. After is the opaque
// cursor of the last returned row; it is only meaningful when HasMore is
// true, and feeding it back yields the next non-overlapping window.
type Page[T any] struct {
	Data    []T    `json:"data"`
	HasMore bool   `json:"has_more"`
	After   string `json:"after,omitempty"`
}
