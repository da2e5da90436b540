// Package services defines the business logic for the chat relay: thread and
// item persistence, the chat exchange flow, and session issuance. This file
// centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer; mapping
// to HTTP status codes is performed at the handler layer.
package services

import "errors"

var (
	// ErrThreadNotFound indicates that the requested thread does not exist.
	ErrThreadNotFound = errors.New("thread not found")

	// ErrEmptyMessage is returned when a chat request contains no message.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrTooLong is returned when a message exceeds the maximum configured
	// length limit.
	ErrTooLong = errors.New("message too long")

	// ErrMissingWorkflow is returned when session creation is requested
	// without a workflow identifier (neither in the request nor configured).
	ErrMissingWorkflow = errors.New("workflow id is required")

	// ErrNotImplemented is returned by store operations that are declared by
	// the contract but out of scope for this revision (attachments).
	ErrNotImplemented = errors.New("not implemented")
)
