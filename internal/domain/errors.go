package domain

import "errors"

var (
	// ErrValidation marks malformed or incomplete caller input (HTTP 400).
	ErrValidation = errors.New("validation error")
	// ErrUnauthorized marks a missing or rejected credential (HTTP 401).
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound marks a lookup miss, e.g. an unknown phone number on
	// registration (HTTP 404).
	ErrNotFound = errors.New("not found")
	// ErrUpstream marks a failed call to the messaging backend or the order
	// backend (HTTP 500). Retrying is the caller's responsibility and must be
	// guarded by an idempotency key.
	ErrUpstream = errors.New("upstream unavailable")
)
