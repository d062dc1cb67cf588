package models

import "errors"

// Domain error kinds. Every failure is terminal for the request and is
// mapped to an HTTP status at the API surface; nothing retries locally.
var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrDuplicate         = errors.New("already exists")
	ErrAuthFailure       = errors.New("invalid credentials")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrVersionConflict is returned by stores when a compare-and-swap
	// update loses a race. Callers reload and re-check preconditions.
	ErrVersionConflict = errors.New("version conflict")
)
