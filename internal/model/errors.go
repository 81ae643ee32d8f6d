package model

import "errors"

// Failure taxonomy surfaced by the engine. Handlers map these to HTTP status
// codes in exactly one place; services wrap them with context via %w.
var (
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrInvalidActor     = errors.New("invalid actor")
	ErrDuplicatePending = errors.New("pending request already exists for this pair")
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrAlreadyResolved  = errors.New("request already resolved")
	ErrConflict         = errors.New("engagement already exists for this request")
	ErrInvalidTime      = errors.New("invalid time")
	ErrStateError       = errors.New("invalid state transition")
)
