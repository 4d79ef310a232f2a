package db

import (
	"errors"
	"strings"
)

// Typed outcomes of core operations. Controllers translate these to HTTP
// statuses; the repo never writes partial state when returning one.
var (
	ErrNotFound        = errors.New("not found")
	ErrOutOfStock      = errors.New("item not available")
	ErrAlreadyReturned = errors.New("loan already returned")
	ErrMissingActor    = errors.New("user barcode or session required")
	ErrForbidden       = errors.New("loan does not belong to this user")
	ErrHasOpenLoans    = errors.New("open loans exist")
	ErrConflict        = errors.New("duplicate barcode or username")
)

// IsConflict detects a unique-constraint violation from the underlying
// store. Matched by message because the Postgres and sqlite drivers surface
// different error types.
func IsConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConflict) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
