package services

import (
	"errors"
	"fmt"
)

// Domain errors returned by the service layer. Handlers map these onto HTTP
// statuses; no storage-level error ever reaches a handler unclassified.
var (
	// ErrNotFound covers a missing ticket or account, and also an
	// own-ticket lookup for a ticket that belongs to someone else, so
	// that non-owners cannot probe for ticket existence.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is a role or ownership violation on an operation
	// where existence is not hidden, e.g. commenting on a foreign
	// ticket as an end user.
	ErrForbidden = errors.New("forbidden")

	// ErrUnauthenticated covers a missing or invalid caller identity.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrBadCredentials is a password mismatch at login. Handlers
	// present it identically to ErrNotFound on the login path.
	ErrBadCredentials = errors.New("bad credentials")

	ErrUsernameTaken = errors.New("username already exists")
	ErrEmailTaken    = errors.New("email already exists")

	ErrBadCurrentPassword = errors.New("current password is incorrect")
	ErrSamePassword       = errors.New("new password must differ from the current password")
)

// ValidationError reports independently-checkable field failures as a
// field-to-message map.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %v", e.Fields)
}

// NewValidationError builds a single-field validation failure.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}
