package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates malformed or rejected input.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicate indicates a uniqueness conflict.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized indicates a missing or unusable token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrPermissionDenied indicates a required permission code is absent from the caller's claims.
	ErrPermissionDenied = errors.New("missing permission")
	// ErrBranchDenied indicates the target record's branch is outside the caller's branch scope.
	ErrBranchDenied = errors.New("branch access denied")
)

// InvalidTransitionError reports a rejected status transition.
type InvalidTransitionError struct {
	Current string
	Target  string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.Current, e.Target)
}

// ValidationErrorf wraps ErrValidation with a formatted detail message.
func ValidationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
