package core

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrUserNotFound      = fmt.Errorf("user %w", ErrNotFound)
	ErrOperationNotFound = fmt.Errorf("operation %w", ErrNotFound)

	// ErrBadRequest marks malformed requests that are not entity
	// validation failures (unknown chart kind, bad date string).
	ErrBadRequest = errors.New("bad request")

	// ErrConflict is returned when an insert collides with an existing id.
	ErrConflict = errors.New("id already in use")

	// ErrWriteNotConfirmed is returned when a record cannot be read back
	// after it was written.
	ErrWriteNotConfirmed = errors.New("write not confirmed")
)

// ValidationError reports a field invariant violated by a candidate
// User or Operation. It is always correctable by the caller.
type ValidationError struct {
	Field string
	Rule  string
}

func (e *ValidationError) Error() string {
	return e.Field + " " + e.Rule
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// BadRequestf builds an error wrapping ErrBadRequest.
func BadRequestf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, args...))
}
