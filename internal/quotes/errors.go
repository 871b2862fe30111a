package quotes

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the requested quote does not exist.
	ErrNotFound = errors.New("quote not found")
	// ErrConflict is returned when an order number is already taken by
	// another quote.
	ErrConflict = errors.New("order number already exists")
	// ErrTransient is returned when the sequence allocator exhausts its
	// retries against a contended counter row.
	ErrTransient = errors.New("transient store error")
)

// ValidationError carries per-field violations for a rejected payload.
type ValidationError struct {
	Violations map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %v", e.Violations)
}

// ExternalServiceError wraps a failure from the media host. The
// underlying cause is kept for logs but never sent to clients.
type ExternalServiceError struct {
	Op  string
	Err error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("media host %s: %v", e.Op, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a payload validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
