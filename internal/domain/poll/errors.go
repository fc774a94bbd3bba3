package poll

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("poll not found")
	ErrAlreadyClosed = errors.New("poll already closed")
	ErrConflict      = errors.New("conflicting write")
)

// ValidationError carries a user-facing message that is returned verbatim.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func Invalidf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
