package appointment

import (
	"errors"
	"fmt"
)

var (
	ErrPastDate            = errors.New("date or time is in the past")
	ErrInvalidSlot         = errors.New("no bookable slot at the requested time")
	ErrPrematureCompletion = errors.New("appointment has not started yet")
)

// ValidationError reports malformed input. It is never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
