package patient

import (
	"errors"
	"fmt"
)

// ValidationError marks input problems the caller can correct. Handlers map
// it to 400; everything else stays a 500.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func validationErrorf(format string, args ...interface{}) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

func isValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
