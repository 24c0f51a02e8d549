package engagement

import (
	"errors"
	"fmt"
)

// ErrValidation marks a record that failed validation. Wrap with context;
// match with errors.Is.
var ErrValidation = errors.New("validation failed")

func validationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
