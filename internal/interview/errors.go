package interview

import (
	"errors"
	"fmt"
)

// ErrPrecondition is returned when an operation is called in a state that
// does not allow it. The session is left untouched.
var ErrPrecondition = errors.New("operation not allowed in current state")

func preconditionError(op string, state State) error {
	return fmt.Errorf("%s: session is %s: %w", op, state, ErrPrecondition)
}

// InitializationError means the session could not be prepared and is unusable.
type InitializationError struct {
	Reason string
	Err    error
}

func (e *InitializationError) Error() string {
	if e.Err == nil {
		return "initialize interview: " + e.Reason
	}
	return fmt.Sprintf("initialize interview: %s: %v", e.Reason, e.Err)
}

func (e *InitializationError) Unwrap() error { return e.Err }
