package assistant

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyInput   = errors.New("input must not be empty")
	ErrTurnTimeout  = errors.New("turn timed out")
	ErrTurnCanceled = errors.New("turn canceled")
)

// ValidationError reports a catalog record that does not have the Product
// shape. It aborts the turn.
type ValidationError struct {
	Index int
	Title string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("product %d (%q) failed validation: %v", e.Index, e.Title, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
