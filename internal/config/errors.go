package config

import (
	"errors"
	"fmt"
)

// ErrConfiguration matches every error caused by invalid or inconsistent
// startup configuration. Such errors are fatal: nothing gets activated.
var ErrConfiguration = errors.New("configuration error")

// Error marks Err as a configuration error. Its message is Err's.
type Error struct {
	Err error
}

func (e *Error) Error() string { return e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrConfiguration }

// Errorf formats like fmt.Errorf and marks the result as a configuration error.
func Errorf(format string, args ...any) error {
	return &Error{Err: fmt.Errorf(format, args...)}
}
