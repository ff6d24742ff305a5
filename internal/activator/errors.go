package activator

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyActive is returned by Activate when a subscription exists.
	ErrAlreadyActive = errors.New("activator already active")
	// ErrNotActive is returned by Deactivate without a prior Activate.
	ErrNotActive = errors.New("activator not active")
)

// LoadError wraps a failure to resolve an application's code.
type LoadError struct {
	Name string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load application '%s': %v", e.Name, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// LifecycleError wraps a failing or panicking mount/unmount call.
type LifecycleError struct {
	Name string
	Op   string
	Err  error
}

func (e *LifecycleError) Error() string {
	return fmt.Sprintf("%s of application '%s' failed: %v", e.Op, e.Name, e.Err)
}

func (e *LifecycleError) Unwrap() error { return e.Err }

// InvalidStateError is returned by operator actions on an instance in the
// wrong state.
type InvalidStateError struct {
	Name   string
	Status Status
	Want   Status
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("application '%s' is %s, expected %s", e.Name, e.Status, e.Want)
}
