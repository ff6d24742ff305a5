package registry

import (
	"fmt"

	"github.com/vk/mountgrid/internal/config"
)

// ErrConfiguration is config.ErrConfiguration, re-exported for callers that
// only deal with the registry.
var ErrConfiguration = config.ErrConfiguration

// DuplicateNameError is returned when an application name is registered twice.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("application '%s' already registered", e.Name)
}

func (e *DuplicateNameError) Is(target error) bool { return target == ErrConfiguration }

// NotFoundError is returned when a name has no registered application.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("application '%s' is not registered", e.Name)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrConfiguration }
