package router

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vk/mountgrid/internal/registry"
)

// MalformedLayoutError reports every problem found while building routes.
type MalformedLayoutError struct {
	Problems []string
	// Err joins the underlying lookup errors, if any.
	Err error
}

func (e *MalformedLayoutError) Error() string {
	return fmt.Sprintf("malformed layout:\n- %s", strings.Join(e.Problems, "\n- "))
}

func (e *MalformedLayoutError) Unwrap() error { return e.Err }

func (e *MalformedLayoutError) Is(target error) bool { return target == registry.ErrConfiguration }

func newMalformed(problems []string, lookupErrs []error) *MalformedLayoutError {
	return &MalformedLayoutError{Problems: problems, Err: errors.Join(lookupErrs...)}
}
