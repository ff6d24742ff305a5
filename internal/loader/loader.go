package loader

import (
	"context"
	"io"

	"github.com/vk/mountgrid/internal/registry"
)

// Application is loaded application code that can be attached to and
// detached from the composed page.
type Application interface {
	Mount(ctx context.Context) error
	Unmount(ctx context.Context) error
}

// Renderer is implemented by applications that contribute markup to the
// composed page while mounted.
type Renderer interface {
	Render(w io.Writer) error
}

// Loader resolves a descriptor into application code. Implementations may
// block on the network and must honour ctx.
type Loader interface {
	Load(ctx context.Context, d *registry.Descriptor) (Application, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, d *registry.Descriptor) (Application, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, d *registry.Descriptor) (Application, error) {
	return f(ctx, d)
}
