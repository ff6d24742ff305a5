// Package banner is a local application that renders a page heading.
package banner

import (
	"context"
	"fmt"
	"html"
	"io"
	"sync/atomic"

	"github.com/vk/mountgrid/internal/ctxlog"
	"github.com/vk/mountgrid/internal/loader"
	"github.com/vk/mountgrid/internal/registry"
)

// Name is the factory name, selected by the locator "local:banner".
const Name = "banner"

// Module implements the loader.Module interface for this package.
type Module struct{}

// Banner renders props["title"] as an <h1>.
type Banner struct {
	application string
	title       string
	mounted     atomic.Bool
}

// New builds a banner for the descriptor. A missing title falls back to the
// application name.
func New(d *registry.Descriptor) (loader.Application, error) {
	title := d.Props["title"]
	if title == "" {
		title = d.Name
	}
	return &Banner{application: d.Name, title: title}, nil
}

// Mount implements loader.Application.
func (b *Banner) Mount(ctx context.Context) error {
	if !b.mounted.CompareAndSwap(false, true) {
		return fmt.Errorf("banner %q is already mounted", b.application)
	}
	ctxlog.FromContext(ctx).Debug("Banner mounted.", "application", b.application)
	return nil
}

// Unmount implements loader.Application.
func (b *Banner) Unmount(ctx context.Context) error {
	if !b.mounted.CompareAndSwap(true, false) {
		return fmt.Errorf("banner %q is not mounted", b.application)
	}
	return nil
}

// Render implements loader.Renderer.
func (b *Banner) Render(w io.Writer) error {
	_, err := fmt.Fprintf(w, "<h1>%s</h1>", html.EscapeString(b.title))
	return err
}

// Register registers the factory with the local loader.
func (m *Module) Register(l *loader.Local) {
	l.Register(Name, New)
}
