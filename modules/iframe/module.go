// Package iframe is a local application that embeds another page.
package iframe

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net/url"
	"sync"

	"github.com/vk/mountgrid/internal/ctxlog"
	"github.com/vk/mountgrid/internal/loader"
	"github.com/vk/mountgrid/internal/registry"
)

// Name is the factory name, selected by the locator "local:iframe".
const Name = "iframe"

// ErrMissingSource is returned by Mount when props["src"] is empty.
var ErrMissingSource = errors.New("iframe requires a non-empty 'src' prop")

// Module implements the loader.Module interface for this package.
type Module struct{}

// Frame renders an <iframe> pointing at props["src"].
type Frame struct {
	application string
	props       map[string]string

	mu      sync.Mutex
	src     string
	mounted bool
}

// New builds a frame for the descriptor. The source is validated on mount.
func New(d *registry.Descriptor) (loader.Application, error) {
	return &Frame{application: d.Name, props: d.Props}, nil
}

// Mount implements loader.Application.
func (f *Frame) Mount(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	src := f.props["src"]
	if src == "" {
		return ErrMissingSource
	}
	if _, err := url.Parse(src); err != nil {
		return fmt.Errorf("invalid iframe src: %w", err)
	}
	if f.mounted {
		return fmt.Errorf("iframe %q is already mounted", f.application)
	}

	f.src = src
	f.mounted = true
	ctxlog.FromContext(ctx).Debug("Iframe mounted.", "application", f.application, "src", src)
	return nil
}

// Unmount implements loader.Application.
func (f *Frame) Unmount(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.mounted {
		return fmt.Errorf("iframe %q is not mounted", f.application)
	}
	f.mounted = false
	return nil
}

// Render implements loader.Renderer.
func (f *Frame) Render(w io.Writer) error {
	f.mu.Lock()
	src, title := f.src, f.props["title"]
	f.mu.Unlock()

	if title == "" {
		title = f.application
	}
	_, err := fmt.Fprintf(w, `<iframe src="%s" title="%s" loading="lazy"></iframe>`,
		html.EscapeString(src), html.EscapeString(title))
	return err
}

// Register registers the factory with the local loader.
func (m *Module) Register(l *loader.Local) {
	l.Register(Name, New)
}
