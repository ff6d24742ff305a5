package loader

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/vk/mountgrid/internal/ctxlog"
	"github.com/vk/mountgrid/internal/registry"
)

// LocalScheme is the locator scheme served by Local.
const LocalScheme = "local"

// Factory builds a fresh application for a descriptor.
type Factory func(d *registry.Descriptor) (Application, error)

// Module is implemented by compiled-in application packages.
type Module interface {
	Register(l *Local)
}

// Local loads applications compiled into the binary. A locator
// "local:banner" selects the factory registered as "banner".
type Local struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewLocal creates a Local loader and registers the given modules.
func NewLocal(modules ...Module) *Local {
	l := &Local{factories: make(map[string]Factory)}
	for _, m := range modules {
		m.Register(l)
	}
	return l
}

// Register adds a factory. It panics on duplicates, which are programming
// errors.
func (l *Local) Register(name string, f Factory) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.factories[name]; exists {
		panic(fmt.Sprintf("local application '%s' already registered", name))
	}
	l.factories[name] = f
}

// Names returns the registered factory names.
func (l *Local) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]string, 0, len(l.factories))
	for n := range l.factories {
		out = append(out, n)
	}
	return out
}

// Load implements Loader.
func (l *Local) Load(ctx context.Context, d *registry.Descriptor) (Application, error) {
	name := strings.TrimPrefix(d.Locator, LocalScheme+":")

	l.mu.RLock()
	f, ok := l.factories[name]
	l.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no local application '%s'", name)
	}

	ctxlog.FromContext(ctx).Debug("Building local application.", "application", d.Name, "factory", name)
	return f(d)
}
