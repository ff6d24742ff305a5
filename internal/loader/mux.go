package loader

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/vk/mountgrid/internal/registry"
)

// Mux dispatches loads to the loader registered for the locator's scheme.
type Mux struct {
	mu      sync.RWMutex
	loaders map[string]Loader
	// defaultScheme is applied to protocol-relative locators ("//host/a.js").
	defaultScheme string
}

// NewMux creates an empty Mux. Protocol-relative locators are treated as
// defaultScheme ("http" when empty).
func NewMux(defaultScheme string) *Mux {
	if defaultScheme == "" {
		defaultScheme = "http"
	}
	return &Mux{
		loaders:       make(map[string]Loader),
		defaultScheme: defaultScheme,
	}
}

// Handle registers l for scheme.
func (m *Mux) Handle(scheme string, l Loader) {
	m.mu.Lock()
	defer m.mu.Unlock()

	scheme = strings.ToLower(scheme)
	if _, exists := m.loaders[scheme]; exists {
		panic(fmt.Sprintf("loader for scheme '%s' already registered", scheme))
	}
	m.loaders[scheme] = l
}

// Load implements Loader.
func (m *Mux) Load(ctx context.Context, d *registry.Descriptor) (Application, error) {
	scheme := Scheme(d.Locator, m.defaultScheme)

	m.mu.RLock()
	l, ok := m.loaders[scheme]
	m.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("no loader for scheme '%s' (locator %q)", scheme, d.Locator)
	}
	return l.Load(ctx, d)
}

// Scheme extracts the lower-cased scheme of a locator.
func Scheme(locator, defaultScheme string) string {
	if strings.HasPrefix(locator, "//") {
		return defaultScheme
	}
	i := strings.Index(locator, ":")
	if i <= 0 {
		return ""
	}
	return strings.ToLower(locator[:i])
}
