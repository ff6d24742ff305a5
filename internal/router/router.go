package router

import (
	"context"
	"path"
	"strings"

	"github.com/vk/mountgrid/internal/config"
	"github.com/vk/mountgrid/internal/ctxlog"
	"github.com/vk/mountgrid/internal/registry"
)

// Router resolves locations against the rules built from a layout. It is
// read-only after construction and safe for concurrent use.
type Router struct {
	layout   *config.Layout
	registry *registry.Registry
	base     string
	rules    []*RouteRule
	def      *RouteRule
}

// New builds the rules for layout and returns a ready Router.
func New(ctx context.Context, layout *config.Layout, reg *registry.Registry) (*Router, error) {
	logger := ctxlog.FromContext(ctx)

	rules, err := BuildRoutes(layout, reg)
	if err != nil {
		return nil, err
	}

	r := &Router{
		layout:   layout,
		registry: reg,
		base:     normalizeBase(layout.Base),
		rules:    rules,
	}
	for _, rule := range rules {
		if rule.IsDefault {
			r.def = rule
		}
		logger.Debug("Route rule built.", "path", rule.Path, "default", rule.IsDefault, "applications", rule.ApplicationNames)
	}
	logger.Info("Routes constructed.", "rules", len(rules), "base", r.base)
	return r, nil
}

// Layout returns the layout the router was built from.
func (r *Router) Layout() *config.Layout { return r.layout }

// Rules returns the rules in evaluation order, the default included.
func (r *Router) Rules() []*RouteRule { return r.rules }

// Default returns the fallback rule.
func (r *Router) Default() *RouteRule { return r.def }

// Match returns the first rule whose path is a segment prefix of location,
// or the default rule.
func (r *Router) Match(location string) *RouteRule {
	rel, ok := r.relative(location)
	if !ok {
		return r.def
	}
	segments := splitPath(rel)
	for _, rule := range r.rules {
		if rule.IsDefault {
			continue
		}
		if rule.matches(segments) {
			return rule
		}
	}
	return r.def
}

// Resolve returns the descriptors that should be mounted for location.
func (r *Router) Resolve(location string) []*registry.Descriptor {
	rule := r.Match(location)
	out := make([]*registry.Descriptor, 0, len(rule.ApplicationNames))
	for _, name := range rule.ApplicationNames {
		// Every name was checked by BuildRoutes.
		d, err := r.registry.Lookup(name)
		if err != nil {
			panic(err)
		}
		out = append(out, d)
	}
	return out
}

// relative strips query, fragment and base from location. The second result
// is false when location lies outside the base.
func (r *Router) relative(location string) (string, bool) {
	p := NormalizeLocation(location)
	if r.base == "/" {
		return p, true
	}
	if p == r.base {
		return "/", true
	}
	if strings.HasPrefix(p, r.base+"/") {
		return strings.TrimPrefix(p, r.base), true
	}
	return "", false
}

// NormalizeLocation reduces a location to a clean absolute path without
// query or fragment.
func NormalizeLocation(location string) string {
	if i := strings.IndexAny(location, "?#"); i >= 0 {
		location = location[:i]
	}
	return path.Clean("/" + location)
}

func normalizeBase(base string) string {
	if base == "" {
		return "/"
	}
	return path.Clean("/" + base)
}
