package router

import (
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/vk/mountgrid/internal/config"
	"github.com/vk/mountgrid/internal/registry"
)

// RouteRule maps a location prefix to the applications active under it.
type RouteRule struct {
	Path             string
	ApplicationNames []string
	IsDefault        bool

	segments []string
	// chain holds the route nodes from the outermost ancestor to the rule's own node.
	chain []*config.RouteNode
}

func (r *RouteRule) String() string {
	if r.IsDefault {
		return "default route"
	}
	return fmt.Sprintf("route '%s'", r.Path)
}

// Contains reports whether node is the rule's route or one of its ancestors.
func (r *RouteRule) Contains(node *config.RouteNode) bool {
	return slices.Contains(r.chain, node)
}

func (r *RouteRule) matches(segments []string) bool {
	if len(r.segments) > len(segments) {
		return false
	}
	for i, s := range r.segments {
		if strings.HasPrefix(s, ":") && len(s) > 1 {
			continue
		}
		if s != segments[i] {
			return false
		}
	}
	return true
}

type builder struct {
	rules    []*RouteRule
	static   []string
	problems []string
	defaults int
}

// BuildRoutes flattens the layout into an ordered sequence of rules and checks
// that every referenced application is registered. Every rule must activate at
// least one application, counting static ones, so Resolve never returns an
// empty set.
func BuildRoutes(layout *config.Layout, reg *registry.Registry) ([]*RouteRule, error) {
	if layout == nil {
		return nil, newMalformed([]string{"no router layout"}, nil)
	}

	b := &builder{}
	b.walk(layout.Children, "/", nil, nil)

	switch {
	case b.defaults == 0:
		b.problems = append(b.problems, "no default route declared")
	case b.defaults > 1:
		b.problems = append(b.problems, fmt.Sprintf("%d default routes declared, exactly one is allowed", b.defaults))
	}

	for _, rule := range b.rules {
		rule.ApplicationNames = dedupe(append(slices.Clone(b.static), rule.ApplicationNames...))
		if len(rule.ApplicationNames) == 0 {
			b.problems = append(b.problems, rule.String()+" activates no applications")
		}
	}

	var lookupErrs []error
	for _, name := range referencedNames(b.rules, b.static) {
		if _, err := reg.Lookup(name); err != nil {
			b.problems = append(b.problems, fmt.Sprintf("layout references unregistered application '%s'", name))
			lookupErrs = append(lookupErrs, err)
		}
	}

	if len(b.problems) > 0 {
		return nil, newMalformed(b.problems, lookupErrs)
	}
	return b.rules, nil
}

// walk visits nodes below the given route chain. Applications met here
// directly are either static (empty chain) or already collected by the
// enclosing route.
func (b *builder) walk(nodes []config.Node, parentPath string, inherited []string, chain []*config.RouteNode) {
	for _, n := range nodes {
		switch v := n.(type) {
		case *config.ElementNode:
			b.walk(v.Children, parentPath, inherited, chain)
		case *config.ApplicationNode:
			if len(chain) == 0 {
				b.static = append(b.static, v.Name)
			}
		case *config.RouteNode:
			b.route(v, parentPath, inherited, chain)
		}
	}
}

func (b *builder) route(node *config.RouteNode, parentPath string, inherited []string, chain []*config.RouteNode) {
	names := append(slices.Clone(inherited), directApplications(node.Children)...)
	chain = append(slices.Clone(chain), node)

	if node.Default {
		b.defaults++
		if len(chain) > 1 {
			b.problems = append(b.problems, "default route must not be nested inside another route")
		}
		if node.Path != "" {
			b.problems = append(b.problems, fmt.Sprintf("default route must not declare a path (got '%s')", node.Path))
		}
		b.walk(node.Children, parentPath, names, chain)
		b.rules = append(b.rules, &RouteRule{
			Path:             parentPath,
			ApplicationNames: names,
			IsDefault:        true,
			chain:            chain,
		})
		return
	}

	if node.Path == "" {
		b.problems = append(b.problems, "route without a path must be marked default")
		return
	}

	full := path.Join(parentPath, node.Path)
	b.walk(node.Children, full, names, chain)
	b.rules = append(b.rules, &RouteRule{
		Path:             full,
		ApplicationNames: names,
		segments:         splitPath(full),
		chain:            chain,
	})
}

// directApplications returns the applications of a route that are not
// nested inside a child route.
func directApplications(children []config.Node) []string {
	var names []string
	config.Walk(children, func(n config.Node) bool {
		switch v := n.(type) {
		case *config.RouteNode:
			return false
		case *config.ApplicationNode:
			names = append(names, v.Name)
		}
		return true
	})
	return names
}

func referencedNames(rules []*RouteRule, static []string) []string {
	all := slices.Clone(static)
	for _, r := range rules {
		all = append(all, r.ApplicationNames...)
	}
	return dedupe(all)
}

func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
