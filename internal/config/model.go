package config

import (
	"fmt"
	"strings"
)

// Model is the unified, format-agnostic representation of the composition
// configuration: the remote applications and the layout that routes them.
type Model struct {
	Applications []*Application
	Layout       *Layout
}

// Application describes one remote application as declared in configuration.
type Application struct {
	Name    string
	Locator string
	Props   map[string]string
}

// Layout is the router container at the root of the layout tree.
type Layout struct {
	// Base is the path prefix every routed location must start with.
	Base     string
	Children []Node
}

// NodeKind tags the variants of the layout tree.
type NodeKind int

const (
	RouteKind NodeKind = iota
	ApplicationKind
	ElementKind
)

func (k NodeKind) String() string {
	switch k {
	case RouteKind:
		return "route"
	case ApplicationKind:
		return "application"
	case ElementKind:
		return "element"
	default:
		return fmt.Sprintf("NodeKind(%d)", int(k))
	}
}

// Node is a single entry of the layout tree.
type Node interface {
	Kind() NodeKind
}

// RouteNode activates its children when its path matches the location.
type RouteNode struct {
	Path     string
	Default  bool
	Children []Node
}

func (*RouteNode) Kind() NodeKind { return RouteKind }

// ApplicationNode references a registered application by name.
type ApplicationNode struct {
	Name string
}

func (*ApplicationNode) Kind() NodeKind { return ApplicationKind }

// ElementNode is static markup around routes and applications. It has no
// routing meaning.
type ElementNode struct {
	Tag        string
	Text       string
	Attributes map[string]string
	Children   []Node
}

func (*ElementNode) Kind() NodeKind { return ElementKind }

// Walk visits every node depth-first in declaration order. Returning false
// from fn skips the node's children.
func Walk(nodes []Node, fn func(n Node) bool) {
	for _, n := range nodes {
		if !fn(n) {
			continue
		}
		switch v := n.(type) {
		case *RouteNode:
			Walk(v.Children, fn)
		case *ElementNode:
			Walk(v.Children, fn)
		}
	}
}

// Validate checks the structural rules that do not depend on the registry.
func (m *Model) Validate() error {
	var errs []string

	for i, a := range m.Applications {
		if a.Name == "" {
			errs = append(errs, fmt.Sprintf("application #%d has an empty name", i))
		}
		if a.Locator == "" {
			errs = append(errs, fmt.Sprintf("application '%s' has an empty locator", a.Name))
		}
	}

	if m.Layout == nil {
		errs = append(errs, "no router layout declared")
	} else {
		Walk(m.Layout.Children, func(n Node) bool {
			switch v := n.(type) {
			case *ApplicationNode:
				if v.Name == "" {
					errs = append(errs, "layout references an application with an empty name")
				}
			case *ElementNode:
				if v.Tag == "" {
					errs = append(errs, "layout element has an empty tag")
				}
			}
			return true
		})
	}

	if len(errs) > 0 {
		return Errorf("config validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}
