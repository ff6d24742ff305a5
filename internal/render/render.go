// Package render composes the layout for the active route into an HTML page.
package render

import (
	"bufio"
	"fmt"
	"html"
	"io"
	"maps"
	"slices"

	"github.com/vk/mountgrid/internal/activator"
	"github.com/vk/mountgrid/internal/config"
	"github.com/vk/mountgrid/internal/loader"
	"github.com/vk/mountgrid/internal/router"
)

// ContainerPrefix prefixes the id of every application container.
const ContainerPrefix = "single-spa-application:"

// State exposes the lifecycle state the page is composed from.
type State interface {
	Instance(name string) (activator.Snapshot, error)
	MountedApplication(name string) (loader.Application, bool)
}

// Page writes an HTML5 document for layout. Only routes on match's chain are
// expanded; a nil match expands no route.
func Page(w io.Writer, layout *config.Layout, match *router.RouteRule, state State, title string) error {
	bw := bufio.NewWriter(w)
	p := &page{w: bw, match: match, state: state}

	p.printf("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n",
		html.EscapeString(title))
	if layout != nil {
		p.nodes(layout.Children)
	}
	p.printf("</body>\n</html>\n")

	if p.err != nil {
		return p.err
	}
	return bw.Flush()
}

type page struct {
	w     *bufio.Writer
	match *router.RouteRule
	state State
	err   error
}

func (p *page) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *page) nodes(nodes []config.Node) {
	for _, n := range nodes {
		if p.err != nil {
			return
		}
		switch n := n.(type) {
		case *config.ElementNode:
			p.element(n)
		case *config.RouteNode:
			if p.match != nil && p.match.Contains(n) {
				p.nodes(n.Children)
			}
		case *config.ApplicationNode:
			p.application(n.Name)
		}
	}
}

func (p *page) element(n *config.ElementNode) {
	tag := html.EscapeString(n.Tag)
	p.printf("<%s", tag)
	for _, k := range slices.Sorted(maps.Keys(n.Attributes)) {
		p.printf(" %s=\"%s\"", html.EscapeString(k), html.EscapeString(n.Attributes[k]))
	}
	p.printf(">%s", html.EscapeString(n.Text))
	p.nodes(n.Children)
	p.printf("</%s>\n", tag)
}

func (p *page) application(name string) {
	status := activator.NotMounted
	if snap, err := p.state.Instance(name); err == nil {
		status = snap.Status
	}
	p.printf("<div id=\"%s\" data-status=\"%s\">", html.EscapeString(ContainerPrefix+name), status)

	if app, ok := p.state.MountedApplication(name); ok {
		if r, ok := app.(loader.Renderer); ok && p.err == nil {
			if err := r.Render(p.w); err != nil {
				p.err = fmt.Errorf("rendering application %q: %w", name, err)
				return
			}
		}
	}
	p.printf("</div>\n")
}
