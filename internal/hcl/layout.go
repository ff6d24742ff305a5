package hcl

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/mountgrid/internal/config"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

func decodeLayout(r *routerBlock, evalCtx *hcl.EvalContext) (*config.Layout, hcl.Diagnostics) {
	layout := &config.Layout{Base: "/"}
	if r.Base != nil {
		layout.Base = *r.Base
	}

	content, diags := r.Body.Content(routerSchema)
	if diags.HasErrors() {
		return nil, diags
	}
	children, moreDiags := decodeNodes(content.Blocks, evalCtx)
	diags = append(diags, moreDiags...)
	layout.Children = children
	return layout, diags
}

// decodeNodes translates blocks in declaration order.
func decodeNodes(blocks hcl.Blocks, evalCtx *hcl.EvalContext) ([]config.Node, hcl.Diagnostics) {
	var (
		nodes []config.Node
		diags hcl.Diagnostics
	)
	for _, b := range blocks {
		var (
			n         config.Node
			nodeDiags hcl.Diagnostics
		)
		switch b.Type {
		case "route":
			n, nodeDiags = decodeRoute(b, evalCtx)
		case "element":
			n, nodeDiags = decodeElement(b, evalCtx)
		case "application":
			_, nodeDiags = b.Body.Content(applicationRefSchema)
			n = &config.ApplicationNode{Name: b.Labels[0]}
		}
		diags = append(diags, nodeDiags...)
		if n != nil {
			nodes = append(nodes, n)
		}
	}
	return nodes, diags
}

func decodeRoute(b *hcl.Block, evalCtx *hcl.EvalContext) (config.Node, hcl.Diagnostics) {
	content, diags := b.Body.Content(routeSchema)
	if diags.HasErrors() {
		return nil, diags
	}

	route := &config.RouteNode{}
	if attr, ok := content.Attributes["path"]; ok {
		diags = append(diags, decodeAttr(attr, evalCtx, cty.String, &route.Path)...)
	}
	if attr, ok := content.Attributes["default"]; ok {
		diags = append(diags, decodeAttr(attr, evalCtx, cty.Bool, &route.Default)...)
	}

	children, moreDiags := decodeNodes(content.Blocks, evalCtx)
	route.Children = children
	return route, append(diags, moreDiags...)
}

func decodeElement(b *hcl.Block, evalCtx *hcl.EvalContext) (config.Node, hcl.Diagnostics) {
	content, diags := b.Body.Content(elementSchema)
	if diags.HasErrors() {
		return nil, diags
	}

	el := &config.ElementNode{Tag: b.Labels[0]}
	if attr, ok := content.Attributes["text"]; ok {
		diags = append(diags, decodeAttr(attr, evalCtx, cty.String, &el.Text)...)
	}
	if attr, ok := content.Attributes["attributes"]; ok {
		diags = append(diags, decodeAttr(attr, evalCtx, cty.Map(cty.String), &el.Attributes)...)
	}

	children, moreDiags := decodeNodes(content.Blocks, evalCtx)
	el.Children = children
	return el, append(diags, moreDiags...)
}

// decodeAttr evaluates attr, converts it to ty and stores it in target.
// A null value leaves target untouched.
func decodeAttr(attr *hcl.Attribute, evalCtx *hcl.EvalContext, ty cty.Type, target any) hcl.Diagnostics {
	val, diags := attr.Expr.Value(evalCtx)
	if diags.HasErrors() || val.IsNull() {
		return diags
	}

	converted, err := convert.Convert(val, ty)
	if err != nil {
		return append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Incorrect attribute value type",
			Detail:   fmt.Sprintf("Inappropriate value for attribute %q: %s.", attr.Name, err),
			Subject:  attr.Expr.Range().Ptr(),
		})
	}
	if err := gocty.FromCtyValue(converted, target); err != nil {
		return append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Invalid attribute value",
			Detail:   fmt.Sprintf("Cannot use value for attribute %q: %s.", attr.Name, err),
			Subject:  attr.Expr.Range().Ptr(),
		})
	}
	return diags
}
