package hcl

import (
	"github.com/hashicorp/hcl/v2"
)

// fileRoot decodes the top-level blocks of any layout file.
type fileRoot struct {
	Applications []*applicationBlock `hcl:"application,block"`
	Routers      []*routerBlock      `hcl:"router,block"`
	Remain       hcl.Body            `hcl:",remain"`
}

// applicationBlock is a top-level `application "name" {}` declaration.
type applicationBlock struct {
	Name      string            `hcl:"name,label"`
	Locator   string            `hcl:"locator"`
	Props     map[string]string `hcl:"props,optional"`
	DeclRange hcl.Range         `hcl:",def_range"`
}

// routerBlock is the layout root. Its children keep declaration order, so
// they are decoded by hand from Body.
type routerBlock struct {
	Base      *string   `hcl:"base,optional"`
	Body      hcl.Body  `hcl:",remain"`
	DeclRange hcl.Range `hcl:",def_range"`
}

var nodeBlocks = []hcl.BlockHeaderSchema{
	{Type: "route"},
	{Type: "element", LabelNames: []string{"tag"}},
	{Type: "application", LabelNames: []string{"name"}},
}

var routerSchema = &hcl.BodySchema{Blocks: nodeBlocks}

var routeSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "path"},
		{Name: "default"},
	},
	Blocks: nodeBlocks,
}

var elementSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "text"},
		{Name: "attributes"},
	},
	Blocks: nodeBlocks,
}

// Layout application references take no arguments.
var applicationRefSchema = &hcl.BodySchema{}
