package hcl

import (
	"context"
	"fmt"
	"maps"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/mountgrid/internal/config"
	"github.com/vk/mountgrid/internal/ctxlog"
	"github.com/vk/mountgrid/internal/fsutil"
)

// Extensions lists the file suffixes the loader reads.
var Extensions = []string{".hcl", ".hcl.json"}

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	environ func() []string
}

// NewLoader creates a new HCL configuration loader reading the process
// environment into the `env` variable.
func NewLoader() *Loader {
	return &Loader{environ: osEnviron}
}

// Load parses every layout file found under paths and merges them into one
// model. Exactly one router block must be declared across all files.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := l.findFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, config.Errorf("no layout files (%s) found in %v", strings.Join(Extensions, ", "), paths)
	}
	logger.Debug("Discovered layout files.", "count", len(files))

	evalCtx := newEvalContext(l.environ())
	parser := hclparse.NewParser()
	model := &config.Model{}
	var router *routerBlock

	for _, file := range files {
		var (
			f     *hcl.File
			diags hcl.Diagnostics
		)
		if strings.HasSuffix(file, ".json") {
			f, diags = parser.ParseJSONFile(file)
		} else {
			f, diags = parser.ParseHCLFile(file)
		}
		if diags.HasErrors() {
			return nil, config.Errorf("failed to parse layout file %s: %w", file, diags)
		}

		var root fileRoot
		if diags := gohcl.DecodeBody(f.Body, evalCtx, &root); diags.HasErrors() {
			return nil, config.Errorf("failed to decode layout file %s: %w", file, diags)
		}

		for _, a := range root.Applications {
			model.Applications = append(model.Applications, &config.Application{
				Name:    a.Name,
				Locator: a.Locator,
				Props:   maps.Clone(a.Props),
			})
		}

		for _, r := range root.Routers {
			if router != nil {
				return nil, config.Errorf("failed to decode layout file %s: %w", file, hcl.Diagnostics{{
					Severity: hcl.DiagError,
					Summary:  "Duplicate router block",
					Detail:   fmt.Sprintf("A router block was already declared at %s.", router.DeclRange),
					Subject:  r.DeclRange.Ptr(),
				}})
			}
			router = r
		}
	}

	if router == nil {
		return nil, config.Errorf("no router block declared in %v", files)
	}

	layout, diags := decodeLayout(router, evalCtx)
	if diags.HasErrors() {
		return nil, config.Errorf("failed to decode router block at %s: %w", router.DeclRange, diags)
	}
	model.Layout = layout

	logger.Debug("HCL loading complete.", "applications", len(model.Applications), "base", layout.Base)
	return model, nil
}

// findFiles walks every path, skipping missing ones, and returns a de-duplicated list.
func (l *Loader) findFiles(paths []string) ([]string, error) {
	var all []string
	seen := make(map[string]struct{})

	for _, p := range paths {
		found, err := fsutil.FindFilesByExtension(p, Extensions...)
		if err != nil {
			return nil, config.Errorf("error reading layout path %s: %w", p, err)
		}
		for _, f := range found {
			abs, err := filepath.Abs(f)
			if err != nil {
				abs = f
			}
			if _, ok := seen[abs]; ok {
				continue
			}
			seen[abs] = struct{}{}
			all = append(all, f)
		}
	}
	return all, nil
}
