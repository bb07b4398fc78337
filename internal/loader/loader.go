// Package loader reads experiment definition files (.exp.hcl) and device
// configuration files into the in-memory graph. Parsing is strict: every
// attribute must match a param the component kind declares, flow entries
// must reference declared routines, and loop regions nest by block
// structure so a malformed flow cannot be expressed.
package loader

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/expflowgo/internal/component"
	"github.com/vk/expflowgo/internal/ctxlog"
	"github.com/vk/expflowgo/internal/experiment"
	"github.com/vk/expflowgo/internal/param"
	"github.com/vk/expflowgo/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var topSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "experiment", LabelNames: []string{"name"}},
	},
}

var experimentSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "settings"},
		{Type: "routine", LabelNames: []string{"name"}},
		{Type: "flow"},
	},
}

var routineSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "component", LabelNames: []string{"kind", "name"}},
	},
}

// flowSchema is walked with ordered content because entry order is the
// experiment's control flow.
var flowSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "routine", LabelNames: []string{"name"}},
		{Type: "loop", LabelNames: []string{"name"}},
	},
}

var componentBlockSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "updates"},
	},
}

// Loader builds experiment graphs against a registry of component kinds.
type Loader struct {
	reg *registry.Registry
}

// New creates a loader over the given registry.
func New(reg *registry.Registry) *Loader {
	return &Loader{reg: reg}
}

// parseFile reads and parses one HCL file, tolerating a UTF-8 BOM.
func parseFile(path string) (hcl.Body, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	src = bytes.TrimPrefix(src, utf8BOM)
	file, diags := hclparse.NewParser().ParseHCL(src, path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing %s: %w", path, diags)
	}
	return file.Body, nil
}

// LoadExperiment reads one .exp.hcl file into an experiment graph.
func (ld *Loader) LoadExperiment(ctx context.Context, path string) (*experiment.Experiment, error) {
	log := ctxlog.FromContext(ctx)
	body, err := parseFile(path)
	if err != nil {
		return nil, err
	}

	content, diags := body.Content(topSchema)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%s: %w", path, diags)
	}
	if len(content.Blocks) != 1 {
		return nil, fmt.Errorf("%s: expected exactly one experiment block, found %d", path, len(content.Blocks))
	}

	block := content.Blocks[0]
	exp := experiment.New(block.Labels[0])
	log.Debug("Loading experiment.", "name", exp.Name, "file", path)

	expContent, diags := block.Body.Content(experimentSchema)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%s: %w", path, diags)
	}

	var flowBlock *hcl.Block
	for _, b := range expContent.Blocks {
		switch b.Type {
		case "settings":
			if err := ld.loadSettings(exp, b); err != nil {
				return nil, err
			}
		case "routine":
			if err := ld.loadRoutine(exp, b); err != nil {
				return nil, err
			}
		case "flow":
			if flowBlock != nil {
				return nil, fmt.Errorf("%s: experiment %q declares more than one flow block", path, exp.Name)
			}
			flowBlock = b
		}
	}
	if flowBlock == nil {
		return nil, fmt.Errorf("%s: experiment %q has no flow block", path, exp.Name)
	}
	if err := ld.loadFlow(exp, flowBlock.Body); err != nil {
		return nil, err
	}
	if err := exp.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return exp, nil
}

func (ld *Loader) loadSettings(exp *experiment.Experiment, block *hcl.Block) error {
	if exp.Settings != nil {
		return fmt.Errorf("experiment %q declares more than one settings block", exp.Name)
	}
	settings, err := ld.reg.NewComponent("settings", exp.Name)
	if err != nil {
		return err
	}
	if err := applyAttributes(settings.Params, block.Body, componentBlockSchema, "settings"); err != nil {
		return err
	}
	exp.Settings = settings
	return nil
}

func (ld *Loader) loadRoutine(exp *experiment.Experiment, block *hcl.Block) error {
	r, err := exp.AddRoutine(block.Labels[0])
	if err != nil {
		return err
	}
	if r.Name() != block.Labels[0] {
		return fmt.Errorf("routine name %q is reserved or already in use", block.Labels[0])
	}
	content, diags := block.Body.Content(routineSchema)
	if diags.HasErrors() {
		return fmt.Errorf("routine %q: %w", r.Name(), diags)
	}
	for _, cb := range content.Blocks {
		comp, err := ld.loadComponent(cb)
		if err != nil {
			return fmt.Errorf("routine %q: %w", r.Name(), err)
		}
		if err := exp.AddComponent(r, comp); err != nil {
			return fmt.Errorf("routine %q: %w", r.Name(), err)
		}
	}
	return nil
}

func (ld *Loader) loadComponent(block *hcl.Block) (*component.Component, error) {
	kind, name := block.Labels[0], block.Labels[1]
	comp, err := ld.reg.NewComponent(kind, name)
	if err != nil {
		return nil, err
	}
	if err := applyAttributes(comp.Params, block.Body, componentBlockSchema, name); err != nil {
		return nil, err
	}
	return comp, nil
}

// applyAttributes overwrites default param values with the block's
// attributes and applies update policies from the optional updates block.
// An attribute with no matching param is an error.
func applyAttributes(params param.Map, body hcl.Body, schema *hcl.BodySchema, owner string) error {
	content, remain, diags := body.PartialContent(schema)
	if diags.HasErrors() {
		return fmt.Errorf("%s: %w", owner, diags)
	}
	attrs, diags := remain.JustAttributes()
	if diags.HasErrors() {
		return fmt.Errorf("%s: %w", owner, diags)
	}
	for key, attr := range attrs {
		p, ok := params[key]
		if !ok {
			return fmt.Errorf("%s: unknown param %q", owner, key)
		}
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return fmt.Errorf("%s: param %q: %w", owner, key, diags)
		}
		p.Set(val)
	}
	for _, ub := range content.Blocks {
		if err := applyUpdates(params, ub.Body, owner); err != nil {
			return err
		}
	}
	return nil
}

func applyUpdates(params param.Map, body hcl.Body, owner string) error {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return fmt.Errorf("%s: %w", owner, diags)
	}
	for key, attr := range attrs {
		p, ok := params[key]
		if !ok {
			return fmt.Errorf("%s: updates block names unknown param %q", owner, key)
		}
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() || val.Type() != cty.String {
			return fmt.Errorf("%s: update policy for %q must be a string", owner, key)
		}
		policy := param.UpdatePolicy(val.AsString())
		switch policy {
		case param.Constant, param.EveryRepeat, param.EveryFrame:
			p.Updates = policy
		default:
			return fmt.Errorf("%s: unknown update policy %q for param %q", owner, val.AsString(), key)
		}
	}
	return nil
}

// loadFlow appends entries to the experiment flow in declaration order.
// Loop blocks nest structurally, so the resulting marker sequence is
// always properly paired.
func (ld *Loader) loadFlow(exp *experiment.Experiment, body hcl.Body) error {
	content, diags := body.Content(flowSchema)
	if diags.HasErrors() {
		return fmt.Errorf("flow: %w", diags)
	}
	for _, b := range content.Blocks {
		switch b.Type {
		case "routine":
			r, ok := exp.Routines[b.Labels[0]]
			if !ok {
				return fmt.Errorf("flow references unknown routine %q", b.Labels[0])
			}
			exp.Flow.AppendRoutine(r)
		case "loop":
			if err := ld.loadLoop(exp, b); err != nil {
				return err
			}
		}
	}
	return nil
}

func (ld *Loader) loadLoop(exp *experiment.Experiment, block *hcl.Block) error {
	name := block.Labels[0]
	content, remain, diags := block.Body.PartialContent(flowSchema)
	if diags.HasErrors() {
		return fmt.Errorf("loop %q: %w", name, diags)
	}

	l := experiment.NewLoop(name, 1, experiment.LoopRandom, "")
	attrs, diags := remain.JustAttributes()
	if diags.HasErrors() {
		return fmt.Errorf("loop %q: %w", name, diags)
	}
	for key, attr := range attrs {
		// the legacy param keys carry spaces, which HCL names cannot
		paramKey := key
		switch key {
		case "selectedRows":
			paramKey = "Selected rows"
		case "seed":
			paramKey = "random seed"
		}
		p, ok := l.Params[paramKey]
		if !ok {
			return fmt.Errorf("loop %q: unknown param %q", name, key)
		}
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return fmt.Errorf("loop %q: param %q: %w", name, key, diags)
		}
		p.Set(val)
	}

	start := exp.Flow.Len()
	for _, b := range content.Blocks {
		switch b.Type {
		case "routine":
			r, ok := exp.Routines[b.Labels[0]]
			if !ok {
				return fmt.Errorf("loop %q references unknown routine %q", name, b.Labels[0])
			}
			exp.Flow.AppendRoutine(r)
		case "loop":
			if err := ld.loadLoop(exp, b); err != nil {
				return err
			}
		}
	}
	return exp.AddLoop(l, start, exp.Flow.Len())
}
