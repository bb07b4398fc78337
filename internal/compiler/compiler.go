// Package compiler turns an experiment graph into executable scripts.
// One Compile call handles one target: the native Python script, or the
// web build (which produces a module script plus a legacy-browsers
// variant from the same graph).
//
// The compile works on a deep clone of the experiment with disabled
// components stripped, so the caller's graph is never mutated and a
// disabled component contributes no code anywhere.
package compiler

import (
	"context"
	"fmt"

	"github.com/vk/expflowgo/internal/component"
	"github.com/vk/expflowgo/internal/ctxlog"
	"github.com/vk/expflowgo/internal/device"
	"github.com/vk/expflowgo/internal/dialect"
	"github.com/vk/expflowgo/internal/experiment"
	"github.com/vk/expflowgo/internal/registry"
)

// Rendered is one generated script. FileSuffix is appended to the output
// stem before the extension ("" for the primary script,
// "-legacy-browsers" for the web fallback build).
type Rendered struct {
	FileSuffix string
	Source     string
}

// Compiler drives code generation against a fixed registry of component
// kinds and configured devices.
type Compiler struct {
	reg *registry.Registry
}

// New creates a compiler over the given registry.
func New(reg *registry.Registry) *Compiler {
	return &Compiler{reg: reg}
}

// Compile generates the script(s) for one target.
func (c *Compiler) Compile(ctx context.Context, exp *experiment.Experiment, target string) ([]Rendered, error) {
	log := ctxlog.FromContext(ctx)

	work := exp.Clone()
	work.StripDisabled()
	if err := work.Validate(); err != nil {
		return nil, fmt.Errorf("experiment %q is not compilable: %w", exp.Name, err)
	}

	switch target {
	case dialect.PsychoPy:
		log.Info("Compiling experiment.", "experiment", work.Name, "target", target)
		src, err := c.writePython(ctx, work)
		if err != nil {
			return nil, err
		}
		return []Rendered{{Source: src}}, nil
	case dialect.PsychoJS:
		log.Info("Compiling experiment.", "experiment", work.Name, "target", target)
		modular, err := c.writeJS(ctx, work, true)
		if err != nil {
			return nil, err
		}
		legacy, err := c.writeJS(ctx, work, false)
		if err != nil {
			return nil, err
		}
		return []Rendered{
			{Source: modular},
			{FileSuffix: "-legacy-browsers", Source: legacy},
		}, nil
	default:
		return nil, fmt.Errorf("unknown compile target %q", target)
	}
}

// emitterFor resolves the kind definition for a component and reports
// whether it should emit for the current target. A kind that does not
// claim the target is skipped silently; an unknown kind is an error.
func (c *Compiler) emitterFor(comp *component.Component, d dialect.Dialect) (component.Emitter, bool, error) {
	def, ok := c.reg.Component(comp.Type)
	if !ok {
		return nil, false, fmt.Errorf("component %q has unknown kind %q", comp.Name(), comp.Type)
	}
	if !def.Targets.Supports(d) {
		return nil, false, nil
	}
	return def.Emitter, true, nil
}

// referencedDevices collects the device backends referenced by components
// that will emit for this target, deduplicated in first-reference order
// (flow order, then component order within each routine). A label with no
// configured device is a compile error.
func (c *Compiler) referencedDevices(exp *experiment.Experiment, d dialect.Dialect) ([]*device.Backend, error) {
	var backends []*device.Backend
	seen := make(map[string]bool)
	for _, name := range exp.RoutineNamesInFlowOrder() {
		for _, comp := range exp.Routines[name].Components() {
			label, ok := comp.DeviceLabel()
			if !ok {
				continue
			}
			if _, emits, err := c.emitterFor(comp, d); err != nil {
				return nil, err
			} else if !emits {
				continue
			}
			if seen[label] {
				continue
			}
			seen[label] = true
			b, _, err := c.reg.Devices.Resolve(label)
			if err != nil {
				return nil, fmt.Errorf("component %q: %w", comp.Name(), err)
			}
			backends = append(backends, b)
		}
	}
	return backends, nil
}

// settingsEmitter returns the experiment-level emitter plus the settings
// component (synthesized with defaults when the experiment carries none).
func (c *Compiler) settingsEmitter(exp *experiment.Experiment) (component.ExperimentEmitter, *component.Component, error) {
	settings := exp.Settings
	if settings == nil {
		var err error
		settings, err = c.reg.NewComponent("settings", exp.Name)
		if err != nil {
			return nil, nil, err
		}
	}
	def, ok := c.reg.Component(settings.Type)
	if !ok {
		return nil, nil, fmt.Errorf("settings kind %q not registered", settings.Type)
	}
	ee, ok := def.Emitter.(component.ExperimentEmitter)
	if !ok {
		return nil, nil, fmt.Errorf("settings kind %q has no experiment-level emitter", settings.Type)
	}
	return ee, settings, nil
}
