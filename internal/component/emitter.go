package component

import (
	"sort"
	"strings"

	"github.com/vk/expflowgo/internal/codegen"
	"github.com/vk/expflowgo/internal/dialect"
	"github.com/vk/expflowgo/internal/param"
)

// EmitContext carries everything an emitter may consult while writing
// code for one component at one point in the compile.
type EmitContext struct {
	Dialect dialect.Dialect
	// ExpName is the experiment's name.
	ExpName string
	// RoutineName is the routine currently being written.
	RoutineName string
	// LoopName is the handler variable of the innermost loop containing
	// the current routine in the flow, or "thisExp" outside any loop.
	// Resolution is by containment of the routine's flow position.
	LoopName string
	// Modular is true for the web target's module build, false for the
	// legacy-browsers build. Ignored by the native target.
	Modular bool
}

// DataTarget returns the expression that receives addData calls in the
// current loop context.
func (ctx *EmitContext) DataTarget() string {
	if ctx.Dialect.IsJS() {
		return "psychoJS.experiment"
	}
	if ctx.LoopName == "" {
		return "thisExp"
	}
	return ctx.LoopName
}

// Emitter is the per-kind code-generation strategy. The compiler calls
// the methods in lifecycle order, once per target; a method that has
// nothing to contribute writes nothing and returns nil.
type Emitter interface {
	WriteInitCode(ctx *EmitContext, c *Component, b *codegen.Block) error
	WriteRoutineStartCode(ctx *EmitContext, c *Component, b *codegen.Block) error
	WriteFrameCode(ctx *EmitContext, c *Component, b *codegen.Block) error
	WriteRoutineEndCode(ctx *EmitContext, c *Component, b *codegen.Block) error
	WriteExperimentEndCode(ctx *EmitContext, c *Component, b *codegen.Block) error
}

// BeforeExperimentWriter is the optional contract of kinds that
// contribute code above the session preamble, right after the imports.
type BeforeExperimentWriter interface {
	WriteBeforeExperimentCode(ctx *EmitContext, c *Component, b *codegen.Block) error
}

// ExperimentEmitter is the extra contract of the settings
// pseudo-component: the fixed preamble before any component code and the
// teardown after the flow completes.
type ExperimentEmitter interface {
	WriteStartCode(ctx *EmitContext, c *Component, b *codegen.Block) error
	WriteEndCode(ctx *EmitContext, c *Component, b *codegen.Block) error
}

// BaseEmitter provides the default lifecycle behavior kinds embed:
// set-every-repeat param updates at routine start, nothing elsewhere.
type BaseEmitter struct{}

func (BaseEmitter) WriteInitCode(*EmitContext, *Component, *codegen.Block) error { return nil }

func (BaseEmitter) WriteRoutineStartCode(ctx *EmitContext, c *Component, b *codegen.Block) error {
	WriteParamUpdates(ctx, c, b, param.EveryRepeat)
	return nil
}

func (BaseEmitter) WriteFrameCode(*EmitContext, *Component, *codegen.Block) error { return nil }

func (BaseEmitter) WriteRoutineEndCode(*EmitContext, *Component, *codegen.Block) error { return nil }

func (BaseEmitter) WriteExperimentEndCode(*EmitContext, *Component, *codegen.Block) error {
	return nil
}

// WriteParamUpdates writes one setter call for every param carrying the
// given update policy, in deterministic key order.
func WriteParamUpdates(ctx *EmitContext, c *Component, b *codegen.Block, policy param.UpdatePolicy) {
	keys := make([]string, 0, len(c.Params))
	for k, p := range c.Params {
		if p.Updates == policy {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		writeParamUpdate(ctx, c, b, k, c.Params[k], policy)
	}
}

func writeParamUpdate(ctx *EmitContext, c *Component, b *codegen.Block, key string, p *param.Param, policy param.UpdatePolicy) {
	d := ctx.Dialect
	setter := setterName(key)
	val := p.Render(d)
	logArg := ""
	if policy == param.EveryFrame {
		// suppress per-frame logging noise in the generated script
		if d.IsJS() {
			logArg = ", false"
		} else {
			logArg = ", log=False"
		}
	}
	if d.IsJS() && key == "color" {
		b.Linef("%s.setColor(new util.Color(%s)%s)%s", c.Name(), val, logArg, d.Terminator)
		return
	}
	b.Linef("%s.set%s(%s%s)%s", c.Name(), setter, val, logArg, d.Terminator)
}

// setterName maps a param key to its runtime setter suffix. A handful of
// runtime setters do not follow plain capitalization.
func setterName(key string) string {
	switch key {
	case "letterHeight":
		return "Height"
	case "sf":
		return "SF"
	default:
		return strings.ToUpper(key[:1]) + key[1:]
	}
}
