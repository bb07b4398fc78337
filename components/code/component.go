// Package code implements the custom-code kind: author-supplied snippets
// spliced verbatim into the generated script at six lifecycle points.
// Each point carries a separate snippet per target; the native snippet is
// never translated for the web build.
package code

import (
	"strings"

	"github.com/vk/expflowgo/internal/codegen"
	"github.com/vk/expflowgo/internal/component"
	"github.com/vk/expflowgo/internal/param"
	"github.com/vk/expflowgo/internal/registry"
)

const Type = "code"

// Snippet param keys, native and web.
const (
	BeforeExp    = "beforeExp"
	BeginExp     = "beginExp"
	BeginRoutine = "beginRoutine"
	EachFrame    = "eachFrame"
	EndRoutine   = "endRoutine"
	EndExp       = "endExp"

	BeforeExpJS    = "beforeExpJS"
	BeginExpJS     = "beginExpJS"
	BeginRoutineJS = "beginRoutineJS"
	EachFrameJS    = "eachFrameJS"
	EndRoutineJS   = "endRoutineJS"
	EndExpJS       = "endExpJS"
)

type Module struct{}

// Register implements registry.Module.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterComponent(&registry.Definition{
		Type:    Type,
		Targets: component.BothTargets(),
		New:     New,
		Emitter: &emitter{},
	})
}

// New builds a code component with empty snippets.
func New(name string) *component.Component {
	c := component.NewBase(Type, name)
	// snippets splice in as-is; the shared timeline params do not apply
	delete(c.Params, "startType")
	delete(c.Params, "startVal")
	delete(c.Params, "startEstim")
	delete(c.Params, "stopType")
	delete(c.Params, "stopVal")
	delete(c.Params, "durationEstim")
	delete(c.Params, "saveStartStop")
	delete(c.Params, "syncScreenRefresh")
	for _, key := range []string{
		BeforeExp, BeginExp, BeginRoutine, EachFrame, EndRoutine, EndExp,
		BeforeExpJS, BeginExpJS, BeginRoutineJS, EachFrameJS, EndRoutineJS, EndExpJS,
	} {
		c.Params[key] = param.New("", param.ExtendedCode)
	}
	c.Order = []string{"name", BeforeExp, BeginExp, BeginRoutine, EachFrame, EndRoutine, EndExp}
	return c
}

type emitter struct {
	component.BaseEmitter
}

// snippet returns the snippet for the current target, trimmed of trailing
// whitespace. The web target falls back to nothing rather than splicing
// native code.
func snippet(ctx *component.EmitContext, c *component.Component, key, keyJS string) string {
	k := key
	if ctx.Dialect.IsJS() {
		k = keyJS
	}
	p, ok := c.Params[k]
	if !ok {
		return ""
	}
	return strings.TrimRight(p.RawString(), " \t\n")
}

func splice(b *codegen.Block, text string) {
	if text == "" {
		return
	}
	b.Lines(text)
}

// WriteBeforeExperimentCode splices the snippet that lands above the
// session preamble, right after the imports.
func (e *emitter) WriteBeforeExperimentCode(ctx *component.EmitContext, c *component.Component, b *codegen.Block) error {
	splice(b, snippet(ctx, c, BeforeExp, BeforeExpJS))
	return nil
}

func (e *emitter) WriteInitCode(ctx *component.EmitContext, c *component.Component, b *codegen.Block) error {
	splice(b, snippet(ctx, c, BeginExp, BeginExpJS))
	return nil
}

func (e *emitter) WriteRoutineStartCode(ctx *component.EmitContext, c *component.Component, b *codegen.Block) error {
	splice(b, snippet(ctx, c, BeginRoutine, BeginRoutineJS))
	return nil
}

func (e *emitter) WriteFrameCode(ctx *component.EmitContext, c *component.Component, b *codegen.Block) error {
	splice(b, snippet(ctx, c, EachFrame, EachFrameJS))
	return nil
}

func (e *emitter) WriteRoutineEndCode(ctx *component.EmitContext, c *component.Component, b *codegen.Block) error {
	splice(b, snippet(ctx, c, EndRoutine, EndRoutineJS))
	return nil
}

func (e *emitter) WriteExperimentEndCode(ctx *component.EmitContext, c *component.Component, b *codegen.Block) error {
	splice(b, snippet(ctx, c, EndExp, EndExpJS))
	return nil
}
