// Package text implements the text stimulus kind: a piece of styled text
// drawn on the window between its start and stop points.
package text

import (
	"github.com/vk/expflowgo/internal/codegen"
	"github.com/vk/expflowgo/internal/component"
	"github.com/vk/expflowgo/internal/dialect"
	"github.com/vk/expflowgo/internal/param"
	"github.com/vk/expflowgo/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

const Type = "text"

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

// New builds a text component with defaults.
func New(name string) *component.Component {
	c := component.NewBase(Type, name)
	c.Params["text"] = param.New("Any text\n\nincluding line breaks", param.ExtendedStr)
	c.Params["text"].AllowedUpdates = []param.UpdatePolicy{param.Constant, param.EveryRepeat, param.EveryFrame}
	c.Params["font"] = param.New("Open Sans", param.Str)
	c.Params["pos"] = &param.Param{
		Val:     cty.TupleVal([]cty.Value{cty.NumberIntVal(0), cty.NumberIntVal(0)}),
		ValType: param.List, Updates: param.Constant, Categ: "Layout",
	}
	c.Params["letterHeight"] = param.NewNum(0.05)
	c.Params["color"] = param.New("white", param.Color)
	c.Params["color"].AllowedUpdates = []param.UpdatePolicy{param.Constant, param.EveryRepeat, param.EveryFrame}
	c.Params["opacity"] = param.New("", param.Num)
	c.Params["ori"] = param.NewNum(0)
	c.Params["wrapWidth"] = param.New("", param.Num)
	c.Params["languageStyle"] = param.New("LTR", param.Str)
	c.Params["syncScreenRefresh"] = param.NewBool(true)
	c.Order = append(c.Order, "text", "font", "pos", "letterHeight", "color")
	return c
}

type emitter struct {
	component.BaseEmitter
}

func (e *emitter) WriteInitCode(ctx *component.EmitContext, c *component.Component, b *codegen.Block) error {
	d := ctx.Dialect
	name := c.Name()
	if d.IsJS() {
		b.Linef("%s = new visual.TextStim({", name)
		args := b.Child()
		args.Line("win: psychoJS.window,")
		args.Linef("name: '%s',", name)
		args.Linef("text: %s,", c.Params["text"].Render(d))
		args.Linef("font: %s,", c.Params["font"].Render(d))
		args.Line("units: undefined,")
		args.Linef("pos: %s, height: %s, wrapWidth: %s, ori: %s,",
			c.Params["pos"].Render(d), c.Params["letterHeight"].Render(d),
			renderOrUndefined(c.Params["wrapWidth"], d), c.Params["ori"].Render(d))
		args.Linef("languageStyle: %s,", c.Params["languageStyle"].Render(d))
		args.Linef("color: new util.Color(%s),  opacity: %s,",
			c.Params["color"].Render(d), renderOrUndefined(c.Params["opacity"], d))
		args.Line("depth: 0.0")
		b.Line("});")
		return nil
	}
	b.Linef("%s = visual.TextStim(win=win, name='%s',", name, name)
	args := b.Child()
	args.Linef("text=%s,", c.Params["text"].Render(d))
	args.Linef("font=%s,", c.Params["font"].Render(d))
	args.Linef("pos=%s, height=%s, wrapWidth=%s, ori=%s,",
		c.Params["pos"].Render(d), c.Params["letterHeight"].Render(d),
		renderOrNone(c.Params["wrapWidth"], d), c.Params["ori"].Render(d))
	args.Linef("color=%s, colorSpace='rgb', opacity=%s,",
		c.Params["color"].Render(d), renderOrNone(c.Params["opacity"], d))
	args.Linef("languageStyle=%s,", c.Params["languageStyle"].Render(d))
	args.Line("depth=0.0);")
	return nil
}

func (e *emitter) WriteFrameCode(ctx *component.EmitContext, c *component.Component, b *codegen.Block) error {
	d := ctx.Dialect
	name := c.Name()
	b.Blank()
	b.Linef("%s*%s* updates", d.Comment, name)
	started, err := component.WriteStartTest(ctx, c, b)
	if err != nil {
		return err
	}
	if d.IsJS() {
		started.Linef("%s.setAutoDraw(true);", name)
	} else {
		started.Linef("%s.setAutoDraw(True)", name)
	}
	if c.HasStopPoint() {
		stopped, err := component.WriteStopTest(ctx, c, b)
		if err != nil {
			return err
		}
		if d.IsJS() {
			stopped.Linef("%s.setAutoDraw(false);", name)
		} else {
			stopped.Linef("%s.setAutoDraw(False)", name)
		}
	}
	if c.NeedsUpdate(param.EveryFrame) {
		var drawing *codegen.Block
		if d.IsJS() {
			drawing = b.OpenClosed(
				"if ("+name+".status === PsychoJS.Status.STARTED){ // only update if being drawn", "}")
		} else {
			drawing = b.Openf("if %s.status == STARTED:  # only update if drawing", name)
		}
		component.WriteParamUpdates(ctx, c, drawing, param.EveryFrame)
	}
	return nil
}

func renderOrNone(p *param.Param, d dialect.Dialect) string {
	if p.IsEmpty() {
		return "None"
	}
	return p.Render(d)
}

func renderOrUndefined(p *param.Param, d dialect.Dialect) string {
	if p.IsEmpty() {
		return "undefined"
	}
	return p.Render(d)
}
