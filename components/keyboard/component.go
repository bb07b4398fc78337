// Package keyboard implements the keyboard response kind: it collects
// keypresses during its active window, optionally scores them against a
// correct answer, and can force the routine to end on a response.
package keyboard

import (
	"fmt"

	"github.com/vk/expflowgo/internal/codegen"
	"github.com/vk/expflowgo/internal/component"
	"github.com/vk/expflowgo/internal/param"
	"github.com/vk/expflowgo/internal/registry"
)

const Type = "keyboard"

// Store policies for collected keys.
const (
	StoreLast  = "last key"
	StoreFirst = "first key"
	StoreAll   = "all keys"
	StoreNone  = "nothing"
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

// New builds a keyboard component with defaults.
func New(name string) *component.Component {
	c := component.NewBase(Type, name)
	c.Params["allowedKeys"] = param.New("'y','n','left','right','space'", param.List)
	c.Params["allowedKeys"].AllowedUpdates = []param.UpdatePolicy{param.Constant, param.EveryRepeat}
	c.Params["forceEndRoutine"] = param.NewBool(true)
	c.Params["store"] = param.New(StoreLast, param.Str)
	c.Params["store"].AllowedVals = []string{StoreLast, StoreFirst, StoreAll, StoreNone}
	c.Params["storeCorrect"] = param.NewBool(false)
	c.Params["correctAns"] = param.New("", param.Str)
	c.Params["discardPrev"] = param.NewBool(true)
	c.Params["syncScreenRefresh"] = param.NewBool(true)
	c.Order = append(c.Order, "forceEndRoutine", "allowedKeys", "store", "storeCorrect", "correctAns")
	// dependency: correctAns is only meaningful when scoring is on
	c.Depends = append(c.Depends, component.DependencyRule{
		DependsOn: "storeCorrect", Condition: "== True",
		Param: "correctAns", True: "enable", False: "disable",
	})
	return c
}

type emitter struct {
	component.BaseEmitter
}

func (e *emitter) WriteInitCode(ctx *component.EmitContext, c *component.Component, b *codegen.Block) error {
	if ctx.Dialect.IsJS() {
		b.Linef("%s = new core.Keyboard({psychoJS: psychoJS, clock: new util.Clock(), waitForStart: true});", c.Name())
		b.Blank()
		return nil
	}
	b.Linef("%s = keyboard.Keyboard()", c.Name())
	return nil
}

func (e *emitter) WriteRoutineStartCode(ctx *component.EmitContext, c *component.Component, b *codegen.Block) error {
	name := c.Name()
	component.WriteParamUpdates(ctx, c, b, param.EveryRepeat)
	if ctx.Dialect.IsJS() {
		b.Linef("%s.keys = undefined;", name)
		b.Linef("%s.rt = undefined;", name)
		b.Linef("_%s_allKeys = [];", name)
		return nil
	}
	b.Linef("%s.keys = []", name)
	b.Linef("%s.rt = []", name)
	b.Linef("_%s_allKeys = []", name)
	return nil
}

func (e *emitter) WriteFrameCode(ctx *component.EmitContext, c *component.Component, b *codegen.Block) error {
	if ctx.Dialect.IsJS() {
		return e.writeFrameCodeJS(ctx, c, b)
	}
	name := c.Name()
	sync := c.Params["syncScreenRefresh"].AsBool()

	b.Blank()
	b.Linef("# *%s* updates", name)
	if sync {
		b.Line("waitOnFlip = False")
	}
	started, err := component.WriteStartTest(ctx, c, b)
	if err != nil {
		return err
	}
	started.Linef("%s.status = STARTED", name)
	started.Line("# keyboard checking is just starting")
	if sync {
		started.Line("waitOnFlip = True")
		started.Linef("win.callOnFlip(%s.clock.reset)  # t=0 on next screen flip", name)
	} else {
		started.Linef("%s.clock.reset()  # now t=0", name)
	}
	if c.Params["discardPrev"].AsBool() {
		if sync {
			started.Linef("win.callOnFlip(%s.clearEvents, eventType='keyboard')  # clear events on next screen flip", name)
		} else {
			started.Linef("%s.clearEvents(eventType='keyboard')", name)
		}
	}
	if c.HasStopPoint() {
		stopped, err := component.WriteStopTest(ctx, c, b)
		if err != nil {
			return err
		}
		stopped.Linef("%s.status = FINISHED", name)
	}

	cond := fmt.Sprintf("if %s.status == STARTED:", name)
	if sync {
		cond = fmt.Sprintf("if %s.status == STARTED and not waitOnFlip:", name)
	}
	active := b.Open(cond)
	active.Linef("theseKeys = %s.getKeys(keyList=%s, waitRelease=False)", name, keyListPy(c))
	active.Linef("_%s_allKeys.extend(theseKeys)", name)
	got := active.Openf("if len(_%s_allKeys):", name)
	switch c.Params["store"].RawString() {
	case StoreFirst:
		got.Linef("%s.keys = _%s_allKeys[0].name  # just the first key pressed", name, name)
		got.Linef("%s.rt = _%s_allKeys[0].rt", name, name)
	case StoreAll:
		got.Linef("%s.keys = [key.name for key in _%s_allKeys]  # storing all keys", name, name)
		got.Linef("%s.rt = [key.rt for key in _%s_allKeys]", name, name)
	default: // last key; store-nothing still tracks the last key for scoring
		got.Linef("%s.keys = _%s_allKeys[-1].name  # just the last key pressed", name, name)
		got.Linef("%s.rt = _%s_allKeys[-1].rt", name, name)
	}
	if c.Params["storeCorrect"].AsBool() {
		ans := c.Params["correctAns"].Render(ctx.Dialect)
		got.Line("# was this correct?")
		correct := got.Openf("if (%s.keys == str(%s)) or (%s.keys == %s):", name, ans, name, ans)
		correct.Linef("%s.corr = 1", name)
		wrong := got.Open("else:")
		wrong.Linef("%s.corr = 0", name)
	}
	if c.Params["forceEndRoutine"].AsBool() {
		got.Line("# a response ends the routine")
		got.Line("continueRoutine = False")
	}
	return nil
}

func (e *emitter) writeFrameCodeJS(ctx *component.EmitContext, c *component.Component, b *codegen.Block) error {
	name := c.Name()
	sync := c.Params["syncScreenRefresh"].AsBool()

	b.Blank()
	b.Linef("// *%s* updates", name)
	started, err := component.WriteStartTest(ctx, c, b)
	if err != nil {
		return err
	}
	started.Linef("%s.status = PsychoJS.Status.STARTED;", name)
	started.Line("// keyboard checking is just starting")
	if sync {
		started.Linef("psychoJS.window.callOnFlip(function() { %s.clock.reset(); });  // t=0 on next screen flip", name)
		started.Linef("psychoJS.window.callOnFlip(function() { %s.start(); }); // start on screen flip", name)
	} else {
		started.Linef("%s.clock.reset();", name)
		started.Linef("%s.start();", name)
	}
	if c.Params["discardPrev"].AsBool() {
		if sync {
			started.Linef("psychoJS.window.callOnFlip(function() { %s.clearEvents(); });", name)
		} else {
			started.Linef("%s.clearEvents();", name)
		}
	}
	if c.HasStopPoint() {
		stopped, err := component.WriteStopTest(ctx, c, b)
		if err != nil {
			return err
		}
		stopped.Linef("%s.status = PsychoJS.Status.FINISHED;", name)
	}

	active := b.OpenClosed(fmt.Sprintf("if (%s.status === PsychoJS.Status.STARTED) {", name), "}")
	active.Linef("let theseKeys = %s.getKeys({keyList: %s, waitRelease: false});", name, keyListJS(c))
	active.Linef("_%s_allKeys = _%s_allKeys.concat(theseKeys);", name, name)
	got := active.OpenClosed(fmt.Sprintf("if (_%s_allKeys.length > 0) {", name), "}")
	switch c.Params["store"].RawString() {
	case StoreFirst:
		got.Linef("%s.keys = _%s_allKeys[0].name;  // just the first key pressed", name, name)
		got.Linef("%s.rt = _%s_allKeys[0].rt;", name, name)
	case StoreAll:
		got.Linef("%s.keys = _%s_allKeys.map((key) => key.name);  // storing all keys", name, name)
		got.Linef("%s.rt = _%s_allKeys.map((key) => key.rt);", name, name)
	default:
		got.Linef("%s.keys = _%s_allKeys[_%s_allKeys.length - 1].name;  // just the last key pressed", name, name, name)
		got.Linef("%s.rt = _%s_allKeys[_%s_allKeys.length - 1].rt;", name, name, name)
	}
	if c.Params["storeCorrect"].AsBool() {
		ans := c.Params["correctAns"].Render(ctx.Dialect)
		got.Line("// was this correct?")
		correct := got.OpenClosed(fmt.Sprintf("if (%s.keys == %s) {", name, ans), "} else {")
		correct.Linef("%s.corr = 1;", name)
		// the closer doubles as the else header; close it by hand
		wrong := got.Child()
		wrong.Linef("%s.corr = 0;", name)
		got.Line("}")
	}
	if c.Params["forceEndRoutine"].AsBool() {
		got.Line("// a response ends the routine")
		got.Line("continueRoutine = false;")
	}
	return nil
}

func (e *emitter) WriteRoutineEndCode(ctx *component.EmitContext, c *component.Component, b *codegen.Block) error {
	name := c.Name()
	store := c.Params["store"].RawString()
	if ctx.Dialect.IsJS() {
		if store == StoreNone {
			b.Linef("%s.stop();", name)
			return nil
		}
		if c.Params["storeCorrect"].AsBool() {
			ans := c.Params["correctAns"].Render(ctx.Dialect)
			b.Line("// was no response the correct answer?!")
			none := b.OpenClosed(fmt.Sprintf("if (%s.keys === undefined) {", name), "}")
			yes := none.OpenClosed(fmt.Sprintf("if (['None','none',undefined].includes(%s)) {", ans), "} else {")
			yes.Linef("%s.corr = 1;  // correct non-response", name)
			no := none.Child()
			no.Linef("%s.corr = 0;  // failed to respond (incorrectly)", name)
			none.Line("}")
		}
		target := ctx.DataTarget()
		b.Linef("// store data for %s", ctx.RoutineName)
		b.Linef("%s.addData('%s.keys', %s.keys);", target, name, name)
		if c.Params["storeCorrect"].AsBool() {
			b.Linef("%s.addData('%s.corr', %s.corr);", target, name, name)
		}
		had := b.OpenClosed(fmt.Sprintf("if (typeof %s.keys !== 'undefined') {  // we had a response", name), "}")
		had.Linef("%s.addData('%s.rt', %s.rt);", target, name, name)
		if c.Params["forceEndRoutine"].AsBool() {
			had.Line("routineTimer.reset();")
		}
		b.Linef("%s.stop();", name)
		return nil
	}

	if store == StoreNone {
		return nil
	}
	target := ctx.DataTarget()
	b.Line("# check responses")
	noResp := b.Openf("if %s.keys in ['', [], None]:  # No response was made", name)
	noResp.Linef("%s.keys = None", name)
	if c.Params["storeCorrect"].AsBool() {
		ans := c.Params["correctAns"].Render(ctx.Dialect)
		noResp.Line("# was no response the correct answer?!")
		yes := noResp.Openf("if str(%s).lower() == 'none':", ans)
		yes.Linef("%s.corr = 1  # correct non-response", name)
		no := noResp.Open("else:")
		no.Linef("%s.corr = 0  # failed to respond (incorrectly)", name)
	}
	b.Linef("# store data for %s", target)
	b.Linef("%s.addData('%s.keys', %s.keys)", target, name, name)
	if c.Params["storeCorrect"].AsBool() {
		b.Linef("%s.addData('%s.corr', %s.corr)", target, name, name)
	}
	had := b.Openf("if %s.keys != None:  # we had a response", name)
	had.Linef("%s.addData('%s.rt', %s.rt)", target, name, name)
	if ctx.LoopName == "" {
		b.Line("thisExp.nextEntry()")
	}
	return nil
}

// keyListPy renders the allowed-keys list for the native target; an empty
// list means "accept any key" and renders as None.
func keyListPy(c *component.Component) string {
	p := c.Params["allowedKeys"]
	if p.IsEmpty() {
		return "None"
	}
	return "[" + p.RawString() + "]"
}

func keyListJS(c *component.Component) string {
	p := c.Params["allowedKeys"]
	if p.IsEmpty() {
		return "[]"
	}
	return "[" + p.RawString() + "]"
}
