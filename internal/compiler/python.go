package compiler

import (
	"context"
	"fmt"

	"github.com/vk/expflowgo/internal/codegen"
	"github.com/vk/expflowgo/internal/component"
	"github.com/vk/expflowgo/internal/ctxlog"
	"github.com/vk/expflowgo/internal/dialect"
	"github.com/vk/expflowgo/internal/experiment"
)

// writePython generates the native script: linear top-to-bottom code with
// inline while-loops per routine and for-loops per trial handler.
func (c *Compiler) writePython(ctx context.Context, exp *experiment.Experiment) (string, error) {
	d := dialect.Python()
	ectx := &component.EmitContext{Dialect: d, ExpName: exp.Name}
	script := codegen.New()
	root := script.Root()

	ee, settings, err := c.settingsEmitter(exp)
	if err != nil {
		return "", err
	}
	if err := ee.WriteStartCode(ectx, settings, root); err != nil {
		return "", err
	}

	if err := c.writeBeforeExperiment(ectx, exp, root); err != nil {
		return "", err
	}
	if err := c.writeDeviceSetup(ectx, exp, root); err != nil {
		return "", err
	}
	if err := c.writeInitCode(ctx, ectx, exp, root); err != nil {
		return "", err
	}
	if err := c.writePythonFlow(ectx, exp, root); err != nil {
		return "", err
	}
	if err := c.writeExperimentEnd(ectx, exp, root); err != nil {
		return "", err
	}
	if err := ee.WriteEndCode(ectx, settings, root); err != nil {
		return "", err
	}
	return script.Render(), nil
}

// writeBeforeExperiment splices the snippets that belong above the rest of
// the generated code, in flow order.
func (c *Compiler) writeBeforeExperiment(ectx *component.EmitContext, exp *experiment.Experiment, b *codegen.Block) error {
	wrote := false
	for _, name := range exp.RoutineNamesInFlowOrder() {
		for _, comp := range exp.Routines[name].Components() {
			em, emits, err := c.emitterFor(comp, ectx.Dialect)
			if err != nil {
				return err
			}
			bw, ok := em.(component.BeforeExperimentWriter)
			if !emits || !ok {
				continue
			}
			if !wrote {
				b.Linef("%scode to run before the experiment starts", ectx.Dialect.Comment)
				wrote = true
			}
			if err := bw.WriteBeforeExperimentCode(ectx, comp, b); err != nil {
				return err
			}
		}
	}
	if wrote {
		b.Blank()
	}
	return nil
}

// writeDeviceSetup emits the one-time device registrations, deduplicated
// in first-reference order. Nothing is written when no component of this
// target references a device.
func (c *Compiler) writeDeviceSetup(ectx *component.EmitContext, exp *experiment.Experiment, b *codegen.Block) error {
	backends, err := c.referencedDevices(exp, ectx.Dialect)
	if err != nil {
		return err
	}
	if len(backends) == 0 {
		return nil
	}
	b.Line("# --- Setup devices ---")
	b.Line("deviceManager = hardware.DeviceManager()")
	for _, backend := range backends {
		_, em, err := c.reg.Devices.Resolve(backend.Label)
		if err != nil {
			return err
		}
		if err := em.WriteDeviceCode(ectx, backend, b); err != nil {
			return err
		}
	}
	b.Blank()
	return nil
}

// writeInitCode emits the construction of every component, routine by
// routine in flow order.
func (c *Compiler) writeInitCode(ctx context.Context, ectx *component.EmitContext, exp *experiment.Experiment, b *codegen.Block) error {
	log := ctxlog.FromContext(ctx)
	for _, name := range exp.RoutineNamesInFlowOrder() {
		ectx.RoutineName = name
		b.Linef(`%s--- Initialize components for Routine "%s" ---`, ectx.Dialect.Comment, name)
		if ectx.Dialect.IsJS() {
			b.Linef("%sClock = new util.Clock();", name)
		} else {
			b.Linef("%sClock = core.Clock()", name)
		}
		for _, comp := range exp.Routines[name].Components() {
			em, emits, err := c.emitterFor(comp, ectx.Dialect)
			if err != nil {
				return err
			}
			if !emits {
				log.Debug("Component does not support target; skipping.",
					"component", comp.Name(), "kind", comp.Type, "target", ectx.Dialect.Name)
				continue
			}
			if err := em.WriteInitCode(ectx, comp, b); err != nil {
				return err
			}
		}
		b.Blank()
	}
	return nil
}

// writeExperimentEnd gives every component its end-of-experiment hook, in
// flow order.
func (c *Compiler) writeExperimentEnd(ectx *component.EmitContext, exp *experiment.Experiment, b *codegen.Block) error {
	for _, name := range exp.RoutineNamesInFlowOrder() {
		ectx.RoutineName = name
		for _, comp := range exp.Routines[name].Components() {
			em, emits, err := c.emitterFor(comp, ectx.Dialect)
			if err != nil {
				return err
			}
			if !emits {
				continue
			}
			if err := em.WriteExperimentEndCode(ectx, comp, b); err != nil {
				return err
			}
		}
	}
	return nil
}

// writePythonFlow walks the flow sequence, opening a for-loop block per
// loop region and writing each routine's run code inside the innermost
// containing loop's block.
func (c *Compiler) writePythonFlow(ectx *component.EmitContext, exp *experiment.Experiment, root *codegen.Block) error {
	// current insertion point; loop initiators push a new body block
	type frame struct {
		loop *experiment.Loop
		body *codegen.Block
	}
	stack := []frame{{body: root}}
	top := func() frame { return stack[len(stack)-1] }

	for pos, entry := range exp.Flow.Entries() {
		switch m := entry.(type) {
		case *experiment.LoopInitiator:
			body, err := writeLoopStart(ectx, m.Loop, top().body)
			if err != nil {
				return err
			}
			stack = append(stack, frame{loop: m.Loop, body: body})

		case *experiment.LoopTerminator:
			f := top()
			if f.loop != m.Loop {
				return fmt.Errorf("flow: loop %q terminated out of order", m.Loop.Name())
			}
			stack = stack[:len(stack)-1]
			writeLoopEnd(m.Loop, f.body, top().body)

		case *experiment.Routine:
			ectx.RoutineName = m.Name()
			ectx.LoopName = ""
			if inner := exp.Flow.InnermostLoopAt(pos); inner != nil {
				ectx.LoopName = inner.Name()
			}
			if err := c.writePythonRoutine(ectx, m, top().body); err != nil {
				return err
			}
		}
	}
	return nil
}

// writeLoopStart emits the trial-handler construction and opens the
// per-iteration for block, which it returns.
func writeLoopStart(ectx *component.EmitContext, l *experiment.Loop, b *codegen.Block) (*codegen.Block, error) {
	d := ectx.Dialect
	name := l.Name()

	condsStr := "[None]"
	if !l.Params["conditionsFile"].IsEmpty() {
		if l.Params["Selected rows"].IsEmpty() {
			condsStr = fmt.Sprintf("data.importConditions(%s)", l.Params["conditionsFile"].Render(d))
		} else {
			condsStr = fmt.Sprintf("data.importConditions(%s, selection=%s)",
				l.Params["conditionsFile"].Render(d), l.Params["Selected rows"].Render(d))
		}
	}
	seed := "None"
	if !l.Params["random seed"].IsEmpty() {
		seed = l.Params["random seed"].Render(d)
	}

	b.Blank()
	b.Line("# set up handler to look after randomisation of conditions etc")
	b.Linef("%s = data.TrialHandler(nReps=%s, method=%s,", name,
		l.Params["nReps"].Render(d), l.Params["loopType"].Render(d))
	args := b.Child()
	args.Line("extraInfo=expInfo, originPath=-1,")
	args.Linef("trialList=%s,", condsStr)
	args.Linef("seed=%s, name='%s')", seed, name)
	b.Linef("thisExp.addLoop(%s)  # add the loop to the experiment", name)
	b.Linef("%s = %s.trialList[0]  # so we can initialise stimuli with some values", l.IndexName, name)
	b.Line("# abbreviate parameter names if possible (e.g. rgb = thisTrial.rgb)")
	abbrev := b.Openf("if %s != None:", l.IndexName)
	inner := abbrev.Openf("for paramName in %s:", l.IndexName)
	inner.Linef("exec('{} = %s[paramName]'.format(paramName))", l.IndexName)

	b.Blank()
	body := b.Openf("for %s in %s:", l.IndexName, name)
	body.Linef("currentLoop = %s", name)
	body.Line("# abbreviate parameter names if possible (e.g. rgb = thisTrial.rgb)")
	abbrev = body.Openf("if %s != None:", l.IndexName)
	inner = abbrev.Openf("for paramName in %s:", l.IndexName)
	inner.Linef("exec('{} = %s[paramName]'.format(paramName))", l.IndexName)
	return body, nil
}

// writeLoopEnd finishes the loop body and writes the completion note in
// the enclosing block.
func writeLoopEnd(l *experiment.Loop, body, outer *codegen.Block) {
	if l.Params["isTrials"].AsBool() {
		body.Line("thisExp.nextEntry()")
		body.Blank()
	}
	outer.Linef("# completed %s repeats of '%s'", l.Params["nReps"].RawString(), l.Name())
	outer.Blank()
}

// writePythonRoutine writes the prepare/run/end scaffolding for one
// routine occurrence plus every component's lifecycle code.
func (c *Compiler) writePythonRoutine(ectx *component.EmitContext, r *experiment.Routine, b *codegen.Block) error {
	d := ectx.Dialect
	name := r.Name()
	maxTime, nonSlip := r.GetMaxTime()

	b.Blank()
	b.Linef(`# --- Prepare to start Routine "%s" ---`, name)
	b.Line("continueRoutine = True")
	if nonSlip {
		b.Linef("routineTimer.add(%f)", maxTime)
	}
	b.Line("# update component parameters for each repeat")
	var active []*component.Component
	for _, comp := range r.Components() {
		em, emits, err := c.emitterFor(comp, d)
		if err != nil {
			return err
		}
		if !emits {
			continue
		}
		active = append(active, comp)
		if err := em.WriteRoutineStartCode(ectx, comp, b); err != nil {
			return err
		}
	}
	b.Line("# keep track of which components have finished")
	b.Linef("%sComponents = [%s]", name, joinNames(active))
	reset := b.Openf("for thisComponent in %sComponents:", name)
	reset.Line("thisComponent.tStart = None")
	reset.Line("thisComponent.tStop = None")
	reset.Line("thisComponent.tStartRefresh = None")
	reset.Line("thisComponent.tStopRefresh = None")
	has := reset.Open("if hasattr(thisComponent, 'status'):")
	has.Line("thisComponent.status = NOT_STARTED")
	b.Line("# reset timers")
	b.Line("t = 0")
	b.Line(`_timeToFirstFrame = win.getFutureFlipTime(clock="now")`)
	b.Linef("%sClock.reset(-_timeToFirstFrame)  # t0 is time of first possible flip", name)
	b.Line("frameN = -1")

	b.Blank()
	b.Linef(`# --- Run Routine "%s" ---`, name)
	var loop *codegen.Block
	if nonSlip {
		loop = b.Open("while continueRoutine and routineTimer.getTime() > 0:")
	} else {
		loop = b.Open("while continueRoutine:")
	}
	loop.Line("# get current time")
	loop.Linef("t = %sClock.getTime()", name)
	loop.Linef("tThisFlip = win.getFutureFlipTime(clock=%sClock)", name)
	loop.Line("tThisFlipGlobal = win.getFutureFlipTime(clock=None)")
	loop.Line("frameN = frameN + 1  # number of completed frames (so 0 is the first frame)")
	loop.Line("# update/draw components on each frame")
	for _, comp := range active {
		em, _, err := c.emitterFor(comp, d)
		if err != nil {
			return err
		}
		if err := em.WriteFrameCode(ectx, comp, loop); err != nil {
			return err
		}
	}
	loop.Blank()
	loop.Line("# check for quit (typically the Esc key)")
	quit := loop.Open(`if endExpNow or defaultKeyboard.getKeys(keyList=["escape"]):`)
	quit.Line("core.quit()")
	loop.Blank()
	loop.Line("# check if all components have finished")
	done := loop.Open("if not continueRoutine:  # a component has requested a forced-end of Routine")
	done.Line("break")
	loop.Line("continueRoutine = False  # will revert to True if at least one component still running")
	check := loop.Openf("for thisComponent in %sComponents:", name)
	running := check.Open(`if hasattr(thisComponent, "status") and thisComponent.status != FINISHED:`)
	running.Line("continueRoutine = True")
	running.Line("break  # at least one component has not yet finished")
	loop.Blank()
	loop.Line("# refresh the screen")
	flip := loop.Open("if continueRoutine:  # don't flip if this routine is over or we'll get a blank screen")
	flip.Line("win.flip()")

	b.Blank()
	b.Linef(`# --- Ending Routine "%s" ---`, name)
	ending := b.Openf("for thisComponent in %sComponents:", name)
	drawable := ending.Open(`if hasattr(thisComponent, "setAutoDraw"):`)
	drawable.Line("thisComponent.setAutoDraw(False)")
	for _, comp := range active {
		em, _, err := c.emitterFor(comp, d)
		if err != nil {
			return err
		}
		if err := em.WriteRoutineEndCode(ectx, comp, b); err != nil {
			return err
		}
	}
	if !nonSlip {
		b.Linef(`# the Routine "%s" was not non-slip safe, so reset the non-slip timer`, name)
		b.Line("routineTimer.reset()")
	}
	return nil
}

func joinNames(comps []*component.Component) string {
	out := ""
	for i, c := range comps {
		if i > 0 {
			out += ", "
		}
		out += c.Name()
	}
	return out
}
