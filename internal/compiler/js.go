package compiler

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/expflowgo/internal/codegen"
	"github.com/vk/expflowgo/internal/component"
	"github.com/vk/expflowgo/internal/dialect"
	"github.com/vk/expflowgo/internal/experiment"
)

// writeJS generates the web script: routines and loops become scheduler
// functions rather than inline control flow, and the whole flow is driven
// by chained Scheduler instances. modular selects the ES-module build;
// the legacy build uses function-expression iteration instead of
// for-of/const so old browsers can parse it.
func (c *Compiler) writeJS(ctx context.Context, exp *experiment.Experiment, modular bool) (string, error) {
	d := dialect.JS()
	ectx := &component.EmitContext{Dialect: d, ExpName: exp.Name, Modular: modular}
	script := codegen.NewWithIndent("  ")
	root := script.Root()

	ee, settings, err := c.settingsEmitter(exp)
	if err != nil {
		return "", err
	}
	if err := ee.WriteStartCode(ectx, settings, root); err != nil {
		return "", err
	}

	root.Line("// Start code blocks for 'Before Experiment'")
	if err := c.writeBeforeExperiment(ectx, exp, root); err != nil {
		return "", err
	}

	writeFlowScheduler(exp, root)

	root.Line("psychoJS.start({")
	start := root.Child()
	start.Line("expName: expName,")
	start.Line("expInfo: expInfo,")
	start.Line("resources: []")
	root.Line("});")
	root.Blank()

	writeUpdateInfo(root)

	if err := c.writeExperimentInit(ctx, ectx, exp, root); err != nil {
		return "", err
	}
	if err := c.writeLoopFunctions(ectx, exp, root); err != nil {
		return "", err
	}
	if err := c.writeRoutineFunctions(ectx, exp, root); err != nil {
		return "", err
	}
	if err := c.writeJSHelpers(ectx, exp, root, ee, settings); err != nil {
		return "", err
	}
	return script.Render(), nil
}

// writeFlowScheduler schedules the top-level flow: the session dialog,
// then one scheduler entry per top-level routine or loop, then quit.
// Entries inside a loop region are scheduled by that loop's Begin
// function, not here.
func writeFlowScheduler(exp *experiment.Experiment, b *codegen.Block) {
	b.Line("// schedule the experiment:")
	b.Line("psychoJS.schedule(psychoJS.gui.DlgFromDict({")
	dlg := b.Child()
	dlg.Line("dictionary: expInfo,")
	dlg.Line("title: expName")
	b.Line("}));")
	b.Blank()
	b.Line("const flowScheduler = new Scheduler(psychoJS);")
	b.Line("const dialogCancelScheduler = new Scheduler(psychoJS);")
	b.Line("psychoJS.scheduleCondition(function() { return (psychoJS.gui.dialogComponent.button === 'OK'); }, flowScheduler, dialogCancelScheduler);")
	b.Blank()
	b.Line("// flowScheduler gets run if the participants presses OK")
	b.Line("flowScheduler.add(updateInfo); // add timeStamp")
	b.Line("flowScheduler.add(experimentInit);")

	depth := 0
	for _, entry := range exp.Flow.Entries() {
		switch m := entry.(type) {
		case *experiment.LoopInitiator:
			if depth == 0 {
				name := m.Loop.Name()
				b.Linef("const %sLoopScheduler = new Scheduler(psychoJS);", name)
				b.Linef("flowScheduler.add(%sLoopBegin, %sLoopScheduler);", name, name)
				b.Linef("flowScheduler.add(%sLoopScheduler);", name)
				b.Linef("flowScheduler.add(%sLoopEnd);", name)
			}
			depth++
		case *experiment.LoopTerminator:
			depth--
		case *experiment.Routine:
			if depth == 0 {
				name := m.Name()
				b.Linef("flowScheduler.add(%sRoutineBegin());", name)
				b.Linef("flowScheduler.add(%sRoutineEachFrame());", name)
				b.Linef("flowScheduler.add(%sRoutineEnd());", name)
			}
		}
	}
	b.Line("flowScheduler.add(quitPsychoJS, '', true);")
	b.Blank()
	b.Line("// quit if user presses Cancel in dialog box:")
	b.Line("dialogCancelScheduler.add(quitPsychoJS, '', false);")
	b.Blank()
}

func writeUpdateInfo(b *codegen.Block) {
	b.Blank()
	fn := b.OpenClosed("function updateInfo() {", "}")
	fn.Line("expInfo['date'] = util.MonotonicClock.getDateStr();  // add a simple timestamp")
	fn.Line("expInfo['expName'] = expName;")
	fn.Blank()
	fn.Line("return Scheduler.Event.NEXT;")
}

// writeExperimentInit writes the experimentInit function: device notes,
// per-routine component construction and the shared timers.
func (c *Compiler) writeExperimentInit(ctx context.Context, ectx *component.EmitContext, exp *experiment.Experiment, b *codegen.Block) error {
	b.Blank()
	fn := b.OpenClosed("function experimentInit() {", "}")
	if err := c.writeDeviceSetupJS(ectx, exp, fn); err != nil {
		return err
	}
	if err := c.writeInitCode(ctx, ectx, exp, fn); err != nil {
		return err
	}
	fn.Line("// Create some handy timers")
	fn.Line("globalClock = new util.Clock();  // to track the time since experiment started")
	fn.Line("routineTimer = new util.CountdownTimer();  // to track time remaining of each (non-slip) routine")
	fn.Blank()
	fn.Line("return Scheduler.Event.NEXT;")
	return nil
}

func (c *Compiler) writeDeviceSetupJS(ectx *component.EmitContext, exp *experiment.Experiment, b *codegen.Block) error {
	backends, err := c.referencedDevices(exp, ectx.Dialect)
	if err != nil {
		return err
	}
	for _, backend := range backends {
		_, em, err := c.reg.Devices.Resolve(backend.Label)
		if err != nil {
			return err
		}
		if err := em.WriteDeviceCode(ectx, backend, b); err != nil {
			return err
		}
	}
	return nil
}

// writeLoopFunctions writes the LoopBegin/LoopEnd scheduler functions for
// every loop, each one once, in flow order of the initiators.
func (c *Compiler) writeLoopFunctions(ectx *component.EmitContext, exp *experiment.Experiment, b *codegen.Block) error {
	entries := exp.Flow.Entries()
	for pos, entry := range entries {
		init, ok := entry.(*experiment.LoopInitiator)
		if !ok {
			continue
		}
		if err := writeLoopBeginJS(ectx, exp, init.Loop, pos, b); err != nil {
			return err
		}
		writeLoopEndJS(init.Loop, b)
	}
	return nil
}

func writeLoopBeginJS(ectx *component.EmitContext, exp *experiment.Experiment, l *experiment.Loop, initPos int, b *codegen.Block) error {
	name := l.Name()
	d := ectx.Dialect

	trialList := "undefined"
	if !l.Params["conditionsFile"].IsEmpty() {
		conds := strings.ReplaceAll(l.Params["conditionsFile"].RawString(), "\\", "/")
		if l.Params["Selected rows"].IsEmpty() {
			trialList = fmt.Sprintf("'%s'", conds)
		} else {
			trialList = fmt.Sprintf("TrialHandler.importConditions(psychoJS.serverManager, '%s', %s)",
				conds, l.Params["Selected rows"].Render(d))
		}
	}
	seed := "undefined"
	if !l.Params["random seed"].IsEmpty() {
		seed = l.Params["random seed"].Render(d)
	}

	b.Blank()
	fn := b.OpenClosed(fmt.Sprintf("function %sLoopBegin(%sLoopScheduler) {", name, name), "}")
	fn.Line("// set up handler to look after randomisation of conditions etc")
	fn.Linef("%s = new TrialHandler({", name)
	args := fn.Child()
	args.Line("psychoJS: psychoJS,")
	args.Linef("nReps: %s, method: TrialHandler.Method.%s,",
		l.Params["nReps"].Render(d), strings.ToUpper(l.Params["loopType"].RawString()))
	args.Line("extraInfo: expInfo, originPath: undefined,")
	args.Linef("trialList: %s,", trialList)
	args.Linef("seed: %s, name: '%s'", seed, name)
	fn.Line("});")
	fn.Linef("psychoJS.experiment.addLoop(%s); // add the loop to the experiment", name)
	fn.Linef("currentLoop = %s;  // we're now the current loop", name)
	fn.Blank()
	fn.Line("// Schedule all the trials in the trialList:")

	var iter *codegen.Block
	if ectx.Modular {
		iter = fn.OpenClosed(fmt.Sprintf("for (const %s of %s) {", l.IndexName, name), "}")
	} else {
		iter = fn.OpenClosed(fmt.Sprintf("%s.forEach(function() {", name), "});")
	}
	iter.Linef("const snapshot = %s.getSnapshot();", name)
	iter.Linef("%sLoopScheduler.add(importConditions(snapshot));", name)
	writeLoopChildrenJS(exp, l, initPos, iter)
	iter.Linef("%sLoopScheduler.add(endLoopIteration(%sLoopScheduler, snapshot));", name, name)
	fn.Blank()
	fn.Line("return Scheduler.Event.NEXT;")
	return nil
}

// writeLoopChildrenJS schedules the loop's direct children: routines and
// immediately-nested loops between its markers, skipping anything owned
// by a deeper loop.
func writeLoopChildrenJS(exp *experiment.Experiment, l *experiment.Loop, initPos int, b *codegen.Block) {
	depth := 0
	for _, entry := range exp.Flow.Entries()[initPos+1:] {
		switch m := entry.(type) {
		case *experiment.LoopInitiator:
			if depth == 0 {
				child := m.Loop.Name()
				b.Linef("const %sLoopScheduler = new Scheduler(psychoJS);", child)
				b.Linef("%sLoopScheduler.add(%sLoopBegin, %sLoopScheduler);", l.Name(), child, child)
				b.Linef("%sLoopScheduler.add(%sLoopScheduler);", l.Name(), child)
				b.Linef("%sLoopScheduler.add(%sLoopEnd);", l.Name(), child)
			}
			depth++
		case *experiment.LoopTerminator:
			if m.Loop == l {
				return
			}
			depth--
		case *experiment.Routine:
			if depth == 0 {
				b.Linef("%sLoopScheduler.add(%sRoutineBegin(snapshot));", l.Name(), m.Name())
				b.Linef("%sLoopScheduler.add(%sRoutineEachFrame(snapshot));", l.Name(), m.Name())
				b.Linef("%sLoopScheduler.add(%sRoutineEnd(snapshot));", l.Name(), m.Name())
			}
		}
	}
}

func writeLoopEndJS(l *experiment.Loop, b *codegen.Block) {
	b.Blank()
	fn := b.OpenClosed(fmt.Sprintf("function %sLoopEnd() {", l.Name()), "}")
	fn.Linef("psychoJS.experiment.removeLoop(%s);", l.Name())
	fn.Blank()
	fn.Line("return Scheduler.Event.NEXT;")
}

// writeRoutineFunctions writes the Begin/EachFrame/End scheduler function
// triple for every routine, once per routine, in flow order.
func (c *Compiler) writeRoutineFunctions(ectx *component.EmitContext, exp *experiment.Experiment, b *codegen.Block) error {
	for _, name := range exp.RoutineNamesInFlowOrder() {
		r := exp.Routines[name]
		ectx.RoutineName = name
		ectx.LoopName = ""
		if inner := exp.Flow.InnermostLoopAt(exp.Flow.IndexOf(r)); inner != nil {
			ectx.LoopName = inner.Name()
		}
		if err := c.writeRoutineBeginJS(ectx, r, b); err != nil {
			return err
		}
		if err := c.writeRoutineEachFrameJS(ectx, r, b); err != nil {
			return err
		}
		if err := c.writeRoutineEndJS(ectx, r, b); err != nil {
			return err
		}
	}
	return nil
}

// activeComponents filters the routine's components down to those that
// emit for the current target.
func (c *Compiler) activeComponents(ectx *component.EmitContext, r *experiment.Routine) ([]*component.Component, error) {
	var active []*component.Component
	for _, comp := range r.Components() {
		_, emits, err := c.emitterFor(comp, ectx.Dialect)
		if err != nil {
			return nil, err
		}
		if emits {
			active = append(active, comp)
		}
	}
	return active, nil
}

func (c *Compiler) writeRoutineBeginJS(ectx *component.EmitContext, r *experiment.Routine, b *codegen.Block) error {
	name := r.Name()
	maxTime, nonSlip := r.GetMaxTime()
	active, err := c.activeComponents(ectx, r)
	if err != nil {
		return err
	}

	b.Blank()
	outer := b.OpenClosed(fmt.Sprintf("function %sRoutineBegin(snapshot) {", name), "}")
	fn := outer.OpenClosed("return function () {", "};")
	fn.Linef("//------Prepare to start Routine '%s'-------", name)
	fn.Line("t = 0;")
	fn.Linef("%sClock.reset(); // clock", name)
	fn.Line("frameN = -1;")
	if nonSlip {
		fn.Linef("routineTimer.add(%f);", maxTime)
	}
	fn.Line("// update component parameters for each repeat")
	for _, comp := range active {
		em, _, err := c.emitterFor(comp, ectx.Dialect)
		if err != nil {
			return err
		}
		if err := em.WriteRoutineStartCode(ectx, comp, fn); err != nil {
			return err
		}
	}
	fn.Line("// keep track of which components have finished")
	fn.Linef("%sComponents = [];", name)
	for _, comp := range active {
		if _, timed := comp.Params["startType"]; timed {
			fn.Linef("%sComponents.push(%s);", name, comp.Name())
		}
	}
	fn.Blank()
	if ectx.Modular {
		each := fn.Open(fmt.Sprintf("for (const thisComponent of %sComponents)", name))
		cond := each.Open("if ('status' in thisComponent)")
		cond.Line("thisComponent.status = PsychoJS.Status.NOT_STARTED;")
	} else {
		each := fn.OpenClosed(fmt.Sprintf("%sComponents.forEach( function(thisComponent) {", name), "});")
		cond := each.Open("if ('status' in thisComponent)")
		cond.Line("thisComponent.status = PsychoJS.Status.NOT_STARTED;")
	}
	fn.Blank()
	fn.Line("return Scheduler.Event.NEXT;")
	return nil
}

func (c *Compiler) writeRoutineEachFrameJS(ectx *component.EmitContext, r *experiment.Routine, b *codegen.Block) error {
	name := r.Name()
	_, nonSlip := r.GetMaxTime()
	active, err := c.activeComponents(ectx, r)
	if err != nil {
		return err
	}

	b.Blank()
	outer := b.OpenClosed(fmt.Sprintf("function %sRoutineEachFrame(snapshot) {", name), "}")
	fn := outer.OpenClosed("return function () {", "};")
	fn.Linef("//------Loop for each frame of Routine '%s'-------", name)
	fn.Line("let continueRoutine = true; // until we're told otherwise")
	fn.Line("// get current time")
	fn.Linef("t = %sClock.getTime();", name)
	fn.Line("frameN = frameN + 1;  // number of completed frames (so 0 is the first frame)")
	fn.Line("// update/draw components on each frame")
	for _, comp := range active {
		em, _, err := c.emitterFor(comp, ectx.Dialect)
		if err != nil {
			return err
		}
		if err := em.WriteFrameCode(ectx, comp, fn); err != nil {
			return err
		}
	}
	fn.Blank()
	fn.Line("// check for quit (typically the Esc key)")
	quit := fn.OpenClosed("if (psychoJS.experiment.experimentEnded || psychoJS.eventManager.getKeys({keyList:['escape']}).length > 0) {", "}")
	quit.Line("return quitPsychoJS('The [Escape] key was pressed. Goodbye!', false);")
	fn.Blank()
	fn.Line("// check if the Routine should terminate")
	done := fn.OpenClosed("if (!continueRoutine) {  // a component has requested a forced-end of Routine", "}")
	done.Line("return Scheduler.Event.NEXT;")
	fn.Blank()
	fn.Line("continueRoutine = false;  // reverts to True if at least one component still running")
	if ectx.Modular {
		each := fn.Open(fmt.Sprintf("for (const thisComponent of %sComponents)", name))
		cond := each.OpenClosed("if ('status' in thisComponent && thisComponent.status !== PsychoJS.Status.FINISHED) {", "}")
		cond.Line("continueRoutine = true;")
		cond.Line("break;")
	} else {
		each := fn.OpenClosed(fmt.Sprintf("%sComponents.forEach( function(thisComponent) {", name), "});")
		cond := each.OpenClosed("if ('status' in thisComponent && thisComponent.status !== PsychoJS.Status.FINISHED) {", "}")
		cond.Line("continueRoutine = true;")
	}
	fn.Blank()
	fn.Line("// refresh the screen if continuing")
	var cont *codegen.Block
	if nonSlip {
		cont = fn.OpenClosed("if (continueRoutine && routineTimer.getTime() > 0) {", "} else {")
	} else {
		cont = fn.OpenClosed("if (continueRoutine) {", "} else {")
	}
	cont.Line("return Scheduler.Event.FLIP_REPEAT;")
	next := fn.Child()
	next.Line("return Scheduler.Event.NEXT;")
	fn.Line("}")
	return nil
}

func (c *Compiler) writeRoutineEndJS(ectx *component.EmitContext, r *experiment.Routine, b *codegen.Block) error {
	name := r.Name()
	_, nonSlip := r.GetMaxTime()
	active, err := c.activeComponents(ectx, r)
	if err != nil {
		return err
	}

	b.Blank()
	outer := b.OpenClosed(fmt.Sprintf("function %sRoutineEnd(snapshot) {", name), "}")
	fn := outer.OpenClosed("return function () {", "};")
	fn.Linef("//------Ending Routine '%s'-------", name)
	if ectx.Modular {
		each := fn.OpenClosed(fmt.Sprintf("for (const thisComponent of %sComponents) {", name), "}")
		cond := each.OpenClosed("if (typeof thisComponent.setAutoDraw === 'function') {", "}")
		cond.Line("thisComponent.setAutoDraw(false);")
	} else {
		each := fn.OpenClosed(fmt.Sprintf("%sComponents.forEach( function(thisComponent) {", name), "});")
		cond := each.OpenClosed("if (typeof thisComponent.setAutoDraw === 'function') {", "}")
		cond.Line("thisComponent.setAutoDraw(false);")
	}
	for _, comp := range active {
		em, _, err := c.emitterFor(comp, ectx.Dialect)
		if err != nil {
			return err
		}
		if err := em.WriteRoutineEndCode(ectx, comp, fn); err != nil {
			return err
		}
	}
	if !nonSlip {
		fn.Linef(`// the Routine "%s" was not non-slip safe, so reset the non-slip timer`, name)
		fn.Line("routineTimer.reset();")
		fn.Blank()
	}
	fn.Line("return Scheduler.Event.NEXT;")
	return nil
}

// writeJSHelpers writes the shared scheduler helpers and the quit
// function, which also hosts every component's end-of-experiment code.
func (c *Compiler) writeJSHelpers(ectx *component.EmitContext, exp *experiment.Experiment, b *codegen.Block, ee component.ExperimentEmitter, settings *component.Component) error {
	b.Blank()
	endIter := b.OpenClosed("function endLoopIteration(scheduler, snapshot) {", "}")
	endIter.Line("// ------Prepare for next entry------")
	ret := endIter.OpenClosed("return function () {", "};")
	defined := ret.OpenClosed("if (typeof snapshot !== 'undefined') {", "}")
	defined.Line("// ------Check if user ended loop early------")
	finished := defined.OpenClosed("if (snapshot.finished) {", "} else {")
	finished.Line("// Check for and save orphaned data")
	empty := finished.OpenClosed("if (psychoJS.experiment.isEntryEmpty()) {", "}")
	empty.Line("psychoJS.experiment.nextEntry(snapshot);")
	finished.Line("scheduler.stop();")
	els := defined.Child()
	els.Line("const thisTrial = snapshot.getCurrentTrial();")
	isTrials := els.OpenClosed("if (typeof thisTrial === 'undefined' || !('isTrials' in thisTrial) || thisTrial.isTrials) {", "}")
	isTrials.Line("psychoJS.experiment.nextEntry(snapshot);")
	defined.Line("}")
	ret.Line("return Scheduler.Event.NEXT;")

	b.Blank()
	imp := b.OpenClosed("function importConditions(currentLoop) {", "}")
	impRet := imp.OpenClosed("return function () {", "};")
	impRet.Line("psychoJS.importAttributes(currentLoop.getCurrentTrial());")
	impRet.Line("return Scheduler.Event.NEXT;")

	b.Blank()
	quit := b.OpenClosed("function quitPsychoJS(message, isCompleted) {", "}")
	quit.Line("// Check for and save orphaned data")
	orphan := quit.OpenClosed("if (psychoJS.experiment.isEntryEmpty()) {", "}")
	orphan.Line("psychoJS.experiment.nextEntry();")
	if err := c.writeExperimentEnd(ectx, exp, quit); err != nil {
		return err
	}
	return ee.WriteEndCode(ectx, settings, quit)
}
