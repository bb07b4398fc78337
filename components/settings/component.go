// Package settings implements the experiment-level settings
// pseudo-component. It owns the generated script's preamble (imports,
// session info, data handler, window creation) and its teardown (saving
// data, closing the window), and is attached to the experiment rather
// than to a routine.
package settings

import (
	"github.com/vk/expflowgo/internal/codegen"
	"github.com/vk/expflowgo/internal/component"
	"github.com/vk/expflowgo/internal/param"
	"github.com/vk/expflowgo/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Type is the registered kind name.
const Type = "settings"

// Module wires the kind into the registry.
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

// New builds the settings pseudo-component with defaults.
func New(name string) *component.Component {
	c := component.NewBase(Type, name)
	// settings have no timeline of their own
	delete(c.Params, "startType")
	delete(c.Params, "startVal")
	delete(c.Params, "startEstim")
	delete(c.Params, "stopType")
	delete(c.Params, "stopVal")
	delete(c.Params, "durationEstim")
	delete(c.Params, "saveStartStop")
	delete(c.Params, "syncScreenRefresh")

	c.Params["fullScreen"] = param.NewBool(true)
	c.Params["winSize"] = &param.Param{
		Val:     cty.TupleVal([]cty.Value{cty.NumberIntVal(1024), cty.NumberIntVal(768)}),
		ValType: param.List, Updates: param.Constant, Categ: "Screen",
	}
	c.Params["units"] = param.New("height", param.Str)
	c.Params["colorBackground"] = param.New("black", param.Color)
	c.Params["sessionFields"] = &param.Param{
		Val:     cty.TupleVal([]cty.Value{cty.StringVal("participant"), cty.StringVal("session")}),
		ValType: param.List, Updates: param.Constant, Categ: "Basic",
	}
	c.Params["dataFilename"] = param.New(
		"u'data/%s_%s' % (expInfo['participant'], expName)", param.Code)
	c.Params["saveWideCSV"] = param.NewBool(true)
	c.Params["saveLogFile"] = param.NewBool(true)
	c.Params["useVersion"] = param.New("", param.Str)
	c.Order = []string{"name", "sessionFields", "fullScreen", "winSize", "units", "colorBackground"}
	return c
}

type emitter struct {
	component.BaseEmitter
}

// WriteStartCode emits the preamble: imports, session info, the data
// handler and the window.
func (e *emitter) WriteStartCode(ctx *component.EmitContext, c *component.Component, b *codegen.Block) error {
	if ctx.Dialect.IsJS() {
		return e.writeStartCodeJS(ctx, c, b)
	}

	b.Line("#!/usr/bin/env python")
	b.Line("# -*- coding: utf-8 -*-")
	b.Linef(`"""Experiment '%s', generated by expflowgo."""`, ctx.ExpName)
	b.Blank()
	b.Lines(`from psychopy import core, data, event, gui, logging, sound, visual, hardware
from psychopy.hardware import keyboard
from psychopy.constants import (NOT_STARTED, STARTED, FINISHED, PRESSED,
                                RELEASED, FOREVER)

import numpy as np
import os  # handy system and path functions
import sys  # to get file system encoding`)
	b.Blank()
	b.Line("# --- Setup session info ---")
	b.Linef("expName = '%s'", ctx.ExpName)
	b.Line("expInfo = {")
	fields := b.Child()
	if p, ok := c.Params["sessionFields"]; ok && !p.Val.IsNull() {
		for it := p.Val.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			fields.Linef("'%s': '',", ev.AsString())
		}
	}
	b.Line("}")
	b.Line("dlg = gui.DlgFromDict(dictionary=expInfo, sortKeys=False, title=expName)")
	quit := b.Open("if dlg.OK == False:")
	quit.Line("core.quit()  # user pressed cancel")
	b.Line("expInfo['date'] = data.getDateStr()  # add a simple timestamp")
	b.Line("expInfo['expName'] = expName")
	b.Blank()
	b.Line("# --- Setup data handler ---")
	b.Linef("filename = %s + '_' + expInfo['date']", c.Params["dataFilename"].Render(ctx.Dialect))
	b.Lines(`thisExp = data.ExperimentHandler(name=expName, extraInfo=expInfo,
    originPath=-1, savePickle=True, saveWideText=True,
    dataFileName=filename)`)
	if c.Params["saveLogFile"].AsBool() {
		b.Line("logFile = logging.LogFile(filename + '.log', level=logging.EXP)")
	}
	b.Line("logging.console.setLevel(logging.WARNING)")
	b.Blank()
	b.Line("endExpNow = False  # flag for 'escape' or other condition => quit the exp")
	b.Line("frameTolerance = 0.001  # how close to onset before 'same' frame")
	b.Blank()
	b.Line("# --- Setup the window ---")
	b.Linef("win = visual.Window(")
	winArgs := b.Child()
	winArgs.Linef("size=%s, fullscr=%s, screen=0,",
		c.Params["winSize"].Render(ctx.Dialect), ctx.Dialect.Bool(c.Params["fullScreen"].AsBool()))
	winArgs.Linef("color=%s, colorSpace='rgb',", c.Params["colorBackground"].Render(ctx.Dialect))
	winArgs.Linef("units=%s)", c.Params["units"].Render(ctx.Dialect))
	b.Lines(`expInfo['frameRate'] = win.getActualFrameRate()
defaultKeyboard = keyboard.Keyboard()
globalClock = core.Clock()  # to track the time since experiment started
routineTimer = core.CountdownTimer()  # to track time remaining of each (non-slip) routine`)
	b.Blank()
	return nil
}

func (e *emitter) writeStartCodeJS(ctx *component.EmitContext, c *component.Component, b *codegen.Block) error {
	b.Linef("/*************** %s ***************/", ctx.ExpName)
	b.Blank()
	if ctx.Modular {
		b.Lines(`import { core, data, sound, util, visual } from './lib/psychojs.js';
const { PsychoJS, TrialHandler } = data === undefined ? core : { PsychoJS: core.PsychoJS, TrialHandler: data.TrialHandler };
const { Scheduler } = util;`)
	} else {
		b.Line("// legacy-browsers build: PsychoJS is loaded as a global")
		b.Lines(`const { PsychoJS } = core;
const { TrialHandler } = data;
const { Scheduler } = util;`)
	}
	b.Blank()
	b.Line("// store info about the experiment session:")
	b.Linef("let expName = '%s';", ctx.ExpName)
	b.Line("let expInfo = {};")
	if p, ok := c.Params["sessionFields"]; ok && !p.Val.IsNull() {
		for it := p.Val.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			b.Linef("expInfo['%s'] = '';", ev.AsString())
		}
	}
	b.Blank()
	b.Line("// init psychoJS:")
	b.Line("const psychoJS = new PsychoJS({ debug: true });")
	b.Blank()
	b.Line("// open window:")
	b.Line("psychoJS.openWindow({")
	winArgs := b.Child()
	winArgs.Linef("fullscr: %s,", ctx.Dialect.Bool(c.Params["fullScreen"].AsBool()))
	winArgs.Linef("color: new util.Color(%s),", c.Params["colorBackground"].Render(ctx.Dialect))
	winArgs.Linef("units: %s,", c.Params["units"].Render(ctx.Dialect))
	winArgs.Line("waitBlanking: true")
	b.Line("});")
	b.Blank()
	b.Lines(`let t;
let frameN;
let continueRoutine;
let routineTimer = new util.CountdownTimer();
let globalClock = new util.Clock();`)
	b.Blank()
	return nil
}

// WriteEndCode emits the teardown: flushing data, closing the window,
// quitting the runtime.
func (e *emitter) WriteEndCode(ctx *component.EmitContext, c *component.Component, b *codegen.Block) error {
	if ctx.Dialect.IsJS() {
		// written inside the quitPsychoJS function body
		b.Line("psychoJS.window.close();")
		b.Line("psychoJS.quit({message: message, isCompleted: isCompleted});")
		b.Blank()
		b.Line("return Scheduler.Event.QUIT;")
		return nil
	}
	b.Blank()
	b.Line("# --- End experiment ---")
	b.Line("win.flip()")
	if c.Params["saveWideCSV"].AsBool() {
		b.Line("thisExp.saveAsWideText(filename + '.csv', delim='auto')")
	}
	b.Line("thisExp.saveAsPickle(filename)")
	if c.Params["saveLogFile"].AsBool() {
		b.Line("logging.flush()")
	}
	b.Lines(`# make sure everything is closed down
thisExp.abort()  # or data files will save again on exit
win.close()
core.quit()`)
	return nil
}
