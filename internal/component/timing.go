package component

import (
	"fmt"
	"math"

	"github.com/vk/expflowgo/internal/codegen"
)

// Forever is the duration used for components with no stop point.
const Forever = math.MaxFloat64

// Start/stop definition kinds shared by every component.
const (
	StartTime      = "time (s)"
	StartFrame     = "frame N"
	StartCondition = "condition"

	StopDuration       = "duration (s)"
	StopDurationFrames = "duration (frames)"
	StopTime           = "time (s)"
	StopFrame          = "frame N"
	StopCondition      = "condition"
)

// WriteStartTest opens the guard that fires once when the component's
// start point is reached and returns the block for the "now started"
// body. The guard shape depends on the start type; the bookkeeping lines
// (start time/frame capture, optional data timestamps) are shared by all
// kinds.
func WriteStartTest(ctx *EmitContext, c *Component, b *codegen.Block) (*codegen.Block, error) {
	name := c.Name()
	startType := c.Params["startType"].RawString()
	start := c.Params["startVal"].Render(ctx.Dialect)
	if c.Params["startVal"].RawString() == "" && startType == StartTime {
		// blank start means "at t=0"
		start = "0.0"
	}

	var body *codegen.Block
	if ctx.Dialect.IsJS() {
		var header string
		switch startType {
		case StartTime:
			header = fmt.Sprintf("if (t >= %s && %s.status === PsychoJS.Status.NOT_STARTED) {", start, name)
		case StartFrame:
			header = fmt.Sprintf("if (frameN >= %s && %s.status === PsychoJS.Status.NOT_STARTED) {", start, name)
		case StartCondition:
			header = fmt.Sprintf("if ((%s) && %s.status === PsychoJS.Status.NOT_STARTED) {", start, name)
		default:
			return nil, fmt.Errorf("component %q: unknown start type %q", name, startType)
		}
		body = b.OpenClosed(header, "}")
		body.Line("// keep track of start time/frame for later")
		body.Linef("%s.tStart = t;  // (not accounting for frame time here)", name)
		body.Linef("%s.frameNStart = frameN;  // exact frame index", name)
		return body, nil
	}

	tVar := "t"
	if c.Params["syncScreenRefresh"].AsBool() {
		tVar = "tThisFlip"
	}
	var header string
	switch startType {
	case StartTime:
		header = fmt.Sprintf("if %s.status == NOT_STARTED and %s >= %s-frameTolerance:", name, tVar, start)
	case StartFrame:
		header = fmt.Sprintf("if %s.status == NOT_STARTED and frameN >= %s:", name, start)
	case StartCondition:
		header = fmt.Sprintf("if %s.status == NOT_STARTED and %s:", name, start)
	default:
		return nil, fmt.Errorf("component %q: unknown start type %q", name, startType)
	}
	body = b.Open(header)
	body.Line("# keep track of start time/frame for later")
	body.Linef("%s.frameNStart = frameN  # exact frame index", name)
	body.Linef("%s.tStart = t  # local t and not accounting for scr refresh", name)
	body.Linef("%s.tStartRefresh = tThisFlipGlobal  # on global time", name)
	body.Linef("win.timeOnFlip(%s, 'tStartRefresh')  # time at next scr refresh", name)
	if c.Params["saveStartStop"].AsBool() {
		body.Line("# add timestamp to datafile")
		if c.Params["syncScreenRefresh"].AsBool() {
			body.Linef("thisExp.timestampOnFlip(win, '%s.started')", name)
		} else {
			body.Linef("thisExp.addData('%s.started', t)", name)
		}
	}
	return body, nil
}

// WriteStopTest opens the guard that fires once when the component's stop
// point is reached and returns the block for the "now finished" body.
// Callers must only invoke it when a stop point is set
// (c.Params["stopVal"] non-empty).
func WriteStopTest(ctx *EmitContext, c *Component, b *codegen.Block) (*codegen.Block, error) {
	name := c.Name()
	stopType := c.Params["stopType"].RawString()
	stop := c.Params["stopVal"].Render(ctx.Dialect)

	if ctx.Dialect.IsJS() {
		var header string
		switch stopType {
		case StopTime:
			header = fmt.Sprintf("if (%s.status === PsychoJS.Status.STARTED && t >= %s) {", name, stop)
		case StopDuration:
			header = fmt.Sprintf("if (%s.status === PsychoJS.Status.STARTED && t >= (%s.tStart + %s)) {", name, name, stop)
		case StopDurationFrames:
			header = fmt.Sprintf("if (%s.status === PsychoJS.Status.STARTED && frameN >= (%s.frameNStart + %s)) {", name, name, stop)
		case StopFrame:
			header = fmt.Sprintf("if (%s.status === PsychoJS.Status.STARTED && frameN >= %s) {", name, stop)
		case StopCondition:
			header = fmt.Sprintf("if (%s.status === PsychoJS.Status.STARTED && Boolean(%s)) {", name, stop)
		default:
			return nil, fmt.Errorf("component %q: unknown stop type %q", name, stopType)
		}
		return b.OpenClosed(header, "}"), nil
	}

	outer := b.Openf("if %s.status == STARTED:", name)
	var header string
	switch stopType {
	case StopTime:
		outer.Line("# is it time to stop? (based on local clock)")
		header = fmt.Sprintf("if tThisFlip > %s-frameTolerance:", stop)
	case StopDuration:
		outer.Line("# is it time to stop? (based on global clock, using actual start)")
		header = fmt.Sprintf("if tThisFlipGlobal > %s.tStartRefresh + %s-frameTolerance:", name, stop)
	case StopDurationFrames:
		header = fmt.Sprintf("if frameN >= (%s.frameNStart + %s):", name, stop)
	case StopFrame:
		header = fmt.Sprintf("if frameN >= %s:", stop)
	case StopCondition:
		header = fmt.Sprintf("if bool(%s):", stop)
	default:
		return nil, fmt.Errorf("component %q: unknown stop type %q", name, stopType)
	}
	body := outer.Open(header)
	body.Line("# keep track of stop time/frame for later")
	body.Linef("%s.tStop = t  # not accounting for scr refresh", name)
	body.Linef("%s.frameNStop = frameN  # exact frame index", name)
	if c.Params["saveStartStop"].AsBool() {
		body.Line("# add timestamp to datafile")
		if c.Params["syncScreenRefresh"].AsBool() {
			body.Linef("thisExp.timestampOnFlip(win, '%s.stopped')", name)
		} else {
			body.Linef("thisExp.addData('%s.stopped', t)", name)
		}
	}
	return body, nil
}

// HasStopPoint reports whether the component sets any stop point at all;
// components without one run until the routine ends.
func (c *Component) HasStopPoint() bool {
	return !c.Params["stopVal"].IsEmpty()
}

// StartAndDuration deduces the statically-known start time and duration
// in seconds. nonSlip reports whether both ends are fixed numbers, which
// lets the routine run on a non-slip timer downstream.
func StartAndDuration(c *Component) (start, duration float64, nonSlip bool) {
	startType := c.Params["startType"].RawString()
	stopType := c.Params["stopType"].RawString()

	startNum, startOK := c.Params["startVal"].AsFloat()
	if est, ok := c.Params["startEstim"].AsFloat(); ok {
		start = est
	} else if startType == StartTime && startOK {
		start = startNum
	}

	stopNum, stopOK := c.Params["stopVal"].AsFloat()
	switch {
	case stopType == StopTime && stopOK:
		duration = stopNum - start
	case stopType == StopDuration && stopOK:
		duration = stopNum
	case !c.HasStopPoint():
		duration = Forever
	default:
		if est, ok := c.Params["durationEstim"].AsFloat(); ok {
			duration = est
		}
	}

	nonSlip = stopOK && (startOK || stopType == StopTime)
	return start, duration, nonSlip
}
