// Package serialout implements the serial-output kind and the "serial"
// device backend class it sends through. It writes a configurable
// message to a serial port at its start and stop points, and closes the
// port when the experiment ends. The web target has no serial access, so
// the kind is native-only and contributes nothing to web builds.
package serialout

import (
	"github.com/vk/expflowgo/internal/codegen"
	"github.com/vk/expflowgo/internal/component"
	"github.com/vk/expflowgo/internal/device"
	"github.com/vk/expflowgo/internal/param"
	"github.com/vk/expflowgo/internal/registry"
)

const (
	Type = "serialout"
	// DeviceClass is the backend class this kind sends through.
	DeviceClass = "serial"
)

type Module struct{}

// Register implements registry.Module.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterComponent(&registry.Definition{
		Type:    Type,
		Targets: component.PythonOnly(),
		New:     New,
		Emitter: &emitter{},
	})
	r.Devices.RegisterClass(DeviceClass, &serialEmitter{})
}

// New builds a serial-output component with defaults.
func New(name string) *component.Component {
	c := component.NewBase(Type, name)
	c.Params["deviceLabel"] = param.New("", param.Str)
	c.Params["startData"] = param.New("1", param.Str)
	c.Params["stopData"] = param.New("0", param.Str)
	c.Params["getResponse"] = param.NewBool(false)
	c.Params["syncScreenRefresh"] = param.NewBool(true)
	c.Order = append(c.Order, "deviceLabel", "startData", "stopData", "getResponse")
	return c
}

type emitter struct {
	component.BaseEmitter
}

func (e *emitter) WriteInitCode(ctx *component.EmitContext, c *component.Component, b *codegen.Block) error {
	name := c.Name()
	label := c.Params["deviceLabel"].Render(ctx.Dialect)
	b.Blank()
	b.Linef("# point %s to device named %s and make sure it's open", name, label)
	b.Linef("%s = deviceManager.getDevice(%s)", name, label)
	b.Linef("%s.status = NOT_STARTED", name)
	closed := b.Openf("if not %s.com.is_open:", name)
	closed.Linef("%s.com.open()", name)
	return nil
}

func (e *emitter) WriteFrameCode(ctx *component.EmitContext, c *component.Component, b *codegen.Block) error {
	name := c.Name()
	target := ctx.DataTarget()
	sync := c.Params["syncScreenRefresh"].AsBool()

	started, err := component.WriteStartTest(ctx, c, b)
	if err != nil {
		return err
	}
	startData := c.Params["startData"].Render(ctx.Dialect)
	if sync {
		started.Linef("win.callOnFlip(%s.sendMessage, %s)", name, startData)
	} else {
		started.Linef("%s.sendMessage(%s)", name, startData)
	}
	started.Linef("%s.addData('%s.startData', %s)", target, name, startData)
	started.Linef("%s.status = STARTED", name)
	if c.Params["getResponse"].AsBool() {
		started.Linef("%s.addData('%s.startResp', %s.getResponse())", target, name, name)
	}

	if !c.HasStopPoint() {
		return nil
	}
	stopped, err := component.WriteStopTest(ctx, c, b)
	if err != nil {
		return err
	}
	stopData := c.Params["stopData"].Render(ctx.Dialect)
	if sync {
		stopped.Linef("win.callOnFlip(%s.sendMessage, %s)", name, stopData)
	} else {
		stopped.Linef("%s.sendMessage(%s)", name, stopData)
	}
	stopped.Linef("%s.addData('%s.stopData', %s)", target, name, stopData)
	stopped.Linef("%s.status = FINISHED", name)
	if c.Params["getResponse"].AsBool() {
		stopped.Linef("%s.addData('%s.stopResp', %s.getResponse())", target, name, name)
	}
	return nil
}

func (e *emitter) WriteExperimentEndCode(ctx *component.EmitContext, c *component.Component, b *codegen.Block) error {
	name := c.Name()
	b.Linef("# close %s", name)
	open := b.Openf("if %s.com.is_open:", name)
	open.Linef("%s.com.close()", name)
	return nil
}

// serialEmitter writes the one-time deviceManager setup for a configured
// serial port.
type serialEmitter struct{}

func (serialEmitter) WriteDeviceCode(ctx *component.EmitContext, dev *device.Backend, blk *codegen.Block) error {
	d := ctx.Dialect
	blk.Linef("# create serial device '%s'", dev.Label)
	blk.Line("deviceManager.addDevice(")
	args := blk.Child()
	args.Linef("deviceName='%s',", dev.Label)
	args.Line("deviceClass='psychopy.hardware.serialdevice.SerialDevice',")
	for _, key := range []string{"port", "baudrate", "byteSize", "stopBits", "parity"} {
		if p, ok := dev.Params[key]; ok && !p.IsEmpty() {
			args.Linef("%s=%s,", key, p.Render(d))
		}
	}
	if timeout, ok := dev.Params["timeout"]; ok && !timeout.IsEmpty() {
		args.Linef("pauseDuration=%s / 3,", timeout.Render(d))
	}
	blk.Line(")")
	return nil
}
