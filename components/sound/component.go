// Package sound implements the audio stimulus kind and the "speaker"
// device backend class it plays through. A sound references its output
// device by label; the configured speaker is set up once per script no
// matter how many sounds share it.
package sound

import (
	"fmt"

	"github.com/vk/expflowgo/internal/codegen"
	"github.com/vk/expflowgo/internal/component"
	"github.com/vk/expflowgo/internal/device"
	"github.com/vk/expflowgo/internal/param"
	"github.com/vk/expflowgo/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

const (
	Type = "sound"
	// DeviceClass is the backend class sounds play through.
	DeviceClass = "speaker"
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
	r.Devices.RegisterClass(DeviceClass, &speakerEmitter{})
}

// New builds a sound component with defaults.
func New(name string) *component.Component {
	c := component.NewBase(Type, name)
	c.Params["sound"] = param.New("A", param.Str)
	c.Params["sound"].AllowedUpdates = []param.UpdatePolicy{param.Constant, param.EveryRepeat}
	c.Params["volume"] = param.NewNum(1)
	c.Params["hamming"] = param.NewBool(true)
	c.Params["deviceLabel"] = param.New("", param.Str)
	c.Params["stopVal"].Set(cty.StringVal("1.0"))
	c.Params["syncScreenRefresh"] = param.NewBool(true)
	c.Order = append(c.Order, "sound", "volume", "deviceLabel")
	return c
}

type emitter struct {
	component.BaseEmitter
}

// initSecs mirrors the runtime quirk that long or variable durations are
// left for setSound to decide: anything above 2s or non-numeric becomes -1.
func initSecs(c *component.Component) string {
	p := c.Params["stopVal"]
	if p.IsEmpty() {
		return "-1"
	}
	if secs, ok := p.AsFloat(); ok && secs <= 2 {
		return p.RawString()
	}
	return "-1"
}

func (e *emitter) WriteInitCode(ctx *component.EmitContext, c *component.Component, b *codegen.Block) error {
	d := ctx.Dialect
	name := c.Name()
	if d.IsJS() {
		b.Linef("%s = new sound.Sound({", name)
		args := b.Child()
		args.Line("win: psychoJS.window,")
		args.Linef("value: %s,", c.Params["sound"].Render(d))
		args.Linef("secs: %s,", initSecs(c))
		args.Line("});")
		b.Linef("%s.setVolume(%s);", name, c.Params["volume"].Render(d))
		return nil
	}
	b.Linef("%s = sound.Sound(%s, secs=%s, hamming=%s,", name,
		c.Params["sound"].Render(d), initSecs(c), d.Bool(c.Params["hamming"].AsBool()))
	b.Linef("    name='%s', speaker=%s)", name, c.Params["deviceLabel"].Render(d))
	b.Linef("%s.setVolume(%s)", name, c.Params["volume"].Render(d))
	return nil
}

func (e *emitter) WriteRoutineStartCode(ctx *component.EmitContext, c *component.Component, b *codegen.Block) error {
	d := ctx.Dialect
	name := c.Name()
	if d.IsJS() {
		if c.HasStopPoint() {
			b.Linef("%s.secs=%s;", name, c.Params["stopVal"].Render(d))
		}
		b.Linef("%s.setVolume(%s);", name, c.Params["volume"].Render(d))
		return nil
	}
	if c.HasStopPoint() {
		b.Linef("%s.setSound(%s, secs=%s, hamming=%s)", name,
			c.Params["sound"].Render(d), c.Params["stopVal"].Render(d),
			d.Bool(c.Params["hamming"].AsBool()))
	} else {
		b.Linef("%s.setSound(%s, hamming=%s)", name,
			c.Params["sound"].Render(d), d.Bool(c.Params["hamming"].AsBool()))
	}
	b.Linef("%s.setVolume(%s, log=False)", name, c.Params["volume"].Render(d))
	return nil
}

func (e *emitter) WriteFrameCode(ctx *component.EmitContext, c *component.Component, b *codegen.Block) error {
	d := ctx.Dialect
	name := c.Name()
	b.Blank()
	b.Linef("%sstart/stop %s", d.Comment, name)
	component.WriteParamUpdates(ctx, c, b, param.EveryFrame)
	started, err := component.WriteStartTest(ctx, c, b)
	if err != nil {
		return err
	}
	if d.IsJS() {
		if c.Params["syncScreenRefresh"].AsBool() {
			started.Linef("psychoJS.window.callOnFlip(function(){ %s.play(); });  // screen flip", name)
		} else {
			started.Linef("%s.play();  // start the sound (it finishes automatically)", name)
		}
		started.Linef("%s.status = PsychoJS.Status.STARTED;", name)
	} else {
		if c.Params["syncScreenRefresh"].AsBool() {
			started.Linef("%s.play(when=win)  # sync with win flip", name)
		} else {
			started.Linef("%s.play()  # start the sound (it finishes automatically)", name)
		}
	}
	if c.HasStopPoint() {
		stopped, err := component.WriteStopTest(ctx, c, b)
		if err != nil {
			return err
		}
		if d.IsJS() {
			over := stopped.OpenClosed(fmt.Sprintf("if (%s > 0.5) {", c.Params["stopVal"].Render(d)), "}")
			over.Linef("%s.stop();  // stop the sound (if longer than duration)", name)
			stopped.Linef("%s.status = PsychoJS.Status.FINISHED;", name)
		} else {
			stopped.Linef("%s.stop()", name)
		}
	}
	return nil
}

func (e *emitter) WriteRoutineEndCode(ctx *component.EmitContext, c *component.Component, b *codegen.Block) error {
	if ctx.Dialect.IsJS() {
		b.Linef("%s.stop();  // ensure sound has stopped at end of routine", c.Name())
		return nil
	}
	b.Linef("%s.stop()  # ensure sound has stopped at end of routine", c.Name())
	return nil
}

// speakerEmitter writes the one-time deviceManager setup for a configured
// speaker.
type speakerEmitter struct{}

func (speakerEmitter) WriteDeviceCode(ctx *component.EmitContext, dev *device.Backend, blk *codegen.Block) error {
	d := ctx.Dialect
	if d.IsJS() {
		// the web runtime routes audio through the browser; nothing to set up
		blk.Linef("// speaker '%s' is managed by the browser", dev.Label)
		return nil
	}
	blk.Linef("# create speaker '%s'", dev.Label)
	blk.Line("deviceManager.addDevice(")
	args := blk.Child()
	args.Line("deviceName='" + dev.Label + "',")
	args.Line("deviceClass='psychopy.hardware.speaker.SpeakerDevice',")
	if idx, ok := dev.Params["index"]; ok && !idx.IsEmpty() {
		args.Linef("index=%s,", idx.Render(d))
	}
	blk.Line(")")
	return nil
}
