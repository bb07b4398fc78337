package loader

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/expflowgo/internal/ctxlog"
	"github.com/vk/expflowgo/internal/device"
	"github.com/vk/expflowgo/internal/param"
	"github.com/zclconf/go-cty/cty"
)

var devicesSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "device", LabelNames: []string{"class", "label"}},
	},
}

// LoadDevices reads a device configuration file into the registry's
// device table. Each device block configures one instance of a backend
// class under a label components reference.
func (ld *Loader) LoadDevices(ctx context.Context, path string) error {
	log := ctxlog.FromContext(ctx)
	body, err := parseFile(path)
	if err != nil {
		return err
	}
	content, diags := body.Content(devicesSchema)
	if diags.HasErrors() {
		return fmt.Errorf("%s: %w", path, diags)
	}
	for _, block := range content.Blocks {
		backend := &device.Backend{
			DeviceClass: block.Labels[0],
			Label:       block.Labels[1],
			Params:      param.Map{},
		}
		attrs, diags := block.Body.JustAttributes()
		if diags.HasErrors() {
			return fmt.Errorf("device %q: %w", backend.Label, diags)
		}
		for key, attr := range attrs {
			val, diags := attr.Expr.Value(nil)
			if diags.HasErrors() {
				return fmt.Errorf("device %q: param %q: %w", backend.Label, key, diags)
			}
			backend.Params[key] = &param.Param{Val: val, ValType: valTypeFor(val), Updates: param.Constant}
		}
		if err := ld.reg.Devices.AddDevice(backend); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		log.Debug("Configured device.", "class", backend.DeviceClass, "label", backend.Label)
	}
	return nil
}

func valTypeFor(val cty.Value) param.ValType {
	if val.IsNull() {
		return param.Str
	}
	switch val.Type() {
	case cty.Bool:
		return param.Bool
	case cty.Number:
		return param.Num
	default:
		return param.Str
	}
}
