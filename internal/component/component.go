// Package component defines the experiment-element node: a typed bag of
// params plus a capability set, with code emission dispatched through a
// per-kind Emitter strategy rather than inheritance. Shared emission
// helpers (start/stop guards, per-policy param updates) live here so the
// kind packages under components/ stay small.
package component

import (
	"github.com/vk/expflowgo/internal/dialect"
	"github.com/vk/expflowgo/internal/param"
	"github.com/zclconf/go-cty/cty"
)

// TargetSet is the set of script targets a component kind can emit for.
type TargetSet map[string]bool

// BothTargets is the common case of a kind supporting both runtimes.
func BothTargets() TargetSet {
	return TargetSet{dialect.PsychoPy: true, dialect.PsychoJS: true}
}

// PythonOnly marks kinds with no web-runtime equivalent (e.g. serial I/O).
func PythonOnly() TargetSet {
	return TargetSet{dialect.PsychoPy: true}
}

// Supports reports whether the set includes the dialect's target.
func (t TargetSet) Supports(d dialect.Dialect) bool {
	return t[d.Name]
}

// DependencyRule describes conditional enable/disable/show/hide of one
// param based on another's value. It is a property-editor concern but is
// stored on the component so the graph round-trips it.
type DependencyRule struct {
	DependsOn string
	Condition string
	Param     string
	True      string
	False     string
}

// Component is one experiment element. It is owned exclusively by its
// containing routine; the zero value is not usable, construct through a
// registry definition.
type Component struct {
	Type    string
	Params  param.Map
	Order   []string
	Depends []DependencyRule
	Targets TargetSet
}

// NewBase builds a component carrying the params every kind shares: name,
// start/stop definition, timing estimates, data-saving switches and the
// disabled flag.
func NewBase(typ, name string) *Component {
	c := &Component{
		Type:    typ,
		Params:  param.Map{},
		Targets: BothTargets(),
		Order: []string{
			"name", "startVal", "startEstim", "startType",
			"stopVal", "durationEstim", "stopType",
		},
	}
	c.Params["name"] = &param.Param{
		Val: cty.StringVal(name), ValType: param.Code, Updates: param.Constant,
		Categ: "Basic", Label: "Name",
		Hint: "Name of this component (alphanumeric or _, no spaces)",
	}
	c.Params["startType"] = &param.Param{
		Val: cty.StringVal("time (s)"), ValType: param.Str, Updates: param.Constant,
		AllowedVals: []string{"time (s)", "frame N", "condition"},
		Categ:       "Basic", Label: "Start type",
	}
	c.Params["stopType"] = &param.Param{
		Val: cty.StringVal("duration (s)"), ValType: param.Str, Updates: param.Constant,
		AllowedVals: []string{"duration (s)", "duration (frames)", "time (s)", "frame N", "condition"},
		Categ:       "Basic", Label: "Stop type",
	}
	c.Params["startVal"] = param.New("", param.Code)
	c.Params["stopVal"] = param.New("", param.Code)
	c.Params["startEstim"] = param.New("", param.Code)
	c.Params["durationEstim"] = param.New("", param.Code)
	c.Params["saveStartStop"] = param.NewBool(true)
	c.Params["saveStartStop"].Categ = "Data"
	c.Params["syncScreenRefresh"] = param.NewBool(false)
	c.Params["syncScreenRefresh"].Categ = "Data"
	c.Params["disabled"] = param.NewBool(false)
	c.Params["disabled"].Categ = "Testing"
	return c
}

// Name returns the component's instance name.
func (c *Component) Name() string {
	return c.Params["name"].RawString()
}

// SetName renames the component. Namespace bookkeeping is the caller's
// job.
func (c *Component) SetName(name string) {
	c.Params["name"].Set(cty.StringVal(name))
}

// Disabled reports whether the component is excluded from compilation.
func (c *Component) Disabled() bool {
	p, ok := c.Params["disabled"]
	return ok && p.AsBool()
}

// DeviceLabel returns the referenced device label for device-backed
// components, and whether one is set.
func (c *Component) DeviceLabel() (string, bool) {
	p, ok := c.Params["deviceLabel"]
	if !ok || p.IsEmpty() {
		return "", false
	}
	return p.RawString(), true
}

// Copy returns a deep duplicate of the component.
func (c *Component) Copy() *Component {
	dup := &Component{
		Type:    c.Type,
		Params:  c.Params.Copy(),
		Order:   append([]string(nil), c.Order...),
		Depends: append([]DependencyRule(nil), c.Depends...),
		Targets: make(TargetSet, len(c.Targets)),
	}
	for k, v := range c.Targets {
		dup.Targets[k] = v
	}
	return dup
}

// NeedsUpdate reports whether any param carries the given update policy.
func (c *Component) NeedsUpdate(policy param.UpdatePolicy) bool {
	for _, p := range c.Params {
		if p.Updates == policy {
			return true
		}
	}
	return false
}
