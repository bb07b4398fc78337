// Package param defines the typed, named configuration values attached to
// experiment components, and their rendering into target-language literal
// text. Values are carried as cty.Value so the HCL loader can hand them
// over without conversion; rendering is a pure function of the value type
// and the target dialect.
package param

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// ValType tags how a parameter value is interpreted when emitted.
type ValType string

const (
	Str          ValType = "str"
	ExtendedStr  ValType = "extendedStr"
	Code         ValType = "code"
	ExtendedCode ValType = "extendedCode"
	Bool         ValType = "bool"
	Num          ValType = "num"
	Int          ValType = "int"
	List         ValType = "list"
	Color        ValType = "color"
	File         ValType = "file"
)

// UpdatePolicy tags how often a parameter value is re-applied at runtime.
type UpdatePolicy string

const (
	Constant    UpdatePolicy = "constant"
	EveryRepeat UpdatePolicy = "set every repeat"
	EveryFrame  UpdatePolicy = "set every frame"
)

// Param is one named, typed configuration value on a component or device
// backend. Params are created with defaults when the component is built,
// overwritten by the loader or by graph-editing code, and read-only during
// compilation.
type Param struct {
	Val     cty.Value
	ValType ValType
	Updates UpdatePolicy

	AllowedVals    []string
	AllowedUpdates []UpdatePolicy
	Categ          string
	Label          string
	Hint           string
}

// New creates a param with a string payload. Most defaults are authored as
// strings regardless of ValType; numeric payloads use NewNum.
func New(val string, vt ValType) *Param {
	return &Param{Val: cty.StringVal(val), ValType: vt, Updates: Constant, Categ: "Basic"}
}

// NewBool creates a bool-typed param.
func NewBool(val bool) *Param {
	return &Param{Val: cty.BoolVal(val), ValType: Bool, Updates: Constant, Categ: "Basic"}
}

// NewNum creates a num-typed param from a float payload.
func NewNum(val float64) *Param {
	return &Param{Val: cty.NumberFloatVal(val), ValType: Num, Updates: Constant, Categ: "Basic"}
}

// Copy returns a deep, independent duplicate. Component templates are
// instantiated through Copy so later edits never touch the template.
func (p *Param) Copy() *Param {
	dup := *p
	// cty.Value is immutable, only the slices need cloning.
	dup.AllowedVals = append([]string(nil), p.AllowedVals...)
	dup.AllowedUpdates = append([]UpdatePolicy(nil), p.AllowedUpdates...)
	return &dup
}

// Set replaces the value, keeping type and metadata.
func (p *Param) Set(val cty.Value) {
	p.Val = val
}

// RawString returns the underlying string payload, or the string the value
// naively formats to for non-string payloads.
func (p *Param) RawString() string {
	if p.Val.IsNull() {
		return ""
	}
	if p.Val.Type() == cty.String {
		return p.Val.AsString()
	}
	if p.Val.Type() == cty.Bool {
		if p.Val.True() {
			return "True"
		}
		return "False"
	}
	if p.Val.Type() == cty.Number {
		f, _ := p.Val.AsBigFloat().Float64()
		return trimFloat(f)
	}
	return p.Val.GoString()
}

// IsEmpty reports whether the value is blank in the "no stop point set"
// sense: null, the empty string, "None" or -1.
func (p *Param) IsEmpty() bool {
	if p.Val.IsNull() {
		return true
	}
	switch p.Val.Type() {
	case cty.String:
		s := p.Val.AsString()
		return s == "" || s == "None" || s == "-1"
	case cty.Number:
		f, _ := p.Val.AsBigFloat().Float64()
		return f == -1
	}
	return false
}

// AsFloat returns the value as a float where it is statically numeric.
func (p *Param) AsFloat() (float64, bool) {
	if p.Val.IsNull() {
		return 0, false
	}
	switch p.Val.Type() {
	case cty.Number:
		f, _ := p.Val.AsBigFloat().Float64()
		return f, true
	case cty.String:
		var f float64
		if _, err := fmt.Sscanf(p.Val.AsString(), "%g", &f); err == nil {
			return f, true
		}
	}
	return 0, false
}

// AsBool returns the truthiness of the value.
func (p *Param) AsBool() bool {
	if p.Val.IsNull() {
		return false
	}
	switch p.Val.Type() {
	case cty.Bool:
		return p.Val.True()
	case cty.String:
		s := p.Val.AsString()
		return s == "True" || s == "true" || s == "1"
	case cty.Number:
		f, _ := p.Val.AsBigFloat().Float64()
		return f != 0
	}
	return false
}

// Map is the parameter collection of one component or device backend.
type Map map[string]*Param

// Copy deep-copies the map.
func (m Map) Copy() Map {
	dup := make(Map, len(m))
	for k, v := range m {
		dup[k] = v.Copy()
	}
	return dup
}
