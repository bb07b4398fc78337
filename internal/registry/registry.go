// Package registry holds the component-kind definitions compiled into
// the binary. Kinds register themselves through the Module interface at
// startup; there is no global mutable registration state, the registry
// instance is constructed and passed explicitly.
package registry

import (
	"fmt"
	"log/slog"

	"github.com/vk/expflowgo/internal/component"
	"github.com/vk/expflowgo/internal/device"
)

// Definition describes one component kind: how to build a fresh instance
// with default params, which targets it can emit for, and its emitter
// strategy.
type Definition struct {
	Type string
	// Targets is the capability set; a pass for an unsupported target
	// skips the component entirely.
	Targets component.TargetSet
	// New builds an instance with default params under the given name.
	New func(name string) *component.Component
	// Emitter writes the component's lifecycle code.
	Emitter component.Emitter
}

// Registry is the set of known component kinds plus the device registry.
type Registry struct {
	components map[string]*Definition
	// Devices holds configured device instances and backend-class
	// emitters; populated by the device config loader.
	Devices *device.Registry
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		components: make(map[string]*Definition),
		Devices:    device.NewRegistry(),
	}
}

// RegisterComponent adds a kind definition. Registering the same type
// twice is a programmer error.
func (r *Registry) RegisterComponent(def *Definition) {
	if _, exists := r.components[def.Type]; exists {
		panic(fmt.Sprintf("component kind %q already registered", def.Type))
	}
	slog.Debug("Registering component kind.", "type", def.Type)
	r.components[def.Type] = def
}

// Component returns the definition for a kind.
func (r *Registry) Component(typ string) (*Definition, bool) {
	def, ok := r.components[typ]
	return def, ok
}

// NewComponent builds a fresh instance of the kind with default params.
func (r *Registry) NewComponent(typ, name string) (*component.Component, error) {
	def, ok := r.components[typ]
	if !ok {
		return nil, fmt.Errorf("unknown component kind %q", typ)
	}
	return def.New(name), nil
}

// Module is implemented by each component-kind package; Register wires
// the kind (and any device backend classes it brings) into the registry.
type Module interface {
	Register(r *Registry)
}
