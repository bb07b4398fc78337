// Package device models hardware device backends: a Backend is one
// configured device instance (class + label + params), referenced from
// components by label through a deviceLabel param. The registry is an
// explicit object constructed at startup and handed to the compiler; the
// compiler consumes it but does not own it.
package device

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vk/expflowgo/internal/codegen"
	"github.com/vk/expflowgo/internal/component"
	"github.com/vk/expflowgo/internal/param"
)

// Backend is one configured device instance.
type Backend struct {
	// DeviceClass names the backend kind ("serial", "speaker").
	DeviceClass string
	// Label is the user-facing handle components reference.
	Label string
	Params param.Map
}

// Emitter writes the one-time device-registry setup code for a backend
// class. Called at most once per label per compile.
type Emitter interface {
	WriteDeviceCode(ctx *component.EmitContext, b *Backend, blk *codegen.Block) error
}

// Registry maps device classes to emitters and labels to configured
// instances.
type Registry struct {
	emitters  map[string]Emitter
	instances map[string]*Backend
}

// NewRegistry creates an empty device registry.
func NewRegistry() *Registry {
	return &Registry{
		emitters:  make(map[string]Emitter),
		instances: make(map[string]*Backend),
	}
}

// RegisterClass registers the emitter for a backend class. Duplicate
// registration is a programmer error.
func (r *Registry) RegisterClass(class string, e Emitter) {
	if _, exists := r.emitters[class]; exists {
		panic(fmt.Sprintf("device backend class %q already registered", class))
	}
	r.emitters[class] = e
}

// AddDevice registers a configured instance under its label.
func (r *Registry) AddDevice(b *Backend) error {
	if _, exists := r.instances[b.Label]; exists {
		return fmt.Errorf("device label %q configured twice", b.Label)
	}
	if _, known := r.emitters[b.DeviceClass]; !known {
		return fmt.Errorf("device %q has unknown class %q", b.Label, b.DeviceClass)
	}
	r.instances[b.Label] = b
	return nil
}

// Resolve returns the instance and emitter for a label. A dangling label
// is a structural compile error.
func (r *Registry) Resolve(label string) (*Backend, Emitter, error) {
	b, ok := r.instances[label]
	if !ok {
		labels := make([]string, 0, len(r.instances))
		for l := range r.instances {
			labels = append(labels, l)
		}
		sort.Strings(labels)
		return nil, nil, fmt.Errorf("no configured device matches label %q (configured: %s)",
			label, strings.Join(labels, ", "))
	}
	return b, r.emitters[b.DeviceClass], nil
}

// Labels returns the configured labels, sorted.
func (r *Registry) Labels() []string {
	labels := make([]string, 0, len(r.instances))
	for l := range r.instances {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}
