package experiment

import (
	"fmt"

	"github.com/vk/expflowgo/internal/component"
)

// Routine is an ordered bundle of components representing one trial-like
// unit. A routine is owned by exactly one experiment and may appear in
// the flow any number of times.
type Routine struct {
	name  string
	comps []*component.Component
}

// NewRoutine creates an empty routine. Use Experiment.AddRoutine so the
// name is registered in the namespace.
func NewRoutine(name string) *Routine {
	return &Routine{name: name}
}

// Name returns the routine's name.
func (r *Routine) Name() string {
	return r.name
}

// Components returns the components in order. The returned slice is the
// routine's own backing storage; callers must not reorder it.
func (r *Routine) Components() []*component.Component {
	return r.comps
}

// AddComponent appends a component.
func (r *Routine) AddComponent(c *component.Component) {
	r.comps = append(r.comps, c)
}

// InsertComponent inserts a component at the given index.
func (r *Routine) InsertComponent(index int, c *component.Component) error {
	if index < 0 || index > len(r.comps) {
		return fmt.Errorf("routine %q: insert index %d out of range", r.name, index)
	}
	r.comps = append(r.comps[:index], append([]*component.Component{c}, r.comps[index:]...)...)
	return nil
}

// RemoveComponent removes the component by identity; absent components
// are a no-op.
func (r *Routine) RemoveComponent(c *component.Component) {
	for i, existing := range r.comps {
		if existing == c {
			r.comps = append(r.comps[:i], r.comps[i+1:]...)
			return
		}
	}
}

// Index returns the position of the component, or -1.
func (r *Routine) Index(c *component.Component) int {
	for i, existing := range r.comps {
		if existing == c {
			return i
		}
	}
	return -1
}

// ComponentByName returns the named component, or nil.
func (r *Routine) ComponentByName(name string) *component.Component {
	for _, c := range r.comps {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

// GetMaxTime computes the latest statically-resolvable stop time across
// the contained components, and whether every component's timing is fixed
// (allNonSlip), which decides between a fixed-duration and a dynamic
// routine guard downstream.
func (r *Routine) GetMaxTime() (maxTime float64, allNonSlip bool) {
	allNonSlip = true
	for _, c := range r.comps {
		start, dur, nonSlip := component.StartAndDuration(c)
		if !nonSlip {
			allNonSlip = false
		}
		if dur == component.Forever {
			allNonSlip = false
			continue
		}
		if end := start + dur; end > maxTime {
			maxTime = end
		}
	}
	if maxTime == 0 {
		// nothing with a resolvable stop point: fall back to a nominal
		// window and force the dynamic guard
		maxTime = 10
		allNonSlip = false
	}
	return maxTime, allNonSlip
}

// Copy returns a deep duplicate of the routine.
func (r *Routine) Copy() *Routine {
	dup := &Routine{name: r.name, comps: make([]*component.Component, len(r.comps))}
	for i, c := range r.comps {
		dup.comps[i] = c.Copy()
	}
	return dup
}

// Kind implements flow Entry.
func (r *Routine) Kind() EntryKind {
	return EntryRoutine
}
