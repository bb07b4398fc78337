// Package experiment holds the in-memory experiment graph: routines of
// components, the flow of routines and loop markers, the unique-name
// registry and the global settings pseudo-component. The graph is
// produced by the loader (or programmatically) and consumed read-only by
// the compiler.
package experiment

import (
	"fmt"

	"github.com/vk/expflowgo/internal/component"
)

// Name scopes used in the namespace registry.
const (
	ScopeRoutine   = "one of your routines"
	ScopeComponent = "one of your components"
	ScopeLoop      = "one of your loops"
)

// Experiment is the aggregate root of one authored experiment.
type Experiment struct {
	Name      string
	Routines  map[string]*Routine
	Flow      *Flow
	Namespace *Namespace
	// Settings is the global-settings pseudo-component; it emits the
	// script preamble and teardown.
	Settings *component.Component
}

// New creates an empty experiment with a seeded namespace.
func New(name string) *Experiment {
	return &Experiment{
		Name:      name,
		Routines:  make(map[string]*Routine),
		Flow:      NewFlow(),
		Namespace: NewNamespace(),
	}
}

// AddRoutine creates a routine under a collision-free variant of the
// proposed name, registers it and returns it.
func (e *Experiment) AddRoutine(proposed string) (*Routine, error) {
	name := e.Namespace.MakeValid(proposed, "routine")
	if err := e.Namespace.Add(name, ScopeRoutine); err != nil {
		return nil, err
	}
	r := NewRoutine(name)
	e.Routines[name] = r
	return r, nil
}

// RemoveRoutine deletes the routine, its flow references and its
// components' names.
func (e *Experiment) RemoveRoutine(name string) {
	r, ok := e.Routines[name]
	if !ok {
		return
	}
	for _, c := range r.Components() {
		e.Namespace.Remove(c.Name())
	}
	e.Flow.RemoveRoutine(r)
	e.Namespace.Remove(name)
	delete(e.Routines, name)
}

// AddComponent registers the component's name and appends it to the
// routine.
func (e *Experiment) AddComponent(r *Routine, c *component.Component) error {
	if err := e.Namespace.Add(c.Name(), ScopeComponent); err != nil {
		return err
	}
	r.AddComponent(c)
	return nil
}

// AddLoop registers the loop's name, derives its index variable and
// inserts its markers around [startPos, endPos) of the flow.
func (e *Experiment) AddLoop(l *Loop, startPos, endPos int) error {
	if err := e.Namespace.Add(l.Name(), ScopeLoop); err != nil {
		return err
	}
	l.IndexName = e.Namespace.MakeLoopIndex(l.Name())
	if err := e.Namespace.Add(l.IndexName, ScopeLoop); err != nil {
		return err
	}
	return e.Flow.AddLoop(l, startPos, endPos)
}

// RoutineNamesInFlowOrder returns each routine's name the first time it
// appears in the flow.
func (e *Experiment) RoutineNamesInFlowOrder() []string {
	var names []string
	seen := make(map[string]bool)
	for _, entry := range e.Flow.Entries() {
		if r, ok := entry.(*Routine); ok && !seen[r.Name()] {
			seen[r.Name()] = true
			names = append(names, r.Name())
		}
	}
	return names
}

// Clone returns a deep copy sharing no mutable state with the receiver.
// The compiler clones the experiment before stripping disabled
// components so the caller's live graph is never touched.
func (e *Experiment) Clone() *Experiment {
	dup := &Experiment{
		Name:      e.Name,
		Routines:  make(map[string]*Routine, len(e.Routines)),
		Flow:      NewFlow(),
		Namespace: NewNamespace(),
	}
	for name, scope := range e.Namespace.user {
		dup.Namespace.user[name] = scope
	}
	for name, r := range e.Routines {
		dup.Routines[name] = r.Copy()
	}
	if e.Settings != nil {
		dup.Settings = e.Settings.Copy()
	}
	// Flow entries reference the cloned routines; loop markers must keep
	// referencing one shared Loop copy per original so pairing survives.
	loopCopies := make(map[*Loop]*Loop)
	loopCopy := func(l *Loop) *Loop {
		if c, ok := loopCopies[l]; ok {
			return c
		}
		c := l.Copy()
		loopCopies[l] = c
		return c
	}
	for _, entry := range e.Flow.Entries() {
		switch m := entry.(type) {
		case *Routine:
			dup.Flow.AppendRoutine(dup.Routines[m.Name()])
		case *LoopInitiator:
			dup.Flow.entries = append(dup.Flow.entries, &LoopInitiator{Loop: loopCopy(m.Loop)})
		case *LoopTerminator:
			dup.Flow.entries = append(dup.Flow.entries, &LoopTerminator{Loop: loopCopy(m.Loop)})
		}
	}
	return dup
}

// StripDisabled removes every disabled component from every routine.
// Meant to run on a clone; disabled components contribute no code at all.
func (e *Experiment) StripDisabled() {
	for _, r := range e.Routines {
		for _, c := range append([]*component.Component(nil), r.Components()...) {
			if c.Disabled() {
				r.RemoveComponent(c)
			}
		}
	}
}

// Validate checks the graph invariants the compiler depends on.
func (e *Experiment) Validate() error {
	if err := e.Flow.Validate(); err != nil {
		return err
	}
	for _, entry := range e.Flow.Entries() {
		if r, ok := entry.(*Routine); ok {
			if _, known := e.Routines[r.Name()]; !known {
				return fmt.Errorf("flow references unknown routine %q", r.Name())
			}
		}
	}
	return nil
}
