package experiment

import (
	"fmt"
)

// EntryKind discriminates the three kinds of flow entry.
type EntryKind int

const (
	EntryRoutine EntryKind = iota
	EntryLoopInitiator
	EntryLoopTerminator
)

// Entry is one element of the flow sequence: a routine reference or one
// of the paired loop markers.
type Entry interface {
	Kind() EntryKind
}

// LoopInitiator marks the start of a loop's flow region.
type LoopInitiator struct {
	Loop *Loop
}

// Kind implements Entry.
func (*LoopInitiator) Kind() EntryKind { return EntryLoopInitiator }

// LoopTerminator marks the end of a loop's flow region. It references the
// same Loop instance as its initiator.
type LoopTerminator struct {
	Loop *Loop
}

// Kind implements Entry.
func (*LoopTerminator) Kind() EntryKind { return EntryLoopTerminator }

// Flow is the ordered control sequence of routines and loop markers for a
// whole experiment. Loops may nest fully inside one another; partially
// overlapping regions are invalid and rejected by Validate.
type Flow struct {
	entries []Entry
}

// NewFlow creates an empty flow.
func NewFlow() *Flow {
	return &Flow{}
}

// Entries returns the flow sequence in order.
func (f *Flow) Entries() []Entry {
	return f.entries
}

// Len returns the number of entries.
func (f *Flow) Len() int {
	return len(f.entries)
}

// AddRoutine inserts a routine reference at pos.
func (f *Flow) AddRoutine(r *Routine, pos int) error {
	return f.insert(r, pos)
}

// AppendRoutine adds a routine reference at the end.
func (f *Flow) AppendRoutine(r *Routine) {
	f.entries = append(f.entries, r)
}

// AddLoop inserts the paired markers for loop around [startPos, endPos).
// The terminator is inserted first so startPos keeps its meaning.
func (f *Flow) AddLoop(l *Loop, startPos, endPos int) error {
	if err := f.insert(&LoopTerminator{Loop: l}, endPos); err != nil {
		return err
	}
	return f.insert(&LoopInitiator{Loop: l}, startPos)
}

func (f *Flow) insert(e Entry, pos int) error {
	if pos < 0 || pos > len(f.entries) {
		return fmt.Errorf("flow: insert position %d out of range", pos)
	}
	f.entries = append(f.entries[:pos], append([]Entry{e}, f.entries[pos:]...)...)
	return nil
}

// IndexOf returns the position of the routine's first occurrence in the
// flow, or -1 when it never appears.
func (f *Flow) IndexOf(r *Routine) int {
	for i, e := range f.entries {
		if rr, ok := e.(*Routine); ok && rr.Name() == r.Name() {
			return i
		}
	}
	return -1
}

// RemoveRoutine removes every reference to the routine (by name; a
// routine can appear multiple times).
func (f *Flow) RemoveRoutine(r *Routine) {
	kept := f.entries[:0]
	for _, e := range f.entries {
		if rr, ok := e.(*Routine); ok && rr.Name() == r.Name() {
			continue
		}
		kept = append(kept, e)
	}
	f.entries = kept
}

// RemoveLoop removes both of the loop's markers.
func (f *Flow) RemoveLoop(l *Loop) {
	kept := f.entries[:0]
	for _, e := range f.entries {
		switch m := e.(type) {
		case *LoopInitiator:
			if m.Loop == l {
				continue
			}
		case *LoopTerminator:
			if m.Loop == l {
				continue
			}
		}
		kept = append(kept, e)
	}
	f.entries = kept
}

// Validate checks the loop-marker structure: every initiator must have
// exactly one matching terminator later in the sequence, terminators must
// close the most recently opened loop (proper nesting, no overlap), and
// no marker may appear without its pair.
func (f *Flow) Validate() error {
	var stack []*Loop
	for i, e := range f.entries {
		switch m := e.(type) {
		case *LoopInitiator:
			stack = append(stack, m.Loop)
		case *LoopTerminator:
			if len(stack) == 0 {
				return fmt.Errorf("flow: loop %q terminated at position %d without a matching initiator", m.Loop.Name(), i)
			}
			top := stack[len(stack)-1]
			if top != m.Loop {
				return fmt.Errorf("flow: loop %q overlaps loop %q; loops must nest fully", m.Loop.Name(), top.Name())
			}
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) > 0 {
		return fmt.Errorf("flow: loop %q has no terminator", stack[len(stack)-1].Name())
	}
	return nil
}

// LoopsAt returns the stack of loops whose regions contain the entry at
// pos, outermost first. This resolves "the innermost active loop" by
// actual containment of the position, not by which loop was opened most
// recently anywhere in the flow.
func (f *Flow) LoopsAt(pos int) []*Loop {
	var stack []*Loop
	for i, e := range f.entries {
		if i >= pos {
			break
		}
		switch m := e.(type) {
		case *LoopInitiator:
			stack = append(stack, m.Loop)
		case *LoopTerminator:
			if len(stack) > 0 && stack[len(stack)-1] == m.Loop {
				stack = stack[:len(stack)-1]
			}
		}
	}
	return stack
}

// InnermostLoopAt returns the innermost loop containing the entry at pos,
// or nil when the position is outside every loop.
func (f *Flow) InnermostLoopAt(pos int) *Loop {
	stack := f.LoopsAt(pos)
	if len(stack) == 0 {
		return nil
	}
	return stack[len(stack)-1]
}
