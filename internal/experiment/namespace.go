package experiment

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// NameCollisionError is returned when a name is already held by a
// different entity in the experiment's namespace.
type NameCollisionError struct {
	Name   string
	Holder string
}

func (e *NameCollisionError) Error() string {
	return fmt.Sprintf("name %q is already in use by %s", e.Name, e.Holder)
}

var nonAlphanumeric = regexp.MustCompile(`\W`)

// reservedNames are identifiers the generated script itself introduces;
// user names colliding with these would shadow runtime state.
var reservedNames = []string{
	"t", "frameN", "tThisFlip", "tThisFlipGlobal", "frameTolerance",
	"win", "thisExp", "expInfo", "expName", "filename", "logFile",
	"continueRoutine", "endExpNow", "globalClock", "routineTimer",
	"defaultKeyboard", "currentLoop", "thisComponent", "level",
	"NOT_STARTED", "STARTED", "FINISHED",
	"core", "data", "event", "visual", "sound", "hardware", "logging",
	"util", "psychoJS", "PsychoJS", "Scheduler", "TrialHandler",
}

// Namespace is the experiment-scoped unique-name registry. Each live
// component, routine and loop name maps to at most one entry at any
// snapshot.
type Namespace struct {
	reserved map[string]struct{}
	user     map[string]string // name -> scope ("component", "routine", ...)
}

// NewNamespace builds a namespace seeded with the generated script's own
// identifiers.
func NewNamespace() *Namespace {
	ns := &Namespace{
		reserved: make(map[string]struct{}, len(reservedNames)),
		user:     make(map[string]string),
	}
	for _, n := range reservedNames {
		ns.reserved[n] = struct{}{}
	}
	return ns
}

// Exists returns a description of what currently holds the name, or ""
// if it is free.
func (ns *Namespace) Exists(name string) string {
	if scope, ok := ns.user[name]; ok {
		return scope
	}
	if _, ok := ns.reserved[name]; ok {
		return "a variable of the generated script"
	}
	return ""
}

// Add registers name as used by the given scope. Re-adding under the same
// scope is a no-op; any other holder is a collision.
func (ns *Namespace) Add(name, scope string) error {
	if name == "" {
		return nil
	}
	if holder := ns.Exists(name); holder != "" {
		if holder == scope {
			return nil
		}
		return &NameCollisionError{Name: name, Holder: holder}
	}
	ns.user[name] = scope
	return nil
}

// Remove unregisters the name; absent names are a no-op.
func (ns *Namespace) Remove(name string) {
	delete(ns.user, name)
}

// Rename atomically moves the registration from oldName to newName. It
// fails if newName is already held by a different entity.
func (ns *Namespace) Rename(oldName, newName string) error {
	scope, ok := ns.user[oldName]
	if !ok {
		return fmt.Errorf("cannot rename %q: not registered", oldName)
	}
	if holder := ns.Exists(newName); holder != "" && newName != oldName {
		return &NameCollisionError{Name: newName, Holder: holder}
	}
	delete(ns.user, oldName)
	ns.user[newName] = scope
	return nil
}

// MakeValid returns a legal, currently-unique variable name derived from
// proposed. It never mutates the registry; callers Add the result
// themselves, so calling it twice without an Add in between returns the
// same value.
func (ns *Namespace) MakeValid(proposed, prefix string) string {
	if prefix == "" {
		prefix = "var"
	}
	name := proposed
	if name == "" {
		name = prefix + "_1"
	}
	if name[0] >= '0' && name[0] <= '9' {
		name = prefix + "_" + name
	}
	name = nonAlphanumeric.ReplaceAllString(name, "_")

	// skip _1: the user can rename the first one to _1 if they want it
	i := 2
	if ns.Exists(name) != "" {
		// already carries a numeric suffix? continue counting from it
		if base, count, ok := splitSuffix(name); ok {
			i = count + 1
			name = base
		}
	}
	stem := name + "_"
	for ns.Exists(name) != "" {
		name = stem + strconv.Itoa(i)
		i++
	}
	return name
}

// MakeLoopIndex derives a readable loop-index variable from a loop name:
// "trials" becomes "thisTrial".
func (ns *Namespace) MakeLoopIndex(name string) string {
	irregular := map[string]string{"stimuli": "stimulus", "mice": "mouse", "people": "person"}
	out := name
	for plural, singular := range irregular {
		out = regexp.MustCompile("(?i)"+plural).ReplaceAllString(out, singular)
	}
	if out == name && strings.HasSuffix(out, "s") {
		out = out[:len(out)-1]
	}
	if out == "" {
		out = "Loop"
	}
	out = "this" + strings.ToUpper(out[:1]) + out[1:]
	return ns.MakeValid(out, "this")
}

func splitSuffix(name string) (string, int, bool) {
	idx := strings.LastIndex(name, "_")
	if idx < 0 {
		return "", 0, false
	}
	n, err := strconv.Atoi(name[idx+1:])
	if err != nil {
		return "", 0, false
	}
	return name[:idx], n, true
}
