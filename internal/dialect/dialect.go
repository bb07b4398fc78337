// Package dialect describes the literal syntax of a script target. A
// Dialect is a value object holding the formatting rules that differ
// between the Python runtime ("PsychoPy") and the web runtime
// ("PsychoJS"): boolean spelling, null spelling, string quoting, the
// statement terminator and the line-comment leader. Emitters are written
// once and parameterized over a Dialect instead of being duplicated per
// target language.
package dialect

import (
	"strconv"
	"strings"
)

// Target names as used in experiment files and component capability sets.
const (
	PsychoPy = "PsychoPy"
	PsychoJS = "PsychoJS"
)

// Dialect holds the literal-formatting rules for one script target.
type Dialect struct {
	// Name is the target identifier, one of PsychoPy or PsychoJS.
	Name string
	// BoolTrue and BoolFalse are the spellings of boolean literals.
	BoolTrue  string
	BoolFalse string
	// Null is the spelling of the null/none literal.
	Null string
	// Terminator is appended to generated statements ("" or ";").
	Terminator string
	// Comment is the line-comment leader including a trailing space.
	Comment string
}

// Python returns the dialect for the native interpreter target.
func Python() Dialect {
	return Dialect{
		Name:       PsychoPy,
		BoolTrue:   "True",
		BoolFalse:  "False",
		Null:       "None",
		Terminator: "",
		Comment:    "# ",
	}
}

// JS returns the dialect for the web runtime target.
func JS() Dialect {
	return Dialect{
		Name:       PsychoJS,
		BoolTrue:   "true",
		BoolFalse:  "false",
		Null:       "null",
		Terminator: ";",
		Comment:    "// ",
	}
}

// IsJS reports whether d targets the web runtime.
func (d Dialect) IsJS() bool {
	return d.Name == PsychoJS
}

// Bool formats a boolean literal.
func (d Dialect) Bool(v bool) string {
	if v {
		return d.BoolTrue
	}
	return d.BoolFalse
}

// Quote formats s as a single-quoted string literal, escaping backslashes,
// quotes and newlines. Single quoting is valid in both targets.
func (d Dialect) Quote(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

// Number formats a float with the shortest representation that survives a
// round trip. Integral values keep a trailing ".0" in Python spelling only
// when the value came from a float-typed parameter; both targets accept
// the plain form, so the plain form is used.
func (d Dialect) Number(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
