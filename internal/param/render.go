package param

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/vk/expflowgo/internal/dialect"
	"github.com/zclconf/go-cty/cty"
)

// A non-escaped dollar sign anywhere in a str-typed value means the user
// wants the text spliced as code rather than quoted.
var unescapedDollar = regexp.MustCompile(`^\$|[^\\]\$`)

var (
	leadingDollars  = regexp.MustCompile(`^\$+`)
	embeddedDollars = regexp.MustCompile(`([^\\])\$+`)
)

// CodeFromStr converts a dollar-triggered string value to the code the
// user intended: leading dollars dropped, non-escaped dollars squashed,
// escaped dollars unescaped.
func CodeFromStr(val string) string {
	out := leadingDollars.ReplaceAllString(val, "")
	out = embeddedDollars.ReplaceAllString(out, "$1")
	out = strings.ReplaceAll(out, `\$`, "$")
	return out
}

// Render formats the value as a literal (or verbatim expression) in the
// given dialect. Code-typed values are spliced as-is and never validated;
// a malformed expression surfaces when the generated script runs, not
// here.
func (p *Param) Render(d dialect.Dialect) string {
	switch p.ValType {
	case Code, ExtendedCode:
		return renderCode(p.Val, d)
	case Str, ExtendedStr, File:
		return renderStr(p.Val, d)
	case Color:
		return renderStr(p.Val, d)
	case Bool:
		return d.Bool(p.AsBool())
	case Num:
		return renderNum(p.Val, d)
	case Int:
		if f, ok := p.AsFloat(); ok {
			return strconv.FormatInt(int64(f), 10)
		}
		return p.RawString()
	case List:
		return renderList(p.Val, d)
	default:
		// Unknown valTypes render like strings; the GUI layer owns
		// validation of valType itself.
		return renderStr(p.Val, d)
	}
}

func renderCode(v cty.Value, d dialect.Dialect) string {
	if v.IsNull() {
		return d.Null
	}
	if v.Type() == cty.Bool {
		return d.Bool(v.True())
	}
	if v.Type() == cty.Number {
		f, _ := v.AsBigFloat().Float64()
		return d.Number(f)
	}
	s := v.AsString()
	if strings.HasPrefix(s, `\$`) {
		// the user actually wanted a literal leading dollar
		return s[1:]
	}
	// a leading $ in a code field is redundant
	return strings.TrimPrefix(s, "$")
}

func renderStr(v cty.Value, d dialect.Dialect) string {
	if v.IsNull() {
		return d.Null
	}
	if v.Type() == cty.Bool {
		return d.Bool(v.True())
	}
	if v.Type() == cty.Number {
		f, _ := v.AsBigFloat().Float64()
		return d.Number(f)
	}
	s := v.AsString()
	if unescapedDollar.MatchString(s) {
		return CodeFromStr(s)
	}
	return d.Quote(strings.ReplaceAll(s, `\$`, "$"))
}

func renderNum(v cty.Value, d dialect.Dialect) string {
	if v.IsNull() {
		return d.Null
	}
	if v.Type() == cty.Number {
		f, _ := v.AsBigFloat().Float64()
		return d.Number(f)
	}
	// a string payload in a num field is an expression, splice verbatim
	return strings.TrimPrefix(v.AsString(), "$")
}

func renderList(v cty.Value, d dialect.Dialect) string {
	if v.IsNull() {
		return "[]"
	}
	if v.Type().IsTupleType() || v.Type().IsListType() {
		parts := make([]string, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			switch ev.Type() {
			case cty.Number:
				f, _ := ev.AsBigFloat().Float64()
				parts = append(parts, d.Number(f))
			case cty.String:
				parts = append(parts, renderStr(ev, d))
			case cty.Bool:
				parts = append(parts, d.Bool(ev.True()))
			default:
				parts = append(parts, ev.GoString())
			}
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	// string payload: wrap in brackets unless already bracketed
	s := strings.TrimSpace(v.AsString())
	if (strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")")) ||
		(strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]")) {
		return s
	}
	return "[" + s + "]"
}

func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
