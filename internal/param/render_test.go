package param

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/expflowgo/internal/dialect"
)

func TestRender_StrIsQuoted(t *testing.T) {
	t.Parallel()

	p := New("Hello, world", Str)
	assert.Equal(t, "'Hello, world'", p.Render(dialect.Python()))
	assert.Equal(t, "'Hello, world'", p.Render(dialect.JS()))
}

func TestRender_StrQuotingEscapesSpecials(t *testing.T) {
	t.Parallel()

	p := New("it's a\ntwo-line 'test'", Str)
	assert.Equal(t, `'it\'s a\ntwo-line \'test\''`, p.Render(dialect.Python()))
}

func TestRender_LeadingDollarTriggersCodeSplice(t *testing.T) {
	t.Parallel()

	p := New("$stimText", Str)
	assert.Equal(t, "stimText", p.Render(dialect.Python()))
}

func TestRender_EmbeddedDollarTriggersCodeSplice(t *testing.T) {
	t.Parallel()

	// A non-escaped dollar anywhere flips the whole value to code.
	p := New("score: $points", Str)
	assert.Equal(t, "score: points", p.Render(dialect.Python()))
}

func TestRender_EscapedDollarStaysQuoted(t *testing.T) {
	t.Parallel()

	p := New(`you won \$5`, Str)
	assert.Equal(t, "'you won $5'", p.Render(dialect.Python()))
}

func TestRender_CodeSplicedVerbatim(t *testing.T) {
	t.Parallel()

	p := New("trialClock.getTime()", Code)
	assert.Equal(t, "trialClock.getTime()", p.Render(dialect.Python()))
	assert.Equal(t, "trialClock.getTime()", p.Render(dialect.JS()))
}

func TestRender_CodeTrimsRedundantDollar(t *testing.T) {
	t.Parallel()

	p := New("$expInfo['participant']", Code)
	assert.Equal(t, "expInfo['participant']", p.Render(dialect.Python()))
}

func TestRender_CodeKeepsEscapedLeadingDollar(t *testing.T) {
	t.Parallel()

	p := New(`\$price`, Code)
	assert.Equal(t, "$price", p.Render(dialect.Python()))
}

func TestRender_BoolSpellingPerDialect(t *testing.T) {
	t.Parallel()

	p := NewBool(true)
	assert.Equal(t, "True", p.Render(dialect.Python()))
	assert.Equal(t, "true", p.Render(dialect.JS()))

	p = NewBool(false)
	assert.Equal(t, "False", p.Render(dialect.Python()))
	assert.Equal(t, "false", p.Render(dialect.JS()))
}

func TestRender_NumStringPayloadIsExpression(t *testing.T) {
	t.Parallel()

	p := New("$dur + 0.5", Num)
	assert.Equal(t, "dur + 0.5", p.Render(dialect.Python()))
}

func TestRender_NumFloatPayload(t *testing.T) {
	t.Parallel()

	p := NewNum(1.5)
	assert.Equal(t, "1.5", p.Render(dialect.Python()))
}

func TestRender_NullRendersDialectNull(t *testing.T) {
	t.Parallel()

	p := &Param{Val: cty.NullVal(cty.String), ValType: Str}
	assert.Equal(t, "None", p.Render(dialect.Python()))
	assert.Equal(t, "null", p.Render(dialect.JS()))
}

func TestRender_ListTuple(t *testing.T) {
	t.Parallel()

	p := &Param{
		Val:     cty.TupleVal([]cty.Value{cty.NumberFloatVal(0), cty.NumberFloatVal(0.5)}),
		ValType: List,
	}
	assert.Equal(t, "[0, 0.5]", p.Render(dialect.Python()))
}

func TestRender_ListStringPayloadWrapsUnlessBracketed(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "[1, 2]", New("1, 2", List).Render(dialect.Python()))
	assert.Equal(t, "[1, 2]", New("[1, 2]", List).Render(dialect.Python()))
	assert.Equal(t, "(1, 2)", New("(1, 2)", List).Render(dialect.Python()))
}

func TestCodeFromStr(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "name", CodeFromStr("$name"))
	assert.Equal(t, "name", CodeFromStr("$$$name"))
	assert.Equal(t, "a + b", CodeFromStr("$a + $b"))
	assert.Equal(t, "cost is $5", CodeFromStr(`$cost is \$5`))
}

func TestCopy_IsIndependent(t *testing.T) {
	t.Parallel()

	orig := New("left", Str)
	orig.AllowedVals = []string{"left", "right"}

	dup := orig.Copy()
	dup.Set(cty.StringVal("right"))
	dup.AllowedVals[0] = "up"

	require.Equal(t, "left", orig.RawString())
	require.Equal(t, "left", orig.AllowedVals[0])
}

func TestMapCopy_IsDeep(t *testing.T) {
	t.Parallel()

	m := Map{"text": New("hi", Str)}
	dup := m.Copy()
	dup["text"].Set(cty.StringVal("bye"))

	assert.Equal(t, "hi", m["text"].RawString())
}

func TestIsEmpty(t *testing.T) {
	t.Parallel()

	assert.True(t, New("", Num).IsEmpty())
	assert.True(t, New("None", Num).IsEmpty())
	assert.True(t, New("-1", Num).IsEmpty())
	assert.True(t, NewNum(-1).IsEmpty())
	assert.False(t, New("1.0", Num).IsEmpty())
}

func TestAsFloat(t *testing.T) {
	t.Parallel()

	f, ok := New("2.5", Num).AsFloat()
	require.True(t, ok)
	assert.Equal(t, 2.5, f)

	_, ok = New("$dur", Num).AsFloat()
	assert.False(t, ok)
}
