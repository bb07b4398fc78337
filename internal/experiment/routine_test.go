package experiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/expflowgo/internal/component"
)

func timedComponent(name, start, stop string) *component.Component {
	c := component.NewBase("text", name)
	c.Params["startVal"].Set(cty.StringVal(start))
	c.Params["stopVal"].Set(cty.StringVal(stop))
	return c
}

func TestGetMaxTime_LatestStopWins(t *testing.T) {
	t.Parallel()

	r := NewRoutine("trial")
	r.AddComponent(timedComponent("fixation", "0.0", "0.5"))
	r.AddComponent(timedComponent("stim", "0.5", "2.0"))

	maxTime, nonSlip := r.GetMaxTime()
	assert.Equal(t, 2.5, maxTime)
	assert.True(t, nonSlip)
}

func TestGetMaxTime_StopTimeIsAbsolute(t *testing.T) {
	t.Parallel()

	c := timedComponent("stim", "1.0", "3.0")
	c.Params["stopType"].Set(cty.StringVal(component.StopTime))

	r := NewRoutine("trial")
	r.AddComponent(c)

	maxTime, nonSlip := r.GetMaxTime()
	assert.Equal(t, 3.0, maxTime)
	assert.True(t, nonSlip)
}

func TestGetMaxTime_ForeverComponentForcesDynamicGuard(t *testing.T) {
	t.Parallel()

	r := NewRoutine("trial")
	r.AddComponent(timedComponent("stim", "0.0", "1.0"))
	r.AddComponent(timedComponent("resp", "0.0", "")) // waits for a response

	maxTime, nonSlip := r.GetMaxTime()
	assert.Equal(t, 1.0, maxTime)
	assert.False(t, nonSlip)
}

func TestGetMaxTime_EmptyRoutineFallsBack(t *testing.T) {
	t.Parallel()

	maxTime, nonSlip := NewRoutine("empty").GetMaxTime()
	assert.Equal(t, 10.0, maxTime)
	assert.False(t, nonSlip)
}

func TestGetMaxTime_ExpressionTimingIsNotNonSlip(t *testing.T) {
	t.Parallel()

	r := NewRoutine("trial")
	r.AddComponent(timedComponent("stim", "0.0", "$stimDur"))

	_, nonSlip := r.GetMaxTime()
	assert.False(t, nonSlip)
}

func TestRoutine_ComponentOrderAndLookup(t *testing.T) {
	t.Parallel()

	r := NewRoutine("trial")
	a := timedComponent("a", "0", "1")
	b := timedComponent("b", "0", "1")
	r.AddComponent(a)
	require.NoError(t, r.InsertComponent(0, b))

	assert.Equal(t, []*component.Component{b, a}, r.Components())
	assert.Equal(t, 1, r.Index(a))
	assert.Same(t, b, r.ComponentByName("b"))
	assert.Nil(t, r.ComponentByName("missing"))

	r.RemoveComponent(b)
	assert.Equal(t, 0, r.Index(a))
	assert.Equal(t, -1, r.Index(b))
}

func TestRoutine_CopyIsDeep(t *testing.T) {
	t.Parallel()

	r := NewRoutine("trial")
	r.AddComponent(timedComponent("stim", "0", "1"))

	dup := r.Copy()
	dup.Components()[0].SetName("renamed")

	assert.Equal(t, "stim", r.Components()[0].Name())
	assert.Equal(t, "renamed", dup.Components()[0].Name())
}
