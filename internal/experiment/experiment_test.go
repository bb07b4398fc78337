package experiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/expflowgo/internal/component"
)

func TestAddRoutine_DeduplicatesNames(t *testing.T) {
	t.Parallel()

	exp := New("test")
	first, err := exp.AddRoutine("trial")
	require.NoError(t, err)
	second, err := exp.AddRoutine("trial")
	require.NoError(t, err)

	assert.Equal(t, "trial", first.Name())
	assert.Equal(t, "trial_2", second.Name())
}

func TestAddComponent_RejectsTakenNames(t *testing.T) {
	t.Parallel()

	exp := New("test")
	r, err := exp.AddRoutine("trial")
	require.NoError(t, err)
	require.NoError(t, exp.AddComponent(r, component.NewBase("text", "stim")))

	err = exp.AddComponent(r, component.NewBase("text", "stim"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "one of your components")
}

func TestRoutineNamesInFlowOrder(t *testing.T) {
	t.Parallel()

	exp := New("test")
	intro, _ := exp.AddRoutine("intro")
	trial, _ := exp.AddRoutine("trial")
	exp.Flow.AppendRoutine(trial)
	exp.Flow.AppendRoutine(intro)
	exp.Flow.AppendRoutine(trial)

	assert.Equal(t, []string{"trial", "intro"}, exp.RoutineNamesInFlowOrder())
}

func TestClone_SharesNoMutableState(t *testing.T) {
	t.Parallel()

	exp := New("test")
	r, err := exp.AddRoutine("trial")
	require.NoError(t, err)
	stim := component.NewBase("text", "stim")
	require.NoError(t, exp.AddComponent(r, stim))
	exp.Flow.AppendRoutine(r)
	l := NewLoop("trials", 5, LoopRandom, "conditions.csv")
	require.NoError(t, exp.AddLoop(l, 0, 1))

	dup := exp.Clone()
	dup.Routines["trial"].Components()[0].SetName("other")
	dup.Routines["trial"].Components()[0].Params["disabled"].Set(cty.BoolVal(true))

	assert.Equal(t, "stim", exp.Routines["trial"].Components()[0].Name())
	assert.False(t, exp.Routines["trial"].Components()[0].Disabled())
}

func TestClone_LoopMarkersShareOneCopy(t *testing.T) {
	t.Parallel()

	exp := New("test")
	r, err := exp.AddRoutine("trial")
	require.NoError(t, err)
	exp.Flow.AppendRoutine(r)
	l := NewLoop("trials", 5, LoopRandom, "")
	require.NoError(t, exp.AddLoop(l, 0, 1))

	dup := exp.Clone()
	require.NoError(t, dup.Validate())

	var init, term *Loop
	for _, e := range dup.Flow.Entries() {
		switch m := e.(type) {
		case *LoopInitiator:
			init = m.Loop
		case *LoopTerminator:
			term = m.Loop
		}
	}
	require.NotNil(t, init)
	assert.Same(t, init, term)
	assert.NotSame(t, l, init)
	assert.Equal(t, "thisTrial", init.IndexName)
}

func TestClone_FlowReferencesClonedRoutines(t *testing.T) {
	t.Parallel()

	exp := New("test")
	r, err := exp.AddRoutine("trial")
	require.NoError(t, err)
	exp.Flow.AppendRoutine(r)

	dup := exp.Clone()
	flowRoutine, ok := dup.Flow.Entries()[0].(*Routine)
	require.True(t, ok)
	assert.Same(t, dup.Routines["trial"], flowRoutine)
	assert.NotSame(t, r, flowRoutine)
}

func TestStripDisabled(t *testing.T) {
	t.Parallel()

	exp := New("test")
	r, err := exp.AddRoutine("trial")
	require.NoError(t, err)
	keep := component.NewBase("text", "keep")
	drop := component.NewBase("text", "drop")
	drop.Params["disabled"].Set(cty.BoolVal(true))
	require.NoError(t, exp.AddComponent(r, keep))
	require.NoError(t, exp.AddComponent(r, drop))

	exp.StripDisabled()

	require.Len(t, r.Components(), 1)
	assert.Equal(t, "keep", r.Components()[0].Name())
}

func TestValidate_RejectsUnknownFlowRoutine(t *testing.T) {
	t.Parallel()

	exp := New("test")
	exp.Flow.AppendRoutine(NewRoutine("ghost"))

	require.ErrorContains(t, exp.Validate(), "unknown routine")
}

func TestRemoveRoutine_FreesNames(t *testing.T) {
	t.Parallel()

	exp := New("test")
	r, err := exp.AddRoutine("trial")
	require.NoError(t, err)
	require.NoError(t, exp.AddComponent(r, component.NewBase("text", "stim")))
	exp.Flow.AppendRoutine(r)

	exp.RemoveRoutine("trial")

	assert.Empty(t, exp.Routines)
	assert.Equal(t, 0, exp.Flow.Len())
	assert.Equal(t, "", exp.Namespace.Exists("trial"))
	assert.Equal(t, "", exp.Namespace.Exists("stim"))
}
