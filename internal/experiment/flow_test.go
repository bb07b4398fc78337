package experiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildFlowExperiment(t *testing.T) (*Experiment, *Routine, *Routine) {
	t.Helper()
	exp := New("flowTest")
	r1, err := exp.AddRoutine("intro")
	require.NoError(t, err)
	r2, err := exp.AddRoutine("trial")
	require.NoError(t, err)
	return exp, r1, r2
}

func TestFlow_ValidateAcceptsNestedLoops(t *testing.T) {
	t.Parallel()

	exp, r1, r2 := buildFlowExperiment(t)
	exp.Flow.AppendRoutine(r1)
	exp.Flow.AppendRoutine(r2)

	inner := NewLoop("trials", 5, LoopSequential, "")
	require.NoError(t, exp.AddLoop(inner, 1, 2))
	outer := NewLoop("blocks", 2, LoopSequential, "")
	require.NoError(t, exp.AddLoop(outer, 0, exp.Flow.Len()))

	require.NoError(t, exp.Flow.Validate())
}

func TestFlow_ValidateRejectsOverlap(t *testing.T) {
	t.Parallel()

	r1 := NewRoutine("intro")
	r2 := NewRoutine("trial")
	a := NewLoop("a", 1, LoopSequential, "")
	b := NewLoop("b", 1, LoopSequential, "")

	// a closes inside b's region
	f := NewFlow()
	f.entries = []Entry{
		&LoopInitiator{Loop: a},
		r1,
		&LoopInitiator{Loop: b},
		&LoopTerminator{Loop: a},
		r2,
		&LoopTerminator{Loop: b},
	}
	err := f.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loops must nest fully")
}

func TestFlow_ValidateRejectsUnpairedMarkers(t *testing.T) {
	t.Parallel()

	l := NewLoop("orphan", 1, LoopSequential, "")

	f := NewFlow()
	f.entries = []Entry{&LoopInitiator{Loop: l}}
	require.ErrorContains(t, f.Validate(), "no terminator")

	f = NewFlow()
	f.entries = []Entry{&LoopTerminator{Loop: l}}
	require.ErrorContains(t, f.Validate(), "without a matching initiator")
}

func TestFlow_LoopsAtUsesContainment(t *testing.T) {
	t.Parallel()

	exp, r1, r2 := buildFlowExperiment(t)
	r3, err := exp.AddRoutine("outro")
	require.NoError(t, err)

	// [a: r1][b: r2] r3 -- two sibling loops then a bare routine
	exp.Flow.AppendRoutine(r1)
	exp.Flow.AppendRoutine(r2)
	exp.Flow.AppendRoutine(r3)
	a := NewLoop("aLoop", 1, LoopSequential, "")
	require.NoError(t, exp.AddLoop(a, 0, 1))
	b := NewLoop("bLoop", 1, LoopSequential, "")
	require.NoError(t, exp.AddLoop(b, 3, 4))

	// entries: aInit r1 aTerm bInit r2 bTerm r3
	assert.Equal(t, []*Loop{a}, exp.Flow.LoopsAt(1))
	assert.Equal(t, []*Loop{b}, exp.Flow.LoopsAt(4))
	assert.Empty(t, exp.Flow.LoopsAt(6))

	assert.Same(t, a, exp.Flow.InnermostLoopAt(1))
	assert.Nil(t, exp.Flow.InnermostLoopAt(6))
}

func TestFlow_LoopsAtNestedReturnsOutermostFirst(t *testing.T) {
	t.Parallel()

	exp, r1, _ := buildFlowExperiment(t)
	exp.Flow.AppendRoutine(r1)
	inner := NewLoop("trials", 1, LoopSequential, "")
	require.NoError(t, exp.AddLoop(inner, 0, 1))
	outer := NewLoop("blocks", 1, LoopSequential, "")
	require.NoError(t, exp.AddLoop(outer, 0, exp.Flow.Len()))

	// entries: blocksInit trialsInit r1 trialsTerm blocksTerm
	stack := exp.Flow.LoopsAt(2)
	require.Len(t, stack, 2)
	assert.Same(t, outer, stack[0])
	assert.Same(t, inner, stack[1])
	assert.Same(t, inner, exp.Flow.InnermostLoopAt(2))
}

func TestFlow_IndexOf(t *testing.T) {
	t.Parallel()

	exp, r1, r2 := buildFlowExperiment(t)
	exp.Flow.AppendRoutine(r2)
	exp.Flow.AppendRoutine(r1)
	exp.Flow.AppendRoutine(r2)

	assert.Equal(t, 0, exp.Flow.IndexOf(r2))
	assert.Equal(t, 1, exp.Flow.IndexOf(r1))
	assert.Equal(t, -1, exp.Flow.IndexOf(NewRoutine("absent")))
}

func TestFlow_RemoveLoopDropsBothMarkers(t *testing.T) {
	t.Parallel()

	exp, r1, _ := buildFlowExperiment(t)
	exp.Flow.AppendRoutine(r1)
	l := NewLoop("trials", 1, LoopSequential, "")
	require.NoError(t, exp.AddLoop(l, 0, 1))
	require.Equal(t, 3, exp.Flow.Len())

	exp.Flow.RemoveLoop(l)
	assert.Equal(t, 1, exp.Flow.Len())
	require.NoError(t, exp.Flow.Validate())
}
