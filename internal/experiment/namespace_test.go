package experiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamespace_AddAndCollide(t *testing.T) {
	t.Parallel()

	ns := NewNamespace()
	require.NoError(t, ns.Add("trial", "routine"))

	// same scope re-adds are fine
	require.NoError(t, ns.Add("trial", "routine"))

	err := ns.Add("trial", "component")
	require.Error(t, err)
	var collision *NameCollisionError
	require.ErrorAs(t, err, &collision)
	assert.Equal(t, "trial", collision.Name)
	assert.Equal(t, "routine", collision.Holder)
}

func TestNamespace_ReservedNamesAreHeld(t *testing.T) {
	t.Parallel()

	ns := NewNamespace()
	err := ns.Add("win", "component")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a variable of the generated script")
}

func TestNamespace_Rename(t *testing.T) {
	t.Parallel()

	ns := NewNamespace()
	require.NoError(t, ns.Add("old", "component"))
	require.NoError(t, ns.Add("busy", "routine"))

	require.Error(t, ns.Rename("old", "busy"))
	require.Error(t, ns.Rename("missing", "anything"))

	require.NoError(t, ns.Rename("old", "new"))
	assert.Equal(t, "", ns.Exists("old"))
	assert.Equal(t, "component", ns.Exists("new"))
}

func TestNamespace_Remove(t *testing.T) {
	t.Parallel()

	ns := NewNamespace()
	require.NoError(t, ns.Add("gone", "loop"))
	ns.Remove("gone")
	assert.Equal(t, "", ns.Exists("gone"))
	require.NoError(t, ns.Add("gone", "component"))
}

func TestMakeValid_SanitizesIllegalCharacters(t *testing.T) {
	t.Parallel()

	ns := NewNamespace()
	assert.Equal(t, "my_stim", ns.MakeValid("my stim", "stim"))
	assert.Equal(t, "stim_2cool", ns.MakeValid("2cool", "stim"))
	assert.Equal(t, "stim_1", ns.MakeValid("", "stim"))
	assert.Equal(t, "var_1", ns.MakeValid("", ""))
}

func TestMakeValid_SuffixesTakenNames(t *testing.T) {
	t.Parallel()

	ns := NewNamespace()
	require.NoError(t, ns.Add("text", "component"))
	// the first duplicate is _2, never _1
	assert.Equal(t, "text_2", ns.MakeValid("text", "stim"))

	require.NoError(t, ns.Add("text_2", "component"))
	assert.Equal(t, "text_3", ns.MakeValid("text", "stim"))
}

func TestMakeValid_DoesNotRegister(t *testing.T) {
	t.Parallel()

	ns := NewNamespace()
	first := ns.MakeValid("probe", "stim")
	second := ns.MakeValid("probe", "stim")
	assert.Equal(t, first, second)
}

func TestMakeLoopIndex(t *testing.T) {
	t.Parallel()

	ns := NewNamespace()
	assert.Equal(t, "thisTrial", ns.MakeLoopIndex("trials"))
	assert.Equal(t, "thisBlock", ns.MakeLoopIndex("blocks"))
	assert.Equal(t, "thisStimulus", ns.MakeLoopIndex("stimuli"))
	assert.Equal(t, "thisLoop", ns.MakeLoopIndex("s"))
}

func TestMakeLoopIndex_AvoidsTakenNames(t *testing.T) {
	t.Parallel()

	ns := NewNamespace()
	require.NoError(t, ns.Add("thisTrial", "loop index"))
	assert.Equal(t, "thisTrial_2", ns.MakeLoopIndex("trials"))
}
