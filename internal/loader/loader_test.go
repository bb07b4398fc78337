package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/expflowgo/components/keyboard"
	"github.com/vk/expflowgo/components/serialout"
	"github.com/vk/expflowgo/components/settings"
	"github.com/vk/expflowgo/components/text"
	"github.com/vk/expflowgo/internal/experiment"
	"github.com/vk/expflowgo/internal/param"
	"github.com/vk/expflowgo/internal/registry"
)

func newTestLoader(t *testing.T) *Loader {
	t.Helper()
	reg := registry.New()
	for _, m := range []registry.Module{
		&settings.Module{}, &text.Module{}, &keyboard.Module{}, &serialout.Module{},
	} {
		m.Register(reg)
	}
	return New(reg)
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const stroopSource = `
experiment "stroop" {
  settings {
    fullScreen    = false
    sessionFields = ["participant"]
  }

  routine "instructions" {
    component "text" "welcome" {
      text     = "Press space to begin"
      startVal = "0.0"
    }
    component "keyboard" "ready" {
      startVal    = "0.0"
      allowedKeys = "'space'"
      store       = "nothing"
    }
  }

  routine "trial" {
    component "text" "stim" {
      text     = "$word"
      startVal = "0.5"
      stopVal  = "2.0"

      updates {
        color = "set every repeat"
      }
    }
  }

  flow {
    routine "instructions" {}
    loop "trials" {
      nReps          = 5
      conditionsFile = "conditions.csv"
      routine "trial" {}
    }
  }
}
`

func loadStroop(t *testing.T) *experiment.Experiment {
	t.Helper()
	path := writeTempFile(t, "stroop.exp.hcl", stroopSource)
	exp, err := newTestLoader(t).LoadExperiment(context.Background(), path)
	require.NoError(t, err)
	return exp
}

func TestLoadExperiment_BuildsGraph(t *testing.T) {
	t.Parallel()

	exp := loadStroop(t)

	assert.Equal(t, "stroop", exp.Name)
	require.Len(t, exp.Routines, 2)

	welcome := exp.Routines["instructions"].ComponentByName("welcome")
	require.NotNil(t, welcome)
	assert.Equal(t, "text", welcome.Type)
	assert.Equal(t, "Press space to begin", welcome.Params["text"].RawString())

	ready := exp.Routines["instructions"].ComponentByName("ready")
	require.NotNil(t, ready)
	assert.Equal(t, "nothing", ready.Params["store"].RawString())
}

func TestLoadExperiment_SettingsOverrides(t *testing.T) {
	t.Parallel()

	exp := loadStroop(t)

	require.NotNil(t, exp.Settings)
	assert.False(t, exp.Settings.Params["fullScreen"].AsBool())
}

func TestLoadExperiment_UpdatesBlockSetsPolicy(t *testing.T) {
	t.Parallel()

	exp := loadStroop(t)
	stim := exp.Routines["trial"].ComponentByName("stim")
	require.NotNil(t, stim)

	assert.Equal(t, param.EveryRepeat, stim.Params["color"].Updates)
	assert.Equal(t, param.Constant, stim.Params["text"].Updates)
}

func TestLoadExperiment_FlowOrderAndLoopMarkers(t *testing.T) {
	t.Parallel()

	exp := loadStroop(t)
	entries := exp.Flow.Entries()
	require.Len(t, entries, 4)

	first, ok := entries[0].(*experiment.Routine)
	require.True(t, ok)
	assert.Equal(t, "instructions", first.Name())

	init, ok := entries[1].(*experiment.LoopInitiator)
	require.True(t, ok)
	assert.Equal(t, "trials", init.Loop.Name())
	assert.Equal(t, "thisTrial", init.Loop.IndexName)
	assert.Equal(t, "conditions.csv", init.Loop.Params["conditionsFile"].RawString())

	inner, ok := entries[2].(*experiment.Routine)
	require.True(t, ok)
	assert.Equal(t, "trial", inner.Name())

	term, ok := entries[3].(*experiment.LoopTerminator)
	require.True(t, ok)
	assert.Same(t, init.Loop, term.Loop)
}

func TestLoadExperiment_NestedLoops(t *testing.T) {
	t.Parallel()

	src := `
experiment "nested" {
  routine "trial" {}

  flow {
    loop "blocks" {
      nReps = 2
      loop "trials" {
        nReps = 5
        seed  = "42"
        routine "trial" {}
      }
    }
  }
}
`
	path := writeTempFile(t, "nested.exp.hcl", src)
	exp, err := newTestLoader(t).LoadExperiment(context.Background(), path)
	require.NoError(t, err)

	require.NoError(t, exp.Flow.Validate())
	entries := exp.Flow.Entries()
	require.Len(t, entries, 5)
	outer, ok := entries[0].(*experiment.LoopInitiator)
	require.True(t, ok)
	assert.Equal(t, "blocks", outer.Loop.Name())
	inner, ok := entries[1].(*experiment.LoopInitiator)
	require.True(t, ok)
	assert.Equal(t, "trials", inner.Loop.Name())
	// the alias maps onto the legacy spaced key
	assert.Equal(t, "42", inner.Loop.Params["random seed"].RawString())
}

func TestLoadExperiment_ToleratesByteOrderMark(t *testing.T) {
	t.Parallel()

	src := "\xEF\xBB\xBF" + `
experiment "bom" {
  routine "trial" {}
  flow {
    routine "trial" {}
  }
}
`
	path := writeTempFile(t, "bom.exp.hcl", src)
	exp, err := newTestLoader(t).LoadExperiment(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "bom", exp.Name)
}

func TestLoadExperiment_UnknownParamIsAnError(t *testing.T) {
	t.Parallel()

	src := `
experiment "bad" {
  routine "trial" {
    component "text" "stim" {
      fontSize = 12
    }
  }
  flow {
    routine "trial" {}
  }
}
`
	path := writeTempFile(t, "bad.exp.hcl", src)
	_, err := newTestLoader(t).LoadExperiment(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown param "fontSize"`)
}

func TestLoadExperiment_UnknownKindIsAnError(t *testing.T) {
	t.Parallel()

	src := `
experiment "bad" {
  routine "trial" {
    component "hologram" "stim" {}
  }
  flow {
    routine "trial" {}
  }
}
`
	path := writeTempFile(t, "bad.exp.hcl", src)
	_, err := newTestLoader(t).LoadExperiment(context.Background(), path)
	require.ErrorContains(t, err, `unknown component kind "hologram"`)
}

func TestLoadExperiment_FlowMustReferenceDeclaredRoutines(t *testing.T) {
	t.Parallel()

	src := `
experiment "bad" {
  routine "trial" {}
  flow {
    routine "ghost" {}
  }
}
`
	path := writeTempFile(t, "bad.exp.hcl", src)
	_, err := newTestLoader(t).LoadExperiment(context.Background(), path)
	require.ErrorContains(t, err, `unknown routine "ghost"`)
}

func TestLoadExperiment_DuplicateRoutineNameIsAnError(t *testing.T) {
	t.Parallel()

	src := `
experiment "bad" {
  routine "trial" {}
  routine "trial" {}
  flow {
    routine "trial" {}
  }
}
`
	path := writeTempFile(t, "bad.exp.hcl", src)
	_, err := newTestLoader(t).LoadExperiment(context.Background(), path)
	require.ErrorContains(t, err, "already in use")
}

func TestLoadExperiment_BadUpdatePolicyIsAnError(t *testing.T) {
	t.Parallel()

	src := `
experiment "bad" {
  routine "trial" {
    component "text" "stim" {
      updates {
        text = "sometimes"
      }
    }
  }
  flow {
    routine "trial" {}
  }
}
`
	path := writeTempFile(t, "bad.exp.hcl", src)
	_, err := newTestLoader(t).LoadExperiment(context.Background(), path)
	require.ErrorContains(t, err, `unknown update policy "sometimes"`)
}

func TestLoadDevices(t *testing.T) {
	t.Parallel()

	src := `
device "serial" "triggerPort" {
  port     = "COM3"
  baudrate = 9600
}
`
	path := writeTempFile(t, "devices.hcl", src)
	ld := newTestLoader(t)
	require.NoError(t, ld.LoadDevices(context.Background(), path))

	b, _, err := ld.reg.Devices.Resolve("triggerPort")
	require.NoError(t, err)
	assert.Equal(t, "serial", b.DeviceClass)
	assert.Equal(t, "COM3", b.Params["port"].RawString())
	assert.Equal(t, param.Num, b.Params["baudrate"].ValType)
}

func TestLoadDevices_UnknownClassIsAnError(t *testing.T) {
	t.Parallel()

	src := `
device "telepathy" "brainLink" {}
`
	path := writeTempFile(t, "devices.hcl", src)
	err := newTestLoader(t).LoadDevices(context.Background(), path)
	require.ErrorContains(t, err, `unknown class "telepathy"`)
}
