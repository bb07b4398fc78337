package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/expflowgo/internal/codegen"
	"github.com/vk/expflowgo/internal/component"
	"github.com/vk/expflowgo/internal/dialect"
	"github.com/vk/expflowgo/internal/param"
)

func TestNew_AllowedKeysCanUpdatePerRepeat(t *testing.T) {
	t.Parallel()

	c := New("resp")
	assert.Equal(t,
		[]param.UpdatePolicy{param.Constant, param.EveryRepeat},
		c.Params["allowedKeys"].AllowedUpdates)
}

func TestWriteRoutineStartCode_AppliesPerRepeatUpdates(t *testing.T) {
	t.Parallel()

	c := New("resp")
	c.Params["allowedKeys"].Set(cty.StringVal("'left','right'"))
	c.Params["allowedKeys"].Updates = param.EveryRepeat
	ctx := &component.EmitContext{Dialect: dialect.Python()}
	s := codegen.New()

	e := &emitter{}
	require.NoError(t, e.WriteRoutineStartCode(ctx, c, s.Root()))

	out := s.Render()
	assert.Contains(t, out, "resp.setAllowedKeys(['left','right'])")
	assert.Contains(t, out, "resp.keys = []")
	assert.Contains(t, out, "_resp_allKeys = []")
}

func TestWriteRoutineStartCode_ResetsBuffersJS(t *testing.T) {
	t.Parallel()

	c := New("resp")
	ctx := &component.EmitContext{Dialect: dialect.JS()}
	s := codegen.NewWithIndent("  ")

	e := &emitter{}
	require.NoError(t, e.WriteRoutineStartCode(ctx, c, s.Root()))

	out := s.Render()
	assert.Contains(t, out, "resp.keys = undefined;")
	assert.Contains(t, out, "_resp_allKeys = [];")
}
