package text

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

func TestNew_UpdatableParams(t *testing.T) {
	t.Parallel()

	c := New("stim")
	wanted := []param.UpdatePolicy{param.Constant, param.EveryRepeat, param.EveryFrame}
	assert.Equal(t, wanted, c.Params["text"].AllowedUpdates)
	assert.Equal(t, wanted, c.Params["color"].AllowedUpdates)
}

func TestWriteFrameCode_PerFrameUpdatesOnlyWhileDrawn(t *testing.T) {
	t.Parallel()

	c := New("stim")
	c.Params["startVal"].Set(cty.StringVal("0.0"))
	c.Params["text"].Set(cty.StringVal("$word"))
	c.Params["text"].Updates = param.EveryFrame
	ctx := &component.EmitContext{Dialect: dialect.Python()}
	s := codegen.New()

	e := &emitter{}
	require.NoError(t, e.WriteFrameCode(ctx, c, s.Root()))

	out := s.Render()
	assert.Contains(t, out, "if stim.status == STARTED:  # only update if drawing")
	assert.Contains(t, out, "stim.setText(word, log=False)")
}
