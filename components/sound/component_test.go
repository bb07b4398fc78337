package sound

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

func TestNew_SoundCanUpdatePerRepeat(t *testing.T) {
	t.Parallel()

	c := New("beep")
	assert.Equal(t,
		[]param.UpdatePolicy{param.Constant, param.EveryRepeat},
		c.Params["sound"].AllowedUpdates)
}

func TestInitSecs(t *testing.T) {
	t.Parallel()

	cases := []struct {
		stopVal string
		want    string
	}{
		{"1.0", "1.0"},
		{"2", "2"},
		{"2.5", "-1"},  // long sounds are sized by setSound at routine start
		{"$dur", "-1"}, // expressions cannot size the constructor
		{"", "-1"},     // no stop point
	}
	for _, tc := range cases {
		c := New("beep")
		c.Params["stopVal"].Set(cty.StringVal(tc.stopVal))
		assert.Equal(t, tc.want, initSecs(c), "stopVal=%q", tc.stopVal)
	}
}

func TestWriteInitCode_Python(t *testing.T) {
	t.Parallel()

	c := New("beep")
	c.Params["deviceLabel"].Set(cty.StringVal("mainSpeaker"))
	ctx := &component.EmitContext{Dialect: dialect.Python()}
	s := codegen.New()

	e := &emitter{}
	require.NoError(t, e.WriteInitCode(ctx, c, s.Root()))

	out := s.Render()
	assert.Contains(t, out, "beep = sound.Sound('A', secs=1.0, hamming=True,")
	assert.Contains(t, out, "name='beep', speaker='mainSpeaker')")
	assert.Contains(t, out, "beep.setVolume(1)")
}

func TestWriteFrameCode_PlaySyncsToFlip(t *testing.T) {
	t.Parallel()

	c := New("beep")
	c.Params["startVal"].Set(cty.StringVal("0.5"))
	ctx := &component.EmitContext{Dialect: dialect.Python()}
	s := codegen.New()

	e := &emitter{}
	require.NoError(t, e.WriteFrameCode(ctx, c, s.Root()))

	out := s.Render()
	assert.Contains(t, out, "beep.play(when=win)  # sync with win flip")
	assert.Contains(t, out, "beep.stop()")
}
