package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_StructuralIndentation(t *testing.T) {
	t.Parallel()

	s := New()
	root := s.Root()
	root.Line("a = 1")
	body := root.Open("if a:")
	body.Line("b = 2")
	inner := body.Open("if b:")
	inner.Line("c = 3")
	root.Line("d = 4")

	expected := "a = 1\n" +
		"if a:\n" +
		"    b = 2\n" +
		"    if b:\n" +
		"        c = 3\n" +
		"d = 4\n"
	require.Equal(t, expected, s.Render())
}

func TestRender_OpenClosedWritesCloserAtParentDepth(t *testing.T) {
	t.Parallel()

	s := NewWithIndent("  ")
	fn := s.Root().OpenClosed("function f() {", "}")
	fn.Line("return 1;")

	require.Equal(t, "function f() {\n  return 1;\n}\n", s.Render())
}

func TestRender_SectionKeepsDepthAndFillsLater(t *testing.T) {
	t.Parallel()

	s := New()
	root := s.Root()
	root.Line("first")
	section := root.Section()
	root.Line("last")

	// filled after subsequent writes, renders in place
	section.Line("middle")

	require.Equal(t, "first\nmiddle\nlast\n", s.Render())
}

func TestRender_BlankLinesCarryNoIndent(t *testing.T) {
	t.Parallel()

	s := New()
	body := s.Root().Open("if x:")
	body.Line("pass")
	body.Blank()
	body.Line("pass")

	assert.Equal(t, "if x:\n    pass\n\n    pass\n", s.Render())
}

func TestLinesOnce_DeduplicatesAcrossBlocks(t *testing.T) {
	t.Parallel()

	s := New()
	root := s.Root()
	root.LinesOnce("import os")
	root.LinesOnce("import os")
	child := root.Open("if x:")
	child.LinesOnce("import sys")

	assert.Equal(t, "import os\nif x:\n    import sys\n", s.Render())
}

func TestLines_SplitsMultilineText(t *testing.T) {
	t.Parallel()

	s := New()
	s.Root().Lines("a\nb\n")

	assert.Equal(t, "a\nb\n", s.Render())
}
