// Package codegen holds the output buffer for generated scripts.
//
// The buffer is a tree of blocks rather than a flat string with a mutable
// indent counter: a child block renders one indent level deeper than its
// parent and may carry a closing line (for brace languages). Indentation
// is computed structurally when the script is rendered, so a mismatched
// "decrement the indent level" bug cannot be expressed at all.
package codegen

import (
	"fmt"
	"strings"
)

// Script is the root of one generated script.
type Script struct {
	root   *Block
	once   map[string]struct{}
	indent string
}

// New creates an empty script indenting with four spaces.
func New() *Script {
	return NewWithIndent("    ")
}

// NewWithIndent creates an empty script with a custom indent unit.
func NewWithIndent(unit string) *Script {
	s := &Script{once: make(map[string]struct{}), indent: unit}
	s.root = &Block{script: s}
	return s
}

// Root returns the top-level block of the script.
func (s *Script) Root() *Block {
	return s.root
}

// Render serializes the block tree with structural indentation and "\n"
// line endings.
func (s *Script) Render() string {
	var sb strings.Builder
	s.root.render(&sb, s.indent, 0)
	return sb.String()
}

type node struct {
	line  string
	block *Block
}

// Block is one node in the script tree. Lines written to a block share its
// depth; blocks opened from it nest one level deeper.
type Block struct {
	script   *Script
	header   string
	closer   string
	indented bool
	nodes    []node
}

// Line appends a single line at the block's depth.
func (b *Block) Line(text string) {
	b.nodes = append(b.nodes, node{line: text})
}

// Linef appends a formatted line at the block's depth.
func (b *Block) Linef(format string, args ...any) {
	b.Line(fmt.Sprintf(format, args...))
}

// Lines appends each line of text at the block's depth.
func (b *Block) Lines(text string) {
	for _, line := range strings.Split(strings.TrimSuffix(text, "\n"), "\n") {
		b.Line(line)
	}
}

// Blank appends an empty line.
func (b *Block) Blank() {
	b.nodes = append(b.nodes, node{})
}

// LinesOnce appends the lines only if the same text has not been written
// anywhere in this script before. Used for one-time setup snippets.
func (b *Block) LinesOnce(text string) {
	if _, seen := b.script.once[text]; seen {
		return
	}
	b.script.once[text] = struct{}{}
	b.Lines(text)
}

// Open writes header at the block's depth and returns a child block one
// level deeper. Used for Python-style suites ("if x:" followed by an
// indented body).
func (b *Block) Open(header string) *Block {
	child := &Block{script: b.script, header: header, indented: true}
	b.nodes = append(b.nodes, node{block: child})
	return child
}

// Openf is Open with formatting.
func (b *Block) Openf(format string, args ...any) *Block {
	return b.Open(fmt.Sprintf(format, args...))
}

// OpenClosed is Open for brace languages: closer is written at the
// parent's depth after the child's lines ("{" ... "}").
func (b *Block) OpenClosed(header, closer string) *Block {
	child := b.Open(header)
	child.closer = closer
	return child
}

// Child returns a nested block one level deeper with no header line.
func (b *Block) Child() *Block {
	child := &Block{script: b.script, indented: true}
	b.nodes = append(b.nodes, node{block: child})
	return child
}

// Section returns a block at the same depth as b. Useful for reserving a
// slot (e.g. the device-setup section) that is filled in later while code
// after it is already being written.
func (b *Block) Section() *Block {
	child := &Block{script: b.script}
	b.nodes = append(b.nodes, node{block: child})
	return child
}

func (b *Block) render(sb *strings.Builder, unit string, depth int) {
	childDepth := depth
	if b.header != "" {
		writeLine(sb, unit, depth, b.header)
	}
	if b.indented {
		childDepth = depth + 1
	}
	for _, n := range b.nodes {
		if n.block != nil {
			n.block.render(sb, unit, childDepth)
			continue
		}
		writeLine(sb, unit, childDepth, n.line)
	}
	if b.closer != "" {
		writeLine(sb, unit, depth, b.closer)
	}
}

func writeLine(sb *strings.Builder, unit string, depth int, line string) {
	if line != "" {
		sb.WriteString(strings.Repeat(unit, depth))
		sb.WriteString(line)
	}
	sb.WriteByte('\n')
}
