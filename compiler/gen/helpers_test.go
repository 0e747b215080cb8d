package gen

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/slowlang/lirgen/compiler/ir"
	"github.com/slowlang/lirgen/compiler/lir"
	"github.com/slowlang/lirgen/compiler/snippet"
	"github.com/slowlang/lirgen/compiler/target"
)

type (
	// machine executes moves over operand locations.
	machine map[location]int64

	location struct {
		tag    lir.Tag
		index  int
		caller bool
	}
)

func at(o lir.Operand) location {
	return location{tag: o.Tag, index: o.Index, caller: o.Caller}
}

func (m machine) read(o lir.Operand) int64 {
	if o.IsConstant() {
		return o.Const.Bits
	}

	return m[at(o)]
}

func (m machine) run(code []lir.Instr) {
	for _, x := range code {
		if mv, ok := x.(lir.Move); ok {
			m[at(mv.Dst)] = m.read(mv.Src)
		}
	}
}

func instrs[T lir.Instr](code []lir.Instr) (r []T) {
	for _, x := range code {
		if y, ok := x.(T); ok {
			r = append(r, y)
		}
	}

	return r
}

func generate(t *testing.T, a target.Arch, g *ir.Graph, cfg Config) *lir.Method {
	t.Helper()

	m, err := New(g, a, target.NewFrameMap(a), snippet.NewDefault(), cfg).Generate(context.Background())
	require.NoError(t, err)

	return m
}

// blockGen returns a generator positioned inside a non-entry block.
func blockGen(a target.Arch, b *ir.Builder, blk *ir.Block) *Generator {
	g := New(b.G, a, target.NewFrameMap(a), snippet.NewDefault(), DefaultConfig())
	g.beginBlock(blk)

	return g
}

// twoBlocks returns a builder with an empty entry block and a work block.
func twoBlocks(result ir.Kind) (*ir.Builder, *ir.Block) {
	b := ir.NewBuilder("test", result)
	b.Block()

	return b, b.Block()
}

func code(g *Generator, blk *ir.Block) []lir.Instr {
	return g.m.Blocks[blk.ID]
}
