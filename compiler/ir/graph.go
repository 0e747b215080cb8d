package ir

import (
	"github.com/slowlang/lirgen/compiler/set"
)

type (
	// Graph is a method body in block form. Nodes and Kinds are indexed by
	// Value. Node operands are never stored here: the generator keeps its own
	// side table.
	Graph struct {
		Name   string
		Params []Value
		Result Kind

		Nodes []Node `tlog:"-"`
		Kinds []Kind `tlog:"-"`
		Dead  set.Bits[Value]

		Blocks []*Block `tlog:"-"`
		Entry  BlockID
		Order  []BlockID
	}

	Block struct {
		ID BlockID

		Code []Value

		Preds []BlockID
		Succs []BlockID

		// State lists the values live on entry of a merge block.
		// Phis of this block appear in it.
		State *FrameState

		LoopDepth  int
		LoopHeader bool
		LoopEnd    bool
		Handler    bool
	}

	FrameState struct {
		Method string
		BCI    int

		Locals []Value
		Stack  []Value
		Locks  []Value

		Outer *FrameState
	}
)

func (g *Graph) Node(v Value) Node { return g.Nodes[v] }
func (g *Graph) Kind(v Value) Kind { return g.Kinds[v] }

func (g *Graph) Block(id BlockID) *Block { return g.Blocks[id] }

func (g *Graph) IsLive(v Value) bool {
	return v != Nil && !g.Dead.IsSet(v)
}

// Terminator returns the last node of the block.
func (g *Graph) Terminator(b *Block) Node {
	if len(b.Code) == 0 {
		return nil
	}

	return g.Nodes[b.Code[len(b.Code)-1]]
}

// PredIndex is the position of pred among b.Preds or -1.
func (b *Block) PredIndex(pred BlockID) int {
	for i, p := range b.Preds {
		if p == pred {
			return i
		}
	}

	return -1
}

// Range calls f for every non-nil value of the state and its outer states.
func (s *FrameState) Range(f func(v Value) bool) {
	for ; s != nil; s = s.Outer {
		for _, l := range [][]Value{s.Stack, s.Locals, s.Locks} {
			for _, v := range l {
				if v == Nil {
					continue
				}

				if !f(v) {
					return
				}
			}
		}
	}
}

// Phis calls f for each live phi of block b listed in the state,
// stack first, then locals.
func (g *Graph) Phis(b *Block, f func(phi Value, x Phi)) {
	if b.State == nil {
		return
	}

	for _, l := range [][]Value{b.State.Stack, b.State.Locals} {
		for _, v := range l {
			if !g.IsLive(v) {
				continue
			}

			x, ok := g.Nodes[v].(Phi)
			if !ok || x.Block != b.ID {
				continue
			}

			f(v, x)
		}
	}
}
