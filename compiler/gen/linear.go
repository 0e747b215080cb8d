package gen

import (
	"nikand.dev/go/heap"

	"github.com/slowlang/lirgen/compiler/ir"
	"github.com/slowlang/lirgen/compiler/set"
)

// Linearize orders the blocks reachable from the entry.
// A block is placed after all its forward predecessors.
// Among ready blocks deeper loops go first, then lower ids,
// which keeps loop bodies contiguous.
func Linearize(g *ir.Graph) []ir.BlockID {
	wait := make([]int, len(g.Blocks))

	for _, b := range g.Blocks {
		for _, p := range b.Preds {
			if !backEdge(g.Block(p), b) {
				wait[b.ID]++
			}
		}
	}

	ready := heap.Heap[*ir.Block]{Less: blockLess}
	ready.Push(g.Block(g.Entry))

	var placed set.Bits[ir.BlockID]

	order := make([]ir.BlockID, 0, len(g.Blocks))

	for ready.Len() != 0 {
		b := ready.Pop()

		if placed.IsSet(b.ID) {
			continue
		}

		placed.Set(b.ID)
		order = append(order, b.ID)

		for _, s := range b.Succs {
			sb := g.Block(s)

			if backEdge(b, sb) {
				continue
			}

			wait[s]--

			if wait[s] == 0 {
				ready.Push(sb)
			}
		}
	}

	return order
}

func backEdge(from, to *ir.Block) bool {
	return from.LoopEnd && to.LoopHeader
}

func blockLess(d []*ir.Block, i, j int) bool {
	if d[i].LoopDepth != d[j].LoopDepth {
		return d[i].LoopDepth > d[j].LoopDepth
	}

	return d[i].ID < d[j].ID
}
