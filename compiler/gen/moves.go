package gen

import (
	"fmt"

	"github.com/slowlang/lirgen/compiler/ir"
	"github.com/slowlang/lirgen/compiler/lir"
)

// moveToPhi assigns the phis of the only successor of the current block
// from this block's inputs. Nothing is done when the successor is not a merge.
func (g *Generator) moveToPhi() {
	b := g.block

	if len(b.Succs) != 1 {
		return
	}

	sux := g.g.Block(b.Succs[0])
	if len(sux.Preds) <= 1 {
		return
	}

	idx := sux.PredIndex(b.ID)
	if idx < 0 {
		panic(fmt.Sprintf("block %d is not a predecessor of %d", b.ID, sux.ID))
	}

	r := g.newPhiResolver()

	g.g.Phis(sux, func(phi ir.Value, x ir.Phi) {
		if idx >= len(x.Inputs) {
			panic(fmt.Sprintf("phi v%d has %d inputs, block %d has %d preds", phi, len(x.Inputs), sux.ID, len(sux.Preds)))
		}

		in := x.Inputs[idx]
		if in == phi || !g.g.IsLive(in) {
			return
		}

		r.Move(g.operand(in), g.operandForPhi(phi))
	})

	r.Dispose()
}

// operandForPhi allocates the variable all predecessors write the phi to.
func (g *Generator) operandForPhi(phi ir.Value) lir.Operand {
	if o := g.operands[phi]; o.IsLegal() {
		return o
	}

	if _, ok := g.g.Node(phi).(ir.Phi); !ok {
		panic(fmt.Sprintf("v%d is not a phi", phi))
	}

	return g.newResult(phi)
}
