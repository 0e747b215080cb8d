package gen

import (
	"github.com/slowlang/lirgen/compiler/ir"
	"github.com/slowlang/lirgen/compiler/lir"
)

// stateFor captures s with the operands known right now.
// Each call returns a new FrameInfo.
func (g *Generator) stateFor(s *ir.FrameState) *lir.FrameInfo {
	if s == nil {
		return nil
	}

	return &lir.FrameInfo{
		Method: s.Method,
		BCI:    s.BCI,
		Locals: g.stateOperands(s.Locals),
		Stack:  g.stateOperands(s.Stack),
		Locks:  g.stateOperands(s.Locks),
		Outer:  g.stateFor(s.Outer),
	}
}

func (g *Generator) stateOperands(vs []ir.Value) []lir.Operand {
	if len(vs) == 0 {
		return nil
	}

	ops := make([]lir.Operand, len(vs))

	for i, v := range vs {
		if g.g.IsLive(v) {
			ops[i] = g.operand(v)
		}
	}

	return ops
}

// deoptStub allocates a recovery entry for info.
func (g *Generator) deoptStub(info *lir.FrameInfo, reason string) lir.Label {
	l := g.m.NewLabel()

	g.m.Stubs = append(g.m.Stubs, lir.DeoptStub{
		Label:  l,
		Info:   info,
		Reason: reason,
	})

	return l
}

func (g *Generator) visitGuard(x ir.Guard) {
	left := g.item(x.X)
	right := g.item(x.Y)

	left.loadItem()
	right.loadNonconstant()

	info := g.stateFor(x.State)
	stub := g.deoptStub(info, x.Reason)

	k := g.g.Kind(x.X)

	unordered := lir.NoLabel
	if k.IsFloating() {
		unordered = stub
	}

	g.emit(lir.Cmp{Cond: x.Cond, X: left.result(), Y: right.result()})
	g.emit(lir.Branch{Cond: x.Cond.Negate(), Kind: k, Target: stub, Unordered: unordered})
}

func (g *Generator) visitDeoptimize(x ir.Deoptimize) {
	info := g.stateFor(x.State)
	stub := g.deoptStub(info, x.Reason)

	g.emit(lir.Jump{Target: stub})
}
