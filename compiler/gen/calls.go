package gen

import (
	"github.com/slowlang/lirgen/compiler/ir"
	"github.com/slowlang/lirgen/compiler/lir"
	"github.com/slowlang/lirgen/compiler/target"
)

// arguments places args at the locations cc assigned them.
// It returns the locations and the stack slots holding objects.
func (g *Generator) arguments(cc *target.CallingConvention, args []ir.Value, ck target.CallKind) (locs, ptrs []lir.Operand) {
	g.fm.ReserveOutgoing(cc.StackSize)

	items := make([]*item, len(args))

	for i, a := range args {
		it := g.item(a)

		if loc := cc.Locations[i]; loc.IsStackSlot() {
			it.loadForStore(loc.Kind)
		} else {
			it.loadItem()
		}

		items[i] = it
	}

	for i, it := range items {
		loc := cc.Locations[i]

		if !loc.IsStackSlot() {
			g.emit(lir.Move{Dst: loc, Src: it.result()})
			continue
		}

		g.emit(lir.Move{
			Dst:       loc,
			Src:       it.result(),
			Unaligned: ck == target.RuntimeCall && loc.Kind.IsDoubleWord(),
		})

		if loc.Kind == ir.Object {
			ptrs = append(ptrs, loc)
		}
	}

	return cc.Locations, ptrs
}

func (g *Generator) argKinds(args []ir.Value) []ir.Kind {
	kinds := make([]ir.Kind, len(args))

	for i, a := range args {
		kinds[i] = g.g.Kind(a)
	}

	return kinds
}

// emitCall emits c and binds its return register to v.
func (g *Generator) emitCall(v ir.Value, c lir.Call) {
	k := g.g.Kind(v)
	if k == ir.Void {
		g.emit(c)
		return
	}

	c.Result = g.arch.ReturnRegister(k)
	g.emit(c)

	res := g.newResult(v)
	g.emit(lir.Move{Dst: res, Src: c.Result})
}

// callRuntime calls a global stub with args.
func (g *Generator) callRuntime(v ir.Value, stub string, ck target.CallKind, args []ir.Value, info *lir.FrameInfo) {
	cc := g.arch.CallingConvention(g.argKinds(args), ck, true)

	locs, ptrs := g.arguments(cc, args, ck)

	g.useGlobalStub(stub)

	code := lir.RuntimeCall
	if ck == target.NativeCall {
		code = lir.NativeCall
	}

	g.emitCall(v, lir.Call{
		Code:         code,
		Target:       stub,
		Args:         locs,
		PointerSlots: ptrs,
		Info:         info,
	})
}

func (g *Generator) visitInvoke(v ir.Value, x ir.Invoke) {
	info := g.stateFor(x.State)

	receiver := ir.Nil
	if x.Op.HasReceiver() {
		receiver = x.Args[0]
	}

	addr := g.xir(g.rt.Invoke(x.Op, x.Target, receiver), x.State)

	cc := g.arch.CallingConvention(g.argKinds(x.Args), target.JavaCall, true)
	locs, ptrs := g.arguments(cc, x.Args, target.JavaCall)

	code := lir.IndirectCall
	if addr.IsConstant() {
		code = lir.DirectCall
	}

	g.emitCall(v, lir.Call{
		Code:         code,
		Target:       x.Target.Holder + "." + x.Target.Name,
		Args:         locs,
		Address:      addr,
		PointerSlots: ptrs,
		Info:         info,
	})
}
