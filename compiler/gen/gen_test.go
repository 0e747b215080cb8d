package gen

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/lirgen/compiler/ir"
	"github.com/slowlang/lirgen/compiler/lir"
	"github.com/slowlang/lirgen/compiler/snippet"
	"github.com/slowlang/lirgen/compiler/target"
)

// swapLoop is
//
//	p, q, z := 5, a, a
//	for p < q {
//		p, q, z = q, p, p
//	}
//	return z
func swapLoop() (b *ir.Builder, p, q, z, a ir.Value) {
	b = ir.NewBuilder("swap", ir.Int)

	entry := b.Block()
	head := b.Block()
	body := b.Block()
	exit := b.Block()

	head.LoopHeader, head.LoopDepth = true, 1
	body.LoopEnd, body.LoopDepth = true, 1

	a = b.Param(ir.Int)
	five := b.Int(5)

	b.Goto(entry, head)

	p = b.Phi(head, ir.Int, 0)
	q = b.Phi(head, ir.Int, 1)
	z = b.Phi(head, ir.Int, 2)

	b.Terminate(head, ir.If{X: p, Y: q, Cond: ir.LT, True: body.ID, False: exit.ID})
	b.Goto(body, head)
	b.Return(exit, z)

	b.SetInputs(p, five, q)
	b.SetInputs(q, a, p)
	b.SetInputs(z, a, p)

	return b, p, q, z, a
}

func TestGenerateMergeSwap(t *testing.T) {
	b, p, q, z, a := swapLoop()

	gen := New(b.G, target.AMD64(), target.NewFrameMap(target.AMD64()), snippet.NewDefault(), DefaultConfig())

	m, err := gen.Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []ir.BlockID{0, 1, 2, 3}, m.Order)

	pv, qv, zv := gen.Operand(p), gen.Operand(q), gen.Operand(z)

	for _, o := range []lir.Operand{pv, qv, zv} {
		require.True(t, o.IsVariable())
	}

	// entry: a arrives in rsi
	st := machine{at(lir.Reg(4, ir.Int)): 7}
	st.run(m.Blocks[0])

	assert.Equal(t, int64(7), st.read(gen.Operand(a)))
	assert.Equal(t, int64(5), st.read(pv))
	assert.Equal(t, int64(7), st.read(qv))
	assert.Equal(t, int64(7), st.read(zv))

	// back edge: simultaneous swap
	st = machine{at(pv): 5, at(qv): 7, at(zv): 1}
	st.run(m.Blocks[2])

	assert.Equal(t, int64(7), st.read(pv))
	assert.Equal(t, int64(5), st.read(qv))
	assert.Equal(t, int64(5), st.read(zv))

	assert.Len(t, instrs[lir.Move](m.Blocks[2]), 4)

	jumps := instrs[lir.Jump](m.Blocks[2])
	require.Len(t, jumps, 1)
	assert.Equal(t, lir.BlockLabel(1), jumps[0].Target)

	// the branch block has two successors and emits no phi moves
	assert.Empty(t, instrs[lir.Move](m.Blocks[1]))
}

func TestGenerateBlockOnce(t *testing.T) {
	b, blk := twoBlocks(ir.Void)
	b.Return(blk, ir.Nil)

	g := blockGen(target.AMD64(), b, blk)
	g.endBlock()

	assert.Panics(t, func() { g.doBlock(blk) })
}

func TestGenerateParams(t *testing.T) {
	b := ir.NewBuilder("params", ir.Long)
	entry := b.Block()

	x := b.Param(ir.Int)
	o := b.Param(ir.Object)
	l := b.Param(ir.Long)
	b.Return(entry, l)

	for _, tc := range []struct {
		arch target.Arch
		locs []lir.Operand
	}{
		{arch: target.AMD64(), locs: []lir.Operand{lir.Reg(4, ir.Int), lir.Reg(2, ir.Object), lir.Reg(1, ir.Long)}},
		{arch: target.X86(), locs: []lir.Operand{lir.Reg(1, ir.Int), lir.Reg(2, ir.Object), lir.Slot(0, ir.Long, true)}},
	} {
		t.Run(tc.arch.Name(), func(t *testing.T) {
			g := New(b.G, tc.arch, target.NewFrameMap(tc.arch), snippet.NewDefault(), DefaultConfig())

			m, err := g.Generate(context.Background())
			require.NoError(t, err)

			moves := instrs[lir.Move](m.Blocks[entry.ID])
			require.Len(t, moves, 4)

			for i, p := range []ir.Value{x, o, l} {
				assert.Equal(t, lir.Move{Dst: g.Operand(p), Src: tc.locs[i]}, moves[i])
			}

			assert.Equal(t, lir.Move{Dst: tc.arch.ReturnRegister(ir.Long), Src: g.Operand(l)}, moves[3])

			rets := instrs[lir.Return](m.Blocks[entry.ID])
			require.Len(t, rets, 1)
			assert.Equal(t, tc.arch.ReturnRegister(ir.Long), rets[0].Result)
		})
	}
}

func TestGenerateJavaCallPointerSlots(t *testing.T) {
	b := ir.NewBuilder("caller", ir.Void)
	entry := b.Block()

	var args []ir.Value
	for i := 0; i < 7; i++ {
		args = append(args, b.Param(ir.Object))
	}

	args = append(args, b.Int(3))

	kinds := []ir.Kind{ir.Object, ir.Object, ir.Object, ir.Object, ir.Object, ir.Object, ir.Object, ir.Int}

	b.Add(entry, ir.Invoke{
		Op:     ir.InvokeStatic,
		Target: ir.Method{Holder: "A", Name: "many", Params: kinds, Result: ir.Void},
		Args:   args,
		State:  &ir.FrameState{Method: "caller", BCI: 1},
	}, ir.Void)
	b.Return(entry, ir.Nil)

	m := generate(t, target.AMD64(), b.G, DefaultConfig())

	calls := instrs[lir.Call](m.Blocks[entry.ID])
	require.Len(t, calls, 1)

	c := calls[0]

	assert.Equal(t, lir.Illegal, c.Result)
	assert.Equal(t, []lir.Operand{lir.Slot(0, ir.Object, false)}, c.PointerSlots)
	assert.Equal(t, lir.Slot(8, ir.Int, false), c.Args[7])
	assert.NotNil(t, c.Info)
	assert.Equal(t, 16, m.OutgoingSize)

	var stored bool
	for _, mv := range instrs[lir.Move](m.Blocks[entry.ID]) {
		if mv.Dst == c.Args[7] {
			stored = true
			assert.Equal(t, lir.Constant(ir.IntConst(3)), mv.Src, "constant stored directly")
		}
	}

	assert.True(t, stored)
}

func TestGenerateRuntimeConversion(t *testing.T) {
	b := ir.NewBuilder("conv", ir.Double)
	entry := b.Block()

	x := b.Param(ir.Long)
	d := b.Add(entry, ir.Convert{Op: ir.L2D, X: x}, ir.Double)
	b.Return(entry, d)

	x86 := generate(t, target.X86(), b.G, DefaultConfig())

	calls := instrs[lir.Call](x86.Blocks[entry.ID])
	require.Len(t, calls, 1)
	assert.Equal(t, lir.RuntimeCall, calls[0].Code)
	assert.Equal(t, "l2d", calls[0].Target)
	assert.Contains(t, x86.GlobalStubs, "l2d")

	var unaligned int
	for _, mv := range instrs[lir.Move](x86.Blocks[entry.ID]) {
		if mv.Unaligned {
			unaligned++
			assert.Equal(t, lir.Slot(0, ir.Long, false), mv.Dst)
		}
	}

	assert.Equal(t, 1, unaligned)

	amd := generate(t, target.AMD64(), b.G, DefaultConfig())

	assert.Empty(t, instrs[lir.Call](amd.Blocks[entry.ID]))
	assert.Len(t, instrs[lir.Op1](amd.Blocks[entry.ID]), 1)
}

func TestGenerateTwoOperandMode(t *testing.T) {
	b := ir.NewBuilder("arith", ir.Int)
	entry := b.Block()

	x := b.Param(ir.Int)
	y := b.Param(ir.Int)
	s := b.Add(entry, ir.Arith{Op: ir.Sub, X: x, Y: y}, ir.Int)
	b.Return(entry, s)

	amd := New(b.G, target.AMD64(), target.NewFrameMap(target.AMD64()), snippet.NewDefault(), DefaultConfig())
	m, err := amd.Generate(context.Background())
	require.NoError(t, err)

	ops := instrs[lir.Op2](m.Blocks[entry.ID])
	require.Len(t, ops, 1)
	assert.Equal(t, ops[0].Result, ops[0].X)
	assert.Contains(t, instrs[lir.Move](m.Blocks[entry.ID]), lir.Move{Dst: amd.Operand(s), Src: amd.Operand(x)})

	arm := New(b.G, target.ARM64(), target.NewFrameMap(target.ARM64()), snippet.NewDefault(), DefaultConfig())
	m, err = arm.Generate(context.Background())
	require.NoError(t, err)

	ops = instrs[lir.Op2](m.Blocks[entry.ID])
	require.Len(t, ops, 1)
	assert.Equal(t, arm.Operand(x), ops[0].X)
	assert.Equal(t, arm.Operand(s), ops[0].Result)
}

func TestGenerateMultiplyByConstant(t *testing.T) {
	for _, tc := range []struct {
		c     int32
		codes []lir.Code
	}{
		{8, []lir.Code{lir.Shl}},
		{5, []lir.Code{lir.Shl, lir.Add}},
		{7, []lir.Code{lir.Shl, lir.Sub}},
		{6, []lir.Code{lir.Mul}},
	} {
		b := ir.NewBuilder("mul", ir.Int)
		entry := b.Block()

		x := b.Param(ir.Int)
		r := b.Add(entry, ir.Arith{Op: ir.Mul, X: b.Int(tc.c), Y: x}, ir.Int)
		b.Return(entry, r)

		m := generate(t, target.ARM64(), b.G, DefaultConfig())

		var codes []lir.Code
		for _, op := range instrs[lir.Op2](m.Blocks[entry.ID]) {
			codes = append(codes, op.Code)
		}

		assert.Equal(t, tc.codes, codes, "x * %d", tc.c)
	}
}

func TestGenerateDivision(t *testing.T) {
	b := ir.NewBuilder("div", ir.Int)
	entry := b.Block()

	x := b.Param(ir.Int)
	y := b.Param(ir.Int)
	st := &ir.FrameState{Method: "div", BCI: 4, Stack: []ir.Value{x, y}}
	q := b.Add(entry, ir.Arith{Op: ir.Div, X: x, Y: y, State: st}, ir.Int)
	r := b.Add(entry, ir.Arith{Op: ir.Rem, X: q, Y: b.Int(3)}, ir.Int)
	b.Return(entry, r)

	m := generate(t, target.AMD64(), b.G, DefaultConfig())

	ops := instrs[lir.Op2](m.Blocks[entry.ID])
	require.Len(t, ops, 2)

	assert.Equal(t, lir.Div, ops[0].Code)
	assert.Equal(t, lir.Reg(0, ir.Int), ops[0].Result)
	assert.Equal(t, lir.Reg(0, ir.Int), ops[0].X)
	assert.Equal(t, lir.Reg(2, ir.Int), ops[0].Temp)
	require.NotNil(t, ops[0].Info)
	assert.Equal(t, 4, ops[0].Info.BCI)

	assert.Equal(t, lir.Rem, ops[1].Code)
	assert.Equal(t, lir.Reg(2, ir.Int), ops[1].Result)
	assert.Nil(t, ops[1].Info, "constant divisor needs no zero check")

	arm := generate(t, target.ARM64(), b.G, DefaultConfig())

	ops = instrs[lir.Op2](arm.Blocks[entry.ID])
	require.Len(t, ops, 2)
	assert.True(t, ops[0].Result.IsVariable())
}

func TestGenerateShiftCount(t *testing.T) {
	b := ir.NewBuilder("shift", ir.Int)
	entry := b.Block()

	x := b.Param(ir.Int)
	n := b.Param(ir.Int)
	s1 := b.Add(entry, ir.Shift{Op: ir.Shl, X: x, Y: n}, ir.Int)
	s2 := b.Add(entry, ir.Shift{Op: ir.Ushr, X: s1, Y: b.Int(33)}, ir.Int)
	b.Return(entry, s2)

	m := generate(t, target.AMD64(), b.G, DefaultConfig())

	ops := instrs[lir.Op2](m.Blocks[entry.ID])
	require.Len(t, ops, 2)

	assert.Equal(t, lir.Reg(1, ir.Int), ops[0].Y)
	assert.Equal(t, lir.Constant(ir.IntConst(1)), ops[1].Y, "count is masked")
}

func TestGenerateGuard(t *testing.T) {
	b := ir.NewBuilder("guard", ir.Int)
	entry := b.Block()

	x := b.Param(ir.Int)
	st := &ir.FrameState{Method: "guard", BCI: 9, Locals: []ir.Value{x}}
	b.Add(entry, ir.Guard{X: x, Y: b.Int(0), Cond: ir.GE, Reason: "negative", State: st}, ir.Void)
	b.Return(entry, x)

	g := New(b.G, target.AMD64(), target.NewFrameMap(target.AMD64()), snippet.NewDefault(), DefaultConfig())

	m, err := g.Generate(context.Background())
	require.NoError(t, err)

	require.Len(t, m.Stubs, 1)

	stub := m.Stubs[0]
	assert.Equal(t, "negative", stub.Reason)
	assert.Equal(t, 9, stub.Info.BCI)
	assert.Equal(t, []lir.Operand{g.Operand(x)}, stub.Info.Locals)

	br := instrs[lir.Branch](m.Blocks[entry.ID])
	require.Len(t, br, 1)
	assert.Equal(t, ir.LT, br[0].Cond)
	assert.Equal(t, stub.Label, br[0].Target)
}

func TestGenerateDeoptimize(t *testing.T) {
	b := ir.NewBuilder("deopt", ir.Void)
	entry := b.Block()

	b.Terminate(entry, ir.Deoptimize{Reason: "unreached", State: &ir.FrameState{Method: "deopt"}})

	m := generate(t, target.ARM64(), b.G, DefaultConfig())

	require.Len(t, m.Stubs, 1)

	jumps := instrs[lir.Jump](m.Blocks[entry.ID])
	require.Len(t, jumps, 1)
	assert.Equal(t, m.Stubs[0].Label, jumps[0].Target)
	assert.GreaterOrEqual(t, int(m.Stubs[0].Label), len(m.Blocks))
}

func TestGenerateThrow(t *testing.T) {
	for _, handled := range []bool{true, false} {
		b := ir.NewBuilder("throw", ir.Void)
		entry := b.Block()

		ex := b.Param(ir.Object)
		th := ir.Throw{Exception: ex, Handled: handled, State: &ir.FrameState{Method: "throw", BCI: 2}}

		var h *ir.Block

		if handled {
			h = b.Block()
			h.Handler = true
			th.Handler = h.ID

			caught := b.Add(h, ir.ExceptionObject{}, ir.Object)
			b.Terminate(h, ir.Unwind{Exception: caught})
		}

		b.Terminate(entry, th)

		g := New(b.G, target.AMD64(), target.NewFrameMap(target.AMD64()), snippet.NewDefault(), DefaultConfig())

		m, err := g.Generate(context.Background())
		require.NoError(t, err)

		code := m.Blocks[entry.ID]

		nc := instrs[lir.NullCheck](code)
		require.Len(t, nc, 1)
		assert.Equal(t, g.Operand(ex), nc[0].X)

		throws := instrs[lir.Throw](code)
		require.Len(t, throws, 1)
		assert.Equal(t, !handled, throws[0].Unwind)
		assert.Equal(t, target.AMD64().ExceptionRegister(), throws[0].Exception)
		assert.NotSame(t, nc[0].Info, throws[0].Info)

		assert.Contains(t, instrs[lir.Move](code), lir.Move{Dst: throws[0].Exception, Src: g.Operand(ex)})

		if !handled {
			assert.Equal(t, lir.NoLabel, throws[0].Handler)
			assert.Equal(t, []ir.BlockID{entry.ID}, m.Order)

			continue
		}

		assert.Equal(t, lir.BlockLabel(h.ID), throws[0].Handler)
		assert.Equal(t, []ir.BlockID{entry.ID, h.ID}, m.Order)

		hcode := m.Blocks[h.ID]
		require.NotNil(t, hcode)
		assert.Equal(t, lir.Bind{Label: lir.BlockLabel(h.ID)}, hcode[0])

		unwind := instrs[lir.Throw](hcode)
		require.Len(t, unwind, 1)
		assert.True(t, unwind[0].Unwind)
		assert.Equal(t, lir.NoLabel, unwind[0].Handler)
	}
}

func TestGenerateExceptionHandler(t *testing.T) {
	b := ir.NewBuilder("handler", ir.Void)
	entry := b.Block()

	ex := b.Add(entry, ir.ExceptionObject{}, ir.Object)
	b.Terminate(entry, ir.Unwind{Exception: ex})

	g := New(b.G, target.X86(), target.NewFrameMap(target.X86()), snippet.NewDefault(), DefaultConfig())

	m, err := g.Generate(context.Background())
	require.NoError(t, err)

	code := m.Blocks[entry.ID]

	assert.Contains(t, instrs[lir.Move](code), lir.Move{Dst: g.Operand(ex), Src: target.X86().ExceptionRegister()})

	th := instrs[lir.Throw](code)
	require.Len(t, th, 1)
	assert.True(t, th[0].Unwind)
	assert.Equal(t, lir.NoLabel, th[0].Handler)
	assert.Nil(t, th[0].Info)
}

func TestGenerateDeadPhiInput(t *testing.T) {
	for _, killed := range []bool{true, false} {
		b := ir.NewBuilder("dead", ir.Int)

		entry := b.Block()
		l := b.Block()
		r := b.Block()
		join := b.Block()

		x := b.Param(ir.Int)
		b.Terminate(entry, ir.If{X: x, Y: b.Int(0), Cond: ir.EQ, True: l.ID, False: r.ID})

		in := ir.Nil
		if killed {
			in = b.Add(l, ir.Arith{Op: ir.Add, X: x, Y: b.Int(1)}, ir.Int)
			b.Kill(in)
		}

		b.Goto(l, join)
		b.Goto(r, join)

		p := b.Phi(join, ir.Int, 0)
		b.SetInputs(p, in, x)
		b.Return(join, p)

		g := New(b.G, target.AMD64(), target.NewFrameMap(target.AMD64()), snippet.NewDefault(), DefaultConfig())

		m, err := g.Generate(context.Background())
		require.NoError(t, err)

		lcode := m.Blocks[l.ID]

		assert.Empty(t, instrs[lir.Move](lcode))
		assert.Empty(t, instrs[lir.Op2](lcode))
		assert.Len(t, lcode, 2) // bind, jump

		if killed {
			assert.True(t, g.Operand(in).IsIllegal())
		}

		moves := instrs[lir.Move](m.Blocks[r.ID])
		require.Len(t, moves, 1)
		assert.Equal(t, lir.Move{Dst: g.Operand(p), Src: g.Operand(x)}, moves[0])
	}
}

func TestGenerateConstantCache(t *testing.T) {
	b := ir.NewBuilder("consts", ir.Int)
	entry := b.Block()
	next := b.Block()

	x := b.Param(ir.Int)
	hundred := b.Int(100)

	s1 := b.Add(entry, ir.Arith{Op: ir.Sub, X: hundred, Y: x}, ir.Int)
	s2 := b.Add(entry, ir.Arith{Op: ir.Sub, X: hundred, Y: s1}, ir.Int)
	b.Goto(entry, next)

	s3 := b.Add(next, ir.Arith{Op: ir.Sub, X: hundred, Y: s2}, ir.Int)
	b.Return(next, s3)

	m := generate(t, target.ARM64(), b.G, DefaultConfig())

	count := func(code []lir.Instr) (n int) {
		for _, mv := range instrs[lir.Move](code) {
			if mv.Src == lir.Constant(ir.IntConst(100)) {
				n++
			}
		}

		return n
	}

	assert.Equal(t, 1, count(m.Blocks[entry.ID]))
	assert.Equal(t, 1, count(m.Blocks[next.ID]))
}

func TestGenerateProxyInState(t *testing.T) {
	b := ir.NewBuilder("proxy", ir.Object)
	entry := b.Block()

	o := b.Param(ir.Object)
	px := b.Value(ir.Proxy{X: o}, ir.Object)

	st := &ir.FrameState{Method: "proxy", Locals: []ir.Value{px}}
	f := b.Add(entry, ir.LoadField{Object: o, Field: ir.Field{Name: "next", Offset: 16, Kind: ir.Object}, State: st}, ir.Object)
	b.Return(entry, f)

	g := New(b.G, target.AMD64(), target.NewFrameMap(target.AMD64()), snippet.NewDefault(), DefaultConfig())

	m, err := g.Generate(context.Background())
	require.NoError(t, err)

	loads := instrs[lir.Load](m.Blocks[entry.ID])
	require.Len(t, loads, 1)
	require.NotNil(t, loads[0].Info)

	assert.Equal(t, []lir.Operand{g.Operand(o)}, loads[0].Info.Locals)
	assert.Equal(t, g.Operand(o), g.Operand(px))
}

func TestGenerateFieldStore(t *testing.T) {
	b := ir.NewBuilder("store", ir.Void)
	entry := b.Block()

	o := b.Param(ir.Object)
	x := b.Param(ir.Int)
	f := ir.Field{Name: "flag", Offset: 12, Kind: ir.Byte}
	b.Add(entry, ir.StoreField{Object: o, Field: f, Value: x}, ir.Void)
	b.Add(entry, ir.StoreField{Object: o, Field: f, Value: b.Int(1)}, ir.Void)
	b.Return(entry, ir.Nil)

	g := New(b.G, target.X86(), target.NewFrameMap(target.X86()), snippet.NewDefault(), DefaultConfig())

	m, err := g.Generate(context.Background())
	require.NoError(t, err)

	stores := instrs[lir.Store](m.Blocks[entry.ID])
	require.Len(t, stores, 2)

	assert.True(t, m.IsByteVariable(stores[0].Value))
	assert.Equal(t, lir.Constant(ir.IntConst(1)), stores[1].Value)
}

func TestGenerateGraphTooLarge(t *testing.T) {
	b, _, _, _, _ := swapLoop()

	cfg := DefaultConfig()
	cfg.MaxGraphNodes = 3

	_, err := New(b.G, target.AMD64(), target.NewFrameMap(target.AMD64()), snippet.NewDefault(), cfg).Generate(context.Background())

	var bail *Bailout
	require.True(t, errors.As(err, &bail))
	assert.Equal(t, "swap", bail.Method)
}

func TestGenerateContractViolationPanics(t *testing.T) {
	b := ir.NewBuilder("bad", ir.Int)
	entry := b.Block()

	orphan := b.Value(ir.Negate{X: b.Int(1)}, ir.Int)
	b.Return(entry, orphan)

	g := New(b.G, target.AMD64(), target.NewFrameMap(target.AMD64()), snippet.NewDefault(), DefaultConfig())

	assert.Panics(t, func() { _, _ = g.Generate(context.Background()) })
}

func TestLinearize(t *testing.T) {
	b := ir.NewBuilder("lin", ir.Void)

	entry := b.Block()
	head := b.Block()
	exit := b.Block()
	body := b.Block()

	head.LoopHeader, head.LoopDepth = true, 1
	body.LoopEnd, body.LoopDepth = true, 1

	x := b.Param(ir.Int)

	b.Goto(entry, head)
	b.Terminate(head, ir.If{X: x, Y: b.Int(0), Cond: ir.NE, True: exit.ID, False: body.ID})
	b.Goto(body, head)
	b.Return(exit, ir.Nil)

	assert.Equal(t, []ir.BlockID{entry.ID, head.ID, body.ID, exit.ID}, Linearize(b.G))
}
