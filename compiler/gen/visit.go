package gen

import (
	"fmt"
	"math/bits"

	"github.com/slowlang/lirgen/compiler/ir"
	"github.com/slowlang/lirgen/compiler/lir"
	"github.com/slowlang/lirgen/compiler/target"
)

func (g *Generator) visit(v ir.Value, x ir.Node) {
	switch x := x.(type) {
	case ir.Const:
		// materialized by users
	case ir.Param:
		if g.operands[v].IsIllegal() {
			panic(fmt.Sprintf("param v%d visited outside of entry", v))
		}
	case ir.Phi:
		g.operandForPhi(v)
	case ir.Arith:
		g.visitArith(v, x)
	case ir.Logic:
		g.binary(v, logicCodes[x.Op], x.X, x.Y, true)
	case ir.Shift:
		g.visitShift(v, x)
	case ir.Negate:
		in := g.item(x.X)
		in.loadItem()

		g.emit(lir.Op1{Code: lir.Neg, Result: g.newResult(v), X: in.result()})
	case ir.Convert:
		g.visitConvert(v, x)
	case ir.Compare:
		g.visitCompare(v, x)
	case ir.Conditional:
		g.visitConditional(v, x)
	case ir.NullCheck:
		obj := g.item(x.Object)
		obj.loadItem()

		g.emit(lir.NullCheck{X: obj.result(), Info: g.stateFor(x.State)})
		g.setResult(v, obj.result())
	case ir.Proxy:
		g.setResult(v, g.operand(x.X))
	case ir.LoadField:
		obj := g.item(x.Object)
		obj.loadItem()

		info := g.stateFor(x.State)

		g.emit(lir.Load{Result: g.newResult(v), Base: obj.result(), Disp: x.Field.Offset, Kind: x.Field.Kind, Info: info})
	case ir.StoreField:
		obj := g.item(x.Object)
		val := g.item(x.Value)

		obj.loadItem()
		val.loadForStore(x.Field.Kind)

		info := g.stateFor(x.State)

		g.emit(lir.Store{Base: obj.result(), Disp: x.Field.Offset, Value: val.result(), Kind: x.Field.Kind, Info: info})
	case ir.ArrayLength:
		arr := g.item(x.Array)
		arr.loadItem()

		info := g.stateFor(x.State)

		g.emit(lir.Load{Result: g.newResult(v), Base: arr.result(), Disp: g.ArrayLengthOffset, Kind: ir.Int, Info: info})
	case ir.LoadIndexed:
		g.visitTemplate(v, g.rt.LoadIndexed(x.Elem, x.Array, x.Index), x.State)
	case ir.StoreIndexed:
		g.visitTemplate(v, g.rt.StoreIndexed(x.Elem, x.Array, x.Index, x.Value), x.State)
	case ir.NewInstance:
		g.visitTemplate(v, g.rt.NewInstance(x.Type), x.State)
	case ir.NewArray:
		g.visitTemplate(v, g.rt.NewArray(x.Elem, x.Length), x.State)
	case ir.CheckCast:
		g.visitTemplate(v, g.rt.CheckCast(x.Object, x.Type), x.State)
	case ir.InstanceOf:
		g.visitTemplate(v, g.rt.InstanceOf(x.Object, x.Type), x.State)
	case ir.MonitorEnter:
		g.visitTemplate(v, g.rt.MonitorEnter(x.Object, x.Lock), x.State)
	case ir.MonitorExit:
		g.visitTemplate(v, g.rt.MonitorExit(x.Object, x.Lock), x.State)
	case ir.Invoke:
		g.visitInvoke(v, x)
	case ir.Intrinsic:
		g.visitIntrinsic(v, x)
	case ir.MemoryBarrier:
		g.emit(lir.MemBar{Barriers: x.Barriers})
	case ir.ExceptionObject:
		g.emit(lir.Move{Dst: g.newResult(v), Src: g.arch.ExceptionRegister()})
	case ir.Guard:
		g.visitGuard(x)
	case ir.Deoptimize:
		g.visitDeoptimize(x)
	case ir.Goto:
		if x.Safepoint {
			g.xir(g.rt.Safepoint(), x.State)
		}

		g.moveToPhi()
		g.emit(lir.Jump{Target: lir.BlockLabel(x.Target)})
	case ir.If:
		g.visitIf(x)
	case ir.TableSwitch:
		g.visitTableSwitch(x)
	case ir.LookupSwitch:
		g.visitLookupSwitch(x)
	case ir.Return:
		g.visitReturn(x)
	case ir.Throw:
		g.visitThrow(x)
	case ir.Unwind:
		ex := g.item(x.Exception)
		ex.loadItem()

		er := g.arch.ExceptionRegister()

		g.emit(lir.Move{Dst: er, Src: ex.result()})
		g.emit(lir.Throw{Exception: er, Unwind: true, Handler: lir.NoLabel})
	default:
		panic(x)
	}
}

var arithCodes = [...]lir.Code{ir.Add: lir.Add, ir.Sub: lir.Sub, ir.Mul: lir.Mul, ir.Div: lir.Div, ir.Rem: lir.Rem}

var logicCodes = [...]lir.Code{ir.And: lir.And, ir.Or: lir.Or, ir.Xor: lir.Xor}

var shiftCodes = [...]lir.Code{ir.Shl: lir.Shl, ir.Shr: lir.Shr, ir.Ushr: lir.Ushr}

func (g *Generator) visitArith(v ir.Value, x ir.Arith) {
	k := g.g.Kind(v)

	switch {
	case k.IsFloating() && x.Op == ir.Rem:
		stub := "frem"
		if k == ir.Double {
			stub = "drem"
		}

		g.callRuntime(v, stub, target.RuntimeCall, []ir.Value{x.X, x.Y}, nil)
	case k.IsInteger() && (x.Op == ir.Div || x.Op == ir.Rem):
		g.divide(v, x)
	case x.Op == ir.Mul && k.IsInteger() && g.StrengthReduceMultiply && g.mulConst(v, x):
	default:
		g.binary(v, arithCodes[x.Op], x.X, x.Y, x.Op == ir.Add || x.Op == ir.Mul)
	}
}

// binary lowers res := x op y. Commutative ops keep a constant on the right.
func (g *Generator) binary(v ir.Value, code lir.Code, xv, yv ir.Value, commutative bool) {
	left := g.item(xv)
	right := g.item(yv)

	if commutative && left.isConstant() && !right.isConstant() {
		left, right = right, left
	}

	left.loadItem()
	right.loadNonconstant()

	g.op2(code, g.newResult(v), left.result(), right.result(), nil)
}

// op2 emits res := x op y, copying x into res first in two-operand mode.
func (g *Generator) op2(code lir.Code, res, x, y lir.Operand, info *lir.FrameInfo) {
	if g.arch.TwoOperandMode() && res != x {
		g.emit(lir.Move{Dst: res, Src: x})
		x = res
	}

	g.emit(lir.Op2{Code: code, Result: res, X: x, Y: y, Info: info})
}

// mulConst replaces multiplication by 2^k, 2^k+1 and 2^k-1 with shifts.
func (g *Generator) mulConst(v ir.Value, x ir.Arith) bool {
	xv, yv := x.X, x.Y

	c, ok := g.isConst(yv)
	if !ok {
		c, ok = g.isConst(xv)
		xv = yv
	}

	if !ok || c.Bits <= 1 {
		return false
	}

	n := uint64(c.Bits)

	var code lir.Code
	var shift int

	switch {
	case n&(n-1) == 0:
		code, shift = lir.Nop, bits.TrailingZeros64(n)
	case (n-1)&(n-2) == 0:
		code, shift = lir.Add, bits.TrailingZeros64(n-1)
	case (n+1)&n == 0:
		code, shift = lir.Sub, bits.TrailingZeros64(n+1)
	default:
		return false
	}

	left := g.item(xv)
	left.loadItem()

	count := lir.Constant(ir.IntConst(int32(shift)))
	res := g.newResult(v)

	if code == lir.Nop {
		g.op2(lir.Shl, res, left.result(), count, nil)
		return true
	}

	tmp := g.newVariable(res.Kind)

	g.op2(lir.Shl, tmp, left.result(), count, nil)
	g.op2(code, res, tmp, left.result(), nil)

	return true
}

func (g *Generator) divide(v ir.Value, x ir.Arith) {
	k := g.g.Kind(v)

	var info *lir.FrameInfo
	if c, ok := g.isConst(x.Y); !ok || c.Bits == 0 {
		info = g.stateFor(x.State)
	}

	if k == ir.Long && g.arch.WordSize() < 8 {
		stub := "ldiv"
		if x.Op == ir.Rem {
			stub = "lrem"
		}

		g.callRuntime(v, stub, target.RuntimeCall, []ir.Value{x.X, x.Y}, info)

		return
	}

	left := g.item(x.X)
	right := g.item(x.Y)

	left.loadItem()
	right.loadItem()

	dividend, quot, rem, ok := g.arch.DivisionRegisters()
	if !ok {
		g.emit(lir.Op2{Code: arithCodes[x.Op], Result: g.newResult(v), X: left.result(), Y: right.result(), Info: info})
		return
	}

	out, clobber := quot, rem
	if x.Op == ir.Rem {
		out, clobber = rem, quot
	}

	dv := lir.Reg(dividend, k)
	ro := lir.Reg(out, k)

	tmp := lir.Illegal
	if clobber != dividend {
		tmp = lir.Reg(clobber, k)
	}

	g.emit(lir.Move{Dst: dv, Src: left.result()})
	g.emit(lir.Op2{Code: arithCodes[x.Op], Result: ro, X: dv, Y: right.result(), Temp: tmp, Info: info})
	g.emit(lir.Move{Dst: g.newResult(v), Src: ro})
}

func (g *Generator) visitShift(v ir.Value, x ir.Shift) {
	left := g.item(x.X)
	left.loadItem()

	count := g.item(x.Y)

	var y lir.Operand

	if c, ok := g.isConst(x.Y); ok {
		mask := int32(31)
		if g.g.Kind(v) == ir.Long {
			mask = 63
		}

		y = lir.Constant(ir.IntConst(c.Int() & mask))
	} else if reg, ok := g.arch.ShiftCountRegister(); ok {
		count.loadItem()

		y = lir.Reg(reg, ir.Int)
		g.emit(lir.Move{Dst: y, Src: count.result()})
	} else {
		count.loadItem()
		y = count.result()
	}

	g.op2(shiftCodes[x.Op], g.newResult(v), left.result(), y, nil)
}

func (g *Generator) visitConvert(v ir.Value, x ir.Convert) {
	if !g.arch.SupportsConversion(x.Op) {
		g.callRuntime(v, x.Op.String(), target.RuntimeCall, []ir.Value{x.X}, nil)
		return
	}

	in := g.item(x.X)

	if x.Op == ir.I2B {
		in.loadByteItem()
	} else {
		in.loadItem()
	}

	g.emit(lir.Op1{Code: lir.Conv, Conv: x.Op, Result: g.newResult(v), X: in.result()})
}

func (g *Generator) visitCompare(v ir.Value, x ir.Compare) {
	left := g.item(x.X)
	right := g.item(x.Y)

	left.loadItem()
	right.loadItem()

	code := lir.Cmp3

	if g.g.Kind(x.X).IsFloating() {
		code = lir.FCmp3G
		if x.NaNLess {
			code = lir.FCmp3L
		}
	}

	g.emit(lir.Op2{Code: code, Result: g.newResult(v), X: left.result(), Y: right.result()})
}

func (g *Generator) visitConditional(v ir.Value, x ir.Conditional) {
	left := g.item(x.X)
	right := g.item(x.Y)

	left.loadItem()
	right.loadNonconstant()

	t := g.operand(x.True)
	f := g.operand(x.False)

	g.emit(lir.Cmp{Cond: x.Cond, X: left.result(), Y: right.result()})
	g.emit(lir.CMove{Cond: x.Cond, Result: g.newResult(v), True: t, False: f, Unordered: x.Unordered})
}

func (g *Generator) visitIntrinsic(v ir.Value, x ir.Intrinsic) {
	switch x.Op {
	case ir.Abs, ir.Sqrt:
		in := g.item(x.X)
		in.loadItem()

		code := lir.Abs
		if x.Op == ir.Sqrt {
			code = lir.Sqrt
		}

		g.emit(lir.Op1{Code: code, Result: g.newResult(v), X: in.result()})
	default:
		g.callRuntime(v, x.Op.String(), target.NativeCall, []ir.Value{x.X}, nil)
	}
}

func (g *Generator) visitIf(x ir.If) {
	left := g.item(x.X)
	right := g.item(x.Y)
	cond := x.Cond

	if left.isConstant() && !right.isConstant() && cond != ir.BT && cond != ir.AE {
		left, right = right, left
		cond = cond.Mirror()
	}

	left.loadItem()
	right.loadNonconstant()

	if x.Safepoint {
		g.xir(g.rt.Safepoint(), x.State)
	}

	g.moveToPhi()

	k := g.g.Kind(x.X)

	unordered := lir.NoLabel
	if k.IsFloating() {
		unordered = lir.BlockLabel(x.False)
		if x.Unordered {
			unordered = lir.BlockLabel(x.True)
		}
	}

	g.emit(lir.Cmp{Cond: cond, X: left.result(), Y: right.result()})
	g.emit(lir.Branch{Cond: cond, Kind: k, Target: lir.BlockLabel(x.True), Unordered: unordered})
	g.emit(lir.Jump{Target: lir.BlockLabel(x.False)})
}

func (g *Generator) visitReturn(x ir.Return) {
	ret := lir.Illegal

	if x.Result != ir.Nil {
		ret = g.arch.ReturnRegister(g.g.Kind(x.Result))
		g.emit(lir.Move{Dst: ret, Src: g.operand(x.Result)})
	}

	g.xir(g.rt.Epilogue(), nil)
	g.emit(lir.Return{Result: ret})
}

func (g *Generator) visitThrow(x ir.Throw) {
	ex := g.item(x.Exception)
	ex.loadItem()

	g.emit(lir.NullCheck{X: ex.result(), Info: g.stateFor(x.State)})

	er := g.arch.ExceptionRegister()

	g.emit(lir.Move{Dst: er, Src: ex.result()})
	handler := lir.NoLabel
	if x.Handled {
		handler = lir.BlockLabel(x.Handler)
	}

	g.emit(lir.Throw{Exception: er, Unwind: !x.Handled, Handler: handler, Info: g.stateFor(x.State)})
}
