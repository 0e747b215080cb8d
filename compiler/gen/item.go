package gen

import (
	"fmt"

	"github.com/slowlang/lirgen/compiler/ir"
	"github.com/slowlang/lirgen/compiler/lir"
)

type (
	// item binds one use of a value to its current best location.
	// It lives only while the user node is lowered.
	item struct {
		g *Generator

		value ir.Value
		kind  ir.Kind

		res lir.Operand

		destroys     bool
		intermediate lir.Operand
	}
)

func (g *Generator) item(v ir.Value) *item {
	return &item{
		g:     g,
		value: v,
		kind:  g.g.Kind(v),
		res:   g.operands[v],
	}
}

// loadItem makes the item a variable or a register.
// Constants come from the per-block constant cache.
func (it *item) loadItem() {
	if it.res.IsIllegal() {
		it.res = it.g.operand(it.value)
	}

	if it.res.IsVariableOrRegister() {
		return
	}

	it.intermediate = lir.Illegal

	if it.res.IsConstant() {
		it.res = it.g.loadConstant(it.res)
		return
	}

	v := it.g.newVariable(it.res.Kind)
	it.g.emit(lir.Move{Dst: v, Src: it.res})

	it.res = v
}

// loadForStore prepares the item to be stored to memory as kind k.
func (it *item) loadForStore(k ir.Kind) {
	if it.g.canStoreAsConstant(it.value, k) {
		it.res = it.g.operand(it.value)
		return
	}

	if k.IsByte() {
		it.loadByteItem()
	} else {
		it.loadItem()
	}
}

// loadByteItem loads the item into a byte addressable location.
func (it *item) loadByteItem() {
	it.loadItem()

	if !it.g.arch.RequiresByteRegisters() {
		return
	}

	r := it.res

	if it.g.m.IsByteVariable(r) || r.IsRegister() && it.g.arch.IsByteRegister(r.Index) {
		return
	}

	v := it.g.m.NewVariable(r.Kind, lir.ByteReg)
	it.g.emit(lir.Move{Dst: v, Src: r})

	it.res = v
}

// loadNonconstant keeps constants the target can inline, loads anything else.
func (it *item) loadNonconstant() {
	if it.res.IsIllegal() {
		it.res = it.g.operand(it.value)
	}

	if it.res.IsConstant() && it.g.arch.CanInlineConstant(it.res.Const) {
		return
	}

	it.loadItem()
}

func (it *item) setDestroysRegister() {
	it.destroys = true
}

// result is the operand the user should read. If the user destroys it,
// result is a private copy made once.
func (it *item) result() lir.Operand {
	if !it.destroys {
		return it.res
	}

	switch {
	case it.res.IsRegister():
		panic(fmt.Sprintf("v%d: destroyed physical register %v", it.value, it.res))
	case !it.res.IsVariable():
		return it.res
	}

	if it.intermediate.IsIllegal() {
		it.intermediate = it.g.newVariable(it.res.Kind)
		it.g.emit(lir.Move{Dst: it.intermediate, Src: it.res})
	}

	return it.intermediate
}

func (it *item) isConstant() bool {
	_, ok := it.g.isConst(it.value)
	return ok
}
