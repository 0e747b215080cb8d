package gen

import (
	"fmt"

	"github.com/slowlang/lirgen/compiler/ir"
	"github.com/slowlang/lirgen/compiler/lir"
	"github.com/slowlang/lirgen/compiler/snippet"
)

// xir binds s to operands and emits it as a single instruction.
// It returns the template result, or Illegal if the template has none.
// A template yielding only a constant and having no code of its own
// emits nothing.
func (g *Generator) xir(s *snippet.Snippet, state *ir.FrameState) lir.Operand {
	if s == nil {
		g.bailout("operation not supported by the runtime")
	}

	t := s.T

	if len(t.Params) > g.MaxTemplateOperands {
		g.bailout("template %v: %d operands, limit %d", t.Name, len(t.Params), g.MaxTemplateOperands)
	}

	if len(s.Args) < len(t.Params) {
		panic(fmt.Sprintf("template %v: %d args for %d params", t.Name, len(s.Args), len(t.Params)))
	}

	if c, ok := constOnly(s); ok {
		g.tr.V("xir").Printw("template elided", "name", t.Name, "result", c)
		return c
	}

	ops := make([]lir.Operand, len(t.Params))
	items := make([]*item, len(t.Params))

	for i, p := range t.Params {
		a := s.Args[i]

		switch p.Role {
		case snippet.Input:
			if a.Kind == snippet.ArgConst {
				ops[i] = lir.Constant(a.Const)
				break
			}

			it := g.item(a.Value)

			switch {
			case p.Store != ir.Illegal:
				it.loadForStore(p.Store)
			case p.AcceptsConst:
				it.loadNonconstant()
			default:
				it.loadItem()
			}

			if p.Destroyed {
				it.setDestroysRegister()
			}

			items[i] = it
		case snippet.Const:
			ops[i] = lir.Constant(a.Const)
		case snippet.Temp:
			ops[i] = g.fixedOrVariable(p)
		case snippet.LockSlot:
			ops[i] = g.fm.MonitorSlot(a.Lock)
		case snippet.Result:
		default:
			panic(p.Role)
		}
	}

	for i, it := range items {
		if it == nil {
			continue
		}

		o := it.result()

		if f := t.Params[i].Fixed; f >= 0 {
			r := lir.Reg(f, t.Params[i].Kind)
			g.emit(lir.Move{Dst: r, Src: o})
			o = r
		}

		ops[i] = o
	}

	res := lir.Illegal

	if t.Result >= 0 {
		switch {
		case t.Params[t.Result].Role == snippet.Const:
			res = ops[t.Result]
		case t.ResultAlias >= 0:
			res = ops[t.ResultAlias]
		default:
			res = g.fixedOrVariable(t.Params[t.Result])
		}

		ops[t.Result] = res
	}

	var info *lir.FrameInfo
	if t.Traps {
		info = g.stateFor(state)
	}

	for _, st := range t.Stubs {
		g.useGlobalStub(st)
	}

	g.emit(lir.Xir{
		T:        t,
		Operands: ops,
		Result:   res,
		Info:     info,
		Method:   g.g.Name,
	})

	return res
}

// constOnly reports a template that only names a constant.
func constOnly(s *snippet.Snippet) (lir.Operand, bool) {
	t := s.T

	if t.Result < 0 || t.HasCode() {
		return lir.Illegal, false
	}

	for _, p := range t.Params {
		if p.Role != snippet.Const {
			return lir.Illegal, false
		}
	}

	if t.Params[t.Result].Role != snippet.Const {
		return lir.Illegal, false
	}

	return lir.Constant(s.Args[t.Result].Const), true
}

func (g *Generator) fixedOrVariable(p snippet.Param) lir.Operand {
	if p.Fixed >= 0 {
		return lir.Reg(p.Fixed, p.Kind)
	}

	return g.newVariable(p.Kind)
}

// visitTemplate lowers v through s and makes the template result its operand.
func (g *Generator) visitTemplate(v ir.Value, s *snippet.Snippet, state *ir.FrameState) {
	res := g.xir(s, state)

	if g.g.Kind(v) == ir.Void {
		return
	}

	if res.IsIllegal() {
		panic(fmt.Sprintf("v%d: template %v has no result", v, s.T.Name))
	}

	g.setResult(v, res)
}
