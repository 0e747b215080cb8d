// Package sample builds small method graphs for the command line tool and tests.
package sample

import (
	"slices"

	"github.com/slowlang/lirgen/compiler/ir"
)

var graphs = map[string]func() *ir.Graph{
	"swap":   Swap,
	"switch": Switch,
	"sparse": SparseSwitch,
	"calls":  Calls,
	"arith":  Arith,
	"float":  Float,
	"sync":   Sync,
}

// Names lists the available samples.
func Names() []string {
	r := make([]string, 0, len(graphs))

	for n := range graphs {
		r = append(r, n)
	}

	slices.Sort(r)

	return r
}

// Get returns a fresh graph or nil.
func Get(name string) *ir.Graph {
	f, ok := graphs[name]
	if !ok {
		return nil
	}

	return f()
}

// Swap is
//
//	p, q, z := 5, a, a
//	for p < q {
//		p, q, z = q, p, p
//	}
//	return z
func Swap() *ir.Graph {
	b := ir.NewBuilder("swap", ir.Int)

	entry := b.Block()
	head := b.Block()
	body := b.Block()
	exit := b.Block()

	head.LoopHeader, head.LoopDepth = true, 1
	body.LoopEnd, body.LoopDepth = true, 1

	a := b.Param(ir.Int)
	five := b.Int(5)

	b.Goto(entry, head)

	p := b.Phi(head, ir.Int, 0)
	q := b.Phi(head, ir.Int, 1)
	z := b.Phi(head, ir.Int, 2)

	b.Terminate(head, ir.If{X: p, Y: q, Cond: ir.LT, True: body.ID, False: exit.ID})
	b.Terminate(body, ir.Goto{Target: head.ID, Safepoint: true, State: head.State})
	b.Return(exit, z)

	b.SetInputs(p, five, q)
	b.SetInputs(q, a, p)
	b.SetInputs(z, a, p)

	return b.G
}

// Switch returns x*10 for x in 0..5 and -1 otherwise.
func Switch() *ir.Graph {
	return switchGraph("switch", []int32{0, 1, 2, 3, 4, 5})
}

// SparseSwitch is Switch over keys too far apart for a table.
func SparseSwitch() *ir.Graph {
	return switchGraph("sparse", []int32{-100, 0, 7, 1000, 5000})
}

func switchGraph(name string, keys []int32) *ir.Graph {
	b := ir.NewBuilder(name, ir.Int)

	entry := b.Block()
	x := b.Param(ir.Int)

	targets := make([]ir.BlockID, len(keys))

	for i, k := range keys {
		blk := b.Block()
		b.Return(blk, b.Int(k*10))

		targets[i] = blk.ID
	}

	def := b.Block()
	b.Return(def, b.Int(-1))

	b.Terminate(entry, ir.LookupSwitch{Value: x, Keys: keys, Targets: targets, Default: def.ID})

	return b.G
}

// Calls is
//
//	n := p.count
//	p.count = Math.max(n, arr[i]) + p.size()
//	return arr.length
func Calls() *ir.Graph {
	b := ir.NewBuilder("calls", ir.Int)
	entry := b.Block()

	p := b.Param(ir.Object)
	arr := b.Param(ir.Object)
	i := b.Param(ir.Int)

	st := func(bci int) *ir.FrameState {
		return &ir.FrameState{Method: "calls", BCI: bci, Locals: []ir.Value{p, arr, i}}
	}

	count := ir.Field{Name: "count", Offset: 12, Kind: ir.Int}

	n := b.Add(entry, ir.LoadField{Object: p, Field: count, State: st(1)}, ir.Int)
	e := b.Add(entry, ir.LoadIndexed{Array: arr, Index: i, Elem: ir.Int, State: st(4)}, ir.Int)

	mx := b.Add(entry, ir.Invoke{
		Op:     ir.InvokeStatic,
		Target: ir.Method{Holder: "Math", Name: "max", Params: []ir.Kind{ir.Int, ir.Int}, Result: ir.Int},
		Args:   []ir.Value{n, e},
		State:  st(5),
	}, ir.Int)

	sz := b.Add(entry, ir.Invoke{
		Op:     ir.InvokeVirtual,
		Target: ir.Method{Holder: "Point", Name: "size", Params: []ir.Kind{ir.Object}, Result: ir.Int},
		Args:   []ir.Value{p},
		State:  st(8),
	}, ir.Int)

	sum := b.Add(entry, ir.Arith{Op: ir.Add, X: mx, Y: sz}, ir.Int)
	b.Add(entry, ir.StoreField{Object: p, Field: count, Value: sum, State: st(12)}, ir.Void)

	l := b.Add(entry, ir.ArrayLength{Array: arr, State: st(15)}, ir.Int)
	b.Return(entry, l)

	return b.G
}

// Arith is
//
//	return (x*9 + y/d) << s ^ long(x) % y
func Arith() *ir.Graph {
	b := ir.NewBuilder("arith", ir.Long)
	entry := b.Block()

	x := b.Param(ir.Int)
	y := b.Param(ir.Long)
	d := b.Param(ir.Long)
	s := b.Param(ir.Int)

	st := &ir.FrameState{Method: "arith", BCI: 3, Locals: []ir.Value{x, y, d, s}}

	x9 := b.Add(entry, ir.Arith{Op: ir.Mul, X: x, Y: b.Int(9)}, ir.Int)
	xl := b.Add(entry, ir.Convert{Op: ir.I2L, X: x9}, ir.Long)
	q := b.Add(entry, ir.Arith{Op: ir.Div, X: y, Y: d, State: st}, ir.Long)
	sum := b.Add(entry, ir.Arith{Op: ir.Add, X: xl, Y: q}, ir.Long)
	sh := b.Add(entry, ir.Shift{Op: ir.Shl, X: sum, Y: s}, ir.Long)

	xw := b.Add(entry, ir.Convert{Op: ir.I2L, X: x}, ir.Long)
	r := b.Add(entry, ir.Arith{Op: ir.Rem, X: xw, Y: y, State: st}, ir.Long)

	res := b.Add(entry, ir.Logic{Op: ir.Xor, X: sh, Y: r}, ir.Long)
	b.Return(entry, res)

	return b.G
}

// Float is
//
//	return float(x % y * 0.5) + 1.5f
func Float() *ir.Graph {
	b := ir.NewBuilder("float", ir.Float)
	entry := b.Block()

	x := b.Param(ir.Double)
	y := b.Param(ir.Double)

	r := b.Add(entry, ir.Arith{Op: ir.Rem, X: x, Y: y}, ir.Double)
	h := b.Add(entry, ir.Arith{Op: ir.Mul, X: r, Y: b.Const(ir.DoubleConst(0.5))}, ir.Double)
	f := b.Add(entry, ir.Convert{Op: ir.D2F, X: h}, ir.Float)
	s := b.Add(entry, ir.Arith{Op: ir.Add, X: f, Y: b.Const(ir.FloatConst(1.5))}, ir.Float)
	b.Return(entry, s)

	return b.G
}

// Sync allocates an object under a lock and throws if the argument is null.
// The handler releases the lock and rethrows.
func Sync() *ir.Graph {
	b := ir.NewBuilder("sync", ir.Object)

	entry := b.Block()
	alloc := b.Block()
	fail := b.Block()
	handler := b.Block()

	handler.Handler = true

	lock := b.Param(ir.Object)
	x := b.Param(ir.Object)

	st := &ir.FrameState{Method: "sync", BCI: 0, Locals: []ir.Value{lock, x}, Locks: []ir.Value{lock}}

	b.Add(entry, ir.MonitorEnter{Object: lock, Lock: 0, State: st}, ir.Void)
	b.Terminate(entry, ir.If{X: x, Y: b.Const(ir.NullConst()), Cond: ir.EQ, True: fail.ID, False: alloc.ID})

	obj := b.Add(alloc, ir.NewInstance{Type: "Box", State: st}, ir.Object)
	b.Add(alloc, ir.StoreField{Object: obj, Field: ir.Field{Name: "v", Offset: 16, Kind: ir.Object}, Value: x}, ir.Void)
	b.Add(alloc, ir.MonitorExit{Object: lock, Lock: 0, State: st}, ir.Void)
	b.Return(alloc, obj)

	exc := b.Add(fail, ir.NewInstance{Type: "NullPointerException", State: st}, ir.Object)
	b.Terminate(fail, ir.Throw{Exception: exc, Handled: true, Handler: handler.ID, State: st})

	caught := b.Add(handler, ir.ExceptionObject{State: st}, ir.Object)
	b.Add(handler, ir.MonitorExit{Object: lock, Lock: 0, State: st}, ir.Void)
	b.Terminate(handler, ir.Unwind{Exception: caught})

	return b.G
}
