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

type noMonitors struct {
	*snippet.Default
}

func (noMonitors) MonitorEnter(obj ir.Value, lock int) *snippet.Snippet { return nil }

func constTemplate(code bool) *snippet.Snippet {
	t := &snippet.Template{
		Name: "const",
		Params: []snippet.Param{
			{Name: "k", Kind: ir.Int, Role: snippet.Const, Fixed: -1},
		},
		Result:      0,
		ResultAlias: -1,
	}

	if code {
		t.FastPath = []snippet.Op{{Code: "touch", Args: []int{0}}}
	}

	return &snippet.Snippet{T: t, Args: []snippet.Arg{snippet.ConstArg(ir.IntConst(42))}}
}

func TestTemplateConstantResultElided(t *testing.T) {
	b, blk := twoBlocks(ir.Void)
	g := blockGen(target.AMD64(), b, blk)

	res := g.xir(constTemplate(false), nil)

	assert.Equal(t, lir.Constant(ir.IntConst(42)), res)
	assert.Empty(t, instrs[lir.Xir](code(g, blk)))

	res = g.xir(constTemplate(true), nil)

	assert.Equal(t, lir.Constant(ir.IntConst(42)), res)
	assert.Len(t, instrs[lir.Xir](code(g, blk)), 1)
}

func TestTemplateStaticInvokeIsDirect(t *testing.T) {
	b := ir.NewBuilder("caller", ir.Int)
	entry := b.Block()

	x := b.Param(ir.Int)
	call := b.Add(entry, ir.Invoke{
		Op:     ir.InvokeStatic,
		Target: ir.Method{Holder: "Math", Name: "inc", Params: []ir.Kind{ir.Int}, Result: ir.Int},
		Args:   []ir.Value{x},
	}, ir.Int)
	b.Return(entry, call)

	m := generate(t, target.AMD64(), b.G, DefaultConfig())

	calls := instrs[lir.Call](m.Blocks[entry.ID])
	require.Len(t, calls, 1)

	assert.Equal(t, lir.DirectCall, calls[0].Code)
	assert.True(t, calls[0].Address.IsConstant())
	assert.Equal(t, lir.Reg(0, ir.Int), calls[0].Result)

	for _, x := range instrs[lir.Xir](m.Blocks[entry.ID]) {
		assert.NotEqual(t, "invoke_direct", x.T.Name)
	}
}

func TestTemplateResultAlias(t *testing.T) {
	b := ir.NewBuilder("cast", ir.Object)
	entry := b.Block()

	obj := b.Param(ir.Object)
	cast := b.Add(entry, ir.CheckCast{Object: obj, Type: "String", State: &ir.FrameState{Method: "cast", Locals: []ir.Value{obj}}}, ir.Object)
	b.Return(entry, cast)

	g := New(b.G, target.AMD64(), target.NewFrameMap(target.AMD64()), snippet.NewDefault(), DefaultConfig())

	m, err := g.Generate(context.Background())
	require.NoError(t, err)

	xs := instrs[lir.Xir](m.Blocks[entry.ID])
	require.Len(t, xs, 3) // prologue, checkcast, epilogue

	x := xs[1]

	assert.Equal(t, "checkcast", x.T.Name)
	assert.Equal(t, x.Operands[0], x.Result)
	assert.Equal(t, g.Operand(obj), x.Result)
	assert.Equal(t, x.Result, g.Operand(cast))
	require.NotNil(t, x.Info)
	assert.Equal(t, []lir.Operand{g.Operand(obj)}, x.Info.Locals)
}

func TestTemplateTooManyOperands(t *testing.T) {
	b := ir.NewBuilder("alloc", ir.Object)
	entry := b.Block()

	obj := b.Add(entry, ir.NewInstance{Type: "Point"}, ir.Object)
	b.Return(entry, obj)

	cfg := DefaultConfig()
	cfg.MaxTemplateOperands = 2

	_, err := New(b.G, target.AMD64(), target.NewFrameMap(target.AMD64()), snippet.NewDefault(), cfg).Generate(context.Background())

	var bail *Bailout
	require.True(t, errors.As(err, &bail))
	assert.Equal(t, "alloc", bail.Method)
	assert.Contains(t, bail.Reason, "new")
}

func TestTemplateUnsupportedBailsOut(t *testing.T) {
	b := ir.NewBuilder("sync", ir.Void)
	entry := b.Block()

	obj := b.Param(ir.Object)
	b.Add(entry, ir.MonitorEnter{Object: obj}, ir.Void)
	b.Return(entry, ir.Nil)

	rt := noMonitors{Default: snippet.NewDefault()}

	_, err := New(b.G, target.AMD64(), target.NewFrameMap(target.AMD64()), rt, DefaultConfig()).Generate(context.Background())

	var bail *Bailout
	assert.True(t, errors.As(err, &bail))
}

func TestTemplateGlobalStubs(t *testing.T) {
	b := ir.NewBuilder("arrays", ir.Int)
	entry := b.Block()

	arr := b.Param(ir.Object)
	i := b.Param(ir.Int)
	x := b.Add(entry, ir.LoadIndexed{Array: arr, Index: i, Elem: ir.Int}, ir.Int)
	y := b.Add(entry, ir.LoadIndexed{Array: arr, Index: b.Int(1), Elem: ir.Int}, ir.Int)
	sum := b.Add(entry, ir.Arith{Op: ir.Add, X: x, Y: y}, ir.Int)
	b.Return(entry, sum)

	var seen []string

	cfg := DefaultConfig()
	cfg.OnGlobalStub = func(name string) { seen = append(seen, name) }

	m := generate(t, target.AMD64(), b.G, cfg)

	assert.Equal(t, []string{"stack_overflow", "throw_index_out_of_bounds"}, m.GlobalStubs)
	assert.Equal(t, m.GlobalStubs, seen)

	xs := instrs[lir.Xir](m.Blocks[entry.ID])
	require.Len(t, xs, 4)

	// constant index is bound inline
	assert.Equal(t, lir.Constant(ir.IntConst(1)), xs[2].Operands[1])
}

func TestTemplateMonitorLockSlot(t *testing.T) {
	b := ir.NewBuilder("sync", ir.Void)
	entry := b.Block()

	obj := b.Param(ir.Object)
	b.Add(entry, ir.MonitorEnter{Object: obj, Lock: 0}, ir.Void)
	b.Add(entry, ir.MonitorExit{Object: obj, Lock: 0}, ir.Void)
	b.Return(entry, ir.Nil)

	a := target.AMD64()
	fm := target.NewFrameMap(a)

	m, err := New(b.G, a, fm, snippet.NewDefault(), DefaultConfig()).Generate(context.Background())
	require.NoError(t, err)

	xs := instrs[lir.Xir](m.Blocks[entry.ID])
	require.Len(t, xs, 4)

	assert.Equal(t, "monitorenter", xs[1].T.Name)
	assert.Equal(t, fm.MonitorSlot(0), xs[1].Operands[1])
	assert.Equal(t, xs[1].Operands[1], xs[2].Operands[1])
	assert.Equal(t, lir.Illegal, xs[1].Result)
	assert.Equal(t, 1, m.Monitors)
}

func TestTemplateDestroyedInputAndFixedTemp(t *testing.T) {
	b, blk := twoBlocks(ir.Void)
	p := b.Phi(blk, ir.Int, 0)

	g := blockGen(target.X86(), b, blk)

	s := &snippet.Snippet{
		T: &snippet.Template{
			Name: "scale",
			Params: []snippet.Param{
				{Name: "n", Kind: ir.Int, Role: snippet.Input, Destroyed: true, Fixed: -1},
				{Name: "cnt", Kind: ir.Int, Role: snippet.Temp, Fixed: 1},
				{Name: "out", Kind: ir.Int, Role: snippet.Result, Fixed: -1},
			},
			Result:      2,
			ResultAlias: -1,
			FastPath:    []snippet.Op{{Code: "scale", Args: []int{2, 0, 1}}},
		},
		Args: []snippet.Arg{snippet.ValueArg(p), {}, {}},
	}

	res := g.xir(s, nil)

	xs := instrs[lir.Xir](code(g, blk))
	require.Len(t, xs, 1)

	x := xs[0]

	assert.NotEqual(t, g.Operand(p), x.Operands[0], "destroyed input is a copy")
	assert.Equal(t, lir.Reg(1, ir.Int), x.Operands[1])
	assert.True(t, res.IsVariable())
	assert.Equal(t, res, x.Operands[2])

	moves := instrs[lir.Move](code(g, blk))
	require.Len(t, moves, 1)
	assert.Equal(t, lir.Move{Dst: x.Operands[0], Src: g.Operand(p)}, moves[0])
}
