package gen

import (
	"context"
	"fmt"

	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/slowlang/lirgen/compiler/ir"
	"github.com/slowlang/lirgen/compiler/lir"
	"github.com/slowlang/lirgen/compiler/snippet"
	"github.com/slowlang/lirgen/compiler/target"
)

type (
	Config struct {
		// Switches with at most this many cases become compare chains.
		SequentialSwitchLimit int

		// MinTableSwitchDensity is the minimal cases/span ratio for a jump table.
		// Values below 1/16 are raised to it.
		MinTableSwitchDensity float64
		MinimumJumpTableSize  int

		MaxTemplateOperands int
		MaxGraphNodes       int

		StrengthReduceMultiply bool

		ArrayLengthOffset int

		// OnGlobalStub is called on the first reference of each global stub.
		OnGlobalStub func(name string)
	}

	// FrameMap reserves stack space for one compilation.
	FrameMap interface {
		IncomingArguments(kinds []ir.Kind) *target.CallingConvention
		ReserveOutgoing(size int)
		ReserveStackBlock(size int) lir.Operand
		MonitorSlot(lock int) lir.Operand
		OutgoingSize() int
		Monitors() int
	}

	// Generator lowers one graph. It is not safe for concurrent use
	// and is used for a single Generate call.
	Generator struct {
		Config

		g    *ir.Graph
		arch target.Arch
		fm   FrameMap
		rt   snippet.Runtime

		m *lir.Method

		operands []lir.Operand // by ir.Value

		block  *ir.Block
		consts map[lir.Operand]lir.Operand // per block

		tr tlog.Span
	}
)

func DefaultConfig() Config {
	return Config{
		SequentialSwitchLimit:  4,
		MinTableSwitchDensity:  0.5,
		MinimumJumpTableSize:   4,
		MaxTemplateOperands:    32,
		MaxGraphNodes:          100000,
		StrengthReduceMultiply: true,
		ArrayLengthOffset:      8,
	}
}

func New(g *ir.Graph, a target.Arch, fm FrameMap, rt snippet.Runtime, cfg Config) *Generator {
	return &Generator{
		Config: cfg,

		g:    g,
		arch: a,
		fm:   fm,
		rt:   rt,

		m: lir.NewMethod(g.Name, len(g.Blocks)),

		operands: make([]lir.Operand, len(g.Nodes)),
		consts:   map[lir.Operand]lir.Operand{},
	}
}

// Generate lowers every block in g.Order, or in Linearize order if the graph
// has none. A bailout aborts the whole method and is returned as *Bailout.
func (g *Generator) Generate(ctx context.Context) (m *lir.Method, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "gen: lower method", "name", g.g.Name, "arch", g.arch.Name(), "nodes", len(g.g.Nodes))
	defer tr.Finish("err", &err)

	g.tr = tr

	defer func() {
		p := recover()
		if p == nil {
			return
		}

		b, ok := p.(*Bailout)
		if !ok {
			panic(p)
		}

		m, err = nil, b
	}()

	if g.MaxGraphNodes > 0 && len(g.g.Nodes) > g.MaxGraphNodes {
		g.bailout("graph too large: %d nodes", len(g.g.Nodes))
	}

	order := g.g.Order
	if order == nil {
		order = Linearize(g.g)
	}

	g.m.Order = order

	for _, id := range order {
		g.doBlock(g.g.Block(id))
	}

	g.m.OutgoingSize = g.fm.OutgoingSize()
	g.m.Monitors = g.fm.Monitors()

	if tr.If("dump_lir") {
		tr.Printw("lir", "text", string(g.m.AppendText(nil)))
	}

	return g.m, nil
}

// Method is the output being built.
func (g *Generator) Method() *lir.Method { return g.m }

// Operand is the location assigned to v so far.
func (g *Generator) Operand(v ir.Value) lir.Operand { return g.operands[v] }

func (g *Generator) doBlock(b *ir.Block) {
	g.beginBlock(b)

	for _, v := range b.Code {
		if !g.g.IsLive(v) {
			continue
		}

		x := g.g.Node(v)

		g.walkState(ir.StateOf(x))
		g.visit(v, x)
		g.checkVisited(v, x)
	}

	g.endBlock()
}

func (g *Generator) beginBlock(b *ir.Block) {
	if g.m.Blocks[b.ID] != nil {
		panic(fmt.Sprintf("block %d: lir already generated", b.ID))
	}

	g.block = b
	g.m.Blocks[b.ID] = make([]lir.Instr, 0, 2*len(b.Code)+1)

	g.emit(lir.Bind{Label: lir.BlockLabel(b.ID)})

	if b.ID == g.g.Entry {
		g.entry()
	}
}

func (g *Generator) endBlock() {
	clear(g.consts)
	g.block = nil
}

// entry emits the method prologue and binds incoming arguments.
func (g *Generator) entry() {
	g.xir(g.rt.Prologue(g.g.Name), nil)

	kinds := make([]ir.Kind, len(g.g.Params))
	for i, p := range g.g.Params {
		kinds[i] = g.g.Kind(p)
	}

	cc := g.fm.IncomingArguments(kinds)

	for i, p := range g.g.Params {
		if !g.g.IsLive(p) {
			continue
		}

		v := g.newVariable(kinds[i])
		g.emit(lir.Move{Dst: v, Src: cc.Locations[i]})

		g.operands[p] = v
	}
}

// walkState materializes every value a frame state refers to,
// so deoptimization info built from it is complete.
func (g *Generator) walkState(s *ir.FrameState) {
	s.Range(func(v ir.Value) bool {
		if g.g.IsLive(v) {
			g.operand(v)
		}

		return true
	})
}

func (g *Generator) checkVisited(v ir.Value, x ir.Node) {
	if g.operands[v].IsLegal() || g.g.Kind(v) == ir.Void {
		return
	}

	switch x.(type) {
	case ir.Const, ir.Proxy, ir.NullCheck:
		return
	}

	panic(fmt.Sprintf("v%d (%T) has no operand after lowering", v, x))
}

// operand returns the location of v, creating it for values
// that are materialized lazily.
func (g *Generator) operand(v ir.Value) lir.Operand {
	if o := g.operands[v]; o.IsLegal() {
		return o
	}

	var o lir.Operand

	switch x := g.g.Node(v).(type) {
	case ir.Const:
		o = lir.Constant(x).WithKind(g.g.Kind(v))
	case ir.Phi:
		return g.operandForPhi(v)
	case ir.Proxy:
		o = g.operand(x.X)
	default:
		panic(fmt.Sprintf("v%d (%T) used before lowering", v, x))
	}

	g.operands[v] = o

	return o
}

func (g *Generator) setResult(v ir.Value, o lir.Operand) {
	g.operands[v] = o
}

func (g *Generator) newResult(v ir.Value) lir.Operand {
	o := g.newVariable(g.g.Kind(v))
	g.operands[v] = o

	return o
}

func (g *Generator) newVariable(k ir.Kind) lir.Operand {
	return g.m.NewVariable(k, lir.AnyReg)
}

// loadConstant returns a variable holding c, reusing one already
// loaded in the current block.
func (g *Generator) loadConstant(c lir.Operand) lir.Operand {
	if v, ok := g.consts[c]; ok {
		return v
	}

	v := g.newVariable(c.Kind)
	g.emit(lir.Move{Dst: v, Src: c})

	g.consts[c] = v

	return v
}

func (g *Generator) isConst(v ir.Value) (ir.Const, bool) {
	c, ok := g.g.Node(v).(ir.Const)
	return c, ok
}

func (g *Generator) canStoreAsConstant(v ir.Value, k ir.Kind) bool {
	c, ok := g.isConst(v)

	return ok && g.arch.CanStoreConstant(c, k)
}

func (g *Generator) emit(x lir.Instr) {
	id := g.block.ID
	g.m.Blocks[id] = append(g.m.Blocks[id], x)

	if g.tr.If("lir_emit") {
		g.tr.Printw("emit", "block", id, "instr", string(lir.AppendInstr(nil, x)), "from", loc.Caller(1))
	}
}

func (g *Generator) useGlobalStub(name string) {
	if g.m.UseGlobalStub(name) && g.OnGlobalStub != nil {
		g.OnGlobalStub(name)
	}
}
