package compile

import (
	"context"
	"sync"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/lirgen/compiler/gen"
	"github.com/slowlang/lirgen/compiler/ir"
	"github.com/slowlang/lirgen/compiler/lir"
	"github.com/slowlang/lirgen/compiler/set"
	"github.com/slowlang/lirgen/compiler/snippet"
	"github.com/slowlang/lirgen/compiler/target"
)

// Compile lowers one method. A bailout is returned as an error wrapping *gen.Bailout.
func Compile(ctx context.Context, a target.Arch, g *ir.Graph, rt snippet.Runtime, cfg gen.Config) (m *lir.Method, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile method", "name", g.Name, "arch", a.Name())
	defer tr.Finish("err", &err)

	if tr.If("dump_hir") {
		for _, b := range g.Blocks {
			tr.Printw("block", "id", b.ID, "preds", b.Preds, "succs", b.Succs, "loop_depth", b.LoopDepth)

			for _, v := range b.Code {
				x := g.Node(v)
				tr.Printw("hir", "block", b.ID, "val", v, "kind", g.Kind(v), "typ", tlog.NextAsType, x, "node", x)
			}
		}
	}

	err = Verify(g)
	if err != nil {
		return nil, errors.Wrap(err, "verify")
	}

	m, err = gen.New(g, a, target.NewFrameMap(a), rt, cfg).Generate(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "method %v", g.Name)
	}

	tr.Printw("method lowered", "blocks", len(m.Order), "vars", m.NumVariables(), "stubs", len(m.Stubs), "global_stubs", len(m.GlobalStubs))

	return m, nil
}

// CompileAll lowers methods concurrently, each with its own generator and frame.
// rt and cfg.OnGlobalStub must be safe for concurrent use. The first error is returned.
func CompileAll(ctx context.Context, a target.Arch, gs []*ir.Graph, rt snippet.Runtime, cfg gen.Config) (ms []*lir.Method, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile methods", "n", len(gs), "arch", a.Name())
	defer tr.Finish("err", &err)

	ms = make([]*lir.Method, len(gs))
	errs := make([]error, len(gs))

	var wg sync.WaitGroup

	for i, g := range gs {
		wg.Add(1)

		go func(i int, g *ir.Graph) {
			defer wg.Done()

			ms[i], errs[i] = Compile(ctx, a, g, rt, cfg)
		}(i, g)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return ms, nil
}

// Verify checks the graph shape the generator relies on.
func Verify(g *ir.Graph) error {
	if len(g.Nodes) != len(g.Kinds) {
		return errors.New("%d nodes, %d kinds", len(g.Nodes), len(g.Kinds))
	}

	if g.Entry < 0 || int(g.Entry) >= len(g.Blocks) {
		return errors.New("entry block %d out of range", g.Entry)
	}

	for i, b := range g.Blocks {
		if b.ID != ir.BlockID(i) {
			return errors.New("block %d has id %d", i, b.ID)
		}
	}

	var reached set.Bits[ir.BlockID]

	reach(g, g.Entry, &reached)

	for _, b := range g.Blocks {
		if !reached.IsSet(b.ID) {
			return errors.New("block %d: unreachable", b.ID)
		}

		t := g.Terminator(b)
		if !ir.IsTerminator(t) {
			return errors.New("block %d: not terminated", b.ID)
		}

		for _, s := range b.Succs {
			if s < 0 || int(s) >= len(g.Blocks) {
				return errors.New("block %d: successor %d out of range", b.ID, s)
			}
		}

		if x, ok := t.(ir.Throw); ok && x.Handled && (x.Handler < 0 || int(x.Handler) >= len(g.Blocks) || !g.Block(x.Handler).Handler) {
			return errors.New("block %d: throws to block %d which is not a handler", b.ID, x.Handler)
		}

		var err error

		g.Phis(b, func(phi ir.Value, x ir.Phi) {
			switch {
			case err != nil:
			case b.Handler:
				err = errors.New("block %d: phi v%d in a handler block", b.ID, phi)
			case len(b.Preds) <= 1:
				err = errors.New("block %d: phi v%d in a block with %d preds", b.ID, phi, len(b.Preds))
			case len(x.Inputs) != len(b.Preds):
				err = errors.New("block %d: phi v%d has %d inputs for %d preds", b.ID, phi, len(x.Inputs), len(b.Preds))
			}
		})

		if err != nil {
			return err
		}

		if len(b.Succs) > 1 {
			for _, s := range b.Succs {
				if len(g.Block(s).Preds) > 1 {
					return errors.New("critical edge %d -> %d", b.ID, s)
				}
			}
		}
	}

	return nil
}

func reach(g *ir.Graph, from ir.BlockID, reached *set.Bits[ir.BlockID]) {
	stack := []ir.BlockID{from}

	for len(stack) != 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if reached.IsSet(id) {
			continue
		}

		reached.Set(id)

		for _, s := range g.Block(id).Succs {
			if int(s) < 0 || int(s) >= len(g.Blocks) {
				continue
			}

			stack = append(stack, s)
		}
	}
}
