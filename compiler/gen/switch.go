package gen

import (
	"slices"

	"github.com/slowlang/lirgen/compiler/ir"
	"github.com/slowlang/lirgen/compiler/lir"
)

// minTableSwitchDensity bounds a jump table to 16 entries per case.
const minTableSwitchDensity = 1.0 / 16

type (
	switchCase struct {
		Key    int32
		Target ir.BlockID
	}

	// switchRange covers keys Low..High inclusive.
	switchRange struct {
		Low, High int32
		Target    ir.BlockID
	}
)

func (g *Generator) visitTableSwitch(x ir.TableSwitch) {
	cases := make([]switchCase, len(x.Targets))

	for i, t := range x.Targets {
		cases[i] = switchCase{Key: x.Low + int32(i), Target: t}
	}

	g.lowerSwitch(x.Value, cases, x.Default)
}

func (g *Generator) visitLookupSwitch(x ir.LookupSwitch) {
	cases := make([]switchCase, len(x.Keys))

	for i, k := range x.Keys {
		cases[i] = switchCase{Key: k, Target: x.Targets[i]}
	}

	slices.SortFunc(cases, func(a, b switchCase) int {
		switch {
		case a.Key < b.Key:
			return -1
		case a.Key > b.Key:
			return 1
		}

		return 0
	})

	g.lowerSwitch(x.Value, cases, x.Default)
}

// lowerSwitch picks a compare chain, range checks or a jump table.
// cases are sorted by key.
func (g *Generator) lowerSwitch(value ir.Value, cases []switchCase, def ir.BlockID) {
	tag := g.item(value)
	tag.loadItem()

	g.moveToPhi()

	if len(cases) == 0 || len(cases) <= g.SequentialSwitchLimit {
		g.tr.V("switch").Printw("switch", "strategy", "sequential", "cases", len(cases))

		g.sequentialSwitch(tag.result(), cases, def)

		return
	}

	ranges := switchRanges(cases, def)

	if g.useJumpTable(cases, ranges) {
		g.tr.V("switch").Printw("switch", "strategy", "table", "cases", len(cases), "ranges", len(ranges))

		g.tableSwitch(tag.result(), cases, def)

		return
	}

	g.tr.V("switch").Printw("switch", "strategy", "ranges", "cases", len(cases), "ranges", len(ranges))

	g.rangeSwitch(tag.result(), ranges, def)
}

func (g *Generator) sequentialSwitch(tag lir.Operand, cases []switchCase, def ir.BlockID) {
	for _, c := range cases {
		g.emit(lir.Cmp{Cond: ir.EQ, X: tag, Y: lir.Constant(ir.IntConst(c.Key))})
		g.emit(lir.Branch{Cond: ir.EQ, Kind: ir.Int, Target: lir.BlockLabel(c.Target), Unordered: lir.NoLabel})
	}

	g.emit(lir.Jump{Target: lir.BlockLabel(def)})
}

func (g *Generator) rangeSwitch(tag lir.Operand, ranges []switchRange, def ir.BlockID) {
	for _, r := range ranges {
		dest := lir.BlockLabel(r.Target)
		low := lir.Constant(ir.IntConst(r.Low))
		high := lir.Constant(ir.IntConst(r.High))

		switch {
		case r.Low == r.High:
			g.emit(lir.Cmp{Cond: ir.EQ, X: tag, Y: low})
			g.emit(lir.Branch{Cond: ir.EQ, Kind: ir.Int, Target: dest, Unordered: lir.NoLabel})
		case int64(r.High)-int64(r.Low) == 1:
			g.emit(lir.Cmp{Cond: ir.EQ, X: tag, Y: low})
			g.emit(lir.Branch{Cond: ir.EQ, Kind: ir.Int, Target: dest, Unordered: lir.NoLabel})
			g.emit(lir.Cmp{Cond: ir.EQ, X: tag, Y: high})
			g.emit(lir.Branch{Cond: ir.EQ, Kind: ir.Int, Target: dest, Unordered: lir.NoLabel})
		default:
			skip := g.m.NewLabel()

			g.emit(lir.Cmp{Cond: ir.LT, X: tag, Y: low})
			g.emit(lir.Branch{Cond: ir.LT, Kind: ir.Int, Target: skip, Unordered: lir.NoLabel})
			g.emit(lir.Cmp{Cond: ir.LE, X: tag, Y: high})
			g.emit(lir.Branch{Cond: ir.LE, Kind: ir.Int, Target: dest, Unordered: lir.NoLabel})
			g.emit(lir.Bind{Label: skip})
		}
	}

	g.emit(lir.Jump{Target: lir.BlockLabel(def)})
}

func (g *Generator) tableSwitch(tag lir.Operand, cases []switchCase, def ir.BlockID) {
	low := cases[0].Key
	high := cases[len(cases)-1].Key

	targets := make([]lir.Label, int64(high)-int64(low)+1)
	for i := range targets {
		targets[i] = lir.BlockLabel(def)
	}

	for _, c := range cases {
		targets[c.Key-low] = lir.BlockLabel(c.Target)
	}

	g.emit(lir.TableSwitch{
		Index:   tag,
		Temp:    g.newVariable(g.arch.WordKind()),
		Low:     low,
		Targets: targets,
		Default: lir.BlockLabel(def),
	})
}

func (g *Generator) useJumpTable(cases []switchCase, ranges []switchRange) bool {
	if len(ranges) < max(g.MinimumJumpTableSize, 1) {
		return false
	}

	span := int64(cases[len(cases)-1].Key) - int64(cases[0].Key) + 1

	return float64(len(cases))/float64(span) >= max(g.MinTableSwitchDensity, minTableSwitchDensity)
}

// switchRanges merges consecutive keys going to the same block.
// Ranges going to def are dropped.
func switchRanges(cases []switchCase, def ir.BlockID) []switchRange {
	var rs []switchRange

	for _, c := range cases {
		if l := len(rs) - 1; l >= 0 && rs[l].Target == c.Target && int64(rs[l].High)+1 == int64(c.Key) {
			rs[l].High = c.Key
			continue
		}

		rs = append(rs, switchRange{Low: c.Key, High: c.Key, Target: c.Target})
	}

	res := rs[:0]

	for _, r := range rs {
		if r.Target != def {
			res = append(res, r)
		}
	}

	return res
}
