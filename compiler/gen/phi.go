package gen

import (
	"fmt"

	"github.com/slowlang/lirgen/compiler/ir"
	"github.com/slowlang/lirgen/compiler/lir"
)

type (
	// PhiResolver turns a set of moves meant to happen simultaneously
	// into a sequence with the same effect. Moves are collected with Move
	// and emitted by Dispose. At most one temporary is live at any time.
	PhiResolver struct {
		emit func(dst, src lir.Operand)
		temp func(k ir.Kind) lir.Operand

		nodes []phiNode

		vars   map[int]int // variable index -> node
		varSeq []int       // variable nodes in creation order
		others []int       // constant, register and stack slot sources
	}

	phiNode struct {
		op    lir.Operand
		dests []int

		assigned bool
		visited  bool
		start    bool
	}

	phiFrame struct {
		src  int // -1 for a walk root
		dest int
		next int // destinations of dest left to walk, enter before the first step
	}
)

const enter = -1

func NewPhiResolver(emit func(dst, src lir.Operand), temp func(k ir.Kind) lir.Operand) *PhiResolver {
	return &PhiResolver{
		emit: emit,
		temp: temp,
		vars: map[int]int{},
	}
}

func (g *Generator) newPhiResolver() *PhiResolver {
	return NewPhiResolver(func(dst, src lir.Operand) {
		g.tr.V("phi").Printw("phi move", "dst", dst, "src", src)
		g.emit(lir.Move{Dst: dst, Src: src})
	}, g.newVariable)
}

// Move records dst := src. dst must be a variable.
func (r *PhiResolver) Move(src, dst lir.Operand) {
	if !dst.IsVariable() {
		panic(fmt.Sprintf("phi move destination %v is not a variable", dst))
	}

	if src.IsIllegal() {
		panic(fmt.Sprintf("phi move to %v from illegal operand", dst))
	}

	if src == dst {
		return
	}

	d := r.node(dst)
	s := r.node(src)

	r.nodes[s].dests = append(r.nodes[s].dests, d)
}

func (r *PhiResolver) node(o lir.Operand) int {
	if o.IsVariable() {
		if n, ok := r.vars[o.Index]; ok {
			return n
		}
	}

	n := len(r.nodes)
	r.nodes = append(r.nodes, phiNode{op: o})

	if o.IsVariable() {
		r.vars[o.Index] = n
		r.varSeq = append(r.varSeq, n)
	} else {
		r.others = append(r.others, n)
	}

	return n
}

// Dispose emits all recorded moves.
func (r *PhiResolver) Dispose() {
	for i := len(r.varSeq) - 1; i >= 0; i-- {
		n := r.varSeq[i]

		if r.nodes[n].visited {
			continue
		}

		r.walk(n)
		r.nodes[n].start = true
	}

	for i := len(r.others) - 1; i >= 0; i-- {
		n := &r.nodes[r.others[i]]

		for j := len(n.dests) - 1; j >= 0; j-- {
			r.emit(r.nodes[n.dests[j]].op, n.op)
		}
	}
}

// walk is a depth first traversal from root. A node is written only after
// all its own destinations have read it. Reaching a node that is on the
// current path closes a cycle: the value flowing into it is parked in temp
// and written back when the walk unwinds to that node.
func (r *PhiResolver) walk(root int) {
	var temp lir.Operand
	loop := -1

	stack := []phiFrame{{src: -1, dest: root, next: enter}}

	for len(stack) != 0 {
		f := &stack[len(stack)-1]
		d := &r.nodes[f.dest]

		if f.next == enter {
			switch {
			case !d.visited:
				d.visited = true
				f.next = len(d.dests)
			case !d.start:
				if loop >= 0 || temp.IsLegal() {
					panic(fmt.Sprintf("second phi cycle through %v while temp %v is pending", d.op, temp))
				}

				src := r.nodes[f.src].op

				loop = f.dest
				temp = r.temp(src.Kind)
				r.emit(temp, src)

				stack = stack[:len(stack)-1]

				continue
			default:
				f.next = 0
			}
		}

		if f.next > 0 {
			f.next--
			stack = append(stack, phiFrame{src: f.dest, dest: d.dests[f.next], next: enter})

			continue
		}

		if !d.assigned {
			switch {
			case loop == f.dest:
				if temp.IsIllegal() {
					panic(fmt.Sprintf("phi cycle at %v without temp", d.op))
				}

				r.emit(d.op, temp)
				temp = lir.Illegal
				d.assigned = true
			case f.src >= 0:
				r.emit(d.op, r.nodes[f.src].op)
				d.assigned = true
			}
		}

		stack = stack[:len(stack)-1]
	}

	if temp.IsLegal() {
		panic(fmt.Sprintf("phi temp %v left pending", temp))
	}
}
