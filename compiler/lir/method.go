package lir

import (
	"github.com/slowlang/lirgen/compiler/ir"
)

type (
	// Method is the generator output consumed by register allocation.
	Method struct {
		Name string

		Blocks [][]Instr // by block id, nil until generated
		Order  []ir.BlockID

		VarKinds   []ir.Kind
		VarClasses []RegClass

		Stubs       []DeoptStub
		GlobalStubs []string

		OutgoingSize int
		Monitors     int

		labels Label
		stubs  map[string]struct{}
	}
)

func NewMethod(name string, blocks int) *Method {
	return &Method{
		Name:   name,
		Blocks: make([][]Instr, blocks),
		labels: Label(blocks),
		stubs:  map[string]struct{}{},
	}
}

// NewLabel returns a label not bound to any block.
func (m *Method) NewLabel() Label {
	l := m.labels
	m.labels++

	return l
}

func (m *Method) NewVariable(k ir.Kind, class RegClass) Operand {
	id := len(m.VarKinds)

	m.VarKinds = append(m.VarKinds, k)
	m.VarClasses = append(m.VarClasses, class)

	return Var(id, k)
}

func (m *Method) NumVariables() int { return len(m.VarKinds) }

// UseGlobalStub records a reference and reports whether it is the first one.
func (m *Method) UseGlobalStub(name string) bool {
	if _, ok := m.stubs[name]; ok {
		return false
	}

	m.stubs[name] = struct{}{}
	m.GlobalStubs = append(m.GlobalStubs, name)

	return true
}

// IsByteVariable reports a variable constrained to byte registers.
func (m *Method) IsByteVariable(o Operand) bool {
	return o.IsVariable() && m.VarClasses[o.Index] == ByteReg
}
