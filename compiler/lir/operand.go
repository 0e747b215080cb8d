package lir

import (
	"fmt"

	"tlog.app/go/tlog/tlwire"

	"github.com/slowlang/lirgen/compiler/ir"
)

type (
	Tag uint8

	// Operand is a value location: a constant, a stack slot,
	// a physical register or an unassigned variable.
	Operand struct {
		Tag   Tag
		Kind  ir.Kind
		Index int // variable id, register number or stack slot offset

		Const ir.Const

		Caller bool // stack slot belongs to the caller frame
	}

	// RegClass constrains the registers a variable may be assigned.
	RegClass uint8
)

const (
	IllegalTag Tag = iota
	ConstantTag
	StackSlotTag
	RegisterTag
	VariableTag
)

const (
	AnyReg RegClass = iota
	ByteReg
)

var Illegal = Operand{}

func Var(id int, k ir.Kind) Operand {
	return Operand{Tag: VariableTag, Kind: k, Index: id}
}

func Reg(num int, k ir.Kind) Operand {
	return Operand{Tag: RegisterTag, Kind: k, Index: num}
}

func Slot(offset int, k ir.Kind, caller bool) Operand {
	return Operand{Tag: StackSlotTag, Kind: k, Index: offset, Caller: caller}
}

func Constant(c ir.Const) Operand {
	return Operand{Tag: ConstantTag, Kind: c.Kind, Const: c}
}

func (o Operand) IsLegal() bool   { return o.Tag != IllegalTag }
func (o Operand) IsIllegal() bool { return o.Tag == IllegalTag }

func (o Operand) IsConstant() bool  { return o.Tag == ConstantTag }
func (o Operand) IsStackSlot() bool { return o.Tag == StackSlotTag }
func (o Operand) IsRegister() bool  { return o.Tag == RegisterTag }
func (o Operand) IsVariable() bool  { return o.Tag == VariableTag }

func (o Operand) IsVariableOrRegister() bool {
	return o.Tag == VariableTag || o.Tag == RegisterTag
}

// WithKind returns the same location viewed as kind k.
func (o Operand) WithKind(k ir.Kind) Operand {
	o.Kind = k
	return o
}

func (o Operand) String() string {
	switch o.Tag {
	case IllegalTag:
		return "-"
	case ConstantTag:
		return o.Const.String()
	case StackSlotTag:
		if o.Caller {
			return fmt.Sprintf("in[%d]:%v", o.Index, o.Kind)
		}

		return fmt.Sprintf("sp[%d]:%v", o.Index, o.Kind)
	case RegisterTag:
		return fmt.Sprintf("r%d:%v", o.Index, o.Kind)
	case VariableTag:
		return fmt.Sprintf("v%d:%v", o.Index, o.Kind)
	default:
		panic(o.Tag)
	}
}

func (o Operand) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	if o.IsIllegal() {
		return e.AppendNil(b)
	}

	return e.AppendFormat(b, "%v", o)
}
