package lir

import (
	"github.com/slowlang/lirgen/compiler/ir"
	"github.com/slowlang/lirgen/compiler/snippet"
)

type (
	Label int

	Code     uint8
	CallCode uint8

	// Instr is one of the instruction types below. The set is closed.
	Instr interface {
		instr()
	}

	// FrameInfo is the deoptimization state at a trapping instruction.
	FrameInfo struct {
		Method string
		BCI    int

		Locals []Operand
		Stack  []Operand
		Locks  []Operand

		Outer *FrameInfo
	}

	Move struct {
		Dst, Src Operand

		Unaligned bool
	}

	Op1 struct {
		Code   Code
		Conv   ir.ConvOp
		Result Operand
		X      Operand
	}

	Op2 struct {
		Code   Code
		Result Operand
		X, Y   Operand
		Temp   Operand
		Info   *FrameInfo
	}

	Cmp struct {
		Cond ir.Cond
		X, Y Operand
	}

	CMove struct {
		Cond        ir.Cond
		Result      Operand
		True, False Operand
		Unordered   bool
	}

	Branch struct {
		Cond   ir.Cond
		Kind   ir.Kind
		Target Label

		Unordered Label // NoLabel unless a floating compare
	}

	Jump struct {
		Target Label
	}

	Bind struct {
		Label Label
	}

	// TableSwitch jumps to Targets[Index-Low] or Default.
	TableSwitch struct {
		Index   Operand
		Temp    Operand
		Low     int32
		Targets []Label
		Default Label
	}

	Load struct {
		Result Operand
		Base   Operand
		Disp   int
		Kind   ir.Kind
		Info   *FrameInfo
	}

	Store struct {
		Base  Operand
		Disp  int
		Value Operand
		Kind  ir.Kind
		Info  *FrameInfo
	}

	NullCheck struct {
		X    Operand
		Info *FrameInfo
	}

	Call struct {
		Code   CallCode
		Target string

		Result  Operand
		Args    []Operand
		Address Operand

		PointerSlots []Operand

		Info *FrameInfo
	}

	Return struct {
		Result Operand
	}

	// Throw jumps to Handler, or unwinds the frame if Unwind is set.
	Throw struct {
		Exception Operand
		Unwind    bool
		Handler   Label // NoLabel when unwinding
		Info      *FrameInfo
	}

	MemBar struct {
		Barriers int
	}

	// Xir is an expanded template: Operands[i] is bound to T.Params[i].
	Xir struct {
		T        *snippet.Template
		Operands []Operand
		Result   Operand
		Info     *FrameInfo
		Method   string
	}

	// DeoptStub is a recovery entry point resolved by the assembler.
	DeoptStub struct {
		Label  Label
		Info   *FrameInfo
		Reason string
	}
)

const NoLabel Label = -1

const (
	Nop Code = iota
	Neg
	Abs
	Sqrt
	Conv
	Add
	Sub
	Mul
	Div
	Rem
	And
	Or
	Xor
	Shl
	Shr
	Ushr
	Cmp3   // long three-way compare
	FCmp3L // floating three-way compare, unordered is -1
	FCmp3G // floating three-way compare, unordered is 1
)

const (
	DirectCall CallCode = iota
	IndirectCall
	RuntimeCall
	NativeCall
)

func (Move) instr()        {}
func (Op1) instr()         {}
func (Op2) instr()         {}
func (Cmp) instr()         {}
func (CMove) instr()       {}
func (Branch) instr()      {}
func (Jump) instr()        {}
func (Bind) instr()        {}
func (TableSwitch) instr() {}
func (Load) instr()        {}
func (Store) instr()       {}
func (NullCheck) instr()   {}
func (Call) instr()        {}
func (Return) instr()      {}
func (Throw) instr()       {}
func (MemBar) instr()      {}
func (Xir) instr()         {}

var codeNames = [...]string{
	Nop: "nop", Neg: "neg", Abs: "abs", Sqrt: "sqrt", Conv: "conv",
	Add: "add", Sub: "sub", Mul: "mul", Div: "div", Rem: "rem",
	And: "and", Or: "or", Xor: "xor", Shl: "shl", Shr: "shr", Ushr: "ushr",
	Cmp3: "cmp3", FCmp3L: "fcmp3l", FCmp3G: "fcmp3g",
}

func (c Code) String() string { return codeNames[c] }

var callNames = [...]string{DirectCall: "call", IndirectCall: "icall", RuntimeCall: "rtcall", NativeCall: "ncall"}

func (c CallCode) String() string { return callNames[c] }

// BlockLabel is the label bound at the start of block id.
func BlockLabel(id ir.BlockID) Label { return Label(id) }
