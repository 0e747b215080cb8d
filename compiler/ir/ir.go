package ir

type (
	Value   int
	BlockID int

	Cond    uint8
	ArithOp uint8
	LogicOp uint8
	ShiftOp uint8
	ConvOp  uint8

	InvokeOp    uint8
	IntrinsicOp uint8

	// Node is one of the types below. The set is closed.
	Node interface {
		node()
	}

	Field struct {
		Name   string
		Offset int
		Kind   Kind
	}

	Method struct {
		Holder string
		Name   string
		Params []Kind
		Result Kind
	}

	Param struct {
		Index int
	}

	// Phi has one input per predecessor of Block, in Block.Preds order.
	// Nil inputs are allowed where inlining collapsed a path.
	Phi struct {
		Block  BlockID
		Inputs []Value
	}

	Arith struct {
		Op    ArithOp
		X, Y  Value
		State *FrameState
	}

	Logic struct {
		Op   LogicOp
		X, Y Value
	}

	Shift struct {
		Op   ShiftOp
		X, Y Value
	}

	Negate struct {
		X Value
	}

	Convert struct {
		Op ConvOp
		X  Value
	}

	// Compare is a three-way compare producing -1, 0 or 1.
	// NaNLess selects -1 for unordered floating inputs.
	Compare struct {
		X, Y    Value
		NaNLess bool
	}

	Conditional struct {
		X, Y      Value
		Cond      Cond
		True      Value
		False     Value
		Unordered bool
	}

	NullCheck struct {
		Object Value
		State  *FrameState
	}

	Proxy struct {
		X Value
	}

	LoadField struct {
		Object Value
		Field  Field
		State  *FrameState
	}

	StoreField struct {
		Object Value
		Field  Field
		Value  Value
		State  *FrameState
	}

	ArrayLength struct {
		Array Value
		State *FrameState
	}

	LoadIndexed struct {
		Array, Index Value
		Elem         Kind
		State        *FrameState
	}

	StoreIndexed struct {
		Array, Index Value
		Value        Value
		Elem         Kind
		State        *FrameState
	}

	NewInstance struct {
		Type  string
		State *FrameState
	}

	NewArray struct {
		Elem   Kind
		Length Value
		State  *FrameState
	}

	CheckCast struct {
		Object Value
		Type   string
		State  *FrameState
	}

	InstanceOf struct {
		Object Value
		Type   string
		State  *FrameState
	}

	MonitorEnter struct {
		Object Value
		Lock   int
		State  *FrameState
	}

	MonitorExit struct {
		Object Value
		Lock   int
		State  *FrameState
	}

	Invoke struct {
		Op     InvokeOp
		Target Method
		Args   []Value
		State  *FrameState
	}

	Intrinsic struct {
		Op IntrinsicOp
		X  Value
	}

	MemoryBarrier struct {
		Barriers int
	}

	ExceptionObject struct {
		State *FrameState
	}

	// Guard deoptimizes unless X Cond Y holds.
	Guard struct {
		X, Y   Value
		Cond   Cond
		Reason string
		State  *FrameState
	}

	Deoptimize struct {
		Reason string
		State  *FrameState
	}

	Goto struct {
		Target    BlockID
		Safepoint bool
		State     *FrameState
	}

	If struct {
		X, Y      Value
		Cond      Cond
		True      BlockID
		False     BlockID
		Unordered bool // unordered floating compare takes True
		Safepoint bool
		State     *FrameState
	}

	TableSwitch struct {
		Value   Value
		Low     int32
		Targets []BlockID
		Default BlockID
	}

	LookupSwitch struct {
		Value   Value
		Keys    []int32
		Targets []BlockID
		Default BlockID
	}

	Return struct {
		Result Value
	}

	// Throw transfers to Handler if Handled, or leaves the method otherwise.
	Throw struct {
		Exception Value
		Handled   bool
		Handler   BlockID
		State     *FrameState
	}

	Unwind struct {
		Exception Value
	}
)

const (
	Nil Value = -1

	NoBlock BlockID = -1
)

const (
	EQ Cond = iota
	NE
	LT
	LE
	GT
	GE
	BT // unsigned <
	AE // unsigned >=
)

const (
	Add ArithOp = iota
	Sub
	Mul
	Div
	Rem
)

const (
	And LogicOp = iota
	Or
	Xor
)

const (
	Shl ShiftOp = iota
	Shr
	Ushr
)

const (
	I2L ConvOp = iota
	L2I
	I2B
	I2C
	I2S
	I2F
	I2D
	L2F
	L2D
	F2I
	F2L
	F2D
	D2I
	D2L
	D2F
)

const (
	InvokeStatic InvokeOp = iota
	InvokeSpecial
	InvokeVirtual
	InvokeInterface
)

const (
	Abs IntrinsicOp = iota
	Sqrt
	Sin
	Cos
	Tan
	Log
	Log10
)

func (Const) node()           {}
func (Param) node()           {}
func (Phi) node()             {}
func (Arith) node()           {}
func (Logic) node()           {}
func (Shift) node()           {}
func (Negate) node()          {}
func (Convert) node()         {}
func (Compare) node()         {}
func (Conditional) node()     {}
func (NullCheck) node()       {}
func (Proxy) node()           {}
func (LoadField) node()       {}
func (StoreField) node()      {}
func (ArrayLength) node()     {}
func (LoadIndexed) node()     {}
func (StoreIndexed) node()    {}
func (NewInstance) node()     {}
func (NewArray) node()        {}
func (CheckCast) node()       {}
func (InstanceOf) node()      {}
func (MonitorEnter) node()    {}
func (MonitorExit) node()     {}
func (Invoke) node()          {}
func (Intrinsic) node()       {}
func (MemoryBarrier) node()   {}
func (ExceptionObject) node() {}
func (Guard) node()           {}
func (Deoptimize) node()      {}
func (Goto) node()            {}
func (If) node()              {}
func (TableSwitch) node()     {}
func (LookupSwitch) node()    {}
func (Return) node()          {}
func (Throw) node()           {}
func (Unwind) node()          {}

var condNames = [...]string{EQ: "==", NE: "!=", LT: "<", LE: "<=", GT: ">", GE: ">=", BT: "|<|", AE: "|>=|"}

func (c Cond) String() string { return condNames[c] }

// Negate returns the condition taking the opposite branch.
func (c Cond) Negate() Cond {
	switch c {
	case EQ:
		return NE
	case NE:
		return EQ
	case LT:
		return GE
	case LE:
		return GT
	case GT:
		return LE
	case GE:
		return LT
	case BT:
		return AE
	case AE:
		return BT
	default:
		panic(c)
	}
}

// Mirror returns the condition with swapped operands.
func (c Cond) Mirror() Cond {
	switch c {
	case LT:
		return GT
	case LE:
		return GE
	case GT:
		return LT
	case GE:
		return LE
	case EQ, NE:
		return c
	default:
		panic(c)
	}
}

var arithNames = [...]string{Add: "add", Sub: "sub", Mul: "mul", Div: "div", Rem: "rem"}

func (op ArithOp) String() string { return arithNames[op] }

var logicNames = [...]string{And: "and", Or: "or", Xor: "xor"}

func (op LogicOp) String() string { return logicNames[op] }

var shiftNames = [...]string{Shl: "shl", Shr: "shr", Ushr: "ushr"}

func (op ShiftOp) String() string { return shiftNames[op] }

var convNames = [...]string{
	I2L: "i2l", L2I: "l2i", I2B: "i2b", I2C: "i2c", I2S: "i2s",
	I2F: "i2f", I2D: "i2d", L2F: "l2f", L2D: "l2d",
	F2I: "f2i", F2L: "f2l", F2D: "f2d", D2I: "d2i", D2L: "d2l", D2F: "d2f",
}

func (op ConvOp) String() string { return convNames[op] }

var intrinsicNames = [...]string{Abs: "abs", Sqrt: "sqrt", Sin: "sin", Cos: "cos", Tan: "tan", Log: "log", Log10: "log10"}

func (op IntrinsicOp) String() string { return intrinsicNames[op] }

func (op InvokeOp) HasReceiver() bool { return op != InvokeStatic }

// Successors lists the blocks a terminator may transfer control to.
// Switch defaults come last.
func Successors(n Node) []BlockID {
	switch n := n.(type) {
	case Goto:
		return []BlockID{n.Target}
	case If:
		return []BlockID{n.True, n.False}
	case TableSwitch:
		return append(dupIDs(n.Targets), n.Default)
	case LookupSwitch:
		return append(dupIDs(n.Targets), n.Default)
	case Throw:
		if n.Handled {
			return []BlockID{n.Handler}
		}
	}

	return nil
}

func IsTerminator(n Node) bool {
	switch n.(type) {
	case Goto, If, TableSwitch, LookupSwitch, Return, Throw, Unwind, Deoptimize:
		return true
	}

	return false
}

// StateOf returns the frame state a node needs for deoptimization.
func StateOf(n Node) *FrameState {
	switch n := n.(type) {
	case Arith:
		return n.State
	case NullCheck:
		return n.State
	case LoadField:
		return n.State
	case StoreField:
		return n.State
	case ArrayLength:
		return n.State
	case LoadIndexed:
		return n.State
	case StoreIndexed:
		return n.State
	case NewInstance:
		return n.State
	case NewArray:
		return n.State
	case CheckCast:
		return n.State
	case InstanceOf:
		return n.State
	case MonitorEnter:
		return n.State
	case MonitorExit:
		return n.State
	case Invoke:
		return n.State
	case ExceptionObject:
		return n.State
	case Guard:
		return n.State
	case Deoptimize:
		return n.State
	case Goto:
		return n.State
	case If:
		return n.State
	case Throw:
		return n.State
	}

	return nil
}

func dupIDs(s []BlockID) []BlockID {
	return append([]BlockID{}, s...)
}
