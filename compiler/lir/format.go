package lir

import (
	"github.com/nikandfor/hacked/hfmt"
)

func (m *Method) AppendText(b []byte) []byte {
	b = hfmt.Appendf(b, "method %s  vars %d  outgoing %d  monitors %d\n", m.Name, m.NumVariables(), m.OutgoingSize, m.Monitors)

	for _, id := range m.Order {
		b = hfmt.Appendf(b, "B%d:\n", id)

		for _, x := range m.Blocks[id] {
			b = append(b, '\t')
			b = AppendInstr(b, x)
			b = append(b, '\n')
		}
	}

	for _, s := range m.Stubs {
		b = hfmt.Appendf(b, "stub L%d  deopt %q  %v\n", s.Label, s.Reason, s.Info)
	}

	if len(m.GlobalStubs) != 0 {
		b = hfmt.Appendf(b, "global stubs %v\n", m.GlobalStubs)
	}

	return b
}

func AppendInstr(b []byte, x Instr) []byte {
	switch x := x.(type) {
	case Move:
		op := "mov"
		if x.Unaligned {
			op = "movu"
		}

		b = hfmt.Appendf(b, "%-6s %v, %v", op, x.Dst, x.Src)
	case Op1:
		if x.Code == Conv {
			b = hfmt.Appendf(b, "%-6v %v, %v", x.Conv, x.Result, x.X)
		} else {
			b = hfmt.Appendf(b, "%-6v %v, %v", x.Code, x.Result, x.X)
		}
	case Op2:
		b = hfmt.Appendf(b, "%-6v %v, %v, %v", x.Code, x.Result, x.X, x.Y)

		if x.Temp.IsLegal() {
			b = hfmt.Appendf(b, "  tmp %v", x.Temp)
		}

		b = appendInfo(b, x.Info)
	case Cmp:
		b = hfmt.Appendf(b, "%-6s %v, %v  // %v", "cmp", x.X, x.Y, x.Cond)
	case CMove:
		b = hfmt.Appendf(b, "%-6s %v, %v ? %v : %v", "cmov", x.Result, x.Cond, x.True, x.False)
	case Branch:
		b = hfmt.Appendf(b, "%-6s %v L%d", "br", x.Cond, x.Target)

		if x.Unordered != NoLabel {
			b = hfmt.Appendf(b, "  unordered L%d", x.Unordered)
		}
	case Jump:
		b = hfmt.Appendf(b, "%-6s L%d", "jmp", x.Target)
	case Bind:
		b = hfmt.Appendf(b, "L%d:", x.Label)
	case TableSwitch:
		b = hfmt.Appendf(b, "%-6s %v - %d, %v, default L%d", "table", x.Index, x.Low, x.Targets, x.Default)
	case Load:
		b = hfmt.Appendf(b, "%-6s %v, [%v+%d]", "load", x.Result, x.Base, x.Disp)
		b = appendInfo(b, x.Info)
	case Store:
		b = hfmt.Appendf(b, "%-6s [%v+%d], %v", "store", x.Base, x.Disp, x.Value)
		b = appendInfo(b, x.Info)
	case NullCheck:
		b = hfmt.Appendf(b, "%-6s %v", "nullck", x.X)
		b = appendInfo(b, x.Info)
	case Call:
		b = hfmt.Appendf(b, "%-6v %v, %s%v", x.Code, x.Result, x.Target, x.Args)

		if x.Address.IsLegal() {
			b = hfmt.Appendf(b, "  via %v", x.Address)
		}

		if len(x.PointerSlots) != 0 {
			b = hfmt.Appendf(b, "  oops %v", x.PointerSlots)
		}

		b = appendInfo(b, x.Info)
	case Return:
		b = hfmt.Appendf(b, "%-6s %v", "ret", x.Result)
	case Throw:
		op := "throw"
		if x.Unwind {
			op = "unwind"
		}

		b = hfmt.Appendf(b, "%-6s %v", op, x.Exception)

		if x.Handler != NoLabel {
			b = hfmt.Appendf(b, " L%d", x.Handler)
		}

		b = appendInfo(b, x.Info)
	case MemBar:
		b = hfmt.Appendf(b, "%-6s %#x", "membar", x.Barriers)
	case Xir:
		b = hfmt.Appendf(b, "%-6s %v %v -> %v", "xir", x.T.Name, x.Operands, x.Result)
		b = appendInfo(b, x.Info)
	default:
		panic(x)
	}

	return b
}

func appendInfo(b []byte, info *FrameInfo) []byte {
	if info == nil {
		return b
	}

	return hfmt.Appendf(b, "  @%v", info)
}

func (fi *FrameInfo) String() string {
	if fi == nil {
		return "<nil>"
	}

	b := hfmt.Appendf(nil, "%s:%d locals %v stack %v", fi.Method, fi.BCI, fi.Locals, fi.Stack)

	if len(fi.Locks) != 0 {
		b = hfmt.Appendf(b, " locks %v", fi.Locks)
	}

	if fi.Outer != nil {
		b = hfmt.Appendf(b, " <- %v", fi.Outer)
	}

	return string(b)
}
