package target

import (
	"tlog.app/go/errors"

	"github.com/slowlang/lirgen/compiler/ir"
	"github.com/slowlang/lirgen/compiler/lir"
)

type (
	CallKind uint8

	Register struct {
		Num   int
		Name  string
		Byte  bool // has a byte-addressable low part
		Float bool
	}

	// CallingConvention lists one location per argument.
	CallingConvention struct {
		Locations []lir.Operand
		StackSize int
	}

	// Arch is the set of target properties the generator depends on.
	Arch interface {
		Name() string
		WordSize() int
		WordKind() ir.Kind

		Registers() []Register
		RegisterName(num int) string

		// RequiresByteRegisters means byte stores must use the byte subset.
		RequiresByteRegisters() bool
		IsByteRegister(num int) bool

		// TwoOperandMode means arithmetic destination must equal the first source.
		TwoOperandMode() bool

		CanInlineConstant(c ir.Const) bool
		CanStoreConstant(c ir.Const, k ir.Kind) bool

		ReturnRegister(k ir.Kind) lir.Operand
		ExceptionRegister() lir.Operand

		DivisionRegisters() (dividend, quotient, remainder int, ok bool)
		ShiftCountRegister() (int, bool)

		SupportsConversion(op ir.ConvOp) bool

		CallingConvention(kinds []ir.Kind, ck CallKind, outgoing bool) *CallingConvention
	}

	arch struct {
		name     string
		wordSize int
		regs     []Register

		twoOperand   bool
		byteRegs     bool
		div          [3]int
		shiftCount   int
		ret, fret    int
		exception    int
		javaInt      []int
		javaFloat    []int
		nativeInt    []int
		nativeFloat  []int
		stackAlign   int
		noConversion []ir.ConvOp

		inline func(c ir.Const) bool
		store  func(c ir.Const, k ir.Kind) bool
	}
)

const (
	JavaCall CallKind = iota
	RuntimeCall
	NativeCall
)

var callKindNames = [...]string{JavaCall: "java", RuntimeCall: "runtime", NativeCall: "native"}

func (k CallKind) String() string { return callKindNames[k] }

func ByName(name string) (Arch, error) {
	switch name {
	case "x86", "386":
		return X86(), nil
	case "amd64", "x86_64":
		return AMD64(), nil
	case "arm64", "aarch64":
		return ARM64(), nil
	}

	return nil, errors.New("unsupported architecture: %q", name)
}

func (a *arch) Name() string          { return a.name }
func (a *arch) WordSize() int         { return a.wordSize }
func (a *arch) Registers() []Register { return a.regs }

func (a *arch) WordKind() ir.Kind {
	if a.wordSize == 8 {
		return ir.Long
	}

	return ir.Int
}

func (a *arch) RegisterName(num int) string {
	if num < 0 || num >= len(a.regs) {
		return "?"
	}

	return a.regs[num].Name
}

func (a *arch) RequiresByteRegisters() bool { return a.byteRegs }
func (a *arch) TwoOperandMode() bool        { return a.twoOperand }

func (a *arch) IsByteRegister(num int) bool {
	return num >= 0 && num < len(a.regs) && a.regs[num].Byte
}

func (a *arch) CanInlineConstant(c ir.Const) bool           { return a.inline(c) }
func (a *arch) CanStoreConstant(c ir.Const, k ir.Kind) bool { return a.store(c, k) }

func (a *arch) ReturnRegister(k ir.Kind) lir.Operand {
	switch {
	case k == ir.Void:
		return lir.Illegal
	case k.IsFloating():
		return lir.Reg(a.fret, k)
	default:
		return lir.Reg(a.ret, k.StackKind())
	}
}

func (a *arch) ExceptionRegister() lir.Operand {
	return lir.Reg(a.exception, ir.Object)
}

func (a *arch) DivisionRegisters() (dividend, quotient, remainder int, ok bool) {
	if a.div[0] < 0 {
		return -1, -1, -1, false
	}

	return a.div[0], a.div[1], a.div[2], true
}

func (a *arch) ShiftCountRegister() (int, bool) {
	return a.shiftCount, a.shiftCount >= 0
}

func (a *arch) SupportsConversion(op ir.ConvOp) bool {
	for _, x := range a.noConversion {
		if x == op {
			return false
		}
	}

	return true
}

// CallingConvention assigns registers first, then stack slots.
// Double-word kinds on the stack are aligned to 8 bytes.
func (a *arch) CallingConvention(kinds []ir.Kind, ck CallKind, outgoing bool) *CallingConvention {
	intRegs, floatRegs := a.javaInt, a.javaFloat
	if ck != JavaCall {
		intRegs, floatRegs = a.nativeInt, a.nativeFloat
	}

	cc := &CallingConvention{
		Locations: make([]lir.Operand, len(kinds)),
	}

	ni, nf := 0, 0
	off := 0

	for i, k := range kinds {
		sk := k.StackKind()

		switch {
		case sk.IsFloating() && nf < len(floatRegs):
			cc.Locations[i] = lir.Reg(floatRegs[nf], sk)
			nf++

			continue
		case !sk.IsFloating() && ni < len(intRegs) && (a.wordSize == 8 || !sk.IsDoubleWord()):
			cc.Locations[i] = lir.Reg(intRegs[ni], sk)
			ni++

			continue
		}

		size := a.wordSize
		if n := sk.Slots(); n > 1 {
			size = max(size, 4*n)
			off = alignUp(off, 8)
		}

		cc.Locations[i] = lir.Slot(off, sk, !outgoing)
		off += size
	}

	cc.StackSize = alignUp(off, a.stackAlign)

	return cc
}

func alignUp(x, a int) int {
	return (x + a - 1) / a * a
}
