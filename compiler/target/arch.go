package target

import (
	"fmt"
	"math"

	"github.com/slowlang/lirgen/compiler/ir"
)

// X86 is 32-bit x86: two-operand instructions, only eax..ebx have byte parts,
// no direct long<->floating conversions.
func X86() Arch {
	regs := []Register{
		{Name: "eax", Byte: true},
		{Name: "ecx", Byte: true},
		{Name: "edx", Byte: true},
		{Name: "ebx", Byte: true},
		{Name: "esi"},
		{Name: "edi"},
	}

	regs = append(regs, floatRegs("xmm", 8)...)
	number(regs)

	return &arch{
		name:       "x86",
		wordSize:   4,
		regs:       regs,
		twoOperand: true,
		byteRegs:   true,
		div:        [3]int{0, 0, 2},
		shiftCount: 1,
		ret:        0,
		fret:       6,
		exception:  0,
		javaInt:    []int{1, 2},
		javaFloat:  []int{6, 7},
		stackAlign: 16,
		noConversion: []ir.ConvOp{
			ir.L2F, ir.L2D, ir.F2L, ir.D2L,
		},
		inline: func(c ir.Const) bool { return true },
		store:  func(c ir.Const, k ir.Kind) bool { return true },
	}
}

// AMD64 is x86-64 with the java argument order rsi, rdx, rcx, r8, r9, rdi.
func AMD64() Arch {
	regs := []Register{
		{Name: "rax", Byte: true},
		{Name: "rcx", Byte: true},
		{Name: "rdx", Byte: true},
		{Name: "rbx", Byte: true},
		{Name: "rsi", Byte: true},
		{Name: "rdi", Byte: true},
	}

	for i := 8; i < 16; i++ {
		regs = append(regs, Register{Name: fmt.Sprintf("r%d", i), Byte: true})
	}

	regs = append(regs, floatRegs("xmm", 16)...)
	number(regs)

	return &arch{
		name:        "amd64",
		wordSize:    8,
		regs:        regs,
		twoOperand:  true,
		div:         [3]int{0, 0, 2},
		shiftCount:  1,
		ret:         0,
		fret:        14,
		exception:   0,
		javaInt:     []int{4, 2, 1, 6, 7, 5},
		javaFloat:   []int{14, 15, 16, 17, 18, 19, 20, 21},
		nativeInt:   []int{5, 4, 2, 1, 6, 7},
		nativeFloat: []int{14, 15, 16, 17, 18, 19, 20, 21},
		stackAlign:  16,
		inline: func(c ir.Const) bool {
			return c.Kind != ir.Long || fitsInt32(c.Bits)
		},
		store: func(c ir.Const, k ir.Kind) bool {
			if k.IsDoubleWord() {
				return fitsInt32(c.Bits)
			}

			return c.Kind != ir.Object || c.IsNull()
		},
	}
}

// ARM64 has three-operand instructions and small add/sub immediates only.
func ARM64() Arch {
	var regs []Register

	for i := 0; i < 29; i++ {
		regs = append(regs, Register{Name: fmt.Sprintf("x%d", i)})
	}

	regs = append(regs, floatRegs("v", 32)...)
	number(regs)

	args := []int{0, 1, 2, 3, 4, 5, 6, 7}
	fargs := []int{29, 30, 31, 32, 33, 34, 35, 36}

	return &arch{
		name:        "arm64",
		wordSize:    8,
		regs:        regs,
		div:         [3]int{-1, -1, -1},
		shiftCount:  -1,
		ret:         0,
		fret:        29,
		exception:   0,
		javaInt:     args,
		javaFloat:   fargs,
		nativeInt:   args,
		nativeFloat: fargs,
		stackAlign:  16,
		inline: func(c ir.Const) bool {
			switch c.Kind {
			case ir.Int, ir.Long, ir.Boolean, ir.Byte, ir.Short, ir.Char:
				return c.Bits >= 0 && c.Bits < 4096
			case ir.Object:
				return c.IsNull()
			}

			return false
		},
		store: func(c ir.Const, k ir.Kind) bool {
			return c.IsDefault()
		},
	}
}

func floatRegs(prefix string, n int) []Register {
	regs := make([]Register, n)

	for i := range regs {
		regs[i] = Register{Name: fmt.Sprintf("%s%d", prefix, i), Float: true}
	}

	return regs
}

func number(regs []Register) {
	for i := range regs {
		regs[i].Num = i
	}
}

func fitsInt32(x int64) bool {
	return x >= math.MinInt32 && x <= math.MaxInt32
}
