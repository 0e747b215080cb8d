package target

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/lirgen/compiler/ir"
	"github.com/slowlang/lirgen/compiler/lir"
)

func TestByName(t *testing.T) {
	for _, n := range []string{"x86", "amd64", "arm64"} {
		a, err := ByName(n)
		require.NoError(t, err)
		assert.Equal(t, n, a.Name())
	}

	_, err := ByName("sparc")
	assert.Error(t, err)
}

func TestCallingConventionAMD64(t *testing.T) {
	a := AMD64()

	cc := a.CallingConvention([]ir.Kind{ir.Object, ir.Int, ir.Double, ir.Long, ir.Int, ir.Int, ir.Int, ir.Int}, JavaCall, true)

	assert.Equal(t, lir.Reg(4, ir.Object), cc.Locations[0])
	assert.Equal(t, lir.Reg(2, ir.Int), cc.Locations[1])
	assert.Equal(t, lir.Reg(14, ir.Double), cc.Locations[2])
	assert.Equal(t, lir.Reg(1, ir.Long), cc.Locations[3])
	assert.Equal(t, lir.Reg(5, ir.Int), cc.Locations[6])
	assert.Equal(t, lir.Slot(0, ir.Int, false), cc.Locations[7])
	assert.Equal(t, 16, cc.StackSize)
}

func TestCallingConventionX86DoubleWordAlignment(t *testing.T) {
	a := X86()

	cc := a.CallingConvention([]ir.Kind{ir.Int, ir.Long, ir.Object, ir.Double}, RuntimeCall, true)

	assert.Equal(t, lir.Slot(0, ir.Int, false), cc.Locations[0])
	assert.Equal(t, lir.Slot(8, ir.Long, false), cc.Locations[1])
	assert.Equal(t, lir.Slot(16, ir.Object, false), cc.Locations[2])
	assert.Equal(t, lir.Slot(24, ir.Double, false), cc.Locations[3])
	assert.Equal(t, 32, cc.StackSize)

	cc = a.CallingConvention([]ir.Kind{ir.Byte, ir.Long}, JavaCall, false)

	assert.Equal(t, lir.Reg(1, ir.Int), cc.Locations[0])
	assert.Equal(t, lir.Slot(0, ir.Long, true), cc.Locations[1])
}

func TestArchCapabilities(t *testing.T) {
	x86, amd64, arm64 := X86(), AMD64(), ARM64()

	assert.True(t, x86.RequiresByteRegisters())
	assert.False(t, amd64.RequiresByteRegisters())
	assert.True(t, x86.IsByteRegister(3))
	assert.False(t, x86.IsByteRegister(4))

	assert.True(t, amd64.TwoOperandMode())
	assert.False(t, arm64.TwoOperandMode())

	_, _, _, ok := arm64.DivisionRegisters()
	assert.False(t, ok)

	_, ok = amd64.ShiftCountRegister()
	assert.True(t, ok)

	assert.False(t, x86.SupportsConversion(ir.L2D))
	assert.True(t, amd64.SupportsConversion(ir.L2D))

	assert.True(t, arm64.CanInlineConstant(ir.IntConst(100)))
	assert.False(t, arm64.CanInlineConstant(ir.IntConst(5000)))
	assert.False(t, amd64.CanInlineConstant(ir.LongConst(1<<40)))

	assert.True(t, arm64.CanStoreConstant(ir.IntConst(0), ir.Int))
	assert.False(t, arm64.CanStoreConstant(ir.IntConst(1), ir.Int))

	assert.Equal(t, lir.Reg(29, ir.Double), arm64.ReturnRegister(ir.Double))
	assert.Equal(t, lir.Reg(0, ir.Int), amd64.ReturnRegister(ir.Byte))
	assert.Equal(t, lir.Illegal, amd64.ReturnRegister(ir.Void))
}

func TestFrameMap(t *testing.T) {
	f := NewFrameMap(AMD64())

	f.ReserveOutgoing(16)
	f.ReserveOutgoing(8)

	assert.Equal(t, 16, f.OutgoingSize())

	blk := f.ReserveStackBlock(12)
	assert.Equal(t, lir.Slot(-16, ir.Long, false), blk)

	m1 := f.MonitorSlot(1)
	m0 := f.MonitorSlot(0)

	assert.Equal(t, 2, f.Monitors())
	assert.NotEqual(t, m0, m1)
	assert.Equal(t, m1, f.MonitorSlot(1))
	assert.Equal(t, 16+16+32, f.FrameSize())
}
