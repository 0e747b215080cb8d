package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindSlots(t *testing.T) {
	assert.Equal(t, 0, Void.Slots())
	assert.Equal(t, 1, Int.Slots())
	assert.Equal(t, 1, Object.Slots())
	assert.Equal(t, 2, Long.Slots())
	assert.Equal(t, 2, Double.Slots())

	for _, k := range []Kind{Boolean, Byte, Short, Char, Int, Long, Word} {
		assert.True(t, k.IsInteger(), "%v", k)
	}

	for _, k := range []Kind{Float, Double, Object, Void} {
		assert.False(t, k.IsInteger(), "%v", k)
	}
}

func TestConst(t *testing.T) {
	assert.Equal(t, Const{Kind: Boolean, Bits: 1}, BoolConst(true))
	assert.True(t, BoolConst(false).IsDefault())

	assert.Equal(t, 1.5, FloatConst(1.5).Float64())
	assert.Equal(t, -0.25, DoubleConst(-0.25).Float64())
	assert.False(t, DoubleConst(0.5).IsDefault())

	assert.Equal(t, "1.5f", FloatConst(1.5).String())
	assert.Equal(t, "7i", IntConst(7).String())
	assert.Equal(t, "null", NullConst().String())
	assert.True(t, NullConst().IsNull())
	assert.False(t, ObjConst("str").IsNull())
}
