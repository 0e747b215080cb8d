package ir

import (
	"fmt"
	"math"

	"tlog.app/go/tlog/tlwire"
)

type (
	Kind uint8

	// Const is a compile-time literal. Object constants are named by Ref,
	// the null reference has an empty Ref.
	Const struct {
		Kind Kind
		Bits int64
		Ref  string
	}
)

const (
	Illegal Kind = iota
	Void
	Boolean
	Byte
	Short
	Char
	Int
	Long
	Float
	Double
	Object
	Word
)

var kindNames = [...]string{
	Illegal: "illegal",
	Void:    "void",
	Boolean: "z",
	Byte:    "b",
	Short:   "s",
	Char:    "c",
	Int:     "i",
	Long:    "l",
	Float:   "f",
	Double:  "d",
	Object:  "a",
	Word:    "w",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}

	return fmt.Sprintf("kind(%d)", k)
}

// StackKind widens sub-int kinds to Int.
func (k Kind) StackKind() Kind {
	switch k {
	case Boolean, Byte, Short, Char:
		return Int
	}

	return k
}

func (k Kind) Slots() int {
	switch k {
	case Illegal, Void:
		return 0
	case Long, Double:
		return 2
	}

	return 1
}

func (k Kind) IsDoubleWord() bool { return k == Long || k == Double }
func (k Kind) IsFloating() bool   { return k == Float || k == Double }
func (k Kind) IsByte() bool       { return k == Byte || k == Boolean }

func (k Kind) IsInteger() bool {
	switch k {
	case Boolean, Byte, Short, Char, Int, Long, Word:
		return true
	}

	return false
}

func (k Kind) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	return e.AppendFormat(b, "%v", k)
}

func IntConst(v int32) Const    { return Const{Kind: Int, Bits: int64(v)} }
func LongConst(v int64) Const   { return Const{Kind: Long, Bits: v} }
func BoolConst(v bool) Const    { return Const{Kind: Boolean, Bits: b2i(v)} }
func NullConst() Const          { return Const{Kind: Object} }
func ObjConst(ref string) Const { return Const{Kind: Object, Ref: ref} }

func FloatConst(v float32) Const {
	return Const{Kind: Float, Bits: int64(math.Float32bits(v))}
}

func DoubleConst(v float64) Const {
	return Const{Kind: Double, Bits: int64(math.Float64bits(v))}
}

func (c Const) Int() int32  { return int32(c.Bits) }
func (c Const) Long() int64 { return c.Bits }

func (c Const) Float64() float64 {
	switch c.Kind {
	case Float:
		return float64(math.Float32frombits(uint32(c.Bits)))
	case Double:
		return math.Float64frombits(uint64(c.Bits))
	}

	return float64(c.Bits)
}

func (c Const) IsNull() bool {
	return c.Kind == Object && c.Ref == ""
}

// IsDefault reports the all-zero value of the kind.
func (c Const) IsDefault() bool {
	return c.Bits == 0 && c.Ref == ""
}

func (c Const) String() string {
	switch c.Kind {
	case Float, Double:
		return fmt.Sprintf("%v%v", c.Float64(), c.Kind)
	case Object:
		if c.Ref == "" {
			return "null"
		}

		return fmt.Sprintf("&%s", c.Ref)
	}

	return fmt.Sprintf("%d%v", c.Bits, c.Kind)
}

func b2i(v bool) int64 {
	if v {
		return 1
	}

	return 0
}
