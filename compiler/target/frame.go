package target

import (
	"github.com/slowlang/lirgen/compiler/ir"
	"github.com/slowlang/lirgen/compiler/lir"
)

type (
	// FrameMap hands out stack space of one compilation.
	// Non-negative slot offsets address the outgoing argument area,
	// negative ones the fixed part of the frame below the frame pointer.
	FrameMap struct {
		arch Arch

		outgoing int
		fixed    int
		monitors []int // lock record offsets
	}
)

func NewFrameMap(a Arch) *FrameMap {
	return &FrameMap{arch: a}
}

func (f *FrameMap) Arch() Arch { return f.arch }

// IncomingArguments is the convention the method itself is called with.
func (f *FrameMap) IncomingArguments(kinds []ir.Kind) *CallingConvention {
	return f.arch.CallingConvention(kinds, JavaCall, false)
}

// ReserveOutgoing grows the outgoing area to at least size bytes.
func (f *FrameMap) ReserveOutgoing(size int) {
	if size > f.outgoing {
		f.outgoing = size
	}
}

// ReserveStackBlock reserves size bytes in the fixed frame area.
func (f *FrameMap) ReserveStackBlock(size int) lir.Operand {
	w := f.arch.WordSize()

	f.fixed += alignUp(size, w)

	return lir.Slot(-f.fixed, f.arch.WordKind(), false)
}

// MonitorSlot is the lock record of monitor number lock. Each record is
// two words: displaced header and owner.
func (f *FrameMap) MonitorSlot(lock int) lir.Operand {
	for len(f.monitors) <= lock {
		s := f.ReserveStackBlock(2 * f.arch.WordSize())
		f.monitors = append(f.monitors, s.Index)
	}

	return lir.Slot(f.monitors[lock], f.arch.WordKind(), false)
}

func (f *FrameMap) OutgoingSize() int { return f.outgoing }
func (f *FrameMap) Monitors() int     { return len(f.monitors) }

func (f *FrameMap) FrameSize() int {
	return alignUp(f.fixed+f.outgoing, 16)
}
