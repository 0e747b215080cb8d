package set

import (
	"math/bits"

	"tlog.app/go/tlog/tlwire"
)

type (
	Key interface {
		~int | ~int32 | ~int64
	}

	// Bits is a set of small non-negative ids such as values or blocks.
	// The zero value is empty and ready to use.
	Bits[K Key] struct {
		w []uint64
	}
)

func (s *Bits[K]) Set(k K) {
	i := int(k) >> 6

	for i >= len(s.w) {
		s.w = append(s.w, 0)
	}

	s.w[i] |= 1 << (uint(k) & 63)
}

func (s *Bits[K]) Clear(k K) {
	i := int(k) >> 6
	if i >= len(s.w) {
		return
	}

	s.w[i] &^= 1 << (uint(k) & 63)
}

func (s *Bits[K]) IsSet(k K) bool {
	i := int(k) >> 6
	if k < 0 || i >= len(s.w) {
		return false
	}

	return s.w[i]&(1<<(uint(k)&63)) != 0
}

// Len is the number of keys in the set.
func (s *Bits[K]) Len() (n int) {
	for _, w := range s.w {
		n += bits.OnesCount64(w)
	}

	return n
}

// Union adds all keys of x.
func (s *Bits[K]) Union(x *Bits[K]) {
	for len(s.w) < len(x.w) {
		s.w = append(s.w, 0)
	}

	for i, w := range x.w {
		s.w[i] |= w
	}
}

// Range calls f in increasing key order until it returns false.
func (s *Bits[K]) Range(f func(k K) bool) {
	for i, w := range s.w {
		for w != 0 {
			j := bits.TrailingZeros64(w)
			w &= w - 1

			if !f(K(i<<6 | j)) {
				return
			}
		}
	}
}

func (s *Bits[K]) Reset() {
	s.w = s.w[:0]
}

func (s Bits[K]) TlogAppend(b []byte) []byte {
	var e tlwire.LowEncoder

	b = e.AppendTag(b, tlwire.Array, -1)

	s.Range(func(k K) bool {
		b = e.AppendInt(b, int(k))

		return true
	})

	return e.AppendBreak(b)
}
