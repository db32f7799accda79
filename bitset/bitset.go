package bitset

import "math/bits"

// BitSet is a fixed-capacity set of small non-negative integers. The oracle
// uses it to record which state handles a price query actually read.
type BitSet []uint64

// NewBitSet returns a BitSet able to hold indices in [0, n).
func NewBitSet(n int) BitSet {
	if n < 0 {
		n = 0
	}
	return make(BitSet, (n+63)/64)
}

// Cap returns the number of indices the set can hold.
func (b BitSet) Cap() int {
	return len(b) * 64
}

func (b BitSet) IsSet(index int) bool {
	if index < 0 || index >= b.Cap() {
		return false
	}
	return b[index/64]&(uint64(1)<<(uint(index)%64)) != 0
}

// Set marks index as present. Indices outside the capacity are ignored.
func (b BitSet) Set(index int) {
	if index < 0 || index >= b.Cap() {
		return
	}
	b[index/64] |= uint64(1) << (uint(index) % 64)
}

// Count returns the number of set indices.
func (b BitSet) Count() int {
	n := 0
	for _, w := range b {
		n += bits.OnesCount64(w)
	}
	return n
}
