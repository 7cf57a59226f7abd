// Package varset provides the dense bit-vector type backing every named
// variable set in the kernel pump's data model: binaries, general integers,
// continuous columns, the active-binary set, the kernel, each bucket, and
// every column's dependency set. It is the Go analogue of the boost
// dynamic_bitset the original implementation used for the same sets.
package varset

import "github.com/bits-and-blooms/bitset"

// Set is a dense bit vector of a fixed universe size n (the column count of
// a model). The zero value is not usable; construct with New.
type Set struct {
	bits *bitset.BitSet
	n    uint
}

// New returns an empty Set over a universe of n columns.
func New(n int) *Set {
	return &Set{bits: bitset.New(uint(n)), n: uint(n)}
}

// Len returns the universe size n.
func (s *Set) Len() int {
	return int(s.n)
}

// Set activates bit j.
func (s *Set) Set(j int) {
	s.bits.Set(uint(j))
}

// Clear deactivates bit j.
func (s *Set) Clear(j int) {
	s.bits.Clear(uint(j))
}

// Test reports whether bit j is active.
func (s *Set) Test(j int) bool {
	return s.bits.Test(uint(j))
}

// ClearAll deactivates every bit.
func (s *Set) ClearAll() {
	s.bits.ClearAll()
}

// Count returns the number of active bits.
func (s *Set) Count() int {
	return int(s.bits.Count())
}

// Clone returns an independent copy.
func (s *Set) Clone() *Set {
	return &Set{bits: s.bits.Clone(), n: s.n}
}

// Union returns a new Set containing the union of s and other.
func (s *Set) Union(other *Set) *Set {
	return &Set{bits: s.bits.Union(other.bits), n: s.n}
}

// UnionInPlace sets every bit of other in s.
func (s *Set) UnionInPlace(other *Set) {
	s.bits.InPlaceUnion(other.bits)
}

// Difference returns a new Set containing every bit in s not in other.
func (s *Set) Difference(other *Set) *Set {
	return &Set{bits: s.bits.Difference(other.bits), n: s.n}
}

// DifferenceInPlace clears every bit of other in s.
func (s *Set) DifferenceInPlace(other *Set) {
	s.bits.InPlaceDifference(other.bits)
}

// Intersection returns a new Set containing the bits common to s and other.
func (s *Set) Intersection(other *Set) *Set {
	return &Set{bits: s.bits.Intersection(other.bits), n: s.n}
}

// IsEmpty reports whether no bit is active.
func (s *Set) IsEmpty() bool {
	return s.bits.None()
}

// Equal reports whether s and other have exactly the same active bits.
func (s *Set) Equal(other *Set) bool {
	return s.bits.Equal(other.bits)
}

// Each calls f for every active bit, in increasing order; it stops early if
// f returns false.
func (s *Set) Each(f func(j int) bool) {
	for j, ok := s.bits.NextSet(0); ok; j, ok = s.bits.NextSet(j + 1) {
		if !f(int(j)) {
			return
		}
	}
}

// Slice returns the active bits as a sorted slice of indices.
func (s *Set) Slice() []int {
	out := make([]int, 0, s.Count())
	s.Each(func(j int) bool {
		out = append(out, j)
		return true
	})
	return out
}

// FromSlice returns a new Set over universe n with every index in js set.
func FromSlice(n int, js []int) *Set {
	s := New(n)
	for _, j := range js {
		s.Set(j)
	}
	return s
}
