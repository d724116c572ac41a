package cubify

import (
	"fmt"
	"strings"

	"github.com/satlab/cubisat/solver"
)

// A Cube is a conjunction of literals, stored as a sequence sorted by the
// literal packing order, without duplicates. It is the negation of a clause:
// assuming a cube means making every literal of it true.
type Cube []solver.Lit

// CubeOf returns the cube made of the given literals.
func CubeOf(lits ...solver.Lit) Cube {
	var c Cube
	for _, l := range lits {
		c.Push(l)
	}
	return c
}

// NegationOfClause returns the cube that is the negation of the given clause.
func NegationOfClause(clause *solver.Clause) Cube {
	var c Cube
	for i := 0; i < clause.Len(); i++ {
		c.Push(clause.Get(i).Negation())
	}
	return c
}

// Push bubble-inserts l, keeping the cube sorted. It is a no-op if l is
// already contained.
func (c *Cube) Push(l solver.Lit) {
	if c.Contains(l) {
		return
	}
	lits := append(*c, l)
	for i := len(lits) - 1; i > 0; i-- {
		if lits[i] < lits[i-1] {
			lits[i-1], lits[i] = lits[i], lits[i-1]
		} else {
			break
		}
	}
	*c = lits
}

// Pop removes l from the cube. It is a no-op if l is not contained.
func (c *Cube) Pop(l solver.Lit) {
	lits := *c
	for i, l2 := range lits {
		if l2 == l {
			copy(lits[i:], lits[i+1:])
			*c = lits[:len(lits)-1]
			return
		}
	}
}

// Contains returns true iff l is one of the cube's literals.
func (c Cube) Contains(l solver.Lit) bool {
	for _, l2 := range c {
		if l2 == l {
			return true
		}
	}
	return false
}

// SubsetOf returns true iff every literal of c appears in other.
func (c Cube) SubsetOf(other Cube) bool {
	for _, l := range c {
		if !other.Contains(l) {
			return false
		}
	}
	return true
}

// StartsWith returns true iff other is a prefix of c.
func (c Cube) StartsWith(other Cube) bool {
	if len(other) > len(c) {
		return false
	}
	for i, l := range other {
		if c[i] != l {
			return false
		}
	}
	return true
}

// Equal returns true iff both cubes hold the same literals.
func (c Cube) Equal(other Cube) bool {
	if len(c) != len(other) {
		return false
	}
	for i, l := range c {
		if other[i] != l {
			return false
		}
	}
	return true
}

// Less provides a total order on cubes (lexicographic on the literal order).
func (c Cube) Less(other Cube) bool {
	for i, l := range c {
		if i >= len(other) {
			return false
		}
		if l != other[i] {
			return l < other[i]
		}
	}
	return len(c) < len(other)
}

// Clone returns a copy of the cube that shares no storage with it.
func (c Cube) Clone() Cube {
	return append(Cube(nil), c...)
}

// Invert returns the clause literals equivalent to the negation of the cube.
func (c Cube) Invert() []solver.Lit {
	lits := make([]solver.Lit, len(c))
	for i, l := range c {
		lits[i] = l.Negation()
	}
	return lits
}

// Hash returns a rolling hash of the literal sequence. Since cubes are
// sorted, it only depends on the literal set.
func (c Cube) Hash() uint64 {
	var x uint64
	for _, l := range c {
		x = (x << 27) | (x >> 37)
		x ^= uint64(uint32(l))
	}
	return x
}

// Key returns a compact string encoding of the cube, usable as a map key.
// Two cubes have the same key iff they are Equal.
func (c Cube) Key() string {
	var b strings.Builder
	b.Grow(len(c) * 4)
	for _, l := range c {
		b.WriteByte(byte(l))
		b.WriteByte(byte(l >> 8))
		b.WriteByte(byte(l >> 16))
		b.WriteByte(byte(l >> 24))
	}
	return b.String()
}

// Sane returns true iff the literals are strictly increasing and no variable
// appears twice.
func (c Cube) Sane() bool {
	for i := 0; i+1 < len(c); i++ {
		if c[i] >= c[i+1] || c[i].Var() == c[i+1].Var() {
			return false
		}
	}
	return true
}

func (c Cube) String() string {
	parts := make([]string, len(c))
	for i, l := range c {
		parts[i] = fmt.Sprintf("%d", l.Int())
	}
	return "{" + strings.Join(parts, " ") + "}"
}
