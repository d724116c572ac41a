package cubify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkBijection verifies that fw and bw are inverse of each other on all
// live persistent ids.
func checkBijection(t *testing.T, b *Bimap, livePs []int) {
	t.Helper()
	for _, p := range livePs {
		tr := b.Fw(p)
		require.GreaterOrEqual(t, tr, 0, "live id %d is dropped", p)
		assert.Equal(t, p, b.Bw(tr), "bw(fw(%d))", p)
	}
}

func TestBimapAddDrop(t *testing.T) {
	b := NewBimap()
	p0 := b.Add(0)
	p1 := b.Add(1)
	p2 := b.Add(2)
	assert.Equal(t, []int{0, 1, 2}, []int{p0, p1, p2}, "persistent ids are assigned in order")
	checkBijection(t, b, []int{p0, p1, p2})

	b.Drop(1)
	assert.Equal(t, -1, b.Fw(p1))
	assert.Equal(t, -1, b.Bw(1))
	checkBijection(t, b, []int{p0, p2})

	// Ids are never reused, even after a drop.
	p3 := b.Add(1)
	assert.Equal(t, 3, p3)
	checkBijection(t, b, []int{p0, p2, p3})
}

func TestBimapSwap(t *testing.T) {
	b := NewBimap()
	p0 := b.Add(0)
	p1 := b.Add(1)
	b.Swap(0, 1)
	assert.Equal(t, 1, b.Fw(p0))
	assert.Equal(t, 0, b.Fw(p1))
	checkBijection(t, b, []int{p0, p1})
	b.Swap(0, 1)
	assert.Equal(t, 0, b.Fw(p0))
	assert.Equal(t, 1, b.Fw(p1))
}

func TestBimapSwapDropPattern(t *testing.T) {
	// The swap-with-last removal used when dropping clause slots.
	b := NewBimap()
	p0 := b.Add(0)
	p1 := b.Add(1)
	p2 := b.Add(2)
	// Drop slot 0: slot 2 moves into it.
	b.Swap(0, 2)
	b.Drop(2)
	assert.Equal(t, -1, b.Fw(p0))
	assert.Equal(t, 1, b.Fw(p1))
	assert.Equal(t, 0, b.Fw(p2))
	checkBijection(t, b, []int{p1, p2})
}

func TestBimapWillMoveFlip(t *testing.T) {
	b := NewBimap()
	p0 := b.Add(0)
	p1 := b.Add(1)
	p2 := b.Add(2)
	p3 := b.Add(3)
	// Simplification keeps clauses 2 and 3 only, compacting them to the
	// front; 0 and 1 are dropped by omission.
	b.WillMove(2, 0)
	b.WillMove(3, 1)
	b.FlipBuffer()
	assert.Equal(t, 0, b.Fw(p2))
	assert.Equal(t, 1, b.Fw(p3))
	assert.Equal(t, -1, b.Fw(p0))
	assert.Equal(t, -1, b.Fw(p1))
	checkBijection(t, b, []int{p2, p3})
}

func TestBimapFlipThenGrow(t *testing.T) {
	b := NewBimap()
	_ = b.Add(0)
	p1 := b.Add(1)
	b.WillMove(1, 0)
	b.FlipBuffer()
	require.Equal(t, 0, b.Fw(p1))
	// The map keeps working after a flip.
	p2 := b.Add(1)
	assert.Equal(t, 1, b.Fw(p2))
	b.Swap(0, 1)
	assert.Equal(t, 1, b.Fw(p1))
	assert.Equal(t, 0, b.Fw(p2))
	checkBijection(t, b, []int{p1, p2})
}
