package cubify

// A Bimap is a bidirectional map between the persistent ids of live clauses
// and their current transient slots in the kernel's clause array. Persistent
// ids are assigned by Add, grow monotonically and are never reused; transient
// slots change whenever the kernel compacts or a clause is dropped. Slot
// relocations during simplification are staged with WillMove and committed
// atomically with FlipBuffer, which makes the Bimap a solver.MoveListener.
type Bimap struct {
	nextFree int

	// Persistent-to-transient map. Any id that does not occur here
	// refers to a clause that no longer exists.
	ptt map[int]int

	// Transient-to-permanent map; -1 marks a free slot.
	ttp []int

	// Transient-to-permanent map pending the next buffer flip.
	ttpNext []int
}

// NewBimap returns an empty bimap.
func NewBimap() *Bimap {
	return &Bimap{ptt: map[int]int{}}
}

// Add records a new clause living in transient slot t and returns the fresh
// persistent id assigned to it.
func (b *Bimap) Add(t int) int {
	if debugChecks && t < len(b.ttp) && b.ttp[t] != -1 {
		panic("bimap: slot already holds a live clause")
	}
	p := b.nextFree
	b.nextFree++
	b.ptt[p] = t
	for len(b.ttp) <= t {
		b.ttp = append(b.ttp, -1)
	}
	b.ttp[t] = p
	return p
}

// Drop forgets the clause whose transient slot is t.
func (b *Bimap) Drop(t int) {
	if debugChecks && (t >= len(b.ttp) || b.ttp[t] < 0) {
		panic("bimap: dropping a free slot")
	}
	delete(b.ptt, b.ttp[t])
	b.ttp[t] = -1
}

// Swap exchanges the clauses of transient slots t1 and t2.
func (b *Bimap) Swap(t1, t2 int) {
	if debugChecks && (t1 >= len(b.ttp) || t2 >= len(b.ttp) || b.ttp[t1] < 0 || b.ttp[t2] < 0) {
		panic("bimap: swapping a free slot")
	}
	p1, p2 := b.ttp[t1], b.ttp[t2]
	b.ptt[p1] = t2
	b.ptt[p2] = t1
	b.ttp[t1], b.ttp[t2] = p2, p1
}

// WillMove stages the relocation of the clause in slot oldIdx to slot newIdx
// at the next buffer flip. Clauses not reported before the flip are dropped.
func (b *Bimap) WillMove(oldIdx, newIdx int) {
	if debugChecks && (oldIdx >= len(b.ttp) || b.ttp[oldIdx] < 0) {
		panic("bimap: moving a free slot")
	}
	for len(b.ttpNext) <= newIdx {
		b.ttpNext = append(b.ttpNext, -1)
	}
	b.ttpNext[newIdx] = b.ttp[oldIdx]
}

// FlipBuffer commits all staged moves: the pending transient array becomes
// the current one and the persistent map is rebuilt from it.
func (b *Bimap) FlipBuffer() {
	b.ttp, b.ttpNext = b.ttpNext, b.ttp[:0]
	b.ptt = make(map[int]int, len(b.ttp))
	for t, p := range b.ttp {
		if p >= 0 {
			b.ptt[p] = t
		}
	}
}

// Fw returns the transient slot of the clause with persistent id p, or -1 if
// that clause was dropped.
func (b *Bimap) Fw(p int) int {
	if t, ok := b.ptt[p]; ok {
		return t
	}
	return -1
}

// Bw returns the persistent id of the clause in transient slot t, or -1 if
// the slot is free.
func (b *Bimap) Bw(t int) int {
	if t >= len(b.ttp) {
		return -1
	}
	return b.ttp[t]
}
