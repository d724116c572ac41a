package cubify

import (
	"math"
	"sort"

	"github.com/satlab/cubisat/solver"
)

// bootstrap enqueues every problem clause for cubification and resets the
// per-literal difficulty estimates.
func (cs *Solver) bootstrap() {
	n := cs.eng.NumClauses()
	cs.cubifyQueue = make([]int, 0, n)
	for t := 0; t < n; t++ {
		cs.cubifyQueue = append(cs.cubifyQueue, cs.bi.Add(t))
	}
	for i := range cs.litDifficulty {
		cs.litDifficulty[i] = math.Inf(1)
	}
}

// canCubify returns true iff some enqueued clause still exists.
func (cs *Solver) canCubify() bool {
	for _, p := range cs.cubifyQueue {
		if cs.bi.Fw(p) >= 0 {
			return true
		}
	}
	return false
}

// cubifyOne pops work list entries until a live clause is found and cubifies it.
func (cs *Solver) cubifyOne() solver.Status {
	for len(cs.cubifyQueue) > 0 {
		p := cs.cubifyQueue[len(cs.cubifyQueue)-1]
		cs.cubifyQueue = cs.cubifyQueue[:len(cs.cubifyQueue)-1]
		if t := cs.bi.Fw(p); t >= 0 {
			return cs.cubify(t)
		}
	}
	return solver.Indet
}

// cubify scores the implicant cubes of the clause in slot t. Along the way
// the clause may be strengthened or found subsumed, in which case it is
// replaced in the clause database.
func (cs *Solver) cubify(t int) solver.Status {
	if debugChecks && cs.eng.DecisionLevel() != 0 {
		panic("cubify above level 0")
	}
	clause := cs.eng.ClauseAt(t)

	// Reduce the clause to its root cube: literals already false at the root
	// need not be assumed, and a true literal means the clause is satisfied.
	var root Cube
	for i := 0; i < clause.Len(); i++ {
		l := clause.Get(i)
		switch cs.eng.Value(l) {
		case solver.Sat:
			return solver.Indet
		case solver.Unsat:
		default:
			root.Push(l.Negation())
		}
	}

	// A root cube too big to cubify may still prune its clause when unit
	// propagation falsified some literals.
	if len(root) > cs.opts.MaxCubifiableSize {
		if len(root) < clause.Len() {
			return cs.pruneClause(t, root)
		}
		return solver.Indet
	}
	if len(root) == 0 {
		return cs.okStatus()
	}
	if len(root) == 1 {
		return cs.refuteCube(root, root)
	}

	post := cs.cubifyInternal(t, root)
	switch {
	case len(post) == 0:
		// The clause is subsumed by another problem clause.
		cs.dropClause(t)
	case len(post) == len(root):
		// No strengthening found.
	default:
		if debugChecks && !post.SubsetOf(root) {
			panic("strengthened cube is not a subcube of the root")
		}
		cs.dropClause(t)
		if len(post) == 1 {
			cs.eng.AddProblemClause([]solver.Lit{post[0].Negation()})
		} else if !cs.ci.Contains(post) {
			if idx := cs.eng.AddProblemClause(post.Invert()); idx >= 0 {
				cs.cubifyQueue = append(cs.cubifyQueue, cs.bi.Add(idx))
			}
			cs.ci.Insert(post)
		}
	}
	return cs.okStatus()
}

// A pathOp is one step of a planned cubification walk: pushing a literal as
// a new decision, or unwinding the topmost one.
type pathOp struct {
	lit solver.Lit
	pop bool
}

// cubifyInternal probes every size-(|root|-1) subcube of root and returns
// the first conflicting subcube met, root itself when none conflicts,
// or an empty cube when the clause turned out to be subsumed by an existing
// problem clause.
func (cs *Solver) cubifyInternal(t int, root Cube) Cube {
	ops, subsumed := cs.planCubifyPath(t, root)
	if subsumed {
		return nil
	}
	return cs.runCubifyPath(t, root, ops)
}

// planCubifyPath reorders the root literals and plans the push/pop sequence
// visiting each subcube that has not been scored yet, reusing shared
// prefixes between consecutive subcubes. Literals whose drop-subcube is
// already queued come first (their subcube is skipped, only the parent list
// is updated); the rest is ordered by descending difficulty so that the
// hardest literals sit in the most-shared prefix positions and are pushed
// as few times as possible.
func (cs *Solver) planCubifyPath(t int, root Cube) (ops []pathOp, subsumed bool) {
	n := len(root)
	parent := cs.bi.Bw(t)

	order := make([]solver.Lit, 0, n)
	rest := make([]solver.Lit, 0, n)
	for _, l := range root {
		term := root.Clone()
		term.Pop(l)
		if cs.cq.Contains(term) {
			cs.cq.Push(term, 0, parent) // Membership update only
			order = append(order, l)
		} else {
			rest = append(rest, l)
		}
	}
	sort.SliceStable(rest, func(i, j int) bool {
		return cs.litDifficulty[rest[i]] > cs.litDifficulty[rest[j]]
	})
	order = append(order, rest...)

	var stack []solver.Lit
	var prefix Cube
	for i := n - 1; i >= 0; i-- {
		term := CubeOf(order[:i]...)
		for _, l := range order[i+1:] {
			term.Push(l)
		}
		if cs.cq.Contains(term) || cs.ci.Contains(term) {
			continue
		}

		// The visiting sequence of this subcube is order minus order[i];
		// unwind the stack to the longest prefix shared with it.
		seq := append(append(make([]solver.Lit, 0, n-1), order[:i]...), order[i+1:]...)
		shared := 0
		for shared < len(stack) && stack[shared] == seq[shared] {
			shared++
		}
		for len(stack) > shared {
			ops = append(ops, pathOp{pop: true})
			prefix.Pop(stack[len(stack)-1])
			stack = stack[:len(stack)-1]
		}
		for _, l := range seq[shared:] {
			ops = append(ops, pathOp{lit: l})
			stack = append(stack, l)
			prefix.Push(l)
			if cs.ci.Contains(prefix) {
				// The negation of this very prefix is already a clause:
				// clause t is subsumed and can be dropped outright.
				return nil, true
			}
		}
	}
	return ops, false
}

// runCubifyPath replays the planned path at the root level, scoring every
// conflict-free prefix cube by its propagation density. It returns the
// conflicting subcube if one is met, root otherwise. All decision levels
// opened here are unwound before returning, on every exit path.
func (cs *Solver) runCubifyPath(t int, root Cube, ops []pathOp) Cube {
	level0 := cs.eng.DecisionLevel()
	trail0 := cs.eng.TrailSize()
	defer cs.eng.CancelUntil(level0)

	type frame struct {
		lit     solver.Lit
		assumed bool
	}
	var stack []frame
	var cube Cube
	parent := cs.bi.Bw(t)

	for _, op := range ops {
		if !cs.eng.WithinBudget() {
			return root
		}
		if op.pop {
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			cs.eng.CancelUntil(cs.eng.DecisionLevel() - 1)
			if f.assumed {
				cube.Pop(f.lit)
			}
			continue
		}
		l := op.lit
		cs.eng.NewDecisionLevel()
		switch cs.eng.Value(l) {
		case solver.Sat:
			// Already implied by the stack: nothing to assume.
			stack = append(stack, frame{lit: l})
		case solver.Unsat:
			// The literal is falsified under the current stack: the stack
			// plus l is a conflicting subcube.
			conflict := cube.Clone()
			conflict.Push(l)
			return conflict
		default:
			cube.Push(l)
			stack = append(stack, frame{lit: l, assumed: true})
			props0 := cs.eng.Propagations()
			cs.eng.Enqueue(l)
			if cs.eng.Propagate() != nil {
				return cube.Clone()
			}
			if len(cube) == 1 {
				cs.litDifficulty[l] = float64(cs.eng.Propagations() - props0)
			}
			score := float64(cs.eng.TrailSize()-trail0) / float64(len(cube))
			if score > 1.0 {
				cs.cq.Push(cube.Clone(), score, parent)
			}
		}
	}
	return root
}

// refuteCube records that assuming base leads to a conflict explained by the
// subcube reduced: the parents of base are subsumed by the new clause
// ¬reduced and dropped, and ¬reduced itself enters the clause database and
// the cubification work list.
func (cs *Solver) refuteCube(base, reduced Cube) solver.Status {
	if debugChecks && !reduced.SubsetOf(base) {
		panic("refuted cube is not a subcube of its base")
	}
	if cs.cq.Contains(base) {
		for _, p := range cs.cq.Parents(base) {
			if t := cs.bi.Fw(p); t >= 0 {
				cs.dropClause(t)
			}
		}
		cs.cq.Pop(base)
	}
	if !cs.ci.Contains(reduced) {
		if idx := cs.eng.AddProblemClause(reduced.Invert()); idx >= 0 {
			cs.cubifyQueue = append(cs.cubifyQueue, cs.bi.Add(idx))
		}
		cs.ci.Insert(reduced)
	}
	return cs.okStatus()
}

// pickCube returns the best queued cube, unless the queue is empty or its
// best score is not dense enough compared to the mean.
func (cs *Solver) pickCube() (Cube, bool) {
	if cs.cq.Empty() {
		return nil, false
	}
	if cs.cq.BestScore() < cs.opts.KT*cs.cq.MeanScore() {
		return nil, false
	}
	return cs.cq.PeekBest(cs.eng.Intn(1000000))
}

// pruneClause replaces the clause in slot t with the shorter ¬root.
func (cs *Solver) pruneClause(t int, root Cube) solver.Status {
	cs.dropClause(t)
	if !cs.ci.Contains(root) {
		if idx := cs.eng.AddProblemClause(root.Invert()); idx >= 0 {
			cs.bi.Add(idx)
		}
		cs.ci.Insert(root)
	}
	return cs.okStatus()
}

// dropClause removes the clause in slot t, keeping the bimap in sync with
// the kernel's swap-with-last removal. Persistent ids of all other clauses
// are preserved.
func (cs *Solver) dropClause(t int) {
	last := cs.eng.NumClauses() - 1
	if t != last {
		cs.bi.Swap(t, last)
	}
	cs.bi.Drop(last)
	cs.eng.DropClause(t)
}

func (cs *Solver) okStatus() solver.Status {
	if cs.eng.Ok() {
		return solver.Indet
	}
	return solver.Unsat
}
