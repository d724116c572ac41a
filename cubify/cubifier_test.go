package cubify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satlab/cubisat/solver"
)

// newTestSolver builds a bootstrapped cubifying solver without running any
// solve step, so that single operations can be exercised.
func newTestSolver(cnf [][]int, opts Options) *Solver {
	cs := New(solver.ParseSlice(cnf), opts)
	cs.bootstrap()
	return cs
}

func clauseCNFs(cs *Solver) []string {
	res := make([]string, cs.eng.NumClauses())
	for i := range res {
		res[i] = cs.eng.ClauseAt(i).CNF()
	}
	return res
}

func TestBootstrap(t *testing.T) {
	cs := newTestSolver([][]int{{1, 2}, {2, 3}, {3, 4}}, DefaultOptions())
	assert.Equal(t, []int{0, 1, 2}, cs.cubifyQueue)
	assert.True(t, cs.canCubify())
	for _, d := range cs.litDifficulty {
		assert.True(t, d > 1e300, "difficulties start at +Inf")
	}
}

func TestCubifyStrengthensClause(t *testing.T) {
	// Probing the subcube {-2,-3} of the first clause propagates 1 through
	// the clause itself, then conflicts on (-1 2): the clause is replaced
	// by (2 3).
	cs := newTestSolver([][]int{{1, 2, 3}, {-1, 2}, {-1, 3}, {-2, -3}}, DefaultOptions())
	status := cs.cubify(0)
	assert.Equal(t, solver.Indet, status)
	assert.Equal(t, 0, cs.eng.DecisionLevel(), "cubify must unwind to the root")
	require.Equal(t, 4, cs.eng.NumClauses())
	assert.Contains(t, clauseCNFs(cs), "2 3 0")
	assert.True(t, cs.ci.Contains(CubeOf(lit(-2), lit(-3))))
	// The strengthened clause awaits its own cubification.
	p := cs.cubifyQueue[len(cs.cubifyQueue)-1]
	tr := cs.bi.Fw(p)
	require.GreaterOrEqual(t, tr, 0)
	assert.Equal(t, "2 3 0", cs.eng.ClauseAt(tr).CNF())
}

func TestCubifyScoresPrefixes(t *testing.T) {
	cs := newTestSolver([][]int{{1, 2, 3}, {-1, 2}, {-1, 3}, {-2, -3}}, DefaultOptions())
	require.Equal(t, solver.Indet, cs.cubify(0))
	// Probing {-1,-2} and probing {-1,-3} each assigned 3 literals (score
	// 1.5): both are denser than one assignment per literal. The prefix {-2}
	// alone assigned 3 literals (-2, -1, 3), which gives the best score 3.0.
	assert.True(t, cs.cq.Contains(CubeOf(lit(-1), lit(-2))))
	assert.True(t, cs.cq.Contains(CubeOf(lit(-1), lit(-3))))
	assert.InDelta(t, 3.0, cs.cq.BestScore(), 1e-9)
}

func TestCubifyRecordsDifficulty(t *testing.T) {
	cs := newTestSolver([][]int{{1, 2, 3}, {-1, 2}, {-1, 3}, {-2, -3}}, DefaultOptions())
	require.Equal(t, solver.Indet, cs.cubify(0))
	assert.Equal(t, 1.0, cs.litDifficulty[lit(-1)], "first-decision cost of -1")
}

func TestCubifySatisfiedClause(t *testing.T) {
	cs := newTestSolver([][]int{{1, 2}, {3, 4}}, DefaultOptions())
	cs.eng.AddProblemClause([]solver.Lit{lit(1)})
	assert.Equal(t, solver.Indet, cs.cubify(0))
	assert.Equal(t, 2, cs.eng.NumClauses(), "a satisfied clause is left alone")
}

func TestCubifySubsumedByPlannedPrefix(t *testing.T) {
	cs := newTestSolver([][]int{{1, 2, 3, 4}, {5, 6}}, DefaultOptions())
	// Pretend (1 2) already exists as a problem clause: its negation is the
	// cube {-1,-2}, a prefix of the planned walk over {-1,-2,-3,-4}.
	cs.ci.Insert(CubeOf(lit(-1), lit(-2)))
	require.Equal(t, solver.Indet, cs.cubify(0))
	assert.Equal(t, 1, cs.eng.NumClauses(), "the subsumed clause is dropped")
	assert.Equal(t, "5 6 0", cs.eng.ClauseAt(0).CNF())
}

func TestPruneOversizedRoot(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxCubifiableSize = 2
	cs := newTestSolver([][]int{{1, 2, 3, 4}, {5, 6}}, opts)
	cs.eng.AddProblemClause([]solver.Lit{lit(-4)})
	require.Equal(t, solver.Indet, cs.cubify(0))
	require.Equal(t, 2, cs.eng.NumClauses())
	assert.Contains(t, clauseCNFs(cs), "1 2 3 0")
	assert.True(t, cs.ci.Contains(CubeOf(lit(-1), lit(-2), lit(-3))))
}

func TestOversizedRootSkipped(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxCubifiableSize = 2
	cs := newTestSolver([][]int{{1, 2, 3}, {4, 5}}, opts)
	require.Equal(t, solver.Indet, cs.cubify(0))
	assert.Equal(t, 2, cs.eng.NumClauses(), "nothing to prune, nothing to do")
	assert.Equal(t, 0, cs.cq.Len())
}

func TestRefuteCube(t *testing.T) {
	cs := newTestSolver([][]int{{1, 2}, {3, 4}}, DefaultOptions())
	base := CubeOf(lit(-1), lit(-2))
	cs.cq.Push(base, 3.0, 0) // Parent: persistent id of clause (1 2)
	reduced := CubeOf(lit(-1))
	require.Equal(t, solver.Indet, cs.refuteCube(base, reduced))
	// The parent clause is subsumed by the learned unit and dropped.
	assert.Equal(t, -1, cs.bi.Fw(0))
	assert.Equal(t, 1, cs.eng.NumClauses())
	assert.Equal(t, "3 4 0", cs.eng.ClauseAt(0).CNF())
	// The unit itself became a root fact.
	assert.Equal(t, solver.Sat, cs.eng.Value(lit(1)))
	assert.False(t, cs.cq.Contains(base))
	assert.True(t, cs.ci.Contains(reduced))
}

func TestRefuteCubeKeepsOtherParents(t *testing.T) {
	cs := newTestSolver([][]int{{1, 2, 5}, {1, 2, 6}, {3, 4}}, DefaultOptions())
	base := CubeOf(lit(-1), lit(-2))
	cs.cq.Push(base, 3.0, 0)
	cs.cq.Push(base, 3.0, 1)
	require.Equal(t, solver.Indet, cs.refuteCube(base, base))
	assert.Equal(t, -1, cs.bi.Fw(0))
	assert.Equal(t, -1, cs.bi.Fw(1))
	// Both parents are gone, (3 4) and the learned (1 2) remain.
	require.Equal(t, 2, cs.eng.NumClauses())
	assert.ElementsMatch(t, []string{"3 4 0", "1 2 0"}, clauseCNFs(cs))
	// The learned clause is enqueued for cubification under a fresh id.
	p := cs.cubifyQueue[len(cs.cubifyQueue)-1]
	assert.Equal(t, "1 2 0", cs.eng.ClauseAt(cs.bi.Fw(p)).CNF())
}

func TestPickCubeDensityGate(t *testing.T) {
	cs := newTestSolver([][]int{{1, 2}}, DefaultOptions())
	// Mean 1.0, best 5.0: with k_t = 10 the gate stays closed.
	cs.cq.Push(CubeOf(lit(-1)), 5.0, 0)
	cs.cq.sumScore, cs.cq.numSeen = 5.0, 5.0
	require.InDelta(t, 1.0, cs.cq.MeanScore(), 1e-9)
	_, ok := cs.pickCube()
	assert.False(t, ok)
	// Raising the best score to 12.0 while the mean stays at 1.0 opens it.
	cs.cq.Push(CubeOf(lit(-2)), 12.0, 0)
	cs.cq.sumScore, cs.cq.numSeen = 6.0, 6.0
	best, ok := cs.pickCube()
	require.True(t, ok)
	assert.True(t, best.Equal(CubeOf(lit(-2))))
}

func TestPickCubeEmpty(t *testing.T) {
	cs := newTestSolver([][]int{{1, 2}}, DefaultOptions())
	_, ok := cs.pickCube()
	assert.False(t, ok)
}

func TestCubifyOneSkipsDropped(t *testing.T) {
	cs := newTestSolver([][]int{{1, 2, 3}, {4, 5, 6}}, DefaultOptions())
	cs.dropClause(1)
	require.Equal(t, solver.Indet, cs.cubifyOne())
	// Id 1 was skipped (dropped), id 0 was cubified; the list is now empty.
	assert.Empty(t, cs.cubifyQueue)
	assert.False(t, cs.canCubify())
}

func TestPlannerUpdatesQueuedParents(t *testing.T) {
	cs := newTestSolver([][]int{{1, 2, 3}, {7, 8}}, DefaultOptions())
	// The subcube dropping -3 is already queued for someone else.
	term := CubeOf(lit(-1), lit(-2))
	cs.cq.Push(term, 2.0, 1)
	require.Equal(t, solver.Indet, cs.cubify(0))
	assert.ElementsMatch(t, []int{0, 1}, cs.cq.Parents(term))
}
