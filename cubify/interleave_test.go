package cubify

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satlab/cubisat/solver"
)

// checkAgainstBaseline solves cnf with both the interleaved solver and the
// plain kernel, requires the same verdict, and verifies the model against
// the original clauses when Sat.
func checkAgainstBaseline(t *testing.T, cnf [][]int, opts Options) Result {
	t.Helper()
	baseline := solver.New(solver.ParseSlice(cnf)).Solve()
	cs := New(solver.ParseSlice(cnf), opts)
	res := cs.Solve()
	require.Equal(t, baseline, res.Status, "interleaved verdict differs from baseline")
	if res.Status == solver.Sat {
		require.NotNil(t, res.Model)
		for _, clause := range cnf {
			sat := false
			tautology := false
			for _, val := range clause {
				l := solver.IntToLit(int32(val))
				for _, val2 := range clause {
					if val2 == -val {
						tautology = true
					}
				}
				if res.Model[l.Var()] == l.IsPositive() {
					sat = true
					break
				}
			}
			assert.True(t, sat || tautology, "model does not satisfy clause %v", clause)
		}
	}
	return res
}

func TestSolveTautology(t *testing.T) {
	res := checkAgainstBaseline(t, [][]int{{1, -1}}, DefaultOptions())
	assert.Equal(t, solver.Sat, res.Status)
}

func TestSolveTrivialUnsat(t *testing.T) {
	res := checkAgainstBaseline(t, [][]int{{1}, {-1}}, DefaultOptions())
	assert.Equal(t, solver.Unsat, res.Status)
}

func TestSolveUnitDiscoveryFormula(t *testing.T) {
	cnf := [][]int{{1, 2, 3}, {-1, 2}, {-1, 3}, {-2, -3}}
	checkAgainstBaseline(t, cnf, DefaultOptions())
}

func php(pigeons, holes int) [][]int {
	v := func(p, h int) int { return p*holes + h + 1 }
	var cnf [][]int
	for p := 0; p < pigeons; p++ {
		clause := make([]int, holes)
		for h := 0; h < holes; h++ {
			clause[h] = v(p, h)
		}
		cnf = append(cnf, clause)
	}
	for h := 0; h < holes; h++ {
		for p1 := 0; p1 < pigeons; p1++ {
			for p2 := p1 + 1; p2 < pigeons; p2++ {
				cnf = append(cnf, []int{-v(p1, h), -v(p2, h)})
			}
		}
	}
	return cnf
}

func TestSolvePigeonhole(t *testing.T) {
	res := checkAgainstBaseline(t, php(4, 3), DefaultOptions())
	assert.Equal(t, solver.Unsat, res.Status)
}

func TestSolvePigeonholeAlwaysSearchCube(t *testing.T) {
	opts := DefaultOptions()
	opts.AlwaysSearchCube = true
	opts.KT = 1.0
	res := checkAgainstBaseline(t, php(4, 3), opts)
	assert.Equal(t, solver.Unsat, res.Status)
}

// rand3SAT generates a random 3-SAT instance. At ratio 4.2 and 40 variables
// instances fall on both sides of the satisfiability threshold.
func rand3SAT(rng *rand.Rand, nbVars, nbClauses int) [][]int {
	cnf := make([][]int, nbClauses)
	for i := range cnf {
		clause := make([]int, 0, 3)
		used := map[int]bool{}
		for len(clause) < 3 {
			v := rng.Intn(nbVars) + 1
			if used[v] {
				continue
			}
			used[v] = true
			if rng.Intn(2) == 0 {
				v = -v
			}
			clause = append(clause, v)
		}
		cnf[i] = clause
	}
	return cnf
}

func TestSolveRandom3SAT(t *testing.T) {
	const nbVars = 40
	nbClauses := int(4.2 * nbVars)
	for seed := int64(1); seed <= 6; seed++ {
		cnf := rand3SAT(rand.New(rand.NewSource(seed)), nbVars, nbClauses)
		opts := DefaultOptions()
		opts.Seed = seed
		checkAgainstBaseline(t, cnf, opts)
	}
}

func TestSolveRandom3SATSmallCubeBudget(t *testing.T) {
	const nbVars = 30
	nbClauses := int(4.2 * nbVars)
	opts := DefaultOptions()
	opts.CubeBudget = 10
	opts.AlwaysSearchCube = true
	opts.KT = 1.0
	for seed := int64(10); seed <= 12; seed++ {
		cnf := rand3SAT(rand.New(rand.NewSource(seed)), nbVars, nbClauses)
		checkAgainstBaseline(t, cnf, opts)
	}
}

func TestSolveAccumulatesStats(t *testing.T) {
	cnf := rand3SAT(rand.New(rand.NewSource(3)), 30, 126)
	cs := New(solver.ParseSlice(cnf), DefaultOptions())
	// A one-conflict first round keeps the plain search from deciding the
	// instance before cubification gets its turn.
	cs.Engine().RestartFirst = 1
	res := cs.Solve()
	assert.NotEqual(t, solver.Indet, res.Status)
	assert.Greater(t, res.Stats.Cubifications, uint64(0))
	assert.GreaterOrEqual(t, res.MeanScore, 0.0)
}

func TestSolveReproducibleUnderSeed(t *testing.T) {
	cnf := rand3SAT(rand.New(rand.NewSource(5)), 40, 168)
	opts := DefaultOptions()
	opts.Seed = 42
	first := New(solver.ParseSlice(cnf), opts).Solve()
	second := New(solver.ParseSlice(cnf), opts).Solve()
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.Stats.Cubifications, second.Stats.Cubifications)
	assert.Equal(t, first.Stats.CubeRefutations, second.Stats.CubeRefutations)
	assert.Equal(t, first.MeanScore, second.MeanScore)
}

func TestSolveEmptyProblem(t *testing.T) {
	res := New(solver.ParseSlice([][]int{}), DefaultOptions()).Solve()
	assert.Equal(t, solver.Sat, res.Status)
}

func TestSolveAlreadyInconsistent(t *testing.T) {
	pb := solver.ParseSlice([][]int{{1}, {-1}})
	require.Equal(t, solver.Unsat, pb.Status)
	res := New(pb, DefaultOptions()).Solve()
	assert.Equal(t, solver.Unsat, res.Status)
	assert.Nil(t, res.Model)
}

// The bimap scenario of a simplification pass, driven through the kernel.
func TestSimplifyKeepsBimapConsistent(t *testing.T) {
	cs := newTestSolver([][]int{{1, 2}, {3, 4}, {5, 6}, {7, 8}}, DefaultOptions())
	cs.eng.AddProblemClause([]solver.Lit{lit(1)})
	cs.eng.AddProblemClause([]solver.Lit{lit(3)})
	require.True(t, cs.eng.Simplify())
	assert.Equal(t, 0, cs.bi.Fw(2))
	assert.Equal(t, 1, cs.bi.Fw(3))
	assert.Equal(t, -1, cs.bi.Fw(0))
	assert.Equal(t, -1, cs.bi.Fw(1))
	assert.Equal(t, "5 6 0", cs.eng.ClauseAt(cs.bi.Fw(2)).CNF())
	assert.Equal(t, "7 8 0", cs.eng.ClauseAt(cs.bi.Fw(3)).CNF())
}
