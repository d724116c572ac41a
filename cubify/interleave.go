package cubify

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/satlab/cubisat/solver"
)

// Exit points of an interleaved step, for diagnostics.
const (
	exitNone = iota
	exitCubify
	exitSatInCube
	exitCubeRefutation
	exitEmptyConflict
	exitSimplify
)

// Stats are counters and timings accumulated over a solve.
type Stats struct {
	Restarts        int
	Cubifications   uint64
	CubeRefutations uint64

	TimeSearch     time.Duration
	TimeCubify     time.Duration
	TimeSearchCube time.Duration
	TimeSimplify   time.Duration
}

// A Result is the outcome of a solve: the verdict, the model when Sat, the
// accumulated statistics and the final mean cube score.
type Result struct {
	Status    solver.Status
	Model     []bool
	Stats     Stats
	MeanScore float64
}

// A Solver interleaves cubification and cube-biased search with the standard
// CDCL search of the underlying kernel. Implicant cubes of the problem
// clauses are scored by how much unit propagation they provoke, and roughly
// half of the search effort goes to the densest of them. Refuted cubes come
// back as shorter clauses.
type Solver struct {
	eng  *solver.Solver
	opts Options
	log  logrus.FieldLogger

	bi *Bimap
	cq *CubeQueue
	ci *CubeSet

	// Persistent ids of the clauses awaiting cubification. Entries whose
	// clause was dropped in the meantime are skipped on pop.
	cubifyQueue []int

	// For each packed literal, the last observed cost (in propagations) of
	// assuming it first. +Inf until observed.
	litDifficulty []float64

	stats     Stats
	exitPoint int
}

// New returns a cubifying solver for the given problem.
func New(pb *solver.Problem, opts Options) *Solver {
	eng := solver.New(pb)
	eng.SetRandomSeed(opts.Seed)
	log := logrus.New()
	if opts.Verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetOutput(io.Discard)
	}
	cs := &Solver{
		eng:           eng,
		opts:          opts,
		log:           log,
		bi:            NewBimap(),
		cq:            NewCubeQueue(opts.CubeBudget),
		ci:            NewCubeSet(),
		litDifficulty: make([]float64, eng.NbVars()*2),
	}
	eng.SetMoveListener(cs.bi)
	return cs
}

// Engine returns the underlying CDCL kernel.
func (cs *Solver) Engine() *solver.Solver {
	return cs.eng
}

// MeanScore returns the mean density score of all cubes seen so far.
func (cs *Solver) MeanScore() float64 {
	return cs.cq.MeanScore()
}

// Interrupt asks the solver to return Indet as soon as possible.
// It is safe to call from another goroutine.
func (cs *Solver) Interrupt() {
	cs.eng.Interrupt()
}

// Solve runs the interleaved solving procedure to completion (or budget
// exhaustion) and reports the outcome.
func (cs *Solver) Solve() Result {
	if !cs.eng.Ok() {
		return cs.result(solver.Unsat)
	}
	cs.bootstrap()

	status := solver.Indet
	for i := 0; status == solver.Indet; i++ {
		status = cs.step(cs.eng.RestartBudget(i), i)
		if status == solver.Indet {
			if !cs.eng.WithinBudget() {
				break
			}
			cs.stats.Restarts++
		}
	}
	return cs.result(status)
}

// step performs one interleaved round: (A) plain search under the round's
// conflict budget, (B) cubification bounded by the propagation effort of A,
// (C) cube-biased search under the remainder of the conflict budget,
// (D) simplification. Any conclusive outcome short-circuits the step.
func (cs *Solver) step(conflictBudget, round int) solver.Status {
	t0 := time.Now()
	cs.eng.ClearAssumptions()
	p0 := cs.eng.Propagations()
	status := cs.eng.Search(conflictBudget)
	t1 := time.Now()
	cs.stats.TimeSearch += t1.Sub(t0)

	// Cubification is budgeted by the propagations the search just spent,
	// which keeps its overhead proportional to useful work.
	if status == solver.Indet {
		limit := cs.eng.Propagations() + int64(cs.opts.KC*float64(cs.eng.Propagations()-p0))
		for cs.eng.Propagations() < limit && cs.eng.WithinBudget() && cs.canCubify() {
			cs.stats.Cubifications++
			if status = cs.cubifyOne(); status != solver.Indet {
				cs.exitPoint = exitCubify
				break
			}
		}
	}
	t2 := time.Now()
	cs.stats.TimeCubify += t2.Sub(t1)

	if status == solver.Indet && (!cs.canCubify() || cs.opts.AlwaysSearchCube) {
		limit := cs.eng.Conflicts() + int64(conflictBudget)
		for cs.eng.Conflicts() < limit && cs.eng.WithinBudget() {
			cube, ok := cs.pickCube()
			if !ok {
				break
			}
			status = cs.searchCubeBranch(cube, int(limit-cs.eng.Conflicts()))
			if status == solver.Sat {
				// The cube's literals are decisions forced true: this model
				// satisfies the full formula.
				cs.exitPoint = exitSatInCube
				break
			}
			if status == solver.Unsat {
				cs.stats.CubeRefutations++
				confl := cs.eng.Conflict()
				if len(confl) == 0 {
					// Unsatisfiability does not depend on the cube.
					cs.exitPoint = exitEmptyConflict
					break
				}
				var reduced Cube
				for _, l := range confl {
					reduced.Push(l.Negation())
				}
				if debugChecks && !reduced.SubsetOf(cube) {
					panic("final conflict is not a subcube of the assumed cube")
				}
				if status = cs.refuteCube(cube, reduced); status == solver.Unsat {
					cs.exitPoint = exitCubeRefutation
					break
				}
			}
		}
	}
	t3 := time.Now()
	cs.stats.TimeSearchCube += t3.Sub(t2)

	if status == solver.Indet && !cs.eng.Simplify() {
		cs.exitPoint = exitSimplify
		status = solver.Unsat
	}
	cs.stats.TimeSimplify += time.Since(t3)

	cs.log.WithFields(logrus.Fields{
		"round":    round,
		"budget":   conflictBudget,
		"clauses":  cs.eng.NumClauses(),
		"cubes":    cs.cq.Len(),
		"best":     cs.cq.BestScore(),
		"mean":     cs.cq.MeanScore(),
		"status":   status,
		"conflict": cs.eng.Conflicts(),
	}).Debug("interleaved step done")
	return status
}

// searchCubeBranch searches under the assumption of every literal of the
// cube, with the given conflict budget. On anything but Sat the assumptions
// are popped and the trail is unwound back to the root; on Sat the bindings
// are kept so the model can be read.
func (cs *Solver) searchCubeBranch(cube Cube, budget int) solver.Status {
	if debugChecks && (cs.eng.DecisionLevel() != 0 || !cube.Sane() || len(cube) == 0) {
		panic("searchCubeBranch precondition violated")
	}
	for _, l := range cube {
		cs.eng.PushAssumption(l)
	}
	status := cs.eng.Search(budget)
	if status == solver.Sat {
		return status
	}
	cs.eng.CancelUntil(0)
	cs.eng.ClearAssumptions()
	return status
}

// result assembles the final Result and tears the search state down.
func (cs *Solver) result(status solver.Status) Result {
	res := Result{
		Status:    status,
		Stats:     cs.stats,
		MeanScore: cs.cq.MeanScore(),
	}
	if status == solver.Sat {
		res.Model = cs.eng.Model()
	}
	cs.eng.CancelUntil(0)
	cs.eng.ClearAssumptions()
	cs.log.WithFields(logrus.Fields{
		"status":        status,
		"restarts":      cs.stats.Restarts,
		"cubifications": cs.stats.Cubifications,
		"refutations":   cs.stats.CubeRefutations,
		"meanScore":     res.MeanScore,
		"exit":          cs.exitPoint,
	}).Info("solve finished")
	return res
}
