package solver

import (
	"math"
	"math/rand"
	"sort"
	"sync/atomic"
)

const (
	initNbMaxLearnts  = 2000 // Maximum # of learned clauses, at first.
	incrNbMaxLearnts  = 300  // By how much # of learned clauses is incremented at each reduction.
	defaultVarDecay   = 0.95 // On each var decay, by how much varInc grows.
	clauseDecay       = 0.999
	defaultRestartFst = 100 // Conflict budget of the first restart round.
)

// debugChecks enables internal invariant assertions.
const debugChecks = false

// Stats are statistics about the resolution of the problem.
// They are provided for information purpose only.
type Stats struct {
	NbConflicts     int
	NbDecisions     int
	NbUnitLearned   int // How many unit clauses were learned
	NbBinaryLearned int // How many binary clauses were learned
	NbLearned       int // How many clauses were learned
	NbDeleted       int // How many clauses were deleted
}

// The level a decision was made.
// A negative value means "negative assignment at that level".
// A positive value means "positive assignment at that level".
type decLevel int32

// A Model is a binding for several variables.
// Each var, in order, is associated with a binding. Bindings are implemented as
// decision levels:
// - a 0 value means the variable is free,
// - a positive value v means the variable was set to true at level v-1,
// - a negative value -v means the variable was set to false at level v-1.
type Model []decLevel

// A MoveListener observes transient slot moves of problem clauses.
// Simplify reports every surviving clause through WillMove (clauses it does
// not report are gone), then commits the whole relocation with FlipBuffer.
type MoveListener interface {
	WillMove(oldIdx, newIdx int)
	FlipBuffer()
}

// A Solver solves a given problem. It is the main data structure.
type Solver struct {
	Stats Stats // Statistics about the solving process.

	// Restart policy, used by RestartBudget.
	LubyRestart  bool    // Luby series budgets if true (the default), geometric growth else.
	RestartFirst int     // Conflict budget of restart round 0.
	RestartInc   float64 // Growth exponent for geometric restarts.

	nbVars int
	ok     bool
	status Status

	clauses []*Clause // Problem clauses, identified by their (transient) slot index.
	learnts []*Clause

	wl       watcherList
	model    Model // 0 means unbound, other value is a binding and its level
	reason   []*Clause
	trail    []Lit // Current assignment stack
	trailLim []int // Trail size when each decision level was opened
	propHead int   // Next trail position to propagate

	assumptions []Lit
	conflict    []Lit // Final conflict: negations of the assumptions that caused UNSAT

	activity []float64 // How often each var is involved in conflicts
	polarity []bool    // Preferred sign for each var
	varQueue queue
	varInc   float64
	varDecay float64

	clauseInc    float32
	nbMaxLearnts int

	seen    []bool
	toClear []Var

	lastModel Model // Placeholder for the last model found

	propagations int64
	conflicts    int64

	confBudget  int64 // Absolute #conflicts after which the solver gives up; -1 means no budget.
	propBudget  int64
	interrupted int32

	rng *rand.Rand

	moves MoveListener
}

// New makes a solver, given a problem.
func New(problem *Problem) *Solver {
	if problem.Status == Unsat {
		return &Solver{status: Unsat, LubyRestart: true, RestartFirst: defaultRestartFst, RestartInc: 2.0}
	}
	nbVars := problem.NbVars
	s := &Solver{
		LubyRestart:  true,
		RestartFirst: defaultRestartFst,
		RestartInc:   2.0,
		nbVars:       nbVars,
		ok:           true,
		status:       problem.Status,
		clauses:      append(make([]*Clause, 0, len(problem.Clauses)*2), problem.Clauses...),
		model:        make(Model, nbVars),
		reason:       make([]*Clause, nbVars),
		trail:        make([]Lit, 0, nbVars),
		activity:     make([]float64, nbVars),
		polarity:     make([]bool, nbVars),
		varInc:       1.0,
		varDecay:     defaultVarDecay,
		clauseInc:    1.0,
		nbMaxLearnts: initNbMaxLearnts,
		seen:         make([]bool, nbVars),
		confBudget:   -1,
		propBudget:   -1,
		rng:          rand.New(rand.NewSource(0)),
	}
	copy(s.model, problem.Model)
	s.initWatcherList(s.clauses)
	s.varQueue = newQueue(s.activity)
	for _, lit := range problem.Units {
		s.trail = append(s.trail, lit)
	}
	return s
}

// SetRandomSeed reseeds the solver's random source. Runs are reproducible
// under a fixed seed.
func (s *Solver) SetRandomSeed(seed int64) {
	s.rng = rand.New(rand.NewSource(seed))
}

// Intn returns a nonnegative pseudo-random int below n from the solver's
// random source.
func (s *Solver) Intn(n int) int {
	return s.rng.Intn(n)
}

// Ok returns false once the formula has been proven inconsistent.
func (s *Solver) Ok() bool {
	return s.ok
}

// NbVars returns the number of variables of the problem.
func (s *Solver) NbVars() int {
	return s.nbVars
}

// NumClauses returns the current number of problem clauses.
func (s *Solver) NumClauses() int {
	return len(s.clauses)
}

// ClauseAt returns the problem clause currently stored in slot t.
func (s *Solver) ClauseAt(t int) *Clause {
	return s.clauses[t]
}

// Propagations returns the total number of unit propagations performed so far.
func (s *Solver) Propagations() int64 {
	return s.propagations
}

// Conflicts returns the total number of conflicts met so far.
func (s *Solver) Conflicts() int64 {
	return s.conflicts
}

// TrailSize returns the number of currently assigned literals.
func (s *Solver) TrailSize() int {
	return len(s.trail)
}

// Trail returns the sequence of currently assigned literals, in assignment
// order. The slice is the solver's own and must not be modified.
func (s *Solver) Trail() []Lit {
	return s.trail
}

// DecisionLevel returns the current decision level. Level 0 holds the
// unconditional assignments.
func (s *Solver) DecisionLevel() int {
	return len(s.trailLim)
}

// SetMoveListener registers the listener notified of clause slot moves
// during simplification.
func (s *Solver) SetMoveListener(l MoveListener) {
	s.moves = l
}

// litValue returns whether the literal is made true (Sat) or false (Unsat) by the
// current bindings, or if it is unbounded (Indet).
func (s *Solver) litValue(l Lit) Status {
	assign := s.model[l.Var()]
	if assign == 0 {
		return Indet
	}
	if assign > 0 == l.IsPositive() {
		return Sat
	}
	return Unsat
}

// Value returns the current binding status of l: Sat, Unsat or Indet.
func (s *Solver) Value(l Lit) Status {
	return s.litValue(l)
}

// level returns the level at which v was bound, or -1 if it is unbound.
func (s *Solver) level(v Var) int {
	if s.model[v] == 0 {
		return -1
	}
	return int(abs(s.model[v])) - 1
}

func abs(val decLevel) decLevel {
	if val < 0 {
		return -val
	}
	return val
}

// NewDecisionLevel opens a new decision level.
func (s *Solver) NewDecisionLevel() {
	s.trailLim = append(s.trailLim, len(s.trail))
}

// Enqueue asserts l as a decision at the current level.
// l must currently be unbound.
func (s *Solver) Enqueue(l Lit) {
	if debugChecks && s.litValue(l) != Indet {
		panic("enqueueing an already bound literal")
	}
	s.uncheckedEnqueue(l, nil)
}

// CancelUntil undoes all the assignments made strictly above the given level.
func (s *Solver) CancelUntil(level int) {
	if s.DecisionLevel() <= level {
		return
	}
	lim := s.trailLim[level]
	for i := len(s.trail) - 1; i >= lim; i-- {
		lit := s.trail[i]
		v := lit.Var()
		s.model[v] = 0
		if s.reason[v] != nil {
			s.reason[v].unlock()
			s.reason[v] = nil
		}
		s.polarity[v] = lit.IsPositive()
		if !s.varQueue.contains(int(v)) {
			s.varQueue.insert(int(v))
		}
	}
	s.trail = s.trail[:lim]
	s.trailLim = s.trailLim[:level]
	s.propHead = lim
}

// PushAssumption appends l to the assumption stack. Assumptions hold for
// the next Search calls, until ClearAssumptions.
func (s *Solver) PushAssumption(l Lit) {
	s.assumptions = append(s.assumptions, l)
}

// ClearAssumptions empties the assumption stack.
func (s *Solver) ClearAssumptions() {
	s.assumptions = s.assumptions[:0]
}

// Conflict returns the final conflict of the last Search call that returned
// Unsat under assumptions: a set of negations of assumptions that together
// are inconsistent. It is empty if unsatisfiability does not depend on the
// assumptions.
func (s *Solver) Conflict() []Lit {
	return s.conflict
}

// chooseLit returns an unbound literal to be tested, or LitUndef
// if all the variables are already bound.
func (s *Solver) chooseLit() Lit {
	v := Var(-1)
	for v == -1 && !s.varQueue.empty() {
		if v2 := Var(s.varQueue.removeMin()); s.model[v2] == 0 { // Ignore already bound vars
			v = v2
		}
	}
	if v == -1 {
		return LitUndef
	}
	return v.SignedLit(!s.polarity[v])
}

func (s *Solver) varDecayActivity() {
	s.varInc *= 1 / s.varDecay
}

func (s *Solver) varBumpActivity(v Var) {
	s.activity[v] += s.varInc
	if s.activity[v] > 1e100 { // Rescaling is needed to avoid overflowing
		for i := range s.activity {
			s.activity[i] *= 1e-100
		}
		s.varInc *= 1e-100
	}
	if s.varQueue.contains(int(v)) {
		s.varQueue.decrease(int(v))
	}
}

func (s *Solver) clauseDecayActivity() {
	s.clauseInc *= 1 / clauseDecay
}

func (s *Solver) clauseBumpActivity(c *Clause) {
	if c.Learned() {
		c.activity += s.clauseInc
		if c.activity > 1e30 { // Rescale to avoid overflow
			for _, c2 := range s.learnts {
				c2.activity *= 1e-30
			}
			s.clauseInc *= 1e-30
		}
	}
}

func (s *Solver) rebuildOrderHeap() {
	ints := make([]int, 0, s.nbVars)
	for v := 0; v < s.nbVars; v++ {
		if s.model[v] == 0 {
			ints = append(ints, v)
		}
	}
	s.varQueue.build(ints)
}

// SetConflictBudget makes the solver give up (return Indet) once n more
// conflicts have been met, across all subsequent calls. -1 removes the budget.
func (s *Solver) SetConflictBudget(n int64) {
	if n < 0 {
		s.confBudget = -1
	} else {
		s.confBudget = s.conflicts + n
	}
}

// SetPropagationBudget makes the solver give up (return Indet) once n more
// propagations have been performed. -1 removes the budget.
func (s *Solver) SetPropagationBudget(n int64) {
	if n < 0 {
		s.propBudget = -1
	} else {
		s.propBudget = s.propagations + n
	}
}

// Interrupt asynchronously asks the solver to give up as soon as possible.
// It is safe to call from a signal handler goroutine.
func (s *Solver) Interrupt() {
	atomic.StoreInt32(&s.interrupted, 1)
}

// WithinBudget returns false once the solver was interrupted or exhausted
// one of its global budgets.
func (s *Solver) WithinBudget() bool {
	if atomic.LoadInt32(&s.interrupted) != 0 {
		return false
	}
	if s.confBudget >= 0 && s.conflicts >= s.confBudget {
		return false
	}
	return s.propBudget < 0 || s.propagations < s.propBudget
}

// RestartBudget returns the conflict budget for restart round i, following
// the restart policy.
func (s *Solver) RestartBudget(i int) int {
	if s.LubyRestart {
		return int(luby(uint(i+1))) * s.RestartFirst
	}
	return int(math.Pow(float64(i+1), s.RestartInc) * float64(s.RestartFirst))
}

// Search looks for a model satisfying all the problem clauses and the current
// assumptions, for up to maxConflicts conflicts. It returns Sat if a model was
// found, Unsat if the clauses plus the assumptions are inconsistent (Conflict
// then describes the responsible assumptions; if it is empty, the problem
// itself is inconsistent), and Indet if the budget ran out first.
// On Sat the bindings are left in place so that the model can be read; on any
// other outcome the caller is expected to backtrack via CancelUntil.
func (s *Solver) Search(maxConflicts int) Status {
	if !s.ok {
		return Unsat
	}
	s.conflict = s.conflict[:0]
	nbConflicts := 0
	for {
		if confl := s.Propagate(); confl != nil {
			s.conflicts++
			s.Stats.NbConflicts++
			nbConflicts++
			if s.DecisionLevel() == 0 {
				return s.setUnsat()
			}
			s.handleConflict(confl)
			if !s.ok {
				return s.setUnsat()
			}
		} else {
			if nbConflicts >= maxConflicts || !s.WithinBudget() {
				s.CancelUntil(0)
				s.status = Indet
				return Indet
			}
			if len(s.learnts) >= s.nbMaxLearnts+len(s.trail) {
				s.reduceLearnts()
			}
			next := LitUndef
			for next == LitUndef && s.DecisionLevel() < len(s.assumptions) {
				p := s.assumptions[s.DecisionLevel()]
				switch s.litValue(p) {
				case Sat: // Already satisfied: dedicate a dummy level to it
					s.NewDecisionLevel()
				case Unsat:
					s.analyzeFinal(p)
					s.status = Unsat
					return Unsat
				default:
					next = p
				}
			}
			if next == LitUndef {
				next = s.chooseLit()
				if next == LitUndef { // All vars are bound: we have a model
					s.status = Sat
					s.saveModel()
					return Sat
				}
				s.Stats.NbDecisions++
			}
			s.NewDecisionLevel()
			s.uncheckedEnqueue(next, nil)
		}
	}
}

// setUnsat marks the whole problem as inconsistent.
func (s *Solver) setUnsat() Status {
	s.ok = false
	s.status = Unsat
	s.conflict = s.conflict[:0]
	return Unsat
}

// handleConflict analyzes the conflict, backjumps and records the learned clause.
func (s *Solver) handleConflict(confl *Clause) {
	learnt, btLevel := s.analyze(confl)
	if len(learnt) == 1 { // Unit clause was learned: this lit is known for sure
		unit := learnt[0]
		s.CancelUntil(0)
		s.Stats.NbUnitLearned++
		switch s.litValue(unit) {
		case Unsat:
			s.ok = false
			return
		case Indet:
			s.uncheckedEnqueue(unit, nil)
		}
		s.varDecayActivity()
		s.clauseDecayActivity()
		return
	}
	c := NewLearnedClause(append(make([]Lit, 0, len(learnt)), learnt...))
	c.computeLbd(s.model)
	if c.Len() == 2 {
		s.Stats.NbBinaryLearned++
	}
	s.Stats.NbLearned++
	s.CancelUntil(btLevel)
	s.learnts = append(s.learnts, c)
	s.attachClause(c)
	s.clauseBumpActivity(c)
	s.uncheckedEnqueue(c.First(), c)
	s.varDecayActivity()
	s.clauseDecayActivity()
}

// reduceLearnts removes about half of the learned clauses that are deemed useless.
func (s *Solver) reduceLearnts() {
	sort.Slice(s.learnts, func(i, j int) bool {
		lbdI, lbdJ := s.learnts[i].lbd(), s.learnts[j].lbd()
		return lbdI > lbdJ || (lbdI == lbdJ && s.learnts[i].activity < s.learnts[j].activity)
	})
	length := len(s.learnts) / 2
	j := 0
	for i, c := range s.learnts {
		if i < length && c.lbd() > 2 && !c.isLocked() {
			s.detachClause(c)
			s.Stats.NbDeleted++
			continue
		}
		s.learnts[j] = c
		j++
	}
	s.learnts = s.learnts[:j]
	s.nbMaxLearnts += incrNbMaxLearnts
}

// satisfied returns true iff c contains a literal that is currently true.
func (s *Solver) satisfied(c *Clause) bool {
	for i := 0; i < c.Len(); i++ {
		if s.litValue(c.Get(i)) == Sat {
			return true
		}
	}
	return false
}

// Simplify cheapens the clause database using the unconditional bindings: it
// propagates pending root facts and drops all satisfied clauses. Problem
// clause relocations are reported to the move listener, one WillMove per
// surviving clause, committed by a single FlipBuffer. It must be called at
// decision level 0 and returns false iff the problem is now known inconsistent.
func (s *Solver) Simplify() bool {
	if debugChecks && s.DecisionLevel() != 0 {
		panic("Simplify called above level 0")
	}
	if !s.ok {
		return false
	}
	if s.Propagate() != nil {
		s.ok = false
		return false
	}
	j := 0
	for _, c := range s.learnts {
		// A locked clause is the reason of a root implication; its pointer
		// must stay valid, so it is kept even when satisfied.
		if s.satisfied(c) && !c.isLocked() {
			s.detachClause(c)
			s.Stats.NbDeleted++
			continue
		}
		s.learnts[j] = c
		j++
	}
	s.learnts = s.learnts[:j]
	j = 0
	for i, c := range s.clauses {
		if s.satisfied(c) {
			s.detachClause(c)
			continue
		}
		if s.moves != nil {
			s.moves.WillMove(i, j)
		}
		s.clauses[j] = c
		j++
	}
	s.clauses = s.clauses[:j]
	if s.moves != nil {
		s.moves.FlipBuffer()
	}
	return true
}

// AddProblemClause adds a clause over the given literals at decision level 0
// and returns its transient slot index. It returns -1 when the clause was
// absorbed instead of stored: tautologies and already-satisfied clauses are
// dropped, unit clauses are enqueued as root facts and propagated. The ok
// flag flips to false if the clause (or its propagation) closes the problem.
func (s *Solver) AddProblemClause(lits []Lit) int {
	if debugChecks && s.DecisionLevel() != 0 {
		panic("AddProblemClause called above level 0")
	}
	if !s.ok {
		return -1
	}
	lits = append(make([]Lit, 0, len(lits)), lits...)
	sort.Slice(lits, func(i, j int) bool { return lits[i] < lits[j] })
	j := 0
	var prev = LitUndef
	for _, l := range lits {
		if l == prev {
			continue
		}
		if prev != LitUndef && l == prev.Negation() {
			return -1 // Tautology
		}
		switch s.litValue(l) {
		case Sat:
			return -1 // Already satisfied at root
		case Unsat: // False forever: leave it out
		default:
			lits[j] = l
			j++
		}
		prev = l
	}
	lits = lits[:j]
	switch len(lits) {
	case 0:
		s.ok = false
		return -1
	case 1:
		s.uncheckedEnqueue(lits[0], nil)
		if s.Propagate() != nil {
			s.ok = false
		}
		return -1
	}
	c := NewClause(lits)
	s.clauses = append(s.clauses, c)
	s.attachClause(c)
	return len(s.clauses) - 1
}

// DropClause removes the problem clause in slot t by swapping the last slot
// into t and shrinking the clause array. Callers tracking slot identity must
// mirror the swap before calling.
func (s *Solver) DropClause(t int) {
	c := s.clauses[t]
	last := len(s.clauses) - 1
	s.clauses[t] = s.clauses[last]
	s.clauses = s.clauses[:last]
	s.detachClause(c)
}

// saveModel snapshots the current (total) assignment.
func (s *Solver) saveModel() {
	if s.lastModel == nil {
		s.lastModel = make(Model, len(s.model))
	}
	copy(s.lastModel, s.model)
}

// Model returns a slice that associates, to each variable, its binding in the
// last model found. If no model was found yet, the method will panic.
func (s *Solver) Model() []bool {
	if s.lastModel == nil {
		panic("cannot call Model() on a solver that has not reached Sat")
	}
	res := make([]bool, s.nbVars)
	for i, lvl := range s.lastModel {
		res[i] = lvl > 0
	}
	return res
}

// Solve looks for a solution using the solver's own restart policy, with no
// interleaved work. It is the baseline CDCL loop.
func (s *Solver) Solve() Status {
	if s.status == Unsat {
		return s.status
	}
	s.status = Indet
	for i := 0; s.status == Indet; i++ {
		s.status = s.Search(s.RestartBudget(i))
		if s.status == Indet {
			if !s.WithinBudget() {
				break
			}
			s.rebuildOrderHeap()
		}
	}
	s.CancelUntil(0)
	return s.status
}
