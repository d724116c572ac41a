/*
Package solver provides a conflict-driven clause-learning (CDCL) SAT engine.

Its input is either a DIMACS CNF stream or a solver.Problem object containing
the set of clauses to be solved:

	pb, err := solver.ParseCNF(f)
	s := solver.New(pb)
	status := s.Solve()

If the status is Sat, a model, i.e a set of bindings for all variables that
makes the problem true, can be retrieved with s.Model().

Besides the one-shot Solve, the solver exposes the fine-grained operations a
search layer built on top of it needs: decision levels (NewDecisionLevel,
Enqueue, Propagate, CancelUntil), budgeted search under an assumption stack
(PushAssumption, Search, Conflict), dynamic clause management at the root
level (AddProblemClause, DropClause, Simplify) and monotonic activity
counters (Propagations, Conflicts, WithinBudget). Problem clauses live in an
array of transient slots; Simplify compacts that array and reports every
relocation to an optional MoveListener so that external bookkeeping can track
clause identity across compactions.
*/
package solver
