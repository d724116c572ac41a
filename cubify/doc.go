/*
Package cubify implements a cubifying search layer on top of the CDCL kernel
of package solver.

The layer interleaves the kernel's standard search with two extra
activities. Cubification enumerates the near-implicant subcubes of existing
problem clauses — cubes containing all but one literal of a clause's
negation — and scores each by the density of unit propagations it provokes.
Cube-biased search then assumes the densest recorded cube to focus a slice
of the search effort on that region of the search space. A cube refuted
under assumptions feeds back into the clause database as a shorter learned
clause, subsuming the clauses it came from.

Every solving round runs four phases under the kernel's restart budget:
plain search, cubification (bounded by the propagation effort the search
just spent), cube-biased search, and simplification.

	pb, err := solver.ParseCNF(f)
	cs := cubify.New(pb, cubify.DefaultOptions())
	res := cs.Solve()

Clauses are tracked across database compactions through a persistent-id
bimap, so that queued work can reference clauses that may have moved or
disappeared by the time it runs.
*/
package cubify
