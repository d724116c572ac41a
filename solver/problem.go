package solver

import (
	"fmt"
	"sort"
)

// A Problem is a list of clauses & a nb of vars.
type Problem struct {
	NbVars  int        // Total nb of vars
	Clauses []*Clause  // List of non-empty, non-unit clauses
	Status  Status     // Status of the problem. Can be trivially UNSAT (if the empty clause was met or inferred by UP) or Indet.
	Units   []Lit      // List of unit literals found in the problem.
	Model   []decLevel // For each var, its inferred binding. 0 means unbound, 1 means bound to true, -1 means bound to false.
}

// CNF returns a DIMACS CNF representation of the problem.
func (pb *Problem) CNF() string {
	res := fmt.Sprintf("p cnf %d %d\n", pb.NbVars, len(pb.Clauses))
	for _, clause := range pb.Clauses {
		res += fmt.Sprintf("%s\n", clause.CNF())
	}
	return res
}

// appendClause adds the given literals as a clause, after normalization:
// literals are sorted and deduplicated, tautologies are dropped.
func (pb *Problem) appendClause(lits []Lit) {
	sort.Slice(lits, func(i, j int) bool { return lits[i] < lits[j] })
	j := 0
	prev := LitUndef
	for _, l := range lits {
		if l == prev {
			continue
		}
		if prev != LitUndef && l == prev.Negation() {
			return // Tautology: the clause is always satisfied
		}
		lits[j] = l
		j++
		prev = l
	}
	lits = lits[:j]
	switch len(lits) {
	case 0:
		pb.Status = Unsat
	case 1:
		pb.Units = append(pb.Units, lits[0])
	default:
		pb.Clauses = append(pb.Clauses, NewClause(lits))
	}
}

func (pb *Problem) addUnit(lit Lit) {
	v := lit.Var()
	if pb.Model[v] == 0 {
		if lit.IsPositive() {
			pb.Model[v] = 1
		} else {
			pb.Model[v] = -1
		}
		pb.Units = append(pb.Units, lit)
	} else if pb.Model[v] > 0 != lit.IsPositive() {
		pb.Status = Unsat
	}
}

// simplify runs unit propagation over the clause list until fixpoint,
// dropping satisfied clauses and literals that are false at the root.
func (pb *Problem) simplify() {
	pb.Model = make([]decLevel, pb.NbVars)
	units := pb.Units
	pb.Units = nil
	for _, unit := range units {
		pb.addUnit(unit)
		if pb.Status == Unsat {
			return
		}
	}
	nbClauses := len(pb.Clauses)
	i := 0
	for i < nbClauses {
		c := pb.Clauses[i]
		nbLits := c.Len()
		sat := false
		j := 0
		for j < nbLits {
			lit := c.Get(j)
			if pb.Model[lit.Var()] == 0 {
				j++
			} else if (pb.Model[lit.Var()] == 1) == lit.IsPositive() {
				sat = true
				break
			} else {
				nbLits--
				c.swap(j, nbLits)
			}
		}
		if sat {
			nbClauses--
			pb.Clauses[i] = pb.Clauses[nbClauses]
			continue
		}
		switch nbLits {
		case 0:
			pb.Status = Unsat
			return
		case 1:
			pb.addUnit(c.Get(0))
			if pb.Status == Unsat {
				return
			}
			nbClauses--
			pb.Clauses[i] = pb.Clauses[nbClauses]
			i = 0 // Restart: this unit might have made another clause unit or satisfied.
		default:
			if c.Len() != nbLits {
				c.lits = c.lits[:nbLits]
			}
			i++
		}
	}
	pb.Clauses = pb.Clauses[:nbClauses]
}
