package solver

// computeLbd computes and sets c's LBD (Literal Block Distance).
func (c *Clause) computeLbd(model Model) {
	c.setLbd(1)
	curLvl := abs(model[c.Get(0).Var()])
	for i := 0; i < c.Len(); i++ {
		lit := c.Get(i)
		if lvl := abs(model[lit.Var()]); lvl != curLvl {
			curLvl = lvl
			c.incLbd()
		}
	}
}

// analyze performs first-UIP analysis on a conflict. It returns the learned
// clause's literals (the asserting literal first) and the level to backjump to.
// Must only be called at a decision level > 0.
func (s *Solver) analyze(confl *Clause) (learnt []Lit, btLevel int) {
	curLvl := s.DecisionLevel()
	learnt = append(learnt, LitUndef) // Room for the asserting literal
	pathC := 0
	p := LitUndef
	idx := len(s.trail) - 1
	for {
		s.clauseBumpActivity(confl)
		for k := 0; k < confl.Len(); k++ {
			q := confl.Get(k)
			if q == p {
				continue
			}
			if v := q.Var(); !s.seen[v] && s.level(v) > 0 {
				s.seen[v] = true
				s.toClear = append(s.toClear, v)
				s.varBumpActivity(v)
				if s.level(v) >= curLvl {
					pathC++
				} else {
					learnt = append(learnt, q)
				}
			}
		}
		// Select the next literal to look at.
		for !s.seen[s.trail[idx].Var()] {
			idx--
		}
		p = s.trail[idx]
		confl = s.reason[p.Var()]
		idx--
		pathC--
		if pathC <= 0 {
			break
		}
	}
	learnt[0] = p.Negation()
	learnt = learnt[:s.minimizeLearnt(learnt)]
	if len(learnt) > 1 {
		// Put a lit from the backjump level at position 1.
		maxI := 1
		for i := 2; i < len(learnt); i++ {
			if s.level(learnt[i].Var()) > s.level(learnt[maxI].Var()) {
				maxI = i
			}
		}
		learnt[1], learnt[maxI] = learnt[maxI], learnt[1]
		btLevel = s.level(learnt[1].Var())
	}
	for _, v := range s.toClear {
		s.seen[v] = false
	}
	s.toClear = s.toClear[:0]
	return learnt, btLevel
}

// minimizeLearnt reduces (if possible) the length of the learned clause and
// returns the size of the new list of lits: a literal is redundant when its
// reason is made entirely of literals already in the clause.
func (s *Solver) minimizeLearnt(learnt []Lit) int {
	sz := 1
	for i := 1; i < len(learnt); i++ {
		v := learnt[i].Var()
		reason := s.reason[v]
		if reason == nil {
			learnt[sz] = learnt[i]
			sz++
			continue
		}
		for k := 0; k < reason.Len(); k++ {
			lit := reason.Get(k)
			if v2 := lit.Var(); v2 != v && !s.seen[v2] && s.level(v2) > 0 {
				learnt[sz] = learnt[i]
				sz++
				break
			}
		}
	}
	return sz
}

// analyzeFinal computes the final conflict for the failing assumption p,
// i.e. the set of assumption negations that together are inconsistent.
// The result is left in s.conflict.
func (s *Solver) analyzeFinal(p Lit) {
	s.conflict = s.conflict[:0]
	s.conflict = append(s.conflict, p.Negation())
	if s.DecisionLevel() == 0 {
		return
	}
	s.seen[p.Var()] = true
	for i := len(s.trail) - 1; i >= s.trailLim[0]; i-- {
		v := s.trail[i].Var()
		if !s.seen[v] {
			continue
		}
		if reason := s.reason[v]; reason == nil {
			if s.level(v) > 0 {
				s.conflict = append(s.conflict, s.trail[i].Negation())
			}
		} else {
			for k := 0; k < reason.Len(); k++ {
				lit := reason.Get(k)
				if v2 := lit.Var(); v2 != v && s.level(v2) > 0 {
					s.seen[v2] = true
				}
			}
		}
		s.seen[v] = false
	}
	s.seen[p.Var()] = false
}
