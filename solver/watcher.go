package solver

// A watcher associates a clause with a blocking literal from that clause.
// If the blocker is true, the clause is satisfied and does not have to be
// inspected at all during propagation.
type watcher struct {
	other  Lit // Another lit from the clause
	clause *Clause
}

// A watcherList is a structure used to store clauses and propagate unit literals efficiently.
type watcherList struct {
	wlistBin [][]watcher // For each literal, a list of binary clauses where its negation appears
	wlist    [][]watcher // For each literal, a list of longer clauses where its negation is one of the two watched lits
}

// initWatcherList makes a new watcherList for the solver.
func (s *Solver) initWatcherList(clauses []*Clause) {
	s.wl = watcherList{
		wlistBin: make([][]watcher, s.nbVars*2),
		wlist:    make([][]watcher, s.nbVars*2),
	}
	for _, c := range clauses {
		s.attachClause(c)
	}
}

// attachClause watches the two first literals of the provided clause.
func (s *Solver) attachClause(c *Clause) {
	first := c.First()
	second := c.Second()
	neg0 := first.Negation()
	neg1 := second.Negation()
	if c.Len() == 2 {
		s.wl.wlistBin[neg0] = append(s.wl.wlistBin[neg0], watcher{clause: c, other: second})
		s.wl.wlistBin[neg1] = append(s.wl.wlistBin[neg1], watcher{clause: c, other: first})
	} else {
		s.wl.wlist[neg0] = append(s.wl.wlist[neg0], watcher{clause: c, other: second})
		s.wl.wlist[neg1] = append(s.wl.wlist[neg1], watcher{clause: c, other: first})
	}
}

// detachClause removes the clause from the watcher lists.
func (s *Solver) detachClause(c *Clause) {
	if c.Len() == 2 {
		s.removeWatcher(&s.wl.wlistBin[c.First().Negation()], c)
		s.removeWatcher(&s.wl.wlistBin[c.Second().Negation()], c)
	} else {
		s.removeWatcher(&s.wl.wlist[c.First().Negation()], c)
		s.removeWatcher(&s.wl.wlist[c.Second().Negation()], c)
	}
}

// removeWatcher removes the watcher associated with c from lst.
// The watcher *must* be present in lst.
func (s *Solver) removeWatcher(lst *[]watcher, c *Clause) {
	watchers := *lst
	i := 0
	for watchers[i].clause != c {
		i++
	}
	last := len(watchers) - 1
	watchers[i] = watchers[last]
	*lst = watchers[:last]
}

// If l is negative, -lvl is returned. Else, lvl is returned.
func lvlToSignedLvl(l Lit, lvl decLevel) decLevel {
	if l.IsPositive() {
		return lvl
	}
	return -lvl
}

// uncheckedEnqueue adds l to the trail with the given reason clause.
// l must currently be unbound.
func (s *Solver) uncheckedEnqueue(l Lit, from *Clause) {
	v := l.Var()
	s.model[v] = lvlToSignedLvl(l, decLevel(s.DecisionLevel()+1))
	if from != nil {
		from.lock()
	}
	s.reason[v] = from
	s.trail = append(s.trail, l)
}

// Propagate propagates all the enqueued literals that were not dealt with yet.
// It returns the conflicting clause if a conflict arose, nil otherwise.
func (s *Solver) Propagate() *Clause {
	for s.propHead < len(s.trail) {
		p := s.trail[s.propHead]
		s.propHead++
		s.propagations++
		// Binary clauses first: they can be resolved without touching the clause.
		for _, w := range s.wl.wlistBin[p] {
			switch s.litValue(w.other) {
			case Unsat:
				s.propHead = len(s.trail)
				return w.clause
			case Indet:
				s.uncheckedEnqueue(w.other, w.clause)
			}
		}
		if c := s.propagateLit(p); c != nil {
			return c
		}
	}
	return nil
}

// propagateLit inspects all non-binary clauses in which p's negation is watched.
func (s *Solver) propagateLit(p Lit) *Clause {
	ws := s.wl.wlist[p]
	notP := p.Negation()
	i, j := 0, 0
	for i < len(ws) {
		w := ws[i]
		i++
		blocker := w.other
		if s.litValue(blocker) == Sat { // Blocker is true: clause already satisfied
			ws[j] = w
			j++
			continue
		}
		c := w.clause
		// Make sure the false literal is at position 1.
		if c.First() == notP {
			c.swap(0, 1)
		}
		first := c.First()
		w = watcher{clause: c, other: first}
		if first != blocker && s.litValue(first) == Sat {
			ws[j] = w
			j++
			continue
		}
		// Look for a new literal to watch.
		moved := false
		for k := 2; k < c.Len(); k++ {
			if s.litValue(c.Get(k)) != Unsat {
				c.swap(1, k)
				neg := c.Second().Negation()
				s.wl.wlist[neg] = append(s.wl.wlist[neg], w)
				moved = true
				break
			}
		}
		if moved {
			continue
		}
		// No new watch found: the clause is unit or conflicting.
		ws[j] = w
		j++
		switch s.litValue(first) {
		case Unsat:
			for i < len(ws) { // Copy back the watchers that were not inspected
				ws[j] = ws[i]
				i++
				j++
			}
			s.wl.wlist[p] = ws[:j]
			s.propHead = len(s.trail)
			return c
		case Indet:
			s.uncheckedEnqueue(first, c)
		}
	}
	s.wl.wlist[p] = ws[:j]
	return nil
}
