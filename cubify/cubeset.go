package cubify

import "github.com/satlab/cubisat/solver"

// A CubeSet is a set of cubes specialized for exact membership tests in
// O(|cube|) time. It is shaped as a trie keyed on the packed literal at each
// depth; a terminal mark at depth |c| records the presence of c. There is no
// subsumption lookup, on purpose.
type CubeSet struct {
	root cubeNode
	size int
}

type cubeNode struct {
	marks    map[solver.Lit]struct{} // Child marks: if a mark exists, that cube exists.
	children map[solver.Lit]*cubeNode
}

// NewCubeSet returns an empty cube set.
func NewCubeSet() *CubeSet {
	return &CubeSet{}
}

// Len returns the number of cubes in the set.
func (s *CubeSet) Len() int {
	return s.size
}

// Insert adds the cube to the set. Inserting an already present cube or the
// empty cube is a no-op.
func (s *CubeSet) Insert(c Cube) {
	if len(c) == 0 {
		return
	}
	n := &s.root
	for depth := 0; depth < len(c)-1; depth++ {
		if n.children == nil {
			n.children = map[solver.Lit]*cubeNode{}
		}
		child, ok := n.children[c[depth]]
		if !ok {
			child = &cubeNode{}
			n.children[c[depth]] = child
		}
		n = child
	}
	if n.marks == nil {
		n.marks = map[solver.Lit]struct{}{}
	}
	if _, ok := n.marks[c[len(c)-1]]; !ok {
		n.marks[c[len(c)-1]] = struct{}{}
		s.size++
	}
}

// Remove deletes the cube from the set. Removing an absent cube is a no-op.
func (s *CubeSet) Remove(c Cube) {
	if len(c) == 0 {
		return
	}
	n := &s.root
	for depth := 0; depth < len(c)-1; depth++ {
		child, ok := n.children[c[depth]]
		if !ok {
			return
		}
		n = child
	}
	if _, ok := n.marks[c[len(c)-1]]; ok {
		delete(n.marks, c[len(c)-1])
		s.size--
	}
}

// Contains returns true iff the cube is in the set.
func (s *CubeSet) Contains(c Cube) bool {
	if len(c) == 0 {
		return false
	}
	n := &s.root
	for depth := 0; depth < len(c)-1; depth++ {
		child, ok := n.children[c[depth]]
		if !ok {
			return false
		}
		n = child
	}
	_, ok := n.marks[c[len(c)-1]]
	return ok
}
