package cubify

import "sort"

// A CubeQueue is a bounded set of scored cubes, each remembering the
// persistent ids of the clauses it is an implicant of. Two indices are kept
// in sync: a score-ordered one for best/worst peeks and a cube-keyed one for
// membership. When the capacity is reached, pushing a fresh cube evicts the
// lowest-scoring entry. The queue also tracks the running mean of all scores
// ever pushed, counting each distinct cube once, regardless of evictions.
type CubeQueue struct {
	budget   int
	sumScore float64
	numSeen  float64

	scores  []float64          // Distinct scores present, ascending.
	buckets map[float64][]Cube // Cubes sharing a score, oldest first.
	entries map[string]*cubeEntry
}

type cubeEntry struct {
	cube    Cube
	score   float64
	parents []int
}

// NewCubeQueue returns an empty queue holding at most budget cubes.
func NewCubeQueue(budget int) *CubeQueue {
	return &CubeQueue{
		budget:  budget,
		buckets: map[float64][]Cube{},
		entries: map[string]*cubeEntry{},
	}
}

// Push registers the cube with the given score and parent clause id. If the
// cube is already present, only the parent list is updated (no score change,
// no mean update). A fresh push over capacity evicts the worst entry.
func (q *CubeQueue) Push(cube Cube, score float64, parent int) {
	if e, ok := q.entries[cube.Key()]; ok {
		for _, p := range e.parents {
			if p == parent {
				return
			}
		}
		e.parents = append(e.parents, parent)
		return
	}
	q.insert(cube, score, parent)
	q.sumScore += score
	q.numSeen++
	if len(q.entries) > q.budget {
		if worst, ok := q.PeekWorst(); ok {
			q.Pop(worst)
		}
	}
}

func (q *CubeQueue) insert(cube Cube, score float64, parent int) {
	q.entries[cube.Key()] = &cubeEntry{cube: cube, score: score, parents: []int{parent}}
	bucket, ok := q.buckets[score]
	if !ok {
		i := sort.SearchFloat64s(q.scores, score)
		q.scores = append(q.scores, 0)
		copy(q.scores[i+1:], q.scores[i:])
		q.scores[i] = score
	}
	q.buckets[score] = append(bucket, cube)
}

// Pop removes the cube from the queue. The cube must be present.
// The running mean is not adjusted: it is over all-time pushes.
func (q *CubeQueue) Pop(cube Cube) {
	key := cube.Key()
	e, ok := q.entries[key]
	if !ok {
		if debugChecks {
			panic("popping a cube that is not in the queue")
		}
		return
	}
	delete(q.entries, key)
	bucket := q.buckets[e.score]
	if len(bucket) == 1 {
		delete(q.buckets, e.score)
		i := sort.SearchFloat64s(q.scores, e.score)
		q.scores = append(q.scores[:i], q.scores[i+1:]...)
		return
	}
	for i, c := range bucket {
		if c.Equal(cube) {
			q.buckets[e.score] = append(bucket[:i], bucket[i+1:]...)
			return
		}
	}
}

// Contains returns true iff the cube is recorded in the queue.
func (q *CubeQueue) Contains(cube Cube) bool {
	_, ok := q.entries[cube.Key()]
	return ok
}

// Parents returns the persistent ids of the clauses the cube was pushed for.
func (q *CubeQueue) Parents(cube Cube) []int {
	if e, ok := q.entries[cube.Key()]; ok {
		return e.parents
	}
	return nil
}

// PeekBest returns one of the best-scored cubes in the queue: the one at
// index r modulo the bucket size, so that ties are broken by the caller's
// random draw.
func (q *CubeQueue) PeekBest(r int) (Cube, bool) {
	if len(q.scores) == 0 {
		return nil, false
	}
	bucket := q.buckets[q.scores[len(q.scores)-1]]
	if len(bucket) == 1 {
		return bucket[0], true
	}
	return bucket[r%len(bucket)], true
}

// PeekWorst returns the oldest cube at the lowest score.
func (q *CubeQueue) PeekWorst() (Cube, bool) {
	if len(q.scores) == 0 {
		return nil, false
	}
	return q.buckets[q.scores[0]][0], true
}

// Empty is true iff the queue holds no cube.
func (q *CubeQueue) Empty() bool {
	return len(q.entries) == 0
}

// Len returns the number of cubes in the queue.
func (q *CubeQueue) Len() int {
	return len(q.entries)
}

// BestScore returns the highest score present, or 0 if the queue is empty.
func (q *CubeQueue) BestScore() float64 {
	if len(q.scores) == 0 {
		return 0
	}
	return q.scores[len(q.scores)-1]
}

// MeanScore returns the mean of all scores ever pushed, or 0 before the
// first push.
func (q *CubeQueue) MeanScore() float64 {
	if q.numSeen == 0 {
		return 0
	}
	return q.sumScore / q.numSeen
}
