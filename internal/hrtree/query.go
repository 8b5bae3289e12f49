package hrtree

import (
	"iter"

	"pred-prey/internal/torus"
)

// nodeSlack widens the test against inner nodes. Inner boxes are the result of
// repeated torus.Include and may have lost a few ulps; the slack keeps them
// from pruning a leaf that passes its own test.
const nodeSlack = 16 * torus.DefaultEps

// Query calls fn with the original index of every box that intersects q,
// using torus.DefaultEps. fn must not modify t.
func (t *Tree) Query(q torus.Box, fn func(index int)) {
	t.QueryEps(q, torus.DefaultEps, fn)
}

// QueryEps is Query with an explicit intersection bias eps.
func (t *Tree) QueryEps(q torus.Box, eps float32, fn func(index int)) {
	if len(t.nodes) == 0 {
		return
	}
	t.walk(len(t.levelBounds)-1, 0, q, eps, func(i int) bool {
		fn(i)
		return true
	})
}

// Overlaps returns the original indices of the boxes intersecting q as a
// sequence. Stopping the iteration stops the traversal.
func (t *Tree) Overlaps(q torus.Box) iter.Seq[int] {
	return func(yield func(int) bool) {
		if len(t.nodes) == 0 {
			return
		}
		t.walk(len(t.levelBounds)-1, 0, q, torus.DefaultEps, yield)
	}
}

// Count returns the number of boxes intersecting q.
func (t *Tree) Count(q torus.Box) int {
	n := 0
	t.Query(q, func(int) { n++ })
	return n
}

// walk visits node k of the given level. It returns false once yield asked to
// stop.
func (t *Tree) walk(level, k int, q torus.Box, eps float32, yield func(int) bool) bool {
	node := t.nodes[t.levelStart(level)+k]
	if level == 0 {
		if torus.IntersectsEps(node, q, eps) {
			return yield(int(t.entries[k].Index))
		}
		return true
	}
	if !torus.IntersectsEps(node, q, eps+nodeSlack) {
		return true
	}
	size := t.levelBounds[level-1] - t.levelStart(level-1)
	first := k * Fanout
	last := min(first+Fanout, size)
	for c := first; c < last; c++ {
		if !t.walk(level-1, c, q, eps, yield) {
			return false
		}
	}
	return true
}
