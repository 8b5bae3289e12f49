// Package hrtree implements a bulk-loaded Hilbert R-tree over torus boxes.
//
// The tree is rebuilt from scratch whenever the box set changes: boxes are
// keyed by the Hilbert value of their center, radix sorted, stored as leaves in
// key order, and grouped Fanout at a time into parent boxes with torus.Include
// until a single root remains. Queries yield the caller's original indices,
// never the sorted leaf slots.
//
// All node boxes live in one slice (the arena), level by level, leaves first.
// A Tree is not safe for concurrent use; independent Trees are.
package hrtree

import (
	"errors"
	"fmt"
	"math"

	"pred-prey/internal/hilbert"
	"pred-prey/internal/torus"
)

// Fanout is the maximum number of children of an inner node.
const Fanout = 8

var (
	ErrTooManyBoxes  = errors.New("hrtree: box count exceeds int32 index range")
	ErrNegativeRadii = errors.New("hrtree: box with negative radii")
)

// Tree is a Hilbert R-tree over torus.Box. The zero value is an empty tree.
type Tree struct {
	nodes       []torus.Box // arena: level 0 (leaves) first, root last
	levelBounds []int       // levelBounds[l] is the end of level l in nodes
	entries     []KeyedEntry
	scratch     []KeyedEntry // radix sort buffer, same length as entries
}

// NewTree returns an empty tree with room for capacity leaves.
func NewTree(capacity int) *Tree {
	t := &Tree{}
	if capacity > 0 {
		t.nodes = make([]torus.Box, 0, NodeCount(capacity))
		t.entries = make([]KeyedEntry, 0, capacity)
		t.scratch = make([]KeyedEntry, 0, capacity)
	}
	return t
}

// NodeCount returns the number of arena slots a tree with n leaves uses.
func NodeCount(n int) int {
	total := n
	for n > 1 {
		n = (n + Fanout - 1) / Fanout
		total += n
	}
	return total
}

// Build discards the current content and indexes boxes.
// The position of a box in boxes is the index reported by queries.
func (t *Tree) Build(boxes []torus.Box) error {
	return t.build(len(boxes), func(i int) torus.Box { return boxes[i] })
}

// BuildFrom indexes the boxes proj derives from items.
// proj may be called more than once per item and must be deterministic.
func BuildFrom[T any](t *Tree, items []T, proj func(*T) torus.Box) error {
	return t.build(len(items), func(i int) torus.Box { return proj(&items[i]) })
}

func (t *Tree) build(n int, box func(i int) torus.Box) error {
	if err := validate(n, box); err != nil {
		return err
	}
	t.reset(n)
	if n == 0 {
		return nil
	}

	for i := 0; i < n; i++ {
		t.entries[i] = KeyedEntry{Key: hilbert.FromPoint(box(i).Center), Index: int32(i)}
	}
	if radixSort(t.entries, t.scratch) {
		t.entries, t.scratch = t.scratch, t.entries
	}

	// leaves in Hilbert order
	for i, e := range t.entries {
		t.nodes[i] = box(int(e.Index))
	}
	t.buildHierarchy()
	return nil
}

// validate checks every box before any state is touched, so a failed build
// leaves the previous tree intact.
func validate(n int, box func(i int) torus.Box) error {
	if int64(n) > math.MaxInt32 {
		return fmt.Errorf("%w: %d", ErrTooManyBoxes, n)
	}
	for i := 0; i < n; i++ {
		if r := box(i).Radii; r[0] < 0 || r[1] < 0 {
			return fmt.Errorf("%w: box %d has radii %v", ErrNegativeRadii, i, r)
		}
	}
	return nil
}

// reset sizes the arena and entry buffers for n leaves, reusing capacity.
func (t *Tree) reset(n int) {
	t.levelBounds = append(t.levelBounds[:0], n)
	total := n
	for m := n; m > 1; {
		m = (m + Fanout - 1) / Fanout
		total += m
		t.levelBounds = append(t.levelBounds, total)
	}
	t.nodes = resize(t.nodes, total)
	t.entries = resize(t.entries, n)
	t.scratch = resize(t.scratch, n)
}

func resize[T any](s []T, n int) []T {
	if cap(s) < n {
		return make([]T, n)
	}
	return s[:n]
}

// buildHierarchy fills the inner levels bottom-up. Leaves are already in
// Hilbert order, so consecutive runs of Fanout nodes are spatially close.
func (t *Tree) buildHierarchy() {
	start := 0
	for l := 0; l+1 < len(t.levelBounds); l++ {
		end := t.levelBounds[l]
		out := end
		for i := start; i < end; i += Fanout {
			j := min(i+Fanout, end)
			bv := t.nodes[i]
			for k := i + 1; k < j; k++ {
				bv = torus.Include(bv, t.nodes[k])
			}
			t.nodes[out] = bv
			out++
		}
		start = end
	}
}

// Len returns the number of indexed boxes.
func (t *Tree) Len() int { return len(t.entries) }

// Bounds returns the root box. ok is false for an empty tree.
func (t *Tree) Bounds() (box torus.Box, ok bool) {
	if len(t.nodes) == 0 {
		return torus.Box{}, false
	}
	return t.nodes[len(t.nodes)-1], true
}

// Stats describes the shape of the current tree.
type Stats struct {
	Leaves int
	Nodes  int
	Height int // number of levels including the leaves; 0 when empty
}

// Stats returns the shape of the current tree.
func (t *Tree) Stats() Stats {
	if len(t.nodes) == 0 {
		return Stats{}
	}
	return Stats{
		Leaves: len(t.entries),
		Nodes:  len(t.nodes),
		Height: len(t.levelBounds),
	}
}

func (t *Tree) levelStart(l int) int {
	if l == 0 {
		return 0
	}
	return t.levelBounds[l-1]
}
