package hrtree

import "pred-prey/internal/torus"

// Index is a box index that is rebuilt from scratch and then queried.
// Tree and BruteForce implement it.
type Index interface {
	Build(boxes []torus.Box) error
	Query(q torus.Box, fn func(index int))
	Len() int
}

var (
	_ Index = (*Tree)(nil)
	_ Index = (*BruteForce)(nil)
)

// BruteForce answers queries by testing every box. It is the reference the
// tree is checked against.
type BruteForce struct {
	boxes []torus.Box
}

// Build copies boxes.
func (b *BruteForce) Build(boxes []torus.Box) error {
	if err := validate(len(boxes), func(i int) torus.Box { return boxes[i] }); err != nil {
		return err
	}
	b.boxes = append(b.boxes[:0], boxes...)
	return nil
}

// Query calls fn with the index of every box that intersects q.
func (b *BruteForce) Query(q torus.Box, fn func(index int)) {
	b.QueryEps(q, torus.DefaultEps, fn)
}

// QueryEps is Query with an explicit intersection bias eps.
func (b *BruteForce) QueryEps(q torus.Box, eps float32, fn func(index int)) {
	for i, box := range b.boxes {
		if torus.IntersectsEps(box, q, eps) {
			fn(i)
		}
	}
}

// Len returns the number of indexed boxes.
func (b *BruteForce) Len() int { return len(b.boxes) }
