package torus

// Grid is a uniform S x S grid with torus topology.
// Any point is wrapped before lookup, so every point maps to exactly one cell.
//
// Memory layout: cells are stored in row-major order (cells[row*S+col]).
type Grid[T any] struct {
	size  int
	cells []T
}

// NewGrid creates an S x S grid with all cells set to val.
func NewGrid[T any](size int, val T) *Grid[T] {
	if size < 1 {
		size = 1
	}
	cells := make([]T, size*size)
	for i := range cells {
		cells[i] = val
	}
	return &Grid[T]{size: size, cells: cells}
}

// Size returns the number of cells per axis.
func (g *Grid[T]) Size() int { return g.size }

// Len returns the total number of cells.
func (g *Grid[T]) Len() int { return len(g.cells) }

// Cells exposes the backing slice for bulk updates.
func (g *Grid[T]) Cells() []T { return g.cells }

// CellRadius returns the half extent of a single cell.
func (g *Grid[T]) CellRadius() float32 { return 0.5 / float32(g.size) }

// Index returns the row-major index of the cell containing coor.
func (g *Grid[T]) Index(coor Vec2) int {
	wp := Wrap(coor)
	col := g.axisCell(wp[0])
	row := g.axisCell(wp[1])
	return row*g.size + col
}

func (g *Grid[T]) axisCell(x float32) int {
	c := int(x * float32(g.size))
	// x just below 1 can round up to size
	if c >= g.size {
		c = g.size - 1
	}
	return c
}

// At returns a pointer to the cell containing coor.
func (g *Grid[T]) At(coor Vec2) *T {
	return &g.cells[g.Index(coor)]
}

// Get returns the value of the cell containing coor.
func (g *Grid[T]) Get(coor Vec2) T {
	return g.cells[g.Index(coor)]
}

// Set stores val in the cell containing coor.
func (g *Grid[T]) Set(coor Vec2, val T) {
	g.cells[g.Index(coor)] = val
}

// Pixel returns the bounding box of the cell containing coor.
func (g *Grid[T]) Pixel(coor Vec2) Box {
	idx := g.Index(coor)
	s := float32(g.size)
	pr := g.CellRadius()
	col := float32(idx % g.size)
	row := float32(idx / g.size)
	return Box{
		Center: Vec2{(col + 0.5) / s, (row + 0.5) / s},
		Radii:  Vec2{pr, pr},
	}
}
