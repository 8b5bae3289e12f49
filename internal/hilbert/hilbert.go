// Package hilbert maps points on the unit torus to Hilbert curve keys.
//
// Each axis is quantized to 2^Order cells and the cell is mapped to its
// distance along a Hilbert curve of that order. Points close on the plane tend
// to get close keys, which is what the bulk loader in hrtree relies on to group
// nearby boxes without searching.
package hilbert

import "pred-prey/internal/torus"

const (
	Order = 15         // bits per axis
	Cells = 1 << Order // cells per axis
	Bits  = 2 * Order  // significant bits of a Key

	// KeyBytes is the number of bytes of a Key that can be non-zero.
	KeyBytes = (Bits + 7) / 8
)

// Key is a 2D Hilbert value of order Order.
type Key uint32

// Byte returns byte i of the key, least significant first.
func (k Key) Byte(i int) uint8 {
	return uint8(k >> (8 * i))
}

// FromPoint returns the key of the cell containing the wrapped point pt.
func FromPoint(pt torus.Vec2) Key {
	return FromCell(quantize(pt[0]), quantize(pt[1]))
}

// FromCell returns the key of cell (x, y). Coordinates must be below Cells.
func FromCell(x, y uint32) Key {
	var d uint32
	for s := uint32(Cells / 2); s > 0; s /= 2 {
		var rx, ry uint32
		if x&s != 0 {
			rx = 1
		}
		if y&s != 0 {
			ry = 1
		}
		d += s * s * ((3 * rx) ^ ry)
		x, y = rotate(Cells, x, y, rx, ry)
	}
	return Key(d)
}

// Cell returns the cell addressed by k. It inverts FromCell.
func Cell(k Key) (x, y uint32) {
	t := uint32(k)
	for s := uint32(1); s < Cells; s *= 2 {
		rx := 1 & (t / 2)
		ry := 1 & (t ^ rx)
		x, y = rotate(s, x, y, rx, ry)
		x += s * rx
		y += s * ry
		t /= 4
	}
	return x, y
}

// CellCenter returns the center of cell (x, y) in torus coordinates.
func CellCenter(x, y uint32) torus.Vec2 {
	return torus.Vec2{
		(float32(x) + 0.5) / Cells,
		(float32(y) + 0.5) / Cells,
	}
}

// rotate flips and transposes a quadrant so the sub-curve has the right
// orientation.
func rotate(n, x, y, rx, ry uint32) (uint32, uint32) {
	if ry == 0 {
		if rx == 1 {
			x = n - 1 - x
			y = n - 1 - y
		}
		x, y = y, x
	}
	return x, y
}

func quantize(v float32) uint32 {
	if v <= 0 {
		return 0
	}
	c := uint32(v * Cells)
	if c >= Cells {
		c = Cells - 1
	}
	return c
}
