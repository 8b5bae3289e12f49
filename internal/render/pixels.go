package render

import (
	"image"
	"image/color"
	"math"
)

// pixels draws simple primitives straight into an RGBA image.
// This bypasses the overhead of gg.Context for the many small dots of a frame.
type pixels struct {
	buf    []byte
	width  int
	height int
	stride int // bytes per row
}

func newPixels(img *image.RGBA) *pixels {
	b := img.Bounds()
	return &pixels{
		buf:    img.Pix,
		width:  b.Dx(),
		height: b.Dy(),
		stride: img.Stride,
	}
}

// clear fills the entire buffer with a solid color
func (p *pixels) clear(c color.RGBA) {
	for i := 0; i < len(p.buf); i += 4 {
		p.buf[i] = c.R
		p.buf[i+1] = c.G
		p.buf[i+2] = c.B
		p.buf[i+3] = c.A
	}
}

// blend mixes c over the opaque pixel at idx.
func (p *pixels) blend(idx int, c color.RGBA) {
	if c.A == 255 {
		p.buf[idx] = c.R
		p.buf[idx+1] = c.G
		p.buf[idx+2] = c.B
		p.buf[idx+3] = 255
		return
	}
	srcA := float64(c.A) / 255.0
	invA := 1.0 - srcA
	p.buf[idx] = uint8(float64(c.R)*srcA + float64(p.buf[idx])*invA)
	p.buf[idx+1] = uint8(float64(c.G)*srcA + float64(p.buf[idx+1])*invA)
	p.buf[idx+2] = uint8(float64(c.B)*srcA + float64(p.buf[idx+2])*invA)
	p.buf[idx+3] = 255
}

// fillRect blends a clipped rectangle.
func (p *pixels) fillRect(x, y, w, h int, c color.RGBA) {
	if c.A == 0 {
		return
	}
	x1, y1 := max(0, x), max(0, y)
	x2, y2 := min(p.width, x+w), min(p.height, y+h)
	for py := y1; py < y2; py++ {
		row := py * p.stride
		for px := x1; px < x2; px++ {
			p.blend(row+px*4, c)
		}
	}
}

// disc fills the pixels within radius of (cx, cy).
func (p *pixels) disc(cx, cy int, radius float64, c color.RGBA) {
	rad := int(radius + 0.5)
	radSq := radius * radius

	for py := max(0, cy-rad); py < min(p.height, cy+rad+1); py++ {
		dy := float64(py - cy)
		dySq := dy * dy
		if dySq > radSq {
			continue
		}
		ext := int(math.Sqrt(radSq-dySq) + 0.5)
		row := py * p.stride
		for px := max(0, cx-ext); px < min(p.width, cx+ext+1); px++ {
			dx := float64(px - cx)
			if dx*dx+dySq <= radSq {
				p.blend(row+px*4, c)
			}
		}
	}
}

// ring draws a circle outline of the given line width.
func (p *pixels) ring(cx, cy int, radius float64, lineWidth int, c color.RGBA) {
	outer := radius + float64(lineWidth)/2
	inner := max(radius-float64(lineWidth)/2, 0)
	outerSq, innerSq := outer*outer, inner*inner

	rad := int(outer + 0.5)
	for py := max(0, cy-rad); py < min(p.height, cy+rad+1); py++ {
		dy := float64(py - cy)
		dySq := dy * dy
		if dySq > outerSq {
			continue
		}
		ext := int(math.Sqrt(outerSq-dySq) + 0.5)
		row := py * p.stride
		for px := max(0, cx-ext); px < min(p.width, cx+ext+1); px++ {
			dx := float64(px - cx)
			if d := dx*dx + dySq; d <= outerSq && d >= innerSq {
				p.blend(row+px*4, c)
			}
		}
	}
}

// wrapped calls draw at (x, y) and at each seam copy needed so a shape of
// the given reach that crosses an edge reappears on the opposite side.
func (p *pixels) wrapped(x, y, reach int, draw func(x, y int)) {
	xs := []int{x}
	if x-reach < 0 {
		xs = append(xs, x+p.width)
	}
	if x+reach >= p.width {
		xs = append(xs, x-p.width)
	}
	ys := []int{y}
	if y-reach < 0 {
		ys = append(ys, y+p.height)
	}
	if y+reach >= p.height {
		ys = append(ys, y-p.height)
	}
	for _, cy := range ys {
		for _, cx := range xs {
			draw(cx, cy)
		}
	}
}
