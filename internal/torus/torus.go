// Package torus provides geometry on the normalized torus [0,1) x [0,1).
//
// Both axes wrap at 0/1, so offsets, distances, overlap tests and unions are
// computed along the shortest way around. Inputs are expected to be wrapped;
// only Wrap itself wraps. Build with -tags torusdebug to have the kernel
// panic on unwrapped input.
package torus

import (
	"fmt"
	"math"
)

// Vec2 is a point or offset on the torus.
type Vec2 [2]float32

// Box is an axis-aligned bounding box given by its center and half extents.
// A box with zero radii is a point.
type Box struct {
	Center Vec2
	Radii  Vec2 // half extent in x/y, never negative
}

// PointBox returns the zero-radius box at p.
func PointBox(p Vec2) Box {
	return Box{Center: p}
}

// Add returns a+b.
func (a Vec2) Add(b Vec2) Vec2 { return Vec2{a[0] + b[0], a[1] + b[1]} }

// Sub returns a-b.
func (a Vec2) Sub(b Vec2) Vec2 { return Vec2{a[0] - b[0], a[1] - b[1]} }

// Scale returns s*a.
func (a Vec2) Scale(s float32) Vec2 { return Vec2{s * a[0], s * a[1]} }

// Abs returns the element-wise absolute value.
func (a Vec2) Abs() Vec2 { return Vec2{abs32(a[0]), abs32(a[1])} }

func (a Vec2) String() string { return fmt.Sprintf("%g,%g", a[0], a[1]) }

func (b Box) String() string { return fmt.Sprintf("%v,%v", b.Center, b.Radii) }

// Min returns the element-wise minimum.
func Min(a, b Vec2) Vec2 { return Vec2{min(a[0], b[0]), min(a[1], b[1])} }

// Max returns the element-wise maximum.
func Max(a, b Vec2) Vec2 { return Vec2{max(a[0], b[0]), max(a[1], b[1])} }

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

// wrapCoord returns the fractional part of x.
func wrapCoord(x float32) float32 {
	f := x - float32(math.Floor(float64(x)))
	// -1e-9 - floor(-1e-9) rounds to 1 in float32
	if f >= 1 {
		return 0
	}
	return f
}

// wrapOffsetCoord folds a difference of two wrapped coordinates into [-0.5, 0.5).
func wrapOffsetCoord(x float32) float32 {
	if x < -0.5 {
		x += 1
	} else if x >= 0.5 {
		x -= 1
	}
	return x
}

// IsWrapped reports whether pt lies in [0,1] on both axes.
func IsWrapped(pt Vec2) bool {
	return pt[0] >= 0 && pt[0] <= 1 && pt[1] >= 0 && pt[1] <= 1
}

// Wrap maps pt into [0,1) x [0,1).
func Wrap(pt Vec2) Vec2 {
	return Vec2{wrapCoord(pt[0]), wrapCoord(pt[1])}
}

// Offset returns the minimal signed offset a-b on each axis, in [-0.5, 0.5).
// a and b shall be wrapped.
func Offset(a, b Vec2) Vec2 {
	assertWrapped(a, b)
	d := a.Sub(b)
	return Vec2{wrapOffsetCoord(d[0]), wrapOffsetCoord(d[1])}
}

// Distance2 returns the minimal squared distance between a and b.
// a and b shall be wrapped.
func Distance2(a, b Vec2) float32 {
	ofs := Offset(a, b)
	return ofs[0]*ofs[0] + ofs[1]*ofs[1]
}

// Distance returns the minimal distance between a and b.
// a and b shall be wrapped.
func Distance(a, b Vec2) float32 {
	return float32(math.Sqrt(float64(Distance2(a, b))))
}
