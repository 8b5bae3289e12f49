package torus

// All torus operations incur rounding errors. The intersection tests favor
// false positives over false negatives: radii are bumped by eps, which
// defaults to DefaultEps.
const DefaultEps float32 = 4 * epsilon32

// epsilon32 is the float32 machine epsilon (2^-23).
const epsilon32 float32 = 1.0 / (1 << 23)

// Intersects reports whether boxes a and b overlap, using DefaultEps.
// Centers shall be wrapped.
func Intersects(a, b Box) bool {
	return IntersectsEps(a, b, DefaultEps)
}

// IntersectsEps reports whether boxes a and b overlap when the summed radii
// are enlarged by eps. Centers shall be wrapped.
func IntersectsEps(a, b Box, eps float32) bool {
	aofs := Offset(b.Center, a.Center).Abs()
	rr := a.Radii.Add(b.Radii)
	return aofs[0] <= rr[0]+eps && aofs[1] <= rr[1]+eps
}

// IntersectsPoint reports whether pt lies in box, using DefaultEps.
// box.Center and pt shall be wrapped.
func IntersectsPoint(box Box, pt Vec2) bool {
	return IntersectsPointEps(box, pt, DefaultEps)
}

// IntersectsPointEps reports whether pt lies in box enlarged by eps.
// box.Center and pt shall be wrapped.
func IntersectsPointEps(box Box, pt Vec2, eps float32) bool {
	aofs := Offset(pt, box.Center).Abs()
	return aofs[0] <= box.Radii[0]+eps && aofs[1] <= box.Radii[1]+eps
}

// IncludePoint returns the minimal box that contains box and pt.
// box.Center and pt shall be wrapped.
func IncludePoint(box Box, pt Vec2) Box {
	assertRadii(box)
	p := box.Center.Add(Offset(pt, box.Center))
	lo := Min(box.Center.Sub(box.Radii), p)
	hi := Max(box.Center.Add(box.Radii), p)
	return fromExtents(lo, hi)
}

// Include returns the minimal box that contains the boxes a and b.
// Centers shall be wrapped.
//
// b is moved into a's local frame first, so the result spans the shorter
// way around the torus.
func Include(a, b Box) Box {
	assertRadii(a)
	assertRadii(b)
	cb := a.Center.Add(Offset(b.Center, a.Center))
	lo := Min(a.Center.Sub(a.Radii), cb.Sub(b.Radii))
	hi := Max(a.Center.Add(a.Radii), cb.Add(b.Radii))
	return fromExtents(lo, hi)
}

// fromExtents converts unwrapped lo/hi corners into a box with wrapped center.
func fromExtents(lo, hi Vec2) Box {
	return Box{
		Center: Wrap(hi.Add(lo).Scale(0.5)),
		Radii:  hi.Sub(lo).Scale(0.5),
	}
}
