//go:build torusdebug

package torus

import "fmt"

func assertWrapped(a, b Vec2) {
	if !IsWrapped(a) || !IsWrapped(b) {
		panic(fmt.Sprintf("torus: unwrapped input %v, %v", a, b))
	}
}

func assertRadii(b Box) {
	if b.Radii[0] < 0 || b.Radii[1] < 0 {
		panic(fmt.Sprintf("torus: negative radii %v", b.Radii))
	}
}
