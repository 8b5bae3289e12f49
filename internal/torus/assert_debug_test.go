//go:build torusdebug

package torus

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOffsetPanicsOnUnwrappedInput(t *testing.T) {
	require.Panics(t, func() { Offset(Vec2{1.5, 0}, Vec2{0, 0}) })
	require.NotPanics(t, func() { Offset(Vec2{0.5, 0}, Vec2{0, 0.99}) })
}

func TestIncludePanicsOnNegativeRadii(t *testing.T) {
	require.Panics(t, func() {
		Include(Box{Radii: Vec2{-1, 0}}, Box{})
	})
}
