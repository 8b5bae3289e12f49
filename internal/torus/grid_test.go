package torus

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGridIndex(t *testing.T) {
	g := NewGrid[float32](10, 0)
	require.Equal(t, 10, g.Size())
	require.Equal(t, 100, g.Len())

	tests := []struct {
		name string
		p    Vec2
		want int
	}{
		{"origin", Vec2{0, 0}, 0},
		{"first row", Vec2{0.35, 0.01}, 3},
		{"second row", Vec2{0.05, 0.15}, 10},
		{"last cell", Vec2{0.9999999, 0.9999999}, 99},
		{"wraps negative", Vec2{-0.05, -0.05}, 99},
		{"wraps past one", Vec2{1.25, 2.05}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, g.Index(tt.p))
		})
	}
}

func TestGridGetSet(t *testing.T) {
	g := NewGrid(4, 1.0)
	require.Equal(t, 1.0, g.Get(Vec2{0.1, 0.1}))

	g.Set(Vec2{0.6, 0.3}, 0.25)
	require.Equal(t, 0.25, g.Get(Vec2{0.7, 0.45}))
	require.Equal(t, 0.25, g.Get(Vec2{-0.3, 1.3}))

	*g.At(Vec2{0.6, 0.3}) += 0.5
	require.Equal(t, 0.75, g.Cells()[1*4+2])
}

func TestGridPixel(t *testing.T) {
	g := NewGrid[int](10, 0)
	require.InDelta(t, 0.05, g.CellRadius(), 1e-7)

	px := g.Pixel(Vec2{0.23, 0.77})
	require.InDelta(t, 0.25, px.Center[0], 1e-6)
	require.InDelta(t, 0.75, px.Center[1], 1e-6)
	require.InDelta(t, 0.05, px.Radii[0], 1e-7)
	require.InDelta(t, 0.05, px.Radii[1], 1e-7)

	// every point lies in its own pixel
	for _, p := range []Vec2{{0.001, 0.999}, {0.5, 0.5}, {0.7349, 0.1}} {
		require.True(t, IntersectsPoint(g.Pixel(p), p))
	}
}

func TestNewGridClampsSize(t *testing.T) {
	g := NewGrid(0, 3)
	require.Equal(t, 1, g.Size())
	require.Equal(t, 3, g.Get(Vec2{0.9, 0.1}))
}
