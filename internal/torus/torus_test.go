package torus

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func randomPoint(rng *rand.Rand) Vec2 {
	return Vec2{rng.Float32(), rng.Float32()}
}

func TestWrapIdempotentAndInRange(t *testing.T) {
	values := []float32{0, 0.25, 0.999999, 1, 1.5, -0.3, -1e-9, -1, -7.75, 12345.678, 3e6}
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		values = append(values, (rng.Float32()-0.5)*200)
	}

	for _, x := range values {
		w := Wrap(Vec2{x, -x})
		require.Equal(t, w, Wrap(w), "x=%v", x)
		for i := 0; i < 2; i++ {
			require.GreaterOrEqual(t, w[i], float32(0), "x=%v", x)
			require.Less(t, w[i], float32(1), "x=%v", x)
		}
	}
}

func TestWrapTinyNegativeMapsToZero(t *testing.T) {
	require.Equal(t, Vec2{0, 0}, Wrap(Vec2{-1e-9, -1e-10}))
}

func TestOffsetRange(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 1000; i++ {
		o := Offset(randomPoint(rng), randomPoint(rng))
		for k := 0; k < 2; k++ {
			require.GreaterOrEqual(t, o[k], float32(-0.5))
			require.Less(t, o[k], float32(0.5))
		}
	}
}

func TestOffsetAntisymmetric(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	for i := 0; i < 1000; i++ {
		a, b := randomPoint(rng), randomPoint(rng)
		ab, ba := Offset(a, b), Offset(b, a)
		for k := 0; k < 2; k++ {
			if abs32(ab[k]) == 0.5 {
				// both fold to -0.5
				continue
			}
			require.Equal(t, -ab[k], ba[k], "a=%v b=%v", a, b)
		}
	}
}

func TestOffsetAcrossSeam(t *testing.T) {
	o := Offset(Vec2{0.01, 0.5}, Vec2{0.99, 0.5})
	require.InDelta(t, 0.02, o[0], 1e-6)
	require.Equal(t, float32(0), o[1])
}

func TestDistanceOnWrapBoundary(t *testing.T) {
	d := Distance(Vec2{0.99, 0.5}, Vec2{0.01, 0.5})
	require.InDelta(t, 0.02, d, 1e-6)

	d = Distance(Vec2{0.5, 0.995}, Vec2{0.5, 0.005})
	require.InDelta(t, 0.01, d, 1e-6)
}

func TestDistanceNeverNegative(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	for i := 0; i < 1000; i++ {
		a, b := randomPoint(rng), randomPoint(rng)
		d2 := Distance2(a, b)
		require.GreaterOrEqual(t, d2, float32(0))
		require.LessOrEqual(t, d2, float32(0.5))
	}
	require.Equal(t, float32(0), Distance(Vec2{0.3, 0.3}, Vec2{0.3, 0.3}))
}

func TestVec2Ops(t *testing.T) {
	a, b := Vec2{1, -2}, Vec2{0.5, 3}
	require.Equal(t, Vec2{1.5, 1}, a.Add(b))
	require.Equal(t, Vec2{0.5, -5}, a.Sub(b))
	require.Equal(t, Vec2{2, -4}, a.Scale(2))
	require.Equal(t, Vec2{1, 2}, a.Abs())
	require.Equal(t, Vec2{0.5, -2}, Min(a, b))
	require.Equal(t, Vec2{1, 3}, Max(a, b))
	require.Equal(t, "1,-2", a.String())
}

func TestIsWrapped(t *testing.T) {
	require.True(t, IsWrapped(Vec2{0, 0.5}))
	require.False(t, IsWrapped(Vec2{-0.1, 0.5}))
	require.False(t, IsWrapped(Vec2{0.5, 1.1}))
}
