package hrtree

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"pred-prey/internal/torus"
)

func randomBoxes(rng *rand.Rand, n int, maxRadius float32) []torus.Box {
	boxes := make([]torus.Box, n)
	for i := range boxes {
		boxes[i] = torus.Box{
			Center: torus.Vec2{rng.Float32(), rng.Float32()},
			Radii:  torus.Vec2{rng.Float32() * maxRadius, rng.Float32() * maxRadius},
		}
		if i%5 == 0 {
			boxes[i].Radii = torus.Vec2{} // points
		}
	}
	return boxes
}

func collect(idx Index, q torus.Box) []int {
	var out []int
	idx.Query(q, func(i int) { out = append(out, i) })
	slices.Sort(out)
	return out
}

func TestEmptyTree(t *testing.T) {
	var tree Tree
	q := torus.Box{Center: torus.Vec2{0.5, 0.5}, Radii: torus.Vec2{1, 1}}

	require.Empty(t, collect(&tree, q))
	require.Equal(t, 0, tree.Len())
	require.Equal(t, Stats{}, tree.Stats())
	_, ok := tree.Bounds()
	require.False(t, ok)

	require.NoError(t, tree.Build(nil))
	require.Empty(t, collect(&tree, q))
	require.Equal(t, 0, tree.Count(q))
	for range tree.Overlaps(q) {
		t.Fatal("empty tree yielded a match")
	}
}

func TestSingleBox(t *testing.T) {
	tree := NewTree(1)
	box := torus.Box{Center: torus.Vec2{0.3, 0.7}, Radii: torus.Vec2{0.01, 0.02}}
	require.NoError(t, tree.Build([]torus.Box{box}))

	require.Equal(t, []int{0}, collect(tree, box))
	require.Empty(t, collect(tree, torus.PointBox(torus.Vec2{0.5, 0.5})))
	require.Equal(t, Stats{Leaves: 1, Nodes: 1, Height: 1}, tree.Stats())
	root, ok := tree.Bounds()
	require.True(t, ok)
	require.Equal(t, box, root)
}

func TestNodeCount(t *testing.T) {
	require.Equal(t, 0, NodeCount(0))
	require.Equal(t, 1, NodeCount(1))
	require.Equal(t, 9, NodeCount(8))
	require.Equal(t, 12, NodeCount(9))
	require.Equal(t, 1144, NodeCount(1000))
}

func TestStats(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	tree := NewTree(0)
	require.NoError(t, tree.Build(randomBoxes(rng, 1000, 0.01)))
	require.Equal(t, Stats{Leaves: 1000, Nodes: 1144, Height: 5}, tree.Stats())
}

func TestQueryMatchesBruteForce(t *testing.T) {
	tests := []struct {
		name      string
		n         int
		maxRadius float32
		queryR    float32
	}{
		{"few small", 7, 0.05, 0.1},
		{"one full node", 8, 0.05, 0.1},
		{"two levels", 65, 0.02, 0.05},
		{"points", 500, 0, 0.02},
		{"dense", 3000, 0.01, 0.01},
		{"wide boxes", 400, 0.3, 0.05},
		{"wide queries", 800, 0.01, 0.4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := rand.New(rand.NewSource(int64(tt.n)))
			boxes := randomBoxes(rng, tt.n, tt.maxRadius)

			var tree Tree
			var brute BruteForce
			require.NoError(t, tree.Build(boxes))
			require.NoError(t, brute.Build(boxes))
			require.Equal(t, tt.n, tree.Len())
			require.Equal(t, tt.n, brute.Len())

			for i := 0; i < 300; i++ {
				q := torus.Box{
					Center: torus.Vec2{rng.Float32(), rng.Float32()},
					Radii:  torus.Vec2{rng.Float32() * tt.queryR, rng.Float32() * tt.queryR},
				}
				require.Equal(t, collect(&brute, q), collect(&tree, q), "query %v", q)
			}
		})
	}
}

func TestQueryAcrossSeams(t *testing.T) {
	boxes := []torus.Box{
		{Center: torus.Vec2{0.995, 0.5}, Radii: torus.Vec2{0.002, 0.002}},
		{Center: torus.Vec2{0.003, 0.5}, Radii: torus.Vec2{0.002, 0.002}},
		{Center: torus.Vec2{0.5, 0.999}, Radii: torus.Vec2{0, 0}},
		{Center: torus.Vec2{0.5, 0.001}, Radii: torus.Vec2{0, 0}},
		{Center: torus.Vec2{0.5, 0.5}, Radii: torus.Vec2{0.01, 0.01}},
	}
	var tree Tree
	require.NoError(t, tree.Build(boxes))

	require.Equal(t, []int{0, 1}, collect(&tree, torus.Box{Center: torus.Vec2{0.999, 0.5}, Radii: torus.Vec2{0.003, 0.003}}))
	require.Equal(t, []int{2, 3}, collect(&tree, torus.Box{Center: torus.Vec2{0.5, 0}, Radii: torus.Vec2{0.01, 0.01}}))
	require.Equal(t, []int{4}, collect(&tree, torus.PointBox(torus.Vec2{0.505, 0.495})))
}

func TestSelfMatch(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	boxes := randomBoxes(rng, 2000, 0.02)
	var tree Tree
	require.NoError(t, tree.Build(boxes))

	for i, b := range boxes {
		found := false
		tree.Query(b, func(j int) {
			if j == i {
				found = true
			}
		})
		require.True(t, found, "box %d not found by its own query", i)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(10))
	boxes := randomBoxes(rng, 1500, 0.02)
	q := torus.Box{Center: torus.Vec2{0.4, 0.6}, Radii: torus.Vec2{0.1, 0.1}}

	var a, b Tree
	require.NoError(t, a.Build(boxes))
	require.NoError(t, b.Build(boxes))

	var ra, rb []int
	a.Query(q, func(i int) { ra = append(ra, i) })
	b.Query(q, func(i int) { rb = append(rb, i) })
	require.NotEmpty(t, ra)
	require.Equal(t, ra, rb)

	// rebuilding the same tree gives the same traversal
	require.NoError(t, a.Build(boxes))
	var rc []int
	a.Query(q, func(i int) { rc = append(rc, i) })
	require.Equal(t, ra, rc)
}

func TestRebuildReplacesContent(t *testing.T) {
	rng := rand.New(rand.NewSource(12))
	var tree Tree
	var brute BruteForce

	for _, n := range []int{1000, 10, 0, 3000, 1} {
		boxes := randomBoxes(rng, n, 0.03)
		require.NoError(t, tree.Build(boxes))
		require.NoError(t, brute.Build(boxes))
		require.Equal(t, n, tree.Len())
		for i := 0; i < 50; i++ {
			q := torus.Box{Center: torus.Vec2{rng.Float32(), rng.Float32()}, Radii: torus.Vec2{0.05, 0.05}}
			require.Equal(t, collect(&brute, q), collect(&tree, q))
		}
	}
}

func TestBuildRejectsNegativeRadiiAndKeepsPreviousTree(t *testing.T) {
	rng := rand.New(rand.NewSource(14))
	boxes := randomBoxes(rng, 100, 0.05)
	var tree Tree
	require.NoError(t, tree.Build(boxes))
	q := torus.Box{Center: torus.Vec2{0.5, 0.5}, Radii: torus.Vec2{0.2, 0.2}}
	before := collect(&tree, q)

	bad := append([]torus.Box(nil), boxes...)
	bad[42].Radii[1] = -0.01
	err := tree.Build(bad)
	require.ErrorIs(t, err, ErrNegativeRadii)
	require.Contains(t, err.Error(), "box 42")

	require.Equal(t, 100, tree.Len())
	require.Equal(t, before, collect(&tree, q))

	var brute BruteForce
	require.ErrorIs(t, brute.Build(bad), ErrNegativeRadii)
}

type critter struct {
	pos torus.Vec2
	sr  float32
}

func TestBuildFromReportsOriginalIndices(t *testing.T) {
	rng := rand.New(rand.NewSource(16))
	critters := make([]critter, 500)
	for i := range critters {
		critters[i] = critter{pos: torus.Vec2{rng.Float32(), rng.Float32()}, sr: 0.01}
	}
	proj := func(c *critter) torus.Box {
		return torus.Box{Center: c.pos, Radii: torus.Vec2{c.sr, c.sr}}
	}

	var tree Tree
	require.NoError(t, BuildFrom(&tree, critters, proj))

	for i := range critters {
		q := torus.PointBox(critters[i].pos)
		self := false
		tree.Query(q, func(j int) {
			require.True(t, torus.Intersects(proj(&critters[j]), q))
			self = self || j == i
		})
		require.True(t, self)
	}
}

func TestOverlapsStopsEarly(t *testing.T) {
	rng := rand.New(rand.NewSource(18))
	var tree Tree
	require.NoError(t, tree.Build(randomBoxes(rng, 1000, 0.05)))
	q := torus.Box{Center: torus.Vec2{0.5, 0.5}, Radii: torus.Vec2{0.5, 0.5}}

	require.Equal(t, 1000, tree.Count(q))

	n := 0
	for range tree.Overlaps(q) {
		n++
		if n == 3 {
			break
		}
	}
	require.Equal(t, 3, n)

	all := slices.Sorted(tree.Overlaps(q))
	require.Len(t, all, 1000)
	require.Equal(t, 0, all[0])
	require.Equal(t, 999, all[999])
}

func TestQueryEpsZeroMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(20))
	boxes := randomBoxes(rng, 800, 0.02)
	var tree Tree
	var brute BruteForce
	require.NoError(t, tree.Build(boxes))
	require.NoError(t, brute.Build(boxes))

	for i := 0; i < 200; i++ {
		q := torus.Box{Center: torus.Vec2{rng.Float32(), rng.Float32()}, Radii: torus.Vec2{0.03, 0.03}}
		var got, want []int
		tree.QueryEps(q, 0, func(j int) { got = append(got, j) })
		brute.QueryEps(q, 0, func(j int) { want = append(want, j) })
		slices.Sort(got)
		require.Equal(t, want, got)
	}
}

// 1,000 boxes of radius 0.01, each queried against the index: the total
// number of matches equals the brute-force total.
func TestUniformPopulationOverlapTotals(t *testing.T) {
	rng := rand.New(rand.NewSource(0x12345678))
	pop := make([]torus.Box, 1000)
	for i := range pop {
		pop[i] = torus.Box{
			Center: torus.Vec2{rng.Float32(), rng.Float32()},
			Radii:  torus.Vec2{0.01, 0.01},
		}
	}

	var tree Tree
	var brute BruteForce
	require.NoError(t, tree.Build(pop))
	require.NoError(t, brute.Build(pop))

	treeTotal, bruteTotal := 0, 0
	for _, b := range pop {
		tree.Query(b, func(int) { treeTotal++ })
		brute.Query(b, func(int) { bruteTotal++ })
	}
	require.Equal(t, bruteTotal, treeTotal)
	require.GreaterOrEqual(t, treeTotal, len(pop))
}

func BenchmarkBuild1000(b *testing.B)  { benchmarkBuild(b, 1000) }
func BenchmarkBuild40000(b *testing.B) { benchmarkBuild(b, 40000) }

func benchmarkBuild(b *testing.B, n int) {
	rng := rand.New(rand.NewSource(1))
	boxes := randomBoxes(rng, n, 0.01)
	tree := NewTree(n)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if err := tree.Build(boxes); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkQueryRoundTree(b *testing.B)  { benchmarkQueryRound(b, &Tree{}) }
func BenchmarkQueryRoundBrute(b *testing.B) { benchmarkQueryRound(b, &BruteForce{}) }

func benchmarkQueryRound(b *testing.B, idx Index) {
	rng := rand.New(rand.NewSource(1))
	boxes := randomBoxes(rng, 1000, 0.01)
	if err := idx.Build(boxes); err != nil {
		b.Fatal(err)
	}
	overlaps := 0

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		for _, q := range boxes {
			idx.Query(q, func(int) { overlaps++ })
		}
	}
	b.ReportMetric(float64(overlaps)/float64(b.N), "overlaps/op")
}
