package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pred-prey/internal/config"
	"pred-prey/internal/sim"
	"pred-prey/internal/torus"
)

func testSnapshot() *sim.Snapshot {
	return &sim.Snapshot{
		Sequence:   1,
		Prey:       []torus.Vec2{{0.25, 0.6}, {0.75, 0.6}},
		Pred:       []torus.Vec2{{0.5, 0.75}, {0.001, 0.5}},
		PredRadius: 0.05,
		Resource:   []float32{1, 0, 0, 0.5},
		GridSize:   2,
		Stats:      sim.StepStats{Tick: 3, Prey: 2, Pred: 2},
	}
}

func rgbaAt(img *image.RGBA, x, y int) color.RGBA {
	return img.RGBAAt(x, y)
}

func TestWritePNG(t *testing.T) {
	cfg := config.DefaultRender()
	cfg.Size = 128
	r := New(cfg)

	var buf bytes.Buffer
	require.NoError(t, r.WritePNG(&buf, testSnapshot()))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 128, 128), img.Bounds())
}

func TestRenderContent(t *testing.T) {
	cfg := config.DefaultRender()
	cfg.Size = 200
	cfg.ShowGrid = false
	r := New(cfg)

	img := r.Render(testSnapshot())

	assert.Equal(t, colorPrey, rgbaAt(img, 50, 120), "prey dot")
	assert.Equal(t, colorPred, rgbaAt(img, 100, 150), "predator dot")

	// the predator at x=0.001 reappears on the right edge
	assert.Equal(t, colorPred, rgbaAt(img, 199, 100), "seam copy")

	full := rgbaAt(img, 20, 80)
	empty := rgbaAt(img, 20, 180)
	assert.Equal(t, colorBackground, empty, "cell without resource keeps the background")
	assert.Greater(t, full.G, empty.G, "grass shading")
}

func TestRenderCaps(t *testing.T) {
	cfg := config.DefaultRender()
	cfg.Size = 100
	cfg.MaxPrey = 1
	cfg.ShowGrid = false
	r := New(cfg)

	img := r.Render(testSnapshot())
	assert.Equal(t, colorPrey, rgbaAt(img, 25, 60))
	assert.NotEqual(t, colorPrey, rgbaAt(img, 75, 60), "second prey is over the cap")
}

func TestRenderEmptySnapshot(t *testing.T) {
	r := New(config.RenderConfig{Size: 10})
	assert.Equal(t, 64, r.Size())

	var buf bytes.Buffer
	require.NoError(t, r.WritePNG(&buf, &sim.Snapshot{}))
}

func TestWritePNGConcurrent(t *testing.T) {
	cfg := config.DefaultRender()
	cfg.Size = 96
	r := New(cfg)
	snap := testSnapshot()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var buf bytes.Buffer
			errs <- r.WritePNG(&buf, snap)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestPixelsWrapped(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	px := newPixels(img)

	var got [][2]int
	px.wrapped(1, 5, 2, func(x, y int) { got = append(got, [2]int{x, y}) })
	assert.ElementsMatch(t, [][2]int{{1, 5}, {11, 5}}, got)

	got = got[:0]
	px.wrapped(9, 0, 1, func(x, y int) { got = append(got, [2]int{x, y}) })
	assert.ElementsMatch(t, [][2]int{{9, 0}, {-1, 0}, {9, 10}, {-1, 10}}, got)
}
