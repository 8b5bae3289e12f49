// Package render draws simulation snapshots as PNG frames.
package render

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"log"
	"sync"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"pred-prey/internal/config"
	"pred-prey/internal/sim"
)

var (
	colorBackground = color.RGBA{12, 12, 28, 255}
	colorGrass      = color.RGBA{46, 160, 67, 255}
	colorGridLine   = color.RGBA{30, 30, 45, 255}
	colorPrey       = color.RGBA{240, 240, 240, 255}
	colorPred       = color.RGBA{255, 72, 72, 255}
	colorPredZone   = color.RGBA{255, 72, 72, 90}
	colorPanel      = color.RGBA{0, 0, 0, 160}
)

// Renderer turns snapshots into square PNG frames. It is safe for
// concurrent use.
type Renderer struct {
	cfg    config.RenderConfig
	face   font.Face
	frames sync.Pool
	textMu sync.Mutex // font.Face is not safe for concurrent use
}

// New creates a renderer. Sizes below 64 pixels are raised to 64.
func New(cfg config.RenderConfig) *Renderer {
	cfg.Size = max(cfg.Size, 64)
	r := &Renderer{cfg: cfg, face: loadFace(14)}
	r.frames.New = func() any {
		return image.NewRGBA(image.Rect(0, 0, cfg.Size, cfg.Size))
	}
	return r
}

// loadFace parses the embedded Go font once at startup.
func loadFace(size float64) font.Face {
	parsed, err := opentype.Parse(goregular.TTF)
	if err != nil {
		log.Printf("⚠️ Failed to parse font, using fallback: %v", err)
		return basicfont.Face7x13
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		log.Printf("⚠️ Failed to create font face, using fallback: %v", err)
		return basicfont.Face7x13
	}
	return face
}

// Size returns the frame edge length in pixels.
func (r *Renderer) Size() int { return r.cfg.Size }

// Render draws snap into a new image.
func (r *Renderer) Render(snap *sim.Snapshot) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, r.cfg.Size, r.cfg.Size))
	r.draw(img, snap)
	return img
}

// WritePNG draws snap and encodes it to w.
func (r *Renderer) WritePNG(w io.Writer, snap *sim.Snapshot) error {
	img := r.frames.Get().(*image.RGBA)
	defer r.frames.Put(img)

	dc := r.draw(img, snap)
	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	return nil
}

func (r *Renderer) draw(img *image.RGBA, snap *sim.Snapshot) *gg.Context {
	px := newPixels(img)
	px.clear(colorBackground)

	r.drawResource(px, snap)
	dc := gg.NewContextForRGBA(img)
	if r.cfg.ShowGrid {
		r.drawGrid(dc, snap.GridSize)
	}
	r.drawPrey(px, snap)
	r.drawPredators(px, snap)
	r.drawHUD(dc, snap)
	return dc
}

// drawResource shades each grid cell by its resource level.
func (r *Renderer) drawResource(px *pixels, snap *sim.Snapshot) {
	gs := snap.GridSize
	if gs <= 0 || len(snap.Resource) != gs*gs {
		return
	}
	for i, level := range snap.Resource {
		if level <= 0 {
			continue
		}
		col, row := i%gs, i/gs
		x0, x1 := col*r.cfg.Size/gs, (col+1)*r.cfg.Size/gs
		y0, y1 := row*r.cfg.Size/gs, (row+1)*r.cfg.Size/gs
		c := colorGrass
		c.A = uint8(min(level, 1) * 200)
		px.fillRect(x0, y0, x1-x0, y1-y0, c)
	}
}

func (r *Renderer) drawGrid(dc *gg.Context, gs int) {
	// lines closer than 4 pixels only add noise
	if gs <= 0 || r.cfg.Size/gs < 4 {
		return
	}
	dc.SetColor(colorGridLine)
	dc.SetLineWidth(1)
	size := float64(r.cfg.Size)
	for i := 1; i < gs; i++ {
		v := float64(i) * size / float64(gs)
		dc.DrawLine(v, 0, v, size)
		dc.DrawLine(0, v, size, v)
	}
	dc.Stroke()
}

func (r *Renderer) toPixel(v float32) int {
	return int(v * float32(r.cfg.Size))
}

func (r *Renderer) drawPrey(px *pixels, snap *sim.Snapshot) {
	n := len(snap.Prey)
	if r.cfg.MaxPrey > 0 {
		n = min(n, r.cfg.MaxPrey)
	}
	for _, p := range snap.Prey[:n] {
		px.disc(r.toPixel(p[0]), r.toPixel(p[1]), 1, colorPrey)
	}
}

func (r *Renderer) drawPredators(px *pixels, snap *sim.Snapshot) {
	n := len(snap.Pred)
	if r.cfg.MaxPred > 0 {
		n = min(n, r.cfg.MaxPred)
	}
	radius := float64(snap.PredRadius) * float64(r.cfg.Size)
	reach := int(radius) + 2
	for _, p := range snap.Pred[:n] {
		px.wrapped(r.toPixel(p[0]), r.toPixel(p[1]), reach, func(x, y int) {
			if radius >= 3 {
				px.ring(x, y, radius, 1, colorPredZone)
			}
			px.disc(x, y, 2, colorPred)
		})
	}
}

func (r *Renderer) drawHUD(dc *gg.Context, snap *sim.Snapshot) {
	st := snap.Stats
	line := fmt.Sprintf("tick %d   prey %d   pred %d   catches %d", st.Tick, st.Prey, st.Pred, st.Catches)

	r.textMu.Lock()
	defer r.textMu.Unlock()

	dc.SetFontFace(r.face)
	w, h := dc.MeasureString(line)
	dc.SetColor(colorPanel)
	dc.DrawRoundedRectangle(6, 6, w+16, h+12, 4)
	dc.Fill()
	dc.SetColor(color.White)
	dc.DrawStringAnchored(line, 14, 12+h/2, 0, 0.5)
}
