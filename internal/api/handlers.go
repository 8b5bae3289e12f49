package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"pred-prey/internal/config"
	"pred-prey/internal/sim"
	"pred-prey/internal/torus"
)

const (
	// MaxResetPopulation caps populations requested through the API
	MaxResetPopulation = 1_000_000

	// MaxResetGrid caps the grid size requested through the API
	MaxResetGrid = 2000

	// MaxQueryHits caps the indices returned by a single query
	MaxQueryHits = 10_000
)

var errNoSnapshot = errors.New("no snapshot published yet")

// latest returns the current snapshot or writes 503.
func (h *routerHandlers) latest(w http.ResponseWriter) (*sim.Snapshot, bool) {
	snap := h.engine.Snapshot()
	if snap == nil || snap.Sequence == 0 {
		writeError(w, errNoSnapshot.Error(), http.StatusServiceUnavailable)
		return nil, false
	}
	return snap, true
}

type statsResponse struct {
	RunID     string        `json:"runId"`
	Seed      int64         `json:"seed"`
	Sequence  uint64        `json:"sequence"`
	Timestamp time.Time     `json:"timestamp"`
	Stats     sim.StepStats `json:"stats"`
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.latest(w)
	if !ok {
		return
	}
	writeJSON(w, statsResponse{
		RunID:     snap.RunID,
		Seed:      snap.Seed,
		Sequence:  snap.Sequence,
		Timestamp: snap.Timestamp,
		Stats:     snap.Stats,
	})
}

type snapshotResponse struct {
	RunID      string       `json:"runId"`
	Tick       uint64       `json:"tick"`
	PredRadius float32      `json:"predRadius"`
	Prey       []torus.Vec2 `json:"prey"`
	Pred       []torus.Vec2 `json:"pred"`
}

func (h *routerHandlers) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.latest(w)
	if !ok {
		return
	}
	limit := -1
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	capped := func(s []torus.Vec2) []torus.Vec2 {
		if limit >= 0 && len(s) > limit {
			return s[:limit]
		}
		return s
	}
	writeJSON(w, snapshotResponse{
		RunID:      snap.RunID,
		Tick:       snap.Stats.Tick,
		PredRadius: snap.PredRadius,
		Prey:       capped(snap.Prey),
		Pred:       capped(snap.Pred),
	})
}

type queryResponse struct {
	Population sim.Population `json:"pop"`
	Box        torus.Box      `json:"box"`
	Count      int            `json:"count"`
	Truncated  bool           `json:"truncated,omitempty"`
	Indices    []int          `json:"indices"`
}

// parseCoord reads a finite float query parameter; missing means 0.
func parseCoord(r *http.Request, key string) (float32, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 32)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%s must be a finite number", key)
	}
	return float32(f), nil
}

func (h *routerHandlers) handleQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pop, err := sim.ParsePopulation(q.Get("pop"))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if q.Get("x") == "" || q.Get("y") == "" {
		writeError(w, "x and y are required", http.StatusBadRequest)
		return
	}

	var box torus.Box
	for i, key := range []string{"x", "y"} {
		if box.Center[i], err = parseCoord(r, key); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	if box.Radii[0], err = parseCoord(r, "r"); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if box.Radii[0] < 0 {
		writeError(w, "r must not be negative", http.StatusBadRequest)
		return
	}
	box.Radii[1] = box.Radii[0]
	box.Center = torus.Wrap(box.Center)

	start := time.Now()
	hits, err := h.engine.Query(pop, box)
	RecordQuery(time.Since(start))
	if err != nil {
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := queryResponse{Population: pop, Box: box, Count: len(hits), Indices: hits}
	if len(hits) > MaxQueryHits {
		resp.Indices = hits[:MaxQueryHits]
		resp.Truncated = true
	}
	writeJSON(w, resp)
}

func (h *routerHandlers) handleFrame(w http.ResponseWriter, r *http.Request) {
	if h.renderer == nil {
		writeError(w, "renderer disabled", http.StatusNotFound)
		return
	}
	snap, ok := h.latest(w)
	if !ok {
		return
	}
	start := time.Now()
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := h.renderer.WritePNG(w, snap); err != nil {
		log.Printf("❌ Frame render failed: %v", err)
		return
	}
	RecordRender(time.Since(start))
}

// resetRequest patches the default simulation config. Omitted fields keep
// their defaults.
type resetRequest struct {
	Seed     *int64   `json:"seed"`
	NPrey    *int     `json:"nPrey"`
	NPred    *int     `json:"nPred"`
	GridSize *int     `json:"gridSize"`
	GrowBack *float64 `json:"growBack"`
	PreyStep *float64 `json:"preyStep"`
	PredStep *float64 `json:"predStep"`
	PredSR   *float64 `json:"predSR"`
}

func (req resetRequest) apply(cfg config.SimConfig) (config.SimConfig, error) {
	set := func(dst *int, v *int, limit int, name string) error {
		if v == nil {
			return nil
		}
		if *v < 0 || *v > limit {
			return fmt.Errorf("%s must be within [0, %d]", name, limit)
		}
		*dst = *v
		return nil
	}
	if err := set(&cfg.NPrey, req.NPrey, MaxResetPopulation, "nPrey"); err != nil {
		return cfg, err
	}
	if err := set(&cfg.NPred, req.NPred, MaxResetPopulation, "nPred"); err != nil {
		return cfg, err
	}
	if err := set(&cfg.GridSize, req.GridSize, MaxResetGrid, "gridSize"); err != nil {
		return cfg, err
	}
	if req.Seed != nil {
		cfg.Seed = *req.Seed
	}
	for _, f := range []struct {
		dst *float64
		v   *float64
	}{
		{&cfg.GrowBack, req.GrowBack},
		{&cfg.PreyStep, req.PreyStep},
		{&cfg.PredStep, req.PredStep},
		{&cfg.PredSR, req.PredSR},
	} {
		if f.v != nil {
			*f.dst = *f.v
		}
	}
	return cfg, nil
}

func (h *routerHandlers) handleReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
			writeError(w, "Invalid request", http.StatusBadRequest)
			return
		}
	}
	cfg, err := req.apply(h.simDefaults)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	log.Println("🔄 Simulation reset requested via API")
	if err := h.engine.Reset(cfg); err != nil {
		if errors.Is(err, sim.ErrInvalidParam) {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Printf("❌ Reset failed: %v", err)
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	snap := h.engine.Snapshot()
	writeJSON(w, map[string]any{
		"success": true,
		"runId":   snap.RunID,
		"seed":    snap.Seed,
	})
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
