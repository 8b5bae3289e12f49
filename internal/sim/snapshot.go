package sim

import (
	"sync/atomic"
	"time"

	"pred-prey/internal/torus"
)

// Snapshot is a copy of the model state for readers outside the tick loop
// (HTTP handlers, the renderer, the stats broadcaster). A published
// snapshot is never written again; readers may hold it as long as they like.
type Snapshot struct {
	Sequence  uint64    // Monotonic sequence, 0 means nothing published yet
	Timestamp time.Time // When the snapshot was produced
	RunID     string    // Identifies the run across resets
	Seed      int64     // Seed the run was started with

	Prey       []torus.Vec2
	Pred       []torus.Vec2
	PredRadius float32
	Resource   []float32 // Row-major GridSize x GridSize
	GridSize   int

	Stats StepStats
}

// SnapshotStore publishes a fresh snapshot per tick.
// Readers load the latest one without blocking the tick loop; superseded
// snapshots are left to the garbage collector once no reader holds them.
type SnapshotStore struct {
	latest   atomic.Pointer[Snapshot]
	sequence atomic.Uint64
}

var emptySnapshot = &Snapshot{}

// NewSnapshotStore creates a store with nothing published.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{}
}

// Publish stamps snap with the next sequence and makes it visible to
// readers. snap must not be modified afterwards.
func (p *SnapshotStore) Publish(snap *Snapshot) {
	snap.Sequence = p.sequence.Add(1)
	snap.Timestamp = time.Now()
	p.latest.Store(snap)
}

// Load returns the latest published snapshot.
// Its Sequence is 0 until the first Publish.
func (p *SnapshotStore) Load() *Snapshot {
	if snap := p.latest.Load(); snap != nil {
		return snap
	}
	return emptySnapshot
}

// newSnapshot copies the simulation state into freshly allocated slices.
func newSnapshot(s *Simulation) *Snapshot {
	snap := &Snapshot{
		Prey:       make([]torus.Vec2, len(s.prey)),
		Pred:       make([]torus.Vec2, len(s.pred)),
		PredRadius: s.cells(s.param.PredSR),
		Resource:   append([]float32(nil), s.grid.Cells()...),
		GridSize:   s.grid.Size(),
	}
	for i := range s.prey {
		snap.Prey[i] = s.prey[i].Pos
	}
	for i := range s.pred {
		snap.Pred[i] = s.pred[i].Zone.Center
	}
	return snap
}
