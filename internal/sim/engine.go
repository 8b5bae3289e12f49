package sim

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"pred-prey/internal/config"
	"pred-prey/internal/hrtree"
	"pred-prey/internal/torus"
)

// Population selects which critters an index query runs against.
type Population string

const (
	PopPrey Population = "prey"
	PopPred Population = "pred"
)

// ErrUnknownPopulation is returned by ParsePopulation.
var ErrUnknownPopulation = errors.New("sim: unknown population")

// ParsePopulation maps a query parameter to a Population.
func ParsePopulation(s string) (Population, error) {
	switch Population(s) {
	case PopPrey, "":
		return PopPrey, nil
	case PopPred:
		return PopPred, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPopulation, s)
}

// Engine drives a Simulation at a fixed tick rate and publishes snapshots.
type Engine struct {
	mu      sync.RWMutex
	sim     *Simulation
	seed    int64
	runID   string
	started time.Time
	last    StepStats

	// query trees are rebuilt lazily from the current positions,
	// the step trees still index prey removed at the end of the step
	queryMu   sync.Mutex
	queryTree map[Population]*hrtree.Tree
	queryTick map[Population]uint64

	tickRate int
	running  bool
	ticker   *time.Ticker
	stopChan chan struct{}

	snapshots *SnapshotStore
	eventLog  *EventLog

	// OnTick is called after every step, outside the engine lock.
	OnTick func(StepStats)
	// OnExtinct is called once per run when the last prey is caught.
	OnExtinct func(StepStats)
}

// NewEngine creates a stopped engine for cfg.
func NewEngine(cfg config.SimConfig) (*Engine, error) {
	e := &Engine{
		tickRate:  max(cfg.TickRate, 1),
		snapshots: NewSnapshotStore(),
		eventLog:  NewEventLog(),
		queryTree: make(map[Population]*hrtree.Tree),
		queryTick: make(map[Population]uint64),
	}
	if err := e.reset(cfg); err != nil {
		return nil, err
	}
	return e, nil
}

// reset replaces the simulation. Callers hold e.mu or own e exclusively.
func (e *Engine) reset(cfg config.SimConfig) error {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	param := ParamFromConfig(cfg)
	s, err := New(param, rand.New(rand.NewSource(seed)))
	if err != nil {
		return err
	}

	e.sim = s
	e.seed = seed
	e.runID = uuid.NewString()
	e.started = time.Now()
	e.last = s.Stats()
	e.produceSnapshot()

	e.queryMu.Lock()
	clear(e.queryTick)
	e.queryMu.Unlock()

	e.eventLog.EmitSimple(EventTypeStart, 0, e.runID, StartPayload{Seed: seed, Param: param})
	log.Printf("🐇 Run %s: %d prey, %d predators, grid %d, seed %d",
		e.runID, param.NPrey, param.NPred, param.GridSize, seed)
	return nil
}

// Reset replaces the running simulation with a fresh one built from cfg.
func (e *Engine) Reset(cfg config.SimConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	prev := e.runID
	if err := e.reset(cfg); err != nil {
		return err
	}
	e.eventLog.EmitSimple(EventTypeReset, 0, e.runID, map[string]string{"previous": prev})
	return nil
}

// Start begins the tick loop.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.stopChan = make(chan struct{})
	e.ticker = time.NewTicker(time.Second / time.Duration(e.tickRate))
	ticker, stop := e.ticker, e.stopChan
	e.mu.Unlock()

	go func() {
		for {
			select {
			case <-ticker.C:
				e.tick()
			case <-stop:
				return
			}
		}
	}()

	log.Printf("🎮 Simulation engine started at %d TPS", e.tickRate)
}

// Stop stops the tick loop. It is safe to call more than once.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}

	e.running = false
	e.ticker.Stop()
	close(e.stopChan)
	log.Println("🛑 Simulation engine stopped")
}

// Step runs a single tick synchronously.
func (e *Engine) Step() (StepStats, error) {
	return e.tick()
}

func (e *Engine) tick() (StepStats, error) {
	e.mu.Lock()
	if e.sim.Extinct() {
		st := e.last
		e.mu.Unlock()
		return st, nil
	}

	st, err := e.sim.Step()
	if err != nil {
		e.mu.Unlock()
		log.Printf("⚠️ Step failed: %v", err)
		return st, err
	}
	e.last = st
	e.produceSnapshot()
	runID := e.runID
	extinct := e.sim.Extinct()
	elapsed := time.Since(e.started)
	e.mu.Unlock()

	e.eventLog.EmitSimple(EventTypeTick, st.Tick, runID, st)
	if e.OnTick != nil {
		e.OnTick(st)
	}
	if extinct {
		e.eventLog.EmitSimple(EventTypeExtinct, st.Tick, runID, ExtinctPayload{
			Steps:   st.Tick,
			Catches: st.Catches,
			Elapsed: elapsed.Nanoseconds(),
		})
		log.Printf("💀 Prey went extinct after %d steps (%.2f s)", st.Tick, elapsed.Seconds())
		if e.OnExtinct != nil {
			e.OnExtinct(st)
		}
	}
	return st, nil
}

// produceSnapshot publishes the current state. Callers hold e.mu.
func (e *Engine) produceSnapshot() {
	snap := newSnapshot(e.sim)
	snap.RunID = e.runID
	snap.Seed = e.seed
	snap.Stats = e.last
	e.snapshots.Publish(snap)
}

// Snapshot returns the latest published snapshot without locking.
// The returned value is never modified by later ticks.
func (e *Engine) Snapshot() *Snapshot {
	return e.snapshots.Load()
}

// Stats returns the summary of the last step.
func (e *Engine) Stats() StepStats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.last
}

// RunID identifies the current run.
func (e *Engine) RunID() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.runID
}

// Running reports whether the tick loop is active.
func (e *Engine) Running() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}

// Query returns the indices, in the latest snapshot, of the critters of pop
// whose box overlaps q. Prey are points; predators are their search boxes.
func (e *Engine) Query(pop Population, q torus.Box) ([]int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	e.queryMu.Lock()
	defer e.queryMu.Unlock()

	tree, ok := e.queryTree[pop]
	if !ok {
		tree = hrtree.NewTree(0)
		e.queryTree[pop] = tree
	}
	if last, built := e.queryTick[pop]; !built || last != e.sim.Tick() {
		var err error
		switch pop {
		case PopPrey:
			err = hrtree.BuildFrom(tree, e.sim.Prey(), preyBox)
		case PopPred:
			err = hrtree.BuildFrom(tree, e.sim.Pred(), predBox)
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownPopulation, pop)
		}
		if err != nil {
			return nil, err
		}
		e.queryTick[pop] = e.sim.Tick()
	}

	hits := make([]int, 0, 16)
	for i := range tree.Overlaps(q) {
		hits = append(hits, i)
	}
	return hits, nil
}

// StartEventLog starts writing events to path.
func (e *Engine) StartEventLog(path string) error {
	return e.eventLog.Start(path)
}

// StopEventLog flushes and closes the event log.
func (e *Engine) StopEventLog() {
	e.eventLog.Stop()
}

// EventLog returns the engine's event log.
func (e *Engine) EventLog() *EventLog { return e.eventLog }
