// Package sim runs a predator/prey model on the unit torus.
//
// Each step grows the resource grid back, moves every critter by a random
// walk, rebuilds one Hilbert R-tree per population and then lets prey graze
// and predators hunt by querying those trees. Prey caught in a step are
// removed at its end; the run is over once no prey are left.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"slices"
	"sync"
	"time"

	"pred-prey/internal/config"
	"pred-prey/internal/hrtree"
	"pred-prey/internal/torus"
)

// ErrInvalidParam is returned for parameter sets the model cannot run.
var ErrInvalidParam = errors.New("sim: invalid parameter")

// Param holds model parameters. Steps and the search radius are in grid cells.
type Param struct {
	NPrey    int
	NPred    int
	GridSize int
	GrowBack float32
	PreyStep float32
	PredStep float32
	PredSR   float32
}

// ParamFromConfig converts the configuration section into model parameters.
func ParamFromConfig(cfg config.SimConfig) Param {
	return Param{
		NPrey:    cfg.NPrey,
		NPred:    cfg.NPred,
		GridSize: cfg.GridSize,
		GrowBack: float32(cfg.GrowBack),
		PreyStep: float32(cfg.PreyStep),
		PredStep: float32(cfg.PredStep),
		PredSR:   float32(cfg.PredSR),
	}
}

func (p Param) validate() error {
	switch {
	case p.NPrey < 0 || p.NPred < 0:
		return fmt.Errorf("%w: negative population", ErrInvalidParam)
	case p.GridSize < 1:
		return fmt.Errorf("%w: grid size %d", ErrInvalidParam, p.GridSize)
	case p.GrowBack < 0 || p.PreyStep < 0 || p.PredStep < 0 || p.PredSR < 0:
		return fmt.Errorf("%w: negative rate or length", ErrInvalidParam)
	}
	return nil
}

// Prey is a grazer. Uptake accumulates eaten resource; -1 marks a caught prey.
type Prey struct {
	Pos    torus.Vec2
	Uptake float64
}

// Dead reports whether the prey was caught this step.
func (p *Prey) Dead() bool { return p.Uptake < 0 }

// Pred is a hunter; Zone is its position with the search radius as box radii.
type Pred struct {
	Zone    torus.Box
	Catches int
}

// StepStats summarizes a single step.
type StepStats struct {
	Tick      uint64        `json:"tick"`
	Prey      int           `json:"prey"`
	Pred      int           `json:"pred"`
	Caught    int           `json:"caught"`
	Catches   int           `json:"catches"`
	Overlaps  int           `json:"overlaps"`
	Resource  float64       `json:"resource"`
	BuildTime time.Duration `json:"buildNs"`
	QueryTime time.Duration `json:"queryNs"`
}

// Simulation is a single predator/prey run. It is not safe for concurrent use.
type Simulation struct {
	param Param
	rng   *rand.Rand

	grid *torus.Grid[float32]
	prey []Prey
	pred []Pred

	preyTree *hrtree.Tree
	predTree *hrtree.Tree

	tick    uint64
	catches int
}

// New scatters the populations uniformly over the torus using rng.
func New(param Param, rng *rand.Rand) (*Simulation, error) {
	if err := param.validate(); err != nil {
		return nil, err
	}
	s := &Simulation{
		param:    param,
		rng:      rng,
		grid:     torus.NewGrid[float32](param.GridSize, 0),
		prey:     make([]Prey, param.NPrey),
		pred:     make([]Pred, param.NPred),
		preyTree: hrtree.NewTree(param.NPrey),
		predTree: hrtree.NewTree(param.NPred),
	}

	for i := range s.prey {
		s.prey[i].Pos = s.randomPoint()
	}
	sr := s.cells(param.PredSR)
	for i := range s.pred {
		s.pred[i].Zone = torus.Box{Center: s.randomPoint(), Radii: torus.Vec2{sr, sr}}
	}
	return s, nil
}

// cells converts a length in grid cells to torus units.
func (s *Simulation) cells(n float32) float32 {
	return n / float32(s.grid.Size())
}

func (s *Simulation) randomPoint() torus.Vec2 {
	return torus.Wrap(torus.Vec2{s.rng.Float32(), s.rng.Float32()})
}

// Run steps until the prey are extinct or ctx is done and returns the
// number of completed steps.
func (s *Simulation) Run(ctx context.Context) (int, error) {
	steps := 0
	for len(s.prey) > 0 {
		if err := ctx.Err(); err != nil {
			return steps, err
		}
		if _, err := s.Step(); err != nil {
			return steps, err
		}
		steps++
	}
	return steps, nil
}

// Step advances the model by one tick.
func (s *Simulation) Step() (StepStats, error) {
	s.tick++
	s.growBack()
	s.randomWalks()

	start := time.Now()
	if err := s.buildTrees(); err != nil {
		return StepStats{}, err
	}
	built := time.Now()

	s.graze()
	caught, overlaps := s.hunt()
	queried := time.Now()

	s.prey = slices.DeleteFunc(s.prey, func(p Prey) bool { return p.Dead() })

	st := s.Stats()
	st.Caught = caught
	st.Overlaps = overlaps
	st.BuildTime = built.Sub(start)
	st.QueryTime = queried.Sub(built)
	return st, nil
}

// Stats reports population counts for the current state.
func (s *Simulation) Stats() StepStats {
	var res float64
	for _, c := range s.grid.Cells() {
		res += float64(c)
	}
	return StepStats{
		Tick:     s.tick,
		Prey:     len(s.prey),
		Pred:     len(s.pred),
		Catches:  s.catches,
		Resource: res,
	}
}

func (s *Simulation) growBack() {
	cells := s.grid.Cells()
	for i, c := range cells {
		cells[i] = min(1, c+s.param.GrowBack)
	}
}

func (s *Simulation) heading() torus.Vec2 {
	sin, cos := math.Sincos(2 * math.Pi * s.rng.Float64())
	return torus.Vec2{float32(cos), float32(sin)}
}

func (s *Simulation) randomWalks() {
	preyStep := s.cells(s.param.PreyStep)
	predStep := s.cells(s.param.PredStep)
	for i := range s.prey {
		p := &s.prey[i]
		p.Pos = torus.Wrap(p.Pos.Add(s.heading().Scale(preyStep)))
	}
	for i := range s.pred {
		z := &s.pred[i].Zone
		z.Center = torus.Wrap(z.Center.Add(s.heading().Scale(predStep)))
	}
}

func preyBox(p *Prey) torus.Box { return torus.PointBox(p.Pos) }
func predBox(p *Pred) torus.Box { return p.Zone }

// buildTrees rebuilds both indices concurrently; they share no buffers.
func (s *Simulation) buildTrees() error {
	var wg sync.WaitGroup
	var preyErr, predErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		preyErr = hrtree.BuildFrom(s.preyTree, s.prey, preyBox)
	}()
	go func() {
		defer wg.Done()
		predErr = hrtree.BuildFrom(s.predTree, s.pred, predBox)
	}()
	wg.Wait()
	if err := errors.Join(preyErr, predErr); err != nil {
		return fmt.Errorf("build trees: %w", err)
	}
	return nil
}

// graze shares each cell's resource equally between the prey standing on it
// and empties the cell.
func (s *Simulation) graze() {
	for i := range s.prey {
		pos := s.prey[i].Pos
		cell := s.grid.Index(pos)
		onCell := 0
		s.preyTree.Query(s.grid.Pixel(pos), func(j int) {
			// the cell box is inflated by eps; neighbours on the border don't count
			if s.grid.Index(s.prey[j].Pos) == cell {
				onCell++
			}
		})
		s.prey[i].Uptake += float64(s.grid.Cells()[cell]) / float64(max(onCell, 1))
	}
	for i := range s.prey {
		s.grid.Set(s.prey[i].Pos, 0)
	}
}

// hunt lets the closest predator within its search radius catch each prey.
func (s *Simulation) hunt() (caught, overlaps int) {
	for i := range s.prey {
		pos := s.prey[i].Pos
		best := float32(math.Inf(1))
		winner := -1
		s.predTree.Query(torus.PointBox(pos), func(j int) {
			overlaps++
			z := s.pred[j].Zone
			dd := torus.Distance2(pos, z.Center)
			if dd < z.Radii[0]*z.Radii[0] && dd < best {
				best = dd
				winner = j
			}
		})
		if winner >= 0 {
			s.prey[i].Uptake = -1
			s.pred[winner].Catches++
			s.catches++
			caught++
		}
	}
	return caught, overlaps
}

// Tick returns the number of completed steps.
func (s *Simulation) Tick() uint64 { return s.tick }

// Param returns the parameters the run was created with.
func (s *Simulation) Param() Param { return s.param }

// Prey returns the live prey. The slice is owned by the simulation.
func (s *Simulation) Prey() []Prey { return s.prey }

// Pred returns the predators. The slice is owned by the simulation.
func (s *Simulation) Pred() []Pred { return s.pred }

// Grid returns the resource grid.
func (s *Simulation) Grid() *torus.Grid[float32] { return s.grid }

// Extinct reports whether all prey are gone.
func (s *Simulation) Extinct() bool { return len(s.prey) == 0 }
