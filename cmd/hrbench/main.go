// hrbench compares the Hilbert R-tree with the brute-force index on a
// population of small boxes drifting across the torus.
//
// USAGE:
//
//	go run ./cmd/hrbench
//
// BENCH_BOXES, BENCH_RADIUS, BENCH_GENERATIONS, BENCH_ADVECT and
// BENCH_REPEATS override the workload.
package main

import (
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/joho/godotenv"

	"pred-prey/internal/config"
	"pred-prey/internal/hrtree"
	"pred-prey/internal/torus"
)

const seed = 0x12345678

// result summarizes one index over all generations.
type result struct {
	name     string
	build    time.Duration // per build
	query    time.Duration // per query round
	overlaps int           // per generation
}

func (r result) String() string {
	return fmt.Sprintf("%s\n%d us per build\n%d us per query round\n%d overlaps per gen\n",
		r.name, r.build.Microseconds(), r.query.Microseconds(), r.overlaps)
}

// population scatters n boxes of the given radius uniformly over the torus.
func population(rng *rand.Rand, n int, radius float32) []torus.Box {
	boxes := make([]torus.Box, n)
	for i := range boxes {
		boxes[i] = torus.Box{
			Center: torus.Vec2{rng.Float32(), rng.Float32()},
			Radii:  torus.Vec2{radius, radius},
		}
	}
	return boxes
}

// advect moves every box by a uniform offset in [-d, d) per axis.
func advect(rng *rand.Rand, boxes []torus.Box, d float32) {
	for i := range boxes {
		off := torus.Vec2{(2*rng.Float32() - 1) * d, (2*rng.Float32() - 1) * d}
		boxes[i].Center = torus.Wrap(boxes[i].Center.Add(off))
	}
}

// run times cfg.BenchGens generations of build plus a query per box.
// Both indices see the same drift when started from the same rng state.
func run(name string, idx hrtree.Index, boxes []torus.Box, rng *rand.Rand, cfg config.IndexConfig) (result, error) {
	boxes = append([]torus.Box(nil), boxes...)
	repeats := max(cfg.BenchRepeats, 1)
	gens := max(cfg.BenchGens, 1)

	var build, query time.Duration
	overlaps := 0
	for g := 0; g < gens; g++ {
		advect(rng, boxes, float32(cfg.BenchAdvect))
		for r := 0; r < repeats; r++ {
			start := time.Now()
			if err := idx.Build(boxes); err != nil {
				return result{}, fmt.Errorf("%s: build generation %d: %w", name, g, err)
			}
			built := time.Now()
			n := 0
			for i := range boxes {
				idx.Query(boxes[i], func(int) { n++ })
			}
			query += time.Since(built)
			build += built.Sub(start)
			if r == 0 {
				overlaps += n
			}
		}
	}

	rounds := time.Duration(gens * repeats)
	return result{
		name:     name,
		build:    build / rounds,
		query:    query / rounds,
		overlaps: overlaps / gens,
	}, nil
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("💡 No .env file found, using environment variables only")
	}
	cfg := config.IndexFromEnv()
	log.Printf("📐 %d boxes, radius %g, %d generations, %d repeats",
		cfg.BenchBoxes, cfg.BenchRadius, cfg.BenchGens, cfg.BenchRepeats)

	boxes := population(rand.New(rand.NewSource(seed)), cfg.BenchBoxes, float32(cfg.BenchRadius))

	tree, err := run("hrtree", hrtree.NewTree(cfg.Capacity), boxes, rand.New(rand.NewSource(seed+1)), cfg)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	brute, err := run("brute force", &hrtree.BruteForce{}, boxes, rand.New(rand.NewSource(seed+1)), cfg)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	fmt.Println(tree)
	fmt.Println(brute)
	if tree.overlaps != brute.overlaps {
		log.Printf("❌ overlap mismatch: hrtree %d, brute force %d", tree.overlaps, brute.overlaps)
		os.Exit(1)
	}
}
