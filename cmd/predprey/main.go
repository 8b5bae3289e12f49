// predprey runs one simulation headless until the prey are extinct and
// reports how long that took.
//
// USAGE:
//
//	SIM_SEED=42 go run ./cmd/predprey
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"pred-prey/internal/config"
	"pred-prey/internal/sim"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("💡 No .env file found, using environment variables only")
	}

	cfg := config.SimFromEnv()
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	s, err := sim.New(sim.ParamFromConfig(cfg), rand.New(rand.NewSource(seed)))
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	log.Printf("🐇 %d prey, %d predators, grid %d, seed %d", cfg.NPrey, cfg.NPred, cfg.GridSize, seed)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	steps, err := s.Run(ctx)
	elapsed := time.Since(start).Seconds()
	switch {
	case errors.Is(err, context.Canceled):
		fmt.Printf("interrupted after %d steps (%g s), %d prey left\n", steps, elapsed, len(s.Prey()))
		stop()
		os.Exit(130)
	case err != nil:
		log.Fatalf("❌ step %d: %v", steps, err)
	}
	fmt.Printf("prey went extinct after %d steps (%g s)\n", steps, elapsed)
}
