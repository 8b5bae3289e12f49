// Package config provides centralized configuration management.
// This is the single source of truth for simulation, index and server settings.
//
// Every section has a DefaultX constructor and, where it makes sense,
// an XFromEnv variant that applies environment overrides on top.
package config

import (
	"os"
	"strconv"
)

// =============================================================================
// SIMULATION CONFIGURATION
// =============================================================================

// SimConfig holds the predator/prey model parameters.
// Step lengths and the search radius are expressed in grid cells.
type SimConfig struct {
	Seed     int64   // RNG seed; 0 picks one from the clock
	NPrey    int     // Initial prey population
	NPred    int     // Initial predator population
	GridSize int     // Resource grid is GridSize x GridSize cells
	GrowBack float64 // Resource regrowth per tick, capped at 1
	PreyStep float64 // Prey random walk step (cells)
	PredStep float64 // Predator random walk step (cells)
	PredSR   float64 // Predator search radius (cells)
	TickRate int     // Engine ticks per second
}

// DefaultSim returns the default simulation configuration.
func DefaultSim() SimConfig {
	return SimConfig{
		Seed:     0,
		NPrey:    40000,
		NPred:    4000,
		GridSize: 200,
		GrowBack: 0.01,
		PreyStep: 1.0,
		PredStep: 1.5,
		PredSR:   0.5,
		TickRate: 10,
	}
}

// SimFromEnv returns simulation configuration with environment variable overrides.
func SimFromEnv() SimConfig {
	cfg := DefaultSim()

	if s := getEnvInt64("SIM_SEED", 0); s != 0 {
		cfg.Seed = s
	}
	if n := getEnvInt("SIM_PREY", 0); n > 0 {
		cfg.NPrey = n
	}
	if n := getEnvInt("SIM_PRED", 0); n > 0 {
		cfg.NPred = n
	}
	if gs := getEnvInt("SIM_GRID", 0); gs > 0 {
		cfg.GridSize = gs
	}
	if g := getEnvFloat("SIM_GROW_BACK", -1); g >= 0 {
		cfg.GrowBack = g
	}
	if s := getEnvFloat("SIM_PREY_STEP", -1); s >= 0 {
		cfg.PreyStep = s
	}
	if s := getEnvFloat("SIM_PRED_STEP", -1); s >= 0 {
		cfg.PredStep = s
	}
	if r := getEnvFloat("SIM_PRED_SR", -1); r >= 0 {
		cfg.PredSR = r
	}
	if tr := getEnvInt("SIM_TICK_RATE", 0); tr > 0 {
		cfg.TickRate = tr
	}

	return cfg
}

// =============================================================================
// INDEX CONFIGURATION
// =============================================================================

// IndexConfig sizes the spatial index buffers and the benchmark workload.
type IndexConfig struct {
	Capacity     int     // Pre-allocated entries per tree
	BenchBoxes   int     // Boxes per benchmark generation
	BenchRadius  float64 // Box half-extent in the benchmark
	BenchGens    int     // Benchmark generations
	BenchAdvect  float64 // Max per-axis displacement between generations
	BenchRepeats int     // Timed build+query rounds per generation
}

// DefaultIndex returns the default index configuration.
func DefaultIndex() IndexConfig {
	return IndexConfig{
		Capacity:     40000,
		BenchBoxes:   1000,
		BenchRadius:  0.01,
		BenchGens:    10,
		BenchAdvect:  0.001,
		BenchRepeats: 20,
	}
}

// IndexFromEnv returns index configuration with environment variable overrides.
func IndexFromEnv() IndexConfig {
	cfg := DefaultIndex()

	if c := getEnvInt("INDEX_CAPACITY", 0); c > 0 {
		cfg.Capacity = c
	}
	if n := getEnvInt("BENCH_BOXES", 0); n > 0 {
		cfg.BenchBoxes = n
	}
	if r := getEnvFloat("BENCH_RADIUS", -1); r >= 0 {
		cfg.BenchRadius = r
	}
	if g := getEnvInt("BENCH_GENERATIONS", 0); g > 0 {
		cfg.BenchGens = g
	}
	if a := getEnvFloat("BENCH_ADVECT", -1); a >= 0 {
		cfg.BenchAdvect = a
	}
	if r := getEnvInt("BENCH_REPEATS", 0); r > 0 {
		cfg.BenchRepeats = r
	}

	return cfg
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           int
	DebugAddr      string   // Localhost-only metrics/pprof listener
	RateLimit      float64  // Requests per second per IP
	RateBurst      int      // Burst per IP
	AllowedOrigins []string // CORS origins
	AdminToken     string   // Bearer token for mutating endpoints; empty disables the check
	EventLogPath   string   // JSONL event log; empty keeps events in memory
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:           3000,
		DebugAddr:      "127.0.0.1:6060",
		RateLimit:      20,
		RateBurst:      40,
		AllowedOrigins: []string{"*"},
		EventLogPath:   "events.jsonl",
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if a := os.Getenv("DEBUG_ADDR"); a != "" {
		cfg.DebugAddr = a
	}
	if r := getEnvFloat("RATE_LIMIT", 0); r > 0 {
		cfg.RateLimit = r
	}
	if b := getEnvInt("RATE_BURST", 0); b > 0 {
		cfg.RateBurst = b
	}
	if o := os.Getenv("ALLOWED_ORIGIN"); o != "" {
		cfg.AllowedOrigins = []string{o}
	}
	cfg.AdminToken = os.Getenv("ADMIN_TOKEN")
	if p, ok := os.LookupEnv("EVENT_LOG_PATH"); ok {
		cfg.EventLogPath = p
	}

	return cfg
}

// =============================================================================
// RENDER CONFIGURATION
// =============================================================================

// RenderConfig controls the PNG frame renderer.
type RenderConfig struct {
	Size     int  // Square frame edge in pixels
	MaxPrey  int  // Prey drawn per frame
	MaxPred  int  // Predators drawn per frame
	ShowGrid bool // Shade resource cells
}

// DefaultRender returns the default render configuration.
func DefaultRender() RenderConfig {
	return RenderConfig{
		Size:     800,
		MaxPrey:  20000,
		MaxPred:  4000,
		ShowGrid: true,
	}
}

// RenderFromEnv returns render configuration with environment variable overrides.
func RenderFromEnv() RenderConfig {
	cfg := DefaultRender()

	if s := getEnvInt("FRAME_SIZE", 0); s > 0 {
		cfg.Size = s
	}
	if os.Getenv("FRAME_GRID") == "false" {
		cfg.ShowGrid = false
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Sim    SimConfig
	Index  IndexConfig
	Server ServerConfig
	Render RenderConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Sim:    SimFromEnv(),
		Index:  IndexFromEnv(),
		Server: ServerFromEnv(),
		Render: RenderFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
