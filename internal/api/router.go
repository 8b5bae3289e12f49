package api

import (
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"pred-prey/internal/config"
	"pred-prey/internal/sim"
	"pred-prey/internal/torus"
)

// EngineInterface defines the simulation engine methods used by the API.
// Keep this minimal so tests can stub it.
type EngineInterface interface {
	// Snapshot returns the latest lock-free snapshot
	Snapshot() *sim.Snapshot
	// Query runs an index query against the population's current positions
	Query(pop sim.Population, q torus.Box) ([]int, error)
	// Reset replaces the run with one built from cfg
	Reset(cfg config.SimConfig) error
}

// FrameRenderer draws a snapshot as PNG.
type FrameRenderer interface {
	WritePNG(w io.Writer, snap *sim.Snapshot) error
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
//
// Example usage in tests:
//
//	router := api.NewRouter(api.RouterConfig{
//	    Engine:          engine,
//	    RateLimitConfig: &api.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
//	    DisableLogging:  true,
//	})
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Engine is the simulation engine (required)
	Engine EngineInterface

	// Renderer serves /api/frame.png; nil answers 404
	Renderer FrameRenderer

	// SimDefaults is the base configuration that reset requests patch
	SimDefaults config.SimConfig

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one is created from RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is only used if RateLimiter is nil.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins defaults to local development origins.
	CORSOrigins []string

	// Auth guards mutating endpoints; nil disables the check.
	Auth *AdminAuth

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool
}

type routerHandlers struct {
	engine      EngineInterface
	renderer    FrameRenderer
	simDefaults config.SimConfig
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// It is pure: no goroutines besides the rate limiter cleanup, no listeners.
// Safe to use with httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	// Rate limiting before CORS to reject early
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = defaultOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))

	h := &routerHandlers{
		engine:      cfg.Engine,
		renderer:    cfg.Renderer,
		simDefaults: cfg.SimDefaults,
	}
	auth := cfg.Auth
	if auth == nil {
		auth = &AdminAuth{}
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", h.handleGetStats)
		r.Get("/snapshot", h.handleGetSnapshot)
		r.Get("/query", h.handleQuery)
		r.Get("/frame.png", h.handleFrame)

		r.With(auth.Middleware).Post("/sim/reset", h.handleReset)
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/api/stats", http.StatusFound)
	})

	return r
}

var defaultOrigins = []string{
	"http://localhost:*",
	"http://127.0.0.1:*",
}

// metricsMiddleware records latency per route pattern.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		endpoint := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				endpoint = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		RecordRequest(r.Method, endpoint, status, time.Since(start))
	})
}
