package api

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"pred-prey/internal/config"
)

// Server is the HTTP API server with WebSocket support.
type Server struct {
	engine      EngineInterface
	router      *chi.Mux
	wsHub       *WebSocketHub
	rateLimiter *IPRateLimiter
	httpServer  *http.Server
}

// NewServer wires the router and the WebSocket hub.
//
// Background workers do not start until Start is called, so tests can
// construct a Server and use Router() without goroutines or listeners.
func NewServer(engine EngineInterface, renderer FrameRenderer, simCfg config.SimConfig, srvCfg config.ServerConfig) *Server {
	s := &Server{
		engine:      engine,
		wsHub:       NewWebSocketHub(srvCfg.AllowedOrigins),
		rateLimiter: NewIPRateLimiter(RateLimitFromConfig(srvCfg)),
	}

	s.router = NewRouter(RouterConfig{
		Engine:      engine,
		Renderer:    renderer,
		SimDefaults: simCfg,
		RateLimiter: s.rateLimiter,
		CORSOrigins: srvCfg.AllowedOrigins,
		Auth:        NewAdminAuth(srvCfg.AdminToken),
	})

	// WebSocket route needs the hub instance
	s.router.Get("/ws", s.wsHub.HandleWebSocket)
	ExportLimiterMetrics(s.rateLimiter, s.wsHub.wsLimiter)

	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start starts the background workers and serves addr until Shutdown.
func (s *Server) Start(addr string) error {
	go s.wsHub.Run()
	s.wsHub.StartBroadcastLoop(s.engine, BroadcastInterval)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	log.Printf("🌐 API server starting on %s", addr)
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Router returns the HTTP handler for use with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *WebSocketHub {
	return s.wsHub
}

// Shutdown stops accepting requests and stops background workers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.rateLimiter.Stop()
	s.wsHub.Stop()
	return s.httpServer.Shutdown(ctx)
}
