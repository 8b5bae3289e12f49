package api

import (
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pred-prey/internal/sim"
)

// Metrics with bounded cardinality (labels are route patterns and fixed names only)
var (
	// Simulation metrics
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sim_tick_duration_seconds",
		Help:    "Time spent in index build plus graze and hunt queries per step",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
	})

	buildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hrtree_build_duration_seconds",
		Help:    "Time spent rebuilding both population trees",
		Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05},
	})

	queryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hrtree_query_duration_seconds",
		Help:    "Time spent in tree queries",
		Buckets: []float64{0.00001, 0.0001, 0.001, 0.005, 0.01, 0.05, 0.1},
	}, []string{"source"}) // Bounded: "step", "api"

	renderDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "render_duration_seconds",
		Help:    "Time spent rendering a PNG frame",
		Buckets: []float64{0.005, 0.01, 0.02, 0.05, 0.1, 0.25},
	})

	population = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sim_population",
		Help: "Current population size",
	}, []string{"kind"}) // Bounded: "prey", "pred"

	resourceTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sim_resource_total",
		Help: "Resource left on the grid",
	})

	catchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sim_catches_total",
		Help: "Prey caught by predators",
	})

	overlapsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sim_hunt_overlaps_total",
		Help: "Predator search boxes reported by hunt queries",
	})

	// Event log metrics
	eventLogTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "event_log_events",
		Help: "Events accepted by the event log",
	})

	eventLogDropped = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "event_log_dropped",
		Help: "Events dropped due to rate limiting or buffer full",
	})

	// DoS detection metrics - use ONLY bounded label values
	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected by rate limiter or origin check",
	}, []string{"reason"}) // Bounded: "rate_limit", "origin", "unauthorized", "ws_total_limit", "ws_ip_limit"

	// HTTP metrics with bounded labels
	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"}) // endpoint is the route pattern, not the URL

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	// WebSocket metrics
	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_messages_total",
		Help: "Total WebSocket messages sent",
	})
)

// limiterSources holds the limiters of the serving Server; the counter
// funcs below read them at scrape time.
type limiterSources struct {
	http *IPRateLimiter
	ws   *WebSocketRateLimiter
}

var exportedLimiters atomic.Pointer[limiterSources]

var (
	_ = promauto.NewCounterFunc(prometheus.CounterOpts{
		Name: "http_rate_limit_allowed_total",
		Help: "Requests admitted by the per-IP rate limiter",
	}, func() float64 {
		if src := exportedLimiters.Load(); src != nil {
			return float64(src.http.GetStats().Allowed)
		}
		return 0
	})

	_ = promauto.NewCounterFunc(prometheus.CounterOpts{
		Name: "http_rate_limit_rejected_total",
		Help: "Requests refused by the per-IP rate limiter",
	}, func() float64 {
		if src := exportedLimiters.Load(); src != nil {
			return float64(src.http.GetStats().Rejected)
		}
		return 0
	})

	_ = promauto.NewCounterFunc(prometheus.CounterOpts{
		Name: "websocket_ip_limit_rejected_total",
		Help: "WebSocket connections refused by the per-IP cap",
	}, func() float64 {
		if src := exportedLimiters.Load(); src != nil {
			return float64(src.ws.Rejected())
		}
		return 0
	})
)

// ExportLimiterMetrics publishes the counters of rl and wsl on /metrics,
// replacing any previously exported limiters.
func ExportLimiterMetrics(rl *IPRateLimiter, wsl *WebSocketRateLimiter) {
	exportedLimiters.Store(&limiterSources{http: rl, ws: wsl})
}

// ObservabilityConfig configures the debug server
type ObservabilityConfig struct {
	Enabled       bool
	ListenAddr    string // Loopback only unless ALLOW_DEBUG_EXTERNAL=true
	BasicAuthUser string // Optional basic auth
	BasicAuthPass string
}

// DefaultObservabilityConfig returns safe defaults
func DefaultObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:6060",
	}
}

// isLoopback reports whether addr binds to a loopback host.
func isLoopback(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// DebugHandler returns the metrics, pprof and health endpoints.
func DebugHandler(cfg ObservabilityConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if cfg.BasicAuthUser != "" {
		return basicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass, mux)
	}
	return mux
}

// StartDebugServer starts the internal observability server.
// pprof must never be reachable from outside, so non-loopback addresses are
// replaced unless explicitly allowed.
func StartDebugServer(cfg ObservabilityConfig) error {
	if !cfg.Enabled {
		log.Println("📊 Debug server disabled")
		return nil
	}

	if !isLoopback(cfg.ListenAddr) && os.Getenv("ALLOW_DEBUG_EXTERNAL") != "true" {
		log.Println("⚠️ Debug server forced to localhost for security")
		cfg.ListenAddr = DefaultObservabilityConfig().ListenAddr
	}

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return err
	}

	go func() {
		log.Printf("📊 Debug server starting on %s", cfg.ListenAddr)
		log.Printf("   - pprof:   http://%s/debug/pprof/", cfg.ListenAddr)
		log.Printf("   - metrics: http://%s/metrics", cfg.ListenAddr)

		if err := http.Serve(ln, DebugHandler(cfg)); err != nil {
			log.Printf("⚠️ Debug server error: %v", err)
		}
	}()

	return nil
}

// basicAuthMiddleware adds basic authentication to the handler
func basicAuthMiddleware(user, pass string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != user || p != pass {
			w.Header().Set("WWW-Authenticate", `Basic realm="debug"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RecordStep records the metrics of one simulation step.
// It has the signature of sim.Engine.OnTick.
func RecordStep(st sim.StepStats) {
	tickDuration.Observe((st.BuildTime + st.QueryTime).Seconds())
	buildDuration.Observe(st.BuildTime.Seconds())
	queryDuration.WithLabelValues("step").Observe(st.QueryTime.Seconds())
	population.WithLabelValues("prey").Set(float64(st.Prey))
	population.WithLabelValues("pred").Set(float64(st.Pred))
	resourceTotal.Set(st.Resource)
	catchesTotal.Add(float64(st.Caught))
	overlapsTotal.Add(float64(st.Overlaps))
}

// RecordQuery records an API index query.
func RecordQuery(duration time.Duration) {
	queryDuration.WithLabelValues("api").Observe(duration.Seconds())
}

// RecordRender records render timing for metrics
func RecordRender(duration time.Duration) {
	renderDuration.Observe(duration.Seconds())
}

// UpdateEventLogStats mirrors the event log counters.
func UpdateEventLogStats(total, dropped uint64) {
	eventLogTotal.Set(float64(total))
	eventLogDropped.Set(float64(dropped))
}

// RecordConnectionRejected increments the rejection counter
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// RecordRequest records HTTP request metrics
func RecordRequest(method, endpoint string, status int, duration time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	requestTotal.WithLabelValues(method, endpoint, http.StatusText(status)).Inc()
}

// UpdateWSConnections updates WebSocket connection count
func UpdateWSConnections(count int) {
	wsConnectionsActive.Set(float64(count))
}

// IncrementWSMessages increments WebSocket message counter
func IncrementWSMessages() {
	wsMessagesTotal.Inc()
}
