// Package metrics exposes Prometheus metrics and a health endpoint for
// the chart server.
package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the chart server. Each
// instance carries its own registry so repeated construction (tests,
// embedded use) never trips duplicate registration.
type Metrics struct {
	Registry *prometheus.Registry

	// Indicator engine
	IndicatorComputeDur prometheus.Histogram
	IndicatorFailures   *prometheus.CounterVec // labels: config_id
	FramesBuilt         prometheus.Counter
	FrameBuildDur       prometheus.Histogram

	// Persistence gateway
	DrawingsSaved  prometheus.Counter
	DrawingsLoaded prometheus.Counter
	SettingsSaved  prometheus.Counter
	AutosaveRuns   prometheus.Counter
	SQLiteWriteDur prometheus.Histogram

	// Transport
	WSClients    prometheus.Gauge
	WSBroadcasts prometheus.Counter
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		IndicatorComputeDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chartserver_indicator_compute_duration_seconds",
			Help:    "Indicator calculation latency per config",
			Buckets: []float64{0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005},
		}),
		IndicatorFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chartserver_indicator_failures_total",
			Help: "Indicator calculations skipped due to errors (by config)",
		}, []string{"config_id"}),
		FramesBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chartserver_frames_built_total",
			Help: "Chart frames assembled",
		}),
		FrameBuildDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chartserver_frame_build_duration_seconds",
			Help:    "Full frame assembly latency (history + indicators)",
			Buckets: prometheus.DefBuckets,
		}),

		DrawingsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chartserver_drawings_saved_total",
			Help: "Drawing set saves to the persistence gateway",
		}),
		DrawingsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chartserver_drawings_loaded_total",
			Help: "Drawing set loads from the persistence gateway",
		}),
		SettingsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chartserver_settings_saved_total",
			Help: "Settings saves to the persistence gateway",
		}),
		AutosaveRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chartserver_autosave_runs_total",
			Help: "Autosave sweeps that flushed a dirty session",
		}),
		SQLiteWriteDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chartserver_sqlite_write_duration_seconds",
			Help:    "SQLite commit latency",
			Buckets: prometheus.DefBuckets,
		}),

		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chartserver_ws_clients",
			Help: "Currently connected WebSocket clients",
		}),
		WSBroadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chartserver_ws_broadcasts_total",
			Help: "Envelopes broadcast to symbol subscribers",
		}),
	}

	m.Registry.MustRegister(
		m.IndicatorComputeDur,
		m.IndicatorFailures,
		m.FramesBuilt,
		m.FrameBuildDur,
		m.DrawingsSaved,
		m.DrawingsLoaded,
		m.SettingsSaved,
		m.AutosaveRuns,
		m.SQLiteWriteDur,
		m.WSClients,
		m.WSBroadcasts,
	)

	return m
}

// HealthStatus represents chart server health.
type HealthStatus struct {
	mu            sync.RWMutex
	redisDisabled bool

	RedisConnected bool `json:"redis_connected"`
	SQLiteOK       bool `json:"sqlite_ok"`

	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{StartedAt: time.Now()}
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite pings the database and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// DisableRedis marks Redis as out of scope: a deployment running without
// the cache layer is not degraded.
func (h *HealthStatus) DisableRedis() {
	h.mu.Lock()
	h.redisDisabled = true
	h.mu.Unlock()
}

// Snapshot returns the dependency flags for the gateway health handler.
func (h *HealthStatus) Snapshot() map[string]bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	snap := map[string]bool{"sqlite": h.SQLiteOK}
	if !h.redisDisabled {
		snap["redis"] = h.RedisConnected
	}
	return snap
}

// StartLivenessChecker runs periodic dependency checks.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	redisBad := !h.redisDisabled && !h.RedisConnected

	overallStatus := "healthy"
	httpCode := http.StatusOK
	if redisBad || !h.SQLiteOK {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}
	if redisBad && !h.SQLiteOK {
		overallStatus = "unhealthy"
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus, m *Metrics) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
