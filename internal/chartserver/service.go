// Package chartserver is the top-level orchestrator: it wires the
// persistence gateway, candle history, the indicator registry, frame
// assembly, per-symbol drawing sessions, and the WebSocket/REST gateway,
// and manages their lifecycle.
package chartserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"charting-systemv1/config"
	"charting-systemv1/internal/chart"
	"charting-systemv1/internal/gateway"
	"charting-systemv1/internal/history"
	"charting-systemv1/internal/indicator"
	"charting-systemv1/internal/logger"
	"charting-systemv1/internal/metrics"
	"charting-systemv1/internal/model"
	redisstore "charting-systemv1/internal/store/redis"
	sqlitestore "charting-systemv1/internal/store/sqlite"
)

// noopHost satisfies chart.Host for sessions driven over the wire; the
// connected surface owns the actual cursor and text editor.
type noopHost struct{}

func (noopHost) SetCursor(chart.Cursor)       {}
func (noopHost) OpenTextEditor(model.Drawing) {}

// Service is the chart server.
type Service struct {
	cfg *config.Config
	log *slog.Logger

	sqlite   *sqlitestore.Store
	cache    *redisstore.Cache
	store    model.ChartStore
	source   *history.Source
	registry *indicator.Registry
	frames   *chart.FrameBuilder
	hub      *gateway.Hub
	prom     *metrics.Metrics
	health   *metrics.HealthStatus

	sessMu   sync.Mutex
	sessions map[string]*chart.Session

	httpSrv    *http.Server
	metricsSrv *metrics.Server
}

// New wires all subsystems from the given configuration.
func New(cfg *config.Config) (*Service, error) {
	svc := &Service{
		cfg:      cfg,
		log:      slog.Default().With("component", "chartserver"),
		prom:     metrics.NewMetrics(),
		health:   metrics.NewHealthStatus(),
		sessions: make(map[string]*chart.Session),
	}

	// ---- Open SQLite ----
	os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755)
	var err error
	svc.sqlite, err = sqlitestore.New(sqlitestore.Config{DBPath: cfg.SQLitePath})
	if err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}
	svc.store = svc.sqlite

	// ---- Optional Redis cache in front of SQLite ----
	if cfg.RedisEnabled {
		svc.cache, err = redisstore.New(redisstore.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheTTL,
		}, svc.sqlite)
		if err != nil {
			svc.log.Warn("redis unavailable, continuing on sqlite only", "err", err)
		} else {
			svc.store = svc.cache
		}
	}

	// ---- Charting core ----
	svc.source = history.NewSource(svc.sqlite)
	svc.registry = indicator.NewRegistry()
	svc.frames = chart.NewFrameBuilder(svc.registry, svc.log)
	svc.frames.OnIndicatorError = func(configID string) {
		svc.prom.IndicatorFailures.WithLabelValues(configID).Inc()
	}
	svc.frames.OnIndicatorCalc = func(_ string, elapsed time.Duration) {
		svc.prom.IndicatorComputeDur.Observe(elapsed.Seconds())
	}

	// ---- Gateway ----
	var feed gateway.UpdateFeed
	if svc.cache != nil {
		feed = svc.cache
	}
	svc.hub = gateway.NewHub(svc, feed)
	svc.hub.OnClientCount = func(n int) {
		svc.prom.WSClients.Set(float64(n))
	}
	svc.hub.OnBroadcast = func() {
		svc.prom.WSBroadcasts.Inc()
	}

	return svc, nil
}

// Registry exposes the indicator registry.
func (svc *Service) Registry() *indicator.Registry { return svc.registry }

// Store exposes the persistence gateway in use (cache when available).
func (svc *Service) Store() model.ChartStore { return svc.store }

// Hub exposes the WebSocket hub.
func (svc *Service) Hub() *gateway.Hub { return svc.hub }

// BuildFrame assembles a render-ready frame for a symbol: persisted
// settings, candle history at the configured period/interval, enabled
// indicator groups, and the symbol's live session drawings.
func (svc *Service) BuildFrame(ctx context.Context, symbol string) (chart.Frame, error) {
	start := time.Now()

	settings, err := svc.store.LoadSettings(ctx, symbol)
	if err != nil {
		return chart.Frame{}, fmt.Errorf("load settings: %w", err)
	}

	series, err := svc.source.GetSeries(ctx, symbol, settings.Period, settings.Interval)
	if err != nil {
		return chart.Frame{}, fmt.Errorf("load history: %w", err)
	}

	session, err := svc.Session(ctx, symbol)
	if err != nil {
		return chart.Frame{}, err
	}

	frame := svc.frames.Build(symbol, settings, series, session)

	svc.prom.FramesBuilt.Inc()
	svc.prom.FrameBuildDur.Observe(time.Since(start).Seconds())
	return frame, nil
}

// Session returns the symbol's drawing session, creating it from the
// persisted drawing set on first use. Switching symbols never loses
// work: each symbol keeps its own session and the autosave loop flushes
// dirty ones.
func (svc *Service) Session(ctx context.Context, symbol string) (*chart.Session, error) {
	svc.sessMu.Lock()
	if sess, ok := svc.sessions[symbol]; ok {
		svc.sessMu.Unlock()
		return sess, nil
	}
	svc.sessMu.Unlock()

	// Load outside the lock; SQLite is the slow path here.
	drawings, err := svc.store.LoadDrawings(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("load drawings: %w", err)
	}
	svc.prom.DrawingsLoaded.Inc()

	svc.sessMu.Lock()
	defer svc.sessMu.Unlock()
	if sess, ok := svc.sessions[symbol]; ok {
		return sess, nil
	}
	sess := chart.NewSession(symbol, drawings, noopHost{})
	svc.sessions[symbol] = sess
	return sess, nil
}

// autosaveLoop periodically flushes dirty sessions to the store.
func (svc *Service) autosaveLoop(ctx context.Context) {
	ticker := time.NewTicker(svc.cfg.AutosaveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svc.flushDirtySessions(ctx)
		}
	}
}

// flushDirtySessions saves every session whose drawings changed since
// the last sweep.
func (svc *Service) flushDirtySessions(ctx context.Context) {
	svc.sessMu.Lock()
	dirty := make(map[string]*chart.Session)
	for symbol, sess := range svc.sessions {
		if sess.ConsumeDirty() {
			dirty[symbol] = sess
		}
	}
	svc.sessMu.Unlock()

	for symbol, sess := range dirty {
		start := time.Now()
		saveCtx := logger.WithTraceID(ctx, logger.GenerateTraceID(symbol, start))
		if err := svc.store.SaveDrawings(saveCtx, symbol, sess.Drawings()); err != nil {
			args := append([]any{"symbol", symbol, "err", err}, logger.LogWithTrace(saveCtx)...)
			svc.log.Warn("autosave failed", args...)
			continue
		}
		svc.prom.AutosaveRuns.Inc()
		svc.prom.DrawingsSaved.Inc()
		svc.prom.SQLiteWriteDur.Observe(time.Since(start).Seconds())
		svc.log.Debug("autosaved drawings", "symbol", symbol, "count", len(sess.Drawings()))
	}
}

// Run starts all subsystems and blocks until ctx is cancelled.
func (svc *Service) Run(ctx context.Context) error {
	svc.log.Info("starting chart server",
		"http", svc.cfg.HTTPAddr,
		"metrics", svc.cfg.MetricsAddr,
		"sqlite", svc.cfg.SQLitePath,
		"redis", svc.cache != nil)

	// ---- Warm sessions for the preload symbols ----
	for _, symbol := range svc.cfg.ParseSymbols() {
		if _, err := svc.Session(ctx, symbol); err != nil {
			svc.log.Warn("session preload failed", "symbol", symbol, "err", err)
		}
	}

	// ---- Metrics + liveness ----
	svc.metricsSrv = metrics.NewServer(svc.cfg.MetricsAddr, svc.health, svc.prom)
	svc.metricsSrv.Start()
	if svc.cache != nil {
		svc.health.StartLivenessChecker(ctx, svc.cache.Client(), svc.sqlite.DB(), 10*time.Second)
	} else {
		svc.health.DisableRedis()
		svc.health.StartLivenessChecker(ctx, nil, svc.sqlite.DB(), 10*time.Second)
	}

	// ---- Autosave ----
	go svc.autosaveLoop(ctx)

	// ---- HTTP gateway ----
	mux := http.NewServeMux()
	gateway.RegisterRoutes(mux, gateway.Deps{
		Hub:      svc.hub,
		Source:   svc.source,
		Store:    svc.store,
		Registry: svc.registry,
		Frames:   svc,
		Candles:  svc.sqlite,
		Start:    time.Now(),
		Health: func(context.Context) map[string]bool {
			return svc.health.Snapshot()
		},
		OnSettingsSaved: func() {
			svc.prom.SettingsSaved.Inc()
		},
	})
	svc.httpSrv = &http.Server{Addr: svc.cfg.HTTPAddr, Handler: mux}
	go func() {
		if err := svc.httpSrv.ListenAndServe(); err != http.ErrServerClosed {
			svc.log.Error("http server", "err", err)
		}
	}()

	svc.log.Info("chart server running")

	<-ctx.Done()
	svc.shutdown()
	return nil
}

// shutdown flushes dirty sessions and closes servers and stores.
func (svc *Service) shutdown() {
	svc.log.Info("shutdown signal received")

	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Final autosave sweep so no drawing edits are lost.
	svc.flushDirtySessions(shutCtx)

	if svc.httpSrv != nil {
		svc.httpSrv.Shutdown(shutCtx)
	}
	if svc.metricsSrv != nil {
		svc.metricsSrv.Stop(shutCtx)
	}
	if err := svc.store.Close(); err != nil {
		svc.log.Warn("store close", "err", err)
	}

	svc.log.Info("shutdown complete")
}
