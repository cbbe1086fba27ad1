package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"charting-systemv1/internal/indicator"
	"charting-systemv1/internal/model"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// CandleWriter ingests candle history into the durable store.
type CandleWriter interface {
	WriteCandles(ctx context.Context, series model.Series) error
}

// Deps bundles what the REST and WS handlers need.
type Deps struct {
	Hub      *Hub
	Source   model.HistoricalSource
	Store    model.ChartStore
	Registry *indicator.Registry
	Frames   FrameSource
	Candles  CandleWriter // optional; enables POST /api/candles
	Start    time.Time
	// Health reports per-dependency liveness ("sqlite", "redis").
	Health func(ctx context.Context) map[string]bool
	// OnSettingsSaved is called after a successful settings save. Optional.
	OnSettingsSaved func()
}

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, v any) {
	SetCORS(w)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	SetCORS(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// RegisterRoutes registers all HTTP routes on the provided mux.
func RegisterRoutes(mux *http.ServeMux, d Deps) {
	log := slog.Default().With("component", "gateway")

	// WebSocket endpoint
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("ws upgrade failed", "err", err)
			return
		}
		d.Hub.HandleConn(conn)
	})

	// REST: candle history (GET) and ingestion (POST)
	mux.HandleFunc("/api/candles", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			SetCORS(w)
			w.WriteHeader(http.StatusOK)
			return
		}
		symbol := r.URL.Query().Get("symbol")

		if r.Method == http.MethodPost {
			if d.Candles == nil {
				writeError(w, http.StatusMethodNotAllowed, "candle ingestion not enabled")
				return
			}
			var req CandlesPayload
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid JSON")
				return
			}
			if symbol == "" {
				symbol = req.Symbol
			}
			if symbol == "" {
				writeError(w, http.StatusBadRequest, "symbol is required")
				return
			}
			series := make(model.Series, 0, len(req.Candles))
			for _, c := range req.Candles {
				ts, err := time.Parse(time.RFC3339, c.TS)
				if err != nil {
					writeError(w, http.StatusBadRequest, "bad candle ts: "+c.TS)
					return
				}
				series = append(series, model.Candle{
					Symbol: symbol,
					TS:     ts.UTC(),
					Open:   c.Open,
					High:   c.High,
					Low:    c.Low,
					Close:  c.Close,
					Volume: c.Volume,
				})
			}
			if err := d.Candles.WriteCandles(r.Context(), series); err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			log.Info("candles ingested", "symbol", symbol, "count", len(series))
			writeJSON(w, map[string]any{"status": "ok", "ingested": len(series)})
			return
		}

		if symbol == "" {
			writeError(w, http.StatusBadRequest, "symbol is required")
			return
		}
		period := r.URL.Query().Get("period")
		if period == "" {
			period = model.DefaultSettings().Period
		}
		interval := model.DefaultSettings().Interval
		if s := r.URL.Query().Get("interval"); s != "" {
			if v, err := strconv.Atoi(s); err == nil && v > 0 {
				interval = v
			}
		}

		series, err := d.Source.GetSeries(r.Context(), symbol, period, interval)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		out := make([]CandleOut, 0, len(series))
		for _, c := range series {
			out = append(out, CandleOut{
				TS:     c.TS.UTC().Format(time.RFC3339),
				Open:   c.Open,
				High:   c.High,
				Low:    c.Low,
				Close:  c.Close,
				Volume: c.Volume,
			})
		}
		writeJSON(w, out)
	})

	// REST: full render frame for a symbol
	mux.HandleFunc("/api/chart", func(w http.ResponseWriter, r *http.Request) {
		symbol := r.URL.Query().Get("symbol")
		if symbol == "" {
			writeError(w, http.StatusBadRequest, "symbol is required")
			return
		}
		frame, err := d.Frames.BuildFrame(r.Context(), symbol)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, frame)
	})

	// REST: indicator catalog + enable/disable
	mux.HandleFunc("/api/indicators", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			SetCORS(w)
			w.WriteHeader(http.StatusOK)
			return
		}

		if r.Method == http.MethodPost {
			var req struct {
				ID      string `json:"id"`
				Enabled bool   `json:"enabled"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid JSON")
				return
			}
			if _, ok := d.Registry.GetConfig(req.ID); !ok {
				writeError(w, http.StatusNotFound, "unknown indicator config: "+req.ID)
				return
			}
			if req.Enabled {
				d.Registry.Enable(req.ID)
			} else {
				d.Registry.Disable(req.ID)
			}
			log.Info("indicator toggled", "id", req.ID, "enabled", req.Enabled)
			writeJSON(w, map[string]string{"status": "ok"})
			return
		}

		configs := d.Registry.AllConfigs()
		out := make([]IndicatorInfo, len(configs))
		for i, cfg := range configs {
			out[i] = IndicatorInfo{
				ID:       cfg.ID,
				TypeID:   cfg.TypeID,
				Category: string(cfg.Category),
				Params:   cfg.Params,
				Defaults: cfg.Defaults,
				Enabled:  cfg.Enabled,
			}
		}
		writeJSON(w, out)
	})

	// REST: per-symbol drawings
	mux.HandleFunc("/api/drawings", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			SetCORS(w)
			w.WriteHeader(http.StatusOK)
			return
		}
		symbol := r.URL.Query().Get("symbol")

		if r.Method == http.MethodPut || r.Method == http.MethodPost {
			var req DrawingsPayload
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid JSON")
				return
			}
			if symbol == "" {
				symbol = req.Symbol
			}
			if symbol == "" {
				writeError(w, http.StatusBadRequest, "symbol is required")
				return
			}
			if err := d.Store.SaveDrawings(r.Context(), symbol, req.Drawings); err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			writeJSON(w, map[string]string{"status": "ok"})
			return
		}

		if symbol == "" {
			writeError(w, http.StatusBadRequest, "symbol is required")
			return
		}
		drawings, err := d.Store.LoadDrawings(r.Context(), symbol)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if drawings == nil {
			drawings = []model.Drawing{}
		}
		writeJSON(w, DrawingsPayload{Symbol: symbol, Drawings: drawings})
	})

	// REST: per-symbol display settings
	mux.HandleFunc("/api/settings", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			SetCORS(w)
			w.WriteHeader(http.StatusOK)
			return
		}
		symbol := r.URL.Query().Get("symbol")

		if r.Method == http.MethodPut || r.Method == http.MethodPost {
			var req SettingsPayload
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid JSON")
				return
			}
			if symbol == "" {
				symbol = req.Symbol
			}
			if symbol == "" {
				writeError(w, http.StatusBadRequest, "symbol is required")
				return
			}
			if err := d.Store.SaveSettings(r.Context(), symbol, req.Settings); err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			if d.OnSettingsSaved != nil {
				d.OnSettingsSaved()
			}
			writeJSON(w, map[string]string{"status": "ok"})
			return
		}

		if symbol == "" {
			writeError(w, http.StatusBadRequest, "symbol is required")
			return
		}
		settings, err := d.Store.LoadSettings(r.Context(), symbol)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, SettingsPayload{Symbol: symbol, Settings: settings})
	})

	// Health endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"status":     "ok",
			"ws_clients": d.Hub.ClientCount(),
			"uptime_sec": int64(time.Since(d.Start).Seconds()),
			"ts":         time.Now().UTC().Format(time.RFC3339Nano),
		}
		if d.Health != nil {
			for name, ok := range d.Health(r.Context()) {
				resp[name] = ok
			}
		}
		writeJSON(w, resp)
	})
}
