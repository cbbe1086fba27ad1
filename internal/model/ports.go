package model

import "context"

// ── Collaborator Port Interfaces ──
// These interfaces decouple the chart core from concrete implementations
// (SQLite, Redis, synthetic data). Each implementation satisfies one or
// more of these interfaces.

// HistoricalSource supplies candle history for a symbol. It may return an
// empty series (no data) — callers render "no data" rather than failing.
type HistoricalSource interface {
	// GetSeries returns candles for symbol covering the given lookback
	// period (e.g. "3mo"), resampled to interval seconds, ordered by
	// timestamp ascending.
	GetSeries(ctx context.Context, symbol, period string, interval int) (Series, error)
}

// DrawingStore persists user annotations keyed by symbol. Absence of prior
// data yields an empty set, not an error. Loads drop malformed drawings
// individually and keep the rest.
type DrawingStore interface {
	LoadDrawings(ctx context.Context, symbol string) ([]Drawing, error)
	SaveDrawings(ctx context.Context, symbol string, drawings []Drawing) error
}

// SettingsStore persists per-symbol display settings. Absence of prior
// data yields DefaultSettings, not an error.
type SettingsStore interface {
	LoadSettings(ctx context.Context, symbol string) (ChartSettings, error)
	SaveSettings(ctx context.Context, symbol string, settings ChartSettings) error
}

// ChartStore is the full persistence gateway consumed by chart sessions.
type ChartStore interface {
	DrawingStore
	SettingsStore

	// Close releases underlying resources.
	Close() error
}
