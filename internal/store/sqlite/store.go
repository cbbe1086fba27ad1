// Package sqlite is the SQLite persistence gateway: drawings and chart
// settings keyed by symbol, plus the candle history table backing the
// historical data source.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"charting-systemv1/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

const defaultBatchSize = 500

// Config configures the SQLite store.
type Config struct {
	DBPath string // path to SQLite database file, e.g. "data/charts.db"
}

// Store implements model.ChartStore and candle history reads/writes on a
// single SQLite database.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// New opens the database with WAL mode and bootstraps the schema.
func New(cfg Config) (*Store, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single-writer pool.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	logger := slog.Default().With("component", "sqlite")
	logger.Info("opened database", "path", cfg.DBPath)
	return &Store{db: db, log: logger}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS drawings (
			symbol     TEXT    NOT NULL,
			id         TEXT    NOT NULL,
			seq        INTEGER NOT NULL,
			data       TEXT    NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (symbol, id)
		);

		CREATE TABLE IF NOT EXISTS chart_settings (
			symbol     TEXT PRIMARY KEY,
			data       TEXT    NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS candles (
			symbol TEXT    NOT NULL,
			ts     INTEGER NOT NULL,
			open   REAL    NOT NULL,
			high   REAL    NOT NULL,
			low    REAL    NOT NULL,
			close  REAL    NOT NULL,
			volume REAL,
			PRIMARY KEY (symbol, ts)
		);
	`)
	return err
}

// SaveDrawings replaces the persisted drawing set for a symbol in one
// transaction. Last write wins per symbol key.
func (s *Store) SaveDrawings(ctx context.Context, symbol string, drawings []model.Drawing) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM drawings WHERE symbol = ?`, symbol); err != nil {
		return fmt.Errorf("sqlite clear drawings: %w", err)
	}

	now := time.Now().Unix()
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO drawings (symbol, id, seq, data, updated_at) VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("sqlite prepare: %w", err)
	}
	defer stmt.Close()

	for i, d := range drawings {
		// Selection is view state, not worth persisting.
		d.Selected = false
		data, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("marshal drawing %s: %w", d.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, symbol, d.ID, i, string(data), now); err != nil {
			return fmt.Errorf("sqlite insert drawing: %w", err)
		}
	}

	return tx.Commit()
}

// LoadDrawings returns a symbol's persisted drawings in creation order.
// A symbol with no rows yields an empty set. Malformed rows are dropped
// individually and logged; the rest of the set still loads.
func (s *Store) LoadDrawings(ctx context.Context, symbol string) ([]model.Drawing, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT data FROM drawings WHERE symbol = ? ORDER BY seq ASC
	`, symbol)
	if err != nil {
		return nil, fmt.Errorf("sqlite query drawings: %w", err)
	}
	defer rows.Close()

	var out []model.Drawing
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("sqlite scan drawing: %w", err)
		}
		var d model.Drawing
		if err := json.Unmarshal([]byte(data), &d); err != nil {
			s.log.Warn("dropping malformed drawing", "symbol", symbol, "err", err)
			continue
		}
		if !validDrawing(d) {
			s.log.Warn("dropping invalid drawing", "symbol", symbol, "id", d.ID, "type", d.Type)
			continue
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// validDrawing enforces the shape invariants a hostile or stale payload
// could violate: known type, completed point counts.
func validDrawing(d model.Drawing) bool {
	if d.ID == "" || !d.Type.Valid() {
		return false
	}
	if d.Type.TwoPoint() {
		return len(d.Points) == 2
	}
	return len(d.Points) == 1
}

// SaveSettings upserts a symbol's display settings.
func (s *Store) SaveSettings(ctx context.Context, symbol string, settings model.ChartSettings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO chart_settings (symbol, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, symbol, string(data), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("sqlite upsert settings: %w", err)
	}
	return nil
}

// LoadSettings returns a symbol's settings, or defaults when the symbol
// was never configured or the stored payload no longer parses.
func (s *Store) LoadSettings(ctx context.Context, symbol string) (model.ChartSettings, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `
		SELECT data FROM chart_settings WHERE symbol = ?
	`, symbol).Scan(&data)
	if err == sql.ErrNoRows {
		return model.DefaultSettings(), nil
	}
	if err != nil {
		return model.ChartSettings{}, fmt.Errorf("sqlite query settings: %w", err)
	}

	var settings model.ChartSettings
	if err := json.Unmarshal([]byte(data), &settings); err != nil {
		s.log.Warn("dropping malformed settings", "symbol", symbol, "err", err)
		return model.DefaultSettings(), nil
	}
	return settings, nil
}

// WriteCandles upserts candle history in batched transactions.
func (s *Store) WriteCandles(ctx context.Context, series model.Series) error {
	for start := 0; start < len(series); start += defaultBatchSize {
		end := start + defaultBatchSize
		if end > len(series) {
			end = len(series)
		}
		if err := s.writeBatch(ctx, series[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) writeBatch(ctx context.Context, batch model.Series) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO candles (symbol, ts, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol, ts) DO UPDATE SET
			open = excluded.open, high = excluded.high, low = excluded.low,
			close = excluded.close, volume = excluded.volume
	`)
	if err != nil {
		return fmt.Errorf("sqlite prepare candles: %w", err)
	}
	defer stmt.Close()

	for _, c := range batch {
		if _, err := stmt.ExecContext(ctx, c.Symbol, c.TS.Unix(), c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			return fmt.Errorf("sqlite insert candle: %w", err)
		}
	}
	return tx.Commit()
}

// ReadCandles reads a symbol's candle history from a cutoff, ordered by
// timestamp ascending.
func (s *Store) ReadCandles(ctx context.Context, symbol string, after time.Time) (model.Series, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, ts, open, high, low, close, volume
		FROM candles
		WHERE symbol = ? AND ts >= ?
		ORDER BY ts ASC
	`, symbol, after.Unix())
	if err != nil {
		return nil, fmt.Errorf("sqlite query candles: %w", err)
	}
	defer rows.Close()

	var series model.Series
	for rows.Next() {
		var c model.Candle
		var tsUnix int64
		if err := rows.Scan(&c.Symbol, &tsUnix, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("sqlite scan candle: %w", err)
		}
		c.TS = time.Unix(tsUnix, 0).UTC()
		series = append(series, c)
	}
	return series, rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
