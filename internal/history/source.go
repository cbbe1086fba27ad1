package history

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"charting-systemv1/internal/model"
)

// CandleReader is the slice of the SQLite store the source needs.
type CandleReader interface {
	ReadCandles(ctx context.Context, symbol string, after time.Time) (model.Series, error)
}

// Source implements model.HistoricalSource on top of the candle table.
type Source struct {
	reader CandleReader
	// now is injectable for tests.
	now func() time.Time
}

// NewSource wraps a candle reader into a HistoricalSource.
func NewSource(reader CandleReader) *Source {
	return &Source{reader: reader, now: time.Now}
}

// GetSeries returns a symbol's candles covering the lookback period,
// resampled to the requested interval. An unknown symbol yields an
// empty series, not an error.
func (s *Source) GetSeries(ctx context.Context, symbol, period string, interval int) (model.Series, error) {
	start, err := periodStart(s.now().UTC(), period)
	if err != nil {
		return nil, err
	}
	series, err := s.reader.ReadCandles(ctx, symbol, start)
	if err != nil {
		return nil, fmt.Errorf("history read %s: %w", symbol, err)
	}
	return Resample(series, interval), nil
}

// periodStart resolves a lookback token ("5d", "1mo", "3mo", "6mo",
// "1y", "max") to the earliest timestamp it covers.
func periodStart(now time.Time, period string) (time.Time, error) {
	p := strings.ToLower(strings.TrimSpace(period))
	if p == "" || p == "max" {
		return time.Time{}, nil
	}

	var unit string
	switch {
	case strings.HasSuffix(p, "mo"):
		unit = "mo"
	case strings.HasSuffix(p, "d"):
		unit = "d"
	case strings.HasSuffix(p, "y"):
		unit = "y"
	default:
		return time.Time{}, fmt.Errorf("bad period %q", period)
	}

	n, err := strconv.Atoi(strings.TrimSuffix(p, unit))
	if err != nil || n <= 0 {
		return time.Time{}, fmt.Errorf("bad period %q", period)
	}

	switch unit {
	case "d":
		return now.AddDate(0, 0, -n), nil
	case "mo":
		return now.AddDate(0, -n, 0), nil
	default:
		return now.AddDate(-n, 0, 0), nil
	}
}
