// Package history supplies candle history for charting: lookback-period
// parsing, interval resampling, and the HistoricalSource backed by the
// SQLite candle table.
package history

import (
	"time"

	"charting-systemv1/internal/model"
)

// Resample aggregates a timestamp-ordered series into interval-second
// buckets aligned to ts - ts%interval. OHLC merges the standard way:
// first open, max high, min low, last close, summed volume. Buckets with
// no source candles are simply absent. An interval at or below the
// source spacing returns the input unchanged.
func Resample(series model.Series, interval int) model.Series {
	if interval <= 0 || len(series) == 0 {
		return series
	}

	iv := int64(interval)
	var out model.Series
	var bucket int64 = -1

	for _, c := range series {
		ts := c.TS.Unix()
		b := ts - ts%iv

		if b != bucket {
			bucket = b
			merged := c
			merged.TS = time.Unix(b, 0).UTC()
			out = append(out, merged)
			continue
		}

		fc := &out[len(out)-1]
		if c.High > fc.High {
			fc.High = c.High
		}
		if c.Low < fc.Low {
			fc.Low = c.Low
		}
		fc.Close = c.Close
		fc.Volume += c.Volume
	}
	return out
}
