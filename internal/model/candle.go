package model

import (
	"encoding/json"
	"time"
)

// Candle represents a single OHLC bar for one symbol and interval bucket.
// Prices are float64: chart coordinates are continuous and indicator math
// runs on floats anyway, so there is no fixed-point representation here.
type Candle struct {
	Symbol string    `json:"symbol"`
	TS     time.Time `json:"ts"` // bucket start time (UTC, interval-aligned)
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// JSON returns the JSON-encoded candle (ignoring errors for hot-path usage).
func (c *Candle) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}

// PriceSource selects which OHLC field feeds a calculation.
type PriceSource string

const (
	SourceOpen  PriceSource = "open"
	SourceHigh  PriceSource = "high"
	SourceLow   PriceSource = "low"
	SourceClose PriceSource = "close"
)

// Value extracts the selected field from a candle.
// Unknown sources fall back to close.
func (s PriceSource) Value(c Candle) float64 {
	switch s {
	case SourceOpen:
		return c.Open
	case SourceHigh:
		return c.High
	case SourceLow:
		return c.Low
	default:
		return c.Close
	}
}

// Series is an ordered candle sequence with strictly increasing timestamps.
// It is produced once by the data source and consumed read-only.
type Series []Candle

// SourceValues extracts one OHLC field across the whole series.
func (s Series) SourceValues(src PriceSource) []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = src.Value(c)
	}
	return out
}

// Timestamps returns the bucket start time of every candle.
func (s Series) Timestamps() []time.Time {
	out := make([]time.Time, len(s))
	for i, c := range s {
		out[i] = c.TS
	}
	return out
}

// Ordered reports whether timestamps are strictly increasing.
func (s Series) Ordered() bool {
	for i := 1; i < len(s); i++ {
		if !s[i].TS.After(s[i-1].TS) {
			return false
		}
	}
	return true
}
