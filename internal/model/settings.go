package model

import "encoding/json"

// ChartType selects how the price series is rendered.
type ChartType string

const (
	ChartLine        ChartType = "line"
	ChartCandlestick ChartType = "candlestick"
	ChartOHLC        ChartType = "ohlc"
)

// PriceScale selects the Y axis scale of the price chart.
type PriceScale string

const (
	ScaleLinear      PriceScale = "linear"
	ScaleLogarithmic PriceScale = "logarithmic"
)

// ChartSettings is the per-symbol display configuration. It is persisted
// and reloaded keyed by symbol; symbols never configured get defaults.
type ChartSettings struct {
	Period              string     `json:"period"`   // lookback span, e.g. "3mo", "1y"
	Interval            int        `json:"interval"` // candle interval in seconds
	ChartType           ChartType  `json:"chart_type"`
	ShowVolume          bool       `json:"show_volume"`
	PriceScale          PriceScale `json:"price_scale"`
	EnabledIndicatorIDs []string   `json:"enabled_indicator_ids"`
}

// DefaultSettings returns the configuration applied to symbols that have
// never been configured.
func DefaultSettings() ChartSettings {
	return ChartSettings{
		Period:     "3mo",
		Interval:   86400, // daily
		ChartType:  ChartCandlestick,
		ShowVolume: true,
		PriceScale: ScaleLinear,
	}
}

// JSON returns the JSON-encoded settings.
func (s *ChartSettings) JSON() []byte {
	b, _ := json.Marshal(s)
	return b
}
