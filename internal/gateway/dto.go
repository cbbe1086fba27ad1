package gateway

import "charting-systemv1/internal/model"

// SubscribeMsg is the client → server request to follow a symbol's chart.
type SubscribeMsg struct {
	Type   string `json:"type"` // "SUBSCRIBE"
	Symbol string `json:"symbol"`
	ReqID  string `json:"req_id,omitempty"`
	// LastSeq lets a reconnecting client ask for backlog replay.
	LastSeq int64 `json:"last_seq,omitempty"`
}

// UnsubscribeMsg stops delivery for a symbol.
type UnsubscribeMsg struct {
	Type   string `json:"type"` // "UNSUBSCRIBE"
	Symbol string `json:"symbol"`
}

// ErrorMsg is the server → client error envelope.
type ErrorMsg struct {
	Type  string `json:"type"` // "error"
	ReqID string `json:"req_id,omitempty"`
	Error string `json:"error"`
}

// DrawingsPayload is the REST request/response body for a symbol's
// drawing set.
type DrawingsPayload struct {
	Symbol   string          `json:"symbol"`
	Drawings []model.Drawing `json:"drawings"`
}

// SettingsPayload is the REST request/response body for a symbol's
// display settings.
type SettingsPayload struct {
	Symbol   string              `json:"symbol"`
	Settings model.ChartSettings `json:"settings"`
}

// CandleOut is the REST response type for /api/candles.
type CandleOut struct {
	TS     string  `json:"ts"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// CandlesPayload is the REST request body for candle ingestion.
type CandlesPayload struct {
	Symbol  string      `json:"symbol"`
	Candles []CandleOut `json:"candles"`
}

// IndicatorInfo is the REST response type for /api/indicators.
type IndicatorInfo struct {
	ID       string         `json:"id"`
	TypeID   string         `json:"type_id,omitempty"`
	Category string         `json:"category"`
	Params   map[string]any `json:"params,omitempty"`
	Defaults map[string]any `json:"defaults,omitempty"`
	Enabled  bool           `json:"enabled"`
}
