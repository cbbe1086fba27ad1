// Package indicator provides technical indicator calculations over candle
// series.
//
// Calculators are stateless, pure batch functions: a candle series plus a
// parameter map in, plotted datasets plus auxiliary axis declarations out.
// Safe to invoke concurrently for different symbols.
package indicator

import (
	"time"

	"charting-systemv1/internal/model"
)

// Category determines which axis an indicator's output shares.
type Category string

const (
	// CategoryOverlay plots on the price axis (SMA, EMA, SMMA).
	CategoryOverlay Category = "overlay"
	// CategoryOscillator requires its own auxiliary value axis (RSI, MACD).
	CategoryOscillator Category = "oscillator"
)

// SeriesRole is a rendering hint for a single output dataset.
type SeriesRole string

const (
	RoleLine      SeriesRole = "line"
	RoleSignal    SeriesRole = "signal"
	RoleHistogram SeriesRole = "histogram"
	RoleReference SeriesRole = "reference" // static bands like RSI 70/30
)

// Point is one output sample. Valid=false marks the warm-up gap before
// enough history exists for the calculation window.
type Point struct {
	TS    time.Time `json:"ts"`
	Value float64   `json:"value"`
	Valid bool      `json:"valid"`
}

// Dataset is one plotted output series of a calculation.
type Dataset struct {
	Label  string     `json:"label"`
	Role   SeriesRole `json:"role"`
	AxisID string     `json:"axis_id"` // "" = price axis
	Points []Point    `json:"points"`
}

// Axis declares an auxiliary value axis required by oscillator datasets.
type Axis struct {
	ID    string  `json:"id"`
	Min   float64 `json:"min,omitempty"`
	Max   float64 `json:"max,omitempty"`
	Fixed bool    `json:"fixed"` // true when Min/Max are hard bounds (RSI 0-100)
}

// Result is the full output of one calculation.
type Result struct {
	Datasets []Dataset `json:"datasets"`
	Axes     []Axis    `json:"axes,omitempty"`
}

// Calculator is the interface for all indicator types.
type Calculator interface {
	// ID returns the type id (e.g. "sma").
	ID() string

	// Name returns the display name (e.g. "Simple Moving Average").
	Name() string

	// Category reports whether output shares the price axis.
	Category() Category

	// DefaultParams returns the parameter defaults. Callers merge user
	// params over these, so partial overrides are legal.
	DefaultParams() Params

	// Validate reports whether a merged parameter map is acceptable.
	Validate(p Params) bool

	// Calculate runs the indicator over the series. Must tolerate empty
	// or short series by returning all-invalid points, never failing.
	Calculate(series model.Series, p Params) Result
}
