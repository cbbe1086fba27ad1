package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DrawingType identifies the annotation shape.
type DrawingType string

const (
	DrawingTrendline      DrawingType = "trendline"
	DrawingRectangle      DrawingType = "rectangle"
	DrawingHorizontalLine DrawingType = "horizontal_line"
	DrawingVerticalLine   DrawingType = "vertical_line"
	DrawingText           DrawingType = "text"
)

// TwoPoint reports whether the type is completed by a drag gesture
// (pointer-down places the anchor, pointer-up places the second point).
func (t DrawingType) TwoPoint() bool {
	return t == DrawingTrendline || t == DrawingRectangle
}

// Valid reports whether t is a known drawing type. Used when loading
// persisted drawings so malformed rows can be dropped individually.
func (t DrawingType) Valid() bool {
	switch t {
	case DrawingTrendline, DrawingRectangle, DrawingHorizontalLine,
		DrawingVerticalLine, DrawingText:
		return true
	}
	return false
}

// ChartPoint is a chart-space coordinate: time on the X axis, price on Y.
type ChartPoint struct {
	TS    time.Time `json:"ts"`
	Price float64   `json:"price"`
}

// DrawingStyle holds stroke/fill attributes, defaulted per type.
type DrawingStyle struct {
	StrokeColor string    `json:"stroke_color"`
	StrokeWidth float64   `json:"stroke_width"`
	FillColor   string    `json:"fill_color,omitempty"`
	Dash        []float64 `json:"dash,omitempty"`
}

// TextFormatting holds text-specific attributes for text drawings.
type TextFormatting struct {
	FontSize int    `json:"font_size"`
	Color    string `json:"color"`
	Bold     bool   `json:"bold"`
}

// Drawing is a user-created chart annotation. Two-point types hold exactly
// 2 points once completed (1 while in progress); single-point types always
// hold 1. Drawings are treated as values: mutation paths copy first.
type Drawing struct {
	ID         string         `json:"id"`
	Type       DrawingType    `json:"type"`
	Points     []ChartPoint   `json:"points"`
	Style      DrawingStyle   `json:"style"`
	Selected   bool           `json:"selected"`
	Text       string         `json:"text,omitempty"`
	Formatting TextFormatting `json:"formatting,omitempty"`
}

// NewDrawing creates a drawing of the given type anchored at p,
// with a fresh ID and the type's default style.
func NewDrawing(t DrawingType, p ChartPoint) Drawing {
	d := Drawing{
		ID:     uuid.NewString(),
		Type:   t,
		Points: []ChartPoint{p},
		Style:  DefaultStyle(t),
	}
	if t == DrawingText {
		d.Formatting = DefaultTextFormatting()
	}
	return d
}

// Clone returns a deep copy. Points and dash slices are never shared,
// so a translated copy cannot alias the persisted original.
func (d Drawing) Clone() Drawing {
	out := d
	out.Points = make([]ChartPoint, len(d.Points))
	copy(out.Points, d.Points)
	if d.Style.Dash != nil {
		out.Style.Dash = make([]float64, len(d.Style.Dash))
		copy(out.Style.Dash, d.Style.Dash)
	}
	return out
}

// JSON returns the JSON-encoded drawing.
func (d *Drawing) JSON() []byte {
	b, _ := json.Marshal(d)
	return b
}

// DefaultStyle returns the per-type default stroke/fill attributes.
func DefaultStyle(t DrawingType) DrawingStyle {
	switch t {
	case DrawingRectangle:
		return DrawingStyle{StrokeColor: "#2962ff", StrokeWidth: 1, FillColor: "#2962ff22"}
	case DrawingHorizontalLine:
		return DrawingStyle{StrokeColor: "#f23645", StrokeWidth: 1, Dash: []float64{4, 4}}
	case DrawingVerticalLine:
		return DrawingStyle{StrokeColor: "#787b86", StrokeWidth: 1, Dash: []float64{4, 4}}
	case DrawingText:
		return DrawingStyle{StrokeColor: "#131722", StrokeWidth: 1}
	default: // trendline
		return DrawingStyle{StrokeColor: "#2962ff", StrokeWidth: 2}
	}
}

// DefaultTextFormatting returns the default formatting for text drawings.
func DefaultTextFormatting() TextFormatting {
	return TextFormatting{FontSize: 14, Color: "#131722"}
}
