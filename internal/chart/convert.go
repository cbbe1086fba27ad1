// Package chart implements the interactive charting core: coordinate
// conversion between canvas pixels and chart space, drawing hit-testing
// and drag translation, the pointer/keyboard interaction state machine,
// cross-chart time-window synchronization and render frame assembly.
//
// The package never draws pixels. The host surface queries render frames
// and paints them; pointer and keyboard events flow back in.
package chart

import (
	"math"
	"time"

	"charting-systemv1/internal/model"
)

// PixelPoint is a canvas-local pixel coordinate.
type PixelPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is a pixel-space rectangle (Top < Bottom, canvas Y grows downward).
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// Contains reports whether p lies inside the rectangle (inclusive).
func (r Rect) Contains(p PixelPoint) bool {
	return p.X >= r.Left && p.X <= r.Right && p.Y >= r.Top && p.Y <= r.Bottom
}

// PointerEvent is a pointer event delivered by the host surface, in
// viewport coordinates plus the canvas element's viewport origin.
type PointerEvent struct {
	ClientX     float64
	ClientY     float64
	ElementLeft float64
	ElementTop  float64
}

// RenderState is the live axis scale state of one rendered chart: the
// plot-area bounding box and the current time/price axis ranges. Pan and
// zoom mutate the ranges continuously, so a RenderState is only good for
// the interaction it was queried for.
type RenderState struct {
	Plot     Rect
	TimeMin  time.Time
	TimeMax  time.Time
	PriceMin float64
	PriceMax float64
	Scale    model.PriceScale
}

// ScaleProvider is implemented by the host surface per chart instance.
// ok=false means the chart is not rendered yet (mount/unmount race) and
// converter-dependent operations must be skipped, not failed.
type ScaleProvider interface {
	RenderState() (RenderState, bool)
}

// Converter maps bidirectionally between canvas pixels and chart-space
// (time, price) coordinates. Build a fresh one from the current render
// state on every interaction; a stale converter silently misplaces
// drawings.
type Converter struct {
	state RenderState
	live  bool
}

// NewConverter builds a converter from a live render state.
func NewConverter(state RenderState) *Converter {
	live := state.Plot.Right > state.Plot.Left &&
		state.Plot.Bottom > state.Plot.Top &&
		state.TimeMax.After(state.TimeMin) &&
		state.PriceMax > state.PriceMin
	return &Converter{state: state, live: live}
}

// FromProvider queries the host for the current render state. Returns a
// dead converter when the chart has no live scale.
func FromProvider(p ScaleProvider) *Converter {
	if p == nil {
		return &Converter{}
	}
	state, ok := p.RenderState()
	if !ok {
		return &Converter{}
	}
	return NewConverter(state)
}

// Live reports whether the converter was built from a rendered chart.
func (c *Converter) Live() bool { return c.live }

// CanvasPosition converts a pointer event to canvas-local pixels,
// accounting for the element offset.
func (c *Converter) CanvasPosition(ev PointerEvent) PixelPoint {
	return PixelPoint{X: ev.ClientX - ev.ElementLeft, Y: ev.ClientY - ev.ElementTop}
}

// IsPointInChart reports whether a pixel lies inside the plot area.
func (c *Converter) IsPointInChart(p PixelPoint) bool {
	return c.live && c.state.Plot.Contains(p)
}

// CanvasToChart inverse-projects a pixel coordinate to (time, price)
// using the current axis scales.
func (c *Converter) CanvasToChart(p PixelPoint) model.ChartPoint {
	if !c.live {
		return model.ChartPoint{}
	}
	st := c.state

	fx := (p.X - st.Plot.Left) / (st.Plot.Right - st.Plot.Left)
	span := st.TimeMax.Sub(st.TimeMin)
	ts := st.TimeMin.Add(time.Duration(fx * float64(span)))

	fy := (st.Plot.Bottom - p.Y) / (st.Plot.Bottom - st.Plot.Top)
	var price float64
	if c.logScale() {
		lo, hi := math.Log10(st.PriceMin), math.Log10(st.PriceMax)
		price = math.Pow(10, lo+fy*(hi-lo))
	} else {
		price = st.PriceMin + fy*(st.PriceMax-st.PriceMin)
	}

	return model.ChartPoint{TS: ts, Price: price}
}

// ChartToCanvas projects a chart-space point onto canvas pixels.
func (c *Converter) ChartToCanvas(cp model.ChartPoint) PixelPoint {
	if !c.live {
		return PixelPoint{}
	}
	st := c.state

	span := float64(st.TimeMax.Sub(st.TimeMin))
	fx := float64(cp.TS.Sub(st.TimeMin)) / span
	x := st.Plot.Left + fx*(st.Plot.Right-st.Plot.Left)

	var fy float64
	if c.logScale() {
		lo, hi := math.Log10(st.PriceMin), math.Log10(st.PriceMax)
		if cp.Price > 0 {
			fy = (math.Log10(cp.Price) - lo) / (hi - lo)
		}
	} else {
		fy = (cp.Price - st.PriceMin) / (st.PriceMax - st.PriceMin)
	}
	y := st.Plot.Bottom - fy*(st.Plot.Bottom-st.Plot.Top)

	return PixelPoint{X: x, Y: y}
}

// logScale reports whether the log mapping applies. Non-positive axis
// bounds cannot be log-projected, so they degrade to linear.
func (c *Converter) logScale() bool {
	return c.state.Scale == model.ScaleLogarithmic && c.state.PriceMin > 0
}
