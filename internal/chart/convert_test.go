package chart

import (
	"math"
	"testing"
	"time"

	"charting-systemv1/internal/model"
)

// ────────────────────────────────────────────────────────────
// Fixtures
// ────────────────────────────────────────────────────────────

var (
	t0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	t1 = time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC) // 10 days later
)

func testState() RenderState {
	return RenderState{
		Plot:     Rect{Left: 50, Top: 20, Right: 850, Bottom: 420},
		TimeMin:  t0,
		TimeMax:  t1,
		PriceMin: 100,
		PriceMax: 200,
		Scale:    model.ScaleLinear,
	}
}

func testConverter() *Converter { return NewConverter(testState()) }

// ────────────────────────────────────────────────────────────
// Converter
// ────────────────────────────────────────────────────────────

func TestConverter_Corners(t *testing.T) {
	conv := testConverter()

	// Bottom-left pixel corner = (TimeMin, PriceMin).
	cp := conv.CanvasToChart(PixelPoint{X: 50, Y: 420})
	if !cp.TS.Equal(t0) {
		t.Errorf("bottom-left time: got %v, want %v", cp.TS, t0)
	}
	if math.Abs(cp.Price-100) > 1e-9 {
		t.Errorf("bottom-left price: got %v, want 100", cp.Price)
	}

	// Top-right pixel corner = (TimeMax, PriceMax).
	cp = conv.CanvasToChart(PixelPoint{X: 850, Y: 20})
	if !cp.TS.Equal(t1) {
		t.Errorf("top-right time: got %v, want %v", cp.TS, t1)
	}
	if math.Abs(cp.Price-200) > 1e-9 {
		t.Errorf("top-right price: got %v, want 200", cp.Price)
	}
}

func TestConverter_RoundTrip(t *testing.T) {
	conv := testConverter()
	orig := model.ChartPoint{TS: t0.Add(67 * time.Hour), Price: 153.25}

	px := conv.ChartToCanvas(orig)
	back := conv.CanvasToChart(px)

	if d := back.TS.Sub(orig.TS); d < -time.Second || d > time.Second {
		t.Errorf("time round trip drifted by %v", d)
	}
	if math.Abs(back.Price-orig.Price) > 0.001 {
		t.Errorf("price round trip: got %v, want %v", back.Price, orig.Price)
	}
}

func TestConverter_LogScale(t *testing.T) {
	state := testState()
	state.Scale = model.ScaleLogarithmic
	state.PriceMin, state.PriceMax = 10, 1000
	conv := NewConverter(state)

	// Geometric midpoint of [10,1000] is 100: must land at pixel center.
	px := conv.ChartToCanvas(model.ChartPoint{TS: t0.Add(5 * 24 * time.Hour), Price: 100})
	midY := (state.Plot.Top + state.Plot.Bottom) / 2
	if math.Abs(px.Y-midY) > 0.5 {
		t.Errorf("log midpoint: got Y=%v, want %v", px.Y, midY)
	}

	back := conv.CanvasToChart(px)
	if math.Abs(back.Price-100) > 0.01 {
		t.Errorf("log round trip: got %v, want 100", back.Price)
	}
}

func TestConverter_CanvasPosition(t *testing.T) {
	conv := testConverter()
	p := conv.CanvasPosition(PointerEvent{ClientX: 300, ClientY: 250, ElementLeft: 40, ElementTop: 110})
	if p.X != 260 || p.Y != 140 {
		t.Errorf("canvas position: got %+v, want {260 140}", p)
	}
}

func TestConverter_Bounds(t *testing.T) {
	conv := testConverter()
	if !conv.IsPointInChart(PixelPoint{X: 400, Y: 200}) {
		t.Error("interior point reported outside plot")
	}
	if conv.IsPointInChart(PixelPoint{X: 10, Y: 200}) {
		t.Error("point left of plot reported inside")
	}
}

func TestConverter_DeadWhenNotRendered(t *testing.T) {
	dead := NewConverter(RenderState{})
	if dead.Live() {
		t.Fatal("zero render state must produce a dead converter")
	}
	if dead.IsPointInChart(PixelPoint{X: 1, Y: 1}) {
		t.Error("dead converter claims points in chart")
	}
}

type fakeProvider struct {
	state RenderState
	ok    bool
}

func (f fakeProvider) RenderState() (RenderState, bool) { return f.state, f.ok }

func TestConverter_FromProvider(t *testing.T) {
	if FromProvider(fakeProvider{state: testState(), ok: true}).Live() != true {
		t.Error("live provider must yield live converter")
	}
	if FromProvider(fakeProvider{ok: false}).Live() {
		t.Error("unrendered provider must yield dead converter")
	}
	if FromProvider(nil).Live() {
		t.Error("nil provider must yield dead converter")
	}
}
