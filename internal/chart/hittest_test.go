package chart

import (
	"math"
	"testing"
	"time"

	"charting-systemv1/internal/model"
)

// chartAt builds a chart point at a fraction of the test window.
func chartAt(fx, price float64) model.ChartPoint {
	span := t1.Sub(t0)
	return model.ChartPoint{TS: t0.Add(time.Duration(fx * float64(span))), Price: price}
}

func trendline(a, b model.ChartPoint) model.Drawing {
	d := model.NewDrawing(model.DrawingTrendline, a)
	d.Points = append(d.Points, b)
	return d
}

func rectangle(a, b model.ChartPoint) model.Drawing {
	d := model.NewDrawing(model.DrawingRectangle, a)
	d.Points = append(d.Points, b)
	return d
}

// ────────────────────────────────────────────────────────────
// Hit-testing
// ────────────────────────────────────────────────────────────

func TestHitTest_Trendline(t *testing.T) {
	conv := testConverter()
	d := trendline(chartAt(0.2, 120), chartAt(0.8, 180))

	mid := conv.ChartToCanvas(chartAt(0.5, 150))
	if _, ok := FindDrawingAtPoint([]model.Drawing{d}, mid, conv); !ok {
		t.Error("point on segment midpoint should hit the trendline")
	}

	far := PixelPoint{X: mid.X, Y: mid.Y - 40}
	if _, ok := FindDrawingAtPoint([]model.Drawing{d}, far, conv); ok {
		t.Error("point 40px off the segment should miss")
	}
}

func TestHitTest_Rectangle_InsideAndEdge(t *testing.T) {
	conv := testConverter()
	d := rectangle(chartAt(0.3, 130), chartAt(0.6, 170))

	inside := conv.ChartToCanvas(chartAt(0.45, 150))
	if _, ok := FindDrawingAtPoint([]model.Drawing{d}, inside, conv); !ok {
		t.Error("interior point should hit the rectangle")
	}

	// Just past an edge but within tolerance.
	corner := conv.ChartToCanvas(chartAt(0.3, 170))
	nearEdge := PixelPoint{X: corner.X - 4, Y: corner.Y - 4}
	if _, ok := FindDrawingAtPoint([]model.Drawing{d}, nearEdge, conv); !ok {
		t.Error("point within edge tolerance should hit")
	}

	wayOut := conv.ChartToCanvas(chartAt(0.9, 195))
	if _, ok := FindDrawingAtPoint([]model.Drawing{d}, wayOut, conv); ok {
		t.Error("distant point should miss the rectangle")
	}
}

func TestHitTest_HorizontalAndVerticalLines(t *testing.T) {
	conv := testConverter()
	h := model.NewDrawing(model.DrawingHorizontalLine, chartAt(0.5, 150))
	v := model.NewDrawing(model.DrawingVerticalLine, chartAt(0.5, 150))

	lineY := conv.ChartToCanvas(chartAt(0.5, 150)).Y
	lineX := conv.ChartToCanvas(chartAt(0.5, 150)).X

	// A horizontal line spans the full plot width.
	if _, ok := FindDrawingAtPoint([]model.Drawing{h}, PixelPoint{X: 60, Y: lineY + 3}, conv); !ok {
		t.Error("point near horizontal line should hit anywhere along the width")
	}
	if _, ok := FindDrawingAtPoint([]model.Drawing{h}, PixelPoint{X: 60, Y: lineY + 20}, conv); ok {
		t.Error("point 20px from horizontal line should miss")
	}

	if _, ok := FindDrawingAtPoint([]model.Drawing{v}, PixelPoint{X: lineX - 3, Y: 30}, conv); !ok {
		t.Error("point near vertical line should hit anywhere along the height")
	}
}

func TestHitTest_Text(t *testing.T) {
	conv := testConverter()
	d := model.NewDrawing(model.DrawingText, chartAt(0.5, 150))
	d.Text = "support zone"

	anchor := conv.ChartToCanvas(chartAt(0.5, 150))
	within := PixelPoint{X: anchor.X + 30, Y: anchor.Y + 8}
	if _, ok := FindDrawingAtPoint([]model.Drawing{d}, within, conv); !ok {
		t.Error("point inside text bounding box should hit")
	}
	above := PixelPoint{X: anchor.X + 30, Y: anchor.Y - 30}
	if _, ok := FindDrawingAtPoint([]model.Drawing{d}, above, conv); ok {
		t.Error("point above the text box should miss")
	}
}

func TestHitTest_TopmostWins(t *testing.T) {
	// Two overlapping rectangles: A created first, B second. A shared
	// interior point must resolve to B.
	conv := testConverter()
	a := rectangle(chartAt(0.2, 120), chartAt(0.6, 170))
	b := rectangle(chartAt(0.4, 140), chartAt(0.8, 190))

	shared := conv.ChartToCanvas(chartAt(0.5, 155))
	hit, ok := FindDrawingAtPoint([]model.Drawing{a, b}, shared, conv)
	if !ok {
		t.Fatal("shared point should hit")
	}
	if hit.ID != b.ID {
		t.Error("overlapping hit must resolve to the most recently drawn shape")
	}
}

func TestHitTest_DeadConverter_NoHit(t *testing.T) {
	d := rectangle(chartAt(0.2, 120), chartAt(0.6, 170))
	dead := NewConverter(RenderState{})
	if _, ok := FindDrawingAtPoint([]model.Drawing{d}, PixelPoint{X: 100, Y: 100}, dead); ok {
		t.Error("dead converter must produce no hits")
	}
}

func TestCursorFor(t *testing.T) {
	conv := testConverter()
	d := rectangle(chartAt(0.3, 130), chartAt(0.6, 170))
	inside := conv.ChartToCanvas(chartAt(0.45, 150))
	outside := conv.ChartToCanvas(chartAt(0.9, 195))

	if got := CursorFor([]model.Drawing{d}, inside, conv, ""); got != CursorPointer {
		t.Errorf("unselected hit: cursor %v, want pointer", got)
	}
	if got := CursorFor([]model.Drawing{d}, inside, conv, d.ID); got != CursorMove {
		t.Errorf("selected hit: cursor %v, want move", got)
	}
	if got := CursorFor([]model.Drawing{d}, outside, conv, ""); got != CursorDefault {
		t.Errorf("miss: cursor %v, want default", got)
	}
}

// ────────────────────────────────────────────────────────────
// Drag translation
// ────────────────────────────────────────────────────────────

func TestMoveDrawing_PreservesShape(t *testing.T) {
	rect := rectangle(chartAt(0.3, 130), chartAt(0.6, 170))
	by := Offset{Time: 36 * time.Hour, Price: -12.5}

	moved := MoveDrawing(rect, by)

	for i := range rect.Points {
		wantTS := rect.Points[i].TS.Add(by.Time)
		if !moved.Points[i].TS.Equal(wantTS) {
			t.Errorf("point %d time: got %v, want %v", i, moved.Points[i].TS, wantTS)
		}
		if math.Abs(moved.Points[i].Price-(rect.Points[i].Price+by.Price)) > 1e-9 {
			t.Errorf("point %d price not translated by offset", i)
		}
	}

	// Width/height derived from point deltas are unchanged.
	origW := rect.Points[1].TS.Sub(rect.Points[0].TS)
	movedW := moved.Points[1].TS.Sub(moved.Points[0].TS)
	if origW != movedW {
		t.Error("translation changed the rectangle width")
	}
	origH := rect.Points[1].Price - rect.Points[0].Price
	movedH := moved.Points[1].Price - moved.Points[0].Price
	if math.Abs(origH-movedH) > 1e-9 {
		t.Error("translation changed the rectangle height")
	}

	// Functional update: the original is untouched.
	if !rect.Points[0].TS.Equal(chartAt(0.3, 130).TS) {
		t.Error("MoveDrawing mutated the original drawing")
	}
}

func TestDragOffset_PreservesGrabPosition(t *testing.T) {
	d := trendline(chartAt(0.2, 120), chartAt(0.8, 180))
	grab := chartAt(0.5, 150)

	off := DragOffset(grab, d)
	if off.Time != grab.TS.Sub(d.Points[0].TS) {
		t.Error("time offset should be grab minus anchor")
	}
	if math.Abs(off.Price-(grab.Price-d.Points[0].Price)) > 1e-9 {
		t.Error("price offset should be grab minus anchor")
	}
}
