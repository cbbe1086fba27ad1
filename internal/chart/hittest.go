package chart

import (
	"math"
	"time"

	"charting-systemv1/internal/model"
)

// Hit tolerances in pixels, per drawing type.
const (
	lineHitTolerance = 6.0
	edgeHitTolerance = 6.0
	textHitPadding   = 4.0
)

// Approximate glyph metrics for text bounding boxes. The host renders the
// actual text; these only need to be close enough for hit-testing.
const (
	textGlyphWidthRatio = 0.6
	textLineHeightRatio = 1.4
	textMinHitWidth     = 24.0
)

// FindDrawingAtPoint returns the topmost drawing hit by a pixel point.
// Drawings are tested in reverse creation order so overlapping shapes
// resolve to the most recently drawn one. Requires a live converter;
// returns no hit otherwise.
func FindDrawingAtPoint(drawings []model.Drawing, p PixelPoint, conv *Converter) (model.Drawing, bool) {
	if !conv.Live() {
		return model.Drawing{}, false
	}
	for i := len(drawings) - 1; i >= 0; i-- {
		if hitDrawing(drawings[i], p, conv) {
			return drawings[i], true
		}
	}
	return model.Drawing{}, false
}

// CursorFor chooses the cursor glyph for a pixel position. Same hit path
// as FindDrawingAtPoint but runs on every mouse move, so it must stay
// cheap and must not mutate state or log.
func CursorFor(drawings []model.Drawing, p PixelPoint, conv *Converter, selectedID string) Cursor {
	d, ok := FindDrawingAtPoint(drawings, p, conv)
	if !ok {
		return CursorDefault
	}
	if d.ID == selectedID {
		return CursorMove
	}
	return CursorPointer
}

func hitDrawing(d model.Drawing, p PixelPoint, conv *Converter) bool {
	if len(d.Points) == 0 {
		return false
	}
	switch d.Type {
	case model.DrawingTrendline:
		if len(d.Points) < 2 {
			return false
		}
		a := conv.ChartToCanvas(d.Points[0])
		b := conv.ChartToCanvas(d.Points[1])
		return distToSegment(p, a, b) <= lineHitTolerance

	case model.DrawingRectangle:
		if len(d.Points) < 2 {
			return false
		}
		a := conv.ChartToCanvas(d.Points[0])
		b := conv.ChartToCanvas(d.Points[1])
		r := normalizedRect(a, b)
		grown := Rect{
			Left: r.Left - edgeHitTolerance, Top: r.Top - edgeHitTolerance,
			Right: r.Right + edgeHitTolerance, Bottom: r.Bottom + edgeHitTolerance,
		}
		return grown.Contains(p)

	case model.DrawingHorizontalLine:
		y := conv.ChartToCanvas(d.Points[0]).Y
		return math.Abs(p.Y-y) <= lineHitTolerance

	case model.DrawingVerticalLine:
		x := conv.ChartToCanvas(d.Points[0]).X
		return math.Abs(p.X-x) <= lineHitTolerance

	case model.DrawingText:
		return textBounds(d, conv).Contains(p)
	}
	return false
}

// textBounds approximates the rendered bounding box of a text drawing.
func textBounds(d model.Drawing, conv *Converter) Rect {
	anchor := conv.ChartToCanvas(d.Points[0])
	size := float64(d.Formatting.FontSize)
	if size <= 0 {
		size = float64(model.DefaultTextFormatting().FontSize)
	}
	w := float64(len(d.Text)) * size * textGlyphWidthRatio
	if w < textMinHitWidth {
		w = textMinHitWidth
	}
	h := size * textLineHeightRatio
	return Rect{
		Left: anchor.X - textHitPadding, Top: anchor.Y - textHitPadding,
		Right: anchor.X + w + textHitPadding, Bottom: anchor.Y + h + textHitPadding,
	}
}

func normalizedRect(a, b PixelPoint) Rect {
	return Rect{
		Left:   math.Min(a.X, b.X),
		Top:    math.Min(a.Y, b.Y),
		Right:  math.Max(a.X, b.X),
		Bottom: math.Max(a.Y, b.Y),
	}
}

// distToSegment is the pixel distance from p to segment ab.
func distToSegment(p, a, b PixelPoint) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(p.X-(a.X+t*dx), p.Y-(a.Y+t*dy))
}

// Offset is a chart-space translation vector.
type Offset struct {
	Time  time.Duration
	Price float64
}

// DragOffset records the vector from a drawing's anchor (first point) to
// the click location at drag start, so dragging preserves the grab
// position rather than snapping the anchor to the cursor.
func DragOffset(at model.ChartPoint, d model.Drawing) Offset {
	if len(d.Points) == 0 {
		return Offset{}
	}
	anchor := d.Points[0]
	return Offset{Time: at.TS.Sub(anchor.TS), Price: at.Price - anchor.Price}
}

// MoveDrawing returns a copy of d with every point translated by the
// offset. The original is untouched: drag updates must integrate with
// store diffing and autosave without aliasing the persisted set.
func MoveDrawing(d model.Drawing, by Offset) model.Drawing {
	out := d.Clone()
	for i := range out.Points {
		out.Points[i].TS = out.Points[i].TS.Add(by.Time)
		out.Points[i].Price += by.Price
	}
	return out
}
