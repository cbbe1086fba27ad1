package chart

import (
	"charting-systemv1/internal/model"
)

// Tool is the active drawing tool. ToolSelect is the default
// hit-test/selection mode.
type Tool string

const (
	ToolSelect         Tool = "select"
	ToolTrendline      Tool = "trendline"
	ToolRectangle      Tool = "rectangle"
	ToolHorizontalLine Tool = "horizontal_line"
	ToolVerticalLine   Tool = "vertical_line"
	ToolText           Tool = "text"
)

// DrawingType maps a drawing tool to the shape it creates.
// ok=false for ToolSelect.
func (t Tool) DrawingType() (model.DrawingType, bool) {
	switch t {
	case ToolTrendline:
		return model.DrawingTrendline, true
	case ToolRectangle:
		return model.DrawingRectangle, true
	case ToolHorizontalLine:
		return model.DrawingHorizontalLine, true
	case ToolVerticalLine:
		return model.DrawingVerticalLine, true
	case ToolText:
		return model.DrawingText, true
	}
	return "", false
}

// Cursor is the glyph the host surface should display. The state machine
// only reports it; the host owns the actual cursor.
type Cursor string

const (
	CursorDefault Cursor = "default"
	CursorPointer Cursor = "pointer"
	CursorMove    Cursor = "move"
)

// Host is the surface a session reports side effects to. Both methods are
// optional conveniences for interactive hosts; a nil Host is legal.
type Host interface {
	// SetCursor tells the host which cursor glyph to display.
	SetCursor(c Cursor)

	// OpenTextEditor asks the host to show an editable text overlay for
	// the drawing. The host calls back CommitText or CancelText.
	OpenTextEditor(d model.Drawing)
}

// textEdit tracks the modal text-edit sub-state.
type textEdit struct {
	drawingID string
	priorText string
	created   bool // speculative creation: cancel deletes the drawing
}

// Session is the drawing interaction state machine for one symbol on one
// chart view. All transitions run on the host's event goroutine; Session
// does no locking of its own.
//
// The drawings slice is copy-on-write: every mutation builds a new slice
// and bumps the version counter, so autosave and render snapshots never
// alias in-flight edits.
type Session struct {
	symbol string
	host   Host

	activeTool Tool
	drawings   []model.Drawing
	selectedID string

	isDrawing  bool
	current    *model.Drawing // provisional two-point drawing
	isDragging bool
	dragStart  model.ChartPoint
	dragOffset Offset

	editing *textEdit

	version uint64
	dirty   bool
}

// NewSession creates a session for symbol seeded with its persisted
// drawings. Switching symbols means discarding the old session and
// creating a fresh one; any in-progress drawing or drag is abandoned
// silently.
func NewSession(symbol string, drawings []model.Drawing, host Host) *Session {
	owned := make([]model.Drawing, len(drawings))
	for i, d := range drawings {
		owned[i] = d.Clone()
		owned[i].Selected = false
	}
	return &Session{
		symbol:     symbol,
		host:       host,
		activeTool: ToolSelect,
		drawings:   owned,
	}
}

// Symbol returns the symbol this session belongs to.
func (s *Session) Symbol() string { return s.symbol }

// ActiveTool returns the current tool.
func (s *Session) ActiveTool() Tool { return s.activeTool }

// SelectedID returns the id of the selected drawing, or "".
func (s *Session) SelectedID() string { return s.selectedID }

// Drawing reports whether a two-point drawing is in progress.
func (s *Session) Drawing() bool { return s.isDrawing }

// Dragging reports whether a drag session is active.
func (s *Session) Dragging() bool { return s.isDragging }

// Editing reports whether the modal text editor is open.
func (s *Session) Editing() bool { return s.editing != nil }

// Version increments on every drawings mutation.
func (s *Session) Version() uint64 { return s.version }

// Drawings returns the persisted drawing set. Callers must not mutate;
// the slice is replaced wholesale on every change.
func (s *Session) Drawings() []model.Drawing { return s.drawings }

// Current returns the in-progress provisional drawing, or nil.
func (s *Session) Current() *model.Drawing { return s.current }

// ConsumeDirty returns whether drawings changed since the last call and
// resets the flag. The autosave loop polls this.
func (s *Session) ConsumeDirty() bool {
	d := s.dirty
	s.dirty = false
	return d
}

// SetTool activates a tool. Any in-progress drawing is discarded and the
// selection cleared, whether entering a drawing tool or select mode.
func (s *Session) SetTool(t Tool) {
	if s.editing != nil {
		return // text editor owns input while open
	}
	s.activeTool = t
	s.isDrawing = false
	s.current = nil
	s.endDrag()
	s.deselect()
}

// PointerDown handles a pointer press. conv must be built from the
// current render state; a dead converter makes this a no-op, which is
// routine during mount/unmount races, not an error.
func (s *Session) PointerDown(p PixelPoint, conv *Converter) {
	if s.editing != nil {
		return // modal: text editor suppresses pointer handling
	}
	if !conv.Live() || !conv.IsPointInChart(p) {
		return
	}
	at := conv.CanvasToChart(p)

	if s.activeTool == ToolSelect {
		s.pointerDownSelect(p, at, conv)
		return
	}

	dtype, ok := s.activeTool.DrawingType()
	if !ok {
		return
	}

	switch {
	case dtype == model.DrawingText:
		// Create speculatively with empty text and open the editor
		// immediately rather than waiting for pointer-up.
		d := model.NewDrawing(dtype, at)
		d.Selected = true
		s.deselect()
		s.appendDrawing(d)
		s.selectedID = d.ID
		s.editing = &textEdit{drawingID: d.ID, created: true}
		if s.host != nil {
			s.host.OpenTextEditor(d)
		}

	case dtype.TwoPoint():
		d := model.NewDrawing(dtype, at)
		s.isDrawing = true
		s.current = &d

	default:
		// Single-point tools persist immediately; the tool stays active
		// for rapid multi-placement.
		s.appendDrawing(model.NewDrawing(dtype, at))
	}
}

func (s *Session) pointerDownSelect(p PixelPoint, at model.ChartPoint, conv *Converter) {
	hit, ok := FindDrawingAtPoint(s.drawings, p, conv)
	if !ok {
		s.deselect()
		return
	}
	if hit.ID == s.selectedID {
		// Second press on the selected drawing begins a drag.
		s.isDragging = true
		s.dragStart = at
		s.dragOffset = DragOffset(at, hit)
		return
	}
	s.selectOnly(hit.ID)
}

// PointerMove handles pointer movement: drag translation, rubber-band
// preview, or cursor glyph probing depending on state.
func (s *Session) PointerMove(p PixelPoint, conv *Converter) {
	if s.editing != nil || !conv.Live() {
		return
	}
	at := conv.CanvasToChart(p)

	switch {
	case s.isDragging && s.selectedID != "":
		idx := s.indexOf(s.selectedID)
		if idx < 0 {
			return
		}
		// New anchor follows the cursor minus the grab offset.
		d := s.drawings[idx]
		delta := Offset{
			Time:  at.TS.Add(-s.dragOffset.Time).Sub(d.Points[0].TS),
			Price: at.Price - s.dragOffset.Price - d.Points[0].Price,
		}
		s.replaceDrawing(idx, MoveDrawing(d, delta))

	case s.isDrawing && s.current != nil:
		// Rubber-band: live second point until pointer-up commits.
		if len(s.current.Points) == 1 {
			s.current.Points = append(s.current.Points, at)
		} else {
			s.current.Points[1] = at
		}

	default:
		if s.host != nil {
			s.host.SetCursor(CursorFor(s.drawings, p, conv, s.selectedID))
		}
	}
}

// PointerUp completes a drag or commits an in-progress two-point drawing.
// The active tool stays armed after a commit.
func (s *Session) PointerUp(p PixelPoint, conv *Converter) {
	if s.editing != nil {
		return
	}

	if s.isDragging {
		s.endDrag()
		s.dirty = true // selection kept, final position persists
		return
	}

	if s.isDrawing && s.current != nil {
		d := *s.current
		if conv.Live() {
			at := conv.CanvasToChart(p)
			if len(d.Points) == 1 {
				d.Points = append(d.Points, at)
			} else {
				d.Points[1] = at
			}
		} else if len(d.Points) == 1 {
			// Chart vanished mid-gesture: degenerate but complete.
			d.Points = append(d.Points, d.Points[0])
		}
		s.isDrawing = false
		s.current = nil
		s.appendDrawing(d)
	}
}

// DoubleClick re-opens the text editor for an existing text drawing while
// in select mode.
func (s *Session) DoubleClick(p PixelPoint, conv *Converter) {
	if s.editing != nil || s.activeTool != ToolSelect {
		return
	}
	hit, ok := FindDrawingAtPoint(s.drawings, p, conv)
	if !ok || hit.Type != model.DrawingText {
		return
	}
	s.selectOnly(hit.ID)
	s.editing = &textEdit{drawingID: hit.ID, priorText: hit.Text}
	if s.host != nil {
		s.host.OpenTextEditor(hit)
	}
}

// Escape cancels any in-progress drawing and reverts to select mode with
// selections cleared. Does nothing while the text editor is open — the
// editor owns Escape.
func (s *Session) Escape() {
	if s.editing != nil {
		return
	}
	if s.activeTool == ToolSelect {
		return
	}
	s.activeTool = ToolSelect
	s.isDrawing = false
	s.current = nil
	s.endDrag()
	s.deselect()
}

// DeleteSelected removes the selected drawing (Delete/Backspace). No-op
// while the text editor is open or without a selection.
func (s *Session) DeleteSelected() {
	if s.editing != nil || s.selectedID == "" {
		return
	}
	s.removeDrawing(s.selectedID)
	s.selectedID = ""
}

// ClearAll removes every drawing and clears the selection.
func (s *Session) ClearAll() {
	s.drawings = nil
	s.selectedID = ""
	s.isDrawing = false
	s.current = nil
	s.endDrag()
	s.version++
	s.dirty = true
}

// CommitText finishes a text edit. Non-empty text updates the drawing;
// empty text deletes it instead and clears the selection.
func (s *Session) CommitText(text string, formatting model.TextFormatting) {
	if s.editing == nil {
		return
	}
	id := s.editing.drawingID
	s.editing = nil

	if text == "" {
		s.removeDrawing(id)
		if s.selectedID == id {
			s.selectedID = ""
		}
		return
	}

	idx := s.indexOf(id)
	if idx < 0 {
		return
	}
	d := s.drawings[idx].Clone()
	d.Text = text
	d.Formatting = formatting
	s.replaceDrawing(idx, d)
}

// CancelText abandons a text edit. A speculatively created drawing (new,
// no prior content) is deleted; an existing one keeps its prior content.
func (s *Session) CancelText() {
	if s.editing == nil {
		return
	}
	edit := s.editing
	s.editing = nil

	if edit.created {
		s.removeDrawing(edit.drawingID)
		if s.selectedID == edit.drawingID {
			s.selectedID = ""
		}
	}
}

// ── copy-on-write drawing set helpers ──

func (s *Session) indexOf(id string) int {
	for i := range s.drawings {
		if s.drawings[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Session) appendDrawing(d model.Drawing) {
	next := make([]model.Drawing, len(s.drawings)+1)
	copy(next, s.drawings)
	next[len(s.drawings)] = d
	s.drawings = next
	s.version++
	s.dirty = true
}

func (s *Session) replaceDrawing(idx int, d model.Drawing) {
	next := make([]model.Drawing, len(s.drawings))
	copy(next, s.drawings)
	next[idx] = d
	s.drawings = next
	s.version++
	s.dirty = true
}

func (s *Session) removeDrawing(id string) {
	idx := s.indexOf(id)
	if idx < 0 {
		return
	}
	next := make([]model.Drawing, 0, len(s.drawings)-1)
	next = append(next, s.drawings[:idx]...)
	next = append(next, s.drawings[idx+1:]...)
	s.drawings = next
	s.version++
	s.dirty = true
}

// selectOnly marks one drawing selected and all others deselected.
func (s *Session) selectOnly(id string) {
	next := make([]model.Drawing, len(s.drawings))
	for i, d := range s.drawings {
		next[i] = d
		next[i].Selected = d.ID == id
	}
	s.drawings = next
	s.selectedID = id
	s.version++
}

func (s *Session) deselect() {
	if s.selectedID == "" {
		return
	}
	next := make([]model.Drawing, len(s.drawings))
	for i, d := range s.drawings {
		next[i] = d
		next[i].Selected = false
	}
	s.drawings = next
	s.selectedID = ""
	s.version++
}

func (s *Session) endDrag() {
	s.isDragging = false
	s.dragStart = model.ChartPoint{}
	s.dragOffset = Offset{}
}
