package chart

import (
	"sync/atomic"
	"time"
)

// defaultGuardHold is how long the reentrancy guard stays set after a
// mirrored range is applied: long enough for the triggered redraw's own
// completion callback to fire and be ignored, short enough not to block
// the next legitimate user gesture.
const defaultGuardHold = 100 * time.Millisecond

// TimeRange is a visible time window on a chart's X axis.
type TimeRange struct {
	Min time.Time `json:"min"`
	Max time.Time `json:"max"`
}

// ChartView is one independently zoomable chart pane exposed by the
// rendering layer.
type ChartView interface {
	// TimeRange returns the current visible window. ok=false when the
	// chart has no live scale (not rendered / no data).
	TimeRange() (TimeRange, bool)

	// ZoomToRange applies a time window. Implementations prefer a direct
	// zoom-to-range primitive and fall back to mutating axis bounds plus
	// a forced redraw. Applying a range may synchronously fire the
	// chart's own zoom-completion callback.
	ZoomToRange(r TimeRange)
}

// Synchronizer keeps two charts (price, volume) showing the same visible
// time window without feedback loops. Zoom/pan completion on either chart
// calls Mirror with the triggering chart as source.
//
// The guard is an atomic flag, not a mutex: there is no true parallelism
// here, only synchronous re-entrant callbacks fired by programmatic axis
// updates.
type Synchronizer struct {
	guard    atomic.Bool
	hold     time.Duration
	applied  atomic.Uint64
	dropped  atomic.Uint64
	OnMirror func(r TimeRange) // optional observability hook
}

// NewSynchronizer creates a synchronizer with the default guard hold.
func NewSynchronizer() *Synchronizer {
	return &Synchronizer{hold: defaultGuardHold}
}

// NewSynchronizerWithHold overrides the guard hold, mainly for tests.
func NewSynchronizerWithHold(hold time.Duration) *Synchronizer {
	return &Synchronizer{hold: hold}
}

// Mirror propagates the source chart's visible window to the target.
// Re-entrant calls while a sync is in flight are suppressed silently;
// charts without a live scale are skipped silently (routine during
// initial load, not an error).
func (s *Synchronizer) Mirror(source, target ChartView) {
	if !s.guard.CompareAndSwap(false, true) {
		s.dropped.Add(1)
		return
	}

	r, ok := source.TimeRange()
	if !ok || target == nil {
		s.guard.Store(false)
		return
	}
	if _, ok := target.TimeRange(); !ok {
		s.guard.Store(false)
		return
	}

	target.ZoomToRange(r)
	s.applied.Add(1)
	if s.OnMirror != nil {
		s.OnMirror(r)
	}

	// Release after the hold so the mirrored redraw's completion
	// callback lands while the guard is still set.
	time.AfterFunc(s.hold, func() { s.guard.Store(false) })
}

// Applied returns the number of mirrored range applications.
func (s *Synchronizer) Applied() uint64 { return s.applied.Load() }

// Suppressed returns the number of re-entrant calls the guard absorbed.
func (s *Synchronizer) Suppressed() uint64 { return s.dropped.Load() }
