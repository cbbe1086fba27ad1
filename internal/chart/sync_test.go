package chart

import (
	"testing"
	"time"
)

// fakePane is a ChartView whose zoom-completion callback can cascade back
// into the synchronizer, mimicking a rendering layer that fires its own
// completion event on programmatic range changes.
type fakePane struct {
	rng      TimeRange
	live     bool
	applied  int
	onZoomed func()
}

func (p *fakePane) TimeRange() (TimeRange, bool) { return p.rng, p.live }

func (p *fakePane) ZoomToRange(r TimeRange) {
	p.rng = r
	p.applied++
	if p.onZoomed != nil {
		p.onZoomed()
	}
}

func window(h1, h2 int) TimeRange {
	return TimeRange{Min: t0.Add(time.Duration(h1) * time.Hour), Max: t0.Add(time.Duration(h2) * time.Hour)}
}

func TestSync_MirrorsRange(t *testing.T) {
	price := &fakePane{rng: window(0, 48), live: true}
	volume := &fakePane{rng: window(0, 240), live: true}
	s := NewSynchronizerWithHold(5 * time.Millisecond)

	s.Mirror(price, volume)

	if volume.rng != price.rng {
		t.Errorf("volume range %+v, want %+v", volume.rng, price.rng)
	}
	if s.Applied() != 1 {
		t.Errorf("applied: got %d, want 1", s.Applied())
	}
}

func TestSync_ReentrantCallbackSuppressed(t *testing.T) {
	// Applying the range to the volume chart fires its own completion
	// callback, which mirrors back to the price chart. The guard must
	// absorb it with no cascade.
	price := &fakePane{rng: window(0, 48), live: true}
	volume := &fakePane{live: true}
	s := NewSynchronizerWithHold(20 * time.Millisecond)
	volume.onZoomed = func() { s.Mirror(volume, price) }

	s.Mirror(price, volume)

	if price.applied != 0 {
		t.Error("cascaded mirror must be suppressed by the guard")
	}
	if s.Suppressed() != 1 {
		t.Errorf("suppressed: got %d, want 1", s.Suppressed())
	}
}

func TestSync_Idempotent(t *testing.T) {
	// A second identical zoom event immediately after the first neither
	// toggles the target range away nor causes a second cascade.
	price := &fakePane{rng: window(12, 60), live: true}
	volume := &fakePane{live: true}
	s := NewSynchronizerWithHold(5 * time.Millisecond)

	s.Mirror(price, volume)
	s.Mirror(price, volume) // within guard window: absorbed

	if volume.rng != window(12, 60) {
		t.Errorf("volume range drifted: %+v", volume.rng)
	}

	// After the guard releases, the same event applies cleanly and the
	// range is unchanged.
	time.Sleep(30 * time.Millisecond)
	s.Mirror(price, volume)
	if volume.rng != window(12, 60) {
		t.Errorf("repeated identical sync changed the range: %+v", volume.rng)
	}
	if volume.applied != 2 {
		t.Errorf("applied count: got %d, want 2", volume.applied)
	}
}

func TestSync_SkipsWhenSourceNotRendered(t *testing.T) {
	price := &fakePane{live: false}
	volume := &fakePane{rng: window(0, 24), live: true}
	s := NewSynchronizerWithHold(5 * time.Millisecond)

	s.Mirror(price, volume)

	if volume.applied != 0 {
		t.Error("sync from an unrendered chart must be skipped")
	}

	// Guard must be released immediately: a later legitimate sync works
	// without waiting out the hold.
	price.live = true
	price.rng = window(6, 30)
	s.Mirror(price, volume)
	if volume.rng != window(6, 30) {
		t.Error("guard not released after a skipped sync")
	}
}

func TestSync_SkipsWhenTargetNotRendered(t *testing.T) {
	price := &fakePane{rng: window(0, 48), live: true}
	volume := &fakePane{live: false}
	s := NewSynchronizerWithHold(5 * time.Millisecond)

	s.Mirror(price, volume)

	if volume.applied != 0 {
		t.Error("sync onto an unrendered chart must be skipped")
	}
	if s.Applied() != 0 {
		t.Errorf("applied count after skip: got %d, want 0", s.Applied())
	}

	// Guard releases immediately on the skip path here too.
	volume.live = true
	s.Mirror(price, volume)
	if volume.rng != window(0, 48) {
		t.Error("guard not released after skipping an unrendered target")
	}
}
