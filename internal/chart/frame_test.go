package chart

import (
	"testing"
	"time"

	"charting-systemv1/internal/indicator"
	"charting-systemv1/internal/model"
)

func dailySeries(symbol string, n int) model.Series {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := make(model.Series, n)
	for i := 0; i < n; i++ {
		c := 150 + 10*float64(i%9)/9 + float64(i)/10
		s[i] = model.Candle{
			Symbol: symbol,
			TS:     start.AddDate(0, 0, i),
			Open:   c - 0.5, High: c + 1, Low: c - 1, Close: c,
			Volume: 1e6 + float64(i)*1000,
		}
	}
	return s
}

func TestFrame_EndToEnd_SMA20_RSI14(t *testing.T) {
	// Load AAPL with a 90-candle daily series and enable sma20 + rsi14:
	// the frame must contain exactly 3 series groups (price, SMA, RSI),
	// the RSI group carrying 4 sub-series (RSI + 2 bands + midline),
	// with the documented warm-up gaps.
	registry := indicator.NewRegistry()
	builder := NewFrameBuilder(registry, nil)

	settings := model.DefaultSettings()
	settings.EnabledIndicatorIDs = []string{"sma20", "rsi14"}

	frame := builder.Build("AAPL", settings, dailySeries("AAPL", 90), nil)

	if len(frame.Groups) != 3 {
		t.Fatalf("series groups: got %d, want 3", len(frame.Groups))
	}
	if frame.Groups[0].ConfigID != "" {
		t.Error("first group must be the base price group")
	}

	sma := frame.Groups[1]
	if sma.ConfigID != "sma20" || len(sma.Datasets) != 1 {
		t.Fatalf("unexpected SMA group: %+v", sma.ConfigID)
	}
	for i := 0; i < 19; i++ {
		if sma.Datasets[0].Points[i].Valid {
			t.Errorf("SMA point %d: expected warm-up gap", i)
		}
	}
	if !sma.Datasets[0].Points[19].Valid {
		t.Error("SMA point 19: expected first valid value")
	}

	rsi := frame.Groups[2]
	if rsi.ConfigID != "rsi14" || len(rsi.Datasets) != 4 {
		t.Fatalf("RSI group should carry 4 sub-series, got %d", len(rsi.Datasets))
	}
	rsiLine := rsi.Datasets[0]
	for i := 0; i < 14; i++ {
		if rsiLine.Points[i].Valid {
			t.Errorf("RSI point %d: expected warm-up gap", i)
		}
	}
	if !rsiLine.Points[14].Valid {
		t.Error("RSI point 14: expected first valid value")
	}
	if len(rsi.Axes) != 1 || !rsi.Axes[0].Fixed {
		t.Error("RSI group must declare its fixed 0-100 axis")
	}

	if len(frame.Volume.Points) != 90 {
		t.Errorf("volume dataset: got %d points, want 90", len(frame.Volume.Points))
	}
}

func TestFrame_EmptySeries(t *testing.T) {
	registry := indicator.NewRegistry()
	builder := NewFrameBuilder(registry, nil)

	settings := model.DefaultSettings()
	settings.EnabledIndicatorIDs = []string{"sma20", "macd", "rsi14"}

	frame := builder.Build("EMPTY", settings, model.Series{}, nil)

	// All groups present (or harmlessly empty), nothing valid, no panic.
	for _, g := range frame.Groups {
		for _, d := range g.Datasets {
			for _, pt := range d.Points {
				if pt.Valid {
					t.Errorf("group %q: valid point on empty series", g.ConfigID)
				}
			}
		}
	}
}

func TestFrame_FailedIndicatorIsolated(t *testing.T) {
	// One bad config must not block the price group or other indicators.
	registry := indicator.NewRegistry()
	registry.AddConfig(indicator.Config{
		ID: "rsibad", TypeID: "rsi",
		Params: indicator.Params{"overbought": 10.0},
	})
	builder := NewFrameBuilder(registry, nil)

	failures := 0
	builder.OnIndicatorError = func(string) { failures++ }

	settings := model.DefaultSettings()
	settings.EnabledIndicatorIDs = []string{"rsibad", "sma20", "ghost"}

	frame := builder.Build("AAPL", settings, dailySeries("AAPL", 40), nil)

	if len(frame.Groups) != 2 {
		t.Fatalf("groups: got %d, want 2 (price + sma20)", len(frame.Groups))
	}
	if frame.Groups[1].ConfigID != "sma20" {
		t.Error("healthy indicator should survive neighbours failing")
	}
	if failures != 2 {
		t.Errorf("failure hook: got %d calls, want 2", failures)
	}
}

func TestFrame_IncludesSessionDrawings(t *testing.T) {
	registry := indicator.NewRegistry()
	builder := NewFrameBuilder(registry, nil)

	session := NewSession("AAPL", []model.Drawing{
		model.NewDrawing(model.DrawingHorizontalLine, chartAt(0.5, 150)),
	}, nil)

	frame := builder.Build("AAPL", model.DefaultSettings(), dailySeries("AAPL", 10), session)
	if len(frame.Drawings) != 1 {
		t.Errorf("frame drawings: got %d, want 1", len(frame.Drawings))
	}
}
