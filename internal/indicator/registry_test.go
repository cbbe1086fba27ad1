package indicator

import (
	"errors"
	"testing"

	"charting-systemv1/internal/model"
)

func testSeries(n int) model.Series {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 100 + float64(i%7)
	}
	return seriesOf(closes...)
}

func TestRegistry_BuiltinConfigs(t *testing.T) {
	r := NewRegistry()

	for _, id := range []string{"sma20", "sma50", "ema20", "smma14", "macd", "rsi14"} {
		cfg, ok := r.GetConfig(id)
		if !ok {
			t.Fatalf("built-in config %q missing", id)
		}
		if cfg.Enabled {
			t.Errorf("%q: built-ins start disabled", id)
		}
		if cfg.Defaults == nil {
			t.Errorf("%q: defaults not filled from calculator", id)
		}
	}

	if got := len(r.ConfigsByCategory(CategoryOscillator)); got != 2 {
		t.Errorf("oscillator configs: got %d, want 2 (macd, rsi14)", got)
	}
}

func TestRegistry_Calculate_ResolvesByTypeID(t *testing.T) {
	r := NewRegistry()
	res, err := r.Calculate("sma50", testSeries(60))
	if err != nil {
		t.Fatalf("Calculate(sma50): %v", err)
	}
	pts := res.Datasets[0].Points
	if pts[48].Valid || !pts[49].Valid {
		t.Error("sma50 warm-up boundary wrong: period override not applied")
	}
}

func TestRegistry_Calculate_PrefixFallback(t *testing.T) {
	// Configs added without a TypeID fall back to longest-prefix matching:
	// "sma200" → sma, "smma20" → smma (not sma).
	r := NewRegistry()
	r.AddConfig(Config{ID: "sma200", Params: Params{"period": 5}})
	r.AddConfig(Config{ID: "smma20", Params: Params{"period": 5}})

	if _, err := r.Calculate("sma200", testSeries(10)); err != nil {
		t.Errorf("prefix fallback sma200: %v", err)
	}
	res, err := r.Calculate("smma20", testSeries(10))
	if err != nil {
		t.Fatalf("prefix fallback smma20: %v", err)
	}
	if res.Datasets[0].Label != "SMMA 5" {
		t.Errorf("smma20 resolved to %q, want the smma calculator", res.Datasets[0].Label)
	}
}

func TestRegistry_Calculate_Errors(t *testing.T) {
	r := NewRegistry()

	_, err := r.Calculate("nope", testSeries(10))
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("unknown config: got %v, want ErrConfigNotFound", err)
	}

	r.AddConfig(Config{ID: "mystery", TypeID: "bollinger"})
	_, err = r.Calculate("mystery", testSeries(10))
	if !errors.Is(err, ErrCalculatorNotFound) {
		t.Errorf("unregistered type: got %v, want ErrCalculatorNotFound", err)
	}

	r.AddConfig(Config{ID: "badrsi", TypeID: "rsi", Params: Params{"overbought": 30.0, "oversold": 70.0}})
	_, err = r.Calculate("badrsi", testSeries(30))
	if !errors.Is(err, ErrInvalidParameters) {
		t.Errorf("bad params: got %v, want ErrInvalidParameters", err)
	}
}

func TestRegistry_PartialOverride_MergesDefaults(t *testing.T) {
	// A config that only overrides the period still gets source=close and
	// band levels from the calculator defaults.
	r := NewRegistry()
	r.AddConfig(Config{ID: "rsi7", TypeID: "rsi", Params: Params{"period": 7}})
	if _, err := r.Calculate("rsi7", testSeries(20)); err != nil {
		t.Fatalf("partial override: %v", err)
	}
}

func TestRegistry_EnableDisable(t *testing.T) {
	r := NewRegistry()

	r.Enable("sma20")
	r.Enable("rsi14")
	r.Enable("ghost") // unknown id: no-op, not a failure

	enabled := r.EnabledConfigs()
	if len(enabled) != 2 {
		t.Fatalf("enabled configs: got %d, want 2", len(enabled))
	}
	// Registration order is preserved.
	if enabled[0].ID != "sma20" || enabled[1].ID != "rsi14" {
		t.Errorf("enabled order: got %s,%s", enabled[0].ID, enabled[1].ID)
	}

	r.Disable("sma20")
	enabled = r.EnabledConfigs()
	if len(enabled) != 1 || enabled[0].ID != "rsi14" {
		t.Errorf("after disable: %+v", enabled)
	}
}

func TestRegistry_ReRegisterReplaces(t *testing.T) {
	r := NewRegistry()
	before := len(r.AllConfigs())
	r.Register(SMA{}) // same id replaces, not duplicates
	r.AddConfig(Config{ID: "sma20", TypeID: "sma", Params: Params{"period": 25}})
	if got := len(r.AllConfigs()); got != before {
		t.Errorf("re-adding sma20 changed config count: %d → %d", before, got)
	}
	cfg, _ := r.GetConfig("sma20")
	if cfg.Params.Int("period", 0) != 25 {
		t.Error("re-added config did not replace parameters")
	}
}

func TestRegistry_Calculate_EmptySeries(t *testing.T) {
	// Calculating any registered indicator on an empty series returns an
	// empty or all-absent result without failing.
	r := NewRegistry()
	for _, cfg := range r.AllConfigs() {
		res, err := r.Calculate(cfg.ID, model.Series{})
		if err != nil {
			t.Errorf("%s on empty series: %v", cfg.ID, err)
			continue
		}
		for _, d := range res.Datasets {
			for _, pt := range d.Points {
				if pt.Valid {
					t.Errorf("%s: valid point on empty series", cfg.ID)
				}
			}
		}
	}
}
