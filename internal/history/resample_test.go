package history

import (
	"context"
	"testing"
	"time"

	"charting-systemv1/internal/model"
)

// makeCandle creates a test candle at the given Unix second.
func makeCandle(symbol string, unixSec int64, open, high, low, close_, vol float64) model.Candle {
	return model.Candle{
		Symbol: symbol,
		TS:     time.Unix(unixSec, 0).UTC(),
		Open:   open,
		High:   high,
		Low:    low,
		Close:  close_,
		Volume: vol,
	}
}

func TestResample_60s(t *testing.T) {
	baseTS := int64(1700000000)
	baseTS = baseTS - (baseTS % 60)

	// 60 one-second candles in bucket 0, one candle in the next bucket.
	var in model.Series
	for i := int64(0); i < 60; i++ {
		in = append(in, makeCandle("SBIN", baseTS+i, 500+float64(i), 510+float64(i), 490+float64(i), 505+float64(i), 100))
	}
	in = append(in, makeCandle("SBIN", baseTS+60, 600, 610, 590, 605, 100))

	out := Resample(in, 60)
	if len(out) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(out))
	}

	c := out[0]
	if c.TS.Unix() != baseTS {
		t.Errorf("expected bucket start %d, got %d", baseTS, c.TS.Unix())
	}
	if c.Open != 500 {
		t.Errorf("expected open=500, got %v", c.Open)
	}
	if c.Close != 564 { // 505 + 59
		t.Errorf("expected close=564, got %v", c.Close)
	}
	if c.High != 569 { // 510 + 59
		t.Errorf("expected high=569, got %v", c.High)
	}
	if c.Low != 490 {
		t.Errorf("expected low=490, got %v", c.Low)
	}
	if c.Volume != 6000 {
		t.Errorf("expected volume=6000, got %v", c.Volume)
	}

	if out[1].Open != 600 || out[1].Close != 605 {
		t.Errorf("second bucket wrong: %+v", out[1])
	}
}

func TestResample_GapsLeaveNoEmptyBuckets(t *testing.T) {
	base := int64(1700000000)
	base = base - (base % 300)

	in := model.Series{
		makeCandle("AAPL", base, 100, 101, 99, 100.5, 10),
		makeCandle("AAPL", base+900, 102, 103, 101, 102.5, 20), // skips two buckets
	}

	out := Resample(in, 300)
	if len(out) != 2 {
		t.Fatalf("expected 2 buckets (no padding), got %d", len(out))
	}
	if out[1].TS.Unix() != base+900 {
		t.Errorf("second bucket start: want %d, got %d", base+900, out[1].TS.Unix())
	}
}

func TestResample_IntervalAtSourceSpacing(t *testing.T) {
	base := int64(1700000000)
	base = base - (base % 86400)

	in := model.Series{
		makeCandle("AAPL", base, 100, 101, 99, 100, 10),
		makeCandle("AAPL", base+86400, 101, 102, 100, 101, 10),
	}

	out := Resample(in, 86400)
	if len(out) != 2 {
		t.Fatalf("expected passthrough of 2 candles, got %d", len(out))
	}
}

func TestResample_Empty(t *testing.T) {
	if got := Resample(nil, 60); len(got) != 0 {
		t.Fatalf("expected empty result, got %d", len(got))
	}
}

func TestPeriodStart(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		period string
		want   time.Time
		ok     bool
	}{
		{"5d", now.AddDate(0, 0, -5), true},
		{"1mo", now.AddDate(0, -1, 0), true},
		{"3mo", now.AddDate(0, -3, 0), true},
		{"6mo", now.AddDate(0, -6, 0), true},
		{"1y", now.AddDate(-1, 0, 0), true},
		{"max", time.Time{}, true},
		{"", time.Time{}, true},
		{"3w", time.Time{}, false},
		{"0d", time.Time{}, false},
		{"-1mo", time.Time{}, false},
	}

	for _, tc := range cases {
		got, err := periodStart(now, tc.period)
		if tc.ok != (err == nil) {
			t.Errorf("%q: err=%v, want ok=%v", tc.period, err, tc.ok)
			continue
		}
		if tc.ok && !got.Equal(tc.want) {
			t.Errorf("%q: got %v, want %v", tc.period, got, tc.want)
		}
	}
}

// stubReader returns a fixed series regardless of cutoff.
type stubReader struct {
	series model.Series
	gotSym string
	gotCut time.Time
}

func (r *stubReader) ReadCandles(_ context.Context, symbol string, after time.Time) (model.Series, error) {
	r.gotSym = symbol
	r.gotCut = after
	return r.series, nil
}

func TestSource_GetSeries(t *testing.T) {
	base := int64(1700000000)
	base = base - (base % 3600)

	reader := &stubReader{series: model.Series{
		makeCandle("AAPL", base, 100, 102, 99, 101, 10),
		makeCandle("AAPL", base+1800, 101, 104, 100, 103, 10),
	}}
	src := NewSource(reader)
	src.now = func() time.Time { return time.Unix(base+7200, 0).UTC() }

	series, err := src.GetSeries(context.Background(), "AAPL", "5d", 3600)
	if err != nil {
		t.Fatalf("GetSeries: %v", err)
	}
	if reader.gotSym != "AAPL" {
		t.Errorf("reader symbol: got %q", reader.gotSym)
	}
	if len(series) != 1 {
		t.Fatalf("expected 1 resampled candle, got %d", len(series))
	}
	if series[0].High != 104 || series[0].Close != 103 {
		t.Errorf("merged candle wrong: %+v", series[0])
	}
}

func TestSource_UnknownSymbolEmpty(t *testing.T) {
	src := NewSource(&stubReader{})
	src.now = func() time.Time { return time.Unix(1700000000, 0).UTC() }

	series, err := src.GetSeries(context.Background(), "NOPE", "1mo", 86400)
	if err != nil {
		t.Fatalf("GetSeries: %v", err)
	}
	if len(series) != 0 {
		t.Fatalf("expected empty series, got %d", len(series))
	}
}

func TestSource_BadPeriod(t *testing.T) {
	src := NewSource(&stubReader{})
	if _, err := src.GetSeries(context.Background(), "AAPL", "3w", 86400); err == nil {
		t.Fatal("expected error for bad period")
	}
}
