package indicator

import (
	"strconv"

	"charting-systemv1/internal/model"
)

// axisRSI is the fixed 0-100 auxiliary axis declared by RSI.
const axisRSI = "rsi"

// RSI computes the Relative Strength Index using Wilder's smoothing.
// Average gain/loss are seeded with the simple mean over the first period
// price changes, then carried forward incrementally:
// avg = (prevAvg*(period-1) + delta) / period. O(n) over the series.
//
// Also emits static reference bands at the overbought, oversold and 50
// levels for visual guides.
type RSI struct{}

func (RSI) ID() string         { return "rsi" }
func (RSI) Name() string       { return "Relative Strength Index" }
func (RSI) Category() Category { return CategoryOscillator }

func (RSI) DefaultParams() Params {
	return Params{
		"period":     14,
		"source":     "close",
		"overbought": 70.0,
		"oversold":   30.0,
	}
}

func (RSI) Validate(p Params) bool {
	period := p.Int("period", 0)
	overbought := p.Float("overbought", 0)
	oversold := p.Float("oversold", -1)
	if period <= 0 || period > 100 {
		return false
	}
	if overbought <= 50 || overbought > 100 {
		return false
	}
	if oversold < 0 || oversold >= 50 {
		return false
	}
	return oversold < overbought
}

func (r RSI) Calculate(series model.Series, p Params) Result {
	period := p.Int("period", 14)
	overbought := p.Float("overbought", 70)
	oversold := p.Float("oversold", 30)

	values := sourceValues(series, p)
	samples := rsiSamples(values, period)

	ts := series.Timestamps()
	return Result{
		Datasets: []Dataset{
			dataset("RSI "+strconv.Itoa(period), RoleLine, axisRSI, ts, samples),
			constantDataset("Overbought", axisRSI, ts, overbought),
			constantDataset("Oversold", axisRSI, ts, oversold),
			constantDataset("Midline", axisRSI, ts, 50),
		},
		Axes: []Axis{{ID: axisRSI, Min: 0, Max: 100, Fixed: true}},
	}
}

// rsiSamples runs the RSI recurrence over raw values. First valid output
// is at index period (one change per candle after the first).
func rsiSamples(values []float64, period int) []sample {
	out := make([]sample, len(values))
	if period <= 0 || len(values) <= period {
		return out
	}

	var avgGain, avgLoss float64

	// Seed: simple mean of the first period changes.
	for i := 1; i <= period; i++ {
		delta := values[i] - values[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss -= delta
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = sample{v: rsiValue(avgGain, avgLoss), ok: true}

	p := float64(period)
	for i := period + 1; i < len(values); i++ {
		delta := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
		out[i] = sample{v: rsiValue(avgGain, avgLoss), ok: true}
	}
	return out
}

// rsiValue maps average gain/loss to the 0-100 scale. A zero average loss
// means fully bullish: RSI pins at 100, never a division by zero.
func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}
