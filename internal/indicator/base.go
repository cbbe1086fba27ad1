package indicator

import (
	"time"

	"charting-systemv1/internal/model"
)

// sample is a calculation-domain value with a warm-up validity flag.
// Primitives operate on samples so composed indicators (MACD) can track
// where their inputs were still warming up.
type sample struct {
	v  float64
	ok bool
}

// smaSamples computes a simple moving average. Output i is the mean of the
// trailing period values ending at i; invalid for the first period-1 slots.
// Rolling sum keeps this O(n).
func smaSamples(values []float64, period int) []sample {
	out := make([]sample, len(values))
	if period <= 0 {
		return out
	}
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sample{v: sum / float64(period), ok: true}
		}
	}
	return out
}

// emaSamples computes an exponential moving average seeded with the simple
// mean of the first period values, then
// ema[i] = (v[i] - ema[i-1]) * k + ema[i-1] with k = 2/(period+1).
func emaSamples(values []float64, period int) []sample {
	out := make([]sample, len(values))
	if period <= 0 || len(values) < period {
		return out
	}
	k := 2.0 / float64(period+1)

	seed := 0.0
	for i := 0; i < period; i++ {
		seed += values[i]
	}
	prev := seed / float64(period)
	out[period-1] = sample{v: prev, ok: true}

	for i := period; i < len(values); i++ {
		prev = (values[i]-prev)*k + prev
		out[i] = sample{v: prev, ok: true}
	}
	return out
}

// emaOverSamples applies an EMA to the valid prefix of a sample series and
// re-aligns the output to the original index space. Used for the MACD
// signal line, which smooths the MACD line itself.
func emaOverSamples(in []sample, period int) []sample {
	out := make([]sample, len(in))

	// Locate the contiguous valid run.
	start := -1
	for i, s := range in {
		if s.ok {
			start = i
			break
		}
	}
	if start == -1 {
		return out
	}

	vals := make([]float64, 0, len(in)-start)
	for i := start; i < len(in) && in[i].ok; i++ {
		vals = append(vals, in[i].v)
	}

	ema := emaSamples(vals, period)
	for i, s := range ema {
		out[start+i] = s
	}
	return out
}

// dataset binds samples to timestamps, producing one plotted series.
func dataset(label string, role SeriesRole, axisID string, ts []time.Time, samples []sample) Dataset {
	points := make([]Point, len(samples))
	for i, s := range samples {
		points[i] = Point{TS: ts[i], Value: s.v, Valid: s.ok}
	}
	return Dataset{Label: label, Role: role, AxisID: axisID, Points: points}
}

// constantDataset emits a static reference band at a fixed value, valid at
// every index (RSI overbought/oversold/midline).
func constantDataset(label string, axisID string, ts []time.Time, value float64) Dataset {
	points := make([]Point, len(ts))
	for i, t := range ts {
		points[i] = Point{TS: t, Value: value, Valid: true}
	}
	return Dataset{Label: label, Role: RoleReference, AxisID: axisID, Points: points}
}

// sourceValues extracts the configured OHLC field.
func sourceValues(series model.Series, p Params) []float64 {
	return series.SourceValues(p.Source("source"))
}
