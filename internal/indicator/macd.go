package indicator

import "charting-systemv1/internal/model"

// axisMACD is the auxiliary axis shared by MACD datasets; the line
// oscillates around zero independent of price scale.
const axisMACD = "macd"

// MACD computes the Moving Average Convergence Divergence:
// line = EMA(fast) - EMA(slow), signal = EMA(signalPeriod) of the line,
// histogram = line - signal. Each output is invalid wherever any of its
// inputs is still warming up.
type MACD struct{}

func (MACD) ID() string         { return "macd" }
func (MACD) Name() string       { return "MACD" }
func (MACD) Category() Category { return CategoryOscillator }

func (MACD) DefaultParams() Params {
	return Params{
		"fast_period":   12,
		"slow_period":   26,
		"signal_period": 9,
		"source":        "close",
	}
}

func (MACD) Validate(p Params) bool {
	fast := p.Int("fast_period", 0)
	slow := p.Int("slow_period", 0)
	signal := p.Int("signal_period", 0)
	return fast > 0 && slow > fast && signal > 0
}

func (m MACD) Calculate(series model.Series, p Params) Result {
	fast := p.Int("fast_period", 12)
	slow := p.Int("slow_period", 26)
	signal := p.Int("signal_period", 9)

	values := sourceValues(series, p)
	fastEMA := emaSamples(values, fast)
	slowEMA := emaSamples(values, slow)

	// MACD line exists only where both EMAs do.
	line := make([]sample, len(values))
	for i := range values {
		if fastEMA[i].ok && slowEMA[i].ok {
			line[i] = sample{v: fastEMA[i].v - slowEMA[i].v, ok: true}
		}
	}

	// Signal smooths the MACD line's valid prefix, re-aligned to the
	// original index space.
	signalLine := emaOverSamples(line, signal)

	histogram := make([]sample, len(values))
	for i := range values {
		if line[i].ok && signalLine[i].ok {
			histogram[i] = sample{v: line[i].v - signalLine[i].v, ok: true}
		}
	}

	ts := series.Timestamps()
	return Result{
		Datasets: []Dataset{
			dataset("MACD", RoleLine, axisMACD, ts, line),
			dataset("Signal", RoleSignal, axisMACD, ts, signalLine),
			dataset("Histogram", RoleHistogram, axisMACD, ts, histogram),
		},
		Axes: []Axis{{ID: axisMACD}},
	}
}
