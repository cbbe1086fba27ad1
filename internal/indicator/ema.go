package indicator

import (
	"strconv"

	"charting-systemv1/internal/model"
)

// EMA is the exponential moving average calculator. Seeded with the simple
// mean of the first period samples, then weighted by 2/(period+1).
type EMA struct{}

func (EMA) ID() string         { return "ema" }
func (EMA) Name() string       { return "Exponential Moving Average" }
func (EMA) Category() Category { return CategoryOverlay }

func (EMA) DefaultParams() Params {
	return Params{"period": 20, "source": "close"}
}

func (EMA) Validate(p Params) bool {
	period := p.Int("period", 0)
	return period > 0 && period <= 500
}

func (e EMA) Calculate(series model.Series, p Params) Result {
	period := p.Int("period", 20)
	samples := emaSamples(sourceValues(series, p), period)
	return Result{
		Datasets: []Dataset{
			dataset("EMA "+strconv.Itoa(period), RoleLine, "", series.Timestamps(), samples),
		},
	}
}

// SMMA is the smoothed (Wilder) moving average calculator. Seeded with
// SMA(period), then smma[i] = (smma[i-1]*(period-1) + v[i]) / period.
type SMMA struct{}

func (SMMA) ID() string         { return "smma" }
func (SMMA) Name() string       { return "Smoothed Moving Average" }
func (SMMA) Category() Category { return CategoryOverlay }

func (SMMA) DefaultParams() Params {
	return Params{"period": 14, "source": "close"}
}

func (SMMA) Validate(p Params) bool {
	period := p.Int("period", 0)
	return period > 0 && period <= 500
}

func (s SMMA) Calculate(series model.Series, p Params) Result {
	period := p.Int("period", 14)
	values := sourceValues(series, p)

	samples := make([]sample, len(values))
	if period > 0 && len(values) >= period {
		seed := 0.0
		for i := 0; i < period; i++ {
			seed += values[i]
		}
		prev := seed / float64(period)
		samples[period-1] = sample{v: prev, ok: true}
		for i := period; i < len(values); i++ {
			prev = (prev*float64(period-1) + values[i]) / float64(period)
			samples[i] = sample{v: prev, ok: true}
		}
	}

	return Result{
		Datasets: []Dataset{
			dataset("SMMA "+strconv.Itoa(period), RoleLine, "", series.Timestamps(), samples),
		},
	}
}
