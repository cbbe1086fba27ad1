package indicator

import (
	"strconv"

	"charting-systemv1/internal/model"
)

// SMA is the simple moving average calculator. Output i is the arithmetic
// mean of the source field over the trailing period samples ending at i.
type SMA struct{}

func (SMA) ID() string         { return "sma" }
func (SMA) Name() string       { return "Simple Moving Average" }
func (SMA) Category() Category { return CategoryOverlay }

func (SMA) DefaultParams() Params {
	return Params{"period": 20, "source": "close"}
}

func (SMA) Validate(p Params) bool {
	period := p.Int("period", 0)
	return period > 0 && period <= 500
}

func (s SMA) Calculate(series model.Series, p Params) Result {
	period := p.Int("period", 20)
	samples := smaSamples(sourceValues(series, p), period)
	return Result{
		Datasets: []Dataset{
			dataset("SMA "+strconv.Itoa(period), RoleLine, "", series.Timestamps(), samples),
		},
	}
}
