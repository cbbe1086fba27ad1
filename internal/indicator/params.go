package indicator

import "charting-systemv1/internal/model"

// Params is an indicator parameter map. Values arrive from JSON configs,
// so numbers may be float64 even for integer parameters.
type Params map[string]any

// Merge layers overrides on top of defaults without mutating either.
func Merge(defaults, overrides Params) Params {
	out := make(Params, len(defaults)+len(overrides))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// Int reads an integer parameter, tolerating float64 from JSON decoding.
func (p Params) Int(key string, fallback int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return fallback
}

// Float reads a float parameter.
func (p Params) Float(key string, fallback float64) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return fallback
}

// Source reads the OHLC source field parameter.
func (p Params) Source(key string) model.PriceSource {
	if v, ok := p[key].(string); ok && v != "" {
		return model.PriceSource(v)
	}
	if v, ok := p[key].(model.PriceSource); ok {
		return v
	}
	return model.SourceClose
}
