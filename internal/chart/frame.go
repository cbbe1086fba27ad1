package chart

import (
	"encoding/json"
	"log/slog"
	"time"

	"charting-systemv1/internal/indicator"
	"charting-systemv1/internal/model"
)

// SeriesGroup is one renderable unit in a frame: the base price group, or
// one indicator instance's full output (an RSI group carries the RSI line
// plus its reference bands; a MACD group carries line, signal, histogram).
type SeriesGroup struct {
	ConfigID string              `json:"config_id"` // "" for the base price group
	Label    string              `json:"label"`
	Datasets []indicator.Dataset `json:"datasets"`
	Axes     []indicator.Axis    `json:"axes,omitempty"`
}

// Frame is the per-render model handed to the host draw hook: everything
// the surface needs to paint one pass of both charts.
type Frame struct {
	Symbol   string              `json:"symbol"`
	Settings model.ChartSettings `json:"settings"`
	Candles  model.Series        `json:"candles"`
	Volume   indicator.Dataset   `json:"volume"`
	Groups   []SeriesGroup       `json:"groups"`
	Drawings []model.Drawing     `json:"drawings"`
	Current  *model.Drawing      `json:"current,omitempty"`
}

// JSON marshals the frame for the wire. Returns nil on marshal failure.
func (f Frame) JSON() []byte {
	data, err := json.Marshal(f)
	if err != nil {
		return nil
	}
	return data
}

// FrameBuilder assembles frames from candle data and the indicator
// registry. A failed indicator never blocks the rest of the frame: its
// group is omitted and the failure logged for diagnostics.
type FrameBuilder struct {
	registry *indicator.Registry
	log      *slog.Logger

	// OnIndicatorError is an optional hook for failure metrics.
	OnIndicatorError func(configID string)

	// OnIndicatorCalc is an optional hook reporting per-config
	// calculation latency.
	OnIndicatorCalc func(configID string, elapsed time.Duration)
}

// NewFrameBuilder creates a builder over the shared registry.
func NewFrameBuilder(registry *indicator.Registry, log *slog.Logger) *FrameBuilder {
	if log == nil {
		log = slog.Default()
	}
	return &FrameBuilder{registry: registry, log: log}
}

// Build assembles a frame for one symbol. The first group is always the
// price group; one group follows per enabled indicator that calculates
// cleanly. An empty series yields a frame with empty groups, not a
// failure.
func (b *FrameBuilder) Build(symbol string, settings model.ChartSettings, series model.Series, session *Session) Frame {
	frame := Frame{
		Symbol:   symbol,
		Settings: settings,
		Candles:  series,
		Groups:   []SeriesGroup{priceGroup(series, settings)},
	}
	if settings.ShowVolume {
		frame.Volume = volumeDataset(series)
	}
	if session != nil {
		frame.Drawings = session.Drawings()
		frame.Current = session.Current()
	}

	for _, configID := range settings.EnabledIndicatorIDs {
		start := time.Now()
		res, err := b.registry.Calculate(configID, series)
		if b.OnIndicatorCalc != nil {
			b.OnIndicatorCalc(configID, time.Since(start))
		}
		if err != nil {
			// Degraded-but-functional: skip this indicator for the
			// frame, keep the rest rendering.
			b.log.Warn("indicator skipped", "config_id", configID, "err", err)
			if b.OnIndicatorError != nil {
				b.OnIndicatorError(configID)
			}
			continue
		}
		label := configID
		if cfg, ok := b.registry.GetConfig(configID); ok && cfg.TypeID != "" {
			label = cfg.TypeID
		}
		frame.Groups = append(frame.Groups, SeriesGroup{
			ConfigID: configID,
			Label:    label,
			Datasets: res.Datasets,
			Axes:     res.Axes,
		})
	}
	return frame
}

// priceGroup wraps the close series as the base plotted dataset.
func priceGroup(series model.Series, settings model.ChartSettings) SeriesGroup {
	points := make([]indicator.Point, len(series))
	for i, c := range series {
		points[i] = indicator.Point{TS: c.TS, Value: c.Close, Valid: true}
	}
	return SeriesGroup{
		Label: string(settings.ChartType),
		Datasets: []indicator.Dataset{
			{Label: "Price", Role: indicator.RoleLine, Points: points},
		},
	}
}

func volumeDataset(series model.Series) indicator.Dataset {
	points := make([]indicator.Point, len(series))
	for i, c := range series {
		points[i] = indicator.Point{TS: c.TS, Value: c.Volume, Valid: true}
	}
	return indicator.Dataset{Label: "Volume", Role: indicator.RoleHistogram, AxisID: "volume", Points: points}
}
