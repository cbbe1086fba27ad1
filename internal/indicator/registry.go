package indicator

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"charting-systemv1/internal/model"
)

// Typed failures so callers can isolate a single bad indicator without
// aborting the rest of the chart.
var (
	ErrConfigNotFound     = errors.New("indicator config not found")
	ErrCalculatorNotFound = errors.New("calculator not found")
	ErrInvalidParameters  = errors.New("invalid indicator parameters")
)

// Config is a user-selected indicator instance: a calculator type plus
// concrete parameters. Many configs may resolve to the same type with
// different parameters (sma20 vs sma50). Configs are never deleted during
// a session, only disabled.
type Config struct {
	ID       string   `json:"id"`      // unique per instance, e.g. "sma20"
	TypeID   string   `json:"type_id"` // calculator type, e.g. "sma"
	Category Category `json:"category"`
	Params   Params   `json:"params"`
	Defaults Params   `json:"defaults"`
	Enabled  bool     `json:"enabled"`
}

// Registry catalogs calculator types and indicator configs. Constructed
// once, shared read-mostly across chart views; mutation is infrequent but
// must stay correct when two views share one instance, so everything runs
// under a single RWMutex.
type Registry struct {
	mu          sync.RWMutex
	calculators map[string]Calculator
	configs     map[string]*Config
	order       []string // config ids in registration order
}

// NewRegistry creates a registry with all built-in calculator types and
// one default config per type.
func NewRegistry() *Registry {
	r := &Registry{
		calculators: make(map[string]Calculator),
		configs:     make(map[string]*Config),
	}

	for _, c := range []Calculator{SMA{}, EMA{}, SMMA{}, MACD{}, RSI{}} {
		r.Register(c)
	}

	r.AddConfig(Config{ID: "sma20", TypeID: "sma", Params: Params{"period": 20}})
	r.AddConfig(Config{ID: "sma50", TypeID: "sma", Params: Params{"period": 50}})
	r.AddConfig(Config{ID: "ema20", TypeID: "ema", Params: Params{"period": 20}})
	r.AddConfig(Config{ID: "smma14", TypeID: "smma", Params: Params{"period": 14}})
	r.AddConfig(Config{ID: "macd", TypeID: "macd", Params: Params{}})
	r.AddConfig(Config{ID: "rsi14", TypeID: "rsi", Params: Params{"period": 14}})

	return r
}

// Register adds a calculator type by its ID. Re-registering the same id
// replaces the previous calculator.
func (r *Registry) Register(c Calculator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calculators[c.ID()] = c
}

// AddConfig adds an indicator config. The config's Category and Defaults
// are filled in from its resolved calculator type. Re-adding an existing
// id replaces the config but keeps its registration-order slot.
func (r *Registry) AddConfig(cfg Config) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if calc, ok := r.calculators[r.resolveTypeLocked(cfg)]; ok {
		cfg.Category = calc.Category()
		cfg.Defaults = calc.DefaultParams()
	}
	if cfg.Params == nil {
		cfg.Params = Params{}
	}

	if _, exists := r.configs[cfg.ID]; !exists {
		r.order = append(r.order, cfg.ID)
	}
	r.configs[cfg.ID] = &cfg
}

// GetConfig returns a config by id.
func (r *Registry) GetConfig(id string) (Config, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.configs[id]
	if !ok {
		return Config{}, false
	}
	return *cfg, true
}

// AllConfigs returns every config in registration order.
func (r *Registry) AllConfigs() []Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Config, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.configs[id])
	}
	return out
}

// ConfigsByCategory returns configs of one category in registration order.
func (r *Registry) ConfigsByCategory(cat Category) []Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Config
	for _, id := range r.order {
		if cfg := r.configs[id]; cfg.Category == cat {
			out = append(out, *cfg)
		}
	}
	return out
}

// EnabledConfigs returns all enabled configs in registration order.
func (r *Registry) EnabledConfigs() []Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Config
	for _, id := range r.order {
		if cfg := r.configs[id]; cfg.Enabled {
			out = append(out, *cfg)
		}
	}
	return out
}

// Enable flips a config on. Unknown ids are a no-op, not an error.
func (r *Registry) Enable(id string) { r.setEnabled(id, true) }

// Disable flips a config off. Unknown ids are a no-op, not an error.
func (r *Registry) Disable(id string) { r.setEnabled(id, false) }

func (r *Registry) setEnabled(id string, enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cfg, ok := r.configs[id]; ok {
		cfg.Enabled = enabled
	}
}

// Calculate resolves a config to its calculator, validates the merged
// parameters and runs the calculation.
func (r *Registry) Calculate(configID string, series model.Series) (Result, error) {
	r.mu.RLock()
	cfg, ok := r.configs[configID]
	if !ok {
		r.mu.RUnlock()
		return Result{}, fmt.Errorf("config %q: %w", configID, ErrConfigNotFound)
	}
	typeID := r.resolveTypeLocked(*cfg)
	calc, ok := r.calculators[typeID]
	overrides := cfg.Params
	r.mu.RUnlock()

	if !ok {
		return Result{}, fmt.Errorf("config %q resolves to type %q: %w", configID, typeID, ErrCalculatorNotFound)
	}
	params := Merge(calc.DefaultParams(), overrides)
	if !calc.Validate(params) {
		return Result{}, fmt.Errorf("config %q (%s): %w", configID, typeID, ErrInvalidParameters)
	}
	return calc.Calculate(series, params), nil
}

// resolveTypeLocked maps a config to its calculator type id. The explicit
// TypeID field wins; configs added without one fall back to longest-prefix
// matching against registered type ids ("sma20" → "sma"), and finally to
// the config id itself. Callers hold r.mu.
func (r *Registry) resolveTypeLocked(cfg Config) string {
	if cfg.TypeID != "" {
		return cfg.TypeID
	}
	best := ""
	for id := range r.calculators {
		if strings.HasPrefix(cfg.ID, id) && len(id) > len(best) {
			best = id
		}
	}
	if best != "" {
		return best
	}
	return cfg.ID
}
