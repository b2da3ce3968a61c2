// Package risk validates and resizes order intents against portfolio-level
// constraints, and sweeps open positions for forced stop-loss/take-profit
// exits.
package risk

import "fmt"

// Config holds the risk limits for one run. Percent fields are fractions
// (0.10 = 10%); a nil field disables that rule. The config is immutable for
// the duration of a run.
type Config struct {
	Name string `json:"name" yaml:"name"`

	MaxPositionPct *float64 `json:"max_position_size_pct,omitempty" yaml:"max_position_size_pct,omitempty"`
	MaxExposurePct *float64 `json:"max_portfolio_exposure_pct,omitempty" yaml:"max_portfolio_exposure_pct,omitempty"`
	StopLossPct    *float64 `json:"stop_loss_pct,omitempty" yaml:"stop_loss_pct,omitempty"`
	TakeProfitPct  *float64 `json:"take_profit_pct,omitempty" yaml:"take_profit_pct,omitempty"`
	MaxDrawdownPct *float64 `json:"max_drawdown_pct,omitempty" yaml:"max_drawdown_pct,omitempty"`

	Enabled bool `json:"enabled" yaml:"enabled"`
}

// Disabled returns a pass-through config for baseline runs.
func Disabled() Config {
	return Config{Name: "No Risk Management", Enabled: false}
}

// Validate checks that every set fraction is in a sane range.
func (c Config) Validate() error {
	check := func(field string, v *float64) error {
		if v == nil {
			return nil
		}
		if *v <= 0 || *v > 1 {
			return fmt.Errorf("risk config %q: %s must be in (0, 1], got %v", c.Name, field, *v)
		}
		return nil
	}

	if err := check("max_position_size_pct", c.MaxPositionPct); err != nil {
		return err
	}
	if err := check("max_portfolio_exposure_pct", c.MaxExposurePct); err != nil {
		return err
	}
	if err := check("stop_loss_pct", c.StopLossPct); err != nil {
		return err
	}
	if err := check("take_profit_pct", c.TakeProfitPct); err != nil {
		return err
	}
	return check("max_drawdown_pct", c.MaxDrawdownPct)
}

// Float is a convenience for building optional config fields.
func Float(v float64) *float64 { return &v }
