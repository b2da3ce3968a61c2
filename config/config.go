// Package config loads and validates backtest run configuration from
// YAML or JSON files.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/quantlab/backsim/backtest"
	"github.com/quantlab/backsim/market"
	"github.com/quantlab/backsim/risk"
	"github.com/quantlab/backsim/strategies"
)

// Config is the complete configuration for one backtest run.
type Config struct {
	Run      RunConfig      `json:"run" yaml:"run"`
	Strategy StrategyConfig `json:"strategy" yaml:"strategy"`
	Risk     risk.Config    `json:"risk" yaml:"risk"`
	Data     DataConfig     `json:"data" yaml:"data"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
}

// RunConfig holds the capital and date-range parameters.
type RunConfig struct {
	InitialCapital float64 `json:"initial_capital" yaml:"initial_capital"`
	Start          string  `json:"start,omitempty" yaml:"start,omitempty"`
	End            string  `json:"end,omitempty" yaml:"end,omitempty"`
	CloseEnd       bool    `json:"close_end" yaml:"close_end"`
}

// StrategyConfig names the strategy and supplies its numeric parameters.
type StrategyConfig struct {
	Name   string            `json:"name" yaml:"name"`
	Params strategies.Params `json:"params,omitempty" yaml:"params,omitempty"`
}

// DataConfig points at the bar source.
type DataConfig struct {
	CSVPath string   `json:"csv_path" yaml:"csv_path"`
	Symbols []string `json:"symbols,omitempty" yaml:"symbols,omitempty"`
}

// JournalConfig selects the persistence backend.
type JournalConfig struct {
	Type   string `json:"type,omitempty" yaml:"type,omitempty"` // "sqlite", "csv", or "" for none
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	CSVDir string `json:"csv_dir,omitempty" yaml:"csv_dir,omitempty"`
}

// LoadFromFile loads configuration from a YAML or JSON file. YAML is tried
// first regardless of extension; JSON is the fallback.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile writes the configuration as YAML (.yaml/.yml) or pretty JSON.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Run.InitialCapital < backtest.MinInitialCapital {
		return fmt.Errorf("run.initial_capital must be at least %.2f", backtest.MinInitialCapital)
	}

	start, err := c.startTime()
	if err != nil {
		return fmt.Errorf("run.start: %w", err)
	}
	end, err := c.endTime()
	if err != nil {
		return fmt.Errorf("run.end: %w", err)
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return fmt.Errorf("run.end %s is before run.start %s", c.Run.End, c.Run.Start)
	}

	if c.Strategy.Name == "" {
		return fmt.Errorf("strategy.name is required")
	}
	if err := c.Risk.Validate(); err != nil {
		return fmt.Errorf("risk: %w", err)
	}
	if c.Data.CSVPath == "" {
		return fmt.Errorf("data.csv_path is required")
	}

	switch c.Journal.Type {
	case "", "none":
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal.db_path required for sqlite journal")
		}
	case "csv":
		if c.Journal.CSVDir == "" {
			return fmt.Errorf("journal.csv_dir required for csv journal")
		}
	default:
		return fmt.Errorf("journal.type must be 'sqlite', 'csv', or 'none'")
	}
	return nil
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Run: RunConfig{
			InitialCapital: 100000,
			CloseEnd:       true,
		},
		Strategy: StrategyConfig{
			Name: "ma-cross",
		},
		Risk: risk.Config{
			Name:    "default",
			Enabled: true,
		},
		Data: DataConfig{
			CSVPath: "./data/bars.csv",
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./backsim.db",
		},
	}
}

// BacktestConfig converts the file configuration into the engine's run config.
func (c *Config) BacktestConfig() (backtest.RunConfig, error) {
	start, err := c.startTime()
	if err != nil {
		return backtest.RunConfig{}, err
	}
	end, err := c.endTime()
	if err != nil {
		return backtest.RunConfig{}, err
	}

	return backtest.RunConfig{
		Strategy:       c.Strategy.Name,
		Params:         c.Strategy.Params,
		Risk:           c.Risk,
		Start:          start,
		End:            end,
		InitialCapital: c.Run.InitialCapital,
		Symbols:        c.Data.Symbols,
		CloseEnd:       c.Run.CloseEnd,
	}, nil
}

// Feed opens the configured CSV bar source, restricted to the run's
// symbols and date range.
func (c *Config) Feed() (market.Feed, error) {
	start, err := c.startTime()
	if err != nil {
		return nil, err
	}
	end, err := c.endTime()
	if err != nil {
		return nil, err
	}
	return market.NewCSVFeed(c.Data.CSVPath, c.Data.Symbols, start, end)
}

func (c *Config) startTime() (time.Time, error) {
	if c.Run.Start == "" {
		return time.Time{}, nil
	}
	return market.ParseTime(c.Run.Start)
}

func (c *Config) endTime() (time.Time, error) {
	if c.Run.End == "" {
		return time.Time{}, nil
	}
	return market.ParseTime(c.Run.End)
}
