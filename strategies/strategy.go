// Package strategies defines the signal-generation contract and the built-in
// strategy implementations.
package strategies

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/quantlab/backsim/market"
	"github.com/quantlab/backsim/portfolio"
)

// ErrUnknownStrategy is returned by New for unregistered names.
var ErrUnknownStrategy = errors.New("unknown strategy")

// Strategy turns bar history into order intents.
//
// OnBar is called once per bar per symbol, in ascending timestamp order.
// window is the symbol's bar history ending at the current bar; it never
// contains bars beyond the current timestamp. Implementations must not emit
// intents until they have enough history; insufficient lookback is silence,
// never an error.
type Strategy interface {
	Name() string
	OnBar(window []market.Bar, p *portfolio.Portfolio) []portfolio.OrderIntent
}

// Params carries numeric strategy parameters from configuration.
type Params map[string]float64

// Get returns the parameter value or def when unset.
func (p Params) Get(key string, def float64) float64 {
	if p == nil {
		return def
	}
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// Constructor builds a fresh strategy instance for one run.
type Constructor func(Params) Strategy

var registry = map[string]Constructor{}

// Register adds a strategy constructor under name. Built-ins register from
// init; callers may add custom strategies before running.
func Register(name string, c Constructor) {
	registry[name] = c
}

// New builds the named strategy with the given parameters.
func New(name string, params Params) (Strategy, error) {
	c, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %s)",
			ErrUnknownStrategy, name, strings.Join(List(), ", "))
	}
	return c(params), nil
}

// List returns the sorted registered strategy names.
func List() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// defaultSizePct is the fraction of equity committed per new position when a
// strategy has no explicit sizing parameter.
const defaultSizePct = 0.20

// sizeIntent converts an equity fraction into share quantity at price.
func sizeIntent(p *portfolio.Portfolio, price, pct float64) float64 {
	if price <= 0 {
		return 0
	}
	return p.Equity() * pct / price
}
