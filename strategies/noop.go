package strategies

import (
	"github.com/quantlab/backsim/market"
	"github.com/quantlab/backsim/portfolio"
)

func init() {
	Register("noop", func(Params) Strategy { return Noop{} })
}

// Noop emits no signals. Useful for baseline runs and wiring tests.
type Noop struct{}

func (Noop) Name() string { return "noop" }

func (Noop) OnBar([]market.Bar, *portfolio.Portfolio) []portfolio.OrderIntent {
	return nil
}
