package strategies

import (
	"fmt"

	"github.com/quantlab/backsim/indicators"
	"github.com/quantlab/backsim/market"
	"github.com/quantlab/backsim/portfolio"
)

func init() {
	Register("ema-cross", func(p Params) Strategy { return NewEMACross(p) })
}

// EMACross is the exponential sibling of MACross: buy when the fast EMA
// first closes above the slow EMA, sell the full position on the reverse
// cross. The EMAs react faster than simple averages, so crosses fire a bar
// or two earlier on sharp moves.
type EMACross struct {
	fastPeriod int
	slowPeriod int
	sizePct    float64

	state map[string]*emaState
}

type emaState struct {
	fast *indicators.ExponentialMA
	slow *indicators.ExponentialMA

	lastDiff     float64
	haveLastDiff bool
}

func NewEMACross(params Params) *EMACross {
	return &EMACross{
		fastPeriod: int(params.Get("fast_period", 12)),
		slowPeriod: int(params.Get("slow_period", 26)),
		sizePct:    params.Get("position_pct", defaultSizePct),
		state:      make(map[string]*emaState),
	}
}

func (s *EMACross) Name() string {
	return fmt.Sprintf("ema-cross(%d,%d)", s.fastPeriod, s.slowPeriod)
}

func (s *EMACross) OnBar(window []market.Bar, p *portfolio.Portfolio) []portfolio.OrderIntent {
	if len(window) == 0 {
		return nil
	}
	bar := window[len(window)-1]

	st, ok := s.state[bar.Symbol]
	if !ok {
		st = &emaState{
			fast: indicators.NewEMA(s.fastPeriod),
			slow: indicators.NewEMA(s.slowPeriod),
		}
		s.state[bar.Symbol] = st
	}

	st.fast.Update(bar)
	st.slow.Update(bar)

	if !st.fast.Ready() || !st.slow.Ready() {
		return nil
	}

	diff := st.fast.Value() - st.slow.Value()

	if !st.haveLastDiff {
		st.lastDiff = diff
		st.haveLastDiff = true
		return nil
	}

	bullCross := diff > 0 && st.lastDiff <= 0
	bearCross := diff < 0 && st.lastDiff >= 0
	st.lastDiff = diff

	_, hasPosition := p.Position(bar.Symbol)

	switch {
	case bullCross && !hasPosition:
		qty := sizeIntent(p, bar.Close, s.sizePct)
		if qty <= 0 {
			return nil
		}
		return []portfolio.OrderIntent{{
			Symbol:   bar.Symbol,
			Side:     portfolio.Buy,
			Quantity: qty,
			Price:    bar.Close,
		}}

	case bearCross && hasPosition:
		pos, _ := p.Position(bar.Symbol)
		return []portfolio.OrderIntent{{
			Symbol:   bar.Symbol,
			Side:     portfolio.Sell,
			Quantity: pos.Quantity,
			Price:    bar.Close,
		}}
	}
	return nil
}
