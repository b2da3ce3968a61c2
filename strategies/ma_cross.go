package strategies

import (
	"fmt"

	"github.com/quantlab/backsim/indicators"
	"github.com/quantlab/backsim/market"
	"github.com/quantlab/backsim/portfolio"
)

func init() {
	Register("ma-cross", func(p Params) Strategy { return NewMACross(p) })
}

// MACross trades simple moving average crossovers: buy on the bar where the
// fast SMA first closes above the slow SMA, sell the full position on the
// reverse cross. No signals fire until both averages are warmed up.
type MACross struct {
	fastPeriod int
	slowPeriod int
	sizePct    float64

	state map[string]*maState
}

type maState struct {
	fast *indicators.SimpleMA
	slow *indicators.SimpleMA

	lastDiff     float64
	haveLastDiff bool
}

func NewMACross(params Params) *MACross {
	return &MACross{
		fastPeriod: int(params.Get("fast_period", 20)),
		slowPeriod: int(params.Get("slow_period", 50)),
		sizePct:    params.Get("position_pct", defaultSizePct),
		state:      make(map[string]*maState),
	}
}

func (s *MACross) Name() string {
	return fmt.Sprintf("ma-cross(%d,%d)", s.fastPeriod, s.slowPeriod)
}

func (s *MACross) OnBar(window []market.Bar, p *portfolio.Portfolio) []portfolio.OrderIntent {
	if len(window) == 0 {
		return nil
	}
	bar := window[len(window)-1]

	st, ok := s.state[bar.Symbol]
	if !ok {
		st = &maState{
			fast: indicators.NewSMA(s.fastPeriod),
			slow: indicators.NewSMA(s.slowPeriod),
		}
		s.state[bar.Symbol] = st
	}

	st.fast.Update(bar)
	st.slow.Update(bar)

	if !st.fast.Ready() || !st.slow.Ready() {
		return nil
	}

	diff := st.fast.Value() - st.slow.Value()

	// Need a previous diff to detect a cross.
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
