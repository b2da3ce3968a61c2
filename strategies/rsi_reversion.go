package strategies

import (
	"fmt"

	"github.com/quantlab/backsim/indicators"
	"github.com/quantlab/backsim/market"
	"github.com/quantlab/backsim/portfolio"
)

func init() {
	Register("rsi-reversion", func(p Params) Strategy { return NewRSIReversion(p) })
}

// RSIReversion is a mean-reversion strategy on the Relative Strength Index:
// buy when RSI crosses down through the oversold level, sell the position
// when RSI crosses up through the overbought level. Level crossings, not
// levels, trigger signals, so a flat RSI emits nothing.
type RSIReversion struct {
	period     int
	oversold   float64
	overbought float64
	sizePct    float64

	state map[string]*rsiState
}

type rsiState struct {
	rsi *indicators.RSI

	lastRSI float64
	haveRSI bool
}

func NewRSIReversion(params Params) *RSIReversion {
	return &RSIReversion{
		period:     int(params.Get("rsi_period", 14)),
		oversold:   params.Get("oversold", 30),
		overbought: params.Get("overbought", 70),
		sizePct:    params.Get("position_pct", defaultSizePct),
		state:      make(map[string]*rsiState),
	}
}

func (s *RSIReversion) Name() string {
	return fmt.Sprintf("rsi-reversion(%d,%.0f,%.0f)", s.period, s.oversold, s.overbought)
}

func (s *RSIReversion) OnBar(window []market.Bar, p *portfolio.Portfolio) []portfolio.OrderIntent {
	if len(window) == 0 {
		return nil
	}
	bar := window[len(window)-1]

	st, ok := s.state[bar.Symbol]
	if !ok {
		st = &rsiState{rsi: indicators.NewRSI(s.period)}
		s.state[bar.Symbol] = st
	}

	st.rsi.Update(bar)
	if !st.rsi.Ready() {
		return nil
	}

	cur := st.rsi.Value()
	if !st.haveRSI {
		st.lastRSI = cur
		st.haveRSI = true
		return nil
	}

	crossedOversold := cur < s.oversold && st.lastRSI >= s.oversold
	crossedOverbought := cur > s.overbought && st.lastRSI <= s.overbought
	st.lastRSI = cur

	_, hasPosition := p.Position(bar.Symbol)

	switch {
	case crossedOversold && !hasPosition:
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

	case crossedOverbought && hasPosition:
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
