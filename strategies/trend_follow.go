package strategies

import (
	"fmt"
	"math"

	"github.com/quantlab/backsim/indicators"
	"github.com/quantlab/backsim/market"
	"github.com/quantlab/backsim/portfolio"
)

func init() {
	Register("trend-follow", func(p Params) Strategy { return NewTrendFollow(p) })
}

// TrendFollow is a breakout strategy: buy when the close breaks above the
// prior rolling high, exit on an ATR trailing stop. The stop arms at
// entry - multiplier*ATR and only ratchets upward with the close.
type TrendFollow struct {
	lookback   int
	atrPeriod  int
	multiplier float64
	sizePct    float64

	state map[string]*trendState
}

type trendState struct {
	high *indicators.RollingHigh
	atr  *indicators.ATR

	stop    float64
	hasStop bool
}

func NewTrendFollow(params Params) *TrendFollow {
	return &TrendFollow{
		lookback:   int(params.Get("lookback_period", 20)),
		atrPeriod:  int(params.Get("atr_period", 14)),
		multiplier: params.Get("atr_multiplier", 2.0),
		sizePct:    params.Get("position_pct", defaultSizePct),
		state:      make(map[string]*trendState),
	}
}

func (s *TrendFollow) Name() string {
	return fmt.Sprintf("trend-follow(%d,%d,%.1f)", s.lookback, s.atrPeriod, s.multiplier)
}

func (s *TrendFollow) OnBar(window []market.Bar, p *portfolio.Portfolio) []portfolio.OrderIntent {
	if len(window) == 0 {
		return nil
	}
	bar := window[len(window)-1]

	st, ok := s.state[bar.Symbol]
	if !ok {
		st = &trendState{
			high: indicators.NewRollingHigh(s.lookback),
			atr:  indicators.NewATR(s.atrPeriod),
		}
		s.state[bar.Symbol] = st
	}

	// Snapshot the rolling high before this bar enters the window, so a
	// breakout is measured against prior bars only.
	priorReady := st.high.Ready()
	priorHigh := st.high.Value()

	st.high.Update(bar)
	st.atr.Update(bar)

	pos, hasPosition := p.Position(bar.Symbol)
	if !hasPosition {
		st.hasStop = false

		if !priorReady || !st.atr.Ready() {
			return nil
		}
		if bar.Close <= priorHigh {
			return nil
		}
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
	}

	if !st.atr.Ready() {
		return nil
	}
	atr := st.atr.Value()

	if !st.hasStop {
		st.stop = pos.EntryPrice - s.multiplier*atr
		st.hasStop = true
	} else {
		st.stop = math.Max(st.stop, bar.Close-s.multiplier*atr)
	}

	if bar.Close <= st.stop {
		return []portfolio.OrderIntent{{
			Symbol:   bar.Symbol,
			Side:     portfolio.Sell,
			Quantity: pos.Quantity,
			Price:    bar.Close,
		}}
	}
	return nil
}
