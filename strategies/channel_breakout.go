package strategies

import (
	"fmt"

	"github.com/quantlab/backsim/indicators"
	"github.com/quantlab/backsim/market"
	"github.com/quantlab/backsim/portfolio"
)

func init() {
	Register("channel-breakout", func(p Params) Strategy { return NewChannelBreakout(p) })
}

// ChannelBreakout trades price channels: buy when the close breaks above the
// prior entry-period high, sell the full position when the close falls below
// the prior exit-period low. Both channels are measured against prior bars
// only, so the breakout bar itself never widens its own channel.
type ChannelBreakout struct {
	entryPeriod int
	exitPeriod  int
	sizePct     float64

	state map[string]*channelState
}

type channelState struct {
	high *indicators.RollingHigh
	low  *indicators.RollingLow
}

func NewChannelBreakout(params Params) *ChannelBreakout {
	return &ChannelBreakout{
		entryPeriod: int(params.Get("entry_period", 20)),
		exitPeriod:  int(params.Get("exit_period", 10)),
		sizePct:     params.Get("position_pct", defaultSizePct),
		state:       make(map[string]*channelState),
	}
}

func (s *ChannelBreakout) Name() string {
	return fmt.Sprintf("channel-breakout(%d,%d)", s.entryPeriod, s.exitPeriod)
}

func (s *ChannelBreakout) OnBar(window []market.Bar, p *portfolio.Portfolio) []portfolio.OrderIntent {
	if len(window) == 0 {
		return nil
	}
	bar := window[len(window)-1]

	st, ok := s.state[bar.Symbol]
	if !ok {
		st = &channelState{
			high: indicators.NewRollingHigh(s.entryPeriod),
			low:  indicators.NewRollingLow(s.exitPeriod),
		}
		s.state[bar.Symbol] = st
	}

	// Snapshot both channels before this bar enters the windows.
	highReady, priorHigh := st.high.Ready(), st.high.Value()
	lowReady, priorLow := st.low.Ready(), st.low.Value()

	st.high.Update(bar)
	st.low.Update(bar)

	pos, hasPosition := p.Position(bar.Symbol)
	if !hasPosition {
		if !highReady || bar.Close <= priorHigh {
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

	if lowReady && bar.Close < priorLow {
		return []portfolio.OrderIntent{{
			Symbol:   bar.Symbol,
			Side:     portfolio.Sell,
			Quantity: pos.Quantity,
			Price:    bar.Close,
		}}
	}
	return nil
}
