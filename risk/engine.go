package risk

import (
	"fmt"

	"github.com/quantlab/backsim/portfolio"
)

// Outcome of evaluating one intent.
type Outcome int

const (
	Accepted Outcome = iota
	Resized
	Rejected
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Resized:
		return "resized"
	case Rejected:
		return "rejected"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Violation codes, stable identifiers for journaling and tests.
const (
	CodePositionSize = "POSITION_SIZE"
	CodeExposure     = "EXPOSURE"
	CodeDrawdown     = "DRAWDOWN_SUPPRESSED"
)

// Decision is the result of running an intent through the rule chain.
// Intent carries the (possibly resized) order to fill.
type Decision struct {
	Outcome Outcome
	Intent  portfolio.OrderIntent
	Code    string
	Reason  string
}

// Exit reasons attached to forced sells synthesized by SweepExits.
const (
	ReasonStopLoss   = "StopLoss"
	ReasonTakeProfit = "TakeProfit"
)

// ForcedExit is a sell intent synthesized from a stop-loss or take-profit
// breach on an open position.
type ForcedExit struct {
	Intent portfolio.OrderIntent
	Reason string
}

// Stats summarizes engine state after a run.
type Stats struct {
	PeakEquity     float64 `json:"peak_equity"`
	BuysSuppressed bool    `json:"buys_suppressed"`
	Rejections     int     `json:"rejections"`
	Resizes        int     `json:"resizes"`
	ForcedExits    int     `json:"forced_exits"`
}

// rule is one pure check over an intent. Rules run left to right; the first
// non-accept outcome wins.
type rule func(intent portfolio.OrderIntent, p *portfolio.Portfolio) Decision

// Engine applies the configured rule chain to every intent and tracks the
// running equity peak for drawdown suppression. One Engine serves one run.
type Engine struct {
	cfg Config

	peakEquity     float64
	buysSuppressed bool

	rejections  int
	resizes     int
	forcedExits int

	chain []rule
}

func NewEngine(cfg Config) *Engine {
	e := &Engine{cfg: cfg}
	// Rule order is a contract: position size, then exposure, then drawdown.
	e.chain = []rule{e.positionSize, e.exposure, e.drawdown}
	return e
}

func (e *Engine) Config() Config { return e.cfg }

// Evaluate runs intent through the rule chain. A disabled config passes
// everything through unchanged. Sells are never constrained here; the
// portfolio itself rejects sells that do not match an open position.
func (e *Engine) Evaluate(intent portfolio.OrderIntent, p *portfolio.Portfolio) Decision {
	if !e.cfg.Enabled {
		return Decision{Outcome: Accepted, Intent: intent}
	}

	// A resize must survive later rules: exposure and drawdown re-check the
	// shrunk intent and accept it without knowing it was clamped.
	d := Decision{Outcome: Accepted, Intent: intent}
	for _, r := range e.chain {
		next := r(d.Intent, p)
		if next.Outcome == Rejected {
			e.rejections++
			return next
		}
		if next.Outcome == Resized {
			e.resizes++
			d = next
			continue
		}
		// Accepted: keep the earlier resize outcome, if any.
		d.Intent = next.Intent
	}
	return d
}

// positionSize shrinks the intent so its value fits within
// MaxPositionPct × equity. A cap that leaves no room rejects.
func (e *Engine) positionSize(intent portfolio.OrderIntent, p *portfolio.Portfolio) Decision {
	if e.cfg.MaxPositionPct == nil || intent.Side != portfolio.Buy {
		return Decision{Outcome: Accepted, Intent: intent}
	}

	maxValue := *e.cfg.MaxPositionPct * p.Equity()
	if intent.Value() <= maxValue {
		return Decision{Outcome: Accepted, Intent: intent}
	}
	if maxValue <= 0 || intent.Price <= 0 {
		return Decision{
			Outcome: Rejected,
			Intent:  intent,
			Code:    CodePositionSize,
			Reason:  fmt.Sprintf("no room under position cap %.2f", maxValue),
		}
	}

	resized := intent
	resized.Quantity = maxValue / intent.Price
	return Decision{
		Outcome: Resized,
		Intent:  resized,
		Code:    CodePositionSize,
		Reason: fmt.Sprintf("order value %.2f clamped to %.2f (%.0f%% of equity)",
			intent.Value(), maxValue, *e.cfg.MaxPositionPct*100),
	}
}

// exposure rejects buys that would push total open-position value past
// MaxExposurePct × equity.
func (e *Engine) exposure(intent portfolio.OrderIntent, p *portfolio.Portfolio) Decision {
	if e.cfg.MaxExposurePct == nil || intent.Side != portfolio.Buy {
		return Decision{Outcome: Accepted, Intent: intent}
	}

	equity := p.Equity()
	if equity <= 0 {
		return Decision{
			Outcome: Rejected,
			Intent:  intent,
			Code:    CodeExposure,
			Reason:  "no equity to take exposure against",
		}
	}

	newExposure := p.PositionsValue() + intent.Value()
	maxExposure := *e.cfg.MaxExposurePct * equity
	if newExposure > maxExposure {
		return Decision{
			Outcome: Rejected,
			Intent:  intent,
			Code:    CodeExposure,
			Reason: fmt.Sprintf("exposure %.2f would exceed cap %.2f (%.0f%% of equity)",
				newExposure, maxExposure, *e.cfg.MaxExposurePct*100),
		}
	}
	return Decision{Outcome: Accepted, Intent: intent}
}

// drawdown suppresses new buys while running drawdown exceeds
// MaxDrawdownPct. Sells always pass so positions can still be closed.
func (e *Engine) drawdown(intent portfolio.OrderIntent, p *portfolio.Portfolio) Decision {
	if intent.Side == portfolio.Buy && e.buysSuppressed {
		return Decision{
			Outcome: Rejected,
			Intent:  intent,
			Code:    CodeDrawdown,
			Reason: fmt.Sprintf("drawdown from peak %.2f exceeds %.0f%%, new buys suppressed",
				e.peakEquity, *e.cfg.MaxDrawdownPct*100),
		}
	}
	return Decision{Outcome: Accepted, Intent: intent}
}

// ObserveEquity updates the running peak and the drawdown-suppression state.
// The runner calls it once per timestamp, before evaluating new intents.
// Suppression lifts as soon as drawdown recovers below the threshold.
func (e *Engine) ObserveEquity(equity float64) {
	if !e.cfg.Enabled {
		return
	}
	if equity > e.peakEquity {
		e.peakEquity = equity
	}
	if e.cfg.MaxDrawdownPct == nil || e.peakEquity <= 0 {
		return
	}
	dd := (e.peakEquity - equity) / e.peakEquity
	e.buysSuppressed = dd >= *e.cfg.MaxDrawdownPct
}

// SweepExits inspects every open position and synthesizes forced sells where
// unrealized loss breaches the stop or unrealized gain breaches the take
// profit, measured against entry value. Stop-loss wins when both trigger.
// Positions are visited in sorted symbol order for determinism.
func (e *Engine) SweepExits(p *portfolio.Portfolio) []ForcedExit {
	if !e.cfg.Enabled {
		return nil
	}
	if e.cfg.StopLossPct == nil && e.cfg.TakeProfitPct == nil {
		return nil
	}

	var exits []ForcedExit
	for _, symbol := range p.Symbols() {
		pos, _ := p.Position(symbol)
		pnlPct := pos.UnrealizedPnLPct()

		var reason string
		switch {
		case e.cfg.StopLossPct != nil && pnlPct <= -*e.cfg.StopLossPct:
			reason = ReasonStopLoss
		case e.cfg.TakeProfitPct != nil && pnlPct >= *e.cfg.TakeProfitPct:
			reason = ReasonTakeProfit
		default:
			continue
		}

		exits = append(exits, ForcedExit{
			Intent: portfolio.OrderIntent{
				Symbol:   symbol,
				Side:     portfolio.Sell,
				Quantity: pos.Quantity,
				Price:    pos.Mark(),
			},
			Reason: reason,
		})
		e.forcedExits++
	}
	return exits
}

// Stats reports engine counters for the finished run.
func (e *Engine) Stats() Stats {
	return Stats{
		PeakEquity:     e.peakEquity,
		BuysSuppressed: e.buysSuppressed,
		Rejections:     e.rejections,
		Resizes:        e.resizes,
		ForcedExits:    e.forcedExits,
	}
}
