// Package backtest drives a single simulation run: it replays bars through a
// strategy, routes intents through the risk engine, applies fills to the
// portfolio, and reduces the result to a metrics report.
package backtest

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/quantlab/backsim/market"
	"github.com/quantlab/backsim/metrics"
	"github.com/quantlab/backsim/pkg/id"
	"github.com/quantlab/backsim/portfolio"
	"github.com/quantlab/backsim/risk"
	"github.com/quantlab/backsim/strategies"
)

// MinInitialCapital is the smallest accepted starting balance.
const MinInitialCapital = 100.0

// Run-level failures. Configuration and data errors abort before any state
// is visible; order rejections never do.
var (
	ErrNoData           = errors.New("no bars for requested symbols and date range")
	ErrCapitalTooLow    = errors.New("initial capital below minimum")
	ErrInvalidDateRange = errors.New("invalid date range")
)

// RunConfig describes one backtest run.
type RunConfig struct {
	Strategy string
	Params   strategies.Params
	Risk     risk.Config

	// Zero Start/End leave that side of the range unbounded.
	Start time.Time
	End   time.Time

	InitialCapital float64

	// Symbols restricts the run; nil means every symbol the feed yields.
	Symbols []string

	// CloseEnd liquidates remaining positions at the final bar's close.
	CloseEnd bool

	// Logger receives rejected-intent and progress records. Nil discards.
	Logger *slog.Logger
}

// Rejection is one intent the run declined, with the rule code and reason.
type Rejection struct {
	Time   time.Time             `json:"timestamp"`
	Intent portfolio.OrderIntent `json:"intent"`
	Code   string                `json:"code"`
	Reason string                `json:"reason"`
}

// Result is everything a run produces. Metrics, equity curve, and trades are
// deterministic for identical inputs; only RunID differs between runs.
type Result struct {
	RunID          string                     `json:"run_id"`
	Strategy       string                     `json:"strategy"`
	RiskConfig     string                     `json:"risk_config"`
	Start          time.Time                  `json:"start"`
	End            time.Time                  `json:"end"`
	InitialCapital float64                    `json:"initial_capital"`
	Metrics        metrics.Report             `json:"metrics"`
	Equity         []portfolio.EquitySnapshot `json:"equity_curve"`
	Trades         []portfolio.Trade          `json:"trades"`
	Rejections     []Rejection                `json:"rejections,omitempty"`
	RiskStats      risk.Stats                 `json:"risk_stats"`
}

// Run executes one backtest over the feed. The feed is drained and closed.
//
// Per timestamp, in ascending order: positions are marked to market from the
// bars at that timestamp, forced stop/take exits are applied, the drawdown
// state is refreshed, strategy intents are evaluated and filled, and exactly
// one equity snapshot is taken.
func Run(cfg RunConfig, feed market.Feed) (*Result, error) {
	if cfg.InitialCapital < MinInitialCapital {
		return nil, fmt.Errorf("%w: %.2f < %.2f", ErrCapitalTooLow, cfg.InitialCapital, MinInitialCapital)
	}
	if !cfg.Start.IsZero() && !cfg.End.IsZero() && cfg.End.Before(cfg.Start) {
		return nil, fmt.Errorf("%w: end %s before start %s", ErrInvalidDateRange,
			cfg.End.Format("2006-01-02"), cfg.Start.Format("2006-01-02"))
	}
	if err := cfg.Risk.Validate(); err != nil {
		return nil, err
	}

	strat, err := strategies.New(cfg.Strategy, cfg.Params)
	if err != nil {
		return nil, err
	}

	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	bars, err := drain(feed, cfg)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, ErrNoData
	}

	p := portfolio.New(cfg.InitialCapital)
	engine := risk.NewEngine(cfg.Risk)

	windows := make(map[string][]market.Bar)
	lastPrices := make(map[string]float64)

	var rejections []Rejection
	var lastTS time.Time

	for i := 0; i < len(bars); {
		ts := bars[i].Time
		j := i
		for j < len(bars) && bars[j].Time.Equal(ts) {
			j++
		}
		group := bars[i:j]
		i = j
		lastTS = ts

		// 1) Mark to market and extend per-symbol lookback windows.
		// Symbols without a bar at this timestamp keep their last mark.
		for _, b := range group {
			p.MarkToMarket(b)
			windows[b.Symbol] = append(windows[b.Symbol], b)
			lastPrices[b.Symbol] = b.Close
		}

		// 2) Forced stop-loss/take-profit exits on open positions.
		for _, exit := range engine.SweepExits(p) {
			if err := p.Apply(exit.Intent, ts); err != nil {
				// A sweep sells known positions at known marks; a
				// failure here is a bug, not a market condition.
				return nil, fmt.Errorf("forced exit %s: %w", exit.Intent.Symbol, err)
			}
			log.Debug("forced exit",
				"symbol", exit.Intent.Symbol,
				"reason", exit.Reason,
				"quantity", exit.Intent.Quantity)
		}

		// 3) Refresh the running peak / drawdown suppression.
		engine.ObserveEquity(p.Equity())

		// 4) Strategy signals, risk-checked and filled.
		for _, b := range group {
			for _, intent := range strat.OnBar(windows[b.Symbol], p) {
				decision := engine.Evaluate(intent, p)
				if decision.Outcome == risk.Rejected {
					rejections = append(rejections, Rejection{
						Time: ts, Intent: intent,
						Code: decision.Code, Reason: decision.Reason,
					})
					log.Debug("intent rejected",
						"symbol", intent.Symbol, "code", decision.Code, "reason", decision.Reason)
					continue
				}
				if err := p.Apply(decision.Intent, ts); err != nil {
					rejections = append(rejections, Rejection{
						Time: ts, Intent: decision.Intent,
						Code: portfolioRejectCode(err), Reason: err.Error(),
					})
					log.Debug("fill rejected", "symbol", intent.Symbol, "err", err)
				}
			}
		}

		// 5) One snapshot per timestamp.
		p.Snapshot(ts)
	}

	if cfg.CloseEnd {
		p.CloseAll(lastPrices, lastTS)
	}

	report := metrics.Calculate(p.EquityCurve(), p.Trades(), cfg.InitialCapital)

	return &Result{
		RunID:          id.New(),
		Strategy:       strat.Name(),
		RiskConfig:     cfg.Risk.Name,
		Start:          bars[0].Time,
		End:            lastTS,
		InitialCapital: cfg.InitialCapital,
		Metrics:        report,
		Equity:         p.EquityCurve(),
		Trades:         p.Trades(),
		Rejections:     rejections,
		RiskStats:      engine.Stats(),
	}, nil
}

// drain consumes the feed, applying symbol and date filters, and returns
// bars sorted by (Time, Symbol).
func drain(feed market.Feed, cfg RunConfig) ([]market.Bar, error) {
	defer feed.Close()

	var symbols map[string]struct{}
	if len(cfg.Symbols) > 0 {
		symbols = make(map[string]struct{}, len(cfg.Symbols))
		for _, s := range cfg.Symbols {
			symbols[s] = struct{}{}
		}
	}

	var bars []market.Bar
	for {
		b, ok, err := feed.Next()
		if err != nil {
			return nil, fmt.Errorf("bar feed: %w", err)
		}
		if !ok {
			break
		}
		if symbols != nil {
			if _, ok := symbols[b.Symbol]; !ok {
				continue
			}
		}
		if !cfg.Start.IsZero() && b.Time.Before(cfg.Start) {
			continue
		}
		if !cfg.End.IsZero() && b.Time.After(cfg.End) {
			continue
		}
		bars = append(bars, b)
	}
	market.SortBars(bars)
	return bars, nil
}

// Portfolio-level rejection codes.
const (
	CodeInsufficientCash = "INSUFFICIENT_CASH"
	CodeNoPosition       = "NO_POSITION"
	CodeExcessQuantity   = "EXCESS_QUANTITY"
	CodeBadIntent        = "BAD_INTENT"
)

func portfolioRejectCode(err error) string {
	switch {
	case errors.Is(err, portfolio.ErrInsufficientCash):
		return CodeInsufficientCash
	case errors.Is(err, portfolio.ErrNoPosition):
		return CodeNoPosition
	case errors.Is(err, portfolio.ErrExcessQuantity):
		return CodeExcessQuantity
	default:
		return CodeBadIntent
	}
}
