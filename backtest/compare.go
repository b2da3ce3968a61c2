package backtest

// Comparison holds metric deltas between a run and a baseline run
// (typically the same strategy with risk management disabled).
type Comparison struct {
	TotalReturnDiff float64 `json:"total_return_diff"`
	MaxDrawdownDiff float64 `json:"max_drawdown_diff"`
	SharpeRatioDiff float64 `json:"sharpe_ratio_diff"`
	WinRateDiff     float64 `json:"win_rate_diff"`
	NumTradesDiff   int     `json:"num_trades_diff"`

	// DrawdownImprovementPct is how much of the baseline's drawdown the
	// current run avoided, as a percentage; 0 when the baseline had none.
	DrawdownImprovementPct float64 `json:"drawdown_improvement_pct"`
}

// Compare diffs the current run's metrics against a baseline's.
func Compare(current, baseline *Result) Comparison {
	cur, base := current.Metrics, baseline.Metrics

	c := Comparison{
		TotalReturnDiff: cur.TotalReturn - base.TotalReturn,
		MaxDrawdownDiff: cur.MaxDrawdown - base.MaxDrawdown,
		SharpeRatioDiff: cur.SharpeRatio - base.SharpeRatio,
		WinRateDiff:     cur.WinRate - base.WinRate,
		NumTradesDiff:   cur.NumTrades - base.NumTrades,
	}
	if base.MaxDrawdown > 0 {
		c.DrawdownImprovementPct = (base.MaxDrawdown - cur.MaxDrawdown) / base.MaxDrawdown * 100
	}
	return c
}
