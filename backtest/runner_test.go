package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/quantlab/backsim/market"
	"github.com/quantlab/backsim/portfolio"
	"github.com/quantlab/backsim/risk"
)

func dayBars(symbol string, closes ...float64) []market.Bar {
	bars := make([]market.Bar, len(closes))
	for i, c := range closes {
		bars[i] = market.Bar{
			Symbol: symbol,
			Time:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i),
			Open:   c, High: c, Low: c, Close: c, Volume: 1000,
		}
	}
	return bars
}

func crossConfig() RunConfig {
	return RunConfig{
		Strategy:       "ma-cross",
		Params:         map[string]float64{"fast_period": 2, "slow_period": 3},
		Risk:           risk.Disabled(),
		InitialCapital: 100000,
	}
}

func TestRunCrossoverTrade(t *testing.T) {
	t.Parallel()

	bars := dayBars("AAPL", 10, 10, 10, 12, 14, 16, 10, 8)
	result, err := Run(crossConfig(), market.NewSliceFeed(bars))
	assert.NoError(t, err)

	// One round trip: entry on the bullish cross at 12, exit on the
	// bearish cross at 10.
	assert.Len(t, result.Trades, 1)
	tr := result.Trades[0]
	assert.Equal(t, portfolio.StatusClosed, tr.Status)
	assert.InDelta(t, 12.0, tr.EntryPrice, 1e-9)
	assert.InDelta(t, 10.0, tr.ExitPrice, 1e-9)
	assert.Equal(t, bars[3].Time, tr.EntryTime)
	assert.Equal(t, bars[6].Time, tr.ExitTime)

	assert.Equal(t, "ma-cross(2,3)", result.Strategy)
	assert.Equal(t, bars[0].Time, result.Start)
	assert.Equal(t, bars[7].Time, result.End)
	assert.NotEmpty(t, result.RunID)
}

func TestRunOneSnapshotPerTimestamp(t *testing.T) {
	t.Parallel()

	// Two symbols sharing 5 timestamps must yield exactly 5 snapshots.
	bars := append(dayBars("AAPL", 10, 11, 12, 13, 14), dayBars("MSFT", 20, 21, 22, 23, 24)...)

	cfg := crossConfig()
	cfg.Strategy = "noop"
	result, err := Run(cfg, market.NewSliceFeed(bars))
	assert.NoError(t, err)

	assert.Len(t, result.Equity, 5)
	seen := map[time.Time]bool{}
	for _, snap := range result.Equity {
		assert.False(t, seen[snap.Time], "duplicate snapshot at %s", snap.Time)
		seen[snap.Time] = true
		assert.InDelta(t, snap.Equity, snap.Cash+snap.PositionsValue, 1e-9)
	}
}

func TestRunDeterministic(t *testing.T) {
	t.Parallel()

	bars := append(dayBars("AAPL", 10, 10, 10, 12, 14, 16, 10, 8),
		dayBars("MSFT", 30, 31, 29, 33, 36, 40, 28, 27)...)

	a, err := Run(crossConfig(), market.NewSliceFeed(bars))
	assert.NoError(t, err)
	b, err := Run(crossConfig(), market.NewSliceFeed(bars))
	assert.NoError(t, err)

	// Everything except the run ID is byte-identical.
	assert.NotEqual(t, a.RunID, b.RunID)
	assert.Equal(t, a.Trades, b.Trades)
	assert.Equal(t, a.Equity, b.Equity)
	assert.Equal(t, a.Metrics, b.Metrics)
	assert.Equal(t, a.Rejections, b.Rejections)
	assert.Equal(t, a.RiskStats, b.RiskStats)
}

func TestRunValidation(t *testing.T) {
	t.Parallel()

	bars := dayBars("AAPL", 10, 11, 12)

	cfg := crossConfig()
	cfg.InitialCapital = 50
	_, err := Run(cfg, market.NewSliceFeed(bars))
	assert.ErrorIs(t, err, ErrCapitalTooLow)

	cfg = crossConfig()
	cfg.Start = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	cfg.End = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = Run(cfg, market.NewSliceFeed(bars))
	assert.ErrorIs(t, err, ErrInvalidDateRange)

	cfg = crossConfig()
	cfg.Strategy = "does-not-exist"
	_, err = Run(cfg, market.NewSliceFeed(bars))
	assert.Error(t, err)

	cfg = crossConfig()
	cfg.Risk = risk.Config{Enabled: true, StopLossPct: risk.Float(2.0)}
	_, err = Run(cfg, market.NewSliceFeed(bars))
	assert.Error(t, err)
}

func TestRunNoData(t *testing.T) {
	t.Parallel()

	_, err := Run(crossConfig(), market.NewSliceFeed(nil))
	assert.ErrorIs(t, err, ErrNoData)

	// Filters that exclude everything also surface as no data.
	cfg := crossConfig()
	cfg.Symbols = []string{"TSLA"}
	_, err = Run(cfg, market.NewSliceFeed(dayBars("AAPL", 10, 11)))
	assert.ErrorIs(t, err, ErrNoData)
}

func TestRunDateWindowRestrictsBars(t *testing.T) {
	t.Parallel()

	bars := dayBars("AAPL", 10, 11, 12, 13, 14, 15)

	cfg := crossConfig()
	cfg.Strategy = "noop"
	cfg.Start = bars[2].Time
	cfg.End = bars[4].Time

	result, err := Run(cfg, market.NewSliceFeed(bars))
	assert.NoError(t, err)
	assert.Len(t, result.Equity, 3)
	assert.Equal(t, bars[2].Time, result.Start)
	assert.Equal(t, bars[4].Time, result.End)
}

func TestRunStopLossForcedExit(t *testing.T) {
	t.Parallel()

	// Entry at 12 on the cross; the next close at 11 is an 8.3% loss,
	// past the 5% stop, so the sweep closes the position at the mark.
	bars := dayBars("AAPL", 10, 10, 10, 12, 11, 11, 11)

	cfg := crossConfig()
	cfg.Risk = risk.Config{Name: "stops", Enabled: true, StopLossPct: risk.Float(0.05)}

	result, err := Run(cfg, market.NewSliceFeed(bars))
	assert.NoError(t, err)

	assert.Equal(t, 1, result.RiskStats.ForcedExits)
	assert.Len(t, result.Trades, 1)
	tr := result.Trades[0]
	assert.Equal(t, portfolio.StatusClosed, tr.Status)
	assert.InDelta(t, 11.0, tr.ExitPrice, 1e-9)
	assert.Equal(t, bars[4].Time, tr.ExitTime)
	assert.Equal(t, "stops", result.RiskConfig)
}

func TestRunCloseEndLiquidates(t *testing.T) {
	t.Parallel()

	// The position never sees a bearish cross; CloseEnd exits it at the
	// final close.
	bars := dayBars("AAPL", 10, 10, 10, 12, 14, 16, 18)

	cfg := crossConfig()
	cfg.CloseEnd = true
	result, err := Run(cfg, market.NewSliceFeed(bars))
	assert.NoError(t, err)

	assert.Len(t, result.Trades, 1)
	tr := result.Trades[0]
	assert.Equal(t, portfolio.StatusClosed, tr.Status)
	assert.InDelta(t, 18.0, tr.ExitPrice, 1e-9)
	assert.Equal(t, bars[6].Time, tr.ExitTime)
}

func TestRunWithoutCloseEndLeavesPositionOpen(t *testing.T) {
	t.Parallel()

	bars := dayBars("AAPL", 10, 10, 10, 12, 14, 16, 18)

	result, err := Run(crossConfig(), market.NewSliceFeed(bars))
	assert.NoError(t, err)

	assert.Len(t, result.Trades, 1)
	assert.Equal(t, portfolio.StatusOpen, result.Trades[0].Status)
	assert.Equal(t, 0, result.Metrics.NumTrades)
}

func TestRunRecordsPortfolioRejections(t *testing.T) {
	t.Parallel()

	// position_pct of 5.0 asks for 5x equity; the portfolio rejects the
	// fill but the run completes.
	bars := dayBars("AAPL", 10, 10, 10, 12, 14)

	cfg := crossConfig()
	cfg.Params = map[string]float64{"fast_period": 2, "slow_period": 3, "position_pct": 5.0}

	result, err := Run(cfg, market.NewSliceFeed(bars))
	assert.NoError(t, err)

	assert.Len(t, result.Rejections, 1)
	assert.Equal(t, CodeInsufficientCash, result.Rejections[0].Code)
	assert.Empty(t, result.Trades)
}

func TestRunRecordsRiskRejections(t *testing.T) {
	t.Parallel()

	// An exposure cap of 1% blocks the 20% entry outright.
	bars := dayBars("AAPL", 10, 10, 10, 12, 14)

	cfg := crossConfig()
	cfg.Risk = risk.Config{Name: "tight", Enabled: true, MaxExposurePct: risk.Float(0.01)}

	result, err := Run(cfg, market.NewSliceFeed(bars))
	assert.NoError(t, err)

	assert.Len(t, result.Rejections, 1)
	assert.Equal(t, risk.CodeExposure, result.Rejections[0].Code)
	assert.Equal(t, 1, result.RiskStats.Rejections)
	assert.Empty(t, result.Trades)
}
